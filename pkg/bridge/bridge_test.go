package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/morezero/desktop-shell/pkg/events"
	"github.com/morezero/desktop-shell/pkg/host"
	"github.com/morezero/desktop-shell/pkg/services"
)

const bridgeTestPrefix = "bridge:bridge_test"

type recordingPoster struct {
	mu    sync.Mutex
	texts []string
	check func()
}

func (p *recordingPoster) PostText(message string) error {
	if p.check != nil {
		p.check()
	}
	p.mu.Lock()
	p.texts = append(p.texts, message)
	p.mu.Unlock()
	return nil
}

func (p *recordingPoster) all() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.texts...)
}

type countingHandler struct {
	calls   atomic.Int64
	session atomic.Value
	inner   Handler
}

func (h *countingHandler) HandleWebMessage(ctx context.Context, raw string) (string, error) {
	h.calls.Add(1)
	h.session.Store(services.SessionIDFrom(ctx))
	return h.inner.HandleWebMessage(ctx, raw)
}

func decode(t *testing.T, text string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(text), &m); err != nil {
		t.Fatalf("%s - posted text %q is not json: %v", bridgeTestPrefix, text, err)
	}
	return m
}

func TestBridge_DropsUndecodableMessages(t *testing.T) {
	h := &countingHandler{inner: services.NewRegistry(services.RegistryOpts{})}
	p := &recordingPoster{}
	rec := &events.Recorder{}
	b := New(h, p, WithPublisher(rec), WithSessionID("s1"))

	for _, raw := range []string{"", "   ", "\n\t", "not json", "[1,2]", `"text"`, "{broken", "42"} {
		b.OnMessage(raw)
	}

	if n := h.calls.Load(); n != 0 {
		t.Errorf("%s - handler called %d times for dropped input", bridgeTestPrefix, n)
	}
	if got := p.all(); len(got) != 0 {
		t.Errorf("%s - responses posted for dropped input: %v", bridgeTestPrefix, got)
	}
	if st := b.Stats(); st.Dropped != 8 || st.Handled != 0 {
		t.Errorf("%s - unexpected stats %+v", bridgeTestPrefix, st)
	}
	drops := rec.Events(events.KindMessageDropped)
	if len(drops) != 8 || drops[0].SessionID != "s1" {
		t.Errorf("%s - expected 8 drop events for s1, got %+v", bridgeTestPrefix, drops)
	}
}

func TestBridge_InlineSuccessAndFailure(t *testing.T) {
	h := &countingHandler{inner: services.NewRegistry(services.RegistryOpts{})}
	p := &recordingPoster{}
	b := New(h, p, WithSessionID("sess-42"))

	b.OnMessage(`{"cmd":"getCatalog","args":{},"requestId":"r1"}`)
	b.OnMessage(`{"cmd":"bogus","args":{},"requestId":"r2"}`)
	b.OnMessage(`{"args":{},"requestId":"r3"}`)

	got := p.all()
	if len(got) != 3 {
		t.Fatalf("%s - expected 3 responses, got %d", bridgeTestPrefix, len(got))
	}

	first := decode(t, got[0])
	if first["requestId"] != "r1" || first["success"] != true {
		t.Errorf("%s - unexpected first response %s", bridgeTestPrefix, got[0])
	}
	if items, ok := first["data"].([]interface{}); !ok || len(items) != 3 {
		t.Errorf("%s - expected 3 catalog items in %s", bridgeTestPrefix, got[0])
	}

	want := `{"requestId":"r2","success":false,"error":"Unknown command: bogus"}`
	if got[1] != want {
		t.Errorf("%s - got %s, want %s", bridgeTestPrefix, got[1], want)
	}

	third := decode(t, got[2])
	if third["requestId"] != "r3" || third["error"] != "Missing command" {
		t.Errorf("%s - unexpected third response %s", bridgeTestPrefix, got[2])
	}

	if st := b.Stats(); st.Handled != 3 || st.Failed != 2 || st.Dropped != 0 {
		t.Errorf("%s - unexpected stats %+v", bridgeTestPrefix, st)
	}
	if s, _ := h.session.Load().(string); s != "sess-42" {
		t.Errorf("%s - session id not threaded to handler: %q", bridgeTestPrefix, s)
	}
}

func TestBridge_InlinePreservesOrder(t *testing.T) {
	p := &recordingPoster{}
	b := New(services.NewRegistry(services.RegistryOpts{}), p)

	for i := 0; i < 20; i++ {
		b.OnMessage(fmt.Sprintf(`{"cmd":"getPlaybackState","requestId":"r%d"}`, i))
	}

	got := p.all()
	for i, text := range got {
		if id := decode(t, text)["requestId"]; id != fmt.Sprintf("r%d", i) {
			t.Fatalf("%s - response %d has requestId %v", bridgeTestPrefix, i, id)
		}
	}
}

func TestBridge_SerializedPostsThroughDispatcher(t *testing.T) {
	q := host.NewQueue()
	var pumping atomic.Bool
	p := &recordingPoster{}
	p.check = func() {
		if !pumping.Load() {
			t.Errorf("%s - PostText called off the owning goroutine", bridgeTestPrefix)
		}
	}
	b := New(services.NewRegistry(services.RegistryOpts{}), p, WithMode(Serialized), WithDispatcher(q.Post))
	if b.Mode() != Serialized {
		t.Fatalf("%s - mode = %v", bridgeTestPrefix, b.Mode())
	}

	const n = 25
	for i := 0; i < n; i++ {
		b.OnMessage(fmt.Sprintf(`{"cmd":"getCatalog","requestId":"r%d"}`, i))
	}
	if err := b.Close(); err != nil {
		t.Fatalf("%s - Close failed: %v", bridgeTestPrefix, err)
	}

	pumping.Store(true)
	q.Pump()
	pumping.Store(false)

	got := p.all()
	if len(got) != n {
		t.Fatalf("%s - expected %d responses, got %d", bridgeTestPrefix, n, len(got))
	}
	for i, text := range got {
		if id := decode(t, text)["requestId"]; id != fmt.Sprintf("r%d", i) {
			t.Fatalf("%s - response %d has requestId %v", bridgeTestPrefix, i, id)
		}
	}
}

func TestBridge_SerializedWithoutDispatcherFallsBack(t *testing.T) {
	b := New(services.NewRegistry(services.RegistryOpts{}), &recordingPoster{}, WithMode(Serialized))
	if b.Mode() != Inline {
		t.Errorf("%s - expected inline fallback, got %v", bridgeTestPrefix, b.Mode())
	}
}

func TestBridge_ClosedRejectsMessages(t *testing.T) {
	for _, mode := range []Mode{Inline, Serialized} {
		t.Run(mode.String(), func(t *testing.T) {
			q := host.NewQueue()
			p := &recordingPoster{}
			rec := &events.Recorder{}
			b := New(services.NewRegistry(services.RegistryOpts{}), p,
				WithMode(mode), WithDispatcher(q.Post), WithPublisher(rec), WithSessionID("s9"))
			b.Close()
			b.Close()

			b.OnMessage(`{"cmd":"getCatalog","requestId":"late"}`)
			b.OnMessage("not json")
			q.Pump()

			if len(p.all()) != 0 {
				t.Errorf("%s - closed bridge posted a response", bridgeTestPrefix)
			}
			if st := b.Stats(); st.Rejected != 1 || st.Dropped != 1 || st.Handled != 0 {
				t.Errorf("%s - stats = %+v, want 1 rejected and 1 dropped", bridgeTestPrefix, st)
			}

			evs := rec.Events(events.KindMessageDropped)
			if len(evs) != 2 {
				t.Fatalf("%s - expected 2 drop events, got %+v", bridgeTestPrefix, evs)
			}
			if evs[0].RequestID != "late" || evs[0].Error != "bridge closed" {
				t.Errorf("%s - closed drop event = %+v", bridgeTestPrefix, evs[0])
			}
			if evs[1].RequestID != "" || evs[1].Error != "undecodable message" {
				t.Errorf("%s - undecodable drop event = %+v", bridgeTestPrefix, evs[1])
			}
		})
	}
}

type slowHandler struct{}

func (slowHandler) HandleWebMessage(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestBridge_RequestTimeout(t *testing.T) {
	p := &recordingPoster{}
	b := New(slowHandler{}, p, WithRequestTimeout(20*time.Millisecond))

	start := time.Now()
	b.OnMessage(`{"cmd":"getCatalog","requestId":"slow"}`)
	if time.Since(start) > 2*time.Second {
		t.Fatalf("%s - timeout not applied", bridgeTestPrefix)
	}

	got := p.all()
	if len(got) != 1 || !strings.Contains(got[0], `"success":false`) || !strings.Contains(got[0], `"requestId":"slow"`) {
		t.Errorf("%s - expected failure response, got %v", bridgeTestPrefix, got)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", Inline, false},
		{"inline", Inline, false},
		{"Serialized", Serialized, false},
		{"parallel", Inline, true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("%s - ParseMode(%q) = %v, %v", bridgeTestPrefix, tt.in, got, err)
		}
	}
}

func TestScript_ExposesInvoke(t *testing.T) {
	for _, want := range []string{"window.shell", "invoke", "requestId", "__shell_post__", "__shell_receive__"} {
		if !strings.Contains(Script, want) {
			t.Errorf("%s - startup script missing %q", bridgeTestPrefix, want)
		}
	}
}

type failingHandler struct{ err error }

func (h failingHandler) HandleWebMessage(context.Context, string) (string, error) {
	return "", h.err
}

func TestRespond(t *testing.T) {
	reg := services.NewRegistry(services.RegistryOpts{})

	text, err := Respond(context.Background(), reg, `{"cmd":"getPlaybackState","requestId":"p1"}`)
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", bridgeTestPrefix, err)
	}
	if m := decode(t, text); m["requestId"] != "p1" || m["success"] != true {
		t.Errorf("%s - unexpected success envelope %s", bridgeTestPrefix, text)
	}

	// A plain error carries no request id; it is salvaged from the raw message.
	text, err = Respond(context.Background(), failingHandler{err: fmt.Errorf("boom")}, `{"cmd":"x","requestId":"p2"}`)
	if err == nil {
		t.Fatalf("%s - expected handler error to be returned", bridgeTestPrefix)
	}
	if want := `{"requestId":"p2","success":false,"error":"boom"}`; text != want {
		t.Errorf("%s - got %s, want %s", bridgeTestPrefix, text, want)
	}
}
