package memhost

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/morezero/desktop-shell/pkg/host"
)

const engineTestPrefix = "memhost:engine_test"

// pumpUntil pumps w until cond holds or the deadline passes.
func pumpUntil(t *testing.T, w *Window, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("%s - condition not met before deadline", engineTestPrefix)
		}
		w.Pump()
		time.Sleep(time.Millisecond)
	}
}

func TestEngine_CompletionOnlyRunsWhenPumped(t *testing.T) {
	w := NewWindow(1, 800, 600)
	e := NewEngine(w)

	var (
		fired bool
		env   host.Environment
	)
	if err := e.CreateEnvironment(t.TempDir(), func(got host.Environment, err error) {
		if err != nil {
			t.Errorf("%s - unexpected error: %v", engineTestPrefix, err)
		}
		env, fired = got, true
	}); err != nil {
		t.Fatalf("%s - CreateEnvironment failed: %v", engineTestPrefix, err)
	}

	time.Sleep(50 * time.Millisecond)
	if fired {
		t.Fatalf("%s - completion ran without pumping", engineTestPrefix)
	}

	pumpUntil(t, w, func() bool { return fired })
	if env == nil {
		t.Errorf("%s - expected environment", engineTestPrefix)
	}
}

func TestEngine_UnusableDataDir(t *testing.T) {
	w := NewWindow(1, 800, 600)
	e := NewEngine(w)

	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("%s - setup failed: %v", engineTestPrefix, err)
	}

	var (
		gotErr error
		got    host.Environment
		fired  bool
	)
	e.CreateEnvironment(filepath.Join(file, "sub"), func(env host.Environment, err error) {
		got, gotErr, fired = env, err, true
	})
	pumpUntil(t, w, func() bool { return fired })

	if gotErr == nil {
		t.Errorf("%s - expected error for unusable data dir", engineTestPrefix)
	}
	if got != nil {
		t.Errorf("%s - expected nil environment on error", engineTestPrefix)
	}
}

func TestEngine_ControllerForUnknownWindow(t *testing.T) {
	w := NewWindow(1, 800, 600)
	env := &Environment{engine: NewEngine(w), dataDir: t.TempDir()}

	var (
		gotErr error
		fired  bool
	)
	env.CreateController(99, func(_ host.Controller, err error) { gotErr, fired = err, true })
	pumpUntil(t, w, func() bool { return fired })

	if gotErr == nil {
		t.Errorf("%s - expected error for unknown window", engineTestPrefix)
	}
}

func TestEngine_ControllerFault(t *testing.T) {
	w := NewWindow(1, 800, 600)
	fault := errors.New("boom")
	env := &Environment{engine: NewEngine(w).WithFaults(Faults{Controller: fault}), dataDir: t.TempDir()}

	var (
		gotErr error
		fired  bool
	)
	env.CreateController(1, func(_ host.Controller, err error) { gotErr, fired = err, true })
	pumpUntil(t, w, func() bool { return fired })

	if !errors.Is(gotErr, fault) {
		t.Errorf("%s - err = %v, want injected fault", engineTestPrefix, gotErr)
	}
}

func TestContent_DeliverRunsListenersInOrder(t *testing.T) {
	w := NewWindow(1, 800, 600)
	c := newContent(NewEngine(w))

	var got []string
	c.AddMessageListener(func(raw string) { got = append(got, "a:"+raw) })
	c.AddMessageListener(func(raw string) { got = append(got, "b:"+raw) })

	c.Deliver("one")
	c.Deliver("two")
	w.Pump()

	want := []string{"a:one", "b:one", "a:two", "b:two"}
	if len(got) != len(want) {
		t.Fatalf("%s - got %v, want %v", engineTestPrefix, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%s - got[%d] = %q, want %q", engineTestPrefix, i, got[i], want[i])
		}
	}
}

func TestContent_RemovedListenerNotCalled(t *testing.T) {
	w := NewWindow(1, 800, 600)
	c := newContent(NewEngine(w))

	calls := 0
	tok, _ := c.AddMessageListener(func(string) { calls++ })
	if err := c.RemoveMessageListener(tok); err != nil {
		t.Fatalf("%s - RemoveMessageListener failed: %v", engineTestPrefix, err)
	}
	c.Deliver("x")
	w.Pump()

	if calls != 0 {
		t.Errorf("%s - removed listener called %d times", engineTestPrefix, calls)
	}
	if err := c.RemoveMessageListener(tok); err == nil {
		t.Errorf("%s - expected error removing unknown token", engineTestPrefix)
	}
}

func TestController_ClosedRejectsBounds(t *testing.T) {
	w := NewWindow(1, 800, 600)
	env := &Environment{engine: NewEngine(w)}
	c := &Controller{env: env, content: newContent(env.engine)}

	if err := c.Close(); err != nil {
		t.Fatalf("%s - Close failed: %v", engineTestPrefix, err)
	}
	if err := c.SetBounds(host.Rect{Width: 1, Height: 1}); !errors.Is(err, host.ErrClosed) {
		t.Errorf("%s - SetBounds after close = %v, want ErrClosed", engineTestPrefix, err)
	}
}

func TestWindow_ResizeAndDestroyHooks(t *testing.T) {
	w := NewWindow(1, 800, 600)

	var sizes [][2]int
	destroyed := 0
	w.OnResize(func(width, height int) { sizes = append(sizes, [2]int{width, height}) })
	w.OnDestroy(func() { destroyed++ })

	w.Resize(1024, 768)
	w.Destroy()
	w.Destroy()
	w.Pump()

	if len(sizes) != 1 || sizes[0] != [2]int{1024, 768} {
		t.Errorf("%s - resize notifications = %v", engineTestPrefix, sizes)
	}
	if destroyed != 1 {
		t.Errorf("%s - destroy hook ran %d times, want 1", engineTestPrefix, destroyed)
	}
	if width, height := w.ClientSize(); width != 1024 || height != 768 {
		t.Errorf("%s - ClientSize = %dx%d, want 1024x768", engineTestPrefix, width, height)
	}
	if err := w.Resize(1, 1); err == nil {
		t.Errorf("%s - expected Resize to fail after destroy", engineTestPrefix)
	}
}
