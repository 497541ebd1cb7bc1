package shell

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/morezero/desktop-shell/pkg/bridge"
	"github.com/morezero/desktop-shell/pkg/host"
	"github.com/morezero/desktop-shell/pkg/services"
)

const httpLogPrefix = "shell:http"

// listenHTTP starts the status server on addr.
func (s *Shell) listenHTTP(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%s - failed to listen on %s: %w", httpLogPrefix, addr, err)
	}
	s.httpServer = &http.Server{Handler: s.routes(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP status server listening on %s", httpLogPrefix, ln.Addr()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", httpLogPrefix, err))
		}
	}()
	return nil
}

func (s *Shell) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHome())
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	return mux
}

func (s *Shell) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
	defer cancel()
	h := s.reg.Health(ctx)
	w.Header().Set("Content-Type", "application/json")
	if h.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(h)
}

// readyOutput reports whether the main window has a live session.
type readyOutput struct {
	Status    string `json:"status"`
	SessionID string `json:"sessionId,omitempty"`
}

func (s *Shell) handleReady(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	session, ok := s.Session()
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(readyOutput{Status: "not ready"})
		return
	}
	json.NewEncoder(w).Encode(readyOutput{Status: "ready", SessionID: session.ID})
}

// homePageTemplate is the HTML for the shell status page.
const homePageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <style>
    * { box-sizing: border-box; }
    body { background: #fff; color: #000; font-family: system-ui, sans-serif; margin: 0; padding: 2rem; line-height: 1.5; }
    h1, h2 { color: #0066cc; }
    .status-healthy { color: #0066cc; font-weight: bold; }
    .status-unhealthy { color: #cc0000; font-weight: bold; }
    table { border-collapse: collapse; width: 100%; max-width: 900px; margin-top: 0.5rem; }
    th, td { text-align: left; padding: 0.5rem 0.75rem; border: 1px solid #ccc; }
    th { background: #f0f4f8; color: #0066cc; }
    .stat { font-weight: bold; color: #0066cc; }
    .meta { color: #333; font-size: 0.9rem; margin-top: 1rem; }
    section { margin-bottom: 2rem; }
    .error { color: #cc0000; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <p class="meta">Up since {{.Started}}.</p>

  <section>
    <h2>Health</h2>
    <p>Status: <span class="status-{{.Health.Status}}">{{.Health.Status}}</span></p>
    <p>Catalog: {{if .Health.Checks.Catalog}}<span class="stat">OK</span>{{else}}<span class="error">Failed</span>{{end}}</p>
    <p>Timestamp: {{.Health.Timestamp}}</p>
  </section>

  <section>
    <h2>Session</h2>
    {{if .Session}}
    <table>
      <tr><th>Session</th><td>{{.Session.ID}}</td></tr>
      <tr><th>Window</th><td>{{.Session.WindowID}}</td></tr>
      <tr><th>Bounds</th><td>{{.Session.Bounds.Width}}x{{.Session.Bounds.Height}}</td></tr>
      <tr><th>Bridge</th><td>{{.Session.Mode}}</td></tr>
      <tr><th>Handled</th><td>{{.Session.Stats.Handled}}</td></tr>
      <tr><th>Failed</th><td>{{.Session.Stats.Failed}}</td></tr>
      <tr><th>Dropped</th><td>{{.Session.Stats.Dropped}}</td></tr>
      <tr><th>Rejected</th><td>{{.Session.Stats.Rejected}}</td></tr>
    </table>
    {{else}}
    <p class="error">No live session.</p>
    {{end}}
  </section>
</body>
</html>
`

// sessionView is the session summary shown on the status page.
type sessionView struct {
	ID       string
	WindowID host.WindowID
	Bounds   host.Rect
	Mode     string
	Stats    bridge.Stats
}

// homeData is the data passed to the home page template.
type homeData struct {
	Title   string
	Started string
	Health  *services.HealthOutput
	Session *sessionView
}

// handleHome returns an HTTP handler for the status page.
func (s *Shell) handleHome() http.HandlerFunc {
	tmpl := template.Must(template.New("home").Parse(homePageTemplate))
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()

		data := homeData{
			Title:   s.cfg.Title,
			Started: s.started.UTC().Format(time.RFC3339),
			Health:  s.reg.Health(ctx),
		}
		if session, ok := s.Session(); ok {
			data.Session = &sessionView{
				ID:       session.ID,
				WindowID: session.WindowID,
				Bounds:   session.Bounds(),
				Mode:     session.Bridge.Mode().String(),
				Stats:    session.Bridge.Stats(),
			}
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			slog.Error(fmt.Sprintf("%s - home template execute: %v", httpLogPrefix, err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
