// Package web serves the cluster-sensor status over HTTP: an HTML page, the
// full status JSON, one JSON object per sensor stream and a health probe.
package web

import (
	"context"
	"net"
	"net/http"

	"github.com/sweeney/cluster-sensor/internal/sensor"
	"github.com/sweeney/cluster-sensor/internal/status"
)

// healthFailed is the health string published when no channel is active.
const healthFailed = "FAILED"

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
}

// New creates a Server that reads state from the given tracker.
func New(addr string, tracker *status.Tracker) *Server {
	s := &Server{tracker: tracker}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("GET /sensors/{kind}", s.handleSensor)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

// handleJSON serves the full status. The body is always written; a FAILED
// engine answers 503 so load balancers and uptime checks notice.
func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	if snap.Health == healthFailed {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleSensor(w http.ResponseWriter, r *http.Request) {
	kind := sensor.Kind(r.PathValue("kind"))
	if !kind.Valid() {
		http.Error(w, "unknown sensor "+string(kind), http.StatusNotFound)
		return
	}
	c, ok := s.tracker.Snapshot().Channel(kind)
	if !ok {
		http.Error(w, "no data for "+string(kind), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatChannelJSON(c))
}

// handleHealth answers 200 once every working channel has a value and the
// engine is not FAILED.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	health := snap.Health
	if health == "" {
		health = "UNKNOWN"
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if health == healthFailed || !snap.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	w.Write([]byte(health + "\n"))
}
