package control

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service names the admin surface dispatches to.
const (
	ServiceToggle = "capture_toggle"
	ServiceStatus = "capture_status"
	ServicePing   = "relay_ping"
)

// Server is the local admin HTTP surface. It is the interface boundary
// of the external control panel: everything it does goes through the Bus.
type Server struct {
	bus    *Bus
	http   *http.Server
	logger *slog.Logger
}

// NewServer creates a Server bound to addr (e.g. "127.0.0.1:7717").
func NewServer(addr string, bus *Bus, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{bus: bus, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Post("/control/toggle", s.dispatch(ServiceToggle))
	r.Get("/control/status", s.dispatchEmpty(ServiceStatus))
	r.Post("/control/ping", s.dispatch(ServicePing))

	s.http = &http.Server{Addr: addr, Handler: r}
	return s
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.logger.Info("control: admin surface listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// dispatch forwards the request body to a bus service and returns the
// acknowledgment verbatim.
func (s *Server) dispatch(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := readBody(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error"})
			return
		}
		s.callAndReply(r.Context(), w, service, payload)
	}
}

func (s *Server) dispatchEmpty(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.callAndReply(r.Context(), w, service, nil)
	}
}

func (s *Server) callAndReply(ctx context.Context, w http.ResponseWriter, service string, payload []byte) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	ack, err := s.bus.Call(ctx, service, payload)
	if err != nil {
		var notFound *ErrServiceNotFound
		if errors.As(err, &notFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"status": "error"})
			return
		}
		s.logger.Warn("control: call failed", "service", service, "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error"})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if len(ack) > 0 {
		w.Write(ack)
	} else {
		w.Write([]byte(`{"status":"ok"}`))
	}
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	var buf json.RawMessage
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&buf); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("control: trailing data after JSON body")
	}
	return buf, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
