// Package admin exposes the relay's operator surface over HTTP: status,
// pause/resume, event log resync and Prometheus metrics.
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"oracle-consensus/internal/logger"
	"oracle-consensus/internal/relay"
)

// Controller is the subset of the relay the admin surface drives.
type Controller interface {
	Status() relay.Status
	Pause()
	Resume()
	Resync(ctx context.Context, from uint64) (int, error)
}

type Server struct {
	http *http.Server
	ctl  Controller
	log  *logger.Logger
}

func NewServer(addr string, ctl Controller, log *logger.Logger) *Server {
	s := &Server{ctl: ctl, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/pause", s.handlePause).Methods(http.MethodPost)
	r.HandleFunc("/resume", s.handleResume).Methods(http.MethodPost)
	r.HandleFunc("/resync", s.handleResync).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// Run serves until ctx is cancelled, then drains with a short grace period.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() { errc <- s.http.ListenAndServe() }()
	s.log.Printf("admin listening on %s", s.http.Addr)

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutCtx)
	case err := <-errc:
		return err
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctl.Status())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.ctl.Pause()
	s.log.Printf("relay paused by operator")
	writeJSON(w, http.StatusOK, map[string]string{"state": "paused"})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.ctl.Resume()
	s.log.Printf("relay resumed by operator")
	writeJSON(w, http.StatusOK, map[string]string{"state": "running"})
}

func (s *Server) handleResync(w http.ResponseWriter, r *http.Request) {
	from := uint64(1)
	if raw := r.URL.Query().Get("from"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from must be a sequence number"})
			return
		}
		from = v
	}
	n, err := s.ctl.Resync(r.Context(), from)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.log.Printf("operator resync from seq %d replayed %d events", from, n)
	writeJSON(w, http.StatusOK, map[string]any{"replayed": n, "from": from})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
