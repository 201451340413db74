package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Server binds the router to a listener. It holds at most one viewer session
// through its SessionManager.
type Server struct {
	addr    string
	deps    *Deps
	logger  *zerolog.Logger
	mu      sync.Mutex
	srv     *http.Server
	ln      net.Listener
	stopped bool
}

func NewServer(d *Deps) *Server {
	return &Server{addr: d.Cfg.Addr, deps: d, logger: d.Logger}
}

// Start binds the listener and serves in the background. Starting a running
// or stopped server is an error.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return errors.New("server already stopped")
	}
	if s.srv != nil {
		return errors.New("server already started")
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	// no WriteTimeout: viewer websockets stream for as long as they stay open
	s.srv = &http.Server{
		Handler:           NewRouter(s.deps),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.ln = ln
	go func(srv *http.Server) {
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("server error")
		}
	}(s.srv)
	s.logger.Info().Str("addr", ln.Addr().String()).Str("policy", s.deps.Sessions.Policy()).Msg("screencast listening")
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Stop stops the active session, then shuts the HTTP server down. Safe on a
// server that never started and on repeated calls.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	srv := s.srv
	s.mu.Unlock()

	errs := []error{s.deps.Sessions.Close(ctx)}
	s.deps.Monitor.CloseAll()
	if srv != nil {
		errs = append(errs, srv.Shutdown(ctx))
	}
	s.logger.Info().Msg("screencast stopped")
	return errors.Join(errs...)
}
