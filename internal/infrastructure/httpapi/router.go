package httpapi

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"screencast/internal/infrastructure/config"
	obs "screencast/internal/infrastructure/observability"
	"screencast/internal/usecase"
)

type Deps struct {
	Cfg      config.Config
	Logger   *zerolog.Logger
	Metrics  *obs.Metrics
	Svc      *usecase.SessionService
	Monitor  *MonitorHub
	Sessions *SessionManager
}

func NewRouter(d *Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", d.handleReady)

	mux.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry(), promhttp.HandlerOpts{}))

	mux.HandleFunc("/api/version", func(w http.ResponseWriter, r *http.Request) {
		info := map[string]any{"name": "screencast", "time": time.Now().UTC()}
		for k, v := range obs.BuildInfo() {
			info[k] = v
		}
		writeJSON(w, info)
	})

	mux.HandleFunc("/api/session", d.handleActiveSession)
	mux.HandleFunc("/api/sessions", d.handleListSessions)
	mux.HandleFunc("/api/sessions/", d.handleSessionByID)
	mux.HandleFunc("/api/monitor/ws", d.Monitor.HandleWS)

	mux.HandleFunc("/ws", d.Sessions.HandleViewer)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", map[string]any{"path": r.URL.Path})
			return
		}
		d.Sessions.HandleViewer(w, r)
	})

	return withCORS(d.Cfg, mux)
}

func (d *Deps) handleReady(w http.ResponseWriter, r *http.Request) {
	if d.Sessions.Closed() {
		writeError(w, http.StatusServiceUnavailable, "SERVER_STOPPING", "server is shutting down", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func withCORS(cfg config.Config, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Sec-WebSocket-Protocol")
		w.Header().Set("Access-Control-Allow-Methods", "GET, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
