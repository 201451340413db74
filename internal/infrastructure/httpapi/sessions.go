package httpapi

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"screencast/internal/domain"
	"screencast/internal/infrastructure/config"
	obs "screencast/internal/infrastructure/observability"
	"screencast/internal/usecase"
)

var errManagerClosed = errors.New("session manager closed")

// SessionFactory builds the per-session collaborators. Sources and backends
// are created fresh for every viewer so nothing leaks between sessions.
type SessionFactory struct {
	NewSource  func() usecase.FrameSource
	NewBackend func() usecase.InputBackend
	Encoder    usecase.FrameEncoder
	Parser     usecase.CommandParser
	Options    usecase.SessionOptions
}

// SessionManager owns the single viewer slot. Admissions are serialized, and
// the configured policy decides what a newcomer does to an active session.
type SessionManager struct {
	policy   string
	factory  SessionFactory
	logger   *zerolog.Logger
	metrics  *obs.Metrics
	svc      *usecase.SessionService
	monitor  *MonitorHub
	upgrader websocket.Upgrader

	admitMu sync.Mutex
	mu      sync.Mutex
	active  *usecase.StreamingSession
	running map[*usecase.StreamingSession]struct{}
	closed  bool
	wg      sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

func NewSessionManager(policy string, f SessionFactory, logger *zerolog.Logger, metrics *obs.Metrics, svc *usecase.SessionService, monitor *MonitorHub) *SessionManager {
	if policy != config.PolicyReject {
		policy = config.PolicyEvict
	}
	if monitor == nil {
		monitor = NewMonitorHub()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SessionManager{
		policy:   policy,
		factory:  f,
		logger:   logger,
		metrics:  metrics,
		svc:      svc,
		monitor:  monitor,
		running:  make(map[*usecase.StreamingSession]struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (m *SessionManager) Policy() string { return m.policy }

// Closed reports whether Close has been called.
func (m *SessionManager) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Active returns the live session, or nil.
func (m *SessionManager) Active() *usecase.StreamingSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil && m.active.State() != domain.StateStopped {
		return m.active
	}
	return nil
}

// HandleViewer upgrades the request and serves the viewer until the session
// ends. Plain GETs receive a short hint instead.
func (m *SessionManager) HandleViewer(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("screencast: connect with a websocket client to receive frames\n"))
		return
	}
	m.admitMu.Lock()
	sess, err := m.admit(w, r)
	m.admitMu.Unlock()
	if err != nil {
		return
	}
	defer m.wg.Done()
	m.run(sess)
}

// admit makes room according to the policy, upgrades the connection and
// installs the new session. On error the response has been written.
func (m *SessionManager) admit(w http.ResponseWriter, r *http.Request) (*usecase.StreamingSession, error) {
	m.mu.Lock()
	closed, prev := m.closed, m.active
	m.mu.Unlock()
	if closed {
		writeError(w, http.StatusServiceUnavailable, "SERVER_STOPPING", "server is shutting down", nil)
		return nil, errManagerClosed
	}

	if prev != nil && prev.State() != domain.StateStopped {
		m.metrics.SessionConflicts.WithLabelValues(m.policy).Inc()
		if m.policy == config.PolicyReject {
			m.logger.Warn().Str("active", prev.ID()).Str("client", r.RemoteAddr).Msg("viewer rejected: session active")
			m.monitor.Broadcast(MonitorEvent{Type: EventSessionRejected, ID: prev.ID(), Ref: r.RemoteAddr})
			writeError(w, http.StatusConflict, "SESSION_ACTIVE", domain.ErrSessionActive.Error(), map[string]any{"active": prev.ID()})
			return nil, domain.ErrSessionActive
		}
		m.logger.Info().Str("evicted", prev.ID()).Str("client", r.RemoteAddr).Msg("evicting active viewer")
		prev.MarkEvicted()
		prev.Stop()
		<-prev.Done()
		// settle the old session's accounting before the newcomer counts itself
		m.finish(prev)
		m.monitor.Broadcast(MonitorEvent{Type: EventSessionEvicted, ID: prev.ID()})
	}

	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Error().Err(err).Str("client", r.RemoteAddr).Msg("websocket upgrade failed")
		return nil, err
	}
	sess := usecase.NewStreamingSession(uuid.NewString(), newWSTransport(conn, r.RemoteAddr), usecase.SessionDeps{
		Source:   m.factory.NewSource(),
		Encoder:  m.factory.Encoder,
		Parser:   m.factory.Parser,
		Backend:  m.factory.NewBackend(),
		Logger:   m.logger,
		Recorder: m.metrics,
	}, m.factory.Options)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		sess.Stop()
		return nil, errManagerClosed
	}
	m.active = sess
	m.running[sess] = struct{}{}
	m.metrics.ActiveSessions.Inc()
	m.wg.Add(1)
	m.mu.Unlock()
	_ = m.svc.Record(context.Background(), sess.Snapshot())
	m.monitor.Broadcast(MonitorEvent{Type: EventSessionStarted, ID: sess.ID()})
	return sess, nil
}

func (m *SessionManager) run(sess *usecase.StreamingSession) {
	m.logger.Info().Str("session", sess.ID()).Msg("viewer connected")

	err := sess.Run(m.ctx)
	m.finish(sess)
	if err != nil && !errors.Is(err, domain.ErrTransportClosed) {
		m.logger.Error().Err(err).Str("session", sess.ID()).Msg("session ended early")
		return
	}
	m.logger.Info().Str("session", sess.ID()).Msg("viewer disconnected")
}

// finish frees the slot and records the final state of a stopped session.
// Only the first call for a session does anything.
func (m *SessionManager) finish(sess *usecase.StreamingSession) {
	m.mu.Lock()
	if m.active == sess {
		m.active = nil
	}
	_, ok := m.running[sess]
	delete(m.running, sess)
	m.mu.Unlock()
	if !ok {
		return
	}
	m.metrics.ActiveSessions.Dec()
	_ = m.svc.Record(context.Background(), sess.Snapshot())
	m.monitor.Broadcast(MonitorEvent{Type: EventSessionEnded, ID: sess.ID()})
}

// Close refuses new viewers, stops the active session and waits until every
// session has released its capture surface. Safe to call repeatedly.
func (m *SessionManager) Close(ctx context.Context) error {
	m.admitMu.Lock()
	m.mu.Lock()
	m.closed = true
	active := m.active
	m.mu.Unlock()
	m.admitMu.Unlock()

	m.cancel()
	if active != nil {
		active.Stop()
	}
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
