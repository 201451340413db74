package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"screencast/internal/domain"
)

type SessionDeps struct {
	Source   FrameSource
	Encoder  FrameEncoder
	Parser   CommandParser
	Backend  InputBackend
	Logger   *zerolog.Logger
	Recorder Recorder
}

type SessionOptions struct {
	FrameInterval time.Duration
	WriteTimeout  time.Duration
	DispatchQueue int
}

// StreamingSession binds one viewer connection to one capture surface and one
// input dispatcher. It moves Idle -> Capturing -> Stopped exactly once; a new
// viewer always gets a new session.
type StreamingSession struct {
	id         string
	conn       Transport
	source     FrameSource
	encoder    FrameEncoder
	parser     CommandParser
	dispatcher *Dispatcher
	opts       SessionOptions
	logger     zerolog.Logger
	rec        Recorder
	startedAt  time.Time

	mu       sync.Mutex
	state    atomic.Value // domain.SessionState, written under mu
	cancel   context.CancelFunc
	geometry domain.Geometry
	closedAt *time.Time
	closeErr error
	evicted  bool

	framesSent     atomic.Int64
	framesSkipped  atomic.Int64
	commands       atomic.Int64
	protocolErrors atomic.Int64

	done chan struct{}
}

func NewStreamingSession(id string, conn Transport, deps SessionDeps, opts SessionOptions) *StreamingSession {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = 100 * time.Millisecond
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 2 * time.Second
	}
	rec := deps.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	logger := deps.Logger.With().Str("session", id).Str("remote", conn.RemoteAddr()).Logger()
	s := &StreamingSession{
		id:         id,
		conn:       conn,
		source:     deps.Source,
		encoder:    deps.Encoder,
		parser:     deps.Parser,
		dispatcher: NewDispatcher(deps.Backend, opts.DispatchQueue, &logger, rec),
		opts:       opts,
		logger:     logger,
		rec:        rec,
		startedAt:  time.Now().UTC(),
		done:       make(chan struct{}),
	}
	s.state.Store(domain.StateIdle)
	return s
}

func (s *StreamingSession) ID() string { return s.id }

func (s *StreamingSession) State() domain.SessionState {
	return s.state.Load().(domain.SessionState)
}

// Active reports whether frames may still be sent to the viewer.
func (s *StreamingSession) Active() bool { return s.State() == domain.StateCapturing }

// Done is closed once the session reached Stopped and released its surface.
func (s *StreamingSession) Done() <-chan struct{} { return s.done }

// Run opens the capture surface and serves the viewer until it disconnects,
// Stop is called, ctx ends or the surface becomes unavailable. The returned
// error is nil for a requested stop and wraps ErrTransportClosed or
// ErrCaptureUnavailable otherwise.
func (s *StreamingSession) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.State() != domain.StateIdle {
		s.mu.Unlock()
		return nil
	}
	s.state.Store(domain.StateCapturing)
	s.cancel = cancel
	s.mu.Unlock()

	err := s.serve(ctx)
	if err != nil && ctx.Err() != nil && !errors.Is(err, domain.ErrCaptureUnavailable) {
		// torn down on request; whatever the loops saw afterwards is noise
		err = nil
	}
	s.teardown(err)
	return err
}

func (s *StreamingSession) serve(ctx context.Context) error {
	geo, err := s.source.Open(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrCaptureUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrCaptureUnavailable, err)
		}
		return err
	}
	s.mu.Lock()
	s.geometry = geo
	s.mu.Unlock()
	s.logger.Info().Int("width", geo.Width).Int("height", geo.Height).Int("density", geo.Density).Msg("capture started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.tickLoop(gctx) })
	g.Go(func() error { return s.readLoop(gctx) })
	g.Go(func() error {
		// unblocks readLoop once either side is finished
		<-gctx.Done()
		_ = s.conn.Close()
		return nil
	})
	return g.Wait()
}

// tickLoop runs acquire -> encode -> send once per tick. A tick that outlasts
// the period makes the ticker drop the missed ticks, so passes never overlap.
func (s *StreamingSession) tickLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.FrameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.tick(); err != nil {
				return err
			}
		}
	}
}

func (s *StreamingSession) tick() error {
	frame, err := s.source.AcquireLatest()
	if err != nil {
		if errors.Is(err, domain.ErrCaptureUnavailable) {
			s.logger.Error().Err(err).Msg("capture surface lost")
			return err
		}
		s.logger.Warn().Err(err).Msg("acquire failed")
		s.framesSkipped.Add(1)
		s.rec.FrameResult(FrameSkipped)
		return nil
	}
	if frame == nil {
		s.rec.FrameResult(FrameEmpty)
		return nil
	}
	payload, err := s.encoder.Encode(frame)
	frame.Release()
	if err != nil {
		s.logger.Warn().Err(err).Uint64("seq", frame.Seq).Msg("frame skipped")
		s.framesSkipped.Add(1)
		s.rec.FrameResult(FrameSkipped)
		return nil
	}
	if !s.Active() {
		return nil
	}
	if err := s.conn.WriteText(payload.Data, time.Now().Add(s.opts.WriteTimeout)); err != nil {
		if errors.Is(err, domain.ErrTransportClosed) {
			return err
		}
		s.logger.Warn().Err(err).Msg("frame send failed")
		s.framesSkipped.Add(1)
		s.rec.FrameResult(FrameSkipped)
		return nil
	}
	s.framesSent.Add(1)
	s.rec.FrameResult(FrameSent)
	return nil
}

func (s *StreamingSession) readLoop(ctx context.Context) error {
	for {
		raw, err := s.conn.ReadText()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, domain.ErrTransportClosed) {
				return err
			}
			return fmt.Errorf("%w: %v", domain.ErrTransportClosed, err)
		}
		cmd, err := s.parser.Parse(raw)
		if err != nil {
			s.protocolErrors.Add(1)
			s.rec.ProtocolError()
			s.logger.Debug().Err(err).Int("size", len(raw)).Msg("control message dropped")
			continue
		}
		if s.dispatcher.Dispatch(ctx, cmd) {
			s.commands.Add(1)
		}
	}
}

// Stop moves the session to Stopped. It is safe to call at any time and more
// than once; it does not wait, use Done for that.
func (s *StreamingSession) Stop() {
	s.mu.Lock()
	switch s.State() {
	case domain.StateIdle:
		// never ran: nothing to cancel, release what the constructor acquired
		s.markStoppedLocked(nil)
		s.mu.Unlock()
		s.release(nil)
		return
	case domain.StateCapturing:
		if s.cancel != nil {
			s.cancel()
		}
	}
	s.mu.Unlock()
}

// MarkEvicted flags the session as replaced by a newer viewer.
func (s *StreamingSession) MarkEvicted() {
	s.mu.Lock()
	s.evicted = true
	s.mu.Unlock()
}

func (s *StreamingSession) teardown(cause error) {
	s.mu.Lock()
	if s.State() == domain.StateStopped {
		s.mu.Unlock()
		return
	}
	s.markStoppedLocked(cause)
	s.mu.Unlock()
	s.release(cause)
}

func (s *StreamingSession) markStoppedLocked(cause error) {
	s.state.Store(domain.StateStopped)
	now := time.Now().UTC()
	s.closedAt = &now
	s.closeErr = cause
}

func (s *StreamingSession) release(cause error) {
	s.source.Release()
	s.dispatcher.Close()
	_ = s.conn.Close()
	ev := s.logger.Info()
	if cause != nil && !errors.Is(cause, domain.ErrTransportClosed) {
		ev = s.logger.Error().Err(cause)
	}
	ev.Int64("framesSent", s.framesSent.Load()).Int64("commands", s.commands.Load()).Msg("session stopped")
	close(s.done)
}

// Snapshot returns the session record as stored in history.
func (s *StreamingSession) Snapshot() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := domain.Session{
		ID:         s.id,
		RemoteAddr: s.conn.RemoteAddr(),
		StartedAt:  s.startedAt,
		ClosedAt:   s.closedAt,
		State:      s.State(),
		Geometry:   s.geometry,
		Evicted:    s.evicted,
		Counters: domain.SessionCounters{
			FramesSent:     s.framesSent.Load(),
			FramesSkipped:  s.framesSkipped.Load(),
			Commands:       s.commands.Load(),
			ProtocolErrors: s.protocolErrors.Load(),
		},
	}
	if s.closeErr != nil {
		msg := s.closeErr.Error()
		rec.Error = &msg
	}
	return rec
}
