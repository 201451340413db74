package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"screencast/internal/domain"
)

// BufferDepth is the number of pixel buffers a surface cycles through: one
// can be held by the consumer while the producer fills the other.
const BufferDepth = 2

// Grabber reads pixels from one display.
type Grabber interface {
	// Geometry reports the real size and density of the display.
	Geometry(ctx context.Context) (domain.Geometry, error)
	// Grab captures one image, reusing dst when it is large enough. Errors
	// wrapping domain.ErrCaptureUnavailable are permanent.
	Grab(ctx context.Context, dst []byte) (domain.Frame, error)
	Close() error
}

// Surface is a virtual capture surface: a producer goroutine grabs at a fixed
// interval and keeps only the newest unconsumed frame. It implements
// usecase.FrameSource.
type Surface struct {
	grabber  Grabber
	interval time.Duration
	logger   zerolog.Logger
	onDrop   func()

	mu       sync.Mutex
	free     [][]byte
	pending  *domain.Frame
	err      error
	seq      uint64
	opened   bool
	released bool
	cancel   context.CancelFunc
	done     chan struct{}

	drops atomic.Uint64
}

type SurfaceOption func(*Surface)

// WithDropHook is called every time an unconsumed frame is overwritten.
func WithDropHook(fn func()) SurfaceOption {
	return func(s *Surface) { s.onDrop = fn }
}

func NewSurface(g Grabber, interval time.Duration, logger *zerolog.Logger, opts ...SurfaceOption) *Surface {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	s := &Surface{
		grabber:  g,
		interval: interval,
		logger:   logger.With().Str("component", "surface").Logger(),
		free:     make([][]byte, BufferDepth),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Surface) Open(ctx context.Context) (domain.Geometry, error) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return domain.Geometry{}, fmt.Errorf("%w: surface released", domain.ErrCaptureUnavailable)
	}
	if s.opened {
		s.mu.Unlock()
		return domain.Geometry{}, errors.New("surface already open")
	}
	s.opened = true
	s.mu.Unlock()

	geo, err := s.grabber.Geometry(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrCaptureUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrCaptureUnavailable, err)
		}
		return domain.Geometry{}, err
	}

	pctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.released {
		// Release raced with Open
		s.mu.Unlock()
		cancel()
		return domain.Geometry{}, fmt.Errorf("%w: surface released", domain.ErrCaptureUnavailable)
	}
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.produce(pctx)
	return geo, nil
}

func (s *Surface) produce(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if !s.grabOnce(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// grabOnce reports false once the producer must stop.
func (s *Surface) grabOnce(ctx context.Context) bool {
	buf, ok := s.takeBuffer()
	if !ok {
		return ctx.Err() == nil
	}
	f, err := s.grabber.Grab(ctx, buf)
	if err != nil {
		s.putBuffer(buf)
		if ctx.Err() != nil {
			return false
		}
		if errors.Is(err, domain.ErrCaptureUnavailable) {
			s.logger.Error().Err(err).Msg("capture surface lost")
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			return false
		}
		s.logger.Warn().Err(err).Msg("grab failed")
		return true
	}
	s.publish(f)
	return true
}

func (s *Surface) takeBuffer() ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil, false
	}
	if n := len(s.free); n > 0 {
		b := s.free[n-1]
		s.free = s.free[:n-1]
		return b, true
	}
	if s.pending != nil {
		// consumer holds the other buffer: recycle the stale frame
		b := s.pending.Pix
		s.pending = nil
		s.countDrop()
		return b, true
	}
	return nil, false
}

func (s *Surface) putBuffer(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.released && len(s.free) < BufferDepth {
		s.free = append(s.free, b)
	}
}

func (s *Surface) publish(f domain.Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	if s.pending != nil {
		s.free = append(s.free, s.pending.Pix)
		s.countDrop()
	}
	s.seq++
	f.Seq = s.seq
	if f.CapturedAt.IsZero() {
		f.CapturedAt = time.Now()
	}
	pix := f.Pix
	f.Recycle = func() { s.putBuffer(pix) }
	s.pending = &f
}

func (s *Surface) countDrop() {
	s.drops.Add(1)
	if s.onDrop != nil {
		s.onDrop()
	}
}

// AcquireLatest hands out the newest frame, or nil when nothing new arrived
// since the previous call.
func (s *Surface) AcquireLatest() (*domain.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		f := s.pending
		s.pending = nil
		return f, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.released || !s.opened {
		return nil, fmt.Errorf("%w: surface not open", domain.ErrCaptureUnavailable)
	}
	return nil, nil
}

// Release stops the producer and closes the grabber. Idempotent.
func (s *Surface) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	cancel, done := s.cancel, s.done
	s.pending = nil
	s.free = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	if err := s.grabber.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("grabber close")
	}
}

// Drops counts frames overwritten before anyone acquired them.
func (s *Surface) Drops() uint64 { return s.drops.Load() }

// Released reports whether Release has run.
func (s *Surface) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
