package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"screencast/internal/domain"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type call struct {
	kind domain.CommandKind
	args []int
}

type fakeBackend struct {
	delay     time.Duration
	gate      chan struct{}
	failFirst int
	started   chan struct{}

	mu        sync.Mutex
	calls     []call
	active    atomic.Int32
	maxActive atomic.Int32
}

func newFakeBackend() *fakeBackend { return &fakeBackend{started: make(chan struct{}, 64)} }

func (b *fakeBackend) Tap(ctx context.Context, x, y int) error {
	return b.do(ctx, domain.CommandTap, x, y)
}

func (b *fakeBackend) Swipe(ctx context.Context, sx, sy, ex, ey, d int) error {
	return b.do(ctx, domain.CommandSwipe, sx, sy, ex, ey, d)
}

func (b *fakeBackend) KeyEvent(ctx context.Context, code int) error {
	return b.do(ctx, domain.CommandKey, code)
}

func (b *fakeBackend) do(ctx context.Context, kind domain.CommandKind, args ...int) error {
	n := b.active.Add(1)
	defer b.active.Add(-1)
	for {
		m := b.maxActive.Load()
		if n <= m || b.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	select {
	case b.started <- struct{}{}:
	default:
	}
	if b.gate != nil {
		select {
		case <-b.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	b.mu.Lock()
	b.calls = append(b.calls, call{kind: kind, args: args})
	idx := len(b.calls)
	b.mu.Unlock()
	if idx <= b.failFirst {
		return errors.New("input exited with status 1")
	}
	return nil
}

func (b *fakeBackend) Calls() []call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]call(nil), b.calls...)
}

type fakeRecorder struct {
	mu       sync.Mutex
	frames   map[string]int
	commands map[string]int
	protocol int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{frames: map[string]int{}, commands: map[string]int{}}
}

func (r *fakeRecorder) FrameResult(result string) {
	r.mu.Lock()
	r.frames[result]++
	r.mu.Unlock()
}

func (r *fakeRecorder) CommandResult(kind domain.CommandKind, result string) {
	r.mu.Lock()
	r.commands[result]++
	r.mu.Unlock()
}

func (r *fakeRecorder) ProtocolError() {
	r.mu.Lock()
	r.protocol++
	r.mu.Unlock()
}

func (r *fakeRecorder) command(result string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commands[result]
}

type fakeSource struct {
	openErr      error
	failAfter    int // AcquireLatest fails with ErrCaptureUnavailable after this many calls; 0 never
	acquireDelay time.Duration

	calls    atomic.Int32
	inFlight atomic.Int32
	overlap  atomic.Bool
	seq      atomic.Uint64
	released atomic.Int32
}

func (s *fakeSource) Open(ctx context.Context) (domain.Geometry, error) {
	if s.openErr != nil {
		return domain.Geometry{}, s.openErr
	}
	return domain.Geometry{Width: 2, Height: 2, Density: 320}, nil
}

func (s *fakeSource) AcquireLatest() (*domain.Frame, error) {
	if s.inFlight.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.inFlight.Add(-1)
	n := s.calls.Add(1)
	if s.acquireDelay > 0 {
		time.Sleep(s.acquireDelay)
	}
	if s.failAfter > 0 && int(n) > s.failAfter {
		return nil, fmt.Errorf("%w: display detached", domain.ErrCaptureUnavailable)
	}
	return &domain.Frame{
		Pix: make([]byte, 16), Width: 2, Height: 2, Stride: 8,
		Format: domain.FormatRGBA8888, Seq: s.seq.Add(1),
	}, nil
}

func (s *fakeSource) Release() { s.released.Add(1) }

// seqEncoder emits the frame sequence number and fails for the listed ones.
type seqEncoder struct{ fail map[uint64]bool }

func (e seqEncoder) Encode(f *domain.Frame) (domain.EncodedPayload, error) {
	if e.fail[f.Seq] {
		return domain.EncodedPayload{}, fmt.Errorf("%w: injected", domain.ErrEncodeFailed)
	}
	return domain.EncodedPayload{Kind: domain.EncodingJPEGBase64, Data: fmt.Sprint(f.Seq)}, nil
}

type fakeTransport struct {
	in        chan []byte
	sent      chan string
	closed    chan struct{}
	closeOnce sync.Once
	nSent     atomic.Int32
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{in: make(chan []byte, 16), sent: make(chan string, 4096), closed: make(chan struct{})}
}

func (t *fakeTransport) ReadText() ([]byte, error) {
	select {
	case b := <-t.in:
		return b, nil
	case <-t.closed:
		return nil, fmt.Errorf("%w: eof", domain.ErrTransportClosed)
	}
}

func (t *fakeTransport) WriteText(data string, deadline time.Time) error {
	select {
	case <-t.closed:
		return fmt.Errorf("%w: write after close", domain.ErrTransportClosed)
	default:
	}
	t.nSent.Add(1)
	select {
	case t.sent <- data:
	default:
	}
	return nil
}

func (t *fakeTransport) Close() error {
	t.closeOnce.Do(func() { close(t.closed) })
	return nil
}

func (t *fakeTransport) RemoteAddr() string { return "10.0.0.2:5555" }

func (t *fakeTransport) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}
