package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"screencast/internal/domain"
)

// Dispatcher executes control commands one at a time, in arrival order, on a
// single worker goroutine. A full queue makes Dispatch wait, which pushes
// back on the viewer socket instead of losing input.
type Dispatcher struct {
	backend InputBackend
	logger  zerolog.Logger
	rec     Recorder

	mu     sync.RWMutex
	closed bool
	queue  chan domain.ControlCommand

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewDispatcher(backend InputBackend, queueSize int, logger *zerolog.Logger, rec Recorder) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		backend: backend,
		logger:  logger.With().Str("component", "dispatcher").Logger(),
		rec:     rec,
		queue:   make(chan domain.ControlCommand, queueSize),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Dispatch queues cmd, waiting for room when the queue is full. It reports
// false when ctx ended or the dispatcher closed before the command was queued.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd domain.ControlCommand) bool {
	if cmd == nil {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.rec.CommandResult(cmd.Kind(), CommandDropped)
		return false
	}
	select {
	case d.queue <- cmd:
		return true
	default:
	}
	d.logger.Debug().Str("kind", string(cmd.Kind())).Int("queue", cap(d.queue)).Msg("dispatch queue full, waiting")
	select {
	case d.queue <- cmd:
		return true
	case <-ctx.Done():
	case <-d.ctx.Done():
	}
	d.rec.CommandResult(cmd.Kind(), CommandDropped)
	return false
}

// Close stops accepting commands, aborts the in-flight injection, discards
// whatever is still queued and waits for the worker to exit.
func (d *Dispatcher) Close() {
	// wakes Dispatch calls blocked on a full queue so the lock frees up
	d.cancel()
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for cmd := range d.queue {
		if d.ctx.Err() != nil {
			d.rec.CommandResult(cmd.Kind(), CommandDropped)
			continue
		}
		d.execute(cmd)
	}
}

func (d *Dispatcher) execute(cmd domain.ControlCommand) {
	var err error
	switch c := cmd.(type) {
	case domain.Tap:
		err = d.backend.Tap(d.ctx, c.X, c.Y)
	case domain.Swipe:
		err = d.backend.Swipe(d.ctx, c.StartX, c.StartY, c.EndX, c.EndY, c.DurationMs)
	case domain.Key:
		err = d.backend.KeyEvent(d.ctx, c.Code)
	default:
		d.logger.Warn().Str("kind", string(cmd.Kind())).Msg("unsupported command dropped")
		d.rec.CommandResult(cmd.Kind(), CommandDropped)
		return
	}
	if err != nil {
		if !errors.Is(err, domain.ErrInjectionFailed) {
			err = errors.Join(domain.ErrInjectionFailed, err)
		}
		d.logger.Error().Err(err).Str("kind", string(cmd.Kind())).Msg("input injection failed")
		d.rec.CommandResult(cmd.Kind(), CommandFailed)
		return
	}
	d.logger.Debug().Str("kind", string(cmd.Kind())).Msg("input injected")
	d.rec.CommandResult(cmd.Kind(), CommandOK)
}
