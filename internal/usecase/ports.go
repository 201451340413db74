package usecase

import (
	"context"
	"time"

	"screencast/internal/domain"
)

// FrameSource owns one capture surface for the lifetime of a session.
type FrameSource interface {
	// Open establishes the capture surface and reports the display geometry.
	Open(ctx context.Context) (domain.Geometry, error)
	// AcquireLatest never blocks. It returns (nil, nil) when no new frame is ready.
	AcquireLatest() (*domain.Frame, error)
	// Release tears the surface down. Safe to call more than once.
	Release()
}

// FrameEncoder turns a raw frame into a text-safe payload.
type FrameEncoder interface {
	Encode(f *domain.Frame) (domain.EncodedPayload, error)
}

// CommandParser decodes one inbound viewer message.
type CommandParser interface {
	Parse(raw []byte) (domain.ControlCommand, error)
}

// InputBackend performs privileged input injection on the device.
type InputBackend interface {
	Tap(ctx context.Context, x, y int) error
	Swipe(ctx context.Context, startX, startY, endX, endY, durationMs int) error
	KeyEvent(ctx context.Context, code int) error
}

// Transport is the duplex text channel to a single viewer.
type Transport interface {
	// ReadText blocks until the next text message or a read error.
	ReadText() ([]byte, error)
	WriteText(data string, deadline time.Time) error
	Close() error
	RemoteAddr() string
}

type SessionRepository interface {
	SaveSession(ctx context.Context, s domain.Session) error
	GetSession(ctx context.Context, id string) (domain.Session, bool, error)
	ListSessions(ctx context.Context, limit, offset int) ([]domain.Session, int, error)
	ClearAllSessions(ctx context.Context) error
}
