package domain

type CommandKind string

const (
	CommandTap   CommandKind = "tap"
	CommandSwipe CommandKind = "swipe"
	CommandKey   CommandKind = "key"
)

// ControlCommand is one validated viewer action. Implementations are Tap,
// Swipe and Key.
type ControlCommand interface {
	Kind() CommandKind
}

type Tap struct {
	X int
	Y int
}

type Swipe struct {
	StartX     int
	StartY     int
	EndX       int
	EndY       int
	DurationMs int
}

type Key struct {
	Code int
}

func (Tap) Kind() CommandKind   { return CommandTap }
func (Swipe) Kind() CommandKind { return CommandSwipe }
func (Key) Kind() CommandKind   { return CommandKey }
