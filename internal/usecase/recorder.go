package usecase

import "screencast/internal/domain"

// Frame tick outcomes reported to a Recorder.
const (
	FrameSent    = "sent"
	FrameSkipped = "skipped"
	FrameEmpty   = "empty"
)

// Command outcomes reported to a Recorder.
const (
	CommandOK      = "ok"
	CommandFailed  = "failed"
	CommandDropped = "dropped"
)

// Recorder receives pipeline outcomes; observability.Metrics implements it.
type Recorder interface {
	FrameResult(result string)
	CommandResult(kind domain.CommandKind, result string)
	ProtocolError()
}

type nopRecorder struct{}

func (nopRecorder) FrameResult(string)                        {}
func (nopRecorder) CommandResult(domain.CommandKind, string) {}
func (nopRecorder) ProtocolError()                           {}
