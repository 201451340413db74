package domain

import "errors"

var (
	// ErrCaptureUnavailable ends the current session; the server keeps serving.
	ErrCaptureUnavailable = errors.New("capture unavailable")
	// ErrEncodeFailed skips a single frame.
	ErrEncodeFailed = errors.New("encode failed")
	// ErrProtocol drops a single inbound message.
	ErrProtocol = errors.New("protocol error")
	// ErrInjectionFailed is logged by the dispatcher and never retried.
	ErrInjectionFailed = errors.New("injection failed")
	// ErrTransportClosed means the viewer went away.
	ErrTransportClosed = errors.New("transport closed")
	// ErrSessionActive is returned when the reject policy refuses a viewer.
	ErrSessionActive = errors.New("session already active")
)
