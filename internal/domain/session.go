package domain

import "time"

type SessionState string

const (
	StateIdle      SessionState = "idle"
	StateCapturing SessionState = "capturing"
	StateStopped   SessionState = "stopped"
)

type SessionCounters struct {
	FramesSent     int64 `json:"framesSent"`
	FramesSkipped  int64 `json:"framesSkipped"`
	Commands       int64 `json:"commands"`
	ProtocolErrors int64 `json:"protocolErrors"`
}

type Session struct {
	ID         string          `json:"id"`
	RemoteAddr string          `json:"remoteAddr"`
	StartedAt  time.Time       `json:"startedAt"`
	ClosedAt   *time.Time      `json:"closedAt"`
	Error      *string         `json:"error"`
	State      SessionState    `json:"state"`
	Geometry   Geometry        `json:"geometry"`
	Counters   SessionCounters `json:"counters"`
	Evicted    bool            `json:"evicted"`
}
