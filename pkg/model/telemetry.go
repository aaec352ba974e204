package model

import (
	"time"
)

// SimStatus mirrors the status field of the simulator graphics page
type SimStatus int32

const (
	StatusOff SimStatus = iota
	StatusReplay
	StatusLive
	StatusPause
)

func (s SimStatus) String() string {
	switch s {
	case StatusOff:
		return "OFF"
	case StatusReplay:
		return "REPLAY"
	case StatusLive:
		return "LIVE"
	case StatusPause:
		return "PAUSE"
	default:
		return "UNKNOWN"
	}
}

// Frame is one decoded snapshot of the telemetry segment
type Frame struct {
	PacketID       int32
	Status         SimStatus
	LastLapTime    time.Duration // most recently completed lap
	CurrentLapTime time.Duration // elapsed time in the lap in progress
	NumberOfLaps   int           // completed laps
}
