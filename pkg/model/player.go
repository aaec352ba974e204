package model

import (
	"time"

	"github.com/aarondl/opt"
)

// BestLap is either unset (no lap completed yet) or holds a lap duration.
// The zero value is unset.
type BestLap struct {
	val opt.Val[time.Duration]
}

func UnsetLap() BestLap {
	return BestLap{}
}

func LapOf(d time.Duration) BestLap {
	return BestLap{val: opt.From(d)}
}

func (b BestLap) IsSet() bool {
	return b.val.IsSet()
}

func (b BestLap) Get() (time.Duration, bool) {
	return b.val.Get()
}

func (b BestLap) Equal(other BestLap) bool {
	v, ok := b.Get()
	ov, ook := other.Get()
	return ok == ook && v == ov
}

func (b BestLap) String() string {
	if v, ok := b.Get(); ok {
		return v.String()
	}
	return "unset"
}

// PlayerRecord holds the accumulated statistics of one player
type PlayerRecord struct {
	Name    string
	BestLap BestLap
	// TotalTime is not supplied by the telemetry source and stays unset
	// unless a loaded leaderboard carries a value.
	TotalTime      opt.Val[time.Duration]
	CurrentLapTime time.Duration
	NumberOfLaps   int
}

func NewPlayerRecord(name string) PlayerRecord {
	return PlayerRecord{Name: name}
}
