package lap

import (
	"math"
	"time"

	"github.com/mpapenbr/lapboard/pkg/model"
)

// NoLapSentinel is written by the simulator for lap times that do not exist
const NoLapSentinel = time.Duration(math.MaxInt32) * time.Millisecond

// Valid reports whether candidate is a usable completed-lap time
func Valid(candidate time.Duration) bool {
	return candidate > 0 && candidate < NoLapSentinel
}

// Observe folds candidate into current.
// The result only differs from current if candidate is valid and faster.
func Observe(current model.BestLap, candidate time.Duration) model.BestLap {
	if !Valid(candidate) {
		return current
	}
	if v, ok := current.Get(); ok && candidate >= v {
		return current
	}
	return model.LapOf(candidate)
}

// Tracker applies Observe either to the record of each player or to a single
// value shared by all players.
type Tracker struct {
	shared bool
	global model.BestLap
}

type TrackerOption func(t *Tracker)

// WithSharedBestLap keeps one best lap for all players.
// Switching the selected player does not reset it.
func WithSharedBestLap() TrackerOption {
	return func(t *Tracker) {
		t.shared = true
	}
}

func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Fold returns the new best lap for a player whose current value is current
func (t *Tracker) Fold(current model.BestLap, frame model.Frame) model.BestLap {
	if t.shared {
		t.global = Observe(t.global, frame.LastLapTime)
		return t.global
	}
	return Observe(current, frame.LastLapTime)
}

func (t *Tracker) Shared() bool {
	return t.shared
}

// Reset drops the shared best lap. No-op in per-player mode.
func (t *Tracker) Reset() {
	t.global = model.UnsetLap()
}
