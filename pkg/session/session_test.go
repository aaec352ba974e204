//nolint:funlen // ok for tests
package session

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/lapboard/pkg/leaderboard"
	"github.com/mpapenbr/lapboard/pkg/model"
	"github.com/mpapenbr/lapboard/pkg/processing/lap"
	"github.com/mpapenbr/lapboard/pkg/telemetry"
)

type readResult struct {
	frame model.Frame
	err   error
}

// scriptedReader returns the given results in order, repeating the last one
type scriptedReader struct {
	results []readResult
	calls   int
	closed  bool
}

func (r *scriptedReader) Read() (model.Frame, error) {
	idx := r.calls
	if idx >= len(r.results) {
		idx = len(r.results) - 1
	}
	r.calls++
	return r.results[idx].frame, r.results[idx].err
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

func lapFrame(lastMs, laps int) readResult {
	return readResult{frame: model.Frame{
		Status:         model.StatusLive,
		LastLapTime:    time.Duration(lastMs) * time.Millisecond,
		CurrentLapTime: 3 * time.Second,
		NumberOfLaps:   laps,
	}}
}

func newTestSession(t *testing.T, r FrameReader, opts ...Option) *Session {
	t.Helper()
	store := leaderboard.NewStore()
	assert.NoError(t, store.AddPlayer("Alice"))
	assert.NoError(t, store.AddPlayer("Bob"))
	s, err := New(append([]Option{WithReader(r), WithStore(store)}, opts...)...)
	assert.NoError(t, err)
	return s
}

func bestLapOf(t *testing.T, s *Session, name string) model.BestLap {
	t.Helper()
	rec, ok := s.Store().Get(name)
	assert.True(t, ok)
	return rec.BestLap
}

func TestSession_TickSequence(t *testing.T) {
	r := &scriptedReader{results: []readResult{
		{err: telemetry.ErrSegmentUnavailable},
		lapFrame(92500, 1),
		lapFrame(95000, 2),
		{err: telemetry.ErrReadFailure},
		lapFrame(91000, 3),
		lapFrame(0, 3),
	}}
	s := newTestSession(t, r, WithSelectedPlayer("Alice"))
	ctx := context.Background()

	wantOutcomes := []Outcome{
		OutcomeUnavailable, OutcomeOK, OutcomeOK, OutcomeReadFailure, OutcomeOK, OutcomeOK,
	}
	wantBest := []time.Duration{0, 92500, 92500, 92500, 91000, 91000}
	for i := range wantOutcomes {
		res := s.Tick(ctx)
		assert.Equalf(t, wantOutcomes[i], res.Outcome, "tick %d", i)
		got := bestLapOf(t, s, "Alice")
		if wantBest[i] == 0 {
			assert.False(t, got.IsSet(), "tick %d", i)
		} else {
			assert.Truef(t, model.LapOf(wantBest[i]*time.Millisecond).Equal(got),
				"tick %d: got %v", i, got)
		}
	}
	rec, _ := s.Store().Get("Alice")
	assert.Equal(t, 3, rec.NumberOfLaps)
	assert.Equal(t, 3*time.Second, rec.CurrentLapTime)

	// bob never received telemetry
	bob, _ := s.Store().Get("Bob")
	assert.Equal(t, model.NewPlayerRecord("Bob"), bob)
}

func TestSession_ReadFailureKeepsState(t *testing.T) {
	r := &scriptedReader{results: []readResult{
		lapFrame(92500, 1),
		{err: errors.New("boom")},
	}}
	s := newTestSession(t, r, WithSelectedPlayer("Alice"))
	s.Tick(context.Background())
	before, _ := s.Store().Get("Alice")

	res := s.Tick(context.Background())
	assert.Equal(t, OutcomeReadFailure, res.Outcome)
	after, _ := s.Store().Get("Alice")
	assert.Equal(t, before, after)
}

func TestSession_IdleWithoutSelection(t *testing.T) {
	r := &scriptedReader{results: []readResult{lapFrame(92500, 1)}}
	s := newTestSession(t, r)
	res := s.Tick(context.Background())
	assert.Equal(t, OutcomeIdle, res.Outcome)
	assert.False(t, bestLapOf(t, s, "Alice").IsSet())

	s.selected = "Ghost"
	res = s.Tick(context.Background())
	assert.Equal(t, OutcomeIdle, res.Outcome)
}

func TestSession_PerPlayerBestLap(t *testing.T) {
	r := &scriptedReader{results: []readResult{lapFrame(91000, 1)}}
	s := newTestSession(t, r, WithSelectedPlayer("Alice"))
	s.Tick(context.Background())

	_, err := s.Execute(Command{Kind: CmdSelect, Arg: "Bob"})
	assert.NoError(t, err)
	// the first frame after a select only sets the lap baseline
	r.results = []readResult{lapFrame(91000, 1), lapFrame(95000, 2)}
	r.calls = 0
	s.Tick(context.Background())
	s.Tick(context.Background())

	assert.True(t, model.LapOf(91*time.Second).Equal(bestLapOf(t, s, "Alice")))
	assert.True(t, model.LapOf(95*time.Second).Equal(bestLapOf(t, s, "Bob")))
}

func TestSession_SelectIgnoresPreviousDriversLap(t *testing.T) {
	r := &scriptedReader{results: []readResult{lapFrame(92500, 3)}}
	s := newTestSession(t, r, WithSelectedPlayer("Alice"))
	s.Tick(context.Background())
	assert.True(t, model.LapOf(92500*time.Millisecond).Equal(bestLapOf(t, s, "Alice")))

	_, err := s.Execute(Command{Kind: CmdSelect, Arg: "Bob"})
	assert.NoError(t, err)
	for range 3 {
		s.Tick(context.Background())
		assert.False(t, bestLapOf(t, s, "Bob").IsSet())
	}

	// bob completes his first lap
	r.results = []readResult{lapFrame(97000, 4)}
	r.calls = 0
	s.Tick(context.Background())
	assert.True(t, model.LapOf(97*time.Second).Equal(bestLapOf(t, s, "Bob")))
	assert.True(t, model.LapOf(92500*time.Millisecond).Equal(bestLapOf(t, s, "Alice")))
}

func TestSession_ClearIsNotUndoneByNextTick(t *testing.T) {
	r := &scriptedReader{results: []readResult{lapFrame(92500, 3)}}
	s := newTestSession(t, r, WithSelectedPlayer("Alice"))
	s.Tick(context.Background())

	_, err := s.Execute(Command{Kind: CmdClear})
	assert.NoError(t, err)
	s.Tick(context.Background())
	s.Tick(context.Background())
	assert.False(t, bestLapOf(t, s, "Alice").IsSet())

	r.results = []readResult{lapFrame(99000, 4)}
	r.calls = 0
	s.Tick(context.Background())
	assert.True(t, model.LapOf(99*time.Second).Equal(bestLapOf(t, s, "Alice")))
}

func TestSession_GuardFollowsLapCounterReset(t *testing.T) {
	r := &scriptedReader{results: []readResult{lapFrame(92500, 5)}}
	s := newTestSession(t, r)
	_, err := s.Execute(Command{Kind: CmdSelect, Arg: "Alice"})
	assert.NoError(t, err)
	s.Tick(context.Background())

	// simulator restarted its session, the counter starts over
	r.results = []readResult{lapFrame(92500, 0), lapFrame(93000, 1)}
	r.calls = 0
	s.Tick(context.Background())
	assert.False(t, bestLapOf(t, s, "Alice").IsSet())
	s.Tick(context.Background())
	assert.True(t, model.LapOf(93*time.Second).Equal(bestLapOf(t, s, "Alice")))
}

func TestSession_SharedBestLap(t *testing.T) {
	r := &scriptedReader{results: []readResult{lapFrame(91000, 1)}}
	s := newTestSession(t, r,
		WithSelectedPlayer("Alice"),
		WithTracker(lap.NewTracker(lap.WithSharedBestLap())))
	s.Tick(context.Background())

	_, err := s.Execute(Command{Kind: CmdSelect, Arg: "Bob"})
	assert.NoError(t, err)
	r.results = []readResult{lapFrame(95000, 1)}
	r.calls = 0
	s.Tick(context.Background())

	assert.True(t, model.LapOf(91*time.Second).Equal(bestLapOf(t, s, "Bob")))
}

func TestSession_Autosave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.csv")
	r := &scriptedReader{results: []readResult{lapFrame(92500, 1)}}
	s := newTestSession(t, r,
		WithSelectedPlayer("Alice"), WithBoardFile(path), WithAutosave(true))
	s.Tick(context.Background())

	board, err := leaderboard.LoadFile(path)
	assert.NoError(t, err)
	assert.True(t, model.LapOf(92500*time.Millisecond).Equal(board["Alice"].BestLap))
}

// progressReader completes one 92.5s lap per read
type progressReader struct {
	calls  int
	closed bool
}

func (r *progressReader) Read() (model.Frame, error) {
	r.calls++
	return lapFrame(92500, r.calls).frame, nil
}

func (r *progressReader) Close() error {
	r.closed = true
	return nil
}

func TestSession_RunAndSubmit(t *testing.T) {
	r := &progressReader{}
	s := newTestSession(t, r, WithInterval(5*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	msg, err := s.Submit(ctx, Command{Kind: CmdSelect, Arg: "Alice"})
	assert.NoError(t, err)
	assert.Equal(t, "selected player Alice", msg)

	_, err = s.Submit(ctx, Command{Kind: CmdAdd, Arg: "Alice"})
	assert.ErrorIs(t, err, leaderboard.ErrDuplicateOrInvalidName)

	assert.Eventually(t, func() bool {
		msg, err := s.Submit(ctx, Command{Kind: CmdShow})
		return err == nil && strings.Contains(msg, "1:32.500")
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)

	_, err = s.Submit(ctx, Command{Kind: CmdShow})
	assert.ErrorIs(t, err, context.Canceled)

	assert.NoError(t, s.Close())
	assert.True(t, r.closed)
}
