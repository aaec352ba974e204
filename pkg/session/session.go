package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mpapenbr/lapboard/log"
	"github.com/mpapenbr/lapboard/pkg/leaderboard"
	"github.com/mpapenbr/lapboard/pkg/model"
	"github.com/mpapenbr/lapboard/pkg/processing/lap"
	"github.com/mpapenbr/lapboard/pkg/telemetry"
)

const DefaultInterval = time.Second

// FrameReader provides one telemetry frame per call.
// Implementations must return immediately.
type FrameReader interface {
	Read() (model.Frame, error)
	Close() error
}

type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeIdle        Outcome = "idle" // frame read but no player to record it for
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeReadFailure Outcome = "read_failure"
)

// LapEvent is emitted whenever a player improved the best lap
type LapEvent struct {
	SessionID string
	Player    string
	Previous  model.BestLap
	BestLap   model.BestLap
	Laps      int
	At        time.Time
}

type TickResult struct {
	Outcome Outcome
	Player  string
	Frame   model.Frame
	BestLap model.BestLap
	Err     error
}

// Session runs the poll loop: read a frame, fold the best lap, record it for
// the selected player. User commands are executed by the same loop.
type Session struct {
	id        string
	reader    FrameReader
	tracker   *lap.Tracker
	store     *leaderboard.Store
	interval  time.Duration
	selected  string
	boardFile string
	autosave  bool
	requests  chan request
	events    chan<- LapEvent
	guard     lapGuard
	ticks     metric.Int64Counter
	l         *log.Logger
}

// lapGuard holds back frames whose last lap was completed before the selected
// record was (re)started, e.g. by another player before a select.
type lapGuard struct {
	armed  bool // baseline is taken from the next frame
	active bool
	laps   int
}

func (g *lapGuard) arm() {
	*g = lapGuard{armed: true}
}

// admit reports whether the last lap of frame may be folded
func (g *lapGuard) admit(frame model.Frame) bool {
	if g.armed {
		*g = lapGuard{active: true, laps: frame.NumberOfLaps}
		return false
	}
	if !g.active {
		return true
	}
	if frame.NumberOfLaps < g.laps {
		// simulator session restarted, count from the new value
		g.laps = frame.NumberOfLaps
		return false
	}
	if frame.NumberOfLaps > g.laps {
		g.active = false
		return true
	}
	return false
}

type request struct {
	cmd   Command
	reply chan reply
}

type reply struct {
	msg string
	err error
}

type Option func(s *Session)

func WithReader(r FrameReader) Option {
	return func(s *Session) {
		s.reader = r
	}
}

func WithTracker(t *lap.Tracker) Option {
	return func(s *Session) {
		s.tracker = t
	}
}

func WithStore(store *leaderboard.Store) Option {
	return func(s *Session) {
		s.store = store
	}
}

func WithInterval(d time.Duration) Option {
	return func(s *Session) {
		s.interval = d
	}
}

// WithSelectedPlayer sets the player receiving the telemetry
func WithSelectedPlayer(name string) Option {
	return func(s *Session) {
		s.selected = name
	}
}

// WithBoardFile sets the default file for save commands
func WithBoardFile(path string) Option {
	return func(s *Session) {
		s.boardFile = path
	}
}

// WithAutosave saves the board file whenever a tick changed the selected record
func WithAutosave(enabled bool) Option {
	return func(s *Session) {
		s.autosave = enabled
	}
}

// WithEvents sets the channel receiving lap events.
// Events are dropped if the channel is not ready.
func WithEvents(ch chan<- LapEvent) Option {
	return func(s *Session) {
		s.events = ch
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		s.l = l
	}
}

func New(opts ...Option) (*Session, error) {
	s := &Session{
		id:       uuid.NewString(),
		tracker:  lap.NewTracker(),
		store:    leaderboard.NewStore(),
		interval: DefaultInterval,
		requests: make(chan request),
		l:        log.Default().Named("session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reader == nil {
		r, err := telemetry.NewReader()
		if err != nil {
			return nil, err
		}
		s.reader = r
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	s.l = s.l.With(log.String("session", s.id))
	s.setupMetrics()
	return s, nil
}

func (s *Session) setupMetrics() {
	meter := otel.GetMeterProvider().Meter("lapboard.session")
	var err error
	s.ticks, err = meter.Int64Counter("lapboard.session.ticks",
		metric.WithDescription("Number of poll ticks by outcome"),
		metric.WithUnit("{tick}"))
	if err != nil {
		s.l.Error("failed to register metric", log.ErrorField(err))
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Selected() string {
	return s.selected
}

func (s *Session) BoardFile() string {
	return s.boardFile
}

func (s *Session) Store() *leaderboard.Store {
	return s.store
}

// Tick performs one poll cycle. Errors never escape, they are reported in the
// result and the session stays pollable.
func (s *Session) Tick(ctx context.Context) TickResult {
	res := s.tick()
	if s.ticks != nil {
		s.ticks.Add(ctx, 1, metric.WithAttributes(
			attribute.String("outcome", string(res.Outcome))))
	}
	return res
}

func (s *Session) tick() TickResult {
	frame, err := s.reader.Read()
	switch {
	case errors.Is(err, telemetry.ErrSegmentUnavailable):
		s.l.Debug("telemetry not available", log.ErrorField(err))
		return TickResult{Outcome: OutcomeUnavailable, Err: err}
	case err != nil:
		s.l.Warn("skipping frame", log.ErrorField(err))
		return TickResult{Outcome: OutcomeReadFailure, Err: err}
	}

	if s.selected == "" {
		return TickResult{Outcome: OutcomeIdle, Frame: frame}
	}
	rec, ok := s.store.Get(s.selected)
	if !ok {
		s.l.Warn("selected player not on leaderboard", log.String("player", s.selected))
		return TickResult{Outcome: OutcomeIdle, Frame: frame}
	}
	best := rec.BestLap
	if s.tracker.Shared() || s.guard.admit(frame) {
		best = s.tracker.Fold(rec.BestLap, frame)
	}
	if err := s.store.RecordTelemetry(s.selected, frame, best); err != nil {
		s.l.Error("could not record telemetry", log.ErrorField(err))
		return TickResult{Outcome: OutcomeIdle, Frame: frame, Err: err}
	}
	s.l.Debug("recorded telemetry",
		log.String("player", s.selected),
		log.Int32("packetId", frame.PacketID),
		log.String("status", frame.Status.String()),
		log.Duration("lastLap", frame.LastLapTime),
		log.Duration("currentLap", frame.CurrentLapTime),
		log.Int("laps", frame.NumberOfLaps),
		log.String("bestLap", best.String()))

	if !best.Equal(rec.BestLap) {
		s.l.Info("new best lap",
			log.String("player", s.selected), log.String("bestLap", best.String()))
		s.emit(LapEvent{
			SessionID: s.id,
			Player:    s.selected,
			Previous:  rec.BestLap,
			BestLap:   best,
			Laps:      frame.NumberOfLaps,
			At:        time.Now(),
		})
	}
	if s.autosave && s.boardFile != "" &&
		(!best.Equal(rec.BestLap) || rec.NumberOfLaps != frame.NumberOfLaps) {
		if err := s.Save(""); err != nil {
			s.l.Warn("autosave failed", log.ErrorField(err))
		}
	}
	return TickResult{Outcome: OutcomeOK, Player: s.selected, Frame: frame, BestLap: best}
}

func (s *Session) emit(ev LapEvent) {
	if s.events == nil {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.l.Debug("lap event dropped", log.String("player", ev.Player))
	}
}

// Run polls until ctx is done. Ticks and commands never run concurrently.
func (s *Session) Run(ctx context.Context) error {
	s.l.Info("starting poll loop", log.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.l.Info("poll loop stopped")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		case req := <-s.requests:
			msg, err := s.Execute(req.cmd)
			req.reply <- reply{msg: msg, err: err}
		}
	}
}

// Submit hands cmd to a running Run loop and waits for its result
func (s *Session) Submit(ctx context.Context, cmd Command) (string, error) {
	req := request{cmd: cmd, reply: make(chan reply, 1)}
	select {
	case s.requests <- req:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case r := <-req.reply:
		return r.msg, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Save exports the board to path or to the board file if path is empty
func (s *Session) Save(path string) error {
	if path == "" {
		path = s.boardFile
	}
	if path == "" {
		return ErrNoBoardFile
	}
	if err := leaderboard.SaveFile(path, s.store.Snapshot()); err != nil {
		return err
	}
	s.l.Debug("leaderboard saved", log.String("file", path))
	return nil
}

func (s *Session) Close() error {
	return s.reader.Close()
}
