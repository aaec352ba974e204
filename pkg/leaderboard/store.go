package leaderboard

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/mpapenbr/lapboard/pkg/model"
)

var (
	ErrDuplicateOrInvalidName = errors.New("player already exists or name is empty")
	ErrNotFound               = errors.New("player not found")
)

// Store maps player names to their records.
// It is not safe for concurrent use.
type Store struct {
	players map[string]model.PlayerRecord
}

func NewStore() *Store {
	return &Store{players: make(map[string]model.PlayerRecord)}
}

// normalize strips the whitespace that is never part of a player name
func normalize(name string) string {
	return strings.TrimSpace(name)
}

// AddPlayer inserts an initial record. Surrounding whitespace is not part of the name.
func (s *Store) AddPlayer(name string) error {
	name = normalize(name)
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrDuplicateOrInvalidName)
	}
	if _, ok := s.players[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateOrInvalidName, name)
	}
	s.players[name] = model.NewPlayerRecord(name)
	return nil
}

// ClearPlayer resets the record of name to its initial state
func (s *Store) ClearPlayer(name string) error {
	name = normalize(name)
	if _, ok := s.players[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	s.players[name] = model.NewPlayerRecord(name)
	return nil
}

func (s *Store) RemovePlayer(name string) error {
	name = normalize(name)
	if _, ok := s.players[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	delete(s.players, name)
	return nil
}

// RecordTelemetry stores the frame values and the tracker output for name.
// TotalTime is left untouched.
func (s *Store) RecordTelemetry(name string, frame model.Frame, bestLap model.BestLap) error {
	name = normalize(name)
	rec, ok := s.players[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	rec.CurrentLapTime = frame.CurrentLapTime
	rec.NumberOfLaps = frame.NumberOfLaps
	rec.BestLap = bestLap
	s.players[name] = rec
	return nil
}

func (s *Store) Get(name string) (model.PlayerRecord, bool) {
	name = normalize(name)
	rec, ok := s.players[name]
	return rec, ok
}

// Snapshot returns a copy of the current mapping
func (s *Store) Snapshot() map[string]model.PlayerRecord {
	return maps.Clone(s.players)
}

// Names returns the player names in lexical order
func (s *Store) Names() []string {
	names := lo.Keys(s.players)
	slices.Sort(names)
	return names
}

func (s *Store) Len() int {
	return len(s.players)
}

// Reset removes all players
func (s *Store) Reset() {
	s.players = make(map[string]model.PlayerRecord)
}

// Replace swaps the whole mapping, e.g. after loading a leaderboard file.
// The store is left unchanged if records contains invalid entries.
func (s *Store) Replace(records map[string]model.PlayerRecord) error {
	for name, rec := range records {
		if strings.TrimSpace(name) == "" || name != rec.Name {
			return fmt.Errorf("%w: %q", ErrDuplicateOrInvalidName, name)
		}
	}
	s.players = maps.Clone(records)
	if s.players == nil {
		s.players = make(map[string]model.PlayerRecord)
	}
	return nil
}
