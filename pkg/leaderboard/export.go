package leaderboard

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aarondl/opt"
	"github.com/shopspring/decimal"

	"github.com/mpapenbr/lapboard/pkg/model"
)

const (
	UnsetBestLapMarker   = "no lap completed"
	UnsetTotalTimeMarker = "not set yet"
)

var ErrInvalidFormat = errors.New("invalid leaderboard format")

// maxValue bounds millisecond and lap values, the simulator stores them as int32
var maxValue = decimal.NewFromInt(math.MaxInt32)

var header = []string{"Player", "Best Lap", "Total Time", "Current Lap", "Number of Laps"}

// Export writes one csv row per player ordered by name.
// Durations are written as milliseconds.
func Export(w io.Writer, board map[string]model.PlayerRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, name := range sortedNames(board) {
		rec := board[name]
		row := []string{
			name,
			formatBestLap(rec.BestLap),
			formatTotalTime(rec.TotalTime),
			formatMillis(rec.CurrentLapTime),
			strconv.Itoa(rec.NumberOfLaps),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Import reads a leaderboard written by Export.
// A best lap of 0 (written by older versions) is read as unset.
func Import(r io.Reader) (map[string]model.PlayerRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: missing header", ErrInvalidFormat)
	}
	for i, col := range header {
		if strings.TrimSpace(strings.TrimPrefix(rows[0][i], "\ufeff")) != col {
			return nil, fmt.Errorf("%w: unexpected column %q, want %q",
				ErrInvalidFormat, rows[0][i], col)
		}
	}
	ret := make(map[string]model.PlayerRecord, len(rows)-1)
	for i, row := range rows[1:] {
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidFormat, i+2, err)
		}
		if _, ok := ret[rec.Name]; ok {
			return nil, fmt.Errorf("%w: line %d: duplicate player %q",
				ErrInvalidFormat, i+2, rec.Name)
		}
		ret[rec.Name] = rec
	}
	return ret, nil
}

func parseRow(row []string) (model.PlayerRecord, error) {
	name := strings.TrimSpace(row[0])
	if name == "" {
		return model.PlayerRecord{}, errors.New("empty player name")
	}
	rec := model.NewPlayerRecord(name)

	if v := strings.TrimSpace(row[1]); v != UnsetBestLapMarker {
		d, err := parseMillis(v)
		if err != nil {
			return rec, fmt.Errorf("best lap: %w", err)
		}
		if d > 0 {
			rec.BestLap = model.LapOf(d)
		}
	}
	if v := strings.TrimSpace(row[2]); v != UnsetTotalTimeMarker {
		d, err := parseMillis(v)
		if err != nil {
			return rec, fmt.Errorf("total time: %w", err)
		}
		rec.TotalTime = opt.From(d)
	}
	d, err := parseMillis(strings.TrimSpace(row[3]))
	if err != nil {
		return rec, fmt.Errorf("current lap: %w", err)
	}
	rec.CurrentLapTime = d

	laps, err := decimal.NewFromString(strings.TrimSpace(row[4]))
	if err != nil || !laps.IsInteger() || laps.IsNegative() || laps.GreaterThan(maxValue) {
		return rec, fmt.Errorf("number of laps: invalid value %q", row[4])
	}
	rec.NumberOfLaps = int(laps.IntPart())
	return rec, nil
}

// parseMillis accepts integral or decimal millisecond values ("92500", "92500.0")
func parseMillis(v string) (time.Duration, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", v)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("negative value %q", v)
	}
	ms := d.Round(0)
	if ms.GreaterThan(maxValue) {
		return 0, fmt.Errorf("value out of range %q", v)
	}
	return time.Duration(ms.IntPart()) * time.Millisecond, nil
}

func formatMillis(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10)
}

func formatBestLap(b model.BestLap) string {
	if v, ok := b.Get(); ok {
		return formatMillis(v)
	}
	return UnsetBestLapMarker
}

func formatTotalTime(v opt.Val[time.Duration]) string {
	if d, ok := v.Get(); ok {
		return formatMillis(d)
	}
	return UnsetTotalTimeMarker
}

// SaveFile exports board to path. The file is replaced atomically.
func SaveFile(path string, board map[string]model.PlayerRecord) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := Export(tmp, board); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func LoadFile(path string) (map[string]model.PlayerRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Import(f)
}

// LoadStore reads path into a new store. A missing file yields an empty store.
func LoadStore(path string) (*Store, error) {
	s := NewStore()
	board, err := LoadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.Replace(board); err != nil {
		return nil, err
	}
	return s, nil
}
