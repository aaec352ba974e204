package leaderboard

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aarondl/opt"
	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/lapboard/pkg/model"
)

func sampleBoard() map[string]model.PlayerRecord {
	return map[string]model.PlayerRecord{
		"Alice": {
			Name:           "Alice",
			BestLap:        model.LapOf(91 * time.Second),
			CurrentLapTime: 12345 * time.Millisecond,
			NumberOfLaps:   5,
		},
		"Bob": model.NewPlayerRecord("Bob"),
		"Smith, John": {
			Name:         "Smith, John",
			BestLap:      model.LapOf(92500 * time.Millisecond),
			TotalTime:    opt.From(10 * time.Minute),
			NumberOfLaps: 7,
		},
	}
}

func TestExport(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, Export(&buf, sampleBoard()))
	want := strings.Join([]string{
		"Player,Best Lap,Total Time,Current Lap,Number of Laps",
		"Alice,91000,not set yet,12345,5",
		"Bob,no lap completed,not set yet,0,0",
		`"Smith, John",92500,600000,0,7`,
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestExportImport_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	board := sampleBoard()
	assert.NoError(t, Export(&buf, board))

	got, err := Import(&buf)
	assert.NoError(t, err)
	assert.ElementsMatch(t, sortedNames(board), sortedNames(got))
	for name, rec := range board {
		assert.Truef(t, rec.BestLap.Equal(got[name].BestLap), "best lap of %s", name)
		assert.Equal(t, rec, got[name])
	}
}

func TestImport(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[string]model.PlayerRecord
		wantErr bool
	}{
		{
			name:  "header only",
			input: "Player,Best Lap,Total Time,Current Lap,Number of Laps\n",
			want:  map[string]model.PlayerRecord{},
		},
		{
			name: "legacy zero best lap and float values",
			input: "Player,Best Lap,Total Time,Current Lap,Number of Laps\n" +
				"Alice,0,not set yet,1500.0,2\n",
			want: map[string]model.PlayerRecord{
				"Alice": {Name: "Alice", CurrentLapTime: 1500 * time.Millisecond, NumberOfLaps: 2},
			},
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
		{
			name:    "wrong header",
			input:   "Name,Best,Total,Current,Laps\n",
			wantErr: true,
		},
		{
			name: "duplicate player",
			input: "Player,Best Lap,Total Time,Current Lap,Number of Laps\n" +
				"Alice,1,2,3,4\nAlice,1,2,3,4\n",
			wantErr: true,
		},
		{
			name: "empty player",
			input: "Player,Best Lap,Total Time,Current Lap,Number of Laps\n" +
				" ,1,2,3,4\n",
			wantErr: true,
		},
		{
			name: "negative best lap",
			input: "Player,Best Lap,Total Time,Current Lap,Number of Laps\n" +
				"Alice,-1,2,3,4\n",
			wantErr: true,
		},
		{
			name: "fractional laps",
			input: "Player,Best Lap,Total Time,Current Lap,Number of Laps\n" +
				"Alice,1,2,3,4.5\n",
			wantErr: true,
		},
		{
			name: "best lap out of range",
			input: "Player,Best Lap,Total Time,Current Lap,Number of Laps\n" +
				"Alice,99999999999999999999,not set yet,3,4\n",
			wantErr: true,
		},
		{
			name: "total time above int32",
			input: "Player,Best Lap,Total Time,Current Lap,Number of Laps\n" +
				"Alice,1,2147483648,3,4\n",
			wantErr: true,
		},
		{
			name: "laps out of range",
			input: "Player,Best Lap,Total Time,Current Lap,Number of Laps\n" +
				"Alice,1,2,3,99999999999999999999\n",
			wantErr: true,
		},
		{
			name: "missing column",
			input: "Player,Best Lap,Total Time,Current Lap,Number of Laps\n" +
				"Alice,1,2,3\n",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Import(strings.NewReader(tt.input))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidFormat)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSaveLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leaderboard.csv")
	board := sampleBoard()
	assert.NoError(t, SaveFile(path, board))

	got, err := LoadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, board, got)

	// no temp files are left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	assert.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadStore(t *testing.T) {
	dir := t.TempDir()

	s, err := LoadStore(filepath.Join(dir, "missing.csv"))
	assert.NoError(t, err)
	assert.Equal(t, 0, s.Len())

	path := filepath.Join(dir, "leaderboard.csv")
	assert.NoError(t, SaveFile(path, sampleBoard()))
	s, err = LoadStore(path)
	assert.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob", "Smith, John"}, s.Names())

	assert.NoError(t, os.WriteFile(path, []byte("garbage\n"), 0o600))
	_, err = LoadStore(path)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}
