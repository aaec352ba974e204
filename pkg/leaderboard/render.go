package leaderboard

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mpapenbr/lapboard/pkg/model"
)

// Ranked orders the records by best lap, players without a lap last.
// Ties are ordered by name.
func Ranked(board map[string]model.PlayerRecord) []model.PlayerRecord {
	ret := lo.Values(board)
	slices.SortFunc(ret, func(a, b model.PlayerRecord) int {
		av, aok := a.BestLap.Get()
		bv, bok := b.BestLap.Get()
		switch {
		case aok && !bok:
			return -1
		case !aok && bok:
			return 1
		case aok && bok && av != bv:
			if av < bv {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Name, b.Name)
	})
	return ret
}

// FormatLapTime formats d as m:ss.mmm
func FormatLapTime(d time.Duration) string {
	minutes := d / time.Minute
	rest := d - minutes*time.Minute
	secs := decimal.New(rest.Milliseconds(), -3).StringFixed(3)
	if rest < 10*time.Second {
		secs = "0" + secs
	}
	return fmt.Sprintf("%d:%s", minutes, secs)
}

// Render writes the board as table. The selected player is marked with '*'.
func Render(w io.Writer, board map[string]model.PlayerRecord, selected string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Pos", "Player", "Best Lap", "Total Time", "Current Lap", "Laps"})
	for i, rec := range Ranked(board) {
		name := rec.Name
		if name == selected {
			name = "* " + name
		}
		bestLap := UnsetBestLapMarker
		if v, ok := rec.BestLap.Get(); ok {
			bestLap = FormatLapTime(v)
		}
		totalTime := UnsetTotalTimeMarker
		if v, ok := rec.TotalTime.Get(); ok {
			totalTime = FormatLapTime(v)
		}
		t.AppendRow(table.Row{
			strconv.Itoa(i + 1),
			name,
			bestLap,
			totalTime,
			FormatLapTime(rec.CurrentLapTime),
			rec.NumberOfLaps,
		})
	}
	t.Render()
}

func sortedNames(board map[string]model.PlayerRecord) []string {
	names := lo.Keys(board)
	slices.Sort(names)
	return names
}
