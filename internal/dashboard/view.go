// v0
// internal/dashboard/view.go
package dashboard

import (
	"strconv"

	"github.com/josecookai/clawdmetrics/internal/leaderboard"
)

// State names which of the three mutually exclusive outcomes a View holds.
type State string

const (
	StateEntries State = "entries"
	StateError   State = "error"
	StateEmpty   State = "empty"
)

// State reports the outcome to render. An error always wins.
func (v View) State() State {
	switch {
	case v.Error != "":
		return StateError
	case len(v.Entries) == 0:
		return StateEmpty
	default:
		return StateEntries
	}
}

// Row is one line of the details table.
type Row struct {
	Key   string
	Rank  int
	Name  string
	Score float64
}

// Rows formats entries for the table: the rank falls back to the
// position, the name to user and then to a placeholder.
func (v View) Rows() []Row {
	rows := make([]Row, 0, len(v.Entries))
	for i, e := range v.Entries {
		rank := e.Rank
		if rank == 0 {
			rank = i + 1
		}
		name := firstNonEmpty(e.Name, e.User())
		if name == "" {
			name = leaderboard.PlaceholderName(i + 1)
		}
		key := e.ID
		if key == "" {
			key = "rank-" + strconv.Itoa(rank)
		}
		rows = append(rows, Row{Key: key, Rank: rank, Name: name, Score: e.Score})
	}
	return rows
}

// Bar is one bar of the chart. Ratio is the score relative to the
// highest score on the board, between 0 and 1.
type Bar struct {
	Label string
	Score float64
	Ratio float64
}

// Bars formats entries for the chart. Labels fall back to user and then
// to a placeholder built from the id or the rank.
func (v View) Bars() []Bar {
	var top float64
	for _, e := range v.Entries {
		if e.Score > top {
			top = e.Score
		}
	}
	bars := make([]Bar, 0, len(v.Entries))
	for _, e := range v.Entries {
		label := firstNonEmpty(e.Name, e.User())
		if label == "" {
			suffix := e.ID
			if suffix == "" {
				suffix = strconv.Itoa(e.Rank)
			}
			label = "用户 " + suffix
		}
		ratio := 0.0
		if top > 0 && e.Score > 0 {
			ratio = e.Score / top
		}
		bars = append(bars, Bar{Label: label, Score: e.Score, Ratio: ratio})
	}
	return bars
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
