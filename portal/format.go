package portal

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Adaptation levels
const (
	LevelBeginner     = "Beginner"
	LevelIntermediate = "Intermediate"
	LevelAdvanced     = "Advanced"
	LevelExpert       = "Expert"
)

// AILevel buckets an average Q-value into an adaptation level.
func AILevel(level float64) string {
	switch {
	case level < 0.05:
		return LevelBeginner
	case level < 0.15:
		return LevelIntermediate
	case level < 0.25:
		return LevelAdvanced
	default:
		return LevelExpert
	}
}

// FormatTime renders seconds as MM:SS. Minutes are not wrapped at 60.
func FormatTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	minutes := int(math.Floor(seconds / 60))
	rest := int(math.Floor(math.Mod(seconds, 60)))
	return fmt.Sprintf("%02d:%02d", minutes, rest)
}

// TimeAgo renders the distance between t and now in whole hours or days.
func TimeAgo(now, t time.Time) string {
	hours := int(math.Floor(now.Sub(t).Hours()))
	if hours < 1 {
		return "< 1h ago"
	}
	if hours < 24 {
		return fmt.Sprintf("%dh ago", hours)
	}
	return fmt.Sprintf("%dd ago", hours/24)
}

// AverageQValue is the mean Q-value of entries, 0 for an empty table.
func AverageQValue(entries []QEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	var sum float64
	for _, e := range entries {
		sum += e.QValue
	}
	return sum / float64(len(entries))
}

// QBand is a colour band for a Q-value.
type QBand string

const (
	BandHighest QBand = "highest"
	BandHigh    QBand = "high"
	BandMedium  QBand = "medium"
	BandLow     QBand = "low"
	BandLowest  QBand = "lowest"
)

// QValueBand buckets q in steps of 0.2.
func QValueBand(q float64) QBand {
	switch {
	case q >= 0.8:
		return BandHighest
	case q >= 0.6:
		return BandHigh
	case q >= 0.4:
		return BandMedium
	case q >= 0.2:
		return BandLow
	default:
		return BandLowest
	}
}

// ChartRow is one state with the Q-value of each action.
type ChartRow struct {
	State   string             `json:"state"`
	Actions map[string]float64 `json:"actions"`
}

// ChartRows pivots entries by state, in order of first appearance. A later
// entry for the same state and action wins.
func ChartRows(entries []QEntry) []ChartRow {
	index := map[string]int{}
	rows := []ChartRow{}
	for _, e := range entries {
		i, ok := index[e.State]
		if !ok {
			i = len(rows)
			index[e.State] = i
			rows = append(rows, ChartRow{State: e.State, Actions: map[string]float64{}})
		}
		rows[i].Actions[e.Action] = e.QValue
	}
	return rows
}

// Summary condenses one course's Q-table for display.
type Summary struct {
	CourseID int     `json:"course_id"`
	Title    string  `json:"title"`
	Entries  int     `json:"entries"`
	Average  float64 `json:"average"`
	Level    string  `json:"level"`
}

// Summarize builds a Summary per course, ordered by course id.
func Summarize(tables []CourseQTable) []Summary {
	out := make([]Summary, 0, len(tables))
	for _, t := range tables {
		avg := AverageQValue(t.QTable)
		out = append(out, Summary{
			CourseID: t.CourseID,
			Title:    t.Title,
			Entries:  len(t.QTable),
			Average:  avg,
			Level:    AILevel(avg),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out
}
