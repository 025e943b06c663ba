package portal_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/adaptivelearn/go-session/portal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAILevel(t *testing.T) {
	tests := []struct {
		level float64
		want  string
	}{
		{0, portal.LevelBeginner},
		{0.049, portal.LevelBeginner},
		{0.05, portal.LevelIntermediate},
		{0.149, portal.LevelIntermediate},
		{0.15, portal.LevelAdvanced},
		{0.25, portal.LevelExpert},
		{3, portal.LevelExpert},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, portal.AILevel(tt.level), "level %v", tt.level)
	}
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "00:00", portal.FormatTime(0))
	assert.Equal(t, "00:59", portal.FormatTime(59.9))
	assert.Equal(t, "01:05", portal.FormatTime(65))
	assert.Equal(t, "75:00", portal.FormatTime(4500))
	assert.Equal(t, "00:00", portal.FormatTime(-3))
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "< 1h ago", portal.TimeAgo(now, now.Add(-30*time.Minute)))
	assert.Equal(t, "5h ago", portal.TimeAgo(now, now.Add(-5*time.Hour-10*time.Minute)))
	assert.Equal(t, "2d ago", portal.TimeAgo(now, now.Add(-50*time.Hour)))
}

func TestQValueBand(t *testing.T) {
	assert.Equal(t, portal.BandHighest, portal.QValueBand(0.8))
	assert.Equal(t, portal.BandHigh, portal.QValueBand(0.7))
	assert.Equal(t, portal.BandMedium, portal.QValueBand(0.4))
	assert.Equal(t, portal.BandLow, portal.QValueBand(0.2))
	assert.Equal(t, portal.BandLowest, portal.QValueBand(-1))
}

func TestChartRowsPivotsByState(t *testing.T) {
	rows := portal.ChartRows([]portal.QEntry{
		{State: "s1", Action: "easy", QValue: 0.1},
		{State: "s0", Action: "easy", QValue: 0.3},
		{State: "s1", Action: "hard", QValue: 0.5},
		{State: "s1", Action: "easy", QValue: 0.2},
	})

	require.Len(t, rows, 2)
	assert.Equal(t, "s1", rows[0].State)
	assert.Equal(t, map[string]float64{"easy": 0.2, "hard": 0.5}, rows[0].Actions)
	assert.Equal(t, "s0", rows[1].State)
}

func TestSummarize(t *testing.T) {
	var tables []portal.CourseQTable
	require.NoError(t, json.Unmarshal([]byte(`[
		{"course_id": 9, "title": "Rust", "q_table": []},
		{"course_id": 2, "title": "Go", "q_table": [
			{"state": "s0", "action": "easy", "q_value": 0.1},
			{"state": "s0", "action": "hard", "q_value": 0.3}
		]}
	]`), &tables))

	summaries := portal.Summarize(tables)

	require.Len(t, summaries, 2)
	assert.Equal(t, 2, summaries[0].CourseID)
	assert.Equal(t, 2, summaries[0].Entries)
	assert.InDelta(t, 0.2, summaries[0].Average, 1e-9)
	assert.Equal(t, portal.LevelAdvanced, summaries[0].Level)

	assert.Equal(t, 9, summaries[1].CourseID)
	assert.Zero(t, summaries[1].Average)
	assert.Equal(t, portal.LevelBeginner, summaries[1].Level)
}

func TestDashboardInfoDecodes(t *testing.T) {
	var info portal.DashboardInfo
	require.NoError(t, json.Unmarshal([]byte(`{
		"stats": {"quizzesCompleted": 4, "averageScore": 72.5, "totalStars": null, "adaptationLevel": "Intermediate"},
		"startedCourses": [{"id": 1}],
		"activities": [{"id": 1, "type": "quiz_completed", "title": "Quiz", "description": "", "date": "2024-06-01T10:00:00Z"}]
	}`), &info))

	assert.Equal(t, 4, info.Stats.QuizzesCompleted)
	assert.Nil(t, info.Stats.TotalStars)
	require.Len(t, info.Activities, 1)
	assert.Equal(t, portal.ActivityQuizCompleted, info.Activities[0].Type)
}
