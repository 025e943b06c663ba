// Package portal holds the read models of the portal's course, quiz and
// analytics endpoints together with the small display helpers the views
// share (time formatting, adaptation level, Q-table summaries).
package portal

import "time"

// QEntry is one state/action cell of a Q-table.
type QEntry struct {
	State  string  `json:"state"`
	Action string  `json:"action"`
	QValue float64 `json:"q_value"`
}

// CourseQTable is the Q-table the server learned for one course.
type CourseQTable struct {
	CourseID int      `json:"course_id"`
	Title    string   `json:"title"`
	QTable   []QEntry `json:"q_table"`
}

// TotalStars is the body of GET /total-stars.
type TotalStars struct {
	TotalStars *int `json:"total_stars"`
}

// Count returns the total, treating a null aggregate as zero.
func (t TotalStars) Count() int {
	if t.TotalStars == nil {
		return 0
	}
	return *t.TotalStars
}

// DashboardStats is the stats block of GET /dashboard-info.
type DashboardStats struct {
	QuizzesCompleted int     `json:"quizzesCompleted"`
	AverageScore     float64 `json:"averageScore"`
	TotalStars       *int    `json:"totalStars"`
	AdaptationLevel  string  `json:"adaptationLevel"`
}

// Activity is one recent activity entry.
type Activity struct {
	ID          int       `json:"id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

// Activity types
const (
	ActivityCourseCompleted = "course_completed"
	ActivityRewardReceived  = "reward_received"
	ActivityQuizCompleted   = "quiz_completed"
)

// DashboardInfo is the body of GET /dashboard-info.
type DashboardInfo struct {
	Stats          DashboardStats   `json:"stats"`
	StartedCourses []map[string]any `json:"startedCourses"`
	Activities     []Activity       `json:"activities"`
}

// Document is an opaque JSON document rendered as is (course catalog,
// course overview, quiz session, submission result).
type Document = any
