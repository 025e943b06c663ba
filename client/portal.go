package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/adaptivelearn/go-session/portal"
)

// Catalog lists course categories (FOG GET /catalog).
func (c *Client) Catalog(ctx context.Context) (portal.Document, error) {
	r, err := c.fog(ctx, http.MethodGet, "/catalog", nil)
	if err != nil {
		return nil, err
	}
	return decode[portal.Document](r)
}

// CourseOverview reads one course with its videos.
func (c *Client) CourseOverview(ctx context.Context, courseID int) (portal.Document, error) {
	r, err := c.core(ctx, http.MethodGet, fmt.Sprintf("/core/course/%d/overview/", courseID), nil)
	if err != nil {
		return nil, err
	}
	return decode[portal.Document](r)
}

// StartVideo opens a video session.
func (c *Client) StartVideo(ctx context.Context, courseID, videoID int) (portal.Document, error) {
	r, err := c.core(ctx, http.MethodPost, videoPath(courseID, videoID, "start/"), nil)
	if err != nil {
		return nil, err
	}
	return decode[portal.Document](r)
}

// GenerateQuiz marks a video complete, which makes the server generate its
// quiz.
func (c *Client) GenerateQuiz(ctx context.Context, courseID, videoID int) (portal.Document, error) {
	r, err := c.core(ctx, http.MethodPost, videoPath(courseID, videoID, "complete/"), nil)
	if err != nil {
		return nil, err
	}
	return decode[portal.Document](r)
}

// QuizSession reads a quiz and, once submitted, its analysis (FOG).
func (c *Client) QuizSession(ctx context.Context, courseID, videoID int) (portal.Document, error) {
	r, err := c.fog(ctx, http.MethodGet, fmt.Sprintf("/course/%d/videos/%d/quiz", courseID, videoID), nil)
	if err != nil {
		return nil, err
	}
	return decode[portal.Document](r)
}

// SubmitQuiz posts the selected answers.
func (c *Client) SubmitQuiz(ctx context.Context, courseID, videoID int, answers any) (portal.Document, error) {
	r, err := c.core(ctx, http.MethodPost, videoPath(courseID, videoID, "quiz/submit"), answers)
	if err != nil {
		return nil, err
	}
	return decode[portal.Document](r)
}

// TotalStars reads the user's star count (FOG).
func (c *Client) TotalStars(ctx context.Context) (portal.TotalStars, error) {
	r, err := c.fog(ctx, http.MethodGet, "/total-stars", nil)
	if err != nil {
		return portal.TotalStars{}, err
	}
	return decode[portal.TotalStars](r)
}

// DashboardInfo reads the dashboard aggregate (FOG).
func (c *Client) DashboardInfo(ctx context.Context) (portal.DashboardInfo, error) {
	r, err := c.fog(ctx, http.MethodGet, "/dashboard-info", nil)
	if err != nil {
		return portal.DashboardInfo{}, err
	}
	return decode[portal.DashboardInfo](r)
}

// QTableOverall reads every course Q-table of the user (FOG).
func (c *Client) QTableOverall(ctx context.Context) ([]portal.CourseQTable, error) {
	r, err := c.fog(ctx, http.MethodGet, "/q-table/overall", nil)
	if err != nil {
		return nil, err
	}
	return decode[[]portal.CourseQTable](r)
}

func videoPath(courseID, videoID int, suffix string) string {
	return fmt.Sprintf("/core/course/%d/videos/%d/%s", courseID, videoID, suffix)
}
