package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"

	"github.com/adaptivelearn/go-session/portal"
)

// protected wraps fn with the route guard.
func protected(opts *rootOptions, fn func(ctx context.Context, app *App, args []string) error) func(*cobra.Command, []string) error {
	return withApp(opts, func(ctx context.Context, app *App, args []string) error {
		if err := app.RequireSession(ctx); err != nil {
			return err
		}
		return fn(ctx, app, args)
	})
}

func coursesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "courses",
		Short: "List the course catalog",
		Args:  cobra.NoArgs,
		RunE: protected(opts, func(ctx context.Context, app *App, _ []string) error {
			doc, err := app.api.Catalog(ctx)
			if err != nil {
				return err
			}
			fmt.Println(print.MaybePrettyJSON(doc))
			return nil
		}),
	}
}

func courseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "course <course-id>",
		Short: "Show a course with its videos",
		Args:  cobra.ExactArgs(1),
		RunE: protected(opts, func(ctx context.Context, app *App, args []string) error {
			id, err := parseID("course", args[0])
			if err != nil {
				return err
			}
			doc, err := app.api.CourseOverview(ctx, id)
			if err != nil {
				return err
			}
			fmt.Println(print.MaybePrettyJSON(doc))
			return nil
		}),
	}
}

func videoCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "video",
		Short: "Video session commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "start <course-id> <video-id>",
		Short: "Open a video session",
		Args:  cobra.ExactArgs(2),
		RunE: protected(opts, func(ctx context.Context, app *App, args []string) error {
			course, video, err := parseVideo(args)
			if err != nil {
				return err
			}
			doc, err := app.api.StartVideo(ctx, course, video)
			if err != nil {
				return err
			}
			fmt.Println(print.MaybePrettyJSON(doc))
			return nil
		}),
	})

	return cmd
}

func quizCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Quiz commands",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <course-id> <video-id>",
			Short: "Show the quiz of a video and, once submitted, its analysis",
			Args:  cobra.ExactArgs(2),
			RunE: protected(opts, func(ctx context.Context, app *App, args []string) error {
				course, video, err := parseVideo(args)
				if err != nil {
					return err
				}
				doc, err := app.api.QuizSession(ctx, course, video)
				if err != nil {
					return err
				}
				fmt.Println(print.MaybePrettyJSON(doc))
				return nil
			}),
		},
		&cobra.Command{
			Use:   "generate <course-id> <video-id>",
			Short: "Mark a video complete and generate its quiz",
			Args:  cobra.ExactArgs(2),
			RunE: protected(opts, func(ctx context.Context, app *App, args []string) error {
				course, video, err := parseVideo(args)
				if err != nil {
					return err
				}
				doc, err := app.api.GenerateQuiz(ctx, course, video)
				if err != nil {
					return err
				}
				fmt.Println(print.MaybePrettyJSON(doc))
				return nil
			}),
		},
		quizSubmitCmd(opts),
	)

	return cmd
}

func quizSubmitCmd(opts *rootOptions) *cobra.Command {
	var answersFile string

	cmd := &cobra.Command{
		Use:   "submit <course-id> <video-id>",
		Short: "Submit quiz answers read from a JSON file (- for stdin)",
		Args:  cobra.ExactArgs(2),
		RunE: protected(opts, func(ctx context.Context, app *App, args []string) error {
			course, video, err := parseVideo(args)
			if err != nil {
				return err
			}

			answers, err := readAnswers(answersFile)
			if err != nil {
				return err
			}

			doc, err := app.api.SubmitQuiz(ctx, course, video, answers)
			if err != nil {
				return err
			}
			fmt.Println(print.MaybePrettyJSON(doc))
			return nil
		}),
	}

	cmd.Flags().StringVarP(&answersFile, "answers", "a", "-", "JSON file with the selected answers")
	return cmd
}

func starsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stars",
		Short: "Show the total stars earned",
		Args:  cobra.NoArgs,
		RunE: protected(opts, func(ctx context.Context, app *App, _ []string) error {
			stars, err := app.api.TotalStars(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%d stars\n", stars.Count())
			return nil
		}),
	}
}

func dashboardCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show learning stats and recent activity",
		Args:  cobra.NoArgs,
		RunE: protected(opts, func(ctx context.Context, app *App, _ []string) error {
			info, err := app.api.DashboardInfo(ctx)
			if err != nil {
				return err
			}

			stars := 0
			if info.Stats.TotalStars != nil {
				stars = *info.Stats.TotalStars
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Quizzes completed\t%d\n", info.Stats.QuizzesCompleted)
			fmt.Fprintf(w, "Average score\t%.1f\n", info.Stats.AverageScore)
			fmt.Fprintf(w, "Total stars\t%d\n", stars)
			fmt.Fprintf(w, "Adaptation level\t%s\n", info.Stats.AdaptationLevel)
			fmt.Fprintf(w, "Started courses\t%d\n", len(info.StartedCourses))
			if err := w.Flush(); err != nil {
				return err
			}

			if len(info.Activities) == 0 {
				return nil
			}

			fmt.Println()
			now := time.Now()
			w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, a := range info.Activities {
				fmt.Fprintf(w, "%s\t%s\t%s\n", portal.TimeAgo(now, a.Date), a.Type, a.Title)
			}
			return w.Flush()
		}),
	}
}

func qtableCmd(opts *rootOptions) *cobra.Command {
	var (
		courseID int
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "qtable",
		Short: "Summarize the learned Q-tables per course",
		Args:  cobra.NoArgs,
		RunE: protected(opts, func(ctx context.Context, app *App, _ []string) error {
			tables, err := app.api.QTableOverall(ctx)
			if err != nil {
				return err
			}

			if courseID > 0 {
				for _, t := range tables {
					if t.CourseID == courseID {
						return printChart(t, asJSON)
					}
				}
				return fmt.Errorf("no Q-table for course %d", courseID)
			}

			summaries := portal.Summarize(tables)
			if asJSON {
				fmt.Println(print.MaybePrettyJSON(summaries))
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "COURSE\tTITLE\tENTRIES\tAVG Q\tLEVEL")
			for _, s := range summaries {
				fmt.Fprintf(w, "%d\t%s\t%d\t%.3f\t%s\n", s.CourseID, s.Title, s.Entries, s.Average, s.Level)
			}
			return w.Flush()
		}),
	}

	cmd.Flags().IntVar(&courseID, "course", 0, "Show the state/action chart of one course")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func printChart(t portal.CourseQTable, asJSON bool) error {
	rows := portal.ChartRows(t.QTable)
	if asJSON {
		fmt.Println(print.MaybePrettyJSON(rows))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "%s (level %s)\n", t.Title, portal.AILevel(portal.AverageQValue(t.QTable)))
	for _, r := range rows {
		actions := make([]string, 0, len(r.Actions))
		for action := range r.Actions {
			actions = append(actions, action)
		}
		sort.Strings(actions)
		for _, action := range actions {
			q := r.Actions[action]
			fmt.Fprintf(w, "%s\t%s\t%.3f\t%s\n", r.State, action, q, portal.QValueBand(q))
		}
	}
	return w.Flush()
}

func parseID(name, raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", name, raw)
	}
	return id, nil
}

func parseVideo(args []string) (int, int, error) {
	course, err := parseID("course", args[0])
	if err != nil {
		return 0, 0, err
	}
	video, err := parseID("video", args[1])
	if err != nil {
		return 0, 0, err
	}
	return course, video, nil
}

func readAnswers(path string) (any, error) {
	var (
		raw []byte
		err error
	)
	if path == "" || path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}

	var answers any
	if err := json.Unmarshal(raw, &answers); err != nil {
		return nil, fmt.Errorf("answers must be JSON: %w", err)
	}
	return answers, nil
}
