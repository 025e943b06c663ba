package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-print"
	"github.com/spf13/cobra"

	session "github.com/adaptivelearn/go-session"
)

func loginCmd(opts *rootOptions) *cobra.Command {
	var creds session.LoginCredentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Long:  "Log in with email and password. The password may also be given in PORTAL_PASSWORD.",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(ctx context.Context, app *App, _ []string) error {
			if creds.Password == "" {
				creds.Password = os.Getenv("PORTAL_PASSWORD")
			}

			res := app.orch.Login(ctx, creds)
			app.orch.Wait()
			if !res.OK() {
				return resultError("login", res)
			}

			state := app.orch.State().State()
			if !state.HasProfile() {
				app.logger.Warn("logged in, but the profile could not be loaded")
				fmt.Println("Logged in.")
				return nil
			}
			fmt.Printf("Logged in as %s\n", displayName(state.User))
			return nil
		}),
	}

	cmd.Flags().StringVar(&creds.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "Account password")
	return cmd
}

func registerCmd(opts *rootOptions) *cobra.Command {
	var fields session.RegisterFields

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(ctx context.Context, app *App, _ []string) error {
			if fields.Password == "" {
				fields.Password = os.Getenv("PORTAL_PASSWORD")
			}

			res := app.orch.Register(ctx, fields)
			if !res.OK() {
				return resultError("registration", res)
			}
			fmt.Println("Registration successful. Please log in.")
			return nil
		}),
	}

	cmd.Flags().StringVar(&fields.Username, "username", "", "Username")
	cmd.Flags().StringVar(&fields.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&fields.Password, "password", "", "Account password")
	return cmd
}

func logoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(_ context.Context, app *App, _ []string) error {
			app.orch.Logout()
			fmt.Println("Logged out.")
			return nil
		}),
	}
}

func refreshCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the refresh token for a new token pair",
		Long:  "Exchange the refresh token for a new token pair. Any failure logs the session out.",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(ctx context.Context, app *App, _ []string) error {
			res := app.orch.Refresh(ctx)
			if !res.OK() {
				return resultError("refresh", res)
			}
			fmt.Println("Session refreshed.")
			return nil
		}),
	}
}

func whoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the current user profile",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(ctx context.Context, app *App, _ []string) error {
			if err := app.RequireSession(ctx); err != nil {
				return err
			}
			app.guard.Wait()

			state := app.orch.State().State()
			if !state.HasProfile() {
				msgs := session.FormatErrorMessages(state.Error)
				return fmt.Errorf("profile unavailable: %s", strings.Join(msgs, "; "))
			}
			fmt.Println(print.MaybePrettyJSON(state.User))
			return nil
		}),
	}
}

type tokenStatus struct {
	Present   bool       `json:"present"`
	Type      string     `json:"type,omitempty"`
	UserID    string     `json:"user_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Remaining string     `json:"remaining,omitempty"`
	Expired   bool       `json:"expired,omitempty"`
	Error     string     `json:"error,omitempty"`
}

func statusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session state and token expiry",
		Long: `Show the session state and token expiry. Token contents are read
without signature verification and are informational only.`,
		Args: cobra.NoArgs,
		RunE: withApp(opts, func(_ context.Context, app *App, _ []string) error {
			state := app.orch.State().State()
			now := time.Now()

			out := map[string]any{
				"profile": app.cfg.Profile,
				"store":   app.cfg.Store,
				"state":   session.Classify(state).String(),
				"user":    displayName(state.User),
			}

			access, _ := app.store.Get(session.AccessTokenKey)
			refresh, _ := app.store.Get(session.RefreshTokenKey)
			out["access_token"] = inspect(access, now)
			out["refresh_token"] = inspect(refresh, now)

			fmt.Println(print.MaybePrettyJSON(out))
			return nil
		}),
	}
}

func inspect(raw string, now time.Time) tokenStatus {
	if raw == "" {
		return tokenStatus{}
	}
	st := tokenStatus{Present: true}
	info, err := session.InspectToken(raw)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Type = info.Type
	st.UserID = info.UserID
	if info.ExpiresAt != nil {
		st.ExpiresAt = info.ExpiresAt
		st.Expired = info.Expired(now)
		st.Remaining = info.Remaining(now).Round(time.Second).String()
	}
	return st
}

func displayName(user session.UserProfile) string {
	if user == nil {
		return ""
	}
	if name := user.FullName(); name != "" {
		return fmt.Sprintf("%s <%s>", name, user.Email())
	}
	return user.Email()
}

func resultError(op string, res *session.Result) error {
	msgs := session.FormatErrorMessages(res.Data)
	if res.Stale {
		return fmt.Errorf("%s superseded by a newer request", op)
	}
	if res.StatusCode > 0 {
		return fmt.Errorf("%s failed (HTTP %d): %s", op, res.StatusCode, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%s failed: %s", op, strings.Join(msgs, "; "))
}
