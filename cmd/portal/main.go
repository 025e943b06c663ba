// Package main provides the portal binary: a command line client for the
// learning portal that keeps a session between invocations.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "portal"
)

type rootOptions struct {
	configPath string
	logLevel   string
	profile    string
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Learning portal client",
		Long: `Portal is a command line client for the adaptive learning portal.

It keeps the session (access token, refresh token and cached profile)
in a local credential store, so commands can be chained:

  portal login --email me@example.com
  portal courses
  portal qtable`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.profile, "profile", "", "Credential profile name")

	cmd.AddCommand(
		loginCmd(opts),
		registerCmd(opts),
		logoutCmd(opts),
		refreshCmd(opts),
		whoamiCmd(opts),
		statusCmd(opts),
		coursesCmd(opts),
		courseCmd(opts),
		videoCmd(opts),
		quizCmd(opts),
		starsCmd(opts),
		dashboardCmd(opts),
		qtableCmd(opts),
		serveCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
			},
		},
	)

	return cmd
}

// withApp builds the App for one command run and always closes it.
func withApp(opts *rootOptions, fn func(ctx context.Context, app *App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		app, err := newApp(ctx, opts)
		if err != nil {
			return err
		}

		runErr := fn(ctx, app, args)
		if err := app.Close(); err != nil && runErr == nil {
			runErr = err
		}
		return runErr
	}
}
