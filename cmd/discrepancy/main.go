// Command discrepancy finds anomalies in HTML tables and stores them.
//
//	discrepancy run <dir>       detect and persist
//	discrepancy migrate [up]    manage the database schema
//	discrepancy serve           read-only JSON API over stored results
//
// Configuration comes from DF_ environment variables, optionally seeded
// from a .env file in the working directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/discrepancy/internal/apperr"
	"github.com/JonMunkholm/discrepancy/internal/config"
	"github.com/JonMunkholm/discrepancy/internal/logging"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitNoDocuments = 2
	exitInterrupted = 3
)

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// app is shared by all subcommands once the root has loaded configuration.
type app struct {
	cfg      *config.Config
	logLevel string
}

func main() {
	err := rootCmd().ExecuteContext(context.Background())
	if err == nil {
		os.Exit(exitOK)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if apperr.IsUserFacing(err) {
		fmt.Fprintln(os.Stderr, apperr.FormatUserError(err))
	}

	var ee *exitError
	if errors.As(err, &ee) {
		os.Exit(ee.code)
	}
	os.Exit(exitFailure)
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "discrepancy",
		Short:         "Find discrepancies in HTML tables",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}

	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override DF_LOG_LEVEL (debug, info, warn, error)")

	cmd.AddCommand(runCmd(a), migrateCmd(a), serveCmd(a))
	return cmd
}

// load reads .env and the environment, then configures logging.
func (a *app) load() error {
	// Overload lets .env win over variables already exported.
	envLoaded := godotenv.Overload() == nil

	cfg, err := config.Load()
	if err != nil {
		return &exitError{code: exitFailure, err: err}
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Debug("configuration loaded", "env_file", envLoaded, "config", cfg.String())
	a.cfg = cfg
	return nil
}
