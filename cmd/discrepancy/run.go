package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/discrepancy/internal/ingest"
	"github.com/JonMunkholm/discrepancy/internal/pipeline"
	"github.com/JonMunkholm/discrepancy/internal/rules"
	"github.com/JonMunkholm/discrepancy/internal/store/postgres"
)

type runOptions struct {
	rulesFile string
	batchSize int
	pattern   string
	migrate   bool
}

func runCmd(a *app) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <dir>",
		Short: "Check every table file in dir and store the results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.rulesFile, "rules", "", "YAML rule set (default: DF_RULES_FILE or the built-in set)")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "Documents per store round-trip (default: DF_BATCH_SIZE)")
	cmd.Flags().StringVar(&opts.pattern, "pattern", "", "File name glob (default: DF_FILE_PATTERN)")
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "Apply database migrations before running")
	return cmd
}

func (a *app) run(cmd *cobra.Command, dir string, opts runOptions) error {
	cfg := a.cfg.Pipeline
	if opts.rulesFile != "" {
		cfg.RulesFile = opts.rulesFile
	}
	if opts.batchSize > 0 {
		cfg.BatchSize = opts.batchSize
	}
	if opts.pattern != "" {
		cfg.FilePattern = opts.pattern
	}

	registry, err := buildRegistry(cfg.RulesFile)
	if err != nil {
		return &exitError{code: exitFailure, err: err}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.RunTimeout)
	defer cancel()

	if opts.migrate {
		if _, err := postgres.Migrate(a.cfg.Database.URL, postgres.Up); err != nil {
			return &exitError{code: exitFailure, err: err}
		}
	}

	pool, err := postgres.Connect(ctx, a.cfg.Database)
	if err != nil {
		return &exitError{code: exitFailure, err: err}
	}
	defer pool.Close()

	parser := ingest.NewParser(ingest.WithPattern(cfg.FilePattern))
	run := pipeline.New(parser, registry, postgres.New(pool), pipeline.Options{BatchSize: cfg.BatchSize})

	report, err := run.Handle(ctx, dir)
	if len(report.Documents) > 0 {
		printReport(cmd.OutOrStdout(), report)
	}

	return runResult(report, err)
}

// runResult maps a finished run to the process outcome. A run in which no
// file yielded a checkable table found no documents, even if files matched.
func runResult(report pipeline.Report, err error) error {
	if err == nil && len(report.Documents) > 0 {
		c := report.Counts()
		if c.Persisted+c.Duplicate+c.Failed == 0 {
			err = fmt.Errorf("%w: all %d matching files were malformed", pipeline.ErrNoDocuments, c.Skipped)
		}
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, pipeline.ErrNoDocuments):
		return &exitError{code: exitNoDocuments, err: err}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &exitError{code: exitInterrupted, err: err}
	default:
		return &exitError{code: exitFailure, err: err}
	}
}

// buildRegistry loads the rule set from path, or the default set when path
// is empty.
func buildRegistry(path string) (*rules.Registry, error) {
	set := rules.DefaultSet()
	if path != "" {
		var err error
		if set, err = rules.LoadSet(path); err != nil {
			return nil, fmt.Errorf("rules file %s: %w", path, err)
		}
	}
	return rules.NewRegistry(set...), nil
}
