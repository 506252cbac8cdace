package pipeline

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/discrepancy/internal/ingest"
	"github.com/JonMunkholm/discrepancy/internal/logging"
	"github.com/JonMunkholm/discrepancy/internal/store"
)

// Options tune a run.
type Options struct {
	BatchSize int
}

// New chains ingestion, detection and persistence into one stage that
// takes a directory and returns the run report. Each call to Handle is a
// new run with its own run ID.
func New(parser *ingest.Parser, detector Detector, st store.Store, opts Options) Stage[string, Report] {
	var (
		ingestion   Stage[string, iter.Seq[Envelope]]             = NewIngestion(parser)
		detection   Stage[iter.Seq[Envelope], iter.Seq[Envelope]] = NewDetection(detector)
		persistence Stage[iter.Seq[Envelope], Report]             = NewPersistence(st, opts.BatchSize)
	)
	chain := Chain(Chain(ingestion, detection), persistence)

	return StageFunc[string, Report](func(ctx context.Context, dir string) (Report, error) {
		if logging.RunID(ctx) == "" {
			ctx = logging.WithRunID(ctx, uuid.NewString())
		}
		start := time.Now()

		report, err := chain.Handle(ctx, dir)
		report.Duration = time.Since(start)
		if report.RunID == "" {
			report.RunID = logging.RunID(ctx)
		}

		logging.FromContext(ctx).Info("run finished",
			"dir", dir,
			"documents", len(report.Documents),
			"found", report.Found,
			"stored", report.Stored,
			"duration", report.Duration,
		)
		return report, err
	})
}
