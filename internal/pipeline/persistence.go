package pipeline

import (
	"context"
	"fmt"
	"iter"

	"github.com/JonMunkholm/discrepancy/internal/discrepancy"
	"github.com/JonMunkholm/discrepancy/internal/document"
	"github.com/JonMunkholm/discrepancy/internal/logging"
	"github.com/JonMunkholm/discrepancy/internal/store"
)

// DefaultBatchSize is the number of documents written per store call.
const DefaultBatchSize = 100

// Persistence writes detected documents and their discrepancies.
type Persistence struct {
	store     store.Store
	batchSize int
}

// NewPersistence returns a persistence stage. batchSize < 1 selects
// DefaultBatchSize.
func NewPersistence(st store.Store, batchSize int) *Persistence {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Persistence{store: st, batchSize: batchSize}
}

// pendingEnvelope is a detected envelope waiting for its batch, with its
// position in the report.
type pendingEnvelope struct {
	index int
	env   Envelope
}

// Handle drains in and returns the run report. A failing batch marks its
// documents failed and the run goes on. Cancellation is checked after each
// document: the pending batch is still written, then the report is
// returned together with ctx.Err().
func (s *Persistence) Handle(ctx context.Context, in iter.Seq[Envelope]) (Report, error) {
	logger := logging.FromContext(ctx)
	report := Report{RunID: logging.RunID(ctx)}

	var pending []pendingEnvelope
	flush := func(ctx context.Context) {
		if len(pending) == 0 {
			return
		}
		envs := make([]Envelope, len(pending))
		for i, p := range pending {
			envs[i] = p.env
		}
		s.persist(ctx, envs, &report)
		for i, p := range pending {
			report.Documents[p.index] = resultOf(envs[i])
		}
		pending = pending[:0]
	}

	for env := range in {
		index := len(report.Documents)
		report.Documents = append(report.Documents, resultOf(env))
		report.Found += len(env.Discrepancies)

		if env.State == StateDetected {
			pending = append(pending, pendingEnvelope{index: index, env: env})
			if len(pending) >= s.batchSize {
				flush(ctx)
			}
		}

		if err := ctx.Err(); err != nil {
			flush(context.WithoutCancel(ctx))
			logger.Warn("run interrupted", "documents", len(report.Documents), "error", err)
			return report, err
		}
	}
	flush(ctx)

	counts := report.Counts()
	logger.Info("persistence finished",
		"documents", counts.Total,
		"persisted", counts.Persisted,
		"skipped", counts.Skipped,
		"failed", counts.Failed,
		"duplicate", counts.Duplicate,
		"discrepancies", report.Stored,
	)
	return report, nil
}

// persist writes one batch and sets the final state of each envelope.
func (s *Persistence) persist(ctx context.Context, envs []Envelope, report *Report) {
	logger := logging.FromContext(ctx)

	// Within a batch the first envelope per document ID wins.
	var docs []document.Document
	first := make(map[string]int, len(envs))
	for i := range envs {
		id := envs[i].Document.ID
		if _, seen := first[id]; seen {
			envs[i].State = StateDuplicate
			envs[i].Err = fmt.Errorf("document %s: %w", id, store.ErrConflict)
			report.Conflicts++
			continue
		}
		first[id] = i
		docs = append(docs, envs[i].Document)
	}

	docRes, err := s.store.InsertDocuments(ctx, docs)
	if err != nil {
		logger.Error("batch failed", "documents", len(docs), "error", err)
		failBatch(envs, fmt.Errorf("store documents: %w", err))
		return
	}

	for _, id := range docRes.Conflicts {
		i := first[id]
		envs[i].State = StateDuplicate
		envs[i].Err = fmt.Errorf("document %s: %w", id, store.ErrConflict)
		report.Conflicts++
	}

	var recs []discrepancy.Record
	seen := make(map[string]bool)
	for _, id := range docRes.Inserted {
		for _, r := range envs[first[id]].Discrepancies {
			if seen[r.ID] {
				logger.Warn("duplicate discrepancy in batch", "discrepancy_id", r.ID, "document_id", id)
				report.Conflicts++
				continue
			}
			seen[r.ID] = true
			recs = append(recs, r)
		}
	}

	recRes, err := s.store.InsertDiscrepancies(ctx, recs)
	if err != nil {
		logger.Error("storing discrepancies failed", "discrepancies", len(recs), "error", err)
		for _, id := range docRes.Inserted {
			i := first[id]
			envs[i].State = StateFailed
			envs[i].Err = fmt.Errorf("store discrepancies: %w", err)
		}
		return
	}
	report.Stored += recRes.Count()
	report.Conflicts += len(recRes.Conflicts)

	for _, id := range docRes.Inserted {
		envs[first[id]].State = StatePersisted
	}

	logger.Info("batch persisted",
		"documents", docRes.Count(),
		"duplicates", len(docRes.Conflicts),
		"discrepancies", recRes.Count(),
	)
}

func failBatch(envs []Envelope, err error) {
	for i := range envs {
		if envs[i].State == StateDetected {
			envs[i].State = StateFailed
			envs[i].Err = err
		}
	}
}
