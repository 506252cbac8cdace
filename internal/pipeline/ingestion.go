package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync/atomic"

	"github.com/JonMunkholm/discrepancy/internal/ingest"
	"github.com/JonMunkholm/discrepancy/internal/logging"
)

// ErrNoDocuments is returned when the input directory has no matching files.
var ErrNoDocuments = errors.New("no documents to process")

// Ingestion lists the input directory and yields one envelope per file.
type Ingestion struct {
	parser *ingest.Parser
}

// NewIngestion returns an ingestion stage using parser.
func NewIngestion(parser *ingest.Parser) *Ingestion {
	return &Ingestion{parser: parser}
}

// Handle fails only if dir cannot be listed or holds no matching file.
// Files are parsed as the returned sequence is pulled; files that cannot
// be parsed yield skipped envelopes. The sequence can be consumed once.
func (s *Ingestion) Handle(ctx context.Context, dir string) (iter.Seq[Envelope], error) {
	files, err := s.parser.Files(dir)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", dir, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: nothing matches %q in %s", ErrNoDocuments, s.parser.Pattern(), dir)
	}

	logger := logging.FromContext(ctx)
	logger.Info("ingestion started", "dir", dir, "files", len(files))

	var used atomic.Bool
	return func(yield func(Envelope) bool) {
		if used.Swap(true) {
			logger.Warn("document sequence already consumed", "dir", dir)
			return
		}
		for _, path := range files {
			if !yield(s.envelope(ctx, path)) {
				return
			}
		}
	}, nil
}

func (s *Ingestion) envelope(ctx context.Context, path string) Envelope {
	doc, err := s.parser.ParseDocument(path)
	if err != nil {
		logging.WithFields(ctx, "source", path).Warn("document skipped", "error", err)
		return Envelope{Source: path, Document: doc, State: StateSkipped, Err: err}
	}
	return Envelope{Source: path, Document: doc, State: StateParsed}
}
