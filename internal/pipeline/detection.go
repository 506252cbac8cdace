package pipeline

import (
	"context"
	"fmt"
	"iter"

	"github.com/JonMunkholm/discrepancy/internal/document"
	"github.com/JonMunkholm/discrepancy/internal/logging"
	"github.com/JonMunkholm/discrepancy/internal/rules"
)

// Detector evaluates a document. *rules.Registry implements it.
type Detector interface {
	Run(ctx context.Context, doc document.Document) rules.Result
}

// Detection runs the detector on every parsed envelope.
type Detection struct {
	detector Detector
}

// NewDetection returns a detection stage using detector.
func NewDetection(detector Detector) *Detection {
	return &Detection{detector: detector}
}

// Handle never fails. Envelopes that are not parsed pass through as is.
func (s *Detection) Handle(ctx context.Context, in iter.Seq[Envelope]) (iter.Seq[Envelope], error) {
	return func(yield func(Envelope) bool) {
		for env := range in {
			if !yield(s.detect(ctx, env)) {
				return
			}
		}
	}, nil
}

func (s *Detection) detect(ctx context.Context, env Envelope) (out Envelope) {
	if env.State != StateParsed {
		return env
	}

	logger := logging.WithFields(ctx, "document_id", env.Document.ID, "source", env.Source)

	if err := env.Document.Validate(); err != nil {
		logger.Warn("document skipped", "error", err)
		env.State = StateSkipped
		env.Err = err
		return env
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("detection panicked", "panic", r)
			out = env
			out.Discrepancies = nil
			out.State = StateFailed
			out.Err = fmt.Errorf("detection panicked: %v", r)
		}
	}()

	res := s.detector.Run(ctx, env.Document)
	env.Discrepancies = res.Discrepancies
	env.Diagnostics = res.Diagnostics
	env.State = StateDetected

	logger.Debug("document checked",
		"discrepancies", len(res.Discrepancies),
		"diagnostics", len(res.Diagnostics),
	)
	return env
}
