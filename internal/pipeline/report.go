package pipeline

import "time"

// DocumentResult is the outcome for one input file.
type DocumentResult struct {
	Source        string
	DocumentID    string
	State         State
	Partial       bool
	Discrepancies int
	Diagnostics   []string
	Err           error
}

// Report summarises a run. Documents are in ingestion order.
type Report struct {
	RunID     string
	Documents []DocumentResult
	Found     int // discrepancies detected
	Stored    int // discrepancies written
	Conflicts int // document and discrepancy keys that already existed
	Duration  time.Duration
}

// Counts tallies documents per outcome.
type Counts struct {
	Total     int
	Persisted int
	Skipped   int
	Failed    int
	Duplicate int
	Partial   int
}

func (r Report) Counts() Counts {
	c := Counts{Total: len(r.Documents)}
	for _, d := range r.Documents {
		switch d.State {
		case StatePersisted:
			c.Persisted++
		case StateSkipped:
			c.Skipped++
		case StateFailed:
			c.Failed++
		case StateDuplicate:
			c.Duplicate++
		}
		if d.Partial {
			c.Partial++
		}
	}
	return c
}

func resultOf(env Envelope) DocumentResult {
	res := DocumentResult{
		Source:        env.Source,
		DocumentID:    env.Document.ID,
		State:         env.State,
		Partial:       env.Partial(),
		Discrepancies: len(env.Discrepancies),
		Err:           env.Err,
	}
	for _, d := range env.Diagnostics {
		res.Diagnostics = append(res.Diagnostics, d.Error())
	}
	return res
}
