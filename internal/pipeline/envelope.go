package pipeline

import (
	"github.com/JonMunkholm/discrepancy/internal/discrepancy"
	"github.com/JonMunkholm/discrepancy/internal/document"
	"github.com/JonMunkholm/discrepancy/internal/rules"
)

// State is how far a document got through a run.
type State string

const (
	StateParsed    State = "parsed"
	StateSkipped   State = "skipped"
	StateDetected  State = "detected"
	StateFailed    State = "failed"
	StatePersisted State = "persisted"
	StateDuplicate State = "duplicate"
)

// Envelope carries one document between stages.
type Envelope struct {
	Source        string
	Document      document.Document
	Discrepancies []discrepancy.Record
	Diagnostics   []rules.Diagnostic
	State         State
	Err           error
}

// Partial reports whether at least one rule could not evaluate the document.
func (e Envelope) Partial() bool { return len(e.Diagnostics) > 0 }
