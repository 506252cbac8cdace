// Package discrepancy defines the record emitted for every anomaly a rule
// detects in a document, and the location scheme that points back into it.
package discrepancy

import (
	"time"

	"github.com/google/uuid"
)

// Kind tags what sort of anomaly a record describes. It is an open set:
// rules may introduce their own kinds without touching this package.
type Kind string

// Built-in kinds.
const (
	KindMissingMetadata  Kind = "missing_metadata"
	KindTitleTooShort    Kind = "title_too_short"
	KindDateOutOfRange   Kind = "date_out_of_range"
	KindSumExceeded      Kind = "sum_exceeded"
	KindEmptyBody        Kind = "empty_body"
	KindRowWidthMismatch Kind = "row_width_mismatch"
	KindOutOfRange       Kind = "out_of_range"
	KindMissingValue     Kind = "missing_value"
	KindOutlier          Kind = "outlier"
	KindTotalMismatch    Kind = "total_mismatch"
	KindDuplicateLabel   Kind = "duplicate_label"
)

// Record is one detected anomaly. Records are created by rules during
// detection and never modified afterwards.
type Record struct {
	ID         string         `json:"discrepancy_id"`
	DocumentID string         `json:"document_id"`
	Kind       Kind           `json:"kind"`
	Rule       string         `json:"rule"`
	Location   Location       `json:"location"`
	Detail     string         `json:"detail"`
	Params     map[string]any `json:"params,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// New creates a record with a fresh, never reused ID.
func New(documentID string, kind Kind, rule string, loc Location, detail string) Record {
	return Record{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Kind:       kind,
		Rule:       rule,
		Location:   loc,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
}

// WithParams returns a copy of r carrying the given rule parameters.
func (r Record) WithParams(params map[string]any) Record {
	if len(params) == 0 {
		return r
	}
	cp := make(map[string]any, len(params))
	for k, v := range params {
		cp[k] = v
	}
	r.Params = cp
	return r
}

// SameFinding reports whether two records describe the same anomaly,
// ignoring the generated ID and creation time.
func (r Record) SameFinding(other Record) bool {
	return r.DocumentID == other.DocumentID &&
		r.Kind == other.Kind &&
		r.Rule == other.Rule &&
		r.Location == other.Location &&
		r.Detail == other.Detail
}
