// Package document defines the canonical in-memory model of one parsed table.
//
// A Document is produced by ingestion and is read-only from then on: rules,
// the pipeline and the store all receive it by value and never write into
// its slices.
package document

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMalformed is wrapped by every shape violation reported by Validate.
var ErrMalformed = errors.New("malformed document")

// Unit describes how the values of a column were written in the source.
type Unit string

const (
	UnitNumber  Unit = "number"
	UnitPercent Unit = "percent"
)

// Row is one body row: a label (usually an entity name) and one value per
// header column. Blank source cells are stored as NaN.
type Row struct {
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
}

// Missing reports whether the value at column i was blank in the source.
func (r Row) Missing(i int) bool {
	return i >= 0 && i < len(r.Values) && math.IsNaN(r.Values[i])
}

// Document is one parsed table.
type Document struct {
	ID            string     `json:"table_id"`
	Title         string     `json:"title,omitempty"`
	Header        []string   `json:"header"`
	Body          []Row      `json:"body"`
	Units         []Unit     `json:"units,omitempty"`
	Footer        string     `json:"footer,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	OriginCountry string     `json:"origin_country,omitempty"`
	Source        string     `json:"source,omitempty"`
}

// Width returns the number of value columns.
func (d Document) Width() int {
	return len(d.Header)
}

// HasFooterMetadata reports whether the footer carried a creation date or country.
func (d Document) HasFooterMetadata() bool {
	return d.CreatedAt != nil || d.OriginCountry != ""
}

// Unit returns the unit of column i, defaulting to UnitNumber.
func (d Document) Unit(i int) Unit {
	if i < 0 || i >= len(d.Units) || d.Units[i] == "" {
		return UnitNumber
	}
	return d.Units[i]
}

// Column returns a copy of the values in column i, one per body row. Rows
// too short to have column i contribute NaN.
func (d Document) Column(i int) []float64 {
	out := make([]float64, len(d.Body))
	for r, row := range d.Body {
		if i >= 0 && i < len(row.Values) {
			out[r] = row.Values[i]
		} else {
			out[r] = math.NaN()
		}
	}
	return out
}

// Validate checks the shape invariants every consumer relies on: a non-empty
// ID and rows exactly as wide as the header.
func (d Document) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: missing table id", ErrMalformed)
	}
	if len(d.Units) != 0 && len(d.Units) != len(d.Header) {
		return fmt.Errorf("%w: %d units for %d columns", ErrMalformed, len(d.Units), len(d.Header))
	}
	for i, row := range d.Body {
		if len(row.Values) != len(d.Header) {
			return fmt.Errorf("%w: row %d (%q) has %d values, header has %d",
				ErrMalformed, i, row.Label, len(row.Values), len(d.Header))
		}
	}
	return nil
}
