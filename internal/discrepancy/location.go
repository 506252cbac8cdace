package discrepancy

import (
	"fmt"

	"github.com/JonMunkholm/discrepancy/internal/document"
)

// Whole is the sentinel index meaning "the entire row/column" rather than a
// specific offset.
const Whole = -1

// Scope is the granularity a Location addresses.
type Scope string

const (
	ScopeCell   Scope = "cell"
	ScopeRow    Scope = "row"
	ScopeColumn Scope = "column"
	ScopeTable  Scope = "table"
)

// Location addresses a cell, row, column or the whole table of a document.
// Row indexes Document.Body, Column indexes Document.Header.
type Location struct {
	Row    int `json:"row"`
	Column int `json:"column"`
}

// Cell addresses the value at body row r, column c.
func Cell(r, c int) Location { return Location{Row: r, Column: c} }

// RowOf addresses body row r as a whole.
func RowOf(r int) Location { return Location{Row: r, Column: Whole} }

// ColumnOf addresses column c as a whole.
func ColumnOf(c int) Location { return Location{Row: Whole, Column: c} }

// Table addresses the document as a whole.
func Table() Location { return Location{Row: Whole, Column: Whole} }

// Scope reports which granularity the location addresses.
func (l Location) Scope() Scope {
	switch {
	case l.Row == Whole && l.Column == Whole:
		return ScopeTable
	case l.Row == Whole:
		return ScopeColumn
	case l.Column == Whole:
		return ScopeRow
	default:
		return ScopeCell
	}
}

// ValidFor reports whether every non-sentinel index is a valid offset into doc.
func (l Location) ValidFor(doc document.Document) bool {
	if l.Row != Whole && (l.Row < 0 || l.Row >= len(doc.Body)) {
		return false
	}
	if l.Column != Whole && (l.Column < 0 || l.Column >= len(doc.Header)) {
		return false
	}
	return true
}

func (l Location) String() string {
	switch l.Scope() {
	case ScopeTable:
		return "table"
	case ScopeRow:
		return fmt.Sprintf("row %d", l.Row)
	case ScopeColumn:
		return fmt.Sprintf("column %d", l.Column)
	default:
		return fmt.Sprintf("row %d, column %d", l.Row, l.Column)
	}
}
