// Package store defines the persistence collaborator of the pipeline.
//
// Inserts never overwrite: a document or discrepancy whose ID is already
// stored is reported in InsertResult.Conflicts and left untouched.
package store

import (
	"context"
	"errors"

	"github.com/JonMunkholm/discrepancy/internal/discrepancy"
	"github.com/JonMunkholm/discrepancy/internal/document"
)

var (
	// ErrNotFound is returned by lookups for an unknown ID.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by single-item writes whose key already exists.
	ErrConflict = errors.New("duplicate key")
)

// InsertResult lists, per input key, whether it was stored or conflicted.
type InsertResult struct {
	Inserted  []string
	Conflicts []string
}

// Count returns the number of keys stored.
func (r InsertResult) Count() int { return len(r.Inserted) }

// Filter narrows FindDiscrepancies. Zero fields match everything.
type Filter struct {
	DocumentID string
	Kind       discrepancy.Kind
	Rule       string
	Limit      int
}

// Matches reports whether rec passes the filter, ignoring Limit.
func (f Filter) Matches(rec discrepancy.Record) bool {
	if f.DocumentID != "" && rec.DocumentID != f.DocumentID {
		return false
	}
	if f.Kind != "" && rec.Kind != f.Kind {
		return false
	}
	if f.Rule != "" && rec.Rule != f.Rule {
		return false
	}
	return true
}

// Store persists documents and discrepancies keyed by their IDs.
type Store interface {
	InsertDocuments(ctx context.Context, docs []document.Document) (InsertResult, error)
	InsertDiscrepancies(ctx context.Context, recs []discrepancy.Record) (InsertResult, error)
	FindDocument(ctx context.Context, id string) (document.Document, error)
	FindDiscrepancies(ctx context.Context, f Filter) ([]discrepancy.Record, error)
	Ping(ctx context.Context) error
}
