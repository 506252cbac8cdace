package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/JonMunkholm/discrepancy/internal/discrepancy"
	"github.com/JonMunkholm/discrepancy/internal/document"
)

// Memory is an in-process Store. It keeps insertion order so lookups are
// deterministic.
type Memory struct {
	mu       sync.RWMutex
	docs     map[string]document.Document
	recs     map[string]discrepancy.Record
	recOrder []string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string]document.Document),
		recs: make(map[string]discrepancy.Record),
	}
}

func (m *Memory) InsertDocuments(ctx context.Context, docs []document.Document) (InsertResult, error) {
	if err := ctx.Err(); err != nil {
		return InsertResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var res InsertResult
	for _, d := range docs {
		if _, exists := m.docs[d.ID]; exists {
			res.Conflicts = append(res.Conflicts, d.ID)
			continue
		}
		m.docs[d.ID] = d
		res.Inserted = append(res.Inserted, d.ID)
	}
	return res, nil
}

func (m *Memory) InsertDiscrepancies(ctx context.Context, recs []discrepancy.Record) (InsertResult, error) {
	if err := ctx.Err(); err != nil {
		return InsertResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate references first so a bad batch stores nothing.
	for _, r := range recs {
		if _, ok := m.docs[r.DocumentID]; !ok {
			return InsertResult{}, fmt.Errorf("discrepancy %s: unknown document %q", r.ID, r.DocumentID)
		}
	}

	var res InsertResult
	for _, r := range recs {
		if _, exists := m.recs[r.ID]; exists {
			res.Conflicts = append(res.Conflicts, r.ID)
			continue
		}
		m.recs[r.ID] = r
		m.recOrder = append(m.recOrder, r.ID)
		res.Inserted = append(res.Inserted, r.ID)
	}
	return res, nil
}

func (m *Memory) FindDocument(ctx context.Context, id string) (document.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.docs[id]
	if !ok {
		return document.Document{}, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return d, nil
}

func (m *Memory) FindDiscrepancies(ctx context.Context, f Filter) ([]discrepancy.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []discrepancy.Record
	for _, id := range m.recOrder {
		r := m.recs[id]
		if !f.Matches(r) {
			continue
		}
		out = append(out, r)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len returns the number of stored documents and discrepancies.
func (m *Memory) Len() (docs, recs int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs), len(m.recs)
}
