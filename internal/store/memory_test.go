package store

import (
	"context"
	"errors"
	"testing"

	"github.com/JonMunkholm/discrepancy/internal/discrepancy"
	"github.com/JonMunkholm/discrepancy/internal/document"
)

func TestMemoryInsertDocumentsConflicts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	res, err := m.InsertDocuments(ctx, []document.Document{{ID: "a"}, {ID: "b"}})
	if err != nil {
		t.Fatalf("InsertDocuments() error: %v", err)
	}
	if res.Count() != 2 || len(res.Conflicts) != 0 {
		t.Errorf("first insert = %+v", res)
	}

	res, err = m.InsertDocuments(ctx, []document.Document{{ID: "b", Title: "changed"}, {ID: "c"}})
	if err != nil {
		t.Fatalf("InsertDocuments() error: %v", err)
	}
	if len(res.Conflicts) != 1 || res.Conflicts[0] != "b" {
		t.Errorf("Conflicts = %v, want [b]", res.Conflicts)
	}
	if len(res.Inserted) != 1 || res.Inserted[0] != "c" {
		t.Errorf("Inserted = %v, want [c]", res.Inserted)
	}

	got, err := m.FindDocument(ctx, "b")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "" {
		t.Errorf("conflicting insert overwrote document: %+v", got)
	}
}

func TestMemoryInsertDiscrepancies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, err := m.InsertDocuments(ctx, []document.Document{{ID: "a"}}); err != nil {
		t.Fatal(err)
	}

	r1 := discrepancy.New("a", discrepancy.KindOutlier, "column_outlier", discrepancy.Cell(0, 0), "")
	r2 := discrepancy.New("a", discrepancy.KindMissingValue, "missing_values", discrepancy.Cell(1, 0), "")

	res, err := m.InsertDiscrepancies(ctx, []discrepancy.Record{r1, r2})
	if err != nil || res.Count() != 2 {
		t.Fatalf("InsertDiscrepancies() = %+v, %v", res, err)
	}

	res, err = m.InsertDiscrepancies(ctx, []discrepancy.Record{r1})
	if err != nil || len(res.Conflicts) != 1 {
		t.Errorf("re-insert = %+v, %v, want one conflict", res, err)
	}

	orphan := discrepancy.New("missing", discrepancy.KindOutlier, "x", discrepancy.Table(), "")
	if _, err := m.InsertDiscrepancies(ctx, []discrepancy.Record{orphan}); err == nil {
		t.Error("InsertDiscrepancies() accepted record for unknown document")
	}
	if _, n := m.Len(); n != 2 {
		t.Errorf("stored %d discrepancies, want 2", n)
	}
}

func TestMemoryFindDiscrepancies(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	if _, err := m.InsertDocuments(ctx, []document.Document{{ID: "a"}, {ID: "b"}}); err != nil {
		t.Fatal(err)
	}
	recs := []discrepancy.Record{
		discrepancy.New("a", discrepancy.KindOutlier, "column_outlier", discrepancy.Cell(0, 0), "1"),
		discrepancy.New("b", discrepancy.KindOutlier, "column_outlier", discrepancy.Cell(0, 0), "2"),
		discrepancy.New("a", discrepancy.KindMissingValue, "missing_values", discrepancy.Cell(0, 1), "3"),
	}
	if _, err := m.InsertDiscrepancies(ctx, recs); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"1", "2", "3"}},
		{"by document", Filter{DocumentID: "a"}, []string{"1", "3"}},
		{"by kind", Filter{Kind: discrepancy.KindOutlier}, []string{"1", "2"}},
		{"by rule", Filter{Rule: "missing_values"}, []string{"3"}},
		{"limit", Filter{Limit: 2}, []string{"1", "2"}},
		{"no match", Filter{DocumentID: "zzz"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.FindDiscrepancies(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d records, want %d", len(got), len(tt.want))
			}
			for i, r := range got {
				if r.Detail != tt.want[i] {
					t.Errorf("[%d] = %s, want %s", i, r.Detail, tt.want[i])
				}
			}
		})
	}
}

func TestMemoryFindDocumentNotFound(t *testing.T) {
	_, err := NewMemory().FindDocument(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestMemoryCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMemory()
	if _, err := m.InsertDocuments(ctx, []document.Document{{ID: "a"}}); !errors.Is(err, context.Canceled) {
		t.Errorf("InsertDocuments() error = %v, want context.Canceled", err)
	}
	if err := m.Ping(ctx); err == nil {
		t.Error("Ping() on canceled context expected error")
	}
}
