package postgres

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/discrepancy/internal/discrepancy"
	"github.com/JonMunkholm/discrepancy/internal/document"
	"github.com/JonMunkholm/discrepancy/internal/store"
)

// scanRow returns key from Scan, or err when set.
type scanRow struct {
	key string
	err error
}

func (r scanRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*string) = r.key
	return nil
}

// batchResults answers queued statements in order.
type batchResults struct {
	pgx.BatchResults
	rows   []scanRow
	next   int
	closed bool
}

func (b *batchResults) QueryRow() pgx.Row {
	r := b.rows[b.next]
	b.next++
	return r
}

func (b *batchResults) Close() error {
	b.closed = true
	return nil
}

type recordingTx struct {
	pgx.Tx
	results    *batchResults
	queued     int
	committed  bool
	rolledBack bool
}

func (tx *recordingTx) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	tx.queued = b.Len()
	return tx.results
}

func (tx *recordingTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}

func (tx *recordingTx) Rollback(context.Context) error {
	if tx.committed {
		return pgx.ErrTxClosed
	}
	tx.rolledBack = true
	return nil
}

type txDB struct {
	DB
	tx *recordingTx
}

func (db *txDB) Begin(context.Context) (pgx.Tx, error) { return db.tx, nil }

func newTxStore(rows ...scanRow) (*Store, *recordingTx) {
	tx := &recordingTx{results: &batchResults{rows: rows}}
	return New(&txDB{tx: tx}), tx
}

func TestInsertDocumentsSplitsConflicts(t *testing.T) {
	st, tx := newTxStore(
		scanRow{key: "t1"},
		scanRow{err: pgx.ErrNoRows},
		scanRow{key: "t3"},
	)
	docs := []document.Document{
		{ID: "t1", Header: []string{"A"}},
		{ID: "t2", Header: []string{"A"}},
		{ID: "t3", Header: []string{"A"}},
	}

	res, err := st.InsertDocuments(t.Context(), docs)
	if err != nil {
		t.Fatalf("InsertDocuments() error = %v", err)
	}
	if !slices.Equal(res.Inserted, []string{"t1", "t3"}) {
		t.Errorf("Inserted = %v, want [t1 t3]", res.Inserted)
	}
	if !slices.Equal(res.Conflicts, []string{"t2"}) {
		t.Errorf("Conflicts = %v, want [t2]", res.Conflicts)
	}
	if tx.queued != 3 || !tx.committed || !tx.results.closed {
		t.Errorf("queued=%d committed=%v closed=%v", tx.queued, tx.committed, tx.results.closed)
	}
}

func TestInsertBatchRollsBackOnStatementError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantConflict bool
	}{
		{"unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"other failure", errors.New("deadlock detected"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, tx := newTxStore(scanRow{key: "doc"}, scanRow{err: tt.err})
			recs := []discrepancy.Record{
				discrepancy.New("doc", discrepancy.KindMissingValue, "missing_values", discrepancy.Cell(0, 0), "missing"),
				discrepancy.New("doc", discrepancy.KindMissingMetadata, "footer_metadata", discrepancy.Table(), "no footer"),
			}

			_, err := st.InsertDiscrepancies(t.Context(), recs)
			if err == nil {
				t.Fatal("InsertDiscrepancies() expected error")
			}
			if got := errors.Is(err, store.ErrConflict); got != tt.wantConflict {
				t.Errorf("errors.Is(err, ErrConflict) = %v, want %v (err %v)", got, tt.wantConflict, err)
			}
			if tx.committed || !tx.rolledBack {
				t.Errorf("committed=%v rolledBack=%v, want rollback only", tx.committed, tx.rolledBack)
			}
			if !tx.results.closed {
				t.Error("batch results not closed")
			}
		})
	}
}

func TestInsertEmptyBatchSkipsTransaction(t *testing.T) {
	st := New(&txDB{})

	if res, err := st.InsertDocuments(t.Context(), nil); err != nil || res.Count() != 0 {
		t.Errorf("InsertDocuments(nil) = %+v, %v", res, err)
	}
	if res, err := st.InsertDiscrepancies(t.Context(), nil); err != nil || res.Count() != 0 {
		t.Errorf("InsertDiscrepancies(nil) = %+v, %v", res, err)
	}
}
