// Package postgres implements store.Store on PostgreSQL using pgx.
//
// Each insert call runs as one pgx batch inside a transaction, so a call
// either stores every non-conflicting row or nothing. Conflicts are
// detected with ON CONFLICT DO NOTHING RETURNING: a statement that returns
// no row hit an existing key.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/discrepancy/internal/discrepancy"
	"github.com/JonMunkholm/discrepancy/internal/document"
	"github.com/JonMunkholm/discrepancy/internal/store"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
	Ping(context.Context) error
}

// Store persists documents and discrepancies in PostgreSQL.
type Store struct {
	db DB
}

var _ store.Store = (*Store)(nil)

// New returns a store backed by db.
func New(db DB) *Store {
	return &Store{db: db}
}

const insertDocumentSQL = `
INSERT INTO documents (table_id, title, header, body, units, footer, created_at, origin_country, source)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (table_id) DO NOTHING
RETURNING table_id`

const insertDiscrepancySQL = `
INSERT INTO discrepancies (discrepancy_id, document_id, kind, rule, row_index, column_index, detail, params, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (discrepancy_id) DO NOTHING
RETURNING document_id`

func (s *Store) InsertDocuments(ctx context.Context, docs []document.Document) (store.InsertResult, error) {
	if len(docs) == 0 {
		return store.InsertResult{}, nil
	}

	batch := &pgx.Batch{}
	keys := make([]string, len(docs))
	for i, d := range docs {
		body, err := encodeBody(d.Body)
		if err != nil {
			return store.InsertResult{}, fmt.Errorf("encode document %s: %w", d.ID, err)
		}
		batch.Queue(insertDocumentSQL,
			d.ID, d.Title, nonNil(d.Header), body, encodeUnits(d.Units),
			d.Footer, d.CreatedAt, d.OriginCountry, d.Source,
		)
		keys[i] = d.ID
	}

	return s.insertBatch(ctx, "documents", batch, keys)
}

func (s *Store) InsertDiscrepancies(ctx context.Context, recs []discrepancy.Record) (store.InsertResult, error) {
	if len(recs) == 0 {
		return store.InsertResult{}, nil
	}

	batch := &pgx.Batch{}
	keys := make([]string, len(recs))
	for i, r := range recs {
		id, err := toPgUUID(r.ID)
		if err != nil {
			return store.InsertResult{}, err
		}
		params, err := encodeParams(r.Params)
		if err != nil {
			return store.InsertResult{}, fmt.Errorf("encode params of %s: %w", r.ID, err)
		}
		batch.Queue(insertDiscrepancySQL,
			id, r.DocumentID, string(r.Kind), r.Rule,
			toPgIndex(r.Location.Row), toPgIndex(r.Location.Column),
			r.Detail, params, r.CreatedAt,
		)
		keys[i] = r.ID
	}

	return s.insertBatch(ctx, "discrepancies", batch, keys)
}

func (s *Store) insertBatch(ctx context.Context, what string, batch *pgx.Batch, keys []string) (store.InsertResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return store.InsertResult{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	res, err := collect(tx.SendBatch(ctx, batch), keys)
	if err != nil {
		return store.InsertResult{}, fmt.Errorf("insert %s: %w", what, mapError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return store.InsertResult{}, fmt.Errorf("commit %s: %w", what, err)
	}
	return res, nil
}

// collect reads one RETURNING row per queued statement.
func collect(br pgx.BatchResults, keys []string) (res store.InsertResult, err error) {
	defer func() {
		if cerr := br.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	for _, key := range keys {
		var returned string
		scanErr := br.QueryRow().Scan(&returned)
		switch {
		case errors.Is(scanErr, pgx.ErrNoRows):
			res.Conflicts = append(res.Conflicts, key)
		case scanErr != nil:
			return store.InsertResult{}, scanErr
		default:
			res.Inserted = append(res.Inserted, key)
		}
	}
	return res, nil
}

// mapError tags unique violations with store.ErrConflict.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %w", store.ErrConflict, err)
	}
	return err
}

const selectDocumentSQL = `
SELECT table_id, title, header, body, units, footer, created_at, origin_country, source
FROM documents
WHERE table_id = $1`

func (s *Store) FindDocument(ctx context.Context, id string) (document.Document, error) {
	var (
		d       document.Document
		body    []byte
		units   []string
		created *time.Time
	)
	err := s.db.QueryRow(ctx, selectDocumentSQL, id).Scan(
		&d.ID, &d.Title, &d.Header, &body, &units, &d.Footer, &created, &d.OriginCountry, &d.Source,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return document.Document{}, fmt.Errorf("document %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return document.Document{}, fmt.Errorf("find document %s: %w", id, err)
	}

	d.Body, err = decodeBody(body)
	if err != nil {
		return document.Document{}, fmt.Errorf("document %s: %w", id, err)
	}
	d.Units = decodeUnits(units)
	if created != nil {
		utc := created.UTC()
		d.CreatedAt = &utc
	}
	return d, nil
}

func (s *Store) FindDiscrepancies(ctx context.Context, f store.Filter) ([]discrepancy.Record, error) {
	query, args := discrepancyQuery(f)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find discrepancies: %w", err)
	}
	defer rows.Close()

	var out []discrepancy.Record
	for rows.Next() {
		var (
			r        discrepancy.Record
			kind     string
			row, col pgtype.Int4
			params   []byte
		)
		if err := rows.Scan(&r.ID, &r.DocumentID, &kind, &r.Rule, &row, &col, &r.Detail, &params, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan discrepancy: %w", err)
		}
		r.Kind = discrepancy.Kind(kind)
		r.Location = discrepancy.Location{Row: fromPgIndex(row), Column: fromPgIndex(col)}
		r.CreatedAt = r.CreatedAt.UTC()
		if r.Params, err = decodeParams(params); err != nil {
			return nil, fmt.Errorf("discrepancy %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find discrepancies: %w", err)
	}
	return out, nil
}

// discrepancyQuery builds the filtered select, oldest insert first.
func discrepancyQuery(f store.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		where = append(where, column+" = $"+strconv.Itoa(len(args)))
	}
	if f.DocumentID != "" {
		add("document_id", f.DocumentID)
	}
	if f.Kind != "" {
		add("kind", string(f.Kind))
	}
	if f.Rule != "" {
		add("rule", f.Rule)
	}

	var b strings.Builder
	b.WriteString("SELECT discrepancy_id::text, document_id, kind, rule, row_index, column_index, detail, params, created_at FROM discrepancies")
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY seq")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		b.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}
	return b.String(), args
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
