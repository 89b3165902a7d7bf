package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-energy/meridian-docs/internal/money"
)

// PostgresStore persists documents in the documents table. The per-kind
// field bag and line items live in JSONB columns; shared columns are typed.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs the store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, kind Kind, id string) (*Document, error) {
	const query = `
		SELECT id, kind, doc_number, period_key, doc_date, branch, currency, fields, lines, totals, created_at
		FROM documents
		WHERE kind = $1 AND id = $2
	`
	row := s.pool.QueryRow(ctx, query, string(kind), id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("docstore: get %s/%s: %w", kind, id, err)
	}
	return doc, nil
}

func (s *PostgresStore) Put(ctx context.Context, doc *Document) error {
	fields, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("docstore: marshal fields: %w", err)
	}
	lines, err := json.Marshal(doc.Lines)
	if err != nil {
		return fmt.Errorf("docstore: marshal lines: %w", err)
	}
	totals, err := json.Marshal(doc.Totals)
	if err != nil {
		return fmt.Errorf("docstore: marshal totals: %w", err)
	}
	const query = `
		INSERT INTO documents (id, kind, doc_number, period_key, doc_date, branch, currency, fields, lines, totals, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = s.pool.Exec(ctx, query,
		doc.ID, string(doc.Kind), doc.Number, doc.PeriodKey, doc.Date, doc.Branch, doc.Currency,
		fields, lines, totals, createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("docstore: put %s/%s: %w", doc.Kind, doc.ID, err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]Document, error) {
	query := `
		SELECT id, kind, doc_number, period_key, doc_date, branch, currency, fields, lines, totals, created_at
		FROM documents
		WHERE 1=1
	`
	args := make([]any, 0, 5)
	if len(filter.Kinds) > 0 {
		kinds := make([]string, 0, len(filter.Kinds))
		for _, k := range filter.Kinds {
			kinds = append(kinds, string(k))
		}
		args = append(args, kinds)
		query += fmt.Sprintf(" AND kind = ANY($%d)", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND doc_date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND doc_date <= $%d", len(args))
	}
	if filter.Branch != "" {
		args = append(args, filter.Branch)
		query += fmt.Sprintf(" AND branch = $%d", len(args))
	}
	query += " ORDER BY doc_date, doc_number"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("docstore: list: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("docstore: list scan: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docstore: list rows: %w", err)
	}
	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var (
		doc    Document
		kind   string
		fields []byte
		lines  []byte
		totals []byte
	)
	if err := row.Scan(
		&doc.ID, &kind, &doc.Number, &doc.PeriodKey, &doc.Date, &doc.Branch, &doc.Currency,
		&fields, &lines, &totals, &doc.CreatedAt,
	); err != nil {
		return nil, err
	}
	doc.Kind = Kind(kind)
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &doc.Fields); err != nil {
			return nil, err
		}
	}
	if len(lines) > 0 {
		if err := json.Unmarshal(lines, &doc.Lines); err != nil {
			return nil, err
		}
	}
	if len(totals) > 0 {
		var t money.Totals
		if err := json.Unmarshal(totals, &t); err != nil {
			return nil, err
		}
		doc.Totals = t
	}
	return &doc, nil
}

// PostgresCounterStore backs sequence counters with the document_counters
// table. The upsert is a single atomic statement, so concurrent increments
// for the same key serialize inside Postgres and never lose an update.
type PostgresCounterStore struct {
	pool *pgxpool.Pool
}

// NewPostgresCounterStore constructs the counter store.
func NewPostgresCounterStore(pool *pgxpool.Pool) *PostgresCounterStore {
	return &PostgresCounterStore{pool: pool}
}

func (s *PostgresCounterStore) Current(ctx context.Context, docType, periodKey string) (int64, error) {
	const query = `SELECT last_value FROM document_counters WHERE doc_type = $1 AND period_key = $2`
	var value int64
	if err := s.pool.QueryRow(ctx, query, docType, periodKey).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("docstore: current counter %s/%s: %w", docType, periodKey, err)
	}
	return value, nil
}

func (s *PostgresCounterStore) Increment(ctx context.Context, docType, periodKey string) (int64, error) {
	const query = `
		INSERT INTO document_counters (doc_type, period_key, last_value)
		VALUES ($1, $2, 1)
		ON CONFLICT (doc_type, period_key)
		DO UPDATE SET last_value = document_counters.last_value + 1, updated_at = now()
		RETURNING last_value
	`
	var value int64
	if err := s.pool.QueryRow(ctx, query, docType, periodKey).Scan(&value); err != nil {
		if isRetryableConflict(err) {
			return 0, ErrConflict
		}
		return 0, fmt.Errorf("docstore: increment counter %s/%s: %w", docType, periodKey, err)
	}
	return value, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isRetryableConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// serialization failure / deadlock: safe to retry the increment
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
