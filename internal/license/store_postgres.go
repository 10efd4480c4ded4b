package license

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultPostgresTable = "deployment_license"

// validIdentifier matches safe PostgreSQL identifiers.
var validIdentifier = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithTableName overrides the table name. Default: "deployment_license".
func WithTableName(name string) PostgresOption {
	return func(s *PostgresStore) {
		s.table = name
	}
}

// PostgresStore implements Store on a single-row PostgreSQL table. The
// compare-and-replace is a conditional UPDATE on the revision column, so
// concurrent activations across service replicas cannot interleave.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

// NewPostgresStore creates a PostgreSQL-backed store and auto-creates its
// table on initialization.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool, table: defaultPostgresTable}
	for _, opt := range opts {
		opt(s)
	}
	if !validIdentifier.MatchString(s.table) {
		return nil, fmt.Errorf("invalid table name %q: must match [a-zA-Z_][a-zA-Z0-9_]*", s.table)
	}
	if err := s.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) ensureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id        INT PRIMARY KEY CHECK (id = 1),
			revision  BIGINT NOT NULL,
			record    JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`, s.table)
	_, err := s.pool.Exec(ctx, query)
	return err
}

// Read loads the record row.
func (s *PostgresStore) Read(ctx context.Context) (*Record, error) {
	query := fmt.Sprintf(`SELECT revision, record FROM %s WHERE id = 1`, s.table)

	var revision int64
	var body []byte
	err := s.pool.QueryRow(ctx, query).Scan(&revision, &body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read record: %v", ErrStoreUnavailable, err)
	}

	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("%w: parse record: %v", ErrStoreUnavailable, err)
	}
	rec.Revision = revision
	return &rec, nil
}

// Replace installs rec if the stored revision matches expectedRevision.
func (s *PostgresStore) Replace(ctx context.Context, expectedRevision int64, rec *Record) error {
	rec.Revision = expectedRevision + 1
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: marshal record: %v", ErrStoreUnavailable, err)
	}

	if expectedRevision == 0 {
		query := fmt.Sprintf(`
			INSERT INTO %s (id, revision, record) VALUES (1, $1, $2)
			ON CONFLICT (id) DO NOTHING
		`, s.table)
		tag, err := s.pool.Exec(ctx, query, rec.Revision, body)
		if err != nil {
			return fmt.Errorf("%w: insert record: %v", ErrStoreUnavailable, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrRevisionConflict
		}
		return nil
	}

	query := fmt.Sprintf(`
		UPDATE %s SET revision = $1, record = $2, updated_at = NOW()
		WHERE id = 1 AND revision = $3
	`, s.table)
	tag, err := s.pool.Exec(ctx, query, rec.Revision, body, expectedRevision)
	if err != nil {
		return fmt.Errorf("%w: update record: %v", ErrStoreUnavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRevisionConflict
	}
	return nil
}
