package auditlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"order-gateway/internal/interfaces"
)

// Schema creates the audit table used by PostgresStore.
const Schema = `CREATE TABLE IF NOT EXISTS audit_log (
	id         BIGSERIAL PRIMARY KEY,
	event      TEXT NOT NULL,
	detail     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore writes entries to the audit_log table, one row per command
// with the entry as JSONB detail.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ interfaces.AuditStore = (*PostgresStore)(nil)

// OpenPostgres connects to dsn, checks the connection and ensures the
// table exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create audit_log: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresStore uses an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Write(ctx context.Context, e interfaces.AuditEntry) error {
	detail, err := detailJSON(e)
	if err != nil {
		return err
	}
	const query = `INSERT INTO audit_log (event, detail) VALUES ($1, $2)`
	if _, err := s.pool.Exec(ctx, query, e.Operation, detail); err != nil {
		return fmt.Errorf("postgres: log audit event %s: %w", e.Operation, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func detailJSON(e interfaces.AuditEntry) ([]byte, error) {
	b, err := json.Marshal(record{ID: uuid.NewString(), AuditEntry: e})
	if err != nil {
		return nil, fmt.Errorf("postgres: marshal audit detail: %w", err)
	}
	return b, nil
}
