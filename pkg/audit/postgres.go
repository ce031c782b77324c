package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS decision_records (
	id               BIGSERIAL PRIMARY KEY,
	ts               TIMESTAMPTZ NOT NULL DEFAULT now(),
	record_id        TEXT NOT NULL UNIQUE,
	unit_id          TEXT NOT NULL,
	unit_hash        TEXT NOT NULL,
	source_channel   TEXT NOT NULL,
	trust_tier       TEXT NOT NULL,
	declared_type    TEXT,
	size_bytes       INTEGER NOT NULL,
	score            INTEGER NOT NULL,
	recommendation   TEXT NOT NULL,
	action           TEXT NOT NULL,
	categories       JSONB,
	penalties        JSONB,
	matches          JSONB,
	registry_version TEXT NOT NULL,
	warn_threshold   INTEGER NOT NULL,
	block_threshold  INTEGER NOT NULL,
	internal_error   BOOLEAN NOT NULL DEFAULT false
);
CREATE INDEX IF NOT EXISTS idx_decision_records_unit ON decision_records(unit_id);
CREATE INDEX IF NOT EXISTS idx_decision_records_action ON decision_records(action);
`

// PostgresSink persists decision records in a shared database for
// deployments where multiple gateway instances feed one audit store.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// OpenPostgresSink connects and ensures the schema exists.
func OpenPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("audit: create schema: %w", err)
	}
	return &PostgresSink{pool: pool}, nil
}

func (s *PostgresSink) Append(ctx context.Context, rec Record) error {
	if rec.Timestamp == "" {
		rec.Timestamp = Now()
	}
	categories, err := jsonbOrNil(rec.Categories)
	if err != nil {
		return fmt.Errorf("audit: marshal categories: %w", err)
	}
	penalties, err := jsonbOrNil(rec.Penalties)
	if err != nil {
		return fmt.Errorf("audit: marshal penalties: %w", err)
	}
	matches, err := jsonbOrNil(rec.Matches)
	if err != nil {
		return fmt.Errorf("audit: marshal matches: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO decision_records (
			ts, record_id, unit_id, unit_hash, source_channel, trust_tier,
			declared_type, size_bytes, score, recommendation, action,
			categories, penalties, matches, registry_version,
			warn_threshold, block_threshold, internal_error
		) VALUES ($1::timestamptz, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
			$12, $13, $14, $15, $16, $17, $18)`,
		rec.Timestamp, rec.RecordID, rec.UnitID, rec.UnitHash,
		rec.SourceChannel, rec.TrustTier, rec.DeclaredType, rec.SizeBytes,
		rec.Score, rec.Recommendation, rec.Action,
		categories, penalties, matches, rec.RegistryVersion,
		rec.Thresholds.Warn, rec.Thresholds.Block, rec.InternalError,
	)
	if err != nil {
		return fmt.Errorf("audit: insert record: %w", err)
	}
	return nil
}

func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}

func jsonbOrNil(v any) (any, error) {
	switch x := v.(type) {
	case []string:
		if len(x) == 0 {
			return nil, nil
		}
	case []RecordedMatch:
		if len(x) == 0 {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}
