package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS decision_records (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	ts               TEXT NOT NULL,
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
	categories       TEXT,
	penalties        TEXT,
	matches          TEXT,
	registry_version TEXT NOT NULL,
	warn_threshold   INTEGER NOT NULL,
	block_threshold  INTEGER NOT NULL,
	internal_error   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_decision_records_unit ON decision_records(unit_id);
CREATE INDEX IF NOT EXISTS idx_decision_records_action ON decision_records(action);
`

// SQLiteSink persists decision records in an embedded database. Match and
// category details are stored as JSON columns; the scalar columns carry
// everything needed for querying by action, score, or unit.
type SQLiteSink struct {
	db *sql.DB
}

// OpenSQLiteSink opens (or creates) the decision record database.
func OpenSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open sqlite: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent appends.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: create schema: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

func (s *SQLiteSink) Append(ctx context.Context, rec Record) error {
	if rec.Timestamp == "" {
		rec.Timestamp = Now()
	}
	categories, err := marshalOrNull(rec.Categories)
	if err != nil {
		return fmt.Errorf("audit: marshal categories: %w", err)
	}
	penalties, err := marshalOrNull(rec.Penalties)
	if err != nil {
		return fmt.Errorf("audit: marshal penalties: %w", err)
	}
	matches, err := marshalOrNull(rec.Matches)
	if err != nil {
		return fmt.Errorf("audit: marshal matches: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decision_records (
			ts, record_id, unit_id, unit_hash, source_channel, trust_tier,
			declared_type, size_bytes, score, recommendation, action,
			categories, penalties, matches, registry_version,
			warn_threshold, block_threshold, internal_error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Timestamp, rec.RecordID, rec.UnitID, rec.UnitHash,
		rec.SourceChannel, rec.TrustTier, rec.DeclaredType, rec.SizeBytes,
		rec.Score, rec.Recommendation, rec.Action,
		categories, penalties, matches, rec.RegistryVersion,
		rec.Thresholds.Warn, rec.Thresholds.Block, boolToInt(rec.InternalError),
	)
	if err != nil {
		return fmt.Errorf("audit: insert record: %w", err)
	}
	return nil
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func marshalOrNull(v any) (any, error) {
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
	return string(b), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
