// Package audit defines the immutable decision record and the sinks that
// persist it. A record is written atomically at the end of an evaluation
// or not at all; there are no partial records.
package audit

import (
	"context"
	"time"

	"github.com/moltbot/rampart/pkg/risk"
)

// RecordedMatch is the excerpted form of a match carried in a record.
// Excerpts are length-capped upstream; a record never holds full payloads.
type RecordedMatch struct {
	SignatureID string `json:"signature_id"`
	Category    string `json:"category"`
	Depth       int    `json:"depth"`
	Encoding    string `json:"encoding"`
	Offset      int    `json:"offset"`
	Excerpt     string `json:"excerpt"`
}

// ThresholdSnapshot captures the tier-adjusted bands a decision used.
type ThresholdSnapshot struct {
	Warn  int `json:"warn"`
	Block int `json:"block"`
}

// Record is one immutable audit artifact per completed evaluation.
// All fields are structs and scalars (no map[string]any) so json.Marshal
// field order is deterministic, which the hash-chained file sink relies on.
type Record struct {
	Timestamp       string            `json:"ts"`
	RecordID        string            `json:"record_id"`
	UnitID          string            `json:"unit_id"`
	UnitHash        string            `json:"unit_hash"` // sha256 of raw payload
	SourceChannel   string            `json:"source_channel"`
	TrustTier       string            `json:"trust_tier"`
	DeclaredType    string            `json:"declared_type,omitempty"`
	SizeBytes       int               `json:"size_bytes"`
	Score           int               `json:"score"`
	Recommendation  string            `json:"recommendation"`
	Action          string            `json:"action"`
	Categories      []string          `json:"categories,omitempty"`
	Penalties       []string          `json:"penalties,omitempty"`
	Matches         []RecordedMatch   `json:"matches,omitempty"`
	RegistryVersion string            `json:"registry_version"`
	Thresholds      ThresholdSnapshot `json:"thresholds"`
	InternalError   bool              `json:"internal_error,omitempty"`
	PrevHash        string            `json:"prev_hash,omitempty"` // file sink chain only
}

// RecordMatches converts matcher output to the excerpted record form.
func RecordMatches(matches []risk.Match) []RecordedMatch {
	if len(matches) == 0 {
		return nil
	}
	out := make([]RecordedMatch, len(matches))
	for i, m := range matches {
		out[i] = RecordedMatch{
			SignatureID: m.SignatureID,
			Category:    string(m.Category),
			Depth:       m.Depth,
			Encoding:    string(m.Encoding),
			Offset:      m.Offset,
			Excerpt:     m.Excerpt,
		}
	}
	return out
}

// Now returns the record timestamp format used across all sinks.
func Now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// Sink persists decision records. Append must be atomic per record: a
// record is fully persisted or not at all.
type Sink interface {
	Append(ctx context.Context, rec Record) error
	Close() error
}
