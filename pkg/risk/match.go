// Package risk scans decoded variants against the signature registry and
// aggregates the evidence into a bounded, deterministic risk assessment.
package risk

import (
	"unicode/utf8"

	"github.com/moltbot/rampart/pkg/decode"
	"github.com/moltbot/rampart/pkg/signature"
)

// Match is evidence that one signature fired against one variant.
type Match struct {
	SignatureID string             `json:"signature_id"`
	Category    signature.Category `json:"category"`
	Weight      int                `json:"-"`
	VariantIdx  int                `json:"variant"` // index into the expansion's variant order
	Depth       int                `json:"depth"`
	Encoding    decode.Encoding    `json:"encoding"`
	Offset      int                `json:"offset"`
	Excerpt     string             `json:"excerpt"` // length-capped for the record
}

// Matcher runs every registry signature against every variant, the
// original depth-0 text included. All occurrences are recorded; scoring
// dedup happens later so the record still shows where each hit landed.
type Matcher struct {
	excerptMax int
}

func NewMatcher(excerptMax int) *Matcher {
	if excerptMax <= 0 {
		excerptMax = 120
	}
	return &Matcher{excerptMax: excerptMax}
}

// MatchAll returns every signature occurrence across the expansion.
func (m *Matcher) MatchAll(exp *decode.Expansion, snap *signature.Snapshot) []Match {
	var matches []Match

	for idx, v := range exp.Variants {
		for _, sig := range snap.All() {
			for _, loc := range sig.FindAll(v.Text) {
				matches = append(matches, Match{
					SignatureID: sig.ID,
					Category:    sig.Category,
					Weight:      sig.Weight,
					VariantIdx:  idx,
					Depth:       v.Depth,
					Encoding:    v.Kind,
					Offset:      loc[0],
					Excerpt:     capExcerpt(v.Text[loc[0]:loc[1]], m.excerptMax),
				})
			}
		}
	}

	return matches
}

// capExcerpt truncates on a rune boundary so the record never carries a
// split UTF-8 sequence.
func capExcerpt(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
