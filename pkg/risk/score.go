package risk

import (
	"sort"

	"github.com/moltbot/rampart/pkg/signature"
)

// Recommendation is the policy-independent outcome band of a score.
type Recommendation string

const (
	RecommendAllow Recommendation = "allow"
	RecommendWarn  Recommendation = "warn"
	RecommendBlock Recommendation = "block"
)

// Structural penalty weights. Each penalty is applied at most once and the
// final score is capped at 100.
const (
	PenaltyDepthLimit = 15 // decoder hit its depth ceiling
	PenaltyNesting    = 15 // structured nesting beyond the configured depth
	PenaltyNearSize   = 10 // payload within 10% of its size cap
	MaxScore          = 100
)

// Penalty names as they appear in assessments and decision records.
const (
	PenaltyNameDepth    = "depth_at_max"
	PenaltyNameNesting  = "oversized_nesting"
	PenaltyNameNearSize = "near_size_limit"
)

// Signals are the structural observations that feed the score alongside
// signature matches.
type Signals struct {
	HitDepthLimit bool // decoder stopped at max depth with content left
	NestingDepth  int  // measured bracket nesting of the raw text
	MaxNesting    int  // configured nesting allowance
	NearSizeLimit bool // payload within 10% of its cap
}

// Thresholds are the band boundaries, inclusive on the lower bound:
// score < Warn = allow; Warn <= score <= Block = warn; score > Block = block.
type Thresholds struct {
	Warn  int
	Block int
}

// Assessment is the scored, policy-independent evaluation of one unit.
// Computed once; never mutated after creation.
type Assessment struct {
	Score          int            `json:"score"`
	Recommendation Recommendation `json:"recommendation"`
	Matches        []Match        `json:"matches,omitempty"`
	Penalties      []string       `json:"penalties,omitempty"`
	Categories     []string       `json:"categories,omitempty"` // distinct matched categories, sorted
}

// Score aggregates matches and structural signals into an assessment.
//
// It is a pure function: identical inputs always produce the identical
// score and recommendation, which is what makes replay debugging and the
// test matrix possible. A signature contributes its weight at most once per
// unit no matter how many variants or offsets it fired on; nesting the
// same payload in more encodings must not inflate the score.
func Score(matches []Match, sig Signals, th Thresholds) Assessment {
	score := 0

	seen := map[string]bool{}
	catSeen := map[signature.Category]bool{}
	for _, m := range matches {
		if !seen[m.SignatureID] {
			seen[m.SignatureID] = true
			score += m.Weight
		}
		catSeen[m.Category] = true
	}
	if score > MaxScore {
		score = MaxScore
	}

	var penalties []string
	if sig.HitDepthLimit {
		score += PenaltyDepthLimit
		penalties = append(penalties, PenaltyNameDepth)
	}
	nestingFired := false
	if sig.MaxNesting > 0 && sig.NestingDepth > sig.MaxNesting {
		score += PenaltyNesting
		penalties = append(penalties, PenaltyNameNesting)
		nestingFired = true
	}
	if sig.NearSizeLimit {
		score += PenaltyNearSize
		penalties = append(penalties, PenaltyNameNearSize)
	}
	if score > MaxScore {
		score = MaxScore
	}

	categories := make([]string, 0, len(catSeen))
	for c := range catSeen {
		categories = append(categories, string(c))
	}
	sort.Strings(categories)

	rec := bandFor(score, th)
	// Oversized nesting floors the recommendation at warn regardless of
	// thresholds: a payload shaped to exhaust a parser is never clean, even
	// when its numeric score sits below the warn bound.
	if rec == RecommendAllow && nestingFired {
		rec = RecommendWarn
	}

	return Assessment{
		Score:          score,
		Recommendation: rec,
		Matches:        matches,
		Penalties:      penalties,
		Categories:     categories,
	}
}

// bandFor maps a score to its band. Boundaries are inclusive on the lower
// bound of each band: a score equal to the block threshold is still warn.
func bandFor(score int, th Thresholds) Recommendation {
	switch {
	case score > th.Block:
		return RecommendBlock
	case score >= th.Warn:
		return RecommendWarn
	default:
		return RecommendAllow
	}
}
