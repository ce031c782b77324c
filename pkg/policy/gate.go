// Package policy converts a risk assessment plus the source's trust tier
// into an enforcement action. The gate holds one immutable configuration
// value captured at construction; nothing here reads ambient state.
package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/moltbot/rampart/pkg/config"
	"github.com/moltbot/rampart/pkg/content"
	"github.com/moltbot/rampart/pkg/risk"
)

// Action is the enforcement outcome handed back to the caller.
type Action string

const (
	ActionAllow Action = "allow"
	ActionWarn  Action = "warn"
	ActionBlock Action = "block"
)

// Decision is the gate's output. On block, Content is nil: callers must
// not see the raw payload on block paths except through the decision
// record's length-capped excerpt, so the blocking layer cannot itself
// become an exfiltration channel.
type Decision struct {
	Action  Action
	Content *Sealed // nil when Action == ActionBlock

	// EffectiveThresholds are the tier-adjusted bands this decision used,
	// snapshotted for the record.
	EffectiveThresholds risk.Thresholds
}

// Gate enforces thresholds with per-tier shifts. Tier shifts can tighten
// freely; relaxation is bounded so the block rule can be moved within a
// safe range but never disabled.
type Gate struct {
	base   risk.Thresholds
	shifts map[string]config.TierShift
}

func NewGate(cfg *config.Config) *Gate {
	shifts := make(map[string]config.TierShift, len(cfg.TierShifts))
	for tier, shift := range cfg.TierShifts {
		shifts[tier] = shift
	}
	return &Gate{
		base:   risk.Thresholds{Warn: cfg.WarnThreshold, Block: cfg.BlockThreshold},
		shifts: shifts,
	}
}

// Decide maps an assessment and trust tier to an enforcement action.
//
// The unauthenticated tier always uses the base thresholds; no
// configuration can relax handling for anonymous sources. Signed and
// paired tiers apply their configured shifts, with the shifted block
// threshold clamped to the floor ceiling. The score-derived block band is
// a floor: whatever the tier, a score above the effective block threshold
// blocks.
func (g *Gate) Decide(a risk.Assessment, tier content.TrustTier, body string) Decision {
	th := g.thresholdsFor(tier)

	action := actionFor(a.Score, th)
	// The oversized-nesting floor survives tier shifts: no configuration
	// turns a nesting hit into a clean pass.
	if action == ActionAllow && hasNestingPenalty(a) {
		action = ActionWarn
	}
	if action == ActionBlock {
		return Decision{Action: ActionBlock, EffectiveThresholds: th}
	}

	sealed := &Sealed{
		body:       body,
		annotated:  body,
		categories: a.Categories,
		warned:     action == ActionWarn,
	}
	if action == ActionWarn {
		sealed.annotated = wrap(body, a)
	}

	return Decision{Action: action, Content: sealed, EffectiveThresholds: th}
}

func (g *Gate) thresholdsFor(tier content.TrustTier) risk.Thresholds {
	if tier == content.TierUnauthenticated {
		return g.base
	}
	shift, ok := g.shifts[tier.String()]
	if !ok {
		return g.base
	}

	th := risk.Thresholds{
		Warn:  g.base.Warn + shift.Warn,
		Block: g.base.Block + shift.Block,
	}
	// Relaxation is bounded; tightening is not.
	if th.Block > config.BlockFloorCeiling {
		th.Block = config.BlockFloorCeiling
	}
	if th.Warn > th.Block {
		th.Warn = th.Block
	}
	if th.Warn < 0 {
		th.Warn = 0
	}
	return th
}

func hasNestingPenalty(a risk.Assessment) bool {
	for _, p := range a.Penalties {
		if p == risk.PenaltyNameNesting {
			return true
		}
	}
	return false
}

func actionFor(score int, th risk.Thresholds) Action {
	switch {
	case score > th.Block:
		return ActionBlock
	case score >= th.Warn:
		return ActionWarn
	default:
		return ActionAllow
	}
}

// Wrapper markers. The digest lets a downstream consumer verify the body
// between the markers is the body the gate saw; the categories tell it
// what fired without exposing raw attacker text.
const (
	markerBegin = "-----BEGIN RAMPART UNTRUSTED CONTENT"
	markerEnd   = "-----END RAMPART UNTRUSTED CONTENT-----"
)

func wrap(body string, a risk.Assessment) string {
	sum := sha256.Sum256([]byte(body))
	header := fmt.Sprintf("%s score=%d categories=%s digest=sha256:%s-----",
		markerBegin, a.Score, strings.Join(a.Categories, ","), hex.EncodeToString(sum[:8]))
	return header + "\n" + body + "\n" + markerEnd
}

// VerifyWrapper checks a warn-wrapped payload's digest against its body.
// Returns the inner body and whether the digest matched.
func VerifyWrapper(annotated string) (body string, ok bool) {
	if !strings.HasPrefix(annotated, markerBegin) {
		return "", false
	}
	headerEnd := strings.Index(annotated, "\n")
	if headerEnd < 0 {
		return "", false
	}
	header := annotated[:headerEnd]
	rest := annotated[headerEnd+1:]

	tail := "\n" + markerEnd
	if !strings.HasSuffix(rest, tail) {
		return "", false
	}
	body = strings.TrimSuffix(rest, tail)

	idx := strings.Index(header, "digest=sha256:")
	if idx < 0 {
		return "", false
	}
	want := strings.TrimSuffix(header[idx+len("digest=sha256:"):], "-----")
	sum := sha256.Sum256([]byte(body))
	return body, hex.EncodeToString(sum[:8]) == want
}
