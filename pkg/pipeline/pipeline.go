// Package pipeline wires the evaluation stages together: normalize,
// expand, match, score, gate, record. It is the only package that sees
// every stage; each stage remains independently testable.
package pipeline

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/moltbot/rampart/pkg/audit"
	"github.com/moltbot/rampart/pkg/config"
	"github.com/moltbot/rampart/pkg/content"
	"github.com/moltbot/rampart/pkg/decode"
	"github.com/moltbot/rampart/pkg/policy"
	"github.com/moltbot/rampart/pkg/risk"
	"github.com/moltbot/rampart/pkg/signature"
	"github.com/moltbot/rampart/pkg/telemetry"
)

// Outcome is the complete result of one evaluation: the decision handed
// to the caller plus the record that was persisted for it.
type Outcome struct {
	Unit       *content.Unit
	Assessment risk.Assessment
	Decision   policy.Decision
	Record     audit.Record
}

// Pipeline runs evaluations against a pinned registry snapshot per call.
// All fields are set at construction; the pipeline itself is stateless
// and safe for concurrent use.
type Pipeline struct {
	cfg        *config.Config
	normalizer *content.Normalizer
	expander   *decode.Expander
	matcher    *risk.Matcher
	gate       *policy.Gate
	registry   *signature.Registry
	sink       audit.Sink
	counters   *telemetry.Counters
}

func New(cfg *config.Config, registry *signature.Registry, sink audit.Sink, counters *telemetry.Counters) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		normalizer: content.NewNormalizer(cfg),
		expander:   decode.NewExpander(cfg),
		matcher:    risk.NewMatcher(cfg.ExcerptMaxLen),
		gate:       policy.NewGate(cfg),
		registry:   registry,
		sink:       sink,
		counters:   counters,
	}
}

// Evaluate runs one input through every stage and persists a decision
// record before returning.
//
// A payload rejected by normalization (over cap, bad encoding) fails fast
// with no record: nothing was evaluated. A cancelled context also emits no
// record. Any panic inside the stages converts to a conservative block
// with the record's internal_error flag set; an analysis failure must
// never fail open.
func (p *Pipeline) Evaluate(ctx context.Context, in content.Input) (out *Outcome, err error) {
	unit, nerr := p.normalizer.Normalize(in)
	if nerr != nil {
		p.counters.ObserveRejected()
		return nil, nerr
	}

	snap := p.registry.Snapshot()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[PIPELINE] PANIC during evaluation of unit %s: %v", unit.ID, r)
			p.counters.ObserveError()
			out, err = p.failClosed(ctx, unit, snap)
		}
	}()

	expansion := p.expander.Expand(unit.Text)
	matches := p.matcher.MatchAll(expansion, snap)

	assessment := risk.Score(matches, risk.Signals{
		HitDepthLimit: expansion.HitDepthLimit,
		NestingDepth:  risk.NestingDepth(unit.Text),
		MaxNesting:    p.cfg.MaxNestingDepth,
		NearSizeLimit: unit.NearSizeLimit(),
	}, risk.Thresholds{Warn: p.cfg.WarnThreshold, Block: p.cfg.BlockThreshold})

	decision := p.gate.Decide(assessment, unit.Tier, unit.Text)

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	rec := buildRecord(unit, assessment, decision, snap.Version(), false)
	if aerr := p.sink.Append(ctx, rec); aerr != nil {
		// The decision stands; losing one record is logged, not fatal.
		log.Printf("[AUDIT] append failed for unit %s: %v", unit.ID, aerr)
	}

	p.counters.Observe(string(decision.Action))

	return &Outcome{
		Unit:       unit,
		Assessment: assessment,
		Decision:   decision,
		Record:     rec,
	}, nil
}

// failClosed produces the block outcome used when a stage panicked. The
// assessment pins the score at the maximum so the record explains the
// block on its own.
func (p *Pipeline) failClosed(ctx context.Context, unit *content.Unit, snap *signature.Snapshot) (*Outcome, error) {
	// Cancellation still means no side effects, panic or not.
	if cerr := ctx.Err(); cerr != nil {
		return nil, cerr
	}

	assessment := risk.Assessment{
		Score:          risk.MaxScore,
		Recommendation: risk.RecommendBlock,
	}
	decision := policy.Decision{
		Action: policy.ActionBlock,
		EffectiveThresholds: risk.Thresholds{
			Warn:  p.cfg.WarnThreshold,
			Block: p.cfg.BlockThreshold,
		},
	}

	version := "unknown"
	if snap != nil {
		version = snap.Version()
	}
	rec := buildRecord(unit, assessment, decision, version, true)
	if aerr := p.sink.Append(ctx, rec); aerr != nil {
		log.Printf("[AUDIT] append failed for unit %s: %v", unit.ID, aerr)
	}
	p.counters.Observe(string(policy.ActionBlock))

	return &Outcome{
		Unit:       unit,
		Assessment: assessment,
		Decision:   decision,
		Record:     rec,
	}, nil
}

func buildRecord(unit *content.Unit, a risk.Assessment, d policy.Decision, registryVersion string, internalErr bool) audit.Record {
	return audit.Record{
		RecordID:        uuid.NewString(),
		UnitID:          unit.ID,
		UnitHash:        unit.Hash(),
		SourceChannel:   unit.SourceChannel,
		TrustTier:       unit.Tier.String(),
		DeclaredType:    unit.DeclaredType,
		SizeBytes:       len(unit.Raw),
		Score:           a.Score,
		Recommendation:  string(a.Recommendation),
		Action:          string(d.Action),
		Categories:      a.Categories,
		Penalties:       a.Penalties,
		Matches:         audit.RecordMatches(a.Matches),
		RegistryVersion: registryVersion,
		Thresholds: audit.ThresholdSnapshot{
			Warn:  d.EffectiveThresholds.Warn,
			Block: d.EffectiveThresholds.Block,
		},
		InternalError: internalErr,
	}
}
