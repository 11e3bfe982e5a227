package chunking

import (
	"time"

	"github.com/cloo-solutions/docrag/internal/domain"
)

// Select maps a structure score, document length and language to a chunking decision.
// An explicit fixed or dynamic override bypasses the policy. Language is recorded by the
// caller but never changes the outcome.
func Select(score domain.StructureScore, docLength int, _ domain.Language, cfg Config, override domain.Strategy) domain.ChunkingDecision {
	d := domain.ChunkingDecision{
		Score:     score,
		CreatedAt: time.Now().UTC(),
	}

	switch {
	case override == domain.StrategyFixed || override == domain.StrategyDynamic:
		d.Strategy = override
		d.Reason = domain.ReasonOverride
	case docLength < cfg.MinDynamicLength:
		d.Strategy = domain.StrategyFixed
		d.Reason = domain.ReasonBelowMinLength
	case score.Score >= cfg.DynamicThreshold:
		d.Strategy = domain.StrategyDynamic
		d.Reason = domain.ReasonScoreAboveThreshold
	default:
		d.Strategy = domain.StrategyFixed
		d.Reason = domain.ReasonScoreBelowThreshold
	}

	if d.Strategy == domain.StrategyDynamic {
		params := cfg.Dynamic
		params.Rules.SectionMarkers = append([]string(nil), cfg.Dynamic.Rules.SectionMarkers...)
		d.Dynamic = &params
	} else {
		params := cfg.Fixed
		d.Fixed = &params
	}
	return d
}
