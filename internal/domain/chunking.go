package domain

import (
	"fmt"
	"time"
)

// Strategy is the chunking scheme chosen for a document
type Strategy string

const (
	StrategyAuto    Strategy = "auto"
	StrategyFixed   Strategy = "fixed"
	StrategyDynamic Strategy = "dynamic"
)

// ParseStrategy maps user input to a Strategy. Empty input means auto.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyAuto:
		return StrategyAuto, nil
	case StrategyFixed, StrategyDynamic:
		return Strategy(s), nil
	}
	return "", NewDomainError(ErrCodeValidation, fmt.Sprintf("invalid chunking strategy: %s", s))
}

// DecisionReason records why the selector picked a strategy
type DecisionReason string

const (
	ReasonScoreAboveThreshold DecisionReason = "score_above_threshold"
	ReasonScoreBelowThreshold DecisionReason = "score_below_threshold"
	ReasonBelowMinLength      DecisionReason = "below_min_length"
	ReasonOverride            DecisionReason = "override"
)

// BoundaryRules parameterize the shared structural boundary detection
type BoundaryRules struct {
	HeadingMaxRunes int      `json:"heading_max_runes" yaml:"heading_max_runes"`
	SectionMarkers  []string `json:"section_markers,omitempty" yaml:"section_markers"`
}

// FixedParams are the parameters of a fixed-window chunking run
type FixedParams struct {
	TargetSize int `json:"target_size"`
	Overlap    int `json:"overlap"`
	MinViable  int `json:"min_viable"`
}

// DynamicParams are the parameters of a structure-aware chunking run
type DynamicParams struct {
	MinSize int           `json:"min_size"`
	MaxSize int           `json:"max_size"`
	Rules   BoundaryRules `json:"rules"`
}

// ChunkingDecision is the tagged outcome of strategy selection.
// Exactly one of Fixed or Dynamic is set, matching Strategy.
type ChunkingDecision struct {
	DocumentID string
	Strategy   Strategy
	Reason     DecisionReason
	Score      StructureScore
	Fixed      *FixedParams
	Dynamic    *DynamicParams
	CreatedAt  time.Time
}

// ValidateChunkingDecision validates that the decision's parameters match its strategy
func ValidateChunkingDecision(d *ChunkingDecision) error {
	if d == nil {
		return fmt.Errorf("chunking decision cannot be nil")
	}

	switch d.Strategy {
	case StrategyFixed:
		if d.Fixed == nil || d.Dynamic != nil {
			return fmt.Errorf("fixed decision must carry only fixed parameters")
		}
		if d.Fixed.TargetSize <= 0 {
			return fmt.Errorf("fixed TargetSize must be positive")
		}
		if d.Fixed.Overlap < 0 || d.Fixed.Overlap >= d.Fixed.TargetSize {
			return fmt.Errorf("fixed Overlap must be in [0, TargetSize)")
		}
	case StrategyDynamic:
		if d.Dynamic == nil || d.Fixed != nil {
			return fmt.Errorf("dynamic decision must carry only dynamic parameters")
		}
		if d.Dynamic.MinSize <= 0 || d.Dynamic.MaxSize < d.Dynamic.MinSize {
			return fmt.Errorf("dynamic sizes must satisfy 0 < MinSize <= MaxSize")
		}
	default:
		return fmt.Errorf("chunking decision Strategy is invalid: %s", d.Strategy)
	}

	return nil
}
