// Package chunking analyzes document structure, selects a chunking strategy and cuts
// normalized text into chunks.
package chunking

import (
	"fmt"

	"github.com/cloo-solutions/docrag/internal/domain"
)

// Weights of the structure score components.
const (
	HeadingWeight  = 0.4
	VarianceWeight = 0.4
	MarkerWeight   = 0.2
)

// Config holds every tunable of analysis, selection and chunking.
type Config struct {
	// DynamicThreshold is the structure score at or above which dynamic chunking is chosen.
	DynamicThreshold float64
	// MinDynamicLength is the document length in runes below which fixed chunking is forced.
	MinDynamicLength int
	// VarianceScale maps the paragraph-length coefficient of variation onto [0,1].
	VarianceScale float64
	// MarkerSaturation is the section marker count that maps to 1.
	MarkerSaturation int

	Fixed   domain.FixedParams
	Dynamic domain.DynamicParams
}

// DefaultConfig returns the default chunking configuration.
func DefaultConfig() Config {
	return Config{
		DynamicThreshold: 0.5,
		MinDynamicLength: 1000,
		VarianceScale:    1.0,
		MarkerSaturation: 10,
		Fixed: domain.FixedParams{
			TargetSize: 512,
			Overlap:    50,
			MinViable:  64,
		},
		Dynamic: domain.DynamicParams{
			MinSize: 200,
			MaxSize: 1000,
			Rules: domain.BoundaryRules{
				HeadingMaxRunes: 80,
			},
		},
	}
}

// Validate checks that the configuration can be applied.
func (c Config) Validate() error {
	if c.DynamicThreshold < 0 || c.DynamicThreshold > 1 {
		return fmt.Errorf("dynamic threshold must be in [0,1], got %v", c.DynamicThreshold)
	}
	if c.MinDynamicLength < 0 {
		return fmt.Errorf("min dynamic length cannot be negative")
	}
	if c.VarianceScale <= 0 {
		return fmt.Errorf("variance scale must be positive")
	}
	if c.MarkerSaturation <= 0 {
		return fmt.Errorf("marker saturation must be positive")
	}
	if c.Fixed.TargetSize <= 0 {
		return fmt.Errorf("fixed target size must be positive")
	}
	if c.Fixed.Overlap < 0 || c.Fixed.Overlap >= c.Fixed.TargetSize {
		return fmt.Errorf("fixed overlap must be in [0, %d), got %d", c.Fixed.TargetSize, c.Fixed.Overlap)
	}
	if c.Fixed.MinViable < 0 {
		return fmt.Errorf("fixed min viable size cannot be negative")
	}
	if c.Dynamic.Rules.HeadingMaxRunes <= 0 {
		return fmt.Errorf("heading max runes must be positive")
	}
	if c.Dynamic.MinSize <= 0 {
		return fmt.Errorf("dynamic min size must be positive")
	}
	// A heading plus its trailing blank line must always fit into a chunk that is still below MinSize.
	if c.Dynamic.MaxSize < c.Dynamic.MinSize+c.Dynamic.Rules.HeadingMaxRunes+2 {
		return fmt.Errorf("dynamic max size must be at least min size + heading max runes + 2")
	}
	return nil
}
