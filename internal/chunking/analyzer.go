package chunking

import (
	"math"
	"unicode/utf8"

	"github.com/cloo-solutions/docrag/internal/domain"
)

// Analyze computes the structure score of normalized text. The result is deterministic.
// Empty text and single-unit text are degenerate and score 0.
func Analyze(text string, cfg Config) domain.StructureScore {
	return analyzeUnits(Segment(text, cfg.Dynamic.Rules), cfg)
}

func analyzeUnits(units []Unit, cfg Config) domain.StructureScore {
	var s domain.StructureScore
	var paragraphLens []float64

	for _, u := range units {
		s.LineCount += u.Lines
		switch u.Kind {
		case UnitHeading:
			s.HeadingCount++
			if u.Numbered {
				s.SectionMarkerCount++
			}
		case UnitMarker:
			s.SectionMarkerCount++
		case UnitParagraph:
			s.ParagraphCount++
			paragraphLens = append(paragraphLens, float64(utf8.RuneCountInString(u.Text)))
		}
	}

	if len(units) <= 1 || s.LineCount == 0 {
		return s
	}

	s.HeadingDensity = float64(s.HeadingCount) / float64(s.LineCount)
	s.ParagraphVariance = coefficientOfVariation(paragraphLens)
	s.Score = clamp01(
		HeadingWeight*s.HeadingDensity +
			VarianceWeight*clamp01(s.ParagraphVariance/cfg.VarianceScale) +
			MarkerWeight*clamp01(float64(s.SectionMarkerCount)/float64(cfg.MarkerSaturation)),
	)
	return s
}

// coefficientOfVariation returns the population standard deviation divided by the mean.
func coefficientOfVariation(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	if mean == 0 {
		return 0
	}
	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return math.Sqrt(sq/float64(len(xs))) / mean
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
