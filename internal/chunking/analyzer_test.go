package chunking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyze_ExactWeightedCombination(t *testing.T) {
	cfg := DefaultConfig()
	s := Analyze(structuredDoc, cfg)

	assert.Equal(t, 2, s.HeadingCount)
	assert.Equal(t, 3, s.ParagraphCount)
	assert.Equal(t, 7, s.LineCount)
	assert.Equal(t, 2, s.SectionMarkerCount, "one rule line and one numbered heading")
	assert.InDelta(t, 2.0/7.0, s.HeadingDensity, 1e-9)

	// paragraph lengths: 46, 11 and 16 runes
	mean := (46.0 + 11.0 + 16.0) / 3
	sd := math.Sqrt((math.Pow(46-mean, 2) + math.Pow(11-mean, 2) + math.Pow(16-mean, 2)) / 3)
	assert.InDelta(t, sd/mean, s.ParagraphVariance, 1e-9)

	want := 0.4*(2.0/7.0) + 0.4*(sd/mean) + 0.2*(2.0/10.0)
	assert.InDelta(t, want, s.Score, 1e-9)
}

func TestAnalyze_VarianceAndMarkersSaturate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VarianceScale = 0.1
	cfg.MarkerSaturation = 1

	s := Analyze(structuredDoc, cfg)

	want := 0.4*(2.0/7.0) + 0.4*1 + 0.2*1
	assert.InDelta(t, want, s.Score, 1e-9)
}

func TestAnalyze_Degenerate(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"single paragraph", "Only one paragraph here.\nIt wraps onto a second line."},
		{"single heading", "# Title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Analyze(tt.text, cfg)
			assert.Zero(t, s.Score)
			assert.Zero(t, s.HeadingDensity)
			assert.Zero(t, s.ParagraphVariance)
		})
	}
}

func TestAnalyze_UniformParagraphsScoreLow(t *testing.T) {
	text := "aaaa bbbb cccc dddd.\n\neeee ffff gggg hhhh.\n\niiii jjjj kkkk llll.\n\nmmmm nnnn oooo pppp."
	s := Analyze(text, DefaultConfig())

	assert.Equal(t, 4, s.ParagraphCount)
	assert.Zero(t, s.HeadingCount)
	assert.Zero(t, s.ParagraphVariance)
	assert.Zero(t, s.Score)
}

func TestAnalyze_Deterministic(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, Analyze(structuredDoc, cfg), Analyze(structuredDoc, cfg))
}

func TestAnalyze_ScoreBounded(t *testing.T) {
	text := "# A\n\n# B\n\n# C\n\n---\n\n---\n\nx"
	s := Analyze(text, DefaultConfig())

	assert.GreaterOrEqual(t, s.Score, 0.0)
	assert.LessOrEqual(t, s.Score, 1.0)
}
