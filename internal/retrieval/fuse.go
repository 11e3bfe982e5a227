// Package retrieval fuses vector and lexical search results and assembles the
// bounded context handed to answer generation.
package retrieval

import (
	"fmt"
	"math"
	"sort"

	"github.com/cloo-solutions/docrag/internal/domain"
)

// Config holds the ranking and context assembly tunables.
type Config struct {
	// Alpha weighs the normalized vector score against the normalized lexical score.
	Alpha float64
	// TopK is the default number of fused candidates returned for a query.
	TopK int
	// CandidateMultiplier scales TopK into the per-path search depth.
	CandidateMultiplier int
	// ContextBudget is the maximum context size in runes.
	ContextBudget int
	// DedupeWindow is the span overlap in runes above which a candidate is dropped.
	DedupeWindow int
}

// DefaultConfig returns the default retrieval configuration.
func DefaultConfig() Config {
	return Config{
		Alpha:               0.6,
		TopK:                5,
		CandidateMultiplier: 2,
		ContextBudget:       4000,
		DedupeWindow:        25,
	}
}

// Validate checks that the configuration can be applied.
func (c Config) Validate() error {
	if c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("fusion alpha must be in [0,1], got %v", c.Alpha)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top k must be positive")
	}
	if c.CandidateMultiplier < 1 {
		return fmt.Errorf("candidate multiplier must be at least 1")
	}
	if c.ContextBudget <= 0 {
		return fmt.Errorf("context budget must be positive")
	}
	if c.DedupeWindow < 0 {
		return fmt.Errorf("dedupe window cannot be negative")
	}
	return nil
}

// SearchDepth returns how many hits each search path should fetch for k results.
func (c Config) SearchDepth(k int) int {
	return k * max(c.CandidateMultiplier, 1)
}

type fusionCandidate struct {
	cand       domain.RetrievalCandidate
	hasVector  bool
	hasLexical bool
}

// Fuse merges vector and lexical hits into at most k candidates ordered by fused score.
//
// Each list is min-max scaled over the candidate set. A chunk missing from a list counts
// as a raw zero when that list's range is computed and contributes nothing to the fused
// score. Ties fall back to the raw vector score, then the lower sequence, then the chunk id.
func Fuse(vectorHits, lexicalHits []domain.ScoredHit, k int, cfg Config) []domain.RetrievalCandidate {
	if k <= 0 {
		return []domain.RetrievalCandidate{}
	}

	candidates := make(map[string]*fusionCandidate)
	addList := func(list []domain.ScoredHit, vector bool) {
		for _, h := range list {
			if h.ChunkID == "" {
				continue
			}
			fc, ok := candidates[h.ChunkID]
			if !ok {
				fc = &fusionCandidate{cand: domain.RetrievalCandidate{
					ChunkID:    h.ChunkID,
					DocumentID: h.DocumentID,
					Sequence:   h.Sequence,
				}}
				candidates[h.ChunkID] = fc
			}
			if vector {
				if !fc.hasVector || h.Score > fc.cand.VectorScore {
					fc.cand.VectorScore = h.Score
				}
				fc.hasVector = true
				fc.cand.Sources |= domain.SourceVector
			} else {
				if !fc.hasLexical || h.Score > fc.cand.LexicalScore {
					fc.cand.LexicalScore = h.Score
				}
				fc.hasLexical = true
				fc.cand.Sources |= domain.SourceLexical
			}
		}
	}
	addList(vectorHits, true)
	addList(lexicalHits, false)

	vecScale := newMinMax(candidates, func(fc *fusionCandidate) (float64, bool) {
		return fc.cand.VectorScore, fc.hasVector
	})
	lexScale := newMinMax(candidates, func(fc *fusionCandidate) (float64, bool) {
		return fc.cand.LexicalScore, fc.hasLexical
	})

	out := make([]*fusionCandidate, 0, len(candidates))
	for _, fc := range candidates {
		if fc.hasVector {
			fc.cand.VectorNorm = vecScale.apply(fc.cand.VectorScore)
		}
		if fc.hasLexical {
			fc.cand.LexicalNorm = lexScale.apply(fc.cand.LexicalScore)
		}
		fc.cand.FusedScore = cfg.Alpha*fc.cand.VectorNorm + (1-cfg.Alpha)*fc.cand.LexicalNorm
		out = append(out, fc)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.cand.FusedScore != b.cand.FusedScore {
			return a.cand.FusedScore > b.cand.FusedScore
		}
		if av, bv := rawVector(a), rawVector(b); av != bv {
			return av > bv
		}
		if a.cand.Sequence != b.cand.Sequence {
			return a.cand.Sequence < b.cand.Sequence
		}
		return a.cand.ChunkID < b.cand.ChunkID
	})

	if len(out) > k {
		out = out[:k]
	}
	results := make([]domain.RetrievalCandidate, len(out))
	for i, fc := range out {
		results[i] = fc.cand
	}
	return results
}

// rawVector ranks candidates without a vector hit below every candidate that has one.
func rawVector(fc *fusionCandidate) float64 {
	if !fc.hasVector {
		return math.Inf(-1)
	}
	return fc.cand.VectorScore
}

type minMax struct {
	lo, hi float64
	ok     bool
}

func newMinMax(candidates map[string]*fusionCandidate, score func(*fusionCandidate) (float64, bool)) minMax {
	var m minMax
	absent := false
	for _, fc := range candidates {
		s, present := score(fc)
		if !present {
			absent = true
			continue
		}
		if !m.ok {
			m.lo, m.hi, m.ok = s, s, true
			continue
		}
		m.lo = math.Min(m.lo, s)
		m.hi = math.Max(m.hi, s)
	}
	if m.ok && absent {
		m.lo = math.Min(m.lo, 0)
		m.hi = math.Max(m.hi, 0)
	}
	return m
}

func (m minMax) apply(s float64) float64 {
	if !m.ok {
		return 0
	}
	if m.hi == m.lo {
		return 1
	}
	return (s - m.lo) / (m.hi - m.lo)
}
