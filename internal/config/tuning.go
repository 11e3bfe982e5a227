package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cloo-solutions/docrag/internal/chunking"
	"github.com/cloo-solutions/docrag/internal/retrieval"
)

// Tuning is a YAML profile of chunking and retrieval overrides. Unset fields keep the
// value they are applied to.
//
//	chunking:
//	  dynamic_threshold: 0.45
//	  fixed: {target_size: 600, overlap: 60}
//	retrieval:
//	  alpha: 0.7
type Tuning struct {
	Chunking  ChunkingTuning  `yaml:"chunking"`
	Retrieval RetrievalTuning `yaml:"retrieval"`
}

type ChunkingTuning struct {
	DynamicThreshold *float64 `yaml:"dynamic_threshold"`
	MinDynamicLength *int     `yaml:"min_dynamic_length"`
	VarianceScale    *float64 `yaml:"variance_scale"`
	MarkerSaturation *int     `yaml:"marker_saturation"`
	Fixed            struct {
		TargetSize *int `yaml:"target_size"`
		Overlap    *int `yaml:"overlap"`
		MinViable  *int `yaml:"min_viable"`
	} `yaml:"fixed"`
	Dynamic struct {
		MinSize         *int     `yaml:"min_size"`
		MaxSize         *int     `yaml:"max_size"`
		HeadingMaxRunes *int     `yaml:"heading_max_runes"`
		SectionMarkers  []string `yaml:"section_markers"`
	} `yaml:"dynamic"`
}

type RetrievalTuning struct {
	Alpha               *float64 `yaml:"alpha"`
	TopK                *int     `yaml:"top_k"`
	CandidateMultiplier *int     `yaml:"candidate_multiplier"`
	ContextBudget       *int     `yaml:"context_budget"`
	DedupeWindow        *int     `yaml:"dedupe_window"`
}

// LoadTuning reads a tuning profile from path.
func LoadTuning(path string) (*Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tuning file: %w", err)
	}
	return ParseTuning(data)
}

// ParseTuning decodes a tuning profile. Unknown keys are rejected.
func ParseTuning(data []byte) (*Tuning, error) {
	var t Tuning
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse tuning file: %w", err)
	}
	return &t, nil
}

// ApplyChunking returns c with the profile's chunking overrides. A nil profile returns c.
func (t *Tuning) ApplyChunking(c chunking.Config) chunking.Config {
	if t == nil {
		return c
	}
	ct := t.Chunking
	setFloat(&c.DynamicThreshold, ct.DynamicThreshold)
	setInt(&c.MinDynamicLength, ct.MinDynamicLength)
	setFloat(&c.VarianceScale, ct.VarianceScale)
	setInt(&c.MarkerSaturation, ct.MarkerSaturation)
	setInt(&c.Fixed.TargetSize, ct.Fixed.TargetSize)
	setInt(&c.Fixed.Overlap, ct.Fixed.Overlap)
	setInt(&c.Fixed.MinViable, ct.Fixed.MinViable)
	setInt(&c.Dynamic.MinSize, ct.Dynamic.MinSize)
	setInt(&c.Dynamic.MaxSize, ct.Dynamic.MaxSize)
	setInt(&c.Dynamic.Rules.HeadingMaxRunes, ct.Dynamic.HeadingMaxRunes)
	if ct.Dynamic.SectionMarkers != nil {
		c.Dynamic.Rules.SectionMarkers = ct.Dynamic.SectionMarkers
	}
	return c
}

// ApplyRetrieval returns c with the profile's retrieval overrides. A nil profile returns c.
func (t *Tuning) ApplyRetrieval(c retrieval.Config) retrieval.Config {
	if t == nil {
		return c
	}
	rt := t.Retrieval
	setFloat(&c.Alpha, rt.Alpha)
	setInt(&c.TopK, rt.TopK)
	setInt(&c.CandidateMultiplier, rt.CandidateMultiplier)
	setInt(&c.ContextBudget, rt.ContextBudget)
	setInt(&c.DedupeWindow, rt.DedupeWindow)
	return c
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
