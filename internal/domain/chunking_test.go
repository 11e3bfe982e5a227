package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyAuto, s)

	s, err = ParseStrategy("dynamic")
	require.NoError(t, err)
	assert.Equal(t, StrategyDynamic, s)

	_, err = ParseStrategy("semantic")
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeValidation))
}

func TestValidateChunkingDecision(t *testing.T) {
	tests := []struct {
		name    string
		d       *ChunkingDecision
		wantErr bool
	}{
		{
			name: "fixed",
			d:    &ChunkingDecision{Strategy: StrategyFixed, Fixed: &FixedParams{TargetSize: 512, Overlap: 50}},
		},
		{
			name: "dynamic",
			d:    &ChunkingDecision{Strategy: StrategyDynamic, Dynamic: &DynamicParams{MinSize: 200, MaxSize: 1000}},
		},
		{
			name:    "fixed without params",
			d:       &ChunkingDecision{Strategy: StrategyFixed},
			wantErr: true,
		},
		{
			name: "both variants set",
			d: &ChunkingDecision{
				Strategy: StrategyFixed,
				Fixed:    &FixedParams{TargetSize: 512},
				Dynamic:  &DynamicParams{MinSize: 1, MaxSize: 2},
			},
			wantErr: true,
		},
		{
			name:    "overlap not smaller than target",
			d:       &ChunkingDecision{Strategy: StrategyFixed, Fixed: &FixedParams{TargetSize: 50, Overlap: 50}},
			wantErr: true,
		},
		{
			name:    "dynamic max below min",
			d:       &ChunkingDecision{Strategy: StrategyDynamic, Dynamic: &DynamicParams{MinSize: 300, MaxSize: 200}},
			wantErr: true,
		},
		{
			name:    "auto is not a decision",
			d:       &ChunkingDecision{Strategy: StrategyAuto},
			wantErr: true,
		},
		{
			name:    "nil",
			d:       nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunkingDecision(tt.d)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
