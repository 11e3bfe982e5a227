package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpanOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b Span
		want int
	}{
		{"disjoint", Span{0, 10}, Span{10, 20}, 0},
		{"partial", Span{0, 10}, Span{6, 20}, 4},
		{"contained", Span{0, 100}, Span{10, 20}, 10},
		{"reversed order", Span{50, 60}, Span{0, 55}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlap(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlap(tt.a))
		})
	}
}

func TestChunk_Embedded(t *testing.T) {
	assert.False(t, Chunk{}.Embedded())
	assert.True(t, Chunk{Embedding: []float32{0.5}}.Embedded())
	assert.True(t, Chunk{HasEmbedding: true}.Embedded())
}

func TestChunkID_SortsBySequence(t *testing.T) {
	assert.Equal(t, "doc:000007", ChunkID("doc", 7))
	assert.Less(t, ChunkID("doc", 9), ChunkID("doc", 10))
}

func TestValidateChunkSequence(t *testing.T) {
	ok := []Chunk{
		{DocumentID: "d", Sequence: 0, Span: Span{0, 5}},
		{DocumentID: "d", Sequence: 1, Span: Span{5, 9}},
	}
	assert.NoError(t, ValidateChunkSequence(ok))
	assert.NoError(t, ValidateChunkSequence(nil))

	gap := []Chunk{
		{DocumentID: "d", Sequence: 0},
		{DocumentID: "d", Sequence: 2},
	}
	assert.ErrorContains(t, ValidateChunkSequence(gap), "gap")

	mixed := []Chunk{
		{DocumentID: "d", Sequence: 0},
		{DocumentID: "e", Sequence: 1},
	}
	assert.ErrorContains(t, ValidateChunkSequence(mixed), "belongs to document")
}
