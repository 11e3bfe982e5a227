package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceFlags(t *testing.T) {
	both := SourceVector | SourceLexical

	assert.True(t, both.Has(SourceVector))
	assert.True(t, both.Has(SourceLexical))
	assert.False(t, SourceVector.Has(SourceLexical))
	assert.Equal(t, []string{"vector", "lexical"}, both.Names())
	assert.Equal(t, []string{"lexical"}, SourceLexical.Names())
}

func TestQueryContext_Empty(t *testing.T) {
	assert.True(t, QueryContext{Budget: 100}.Empty())
	assert.False(t, QueryContext{Chunks: []ContextChunk{{ChunkID: "c"}}}.Empty())
}
