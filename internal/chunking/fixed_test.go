package chunking

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/textnorm"
)

func asciiText(n int) string {
	return strings.Repeat("abcdefghij", n/10+1)[:n]
}

func TestFixed_Windows(t *testing.T) {
	p := domain.FixedParams{TargetSize: 100, Overlap: 10, MinViable: 20}
	chunks := Fixed(asciiText(1000), p)

	require.Len(t, chunks, 11)
	for i, c := range chunks {
		assert.Equal(t, i, c.Sequence)
		assert.Equal(t, i*90, c.Span.Start)
	}
	assert.Equal(t, domain.Span{Start: 900, End: 1000}, chunks[10].Span)
	assert.Equal(t, 100, utf8.RuneCountInString(chunks[0].Text))
}

func TestFixed_TinyTailMerged(t *testing.T) {
	p := domain.FixedParams{TargetSize: 100, Overlap: 10, MinViable: 20}
	chunks := Fixed(asciiText(915), p)

	require.Len(t, chunks, 10)
	assert.Equal(t, domain.Span{Start: 810, End: 915}, chunks[9].Span)
}

func TestFixed_ViableTailKept(t *testing.T) {
	p := domain.FixedParams{TargetSize: 100, Overlap: 10, MinViable: 20}
	chunks := Fixed(asciiText(950), p)

	last := chunks[len(chunks)-1]
	assert.Equal(t, domain.Span{Start: 900, End: 950}, last.Span)
	assert.Less(t, last.Span.Len(), p.TargetSize)
}

func TestFixed_OverlapNeverExceedsConfigOnVocalizedText(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("كِتَابٌ ", 30))
	p := domain.FixedParams{TargetSize: 12, Overlap: 3, MinViable: 2}
	chunks := Fixed(text, p)

	require.Greater(t, len(chunks), 10)
	bounds := graphemeBounds(text, utf8.RuneCountInString(text))
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1].Span, chunks[i].Span
		assert.LessOrEqual(t, prev.End-cur.Start, p.Overlap, "chunk %d", i)
		assert.LessOrEqual(t, cur.Start, prev.End, "gap before chunk %d", i)
		assert.Greater(t, cur.Start, prev.Start)
		assert.True(t, bounds[cur.Start], "chunk %d starts inside a cluster", i)
	}
}

func TestFixed_LengthMinusOverlapsEqualsSource(t *testing.T) {
	text := sectionDoc()
	chunks := Fixed(text, DefaultConfig().Fixed)

	total := 0
	for i, c := range chunks {
		total += utf8.RuneCountInString(c.Text)
		if i > 0 {
			total -= chunks[i-1].Span.Overlap(c.Span)
		}
	}
	assert.Equal(t, utf8.RuneCountInString(text), total)
}

func TestFixed_RoundTrip(t *testing.T) {
	n, err := textnorm.Normalize(sectionDoc()+"\n\nالْعَرَبِيَّة لُغَةٌ جَمِيلَةٌ. "+strings.Repeat("نص عربي مشكول بِالحَرَكَاتِ ", 40), "")
	require.NoError(t, err)

	for _, p := range []domain.FixedParams{
		{TargetSize: 512, Overlap: 50, MinViable: 64},
		{TargetSize: 97, Overlap: 13, MinViable: 5},
		{TargetSize: 40, Overlap: 0, MinViable: 0},
	} {
		chunks := Fixed(n.Text, p)
		assert.Equal(t, n.Text, Reassemble(chunks))
		for i, c := range chunks {
			assert.Equal(t, i, c.Sequence)
			assert.Equal(t, string([]rune(n.Text)[c.Span.Start:c.Span.End]), c.Text)
		}
	}
}

func TestFixed_NeverSplitsGraphemeClusters(t *testing.T) {
	text := strings.Repeat("\u0628\u064e", 50) // every cluster is a letter plus a fatha
	chunks := Fixed(text, domain.FixedParams{TargetSize: 5, Overlap: 1, MinViable: 0})

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Zero(t, c.Span.Start%2, "chunk %d starts inside a cluster", c.Sequence)
		assert.Zero(t, c.Span.End%2, "chunk %d ends inside a cluster", c.Sequence)
		first, _ := utf8.DecodeRuneInString(c.Text)
		assert.False(t, textnorm.IsDiacritic(first))
		assert.True(t, c.HasDiacritics)
	}
	assert.Equal(t, text, Reassemble(chunks))
}

func TestFixed_ShadowAndTokens(t *testing.T) {
	chunks := Fixed("الْعَرَبِيَّة", domain.FixedParams{TargetSize: 512, Overlap: 50, MinViable: 64})

	require.Len(t, chunks, 1)
	assert.Equal(t, "الْعَرَبِيَّة", chunks[0].Text)
	assert.Equal(t, "العربية", chunks[0].LexicalText)
	assert.Equal(t, textnorm.Shadow("العربية"), chunks[0].LexicalText)
	assert.True(t, chunks[0].HasDiacritics)
	assert.Equal(t, chunks[0].Span.Len()/4, chunks[0].TokenEstimate)
}

func TestFixed_Empty(t *testing.T) {
	assert.Nil(t, Fixed("", DefaultConfig().Fixed))
}
