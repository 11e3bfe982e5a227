package retrieval

import (
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/docrag/internal/domain"
)

// ContextSeparator joins chunk texts inside an assembled context.
const ContextSeparator = "\n\n"

var separatorLen = utf8.RuneCountInString(ContextSeparator)

// Assemble walks ranked candidates in order and keeps each hydrated chunk that fits into
// budget runes. A candidate whose span overlaps an accepted chunk of the same document by
// more than dedupeWindow runes is skipped. An empty context is a valid result.
func Assemble(candidates []domain.RetrievalCandidate, budget, dedupeWindow int) domain.QueryContext {
	qc := domain.QueryContext{Budget: budget, Chunks: []domain.ContextChunk{}}
	if budget <= 0 {
		return qc
	}

	var accepted []*domain.Chunk
	var parts []string
	for _, c := range candidates {
		if c.Chunk == nil {
			continue
		}
		text := strings.TrimSpace(c.Chunk.Text)
		if text == "" || overlapsAccepted(c.Chunk, accepted, dedupeWindow) {
			continue
		}

		size := utf8.RuneCountInString(text)
		if len(parts) > 0 {
			size += separatorLen
		}
		if qc.Size+size > budget {
			continue
		}

		qc.Size += size
		parts = append(parts, text)
		accepted = append(accepted, c.Chunk)
		qc.Chunks = append(qc.Chunks, domain.ContextChunk{
			ChunkID:    c.ChunkID,
			DocumentID: c.DocumentID,
			Sequence:   c.Sequence,
			Text:       text,
			Score:      c.FusedScore,
		})
	}

	qc.Text = strings.Join(parts, ContextSeparator)
	return qc
}

func overlapsAccepted(c *domain.Chunk, accepted []*domain.Chunk, window int) bool {
	for _, a := range accepted {
		if a.DocumentID == c.DocumentID && a.Span.Overlap(c.Span) > window {
			return true
		}
	}
	return false
}
