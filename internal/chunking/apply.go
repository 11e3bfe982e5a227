package chunking

import (
	"fmt"
	"time"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/textnorm"
)

// Apply runs the chunker named by the decision and stamps the chunks with documentID.
func Apply(documentID, text string, d domain.ChunkingDecision) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	switch {
	case d.Strategy == domain.StrategyFixed && d.Fixed != nil:
		chunks = Fixed(text, *d.Fixed)
	case d.Strategy == domain.StrategyDynamic && d.Dynamic != nil:
		chunks = Dynamic(text, *d.Dynamic)
	default:
		return nil, fmt.Errorf("chunking decision %q has no parameters", d.Strategy)
	}

	now := time.Now().UTC()
	for i := range chunks {
		chunks[i].DocumentID = documentID
		chunks[i].ID = domain.ChunkID(documentID, chunks[i].Sequence)
		chunks[i].CreatedAt = now
	}
	return chunks, nil
}

func newChunk(rs []rune, seq int, sp domain.Span, heading string) domain.Chunk {
	text := string(rs[sp.Start:sp.End])
	return domain.Chunk{
		Sequence:      seq,
		Text:          text,
		LexicalText:   textnorm.Shadow(text),
		Span:          sp,
		Heading:       heading,
		HasDiacritics: textnorm.HasDiacritics(text),
		TokenEstimate: sp.Len() / 4,
	}
}

// Reassemble concatenates chunk texts in sequence order, dropping the runes each chunk
// shares with its predecessor. For any chunking of text it returns text.
func Reassemble(chunks []domain.Chunk) string {
	var out []rune
	covered := 0
	for _, c := range chunks {
		rs := []rune(c.Text)
		skip := covered - c.Span.Start
		if skip < 0 {
			skip = 0
		}
		if skip < len(rs) {
			out = append(out, rs[skip:]...)
		}
		covered = max(covered, c.Span.End)
	}
	return string(out)
}
