package chunking

import (
	"github.com/cloo-solutions/docrag/internal/domain"
)

// Fixed cuts text into windows of at most p.TargetSize runes sharing at most p.Overlap runes
// with the previous window. Cuts never fall inside a grapheme cluster. When the content the last
// window adds is no longer than p.MinViable it is folded into the previous chunk.
func Fixed(text string, p domain.FixedParams) []domain.Chunk {
	rs := []rune(text)
	n := len(rs)
	if n == 0 {
		return nil
	}
	bounds := graphemeBounds(text, n)

	overlap := p.Overlap
	if overlap >= p.TargetSize {
		overlap = p.TargetSize - 1
	}

	var spans []domain.Span
	start := 0
	for {
		end := n
		if start+p.TargetSize < n {
			end = snapBack(bounds, start+p.TargetSize, start)
		}
		spans = append(spans, domain.Span{Start: start, End: end})
		if end >= n {
			break
		}

		next := end - overlap
		if next <= start {
			next = start + 1
		}
		start = snapForward(bounds, next)
	}

	if k := len(spans); k >= 2 && spans[k-1].End-spans[k-2].End <= p.MinViable {
		spans[k-2].End = n
		spans = spans[:k-1]
	}

	chunks := make([]domain.Chunk, len(spans))
	for i, sp := range spans {
		chunks[i] = newChunk(rs, i, sp, "")
	}
	return chunks
}
