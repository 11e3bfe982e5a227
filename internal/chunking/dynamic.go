package chunking

import (
	"github.com/cloo-solutions/docrag/internal/domain"
)

type dynamicBuilder struct {
	rs      []rune
	bounds  []bool
	p       domain.DynamicParams
	spans   []domain.Span
	heads   []string
	start   int
	end     int
	heading string
	chunkH  string
}

func (b *dynamicBuilder) size() int {
	return b.end - b.start
}

func (b *dynamicBuilder) extend(to int) {
	if b.size() == 0 {
		b.chunkH = b.heading
	}
	b.end = to
}

func (b *dynamicBuilder) emit() {
	if b.size() == 0 {
		return
	}
	b.spans = append(b.spans, domain.Span{Start: b.start, End: b.end})
	b.heads = append(b.heads, b.chunkH)
	b.start = b.end
}

// Dynamic accumulates structural units from Segment into chunks of at most p.MaxSize runes.
// Headings and section markers open a new chunk once the current one reaches p.MinSize.
// Units too large for the remaining room are split at the nearest sentence boundary.
// Only the last chunk may be shorter than p.MinSize.
func Dynamic(text string, p domain.DynamicParams) []domain.Chunk {
	rs := []rune(text)
	if len(rs) == 0 {
		return nil
	}

	b := &dynamicBuilder{
		rs:     rs,
		bounds: graphemeBounds(text, len(rs)),
		p:      p,
	}

	for _, u := range segmentRunes(rs, p.Rules) {
		if u.Kind == UnitHeading {
			b.heading = HeadingTitle(u)
		}
		if u.Kind != UnitParagraph && b.size() >= p.MinSize {
			b.emit()
		}
		if b.size()+u.Len() <= p.MaxSize {
			b.extend(u.End)
			continue
		}
		if b.size() >= p.MinSize {
			b.emit()
		}
		b.place(u)
	}

	if k := len(b.spans); k > 0 && b.size() > 0 && b.size() < p.MinSize &&
		b.end-b.spans[k-1].Start <= p.MaxSize {
		b.spans[k-1].End = b.end
		b.start = b.end
	}
	b.emit()

	chunks := make([]domain.Chunk, len(b.spans))
	for i, sp := range b.spans {
		chunks[i] = newChunk(rs, i, sp, b.heads[i])
	}
	return chunks
}

// place adds a unit that does not fit whole into the current chunk.
func (b *dynamicBuilder) place(u Unit) {
	if u.Kind != UnitParagraph {
		// Headings and markers are never split.
		b.emit()
		b.extend(u.End)
		return
	}

	rest := u.Start
	for rest < u.End {
		room := b.p.MaxSize - b.size()
		if u.End-rest <= room {
			b.extend(u.End)
			return
		}
		cut := splitPoint(b.rs, b.bounds, rest, rest+room, b.start+b.p.MinSize)
		b.extend(cut)
		b.emit()
		rest = cut
	}
}
