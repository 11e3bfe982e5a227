package domain

import (
	"fmt"
	"time"
)

// Span is a half-open [Start, End) range of rune offsets into a document's normalized text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of runes covered by the span
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlap returns the number of runes shared by two spans
func (s Span) Overlap(o Span) int {
	lo := max(s.Start, o.Start)
	hi := min(s.End, o.End)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// Chunk represents a retrieval unit cut from a document
type Chunk struct {
	ID            string
	DocumentID    string
	Sequence      int
	Text          string
	LexicalText   string // Diacritic-stripped shadow of Text used for keyword matching
	Span          Span
	Heading       string
	HasDiacritics bool
	TokenEstimate int
	Embedding     []float32
	HasEmbedding  bool // Set by stores that report a stored vector without loading it
	CreatedAt     time.Time
}

// Embedded reports whether the chunk has a vector, loaded or not.
func (c Chunk) Embedded() bool {
	return c.HasEmbedding || len(c.Embedding) > 0
}

// ChunkID builds the stable identifier of the chunk at seq within a document.
// Zero padding keeps lexicographic order equal to sequence order.
func ChunkID(documentID string, seq int) string {
	return fmt.Sprintf("%s:%06d", documentID, seq)
}

// ValidateChunkSequence checks that chunks are ordered by a gap-free sequence starting at 0
// and all belong to the same document.
func ValidateChunkSequence(chunks []Chunk) error {
	for i, c := range chunks {
		if c.Sequence != i {
			return fmt.Errorf("chunk sequence gap: position %d has sequence %d", i, c.Sequence)
		}
		if c.DocumentID != chunks[0].DocumentID {
			return fmt.Errorf("chunk %s belongs to document %s, expected %s", c.ID, c.DocumentID, chunks[0].DocumentID)
		}
		if c.Span.End < c.Span.Start {
			return fmt.Errorf("chunk %d has inverted span [%d, %d)", i, c.Span.Start, c.Span.End)
		}
	}
	return nil
}
