package domain

import "time"

// SourceFlags record which retrieval path(s) surfaced a candidate
type SourceFlags uint8

const (
	SourceVector SourceFlags = 1 << iota
	SourceLexical
)

// Has reports whether all bits of f are set
func (s SourceFlags) Has(f SourceFlags) bool {
	return s&f == f
}

// Names returns the flag names in a stable order
func (s SourceFlags) Names() []string {
	var names []string
	if s.Has(SourceVector) {
		names = append(names, "vector")
	}
	if s.Has(SourceLexical) {
		names = append(names, "lexical")
	}
	return names
}

// ScoredHit is a single result from a vector or lexical search
type ScoredHit struct {
	ChunkID    string
	DocumentID string
	Sequence   int
	Score      float64
}

// RetrievalCandidate is a fused search result for one chunk
type RetrievalCandidate struct {
	ChunkID      string
	DocumentID   string
	Sequence     int
	VectorScore  float64
	LexicalScore float64
	VectorNorm   float64
	LexicalNorm  float64
	FusedScore   float64
	Sources      SourceFlags
	Chunk        *Chunk // Hydrated after fusion, nil until then
}

// ContextChunk is a chunk accepted into a query context
type ContextChunk struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Sequence   int     `json:"sequence"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// QueryContext is the bounded, deduplicated context handed to answer generation
type QueryContext struct {
	Chunks []ContextChunk `json:"chunks"`
	Text   string         `json:"text"`
	Size   int            `json:"size"`
	Budget int            `json:"budget"`
}

// Empty reports the no-grounding condition: nothing relevant fit the budget
func (q QueryContext) Empty() bool {
	return len(q.Chunks) == 0
}

// QueryLogEntry is an audit record of a single query
type QueryLogEntry struct {
	ID           string
	RequestID    string
	Query        string
	Language     Language
	TopK         int
	DocumentID   string
	CandidateIDs []string
	FusedScores  []float64
	EmptyContext bool
	Answered     bool
	Latency      time.Duration
	CreatedAt    time.Time
}

// GenerationRequest is the input to answer generation. Grounded is false when the assembled
// context is empty and the answer must say that nothing relevant was found.
type GenerationRequest struct {
	Question string
	Context  QueryContext
	Language Language
	Grounded bool
}

// SearchFilter narrows a chunk search
type SearchFilter struct {
	DocumentID string
}
