// Package memindex is a process-local chunk store with vector and lexical search, used by
// the local CLI tools and by tests that run without Postgres.
package memindex

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/cloo-solutions/docrag/internal/domain"
)

const collectionName = "chunks"

const (
	metaDocumentID = "document_id"
	metaSequence   = "sequence"
)

var errPrecomputedOnly = errors.New("memindex stores precomputed embeddings only")

// Index keeps chunks in memory. Embedded chunks are mirrored into a chromem collection for
// vector search; every chunk takes part in lexical search.
type Index struct {
	mu       sync.RWMutex
	coll     *chromem.Collection
	chunks   map[string]domain.Chunk
	byDoc    map[string][]string
	embedded map[string]int // embedded chunk count per document
	lexical  *lexicalIndex
}

// New creates an empty Index
func New() (*Index, error) {
	db := chromem.NewDB()
	coll, err := db.GetOrCreateCollection(collectionName, nil, func(context.Context, string) ([]float32, error) {
		return nil, errPrecomputedOnly
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	return &Index{
		coll:     coll,
		chunks:   make(map[string]domain.Chunk),
		byDoc:    make(map[string][]string),
		embedded: make(map[string]int),
		lexical:  newLexicalIndex(),
	}, nil
}

// ReplaceChunks swaps all chunks of a document
func (ix *Index) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	if err := domain.ValidateChunkSequence(chunks); err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if err := ix.deleteLocked(ctx, documentID); err != nil {
		return err
	}

	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		c.DocumentID = documentID
		if c.ID == "" {
			c.ID = domain.ChunkID(documentID, c.Sequence)
		}
		if c.Embedding != nil {
			if err := ix.addVector(ctx, c); err != nil {
				return err
			}
		}
		ix.chunks[c.ID] = c
		ix.lexical.add(c.ID, c.LexicalText)
		ids = append(ids, c.ID)
	}
	ix.byDoc[documentID] = ids
	return nil
}

// DeleteDocument removes every chunk of a document
func (ix *Index) DeleteDocument(ctx context.Context, documentID string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.deleteLocked(ctx, documentID)
}

func (ix *Index) deleteLocked(ctx context.Context, documentID string) error {
	ids, ok := ix.byDoc[documentID]
	if !ok {
		return nil
	}
	if ix.embedded[documentID] > 0 {
		if err := ix.coll.Delete(ctx, map[string]string{metaDocumentID: documentID}, nil); err != nil {
			return fmt.Errorf("failed to delete vectors: %w", err)
		}
	}
	for _, id := range ids {
		delete(ix.chunks, id)
		ix.lexical.remove(id)
	}
	delete(ix.byDoc, documentID)
	delete(ix.embedded, documentID)
	return nil
}

func (ix *Index) addVector(ctx context.Context, c domain.Chunk) error {
	err := ix.coll.AddDocument(ctx, chromem.Document{
		ID:        c.ID,
		Content:   c.Text,
		Embedding: c.Embedding,
		Metadata: map[string]string{
			metaDocumentID: c.DocumentID,
			metaSequence:   strconv.Itoa(c.Sequence),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to add vector for chunk %s: %w", c.ID, err)
	}
	ix.embedded[c.DocumentID]++
	return nil
}

// ListByDocument returns a document's chunks in sequence order
func (ix *Index) ListByDocument(_ context.Context, documentID string) ([]domain.Chunk, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	ids := ix.byDoc[documentID]
	out := make([]domain.Chunk, 0, len(ids))
	for _, id := range ids {
		out = append(out, ix.chunks[id])
	}
	return out, nil
}

// GetByIDs returns the chunks that exist among ids, in the order given
func (ix *Index) GetByIDs(_ context.Context, ids []string) ([]domain.Chunk, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	out := make([]domain.Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := ix.chunks[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// ListMissingEmbeddings returns a document's chunks that have no embedding
func (ix *Index) ListMissingEmbeddings(_ context.Context, documentID string) ([]domain.Chunk, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var out []domain.Chunk
	for _, id := range ix.byDoc[documentID] {
		if c := ix.chunks[id]; c.Embedding == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

// UpdateEmbedding stores the embedding of a chunk that has none yet
func (ix *Index) UpdateEmbedding(ctx context.Context, chunkID string, embedding []float32) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	c, ok := ix.chunks[chunkID]
	if !ok {
		return domain.NewDomainError(domain.ErrCodeNotFound, "chunk not found")
	}
	if c.Embedding != nil {
		if err := ix.coll.Delete(ctx, nil, nil, chunkID); err != nil {
			return fmt.Errorf("failed to delete vector: %w", err)
		}
		ix.embedded[c.DocumentID]--
	}
	c.Embedding = embedding
	if err := ix.addVector(ctx, c); err != nil {
		return err
	}
	ix.chunks[chunkID] = c
	return nil
}

// SearchVector returns up to k embedded chunks by cosine similarity
func (ix *Index) SearchVector(ctx context.Context, embedding []float32, k int, filter domain.SearchFilter) ([]domain.ScoredHit, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	available := 0
	var where map[string]string
	if filter.DocumentID != "" {
		where = map[string]string{metaDocumentID: filter.DocumentID}
		available = ix.embedded[filter.DocumentID]
	} else {
		available = ix.coll.Count()
	}
	n := min(k, available)
	if n <= 0 || len(embedding) == 0 {
		return []domain.ScoredHit{}, nil
	}

	results, err := ix.coll.QueryEmbedding(ctx, embedding, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	hits := make([]domain.ScoredHit, 0, len(results))
	for _, r := range results {
		seq, _ := strconv.Atoi(r.Metadata[metaSequence])
		hits = append(hits, domain.ScoredHit{
			ChunkID:    r.ID,
			DocumentID: r.Metadata[metaDocumentID],
			Sequence:   seq,
			Score:      float64(r.Similarity),
		})
	}
	return hits, nil
}

// SearchLexical returns up to k chunks scored by TF-IDF over their diacritic-stripped text.
// Chunks sharing no term with the query are not returned.
func (ix *Index) SearchLexical(_ context.Context, query string, k int, filter domain.SearchFilter) ([]domain.ScoredHit, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if k <= 0 {
		return []domain.ScoredHit{}, nil
	}

	scores := ix.lexical.score(query)
	hits := make([]domain.ScoredHit, 0, len(scores))
	for id, s := range scores {
		c := ix.chunks[id]
		if filter.DocumentID != "" && c.DocumentID != filter.DocumentID {
			continue
		}
		hits = append(hits, domain.ScoredHit{
			ChunkID:    id,
			DocumentID: c.DocumentID,
			Sequence:   c.Sequence,
			Score:      s,
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of stored chunks
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}
