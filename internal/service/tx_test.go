package service

import (
	"context"
	"sync"
)

type testTxRepos struct {
	documents     DocumentRepository
	decisions     DecisionRepository
	chunks        ChunkRepository
	embeddingJobs EmbeddingJobRepository
}

func (t *testTxRepos) Documents() DocumentRepository {
	return t.documents
}

func (t *testTxRepos) Decisions() DecisionRepository {
	return t.decisions
}

func (t *testTxRepos) Chunks() ChunkRepository {
	return t.chunks
}

func (t *testTxRepos) EmbeddingJobs() EmbeddingJobRepository {
	return t.embeddingJobs
}

type testTxRunner struct {
	mu     sync.Mutex
	repos  TxRepositories
	called bool
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.mu.Lock()
	t.called = true
	t.mu.Unlock()
	return fn(t.repos)
}

func (t *testTxRunner) wasCalled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.called
}

// sequenceUUIDs hands out ids in order
type sequenceUUIDs struct {
	mu  sync.Mutex
	ids []string
	n   int
}

func (s *sequenceUUIDs) NewString() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.ids[s.n%len(s.ids)]
	s.n++
	return id
}
