package vectorstore

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"ai-researcher-be/pkg/embedding"
)

// Chunk is a retrieval unit: a bounded slice of source text with its vector.
type Chunk struct {
	Text   string
	Vector []float32
	Score  float32
}

// Index is the read contract exposed to consumers (the chat agent's
// retrieval tool). The index is immutable once built.
type Index interface {
	Query(query string, k int) ([]Chunk, error)
	Len() int
}

// InMemoryStore holds chunk vectors in process memory and answers
// top-k cosine similarity queries. Session state does not outlive the
// process, so nothing is persisted.
type InMemoryStore struct {
	provider embedding.EmbeddingProvider

	mu     sync.RWMutex
	chunks []Chunk
}

var _ Index = &InMemoryStore{}

func NewInMemoryStore(provider embedding.EmbeddingProvider) *InMemoryStore {
	return &InMemoryStore{provider: provider}
}

// AddTexts embeds and stores the given texts. Empty texts are skipped.
func (s *InMemoryStore) AddTexts(texts []string) error {
	for _, text := range texts {
		if text == "" {
			continue
		}
		resp, err := s.provider.Generate(text, embedding.TaskRetrievalDocument)
		if err != nil {
			return fmt.Errorf("embed chunk: %w", err)
		}
		s.mu.Lock()
		s.chunks = append(s.chunks, Chunk{Text: text, Vector: resp.Embedding.Values})
		s.mu.Unlock()
	}
	return nil
}

// Query embeds the query text and returns the k most similar chunks,
// highest score first.
func (s *InMemoryStore) Query(query string, k int) ([]Chunk, error) {
	resp, err := s.provider.Generate(query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryVec := resp.Embedding.Values

	s.mu.RLock()
	scored := make([]Chunk, len(s.chunks))
	copy(scored, s.chunks)
	s.mu.RUnlock()

	for i := range scored {
		scored[i].Score = cosineSimilarity(queryVec, scored[i].Vector)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
