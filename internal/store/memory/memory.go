package memory

import (
	"context"
	"sort"
	"sync"

	"advisor/internal/domain"
)

// Store is an ephemeral knowledge store using brute-force cosine
// similarity. It has no durable location; Load only succeeds on a
// store that was built in this process. Used for tests and throwaway
// sessions.
type Store struct {
	mu       sync.RWMutex
	embedder domain.Embedder
	vectors  [][]float32
	chunks   []domain.Chunk
}

// NewStore creates an empty in-memory store.
func NewStore(embedder domain.Embedder) *Store {
	return &Store{embedder: embedder}
}

// Build embeds the chunks and replaces all prior content.
func (s *Store) Build(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return domain.ErrNoDocumentsFound
	}
	corpus := make([]string, len(chunks))
	for i, ch := range chunks {
		corpus[i] = ch.Text
	}
	if err := s.embedder.Prepare(corpus); err != nil {
		return err
	}
	vectors := make([][]float32, len(chunks))
	for i, ch := range chunks {
		vec, err := s.embedder.Embed(ctx, ch.Text)
		if err != nil {
			return err
		}
		vectors[i] = vec
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append([]domain.Chunk(nil), chunks...)
	s.vectors = vectors
	return nil
}

// Load fails with ErrStoreNotFound unless Build already ran; there is
// no persisted form of this store.
func (s *Store) Load(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.chunks) == 0 {
		return domain.ErrStoreNotFound
	}
	return nil
}

// Query returns up to min(topK, Count) chunks by descending cosine
// similarity. Vectors are assumed L2-normalized by the embedder.
func (s *Store) Query(ctx context.Context, text string, topK int) ([]domain.SearchResult, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 3
	}
	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(s.vectors))
	for i := range s.vectors {
		scores[i] = scored{i, dot(s.vectors[i], vec)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if topK > len(scores) {
		topK = len(scores)
	}
	results := make([]domain.SearchResult, 0, topK)
	for i := 0; i < topK; i++ {
		results = append(results, domain.SearchResult{Chunk: s.chunks[scores[i].idx], Score: scores[i].score})
	}
	return results, nil
}

// Count returns the number of indexed chunks.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
