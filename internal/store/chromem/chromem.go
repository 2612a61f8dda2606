package chromem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"advisor/internal/domain"
)

const (
	collectionName = "knowledge"
	vocabularyFile = "vocabulary.json"
)

// vocabularyPersister is implemented by embedders whose vector space
// depends on the indexed corpus (the TF-IDF embedder). Their state is
// persisted next to the index so a reloaded store queries with the
// same space.
type vocabularyPersister interface {
	SaveVocabulary(path string) error
	LoadVocabulary(path string) error
}

// Store is a persistent knowledge store backed by chromem-go.
// Build replaces the whole index; Load reopens a previously built one.
// Entries are immutable once indexed.
type Store struct {
	path     string
	embedder domain.Embedder
	log      *zap.Logger

	db         *chromem.DB
	collection *chromem.Collection
}

// NewStore creates a store rooted at path. Nothing is opened until
// Build or Load is called.
func NewStore(path string, embedder domain.Embedder, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, embedder: embedder, log: log}
}

// Build embeds every chunk and persists a fresh index at the store
// path, replacing any prior content.
func (s *Store) Build(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return domain.ErrNoDocumentsFound
	}
	corpus := make([]string, len(chunks))
	for i, ch := range chunks {
		corpus[i] = ch.Text
	}
	if err := s.embedder.Prepare(corpus); err != nil {
		return fmt.Errorf("prepare embedder: %w", err)
	}

	db, err := chromem.NewPersistentDB(s.path, true)
	if err != nil {
		return fmt.Errorf("open index at %s: %w", s.path, err)
	}
	if existing := db.GetCollection(collectionName, s.embeddingFunc()); existing != nil {
		if err := db.DeleteCollection(collectionName); err != nil {
			return fmt.Errorf("replace prior index: %w", err)
		}
	}
	collection, err := db.GetOrCreateCollection(collectionName, nil, s.embeddingFunc())
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	documents := make([]chromem.Document, len(chunks))
	for i, ch := range chunks {
		documents[i] = chromem.Document{
			ID:      ch.ChunkID,
			Content: ch.Text,
			Metadata: map[string]string{
				"document_id": ch.DocumentID,
				"source":      ch.Source,
				"index":       strconv.Itoa(ch.Index),
			},
		}
	}
	if err := collection.AddDocuments(ctx, documents, runtime.NumCPU()); err != nil {
		return fmt.Errorf("index chunks: %w", err)
	}

	if vp, ok := s.embedder.(vocabularyPersister); ok {
		if err := vp.SaveVocabulary(filepath.Join(s.path, vocabularyFile)); err != nil {
			return fmt.Errorf("persist vocabulary: %w", err)
		}
	}

	s.db = db
	s.collection = collection
	s.log.Info("knowledge store built",
		zap.String("path", s.path),
		zap.Int("chunks", len(chunks)),
		zap.String("embedder", s.embedder.Name()))
	return nil
}

// Load reopens the index persisted at the store path. A missing or
// incomplete location fails with ErrStoreNotFound.
func (s *Store) Load(ctx context.Context) error {
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrStoreNotFound, s.path)
	}
	if vp, ok := s.embedder.(vocabularyPersister); ok {
		if err := vp.LoadVocabulary(filepath.Join(s.path, vocabularyFile)); err != nil {
			return fmt.Errorf("%w: vocabulary snapshot missing or unreadable at %s", domain.ErrStoreNotFound, s.path)
		}
	}
	db, err := chromem.NewPersistentDB(s.path, true)
	if err != nil {
		return fmt.Errorf("open index at %s: %w", s.path, err)
	}
	collection := db.GetCollection(collectionName, s.embeddingFunc())
	if collection == nil || collection.Count() == 0 {
		return fmt.Errorf("%w: no indexed documents at %s", domain.ErrStoreNotFound, s.path)
	}
	s.db = db
	s.collection = collection
	s.log.Info("knowledge store loaded",
		zap.String("path", s.path),
		zap.Int("chunks", collection.Count()))
	return nil
}

// Query returns up to min(topK, Count) chunks ordered by descending
// similarity to text.
func (s *Store) Query(ctx context.Context, text string, topK int) ([]domain.SearchResult, error) {
	if s.collection == nil {
		return nil, domain.ErrStoreNotFound
	}
	if topK <= 0 {
		topK = 3
	}
	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}
	results, err := s.collection.Query(ctx, text, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	out := make([]domain.SearchResult, 0, len(results))
	for _, r := range results {
		idx, _ := strconv.Atoi(r.Metadata["index"])
		out = append(out, domain.SearchResult{
			Chunk: domain.Chunk{
				DocumentID: r.Metadata["document_id"],
				ChunkID:    r.ID,
				Source:     r.Metadata["source"],
				Text:       r.Content,
				Index:      idx,
			},
			Score: float64(r.Similarity),
		})
	}
	return out, nil
}

// Count returns the number of indexed chunks.
func (s *Store) Count() int {
	if s.collection == nil {
		return 0
	}
	return s.collection.Count()
}

func (s *Store) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.Embed(ctx, text)
	}
}
