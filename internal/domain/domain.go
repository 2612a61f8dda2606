package domain

import (
	"context"
	"time"
)

// Document represents a single source file loaded into the system.
type Document struct {
	ID      string
	Path    string
	Source  string // originating filename, kept for provenance
	Content string
}

// Chunk is a bounded part of a document used for indexing and retrieval.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Source     string
	Text       string
	Index      int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the conversation history.
type Turn struct {
	Role    Role
	Content string
}

// Intent is the routing decision for an incoming utterance.
type Intent string

const (
	IntentKnowledge  Intent = "knowledge"
	IntentScheduling Intent = "scheduling"
)

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
// The same embedder must be used at build time and query time;
// mixing vectors from different embedders corrupts similarity.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Embed(ctx context.Context, text string) ([]float32, error)
}

// KnowledgeStore embeds chunks, persists them in a similarity-searchable
// index, and answers top-k queries. Build replaces any prior content;
// there is no incremental update.
type KnowledgeStore interface {
	Build(ctx context.Context, chunks []Chunk) error
	Load(ctx context.Context) error
	Query(ctx context.Context, text string, topK int) ([]SearchResult, error)
	Count() int
}

// GenerateOptions control a single text-generation call.
type GenerateOptions struct {
	MaxNewTokens int
	Temperature  float64
	Sample       bool
}

// Generator is the uniform interface to a text-generation capability.
// The returned text is only the newly generated continuation; any
// echoed prompt prefix is stripped by the implementation.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// PlanComposer turns a free-text planning request into a weekly plan.
// It never lets an internal error escape: text and week are always
// usable, and err (when non-nil) only reports the contained cause.
type PlanComposer interface {
	Compose(ctx context.Context, request string, now time.Time) (text string, week string, err error)
}
