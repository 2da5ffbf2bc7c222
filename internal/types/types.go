package types

import (
	"context"

	"github.com/avoss/lantern/internal/models"
)

// Embedder turns text into fixed-dimension vectors. The actual computation
// lives in an external inference server.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex answers nearest-neighbor queries over int64 document ids.
// Build replaces the whole index; there is no incremental patching.
// Search returns ids and squared Euclidean distances ordered nearest first;
// an id of -1 is a sentinel for "no match" and must be skipped by callers.
type VectorIndex interface {
	Build(ctx context.Context, ids []int64, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]int64, []float32, error)
	Close()
}

// Responder generates a single assistant reply from a conversation.
type Responder interface {
	GenerateReply(ctx context.Context, history []models.ChatMessage, input string, snippets []string) (string, error)
}

// Retriever answers top-k semantic lookups against the knowledge base.
type Retriever interface {
	Search(ctx context.Context, query string, topK int) ([]models.Snippet, error)
}

// Searcher executes a web search.
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}
