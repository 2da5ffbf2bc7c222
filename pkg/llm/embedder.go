package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
)

// EmbedderConfig represents the configuration for an embedder.
type EmbedderConfig struct {
	Model   string
	BaseURL string // Ollama server URL
}

// Embedder computes text embeddings through an Ollama embedding model.
type Embedder struct {
	config EmbedderConfig
	llm    *ollama.LLM
}

// NewEmbedderWithConfig creates a new Embedder with the given configuration.
func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	emb, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Embedder{
		config: config,
		llm:    emb,
	}, nil
}

// CreateEmbedding returns one vector per input text.
func (e *Embedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings, err := e.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(embeddings), len(texts))
	}
	return embeddings, nil
}

// EmbedQuery embeds a single string.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}
