// Package kb manages the local knowledge base: a JSON document collection,
// one embedding vector per document, and a similarity index answering top-k
// queries by Euclidean distance.
package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/avoss/lantern/internal/models"
	"github.com/avoss/lantern/internal/types"
)

type Config struct {
	Path     string
	Embedder types.Embedder
	Index    types.VectorIndex // defaults to an in-memory FlatIndex
	Logger   *zap.Logger
}

// KnowledgeBase holds the documents of one document set together with a
// built similarity index. Instances are immutable after New; an updated
// document set is swapped in as a whole new KnowledgeBase.
type KnowledgeBase struct {
	path     string
	docs     []models.Document
	texts    map[int64]string
	embedder types.Embedder
	index    types.VectorIndex
	logger   *zap.Logger
}

// New loads the document file at cfg.Path, embeds every document and builds
// the index. A missing or malformed file yields a *LoadError.
func New(ctx context.Context, cfg Config) (*KnowledgeBase, error) {
	data, err := os.ReadFile(cfg.Path)
	if err != nil {
		return nil, &LoadError{Path: cfg.Path, Err: err}
	}
	return NewFromPayload(ctx, cfg, data)
}

// NewFromPayload builds a knowledge base from an in-memory document payload
// without reading cfg.Path. The updater uses it to verify and index a fresh
// download before the file on disk is replaced.
func NewFromPayload(ctx context.Context, cfg Config, data []byte) (*KnowledgeBase, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("kb: embedder is required")
	}
	if cfg.Index == nil {
		cfg.Index = NewFlatIndex()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	docs, err := ParseDocuments(data)
	if err != nil {
		return nil, &LoadError{Path: cfg.Path, Err: err}
	}

	k := &KnowledgeBase{
		path:     cfg.Path,
		docs:     docs,
		texts:    make(map[int64]string, len(docs)),
		embedder: cfg.Embedder,
		index:    cfg.Index,
		logger:   cfg.Logger,
	}

	texts := make([]string, len(docs))
	ids := make([]int64, len(docs))
	for n, doc := range docs {
		texts[n] = doc.Text
		ids[n] = doc.ID
		k.texts[doc.ID] = doc.Text
	}

	vectors, err := cfg.Embedder.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("kb: embedding documents: %w", err)
	}

	if err := cfg.Index.Build(ctx, ids, vectors); err != nil {
		return nil, fmt.Errorf("kb: building index: %w", err)
	}

	cfg.Logger.Info("knowledge base built",
		zap.String("path", cfg.Path),
		zap.Int("documents", len(docs)))

	return k, nil
}

// ParseDocuments decodes a document payload and assigns positional ids to
// entries that carry none. An entry without text is malformed.
func ParseDocuments(data []byte) ([]models.Document, error) {
	var docs []models.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("invalid document JSON: %w", err)
	}
	for n := range docs {
		if docs[n].Text == "" {
			return nil, fmt.Errorf("document %d has no text field", n)
		}
		if !docs[n].HasID() {
			docs[n].SetID(int64(n))
		}
	}
	return docs, nil
}

// Search returns at most topK documents ordered nearest first. An empty
// query returns an empty result; ids the index reports that resolve to no
// document are skipped.
func (k *KnowledgeBase) Search(ctx context.Context, query string, topK int) ([]models.Snippet, error) {
	if query == "" {
		return nil, nil
	}

	vec, err := k.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("kb: embedding query: %w", err)
	}

	ids, dists, err := k.index.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("kb: index search: %w", err)
	}

	var results []models.Snippet
	for n, id := range ids {
		if id < 0 {
			continue
		}
		text, ok := k.texts[id]
		if !ok {
			k.logger.Warn("index returned unknown document id", zap.Int64("id", id))
			continue
		}
		results = append(results, models.Snippet{Text: text, Distance: dists[n]})
	}
	return results, nil
}

// Len reports the number of documents in the collection.
func (k *KnowledgeBase) Len() int { return len(k.docs) }

// Path reports the backing document file.
func (k *KnowledgeBase) Path() string { return k.path }

func (k *KnowledgeBase) Close() {
	if k.index != nil {
		k.index.Close()
	}
}
