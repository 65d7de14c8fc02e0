package knowledge

import (
	"context"
	"fmt"

	"health-agent-be/internal/pkg/logger"
	"health-agent-be/pkg/embedding"
	"health-agent-be/pkg/store"

	"github.com/google/uuid"
)

// Chunk is one embedded slice of a source document as held by a Store.
type Chunk struct {
	ID         uuid.UUID `json:"id"`
	Source     string    `json:"source"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding"`
	ChunkIndex int       `json:"chunk_index"`
}

// Store persists embedded chunks and answers nearest-neighbour queries.
// Implemented by the local file index and the pgvector-backed index.
type Store interface {
	Ready() bool
	ReplaceSource(ctx context.Context, source string, chunks []Chunk) error
	SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]store.Document, error)
}

// Index is the similarity-search facade the pipeline talks to: it embeds the
// query and delegates to the configured Store. A nil Index (or an empty Store)
// is a valid "not built" state, not an error.
type Index struct {
	store    Store
	embedder embedding.EmbeddingProvider
	topK     int
	logger   logger.ILogger
}

func NewIndex(st Store, embedder embedding.EmbeddingProvider, topK int, log logger.ILogger) *Index {
	if topK <= 0 {
		topK = 3
	}
	return &Index{
		store:    st,
		embedder: embedder,
		topK:     topK,
		logger:   log,
	}
}

func (ix *Index) Ready() bool {
	return ix != nil && ix.store != nil && ix.store.Ready()
}

// SimilaritySearch embeds the query and returns up to k matching documents,
// ordered by similarity. k <= 0 uses the configured default.
func (ix *Index) SimilaritySearch(ctx context.Context, query string, k int) ([]store.Document, error) {
	if !ix.Ready() {
		return nil, nil
	}
	if k <= 0 {
		k = ix.topK
	}

	res, err := ix.embedder.Generate(query, embedding.TaskTypeQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	docs, err := ix.store.SearchSimilar(ctx, res.Embedding.Values, k)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return docs, nil
}
