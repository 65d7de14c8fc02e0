package knowledge

import (
	"context"
	"fmt"

	"health-agent-be/internal/model"
	"health-agent-be/pkg/store"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// PostgresStore keeps the index in a pgvector-enabled Postgres table, for
// deployments where the knowledge base must survive restarts and be shared
// across instances.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(&model.DocumentChunk{}); err != nil {
		return nil, fmt.Errorf("migrate document_chunks: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Ready() bool {
	if s == nil || s.db == nil {
		return false
	}
	var count int64
	if err := s.db.Model(&model.DocumentChunk{}).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

// ReplaceSource deletes the previous chunks of a source and bulk-inserts the
// new set in one transaction, so a re-ingested document is never half swapped.
func (s *PostgresStore) ReplaceSource(ctx context.Context, source string, chunks []Chunk) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("source = ?", source).Delete(&model.DocumentChunk{}).Error; err != nil {
			return fmt.Errorf("delete old chunks: %w", err)
		}
		if len(chunks) == 0 {
			return nil
		}

		models := make([]*model.DocumentChunk, len(chunks))
		for i, c := range chunks {
			models[i] = &model.DocumentChunk{
				Id:         c.ID,
				Source:     c.Source,
				Title:      c.Title,
				Content:    c.Content,
				Embedding:  pgvector.NewVector(c.Embedding),
				ChunkIndex: c.ChunkIndex,
			}
		}
		if err := tx.Create(models).Error; err != nil {
			return fmt.Errorf("insert chunks: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) SearchSimilar(ctx context.Context, embedding []float32, limit int) ([]store.Document, error) {
	if limit <= 0 {
		limit = 3
	}

	// Cosine distance in pgvector is 1 - cosine_similarity, so
	// 1 - (embedding <=> query_vector) recovers the similarity score.
	type result struct {
		model.DocumentChunk
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := s.db.WithContext(ctx).
		Table("document_chunks").
		Select("document_chunks.*, 1 - (embedding <=> ?) as similarity", queryVector).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	docs := make([]store.Document, len(results))
	for i, res := range results {
		docs[i] = store.Document{
			ID:      res.Id.String(),
			Title:   res.Title,
			Content: res.Content,
			Score:   res.Similarity,
			Source:  res.Source,
		}
	}
	return docs, nil
}
