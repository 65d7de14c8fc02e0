package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"health-agent-be/internal/config"
	"health-agent-be/pkg/database"
	"health-agent-be/pkg/embedding"
	"health-agent-be/pkg/knowledge"
	"health-agent-be/pkg/utils"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// Offline index builder: chunks and embeds the given text files directly into
// the configured knowledge index, without going through the API.
//
// Usage: ingest <file> [file...]
func main() {
	if len(os.Args) < 2 {
		color.Red("Usage: ingest <file> [file...]")
		os.Exit(1)
	}

	cfg := config.Load()

	store := openStore(cfg)
	embedder := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel)

	color.Cyan("Ingesting %d file(s) (chunk size %d, overlap %d)", len(os.Args)-1, cfg.Rag.ChunkSize, cfg.Rag.ChunkOverlap)

	ctx := context.Background()
	failures := 0
	for _, path := range os.Args[1:] {
		if err := ingestFile(ctx, store, embedder, cfg, path); err != nil {
			color.Red("✗ %s: %v", path, err)
			failures++
			continue
		}
		color.Green("✓ %s", path)
	}

	if failures > 0 {
		color.Red("Done with %d failure(s)", failures)
		os.Exit(1)
	}
	color.Green("Done")
}

func openStore(cfg *config.Config) knowledge.Store {
	if cfg.Rag.IndexBackend == "postgres" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			color.Red("Failed to connect to database: %v", err)
			os.Exit(1)
		}
		store, err := knowledge.NewPostgresStore(db)
		if err != nil {
			color.Red("Failed to initialize pgvector index: %v", err)
			os.Exit(1)
		}
		return store
	}

	store, err := knowledge.NewLocalStore(cfg.Rag.IndexPath)
	if err != nil {
		color.Red("Failed to load index %s: %v", cfg.Rag.IndexPath, err)
		os.Exit(1)
	}
	return store
}

func ingestFile(ctx context.Context, store knowledge.Store, embedder embedding.EmbeddingProvider, cfg *config.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	source := filepath.Base(path)
	title := strings.TrimSuffix(source, filepath.Ext(source))

	pieces := utils.SplitText(string(data), cfg.Rag.ChunkSize, cfg.Rag.ChunkOverlap)
	chunks := make([]knowledge.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		res, err := embedder.Generate(piece, embedding.TaskTypeDocument)
		if err != nil {
			return err
		}
		chunks = append(chunks, knowledge.Chunk{
			ID:         uuid.New(),
			Source:     source,
			Title:      title,
			Content:    piece,
			Embedding:  res.Embedding.Values,
			ChunkIndex: i,
		})
	}

	return store.ReplaceSource(ctx, source, chunks)
}
