package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"health-agent-be/pkg/store"
)

// LocalStore keeps the index as a single JSON file on disk. It is the default
// backend so the service runs without a database; an existing index file is
// loaded on startup, otherwise the store starts empty and stays unready until
// the first ingestion.
type LocalStore struct {
	path string

	mu     sync.RWMutex
	chunks []Chunk
}

func NewLocalStore(path string) (*LocalStore, error) {
	s := &LocalStore{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read index %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s.chunks); err != nil {
		return nil, fmt.Errorf("parse index %s: %w", path, err)
	}
	return s, nil
}

func (s *LocalStore) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks) > 0
}

func (s *LocalStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// ReplaceSource swaps all chunks belonging to source with the given set and
// persists the whole index, so re-ingesting a document never duplicates it.
func (s *LocalStore) ReplaceSource(_ context.Context, source string, chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]Chunk, 0, len(s.chunks)+len(chunks))
	for _, c := range s.chunks {
		if c.Source != source {
			kept = append(kept, c)
		}
	}
	s.chunks = append(kept, chunks...)

	return s.save()
}

func (s *LocalStore) SearchSimilar(_ context.Context, embedding []float32, limit int) ([]store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.chunks) == 0 {
		return nil, nil
	}

	type scored struct {
		chunk Chunk
		score float64
	}
	results := make([]scored, 0, len(s.chunks))
	for _, c := range s.chunks {
		results = append(results, scored{chunk: c, score: CosineSimilarity(embedding, c.Embedding)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if limit > len(results) {
		limit = len(results)
	}
	docs := make([]store.Document, 0, limit)
	for _, r := range results[:limit] {
		docs = append(docs, store.Document{
			ID:      r.chunk.ID.String(),
			Title:   r.chunk.Title,
			Content: r.chunk.Content,
			Score:   r.score,
			Source:  r.chunk.Source,
		})
	}
	return docs, nil
}

// save writes via a temp file and rename so a crash mid-write never leaves a
// truncated index behind.
func (s *LocalStore) save() error {
	data, err := json.Marshal(s.chunks)
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create index dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}

// CosineSimilarity returns 0 for mismatched or zero-magnitude vectors.
func CosineSimilarity(a, b []float32) float64 {
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
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
