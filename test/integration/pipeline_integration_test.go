package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"health-agent-be/internal/config"
	"health-agent-be/internal/pkg/logger"
	"health-agent-be/pkg/agent"
	"health-agent-be/pkg/embedding"
	"health-agent-be/pkg/healthdata"
	"health-agent-be/pkg/knowledge"
	"health-agent-be/pkg/llm/ollama"
	"health-agent-be/pkg/utils"
	"health-agent-be/pkg/weather"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Full pipeline against live Ollama and the real forecast service, with a
// small local index built on the fly.
func TestPipelineEndToEndLive(t *testing.T) {
	requireOllama(t)

	cfg := config.Load()
	log := logger.NewNoopLogger()

	embedder := embedding.NewOllamaProvider(ollamaBaseURL, embeddingModel)
	llmProvider := ollama.NewOllamaProvider(ollamaBaseURL, llmModel)

	store, err := knowledge.NewLocalStore(filepath.Join(t.TempDir(), "index.json"))
	require.NoError(t, err)

	content := "Adults should sleep seven to nine hours per night. " +
		"A resting heart rate between 60 and 100 bpm is considered normal. " +
		"Walking 10,000 steps a day supports cardiovascular health."
	pieces := utils.SplitText(content, 120, 20)
	chunks := make([]knowledge.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		res, err := embedder.Generate(piece, embedding.TaskTypeDocument)
		require.NoError(t, err)
		chunks = append(chunks, knowledge.Chunk{
			ID: uuid.New(), Source: "guide.md", Title: "guide",
			Content: piece, Embedding: res.Embedding.Values, ChunkIndex: i,
		})
	}
	require.NoError(t, store.ReplaceSource(context.Background(), "guide.md", chunks))

	index := knowledge.NewIndex(store, embedder, cfg.Rag.SimilarityK, log)
	advisor := weather.NewAdvisor(cfg.Weather, llmProvider, cfg.Ai.ModelTemperature, log)
	pipeline := agent.NewHealthPipeline(advisor, index, llmProvider, cfg, log)

	state := agent.NewSessionState("integration", healthdata.Record{
		HeartRate: 75, SleepHours: 7.5, Steps: 8500, LastUpdated: time.Now(),
	})

	var sawPartial bool
	state.OnPartial(func(partial string) {
		if partial != "" {
			sawPartial = true
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	pipeline.Run(ctx, state)

	assert.Equal(t, agent.StatusRecommendationGenerated, state.Status)
	require.Len(t, state.Recommendations, 1)
	assert.NotEmpty(t, state.Recommendations[0])
	assert.True(t, sawPartial, "expected streamed partial output")
	assert.Equal(t, 3, len(state.Health.VitalsStatus))
	if os.Getenv("VERBOSE") == "true" {
		t.Logf("recommendation: %s", state.Recommendations[0])
	}
}
