package integration

import (
	"context"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"health-agent-be/pkg/embedding"
	"health-agent-be/pkg/llm"
	"health-agent-be/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ollamaBaseURL  = "http://localhost:11434"
	llmModel       = "qwen3:4b"
	embeddingModel = "nomic-embed-text"
)

func requireOllama(t *testing.T) {
	t.Helper()
	if os.Getenv("OLLAMA_INTEGRATION") != "true" {
		t.Skip("Skipping integration test: OLLAMA_INTEGRATION not set")
	}
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(ollamaBaseURL + "/api/tags")
	if err != nil {
		t.Skipf("Skipping: Ollama not reachable at %s: %v", ollamaBaseURL, err)
	}
	resp.Body.Close()
}

func TestOllamaGenerate(t *testing.T) {
	requireOllama(t)

	provider := ollama.NewOllamaProvider(ollamaBaseURL, llmModel)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	reply, err := provider.Generate(ctx, "Reply with the single word OK.", llm.WithTemperature(0))
	require.NoError(t, err)
	assert.NotEmpty(t, reply)
}

func TestOllamaChatStream(t *testing.T) {
	requireOllama(t)

	provider := ollama.NewOllamaProvider(ollamaBaseURL, llmModel)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	stream, err := provider.ChatStream(ctx, []llm.Message{
		{Role: "user", Content: "Count from 1 to 5, digits only."},
	}, llm.WithTemperature(0))
	require.NoError(t, err)
	defer stream.Close()

	var full string
	chunks := 0
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		full += chunk
		chunks++
	}

	assert.Greater(t, chunks, 0, "expected at least one streamed chunk")
	assert.NotEmpty(t, full)
}

func TestOllamaEmbedding(t *testing.T) {
	requireOllama(t)

	provider := embedding.NewOllamaProvider(ollamaBaseURL, embeddingModel)

	res, err := provider.Generate("Adults need seven to nine hours of sleep.", embedding.TaskTypeDocument)
	require.NoError(t, err)
	require.NotEmpty(t, res.Embedding.Values)

	// The provider normalizes to unit length.
	var magnitude float64
	for _, v := range res.Embedding.Values {
		magnitude += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, magnitude, 0.01)
}
