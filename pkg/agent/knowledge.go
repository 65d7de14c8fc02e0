package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"health-agent-be/internal/pkg/logger"
	"health-agent-be/pkg/store"
)

// Retriever answers free-text similarity queries against the document index.
// Ready is false while no index has been built; that is a valid state, not an
// error.
type Retriever interface {
	Ready() bool
	SimilaritySearch(ctx context.Context, query string, k int) ([]store.Document, error)
}

// KnowledgeRetriever pulls supporting medical text for the current vitals.
// Retrieval trouble degrades to an empty result set; the stage never fails
// the pipeline.
type KnowledgeRetriever struct {
	index  Retriever
	topK   int
	logger logger.ILogger
}

func NewKnowledgeRetriever(index Retriever, topK int, log logger.ILogger) *KnowledgeRetriever {
	if topK <= 0 {
		topK = 3
	}
	return &KnowledgeRetriever{
		index:  index,
		topK:   topK,
		logger: log,
	}
}

func (r *KnowledgeRetriever) Name() string {
	return "MedicalKnowledge"
}

func (r *KnowledgeRetriever) Process(ctx context.Context, state *SessionState) error {
	h := state.Health
	query := fmt.Sprintf("Health insights for: Heart rate: %g, Sleep: %g hours, Steps: %d",
		h.HeartRate, h.SleepHours, h.Steps)

	var docs []store.Document
	switch {
	case r.index == nil || !r.index.Ready():
		r.logger.Info("KnowledgeRetriever", "Document index not built, skipping retrieval", nil)
	default:
		found, err := r.index.SimilaritySearch(ctx, query, r.topK)
		if err != nil {
			r.logger.Warn("KnowledgeRetriever", "Similarity search failed, continuing without documents", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			docs = found
		}
	}

	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		texts = append(texts, d.Content)
	}

	state.SetKnowledge(&RetrievedKnowledge{
		Text:        strings.Join(texts, "\n"),
		Documents:   len(docs),
		Metrics:     h,
		RetrievedAt: time.Now(),
	})

	state.SetStageNote(r.Name(), fmt.Sprintf("Retrieved %d documents from the knowledge base.", len(docs)))
	state.SetStatus(StatusKnowledgeRetrieved)
	return nil
}
