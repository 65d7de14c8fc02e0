package agent

import (
	"context"

	"health-agent-be/internal/config"
	"health-agent-be/internal/pkg/logger"
	"health-agent-be/pkg/llm"
)

// Stage is one pipeline component. Process mutates the shared state in place;
// a returned error is diagnostic only and never stops the run.
type Stage interface {
	Name() string
	Process(ctx context.Context, state *SessionState) error
}

// Pipeline invokes its stages in fixed order against one SessionState. There
// is no branching, retry loop, or early termination: every stage always runs,
// and each stage is responsible for degrading gracefully on failure.
type Pipeline struct {
	stages []Stage
	logger logger.ILogger
}

func NewPipeline(log logger.ILogger, stages ...Stage) *Pipeline {
	return &Pipeline{
		stages: stages,
		logger: log,
	}
}

// NewHealthPipeline wires the standard three-stage order:
// vitals evaluation, knowledge retrieval, recommendation generation.
func NewHealthPipeline(
	advisor WeatherAdvisor,
	retriever Retriever,
	llmProvider llm.LLMProvider,
	cfg *config.Config,
	log logger.ILogger,
) *Pipeline {
	return NewPipeline(
		log,
		NewVitalsEvaluator(cfg.Health, cfg.Weather, advisor, log),
		NewKnowledgeRetriever(retriever, cfg.Rag.SimilarityK, log),
		NewRecommendationGenerator(llmProvider, cfg.Ai.ModelTemperature, log),
	)
}

// Run threads the state through every stage and returns it in terminal
// status. Stage errors are logged and recorded in the stage notes; the
// caller always gets a state with at least one recommendation entry.
func (p *Pipeline) Run(ctx context.Context, state *SessionState) *SessionState {
	p.logger.Info("Pipeline", "Starting recommendation pipeline", map[string]interface{}{
		"session_id": state.ID,
		"stages":     len(p.stages),
	})

	for i, stage := range p.stages {
		p.logger.Info("Pipeline", "Running stage", map[string]interface{}{
			"stage": stage.Name(),
			"order": i + 1,
		})

		if err := stage.Process(ctx, state); err != nil {
			p.logger.Error("Pipeline", "Stage failed, continuing", map[string]interface{}{
				"stage": stage.Name(),
				"error": err.Error(),
			})
			state.SetStageNote(stage.Name(), "Stage failed: "+err.Error())
		}
	}

	p.logger.Info("Pipeline", "Pipeline completed", map[string]interface{}{
		"session_id":      state.ID,
		"status":          string(state.Status),
		"recommendations": len(state.Recommendations),
	})
	return state
}
