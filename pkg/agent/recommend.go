package agent

import (
	"context"
	"fmt"
	"io"
	"strings"

	"health-agent-be/internal/pkg/logger"
	"health-agent-be/pkg/llm"
)

// RecommendationGenerator composes all accumulated context into one prompt
// and streams the model's answer into the state. One invocation per run, no
// retries; a total failure produces a labeled placeholder entry instead of
// aborting the pipeline.
type RecommendationGenerator struct {
	llmProvider llm.LLMProvider
	temperature float64
	logger      logger.ILogger
}

func NewRecommendationGenerator(llmProvider llm.LLMProvider, temperature float64, log logger.ILogger) *RecommendationGenerator {
	return &RecommendationGenerator{
		llmProvider: llmProvider,
		temperature: temperature,
		logger:      log,
	}
}

func (g *RecommendationGenerator) Name() string {
	return "Recommendations"
}

func (g *RecommendationGenerator) Process(ctx context.Context, state *SessionState) error {
	prompt := g.buildPrompt(state)
	state.Conversation = append(state.Conversation, llm.Message{Role: "user", Content: prompt})
	state.SetStreamingPartial("")

	stream, err := g.llmProvider.ChatStream(ctx, state.Conversation, llm.WithTemperature(g.temperature))
	if err != nil {
		g.fail(state, err)
		return nil
	}
	defer stream.Close()

	var full strings.Builder
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			if full.Len() == 0 {
				g.fail(state, err)
				return nil
			}
			// Keep whatever streamed before the interruption.
			g.logger.Warn("RecommendationGenerator", "Stream interrupted, keeping partial output", map[string]interface{}{
				"error": err.Error(),
			})
			break
		}
		full.WriteString(chunk)
		state.SetStreamingPartial(full.String())
	}

	text := full.String()
	state.AppendRecommendation(text)
	state.Conversation = append(state.Conversation, llm.Message{Role: "assistant", Content: text})
	state.SetStageNote(g.Name(), fmt.Sprintf("Generated recommendation (%d characters).", len(text)))
	state.SetStatus(StatusRecommendationGenerated)
	return nil
}

func (g *RecommendationGenerator) fail(state *SessionState, err error) {
	g.logger.Error("RecommendationGenerator", "Generation failed before any output", map[string]interface{}{
		"error": err.Error(),
	})
	state.AppendRecommendation(fmt.Sprintf("Recommendation generation failed: %v", err))
	state.SetStageNote(g.Name(), "Generation failed: "+err.Error())
	state.SetStatus(StatusRecommendationGenerated)
}

func (g *RecommendationGenerator) buildPrompt(state *SessionState) string {
	var b strings.Builder

	b.WriteString("You are a health assistant. Based on the context below, give a personalized health recommendation.\n\n")

	b.WriteString("Medical knowledge:\n")
	if state.Knowledge != nil && state.Knowledge.Text != "" {
		b.WriteString(state.Knowledge.Text)
	} else {
		b.WriteString("No medical context available")
	}
	b.WriteString("\n\n")

	h := state.Health
	status := func(key string) string {
		if v, ok := h.VitalsStatus[key]; ok {
			return v
		}
		return "Unknown"
	}
	b.WriteString("Health metrics:\n")
	b.WriteString(fmt.Sprintf("- Heart rate: %g bpm (%s)\n", h.HeartRate, status("heart_rate")))
	b.WriteString(fmt.Sprintf("- Sleep: %g hours (%s)\n", h.SleepHours, status("sleep")))
	b.WriteString(fmt.Sprintf("- Steps: %d (%s)\n", h.Steps, status("activity")))

	if w := state.Weather; w != nil {
		b.WriteString(fmt.Sprintf(
			"\nWeather: %s, %g°C, %g%% humidity. Recommended exercise setting: %s at %s intensity. Weather alert: %t. %s\n",
			w.Condition, w.Temperature, w.Humidity,
			w.ExerciseRecommendation, w.IntensityLevel, w.WeatherAlert, w.Reasoning,
		))
	}

	b.WriteString("\nKeep the recommendation practical and specific to these values.")
	return b.String()
}
