package agent

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"health-agent-be/internal/config"
	"health-agent-be/internal/pkg/logger"
	"health-agent-be/pkg/healthdata"
	"health-agent-be/pkg/llm"
	"health-agent-be/pkg/store"
)

type fakeRetriever struct {
	ready bool
	docs  []store.Document
	err   error
}

func (f *fakeRetriever) Ready() bool { return f.ready }

func (f *fakeRetriever) SimilaritySearch(ctx context.Context, query string, k int) ([]store.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	if k < len(f.docs) {
		return f.docs[:k], nil
	}
	return f.docs, nil
}

type scriptedStream struct {
	chunks []string
	pos    int
	err    error
}

func (s *scriptedStream) Recv() (string, error) {
	if s.pos >= len(s.chunks) {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *scriptedStream) Close() error { return nil }

type fakeStreamLLM struct {
	chunks    []string
	openErr   error
	streamErr error
	prompts   []string
}

func (f *fakeStreamLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return strings.Join(f.chunks, ""), nil
}

func (f *fakeStreamLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return strings.Join(f.chunks, ""), nil
}

func (f *fakeStreamLLM) ChatStream(ctx context.Context, history []llm.Message, options ...llm.Option) (llm.Stream, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	if len(history) > 0 {
		f.prompts = append(f.prompts, history[len(history)-1].Content)
	}
	return &scriptedStream{chunks: f.chunks, err: f.streamErr}, nil
}

func newTestPipeline(retriever Retriever, provider llm.LLMProvider, advisor *fakeAdvisor) *Pipeline {
	log := logger.NewNoopLogger()
	return NewPipeline(
		log,
		NewVitalsEvaluator(testHealthConfig(), testWeatherConfig(), advisor, log),
		NewKnowledgeRetriever(retriever, 3, log),
		NewRecommendationGenerator(provider, 0.2, log),
	)
}

func testWeatherConfig() config.WeatherConfig {
	return config.WeatherConfig{DefaultLatitude: 36.1699, DefaultLongitude: -115.1398}
}

func TestPipelineEndToEnd(t *testing.T) {
	provider := &fakeStreamLLM{chunks: []string{"Take a walk ", "after dinner."}}
	p := newTestPipeline(&fakeRetriever{}, provider, &fakeAdvisor{})

	state := NewSessionState("run-1", healthdata.Record{HeartRate: 75, SleepHours: 7.5, Steps: 8500})
	p.Run(context.Background(), state)

	if state.Status != StatusRecommendationGenerated {
		t.Fatalf("status = %q, want %q", state.Status, StatusRecommendationGenerated)
	}
	if len(state.Recommendations) != 1 {
		t.Fatalf("got %d recommendations, want exactly 1", len(state.Recommendations))
	}
	if state.Recommendations[0] != "Take a walk after dinner." {
		t.Errorf("recommendation = %q", state.Recommendations[0])
	}

	want := map[string]string{"heart_rate": "Normal", "sleep": "Optimal", "activity": "Sedentary"}
	for k, v := range want {
		if state.Health.VitalsStatus[k] != v {
			t.Errorf("vitals status[%s] = %q, want %q", k, state.Health.VitalsStatus[k], v)
		}
	}

	notes := state.StageNotes()
	for _, stage := range []string{"HealthMetrics", "MedicalKnowledge", "Recommendations"} {
		if notes[stage] == "" {
			t.Errorf("missing stage note for %s", stage)
		}
	}
}

func TestPipelineEmptyIndexStillTerminates(t *testing.T) {
	provider := &fakeStreamLLM{chunks: []string{"Rest well."}}
	p := newTestPipeline(&fakeRetriever{ready: false}, provider, &fakeAdvisor{})

	state := NewSessionState("run-2", healthdata.Generate())
	p.Run(context.Background(), state)

	if state.Knowledge == nil {
		t.Fatal("retrieved knowledge not recorded")
	}
	if state.Knowledge.Text != "" {
		t.Errorf("knowledge text = %q, want empty for unbuilt index", state.Knowledge.Text)
	}
	if state.Knowledge.Documents != 0 {
		t.Errorf("document count = %d, want 0", state.Knowledge.Documents)
	}
	if state.Status != StatusRecommendationGenerated {
		t.Errorf("status = %q, want terminal", state.Status)
	}
	if len(provider.prompts) != 1 {
		t.Fatalf("LLM received %d prompts, want 1", len(provider.prompts))
	}
	if !strings.Contains(provider.prompts[0], "No medical context available") {
		t.Errorf("prompt must carry the explicit no-context placeholder:\n%s", provider.prompts[0])
	}
}

func TestPipelineStateReadableWhileStreaming(t *testing.T) {
	provider := &fakeStreamLLM{chunks: []string{"Walk ", "daily ", "and ", "sleep ", "early."}}
	p := newTestPipeline(&fakeRetriever{}, provider, &fakeAdvisor{})
	state := NewSessionState("run-8", healthdata.Generate())

	// Poll snapshots concurrently with the run; under the race detector
	// this fails if any poller-visible field is written unguarded.
	stop := make(chan struct{})
	polled := make(chan SessionSnapshot, 1)
	go func() {
		var last SessionSnapshot
		for {
			select {
			case <-stop:
				polled <- last
				return
			default:
				last = state.Snapshot()
			}
		}
	}()

	p.Run(context.Background(), state)
	close(stop)
	last := <-polled

	if last.ID != "run-8" {
		t.Errorf("snapshot id = %q", last.ID)
	}
	final := state.Snapshot()
	if final.Status != StatusRecommendationGenerated {
		t.Errorf("final status = %q, want terminal", final.Status)
	}
	if len(final.Recommendations) != 1 || final.Recommendations[0] != "Walk daily and sleep early." {
		t.Errorf("final recommendations = %v", final.Recommendations)
	}
	if len(final.VitalsStatus) != 3 {
		t.Errorf("final vitals status = %v, want 3 keys", final.VitalsStatus)
	}

	// The snapshot owns its collections; mutating them must not leak back.
	final.VitalsStatus["heart_rate"] = "tampered"
	if state.Snapshot().VitalsStatus["heart_rate"] == "tampered" {
		t.Error("snapshot shares the vitals map with the live state")
	}
}

func TestPipelineStreamingPartials(t *testing.T) {
	provider := &fakeStreamLLM{chunks: []string{"Eat ", "well and ", "rest."}}
	p := newTestPipeline(&fakeRetriever{}, provider, &fakeAdvisor{})

	state := NewSessionState("run-3", healthdata.Generate())
	var observed []string
	state.OnPartial(func(partial string) {
		if partial != "" {
			observed = append(observed, partial)
		}
	})

	p.Run(context.Background(), state)

	want := []string{"Eat ", "Eat well and ", "Eat well and rest."}
	if len(observed) != len(want) {
		t.Fatalf("observed %d partials %v, want %v", len(observed), observed, want)
	}
	for i := range want {
		if observed[i] != want[i] {
			t.Errorf("partial[%d] = %q, want %q", i, observed[i], want[i])
		}
	}
	if got := state.Recommendations[len(state.Recommendations)-1]; got != "Eat well and rest." {
		t.Errorf("final recommendation = %q, want %q", got, "Eat well and rest.")
	}
	if state.StreamingPartial() != "Eat well and rest." {
		t.Errorf("streaming partial = %q after completion", state.StreamingPartial())
	}
}

func TestPipelineTotalGenerationFailure(t *testing.T) {
	provider := &fakeStreamLLM{openErr: errors.New("model unavailable")}
	p := newTestPipeline(&fakeRetriever{}, provider, &fakeAdvisor{})

	state := NewSessionState("run-4", healthdata.Generate())
	p.Run(context.Background(), state)

	if state.Status != StatusRecommendationGenerated {
		t.Fatalf("status = %q, want terminal despite failure", state.Status)
	}
	if len(state.Recommendations) != 1 {
		t.Fatalf("got %d recommendations, want 1 placeholder", len(state.Recommendations))
	}
	if !strings.Contains(state.Recommendations[0], "model unavailable") {
		t.Errorf("placeholder %q does not describe the failure", state.Recommendations[0])
	}
	if note := state.StageNotes()["Recommendations"]; !strings.Contains(note, "failed") {
		t.Errorf("stage note %q does not record the failure", note)
	}
}

func TestPipelineKeepsPartialOnStreamInterruption(t *testing.T) {
	provider := &fakeStreamLLM{chunks: []string{"Stay "}, streamErr: errors.New("connection reset")}
	p := newTestPipeline(&fakeRetriever{}, provider, &fakeAdvisor{})

	state := NewSessionState("run-5", healthdata.Generate())
	p.Run(context.Background(), state)

	if len(state.Recommendations) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(state.Recommendations))
	}
	if state.Recommendations[0] != "Stay " {
		t.Errorf("recommendation = %q, want the partial text", state.Recommendations[0])
	}
}

func TestPipelineRetrievedDocumentsReachPrompt(t *testing.T) {
	retriever := &fakeRetriever{
		ready: true,
		docs: []store.Document{
			{Content: "Adults need 7 to 9 hours of sleep."},
			{Content: "Moderate cardio supports heart health."},
		},
	}
	provider := &fakeStreamLLM{chunks: []string{"Sleep more."}}
	p := newTestPipeline(retriever, provider, &fakeAdvisor{})

	state := NewSessionState("run-6", healthdata.Generate())
	p.Run(context.Background(), state)

	if state.Knowledge.Documents != 2 {
		t.Fatalf("document count = %d, want 2", state.Knowledge.Documents)
	}
	wantText := "Adults need 7 to 9 hours of sleep.\nModerate cardio supports heart health."
	if state.Knowledge.Text != wantText {
		t.Errorf("knowledge text = %q", state.Knowledge.Text)
	}

	if len(provider.prompts) != 1 {
		t.Fatalf("LLM received %d prompts, want 1", len(provider.prompts))
	}
	prompt := provider.prompts[0]
	for _, fragment := range []string{"Adults need 7 to 9 hours", "Heart rate: 75", "Sedentary"} {
		if !strings.Contains(prompt, fragment) {
			t.Errorf("prompt missing %q", fragment)
		}
	}
}

func TestPipelineSearchFailureDegradesToEmpty(t *testing.T) {
	retriever := &fakeRetriever{ready: true, err: errors.New("index corrupted")}
	provider := &fakeStreamLLM{chunks: []string{"Hydrate."}}
	p := newTestPipeline(retriever, provider, &fakeAdvisor{})

	state := NewSessionState("run-7", healthdata.Generate())
	p.Run(context.Background(), state)

	if state.Knowledge == nil || state.Knowledge.Documents != 0 {
		t.Error("search failure should degrade to zero documents")
	}
	if state.Status != StatusRecommendationGenerated {
		t.Errorf("status = %q, want terminal", state.Status)
	}
}
