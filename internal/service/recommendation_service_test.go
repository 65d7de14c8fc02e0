package service

import (
	"context"
	"strings"
	"testing"

	"health-agent-be/internal/config"
	"health-agent-be/internal/constant"
	"health-agent-be/internal/dto"
	"health-agent-be/internal/pkg/logger"
	"health-agent-be/internal/repository/memory"
	"health-agent-be/pkg/agent"
	"health-agent-be/pkg/store"

	"github.com/google/uuid"
)

type stubAdvisor struct{}

func (stubAdvisor) Advise(ctx context.Context, latitude, longitude float64) *store.WeatherContext {
	return &store.WeatherContext{
		Temperature:            20,
		Humidity:               50,
		Condition:              "Clear sky",
		ExerciseRecommendation: store.ExerciseOutdoor,
		IntensityLevel:         store.IntensityModerate,
		Reasoning:              "fine weather",
	}
}

type scriptedStage struct {
	name    string
	process func(ctx context.Context, state *agent.SessionState) error
}

func (s *scriptedStage) Name() string { return s.name }

func (s *scriptedStage) Process(ctx context.Context, state *agent.SessionState) error {
	return s.process(ctx, state)
}

type capturedFrame struct {
	sessionID string
	msgType   string
}

type fakeDelivery struct {
	frames []capturedFrame
}

func (d *fakeDelivery) SendToSession(sessionID string, msgType string, payload interface{}) {
	d.frames = append(d.frames, capturedFrame{sessionID: sessionID, msgType: msgType})
}

func newTestService(stage agent.Stage, repo *memory.SessionRepository, delivery StreamDelivery) IRecommendationService {
	log := logger.NewNoopLogger()
	return NewRecommendationService(
		agent.NewPipeline(log, stage),
		stubAdvisor{},
		repo,
		delivery,
		nil,
		config.WeatherConfig{DefaultLatitude: 36.1699, DefaultLongitude: -115.1398},
		log,
	)
}

func TestGenerateHonorsClientSessionID(t *testing.T) {
	sessionID := uuid.New().String()
	repo := memory.NewSessionRepository()
	delivery := &fakeDelivery{}

	stage := &scriptedStage{
		name: "Recommendations",
		process: func(ctx context.Context, state *agent.SessionState) error {
			// The session must already be visible to pollers under the
			// client-supplied id while the pipeline is still running.
			state.SetStreamingPartial("Take a short walk")
			if _, found := repo.Get(sessionID); !found {
				t.Error("session not pollable mid-run under the supplied id")
			}
			state.AppendRecommendation("Take a short walk after lunch.")
			state.SetStatus(agent.StatusRecommendationGenerated)
			return nil
		},
	}
	svc := newTestService(stage, repo, delivery)

	resp, err := svc.Generate(context.Background(), &dto.RecommendationRequest{
		SessionID:  sessionID,
		HeartRate:  75,
		SleepHours: 7.5,
		Steps:      8500,
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if resp.SessionID != sessionID {
		t.Errorf("session id = %q, want the client-supplied %q", resp.SessionID, sessionID)
	}

	var sawPartial bool
	for _, f := range delivery.frames {
		if f.sessionID != sessionID {
			t.Errorf("frame addressed to %q, want %q", f.sessionID, sessionID)
		}
		if f.msgType == constant.FrameRecommendationPartial {
			sawPartial = true
		}
	}
	if !sawPartial {
		t.Error("no partial frame reached the delivery under the supplied id")
	}
	last := delivery.frames[len(delivery.frames)-1]
	if last.msgType != constant.FrameRecommendationCompleted {
		t.Errorf("last frame = %q, want completion", last.msgType)
	}

	session, err := svc.GetSession(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if !strings.Contains(session.StreamingPartial, "Take a short walk") {
		t.Errorf("streaming partial = %q", session.StreamingPartial)
	}
}

func TestGenerateMintsSessionIDWhenAbsent(t *testing.T) {
	repo := memory.NewSessionRepository()
	stage := &scriptedStage{
		name: "Recommendations",
		process: func(ctx context.Context, state *agent.SessionState) error {
			state.AppendRecommendation("Rest well.")
			state.SetStatus(agent.StatusRecommendationGenerated)
			return nil
		},
	}
	svc := newTestService(stage, repo, &fakeDelivery{})

	resp, err := svc.Generate(context.Background(), nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := uuid.Parse(resp.SessionID); err != nil {
		t.Errorf("minted session id %q is not a UUID: %v", resp.SessionID, err)
	}
	if _, found := repo.Get(resp.SessionID); !found {
		t.Error("completed session not stored under the minted id")
	}
}
