package service

import (
	"context"
	"fmt"
	"time"

	"health-agent-be/internal/config"
	"health-agent-be/internal/constant"
	"health-agent-be/internal/dto"
	"health-agent-be/internal/pkg/logger"
	"health-agent-be/internal/repository/memory"
	"health-agent-be/pkg/agent"
	"health-agent-be/pkg/events"
	"health-agent-be/pkg/healthdata"
	pktNats "health-agent-be/pkg/nats"

	"github.com/google/uuid"
)

type IRecommendationService interface {
	Generate(ctx context.Context, req *dto.RecommendationRequest) (*dto.RecommendationResponse, error)
	GetSession(ctx context.Context, sessionID string) (*dto.SessionResponse, error)
	GetMetrics(ctx context.Context) healthdata.Record
}

// StreamDelivery pushes per-session frames to watching clients. Implemented
// by the websocket hub.
type StreamDelivery interface {
	SendToSession(sessionID string, msgType string, payload interface{})
}

type recommendationService struct {
	pipeline       *agent.Pipeline
	advisor        agent.WeatherAdvisor
	sessionRepo    *memory.SessionRepository
	delivery       StreamDelivery
	eventPublisher *pktNats.Publisher
	weatherCfg     config.WeatherConfig
	logger         logger.ILogger
}

func NewRecommendationService(
	pipeline *agent.Pipeline,
	advisor agent.WeatherAdvisor,
	sessionRepo *memory.SessionRepository,
	delivery StreamDelivery,
	eventPublisher *pktNats.Publisher,
	weatherCfg config.WeatherConfig,
	log logger.ILogger,
) IRecommendationService {
	return &recommendationService{
		pipeline:       pipeline,
		advisor:        advisor,
		sessionRepo:    sessionRepo,
		delivery:       delivery,
		eventPublisher: eventPublisher,
		weatherCfg:     weatherCfg,
		logger:         log,
	}
}

// Generate runs one full pipeline pass. The call blocks until the terminal
// state; a client that minted its own session id can subscribe to the
// websocket stream or poll the session endpoint before calling and observe
// the partial output while the run is in flight.
func (s *recommendationService) Generate(ctx context.Context, req *dto.RecommendationRequest) (*dto.RecommendationResponse, error) {
	sessionID := uuid.New().String()
	if req != nil && req.SessionID != "" {
		sessionID = req.SessionID
	}

	state := agent.NewSessionState(sessionID, s.recordFrom(req))
	if req != nil {
		state.Health.HeartRateAvg7d = req.HeartRateAvg7d
		state.Health.SleepAvg7d = req.SleepAvg7d
		state.Health.StepsAvg7d = req.StepsAvg7d
	}

	// Seed the weather context before the pipeline so the evaluator does not
	// need to fetch it mid-run.
	lat, lon := s.weatherCfg.DefaultLatitude, s.weatherCfg.DefaultLongitude
	if req != nil && req.Latitude != nil && req.Longitude != nil {
		lat, lon = *req.Latitude, *req.Longitude
	}
	state.SetWeather(s.advisor.Advise(ctx, lat, lon))

	if s.delivery != nil {
		sessionID := state.ID
		state.OnPartial(func(partial string) {
			s.delivery.SendToSession(sessionID, constant.FrameRecommendationPartial, partial)
		})
	}

	// Visible to pollers while the run is in flight.
	s.sessionRepo.Save(state)

	s.pipeline.Run(ctx, state)
	s.sessionRepo.Save(state)

	resp := dto.NewRecommendationResponse(state)

	if s.delivery != nil {
		s.delivery.SendToSession(state.ID, constant.FrameRecommendationCompleted, resp)
	}
	if s.eventPublisher != nil {
		pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		evt := events.NewRecommendationCompleted(state.ID, resp.Recommendation)
		if err := s.eventPublisher.Publish(pubCtx, evt); err != nil {
			s.logger.Warn("RecommendationService", "Failed to publish completion event", map[string]interface{}{
				"session_id": state.ID,
				"error":      err.Error(),
			})
		}
	}

	return resp, nil
}

func (s *recommendationService) GetSession(_ context.Context, sessionID string) (*dto.SessionResponse, error) {
	state, found := s.sessionRepo.Get(sessionID)
	if !found {
		return nil, fmt.Errorf("session %s not found", sessionID)
	}
	return dto.NewSessionResponse(state), nil
}

func (s *recommendationService) GetMetrics(_ context.Context) healthdata.Record {
	return healthdata.Generate()
}

// recordFrom builds the telemetry record for a run. A request without a
// heart rate means no telemetry was supplied; the synthetic source stands in.
func (s *recommendationService) recordFrom(req *dto.RecommendationRequest) healthdata.Record {
	if req == nil || (req.HeartRate == 0 && req.HeartRateAvg7d == nil) {
		return healthdata.Generate()
	}
	return healthdata.Record{
		HeartRate:   req.HeartRate,
		SleepHours:  req.SleepHours,
		Steps:       req.Steps,
		Calories:    req.Calories,
		LastUpdated: time.Now(),
	}
}
