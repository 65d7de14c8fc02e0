package dto

import (
	"time"

	"health-agent-be/pkg/agent"
	"health-agent-be/pkg/store"
)

// RecommendationRequest carries the telemetry for one pipeline run. All
// metric fields are optional: a zero heart rate means "no telemetry
// provided" and the synthetic data source is used instead. 7-day averages,
// when present, take precedence over the instantaneous values.
type RecommendationRequest struct {
	// Optional client-minted session id. Supplying one lets the caller open
	// the websocket stream or poll the session endpoint before the run
	// starts, so no partial output is missed. Omitted, the server mints one
	// and returns it with the completed result.
	SessionID string `json:"session_id,omitempty" validate:"omitempty,uuid4"`

	HeartRate  float64 `json:"heart_rate" validate:"omitempty,gte=0,lte=300"`
	SleepHours float64 `json:"sleep_hours" validate:"omitempty,gte=0,lte=24"`
	Steps      int     `json:"steps" validate:"omitempty,gte=0"`
	Calories   int     `json:"calories" validate:"omitempty,gte=0"`

	HeartRateAvg7d *float64 `json:"heart_rate_avg_7d,omitempty" validate:"omitempty,gte=0,lte=300"`
	SleepAvg7d     *float64 `json:"sleep_avg_7d,omitempty" validate:"omitempty,gte=0,lte=24"`
	StepsAvg7d     *float64 `json:"steps_avg_7d,omitempty" validate:"omitempty,gte=0"`

	// Optional coordinate for the weather advisory; falls back to the
	// configured default location.
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
}

type RecommendationResponse struct {
	SessionID      string                `json:"session_id"`
	Status         string                `json:"status"`
	Recommendation string                `json:"recommendation"`
	VitalsStatus   map[string]string     `json:"vitals_status"`
	Weather        *store.WeatherContext `json:"weather_context,omitempty"`
	DocumentsUsed  int                   `json:"documents_used"`
	StageNotes     map[string]string     `json:"stage_notes"`
	CreatedAt      time.Time             `json:"created_at"`
}

type SessionResponse struct {
	SessionID        string            `json:"session_id"`
	Status           string            `json:"status"`
	StreamingPartial string            `json:"streaming_partial"`
	Recommendations  []string          `json:"recommendations"`
	VitalsStatus     map[string]string `json:"vitals_status"`
	StageNotes       map[string]string `json:"stage_notes"`
	CreatedAt        time.Time         `json:"created_at"`
}

// NewRecommendationResponse flattens a terminal session state for the API.
// Both builders read through Snapshot so they stay safe against a still
// running pipeline.
func NewRecommendationResponse(state *agent.SessionState) *RecommendationResponse {
	snap := state.Snapshot()
	resp := &RecommendationResponse{
		SessionID:     snap.ID,
		Status:        string(snap.Status),
		VitalsStatus:  snap.VitalsStatus,
		Weather:       snap.Weather,
		DocumentsUsed: snap.DocumentsUsed,
		StageNotes:    snap.StageNotes,
		CreatedAt:     snap.CreatedAt,
	}
	if len(snap.Recommendations) > 0 {
		resp.Recommendation = snap.Recommendations[len(snap.Recommendations)-1]
	}
	return resp
}

func NewSessionResponse(state *agent.SessionState) *SessionResponse {
	snap := state.Snapshot()
	return &SessionResponse{
		SessionID:        snap.ID,
		Status:           string(snap.Status),
		StreamingPartial: snap.StreamingPartial,
		Recommendations:  snap.Recommendations,
		VitalsStatus:     snap.VitalsStatus,
		StageNotes:       snap.StageNotes,
		CreatedAt:        snap.CreatedAt,
	}
}
