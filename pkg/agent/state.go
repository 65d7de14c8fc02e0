package agent

import (
	"sync"
	"time"

	"health-agent-be/pkg/healthdata"
	"health-agent-be/pkg/llm"
	"health-agent-be/pkg/store"
)

// Status tracks pipeline progress. Transitions are unconditional and
// sequential; RecommendationGenerated is terminal.
type Status string

const (
	StatusInit                    Status = "Init"
	StatusVitalsEvaluated         Status = "VitalsEvaluated"
	StatusKnowledgeRetrieved      Status = "KnowledgeRetrieved"
	StatusRecommendationGenerated Status = "RecommendationGenerated"
)

// HealthMetrics carries the raw telemetry values and everything the vitals
// stage derives from them. The 7-day-average fields are optional; when the
// heart-rate average is present the whole averaged set takes precedence and
// is mirrored into the canonical fields.
type HealthMetrics struct {
	HeartRate  float64 `json:"heart_rate"`
	SleepHours float64 `json:"sleep_hours"`
	Steps      int     `json:"steps"`
	Calories   int     `json:"calories"`

	HeartRateAvg7d *float64 `json:"heart_rate_avg_7d,omitempty"`
	SleepAvg7d     *float64 `json:"sleep_avg_7d,omitempty"`
	StepsAvg7d     *float64 `json:"steps_avg_7d,omitempty"`

	VitalsStatus  map[string]string     `json:"vitals_status,omitempty"`
	WeatherImpact *store.WeatherContext `json:"weather_impact,omitempty"`
	LastProcessed time.Time             `json:"last_processed,omitempty"`
}

// RetrievedKnowledge holds the newline-joined retrieved text plus a snapshot
// of the metrics the query was built from.
type RetrievedKnowledge struct {
	Text        string        `json:"text"`
	Documents   int           `json:"documents"`
	Metrics     HealthMetrics `json:"metrics"`
	RetrievedAt time.Time     `json:"retrieved_at"`
}

// SessionState is the single mutable record threaded through all pipeline
// stages for one end-to-end run. It has no identity beyond that run and is
// never shared across sessions. A caller may poll the state while a stage is
// writing it, so every field an external reader can see goes through the
// lock: stages mutate via the Set*/Append* methods and readers take a
// Snapshot instead of touching fields directly.
type SessionState struct {
	ID              string                `json:"id"`
	Conversation    []llm.Message         `json:"conversation"`
	Health          HealthMetrics         `json:"health_metrics"`
	Weather         *store.WeatherContext `json:"weather_context,omitempty"`
	Knowledge       *RetrievedKnowledge   `json:"retrieved_knowledge,omitempty"`
	Recommendations []string              `json:"recommendations"`
	Status          Status                `json:"status"`
	CreatedAt       time.Time             `json:"created_at"`

	mu               sync.RWMutex
	streamingPartial string
	stageNotes       map[string]string
	partialObservers []func(partial string)
}

// NewSessionState seeds a state from a telemetry record.
func NewSessionState(id string, record healthdata.Record) *SessionState {
	return &SessionState{
		ID: id,
		Health: HealthMetrics{
			HeartRate:  record.HeartRate,
			SleepHours: record.SleepHours,
			Steps:      record.Steps,
			Calories:   record.Calories,
		},
		Status:     StatusInit,
		CreatedAt:  time.Now(),
		stageNotes: make(map[string]string),
	}
}

// WeatherAdvised reports whether the weather context is present with a full
// advisory. An incomplete context is treated the same as a missing one.
func (s *SessionState) WeatherAdvised() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Weather.Advised()
}

// SessionSnapshot is a consistent copy of everything an external reader may
// observe mid-run. Slices and maps are copied; the weather pointer is shared
// because a context is never mutated once attached.
type SessionSnapshot struct {
	ID               string
	Status           Status
	StreamingPartial string
	Recommendations  []string
	VitalsStatus     map[string]string
	Weather          *store.WeatherContext
	DocumentsUsed    int
	StageNotes       map[string]string
	CreatedAt        time.Time
}

// Snapshot returns a copy safe to read while the pipeline is writing.
func (s *SessionState) Snapshot() SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := SessionSnapshot{
		ID:               s.ID,
		Status:           s.Status,
		StreamingPartial: s.streamingPartial,
		Recommendations:  append([]string(nil), s.Recommendations...),
		VitalsStatus:     make(map[string]string, len(s.Health.VitalsStatus)),
		Weather:          s.Weather,
		StageNotes:       make(map[string]string, len(s.stageNotes)),
		CreatedAt:        s.CreatedAt,
	}
	for k, v := range s.Health.VitalsStatus {
		snap.VitalsStatus[k] = v
	}
	for k, v := range s.stageNotes {
		snap.StageNotes[k] = v
	}
	if s.Knowledge != nil {
		snap.DocumentsUsed = s.Knowledge.Documents
	}
	return snap
}

func (s *SessionState) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = status
}

func (s *SessionState) SetWeather(w *store.WeatherContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Weather = w
}

// SetVitals records the classification result and stamps the weather impact
// and processing time alongside it.
func (s *SessionState) SetVitals(status map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Health.VitalsStatus = status
	s.Health.WeatherImpact = s.Weather
	s.Health.LastProcessed = time.Now()
}

func (s *SessionState) SetKnowledge(k *RetrievedKnowledge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Knowledge = k
}

func (s *SessionState) AppendRecommendation(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Recommendations = append(s.Recommendations, text)
}

// SetStreamingPartial publishes the full-so-far generated text and notifies
// any registered observers with it.
func (s *SessionState) SetStreamingPartial(text string) {
	s.mu.Lock()
	s.streamingPartial = text
	observers := s.partialObservers
	s.mu.Unlock()

	for _, fn := range observers {
		fn(text)
	}
}

func (s *SessionState) StreamingPartial() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streamingPartial
}

// OnPartial registers an observer called with the running total each time the
// generation stage streams an increment. Register before the pipeline runs.
func (s *SessionState) OnPartial(fn func(partial string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partialObservers = append(s.partialObservers, fn)
}

func (s *SessionState) SetStageNote(stage, note string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stageNotes == nil {
		s.stageNotes = make(map[string]string)
	}
	s.stageNotes[stage] = note
}

// StageNotes returns a copy of the diagnostic trail.
func (s *SessionState) StageNotes() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	notes := make(map[string]string, len(s.stageNotes))
	for k, v := range s.stageNotes {
		notes[k] = v
	}
	return notes
}
