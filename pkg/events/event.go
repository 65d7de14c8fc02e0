package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "RECOMMENDATION_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const (
	TypeRecommendationCompleted = "RECOMMENDATION_COMPLETED"
	TypeDocumentIngested        = "DOCUMENT_INGESTED"
)

// NewRecommendationCompleted is emitted when a pipeline run reaches its
// terminal state with a generated recommendation.
func NewRecommendationCompleted(sessionID, recommendation string) BaseEvent {
	return BaseEvent{
		Type: TypeRecommendationCompleted,
		Data: map[string]interface{}{
			"session_id":     sessionID,
			"recommendation": recommendation,
		},
		OccurredAt: time.Now(),
	}
}

// NewDocumentIngested is emitted after a document has been chunked, embedded,
// and stored in the knowledge index.
func NewDocumentIngested(source string, chunks int) BaseEvent {
	return BaseEvent{
		Type: TypeDocumentIngested,
		Data: map[string]interface{}{
			"source": source,
			"chunks": chunks,
		},
		OccurredAt: time.Now(),
	}
}
