package service

import (
	"context"
	"fmt"

	"health-agent-be/internal/constant"
	"health-agent-be/internal/pkg/logger"
	"health-agent-be/pkg/events"
	pktNats "health-agent-be/pkg/nats"
)

// NotificationDelivery defines how to push real-time updates.
// Typically implemented by the WebSocket Hub.
type NotificationDelivery interface {
	Broadcast(msgType string, payload interface{})
}

// NotificationService turns bus events into ephemeral push notifications.
// Nothing is persisted; a client that is offline simply misses the frame.
type NotificationService struct {
	subscriber *pktNats.Subscriber
	delivery   NotificationDelivery
	logger     logger.ILogger
}

func NewNotificationService(sub *pktNats.Subscriber, delivery NotificationDelivery, log logger.ILogger) *NotificationService {
	return &NotificationService{
		subscriber: sub,
		delivery:   delivery,
		logger:     log,
	}
}

// Start begins listening to the event bus with a durable consumer.
func (s *NotificationService) Start() {
	err := s.subscriber.Subscribe("health.>", constant.NotificationDurable, s.handleEvent)
	if err != nil {
		s.logger.Error("NotificationService", "Failed to start notification subscriber", map[string]interface{}{"error": err.Error()})
		return
	}
	s.logger.Info("NotificationService", "Notification service started, listening to health.>", nil)
}

func (s *NotificationService) handleEvent(_ context.Context, event events.Event) error {
	s.logger.Info("NotificationService", fmt.Sprintf("Processing event: %s", event.EventType()), map[string]interface{}{"type": event.EventType()})

	if s.delivery == nil {
		return nil
	}

	var title, message string
	payload := event.Payload()

	switch event.EventType() {
	case events.TypeRecommendationCompleted:
		title = "Recommendation ready"
		message = "A new health recommendation has been generated."
	case events.TypeDocumentIngested:
		source, _ := payload["source"].(string)
		title = "Knowledge base updated"
		message = fmt.Sprintf("Document %q was indexed.", source)
	default:
		// Unknown events are acked and dropped; requeueing cannot help.
		s.logger.Warn("NotificationService", "No notification mapping for event", map[string]interface{}{"type": event.EventType()})
		return nil
	}

	s.delivery.Broadcast(constant.FrameNotification, map[string]interface{}{
		"title":   title,
		"message": message,
		"event":   event.EventType(),
		"payload": payload,
	})
	return nil
}
