package constant

// Websocket frame types pushed to stream subscribers.
const (
	FrameRecommendationPartial   = "recommendation_partial"
	FrameRecommendationCompleted = "recommendation_completed"
	FrameNotification            = "notification"
)

// Durable consumer names on the event stream.
const (
	NotificationDurable = "health-notif-worker"
)
