package ports

import (
	"context"
	"time"
)

// RecommendationEvent is published after every successful recommendation
type RecommendationEvent struct {
	Type              string    `json:"type"`
	RecommendationID  string    `json:"recommendation_id"`
	FarmerID          string    `json:"farmer_id,omitempty"`
	DeviceID          string    `json:"device_id,omitempty"`
	TopCrop           string    `json:"top_crop"`
	ConfidencePercent float64   `json:"confidence_percent"`
	ModelVersion      string    `json:"model_version"`
	Source            string    `json:"source"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// EventRecommendationGenerated is the event type for RecommendationEvent
const EventRecommendationGenerated = "recommendation.generated"

// EventPublisher delivers domain events to downstream consumers
type EventPublisher interface {
	Publish(ctx context.Context, event RecommendationEvent) error
	Close() error
}
