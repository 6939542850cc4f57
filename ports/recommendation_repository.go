package ports

import (
	"context"

	"cropadvisor/domain/core"
	"cropadvisor/domain/crop"
)

// RecommendationRepository stores the recommendation history of farmers
type RecommendationRepository interface {
	Save(ctx context.Context, rec *crop.Recommendation) error
	ListByFarmer(ctx context.Context, farmerID core.FarmerID, limit int) ([]*crop.Recommendation, error)
}
