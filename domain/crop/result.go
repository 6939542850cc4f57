package crop

import (
	"time"

	"cropadvisor/domain/core"
)

// MaxRanked caps the ranked list length.
const MaxRanked = 5

// RankedCrop pairs a crop label with its probability in percent.
type RankedCrop struct {
	Crop               string  `json:"crop"`
	ProbabilityPercent float64 `json:"probability_percent"`
}

// Result is the outcome of one recommendation.
// RankedTopN[0].Crop always equals TopCrop and percentages never increase.
type Result struct {
	TopCrop           string       `json:"top_crop"`
	ConfidencePercent float64      `json:"confidence_percent"`
	RankedTopN        []RankedCrop `json:"ranked_top_n"`
}

// Recommendation is a Result together with the context it was produced in.
type Recommendation struct {
	ID           core.RecommendationID `json:"id"`
	FarmerID     core.FarmerID         `json:"farmer_id,omitempty"`
	Observation  RawObservation        `json:"observation"`
	Features     EngineeredFeatures    `json:"features"`
	Result       Result                `json:"result"`
	ModelVersion string                `json:"model_version"`
	Source       string                `json:"source"`
	CacheHit     bool                  `json:"cache_hit"`
	CreatedAt    time.Time             `json:"created_at"`
}

// Recommendation sources
const (
	SourceAPI    = "api"
	SourceBatch  = "batch"
	SourceSensor = "sensor"
	SourceCLI    = "cli"
)
