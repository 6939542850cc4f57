package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cropadvisor/domain/core"
	"cropadvisor/domain/crop"
	"cropadvisor/ports"

	"github.com/jmoiron/sqlx"
)

// recommendationRow is the persisted shape. Structured parts are stored as
// JSON text so the table stays portable across drivers.
type recommendationRow struct {
	ID                string    `db:"id"`
	FarmerID          string    `db:"farmer_id"`
	Observation       string    `db:"observation"`
	Features          string    `db:"features"`
	Result            string    `db:"result"`
	TopCrop           string    `db:"top_crop"`
	ConfidencePercent float64   `db:"confidence_percent"`
	ModelVersion      string    `db:"model_version"`
	Source            string    `db:"source"`
	CreatedAt         time.Time `db:"created_at"`
}

// RecommendationRepositoryImpl implements RecommendationRepository on sqlx
type RecommendationRepositoryImpl struct {
	db *sqlx.DB
}

// NewRecommendationRepository creates a new recommendation history repository
func NewRecommendationRepository(db *sqlx.DB) ports.RecommendationRepository {
	return &RecommendationRepositoryImpl{db: db}
}

// Save stores a recommendation made for a farmer
func (r *RecommendationRepositoryImpl) Save(ctx context.Context, rec *crop.Recommendation) error {
	if rec.FarmerID == "" {
		return fmt.Errorf("%w: recommendation has no farmer", core.ErrInvalidInput)
	}
	if rec.ID == "" {
		rec.ID = core.NewRecommendationID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	row, err := toRow(rec)
	if err != nil {
		return err
	}

	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO recommendations (id, farmer_id, observation, features, result, top_crop,
			confidence_percent, model_version, source, created_at)
		VALUES (:id, :farmer_id, :observation, :features, :result, :top_crop,
			:confidence_percent, :model_version, :source, :created_at)
	`, row)
	if err != nil {
		return fmt.Errorf("insert recommendation: %w", err)
	}
	return nil
}

// ListByFarmer returns a farmer's recommendations newest first
func (r *RecommendationRepositoryImpl) ListByFarmer(ctx context.Context, farmerID core.FarmerID, limit int) ([]*crop.Recommendation, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []recommendationRow
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT id, farmer_id, observation, features, result, top_crop,
			confidence_percent, model_version, source, created_at
		FROM recommendations
		WHERE farmer_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`), string(farmerID), limit)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}

	out := make([]*crop.Recommendation, 0, len(rows))
	for _, row := range rows {
		rec, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func toRow(rec *crop.Recommendation) (recommendationRow, error) {
	observation, err := json.Marshal(rec.Observation)
	if err != nil {
		return recommendationRow{}, fmt.Errorf("encode observation: %w", err)
	}
	features, err := json.Marshal(rec.Features)
	if err != nil {
		return recommendationRow{}, fmt.Errorf("encode features: %w", err)
	}
	result, err := json.Marshal(rec.Result)
	if err != nil {
		return recommendationRow{}, fmt.Errorf("encode result: %w", err)
	}
	return recommendationRow{
		ID:                rec.ID.String(),
		FarmerID:          rec.FarmerID.String(),
		Observation:       string(observation),
		Features:          string(features),
		Result:            string(result),
		TopCrop:           rec.Result.TopCrop,
		ConfidencePercent: rec.Result.ConfidencePercent,
		ModelVersion:      rec.ModelVersion,
		Source:            rec.Source,
		CreatedAt:         rec.CreatedAt,
	}, nil
}

func fromRow(row recommendationRow) (*crop.Recommendation, error) {
	rec := &crop.Recommendation{
		ID:           core.RecommendationID(row.ID),
		FarmerID:     core.FarmerID(row.FarmerID),
		ModelVersion: row.ModelVersion,
		Source:       row.Source,
		CreatedAt:    row.CreatedAt,
	}
	if err := json.Unmarshal([]byte(row.Observation), &rec.Observation); err != nil {
		return nil, fmt.Errorf("decode observation of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Features), &rec.Features); err != nil {
		return nil, fmt.Errorf("decode features of %s: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Result), &rec.Result); err != nil {
		return nil, fmt.Errorf("decode result of %s: %w", row.ID, err)
	}
	return rec, nil
}
