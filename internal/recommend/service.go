package recommend

import (
	"context"
	"fmt"
	"time"

	"cropadvisor/domain/core"
	"cropadvisor/domain/crop"
	"cropadvisor/internal"
	"cropadvisor/internal/features"
	"cropadvisor/internal/metrics"
	"cropadvisor/internal/modelstore"
	"cropadvisor/ports"
)

// Request is one recommendation to make
type Request struct {
	Observation crop.RawObservation
	FarmerID    core.FarmerID
	DeviceID    string
	Source      string
}

// Options wires the optional collaborators of a Service. Nil fields disable
// the corresponding feature.
type Options struct {
	Cache            ports.ResultCache
	History          ports.RecommendationRepository
	Farmers          ports.FarmerRepository
	Events           ports.EventPublisher
	Metrics          *metrics.Metrics
	Logger           *internal.Logger
	BatchConcurrency int
}

// Service runs recommendations against the shared model and records them
type Service struct {
	models           *modelstore.Store
	cache            ports.ResultCache
	history          ports.RecommendationRepository
	farmers          ports.FarmerRepository
	events           ports.EventPublisher
	metrics          *metrics.Metrics
	logger           *internal.Logger
	batchConcurrency int
}

// NewService creates a recommendation service
func NewService(models *modelstore.Store, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = internal.DefaultLogger
	}
	if opts.BatchConcurrency < 1 {
		opts.BatchConcurrency = 4
	}
	return &Service{
		models:           models,
		cache:            opts.Cache,
		history:          opts.History,
		farmers:          opts.Farmers,
		events:           opts.Events,
		metrics:          opts.Metrics,
		logger:           opts.Logger,
		batchConcurrency: opts.BatchConcurrency,
	}
}

// Engineer validates obs and derives its features without touching the model
func (s *Service) Engineer(obs crop.RawObservation) (crop.EngineeredFeatures, error) {
	return features.Derive(obs)
}

// Classes returns the crop labels of the loaded model
func (s *Service) Classes(ctx context.Context) ([]string, error) {
	m, err := s.models.Get(ctx)
	if err != nil {
		return nil, err
	}
	return m.Codec.Classes(), nil
}

// ModelStatus reports the model store state
func (s *Service) ModelStatus() modelstore.Status {
	st := s.models.Status()
	s.metrics.ModelLoaded(st.Loaded)
	return st
}

// Recommend produces a recommendation for req. Results are cached per model
// version and observation; requests naming a farmer are stored in history.
func (s *Service) Recommend(ctx context.Context, req Request) (*crop.Recommendation, error) {
	source := req.Source
	if source == "" {
		source = crop.SourceAPI
	}

	derived, err := features.Derive(req.Observation)
	if err != nil {
		s.metrics.Recommendation(source, "invalid_input", "", 0)
		return nil, err
	}

	model, err := s.models.Get(ctx)
	if err != nil {
		s.metrics.Recommendation(source, "model_unavailable", "", 0)
		return nil, err
	}
	s.metrics.ModelLoaded(true)

	if req.FarmerID != "" && s.farmers != nil {
		if _, err := s.farmers.GetByID(ctx, req.FarmerID); err != nil {
			s.metrics.Recommendation(source, "unknown_farmer", "", 0)
			return nil, err
		}
	}

	rec := &crop.Recommendation{
		ID:           core.NewRecommendationID(),
		FarmerID:     req.FarmerID,
		Observation:  req.Observation,
		ModelVersion: model.Version,
		Source:       source,
		CreatedAt:    time.Now().UTC(),
	}

	key := cacheKey(model, req.Observation)
	if cached, ok := s.cacheGet(ctx, key); ok {
		rec.Features = derived
		rec.Result = *cached
		rec.CacheHit = true
	} else {
		start := time.Now()
		engineered, result, err := recommendFeatures(req.Observation, model.Classifier, model.Codec)
		if err != nil {
			s.metrics.Recommendation(source, outcomeOf(err), "", 0)
			s.logger.Error("[RecommendationService] %s recommendation failed: %v", source, err)
			return nil, err
		}
		rec.Features = engineered
		rec.Result = *result
		s.metrics.Recommendation(source, "ok", result.TopCrop, time.Since(start))
		s.cacheSet(ctx, key, result)
	}
	if rec.CacheHit {
		s.metrics.Recommendation(source, "ok", rec.Result.TopCrop, 0)
	}

	if rec.FarmerID != "" && s.history != nil {
		if err := s.history.Save(ctx, rec); err != nil {
			s.logger.Error("[RecommendationService] failed to store recommendation %s for farmer %s: %v", rec.ID, rec.FarmerID, err)
		}
	}

	s.publish(ctx, rec, req.DeviceID)

	s.logger.Debug("[RecommendationService] %s -> %s (%.1f%%, cache=%t)",
		req.Observation.Fingerprint().Short(), rec.Result.TopCrop, rec.Result.ConfidencePercent, rec.CacheHit)
	return rec, nil
}

// History lists a farmer's stored recommendations newest first
func (s *Service) History(ctx context.Context, farmerID core.FarmerID, limit int) ([]*crop.Recommendation, error) {
	if s.history == nil {
		return nil, fmt.Errorf("%w: recommendation history is not configured", core.ErrNotFound)
	}
	if s.farmers != nil {
		if _, err := s.farmers.GetByID(ctx, farmerID); err != nil {
			return nil, err
		}
	}
	return s.history.ListByFarmer(ctx, farmerID, limit)
}

func (s *Service) cacheGet(ctx context.Context, key string) (*crop.Result, bool) {
	if s.cache == nil {
		return nil, false
	}
	result, ok := s.cache.Get(ctx, key)
	if ok {
		s.metrics.CacheHit()
	} else {
		s.metrics.CacheMiss()
	}
	return result, ok
}

func (s *Service) cacheSet(ctx context.Context, key string, result *crop.Result) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, result); err != nil {
		s.logger.Warn("[RecommendationService] cache write failed: %v", err)
	}
}

func (s *Service) publish(ctx context.Context, rec *crop.Recommendation, deviceID string) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(ctx, ports.RecommendationEvent{
		Type:              ports.EventRecommendationGenerated,
		RecommendationID:  rec.ID.String(),
		FarmerID:          rec.FarmerID.String(),
		DeviceID:          deviceID,
		TopCrop:           rec.Result.TopCrop,
		ConfidencePercent: rec.Result.ConfidencePercent,
		ModelVersion:      rec.ModelVersion,
		Source:            rec.Source,
		OccurredAt:        rec.CreatedAt,
	})
	if err != nil {
		s.metrics.EventPublishFailed()
		s.logger.Warn("[RecommendationService] event publish failed for %s: %v", rec.ID, err)
	}
}

// cacheKey scopes the observation fingerprint to the model that produced
// the result.
func cacheKey(m *modelstore.Model, obs crop.RawObservation) string {
	return m.Name + "@" + m.Version + ":" + obs.Fingerprint().String()
}

func outcomeOf(err error) string {
	switch {
	case core.IsInvalidInputError(err):
		return "invalid_input"
	case core.IsModelUnavailableError(err):
		return "model_unavailable"
	}
	return "error"
}
