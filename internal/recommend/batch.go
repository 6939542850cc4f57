package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cropadvisor/adapters/excel"
	"cropadvisor/domain/core"
	"cropadvisor/domain/crop"
	"cropadvisor/internal/profiling"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
)

// BatchItem is the outcome of one input row. Exactly one of Recommendation
// and Error is set.
type BatchItem struct {
	Line           int                  `json:"line"`
	Recommendation *crop.Recommendation `json:"recommendation,omitempty"`
	Error          string               `json:"error,omitempty"`
}

// CropCount is one entry of the top crop frequency table
type CropCount struct {
	Crop  string `json:"crop"`
	Count int    `json:"count"`
}

// BatchSummary aggregates the successful rows of a batch
type BatchSummary struct {
	Total            int         `json:"total"`
	Succeeded        int         `json:"succeeded"`
	Failed           int         `json:"failed"`
	MeanConfidence   float64     `json:"mean_confidence_percent"`
	MedianConfidence float64     `json:"median_confidence_percent"`
	MinConfidence    float64     `json:"min_confidence_percent"`
	MaxConfidence    float64     `json:"max_confidence_percent"`
	TopCrops         []CropCount `json:"top_crops"`
	ModelVersion     string      `json:"model_version"`
	Duration         string      `json:"duration"`
}

// BatchReport holds per-row results in input order plus the summary and a
// profile of the readings that were recommended.
type BatchReport struct {
	Items        []BatchItem              `json:"items"`
	Summary      BatchSummary             `json:"summary"`
	InputProfile []profiling.FieldProfile `json:"input_profile,omitempty"`
}

// RecommendTable recommends every row of table concurrently. Rows that fail
// to parse or validate are reported per row; a model failure aborts the
// whole batch.
func (s *Service) RecommendTable(ctx context.Context, table *excel.Table, farmerID core.FarmerID, source string) (*BatchReport, error) {
	if source == "" {
		source = crop.SourceBatch
	}
	if _, err := s.models.Get(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	items := make([]BatchItem, len(table.Rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)
	for i, row := range table.Rows {
		i, row := i, row
		items[i].Line = row.Line
		g.Go(func() error {
			obs, err := crop.ParseObservation(row.Values)
			if err != nil {
				items[i].Error = err.Error()
				return nil
			}
			rec, err := s.Recommend(gctx, Request{Observation: obs, FarmerID: farmerID, Source: source})
			if err != nil {
				if core.IsInvalidInputError(err) {
					items[i].Error = err.Error()
					return nil
				}
				return fmt.Errorf("line %d: %w", row.Line, err)
			}
			items[i].Recommendation = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &BatchReport{Items: items, Summary: Summarize(items)}
	observations := make([]crop.RawObservation, 0, len(items))
	for _, item := range items {
		if item.Recommendation != nil {
			observations = append(observations, item.Recommendation.Observation)
		}
	}
	report.InputProfile = profiling.Profile(observations)
	report.Summary.Duration = time.Since(start).Round(time.Millisecond).String()
	s.logger.Info("[RecommendationService] batch of %d rows: %d ok, %d failed in %s",
		report.Summary.Total, report.Summary.Succeeded, report.Summary.Failed, report.Summary.Duration)
	return report, nil
}

// Summarize computes confidence statistics and top crop frequencies
func Summarize(items []BatchItem) BatchSummary {
	summary := BatchSummary{Total: len(items), TopCrops: []CropCount{}}

	var confidences stats.Float64Data
	counts := make(map[string]int)
	for _, item := range items {
		if item.Recommendation == nil {
			summary.Failed++
			continue
		}
		summary.Succeeded++
		summary.ModelVersion = item.Recommendation.ModelVersion
		confidences = append(confidences, item.Recommendation.Result.ConfidencePercent)
		counts[item.Recommendation.Result.TopCrop]++
	}
	if len(confidences) == 0 {
		return summary
	}

	summary.MeanConfidence, _ = confidences.Mean()
	summary.MedianConfidence, _ = confidences.Median()
	summary.MinConfidence, _ = confidences.Min()
	summary.MaxConfidence, _ = confidences.Max()

	for name, n := range counts {
		summary.TopCrops = append(summary.TopCrops, CropCount{Crop: name, Count: n})
	}
	sort.Slice(summary.TopCrops, func(a, b int) bool {
		if summary.TopCrops[a].Count != summary.TopCrops[b].Count {
			return summary.TopCrops[a].Count > summary.TopCrops[b].Count
		}
		return summary.TopCrops[a].Crop < summary.TopCrops[b].Crop
	})
	return summary
}
