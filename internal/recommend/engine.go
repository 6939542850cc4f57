// Package recommend ranks crops for an observation using a loaded classifier.
package recommend

import (
	"fmt"
	"math"
	"sort"

	"cropadvisor/domain/core"
	"cropadvisor/domain/crop"
	"cropadvisor/internal/features"
	"cropadvisor/ports"

	"gonum.org/v1/gonum/floats"
)

// Recommend runs obs through feature engineering and the classifier and
// ranks the classes by probability.
//
// The top crop is the argmax of the probability vector; equal maxima resolve
// to the lowest class index. The ranked list holds min(5, classes) entries in
// descending probability with ties in ascending class index, so its first
// entry is always the top crop. Recommend never mutates its arguments and is
// safe for concurrent use when classifier and codec are.
func Recommend(obs crop.RawObservation, classifier ports.Classifier, codec ports.LabelCodec) (*crop.Result, error) {
	_, result, err := recommendFeatures(obs, classifier, codec)
	return result, err
}

func recommendFeatures(obs crop.RawObservation, classifier ports.Classifier, codec ports.LabelCodec) (crop.EngineeredFeatures, *crop.Result, error) {
	if classifier == nil {
		return crop.EngineeredFeatures{}, nil, core.NewModelUnavailableError("classifier not loaded")
	}
	if codec == nil {
		return crop.EngineeredFeatures{}, nil, core.NewModelUnavailableError("label codec not loaded")
	}
	engineered, err := features.Derive(obs)
	if err != nil {
		return crop.EngineeredFeatures{}, nil, err
	}

	probabilities, err := classifier.PredictProba(engineered)
	if err != nil {
		return engineered, nil, fmt.Errorf("predict probabilities: %w", err)
	}
	result, err := Rank(probabilities, codec, crop.MaxRanked)
	if err != nil {
		return engineered, nil, err
	}
	return engineered, result, nil
}

// Rank builds a Result from a probability vector indexed like codec.Classes.
// A vector that is empty, disagrees with the codec in length, or holds NaN or
// infinite values is reported as core.ErrModelUnavailable.
func Rank(probabilities []float64, codec ports.LabelCodec, n int) (*crop.Result, error) {
	if codec == nil {
		return nil, core.NewModelUnavailableError("label codec not loaded")
	}
	if len(probabilities) == 0 {
		return nil, core.NewModelUnavailableError("classifier returned no probabilities")
	}
	if err := checkProbabilities(probabilities, len(codec.Classes())); err != nil {
		return nil, err
	}

	topIndex := Argmax(probabilities)
	topCrop, err := codec.Decode(topIndex)
	if err != nil {
		return nil, fmt.Errorf("decode top class %d: %w", topIndex, err)
	}

	indices := TopIndices(probabilities, n)
	ranked := make([]crop.RankedCrop, 0, len(indices))
	for _, idx := range indices {
		name, err := codec.Decode(idx)
		if err != nil {
			return nil, fmt.Errorf("decode class %d: %w", idx, err)
		}
		ranked = append(ranked, crop.RankedCrop{
			Crop:               name,
			ProbabilityPercent: probabilities[idx] * 100,
		})
	}

	return &crop.Result{
		TopCrop:           topCrop,
		ConfidencePercent: probabilities[topIndex] * 100,
		RankedTopN:        ranked,
	}, nil
}

// Argmax returns the index of the largest probability. floats.MaxIdx keeps
// the first of several equal maxima, which is the lowest class index.
func Argmax(probabilities []float64) int {
	return floats.MaxIdx(probabilities)
}

// TopIndices returns the indices of the min(n, len) largest probabilities in
// descending order. The stable sort over ascending indices breaks ties by
// lowest index.
func TopIndices(probabilities []float64, n int) []int {
	indices := make([]int, len(probabilities))
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return probabilities[indices[a]] > probabilities[indices[b]]
	})
	return indices[:max(0, min(n, len(indices)))]
}

func checkProbabilities(probabilities []float64, classes int) error {
	if len(probabilities) != classes {
		return core.NewModelUnavailableError(fmt.Sprintf(
			"classifier returned %d probabilities for %d codec classes", len(probabilities), classes))
	}
	for i, p := range probabilities {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return core.NewModelUnavailableError(fmt.Sprintf("classifier returned non-finite probability at class %d", i))
		}
	}
	return nil
}
