package recommend

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"cropadvisor/domain/core"
	"cropadvisor/domain/crop"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClassifier returns the same probability vector for every input
type fixedClassifier struct {
	probabilities []float64
	err           error
	seen          []crop.EngineeredFeatures
	mu            sync.Mutex
}

func (c *fixedClassifier) Predict(f crop.EngineeredFeatures) (int, error) {
	p, err := c.PredictProba(f)
	if err != nil {
		return 0, err
	}
	return Argmax(p), nil
}

func (c *fixedClassifier) PredictProba(f crop.EngineeredFeatures) ([]float64, error) {
	c.mu.Lock()
	c.seen = append(c.seen, f)
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return append([]float64(nil), c.probabilities...), nil
}

// sliceCodec is a minimal LabelCodec over a fixed class list
type sliceCodec []string

func (s sliceCodec) Decode(index int) (string, error) {
	if index < 0 || index >= len(s) {
		return "", fmt.Errorf("class index %d out of range", index)
	}
	return s[index], nil
}

func (s sliceCodec) Encode(name string) (int, error) {
	for i, c := range s {
		if c == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("unknown class %q", name)
}

func (s sliceCodec) Classes() []string { return append([]string(nil), s...) }

var fourCrops = sliceCodec{"Rice", "Wheat", "Maize", "Cotton"}

func sampleObservation() crop.RawObservation {
	return crop.RawObservation{
		Nitrogen: 90, Phosphorus: 42, Potassium: 43,
		Temperature: 20.8, Humidity: 82, PH: 6.5, Rainfall: 202.9,
	}
}

func TestRecommend_RanksByProbability(t *testing.T) {
	classifier := &fixedClassifier{probabilities: []float64{0.1, 0.05, 0.6, 0.25}}

	result, err := Recommend(sampleObservation(), classifier, fourCrops)
	require.NoError(t, err)

	assert.Equal(t, "Maize", result.TopCrop)
	assert.InDelta(t, 60.0, result.ConfidencePercent, 1e-9)

	want := []crop.RankedCrop{
		{Crop: "Maize", ProbabilityPercent: 60},
		{Crop: "Cotton", ProbabilityPercent: 25},
		{Crop: "Rice", ProbabilityPercent: 10},
		{Crop: "Wheat", ProbabilityPercent: 5},
	}
	require.Len(t, result.RankedTopN, len(want))
	for i, w := range want {
		assert.Equal(t, w.Crop, result.RankedTopN[i].Crop)
		assert.InDelta(t, w.ProbabilityPercent, result.RankedTopN[i].ProbabilityPercent, 1e-9)
	}
}

func TestRecommend_PassesEngineeredFeatures(t *testing.T) {
	classifier := &fixedClassifier{probabilities: []float64{0.1, 0.05, 0.6, 0.25}}

	_, err := Recommend(sampleObservation(), classifier, fourCrops)
	require.NoError(t, err)

	require.Len(t, classifier.seen, 1)
	assert.Equal(t, crop.RainfallVeryHigh, classifier.seen[0].RainfallLevel)
	assert.Equal(t, crop.PHNeutral, classifier.seen[0].PHCategory)
}

func TestRecommend_TieBreaksToLowestIndex(t *testing.T) {
	classifier := &fixedClassifier{probabilities: []float64{0.2, 0.4, 0.4, 0.0}}

	result, err := Recommend(sampleObservation(), classifier, fourCrops)
	require.NoError(t, err)

	assert.Equal(t, "Wheat", result.TopCrop)
	assert.Equal(t, "Wheat", result.RankedTopN[0].Crop)
	assert.Equal(t, "Maize", result.RankedTopN[1].Crop)
	assert.Equal(t, "Rice", result.RankedTopN[2].Crop)
}

func TestRecommend_AllEqualProbabilities(t *testing.T) {
	classifier := &fixedClassifier{probabilities: []float64{0.25, 0.25, 0.25, 0.25}}

	result, err := Recommend(sampleObservation(), classifier, fourCrops)
	require.NoError(t, err)

	assert.Equal(t, "Rice", result.TopCrop)
	var order []string
	for _, r := range result.RankedTopN {
		order = append(order, r.Crop)
	}
	assert.Equal(t, []string{"Rice", "Wheat", "Maize", "Cotton"}, order)
}

func TestRecommend_RankedLengthIsCappedAtFive(t *testing.T) {
	classes := sliceCodec{"apple", "banana", "coffee", "grapes", "jute", "lentil", "mango", "rice"}
	probabilities := []float64{0.05, 0.3, 0.02, 0.15, 0.15, 0.01, 0.3, 0.02}
	classifier := &fixedClassifier{probabilities: probabilities}

	result, err := Recommend(sampleObservation(), classifier, classes)
	require.NoError(t, err)

	require.Len(t, result.RankedTopN, 5)
	assert.Equal(t, result.TopCrop, result.RankedTopN[0].Crop)
	assert.Equal(t, "banana", result.TopCrop)
	assert.Equal(t, []string{"banana", "mango", "grapes", "jute", "apple"}, cropsOf(result.RankedTopN))
	for i := 1; i < len(result.RankedTopN); i++ {
		assert.GreaterOrEqual(t, result.RankedTopN[i-1].ProbabilityPercent, result.RankedTopN[i].ProbabilityPercent)
	}
}

func TestRecommend_FewerClassesThanCap(t *testing.T) {
	classifier := &fixedClassifier{probabilities: []float64{0.3, 0.7}}

	result, err := Recommend(sampleObservation(), classifier, sliceCodec{"Rice", "Wheat"})
	require.NoError(t, err)
	assert.Len(t, result.RankedTopN, 2)
	assert.Equal(t, "Wheat", result.TopCrop)
}

func TestRecommend_ModelUnavailable(t *testing.T) {
	classifier := &fixedClassifier{probabilities: []float64{1}}

	_, err := Recommend(sampleObservation(), nil, fourCrops)
	assert.ErrorIs(t, err, core.ErrModelUnavailable)

	_, err = Recommend(sampleObservation(), classifier, nil)
	assert.ErrorIs(t, err, core.ErrModelUnavailable)
}

func TestRecommend_ProbabilityVectorMismatch(t *testing.T) {
	for name, probs := range map[string][]float64{
		"too short": {0.5, 0.5},
		"empty":     {},
		"NaN":       {0.5, 0.5, nan(), 0},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Recommend(sampleObservation(), &fixedClassifier{probabilities: probs}, fourCrops)
			assert.ErrorIs(t, err, core.ErrModelUnavailable)
		})
	}
}

func TestRecommend_InvalidObservation(t *testing.T) {
	obs := sampleObservation()
	obs.PH = nan()
	classifier := &fixedClassifier{probabilities: []float64{0.1, 0.05, 0.6, 0.25}}

	_, err := Recommend(obs, classifier, fourCrops)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Empty(t, classifier.seen, "classifier must not be called for invalid input")
}

func TestRecommend_OverflowingObservation(t *testing.T) {
	obs := sampleObservation()
	obs.Temperature = 1e200
	obs.Rainfall = 1e200
	classifier := &fixedClassifier{probabilities: []float64{0.1, 0.05, 0.6, 0.25}}

	_, err := Recommend(obs, classifier, fourCrops)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	assert.False(t, core.IsModelUnavailableError(err))
	assert.Empty(t, classifier.seen)
}

func TestRecommend_ClassifierErrorPropagates(t *testing.T) {
	boom := errors.New("inference backend down")
	_, err := Recommend(sampleObservation(), &fixedClassifier{err: boom}, fourCrops)
	assert.ErrorIs(t, err, boom)
}

func TestRecommend_ConcurrentCallsShareModel(t *testing.T) {
	classifier := &fixedClassifier{probabilities: []float64{0.1, 0.05, 0.6, 0.25}}
	want, err := Recommend(sampleObservation(), classifier, fourCrops)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Recommend(sampleObservation(), classifier, fourCrops)
			if err != nil {
				errs <- err
				return
			}
			if got.TopCrop != want.TopCrop || len(got.RankedTopN) != len(want.RankedTopN) {
				errs <- fmt.Errorf("divergent result %+v", got)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestRank_RejectsBrokenVectors(t *testing.T) {
	for name, probs := range map[string][]float64{
		"NaN":      {0.2, nan(), 0.5, 0.3},
		"infinite": {0.2, math.Inf(1), 0.5, 0.3},
		"too long": {0.2, 0.2, 0.2, 0.2, 0.2},
		"empty":    nil,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Rank(probs, fourCrops, crop.MaxRanked)
			assert.ErrorIs(t, err, core.ErrModelUnavailable)
		})
	}

	_, err := Rank([]float64{1}, nil, crop.MaxRanked)
	assert.ErrorIs(t, err, core.ErrModelUnavailable)

	result, err := Rank([]float64{0.1, 0.05, 0.6, 0.25}, fourCrops, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Maize", "Cotton"}, cropsOf(result.RankedTopN))
}

func TestTopIndices(t *testing.T) {
	assert.Equal(t, []int{2, 3, 0}, TopIndices([]float64{0.1, 0.05, 0.6, 0.25}, 3))
	assert.Equal(t, []int{1, 2, 0}, TopIndices([]float64{0.2, 0.4, 0.4}, 5))
	assert.Empty(t, TopIndices([]float64{0.2, 0.8}, 0))
	assert.Empty(t, TopIndices([]float64{0.2, 0.8}, -1))
}

func cropsOf(ranked []crop.RankedCrop) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.Crop
	}
	return out
}

func nan() float64 { return math.NaN() }
