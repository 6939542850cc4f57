package model

import (
	"fmt"
	"math"

	"cropadvisor/domain/crop"
	"cropadvisor/internal/features"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Weights is the on-disk parameter set of a multinomial logistic regression:
// a standardizing scaler followed by one linear score per class.
type Weights struct {
	Mean         []float64   `json:"mean"`
	Scale        []float64   `json:"scale"`
	Coefficients [][]float64 `json:"coefficients"`
	Intercepts   []float64   `json:"intercepts"`
}

// SoftmaxClassifier scores the encoded feature vector with a linear model
// and normalizes the scores with softmax. All state is read-only after
// construction, so one instance serves concurrent requests.
type SoftmaxClassifier struct {
	schema    features.Schema
	mean      []float64
	scale     []float64
	coef      *mat.Dense
	intercept *mat.VecDense
}

// NewSoftmaxClassifier validates the weight shapes against schema and the
// class count.
func NewSoftmaxClassifier(schema features.Schema, w Weights, classes int) (*SoftmaxClassifier, error) {
	width := schema.Width()
	if len(w.Mean) != width || len(w.Scale) != width {
		return nil, fmt.Errorf("scaler has %d means and %d scales, schema has %d columns", len(w.Mean), len(w.Scale), width)
	}
	if len(w.Coefficients) != classes || len(w.Intercepts) != classes {
		return nil, fmt.Errorf("weights cover %d coefficient rows and %d intercepts, codec has %d classes",
			len(w.Coefficients), len(w.Intercepts), classes)
	}

	data := make([]float64, 0, classes*width)
	for i, row := range w.Coefficients {
		if len(row) != width {
			return nil, fmt.Errorf("coefficient row %d has %d values, schema has %d columns", i, len(row), width)
		}
		data = append(data, row...)
	}
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("coefficients contain a non-finite value")
		}
	}

	scale := make([]float64, width)
	for i, s := range w.Scale {
		// zero-variance columns are left unscaled
		if s == 0 || math.IsNaN(s) {
			s = 1
		}
		scale[i] = s
	}

	return &SoftmaxClassifier{
		schema:    schema,
		mean:      append([]float64(nil), w.Mean...),
		scale:     scale,
		coef:      mat.NewDense(classes, width, data),
		intercept: mat.NewVecDense(classes, append([]float64(nil), w.Intercepts...)),
	}, nil
}

// Predict returns the index of the most probable class
func (c *SoftmaxClassifier) Predict(f crop.EngineeredFeatures) (int, error) {
	p, err := c.PredictProba(f)
	if err != nil {
		return 0, err
	}
	return floats.MaxIdx(p), nil
}

// PredictProba returns the class probabilities in codec order
func (c *SoftmaxClassifier) PredictProba(f crop.EngineeredFeatures) ([]float64, error) {
	x := c.schema.Encode(f)
	floats.Sub(x, c.mean)
	floats.Div(x, c.scale)

	classes, _ := c.coef.Dims()
	scores := mat.NewVecDense(classes, nil)
	scores.MulVec(c.coef, mat.NewVecDense(len(x), x))
	scores.AddVec(scores, c.intercept)

	return softmax(scores.RawVector().Data), nil
}

// softmax normalizes scores in place and returns them
func softmax(scores []float64) []float64 {
	floats.AddConst(-floats.Max(scores), scores)
	for i, s := range scores {
		scores[i] = math.Exp(s)
	}
	floats.Scale(1/floats.Sum(scores), scores)
	return scores
}
