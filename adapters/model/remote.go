package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cropadvisor/domain/core"
	"cropadvisor/domain/crop"
	apperrors "cropadvisor/internal/errors"
	"cropadvisor/internal/features"

	"github.com/tidwall/gjson"
	"gonum.org/v1/gonum/floats"
)

// RemoteClassifier delegates inference to a model server. The request
// carries the encoded vector with its schema version and columns; the
// response must hold a "probabilities" array, or the first element of
// "predictions" as served by common model servers.
type RemoteClassifier struct {
	url        string
	schema     features.Schema
	classes    int
	httpClient *http.Client
}

type remoteRequest struct {
	SchemaVersion string      `json:"schema_version"`
	Columns       []string    `json:"columns"`
	Instances     [][]float64 `json:"instances"`
}

// NewRemoteClassifier creates a classifier posting to url
func NewRemoteClassifier(url string, schema features.Schema, classes int, timeout time.Duration) *RemoteClassifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RemoteClassifier{
		url:     url,
		schema:  schema,
		classes: classes,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Predict returns the index of the most probable class
func (c *RemoteClassifier) Predict(f crop.EngineeredFeatures) (int, error) {
	p, err := c.PredictProba(f)
	if err != nil {
		return 0, err
	}
	return floats.MaxIdx(p), nil
}

// PredictProba posts the encoded features and parses the probability vector.
// Transport failures, error statuses and malformed vectors all mean the
// model cannot serve, so they wrap core.ErrModelUnavailable.
func (c *RemoteClassifier) PredictProba(f crop.EngineeredFeatures) ([]float64, error) {
	p, err := c.predictProba(f)
	if err != nil {
		return nil, apperrors.ExternalServiceError("model", fmt.Errorf("%w: %w", core.ErrModelUnavailable, err))
	}
	return p, nil
}

func (c *RemoteClassifier) predictProba(f crop.EngineeredFeatures) ([]float64, error) {
	body, err := json.Marshal(remoteRequest{
		SchemaVersion: c.schema.Version,
		Columns:       c.schema.Columns,
		Instances:     [][]float64{c.schema.Encode(f)},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	resp, err := c.httpClient.Post(c.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(payload))
	}

	return parseProbabilities(payload, c.classes)
}

func parseProbabilities(payload []byte, classes int) ([]float64, error) {
	result := gjson.GetBytes(payload, "probabilities")
	if !result.Exists() {
		result = gjson.GetBytes(payload, "predictions.0")
	}
	if !result.IsArray() {
		return nil, fmt.Errorf("response has no probability array")
	}

	values := result.Array()
	if len(values) != classes {
		return nil, fmt.Errorf("returned %d probabilities, expected %d", len(values), classes)
	}
	out := make([]float64, len(values))
	for i, v := range values {
		if v.Type != gjson.Number {
			return nil, fmt.Errorf("probability %d is not a number: %s", i, v.Raw)
		}
		out[i] = v.Float()
	}
	return out, nil
}
