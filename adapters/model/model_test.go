package model

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"cropadvisor/domain/core"
	"cropadvisor/domain/crop"
	apperrors "cropadvisor/internal/errors"
	"cropadvisor/internal/features"
	"cropadvisor/internal/modelstore"
	"cropadvisor/internal/recommend"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testManifest = "testdata/model.yaml"

func referenceObservation() crop.RawObservation {
	return crop.RawObservation{
		Nitrogen: 90, Phosphorus: 42, Potassium: 43,
		Temperature: 20.8, Humidity: 82, PH: 6.5, Rainfall: 202.9,
	}
}

func TestLoad_LocalArtifact(t *testing.T) {
	m, err := Load(Options{ManifestPath: testManifest})
	require.NoError(t, err)

	assert.Equal(t, "crop-softmax-test", m.Name)
	assert.Equal(t, "test-1", m.Version)
	assert.Equal(t, []string{"rice", "maize", "chickpea", "cotton"}, m.Codec.Classes())
	assert.False(t, m.Checksum.IsEmpty())
}

func TestSoftmaxClassifier_ReferenceObservation(t *testing.T) {
	m, err := Load(Options{ManifestPath: testManifest})
	require.NoError(t, err)

	f := features.Engineer(referenceObservation())
	p, err := m.Classifier.PredictProba(f)
	require.NoError(t, err)
	require.Len(t, p, 4)

	sum := 0.0
	for _, v := range p {
		assert.GreaterOrEqual(t, v, 0.0)
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.InDelta(t, 0.9993, p[0], 1e-3)

	idx, err := m.Classifier.Predict(f)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	result, err := recommend.Recommend(referenceObservation(), m.Classifier, m.Codec)
	require.NoError(t, err)
	assert.Equal(t, "rice", result.TopCrop)
	assert.Len(t, result.RankedTopN, 4)
}

func TestSoftmaxClassifier_CentroidsClassifyAsThemselves(t *testing.T) {
	m, err := Load(Options{ManifestPath: testManifest})
	require.NoError(t, err)

	cases := map[string]crop.RawObservation{
		"maize":    {Nitrogen: 78, Phosphorus: 48, Potassium: 20, Temperature: 22.4, Humidity: 65, PH: 6.25, Rainfall: 84.8},
		"chickpea": {Nitrogen: 40, Phosphorus: 68, Potassium: 80, Temperature: 18.9, Humidity: 16.9, PH: 7.3, Rainfall: 80},
		"cotton":   {Nitrogen: 117.8, Phosphorus: 46.2, Potassium: 19.6, Temperature: 24, Humidity: 79.8, PH: 6.9, Rainfall: 80.4},
	}
	for want, obs := range cases {
		result, err := recommend.Recommend(obs, m.Classifier, m.Codec)
		require.NoError(t, err)
		assert.Equal(t, want, result.TopCrop)
	}
}

func TestSoftmaxClassifier_ConcurrentUse(t *testing.T) {
	m, err := Load(Options{ManifestPath: testManifest})
	require.NoError(t, err)
	f := features.Engineer(referenceObservation())
	want, err := m.Classifier.PredictProba(f)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := m.Classifier.PredictProba(f)
			assert.NoError(t, err)
			assert.Equal(t, want, got)
		}()
	}
	wg.Wait()
}

func TestSoftmax_StableForLargeScores(t *testing.T) {
	p := softmax([]float64{1000, 1001, 999})
	for _, v := range p {
		assert.False(t, math.IsNaN(v))
	}
	assert.InDelta(t, 1.0, p[0]+p[1]+p[2], 1e-12)
	assert.Greater(t, p[1], p[0])
}

func TestNewSoftmaxClassifier_ShapeErrors(t *testing.T) {
	width := features.DefaultSchema.Width()
	ok := Weights{
		Mean:         make([]float64, width),
		Scale:        make([]float64, width),
		Coefficients: [][]float64{make([]float64, width), make([]float64, width)},
		Intercepts:   []float64{0, 0},
	}
	_, err := NewSoftmaxClassifier(features.DefaultSchema, ok, 2)
	require.NoError(t, err)

	_, err = NewSoftmaxClassifier(features.DefaultSchema, ok, 3)
	assert.ErrorContains(t, err, "3 classes")

	short := ok
	short.Mean = short.Mean[:5]
	_, err = NewSoftmaxClassifier(features.DefaultSchema, short, 2)
	assert.Error(t, err)

	ragged := ok
	ragged.Coefficients = [][]float64{make([]float64, width), make([]float64, width-1)}
	_, err = NewSoftmaxClassifier(features.DefaultSchema, ragged, 2)
	assert.ErrorContains(t, err, "row 1")
}

func TestNewCodec(t *testing.T) {
	c, err := NewCodec([]string{"rice", " maize "})
	require.NoError(t, err)

	name, err := c.Decode(1)
	require.NoError(t, err)
	assert.Equal(t, "maize", name)

	idx, err := c.Encode("rice")
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	_, err = c.Decode(2)
	assert.Error(t, err)
	_, err = c.Encode("wheat")
	assert.Error(t, err)

	_, err = NewCodec([]string{"rice", "rice"})
	assert.ErrorContains(t, err, "appears at 0 and 1")
	_, err = NewCodec([]string{"rice", ""})
	assert.Error(t, err)
	_, err = NewCodec(nil)
	assert.Error(t, err)
}

// copyManifest writes a modified copy of the test manifest and weights into a
// temp dir and returns the manifest path.
func copyManifest(t *testing.T, edit func(manifest string) string) string {
	t.Helper()
	dir := t.TempDir()
	manifest, err := os.ReadFile(testManifest)
	require.NoError(t, err)
	weights, err := os.ReadFile("testdata/weights.json")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "weights.json"), weights, 0o644))
	path := filepath.Join(dir, "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(edit(string(manifest))), 0o644))
	return path
}

func TestLoad_SchemaMismatch(t *testing.T) {
	path := copyManifest(t, func(m string) string {
		return strings.Replace(m, "crop-features/v1", "crop-features/v0", 1)
	})

	_, err := Load(Options{ManifestPath: path})
	assert.ErrorIs(t, err, core.ErrSchemaMismatch)
	assert.ErrorIs(t, err, core.ErrModelUnavailable)
}

func TestLoad_ColumnOrderMismatch(t *testing.T) {
	path := copyManifest(t, func(m string) string {
		m = strings.Replace(m, "  - rainfall_level\n  - ph_category\n", "  - ph_category\n  - rainfall_level\n", 1)
		return m
	})

	_, err := Load(Options{ManifestPath: path})
	assert.ErrorIs(t, err, core.ErrSchemaMismatch)
}

func TestLoad_ChecksumMismatch(t *testing.T) {
	path := copyManifest(t, func(m string) string {
		i := strings.Index(m, "weights_sha256:")
		return m[:i] + "weights_sha256: " + strings.Repeat("0", 64) + "\n"
	})

	_, err := Load(Options{ManifestPath: path})
	assert.ErrorIs(t, err, core.ErrModelUnavailable)
	assert.ErrorContains(t, err, "checksum")
}

func TestLoad_MissingManifest(t *testing.T) {
	_, err := Load(Options{ManifestPath: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.ErrorIs(t, err, core.ErrModelUnavailable)
}

func TestNewLoader_WithModelStore(t *testing.T) {
	store := modelstore.New(NewLoader(Options{ManifestPath: testManifest}), nil)

	m, err := store.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test-1", m.Version)
	assert.Equal(t, 4, store.Status().Classes)
}

func TestRemoteClassifier(t *testing.T) {
	var got remoteRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"predictions":[[0.1,0.7,0.15,0.05]],"model":"remote"}`))
	}))
	defer server.Close()

	m, err := Load(Options{ManifestPath: testManifest, RemoteURL: server.URL, RemoteTimeout: time.Second})
	require.NoError(t, err)

	result, err := recommend.Recommend(referenceObservation(), m.Classifier, m.Codec)
	require.NoError(t, err)
	assert.Equal(t, "maize", result.TopCrop)
	assert.InDelta(t, 70.0, result.ConfidencePercent, 1e-9)

	assert.Equal(t, features.SchemaVersion, got.SchemaVersion)
	require.Len(t, got.Instances, 1)
	assert.Len(t, got.Instances[0], features.DefaultSchema.Width())
}

func TestRemoteClassifier_Errors(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
		want   string
	}{
		"wrong length":   {http.StatusOK, `{"probabilities":[0.5,0.5]}`, "expected 4"},
		"server error":   {http.StatusInternalServerError, "boom", "status 500"},
		"no probability": {http.StatusOK, `{"result":"ok"}`, "no probability array"},
		"non numeric":    {http.StatusOK, `{"probabilities":[0.5,"x",0,0]}`, "not a number"},
	}
	f := features.Engineer(referenceObservation())
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := NewRemoteClassifier(server.URL, features.DefaultSchema, 4, time.Second).PredictProba(f)
			assert.ErrorContains(t, err, tc.want)
			assert.True(t, core.IsModelUnavailableError(err))
		})
	}
}

func TestRemoteClassifier_UnavailableThroughRecommend(t *testing.T) {
	m, err := Load(Options{ManifestPath: testManifest})
	require.NoError(t, err)

	short := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"probabilities":[0.5,0.5]}`))
	}))
	defer short.Close()

	down := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	downURL := down.URL
	down.Close()

	for name, url := range map[string]string{"wrong length": short.URL, "server down": downURL} {
		t.Run(name, func(t *testing.T) {
			remote := NewRemoteClassifier(url, features.DefaultSchema, len(m.Codec.Classes()), time.Second)
			_, err := recommend.Recommend(referenceObservation(), remote, m.Codec)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrModelUnavailable)
			assert.Equal(t, apperrors.CodeExternalService, apperrors.GetCode(err))
		})
	}
}
