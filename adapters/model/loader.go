package model

import (
	"context"
	"fmt"
	"time"

	"cropadvisor/domain/core"
	"cropadvisor/internal/features"
	"cropadvisor/internal/modelstore"
	"cropadvisor/ports"
)

// Options selects the artifact to load
type Options struct {
	ManifestPath  string
	RemoteURL     string
	RemoteTimeout time.Duration
}

// Load reads the manifest and builds the classifier it describes. Every
// failure wraps core.ErrModelUnavailable.
func Load(opts Options) (*modelstore.Model, error) {
	manifest, err := ReadManifest(opts.ManifestPath)
	if err != nil {
		return nil, unavailable(err)
	}

	codec, err := NewCodec(manifest.Classes)
	if err != nil {
		return nil, unavailable(err)
	}

	var (
		classifier ports.Classifier
		checksum   core.Hash
	)
	if opts.RemoteURL != "" {
		classifier = NewRemoteClassifier(opts.RemoteURL, features.DefaultSchema, len(manifest.Classes), opts.RemoteTimeout)
	} else {
		weights, sum, err := manifest.ReadWeights()
		if err != nil {
			return nil, unavailable(err)
		}
		softmax, err := NewSoftmaxClassifier(features.DefaultSchema, weights, len(manifest.Classes))
		if err != nil {
			return nil, unavailable(err)
		}
		classifier, checksum = softmax, sum
	}

	return &modelstore.Model{
		Name:       manifest.Name,
		Version:    manifest.Version,
		Classifier: classifier,
		Codec:      codec,
		Checksum:   checksum,
		LoadedAt:   time.Now(),
	}, nil
}

// NewLoader adapts Load to the model store
func NewLoader(opts Options) modelstore.Loader {
	return func(ctx context.Context) (*modelstore.Model, error) {
		if err := ctx.Err(); err != nil {
			return nil, unavailable(err)
		}
		return Load(opts)
	}
}

func unavailable(err error) error {
	if core.IsModelUnavailableError(err) {
		return err
	}
	return fmt.Errorf("%w: %v", core.ErrModelUnavailable, err)
}
