// Package model loads classifier artifacts: a YAML manifest pinning the
// feature schema and label order, plus either local softmax weights or a
// remote model server.
package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cropadvisor/domain/core"
	"cropadvisor/internal/features"

	"gopkg.in/yaml.v3"
)

// Manifest describes one exported model
type Manifest struct {
	Name           string   `yaml:"name"`
	Version        string   `yaml:"version"`
	SchemaVersion  string   `yaml:"schema_version"`
	FeatureColumns []string `yaml:"feature_columns"`
	Classes        []string `yaml:"classes"`
	WeightsFile    string   `yaml:"weights_file"`
	WeightsSHA256  string   `yaml:"weights_sha256"`

	dir string
}

// ReadManifest parses the manifest at path. Relative weight paths resolve
// against the manifest's directory.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks required fields and the schema pin
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("manifest: name is required")
	}
	if strings.TrimSpace(m.Version) == "" {
		return fmt.Errorf("manifest: version is required")
	}
	if len(m.Classes) == 0 {
		return fmt.Errorf("manifest: classes are required")
	}
	return features.DefaultSchema.Verify(m.SchemaVersion, m.FeatureColumns)
}

// WeightsPath returns the absolute or manifest-relative weights location
func (m *Manifest) WeightsPath() string {
	if m.WeightsFile == "" || filepath.IsAbs(m.WeightsFile) {
		return m.WeightsFile
	}
	return filepath.Join(m.dir, m.WeightsFile)
}

// ReadWeights loads the weights file and checks it against the manifest
// checksum when one is recorded.
func (m *Manifest) ReadWeights() (Weights, core.Hash, error) {
	path := m.WeightsPath()
	if path == "" {
		return Weights{}, "", fmt.Errorf("manifest: weights_file is required for a local model")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Weights{}, "", fmt.Errorf("read weights: %w", err)
	}

	sum := core.NewHash(data)
	if m.WeightsSHA256 != "" && !sum.Equals(core.Hash(m.WeightsSHA256)) {
		return Weights{}, sum, fmt.Errorf("weights checksum %s does not match manifest %s", sum.Short(), core.Hash(m.WeightsSHA256).Short())
	}

	var w Weights
	if err := json.Unmarshal(data, &w); err != nil {
		return Weights{}, sum, fmt.Errorf("parse weights %s: %w", path, err)
	}
	return w, sum, nil
}
