package ports

import "cropadvisor/domain/crop"

// Classifier is a pre-trained crop model. Implementations must be safe for
// concurrent read-only use: the engine shares one loaded instance across
// requests.
type Classifier interface {
	// Predict returns the index of the most likely class
	Predict(features crop.EngineeredFeatures) (int, error)

	// PredictProba returns one probability per class, indexed like LabelCodec.Classes
	PredictProba(features crop.EngineeredFeatures) ([]float64, error)
}

// LabelCodec maps between class indices and crop names. The ordering is fixed
// for the lifetime of the process and must match the classifier's.
type LabelCodec interface {
	Decode(index int) (string, error)
	Encode(name string) (int, error)
	Classes() []string
}
