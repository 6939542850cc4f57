// Package features turns raw soil and climate readings into the engineered
// feature record the crop classifier was trained on.
package features

import (
	"cropadvisor/domain/crop"
)

// Rainfall bucket edges in millimeters.
const (
	rainfallFloor   = 0.0
	rainfallLowEdge = 50.0
	rainfallMidEdge = 100.0
	rainfallHiEdge  = 200.0
	rainfallCeiling = 300.0
)

// pH category edges. Both edges belong to Neutral.
const (
	phAcidicBelow   = 5.5
	phAlkalineAbove = 7.5
)

// Engineer derives the engineered features for obs. It is pure: no validation,
// no side effects, and equal inputs always produce identical outputs.
func Engineer(obs crop.RawObservation) crop.EngineeredFeatures {
	return crop.EngineeredFeatures{
		Observation:         obs,
		NPKAverage:          (obs.Nitrogen + obs.Phosphorus + obs.Potassium) / 3,
		TempHumidityIndex:   obs.Temperature * obs.Humidity / 100,
		RainfallLevel:       RainfallLevelOf(obs.Rainfall),
		PHCategory:          PHCategoryOf(obs.PH),
		TempRainInteraction: obs.Temperature * obs.Rainfall,
		PHRainInteraction:   obs.PH * obs.Rainfall,
	}
}

// Derive validates obs and engineers it. Readings that are finite but so
// large that a derived column overflows are rejected as invalid input.
func Derive(obs crop.RawObservation) (crop.EngineeredFeatures, error) {
	if err := obs.Validate(); err != nil {
		return crop.EngineeredFeatures{}, err
	}
	f := Engineer(obs)
	if err := DefaultSchema.CheckFinite(f); err != nil {
		return crop.EngineeredFeatures{}, err
	}
	return f, nil
}

// RainfallLevelOf buckets rainfall over (0, 300]. An interior edge belongs to
// the bucket above it (50 is Medium, 100 is High, 200 is Very High) and 300
// closes Very High. Anything at or below 0, above 300, or NaN is
// RainfallUnclassified.
func RainfallLevelOf(rainfall float64) crop.RainfallLevel {
	switch {
	case !(rainfall > rainfallFloor) || rainfall > rainfallCeiling:
		return crop.RainfallUnclassified
	case rainfall < rainfallLowEdge:
		return crop.RainfallLow
	case rainfall < rainfallMidEdge:
		return crop.RainfallMedium
	case rainfall < rainfallHiEdge:
		return crop.RainfallHigh
	default:
		return crop.RainfallVeryHigh
	}
}

// PHCategoryOf classifies soil pH: Acidic below 5.5, Alkaline above 7.5,
// Neutral otherwise (including both edges).
func PHCategoryOf(ph float64) crop.PHCategory {
	switch {
	case ph < phAcidicBelow:
		return crop.PHAcidic
	case ph <= phAlkalineAbove:
		return crop.PHNeutral
	default:
		return crop.PHAlkaline
	}
}
