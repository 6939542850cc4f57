package crop

import (
	"fmt"
)

// RainfallLevel is the ordinal rainfall bucket. Declaration order is the
// ordinal order: Low < Medium < High < VeryHigh. RainfallUnclassified marks
// rainfall outside (0, 300] and sorts before every bucket.
type RainfallLevel int

const (
	RainfallUnclassified RainfallLevel = iota - 1
	RainfallLow
	RainfallMedium
	RainfallHigh
	RainfallVeryHigh
)

var rainfallLabels = map[RainfallLevel]string{
	RainfallUnclassified: "Unclassified",
	RainfallLow:          "Low",
	RainfallMedium:       "Medium",
	RainfallHigh:         "High",
	RainfallVeryHigh:     "Very High",
}

func (r RainfallLevel) String() string {
	if label, ok := rainfallLabels[r]; ok {
		return label
	}
	return fmt.Sprintf("RainfallLevel(%d)", int(r))
}

// Classified reports whether the rainfall fell inside a defined bucket.
func (r RainfallLevel) Classified() bool {
	return r >= RainfallLow && r <= RainfallVeryHigh
}

func (r RainfallLevel) MarshalText() ([]byte, error) {
	label, ok := rainfallLabels[r]
	if !ok {
		return nil, fmt.Errorf("unknown rainfall level %d", int(r))
	}
	return []byte(label), nil
}

func (r *RainfallLevel) UnmarshalText(text []byte) error {
	for level, label := range rainfallLabels {
		if label == string(text) {
			*r = level
			return nil
		}
	}
	return fmt.Errorf("unknown rainfall level %q", string(text))
}

// PHCategory is the ordered soil pH class. The classifier was trained with
// the ordinal encoding Acidic(0) < Neutral(1) < Alkaline(2); reordering these
// constants changes predictions.
type PHCategory int

const (
	PHAcidic PHCategory = iota
	PHNeutral
	PHAlkaline
)

var phLabels = map[PHCategory]string{
	PHAcidic:   "Acidic",
	PHNeutral:  "Neutral",
	PHAlkaline: "Alkaline",
}

func (c PHCategory) String() string {
	if label, ok := phLabels[c]; ok {
		return label
	}
	return fmt.Sprintf("PHCategory(%d)", int(c))
}

func (c PHCategory) MarshalText() ([]byte, error) {
	label, ok := phLabels[c]
	if !ok {
		return nil, fmt.Errorf("unknown pH category %d", int(c))
	}
	return []byte(label), nil
}

func (c *PHCategory) UnmarshalText(text []byte) error {
	for category, label := range phLabels {
		if label == string(text) {
			*c = category
			return nil
		}
	}
	return fmt.Errorf("unknown pH category %q", string(text))
}

// EngineeredFeatures is derived deterministically from a RawObservation and
// is never mutated after creation.
type EngineeredFeatures struct {
	Observation         RawObservation `json:"observation"`
	NPKAverage          float64        `json:"npk_average"`
	TempHumidityIndex   float64        `json:"temp_humidity_index"`
	RainfallLevel       RainfallLevel  `json:"rainfall_level"`
	PHCategory          PHCategory     `json:"ph_category"`
	TempRainInteraction float64        `json:"temp_rain_interaction"`
	PHRainInteraction   float64        `json:"ph_rain_interaction"`
}
