// Package profiling summarizes the raw readings of a batch so operators can
// spot inputs that drift away from what the classifier was trained on.
package profiling

import (
	"sort"

	"cropadvisor/domain/crop"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Range is an inclusive interval of plausible readings
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func (r Range) contains(v float64) bool { return v >= r.Min && v <= r.Max }

// ObservedRanges are the reading ranges seen in the training data, or the
// physical range where that is tighter. Temperature has no entry.
var ObservedRanges = map[string]Range{
	crop.FieldNitrogen:   {Min: 0, Max: 140},
	crop.FieldPhosphorus: {Min: 5, Max: 145},
	crop.FieldPotassium:  {Min: 5, Max: 205},
	crop.FieldHumidity:   {Min: 0, Max: 100},
	crop.FieldPH:         {Min: 0, Max: 14},
	crop.FieldRainfall:   {Min: 0, Max: 300},
}

// FieldProfile summarizes one raw field over a batch
type FieldProfile struct {
	Field      string  `json:"field"`
	Count      int     `json:"count"`
	Mean       float64 `json:"mean"`
	StdDev     float64 `json:"std_dev"`
	Min        float64 `json:"min"`
	Q25        float64 `json:"q25"`
	Median     float64 `json:"median"`
	Q75        float64 `json:"q75"`
	Max        float64 `json:"max"`
	Skewness   float64 `json:"skewness"`
	Outliers   int     `json:"outliers"`
	OutOfRange int     `json:"out_of_range"`
}

// Profile computes one FieldProfile per raw field in ObservationFields order.
// It returns nil for an empty batch.
func Profile(observations []crop.RawObservation) []FieldProfile {
	if len(observations) == 0 {
		return nil
	}

	columns := make([][]float64, len(crop.ObservationFields))
	for _, obs := range observations {
		for i, v := range obs.Values() {
			columns[i] = append(columns[i], v)
		}
	}

	profiles := make([]FieldProfile, len(columns))
	for i, data := range columns {
		profiles[i] = profileColumn(crop.ObservationFields[i], data)
	}
	return profiles
}

func profileColumn(field string, data []float64) FieldProfile {
	p := FieldProfile{Field: field, Count: len(data)}

	// errors only occur on empty input
	p.Mean, _ = stats.Mean(data)
	p.Min, _ = stats.Min(data)
	p.Max, _ = stats.Max(data)
	p.Median, _ = stats.Median(data)

	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)
	p.Q25 = stat.Quantile(0.25, stat.Empirical, sorted, nil)
	p.Q75 = stat.Quantile(0.75, stat.Empirical, sorted, nil)

	if len(data) > 1 {
		p.StdDev = stat.StdDev(data, nil)
	}
	if len(data) > 2 && p.StdDev > 0 {
		p.Skewness = stat.Skew(data, nil)
	}
	p.Outliers = countOutliers(data, p.Q25, p.Q75)

	if r, ok := ObservedRanges[field]; ok {
		for _, v := range data {
			if !r.contains(v) {
				p.OutOfRange++
			}
		}
	}
	return p
}

// countOutliers uses the 1.5 IQR rule
func countOutliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lower := q25 - 1.5*iqr
	upper := q75 + 1.5*iqr

	n := 0
	for _, x := range data {
		if x < lower || x > upper {
			n++
		}
	}
	return n
}
