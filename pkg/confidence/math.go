// Package confidence provides confidence score math utilities.
package confidence

import "math"

// Aggregate combines multiple confidence scores.
// Uses geometric mean to penalize low-confidence components.
func Aggregate(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}

	product := 1.0
	for _, s := range scores {
		if s <= 0 {
			return 0
		}
		product *= s
	}

	return math.Pow(product, 1.0/float64(len(scores)))
}

// AboveThreshold checks if confidence meets minimum requirement.
func AboveThreshold(score, threshold float64) bool {
	return score >= threshold
}

// Clamp ensures confidence is in valid range [0, 1].
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// Default confidence values
const (
	HighConfidence   = 0.95
	MediumConfidence = 0.80
	LowConfidence    = 0.60
	MinConfidence    = 0.50
)

// ForSources scores a decision by the provenance of its inputs: a
// decision computed entirely from live feeds keeps HighConfidence,
// while any static-fallback input drags it down.
func ForSources(live ...bool) float64 {
	scores := make([]float64, 0, len(live))
	for _, l := range live {
		if l {
			scores = append(scores, HighConfidence)
		} else {
			scores = append(scores, LowConfidence)
		}
	}
	return Clamp(Aggregate(scores))
}
