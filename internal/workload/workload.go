// Package workload computes route difficulty and time estimates from
// raw cluster aggregates, used when the Run Controller materializes
// Route rows from the Package Clusterer's output (spec §4.1 step 1).
// Grounded on
// original_source/app/services/workload.py.
package workload

import "math"

// DifficultyWeights mirrors original_source/app/config.py's
// difficulty_weight_per_kg / difficulty_weight_per_stop / base
// constants.
type DifficultyWeights struct {
	Base   float64
	PerKg  float64
	PerStop float64
}

// DefaultDifficultyWeights matches the original's configured defaults.
func DefaultDifficultyWeights() DifficultyWeights {
	return DifficultyWeights{Base: 1.0, PerKg: 0.01, PerStop: 0.1}
}

// Difficulty computes calculate_route_difficulty: base + per-kg +
// per-stop, scaled by fragility.
func Difficulty(w DifficultyWeights, totalWeightKg float64, numStops int, avgFragility float64) float64 {
	if avgFragility == 0 {
		avgFragility = 1.0
	}
	d := w.Base + totalWeightKg*w.PerKg + float64(numStops)*w.PerStop
	d *= 1 + (avgFragility-1)*0.1
	return round2(d)
}

// TimeWeights mirrors the original's time_per_package /
// time_per_stop / base_route_time constants.
type TimeWeights struct {
	Base         float64
	PerPackage   float64
	PerStop      float64
}

// DefaultTimeWeights matches the original's configured defaults.
func DefaultTimeWeights() TimeWeights {
	return TimeWeights{Base: 30.0, PerPackage: 5.0, PerStop: 3.0}
}

// EstimateMinutes computes estimate_route_time: base + per-package +
// per-stop, plus a distance-derived driving-time term when distance is
// known.
func EstimateMinutes(w TimeWeights, numPackages, numStops int, totalDistanceKm float64) int {
	t := w.Base + float64(numPackages)*w.PerPackage + float64(numStops)*w.PerStop
	if totalDistanceKm > 0 {
		t += (totalDistanceKm / 30.0) * 60.0
	}
	return int(math.Round(t))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
