// Package fairness implements the Fairness Evaluator (agent C, spec
// §4.4) plus the §12-supplemented legacy standalone formulas from
// original_source/app/services/fairness.py, preserved side-by-side
// because the two modules in the original used different Gini formulas
// (equal up to rounding) and different stddev conventions, and spec §9
// explicitly asks to keep the legacy
// one untouched rather than reconcile them.
//
// The authoritative ACCEPT/REOPTIMIZE decision path is grounded on
// fairness_manager_agent.py: pairwise Gini, SAMPLE stddev.
package fairness

import (
	"math"

	"github.com/fairdispatch/allocation-core/internal/config"
	"github.com/fairdispatch/allocation-core/internal/models"
)

// Thresholds bundles the ACCEPT/REOPTIMIZE cutoffs from the active
// FairnessConfig.
type Thresholds struct {
	GiniThreshold   float64
	StdDevThreshold float64
	MaxGapThreshold float64
}

// ThresholdsFrom extracts the Fairness Evaluator's thresholds from a
// FairnessConfig.
func ThresholdsFrom(fc config.FairnessConfig) Thresholds {
	return Thresholds{
		GiniThreshold:   fc.GiniThreshold,
		StdDevThreshold: fc.StdDevThreshold,
		MaxGapThreshold: fc.MaxGapThreshold,
	}
}

// Evaluator computes FairnessReports and recommendations.
type Evaluator struct {
	Thresholds Thresholds
}

// New builds an Evaluator bound to the given thresholds.
func New(th Thresholds) *Evaluator {
	return &Evaluator{Thresholds: th}
}

// round4 matches fairness_manager_agent.py's round(gini, 4).
func round4(x float64) float64 { return math.Round(x*10000) / 10000 }

// Metrics computes avg/std/gini/max_gap/outliers/pct_above_avg over a
// set of per-driver efforts, using the pairwise Gini formula and
// SAMPLE standard deviation — the exact convention
// fairness_manager_agent.py's _compute_metrics uses for the
// ACCEPT/REOPTIMIZE decision and for the Final Resolver's swap checks.
func Metrics(efforts []float64) models.FairnessReport {
	n := len(efforts)
	var rep models.FairnessReport
	if n == 0 {
		return rep
	}

	var sum float64
	minV, maxV := efforts[0], efforts[0]
	for _, e := range efforts {
		sum += e
		if e < minV {
			minV = e
		}
		if e > maxV {
			maxV = e
		}
	}
	avg := sum / float64(n)

	std := sampleStdDev(efforts, avg)

	rep.AvgEffort = avg
	rep.StdDev = std
	rep.Min = minV
	rep.Max = maxV
	rep.MaxGap = maxV - minV
	rep.Gini = PairwiseGini(efforts)

	threshold := avg + 2*std
	if std == 0 {
		threshold = avg * 1.5
	}
	above := 0
	for _, e := range efforts {
		if e > threshold {
			above++
		}
	}
	rep.OutlierCount = above

	aboveAvg := 0
	for _, e := range efforts {
		if e > avg {
			aboveAvg++
		}
	}
	rep.PctAboveAvg = float64(aboveAvg) / float64(n) * 100

	return rep
}

// sampleStdDev returns the sample standard deviation (n-1 divisor),
// matching Python's statistics.stdev, and 0 for n<=1 per spec §4.4.
func sampleStdDev(xs []float64, mean float64) float64 {
	n := len(xs)
	if n <= 1 {
		return 0.0
	}
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// populationStdDev returns the population standard deviation (n
// divisor), matching Python's statistics.pstdev — used only by the
// preserved legacy SortedGini/calculate_global_fairness path below.
func populationStdDev(xs []float64, mean float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0.0
	}
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n))
}

// PairwiseGini computes Σ|xi-xj| / (2n²·mean), clamped to [0,1] and
// rounded to 4 decimals; 0 when mean=0 or n<=1. This is the
// authoritative formula for agent C and the Final Resolver (spec
// §4.4, §4.6), grounded on both fairness_manager_agent.py's
// _compute_gini and final_resolution.py's _compute_gini (identical).
func PairwiseGini(efforts []float64) float64 {
	n := len(efforts)
	if n <= 1 {
		return 0.0
	}
	var sum float64
	for _, e := range efforts {
		sum += e
	}
	mean := sum / float64(n)
	if mean == 0 {
		return 0.0
	}

	var absDiffSum float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			absDiffSum += math.Abs(efforts[i] - efforts[j])
		}
	}
	g := absDiffSum / (2 * float64(n) * float64(n) * mean)
	if g > 1.0 {
		g = 1.0
	}
	if g < 0 {
		g = 0
	}
	return round4(g)
}

// Decide applies the ACCEPT/REOPTIMIZE rule and, on REOPTIMIZE, the
// recommendation-generation rule from spec §4.4, matching
// fairness_manager_agent.py's _decide / _generate_recommendations.
func (e *Evaluator) Decide(driverIDs []int64, efforts []float64) models.FairnessReport {
	rep := Metrics(efforts)
	if rep.Gini <= e.Thresholds.GiniThreshold &&
		rep.StdDev <= e.Thresholds.StdDevThreshold &&
		rep.MaxGap <= e.Thresholds.MaxGapThreshold {
		rep.Status = models.FairnessAccept
		return rep
	}
	rep.Status = models.FairnessReoptimize
	rep.Recommendations = e.recommendations(driverIDs, efforts, rep)
	return rep
}

func (e *Evaluator) recommendations(driverIDs []int64, efforts []float64, rep models.FairnessReport) *models.FairnessRecommendations {
	std := rep.StdDev
	stdForThreshold := std
	if std == 0 {
		stdForThreshold = rep.AvgEffort * 0.15
	}

	var ids []int64
	for i, eff := range efforts {
		if eff > rep.AvgEffort+1.0*stdForThreshold {
			ids = append(ids, driverIDs[i])
		}
	}

	giniRatio := 1.0
	if e.Thresholds.GiniThreshold > 0 {
		giniRatio = rep.Gini / e.Thresholds.GiniThreshold
	}
	penaltyFactor := 1.0 + (giniRatio-1.0)*0.5
	if penaltyFactor < 1.2 {
		penaltyFactor = 1.2
	}
	if penaltyFactor > 2.0 {
		penaltyFactor = 2.0
	}
	penaltyFactor = math.Round(penaltyFactor*100) / 100

	return &models.FairnessRecommendations{
		IDsToPenalize: ids,
		PenaltyFactor: penaltyFactor,
		TargetMaxGap:  e.Thresholds.MaxGapThreshold,
	}
}

// ShouldAcceptProposal2 applies spec §4.4's re-optimization rule at
// the controller: proposal 2 wins iff its gini is no worse (<=) or its
// max_gap is strictly lower than proposal 1's.
func ShouldAcceptProposal2(p1, p2 models.FairnessReport) bool {
	return p2.Gini <= p1.Gini || p2.MaxGap < p1.MaxGap
}

// LegacyScore is the §9 "open question" formula, preserved verbatim
// from original_source/app/services/fairness.py's
// calculate_fairness_score: boundary behavior at avg=0 is intentionally
// left as-is rather than guessed at.
func LegacyScore(workload, avg float64) float64 {
	denom := avg
	if denom <= 0 {
		denom = 1.0
	}
	score := 1.0 - math.Abs(workload-avg)/denom
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

// SortedGini is the standalone fairness.py's alternate Gini
// formula: sorted-ascending cumulative weights. It is algebraically
// equal to PairwiseGini's formula; unlike PairwiseGini, its result is
// not rounded to 4 decimals. Preserved for parity with the original but not
// on the Fairness Evaluator's decision path (see SPEC_FULL.md §12).
func SortedGini(weights []float64) float64 {
	n := len(weights)
	if n == 0 {
		return 0.0
	}
	sorted := make([]float64, n)
	copy(sorted, weights)
	insertionSortFloat64(sorted)

	var total float64
	for _, w := range sorted {
		total += w
	}
	if total == 0 {
		return 0.0
	}

	var cumulative float64
	for i, w := range sorted {
		cumulative += float64(i+1) * w
	}
	g := (2*cumulative)/(float64(n)*total) - float64(n+1)/float64(n)
	if g < 0 {
		g = 0
	}
	if g > 1 {
		g = 1
	}
	return g
}

func insertionSortFloat64(xs []float64) {
	for i := 1; i < len(xs); i++ {
		v := xs[i]
		j := i - 1
		for j >= 0 && xs[j] > v {
			xs[j+1] = xs[j]
			j--
		}
		xs[j+1] = v
	}
}

// GlobalFairness mirrors the standalone fairness.py's
// calculate_global_fairness: SortedGini plus POPULATION standard
// deviation, distinct from the sample-stddev convention used by the
// Fairness Evaluator's Metrics above.
func GlobalFairness(efforts []float64) (gini, avg, stddev float64) {
	n := len(efforts)
	if n == 0 {
		return 0, 0, 0
	}
	var sum float64
	for _, e := range efforts {
		sum += e
	}
	avg = sum / float64(n)
	return SortedGini(efforts), avg, populationStdDev(efforts, avg)
}
