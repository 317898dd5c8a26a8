package fairness

import (
	"math"
	"testing"

	"github.com/fairdispatch/allocation-core/internal/models"
)

func TestPairwiseGiniZeroForEqualEfforts(t *testing.T) {
	g := PairwiseGini([]float64{50, 50, 50, 50})
	if g != 0 {
		t.Fatalf("expected gini 0 for an equal distribution, got %v", g)
	}
}

func TestPairwiseGiniHigherForSkewedEfforts(t *testing.T) {
	equal := PairwiseGini([]float64{50, 50, 50, 50})
	skewed := PairwiseGini([]float64{10, 10, 10, 170})
	if skewed <= equal {
		t.Fatalf("expected a skewed distribution to have higher gini than an equal one: skewed=%v equal=%v", skewed, equal)
	}
}

func TestPairwiseGiniClampedToUnitInterval(t *testing.T) {
	g := PairwiseGini([]float64{0, 0, 0, 1000})
	if g < 0 || g > 1 {
		t.Fatalf("expected gini in [0,1], got %v", g)
	}
}

func TestDecideAcceptsWithinThresholds(t *testing.T) {
	e := New(Thresholds{GiniThreshold: 0.33, StdDevThreshold: 25, MaxGapThreshold: 25})
	rep := e.Decide([]int64{1, 2, 3}, []float64{100, 102, 98})
	if rep.Status != models.FairnessAccept {
		t.Fatalf("expected ACCEPT, got %v (gini=%v stddev=%v maxgap=%v)", rep.Status, rep.Gini, rep.StdDev, rep.MaxGap)
	}
}

func TestDecideReoptimizesAndPenalizesOutliers(t *testing.T) {
	e := New(Thresholds{GiniThreshold: 0.05, StdDevThreshold: 1, MaxGapThreshold: 1})
	rep := e.Decide([]int64{1, 2, 3}, []float64{50, 55, 300})
	if rep.Status != models.FairnessReoptimize {
		t.Fatalf("expected REOPTIMIZE, got %v", rep.Status)
	}
	if rep.Recommendations == nil {
		t.Fatal("expected recommendations to be populated on REOPTIMIZE")
	}
	if len(rep.Recommendations.IDsToPenalize) == 0 {
		t.Fatal("expected the clear outlier driver to be flagged for penalty")
	}
	if rep.Recommendations.PenaltyFactor < 1.2 || rep.Recommendations.PenaltyFactor > 2.0 {
		t.Fatalf("expected penalty factor clamped to [1.2, 2.0], got %v", rep.Recommendations.PenaltyFactor)
	}
}

func TestShouldAcceptProposal2PrefersLowerGiniOrTighterGap(t *testing.T) {
	p1 := models.FairnessReport{Gini: 0.4, MaxGap: 30}
	betterGini := models.FairnessReport{Gini: 0.3, MaxGap: 30}
	betterGap := models.FairnessReport{Gini: 0.4, MaxGap: 20}
	worse := models.FairnessReport{Gini: 0.5, MaxGap: 35}

	if !ShouldAcceptProposal2(p1, betterGini) {
		t.Fatal("expected acceptance when proposal 2 improves gini")
	}
	if !ShouldAcceptProposal2(p1, betterGap) {
		t.Fatal("expected acceptance when proposal 2 strictly improves max gap")
	}
	if ShouldAcceptProposal2(p1, worse) {
		t.Fatal("expected rejection when proposal 2 is worse on both axes")
	}
}

func TestLegacyScoreBoundaryAtZeroAverage(t *testing.T) {
	if got := LegacyScore(10, 0); got != 0 {
		t.Fatalf("expected LegacyScore to clamp to 0 when workload exceeds the avg=0 denominator fallback, got %v", got)
	}
	if got := LegacyScore(0, 0); got != 1 {
		t.Fatalf("expected LegacyScore(0,0)=1 (zero deviation), got %v", got)
	}
}

func TestSortedGiniMatchesPairwiseGiniUpToRounding(t *testing.T) {
	weights := []float64{10, 20, 70}
	sorted := SortedGini(weights)
	pairwise := PairwiseGini(weights)
	if math.Abs(sorted-pairwise) > 5e-5 {
		t.Fatalf("expected SortedGini %v to equal PairwiseGini %v up to 4-decimal rounding", sorted, pairwise)
	}
}

func TestGlobalFairnessUsesPopulationStdDev(t *testing.T) {
	_, avg, stddev := GlobalFairness([]float64{10, 20, 30})
	if avg != 20 {
		t.Fatalf("expected avg=20, got %v", avg)
	}
	wantPop := math.Sqrt((100.0 + 0 + 100.0) / 3.0)
	if math.Abs(stddev-wantPop) > 1e-9 {
		t.Fatalf("expected population stddev %v, got %v", wantPop, stddev)
	}
}
