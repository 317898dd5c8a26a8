package workload

import "testing"

func TestDifficultyAppliesFragilityScaling(t *testing.T) {
	w := DefaultDifficultyWeights()
	base := Difficulty(w, 50, 10, 1.0)
	fragile := Difficulty(w, 50, 10, 3.0)
	if fragile <= base {
		t.Fatalf("expected higher fragility to increase difficulty: base=%v fragile=%v", base, fragile)
	}
}

func TestDifficultyDefaultsFragilityToOneWhenZero(t *testing.T) {
	w := DefaultDifficultyWeights()
	withZero := Difficulty(w, 50, 10, 0)
	withOne := Difficulty(w, 50, 10, 1.0)
	if withZero != withOne {
		t.Fatalf("expected a zero fragility to default to 1.0: withZero=%v withOne=%v", withZero, withOne)
	}
}

func TestEstimateMinutesAddsDrivingTimeWhenDistanceKnown(t *testing.T) {
	w := DefaultTimeWeights()
	withoutDistance := EstimateMinutes(w, 10, 5, 0)
	withDistance := EstimateMinutes(w, 10, 5, 30)
	if withDistance <= withoutDistance {
		t.Fatalf("expected known distance to add driving time: without=%v with=%v", withoutDistance, withDistance)
	}
}

func TestEstimateMinutesBaseCase(t *testing.T) {
	w := TimeWeights{Base: 30, PerPackage: 5, PerStop: 3}
	got := EstimateMinutes(w, 2, 1, 0)
	want := 30 + 2*5 + 1*3
	if got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}
