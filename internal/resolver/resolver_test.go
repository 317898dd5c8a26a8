package resolver

import (
	"testing"

	"github.com/fairdispatch/allocation-core/internal/models"
)

func buildMatrix(driverIDs, routeIDs []int64, cost [][]float64) *models.EffortMatrix {
	return &models.EffortMatrix{
		DriverIDs:       driverIDs,
		RouteIDs:        routeIDs,
		Cost:            cost,
		InfeasiblePairs: map[models.PairKey]struct{}{},
	}
}

func TestResolveAcceptsSwapThatImprovesFairnessWithBoundedIncrease(t *testing.T) {
	matrix := buildMatrix([]int64{1, 2}, []int64{10, 20}, [][]float64{
		{200, 60}, // driver 1: route10=200, route20=60
		{55, 50},  // driver 2: route10=55, route20=50
	})
	proposal := &models.AssignmentProposal{Assignments: []models.Assignment{
		{DriverID: 1, RouteID: 10, Effort: 200},
		{DriverID: 2, RouteID: 20, Effort: 50},
	}}
	decisions := []models.LiaisonDecision{
		{DriverID: 1, Verdict: models.LiaisonCounter, PreferredRouteID: 20},
	}

	res := Resolve(Input{Matrix: matrix, Proposal: proposal, Decisions: decisions})

	if len(res.Swaps) != 1 {
		t.Fatalf("expected the swap to be accepted, got %d swaps (unfulfilled=%v)", len(res.Swaps), res.UnfulfilledCounters)
	}
	if res.FinalRoutes[1] != 20 || res.FinalRoutes[2] != 10 {
		t.Fatalf("expected routes swapped, got %v", res.FinalRoutes)
	}
	if res.FinalEfforts[1] != 60 || res.FinalEfforts[2] != 55 {
		t.Fatalf("expected final efforts updated post-swap, got %v", res.FinalEfforts)
	}
}

func TestResolveRejectsSwapThatOverloadsTheOtherDriver(t *testing.T) {
	matrix := buildMatrix([]int64{1, 2}, []int64{10, 20}, [][]float64{
		{200, 60},
		{300, 50}, // driver 2 on route10 would jump from 50 to 300
	})
	proposal := &models.AssignmentProposal{Assignments: []models.Assignment{
		{DriverID: 1, RouteID: 10, Effort: 200},
		{DriverID: 2, RouteID: 20, Effort: 50},
	}}
	decisions := []models.LiaisonDecision{
		{DriverID: 1, Verdict: models.LiaisonCounter, PreferredRouteID: 20},
	}

	res := Resolve(Input{Matrix: matrix, Proposal: proposal, Decisions: decisions})

	if len(res.Swaps) != 0 {
		t.Fatalf("expected the swap to be rejected because driver 2's effort increase is unbounded, got %v", res.Swaps)
	}
	if len(res.UnfulfilledCounters) != 1 || res.UnfulfilledCounters[0] != 1 {
		t.Fatalf("expected driver 1's counter recorded as unfulfilled, got %v", res.UnfulfilledCounters)
	}
	if res.FinalRoutes[1] != 10 || res.FinalRoutes[2] != 20 {
		t.Fatalf("expected routes unchanged after a rejected swap, got %v", res.FinalRoutes)
	}
}

func TestResolveIgnoresNonCounterVerdicts(t *testing.T) {
	matrix := buildMatrix([]int64{1}, []int64{10}, [][]float64{{100}})
	proposal := &models.AssignmentProposal{Assignments: []models.Assignment{
		{DriverID: 1, RouteID: 10, Effort: 100},
	}}
	decisions := []models.LiaisonDecision{{DriverID: 1, Verdict: models.LiaisonAccept}}

	res := Resolve(Input{Matrix: matrix, Proposal: proposal, Decisions: decisions})
	if len(res.Swaps) != 0 || len(res.UnfulfilledCounters) != 0 {
		t.Fatalf("expected ACCEPT verdicts to leave the resolver untouched, got swaps=%v unfulfilled=%v", res.Swaps, res.UnfulfilledCounters)
	}
}

func TestResolveMarksCounterUnfulfilledWhenPreferredRouteUnassigned(t *testing.T) {
	matrix := buildMatrix([]int64{1}, []int64{10, 20}, [][]float64{{100, 50}})
	proposal := &models.AssignmentProposal{Assignments: []models.Assignment{
		{DriverID: 1, RouteID: 10, Effort: 100},
	}}
	decisions := []models.LiaisonDecision{
		{DriverID: 1, Verdict: models.LiaisonCounter, PreferredRouteID: 20},
	}

	res := Resolve(Input{Matrix: matrix, Proposal: proposal, Decisions: decisions})
	if len(res.UnfulfilledCounters) != 1 {
		t.Fatalf("expected the counter to be unfulfilled since no driver holds route 20, got %v", res.UnfulfilledCounters)
	}
}
