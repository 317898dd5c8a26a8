// Package resolver implements the Final Resolver (agent E, spec
// §4.6): honors COUNTER liaison decisions via constrained pairwise
// swaps. Grounded on
// original_source/app/services/final_resolution.py.
package resolver

import (
	"github.com/fairdispatch/allocation-core/internal/fairness"
	"github.com/fairdispatch/allocation-core/internal/models"
)

const metricEpsilon = 0.02

// Input bundles the accepted proposal, liaison decisions, and the
// effort matrix the resolver needs.
type Input struct {
	Matrix    *models.EffortMatrix
	Proposal  *models.AssignmentProposal
	Decisions []models.LiaisonDecision
}

// Result is the resolver's output: updated per-driver efforts, the
// ordered swaps applied, and any counters that could not be honored.
type Result struct {
	FinalEfforts       map[int64]float64 // driver id -> effort
	FinalRoutes        map[int64]int64   // driver id -> route id, post-swap
	Swaps              []models.SwapRecord
	UnfulfilledCounters []int64
	FinalReport        models.FairnessReport
}

// Resolve runs the greedy, non-backtracking swap procedure from spec
// §4.6.
func Resolve(in Input) Result {
	driverToRoute := make(map[int64]int64, len(in.Proposal.Assignments))
	routeToDriver := make(map[int64]int64, len(in.Proposal.Assignments))
	perDriverEffort := make(map[int64]float64, len(in.Proposal.Assignments))
	driverIdxByID := make(map[int64]int, len(in.Matrix.DriverIDs))
	routeIdxByID := make(map[int64]int, len(in.Matrix.RouteIDs))

	for i, id := range in.Matrix.DriverIDs {
		driverIdxByID[id] = i
	}
	for j, id := range in.Matrix.RouteIDs {
		routeIdxByID[id] = j
	}
	for _, a := range in.Proposal.Assignments {
		driverToRoute[a.DriverID] = a.RouteID
		routeToDriver[a.RouteID] = a.DriverID
		perDriverEffort[a.DriverID] = a.Effort
	}

	efforts := make([]float64, 0, len(perDriverEffort))
	for _, e := range perDriverEffort {
		efforts = append(efforts, e)
	}
	current := fairness.Metrics(efforts)

	res := Result{FinalEfforts: perDriverEffort}

	for _, d := range in.Decisions {
		if d.Verdict != models.LiaisonCounter {
			continue
		}
		driverA := d.DriverID
		routeB := d.PreferredRouteID

		routeA, ok := driverToRoute[driverA]
		if !ok {
			res.UnfulfilledCounters = append(res.UnfulfilledCounters, driverA)
			continue
		}
		driverB, ok := routeToDriver[routeB]
		if !ok {
			res.UnfulfilledCounters = append(res.UnfulfilledCounters, driverA)
			continue
		}
		if driverA == driverB {
			res.UnfulfilledCounters = append(res.UnfulfilledCounters, driverA)
			continue
		}
		idxA, okA := driverIdxByID[driverA]
		idxB, okB := driverIdxByID[driverB]
		idxRouteA, okRA := routeIdxByID[routeA]
		idxRouteB, okRB := routeIdxByID[routeB]
		if !okA || !okB || !okRA || !okRB {
			res.UnfulfilledCounters = append(res.UnfulfilledCounters, driverA)
			continue
		}

		effortABefore := perDriverEffort[driverA]
		effortBBefore := perDriverEffort[driverB]
		effortAAfter := in.Matrix.Cost[idxA][idxRouteB]
		effortBAfter := in.Matrix.Cost[idxB][idxRouteA]

		tentative := make(map[int64]float64, len(perDriverEffort))
		for k, v := range perDriverEffort {
			tentative[k] = v
		}
		tentative[driverA] = effortAAfter
		tentative[driverB] = effortBAfter

		tentativeEfforts := make([]float64, 0, len(tentative))
		for _, v := range tentative {
			tentativeEfforts = append(tentativeEfforts, v)
		}
		newReport := fairness.Metrics(tentativeEfforts)

		if isSwapAcceptable(current, newReport, effortBBefore, effortBAfter) {
			perDriverEffort[driverA] = effortAAfter
			perDriverEffort[driverB] = effortBAfter
			driverToRoute[driverA] = routeB
			driverToRoute[driverB] = routeA
			routeToDriver[routeB] = driverA
			routeToDriver[routeA] = driverB

			res.Swaps = append(res.Swaps, models.SwapRecord{
				DriverA: driverA, DriverB: driverB,
				RouteA: routeA, RouteB: routeB,
				EffortABefore: effortABefore, EffortBBefore: effortBBefore,
				EffortAAfter: effortAAfter, EffortBAfter: effortBAfter,
			})
			current = newReport
		} else {
			res.UnfulfilledCounters = append(res.UnfulfilledCounters, driverA)
		}
	}

	res.FinalEfforts = perDriverEffort
	res.FinalRoutes = driverToRoute
	res.FinalReport = current
	return res
}

// isSwapAcceptable applies spec §4.6's dual test: metrics must improve
// or stay within tolerance, AND driver B's effort increase must be
// bounded, matching final_resolution.py's _is_swap_acceptable exactly.
func isSwapAcceptable(old, new_ models.FairnessReport, effortBBefore, effortBAfter float64) bool {
	improves := new_.Gini < old.Gini-0.001 ||
		new_.StdDev < old.StdDev-0.1 ||
		new_.MaxGap < old.MaxGap-0.1

	withinTolerance := new_.Gini <= old.Gini*(1+metricEpsilon) &&
		new_.StdDev <= old.StdDev*(1+metricEpsilon)+0.5 &&
		new_.MaxGap <= old.MaxGap*(1+metricEpsilon)+0.5

	bIncreaseOK := effortBAfter <= effortBBefore*1.30+5.0

	return (withinTolerance || improves) && bIncreaseOK
}
