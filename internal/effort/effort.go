// Package effort implements the Effort Model (agent A, spec §4.2):
// it builds a driver×route effort matrix and marks EV-infeasible
// pairs. Grounded on original_source/app/services/ml_effort_agent.py
// and ev_utils.py, generalized from per-pair Python dicts into the
// dense 2-D arrays spec §9 asks for.
package effort

import (
	"math"

	"github.com/fairdispatch/allocation-core/internal/config"
	"github.com/fairdispatch/allocation-core/internal/models"
)

// EVConfig bundles the safety-margin and charging-penalty knobs used
// by the EV feasibility/overhead calculation (spec §4.2).
type EVConfig struct {
	SafetyMarginPct       float64
	ChargingPenaltyWeight float64
}

// Model computes EffortMatrix instances for a fixed set of weights.
type Model struct {
	Weights config.EffortWeights
	EV      EVConfig
}

// New builds an effort Model from the active FairnessConfig's workload
// weights and EV knobs, following the column names in
// original_source/app/config.py (workload_weight_*).
func New(fc config.FairnessConfig) *Model {
	return &Model{
		Weights: config.EffortWeights{
			Alpha: fc.WorkloadWeightPackages,
			Beta:  fc.WorkloadWeightWeightKg,
			Gamma: fc.WorkloadWeightDifficulty,
			Delta: fc.WorkloadWeightTime,
			Eps:   15.0, // capacity-penalty weight has no FairnessConfig column upstream
		},
		EV: EVConfig{
			SafetyMarginPct:       fc.EVSafetyMarginPct,
			ChargingPenaltyWeight: fc.EVChargingPenaltyWeight,
		},
	}
}

// round2 rounds to 2 decimals, matching the original's round(x, 2)
// calls and spec §4.2's determinism requirement.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Build computes the EffortMatrix for drivers × routes. statsByDriver
// may be nil or sparse; a missing entry is treated as zero fatigue.
func (m *Model) Build(drivers []models.Driver, routes []models.Route, statsByDriver map[int64]models.DriverStats) *models.EffortMatrix {
	nd, nr := len(drivers), len(routes)

	mat := &models.EffortMatrix{
		DriverIDs:       make([]int64, nd),
		RouteIDs:        make([]int64, nr),
		Cost:            make([][]float64, nd),
		Breakdown:       make([][]models.EffortCell, nd),
		InfeasiblePairs: make(map[models.PairKey]struct{}),
	}
	for i, d := range drivers {
		mat.DriverIDs[i] = d.ID
		mat.Cost[i] = make([]float64, nr)
		mat.Breakdown[i] = make([]models.EffortCell, nr)
	}
	for j, r := range routes {
		mat.RouteIDs[j] = r.ID
	}

	var sum float64
	count := 0
	minV, maxV := math.Inf(1), math.Inf(-1)

	for i, d := range drivers {
		stats := statsByDriver[d.ID]
		for j, r := range routes {
			cell := m.computeCell(d, r, stats)

			feasible, overhead := m.evAdjustment(d, r)
			if !feasible {
				mat.InfeasiblePairs[models.PairKey{DriverIdx: i, RouteIdx: j}] = struct{}{}
				mat.Cost[i][j] = 99999.0
				cell.Total = 99999.0
				mat.Breakdown[i][j] = cell
				mat.NumInfeasible++
				continue
			}
			cell.EVOverhead = overhead
			cell.CapacityPenalty += overhead
			cell.Total = round2(cell.Physical + cell.Complexity + cell.Time + cell.CapacityPenalty)

			mat.Cost[i][j] = cell.Total
			mat.Breakdown[i][j] = cell

			sum += cell.Total
			count++
			if cell.Total < minV {
				minV = cell.Total
			}
			if cell.Total > maxV {
				maxV = cell.Total
			}
		}
	}

	mat.NumCells = nd * nr
	if count > 0 {
		mat.Avg = sum / float64(count)
		mat.Min = minV
		mat.Max = maxV
	}
	return mat
}

// computeCell applies the physical/complexity/time/capacity_penalty
// formula from spec §4.2, matching
// ml_effort_agent.py's _compute_effort_breakdown exactly.
func (m *Model) computeCell(d models.Driver, r models.Route, stats models.DriverStats) models.EffortCell {
	w := m.Weights

	physical := w.Alpha*float64(r.NumPackages) + w.Beta*r.TotalWeightKg + 0.4*w.Gamma*r.DifficultyScore
	complexity := 0.6*w.Gamma*r.DifficultyScore + 0.5*float64(r.NumStops)
	timeC := w.Delta * r.EstimatedTimeMin

	var capacityPenalty float64
	if d.VehicleCapacityKg > 0 {
		ratio := r.TotalWeightKg / d.VehicleCapacityKg
		switch {
		case r.TotalWeightKg > d.VehicleCapacityKg:
			capacityPenalty = 10 * w.Eps * (ratio - 1.0)
		case ratio > 0.9:
			capacityPenalty = 2 * w.Eps * (ratio - 0.9)
		}
	}

	if stats.FatigueLevel > 0 {
		physical *= 1 + 0.1*stats.FatigueLevel
	}

	return models.EffortCell{
		Physical:        round2(physical),
		Complexity:      round2(complexity),
		Time:            round2(timeC),
		CapacityPenalty: round2(capacityPenalty),
	}
}

// evAdjustment mirrors ev_utils.get_ev_effort_adjustment: non-EV
// drivers, EV drivers without a known battery range, and routes with
// unknown distance are all treated as feasible with zero overhead.
func (m *Model) evAdjustment(d models.Driver, r models.Route) (feasible bool, overhead float64) {
	if !d.IsElectric() || !d.HasKnownBattery() || r.TotalDistanceKm == nil {
		return true, 0.0
	}
	battery := *d.BatteryRangeKm
	distance := *r.TotalDistanceKm
	effectiveRange := battery * (1 - m.EV.SafetyMarginPct/100)
	if distance > effectiveRange {
		return false, 0.0
	}
	usageRatio := distance / battery
	if usageRatio <= 0.7 {
		return true, 0.0
	}
	chargingMinutes := 30.0
	if d.ChargingTimeMinutes != nil {
		chargingMinutes = *d.ChargingTimeMinutes
	}
	return true, round2((usageRatio - 0.7) * chargingMinutes * m.EV.ChargingPenaltyWeight)
}
