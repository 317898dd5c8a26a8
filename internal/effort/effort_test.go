package effort

import (
	"testing"

	"github.com/fairdispatch/allocation-core/internal/config"
	"github.com/fairdispatch/allocation-core/internal/models"
)

func testRoute(id int64, distanceKm *float64) models.Route {
	return models.Route{
		ID: id, NumPackages: 10, TotalWeightKg: 40, NumStops: 8,
		DifficultyScore: 3.0, EstimatedTimeMin: 90, TotalDistanceKm: distanceKm,
	}
}

func TestBuildMarksOverCapacityPenalty(t *testing.T) {
	model := New(config.DefaultFairnessConfig())
	light := models.Driver{ID: 1, VehicleCapacityKg: 20, VehicleKind: models.VehicleCombustion}
	heavy := models.Driver{ID: 2, VehicleCapacityKg: 200, VehicleKind: models.VehicleCombustion}
	routes := []models.Route{testRoute(100, nil)}

	mat := model.Build([]models.Driver{light, heavy}, routes, nil)

	if mat.Breakdown[0][0].CapacityPenalty <= mat.Breakdown[1][0].CapacityPenalty {
		t.Fatalf("expected the over-capacity driver to carry a larger capacity penalty: light=%v heavy=%v",
			mat.Breakdown[0][0].CapacityPenalty, mat.Breakdown[1][0].CapacityPenalty)
	}
}

func TestBuildMarksInfeasibleWhenBatteryInsufficient(t *testing.T) {
	model := New(config.DefaultFairnessConfig())
	battery := 20.0
	distance := 100.0
	ev := models.Driver{
		ID: 1, VehicleCapacityKg: 50, VehicleKind: models.VehicleElectric,
		BatteryRangeKm: &battery,
	}
	routes := []models.Route{testRoute(100, &distance)}

	mat := model.Build([]models.Driver{ev}, routes, nil)

	if !mat.Infeasible(0, 0) {
		t.Fatal("expected the pair to be marked infeasible when distance exceeds effective range")
	}
	if mat.Cost[0][0] != 99999.0 {
		t.Fatalf("expected infeasible pairs to carry sentinel cost 99999.0, got %v", mat.Cost[0][0])
	}
	if mat.NumInfeasible != 1 {
		t.Fatalf("expected NumInfeasible=1, got %d", mat.NumInfeasible)
	}
}

func TestBuildFeasibleWhenBatteryUnknown(t *testing.T) {
	model := New(config.DefaultFairnessConfig())
	distance := 500.0
	ev := models.Driver{ID: 1, VehicleCapacityKg: 50, VehicleKind: models.VehicleElectric}
	routes := []models.Route{testRoute(100, &distance)}

	mat := model.Build([]models.Driver{ev}, routes, nil)

	if mat.Infeasible(0, 0) {
		t.Fatal("an EV driver with no known battery range must be treated as feasible")
	}
}

func TestBuildAppliesFatigueMultiplier(t *testing.T) {
	model := New(config.DefaultFairnessConfig())
	driver := models.Driver{ID: 1, VehicleCapacityKg: 100, VehicleKind: models.VehicleCombustion}
	routes := []models.Route{testRoute(100, nil)}

	rested := model.Build([]models.Driver{driver}, routes, nil)
	tired := model.Build([]models.Driver{driver}, routes, map[int64]models.DriverStats{
		1: {FatigueLevel: 4.0},
	})

	if tired.Breakdown[0][0].Physical <= rested.Breakdown[0][0].Physical {
		t.Fatalf("expected fatigue to raise physical effort: rested=%v tired=%v",
			rested.Breakdown[0][0].Physical, tired.Breakdown[0][0].Physical)
	}
}

func TestBuildAggregatesMinMaxAvg(t *testing.T) {
	model := New(config.DefaultFairnessConfig())
	drivers := []models.Driver{
		{ID: 1, VehicleCapacityKg: 100, VehicleKind: models.VehicleCombustion},
		{ID: 2, VehicleCapacityKg: 100, VehicleKind: models.VehicleCombustion},
	}
	routes := []models.Route{testRoute(100, nil), testRoute(101, nil)}

	mat := model.Build(drivers, routes, nil)

	if mat.NumCells != 4 {
		t.Fatalf("expected 4 cells, got %d", mat.NumCells)
	}
	if mat.Min > mat.Avg || mat.Avg > mat.Max {
		t.Fatalf("expected min <= avg <= max, got min=%v avg=%v max=%v", mat.Min, mat.Avg, mat.Max)
	}
}
