// Package store (this file): the §12 daily retraining batch job's read
// path — assembling internal/learning.TrainingSample rows for one
// driver from the joined Assignment/Route/DailyStats history, since
// DailyStats alone (one row per driver-day) does not carry the
// per-route features the H2 regressor trains on.
package store

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/fairdispatch/allocation-core/internal/learning"
)

// DriversDueForRetrain lists driver ids with at least minSamples
// DailyStats rows carrying a non-null actual_effort, matching
// learning_agent.py's MIN_TRAINING_SAMPLES gate applied at the
// candidate-selection step rather than inside Train itself.
func (s *Store) DriversDueForRetrain(minSamples int) ([]int64, error) {
	var ids []int64
	err := s.db.Model(&DailyStatsRow{}).
		Where("actual_effort IS NOT NULL").
		Group("driver_id").
		Having("COUNT(*) >= ?", minSamples).
		Pluck("driver_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("store: drivers due for retrain: %w", err)
	}
	return ids, nil
}

// TrainingSamplesForDriver reassembles every (features, actual_effort)
// pair for one driver, oldest first (Trainer.Train keeps only the most
// recent 100), joining each
// DailyStats row back to the route it was assigned via the run's
// AssignmentRow, and filling the recency features
// (recent_avg_workload, recent_hard_days) from the DailyStats rows
// immediately preceding it. experience_days has no dedicated column
// anywhere in the schema (see DESIGN.md); it is approximated here as
// the count of prior DailyStats rows for the driver, matching the
// "days since first assignment" the original computed from a
// driver-creation timestamp.
func (s *Store) TrainingSamplesForDriver(driverID int64) ([]learning.TrainingSample, error) {
	var stats []DailyStatsRow
	err := s.db.Where("driver_id = ? AND actual_effort IS NOT NULL", driverID).
		Order("date ASC").Find(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("store: training samples: %w", err)
	}

	samples := make([]learning.TrainingSample, 0, len(stats))
	for i, st := range stats {
		route, ok, err := s.routeForDailyStat(driverID, st)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		recentAvg, recentHard := 0.0, 0
		window := stats[:i]
		if len(window) > 7 {
			window = window[len(window)-7:]
		}
		if len(window) > 0 {
			var sum float64
			for _, w := range window {
				sum += w.AvgWorkloadScore
				if w.IsHardDay {
					recentHard++
				}
			}
			recentAvg = sum / float64(len(window))
		}

		samples = append(samples, learning.TrainingSample{
			Features: []float64{
				float64(route.NumPackages),
				route.TotalWeightKg,
				float64(route.NumStops),
				route.DifficultyScore,
				route.EstimatedTimeMin,
				float64(i), // experience_days proxy: prior stats-row count
				recentAvg,
				float64(recentHard),
			},
			Target: *st.ActualEffort,
		})
	}
	return samples, nil
}

func (s *Store) routeForDailyStat(driverID int64, st DailyStatsRow) (RouteRow, bool, error) {
	if st.AllocationRunID == nil {
		return RouteRow{}, false, nil
	}
	var assignment AssignmentRow
	err := s.db.Where("allocation_run_id = ? AND driver_id = ?", *st.AllocationRunID, driverID).
		First(&assignment).Error
	if err == gorm.ErrRecordNotFound {
		return RouteRow{}, false, nil
	}
	if err != nil {
		return RouteRow{}, false, fmt.Errorf("store: route for daily stat: %w", err)
	}
	var route RouteRow
	if err := s.db.First(&route, assignment.RouteID).Error; err != nil {
		return RouteRow{}, false, fmt.Errorf("store: route for daily stat: %w", err)
	}
	return route, true, nil
}
