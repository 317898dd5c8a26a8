// Package recovery implements the Recovery Bookkeeper (service G,
// spec §4.8): per-driver "complexity debt" and recovery targets.
// Grounded on
// original_source/app/services/recovery_service.py.
package recovery

import (
	"math"
	"time"

	"github.com/fairdispatch/allocation-core/internal/config"
	"github.com/fairdispatch/allocation-core/internal/models"
)

// Store is the slice of the Store collaborator (§6.1) the Recovery
// Bookkeeper needs: reading and upserting DailyStats rows.
type Store interface {
	RecentDailyStats(driverID int64, before time.Time, days int) ([]models.DailyStats, error)
	UpsertDailyStats(stats models.DailyStats) error
}

// Bookkeeper runs the two recovery operations against a Store and the
// active FairnessConfig.
type Bookkeeper struct {
	Store  Store
	Config config.FairnessConfig
}

// New builds a Bookkeeper.
func New(store Store, fc config.FairnessConfig) *Bookkeeper {
	return &Bookkeeper{Store: store, Config: fc}
}

// RecoveryTargets implements spec §4.8's recovery_targets(driver_ids,
// date) operation. A nil map value means "no target" (explicit absent
// key is also treated as nil by callers).
func (b *Bookkeeper) RecoveryTargets(driverIDs []int64, date time.Time) (map[int64]*float64, error) {
	out := make(map[int64]*float64, len(driverIDs))
	for _, id := range driverIDs {
		out[id] = nil
	}
	if !b.Config.RecoveryModeEnabled {
		return out, nil
	}

	for _, id := range driverIDs {
		recent, err := b.Store.RecentDailyStats(id, date, 7)
		if err != nil {
			return nil, err
		}
		if len(recent) == 0 {
			continue
		}
		// recent is ordered most-recent-first; index 0 is the latest row
		// in the 7-day window.
		latestDebt := recent[0].ComplexityDebt

		recentAvg, ok := meanPositive(recent)
		if !ok {
			continue
		}

		if latestDebt >= b.Config.ComplexityDebtHardThreshold {
			target := recentAvg * b.Config.RecoveryLighteningFactor
			out[id] = &target
		}
	}
	return out, nil
}

func meanPositive(stats []models.DailyStats) (float64, bool) {
	var sum float64
	count := 0
	for _, s := range stats {
		if s.AvgWorkloadScore > 0 {
			sum += s.AvgWorkloadScore
			count++
		}
	}
	if count == 0 {
		return 0, false
	}
	return sum / float64(count), true
}

// RunAssignment is one assignment's effort, as needed by
// UpdateDailyStats.
type RunAssignment struct {
	DriverID int64
	Effort   float64
}

// UpdateDailyStats implements spec §4.8's update_daily_stats(run_id,
// date) operation, matching recovery_service.py's
// update_daily_stats_for_run.
func (b *Bookkeeper) UpdateDailyStats(runID string, date time.Time, assignments []RunAssignment) error {
	if len(assignments) == 0 {
		return nil
	}

	efforts := make([]float64, len(assignments))
	for i, a := range assignments {
		efforts[i] = a.Effort
	}
	avg, std := meanStd(efforts)
	hardDayThreshold := avg + 0.5*std

	for _, a := range assignments {
		yesterday, err := b.Store.RecentDailyStats(a.DriverID, date, 1)
		if err != nil {
			return err
		}
		var prevDebt float64
		if len(yesterday) > 0 {
			prevDebt = yesterday[0].ComplexityDebt
		}

		isHard := a.Effort > hardDayThreshold
		newDebt := math.Max(0, prevDebt-0.5)
		if isHard {
			newDebt = prevDebt + 1.0
		}

		isRecoveryDay := false
		if b.Config.RecoveryModeEnabled && prevDebt >= b.Config.ComplexityDebtHardThreshold {
			recent, err := b.Store.RecentDailyStats(a.DriverID, date, 7)
			if err != nil {
				return err
			}
			if recentAvg, ok := meanPositive(recent); ok {
				recoveryThreshold := recentAvg * b.Config.RecoveryLighteningFactor
				if a.Effort <= recoveryThreshold {
					isRecoveryDay = true
					newDebt = math.Max(0, prevDebt-1.0)
				}
			}
		}

		runID := runID
		effort := a.Effort
		if err := b.Store.UpsertDailyStats(models.DailyStats{
			DriverID:         a.DriverID,
			Date:             date,
			AvgWorkloadScore: a.Effort,
			TotalRoutes:      1,
			IsHardDay:        isHard,
			ComplexityDebt:   newDebt,
			IsRecoveryDay:    isRecoveryDay,
			ActualEffort:     &effort,
			AllocationRunID:  &runID,
		}); err != nil {
			return err
		}
	}
	return nil
}

func meanStd(xs []float64) (mean, std float64) {
	n := len(xs)
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(n)
	if n <= 1 {
		return mean, 0
	}
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	std = math.Sqrt(ss / float64(n-1))
	return mean, std
}

// CalculateRecoveryPenalty mirrors
// recovery_service.py's calculate_recovery_penalty, used by the
// Route Planner's cost matrix construction (§4.3). Exposed here
// since it's defined in terms of a recovery target.
func CalculateRecoveryPenalty(effort float64, target *float64, penaltyWeight float64) float64 {
	if target == nil || effort <= *target {
		return 0.0
	}
	if penaltyWeight == 0 {
		penaltyWeight = 3.0
	}
	return penaltyWeight * (effort - *target)
}

// ContextForDriver builds the §12-supplemented DriverContext a caller
// can hand to the Driver Liaison, matching
// recovery_service.py's get_driver_context_for_recovery.
func (b *Bookkeeper) ContextForDriver(driverID int64, date time.Time) (models.DriverContext, error) {
	recent, err := b.Store.RecentDailyStats(driverID, date, 7)
	if err != nil {
		return models.DriverContext{}, err
	}
	ctx := models.DriverContext{FatigueScore: 3.0, Preferences: map[string]bool{}}
	if len(recent) == 0 {
		return ctx, nil
	}
	if avg, ok := meanPositive(recent); ok {
		ctx.RecentAvgEffort = avg
	}
	hardDays := 0
	for _, s := range recent {
		if s.IsHardDay {
			hardDays++
		}
	}
	ctx.RecentHardDays = hardDays
	ctx.ComplexityDebt = recent[0].ComplexityDebt
	return ctx, nil
}
