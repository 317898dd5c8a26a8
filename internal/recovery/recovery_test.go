package recovery

import (
	"testing"
	"time"

	"github.com/fairdispatch/allocation-core/internal/config"
	"github.com/fairdispatch/allocation-core/internal/models"
)

// fakeStore is a minimal in-memory recovery.Store for tests, grounded
// on the Store interface's two operations only.
type fakeStore struct {
	recent map[int64][]models.DailyStats
	saved  []models.DailyStats
}

func (f *fakeStore) RecentDailyStats(driverID int64, before time.Time, days int) ([]models.DailyStats, error) {
	rows := f.recent[driverID]
	if len(rows) > days {
		rows = rows[:days]
	}
	return rows, nil
}

func (f *fakeStore) UpsertDailyStats(stats models.DailyStats) error {
	f.saved = append(f.saved, stats)
	return nil
}

func TestRecoveryTargetsNilWhenModeDisabled(t *testing.T) {
	fc := config.DefaultFairnessConfig()
	fc.RecoveryModeEnabled = false
	b := New(&fakeStore{}, fc)

	targets, err := b.RecoveryTargets([]int64{1}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if targets[1] != nil {
		t.Fatalf("expected no recovery target when recovery mode is disabled, got %v", *targets[1])
	}
}

func TestRecoveryTargetsSetWhenDebtOverThreshold(t *testing.T) {
	fc := config.DefaultFairnessConfig()
	fc.RecoveryModeEnabled = true
	fc.ComplexityDebtHardThreshold = 2.0
	fc.RecoveryLighteningFactor = 0.7

	store := &fakeStore{recent: map[int64][]models.DailyStats{
		1: {
			{ComplexityDebt: 3.0, AvgWorkloadScore: 100},
			{ComplexityDebt: 2.0, AvgWorkloadScore: 120},
		},
	}}
	b := New(store, fc)

	targets, err := b.RecoveryTargets([]int64{1}, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if targets[1] == nil {
		t.Fatal("expected a recovery target to be set for a driver over the debt threshold")
	}
	wantTarget := 110.0 * 0.7 // mean of 100,120
	if *targets[1] != wantTarget {
		t.Fatalf("expected target %v, got %v", wantTarget, *targets[1])
	}
}

func TestRecoveryTargetsAbsentWhenDebtBelowThreshold(t *testing.T) {
	fc := config.DefaultFairnessConfig()
	fc.RecoveryModeEnabled = true
	fc.ComplexityDebtHardThreshold = 2.0

	store := &fakeStore{recent: map[int64][]models.DailyStats{
		1: {{ComplexityDebt: 0.5, AvgWorkloadScore: 100}},
	}}
	b := New(store, fc)

	targets, _ := b.RecoveryTargets([]int64{1}, time.Now())
	if targets[1] != nil {
		t.Fatalf("expected no target below the debt threshold, got %v", *targets[1])
	}
}

func TestUpdateDailyStatsMarksHardDaysAndAccruesDebt(t *testing.T) {
	fc := config.DefaultFairnessConfig()
	fc.RecoveryModeEnabled = false
	store := &fakeStore{recent: map[int64][]models.DailyStats{}}
	b := New(store, fc)

	err := b.UpdateDailyStats("run-1", time.Now(), []RunAssignment{
		{DriverID: 1, Effort: 50},
		{DriverID: 2, Effort: 500}, // far above avg+0.5*std -> hard day
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.saved) != 2 {
		t.Fatalf("expected 2 saved rows, got %d", len(store.saved))
	}
	var hard, soft models.DailyStats
	for _, s := range store.saved {
		if s.DriverID == 2 {
			hard = s
		} else {
			soft = s
		}
	}
	if !hard.IsHardDay {
		t.Fatal("expected driver 2's high-effort day to be flagged hard")
	}
	if hard.ComplexityDebt <= 0 {
		t.Fatalf("expected debt to accrue on a hard day, got %v", hard.ComplexityDebt)
	}
	if soft.IsHardDay {
		t.Fatal("expected driver 1's low-effort day to not be flagged hard")
	}
}

func TestCalculateRecoveryPenaltyZeroWithoutTargetOrUnderTarget(t *testing.T) {
	if got := CalculateRecoveryPenalty(100, nil, 3.0); got != 0 {
		t.Fatalf("expected 0 penalty with no target, got %v", got)
	}
	target := 150.0
	if got := CalculateRecoveryPenalty(100, &target, 3.0); got != 0 {
		t.Fatalf("expected 0 penalty when under target, got %v", got)
	}
}

func TestCalculateRecoveryPenaltyScalesOverage(t *testing.T) {
	target := 100.0
	got := CalculateRecoveryPenalty(130, &target, 3.0)
	want := 3.0 * 30.0
	if got != want {
		t.Fatalf("expected penalty %v, got %v", want, got)
	}
}

func TestContextForDriverDefaultsWhenNoHistory(t *testing.T) {
	b := New(&fakeStore{}, config.DefaultFairnessConfig())
	ctx, err := b.ContextForDriver(1, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctx.FatigueScore != 3.0 {
		t.Fatalf("expected default fatigue score 3.0, got %v", ctx.FatigueScore)
	}
}
