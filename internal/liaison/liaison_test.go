package liaison

import (
	"testing"

	"github.com/fairdispatch/allocation-core/internal/models"
)

func TestDecideForDriverAcceptsWithinComfortBand(t *testing.T) {
	l := New(100, 20)
	d := l.DecideForDriver(Proposal{
		DriverID: 1, RouteID: 10, Effort: 110, RankInTeam: 2,
		Context: models.DriverContext{RecentAvgEffort: 100, RecentStdEffort: 15},
	})
	if d.Verdict != models.LiaisonAccept {
		t.Fatalf("expected ACCEPT, got %v (%s)", d.Verdict, d.Reason)
	}
}

func TestDecideForDriverCountersWithLighterAlternative(t *testing.T) {
	l := New(100, 10)
	d := l.DecideForDriver(Proposal{
		DriverID: 1, RouteID: 10, Effort: 200, RankInTeam: 5,
		Context:      models.DriverContext{RecentAvgEffort: 100, RecentStdEffort: 10},
		Alternatives: []Alternative{{RouteID: 20, Effort: 150}, {RouteID: 30, Effort: 90}},
	})
	if d.Verdict != models.LiaisonCounter {
		t.Fatalf("expected COUNTER, got %v (%s)", d.Verdict, d.Reason)
	}
	if d.PreferredRouteID != 30 {
		t.Fatalf("expected the lightest qualifying alternative (30), got %d", d.PreferredRouteID)
	}
}

func TestDecideForDriverForceAcceptsTopRankerAvoidingUnderload(t *testing.T) {
	l := New(100, 10)
	// Top-ranked driver (RankInTeam<=2): a very light alternative
	// (< 0.5*globalAvg) must be rejected even though it clears the
	// improvement threshold, per the "avoid dumping on the top performer's
	// backup route" rule.
	d := l.DecideForDriver(Proposal{
		DriverID: 1, RouteID: 10, Effort: 300, RankInTeam: 1,
		Context:      models.DriverContext{RecentAvgEffort: 100, RecentStdEffort: 10},
		Alternatives: []Alternative{{RouteID: 99, Effort: 20}},
	})
	if d.Verdict != models.LiaisonForceAccept {
		t.Fatalf("expected FORCE_ACCEPT when the only alternative under-loads a top performer, got %v", d.Verdict)
	}
}

func TestDecideForDriverAppliesHardStreakAdjustment(t *testing.T) {
	l := New(100, 20)
	base := Proposal{
		DriverID: 1, RouteID: 10, Effort: 115, RankInTeam: 3,
		Context: models.DriverContext{RecentAvgEffort: 100, RecentStdEffort: 10},
	}
	fresh := l.DecideForDriver(base)

	hardStreak := base
	hardStreak.Context.RecentHardDays = 3
	tired := l.DecideForDriver(hardStreak)

	if fresh.Verdict != models.LiaisonAccept {
		t.Fatalf("expected the fresh driver to accept, got %v", fresh.Verdict)
	}
	if tired.Verdict == models.LiaisonAccept {
		t.Fatal("expected a 3+ hard-day streak to tighten the comfort band below this effort")
	}
}

func TestRunForAllCountsVerdicts(t *testing.T) {
	l := New(100, 10)
	decisions, accept, counter, force := l.RunForAll([]Proposal{
		{DriverID: 1, Effort: 100, Context: models.DriverContext{RecentAvgEffort: 100, RecentStdEffort: 10}},
	})
	if len(decisions) != 1 || accept != 1 || counter != 0 || force != 0 {
		t.Fatalf("expected 1 accept, got accept=%d counter=%d force=%d", accept, counter, force)
	}
}

func TestRankDriversHighestEffortIsRankOne(t *testing.T) {
	ranks := RankDrivers([]int64{1, 2, 3}, []float64{50, 150, 100})
	if ranks[2] != 1 {
		t.Fatalf("expected driver 2 (highest effort) to rank 1, got %d", ranks[2])
	}
	if ranks[1] != 3 {
		t.Fatalf("expected driver 1 (lowest effort) to rank 3, got %d", ranks[1])
	}
}

func TestRankDriversBreaksTiesByIDAscending(t *testing.T) {
	ranks := RankDrivers([]int64{5, 2}, []float64{100, 100})
	if ranks[2] != 1 || ranks[5] != 2 {
		t.Fatalf("expected tie broken by ascending id (2 before 5), got %v", ranks)
	}
}
