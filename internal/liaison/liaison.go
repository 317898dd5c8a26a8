// Package liaison implements the Driver Liaison (agent D, spec §4.5):
// per-driver ACCEPT/COUNTER/FORCE_ACCEPT negotiation. Grounded on
// original_source/app/services/driver_liaison_agent.py.
package liaison

import (
	"sort"

	"github.com/fairdispatch/allocation-core/internal/models"
)

const (
	highStreakThresholdDays = 3
	minimumImprovementPct   = 0.10
)

// Alternative is one other route the driver could take, with its
// effort for that driver.
type Alternative struct {
	RouteID int64
	Effort  float64
}

// Proposal is the per-driver negotiation input.
type Proposal struct {
	DriverID     int64
	RouteID      int64
	Effort       float64
	RankInTeam   int // 1 = highest effort, N = lowest
	Context      models.DriverContext
	Alternatives []Alternative // sorted ascending by effort, excludes current route
}

// Liaison runs per-driver negotiation decisions.
type Liaison struct {
	GlobalStd float64
	GlobalAvg float64
}

// New builds a Liaison bound to the run's global effort stats.
func New(globalAvg, globalStd float64) *Liaison {
	return &Liaison{GlobalAvg: globalAvg, GlobalStd: globalStd}
}

// DecideForDriver applies spec §4.5's comfort-band and counter-search
// procedure, matching driver_liaison_agent.py's decide_for_driver.
func (l *Liaison) DecideForDriver(p Proposal) models.LiaisonDecision {
	ctx := p.Context
	comfortUpper := ctx.RecentAvgEffort + maxFloat(l.GlobalStd, ctx.RecentStdEffort)
	if ctx.RecentHardDays >= highStreakThresholdDays {
		comfortUpper -= 0.3 * l.GlobalStd
	}
	if ctx.FatigueScore >= 4.0 {
		comfortUpper -= 0.2 * l.GlobalStd
	}
	floor := ctx.RecentAvgEffort * 0.7
	if comfortUpper < floor {
		comfortUpper = floor
	}

	if p.Effort <= comfortUpper {
		return models.LiaisonDecision{
			DriverID: p.DriverID,
			Verdict:  models.LiaisonAccept,
			Reason:   "assigned effort within comfort range",
		}
	}

	alts := make([]Alternative, len(p.Alternatives))
	copy(alts, p.Alternatives)
	sort.Slice(alts, func(i, j int) bool { return alts[i].Effort < alts[j].Effort })

	requiredMaxEffort := p.Effort * (1 - minimumImprovementPct)
	for _, alt := range alts {
		if alt.Effort > requiredMaxEffort {
			continue
		}
		if p.RankInTeam <= 2 && alt.Effort < l.GlobalAvg*0.5 {
			continue
		}
		return models.LiaisonDecision{
			DriverID:         p.DriverID,
			Verdict:          models.LiaisonCounter,
			PreferredRouteID: alt.RouteID,
			Reason:           "found a materially lighter alternative route",
		}
	}

	return models.LiaisonDecision{
		DriverID: p.DriverID,
		Verdict:  models.LiaisonForceAccept,
		Reason:   "no acceptable alternative found; effort above comfort range",
	}
}

// RunForAll runs DecideForDriver for every proposal, matching
// driver_liaison_agent.py's run_for_all_drivers orchestration.
func (l *Liaison) RunForAll(proposals []Proposal) (decisions []models.LiaisonDecision, numAccept, numCounter, numForceAccept int) {
	decisions = make([]models.LiaisonDecision, 0, len(proposals))
	for _, p := range proposals {
		d := l.DecideForDriver(p)
		decisions = append(decisions, d)
		switch d.Verdict {
		case models.LiaisonAccept:
			numAccept++
		case models.LiaisonCounter:
			numCounter++
		case models.LiaisonForceAccept:
			numForceAccept++
		}
	}
	return decisions, numAccept, numCounter, numForceAccept
}

// DefaultContext is used when no per-driver context is supplied,
// matching driver_liaison_agent.py's DEFAULT fallback.
func DefaultContext(globalAvg, globalStd float64) models.DriverContext {
	return models.DriverContext{
		RecentAvgEffort: globalAvg,
		RecentStdEffort: globalStd,
		RecentHardDays:  0,
		FatigueScore:    3.0,
		Preferences:     map[string]bool{},
	}
}

// RankDrivers assigns rank_in_team: 1 for the highest-effort driver, N
// for the lowest, ties broken by driver id ascending, matching spec
// §4.5.
func RankDrivers(driverIDs []int64, efforts []float64) map[int64]int {
	type de struct {
		id     int64
		effort float64
	}
	xs := make([]de, len(driverIDs))
	for i := range driverIDs {
		xs[i] = de{driverIDs[i], efforts[i]}
	}
	sort.Slice(xs, func(i, j int) bool {
		if xs[i].effort != xs[j].effort {
			return xs[i].effort > xs[j].effort
		}
		return xs[i].id < xs[j].id
	})
	ranks := make(map[int64]int, len(xs))
	for i, x := range xs {
		ranks[x.id] = i + 1
	}
	return ranks
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
