package planner

import (
	"math"

	"github.com/fairdispatch/allocation-core/internal/models"
)

// Planner builds cost matrices and invokes the solver chain, matching
// route_planner_agent.py's plan()/_apply_penalties.
type Planner struct {
	chain *Chain
}

// New constructs a Planner with the canonical solver fallback chain.
func New() *Planner {
	return &Planner{chain: NewChain()}
}

// Input bundles everything plan() needs for one proposal pass.
type Input struct {
	Matrix                 *models.EffortMatrix
	Drivers                []models.Driver
	Routes                 []models.Route
	Penalties              map[int64]float64 // driver id -> multiplier, default 1.0
	RecoveryTargets        map[int64]float64 // driver id -> target, absent = no target
	RecoveryPenaltyWeight  float64           // default 3.0
	ProposalNumber         int
}

const infeasibleCost = 99999.0

// Plan builds the penalized cost matrix, solves it, and returns a
// proposal reporting ORIGINAL effort (not penalized cost) per the
// pairs actually assigned.
func (p *Planner) Plan(in Input) (*models.AssignmentProposal, error) {
	nd, nr := len(in.Drivers), len(in.Routes)
	proposal := &models.AssignmentProposal{ProposalNumber: in.ProposalNumber}

	if nd == 0 || nr == 0 {
		return proposal, nil
	}

	cost := make([][]float64, nd)
	for i, d := range in.Drivers {
		cost[i] = make([]float64, nr)
		penalty := 1.0
		if p, ok := in.Penalties[d.ID]; ok {
			penalty = p
		}
		for j := range in.Routes {
			if in.Matrix.Infeasible(i, j) {
				cost[i][j] = infeasibleCost
				continue
			}
			effort := in.Matrix.Cost[i][j]
			c := effort * penalty
			if target, ok := in.RecoveryTargets[d.ID]; ok {
				w := in.RecoveryPenaltyWeight
				if w == 0 {
					w = 3.0
				}
				c += math.Max(0, effort-target) * w
			}
			cost[i][j] = c
		}
	}

	assignment, solverName, err := p.chain.Solve(cost)
	if err != nil {
		return nil, err
	}

	var sum float64
	for i, j := range assignment {
		if j < 0 {
			continue
		}
		if in.Matrix.Infeasible(i, j) {
			// Safety check: the solver must never have picked an
			// infeasible cell even under padding; skip it defensively,
			// matching route_planner_agent.py's final infeasible_pairs
			// re-check before building the allocation list.
			continue
		}
		effort := in.Matrix.Cost[i][j]
		proposal.Assignments = append(proposal.Assignments, models.Assignment{
			DriverIdx: i,
			RouteIdx:  j,
			DriverID:  in.Drivers[i].ID,
			RouteID:   in.Routes[j].ID,
			Effort:    effort,
		})
		sum += effort
	}
	proposal.SolverUsed = solverName
	if len(proposal.Assignments) > 0 {
		proposal.AvgEffort = sum / float64(len(proposal.Assignments))
	}
	return proposal, nil
}

// PenaltiesFromRecommendations builds the penalties[d] map for a
// second proposal pass, matching
// route_planner_agent.py's build_penalties_from_recommendations.
func PenaltiesFromRecommendations(rec *models.FairnessRecommendations) map[int64]float64 {
	penalties := make(map[int64]float64)
	if rec == nil {
		return penalties
	}
	for _, id := range rec.IDsToPenalize {
		penalties[id] = rec.PenaltyFactor
	}
	return penalties
}
