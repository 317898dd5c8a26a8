// Package metrics exposes Prometheus collectors for the allocation
// pipeline (§11 DOMAIN STACK): per-agent stage latency and bandit arm
// pulls, served at /metrics alongside the teacher-style
// /api/v1/health. Grounded on the prometheus/client_golang usage in
// the NikeGunn-tutu pack entry's internal/infra/observability package
// (namespace/subsystem/name Opts + promauto registration), adapted
// from that repo's scheduler/region subsystems to this module's
// pipeline stages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// StageDuration tracks how long each agent's step takes within one
// run, labeled by agent name.
var StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "fairdispatch",
	Subsystem: "pipeline",
	Name:      "stage_duration_seconds",
	Help:      "Duration of one Run Controller pipeline stage.",
	Buckets:   prometheus.DefBuckets,
}, []string{"agent"})

// RunsTotal counts completed runs by final status.
var RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fairdispatch",
	Subsystem: "pipeline",
	Name:      "runs_total",
	Help:      "Total allocation runs by final status.",
}, []string{"status"})

// SwapsTotal counts accepted and unfulfilled Final Resolver swaps.
var SwapsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fairdispatch",
	Subsystem: "resolver",
	Name:      "swaps_total",
	Help:      "Total pairwise swap outcomes.",
}, []string{"outcome"})

// ReoptimizationsTotal counts how often the Fairness Evaluator sent
// the Route Planner back for a second proposal.
var ReoptimizationsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fairdispatch",
	Subsystem: "fairness",
	Name:      "reoptimizations_total",
	Help:      "Total runs where proposal 2 was generated after a REOPTIMIZE verdict.",
})

// BanditArmPulls counts how many times each bandit arm index was
// selected, the Learning Agent's per-arm pull counter.
var BanditArmPulls = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "fairdispatch",
	Subsystem: "learning",
	Name:      "bandit_arm_pulls_total",
	Help:      "Total Thompson-sampling selections per arm index.",
}, []string{"arm_index"})

// BanditExperimentalPulls counts episodes flagged is_experimental.
var BanditExperimentalPulls = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fairdispatch",
	Subsystem: "learning",
	Name:      "bandit_experimental_pulls_total",
	Help:      "Total bandit selections flagged experimental.",
})

// RegressorMSE tracks the most recent fit MSE per driver model
// retraining pass, labeled by driver id.
var RegressorMSE = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "fairdispatch",
	Subsystem: "learning",
	Name:      "regressor_mse",
	Help:      "Most recent H2 regressor fit MSE, by driver id.",
}, []string{"driver_id"})

// InfeasibleAssignments counts runs where every solver backend failed
// to cover every route.
var InfeasibleAssignments = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "fairdispatch",
	Subsystem: "pipeline",
	Name:      "infeasible_assignments_total",
	Help:      "Total runs that failed with InfeasibleAssignmentError.",
})
