// Package models holds the semantic data-model types shared across the
// allocation pipeline (§3): Driver, Route, EffortMatrix, proposals,
// reports, decisions, and the per-run audit types.
package models

import "time"

// Driver is read by the core; it is created and owned externally.
type Driver struct {
	ID                  int64
	ExternalID          string
	Name                string
	VehicleCapacityKg   float64
	VehicleKind         VehicleKind
	BatteryRangeKm      *float64
	ChargingTimeMinutes *float64
	PreferredLanguage   string
}

// IsElectric reports whether the driver's EV feasibility checks apply.
func (d Driver) IsElectric() bool {
	return d.VehicleKind == VehicleElectric
}

// HasKnownBattery reports whether a positive battery range is on file.
// Per §3: an electric driver without one is treated as "no distance
// info ⇒ feasible" by the Effort Model.
func (d Driver) HasKnownBattery() bool {
	return d.BatteryRangeKm != nil && *d.BatteryRangeKm > 0
}

// Route is computed once before agent A runs and is immutable across
// the pipeline.
type Route struct {
	ID                  int64
	ClusterID           int64
	NumPackages         int
	TotalWeightKg       float64
	NumStops            int
	DifficultyScore     float64
	EstimatedTimeMin    float64
	TotalDistanceKm     *float64 // optional
}

// DriverStats is the optional per-driver fatigue/experience input to
// the Effort Model.
type DriverStats struct {
	FatigueLevel   float64
	ExperienceDays float64
}

// EffortCell is one (driver, route) entry of the EffortMatrix's
// breakdown table. Per §9's "dynamic key-keyed breakdown dictionary"
// note, this is a dense 2-D array element, never a string-keyed map.
type EffortCell struct {
	Physical        float64
	Complexity      float64
	Time            float64
	CapacityPenalty float64
	EVOverhead      float64
	Total           float64
}

// EffortMatrix is the dense driver×route effort table plus its
// breakdown and the sparse set of infeasible pairs. It lives for one
// request.
type EffortMatrix struct {
	DriverIDs      []int64
	RouteIDs       []int64
	Cost           [][]float64   // Cost[i][j], rounded to 2 decimals
	Breakdown      [][]EffortCell
	InfeasiblePairs map[PairKey]struct{}

	Min, Max, Avg      float64
	NumCells           int
	NumInfeasible      int
}

// PairKey identifies a (driver index, route index) cell without a
// stringified composite key.
type PairKey struct {
	DriverIdx int
	RouteIdx  int
}

// Infeasible reports whether the cell at (driverIdx, routeIdx) is
// marked infeasible.
func (m *EffortMatrix) Infeasible(driverIdx, routeIdx int) bool {
	_, ok := m.InfeasiblePairs[PairKey{driverIdx, routeIdx}]
	return ok
}

// Assignment is one (driver, route, effort) triple within a proposal.
type Assignment struct {
	DriverIdx int
	RouteIdx  int
	DriverID  int64
	RouteID   int64
	Effort    float64 // original effort, not the penalized solver cost
}

// AssignmentProposal is the Route Planner's output: |proposal| ≤
// min(|drivers|,|routes|), each driver at most once, each route
// exactly once, no pair in infeasible_pairs.
type AssignmentProposal struct {
	ProposalNumber int
	Assignments    []Assignment
	AvgEffort      float64
	SolverUsed     string
}

// FairnessRecommendations carries the Fairness Evaluator's guidance
// for a second planner pass.
type FairnessRecommendations struct {
	IDsToPenalize  []int64
	PenaltyFactor  float64
	TargetMaxGap   float64
}

// FairnessReport is the Fairness Evaluator's output.
type FairnessReport struct {
	AvgEffort     float64
	StdDev        float64
	MaxGap        float64
	Gini          float64
	Min, Max      float64
	OutlierCount  int
	PctAboveAvg   float64
	Status        FairnessStatus
	Recommendations *FairnessRecommendations
}

// LiaisonDecision is one driver's verdict on the proposed assignment.
type LiaisonDecision struct {
	DriverID         int64
	Verdict          LiaisonVerdict
	PreferredRouteID int64 // valid only when Verdict == LiaisonCounter
	Reason           string
}

// SwapRecord documents one accepted pairwise swap from the Final
// Resolver.
type SwapRecord struct {
	DriverA, DriverB   int64
	RouteA, RouteB     int64
	EffortABefore      float64
	EffortBBefore      float64
	EffortAAfter       float64
	EffortBAfter       float64
}

// ExplanationPair is the Explainer's output for one assignment.
type ExplanationPair struct {
	DriverText string
	AdminText  string
	Category   ExplanationCategory
}

// DriverContext is the Driver Liaison's per-driver negotiation input.
type DriverContext struct {
	RecentAvgEffort    float64
	RecentStdEffort    float64
	RecentHardDays     int
	FatigueScore       float64 // [1.0, 5.0]
	ComplexityDebt     float64
	Preferences        map[string]bool
}

// DailyStats is one record per (driver, date).
type DailyStats struct {
	ID               int64
	DriverID         int64
	Date             time.Time
	AvgWorkloadScore float64
	TotalRoutes      int
	IsHardDay        bool
	ComplexityDebt   float64
	IsRecoveryDay    bool
	PredictedEffort  *float64
	ActualEffort     *float64
	ModelVersionUsed *int
	AllocationRunID  *string
}

// LearningEpisode is one allocation run viewed as a bandit pull.
type LearningEpisode struct {
	ID              string
	RunID           string
	ConfigHash      string
	ConfigSnapshot  map[string]float64
	ArmIndex        int // -1 if config not in arm space
	AlphaPrior      float64
	BetaPrior       float64
	SamplesCount    int
	NumDrivers      int
	NumRoutes       int
	IsExperimental  bool
	EpisodeReward   *float64
	CreatedAt       time.Time
}

// DecisionLogEntry is one append-only audit record.
type DecisionLogEntry struct {
	RunID          string
	AgentName      AgentName
	StepType       StepType
	InputSnapshot  map[string]any
	OutputSnapshot map[string]any
	Timestamp      time.Time
}

// DriverFeedback is the §12-supplemented feedback shape the reward
// computer consumes.
type DriverFeedback struct {
	DriverID               int64
	AssignmentID           int64
	FairnessRating         int  // 1-5
	StressLevel            int  // 1-10
	TirednessLevel         int  // 1-5
	WouldTakeSimilarAgain  *bool
}
