package models

// VehicleKind is a driver's vehicle category.
type VehicleKind string

const (
	VehicleCombustion VehicleKind = "combustion"
	VehicleElectric   VehicleKind = "electric"
	VehicleBicycle    VehicleKind = "bicycle"
)

// RunStatus is the lifecycle status of an allocation run.
type RunStatus string

const (
	RunPending RunStatus = "PENDING"
	RunSuccess RunStatus = "SUCCESS"
	RunFailed  RunStatus = "FAILED"
)

// LiaisonVerdict is a per-driver negotiation outcome.
type LiaisonVerdict string

const (
	LiaisonAccept      LiaisonVerdict = "ACCEPT"
	LiaisonCounter     LiaisonVerdict = "COUNTER"
	LiaisonForceAccept LiaisonVerdict = "FORCE_ACCEPT"
)

// FairnessStatus is the Fairness Evaluator's verdict.
type FairnessStatus string

const (
	FairnessAccept     FairnessStatus = "ACCEPT"
	FairnessReoptimize FairnessStatus = "REOPTIMIZE"
)

// ExplanationCategory classifies an assignment for the Explainer.
type ExplanationCategory string

const (
	CategoryNearAvg          ExplanationCategory = "NEAR_AVG"
	CategoryHeavy            ExplanationCategory = "HEAVY"
	CategoryHeavyWithSwap    ExplanationCategory = "HEAVY_WITH_SWAP"
	CategoryHeavyNoSwap      ExplanationCategory = "HEAVY_NO_SWAP"
	CategoryRecovery         ExplanationCategory = "RECOVERY"
	CategoryLightRecovery    ExplanationCategory = "LIGHT_RECOVERY"
	CategoryLight            ExplanationCategory = "LIGHT"
	CategoryLearningOptimized ExplanationCategory = "LEARNING_OPTIMIZED"
)

// StepType names a pipeline stage for the Decision Log Sink and Event Bus,
// matching the original's "AGENT/STEP_TYPE" decision-log vocabulary.
type StepType string

const (
	StepMatrixGeneration       StepType = "MATRIX_GENERATION"
	StepProposal1              StepType = "PROPOSAL_1"
	StepProposal2              StepType = "PROPOSAL_2"
	StepFairnessCheckProposal1 StepType = "FAIRNESS_CHECK_PROPOSAL_1"
	StepFairnessCheckProposal2 StepType = "FAIRNESS_CHECK_PROPOSAL_2"
	StepLiaisonDecisions       StepType = "LIAISON_DECISIONS"
	StepSwapResolution         StepType = "SWAP_RESOLUTION"
	StepExplanationsGenerated  StepType = "EXPLANATIONS_GENERATED"
	StepEpisodeCreated         StepType = "EPISODE_CREATED"
)

// AgentName names the pipeline component that wrote a decision log entry.
type AgentName string

const (
	AgentMLEffort        AgentName = "ML_EFFORT"
	AgentRoutePlanner    AgentName = "ROUTE_PLANNER"
	AgentFairnessManager AgentName = "FAIRNESS_MANAGER"
	AgentDriverLiaison   AgentName = "DRIVER_LIAISON"
	AgentFinalResolution AgentName = "FINAL_RESOLUTION"
	AgentExplainability  AgentName = "EXPLAINABILITY"
	AgentLearning        AgentName = "LEARNING_AGENT"
)

// EventState is the lifecycle state carried by an Event Bus event.
type EventState string

const (
	EventStarted   EventState = "STARTED"
	EventCompleted EventState = "COMPLETED"
	EventError     EventState = "ERROR"
)
