// Package store implements the Store collaborator (spec §6.1) over
// gorm + SQLite, following the teacher's
// internal/database/database.go connection-setup pattern
// (AutoMigrate, connection-pool tuning, silent logger) and
// internal/database/repository.go's repository-wraps-*DB style.
package store

import (
	"time"

	"github.com/google/uuid"
)

// DriverRow is the persisted Driver entity (§3).
type DriverRow struct {
	ID                  int64 `gorm:"primaryKey;autoIncrement"`
	ExternalID          string `gorm:"uniqueIndex"`
	Name                string
	VehicleCapacityKg   float64
	VehicleKind         string
	BatteryRangeKm      *float64
	ChargingTimeMinutes *float64
	PreferredLanguage   string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// RouteRow is the persisted Route entity (§3).
type RouteRow struct {
	ID               int64 `gorm:"primaryKey;autoIncrement"`
	ClusterID        int64
	NumPackages      int
	TotalWeightKg    float64
	NumStops         int
	DifficultyScore  float64
	EstimatedTimeMin float64
	TotalDistanceKm  *float64
	AllocationRunID  *string `gorm:"index"`
	CreatedAt        time.Time
}

// FairnessConfigRow is the persisted active FairnessConfig (§3).
type FairnessConfigRow struct {
	ID                          int64 `gorm:"primaryKey;autoIncrement"`
	IsActive                    bool  `gorm:"index"`
	WorkloadWeightPackages      float64
	WorkloadWeightWeightKg      float64
	WorkloadWeightDifficulty    float64
	WorkloadWeightTime          float64
	GiniThreshold               float64
	StdDevThreshold             float64
	MaxGapThreshold             float64
	RecoveryModeEnabled         bool
	ComplexityDebtHardThreshold float64
	RecoveryLighteningFactor    float64
	RecoveryPenaltyWeight       float64
	EVChargingPenaltyWeight     float64
	EVSafetyMarginPct           float64
	CreatedAt                   time.Time
	UpdatedAt                   time.Time
}

// AllocationRunRow is one allocation run (§3, §4.1).
type AllocationRunRow struct {
	ID        string `gorm:"primaryKey"`
	Date      time.Time
	Status    string
	ErrorMsg  string
	CreatedAt time.Time
	FinishedAt *time.Time
}

// AssignmentRow is one persisted (driver, route, effort) triple plus
// its explanation pair.
type AssignmentRow struct {
	ID               int64 `gorm:"primaryKey;autoIncrement"`
	AllocationRunID  string `gorm:"index"`
	DriverID         int64
	RouteID          int64
	WorkloadScore    float64
	FairnessScore    float64
	DriverText       string
	AdminText        string
	Category         string
	CreatedAt        time.Time
}

// DailyStatsRow is the persisted DailyStats entity (§3, §4.8).
type DailyStatsRow struct {
	ID               int64 `gorm:"primaryKey;autoIncrement"`
	DriverID         int64 `gorm:"index"`
	Date             time.Time `gorm:"index"`
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

// LearningEpisodeRow is the persisted LearningEpisode entity (§3,
// §4.9).
type LearningEpisodeRow struct {
	ID             string `gorm:"primaryKey"`
	RunID          string `gorm:"index"`
	ConfigHash     string `gorm:"index"`
	ConfigSnapshot string // JSON-encoded map[string]float64
	ArmIndex       int
	AlphaPrior     float64
	BetaPrior      float64
	SamplesCount   int
	NumDrivers     int
	NumRoutes      int
	IsExperimental bool
	EpisodeReward  *float64
	CreatedAt      time.Time `gorm:"index"`
}

// DecisionLogRow is one persisted DecisionLogEntry (§3, §6.1).
type DecisionLogRow struct {
	ID             int64 `gorm:"primaryKey;autoIncrement"`
	RunID          string `gorm:"index"`
	AgentName      string
	StepType       string
	InputSnapshot  string // JSON-encoded
	OutputSnapshot string // JSON-encoded
	Timestamp      time.Time `gorm:"index"`
}

// DriverEffortModelRow is the persisted H2 regressor blob (§9's
// versioned-blob schema: {version, feature_names, payload_format,
// payload_bytes}).
type DriverEffortModelRow struct {
	ID            int64 `gorm:"primaryKey;autoIncrement"`
	DriverID      int64 `gorm:"uniqueIndex"`
	Version       int
	FeatureNames  string // JSON-encoded []string
	PayloadFormat string
	PayloadBytes  []byte
	MSE           float64
	R2            float64
	UpdatedAt     time.Time
}

// DriverFeedbackRow is the §12-supplemented feedback record.
type DriverFeedbackRow struct {
	ID                    int64 `gorm:"primaryKey;autoIncrement"`
	DriverID              int64 `gorm:"index"`
	AssignmentID          int64 `gorm:"index"`
	FairnessRating        int
	StressLevel           int
	TirednessLevel        int
	WouldTakeSimilarAgain *bool
	CreatedAt             time.Time
}

func newID() string {
	return uuid.NewString()
}
