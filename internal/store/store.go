package store

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jinzhu/now"

	"github.com/fairdispatch/allocation-core/internal/config"
	"github.com/fairdispatch/allocation-core/internal/learning"
	"github.com/fairdispatch/allocation-core/internal/models"
	"github.com/fairdispatch/allocation-core/internal/runctl"
)

// Store wraps a gorm connection, matching
// internal/database/repository.go's Repository{db *DB} pattern.
type Store struct {
	db *gorm.DB
}

// Open connects to a SQLite database at dbPath and migrates every
// table in one AutoMigrate pass (spec §12: no incremental migration
// framework in the pack; the schema already reflects every original
// phase's columns).
func Open(dbPath string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("store: db handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&DriverRow{}, &RouteRow{}, &FairnessConfigRow{}, &AllocationRunRow{},
		&AssignmentRow{}, &DailyStatsRow{}, &LearningEpisodeRow{},
		&DecisionLogRow{}, &DriverEffortModelRow{}, &DriverFeedbackRow{},
	); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ActiveFairnessConfig loads the one row with is_active=true, falling
// back to documented defaults when absent (spec §4.1 step 2).
func (s *Store) ActiveFairnessConfig() (config.FairnessConfig, error) {
	var row FairnessConfigRow
	err := s.db.Where("is_active = ?", true).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return config.DefaultFairnessConfig(), nil
	}
	if err != nil {
		return config.FairnessConfig{}, fmt.Errorf("store: active fairness config: %w", err)
	}
	return config.FairnessConfig{
		IsActive:                    row.IsActive,
		WorkloadWeightPackages:      row.WorkloadWeightPackages,
		WorkloadWeightWeightKg:      row.WorkloadWeightWeightKg,
		WorkloadWeightDifficulty:    row.WorkloadWeightDifficulty,
		WorkloadWeightTime:          row.WorkloadWeightTime,
		GiniThreshold:               row.GiniThreshold,
		StdDevThreshold:             row.StdDevThreshold,
		MaxGapThreshold:             row.MaxGapThreshold,
		RecoveryModeEnabled:         row.RecoveryModeEnabled,
		ComplexityDebtHardThreshold: row.ComplexityDebtHardThreshold,
		RecoveryLighteningFactor:    row.RecoveryLighteningFactor,
		RecoveryPenaltyWeight:       row.RecoveryPenaltyWeight,
		EVChargingPenaltyWeight:     row.EVChargingPenaltyWeight,
		EVSafetyMarginPct:           row.EVSafetyMarginPct,
	}, nil
}

// UpsertDrivers inserts or updates driver rows by external id.
func (s *Store) UpsertDrivers(drivers []models.Driver) error {
	for _, d := range drivers {
		row := DriverRow{
			ExternalID:          d.ExternalID,
			Name:                d.Name,
			VehicleCapacityKg:   d.VehicleCapacityKg,
			VehicleKind:         string(d.VehicleKind),
			BatteryRangeKm:      d.BatteryRangeKm,
			ChargingTimeMinutes: d.ChargingTimeMinutes,
			PreferredLanguage:   d.PreferredLanguage,
		}
		if err := s.db.Where(DriverRow{ExternalID: d.ExternalID}).
			Assign(row).FirstOrCreate(&row).Error; err != nil {
			return fmt.Errorf("store: upsert driver %s: %w", d.ExternalID, err)
		}
	}
	return nil
}

// CreateRoutes persists a batch of routes for a run.
func (s *Store) CreateRoutes(runID string, routes []models.Route) ([]int64, error) {
	ids := make([]int64, len(routes))
	for i, r := range routes {
		row := RouteRow{
			ClusterID:        r.ClusterID,
			NumPackages:      r.NumPackages,
			TotalWeightKg:    r.TotalWeightKg,
			NumStops:         r.NumStops,
			DifficultyScore:  r.DifficultyScore,
			EstimatedTimeMin: r.EstimatedTimeMin,
			TotalDistanceKm:  r.TotalDistanceKm,
			AllocationRunID:  &runID,
		}
		if err := s.db.Create(&row).Error; err != nil {
			return nil, fmt.Errorf("store: create route: %w", err)
		}
		ids[i] = row.ID
	}
	return ids, nil
}

// CreateRun inserts a new PENDING allocation run row.
func (s *Store) CreateRun(id string, date time.Time) error {
	return s.db.Create(&AllocationRunRow{
		ID: id, Date: date, Status: string(models.RunPending), CreatedAt: time.Now(),
	}).Error
}

// FinalizeRun marks a run SUCCESS or FAILED, truncating any error
// message to 500 chars per spec §7.
func (s *Store) FinalizeRun(id string, status models.RunStatus, errMsg string) error {
	if len(errMsg) > 500 {
		errMsg = errMsg[:500]
	}
	now := time.Now()
	return s.db.Model(&AllocationRunRow{}).Where("id = ?", id).Updates(map[string]any{
		"status": string(status), "error_msg": errMsg, "finished_at": &now,
	}).Error
}

// RecentDailyStats implements the recovery.Store interface: the last
// `days` DailyStats rows for a driver strictly before `before`.
func (s *Store) RecentDailyStats(driverID int64, before time.Time, days int) ([]models.DailyStats, error) {
	start := now.With(before).BeginningOfDay().AddDate(0, 0, -days)
	var rows []DailyStatsRow
	err := s.db.Where("driver_id = ? AND date >= ? AND date < ?", driverID, start, before).
		Order("date DESC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: recent daily stats: %w", err)
	}
	out := make([]models.DailyStats, len(rows))
	for i, r := range rows {
		out[i] = models.DailyStats{
			ID: r.ID, DriverID: r.DriverID, Date: r.Date,
			AvgWorkloadScore: r.AvgWorkloadScore, TotalRoutes: r.TotalRoutes,
			IsHardDay: r.IsHardDay, ComplexityDebt: r.ComplexityDebt,
			IsRecoveryDay: r.IsRecoveryDay, PredictedEffort: r.PredictedEffort,
			ActualEffort: r.ActualEffort, ModelVersionUsed: r.ModelVersionUsed,
			AllocationRunID: r.AllocationRunID,
		}
	}
	return out, nil
}

// UpsertDailyStats inserts or updates the (driver, date) row.
func (s *Store) UpsertDailyStats(stats models.DailyStats) error {
	day := now.With(stats.Date).BeginningOfDay()
	row := DailyStatsRow{
		DriverID: stats.DriverID, Date: day,
		AvgWorkloadScore: stats.AvgWorkloadScore, TotalRoutes: stats.TotalRoutes,
		IsHardDay: stats.IsHardDay, ComplexityDebt: stats.ComplexityDebt,
		IsRecoveryDay: stats.IsRecoveryDay, PredictedEffort: stats.PredictedEffort,
		ActualEffort: stats.ActualEffort, ModelVersionUsed: stats.ModelVersionUsed,
		AllocationRunID: stats.AllocationRunID,
	}
	return s.db.Where(DailyStatsRow{DriverID: stats.DriverID, Date: day}).
		Assign(row).FirstOrCreate(&row).Error
}

// AppendDecisionLog implements decisionlog.Appender.
func (s *Store) AppendDecisionLog(entry models.DecisionLogEntry) error {
	in, _ := json.Marshal(entry.InputSnapshot)
	out, _ := json.Marshal(entry.OutputSnapshot)
	return s.db.Create(&DecisionLogRow{
		RunID: entry.RunID, AgentName: string(entry.AgentName), StepType: string(entry.StepType),
		InputSnapshot: string(in), OutputSnapshot: string(out), Timestamp: entry.Timestamp,
	}).Error
}

// PersistAssignments writes final assignments plus their explanation
// texts. Implements runctl.Store.
func (s *Store) PersistAssignments(runID string, rows []runctl.AssignmentPersist) error {
	if len(rows) == 0 {
		return nil
	}
	out := make([]AssignmentRow, len(rows))
	for i, r := range rows {
		out[i] = AssignmentRow{
			AllocationRunID: runID,
			DriverID:        r.DriverID,
			RouteID:         r.RouteID,
			WorkloadScore:   r.WorkloadScore,
			FairnessScore:   r.FairnessScore,
			DriverText:      r.DriverText,
			AdminText:       r.AdminText,
			Category:        r.Category,
		}
	}
	return s.db.Create(&out).Error
}

// CreateLearningEpisode persists a LearningEpisode.
func (s *Store) CreateLearningEpisode(ep models.LearningEpisode) error {
	snap, _ := json.Marshal(ep.ConfigSnapshot)
	if ep.ID == "" {
		ep.ID = newID()
	}
	return s.db.Create(&LearningEpisodeRow{
		ID: ep.ID, RunID: ep.RunID, ConfigHash: ep.ConfigHash, ConfigSnapshot: string(snap),
		ArmIndex: ep.ArmIndex, AlphaPrior: ep.AlphaPrior, BetaPrior: ep.BetaPrior,
		SamplesCount: ep.SamplesCount, NumDrivers: ep.NumDrivers, NumRoutes: ep.NumRoutes,
		IsExperimental: ep.IsExperimental, EpisodeReward: ep.EpisodeReward, CreatedAt: ep.CreatedAt,
	}).Error
}

// RecentEpisodes implements learning.EpisodeLoader: episodes from the
// last windowDays with a non-null reward.
func (s *Store) RecentEpisodes(windowDays int) ([]learning.EpisodeRecord, error) {
	cutoff := time.Now().AddDate(0, 0, -windowDays)
	var rows []LearningEpisodeRow
	err := s.db.Where("created_at >= ? AND episode_reward IS NOT NULL", cutoff).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: recent episodes: %w", err)
	}
	out := make([]learning.EpisodeRecord, len(rows))
	for i, r := range rows {
		out[i] = learning.EpisodeRecord{ArmIndex: r.ArmIndex, Reward: r.EpisodeReward}
	}
	return out, nil
}

// LoadDriverModel loads a driver's persisted H2 regressor blob, if any.
func (s *Store) LoadDriverModel(driverID int64) (learning.ModelBlob, bool, error) {
	var row DriverEffortModelRow
	err := s.db.Where("driver_id = ?", driverID).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return learning.ModelBlob{}, false, nil
	}
	if err != nil {
		return learning.ModelBlob{}, false, fmt.Errorf("store: load driver model: %w", err)
	}
	var names []string
	_ = json.Unmarshal([]byte(row.FeatureNames), &names)
	return learning.ModelBlob{
		Version: row.Version, FeatureNames: names,
		PayloadFormat: row.PayloadFormat, PayloadBytes: row.PayloadBytes,
	}, true, nil
}

// SaveDriverModel upserts a driver's H2 regressor blob plus its fit
// diagnostics.
func (s *Store) SaveDriverModel(driverID int64, trained learning.TrainedModel) error {
	names, _ := json.Marshal(trained.Blob.FeatureNames)
	row := DriverEffortModelRow{
		DriverID: driverID, Version: trained.Blob.Version, FeatureNames: string(names),
		PayloadFormat: trained.Blob.PayloadFormat, PayloadBytes: trained.Blob.PayloadBytes,
		MSE: trained.MSE, R2: trained.R2, UpdatedAt: time.Now(),
	}
	return s.db.Where(DriverEffortModelRow{DriverID: driverID}).Assign(row).FirstOrCreate(&row).Error
}
