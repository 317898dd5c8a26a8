package store

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/fairdispatch/allocation-core/internal/models"
)

// RunInfo is the minimal run-status projection the timeline endpoint
// needs (spec §6.2's "run info").
type RunInfo struct {
	ID       string
	Date     string
	Status   models.RunStatus
	ErrorMsg string
}

// GetRun loads one AllocationRun's status row.
func (s *Store) GetRun(runID string) (RunInfo, error) {
	var row AllocationRunRow
	err := s.db.Where("id = ?", runID).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return RunInfo{}, fmt.Errorf("store: run %s: %w", runID, err)
	}
	if err != nil {
		return RunInfo{}, fmt.Errorf("store: get run: %w", err)
	}
	return RunInfo{
		ID: row.ID, Date: row.Date.Format("2006-01-02"),
		Status: models.RunStatus(row.Status), ErrorMsg: row.ErrorMsg,
	}, nil
}

// DecisionLogEntries loads every decision log row for a run, in
// timestamp order, matching spec §8 invariant 8.
func (s *Store) DecisionLogEntries(runID string) ([]models.DecisionLogEntry, error) {
	var rows []DecisionLogRow
	err := s.db.Where("run_id = ?", runID).Order("timestamp ASC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: decision log entries: %w", err)
	}
	out := make([]models.DecisionLogEntry, len(rows))
	for i, r := range rows {
		var in, outSnap map[string]any
		_ = json.Unmarshal([]byte(r.InputSnapshot), &in)
		_ = json.Unmarshal([]byte(r.OutputSnapshot), &outSnap)
		out[i] = models.DecisionLogEntry{
			RunID: r.RunID, AgentName: models.AgentName(r.AgentName), StepType: models.StepType(r.StepType),
			InputSnapshot: in, OutputSnapshot: outSnap, Timestamp: r.Timestamp,
		}
	}
	return out, nil
}
