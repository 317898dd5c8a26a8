// Package decisionlog implements the Decision Log Sink (spec §6.1,
// §8 invariant 8): an append-only per-step record, ordered by
// timestamp within a run. Grounded on
// original_source/app/services/langgraph_nodes.py's
// _create_decision_log builder.
package decisionlog

import (
	"time"

	"github.com/fairdispatch/allocation-core/internal/models"
)

// Appender is the Store's write-side contract for decision log
// entries (spec §6.1's append_decision_log).
type Appender interface {
	AppendDecisionLog(entry models.DecisionLogEntry) error
}

// Sink appends entries in agent order and is safe to share across one
// run's sequential pipeline (the run itself is single-threaded
// per spec §5, so no locking is required here).
type Sink struct {
	RunID    string
	appender Appender
	entries  []models.DecisionLogEntry
}

// New constructs a Sink bound to one run and its Store appender.
func New(runID string, appender Appender) *Sink {
	return &Sink{RunID: runID, appender: appender}
}

// Record appends one entry, matching _create_decision_log's
// {timestamp, agent_name, step_type, input_snapshot, output_snapshot}
// shape.
func (s *Sink) Record(agent models.AgentName, step models.StepType, input, output map[string]any) error {
	entry := models.DecisionLogEntry{
		RunID:          s.RunID,
		AgentName:      agent,
		StepType:       step,
		InputSnapshot:  input,
		OutputSnapshot: output,
		Timestamp:      time.Now(),
	}
	s.entries = append(s.entries, entry)
	if s.appender == nil {
		return nil
	}
	return s.appender.AppendDecisionLog(entry)
}

// Entries returns every entry recorded so far, in append order —
// which is timestamp order per spec §8 invariant 8.
func (s *Sink) Entries() []models.DecisionLogEntry {
	return s.entries
}

// ShortMessage renders the timeline's human string for one entry via
// a fixed rule table, matching spec §6.2's
// "ML_EFFORT/MATRIX_GENERATION -> 'Computed effort matrix for N
// drivers x M routes'" example.
func ShortMessage(entry models.DecisionLogEntry) string {
	key := string(entry.AgentName) + "/" + string(entry.StepType)
	switch key {
	case "ML_EFFORT/MATRIX_GENERATION":
		return shortMatrixGeneration(entry)
	case "ROUTE_PLANNER/PROPOSAL_1":
		return "Generated initial assignment proposal"
	case "ROUTE_PLANNER/PROPOSAL_2":
		return "Generated re-optimized assignment proposal"
	case "FAIRNESS_MANAGER/FAIRNESS_CHECK_PROPOSAL_1":
		return shortFairnessCheck(entry, "initial")
	case "FAIRNESS_MANAGER/FAIRNESS_CHECK_PROPOSAL_2":
		return shortFairnessCheck(entry, "re-optimized")
	case "DRIVER_LIAISON/LIAISON_DECISIONS":
		return "Collected per-driver liaison decisions"
	case "FINAL_RESOLUTION/SWAP_RESOLUTION":
		return "Resolved counter-offers via pairwise swaps"
	case "EXPLAINABILITY/EXPLANATIONS_GENERATED":
		return "Generated per-driver explanations"
	case "LEARNING_AGENT/EPISODE_CREATED":
		return "Recorded learning episode"
	default:
		return key
	}
}

func shortMatrixGeneration(entry models.DecisionLogEntry) string {
	count := func(key string) int {
		switch v := entry.OutputSnapshot[key].(type) {
		case int:
			return v
		case float64: // snapshots read back from the Store are JSON-decoded
			return int(v)
		}
		return 0
	}
	drivers := count("num_drivers")
	routes := count("num_routes")
	if drivers == 0 && routes == 0 {
		return "Computed effort matrix"
	}
	return formatMatrixMessage(drivers, routes)
}

func formatMatrixMessage(drivers, routes int) string {
	return "Computed effort matrix for " + itoa(drivers) + " drivers x " + itoa(routes) + " routes"
}

func shortFairnessCheck(entry models.DecisionLogEntry, label string) string {
	status, _ := entry.OutputSnapshot["status"].(string)
	if status == "" {
		return "Checked " + label + " proposal fairness"
	}
	return "Checked " + label + " proposal fairness: " + status
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
