package decisionlog

import (
	"testing"

	"github.com/fairdispatch/allocation-core/internal/models"
)

type fakeAppender struct {
	appended []models.DecisionLogEntry
}

func (f *fakeAppender) AppendDecisionLog(entry models.DecisionLogEntry) error {
	f.appended = append(f.appended, entry)
	return nil
}

func TestRecordAppendsInOrderAndForwardsToAppender(t *testing.T) {
	app := &fakeAppender{}
	sink := New("run-1", app)

	if err := sink.Record(models.AgentMLEffort, models.StepMatrixGeneration, nil, map[string]any{"num_drivers": 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sink.Record(models.AgentRoutePlanner, models.StepProposal1, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := sink.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].AgentName != models.AgentMLEffort || entries[1].AgentName != models.AgentRoutePlanner {
		t.Fatalf("expected append-order preserved, got %+v", entries)
	}
	if len(app.appended) != 2 {
		t.Fatalf("expected both entries forwarded to the appender, got %d", len(app.appended))
	}
}

func TestShortMessageMatrixGenerationFormatsCounts(t *testing.T) {
	entry := models.DecisionLogEntry{
		AgentName: models.AgentMLEffort, StepType: models.StepMatrixGeneration,
		OutputSnapshot: map[string]any{"num_drivers": 5, "num_routes": 12},
	}
	got := ShortMessage(entry)
	want := "Computed effort matrix for 5 drivers x 12 routes"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestShortMessageFairnessCheckIncludesStatus(t *testing.T) {
	entry := models.DecisionLogEntry{
		AgentName: models.AgentFairnessManager, StepType: models.StepFairnessCheckProposal1,
		OutputSnapshot: map[string]any{"status": "ACCEPT"},
	}
	got := ShortMessage(entry)
	want := "Checked initial proposal fairness: ACCEPT"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestShortMessageUnknownKeyFallsBackToRawKey(t *testing.T) {
	entry := models.DecisionLogEntry{AgentName: "SOMETHING", StepType: "ELSE"}
	got := ShortMessage(entry)
	if got != "SOMETHING/ELSE" {
		t.Fatalf("expected the raw agent/step key as fallback, got %q", got)
	}
}
