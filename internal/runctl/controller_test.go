package runctl

import (
	"testing"
	"time"

	"github.com/fairdispatch/allocation-core/internal/cluster"
	"github.com/fairdispatch/allocation-core/internal/config"
	"github.com/fairdispatch/allocation-core/internal/eventbus"
	"github.com/fairdispatch/allocation-core/internal/learning"
	"github.com/fairdispatch/allocation-core/internal/models"
)

// fakeStore satisfies runctl.Store (and its embedded decisionlog.Appender,
// recovery.Store, learning.EpisodeLoader interfaces) entirely in memory,
// matching the hand-rolled collaborator fakes used across the other
// package test suites rather than a mocking framework.
type fakeStore struct {
	fc           config.FairnessConfig
	dailyStats   []models.DailyStats
	persisted    []AssignmentPersist
	runStatus    models.RunStatus
	runErr       string
	nextRouteID  int64
	episodes     []models.LearningEpisode
	decisionLogs []models.DecisionLogEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{fc: config.DefaultFairnessConfig(), nextRouteID: 1}
}

func (f *fakeStore) ActiveFairnessConfig() (config.FairnessConfig, error) { return f.fc, nil }

func (f *fakeStore) UpsertDrivers(drivers []models.Driver) error { return nil }

func (f *fakeStore) CreateRoutes(runID string, routes []models.Route) ([]int64, error) {
	ids := make([]int64, len(routes))
	for i := range routes {
		ids[i] = f.nextRouteID
		f.nextRouteID++
	}
	return ids, nil
}

func (f *fakeStore) CreateRun(id string, date time.Time) error { return nil }

func (f *fakeStore) FinalizeRun(id string, status models.RunStatus, errMsg string) error {
	f.runStatus = status
	f.runErr = errMsg
	return nil
}

func (f *fakeStore) PersistAssignments(runID string, rows []AssignmentPersist) error {
	f.persisted = append(f.persisted, rows...)
	return nil
}

func (f *fakeStore) CreateLearningEpisode(ep models.LearningEpisode) error {
	f.episodes = append(f.episodes, ep)
	return nil
}

func (f *fakeStore) LoadDriverModel(driverID int64) (learning.ModelBlob, bool, error) {
	return learning.ModelBlob{}, false, nil
}

func (f *fakeStore) AppendDecisionLog(entry models.DecisionLogEntry) error {
	f.decisionLogs = append(f.decisionLogs, entry)
	return nil
}

func (f *fakeStore) RecentDailyStats(driverID int64, before time.Time, days int) ([]models.DailyStats, error) {
	var out []models.DailyStats
	for _, s := range f.dailyStats {
		if s.DriverID == driverID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertDailyStats(stats models.DailyStats) error {
	f.dailyStats = append(f.dailyStats, stats)
	return nil
}

func (f *fakeStore) RecentEpisodes(windowDays int) ([]learning.EpisodeRecord, error) {
	return nil, nil
}

func basicRequest() Request {
	return Request{
		Date:      time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC),
		Warehouse: Coordinate{Lat: 0, Lng: 0},
		Drivers: []models.Driver{
			{ID: 1, ExternalID: "ext-1", Name: "Alice", VehicleCapacityKg: 200, VehicleKind: models.VehicleCombustion},
			{ID: 2, ExternalID: "ext-2", Name: "Bob", VehicleCapacityKg: 200, VehicleKind: models.VehicleCombustion},
		},
		Packages: []cluster.Package{
			{ID: 1, Latitude: 0.01, Longitude: 0.01, WeightKg: 5, Address: "a"},
			{ID: 2, Latitude: 0.02, Longitude: 0.02, WeightKg: 5, Address: "b"},
			{ID: 3, Latitude: -0.01, Longitude: -0.01, WeightKg: 5, Address: "c"},
			{ID: 4, Latitude: -0.02, Longitude: -0.02, WeightKg: 5, Address: "d"},
		},
	}
}

func TestRunSucceedsEndToEnd(t *testing.T) {
	st := newFakeStore()
	bus := eventbus.New()
	defer bus.Close()
	arms := learning.BuildArms(config.DefaultBanditArmGrid())
	ctrl := New(st, bus, arms, 42)

	resp, err := ctrl.Run(basicRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != models.RunSuccess {
		t.Fatalf("expected RunSuccess, got %v", resp.Status)
	}
	if len(resp.Assignments) != 2 {
		t.Fatalf("expected 2 assignments (one per driver), got %d", len(resp.Assignments))
	}
	if st.runStatus != models.RunSuccess {
		t.Fatalf("expected the store to be finalized SUCCESS, got %v", st.runStatus)
	}
	if len(st.persisted) != 2 {
		t.Fatalf("expected 2 persisted assignment rows, got %d", len(st.persisted))
	}
	if len(st.dailyStats) == 0 {
		t.Fatal("expected daily stats to be recorded for the run")
	}
}

func TestRunRejectsEmptyDrivers(t *testing.T) {
	st := newFakeStore()
	bus := eventbus.New()
	defer bus.Close()
	ctrl := New(st, bus, nil, 1)

	req := basicRequest()
	req.Drivers = nil
	_, err := ctrl.Run(req)
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected a ValidationError for an empty driver list, got %v (%T)", err, err)
	}
	if st.runStatus != "" {
		t.Fatalf("expected no run row to be finalized for a validation failure, got %v", st.runStatus)
	}
}

func TestRunRejectsEmptyPackages(t *testing.T) {
	st := newFakeStore()
	bus := eventbus.New()
	defer bus.Close()
	ctrl := New(st, bus, nil, 1)

	req := basicRequest()
	req.Packages = nil
	_, err := ctrl.Run(req)
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected a ValidationError for an empty package list, got %v (%T)", err, err)
	}
}

// TestRunFailsWithInfeasibleAssignment forces every driver/route pair
// EV-infeasible by giving every driver a battery range far shorter
// than any route's distance, so no solver backend can cover every
// route and the planner returns an empty proposal.
func TestRunFailsWithInfeasibleAssignment(t *testing.T) {
	st := newFakeStore()
	bus := eventbus.New()
	defer bus.Close()
	ctrl := New(st, bus, nil, 1)

	tinyRange := 0.001
	req := basicRequest()
	for i := range req.Drivers {
		req.Drivers[i].VehicleKind = models.VehicleElectric
		req.Drivers[i].BatteryRangeKm = &tinyRange
	}

	_, err := ctrl.Run(req)
	if err == nil {
		t.Fatal("expected an error when every driver's battery range is exhausted by every route")
	}
	if _, ok := err.(*InfeasibleAssignmentError); !ok {
		t.Fatalf("expected an InfeasibleAssignmentError, got %v (%T)", err, err)
	}
	if st.runStatus != models.RunFailed {
		t.Fatalf("expected the run to be finalized FAILED, got %v", st.runStatus)
	}
}
