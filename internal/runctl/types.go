package runctl

import (
	"time"

	"github.com/fairdispatch/allocation-core/internal/cluster"
	"github.com/fairdispatch/allocation-core/internal/models"
)

// Coordinate is a lat/lng pair.
type Coordinate struct {
	Lat, Lng float64
}

// Request is the run(request) payload from spec §6.2.
type Request struct {
	Date      time.Time
	Warehouse Coordinate
	Drivers   []models.Driver
	Packages  []cluster.Package
}

// GlobalFairness is the §6.2 response's summary fairness block.
type GlobalFairness struct {
	AvgWorkload float64
	StdDev      float64
	GiniIndex   float64
}

// AssignmentView is one §6.2 response assignment entry.
type AssignmentView struct {
	DriverID         int64
	DriverExternalID string
	DriverName       string
	RouteID          int64
	WorkloadScore    float64
	FairnessScore    float64
	RouteSummary     string
	Explanation      models.ExplanationPair
}

// Response is the run(request) -> response shape from spec §6.2.
type Response struct {
	RunID          string
	Date           time.Time
	Status         models.RunStatus
	GlobalFairness GlobalFairness
	Assignments    []AssignmentView
}

// TimelineEntry is one §6.2 timeline row.
type TimelineEntry struct {
	Timestamp    time.Time
	AgentName    models.AgentName
	StepType     models.StepType
	ShortMessage string
	Details      map[string]any
}

// Timeline is the §6.2 timeline(run_id) response.
type Timeline struct {
	RunID   string
	Status  models.RunStatus
	Entries []TimelineEntry
}
