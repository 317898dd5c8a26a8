package api

import (
	"github.com/gin-gonic/gin"

	"github.com/fairdispatch/allocation-core/internal/cluster"
	"github.com/fairdispatch/allocation-core/internal/decisionlog"
	"github.com/fairdispatch/allocation-core/internal/eventbus"
	"github.com/fairdispatch/allocation-core/internal/models"
	"github.com/fairdispatch/allocation-core/internal/runctl"
)

// toClusterPackages maps the wire packageDTO slice to cluster.Package,
// the Route Planner's geographic input type.
func toClusterPackages(packages []packageDTO) []cluster.Package {
	out := make([]cluster.Package, len(packages))
	for i, p := range packages {
		out[i] = cluster.Package{
			ID: p.ID, Latitude: p.Latitude, Longitude: p.Longitude,
			WeightKg: p.WeightKg, Address: p.Address,
		}
	}
	return out
}

// toRunResponseDTO renders a runctl.Response as the spec §6.2
// run(request) JSON body.
func toRunResponseDTO(resp runctl.Response) gin.H {
	assignments := make([]gin.H, len(resp.Assignments))
	for i, a := range resp.Assignments {
		assignments[i] = gin.H{
			"driver_id":          a.DriverID,
			"driver_external_id": a.DriverExternalID,
			"driver_name":        a.DriverName,
			"route_id":           a.RouteID,
			"workload_score":     a.WorkloadScore,
			"fairness_score":     a.FairnessScore,
			"route_summary":      a.RouteSummary,
			"explanation": gin.H{
				"driver_text": a.Explanation.DriverText,
				"admin_text":  a.Explanation.AdminText,
				"category":    a.Explanation.Category,
			},
		}
	}
	return gin.H{
		"run_id": resp.RunID,
		"date":   resp.Date.Format("2006-01-02"),
		"status": resp.Status,
		"global_fairness": gin.H{
			"avg_workload": resp.GlobalFairness.AvgWorkload,
			"std_dev":      resp.GlobalFairness.StdDev,
			"gini_index":   resp.GlobalFairness.GiniIndex,
		},
		"assignments": assignments,
	}
}

// toTimelineDTO builds the spec §6.2 timeline(run_id) response from a
// run's status and its ordered decision log entries, deriving each
// entry's human-readable line via decisionlog.ShortMessage.
func toTimelineDTO(info RunInfo, entries []models.DecisionLogEntry) gin.H {
	rows := make([]gin.H, len(entries))
	for i, e := range entries {
		rows[i] = gin.H{
			"timestamp":       e.Timestamp,
			"agent_name":      e.AgentName,
			"step_type":       e.StepType,
			"short_message":   decisionlog.ShortMessage(e),
			"input_snapshot":  e.InputSnapshot,
			"output_snapshot": e.OutputSnapshot,
		}
	}
	return gin.H{
		"run_id":   info.ID,
		"date":     info.Date,
		"status":   info.Status,
		"error":    info.ErrorMsg,
		"timeline": rows,
	}
}

// eventPayloadDTO renders one Event Bus event as an SSE payload.
func eventPayloadDTO(e eventbus.Event) gin.H {
	return gin.H{
		"run_id":     e.RunID,
		"agent_name": e.AgentName,
		"step_type":  e.StepType,
		"state":      e.State,
		"timestamp":  e.Timestamp,
		"payload":    e.Payload,
	}
}
