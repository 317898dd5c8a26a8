// Package runctl implements the Run Controller (agent orchestrator,
// spec §4.1): the single run(request) -> Response operation that
// sequences agents A through F plus the Recovery Bookkeeper and
// Learning Agent. Grounded on the teacher's
// pkg/algorithm/algorithm.go numbered-step orchestration style, and on
// the control-flow topology of
// original_source/app/services/langgraph_workflow.py's
// create_allocation_graph (the exact conditional-reoptimization branch
// structure spec §2/§8 describe, expressed here as a sequential Go
// function per spec §9's "exceptions for control flow" /
// "stateful module globals" re-architecture notes rather than a graph
// library).
package runctl

import (
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/fairdispatch/allocation-core/internal/cluster"
	"github.com/fairdispatch/allocation-core/internal/config"
	"github.com/fairdispatch/allocation-core/internal/decisionlog"
	"github.com/fairdispatch/allocation-core/internal/effort"
	"github.com/fairdispatch/allocation-core/internal/eventbus"
	"github.com/fairdispatch/allocation-core/internal/explain"
	"github.com/fairdispatch/allocation-core/internal/fairness"
	"github.com/fairdispatch/allocation-core/internal/learning"
	"github.com/fairdispatch/allocation-core/internal/liaison"
	"github.com/fairdispatch/allocation-core/internal/metrics"
	"github.com/fairdispatch/allocation-core/internal/models"
	"github.com/fairdispatch/allocation-core/internal/planner"
	"github.com/fairdispatch/allocation-core/internal/recovery"
	"github.com/fairdispatch/allocation-core/internal/resolver"
	"github.com/fairdispatch/allocation-core/internal/workload"
)

// Store is the subset of the Store collaborator (§6.1) the controller
// itself drives directly; agent sub-packages take narrower interfaces
// (e.g. recovery.Store, learning.EpisodeLoader).
type Store interface {
	ActiveFairnessConfig() (config.FairnessConfig, error)
	UpsertDrivers(drivers []models.Driver) error
	CreateRoutes(runID string, routes []models.Route) ([]int64, error)
	CreateRun(id string, date time.Time) error
	FinalizeRun(id string, status models.RunStatus, errMsg string) error
	PersistAssignments(runID string, rows []AssignmentPersist) error
	CreateLearningEpisode(ep models.LearningEpisode) error
	LoadDriverModel(driverID int64) (learning.ModelBlob, bool, error)

	decisionlog.Appender
	recovery.Store
	learning.EpisodeLoader
}

// AssignmentPersist is the persistence-layer shape for one final
// assignment plus its rendered explanation; kept here (rather than
// importing internal/store) to avoid a dependency cycle between
// runctl and store.
type AssignmentPersist struct {
	DriverID      int64
	RouteID       int64
	WorkloadScore float64
	FairnessScore float64
	DriverText    string
	AdminText     string
	Category      string
}

// Controller wires the pipeline's collaborators together. Per spec
// §9, there is no package-level singleton: callers construct exactly
// one Controller (or one per test) and own its Bus's lifecycle.
type Controller struct {
	Store     Store
	Bus       *eventbus.Bus
	Clusterer cluster.Clusterer
	Orderer   cluster.Orderer
	Arms      []learning.Arm
	Random    *rand.Rand
}

// New builds a Controller with the default collaborators (GeoSort
// clusterer, nearest-neighbor orderer) over the given Store and Event
// Bus.
func New(st Store, bus *eventbus.Bus, arms []learning.Arm, seed int64) *Controller {
	return &Controller{
		Store:     st,
		Bus:       bus,
		Clusterer: cluster.GeoSortClusterer{},
		Orderer:   cluster.NearestNeighborOrderer{},
		Arms:      arms,
		Random:    rand.New(rand.NewSource(seed)),
	}
}

// Run executes spec §4.1's full pipeline.
func (c *Controller) Run(req Request) (Response, error) {
	if len(req.Drivers) == 0 {
		return Response{}, &ValidationError{Reason: "empty driver list"}
	}
	if len(req.Packages) == 0 {
		return Response{}, &ValidationError{Reason: "empty package list"}
	}

	runID := uuid.NewString()
	if err := c.Store.CreateRun(runID, req.Date); err != nil {
		return Response{}, &CollaboratorError{RunID: runID, Message: truncate(err.Error(), 500)}
	}

	resp, err := c.runPipeline(runID, req)
	if err != nil {
		_ = c.Store.FinalizeRun(runID, models.RunFailed, truncate(err.Error(), 500))
		c.publish(runID, "CONTROLLER", "PIPELINE", models.EventError, nil)
		metrics.RunsTotal.WithLabelValues(string(models.RunFailed)).Inc()
		if _, ok := err.(*InfeasibleAssignmentError); ok {
			metrics.InfeasibleAssignments.Inc()
		}
		return Response{}, err
	}

	if err := c.Store.FinalizeRun(runID, models.RunSuccess, ""); err != nil {
		return Response{}, &CollaboratorError{RunID: runID, Message: truncate(err.Error(), 500)}
	}
	resp.Status = models.RunSuccess
	metrics.RunsTotal.WithLabelValues(string(models.RunSuccess)).Inc()
	return resp, nil
}

// timeStage records StageDuration for one agent's step.
func timeStage(agent models.AgentName, fn func()) {
	start := time.Now()
	fn()
	metrics.StageDuration.WithLabelValues(string(agent)).Observe(time.Since(start).Seconds())
}

func (c *Controller) publish(runID, agent, step string, state models.EventState, payload map[string]any) {
	if c.Bus == nil {
		return
	}
	c.Bus.Publish(eventbus.Event{
		RunID: runID, AgentName: agent, StepType: step, State: string(state),
		Timestamp: time.Now(), Payload: payload,
	})
}

// runPipeline runs steps 1-6 of spec §4.1's numbered procedure; step 7
// (learning episode) is non-fatal per §4.1/§7 and handled separately.
func (c *Controller) runPipeline(runID string, req Request) (Response, error) {
	log := decisionlog.New(runID, c.Store)

	// Step 1: materialize Driver and Route rows.
	if err := c.Store.UpsertDrivers(req.Drivers); err != nil {
		return Response{}, &CollaboratorError{RunID: runID, Message: err.Error()}
	}
	routes := c.buildRoutes(req)
	dbRouteIDs, err := c.Store.CreateRoutes(runID, routes)
	if err != nil {
		return Response{}, &CollaboratorError{RunID: runID, Message: err.Error()}
	}
	routeCatalog := make(map[int64]models.Route, len(routes))
	for i := range routes {
		routes[i].ID = dbRouteIDs[i]
		routeCatalog[routes[i].ID] = routes[i]
	}

	// Step 2: active FairnessConfig.
	fc, err := c.Store.ActiveFairnessConfig()
	if err != nil {
		return Response{}, &CollaboratorError{RunID: runID, Message: err.Error()}
	}

	driverIDs := make([]int64, len(req.Drivers))
	for i, d := range req.Drivers {
		driverIDs[i] = d.ID
	}

	// Step 3: Recovery Bookkeeper recovery targets.
	recoveryBook := recovery.New(c.Store, fc)
	targetsRaw, err := recoveryBook.RecoveryTargets(driverIDs, req.Date)
	if err != nil {
		return Response{}, &CollaboratorError{RunID: runID, Message: err.Error()}
	}
	targets := make(map[int64]float64, len(targetsRaw))
	for id, t := range targetsRaw {
		if t != nil {
			targets[id] = *t
		}
	}

	// Step 4: agents A -> F.
	c.publish(runID, string(models.AgentMLEffort), string(models.StepMatrixGeneration), models.EventStarted, nil)
	effortModel := effort.New(fc)
	var matrix *models.EffortMatrix
	timeStage(models.AgentMLEffort, func() { matrix = effortModel.Build(req.Drivers, routes, nil) })
	_ = log.Record(models.AgentMLEffort, models.StepMatrixGeneration, nil, map[string]any{
		"num_drivers": len(req.Drivers), "num_routes": len(routes), "num_infeasible": matrix.NumInfeasible,
	})
	c.publish(runID, string(models.AgentMLEffort), string(models.StepMatrixGeneration), models.EventCompleted, nil)

	planr := planner.New()
	var proposal1 *models.AssignmentProposal
	timeStage(models.AgentRoutePlanner, func() {
		proposal1, err = planr.Plan(planner.Input{
			Matrix: matrix, Drivers: req.Drivers, Routes: routes,
			RecoveryTargets: targets, RecoveryPenaltyWeight: fc.RecoveryPenaltyWeight, ProposalNumber: 1,
		})
	})
	if err != nil || len(proposal1.Assignments) < len(routes) {
		return Response{}, &InfeasibleAssignmentError{RunID: runID}
	}
	_ = log.Record(models.AgentRoutePlanner, models.StepProposal1, nil, map[string]any{
		"solver": proposal1.SolverUsed, "num_assignments": len(proposal1.Assignments),
	})

	evaluator := fairness.New(fairness.ThresholdsFrom(fc))
	ids1, efforts1 := assignmentEfforts(proposal1)
	var report1 models.FairnessReport
	timeStage(models.AgentFairnessManager, func() { report1 = evaluator.Decide(ids1, efforts1) })
	_ = log.Record(models.AgentFairnessManager, models.StepFairnessCheckProposal1, nil, map[string]any{
		"status": string(report1.Status), "gini": report1.Gini, "max_gap": report1.MaxGap,
	})

	finalProposal := proposal1
	if report1.Status == models.FairnessReoptimize && report1.Recommendations != nil && len(report1.Recommendations.IDsToPenalize) > 0 {
		metrics.ReoptimizationsTotal.Inc()
		penalties := planner.PenaltiesFromRecommendations(report1.Recommendations)
		proposal2, err := planr.Plan(planner.Input{
			Matrix: matrix, Drivers: req.Drivers, Routes: routes, Penalties: penalties,
			RecoveryTargets: targets, RecoveryPenaltyWeight: fc.RecoveryPenaltyWeight, ProposalNumber: 2,
		})
		if err == nil && len(proposal2.Assignments) > 0 {
			_ = log.Record(models.AgentRoutePlanner, models.StepProposal2, nil, map[string]any{
				"solver": proposal2.SolverUsed, "num_assignments": len(proposal2.Assignments),
			})
			ids2, efforts2 := assignmentEfforts(proposal2)
			report2 := evaluator.Decide(ids2, efforts2)
			_ = log.Record(models.AgentFairnessManager, models.StepFairnessCheckProposal2, nil, map[string]any{
				"status": string(report2.Status), "gini": report2.Gini, "max_gap": report2.MaxGap,
			})
			if fairness.ShouldAcceptProposal2(report1, report2) {
				finalProposal = proposal2
			}
		}
	}

	// Driver Liaison (agent D).
	assignedIDs, globalEfforts := assignmentEfforts(finalProposal)
	globalReport := fairness.Metrics(globalEfforts)
	ranks := liaison.RankDrivers(assignedIDs, globalEfforts)
	l := liaison.New(globalReport.AvgEffort, globalReport.StdDev)

	proposals := make([]liaison.Proposal, 0, len(finalProposal.Assignments))
	for _, a := range finalProposal.Assignments {
		ctx, ctxErr := recoveryBook.ContextForDriver(a.DriverID, req.Date)
		if ctxErr != nil {
			ctx = liaison.DefaultContext(globalReport.AvgEffort, globalReport.StdDev)
		}
		alts := alternativesFor(matrix, a.DriverID, a.RouteID)
		proposals = append(proposals, liaison.Proposal{
			DriverID: a.DriverID, RouteID: a.RouteID, Effort: a.Effort,
			RankInTeam: ranks[a.DriverID], Context: ctx, Alternatives: alts,
		})
	}
	var decisions []models.LiaisonDecision
	var numAccept, numCounter, numForce int
	timeStage(models.AgentDriverLiaison, func() {
		decisions, numAccept, numCounter, numForce = l.RunForAll(proposals)
	})
	_ = log.Record(models.AgentDriverLiaison, models.StepLiaisonDecisions, nil, map[string]any{
		"accept": numAccept, "counter": numCounter, "force_accept": numForce,
	})

	// Final Resolver (agent E).
	var resolved resolver.Result
	timeStage(models.AgentFinalResolution, func() {
		resolved = resolver.Resolve(resolver.Input{Matrix: matrix, Proposal: finalProposal, Decisions: decisions})
	})
	_ = log.Record(models.AgentFinalResolution, models.StepSwapResolution, nil, map[string]any{
		"num_swaps": len(resolved.Swaps), "num_unfulfilled": len(resolved.UnfulfilledCounters),
	})
	metrics.SwapsTotal.WithLabelValues("accepted").Add(float64(len(resolved.Swaps)))
	metrics.SwapsTotal.WithLabelValues("unfulfilled").Add(float64(len(resolved.UnfulfilledCounters)))

	swappedDrivers := make(map[int64]bool, len(resolved.Swaps))
	for _, s := range resolved.Swaps {
		swappedDrivers[s.DriverA] = true
		swappedDrivers[s.DriverB] = true
	}
	liaisonByDriver := make(map[int64]models.LiaisonVerdict, len(decisions))
	for _, d := range decisions {
		liaisonByDriver[d.DriverID] = d.Verdict
	}

	// Explainer (agent F).
	views := make([]AssignmentView, 0, len(finalProposal.Assignments))
	persistRows := make([]AssignmentPersist, 0, len(finalProposal.Assignments))
	driverByID := make(map[int64]models.Driver, len(req.Drivers))
	for _, d := range req.Drivers {
		driverByID[d.ID] = d
	}

	numDrivers := len(resolved.FinalEfforts)
	explainStart := time.Now()
	for _, driverID := range assignedIDs {
		finalEffort := resolved.FinalEfforts[driverID]
		routeID := resolved.FinalRoutes[driverID]
		route := routeCatalog[routeID]
		driver := driverByID[driverID]

		var breakdown models.EffortCell
		if di, dj, ok := cellIndex(matrix, driverID, routeID); ok {
			breakdown = matrix.Breakdown[di][dj]
		}

		modelVersion := 0
		if blob, ok, _ := c.Store.LoadDriverModel(driverID); ok {
			modelVersion = blob.Version
		}

		exp := explain.Explain(explain.Input{
			DriverID: driverID, DriverName: driver.Name, RouteID: route.ID,
			Effort: finalEffort, AvgEffort: resolved.FinalReport.AvgEffort,
			Rank: ranks[driverID], NumDrivers: numDrivers,
			Breakdown: breakdown,
			SwapApplied: swappedDrivers[driverID], LiaisonVerdict: liaisonByDriver[driverID],
			GlobalGini: resolved.FinalReport.Gini, GlobalStdDev: resolved.FinalReport.StdDev, GlobalMaxGap: resolved.FinalReport.MaxGap,
			IsEVDriver: driver.IsElectric(), EVOverhead: breakdown.EVOverhead,
			PersonalizedModelVersion: modelVersion,
			NumPackages: route.NumPackages, WeightKg: route.TotalWeightKg, NumStops: route.NumStops,
			EstimatedMinutes: route.EstimatedTimeMin,
		})

		fairnessScore := fairness.LegacyScore(finalEffort, resolved.FinalReport.AvgEffort)

		views = append(views, AssignmentView{
			DriverID: driverID, DriverExternalID: driver.ExternalID, DriverName: driver.Name,
			RouteID: route.ID, WorkloadScore: finalEffort, FairnessScore: fairnessScore,
			RouteSummary: fmt.Sprintf("%d packages, %.1f kg, %d stops", route.NumPackages, route.TotalWeightKg, route.NumStops),
			Explanation: exp,
		})
		persistRows = append(persistRows, AssignmentPersist{
			DriverID: driverID, RouteID: route.ID, WorkloadScore: finalEffort, FairnessScore: fairnessScore,
			DriverText: exp.DriverText, AdminText: exp.AdminText, Category: string(exp.Category),
		})
	}
	metrics.StageDuration.WithLabelValues(string(models.AgentExplainability)).Observe(time.Since(explainStart).Seconds())
	_ = log.Record(models.AgentExplainability, models.StepExplanationsGenerated, nil, map[string]any{
		"num_explanations": len(views),
	})

	// Step 5: persist assignments.
	if err := c.Store.PersistAssignments(runID, persistRows); err != nil {
		return Response{}, &CollaboratorError{RunID: runID, Message: err.Error()}
	}

	// Step 6: update DailyStats.
	runAssignments := make([]recovery.RunAssignment, 0, len(persistRows))
	for _, r := range persistRows {
		runAssignments = append(runAssignments, recovery.RunAssignment{DriverID: r.DriverID, Effort: r.WorkloadScore})
	}
	if err := recoveryBook.UpdateDailyStats(runID, req.Date, runAssignments); err != nil {
		return Response{}, &CollaboratorError{RunID: runID, Message: err.Error()}
	}

	// Step 7: Learning Agent episode (non-fatal).
	c.createEpisodeNonFatal(runID, len(req.Drivers), len(routes))

	return Response{
		RunID: runID,
		Date:  req.Date,
		GlobalFairness: GlobalFairness{
			AvgWorkload: resolved.FinalReport.AvgEffort,
			StdDev:      resolved.FinalReport.StdDev,
			GiniIndex:   resolved.FinalReport.Gini,
		},
		Assignments: views,
	}, nil
}

// createEpisodeNonFatal implements spec §4.9/§7's NonFatalLearningError:
// any failure here is logged and swallowed, the run still succeeds.
func (c *Controller) createEpisodeNonFatal(runID string, numDrivers, numRoutes int) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[agent:learning] run %s: episode creation panicked: %v", runID, r)
		}
	}()
	if len(c.Arms) == 0 {
		return
	}
	bandit := learning.NewBandit(c.Arms, c.Store, c.Random.Int63())
	sel, err := bandit.SelectArm(false)
	if err != nil {
		log.Printf("[agent:learning] run %s: arm selection failed: %v", runID, err)
		return
	}
	ep := learning.CreateEpisode(runID, sel, learning.ConfigSnapshot(sel.Arm), numDrivers, numRoutes, c.Random)
	if err := c.Store.CreateLearningEpisode(ep); err != nil {
		log.Printf("[agent:learning] run %s: episode not persisted: %v", runID, err)
	}
	metrics.BanditArmPulls.WithLabelValues(strconv.Itoa(sel.ArmIndex)).Inc()
	if ep.IsExperimental {
		metrics.BanditExperimentalPulls.Inc()
	}
}

func (c *Controller) buildRoutes(req Request) []models.Route {
	clusters := c.Clusterer.Cluster(req.Packages, len(req.Drivers))
	dw := workload.DefaultDifficultyWeights()
	tw := workload.DefaultTimeWeights()

	routes := make([]models.Route, 0, len(clusters))
	for _, cl := range clusters {
		ordered := c.Orderer.Order(cl.Packages, req.Warehouse.Lat, req.Warehouse.Lng)
		var totalDistance float64
		curLat, curLng := req.Warehouse.Lat, req.Warehouse.Lng
		for _, p := range ordered {
			totalDistance += cluster.HaversineDistanceKm(curLat, curLng, p.Latitude, p.Longitude)
			curLat, curLng = p.Latitude, p.Longitude
		}
		difficulty := workload.Difficulty(dw, cl.TotalWeightKg, cl.NumStops, 1.0)
		estMinutes := workload.EstimateMinutes(tw, cl.NumPackages, cl.NumStops, totalDistance)
		distanceCopy := totalDistance
		routes = append(routes, models.Route{
			ID:               int64(cl.ClusterID + 1),
			ClusterID:        int64(cl.ClusterID),
			NumPackages:      cl.NumPackages,
			TotalWeightKg:    cl.TotalWeightKg,
			NumStops:         cl.NumStops,
			DifficultyScore:  difficulty,
			EstimatedTimeMin: float64(estMinutes),
			TotalDistanceKm:  &distanceCopy,
		})
	}
	return routes
}

// assignmentEfforts extracts parallel driver-id/effort slices from a
// proposal, in assignment order.
func assignmentEfforts(p *models.AssignmentProposal) ([]int64, []float64) {
	ids := make([]int64, len(p.Assignments))
	efforts := make([]float64, len(p.Assignments))
	for i, a := range p.Assignments {
		ids[i] = a.DriverID
		efforts[i] = a.Effort
	}
	return ids, efforts
}

// alternativesFor lists every feasible route other than the driver's
// current one, with that driver's effort for each, for the Driver
// Liaison's counter-offer search.
func alternativesFor(matrix *models.EffortMatrix, driverID, currentRouteID int64) []liaison.Alternative {
	di, ok := driverIndex(matrix, driverID)
	if !ok {
		return nil
	}
	alts := make([]liaison.Alternative, 0, len(matrix.RouteIDs))
	for j, routeID := range matrix.RouteIDs {
		if routeID == currentRouteID || matrix.Infeasible(di, j) {
			continue
		}
		alts = append(alts, liaison.Alternative{RouteID: routeID, Effort: matrix.Cost[di][j]})
	}
	return alts
}

func driverIndex(matrix *models.EffortMatrix, driverID int64) (int, bool) {
	for i, id := range matrix.DriverIDs {
		if id == driverID {
			return i, true
		}
	}
	return 0, false
}

func routeIndex(matrix *models.EffortMatrix, routeID int64) (int, bool) {
	for j, id := range matrix.RouteIDs {
		if id == routeID {
			return j, true
		}
	}
	return 0, false
}

// cellIndex resolves a (driverID, routeID) pair to its position in the
// effort matrix, for looking up the original breakdown after swaps.
func cellIndex(matrix *models.EffortMatrix, driverID, routeID int64) (int, int, bool) {
	di, ok := driverIndex(matrix, driverID)
	if !ok {
		return 0, 0, false
	}
	dj, ok := routeIndex(matrix, routeID)
	if !ok {
		return 0, 0, false
	}
	return di, dj, true
}
