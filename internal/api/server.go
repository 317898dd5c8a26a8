// Package api implements the gin HTTP surface (spec §6.2), replacing
// the teacher's internal/api/server.go simulation CRUD surface with
// the allocation-core run/timeline/event-stream endpoints. Grounded on
// that file's Server{router,...}/NewServer/setupRoutes/Start shape and
// its CORS middleware setup.
package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fairdispatch/allocation-core/internal/eventbus"
	"github.com/fairdispatch/allocation-core/internal/models"
	"github.com/fairdispatch/allocation-core/internal/runctl"
)

// Controller is the subset of *runctl.Controller the HTTP surface
// drives.
type Controller interface {
	Run(req runctl.Request) (runctl.Response, error)
}

// TimelineStore is the read-side collaborator backing the timeline
// endpoint (spec §6.2).
type TimelineStore interface {
	GetRun(runID string) (RunInfo, error)
	DecisionLogEntries(runID string) ([]models.DecisionLogEntry, error)
}

// RunInfo mirrors internal/store.RunInfo; declared locally so api
// depends only on the narrow shape it needs, not on internal/store.
type RunInfo struct {
	ID       string
	Date     string
	Status   models.RunStatus
	ErrorMsg string
}

// Server wraps a gin engine around a Controller, a read-side Store,
// and the Event Bus, matching the teacher's Server{router, repo,
// port} pattern.
type Server struct {
	router *gin.Engine
	ctrl   Controller
	store  TimelineStore
	bus    *eventbus.Bus
	port   string
}

// NewServer builds the gin engine and registers every route.
func NewServer(ctrl Controller, store TimelineStore, bus *eventbus.Bus, port string) *Server {
	router := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsCfg))

	s := &Server{router: router, ctrl: ctrl, store: store, bus: bus, port: port}
	s.setupRoutes()
	return s
}

// Router exposes the underlying gin engine, e.g. for httptest.
func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) setupRoutes() {
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api/v1")
	api.GET("/health", s.healthCheck)
	api.POST("/runs", s.createRun)
	api.GET("/runs/:id/timeline", s.getTimeline)
	api.GET("/runs/:id/events", s.streamEvents)
}

// Start runs the HTTP server, matching the teacher's Server.Start.
func (s *Server) Start() error {
	return s.router.Run(":" + s.port)
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now()})
}

// runRequestDTO is the run(request) payload's wire shape (spec
// §6.2), validated via go-playground/validator/v10 through gin's
// binding integration.
type runRequestDTO struct {
	Date      string        `json:"date" binding:"required"`
	Warehouse coordinateDTO `json:"warehouse" binding:"required"`
	Drivers   []driverDTO   `json:"drivers" binding:"required,min=1,dive"`
	Packages  []packageDTO  `json:"packages" binding:"required,min=1,dive"`
}

type coordinateDTO struct {
	Lat float64 `json:"lat" binding:"required"`
	Lng float64 `json:"lng" binding:"required"`
}

type driverDTO struct {
	ExternalID          string   `json:"external_id" binding:"required"`
	Name                string   `json:"name" binding:"required"`
	VehicleCapacityKg   float64  `json:"vehicle_capacity_kg" binding:"gte=0"`
	VehicleKind         string   `json:"vehicle_kind" binding:"required,oneof=combustion electric bicycle"`
	BatteryRangeKm      *float64 `json:"battery_range_km"`
	ChargingTimeMinutes *float64 `json:"charging_time_minutes"`
	PreferredLanguage   string   `json:"preferred_language" binding:"required,bcp47_language_tag"`
}

type packageDTO struct {
	ID        int64   `json:"id"`
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
	WeightKg  float64 `json:"weight_kg" binding:"gte=0"`
	Address   string  `json:"address"`
}

func (s *Server) createRun(c *gin.Context) {
	var req runRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": verrs.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, want YYYY-MM-DD"})
		return
	}

	resp, err := s.ctrl.Run(toRunctlRequest(req, date))
	if err != nil {
		switch err.(type) {
		case *runctl.ValidationError:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case *runctl.CollaboratorError:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		case *runctl.InfeasibleAssignmentError:
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, toRunResponseDTO(resp))
}

func toRunctlRequest(req runRequestDTO, date time.Time) runctl.Request {
	drivers := make([]models.Driver, len(req.Drivers))
	for i, d := range req.Drivers {
		drivers[i] = models.Driver{
			ExternalID: d.ExternalID, Name: d.Name,
			VehicleCapacityKg: d.VehicleCapacityKg, VehicleKind: models.VehicleKind(d.VehicleKind),
			BatteryRangeKm: d.BatteryRangeKm, ChargingTimeMinutes: d.ChargingTimeMinutes,
			PreferredLanguage: d.PreferredLanguage,
		}
	}
	return runctl.Request{
		Date:      date,
		Warehouse: runctl.Coordinate{Lat: req.Warehouse.Lat, Lng: req.Warehouse.Lng},
		Drivers:   drivers,
		Packages:  toClusterPackages(req.Packages),
	}
}

func (s *Server) getTimeline(c *gin.Context) {
	runID := c.Param("id")
	info, err := s.store.GetRun(runID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	entries, err := s.store.DecisionLogEntries(runID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, toTimelineDTO(info, entries))
}

// streamEvents serves the Event Bus's live per-run progress feed over
// SSE via gin's built-in gin-contrib/sse integration (c.SSEvent/c.Stream).
func (s *Server) streamEvents(c *gin.Context) {
	runID := c.Param("id")
	if s.bus == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event bus not configured"})
		return
	}
	events, unsubscribe := s.bus.Subscribe()
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w http.ResponseWriter) bool {
		select {
		case e, ok := <-events:
			if !ok {
				return false
			}
			if e.RunID != runID {
				return true
			}
			c.SSEvent(e.State, eventPayloadDTO(e))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
