// Command server runs the allocation-core HTTP API: POST /api/v1/runs
// triggers the full Run Controller pipeline (spec §4.1), with timeline
// and event-stream reads backed by the same SQLite-backed Store.
// Grounded on cmd/analytics-server/main.go's flag/db-open/server.Start
// shape.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fairdispatch/allocation-core/internal/api"
	"github.com/fairdispatch/allocation-core/internal/config"
	"github.com/fairdispatch/allocation-core/internal/eventbus"
	"github.com/fairdispatch/allocation-core/internal/learning"
	"github.com/fairdispatch/allocation-core/internal/runctl"
	"github.com/fairdispatch/allocation-core/internal/store"
)

func main() {
	var (
		dbPath     = flag.String("db", "allocation.db", "Path to SQLite database file")
		port       = flag.String("port", "8080", "Port to run API server on")
		configPath = flag.String("config", "", "Path to a TOML defaults file; the server applies only its bandit arm grid")
	)
	flag.Parse()

	dbDir := filepath.Dir(*dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	log.Printf("Connecting to database at %s", *dbPath)
	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}

	defaults, err := config.LoadDefaults(*configPath)
	if err != nil {
		log.Fatalf("Failed to load defaults: %v", err)
	}

	arms := learning.BuildArms(defaults.BanditArms)
	log.Printf("Bandit arm space built: %d arms", len(arms))

	bus := eventbus.New()
	ctrl := runctl.New(st, bus, arms, time.Now().UnixNano())

	log.Printf("Starting allocation-core API server on port %s", *port)
	server := api.NewServer(ctrl, timelineStore{st}, bus, *port)

	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// timelineStore adapts *store.Store to api.TimelineStore, whose GetRun
// returns api's own RunInfo type.
type timelineStore struct{ *store.Store }

func (t timelineStore) GetRun(runID string) (api.RunInfo, error) {
	info, err := t.Store.GetRun(runID)
	if err != nil {
		return api.RunInfo{}, err
	}
	return api.RunInfo(info), nil
}
