// Command dailylearn runs the spec §12 daily batch retraining job: for
// every driver with enough fresh DailyStats history, it refits the H2
// per-driver effort regressor and persists the new model version.
// Grounded on cmd/analytics-server/main.go's flag/db-open shape; run on
// a cron/scheduler outside the process, matching the original's
// separate nightly batch entry point rather than a long-lived service.
package main

import (
	"flag"
	"log"
	"strconv"

	"github.com/fairdispatch/allocation-core/internal/learning"
	"github.com/fairdispatch/allocation-core/internal/metrics"
	"github.com/fairdispatch/allocation-core/internal/store"
)

const minRetrainSamples = 10

func main() {
	var dbPath = flag.String("db", "allocation.db", "Path to SQLite database file")
	flag.Parse()

	log.Printf("Connecting to database at %s", *dbPath)
	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}

	driverIDs, err := st.DriversDueForRetrain(minRetrainSamples)
	if err != nil {
		log.Fatalf("Failed to list drivers due for retrain: %v", err)
	}
	log.Printf("%d driver(s) due for retraining", len(driverIDs))

	trainer := learning.NewTrainer()
	retrained, skipped := 0, 0

	for _, driverID := range driverIDs {
		samples, err := st.TrainingSamplesForDriver(driverID)
		if err != nil {
			log.Printf("driver %d: failed to assemble training samples: %v", driverID, err)
			continue
		}

		previousVersion := 0
		if blob, ok, err := st.LoadDriverModel(driverID); err == nil && ok {
			previousVersion = blob.Version
		}

		trained, ok := trainer.Train(samples, previousVersion)
		if !ok {
			skipped++
			continue
		}

		if err := st.SaveDriverModel(driverID, trained); err != nil {
			log.Printf("driver %d: failed to save model v%d: %v", driverID, trained.Version, err)
			continue
		}

		metrics.RegressorMSE.WithLabelValues(strconv.FormatInt(driverID, 10)).Set(trained.MSE)
		log.Printf("driver %d: trained model v%d (MSE=%.4f, R2=%.4f) from %d samples",
			driverID, trained.Version, trained.MSE, trained.R2, len(samples))
		retrained++
	}

	log.Printf("Retraining complete: %d retrained, %d skipped (insufficient samples)", retrained, skipped)
}
