package learning

import (
	"math/rand"
	"time"

	"github.com/fairdispatch/allocation-core/internal/models"
)

const experimentalProbability = 0.10

// CreateEpisode builds a LearningEpisode from a bandit selection,
// matching learning_agent.py's LearningAgent.create_episode: the
// priors and samples count captured AT SELECTION TIME, and
// is_experimental decided by an independent coin flip.
func CreateEpisode(runID string, sel Selection, configSnapshot map[string]float64, numDrivers, numRoutes int, rnd *rand.Rand) models.LearningEpisode {
	return models.LearningEpisode{
		RunID:          runID,
		ConfigHash:     sel.Arm.Hash(),
		ConfigSnapshot: configSnapshot,
		ArmIndex:       sel.ArmIndex,
		AlphaPrior:     sel.AlphaPrior,
		BetaPrior:      sel.BetaPrior,
		SamplesCount:   sel.SamplesCount,
		NumDrivers:     numDrivers,
		NumRoutes:      numRoutes,
		IsExperimental: rnd.Float64() < experimentalProbability,
		CreatedAt:      time.Now(),
	}
}

// ConfigSnapshot flattens an Arm into the map shape a LearningEpisode
// stores, matching the original's full-config-dict snapshot.
func ConfigSnapshot(a Arm) map[string]float64 {
	return map[string]float64{
		"gini_threshold":              a.GiniThreshold,
		"stddev_threshold":            a.StdDevThreshold,
		"recovery_lightening_factor":  a.RecoveryLighteningFactor,
		"ev_charging_penalty_weight":  a.EVChargingPenaltyWeight,
	}
}
