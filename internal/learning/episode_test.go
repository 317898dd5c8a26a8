package learning

import (
	"math/rand"
	"testing"
)

func TestCreateEpisodeCapturesSelectionAtPullTime(t *testing.T) {
	sel := Selection{
		ArmIndex: 3, Arm: Arm{GiniThreshold: 0.3}, AlphaPrior: 4.0, BetaPrior: 2.0, SamplesCount: 5,
	}
	ep := CreateEpisode("run-1", sel, ConfigSnapshot(sel.Arm), 10, 8, rand.New(rand.NewSource(1)))

	if ep.ArmIndex != 3 || ep.AlphaPrior != 4.0 || ep.BetaPrior != 2.0 || ep.SamplesCount != 5 {
		t.Fatalf("expected the episode to capture the selection's priors verbatim, got %+v", ep)
	}
	if ep.ConfigHash != sel.Arm.Hash() {
		t.Fatal("expected the episode's config hash to match the selected arm's hash")
	}
	if ep.NumDrivers != 10 || ep.NumRoutes != 8 {
		t.Fatalf("expected driver/route counts carried through, got %+v", ep)
	}
}

func TestConfigSnapshotFlattensAllFourAxes(t *testing.T) {
	a := Arm{GiniThreshold: 0.3, StdDevThreshold: 25, RecoveryLighteningFactor: 0.7, EVChargingPenaltyWeight: 0.3}
	snap := ConfigSnapshot(a)
	want := map[string]float64{
		"gini_threshold": 0.3, "stddev_threshold": 25, "recovery_lightening_factor": 0.7, "ev_charging_penalty_weight": 0.3,
	}
	for k, v := range want {
		if snap[k] != v {
			t.Fatalf("expected snapshot[%q]=%v, got %v", k, v, snap[k])
		}
	}
}
