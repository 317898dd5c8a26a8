// Package config holds the FairnessConfig and effort weights plus a
// TOML-backed defaults loader, following the teacher's config-loading
// style (pkg/colonyos/config_loader.go) but using pelletier/go-toml/v2
// for the on-disk format (§10 AMBIENT STACK).
package config

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// EffortWeights are the configurable α,β,γ,δ,ε weights from spec §4.2.
type EffortWeights struct {
	Alpha float64 `toml:"alpha"` // packages
	Beta  float64 `toml:"beta"`  // weight
	Gamma float64 `toml:"gamma"` // difficulty
	Delta float64 `toml:"delta"` // time
	Eps   float64 `toml:"eps"`   // capacity penalty
}

// DefaultEffortWeights matches spec §4.2's stated defaults.
func DefaultEffortWeights() EffortWeights {
	return EffortWeights{Alpha: 1.0, Beta: 0.5, Gamma: 10.0, Delta: 0.2, Eps: 15.0}
}

// FairnessConfig is the single active-config row consumed by the
// pipeline (§4.1 step 2, §4.8, §4.9). Field defaults mirror
// original_source/app/models/fairness_config.py.
type FairnessConfig struct {
	IsActive bool `toml:"is_active"`

	WorkloadWeightPackages   float64 `toml:"workload_weight_packages"`
	WorkloadWeightWeightKg   float64 `toml:"workload_weight_weight_kg"`
	WorkloadWeightDifficulty float64 `toml:"workload_weight_difficulty"`
	WorkloadWeightTime       float64 `toml:"workload_weight_time"`

	GiniThreshold   float64 `toml:"gini_threshold"`
	StdDevThreshold float64 `toml:"stddev_threshold"`
	MaxGapThreshold float64 `toml:"max_gap_threshold"`

	RecoveryModeEnabled        bool    `toml:"recovery_mode_enabled"`
	ComplexityDebtHardThreshold float64 `toml:"complexity_debt_hard_threshold"`
	RecoveryLighteningFactor   float64 `toml:"recovery_lightening_factor"`
	RecoveryPenaltyWeight      float64 `toml:"recovery_penalty_weight"`

	EVChargingPenaltyWeight float64 `toml:"ev_charging_penalty_weight"`
	EVSafetyMarginPct       float64 `toml:"ev_safety_margin_pct"`
}

// DefaultFairnessConfig matches original_source/app/models/fairness_config.py's
// column defaults exactly, including recovery_mode_enabled defaulting
// to false.
func DefaultFairnessConfig() FairnessConfig {
	return FairnessConfig{
		IsActive:                     true,
		WorkloadWeightPackages:       1.0,
		WorkloadWeightWeightKg:       0.5,
		WorkloadWeightDifficulty:     10.0,
		WorkloadWeightTime:           0.2,
		GiniThreshold:                0.33,
		StdDevThreshold:              25.0,
		MaxGapThreshold:              25.0,
		RecoveryModeEnabled:          false,
		ComplexityDebtHardThreshold:  2.0,
		RecoveryLighteningFactor:     0.7,
		RecoveryPenaltyWeight:        3.0,
		EVChargingPenaltyWeight:      0.3,
		EVSafetyMarginPct:            10.0,
	}
}

// BanditArmGrid is the discretized config-knob grid for the H1
// fairness bandit (spec §4.9), 3x3x3x3 = 81 arms.
type BanditArmGrid struct {
	GiniThresholds              []float64 `toml:"gini_thresholds"`
	StdDevThresholds            []float64 `toml:"stddev_thresholds"`
	RecoveryLighteningFactors   []float64 `toml:"recovery_lightening_factors"`
	EVChargingPenaltyWeights    []float64 `toml:"ev_charging_penalty_weights"`
}

// DefaultBanditArmGrid matches spec §4.9's stated default knob values.
func DefaultBanditArmGrid() BanditArmGrid {
	return BanditArmGrid{
		GiniThresholds:            []float64{0.28, 0.33, 0.38},
		StdDevThresholds:          []float64{20, 25, 30},
		RecoveryLighteningFactors: []float64{0.6, 0.7, 0.8},
		EVChargingPenaltyWeights:  []float64{0.2, 0.3, 0.4},
	}
}

// Defaults bundles everything loadable from a single TOML file.
type Defaults struct {
	Effort    EffortWeights  `toml:"effort"`
	Fairness  FairnessConfig `toml:"fairness"`
	BanditArms BanditArmGrid `toml:"bandit_arms"`
}

// DefaultDefaults is what a fresh install runs with absent any config
// file on disk.
func DefaultDefaults() Defaults {
	return Defaults{
		Effort:     DefaultEffortWeights(),
		Fairness:   DefaultFairnessConfig(),
		BanditArms: DefaultBanditArmGrid(),
	}
}

// LoadDefaults reads a TOML defaults file, falling back to
// DefaultDefaults() when path is empty or the file does not exist —
// matching spec §4.1 step 2's "if absent, uses documented defaults".
func LoadDefaults(path string) (Defaults, error) {
	d := DefaultDefaults()
	if path == "" {
		return d, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return d, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := toml.Unmarshal(raw, &d); err != nil {
		return d, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return d, nil
}
