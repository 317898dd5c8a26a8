// Package explain implements the Explainer (agent F, spec §4.7):
// deterministic, template-based classification and rendering.
// Grounded on
// original_source/app/services/explainability.py.
package explain

import (
	"fmt"
	"math"

	"github.com/fairdispatch/allocation-core/internal/models"
)

// Input is everything the Explainer needs for one assignment.
type Input struct {
	DriverID   int64
	DriverName string
	RouteID    int64

	Effort    float64
	AvgEffort float64
	Rank      int
	NumDrivers int

	Breakdown models.EffortCell // physical/complexity/time composition

	IsRecoveryDay           bool
	SwapApplied             bool
	LiaisonVerdict          models.LiaisonVerdict
	HistoryHardDaysLast7    int
	RecoveryHardDaysCount   int // used in the "recovery day with K hard days" note

	PersonalizedModelVersion int // 0 = none
	PersonalizedModelMSE     float64

	GlobalGini, GlobalStdDev, GlobalMaxGap float64

	ManualOverride  bool
	IsEVDriver      bool
	EVOverhead      float64
	ComplexityDebt  float64

	NumPackages int
	WeightKg    float64
	NumStops    int
	EstimatedMinutes float64
}

const (
	bandThresholdPct = 10.0
	learningMSECutoff = 15.0
	complexityDebtNoteThreshold = 2.0
)

type band int

const (
	bandNear band = iota
	bandAbove
	bandBelow
)

// Classify applies the priority-ordered category rules from spec
// §4.7, matching explainability.py's _classify_category.
func Classify(in Input) models.ExplanationCategory {
	avg := in.AvgEffort
	if avg == 0 {
		avg = 1.0
	}
	deltaPct := (in.Effort - in.AvgEffort) / avg * 100

	var b band
	switch {
	case deltaPct > bandThresholdPct:
		b = bandAbove
	case deltaPct < -bandThresholdPct:
		b = bandBelow
	default:
		b = bandNear
	}

	switch {
	case in.PersonalizedModelVersion > 0 && in.PersonalizedModelMSE < learningMSECutoff:
		return models.CategoryLearningOptimized
	case in.IsRecoveryDay:
		return models.CategoryRecovery
	case b == bandAbove && in.SwapApplied:
		return models.CategoryHeavyWithSwap
	case b == bandAbove && (in.LiaisonVerdict == models.LiaisonCounter || in.LiaisonVerdict == models.LiaisonForceAccept):
		return models.CategoryHeavyNoSwap
	case b == bandAbove:
		return models.CategoryHeavy
	case b == bandBelow && in.HistoryHardDaysLast7 >= 2:
		return models.CategoryLightRecovery
	case b == bandBelow:
		return models.CategoryLight
	default:
		return models.CategoryNearAvg
	}
}

// Explain renders the driver-facing and admin-facing texts for one
// assignment.
func Explain(in Input) models.ExplanationPair {
	category := Classify(in)
	return models.ExplanationPair{
		DriverText: buildDriverText(in, category),
		AdminText:  buildAdminText(in, category),
		Category:   category,
	}
}

func formatETA(minutes float64) string {
	total := int(math.Round(minutes))
	if total < 60 {
		return fmt.Sprintf("%d minutes", total)
	}
	h := total / 60
	m := total % 60
	if m == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// buildDriverText renders a short, metrics-free (apart from
// package/weight/stops/time) 1-3 sentence message, matching
// explainability.py's _build_driver_text category templates.
func buildDriverText(in Input, category models.ExplanationCategory) string {
	eta := formatETA(in.EstimatedMinutes)
	base := fmt.Sprintf("You have %d packages (%.1f kg) across %d stops, estimated %s.",
		in.NumPackages, in.WeightKg, in.NumStops, eta)

	switch category {
	case models.CategoryNearAvg:
		return base + " This is a typical route for today."
	case models.CategoryHeavyWithSwap:
		return base + " This looked heavier at first, so we swapped you onto a better-balanced route."
	case models.CategoryHeavyNoSwap:
		return base + " This is a heavier route today; we looked for a lighter swap but none was available."
	case models.CategoryHeavy:
		return base + " This is a heavier route than usual today."
	case models.CategoryRecovery, models.CategoryLightRecovery:
		return base + " We've kept this route lighter since you've had some demanding days recently."
	case models.CategoryLight:
		return base + " This is a lighter route today."
	case models.CategoryLearningOptimized:
		return base + " This route was matched to your typical pace."
	default:
		return base
	}
}

// buildAdminText renders the longer operator-facing text, matching
// explainability.py's _build_admin_text.
func buildAdminText(in Input, category models.ExplanationCategory) string {
	avg := in.AvgEffort
	if avg == 0 {
		avg = 1.0
	}
	deltaPct := (in.Effort - avg) / avg * 100

	text := fmt.Sprintf("effort=%.2f (%+.1f%% vs avg), rank %d/%d.",
		in.Effort, deltaPct, in.Rank, in.NumDrivers)
	text += fmt.Sprintf(" Route: %d packages, %.1f kg, %d stops, %s.",
		in.NumPackages, in.WeightKg, in.NumStops, formatETA(in.EstimatedMinutes))

	totalBreakdown := in.Breakdown.Physical + in.Breakdown.Complexity + in.Breakdown.Time
	if totalBreakdown > 0.01 {
		denom := math.Max(totalBreakdown, 0.001)
		text += fmt.Sprintf(" Composition: physical %.0f%%, complexity %.0f%%, time %.0f%%.",
			in.Breakdown.Physical/denom*100,
			in.Breakdown.Complexity/denom*100,
			in.Breakdown.Time/denom*100)
	}

	text += fmt.Sprintf(" Global fairness: gini=%.4f, std=%.2f, max_gap=%.2f.",
		in.GlobalGini, in.GlobalStdDev, in.GlobalMaxGap)

	switch category {
	case models.CategoryRecovery, models.CategoryLightRecovery:
		text += fmt.Sprintf(" recovery day with %d hard days.", in.RecoveryHardDaysCount)
	case models.CategoryHeavyWithSwap:
		text += " swap applied."
	case models.CategoryHeavyNoSwap:
		text += " counter without swap — flagged."
	case models.CategoryHeavy:
		if in.LiaisonVerdict == models.LiaisonAccept {
			text += " accepted as assigned."
		}
	}

	if in.ManualOverride {
		text += " manual admin override."
	}
	if in.IsEVDriver && in.EVOverhead > 0 {
		text += fmt.Sprintf(" EV overhead %.1f points.", in.EVOverhead)
	}
	if in.ComplexityDebt >= complexityDebtNoteThreshold {
		text += fmt.Sprintf(" complexity debt %.1f (threshold %.1f).", in.ComplexityDebt, complexityDebtNoteThreshold)
	}
	if category == models.CategoryLearningOptimized || in.PersonalizedModelVersion > 0 {
		if in.PersonalizedModelVersion > 0 {
			text += fmt.Sprintf(" personalized model v%d (MSE %.2f).", in.PersonalizedModelVersion, in.PersonalizedModelMSE)
		} else {
			text += " personalized model N/A."
		}
	}

	return text
}
