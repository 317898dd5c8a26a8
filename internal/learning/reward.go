package learning

import "github.com/fairdispatch/allocation-core/internal/models"

// RewardComputer turns driver feedback bound to an episode's
// assignments into a single scalar reward, matching
// learning_agent.py's RewardComputer.compute_episode_reward.
type RewardComputer struct{}

const neutralComponent = 0.5

// ComputeEpisodeReward applies spec §4.9's weighted formula:
// 0.4*fairness + 0.3*(1-stress/10) + 0.2*completion + 0.1*(1-tiredness/5),
// clamped to [0,1]. Each component falls back to a neutral 0.5 when no
// feedback is available.
func (RewardComputer) ComputeEpisodeReward(feedback []models.DriverFeedback) float64 {
	fairness := neutralComponent
	if avg, ok := avgInt(feedbackRatings(feedback)); ok {
		fairness = (avg - 1) / 4
	}

	stress := neutralComponent
	if avg, ok := avgInt(feedbackStress(feedback)); ok {
		stress = 1 - avg/10
	}

	completion := neutralComponent
	if avg, ok := avgBool(feedbackWouldTakeAgain(feedback)); ok {
		completion = avg
	}

	tiredness := neutralComponent
	if avg, ok := avgInt(feedbackTiredness(feedback)); ok {
		tiredness = 1 - avg/5
	}

	reward := 0.4*fairness + 0.3*stress + 0.2*completion + 0.1*tiredness
	return ClampReward(reward)
}

func feedbackRatings(fb []models.DriverFeedback) []int {
	out := make([]int, 0, len(fb))
	for _, f := range fb {
		out = append(out, f.FairnessRating)
	}
	return out
}

func feedbackStress(fb []models.DriverFeedback) []int {
	out := make([]int, 0, len(fb))
	for _, f := range fb {
		out = append(out, f.StressLevel)
	}
	return out
}

func feedbackTiredness(fb []models.DriverFeedback) []int {
	out := make([]int, 0, len(fb))
	for _, f := range fb {
		out = append(out, f.TirednessLevel)
	}
	return out
}

func feedbackWouldTakeAgain(fb []models.DriverFeedback) []bool {
	out := make([]bool, 0, len(fb))
	for _, f := range fb {
		if f.WouldTakeSimilarAgain != nil {
			out = append(out, *f.WouldTakeSimilarAgain)
		}
	}
	return out
}

func avgInt(xs []int) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	sum := 0
	for _, x := range xs {
		sum += x
	}
	return float64(sum) / float64(len(xs)), true
}

func avgBool(xs []bool) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}
	count := 0
	for _, x := range xs {
		if x {
			count++
		}
	}
	return float64(count) / float64(len(xs)), true
}
