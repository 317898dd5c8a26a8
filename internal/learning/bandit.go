// Package learning implements the Learning Agent (service H, spec
// §4.9): the H1 Thompson-sampling fairness bandit and the H2
// per-driver effort regressor, plus the episode lifecycle.
//
// The Beta/Gamma sampling machinery is adapted directly from the
// teacher's pkg/learning/thompson_sampling.go, generalized from a
// small fixed enum of models.Strategy arms to the 81-arm discretized
// fairness-config grid of spec §4.9. Grounded on
// original_source/learning_agent.py's FairnessBandit for the
// selection/update/priors formulas themselves.
package learning

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/fairdispatch/allocation-core/internal/config"
)

// Arm is one discretized fairness-config point in the bandit's search
// space (spec §4.9): 81 arms from the 3x3x3x3 grid.
type Arm struct {
	GiniThreshold            float64
	StdDevThreshold          float64
	RecoveryLighteningFactor float64
	EVChargingPenaltyWeight  float64
}

// Hash returns a stable, order-insensitive hash of the arm's
// serialized config, matching learning_agent.py's hash_config (sha256
// of the sorted config items, here computed over fixed field order
// since Arm's fields are already canonical).
func (a Arm) Hash() string {
	s := fmt.Sprintf("ev_charging_penalty_weight=%.4f|gini_threshold=%.4f|recovery_lightening_factor=%.4f|stddev_threshold=%.4f",
		a.EVChargingPenaltyWeight, a.GiniThreshold, a.RecoveryLighteningFactor, a.StdDevThreshold)
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// BuildArms expands a BanditArmGrid into its 81 arms, in a
// deterministic order (gini outer, then stddev, then recovery, then ev
// — innermost varies fastest), matching itertools.product's ordering
// in learning_agent.py.
func BuildArms(grid config.BanditArmGrid) []Arm {
	var arms []Arm
	for _, g := range grid.GiniThresholds {
		for _, s := range grid.StdDevThresholds {
			for _, r := range grid.RecoveryLighteningFactors {
				for _, e := range grid.EVChargingPenaltyWeights {
					arms = append(arms, Arm{
						GiniThreshold:            g,
						StdDevThreshold:          s,
						RecoveryLighteningFactor: r,
						EVChargingPenaltyWeight:  e,
					})
				}
			}
		}
	}
	return arms
}

// EpisodeRecord is the minimal slice of a committed LearningEpisode
// the bandit's priors loader needs.
type EpisodeRecord struct {
	ArmIndex int
	Reward   *float64
}

// EpisodeLoader loads recent committed episodes for prior
// accumulation, matching learning_agent.py's load_priors querying
// "episodes from last 30 days with non-null reward".
type EpisodeLoader interface {
	RecentEpisodes(windowDays int) ([]EpisodeRecord, error)
}

// Bandit is the H1 fairness bandit: a Beta-Bernoulli Thompson sampler
// over the arm grid. Priors are recomputed from scratch on every
// selection (spec §9: "eventually-consistent, not linearizable").
type Bandit struct {
	Arms   []Arm
	loader EpisodeLoader
	random *rand.Rand
}

// NewBandit builds a Bandit over the given arm grid.
func NewBandit(arms []Arm, loader EpisodeLoader, seed int64) *Bandit {
	return &Bandit{
		Arms:   arms,
		loader: loader,
		random: rand.New(rand.NewSource(seed)),
	}
}

// priors holds the accumulated alpha/beta/sample counts for one
// selection call.
type priors struct {
	alphas  []float64
	betas   []float64
	samples []int
}

func (b *Bandit) loadPriors() (priors, error) {
	n := len(b.Arms)
	p := priors{
		alphas:  make([]float64, n),
		betas:   make([]float64, n),
		samples: make([]int, n),
	}
	for i := range p.alphas {
		p.alphas[i] = 1.0
		p.betas[i] = 1.0
	}
	if b.loader == nil {
		return p, nil
	}
	episodes, err := b.loader.RecentEpisodes(30)
	if err != nil {
		return p, err
	}
	for _, e := range episodes {
		if e.Reward == nil || e.ArmIndex < 0 || e.ArmIndex >= n {
			continue
		}
		r := *e.Reward
		p.alphas[e.ArmIndex] += r
		p.betas[e.ArmIndex] += 1 - r
		p.samples[e.ArmIndex]++
	}
	return p, nil
}

// Selection is the result of a bandit pull.
type Selection struct {
	ArmIndex     int
	Arm          Arm
	AlphaPrior   float64
	BetaPrior    float64
	SamplesCount int
}

// SelectArm draws theta[k] ~ Beta(alpha[k], beta[k]) per arm and picks
// the argmax, matching learning_agent.py's FairnessBandit.select_arm.
// In experimental mode, an exploration bonus favors under-sampled
// arms.
func (b *Bandit) SelectArm(experimental bool) (Selection, error) {
	p, err := b.loadPriors()
	if err != nil {
		return Selection{}, err
	}

	totalSamples := 0
	maxSamples := 0
	for _, s := range p.samples {
		totalSamples += s
		if s > maxSamples {
			maxSamples = s
		}
	}

	best := -1
	bestTheta := math.Inf(-1)
	for k := range b.Arms {
		theta := sampleBeta(b.random, p.alphas[k], p.betas[k])
		if experimental {
			bonus := 0.1 * math.Log(float64(totalSamples)+1) / float64(p.samples[k]+1)
			if maxSamples > 0 {
				bonus /= float64(maxSamples + 1)
			}
			theta += bonus
		}
		if theta > bestTheta {
			bestTheta = theta
			best = k
		}
	}

	return Selection{
		ArmIndex:     best,
		Arm:          b.Arms[best],
		AlphaPrior:   p.alphas[best],
		BetaPrior:    p.betas[best],
		SamplesCount: p.samples[best],
	}, nil
}

// ArmStat is one arm's posterior summary, used by the §12 admin
// status aggregation.
type ArmStat struct {
	Arm          Arm
	Alpha, Beta  float64
	Samples      int
	PosteriorMean float64
}

// TopConfigs returns the arms sorted by posterior mean descending,
// matching learning_agent.py's get_top_configs.
func (b *Bandit) TopConfigs(n int) ([]ArmStat, error) {
	p, err := b.loadPriors()
	if err != nil {
		return nil, err
	}
	stats := make([]ArmStat, len(b.Arms))
	for i, a := range b.Arms {
		stats[i] = ArmStat{
			Arm:           a,
			Alpha:         p.alphas[i],
			Beta:          p.betas[i],
			Samples:       p.samples[i],
			PosteriorMean: p.alphas[i] / (p.alphas[i] + p.betas[i]),
		}
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].PosteriorMean > stats[j].PosteriorMean })
	if n > 0 && n < len(stats) {
		stats = stats[:n]
	}
	return stats, nil
}

// ClampReward clamps a reward to [0,1] before a bandit update, per
// spec §4.9.
func ClampReward(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// --- Beta/Gamma/Normal sampling, adapted from the teacher's
// pkg/learning/thompson_sampling.go sampleBeta/sampleGamma/sampleNormal. ---

// sampleBeta draws from Beta(alpha, beta) via two independent Gamma
// draws and their ratio.
func sampleBeta(r *rand.Rand, alpha, beta float64) float64 {
	if alpha <= 0 {
		alpha = 1e-6
	}
	if beta <= 0 {
		beta = 1e-6
	}
	x := sampleGamma(r, alpha)
	y := sampleGamma(r, beta)
	if x+y == 0 {
		return 0.5
	}
	return x / (x + y)
}

// sampleGamma draws from Gamma(shape, 1) using the Marsaglia-Tsang
// method for shape>=1, with a power-law transform for shape<1.
func sampleGamma(r *rand.Rand, shape float64) float64 {
	if shape < 1 {
		u := r.Float64()
		return sampleGamma(r, shape+1) * math.Pow(u, 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		x := sampleNormal(r)
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := r.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// sampleNormal draws a standard normal via Box-Muller.
func sampleNormal(r *rand.Rand) float64 {
	u1 := r.Float64()
	u2 := r.Float64()
	if u1 <= 1e-12 {
		u1 = 1e-12
	}
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}
