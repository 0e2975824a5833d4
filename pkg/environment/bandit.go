package environment

import (
	"fmt"
	"sort"
)

// BanditState is the observable state of a bandit, which is just the last pull.
type BanditState struct {
	LastArm int // -1 before the first pull
}

// Bandit is a k-armed Bernoulli bandit. Arm means are drawn uniformly from
// [0, 1) on every Reset.
type Bandit struct {
	*BaseEnvironment
	arms  int
	means []float64
}

// NewBandit creates a bandit with the given number of arms.
func NewBandit(arms int) (*Bandit, error) {
	if arms < 2 {
		return nil, fmt.Errorf("bandit needs at least 2 arms, got %d", arms)
	}
	return &Bandit{
		BaseEnvironment: NewBaseEnvironment(),
		arms:            arms,
		means:           make([]float64, arms),
	}, nil
}

// Reset draws fresh arm means. options["means"] ([]float64) fixes them instead.
func (b *Bandit) Reset(seed *int64, options map[string]any) (any, map[string]any, error) {
	b.begin(seed)
	if fixed, ok := options["means"].([]float64); ok {
		if len(fixed) != b.arms {
			return nil, nil, fmt.Errorf("got %d means for %d arms", len(fixed), b.arms)
		}
		copy(b.means, fixed)
	} else {
		for i := range b.means {
			b.means[i] = b.rng.Float64()
		}
	}
	return BanditState{LastArm: -1}, map[string]any{"arms": b.arms}, nil
}

// Step pulls an arm and pays 1 with probability equal to its mean.
func (b *Bandit) Step(action any) (Transition, error) {
	arm, err := discreteAction(action, b.arms)
	if err != nil {
		return Transition{}, err
	}
	if err := b.advance(); err != nil {
		return Transition{}, err
	}

	var reward float64
	if b.rng.Float64() < b.means[arm] {
		reward = 1
	}
	return Transition{
		State:  BanditState{LastArm: arm},
		Reward: reward,
		Info:   map[string]any{"expected_reward": b.means[arm]},
	}, nil
}

// Arms returns the number of arms.
func (b *Bandit) Arms() int {
	return b.arms
}

// Means returns a copy of the current arm means.
func (b *Bandit) Means() []float64 {
	out := make([]float64, len(b.means))
	copy(out, b.means)
	return out
}

// BestArm returns the arm with the highest mean.
func (b *Bandit) BestArm() int {
	return b.Ranking()[0]
}

// Ranking returns arms ordered from best to worst mean.
func (b *Bandit) Ranking() []int {
	order := make([]int, b.arms)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return b.means[order[i]] > b.means[order[j]]
	})
	return order
}
