package envs

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/boristopalov/verbalgym/pkg/environment"
	"github.com/boristopalov/verbalgym/pkg/feedback"
	"github.com/boristopalov/verbalgym/pkg/paraphrase"
	"github.com/boristopalov/verbalgym/pkg/verbal"
)

var (
	banditInstructions = []string{
		"Find the arm with the highest expected reward. Your action is an arm index from 0 to {last}.",
		"There are {arms} slot machine arms, numbered 0 to {last}. Pull the arm that pays the most on average.",
		"Pick one of the arms 0 through {last} each turn; your goal is to find the arm with the best average payout.",
	}
	banditExamples = []string{
		"Here are some past pulls: {examples}.",
		"For reference, earlier pulls went like this: {examples}.",
	}
	banditMeans = []string{
		"The expected reward of each arm is: {means}.",
		"Each arm pays out on average as follows: {means}.",
	}

	banditReward = []string{
		"You received a reward of {reward}.",
		"Your reward is {reward}.",
		"Pulling that arm gave you {reward}.",
	}
	banditHindsightGood = []string{
		"Arm {arm} was a good choice; it has the highest expected reward.",
		"You did well to pull arm {arm}, the best arm.",
	}
	banditHindsightMissed = []string{
		"Arm {best} would have been a better choice than arm {arm}.",
		"You should have pulled arm {best} instead.",
	}
	banditHindsightBad = []string{
		"Arm {arm} was a poor choice; its expected reward is lower than the best arm's.",
		"Pulling arm {arm} was a mistake; other arms pay more.",
	}
	banditHindsightNoMistake = []string{
		"No other arm would have done better than arm {arm}.",
		"You did not pick a worse arm.",
	}
	banditFuturePositive = []string{
		"Try pulling arm {best} next.",
		"Your next pull should be arm {best}.",
	}
	banditFutureNegative = []string{
		"Avoid pulling arm {avoid} next.",
		"Do not pull arm {avoid} again.",
	}
)

// Bandit is the verbal backend for a multi-armed bandit.
type Bandit struct {
	env *environment.Bandit
}

// NewBandit creates a verbal bandit over the given number of arms.
func NewBandit(arms int) (*Bandit, error) {
	env, err := environment.NewBandit(arms)
	if err != nil {
		return nil, err
	}
	return &Bandit{env: env}, nil
}

func (b *Bandit) InstructionTypes() []verbal.InstructionType {
	return verbal.AllInstructionTypes
}

func (b *Bandit) FeedbackTypes() []feedback.Type {
	return feedback.All
}

func (b *Bandit) NumActions() int {
	return b.env.Arms()
}

// Underlying returns the wrapped bandit.
func (b *Bandit) Underlying() *environment.Bandit {
	return b.env
}

func (b *Bandit) Reset(ctx context.Context, env *verbal.Env, seed *int64, options verbal.Options) (verbal.Envelope, verbal.Info, error) {
	_, info, err := b.env.Reset(seed, options)
	if err != nil {
		return verbal.Envelope{}, nil, err
	}

	instruction, err := b.instruction(ctx, env)
	if err != nil {
		return verbal.Envelope{}, nil, err
	}
	return verbal.Envelope{Instruction: &instruction}, info, nil
}

func (b *Bandit) instruction(ctx context.Context, env *verbal.Env) (string, error) {
	arms := b.env.Arms()
	text, err := env.Format(ctx, banditInstructions, paraphrase.Args{
		"arms": strconv.Itoa(arms),
		"last": strconv.Itoa(arms - 1),
	})
	if err != nil {
		return "", err
	}

	switch env.InstructionType() {
	case verbal.Partial:
		// Offline data: one noiseless pull per arm for the two best and the worst arm.
		ranking := b.env.Ranking()
		means := b.env.Means()
		picks := []int{ranking[len(ranking)-1], ranking[1], ranking[0]}
		examples := make([]string, 0, len(picks))
		for _, arm := range picks {
			examples = append(examples, fmt.Sprintf("arm %d paid %.2f on average", arm, means[arm]))
		}
		extra, err := env.Format(ctx, banditExamples, paraphrase.Args{"examples": strings.Join(examples, ", ")})
		if err != nil {
			return "", err
		}
		text += " " + extra
	case verbal.Complete:
		means := b.env.Means()
		parts := make([]string, len(means))
		for i, m := range means {
			parts[i] = fmt.Sprintf("arm %d: %.2f", i, m)
		}
		extra, err := env.Format(ctx, banditMeans, paraphrase.Args{"means": strings.Join(parts, ", ")})
		if err != nil {
			return "", err
		}
		text += " " + extra
	}
	return text, nil
}

func (b *Bandit) Step(ctx context.Context, env *verbal.Env, action verbal.Action) (verbal.Outcome, error) {
	t, err := b.env.Step(action)
	if err != nil {
		return verbal.Outcome{}, err
	}
	arm := t.State.(environment.BanditState).LastArm

	types, err := env.FeedbackType()
	if err != nil {
		return verbal.Outcome{}, err
	}
	fb, err := b.feedback(ctx, env, types, arm, t.Reward)
	if err != nil {
		return verbal.Outcome{}, err
	}

	return verbal.Outcome{
		Envelope:  verbal.Envelope{Feedback: fb},
		Reward:    t.Reward,
		Terminal:  t.Terminal,
		Truncated: t.Truncated,
		Info:      t.Info,
	}, nil
}

func (b *Bandit) feedback(ctx context.Context, env *verbal.Env, types feedback.Set, arm int, reward float64) (*feedback.Feedback, error) {
	ranking := b.env.Ranking()
	best := ranking[0]
	avoid := arm
	if arm == best {
		avoid = ranking[len(ranking)-1]
	}
	args := paraphrase.Args{
		"arm":    strconv.Itoa(arm),
		"best":   strconv.Itoa(best),
		"avoid":  strconv.Itoa(avoid),
		"reward": strconv.FormatFloat(reward, 'g', -1, 64),
	}

	templates := map[feedback.Type][]string{
		feedback.Reward:         banditReward,
		feedback.FuturePositive: banditFuturePositive,
		feedback.FutureNegative: banditFutureNegative,
	}
	if arm == best {
		templates[feedback.HindsightPositive] = banditHindsightGood
		templates[feedback.HindsightNegative] = banditHindsightNoMistake
	} else {
		templates[feedback.HindsightPositive] = banditHindsightMissed
		templates[feedback.HindsightNegative] = banditHindsightBad
	}

	return fill(ctx, env, types, templates, args)
}

// fill renders one text per requested dialect. An empty or none-only set
// yields no feedback at all.
func fill(ctx context.Context, env *verbal.Env, types feedback.Set, templates map[feedback.Type][]string, args paraphrase.Args) (*feedback.Feedback, error) {
	var fb *feedback.Feedback
	for _, t := range types.Sorted() {
		if t == feedback.None {
			continue
		}
		ts, ok := templates[t]
		if !ok {
			return nil, fmt.Errorf("%w: no templates for %q", verbal.ErrUnsupportedFeedbackType, t)
		}
		text, err := env.Format(ctx, ts, args)
		if err != nil {
			return nil, err
		}
		if fb == nil {
			fb = &feedback.Feedback{}
		}
		if err := fb.Set(t, text); err != nil {
			return nil, err
		}
	}
	return fb, nil
}
