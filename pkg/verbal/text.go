package verbal

import (
	"context"
	"fmt"
	"strconv"

	"github.com/boristopalov/verbalgym/pkg/environment"
	"github.com/boristopalov/verbalgym/pkg/feedback"
	"github.com/boristopalov/verbalgym/pkg/paraphrase"
)

var rewardTemplates = []string{
	"You received a reward of {reward}.",
	"Your reward is {reward}.",
	"The reward for that action was {reward}.",
}

// TextBackend adapts an environment whose states are plain strings. The first
// state becomes the instruction and each step's reward is put into words as
// reward feedback.
type TextBackend struct {
	env environment.Environment
}

// NewTextBackend wraps a text-state environment.
func NewTextBackend(env environment.Environment) *TextBackend {
	return &TextBackend{env: env}
}

func (b *TextBackend) InstructionTypes() []InstructionType {
	return []InstructionType{Basic}
}

func (b *TextBackend) FeedbackTypes() []feedback.Type {
	return []feedback.Type{feedback.None, feedback.Reward}
}

func (b *TextBackend) Reset(ctx context.Context, env *Env, seed *int64, options Options) (Envelope, Info, error) {
	state, info, err := b.env.Reset(seed, options)
	if err != nil {
		return Envelope{}, nil, err
	}
	text, ok := state.(string)
	if !ok {
		return Envelope{}, nil, fmt.Errorf("%w: text environment returned %T, want string", ErrContractViolation, state)
	}
	return Envelope{Instruction: &text}, info, nil
}

func (b *TextBackend) Step(ctx context.Context, env *Env, action Action) (Outcome, error) {
	t, err := b.env.Step(action)
	if err != nil {
		return Outcome{}, err
	}
	text, ok := t.State.(string)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: text environment returned %T, want string", ErrContractViolation, t.State)
	}

	types, err := env.FeedbackType()
	if err != nil {
		return Outcome{}, err
	}
	var fb *feedback.Feedback
	if types.Has(feedback.Reward) {
		r, err := env.Format(ctx, rewardTemplates, paraphrase.Args{
			"reward": strconv.FormatFloat(t.Reward, 'g', -1, 64),
		})
		if err != nil {
			return Outcome{}, err
		}
		fb = &feedback.Feedback{Reward: &r}
	}

	return Outcome{
		Envelope:  Envelope{Observation: text, Feedback: fb},
		Reward:    t.Reward,
		Terminal:  t.Terminal,
		Truncated: t.Truncated,
		Info:      t.Info,
	}, nil
}
