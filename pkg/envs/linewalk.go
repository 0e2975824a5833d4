package envs

import (
	"context"
	"strconv"

	"github.com/boristopalov/verbalgym/pkg/environment"
	"github.com/boristopalov/verbalgym/pkg/feedback"
	"github.com/boristopalov/verbalgym/pkg/paraphrase"
	"github.com/boristopalov/verbalgym/pkg/verbal"
)

var (
	lineWalkInstructions = []string{
		"You are in a corridor of {length} cells numbered 0 to {last}. Reach the goal cell. Action 0 moves left and action 1 moves right.",
		"Walk along a line of {length} cells (0 to {last}) until you find the goal. Use 0 to step left and 1 to step right.",
		"Find the goal somewhere in a row of {length} cells, numbered 0 to {last}. Move left with action 0 and right with action 1.",
	}
	lineWalkExamples = []string{
		"For example, moving right from cell {from} leads to cell {to}.",
		"As an example, stepping right at cell {from} takes you to cell {to}.",
	}
	lineWalkGoal = []string{
		"The goal is at cell {goal}.",
		"The goal cell is number {goal}.",
	}
	// The first entry is the canonical rendering that gets paraphrased.
	lineWalkPosition = []string{
		"You are at cell {pos}.",
		"Your current cell is {pos}.",
		"You stand on cell {pos}.",
	}

	lineWalkReward = []string{
		"You received a reward of {reward}.",
		"Your reward is {reward}.",
	}
	lineWalkHindsightCloser = []string{
		"Moving {dir} brought you closer to the goal.",
		"Going {dir} was the right call; you are nearer the goal now.",
	}
	lineWalkHindsightMissed = []string{
		"Moving {should} would have brought you closer to the goal.",
		"You should have gone {should}.",
	}
	lineWalkHindsightAway = []string{
		"Moving {dir} did not bring you closer to the goal.",
		"Going {dir} was a mistake.",
	}
	lineWalkHindsightNoMistake = []string{
		"You did not move away from the goal.",
		"Nothing about that move was wrong.",
	}
	lineWalkFuturePositive = []string{
		"Move {next} next.",
		"Your next move should be {next}.",
	}
	lineWalkFutureNegative = []string{
		"Do not move {worst} next.",
		"Avoid going {worst} on your next move.",
	}
	lineWalkArrived = []string{
		"You have reached the goal.",
		"You are on the goal cell.",
	}
	lineWalkDone = []string{
		"No further moves are needed.",
		"There is nothing left to avoid.",
	}
)

// LineWalk is the verbal backend for a one-dimensional corridor.
type LineWalk struct {
	env *environment.LineWalk
}

// NewLineWalk creates a verbal corridor.
func NewLineWalk(length, maxSteps int) (*LineWalk, error) {
	env, err := environment.NewLineWalk(length, maxSteps)
	if err != nil {
		return nil, err
	}
	return &LineWalk{env: env}, nil
}

func (w *LineWalk) InstructionTypes() []verbal.InstructionType {
	return verbal.AllInstructionTypes
}

func (w *LineWalk) FeedbackTypes() []feedback.Type {
	return feedback.All
}

func (w *LineWalk) NumActions() int {
	return 2
}

// Underlying returns the wrapped corridor.
func (w *LineWalk) Underlying() *environment.LineWalk {
	return w.env
}

func (w *LineWalk) Reset(ctx context.Context, env *verbal.Env, seed *int64, options verbal.Options) (verbal.Envelope, verbal.Info, error) {
	state, info, err := w.env.Reset(seed, options)
	if err != nil {
		return verbal.Envelope{}, nil, err
	}
	s := state.(environment.LineWalkState)

	instruction, err := w.instruction(ctx, env, s)
	if err != nil {
		return verbal.Envelope{}, nil, err
	}
	obs, err := w.observation(ctx, env, s)
	if err != nil {
		return verbal.Envelope{}, nil, err
	}
	return verbal.Envelope{Instruction: &instruction, Observation: obs}, info, nil
}

func (w *LineWalk) instruction(ctx context.Context, env *verbal.Env, s environment.LineWalkState) (string, error) {
	length := w.env.Length()
	text, err := env.Format(ctx, lineWalkInstructions, paraphrase.Args{
		"length": strconv.Itoa(length),
		"last":   strconv.Itoa(length - 1),
	})
	if err != nil {
		return "", err
	}

	var extra string
	switch env.InstructionType() {
	case verbal.Partial:
		from := env.Rand().Intn(length - 1)
		extra, err = env.Format(ctx, lineWalkExamples, paraphrase.Args{
			"from": strconv.Itoa(from),
			"to":   strconv.Itoa(from + 1),
		})
	case verbal.Complete:
		extra, err = env.Format(ctx, lineWalkGoal, paraphrase.Args{"goal": strconv.Itoa(s.Goal)})
	default:
		return text, nil
	}
	if err != nil {
		return "", err
	}
	return text + " " + extra, nil
}

// observation renders the position and paraphrases it in place.
func (w *LineWalk) observation(ctx context.Context, env *verbal.Env, s environment.LineWalkState) (string, error) {
	text, err := paraphrase.Render(lineWalkPosition[0], paraphrase.Args{"pos": strconv.Itoa(s.Position)})
	if err != nil {
		return "", err
	}
	return env.Reformat(ctx, text, lineWalkPosition, "")
}

func (w *LineWalk) Step(ctx context.Context, env *verbal.Env, action verbal.Action) (verbal.Outcome, error) {
	// BestAction is relative to the position before the move.
	best := w.env.BestAction()

	t, err := w.env.Step(action)
	if err != nil {
		return verbal.Outcome{}, err
	}
	s := t.State.(environment.LineWalkState)
	prev := t.Info["previous_position"].(int)

	types, err := env.FeedbackType()
	if err != nil {
		return verbal.Outcome{}, err
	}
	fb, err := w.feedback(ctx, env, types, s, prev, best, t.Reward)
	if err != nil {
		return verbal.Outcome{}, err
	}
	obs, err := w.observation(ctx, env, s)
	if err != nil {
		return verbal.Outcome{}, err
	}

	return verbal.Outcome{
		Envelope:  verbal.Envelope{Observation: obs, Feedback: fb},
		Reward:    t.Reward,
		Terminal:  t.Terminal,
		Truncated: t.Truncated,
		Info:      t.Info,
	}, nil
}

func (w *LineWalk) feedback(ctx context.Context, env *verbal.Env, types feedback.Set, s environment.LineWalkState, prev int, should int, reward float64) (*feedback.Feedback, error) {
	moved := direction(s.Position - prev)
	if moved == "" {
		// Held by a wall.
		moved = "right"
		if prev == 0 {
			moved = "left"
		}
	}
	closer := abs(s.Goal-s.Position) < abs(s.Goal-prev)

	next := environment.Right
	if s.Goal < s.Position {
		next = environment.Left
	}
	args := paraphrase.Args{
		"dir":    moved,
		"should": actionName(should),
		"next":   actionName(next),
		"worst":  actionName(1 - next),
		"reward": strconv.FormatFloat(reward, 'g', -1, 64),
	}

	templates := map[feedback.Type][]string{
		feedback.Reward:         lineWalkReward,
		feedback.FuturePositive: lineWalkFuturePositive,
		feedback.FutureNegative: lineWalkFutureNegative,
	}
	if closer {
		templates[feedback.HindsightPositive] = lineWalkHindsightCloser
		templates[feedback.HindsightNegative] = lineWalkHindsightNoMistake
	} else {
		templates[feedback.HindsightPositive] = lineWalkHindsightMissed
		templates[feedback.HindsightNegative] = lineWalkHindsightAway
	}
	if s.Position == s.Goal {
		templates[feedback.FuturePositive] = lineWalkArrived
		templates[feedback.FutureNegative] = lineWalkDone
	}

	return fill(ctx, env, types, templates, args)
}

func actionName(a int) string {
	if a == environment.Left {
		return "left"
	}
	return "right"
}

func direction(delta int) string {
	switch {
	case delta < 0:
		return "left"
	case delta > 0:
		return "right"
	}
	return ""
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
