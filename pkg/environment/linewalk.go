package environment

import "fmt"

const (
	Left  = 0
	Right = 1
)

// LineWalkState is the walker's position on the line.
type LineWalkState struct {
	Position int
	Goal     int
}

// LineWalk is a corridor of cells [0, length). The walker moves one cell
// left or right per step and is paid 1 on reaching the goal, which ends the
// episode. Episodes are truncated after maxSteps.
type LineWalk struct {
	*BaseEnvironment
	length   int
	maxSteps int
	pos      int
	goal     int
}

// NewLineWalk creates a corridor of the given length.
func NewLineWalk(length, maxSteps int) (*LineWalk, error) {
	if length < 2 {
		return nil, fmt.Errorf("line walk needs at least 2 cells, got %d", length)
	}
	if maxSteps < 1 {
		return nil, fmt.Errorf("max steps must be positive, got %d", maxSteps)
	}
	return &LineWalk{
		BaseEnvironment: NewBaseEnvironment(),
		length:          length,
		maxSteps:        maxSteps,
	}, nil
}

// Reset places walker and goal on distinct random cells. options["start"]
// and options["goal"] (int) fix either or both; a cell left random is drawn
// from the cells the other one does not occupy.
func (w *LineWalk) Reset(seed *int64, options map[string]any) (any, map[string]any, error) {
	w.begin(seed)
	start, hasStart := options["start"].(int)
	goal, hasGoal := options["goal"].(int)
	switch {
	case hasStart && hasGoal:
		w.pos, w.goal = start, goal
	case hasStart:
		w.pos, w.goal = start, w.otherCell(start)
	case hasGoal:
		w.pos, w.goal = w.otherCell(goal), goal
	default:
		w.pos = w.rng.Intn(w.length)
		w.goal = w.otherCell(w.pos)
	}
	if w.pos < 0 || w.pos >= w.length || w.goal < 0 || w.goal >= w.length || w.pos == w.goal {
		return nil, nil, fmt.Errorf("invalid start %d / goal %d for length %d", w.pos, w.goal, w.length)
	}
	return w.current(), map[string]any{"length": w.length}, nil
}

// Step moves the walker. Moving into a wall leaves it in place.
func (w *LineWalk) Step(action any) (Transition, error) {
	a, err := discreteAction(action, 2)
	if err != nil {
		return Transition{}, err
	}
	if err := w.advance(); err != nil {
		return Transition{}, err
	}

	prev := w.pos
	switch a {
	case Left:
		if w.pos > 0 {
			w.pos--
		}
	case Right:
		if w.pos < w.length-1 {
			w.pos++
		}
	}

	t := Transition{
		State: w.current(),
		Info:  map[string]any{"previous_position": prev},
	}
	if w.pos == w.goal {
		t.Reward = 1
		t.Terminal = true
		w.finish()
	} else if int(w.state.Step) >= w.maxSteps {
		t.Truncated = true
		w.finish()
	}
	return t, nil
}

// Length returns the number of cells.
func (w *LineWalk) Length() int {
	return w.length
}

// otherCell draws a cell other than c.
func (w *LineWalk) otherCell(c int) int {
	n := w.rng.Intn(w.length - 1)
	if n >= c {
		n++
	}
	return n
}

// BestAction returns the move that brings the walker closer to the goal.
func (w *LineWalk) BestAction() int {
	if w.goal < w.pos {
		return Left
	}
	return Right
}

func (w *LineWalk) current() LineWalkState {
	return LineWalkState{Position: w.pos, Goal: w.goal}
}
