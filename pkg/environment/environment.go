package environment

import (
	"fmt"
	"math/rand"
	"time"
)

// Status of an environment's current episode.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
)

// State is the bookkeeping every environment keeps about its episode.
type State struct {
	Status    Status
	Episode   uint32
	Step      uint32
	Timestamp time.Time
}

// Transition is the result of one environment step.
type Transition struct {
	State     any
	Reward    float64
	Terminal  bool
	Truncated bool
	Info      map[string]any
}

// Environment is a reward-based sequential decision problem.
type Environment interface {
	// Reset starts a new episode and returns the initial state.
	Reset(seed *int64, options map[string]any) (any, map[string]any, error)
	// Step advances the environment by one action.
	Step(action any) (Transition, error)
	// GetState returns episode bookkeeping.
	GetState() State
}

// BaseEnvironment holds the episode counters and random source shared by
// the concrete environments.
type BaseEnvironment struct {
	state State
	rng   *rand.Rand
}

func NewBaseEnvironment() *BaseEnvironment {
	return &BaseEnvironment{
		state: State{
			Status:    StatusIdle,
			Timestamp: time.Now(),
		},
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (e *BaseEnvironment) GetState() State {
	return e.state
}

// begin reseeds when asked and opens a new episode.
func (e *BaseEnvironment) begin(seed *int64) {
	if seed != nil {
		e.rng.Seed(*seed)
	}
	e.state.Status = StatusRunning
	e.state.Episode++
	e.state.Step = 0
	e.state.Timestamp = time.Now()
}

// advance counts a step; it fails if no episode is running.
func (e *BaseEnvironment) advance() error {
	if e.state.Status != StatusRunning {
		return fmt.Errorf("environment is %s, call Reset first", e.state.Status)
	}
	e.state.Step++
	e.state.Timestamp = time.Now()
	return nil
}

func (e *BaseEnvironment) finish() {
	e.state.Status = StatusDone
}

// discreteAction converts an action into an index in [0, n).
func discreteAction(action any, n int) (int, error) {
	var a int
	switch v := action.(type) {
	case int:
		a = v
	case int64:
		a = int(v)
	case int32:
		a = int(v)
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("action %v is not an integer", v)
		}
		a = int(v)
	default:
		return 0, fmt.Errorf("action of type %T is not a discrete action", action)
	}
	if a < 0 || a >= n {
		return 0, fmt.Errorf("action %d out of range [0, %d)", a, n)
	}
	return a, nil
}
