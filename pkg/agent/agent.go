package agent

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/boristopalov/verbalgym/pkg/verbal"
)

var ErrInvalidAgent = errors.New("invalid agent configuration")

// Agent acts in a verbal environment. It only ever sees Observations.
type Agent interface {
	// Act returns the next action given the latest observation.
	Act(ctx context.Context, obs verbal.Observation) (verbal.Action, error)
	// Reset is called before every episode.
	Reset(ctx context.Context) error
	// Name identifies the agent kind in logs and metrics.
	Name() string
}

type AgentParams struct {
	Name    string
	AgentID string
	Rand    *rand.Rand
}

type AgentOption func(*AgentParams)

func WithName(name string) AgentOption {
	return func(p *AgentParams) {
		p.Name = name
	}
}

func WithAgentID(id string) AgentOption {
	return func(p *AgentParams) {
		p.AgentID = id
	}
}

// WithSeed makes the agent's choices reproducible.
func WithSeed(seed int64) AgentOption {
	return func(p *AgentParams) {
		p.Rand = rand.New(rand.NewSource(seed))
	}
}

func defaultAgentParams(name string) *AgentParams {
	return &AgentParams{
		Name:    name,
		AgentID: "agent-" + uuid.New().String(),
		Rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Random picks uniformly among n discrete actions.
type Random struct {
	id   string
	name string
	n    int
	rng  *rand.Rand
}

// NewRandom creates a random agent over the actions [0, n).
func NewRandom(n int, opts ...AgentOption) (*Random, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: random agent needs at least one action, got %d", ErrInvalidAgent, n)
	}
	params := defaultAgentParams("random")
	for _, opt := range opts {
		opt(params)
	}
	return &Random{
		id:   params.AgentID,
		name: params.Name,
		n:    n,
		rng:  params.Rand,
	}, nil
}

func (a *Random) Act(ctx context.Context, _ verbal.Observation) (verbal.Action, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.rng.Intn(a.n), nil
}

func (a *Random) Reset(context.Context) error {
	return nil
}

func (a *Random) Name() string {
	return a.name
}

func (a *Random) GetID() string {
	return a.id
}

// Constant always plays the same action.
type Constant struct {
	id     string
	name   string
	action verbal.Action
}

func NewConstant(action verbal.Action, opts ...AgentOption) *Constant {
	params := defaultAgentParams("constant")
	for _, opt := range opts {
		opt(params)
	}
	return &Constant{id: params.AgentID, name: params.Name, action: action}
}

func (a *Constant) Act(ctx context.Context, _ verbal.Observation) (verbal.Action, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return a.action, nil
}

func (a *Constant) Reset(context.Context) error {
	return nil
}

func (a *Constant) Name() string {
	return a.name
}

func (a *Constant) GetID() string {
	return a.id
}

// ForEnv builds an agent by kind for env. Only "random" and "constant" exist;
// "random" needs a discrete action space.
func ForEnv(kind string, env *verbal.Env, options map[string]any, opts ...AgentOption) (Agent, error) {
	switch kind {
	case "", "random":
		n, ok := env.NumActions()
		if !ok {
			return nil, fmt.Errorf("%w: %s has no discrete action space", ErrInvalidAgent, env.Name())
		}
		return NewRandom(n, opts...)
	case "constant":
		action, ok := options["action"]
		if !ok {
			return nil, fmt.Errorf("%w: constant agent needs an \"action\" option", ErrInvalidAgent)
		}
		// YAML and JSON decode numbers differently.
		switch v := action.(type) {
		case float64:
			if v == float64(int(v)) {
				action = int(v)
			}
		case int64:
			action = int(v)
		}
		return NewConstant(action, opts...), nil
	}
	return nil, fmt.Errorf("%w: unknown agent kind %q", ErrInvalidAgent, kind)
}
