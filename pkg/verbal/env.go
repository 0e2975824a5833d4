// Package verbal turns a reward-based environment into one that talks to its
// agent only through an instruction, an observation and natural-language
// feedback.
//
// A Backend produces envelopes for one environment family; Env wraps it,
// enforces the observation contract and verbalizes the feedback record:
//
//	env, err := verbal.New(backend, verbal.Basic, feedback.Mixture)
//	obs, _, err := env.Reset(ctx, nil, nil)   // obs.Feedback == nil
//	res, err := env.Step(ctx, 2)              // res.Observation.Feedback is text or nil
//
// Env is not safe for concurrent use; run one Env per worker.
package verbal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"time"

	"github.com/boristopalov/verbalgym/pkg/feedback"
	"github.com/boristopalov/verbalgym/pkg/observability"
	"github.com/boristopalov/verbalgym/pkg/paraphrase"
)

type state int

const (
	stateNew state = iota
	stateRunning
	stateDone
)

// Env is the verbal environment wrapper around one Backend.
type Env struct {
	name            string
	backend         Backend
	instructionType InstructionType
	declared        []feedback.Type
	method          paraphrase.Method
	rng             *rand.Rand
	logger          *slog.Logger
	state           state
}

// Params holds the optional settings of an Env.
type Params struct {
	Name             string
	Rand             *rand.Rand
	Logger           *slog.Logger
	ParaphraseMethod paraphrase.Method
	FeedbackTypes    []feedback.Type
}

// Option configures an Env.
type Option func(*Params)

// WithName sets the name used in logs and metrics.
func WithName(name string) Option {
	return func(p *Params) {
		p.Name = name
	}
}

// WithRand sets the random source used for mixture resolution and random
// paraphrase selection.
func WithRand(r *rand.Rand) Option {
	return func(p *Params) {
		p.Rand = r
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Params) {
		p.Logger = l
	}
}

// WithParaphraseMethod sets the initial paraphrase method (default Random).
func WithParaphraseMethod(m paraphrase.Method) Option {
	return func(p *Params) {
		p.ParaphraseMethod = m
	}
}

// WithFeedbackTypes declares a fixed multi-dialect selection, used on every
// step instead of the single feedback type given to New.
func WithFeedbackTypes(types ...feedback.Type) Option {
	return func(p *Params) {
		p.FeedbackTypes = types
	}
}

func defaultParams() *Params {
	return &Params{
		Name:             "verbal-env",
		Rand:             rand.New(rand.NewSource(time.Now().UnixNano())),
		Logger:           slog.Default(),
		ParaphraseMethod: paraphrase.Random(),
	}
}

// New wraps backend. The instruction type and every declared feedback type
// must be supported by the backend; otherwise New fails immediately.
func New(backend Backend, instructionType InstructionType, feedbackType feedback.Type, opts ...Option) (*Env, error) {
	params := defaultParams()
	for _, opt := range opts {
		opt(params)
	}
	if params.Rand == nil {
		params.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if params.Logger == nil {
		params.Logger = slog.Default()
	}

	if backend == nil {
		return nil, fmt.Errorf("%w: nil backend", ErrInvalidConfiguration)
	}
	if !slices.Contains(backend.InstructionTypes(), instructionType) {
		return nil, fmt.Errorf("%w: instruction type %q not supported by %s", ErrInvalidConfiguration, instructionType, params.Name)
	}

	declared := params.FeedbackTypes
	if len(declared) == 0 {
		declared = []feedback.Type{feedbackType}
	}
	if len(declared) > 1 {
		for _, t := range declared {
			if t.Aggregate() {
				return nil, fmt.Errorf("%w: %q cannot be combined with other feedback types", ErrInvalidConfiguration, t)
			}
		}
	}
	supported := backend.FeedbackTypes()
	for _, t := range declared {
		if !slices.Contains(supported, t) {
			return nil, fmt.Errorf("%w: %q not supported by %s", ErrUnsupportedFeedbackType, t, params.Name)
		}
	}

	if err := params.ParaphraseMethod.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}

	return &Env{
		name:            params.Name,
		backend:         backend,
		instructionType: instructionType,
		declared:        declared,
		method:          params.ParaphraseMethod,
		rng:             params.Rand,
		logger:          params.Logger.With("env", params.Name),
	}, nil
}

// Reset starts a new episode. A non-nil seed also reseeds the wrapper's
// random source so that mixture resolution and paraphrase draws replay.
func (e *Env) Reset(ctx context.Context, seed *int64, options Options) (Observation, Info, error) {
	// Closed until the backend hands back a valid envelope.
	e.state = stateNew
	if seed != nil {
		e.rng.Seed(*seed)
	}

	envelope, info, err := e.backend.Reset(ctx, e, seed, options)
	if err != nil {
		return Observation{}, nil, err
	}
	if envelope.Feedback != nil {
		observability.RecordContractViolation(e.name, "reset")
		return Observation{}, nil, fmt.Errorf("%w: %s: feedback must be absent at reset", ErrContractViolation, e.name)
	}
	if envelope.Instruction == nil {
		observability.RecordContractViolation(e.name, "reset")
		return Observation{}, nil, fmt.Errorf("%w: %s: instruction must be present at reset", ErrContractViolation, e.name)
	}

	e.state = stateRunning
	observability.RecordReset(e.name)
	e.logger.Debug("reset",
		"instruction_type", e.instructionType,
		"feedback_type", e.DeclaredFeedbackType(),
	)

	return Observation{
		Instruction: envelope.Instruction,
		Observation: envelope.Observation,
	}, info, nil
}

// Step applies action and returns the observation with its feedback
// verbalized. It is an error to step before Reset or after the episode ended.
func (e *Env) Step(ctx context.Context, action Action) (StepResult, error) {
	switch e.state {
	case stateNew:
		observability.RecordContractViolation(e.name, "step")
		return StepResult{}, fmt.Errorf("%w: %s: step called before reset", ErrContractViolation, e.name)
	case stateDone:
		observability.RecordContractViolation(e.name, "step")
		return StepResult{}, fmt.Errorf("%w: %s: step called after the episode ended", ErrContractViolation, e.name)
	}

	outcome, err := e.backend.Step(ctx, e, action)
	if err != nil {
		return StepResult{}, err
	}

	obs := Observation{
		Instruction: outcome.Envelope.Instruction,
		Observation: outcome.Envelope.Observation,
	}
	if outcome.Envelope.Feedback != nil {
		text := e.verbalize(outcome.Envelope.Feedback)
		obs.Feedback = &text
	}

	if outcome.Terminal || outcome.Truncated {
		e.state = stateDone
	}
	observability.RecordStep(e.name, obs.Feedback != nil)
	e.logger.Debug("step",
		"action", action,
		"reward", outcome.Reward,
		"terminal", outcome.Terminal,
		"truncated", outcome.Truncated,
	)

	return StepResult{
		Observation: obs,
		Reward:      outcome.Reward,
		Terminal:    outcome.Terminal,
		Truncated:   outcome.Truncated,
		Info:        outcome.Info,
	}, nil
}

func (e *Env) verbalize(f *feedback.Feedback) string {
	if v, ok := e.backend.(FeedbackVerbalizer); ok {
		return v.VerbalizeFeedback(f)
	}
	return feedback.Verbalize(f)
}

// FeedbackType resolves the dialects to use on the current step. None yields
// the empty set; Mixture draws one of the backend's other supported types
// uniformly at random; anything else is returned as declared after checking
// it against the backend.
func (e *Env) FeedbackType() (feedback.Set, error) {
	supported := e.backend.FeedbackTypes()

	var set feedback.Set
	switch {
	case len(e.declared) == 1 && e.declared[0] == feedback.None:
		set = feedback.NewSet()
	case len(e.declared) == 1 && e.declared[0] == feedback.Mixture:
		pool := make([]feedback.Type, 0, len(supported))
		for _, t := range supported {
			if t != feedback.Mixture && !slices.Contains(pool, t) {
				pool = append(pool, t)
			}
		}
		if len(pool) == 0 {
			return nil, fmt.Errorf("%w: %s has nothing to mix", ErrUnsupportedFeedbackType, e.name)
		}
		set = feedback.NewSet(pool[e.rng.Intn(len(pool))])
	default:
		set = feedback.NewSet(e.declared...)
		for t := range set {
			if !slices.Contains(supported, t) {
				return nil, fmt.Errorf("%w: %q not supported by %s", ErrUnsupportedFeedbackType, t, e.name)
			}
		}
	}

	observability.RecordFeedbackResolution(e.DeclaredFeedbackType(), set.String())
	e.logger.Debug("feedback type resolved", "declared", e.DeclaredFeedbackType(), "effective", set.String())
	return set, nil
}

// SetParaphraseMethod replaces the paraphrase method used by Format and Reformat.
func (e *Env) SetParaphraseMethod(m paraphrase.Method) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	e.method = m
	return nil
}

// ParaphraseMethod returns the current paraphrase method.
func (e *Env) ParaphraseMethod() paraphrase.Method {
	return e.method
}

// Format selects and renders one of templates with the current paraphrase method.
func (e *Env) Format(ctx context.Context, templates []string, args paraphrase.Args) (string, error) {
	s, err := paraphrase.Select(ctx, templates, e.method, e.rng, args)
	return s, e.wrapParaphraseErr(err)
}

// Reformat rewrites the first-matched instance of template in original with
// a paraphrase from templates. An empty template means templates[0].
func (e *Env) Reformat(ctx context.Context, original string, templates []string, template string) (string, error) {
	s, err := paraphrase.Reformat(ctx, original, templates, e.method, e.rng, template)
	return s, e.wrapParaphraseErr(err)
}

func (e *Env) wrapParaphraseErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, paraphrase.ErrInvalidMethod) {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfiguration, e.name, err)
	}
	return fmt.Errorf("%s: %w", e.name, err)
}

// Name returns the name used in logs and metrics.
func (e *Env) Name() string {
	return e.name
}

// InstructionType returns the configured instruction type.
func (e *Env) InstructionType() InstructionType {
	return e.instructionType
}

// DeclaredFeedbackType returns the configured feedback selection, e.g.
// "mixture" or "reward+future_negative".
func (e *Env) DeclaredFeedbackType() string {
	if len(e.declared) == 1 {
		return string(e.declared[0])
	}
	return feedback.NewSet(e.declared...).String()
}

// Rand returns the wrapper's random source, for backends that want draws to
// follow the same seed.
func (e *Env) Rand() *rand.Rand {
	return e.rng
}

// Backend returns the wrapped backend.
func (e *Env) Backend() Backend {
	return e.backend
}

// NumActions reports the size of a discrete action space, if the backend has one.
func (e *Env) NumActions() (int, bool) {
	if d, ok := e.backend.(DiscreteActions); ok {
		return d.NumActions(), true
	}
	return 0, false
}
