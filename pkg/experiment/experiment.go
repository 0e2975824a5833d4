package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/boristopalov/verbalgym/pkg/agent"
	"github.com/boristopalov/verbalgym/pkg/memory"
	"github.com/boristopalov/verbalgym/pkg/messaging"
	"github.com/boristopalov/verbalgym/pkg/observability"
	"github.com/boristopalov/verbalgym/pkg/verbal"
)

var ErrInvalidRunner = errors.New("invalid runner configuration")

// How an episode ended.
const (
	EndTerminal  = "terminal"
	EndTruncated = "truncated"
	EndHorizon   = "horizon"
)

// Status of a Runner.
type Status struct {
	Running   bool
	Episode   int
	StartTime time.Time
	EndTime   time.Time
}

// EpisodeResult is the outcome of one episode.
type EpisodeResult struct {
	ID         string
	Seed       *int64
	Return     float64
	Steps      int
	End        string
	Transcript []string
}

// Result is the outcome of a whole run.
type Result struct {
	Name      string
	Env       string
	Agent     string
	Episodes  []EpisodeResult
	Stats     Stats
	StartTime time.Time
	EndTime   time.Time
}

// Runner evaluates one agent on one verbal environment, one episode after
// another.
type Runner struct {
	name     string
	env      *verbal.Env
	agent    agent.Agent
	episodes int
	horizon  int
	seed     *int64
	options  verbal.Options
	logger   *slog.Logger
	broker   messaging.Broker
	memory   *memory.Memory

	mu     sync.RWMutex
	status Status
}

type RunnerParams struct {
	Name            string
	Episodes        int
	Horizon         int
	Seed            *int64
	ResetOptions    verbal.Options
	Logger          *slog.Logger
	Broker          messaging.Broker
	TranscriptLines int
}

type RunnerOption func(*RunnerParams)

func WithName(name string) RunnerOption {
	return func(p *RunnerParams) {
		p.Name = name
	}
}

func WithEpisodes(n int) RunnerOption {
	return func(p *RunnerParams) {
		p.Episodes = n
	}
}

// WithHorizon caps the number of steps per episode.
func WithHorizon(n int) RunnerOption {
	return func(p *RunnerParams) {
		p.Horizon = n
	}
}

// WithSeed seeds episode i with seed+i.
func WithSeed(seed int64) RunnerOption {
	return func(p *RunnerParams) {
		p.Seed = &seed
	}
}

// WithResetOptions passes options to every env reset.
func WithResetOptions(options verbal.Options) RunnerOption {
	return func(p *RunnerParams) {
		p.ResetOptions = options
	}
}

func WithLogger(l *slog.Logger) RunnerOption {
	return func(p *RunnerParams) {
		p.Logger = l
	}
}

// WithBroker publishes every episode event to b.
func WithBroker(b messaging.Broker) RunnerOption {
	return func(p *RunnerParams) {
		p.Broker = b
	}
}

// WithTranscriptLines bounds the transcript kept per episode. 0 keeps all.
func WithTranscriptLines(n int) RunnerOption {
	return func(p *RunnerParams) {
		p.TranscriptLines = n
	}
}

func defaultRunnerParams() *RunnerParams {
	return &RunnerParams{
		Name:            "experiment",
		Episodes:        10,
		Horizon:         10,
		Logger:          slog.Default(),
		TranscriptLines: 100,
	}
}

// NewRunner creates a runner for a on env.
func NewRunner(env *verbal.Env, a agent.Agent, opts ...RunnerOption) (*Runner, error) {
	params := defaultRunnerParams()
	for _, opt := range opts {
		opt(params)
	}

	if env == nil || a == nil {
		return nil, fmt.Errorf("%w: env and agent are required", ErrInvalidRunner)
	}
	if params.Episodes < 1 {
		return nil, fmt.Errorf("%w: episodes must be positive, got %d", ErrInvalidRunner, params.Episodes)
	}
	if params.Horizon < 1 {
		return nil, fmt.Errorf("%w: horizon must be positive, got %d", ErrInvalidRunner, params.Horizon)
	}
	if params.Logger == nil {
		params.Logger = slog.Default()
	}

	return &Runner{
		name:     params.Name,
		env:      env,
		agent:    a,
		episodes: params.Episodes,
		horizon:  params.Horizon,
		seed:     params.Seed,
		options:  params.ResetOptions,
		logger:   params.Logger.With("experiment", params.Name, "env", env.Name(), "agent", a.Name()),
		broker:   params.Broker,
		memory:   memory.NewMemory(params.TranscriptLines),
	}, nil
}

// GetStatus returns a snapshot of the runner's progress.
func (r *Runner) GetStatus() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Run plays every episode and summarizes the returns. It stops at the first
// error, including context cancellation.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	r.mu.Lock()
	if r.status.Running {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s is already running", ErrInvalidRunner, r.name)
	}
	r.status = Status{Running: true, StartTime: time.Now()}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.status.Running = false
		r.status.EndTime = time.Now()
		r.mu.Unlock()
	}()

	result := &Result{
		Name:      r.name,
		Env:       r.env.Name(),
		Agent:     r.agent.Name(),
		Episodes:  make([]EpisodeResult, 0, r.episodes),
		StartTime: time.Now(),
	}
	r.logger.Info("experiment started", "episodes", r.episodes, "horizon", r.horizon)

	for i := 0; i < r.episodes; i++ {
		r.mu.Lock()
		r.status.Episode = i + 1
		r.mu.Unlock()

		ep, err := r.RunEpisode(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("episode %d: %w", i+1, err)
		}
		result.Episodes = append(result.Episodes, ep)
	}

	scores := make([]float64, len(result.Episodes))
	for i, ep := range result.Episodes {
		scores[i] = ep.Return
	}
	result.Stats = ComputeStats(scores)
	result.EndTime = time.Now()

	r.logger.Info("experiment finished",
		"mean", result.Stats.Mean,
		"std", result.Stats.Std,
		"min", result.Stats.Min,
		"max", result.Stats.Max,
		"duration", result.EndTime.Sub(result.StartTime),
	)
	return result, nil
}

// RunEpisode plays episode index to the end or the horizon.
func (r *Runner) RunEpisode(ctx context.Context, index int) (EpisodeResult, error) {
	ep := EpisodeResult{ID: uuid.New().String()}
	if r.seed != nil {
		s := *r.seed + int64(index)
		ep.Seed = &s
	}
	r.memory.Clear()

	ret, err := r.play(ctx, &ep)
	if err != nil {
		observability.RecordEpisode(r.env.Name(), r.agent.Name(), "error", 0)
		r.logger.Error("episode failed", "episode", ep.ID, "step", ep.Steps, "error", err)
		return EpisodeResult{}, err
	}

	ep.Return = ret
	r.emit(ep.ID, ep.Steps, messaging.KindEpisodeEnd, "", ret)
	ep.Transcript = r.memory.Lines()
	observability.RecordEpisode(r.env.Name(), r.agent.Name(), "success", ret)
	r.logger.Info("episode finished",
		"episode", ep.ID,
		"index", index,
		"return", ret,
		"steps", ep.Steps,
		"end", ep.End,
	)
	return ep, nil
}

func (r *Runner) play(ctx context.Context, ep *EpisodeResult) (float64, error) {
	if err := r.agent.Reset(ctx); err != nil {
		return 0, fmt.Errorf("reset agent: %w", err)
	}
	obs, _, err := r.env.Reset(ctx, ep.Seed, r.options)
	if err != nil {
		return 0, fmt.Errorf("reset env: %w", err)
	}
	r.record(ep.ID, 0, obs)

	var ret float64
	ep.End = EndHorizon
	for step := 1; step <= r.horizon; step++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		action, err := r.agent.Act(ctx, obs)
		if err != nil {
			return 0, fmt.Errorf("agent act: %w", err)
		}
		r.emit(ep.ID, step, messaging.KindAction, fmt.Sprint(action), 0)

		res, err := r.env.Step(ctx, action)
		if err != nil {
			return 0, fmt.Errorf("env step: %w", err)
		}
		ep.Steps = step
		ret += res.Reward
		obs = res.Observation
		r.record(ep.ID, step, obs)

		if res.Terminal {
			ep.End = EndTerminal
			break
		}
		if res.Truncated {
			ep.End = EndTruncated
			break
		}
	}
	return ret, nil
}

// record emits the present parts of an observation.
func (r *Runner) record(episode string, step int, obs verbal.Observation) {
	if obs.Instruction != nil {
		r.emit(episode, step, messaging.KindInstruction, *obs.Instruction, 0)
	}
	if obs.Observation != nil {
		r.emit(episode, step, messaging.KindObservation, fmt.Sprint(obs.Observation), 0)
	}
	if obs.Feedback != nil {
		r.emit(episode, step, messaging.KindFeedback, *obs.Feedback, 0)
	}
}

func (r *Runner) emit(episode string, step int, kind messaging.Kind, text string, reward float64) {
	ev := messaging.Event{
		Episode:   episode,
		Env:       r.env.Name(),
		Step:      step,
		Kind:      kind,
		Text:      text,
		Reward:    reward,
		Timestamp: time.Now(),
	}
	r.memory.Store(ev.Line())
	if r.broker == nil {
		return
	}
	if err := r.broker.Publish(ev); err != nil {
		r.logger.Warn("event dropped", "kind", kind, "error", err)
	}
}
