package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/boristopalov/verbalgym/pkg/agent"
	"github.com/boristopalov/verbalgym/pkg/config"
	"github.com/boristopalov/verbalgym/pkg/envs"
	"github.com/boristopalov/verbalgym/pkg/experiment"
	"github.com/boristopalov/verbalgym/pkg/messaging"
	"github.com/boristopalov/verbalgym/pkg/paraphrase"
	"github.com/boristopalov/verbalgym/pkg/providers"
	"github.com/boristopalov/verbalgym/pkg/verbal"
)

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("config", "", "experiment config file (.yaml, .yml or .json)")
	f.String("env", "", "environment name, e.g. bandit-b-m-v0")
	f.Int("episodes", 0, "number of episodes")
	f.Int("horizon", 0, "maximum steps per episode")
	f.Int64("seed", 0, "seed for the environment, wrapper and agent")
	f.String("paraphrase", "", `paraphrase method: "random" or a template index`)
	f.String("llm-provider", "", "paraphrase with an LLM: openai or gemini")
	f.String("llm-model", "", "model used by --llm-provider")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	f.String("log-level", "", "debug, info, warn or error")
	f.BoolP("verbose", "v", false, "print every episode event")
}

// loadConfig reads --config, if any, and applies the flags the user set.
func loadConfig(cmd *cobra.Command) (*config.ExperimentConfig, error) {
	f := cmd.Flags()
	cfg := config.Default()
	if path, _ := f.GetString("config"); path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if f.Changed("env") {
		cfg.Environment.Name, _ = f.GetString("env")
	}
	if f.Changed("episodes") {
		cfg.Episodes, _ = f.GetInt("episodes")
	}
	if f.Changed("horizon") {
		cfg.Horizon, _ = f.GetInt("horizon")
	}
	if f.Changed("seed") {
		seed, _ := f.GetInt64("seed")
		cfg.Seed = &seed
	}
	if f.Changed("paraphrase") {
		cfg.Environment.Paraphrase, _ = f.GetString("paraphrase")
	}
	if f.Changed("llm-provider") || f.Changed("llm-model") {
		if cfg.Paraphraser == nil {
			cfg.Paraphraser = &config.LLMConfig{}
		}
		if f.Changed("llm-provider") {
			cfg.Paraphraser.Provider, _ = f.GetString("llm-provider")
		}
		if f.Changed("llm-model") {
			cfg.Paraphraser.Model, _ = f.GetString("llm-model")
		}
	}
	if f.Changed("log-level") {
		cfg.Logging.Level, _ = f.GetString("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg *config.ExperimentConfig) (*slog.Logger, error) {
	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

func paraphraseMethod(ctx context.Context, cfg *config.ExperimentConfig) (paraphrase.Method, error) {
	if p := cfg.Paraphraser; p != nil {
		var opts []providers.ProviderOption
		if p.BaseURL != "" {
			opts = append(opts, providers.WithBaseURL(p.BaseURL))
		}
		c, err := providers.New(ctx, p.Provider, opts...)
		if err != nil {
			return paraphrase.Method{}, err
		}
		return paraphrase.LLM(c, p.Model), nil
	}
	return cfg.Environment.Method()
}

// buildRunner wires config into an env, an agent and a runner.
func buildRunner(ctx context.Context, cfg *config.ExperimentConfig, logger *slog.Logger, broker messaging.Broker) (*experiment.Runner, error) {
	method, err := paraphraseMethod(ctx, cfg)
	if err != nil {
		return nil, err
	}
	feedbackTypes, err := cfg.Environment.Feedback()
	if err != nil {
		return nil, err
	}

	envOpts := []verbal.Option{
		verbal.WithLogger(logger),
		verbal.WithParaphraseMethod(method),
	}
	var agentOpts []agent.AgentOption
	if cfg.Seed != nil {
		envOpts = append(envOpts, verbal.WithRand(rand.New(rand.NewSource(*cfg.Seed))))
		agentOpts = append(agentOpts, agent.WithSeed(*cfg.Seed))
	}
	if len(feedbackTypes) > 0 {
		envOpts = append(envOpts, verbal.WithFeedbackTypes(feedbackTypes...))
	}

	env, err := envs.Make(cfg.Environment.Name, envOpts...)
	if err != nil {
		return nil, err
	}
	a, err := agent.ForEnv(cfg.Agent.Type, env, cfg.Agent.Config, agentOpts...)
	if err != nil {
		return nil, err
	}

	runnerOpts := []experiment.RunnerOption{
		experiment.WithName(cfg.Name),
		experiment.WithEpisodes(cfg.Episodes),
		experiment.WithHorizon(cfg.Horizon),
		experiment.WithResetOptions(cfg.Environment.ResetOptions()),
		experiment.WithLogger(logger),
		experiment.WithTranscriptLines(cfg.Logging.TranscriptLines),
	}
	if cfg.Seed != nil {
		runnerOpts = append(runnerOpts, experiment.WithSeed(*cfg.Seed))
	}
	if broker != nil {
		runnerOpts = append(runnerOpts, experiment.WithBroker(broker))
	}
	return experiment.NewRunner(env, a, runnerOpts...)
}

func runExperiment(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		srv := serveMetrics(addr, logger)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var broker messaging.Broker
	stopPrinting := func() {}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		b := messaging.NewBroker()
		defer b.Reset()
		stopPrinting = printEvents(cmd.OutOrStdout(), b)
		broker = b
	}

	runner, err := buildRunner(ctx, cfg, logger, broker)
	if err != nil {
		stopPrinting()
		return err
	}
	result, err := runner.Run(ctx)
	stopPrinting()
	if err != nil {
		return fmt.Errorf("experiment failed: %w", err)
	}

	printResult(cmd.OutOrStdout(), result)
	return nil
}

func serveMetrics(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

// printEvents writes every published event to w until stop is called.
func printEvents(w io.Writer, broker *messaging.SimpleBroker) (stop func()) {
	events := make(chan messaging.Event, 256)
	if err := broker.Subscribe("printer", events); err != nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			fmt.Fprintln(w, ev.Line())
		}
	}()
	return func() {
		_ = broker.Unsubscribe("printer")
		close(events)
		<-done
	}
}

func printResult(w io.Writer, r *experiment.Result) {
	fmt.Fprintf(w, "%s: %s with %s agent, %d episodes in %s\n",
		r.Name, r.Env, r.Agent, len(r.Episodes), r.EndTime.Sub(r.StartTime).Round(time.Millisecond))
	for i, ep := range r.Episodes {
		fmt.Fprintf(w, "  episode %d (%s): return %g over %d steps, %s\n", i+1, ep.ID, ep.Return, ep.Steps, ep.End)
	}
	fmt.Fprintf(w, "mean %.3f  std %.3f  min %g  max %g\n", r.Stats.Mean, r.Stats.Std, r.Stats.Min, r.Stats.Max)
}
