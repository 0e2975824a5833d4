package verbal

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boristopalov/verbalgym/pkg/feedback"
	"github.com/boristopalov/verbalgym/pkg/paraphrase"
)

// stubBackend returns canned envelopes and records what the wrapper asked for.
type stubBackend struct {
	Unimplemented
	instructionTypes []InstructionType
	feedbackTypes    []feedback.Type
	resetEnvelope    Envelope
	resetErr         error
	outcome          Outcome
	resolved         []feedback.Set
}

func (s *stubBackend) InstructionTypes() []InstructionType {
	if s.instructionTypes == nil {
		return AllInstructionTypes
	}
	return s.instructionTypes
}

func (s *stubBackend) FeedbackTypes() []feedback.Type {
	if s.feedbackTypes == nil {
		return feedback.All
	}
	return s.feedbackTypes
}

func (s *stubBackend) Reset(context.Context, *Env, *int64, Options) (Envelope, Info, error) {
	if s.resetErr != nil {
		return Envelope{}, nil, s.resetErr
	}
	return s.resetEnvelope, Info{"reset": true}, nil
}

func (s *stubBackend) Step(_ context.Context, env *Env, _ Action) (Outcome, error) {
	set, err := env.FeedbackType()
	if err != nil {
		return Outcome{}, err
	}
	s.resolved = append(s.resolved, set)
	return s.outcome, nil
}

// joinBackend overrides verbalization.
type joinBackend struct {
	stubBackend
}

func (j *joinBackend) VerbalizeFeedback(f *feedback.Feedback) string {
	out := ""
	for _, field := range f.Fields() {
		if field.Value != nil {
			out += "[" + *field.Value + "]"
		}
	}
	return out
}

func validReset() Envelope {
	return Envelope{Instruction: String("Pick an arm."), Observation: nil}
}

func newEnv(t *testing.T, b Backend, ft feedback.Type, opts ...Option) *Env {
	t.Helper()
	opts = append([]Option{WithRand(rand.New(rand.NewSource(1))), WithName("stub")}, opts...)
	env, err := New(b, Basic, ft, opts...)
	require.NoError(t, err)
	return env
}

func TestResetContract(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		envelope Envelope
		wantErr  error
	}{
		{
			name:     "valid",
			envelope: validReset(),
		},
		{
			name:     "feedback present",
			envelope: Envelope{Instruction: String("x"), Feedback: &feedback.Feedback{}},
			wantErr:  ErrContractViolation,
		},
		{
			name:     "instruction absent",
			envelope: Envelope{Observation: "state"},
			wantErr:  ErrContractViolation,
		},
		{
			name:     "empty instruction is present",
			envelope: Envelope{Instruction: String("")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newEnv(t, &stubBackend{resetEnvelope: tt.envelope}, feedback.Reward)
			obs, info, err := env.Reset(ctx, nil, nil)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Nil(t, obs.Feedback)
			require.NotNil(t, obs.Instruction)
			assert.Equal(t, *tt.envelope.Instruction, *obs.Instruction)
			assert.Equal(t, true, info["reset"])
		})
	}
}

func TestStepVerbalization(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		feedback *feedback.Feedback
		want     *string
	}{
		{
			name:     "absent stays absent",
			feedback: nil,
			want:     nil,
		},
		{
			name:     "empty record verbalizes to empty string",
			feedback: &feedback.Feedback{},
			want:     String(""),
		},
		{
			name: "fields joined in declared order",
			feedback: &feedback.Feedback{
				FutureNegative:    feedback.Text("Do not pick 3."),
				Reward:            feedback.Text("You got 0."),
				HindsightNegative: feedback.Text("Arm 2 was poor."),
			},
			want: String("You got 0. Arm 2 was poor. Do not pick 3."),
		},
		{
			name: "all fields",
			feedback: &feedback.Feedback{
				Reward:            feedback.Text("r"),
				HindsightPositive: feedback.Text("hp"),
				HindsightNegative: feedback.Text("hn"),
				FuturePositive:    feedback.Text("fp"),
				FutureNegative:    feedback.Text("fn"),
			},
			want: String("r hp hn fp fn"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &stubBackend{
				resetEnvelope: validReset(),
				outcome: Outcome{
					Envelope: Envelope{Observation: "obs", Feedback: tt.feedback},
					Reward:   0.5,
					Info:     Info{"k": "v"},
				},
			}
			env := newEnv(t, b, feedback.Mixture)
			_, _, err := env.Reset(ctx, nil, nil)
			require.NoError(t, err)

			res, err := env.Step(ctx, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Observation.Feedback)
			assert.Equal(t, "obs", res.Observation.Observation)
			assert.Equal(t, 0.5, res.Reward)
			assert.Equal(t, Info{"k": "v"}, res.Info)
			assert.False(t, res.Done())
		})
	}
}

func TestCustomVerbalizer(t *testing.T) {
	ctx := context.Background()
	b := &joinBackend{stubBackend{
		resetEnvelope: validReset(),
		outcome: Outcome{Envelope: Envelope{Feedback: &feedback.Feedback{
			Reward:         feedback.Text("a"),
			FuturePositive: feedback.Text("b"),
		}}},
	}}
	env := newEnv(t, b, feedback.Reward)
	_, _, err := env.Reset(ctx, nil, nil)
	require.NoError(t, err)
	res, err := env.Step(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, res.Observation.Feedback)
	assert.Equal(t, "[a][b]", *res.Observation.Feedback)
}

func TestStepStateMachine(t *testing.T) {
	ctx := context.Background()
	b := &stubBackend{resetEnvelope: validReset()}
	env := newEnv(t, b, feedback.Reward)

	_, err := env.Step(ctx, 0)
	assert.ErrorIs(t, err, ErrContractViolation)

	_, _, err = env.Reset(ctx, nil, nil)
	require.NoError(t, err)
	_, err = env.Step(ctx, 0)
	require.NoError(t, err)

	b.outcome.Terminal = true
	res, err := env.Step(ctx, 0)
	require.NoError(t, err)
	assert.True(t, res.Done())

	_, err = env.Step(ctx, 0)
	assert.ErrorIs(t, err, ErrContractViolation)

	b.outcome.Terminal = false
	_, _, err = env.Reset(ctx, nil, nil)
	require.NoError(t, err)
	_, err = env.Step(ctx, 0)
	assert.NoError(t, err)
}

func TestFailedResetKeepsEnvClosed(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, &stubBackend{resetEnvelope: Envelope{}}, feedback.Reward)
	_, _, err := env.Reset(ctx, nil, nil)
	require.ErrorIs(t, err, ErrContractViolation)
	_, err = env.Step(ctx, 0)
	assert.ErrorIs(t, err, ErrContractViolation)
}

func TestFailedResetClosesRunningEnv(t *testing.T) {
	ctx := context.Background()
	backendErr := errors.New("invalid start")
	tests := []struct {
		name    string
		breakIt func(b *stubBackend)
		wantErr error
	}{
		{"backend error", func(b *stubBackend) { b.resetErr = backendErr }, backendErr},
		{"broken envelope", func(b *stubBackend) { b.resetEnvelope = Envelope{} }, ErrContractViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &stubBackend{resetEnvelope: validReset()}
			env := newEnv(t, b, feedback.Reward)
			_, _, err := env.Reset(ctx, nil, nil)
			require.NoError(t, err)
			_, err = env.Step(ctx, 0)
			require.NoError(t, err)

			tt.breakIt(b)
			_, _, err = env.Reset(ctx, nil, nil)
			require.ErrorIs(t, err, tt.wantErr)
			_, err = env.Step(ctx, 0)
			assert.ErrorIs(t, err, ErrContractViolation)
		})
	}
}

func TestMixtureResolution(t *testing.T) {
	supported := []feedback.Type{
		feedback.Mixture, feedback.Reward, feedback.HindsightPositive,
		feedback.HindsightNegative, feedback.FuturePositive, feedback.FutureNegative,
	}
	env := newEnv(t, &stubBackend{feedbackTypes: supported}, feedback.Mixture)

	const trials = 1000
	counts := make(map[feedback.Type]int)
	for i := 0; i < trials; i++ {
		set, err := env.FeedbackType()
		require.NoError(t, err)
		require.Equal(t, 1, set.Len())
		member := set.Sorted()[0]
		assert.NotEqual(t, feedback.Mixture, member)
		counts[member]++
	}

	k := len(supported) - 1
	assert.Len(t, counts, k)
	expected := trials / k
	for dialect, n := range counts {
		assert.InDelta(t, expected, n, float64(expected)/2, "dialect %s", dialect)
	}
}

func TestMixturePoolIncludesNone(t *testing.T) {
	env := newEnv(t, &stubBackend{feedbackTypes: []feedback.Type{feedback.Mixture, feedback.None}}, feedback.Mixture)
	set, err := env.FeedbackType()
	require.NoError(t, err)
	assert.Equal(t, feedback.NewSet(feedback.None), set)
}

func TestMixtureWithNothingToMix(t *testing.T) {
	env := newEnv(t, &stubBackend{feedbackTypes: []feedback.Type{feedback.Mixture}}, feedback.Mixture)
	_, err := env.FeedbackType()
	assert.ErrorIs(t, err, ErrUnsupportedFeedbackType)
}

func TestNoneResolvesToEmptySet(t *testing.T) {
	env := newEnv(t, &stubBackend{}, feedback.None)
	for i := 0; i < 100; i++ {
		set, err := env.FeedbackType()
		require.NoError(t, err)
		assert.Equal(t, 0, set.Len())
	}
}

func TestFixedFeedbackTypes(t *testing.T) {
	env := newEnv(t, &stubBackend{}, feedback.Reward)
	set, err := env.FeedbackType()
	require.NoError(t, err)
	assert.Equal(t, feedback.NewSet(feedback.Reward), set)
	assert.Equal(t, "reward", env.DeclaredFeedbackType())

	env = newEnv(t, &stubBackend{}, feedback.Reward, WithFeedbackTypes(feedback.Reward, feedback.FutureNegative))
	set, err = env.FeedbackType()
	require.NoError(t, err)
	assert.Equal(t, feedback.NewSet(feedback.Reward, feedback.FutureNegative), set)
	assert.Equal(t, "{r,fn}", env.DeclaredFeedbackType())
}

func TestConstructionFailsFast(t *testing.T) {
	restricted := &stubBackend{
		instructionTypes: []InstructionType{Basic},
		feedbackTypes:    []feedback.Type{feedback.None, feedback.Reward},
	}

	tests := []struct {
		name    string
		backend Backend
		instr   InstructionType
		fb      feedback.Type
		opts    []Option
		wantErr error
	}{
		{"unsupported feedback type", restricted, Basic, feedback.FutureNegative, nil, ErrUnsupportedFeedbackType},
		{"unknown feedback type", restricted, Basic, feedback.Type("bogus"), nil, ErrUnsupportedFeedbackType},
		{"unsupported instruction type", restricted, Complete, feedback.Reward, nil, ErrInvalidConfiguration},
		{"unsupported member of multi selection", restricted, Basic, feedback.Reward,
			[]Option{WithFeedbackTypes(feedback.Reward, feedback.HindsightPositive)}, ErrUnsupportedFeedbackType},
		{"aggregate in multi selection", &stubBackend{}, Basic, feedback.Reward,
			[]Option{WithFeedbackTypes(feedback.Mixture, feedback.Reward)}, ErrInvalidConfiguration},
		{"invalid paraphrase method", &stubBackend{}, Basic, feedback.Reward,
			[]Option{WithParaphraseMethod(paraphrase.Index(-2))}, ErrInvalidConfiguration},
		{"nil backend", nil, Basic, feedback.Reward, nil, ErrInvalidConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := New(tt.backend, tt.instr, tt.fb, tt.opts...)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, env)
		})
	}
}

func TestUnimplementedBackend(t *testing.T) {
	ctx := context.Background()
	env, err := New(Unimplemented{}, Partial, feedback.HindsightPositive)
	require.NoError(t, err)

	_, _, err = env.Reset(ctx, nil, nil)
	assert.ErrorIs(t, err, ErrNotImplemented)

	_, err = Unimplemented{}.Step(ctx, env, 0)
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestParaphraseMethod(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, &stubBackend{}, feedback.Reward)
	assert.True(t, env.ParaphraseMethod().IsRandom())

	require.NoError(t, env.SetParaphraseMethod(paraphrase.Index(1)))
	got, err := env.Format(ctx, []string{"A {x}", "B {x}"}, paraphrase.Args{"x": "z"})
	require.NoError(t, err)
	assert.Equal(t, "B z", got)

	_, err = env.Format(ctx, []string{"A {x}"}, paraphrase.Args{"x": "z"})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = env.Format(ctx, []string{"A {x}", "B {y}"}, paraphrase.Args{"x": "z"})
	assert.ErrorIs(t, err, ErrFormatting)

	err = env.SetParaphraseMethod(paraphrase.Override(nil))
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	n, ok := env.ParaphraseMethod().FixedIndex()
	assert.True(t, ok)
	assert.Equal(t, 1, n)

	require.NoError(t, env.SetParaphraseMethod(paraphrase.Override(
		func(_ context.Context, templates []string, args paraphrase.Args) (string, error) {
			return "override:" + args["x"], nil
		})))
	got, err = env.Format(ctx, []string{"A {x}"}, paraphrase.Args{"x": "z"})
	require.NoError(t, err)
	assert.Equal(t, "override:z", got)

	require.NoError(t, env.SetParaphraseMethod(paraphrase.Index(0)))
	got, err = env.Reformat(ctx, "This is an apple. This is a banana. This is an apple.",
		[]string{"This is not an {fruit}."}, "This is an {fruit}.")
	require.NoError(t, err)
	assert.Equal(t, "This is not an apple. This is a banana. This is not an apple.", got)
}

func TestSeededResetReplaysDraws(t *testing.T) {
	ctx := context.Background()
	env := newEnv(t, &stubBackend{resetEnvelope: validReset()}, feedback.Mixture)

	draw := func() []feedback.Set {
		s := int64(123)
		_, _, err := env.Reset(ctx, &s, nil)
		require.NoError(t, err)
		var out []feedback.Set
		for i := 0; i < 20; i++ {
			set, err := env.FeedbackType()
			require.NoError(t, err)
			out = append(out, set)
		}
		return out
	}
	assert.Equal(t, draw(), draw())
}

func TestNumActions(t *testing.T) {
	env := newEnv(t, &stubBackend{}, feedback.Reward)
	_, ok := env.NumActions()
	assert.False(t, ok)
}

func TestParseInstructionType(t *testing.T) {
	for in, want := range map[string]InstructionType{"b": Basic, "partial": Partial, "C": Complete} {
		got, err := ParseInstructionType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, string(want[0]), got.Short())
	}
	_, err := ParseInstructionType("x")
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}
