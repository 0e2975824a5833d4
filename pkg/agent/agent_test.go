package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boristopalov/verbalgym/pkg/feedback"
	"github.com/boristopalov/verbalgym/pkg/verbal"
)

type discreteBackend struct {
	verbal.Unimplemented
	n int
}

func (b discreteBackend) NumActions() int {
	return b.n
}

func TestRandom(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects an empty action space", func(t *testing.T) {
		_, err := NewRandom(0)
		assert.ErrorIs(t, err, ErrInvalidAgent)
	})

	t.Run("stays in range and covers every action", func(t *testing.T) {
		a, err := NewRandom(4, WithSeed(1))
		require.NoError(t, err)
		seen := map[any]bool{}
		for i := 0; i < 200; i++ {
			action, err := a.Act(ctx, verbal.Observation{})
			require.NoError(t, err)
			n := action.(int)
			assert.GreaterOrEqual(t, n, 0)
			assert.Less(t, n, 4)
			seen[action] = true
		}
		assert.Len(t, seen, 4)
	})

	t.Run("seeded agents agree", func(t *testing.T) {
		a, err := NewRandom(10, WithSeed(7))
		require.NoError(t, err)
		b, err := NewRandom(10, WithSeed(7))
		require.NoError(t, err)
		for i := 0; i < 20; i++ {
			x, _ := a.Act(ctx, verbal.Observation{})
			y, _ := b.Act(ctx, verbal.Observation{})
			assert.Equal(t, x, y)
		}
	})

	t.Run("names and ids", func(t *testing.T) {
		a, err := NewRandom(2)
		require.NoError(t, err)
		assert.Equal(t, "random", a.Name())
		assert.Contains(t, a.GetID(), "agent-")

		a, err = NewRandom(2, WithName("baseline"), WithAgentID("a1"))
		require.NoError(t, err)
		assert.Equal(t, "baseline", a.Name())
		assert.Equal(t, "a1", a.GetID())
	})

	t.Run("cancelled context", func(t *testing.T) {
		a, err := NewRandom(2)
		require.NoError(t, err)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err = a.Act(cctx, verbal.Observation{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestForEnv(t *testing.T) {
	env, err := verbal.New(discreteBackend{n: 3}, verbal.Basic, feedback.Reward)
	require.NoError(t, err)

	a, err := ForEnv("random", env, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, a.(*Random).n)

	a, err = ForEnv("constant", env, map[string]any{"action": float64(2)})
	require.NoError(t, err)
	action, err := a.Act(context.Background(), verbal.Observation{})
	require.NoError(t, err)
	assert.Equal(t, 2, action)
	assert.NoError(t, a.Reset(context.Background()))

	_, err = ForEnv("constant", env, nil)
	assert.ErrorIs(t, err, ErrInvalidAgent)

	_, err = ForEnv("llm", env, nil)
	assert.ErrorIs(t, err, ErrInvalidAgent)

	plain, err := verbal.New(verbal.Unimplemented{}, verbal.Basic, feedback.Reward)
	require.NoError(t, err)
	_, err = ForEnv("random", plain, nil)
	assert.ErrorIs(t, err, ErrInvalidAgent)
}
