package paraphrase

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectFixedIndex(t *testing.T) {
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		got, err := Select(ctx, []string{"A {x}", "B {x}"}, Index(1), nil, Args{"x": "z"})
		require.NoError(t, err)
		assert.Equal(t, "B z", got)
	}
}

func TestSelectRandom(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	templates := []string{"A {x}", "B {x}", "C {x}"}

	seen := make(map[string]int)
	for i := 0; i < 300; i++ {
		got, err := Select(ctx, templates, Random(), rng, Args{"x": "1"})
		require.NoError(t, err)
		seen[got]++
	}
	assert.Len(t, seen, 3)
	for _, want := range []string{"A 1", "B 1", "C 1"} {
		assert.Greater(t, seen[want], 50, want)
	}
}

func TestSelectRandomIsReproducible(t *testing.T) {
	ctx := context.Background()
	templates := []string{"a", "b", "c", "d"}

	draw := func() []string {
		rng := rand.New(rand.NewSource(42))
		var out []string
		for i := 0; i < 10; i++ {
			s, err := Select(ctx, templates, Random(), rng, nil)
			require.NoError(t, err)
			out = append(out, s)
		}
		return out
	}
	assert.Equal(t, draw(), draw())
}

func TestSelectOverride(t *testing.T) {
	ctx := context.Background()
	var gotTemplates []string
	var gotArgs Args
	m := Override(func(_ context.Context, templates []string, args Args) (string, error) {
		gotTemplates, gotArgs = templates, args
		return "{untouched}", nil
	})

	got, err := Select(ctx, []string{"A {x}"}, m, nil, Args{"x": "z"})
	require.NoError(t, err)
	assert.Equal(t, "{untouched}", got)
	assert.Equal(t, []string{"A {x}"}, gotTemplates)
	assert.Equal(t, Args{"x": "z"}, gotArgs)

	boom := errors.New("boom")
	_, err = Select(ctx, nil, Override(func(context.Context, []string, Args) (string, error) {
		return "", boom
	}), nil, nil)
	assert.ErrorIs(t, err, boom)
}

func TestSelectErrors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		templates []string
		method    Method
		args      Args
		wantErr   error
	}{
		{"missing key", []string{"A {x} {y}"}, Index(0), Args{"x": "1"}, ErrFormatting},
		{"index out of range", []string{"A"}, Index(1), nil, ErrInvalidMethod},
		{"negative index", []string{"A"}, Index(-1), nil, ErrInvalidMethod},
		{"nil override", []string{"A"}, Override(nil), nil, ErrInvalidMethod},
		{"no templates random", nil, Random(), nil, ErrNoTemplates},
		{"no templates index", []string{}, Index(0), nil, ErrNoTemplates},
		{"unterminated placeholder", []string{"A {x"}, Index(0), Args{"x": "1"}, ErrFormatting},
		{"stray closing brace", []string{"A }"}, Index(0), nil, ErrFormatting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Select(ctx, tt.templates, tt.method, nil, tt.args)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFormatErrorCarriesKey(t *testing.T) {
	_, err := Render("Pull arm {arm}.", Args{})
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "arm", fe.Key)
	assert.Equal(t, "Pull arm {arm}.", fe.Template)
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		template string
		args     Args
		want     string
	}{
		{"no placeholders", "plain text", nil, "plain text"},
		{"repeated placeholder", "{a} and {a}", Args{"a": "x"}, "x and x"},
		{"escaped braces", "{{literal}} {a}", Args{"a": "x"}, "{literal} x"},
		{"extra args ignored", "{a}", Args{"a": "x", "b": "y"}, "x"},
		{"empty value", "[{a}]", Args{"a": ""}, "[]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.template, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReformat(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		original  string
		templates []string
		method    Method
		template  string
		want      string
	}{
		{
			name:      "no match passes through",
			original:  "hello world",
			templates: []string{"X {y}"},
			method:    Index(0),
			want:      "hello world",
		},
		{
			name:      "first match replaced everywhere, others untouched",
			original:  "This is an apple. This is a banana. This is an apple.",
			templates: []string{"This is not an {fruit}."},
			method:    Index(0),
			template:  "This is an {fruit}.",
			want:      "This is not an apple. This is a banana. This is not an apple.",
		},
		{
			name:      "only the first instantiation is rewritten",
			original:  "This is an apple. This is an orange. This is an apple.",
			templates: []string{"This is an {fruit}.", "Here is an {fruit}."},
			method:    Index(1),
			want:      "Here is an apple. This is an orange. Here is an apple.",
		},
		{
			name:      "template defaults to first template",
			original:  "Goal: reach 5. Goal: reach 5.",
			templates: []string{"Goal: reach {n}.", "Target: get to {n}."},
			method:    Index(1),
			want:      "Target: get to 5. Target: get to 5.",
		},
		{
			name:      "search ignores case but replacement is literal",
			original:  "THIS IS AN apple.",
			templates: []string{"Not an {fruit}."},
			method:    Index(0),
			template:  "This is an {fruit}.",
			want:      "THIS IS AN apple.",
		},
		{
			name:      "trailing placeholder captures lazily",
			original:  "X yz",
			templates: []string{"X {y}", "Q {y}"},
			method:    Index(1),
			want:      "Q yz",
		},
		{
			name:      "repeated field must agree",
			original:  "a-b a-a",
			templates: []string{"{v}-{v}", "<{v}>"},
			method:    Index(1),
			want:      "a-b <a>",
		},
		{
			name:      "repeated field grows until both uses agree",
			original:  "x-y-x-y",
			templates: []string{"{v}-{v}", "<{v}>"},
			method:    Index(1),
			want:      "<x-y>",
		},
		{
			name:      "repeated field with surrounding text",
			original:  "Step: go up, then up. Step: go up, then down.",
			templates: []string{"go {d}, then {d}.", "head {d} twice."},
			method:    Index(1),
			want:      "Step: head up twice. Step: go up, then down.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Reformat(ctx, tt.original, tt.templates, tt.method, nil, tt.template)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReformatErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Reformat(ctx, "anything", nil, Random(), nil, "")
	assert.ErrorIs(t, err, ErrNoTemplates)

	// The paraphrase needs a key the locating template never captures.
	_, err = Reformat(ctx, "This is an apple.", []string{"This is a {color} {fruit}."}, Index(0), nil, "This is an {fruit}.")
	assert.ErrorIs(t, err, ErrFormatting)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("random")
	require.NoError(t, err)
	assert.True(t, m.IsRandom())

	m, err = ParseMethod("3")
	require.NoError(t, err)
	n, ok := m.FixedIndex()
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	assert.Equal(t, "3", m.String())

	_, err = ParseMethod("-1")
	assert.ErrorIs(t, err, ErrInvalidMethod)
	_, err = ParseMethod("llm")
	assert.ErrorIs(t, err, ErrInvalidMethod)

	var zero Method
	assert.True(t, zero.IsRandom())
	assert.NoError(t, zero.Validate())
}
