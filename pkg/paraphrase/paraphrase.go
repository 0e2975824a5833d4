// Package paraphrase selects one rendering out of a set of paraphrased text
// templates, and rewrites a recurring phrase inside a longer text with a
// paraphrase of it.
//
// Templates use named placeholders: "You chose arm {arm}." Literal braces are
// written "{{" and "}}".
package paraphrase

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
)

// Select picks one template according to m and renders args into it.
// An Override method receives templates and args untouched and its result is
// returned without further processing. A nil rng falls back to the
// process-wide math/rand source.
func Select(ctx context.Context, templates []string, m Method, rng *rand.Rand, args Args) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}

	var template string
	switch m.kind {
	case kindOverride:
		return m.override(ctx, templates, args)
	case kindRandom:
		if len(templates) == 0 {
			return "", ErrNoTemplates
		}
		if rng != nil {
			template = templates[rng.Intn(len(templates))]
		} else {
			template = templates[rand.Intn(len(templates))]
		}
	case kindIndex:
		if len(templates) == 0 {
			return "", ErrNoTemplates
		}
		if m.index >= len(templates) {
			return "", fmt.Errorf("%w: index %d out of range for %d templates", ErrInvalidMethod, m.index, len(templates))
		}
		template = templates[m.index]
	}
	return Render(template, args)
}

// Reformat finds the first instantiation of template inside original, renders
// a paraphrase of it with Select, and replaces every verbatim occurrence of
// that first instantiation. Other instantiations with different values are
// left alone. When template is empty, templates[0] is used. If nothing
// matches, original is returned unchanged.
func Reformat(ctx context.Context, original string, templates []string, m Method, rng *rand.Rand, template string) (string, error) {
	if template == "" {
		if len(templates) == 0 {
			return "", ErrNoTemplates
		}
		template = templates[0]
	}

	mt, err := compileMatcher(template)
	if err != nil {
		return "", err
	}
	values, ok := mt.search(original)
	if !ok {
		return original, nil
	}

	old, err := Render(template, values)
	if err != nil {
		return "", err
	}
	replacement, err := Select(ctx, templates, m, rng, values)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(original, old, replacement), nil
}
