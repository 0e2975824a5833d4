package paraphrase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// OverrideFunc fully replaces template selection and rendering.
type OverrideFunc func(ctx context.Context, templates []string, args Args) (string, error)

type methodKind int

const (
	kindRandom methodKind = iota
	kindIndex
	kindOverride
)

// Method chooses how one rendering is picked from a set of paraphrased
// templates. The zero value is Random.
type Method struct {
	kind     methodKind
	index    int
	override OverrideFunc
}

// Random picks a template uniformly at random on every call.
func Random() Method {
	return Method{kind: kindRandom}
}

// Index always picks templates[n].
func Index(n int) Method {
	return Method{kind: kindIndex, index: n}
}

// Override hands the templates and arguments to fn and returns its result as is.
func Override(fn OverrideFunc) Method {
	return Method{kind: kindOverride, override: fn}
}

// ParseMethod reads a method from configuration text: "random" or an integer index.
func ParseMethod(s string) (Method, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "random") || s == "" {
		return Random(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Method{}, fmt.Errorf("%w: %q is neither \"random\" nor an integer", ErrInvalidMethod, s)
	}
	m := Index(n)
	if err := m.Validate(); err != nil {
		return Method{}, err
	}
	return m, nil
}

// Validate rejects negative indices and nil overrides.
func (m Method) Validate() error {
	switch m.kind {
	case kindRandom:
		return nil
	case kindIndex:
		if m.index < 0 {
			return fmt.Errorf("%w: negative index %d", ErrInvalidMethod, m.index)
		}
		return nil
	case kindOverride:
		if m.override == nil {
			return fmt.Errorf("%w: nil override function", ErrInvalidMethod)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidMethod, m.kind)
	}
}

// IsRandom reports whether m draws templates at random.
func (m Method) IsRandom() bool {
	return m.kind == kindRandom
}

// IsOverride reports whether m delegates to a caller function.
func (m Method) IsOverride() bool {
	return m.kind == kindOverride
}

// FixedIndex returns the index of an Index method.
func (m Method) FixedIndex() (int, bool) {
	return m.index, m.kind == kindIndex
}

func (m Method) String() string {
	switch m.kind {
	case kindIndex:
		return strconv.Itoa(m.index)
	case kindOverride:
		return "override"
	default:
		return "random"
	}
}
