package feedback

import (
	"fmt"
	"sort"
	"strings"
)

// Type is a feedback dialect, or one of the aggregate selectors Mixture and None.
type Type string

const (
	Mixture           Type = "mixture"
	None              Type = "none"
	Reward            Type = "reward"
	HindsightPositive Type = "hindsight_positive"
	HindsightNegative Type = "hindsight_negative"
	FuturePositive    Type = "future_positive"
	FutureNegative    Type = "future_negative"
)

// All lists every feedback type in declaration order.
var All = []Type{Mixture, None, Reward, HindsightPositive, HindsightNegative, FuturePositive, FutureNegative}

var shortCodes = map[Type]string{
	Mixture:           "m",
	None:              "n",
	Reward:            "r",
	HindsightPositive: "hp",
	HindsightNegative: "hn",
	FuturePositive:    "fp",
	FutureNegative:    "fn",
}

// Parse accepts either the long name ("hindsight_positive") or the short
// code used in environment names ("hp").
func Parse(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, code := range shortCodes {
		if s == string(t) || s == code {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown feedback type %q", s)
}

func (t Type) String() string {
	return string(t)
}

// Short returns the code used in environment names, e.g. "fn".
func (t Type) Short() string {
	return shortCodes[t]
}

// Valid reports whether t is one of the known types.
func (t Type) Valid() bool {
	_, ok := shortCodes[t]
	return ok
}

// Aggregate reports whether t selects other dialects rather than being one.
func (t Type) Aggregate() bool {
	return t == Mixture || t == None
}

// Set is the effective set of dialects used on one step.
type Set map[Type]struct{}

// NewSet builds a set from the given types.
func NewSet(types ...Type) Set {
	s := make(Set, len(types))
	for _, t := range types {
		s[t] = struct{}{}
	}
	return s
}

func (s Set) Has(t Type) bool {
	_, ok := s[t]
	return ok
}

func (s Set) Len() int {
	return len(s)
}

// Sorted returns the members in declaration order.
func (s Set) Sorted() []Type {
	out := make([]Type, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return index(out[i]) < index(out[j])
	})
	return out
}

func (s Set) String() string {
	types := s.Sorted()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.Short()
	}
	return "{" + strings.Join(names, ",") + "}"
}

func index(t Type) int {
	for i, a := range All {
		if a == t {
			return i
		}
	}
	return len(All)
}
