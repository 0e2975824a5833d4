// Package envs holds the built-in verbal environments and a registry that
// creates them from names of the form
//
//	<base>-<instruction>-<feedback>-v<N>
//
// where instruction is one of b, p, c and feedback is one of m, n, r, hp,
// hn, fp, fn. "bandit-b-r-v0" is the basic-instruction bandit with reward
// feedback.
package envs

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/boristopalov/verbalgym/pkg/feedback"
	"github.com/boristopalov/verbalgym/pkg/verbal"
)

var (
	ErrUnknownEnv  = errors.New("unknown environment")
	ErrInvalidName = errors.New("invalid environment name")
)

// Factory builds a fresh backend.
type Factory func() (verbal.Backend, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

func init() {
	MustRegister("bandit", 0, func() (verbal.Backend, error) { return NewBandit(10) })
	MustRegister("bandit5", 0, func() (verbal.Backend, error) { return NewBandit(5) })
	MustRegister("linewalk", 0, func() (verbal.Backend, error) { return NewLineWalk(7, 20) })
}

// Name is a parsed environment name.
type Name struct {
	Base            string
	InstructionType verbal.InstructionType
	FeedbackType    feedback.Type
	Version         int
}

func (n Name) key() string {
	return fmt.Sprintf("%s-v%d", n.Base, n.Version)
}

func (n Name) String() string {
	return fmt.Sprintf("%s-%s-%s-v%d", n.Base, n.InstructionType.Short(), n.FeedbackType.Short(), n.Version)
}

// ParseName splits an environment name into its parts.
func ParseName(s string) (Name, error) {
	parts := strings.Split(s, "-")
	if len(parts) < 4 {
		return Name{}, fmt.Errorf("%w: %q", ErrInvalidName, s)
	}
	n := len(parts)
	if strings.Join(parts[:n-3], "") == "" {
		return Name{}, fmt.Errorf("%w: %q has no base", ErrInvalidName, s)
	}
	version := parts[n-1]
	if !strings.HasPrefix(version, "v") {
		return Name{}, fmt.Errorf("%w: %q has no version suffix", ErrInvalidName, s)
	}
	v, err := strconv.Atoi(version[1:])
	if err != nil || v < 0 {
		return Name{}, fmt.Errorf("%w: %q has a bad version", ErrInvalidName, s)
	}
	it, err := verbal.ParseInstructionType(parts[n-3])
	if err != nil {
		return Name{}, fmt.Errorf("%w: %q: %w", ErrInvalidName, s, err)
	}
	ft, err := feedback.Parse(parts[n-2])
	if err != nil {
		return Name{}, fmt.Errorf("%w: %q: %w", ErrInvalidName, s, err)
	}
	return Name{
		Base:            strings.Join(parts[:n-3], "-"),
		InstructionType: it,
		FeedbackType:    ft,
		Version:         v,
	}, nil
}

// Register adds a backend factory under base and version.
func Register(base string, version int, f Factory) error {
	if base == "" || f == nil {
		return fmt.Errorf("%w: empty base or nil factory", ErrInvalidName)
	}
	key := Name{Base: base, Version: version}.key()
	mu.Lock()
	defer mu.Unlock()
	if _, ok := registry[key]; ok {
		return fmt.Errorf("environment %s already registered", key)
	}
	registry[key] = f
	return nil
}

// MustRegister is Register that panics on error.
func MustRegister(base string, version int, f Factory) {
	if err := Register(base, version, f); err != nil {
		panic(err)
	}
}

// Make creates the environment named s. opts are passed to verbal.New after
// the name option, so they may override it.
func Make(s string, opts ...verbal.Option) (*verbal.Env, error) {
	name, err := ParseName(s)
	if err != nil {
		return nil, err
	}
	mu.RLock()
	f, ok := registry[name.key()]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEnv, s)
	}
	backend, err := f()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", s, err)
	}
	opts = append([]verbal.Option{verbal.WithName(name.String())}, opts...)
	return verbal.New(backend, name.InstructionType, name.FeedbackType, opts...)
}

// Names lists every registered environment name, expanded over the
// instruction and feedback types each backend supports.
func Names() []string {
	mu.RLock()
	keys := make([]string, 0, len(registry))
	factories := make(map[string]Factory, len(registry))
	for k, f := range registry {
		keys = append(keys, k)
		factories[k] = f
	}
	mu.RUnlock()
	sort.Strings(keys)

	var names []string
	for _, k := range keys {
		backend, err := factories[k]()
		if err != nil {
			continue
		}
		i := strings.LastIndex(k, "-v")
		base, version := k[:i], k[i+1:]
		for _, it := range backend.InstructionTypes() {
			for _, ft := range backend.FeedbackTypes() {
				names = append(names, fmt.Sprintf("%s-%s-%s-%s", base, it.Short(), ft.Short(), version))
			}
		}
	}
	return names
}
