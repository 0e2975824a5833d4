package verbal

import (
	"fmt"
	"strings"

	"github.com/boristopalov/verbalgym/pkg/feedback"
)

// InstructionType describes how much prior information an instruction carries.
type InstructionType string

const (
	// Basic instructions state the goal, syntax and action space.
	Basic InstructionType = "basic"
	// Partial instructions add offline data such as example observations and feedback.
	Partial InstructionType = "partial"
	// Complete instructions carry enough to infer the optimal policy.
	Complete InstructionType = "complete"
)

// AllInstructionTypes lists every instruction type.
var AllInstructionTypes = []InstructionType{Basic, Partial, Complete}

// ParseInstructionType accepts "basic"/"partial"/"complete" or "b"/"p"/"c".
func ParseInstructionType(s string) (InstructionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "b", "basic":
		return Basic, nil
	case "p", "partial":
		return Partial, nil
	case "c", "complete":
		return Complete, nil
	}
	return "", fmt.Errorf("%w: unknown instruction type %q", ErrInvalidConfiguration, s)
}

// Short returns the one-letter code used in environment names.
func (t InstructionType) Short() string {
	if t == "" {
		return ""
	}
	return string(t[0])
}

// Action is whatever the backend accepts as an action, typically an int.
type Action = any

// Info carries auxiliary per-call data from the backend.
type Info = map[string]any

// Options are passed through to the backend on reset.
type Options = map[string]any

// Envelope is what a backend produces on reset and step. Feedback is nil
// when absent.
type Envelope struct {
	Instruction *string
	Observation any
	Feedback    *feedback.Feedback
}

// Observation is what the wrapper hands to the agent. Feedback holds the
// verbalized feedback text, or nil when absent.
type Observation struct {
	Instruction *string
	Observation any
	Feedback    *string
}

// Outcome is a backend's result for one step.
type Outcome struct {
	Envelope  Envelope
	Reward    float64
	Terminal  bool
	Truncated bool
	Info      Info
}

// StepResult is the wrapper's result for one step.
type StepResult struct {
	Observation Observation
	Reward      float64
	Terminal    bool
	Truncated   bool
	Info        Info
}

// Done reports whether the episode has ended.
func (r StepResult) Done() bool {
	return r.Terminal || r.Truncated
}

// String returns a pointer to s, for populating Envelope.Instruction.
func String(s string) *string {
	return &s
}
