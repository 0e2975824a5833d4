package verbal

import (
	"context"

	"github.com/boristopalov/verbalgym/pkg/feedback"
)

// Backend adapts one family of underlying environments to the verbal
// protocol. Reset must return an envelope without feedback and with an
// instruction; Step fills Envelope.Feedback according to env.FeedbackType().
type Backend interface {
	// InstructionTypes lists the instruction types this backend can produce.
	InstructionTypes() []InstructionType
	// FeedbackTypes lists the feedback types this backend can be configured with.
	FeedbackTypes() []feedback.Type
	// Reset starts a new episode.
	Reset(ctx context.Context, env *Env, seed *int64, options Options) (Envelope, Info, error)
	// Step applies action to the underlying environment.
	Step(ctx context.Context, env *Env, action Action) (Outcome, error)
}

// FeedbackVerbalizer may be implemented by a Backend to replace the default
// space-joined rendering of a feedback record.
type FeedbackVerbalizer interface {
	VerbalizeFeedback(f *feedback.Feedback) string
}

// DiscreteActions may be implemented by a Backend whose actions are the
// integers [0, NumActions()).
type DiscreteActions interface {
	NumActions() int
}

// Unimplemented can be embedded in a Backend. It declares every instruction
// and feedback type and fails Reset and Step with ErrNotImplemented.
type Unimplemented struct{}

func (Unimplemented) InstructionTypes() []InstructionType {
	return AllInstructionTypes
}

func (Unimplemented) FeedbackTypes() []feedback.Type {
	return feedback.All
}

func (Unimplemented) Reset(context.Context, *Env, *int64, Options) (Envelope, Info, error) {
	return Envelope{}, nil, ErrNotImplemented
}

func (Unimplemented) Step(context.Context, *Env, Action) (Outcome, error) {
	return Outcome{}, ErrNotImplemented
}
