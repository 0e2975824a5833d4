package verbal

import (
	"errors"

	"github.com/boristopalov/verbalgym/pkg/paraphrase"
)

// Sentinel errors returned by the wrapper. Match them with errors.Is.
var (
	// ErrContractViolation indicates an envelope that breaks the reset/step
	// observation contract, or a step taken outside of a running episode.
	ErrContractViolation = errors.New("observation contract violation")

	// ErrUnsupportedFeedbackType indicates a declared or effective feedback
	// dialect the backend does not support.
	ErrUnsupportedFeedbackType = errors.New("unsupported feedback type")

	// ErrInvalidConfiguration indicates an invalid instruction type or
	// paraphrase method.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrFormatting indicates a template referenced an argument that was not supplied.
	ErrFormatting = paraphrase.ErrFormatting

	// ErrNotImplemented is returned by Unimplemented when a backend does not
	// provide Reset or Step.
	ErrNotImplemented = errors.New("not implemented")
)
