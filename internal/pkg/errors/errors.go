package errors

import "errors"

var (
	// ErrNotFound covers missing resources and resources owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when the caller identity cannot be established.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidInput is returned before any write when request fields are missing or malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPreconditionFailed means a stage was invoked before its prerequisite artifacts exist
	// or from a status that does not allow it.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrConflict means another call is already running a stage for the same generation.
	ErrConflict = errors.New("stage already in progress")
	// ErrModelUnavailable wraps transport failures, non-2xx responses and empty completions.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrModelResponseInvalid means the model answered but the content did not satisfy the
	// requested structure.
	ErrModelResponseInvalid = errors.New("model response invalid")
	// ErrValidationResponseMalformed is the pipeline-level kind for a verdict that could not
	// be parsed.
	ErrValidationResponseMalformed = errors.New("validation response malformed")
)
