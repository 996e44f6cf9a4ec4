package openai

import (
	"fmt"

	errs "github.com/yungbote/govgen-backend/internal/pkg/errors"
)

type ErrorKind string

const (
	KindModelUnavailable     ErrorKind = "model_unavailable"
	KindModelResponseInvalid ErrorKind = "model_response_invalid"
)

// Error is returned by every failed completion. It matches
// errs.ErrModelUnavailable or errs.ErrModelResponseInvalid under errors.Is.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	// Raw is the model content (for invalid responses) or the upstream body.
	Raw string
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s (http %d): %v", e.Kind, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindModelUnavailable:
		return target == errs.ErrModelUnavailable
	case KindModelResponseInvalid:
		return target == errs.ErrModelResponseInvalid
	}
	return false
}

func (e *Error) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func unavailable(status int, body string, err error) *Error {
	return &Error{Kind: KindModelUnavailable, StatusCode: status, Raw: body, Err: err}
}

func invalid(raw string, err error) *Error {
	return &Error{Kind: KindModelResponseInvalid, Raw: raw, Err: err}
}

// ErrNoMessages is returned for a request with no messages. The model is
// never called; the error matches both errs.ErrModelUnavailable and
// errs.ErrInvalidInput.
func ErrNoMessages() *Error {
	return &Error{Kind: KindModelUnavailable, Err: fmt.Errorf("no messages: %w", errs.ErrInvalidInput)}
}
