package apierr

import (
	"errors"
	"fmt"
	"net/http"

	errs "github.com/yungbote/govgen-backend/internal/pkg/errors"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

var kinds = []struct {
	target error
	status int
	code   string
}{
	{errs.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{errs.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{errs.ErrNotFound, http.StatusNotFound, "not_found"},
	{errs.ErrConflict, http.StatusConflict, "stage_in_progress"},
	{errs.ErrPreconditionFailed, http.StatusPreconditionFailed, "precondition_failed"},
	{errs.ErrValidationResponseMalformed, http.StatusBadGateway, "validation_response_malformed"},
	{errs.ErrModelResponseInvalid, http.StatusBadGateway, "model_response_invalid"},
	{errs.ErrModelUnavailable, http.StatusBadGateway, "model_unavailable"},
}

// From maps an error to its HTTP status and code. An *Error already in the chain
// wins; unknown errors become 500 internal_error.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	for _, k := range kinds {
		if errors.Is(err, k.target) {
			return New(k.status, k.code, err)
		}
	}
	return New(http.StatusInternalServerError, "internal_error", err)
}
