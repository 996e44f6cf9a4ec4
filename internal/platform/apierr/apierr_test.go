package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	errs "github.com/yungbote/govgen-backend/internal/pkg/errors"
)

func TestFromMapsKinds(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("title: %w", errs.ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
		{errs.ErrNotFound, http.StatusNotFound, "not_found"},
		{fmt.Errorf("generate: %w", errs.ErrPreconditionFailed), http.StatusPreconditionFailed, "precondition_failed"},
		{errs.ErrConflict, http.StatusConflict, "stage_in_progress"},
		{fmt.Errorf("complete: %w", errs.ErrModelUnavailable), http.StatusBadGateway, "model_unavailable"},
		{errs.ErrValidationResponseMalformed, http.StatusBadGateway, "validation_response_malformed"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		got := From(tc.err)
		if got.Status != tc.status || got.Code != tc.code {
			t.Fatalf("From(%v): want=%d/%s got=%d/%s", tc.err, tc.status, tc.code, got.Status, got.Code)
		}
		if !errors.Is(got, tc.err) {
			t.Fatalf("From(%v): lost wrapped error", tc.err)
		}
	}
}

func TestFromKeepsExplicitError(t *testing.T) {
	explicit := New(http.StatusTeapot, "teapot", errs.ErrNotFound)
	if got := From(fmt.Errorf("wrapped: %w", explicit)); got != explicit {
		t.Fatalf("From: want explicit error got=%v", got)
	}
	if From(nil) != nil {
		t.Fatalf("From(nil): want nil")
	}
}
