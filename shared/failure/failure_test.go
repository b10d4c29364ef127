package failure_test

import (
	"errors"
	"net/http"
	"testing"

	"motel/shared/failure"
)

func TestFailure_Error(t *testing.T) {
	f := &failure.Failure{
		Code:    http.StatusBadRequest,
		Message: "test error message",
	}

	if f.Error() != "test error message" {
		t.Errorf("expected error message to be 'test error message', got %s", f.Error())
	}
}

func TestBadRequest(t *testing.T) {
	tests := []struct {
		name     string
		input    error
		expected error
	}{
		{
			name:     "with error",
			input:    errors.New("validation failed"),
			expected: &failure.Failure{Code: http.StatusBadRequest, Message: "validation failed"},
		},
		{
			name:     "with nil error",
			input:    nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := failure.BadRequest(tt.input)

			if tt.expected == nil {
				if result != nil {
					t.Errorf("expected nil, got %v", result)
				}

				return
			}

			f, ok := result.(*failure.Failure)
			if !ok {
				t.Fatalf("expected result to be *failure.Failure, got %T", result)
			}

			expectedF := tt.expected.(*failure.Failure)
			if f.Code != expectedF.Code || f.Message != expectedF.Message {
				t.Errorf("expected %+v, got %+v", expectedF, f)
			}
		})
	}
}

func TestKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{name: "not found", err: failure.NotFound("room not found"), code: http.StatusNotFound},
		{name: "invalid state", err: failure.InvalidState("room is not available"), code: http.StatusConflict},
		{name: "validation", err: failure.BadRequestFromString("hours is required"), code: http.StatusBadRequest},
		{name: "unauthorized", err: failure.Unauthorized("token expired"), code: http.StatusUnauthorized},
		{name: "internal", err: failure.InternalError(errors.New("boom")), code: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := failure.GetCode(tt.err); got != tt.code {
				t.Errorf("expected code %d, got %d", tt.code, got)
			}

			if !failure.IsKind(tt.err, tt.code) {
				t.Errorf("expected IsKind to match code %d", tt.code)
			}
		})
	}
}

func TestGetCode_PlainError(t *testing.T) {
	if got := failure.GetCode(errors.New("plain")); got != http.StatusInternalServerError {
		t.Errorf("expected plain errors to map to 500, got %d", got)
	}
}
