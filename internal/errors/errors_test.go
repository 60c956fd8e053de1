package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestDomainError_Error(t *testing.T) {
	err := NewDomainError("TEST_CODE", "test message")
	if err.Error() != "test message" {
		t.Errorf("Expected 'test message', got %s", err.Error())
	}

	wrapped := WrapError(err, errors.New("db down"))
	if wrapped.Error() != "test message: db down" {
		t.Errorf("Expected wrapped message, got %s", wrapped.Error())
	}
}

func TestWrapError_PreservesIdentity(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := WrapError(ErrInternal, cause)

	if !errors.Is(wrapped, cause) {
		t.Error("Expected errors.Is to find the cause")
	}

	var domainErr *DomainError
	if !errors.As(wrapped, &domainErr) {
		t.Fatal("Expected errors.As to find a DomainError")
	}
	if domainErr.Code != "INTERNAL_ERROR" {
		t.Errorf("Expected code INTERNAL_ERROR, got %s", domainErr.Code)
	}
}

func TestToHTTPStatus(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{nil, http.StatusOK},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrAlreadyVerified, http.StatusBadRequest},
		{ErrTokenExpired, http.StatusBadRequest},
		{ErrUnknownRole, http.StatusBadRequest},
		{ErrLastRole, http.StatusBadRequest},
		{ErrUnsupportedProvider, http.StatusBadRequest},
		{ErrOAuthEmailMissing, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{ErrInvalidToken, http.StatusUnauthorized},
		{ErrInvalidRefreshToken, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrEmailNotVerified, http.StatusForbidden},
		{ErrAccountBanned, http.StatusForbidden},
		{ErrUserNotFound, http.StatusNotFound},
		{ErrTokenNotFound, http.StatusNotFound},
		{ErrRoleNotAssigned, http.StatusNotFound},
		{ErrEmailExists, http.StatusConflict},
		{ErrRoleExists, http.StatusConflict},
		{ErrServiceUnavailable, http.StatusServiceUnavailable},
		{ErrInternal, http.StatusInternalServerError},
		{errors.New("plain error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := ToHTTPStatus(tt.err); got != tt.expected {
			t.Errorf("ToHTTPStatus(%v) = %d, want %d", tt.err, got, tt.expected)
		}
	}
}

func TestToHTTPStatus_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", WrapError(ErrEmailExists, errors.New("duplicate key")))
	if got := ToHTTPStatus(wrapped); got != http.StatusConflict {
		t.Errorf("Expected wrapped domain error to map to 409, got %d", got)
	}
}

func TestGetErrorMessage(t *testing.T) {
	if msg := GetErrorMessage(nil); msg != "" {
		t.Errorf("Expected empty message for nil, got %q", msg)
	}

	// Domain errors hide the wrapped cause from clients
	wrapped := WrapError(ErrInternal, errors.New("password column leaked"))
	if msg := GetErrorMessage(wrapped); msg != "internal server error" {
		t.Errorf("Expected sanitized message, got %q", msg)
	}

	if msg := GetErrorMessage(errors.New("plain")); msg != "plain" {
		t.Errorf("Expected plain message, got %q", msg)
	}
}

func TestIsDomainError(t *testing.T) {
	if !IsDomainError(ErrUserNotFound) {
		t.Error("Expected predeclared error to be a domain error")
	}
	if IsDomainError(errors.New("plain")) {
		t.Error("Expected plain error to not be a domain error")
	}
	if GetDomainError(errors.New("plain")) != nil {
		t.Error("Expected nil domain error for plain error")
	}
}
