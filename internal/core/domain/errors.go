// Package domain defines the core domain models for the dxshell controller.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a controller error with a structured error code.
// Codes have the form DX-<AREA>-<NNNN>.
type DomainError struct {
	Code    string // Error code (e.g., "DX-REG-4010")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += " (" + e.Cause.Error() + ")"
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches another DomainError by code, so errors.Is works against the sentinels below.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Network Errors (NET)
// ============================================================================

var (
	// ErrNetwork folds transport failures and unparseable responses into one error.
	ErrNetwork = NewDomainError("DX-NET-5020", "network request failed")
)

// ============================================================================
// Registration Errors (REG)
// ============================================================================

var (
	// ErrRegistrationRejected indicates the server did not answer Result=Success.
	ErrRegistrationRejected = NewDomainError("DX-REG-4010", "device registration rejected")

	// ErrRegistrationNetwork indicates the handshake never got a usable answer.
	ErrRegistrationNetwork = NewDomainError("DX-REG-5020", "device registration network failure")
)

// ============================================================================
// Push Registration Errors (PUSH)
// ============================================================================

var (
	// ErrPushMissing indicates no push registration id was supplied.
	ErrPushMissing = NewDomainError("DX-PUSH-4000", "no registration id provided")

	// ErrPushRejected indicates the server did not accept the push registration.
	ErrPushRejected = NewDomainError("DX-PUSH-4010", "push registration rejected")

	// ErrPushAlreadyRegistered indicates a push registration was already recorded.
	// Callers treat it as success.
	ErrPushAlreadyRegistered = NewDomainError("DX-PUSH-2080", "already registered")
)

// ============================================================================
// Navigation Errors (NAV)
// ============================================================================

var (
	// ErrInvalidTransition indicates a user action that the current screen does not offer.
	ErrInvalidTransition = NewDomainError("DX-NAV-4090", "transition not allowed from current screen")

	// ErrNoNavigationHandle indicates no screen has attached a navigation handle yet.
	ErrNoNavigationHandle = NewDomainError("DX-NAV-5030", "no navigation handle attached")

	// ErrSuperseded indicates a handshake finished after the screen had already changed.
	ErrSuperseded = NewDomainError("DX-NAV-4091", "result discarded, screen changed")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrStorageRead indicates the durable store could not be read.
	ErrStorageRead = NewDomainError("DX-SYS-5001", "storage read error")

	// ErrStorageWrite indicates the durable store could not be written.
	ErrStorageWrite = NewDomainError("DX-SYS-5002", "storage write error")

	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("DX-ARG-1001", "invalid argument")
)

// IsSoft reports whether err is an outcome that callers treat as success.
func IsSoft(err error) bool {
	return errors.Is(err, ErrPushAlreadyRegistered)
}
