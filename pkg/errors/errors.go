// Package errors provides structured error handling for cashgate.
// It defines sentinel errors, HTTP statuses, exit codes, and helpers for
// adding context, details, and suggestions to errors.
//
//nolint:revive // Package name intentionally shadows stdlib for domain-specific error handling
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// Exit codes for the CLI.
const (
	ExitSuccess  = 0 // Successful execution
	ExitGeneral  = 1 // General/unknown error
	ExitInput    = 2 // Invalid input
	ExitNotFound = 4 // Resource not found
	ExitNetwork  = 6 // Upstream unreachable
)

// GateError is the structured error type for cashgate.
type GateError struct {
	Code       string            // Machine-readable error code
	Message    string            // Human-readable message
	Details    map[string]string // Additional context
	Suggestion string            // Actionable suggestion for user
	Cause      error             // Underlying error
	Status     int               // HTTP status when returned by a route
	ExitCode   int               // Exit code for CLI
}

func (e *GateError) Error() string {
	msg := e.Message

	// Include details in error message (sorted for deterministic output)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			msg = fmt.Sprintf("%s (%s: %s)", msg, k, e.Details[k])
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *GateError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for GateError.
func (e *GateError) Is(target error) bool {
	var t *GateError
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinel errors.
var (
	ErrGeneral = &GateError{
		Code:     "GENERAL_ERROR",
		Message:  "an error occurred",
		Status:   http.StatusInternalServerError,
		ExitCode: ExitGeneral,
	}

	ErrInvalidInput = &GateError{
		Code:     "INVALID_INPUT",
		Message:  "invalid input",
		Status:   http.StatusBadRequest,
		ExitCode: ExitInput,
	}

	ErrEmptyInput = &GateError{
		Code:     "EMPTY_INPUT",
		Message:  "input can not be empty",
		Status:   http.StatusBadRequest,
		ExitCode: ExitInput,
	}

	ErrNotArray = &GateError{
		Code:     "NOT_ARRAY",
		Message:  "input needs to be an array",
		Status:   http.StatusBadRequest,
		ExitCode: ExitInput,
	}

	ErrArrayTooLarge = &GateError{
		Code:     "ARRAY_TOO_LARGE",
		Message:  "Array too large.",
		Status:   http.StatusTooManyRequests,
		ExitCode: ExitInput,
	}

	ErrInvalidAddress = &GateError{
		Code:     "INVALID_ADDRESS",
		Message:  "invalid address format",
		Status:   http.StatusBadRequest,
		ExitCode: ExitInput,
	}

	ErrInvalidChecksum = &GateError{
		Code:     "INVALID_CHECKSUM",
		Message:  "invalid address checksum",
		Status:   http.StatusBadRequest,
		ExitCode: ExitInput,
	}

	ErrUnsupportedVersion = &GateError{
		Code:     "UNSUPPORTED_VERSION",
		Message:  "unsupported address version",
		Status:   http.StatusBadRequest,
		ExitCode: ExitInput,
	}

	ErrInvalidNetwork = &GateError{
		Code:     "INVALID_NETWORK",
		Message:  "Invalid network. Trying to use a testnet address on mainnet, or vice versa.",
		Status:   http.StatusBadRequest,
		ExitCode: ExitInput,
	}

	ErrRateLimited = &GateError{
		Code:     "RATE_LIMITED",
		Message:  "Too many requests",
		Status:   http.StatusTooManyRequests,
		ExitCode: ExitGeneral,
	}

	ErrNotFound = &GateError{
		Code:     "NOT_FOUND",
		Message:  "Not Found",
		Status:   http.StatusNotFound,
		ExitCode: ExitNotFound,
	}

	ErrNetworkError = &GateError{
		Code:     "NETWORK_ERROR",
		Message:  "network communication failed",
		Status:   http.StatusServiceUnavailable,
		ExitCode: ExitNetwork,
	}

	ErrUpstream = &GateError{
		Code:     "UPSTREAM_ERROR",
		Message:  "upstream returned an error",
		Status:   http.StatusBadGateway,
		ExitCode: ExitGeneral,
	}

	ErrConfigNotFound = &GateError{
		Code:     "CONFIG_NOT_FOUND",
		Message:  "configuration file not found",
		Status:   http.StatusInternalServerError,
		ExitCode: ExitNotFound,
	}

	ErrConfigInvalid = &GateError{
		Code:     "CONFIG_INVALID",
		Message:  "configuration file is invalid",
		Status:   http.StatusInternalServerError,
		ExitCode: ExitInput,
	}

	ErrUnknownConfigKey = &GateError{
		Code:     "UNKNOWN_CONFIG_KEY",
		Message:  "unknown config key",
		Status:   http.StatusBadRequest,
		ExitCode: ExitInput,
	}
)

// New creates a new GateError with the given code and message.
func New(code, message string) *GateError {
	return &GateError{
		Code:     code,
		Message:  message,
		Status:   http.StatusInternalServerError,
		ExitCode: ExitGeneral,
	}
}

// Input creates a 400 error carrying a caller-facing message. The code of
// base is kept so errors.Is still matches the sentinel.
func Input(base *GateError, message string) *GateError {
	return &GateError{
		Code:     base.Code,
		Message:  message,
		Status:   base.Status,
		ExitCode: base.ExitCode,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	msg := fmt.Sprintf(format, args...)

	var ge *GateError
	if errors.As(err, &ge) {
		return &GateError{
			Code:       ge.Code,
			Message:    fmt.Sprintf("%s: %s", msg, ge.Message),
			Details:    ge.Details,
			Suggestion: ge.Suggestion,
			Cause:      err,
			Status:     ge.Status,
			ExitCode:   ge.ExitCode,
		}
	}

	return &GateError{
		Code:     "GENERAL_ERROR",
		Message:  msg,
		Cause:    err,
		Status:   http.StatusInternalServerError,
		ExitCode: ExitGeneral,
	}
}

// WithDetails adds details to an error.
func WithDetails(err error, details map[string]string) error {
	if err == nil {
		return nil
	}

	var ge *GateError
	if errors.As(err, &ge) {
		return &GateError{
			Code:       ge.Code,
			Message:    ge.Message,
			Details:    details,
			Suggestion: ge.Suggestion,
			Cause:      ge.Cause,
			Status:     ge.Status,
			ExitCode:   ge.ExitCode,
		}
	}

	return &GateError{
		Code:     "GENERAL_ERROR",
		Message:  err.Error(),
		Details:  details,
		Cause:    err,
		Status:   http.StatusInternalServerError,
		ExitCode: ExitGeneral,
	}
}

// WithSuggestion adds a suggestion to an error.
func WithSuggestion(err error, suggestion string) error {
	if err == nil {
		return nil
	}

	var ge *GateError
	if errors.As(err, &ge) {
		return &GateError{
			Code:       ge.Code,
			Message:    ge.Message,
			Details:    ge.Details,
			Suggestion: suggestion,
			Cause:      ge.Cause,
			Status:     ge.Status,
			ExitCode:   ge.ExitCode,
		}
	}

	return &GateError{
		Code:       "GENERAL_ERROR",
		Message:    err.Error(),
		Suggestion: suggestion,
		Cause:      err,
		Status:     http.StatusInternalServerError,
		ExitCode:   ExitGeneral,
	}
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ge *GateError
	if errors.As(err, &ge) {
		return ge.ExitCode
	}

	return ExitGeneral
}

// HTTPStatus returns the HTTP status for an error, 500 when unknown.
func HTTPStatus(err error) int {
	var ge *GateError
	if errors.As(err, &ge) && ge.Status != 0 {
		return ge.Status
	}
	return http.StatusInternalServerError
}

// Code returns the error code for an error.
func Code(err error) string {
	var ge *GateError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return "GENERAL_ERROR"
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target any) bool {
	return errors.As(err, target)
}
