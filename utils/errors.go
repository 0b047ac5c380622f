package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds used across the payment saga. Callers branch on these instead
// of parsing message strings.
const (
	KindValidation          = "validation"
	KindNotFound            = "not_found"
	KindConflict            = "conflict"
	KindProviderUnavailable = "provider_unavailable"
	KindProviderRejected    = "provider_rejected"
	KindSignatureInvalid    = "signature_invalid"
	KindCRMFailure          = "crm_failure"
	KindInternal            = "internal"
)

// AppError represents an application error
type AppError struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError
func NewAppError(code int, kind, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// ValidationErr creates a 400-equivalent bad input error
func ValidationErr(message string, err error) *AppError {
	return NewAppError(http.StatusBadRequest, KindValidation, message, err)
}

// NotFoundErr creates a 404 Not Found error
func NotFoundErr(message string, err error) *AppError {
	return NewAppError(http.StatusNotFound, KindNotFound, message, err)
}

// ConflictErr creates a 409 Conflict error
func ConflictErr(message string, err error) *AppError {
	return NewAppError(http.StatusConflict, KindConflict, message, err)
}

// ProviderUnavailableErr marks a transient provider failure, safe to retry
// with backoff at the caller
func ProviderUnavailableErr(message string, err error) *AppError {
	return NewAppError(http.StatusServiceUnavailable, KindProviderUnavailable, message, err)
}

// ProviderRejectedErr marks a business-level provider rejection, not
// retryable without a payload change
func ProviderRejectedErr(message string, err error) *AppError {
	return NewAppError(http.StatusBadRequest, KindProviderRejected, message, err)
}

// SignatureInvalidErr marks a failed webhook authentication
func SignatureInvalidErr(message string, err error) *AppError {
	return NewAppError(http.StatusUnauthorized, KindSignatureInvalid, message, err)
}

// CRMFailureErr marks a CRM error. Callers downgrade these to warnings.
func CRMFailureErr(message string, err error) *AppError {
	return NewAppError(http.StatusBadGateway, KindCRMFailure, message, err)
}

// InternalErr creates a 500 Internal Server Error
func InternalErr(message string, err error) *AppError {
	return NewAppError(http.StatusInternalServerError, KindInternal, message, err)
}

// GetAppError returns the AppError if the error wraps one
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsKind reports whether err is an AppError of the given kind
func IsKind(err error, kind string) bool {
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Kind == kind
	}
	return false
}

// IsNotFoundError checks if an error is a "not found" error
func IsNotFoundError(err error) bool {
	return IsKind(err, KindNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return IsKind(err, KindValidation)
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return IsKind(err, KindConflict)
}

// IsProviderUnavailable checks if an error is a transient provider failure
func IsProviderUnavailable(err error) bool {
	return IsKind(err, KindProviderUnavailable)
}

// IsProviderRejected checks if an error is a provider business rejection
func IsProviderRejected(err error) bool {
	return IsKind(err, KindProviderRejected)
}

// IsSignatureInvalid checks if an error is a webhook authentication failure
func IsSignatureInvalid(err error) bool {
	return IsKind(err, KindSignatureInvalid)
}

// WrapError wraps an error with additional context
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
