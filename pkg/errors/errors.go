package errors

import (
	"fmt"
	"net/http"
)

const (
	CodeNotFound          = "NOT_FOUND"
	CodeValidation        = "VALIDATION_FAILED"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeNotAuthenticated  = "NOT_AUTHENTICATED"
	CodeInvalidToken      = "INVALID_TOKEN"
	CodeTokenExpired      = "TOKEN_EXPIRED"
	CodeCredentialChanged = "CREDENTIAL_CHANGED"
	CodeForbidden         = "FORBIDDEN"
	CodeDuplicateKey      = "DUPLICATE_KEY"
	CodeInvalidSignature  = "INVALID_SIGNATURE"
	CodeInternal          = "INTERNAL_ERROR"
)

// AppError is the single error type that crosses handler boundaries.
// Operational marks anticipated, user-facing failures; everything else is
// treated as a programming or infrastructure fault and its message is not
// revealed to clients in production.
type AppError struct {
	Code        string         `json:"code"`
	Message     string         `json:"message"`
	HTTPStatus  int            `json:"-"`
	Operational bool           `json:"-"`
	Details     map[string]any `json:"details,omitempty"`
	Err         error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) StatusCode() int {
	return e.HTTPStatus
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:        code,
		Message:     message,
		HTTPStatus:  httpStatus,
		Operational: true,
	}
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("No %s found with that ID", resource), http.StatusNotFound)
}

func NotFoundWithID(resource, id string) *AppError {
	return NotFound(resource).WithDetails(map[string]any{
		"resource": resource,
		"id":       id,
	})
}

func Validation(message string, details map[string]any) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest).WithDetails(details)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message, http.StatusBadRequest)
}

func NotAuthenticated(message string) *AppError {
	return New(CodeNotAuthenticated, message, http.StatusUnauthorized)
}

func InvalidToken() *AppError {
	return New(CodeInvalidToken, "Login session is invalid. Please sign in again to get access.", http.StatusUnauthorized)
}

func TokenExpired() *AppError {
	return New(CodeTokenExpired, "Login session is expired. Please sign in again to get access.", http.StatusUnauthorized)
}

func CredentialChanged() *AppError {
	return New(CodeCredentialChanged, "User recently changed password. Please log in again.", http.StatusUnauthorized)
}

func Forbidden(message string) *AppError {
	return New(CodeForbidden, message, http.StatusForbidden)
}

func DuplicateKey(value any) *AppError {
	return New(CodeDuplicateKey, fmt.Sprintf("Duplicate field value: %v. Please use another value.", value), http.StatusBadRequest)
}

func InvalidSignature() *AppError {
	return New(CodeInvalidSignature, "Webhook error: invalid or missing signature", http.StatusBadRequest)
}

// Internal errors are non-operational: the responder hides their message in
// production.
func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func AsAppError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return Internal("An unexpected error occurred", err)
}
