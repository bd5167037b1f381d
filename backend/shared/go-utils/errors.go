// backend/shared/go-utils/errors.go
package utils

import (
	"errors"
	"net/http"
)

// Domain-level errors used by the service layer to provide
// fine-grained failure reasons.
var (
	ErrInvalidPhone         = errors.New("invalid_phone")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	ErrInvalidCredentials   = errors.New("invalid_credentials")
	ErrAccountNotFound      = errors.New("account_not_found")

	// For rate limiting
	ErrRateLimitExceeded = errors.New("rate_limit_exceeded")

	// Upstream dependencies (Twilio, OpenAI, AMQP, ...)
	ErrExternalServiceFailure = errors.New("external_service_failure")
	ErrSMSDeliveryFailed      = &classifiedError{msg: "SMS delivery failed", class: ErrExternalServiceFailure}
	ErrLLMRequestFailed       = &classifiedError{msg: "LLM request failed", class: ErrExternalServiceFailure}
	ErrLLMNotConfigured       = errors.New("LLM API key is not configured")

	ErrNoRowsUpdated = errors.New("no_rows_updated")
)

// classifiedError is a sentinel that also matches a broader class
// through errors.Is.
type classifiedError struct {
	msg   string
	class error
}

func (e *classifiedError) Error() string { return e.msg }

func (e *classifiedError) Is(target error) bool { return target == e.class }

// AppError for structured error handling from services to controllers.
type AppError struct {
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// HandleAppError centralizes responding to AppErrors.
func HandleAppError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		RespondErrorWithCode(w, appErr.StatusCode, appErr.Code, appErr.Message, nil, appErr.Err)
	} else {
		RespondErrorWithCode(w, http.StatusInternalServerError, ErrCodeInternal, "An unexpected error occurred", nil, err)
	}
}
