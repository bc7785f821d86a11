// Package errors defines the application error taxonomy and the helpers around it.
package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Translation keys shown to users. They are resolved by the bot layer.
const (
	MsgSomeError       = "misc.some_error"
	MsgWrongInput      = "misc.wrong_input"
	MsgServiceDown     = "misc.service_unavailable"
	MsgTooManyRequests = "misc.too_many_requests"
)

// AppError carries a code, an internal message and a translation key for the user.
type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        "E100",
		Message:     msg,
		UserMessage: MsgWrongInput,
		Severity:    SeverityLow,
	}
}

// NewStorageError wraps session store failures.
func NewStorageError(cause error) *AppError {
	return &AppError{
		Code:        "E200",
		Message:     "session storage error",
		UserMessage: MsgSomeError,
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

func NewExternalAPIError(apiName string, cause error) *AppError {
	return &AppError{
		Code:        "E300",
		Message:     fmt.Sprintf("external API error: %s", apiName),
		UserMessage: MsgServiceDown,
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        "E400",
		Message:     msg,
		UserMessage: MsgSomeError,
		Severity:    SeverityMedium,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        "E500",
		Message:     fmt.Sprintf("rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: MsgTooManyRequests,
		Severity:    SeverityLow,
	}
}

// NewRejectionError is a domain-level refusal returned by the exchange API.
// The detail is shown to the user as is.
func NewRejectionError(detail string, cause error) *AppError {
	return &AppError{
		Code:        "E600",
		Message:     fmt.Sprintf("rejected: %s", detail),
		UserMessage: detail,
		Severity:    SeverityLow,
		cause:       cause,
	}
}

// NewDeliveryError marks a failed outbound Telegram send.
func NewDeliveryError(chatID int64, cause error) *AppError {
	return &AppError{
		Code:      "E700",
		Message:   fmt.Sprintf("delivery to %d failed", chatID),
		Severity:  SeverityLow,
		Retryable: true,
		cause:     cause,
	}
}

// NewInternalError marks a bug, such as a recovered panic.
func NewInternalError(cause error) *AppError {
	return &AppError{
		Code:        "E900",
		Message:     "internal error",
		UserMessage: MsgSomeError,
		Severity:    SeverityCritical,
		cause:       cause,
	}
}
