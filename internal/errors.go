package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound   ErrorType = "NOT_FOUND"
	ErrorTypeDeclined   ErrorType = "CARD_DECLINED"
	ErrorTypeConflict   ErrorType = "CONFLICT"
	ErrorTypeGateway    ErrorType = "GATEWAY_ERROR"
	ErrorTypeTransport  ErrorType = "TRANSPORT_FAILURE"
	ErrorTypeFatal      ErrorType = "FATAL_ERROR"
	ErrorTypeInternal   ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidCurrency  ErrorCode = "INVALID_CURRENCY"
	ErrCodeInvalidEmail     ErrorCode = "INVALID_EMAIL"
	ErrCodeInvalidFrequency ErrorCode = "INVALID_FREQUENCY"

	ErrCodeMissingToken    ErrorCode = "MISSING_PAYMENT_TOKEN"
	ErrCodeMissingCustomer ErrorCode = "MISSING_CUSTOMER"
	ErrCodeWatchNotFound   ErrorCode = "WATCH_NOT_FOUND"
	ErrCodeInvoiceNotFound ErrorCode = "INVOICE_NOT_FOUND"

	ErrCodeCardDeclined       ErrorCode = "CARD_DECLINED"
	ErrCodeGatewayConflict    ErrorCode = "GATEWAY_CONFLICT"
	ErrCodeGatewayFault       ErrorCode = "GATEWAY_FAULT"
	ErrCodeGatewayUnreachable ErrorCode = "GATEWAY_UNREACHABLE"
)

// AppError is the error surface handed to transport. Gateway failures are
// wrapped in one of these by the classifier before anything user-visible
// happens; raw gateway detail stays in the logs.
type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// NewFatalError marks a local precondition failure that aborts the request
// without any gateway call having been made (missing token, missing
// customer after a failed create, ...).
func NewFatalError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeFatal,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GatewayErrorKind tags the closed set of remote-gateway failure variants.
// Callers match on the tag, never on concrete SDK error types.
type GatewayErrorKind string

const (
	// GatewayDeclined is a card-level decline: user-facing and final.
	GatewayDeclined GatewayErrorKind = "declined"
	// GatewayConflict means the remote resource already exists. Recoverable
	// only when the caller pre-declared the conflict ignorable.
	GatewayConflict GatewayErrorKind = "conflict"
	// GatewayFault is any other structured error the gateway reported.
	GatewayFault GatewayErrorKind = "fault"
	// GatewayTransport means no response was received at all.
	GatewayTransport GatewayErrorKind = "transport"
)

// GatewayError carries the structured body of a failed gateway call.
// Op is the operation name ("create_charge", ...) recorded at the call site.
type GatewayError struct {
	Kind    GatewayErrorKind `json:"kind"`
	Op      string           `json:"op"`
	Type    string           `json:"type"`
	Code    string           `json:"code"`
	Message string           `json:"message"`
	Cause   error            `json:"-"`
}

func (e *GatewayError) Error() string {
	parts := []string{string(e.Kind)}
	if e.Op != "" {
		parts = append(parts, "op="+e.Op)
	}
	if e.Type != "" {
		parts = append(parts, "type="+e.Type)
	}
	if e.Code != "" {
		parts = append(parts, "code="+e.Code)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	return "gateway: " + strings.Join(parts, " ")
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

func IsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
