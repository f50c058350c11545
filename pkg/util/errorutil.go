package util

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// Error codes for the chat core taxonomy.
const (
	CodeForbidden          = "FORBIDDEN"
	CodeInvalidState       = "INVALID_STATE"
	CodeEmptyMessage       = "EMPTY_MESSAGE"
	CodeAttachmentRejected = "ATTACHMENT_REJECTED"
	CodeNotFound           = "NOT_FOUND"
	CodeDeliveryFailed     = "DELIVERY_FAILED"
	CodeUnavailable        = "UNAVAILABLE"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInternal           = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

// NewInvalidState reports a lifecycle transition attempted from a state that
// does not permit it.
func NewInvalidState(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidState, message, http.StatusConflict, details)
}

// NewEmptyMessage reports a send with neither content nor attachment.
func NewEmptyMessage() error {
	return NewDomainError(CodeEmptyMessage, "message requires content or an attachment", http.StatusBadRequest, nil)
}

// NewAttachmentRejected reports an attachment violating the size/type policy.
func NewAttachmentRejected(message string, details map[string]any) error {
	return NewDomainError(CodeAttachmentRejected, message, http.StatusUnprocessableEntity, details)
}

// NewDeliveryFailed wraps a transient fault that survived every retry.
func NewDeliveryFailed(err error) error {
	return &DomainError{
		Code:       CodeDeliveryFailed,
		Message:    "message delivery failed after retries",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewUnavailable reports an unreachable store or subscription setup failure.
func NewUnavailable(err error) error {
	return &DomainError{
		Code:       CodeUnavailable,
		Message:    "backing store unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}

// IsTransient classifies an error as a likely-temporary server-side fault
// eligible for retry. Client-input errors (4xx-equivalent), missing rows and
// caller cancellation are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return false
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.HTTPStatus >= http.StatusInternalServerError
	}
	// Raw driver and network failures are assumed server-side.
	return true
}
