package errors

import (
	"fmt"
)

// AppError is an error that carries a stable code and the HTTP status it maps to.
// Kind groups related codes so that errors.Is(ErrInvalidRadius, ErrInvalidQuery) holds.
type AppError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
	Kind       string                 `json:"-"`

	cause error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Kind:       code,
	}
}

// NewKind creates an error that also matches the parent error's code.
func NewKind(parent *AppError, code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: parent.StatusCode,
		Kind:       parent.Code,
	}
}

// WithDetails returns a copy of e carrying details; sentinels stay untouched.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// WithCause returns a copy of e wrapping err.
func (e *AppError) WithCause(err error) *AppError {
	cp := *e
	cp.cause = err
	return &cp
}

func (e *AppError) Unwrap() error {
	return e.cause
}

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code || t.Code == e.Kind
}
