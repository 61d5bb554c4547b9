package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/vango-dev/signals/pkg/reactive"
)

// Category represents the type of error.
type Category string

const (
	CategoryRuntime Category = "runtime"
	CategoryConfig  Category = "config"
	CategoryLive    Category = "live"
	CategoryCLI     Category = "cli"
)

// Error is a structured error with a code, a hint and an optional cause.
type Error struct {
	// Code is a unique error identifier (e.g., "S001").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// WithDetail adds a detailed explanation to the error.
func (e *Error) WithDetail(d string) *Error {
	e.Detail = d
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// Wrap wraps another error.
func (e *Error) Wrap(err error) *Error {
	e.Wrapped = err
	return e
}

// New creates an Error from a registered error code.
func New(code string) *Error {
	template, ok := registry[code]
	if !ok {
		return &Error{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &Error{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new Error with a formatted message (no code).
func Newf(category Category, format string, args ...any) *Error {
	return &Error{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError converts err to an *Error. Errors from the reactive package get
// their registered code; anything else is wrapped under fallback.
func FromError(err error, fallback string) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e
	}

	var cycle *reactive.CycleError
	switch {
	case stderrors.As(err, &cycle):
		return New(CodeCycle).
			WithDetail(fmt.Sprintf("%s signal %d re-entered %d times", cycle.Kind, cycle.ID, cycle.Depth)).
			Wrap(err)
	case stderrors.Is(err, reactive.ErrCycle):
		return New(CodeCycle).Wrap(err)
	case stderrors.Is(err, reactive.ErrLoopClosed):
		return New(CodeLoopClosed).Wrap(err)
	}
	return New(fallback).Wrap(err)
}
