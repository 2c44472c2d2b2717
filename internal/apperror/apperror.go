// Package apperror defines the error kinds the production core reports to its callers.
package apperror

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound               Kind = "NOT_FOUND"
	KindInactive               Kind = "INACTIVE"
	KindInsufficientQuantity   Kind = "INSUFFICIENT_QUANTITY"
	KindValidation             Kind = "VALIDATION_ERROR"
	KindConcurrentModification Kind = "CONCURRENT_MODIFICATION"
)

// Error is a rejected request. Requested and Available are only set for
// KindInsufficientQuantity; Fields only for field-level validation failures.
type Error struct {
	Kind      Kind
	Message   string
	Requested int
	Available int
	Fields    map[string]string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Inactive(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInactive, Message: fmt.Sprintf(format, args...)}
}

func InsufficientQuantity(requested, available int) *Error {
	return &Error{
		Kind:      KindInsufficientQuantity,
		Message:   fmt.Sprintf("insufficient quantity: requested %d, available %d", requested, available),
		Requested: requested,
		Available: available,
	}
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationFields reports one message per offending field
func ValidationFields(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "one or more fields are invalid", Fields: fields}
}

func ConcurrentModification(err error, format string, args ...interface{}) *Error {
	return &Error{Kind: KindConcurrentModification, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
