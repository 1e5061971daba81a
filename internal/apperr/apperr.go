package apperr

import (
	"errors"
	"fmt"
)

const (
	CodeValidation     = "VALIDATION"
	CodeWindowNotFound = "WINDOW_NOT_FOUND"
	CodePaneNotFound   = "PANE_NOT_FOUND"
	CodeNetwork        = "NETWORK"
	CodeDecode         = "DECODE"
	CodeBackend        = "BACKEND"
	CodeDataShape      = "DATA_SHAPE"
)

// CodedError is a typed error used for stable API mapping.
type CodedError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CodedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
}

func (e *CodedError) Unwrap() error { return e.Cause }

func New(code, msg string, cause error) error {
	return &CodedError{Code: code, Message: msg, Cause: cause}
}

func Validation(msg string) error {
	return &CodedError{Code: CodeValidation, Message: msg}
}

// Code returns the code of the first CodedError in err's chain, or "".
func Code(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return ""
}

// UserVisible reports whether err belongs to a class the user can act on
// (bad input or an unreachable backend). Shape and handle errors are internal.
func UserVisible(err error) bool {
	switch Code(err) {
	case CodeValidation, CodeNetwork, CodeDecode, CodeBackend:
		return true
	default:
		return false
	}
}
