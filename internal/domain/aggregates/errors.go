package aggregates

import (
	"errors"
	"strings"
)

// ErrorCode classifies aggregate failures for callers and transports.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeNotFound           ErrorCode = "not_found"
	CodeConflict           ErrorCode = "conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"
)

// Codes whose message is replaced before it reaches a caller.
var maskedMessages = map[ErrorCode]string{
	CodeInternal:  "internal error",
	CodeRetryable: "temporarily unavailable, try again",
}

// Masked reports whether failures with this code hide their cause.
func (c ErrorCode) Masked() bool {
	_, ok := maskedMessages[c]
	return ok
}

// Error is the single failure type returned by aggregate writes. Op is the
// qualified operation label, e.g. Planning.Board.CompletePiece.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, 0, 2)
	for _, p := range []string{e.Op, e.Message} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return string(e.Code)
	}
	return strings.Join(parts, ": ") + " (" + string(e.Code) + ")"
}

func (e *Error) Unwrap() error { return e.Cause }

// PublicMessage is the text safe to show a caller.
func (e *Error) PublicMessage() string {
	switch {
	case e == nil:
		return ""
	case e.Code.Masked():
		return maskedMessages[e.Code]
	case e.Message != "":
		return e.Message
	default:
		return string(e.Code)
	}
}

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap tags err with code, reusing its text as the message. Wrap(nil) is nil.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var aggErr *Error
	if errors.As(err, &aggErr) {
		return aggErr.Code
	}
	return ""
}
