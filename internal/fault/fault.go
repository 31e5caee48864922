// Package fault defines the coded errors shared by every ledger package.
//
// Each error carries a Code naming the exact condition and maps to one of a
// small set of classes describing how a caller should react:
//
//   - Validation: bad input, rejected before any mutation; retry with corrected input
//   - InsufficientFeeEscrow: rejected before any external call is attempted
//   - ExternalCallFailed: the composite operation aborted; nothing was committed
//   - PrecondInvalid: fatal to the call until the precondition itself changes
//   - Arithmetic: fixed-point overflow, underflow, or division by zero
package fault

import (
	"errors"
	"fmt"
)

// Code identifies an error condition.
type Code string

const (
	// Fixed-point arithmetic.
	CodeArithmeticUnderflow Code = "ARITHMETIC_UNDERFLOW"
	CodeArithmeticOverflow  Code = "ARITHMETIC_OVERFLOW"
	CodeDivisionByZero      Code = "DIVISION_BY_ZERO"

	// Harvest log.
	CodeNotFound       Code = "NOT_FOUND"
	CodePrecondInvalid Code = "PRECOND_INVALID"
	CodeAlreadyExists  Code = "ALREADY_EXISTS"

	// Catch-up.
	CodeCatchUpOutOfOrder      Code = "CATCH_UP_OUT_OF_ORDER"
	CodeCatchUpBeyondAvailable Code = "CATCH_UP_BEYOND_AVAILABLE"
	CodeHistoryPurged          Code = "HISTORY_PURGED"

	// Pool ledger.
	CodeInvalidInput      Code = "INVALID_INPUT"
	CodeAlreadyJoined     Code = "ALREADY_JOINED"
	CodeNotJoined         Code = "NOT_JOINED"
	CodeJoinWindowClosed  Code = "JOIN_WINDOW_CLOSED"
	CodeNonZeroBalance    Code = "NON_ZERO_BALANCE"
	CodePoolClosed        Code = "POOL_CLOSED"
	CodeMustCatchUpFirst  Code = "MUST_CATCH_UP_FIRST"
	CodeInsufficientStake Code = "INSUFFICIENT_STAKE"
	CodeNotDue            Code = "NOT_DUE"
	CodePoolNotYetLive    Code = "POOL_NOT_YET_LIVE"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeAlreadySetUp      Code = "ALREADY_SET_UP"
	CodeNothingStaked     Code = "NOTHING_STAKED"
	CodePoolDeleted       Code = "POOL_DELETED"

	// Fee budget.
	CodeInsufficientFeeEscrow Code = "INSUFFICIENT_FEE_ESCROW"

	// External collaborators.
	CodeExternalCallFailed Code = "EXTERNAL_CALL_FAILED"
)

// Class groups codes by how callers recover from them.
type Class string

const (
	ClassValidation            Class = "validation"
	ClassInsufficientFeeEscrow Class = "insufficient_fee_escrow"
	ClassExternalCallFailed    Class = "external_call_failed"
	ClassPrecondInvalid        Class = "precond_invalid"
	ClassArithmetic            Class = "arithmetic"
)

var classes = map[Code]Class{
	CodeArithmeticUnderflow: ClassArithmetic,
	CodeArithmeticOverflow:  ClassArithmetic,
	CodeDivisionByZero:      ClassArithmetic,

	CodeNotFound:       ClassValidation,
	CodePrecondInvalid: ClassPrecondInvalid,
	CodeAlreadyExists:  ClassPrecondInvalid,

	CodeCatchUpOutOfOrder:      ClassValidation,
	CodeCatchUpBeyondAvailable: ClassValidation,
	CodeHistoryPurged:          ClassPrecondInvalid,

	CodeInvalidInput:      ClassValidation,
	CodeAlreadyJoined:     ClassValidation,
	CodeNotJoined:         ClassValidation,
	CodeJoinWindowClosed:  ClassPrecondInvalid,
	CodeNonZeroBalance:    ClassValidation,
	CodePoolClosed:        ClassPrecondInvalid,
	CodeMustCatchUpFirst:  ClassValidation,
	CodeInsufficientStake: ClassValidation,
	CodeNotDue:            ClassPrecondInvalid,
	CodePoolNotYetLive:    ClassPrecondInvalid,
	CodeUnauthorized:      ClassPrecondInvalid,
	CodeAlreadySetUp:      ClassPrecondInvalid,
	CodeNothingStaked:     ClassPrecondInvalid,
	CodePoolDeleted:       ClassPrecondInvalid,

	CodeInsufficientFeeEscrow: ClassInsufficientFeeEscrow,

	CodeExternalCallFailed: ClassExternalCallFailed,
}

// Error is a coded ledger error.
type Error struct {
	// Code identifies the condition.
	Code Code

	// Message is a human-readable description.
	Message string

	// Details contains additional context (amounts, indices, rounds).
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Class returns the recovery class of the error's code.
func (e *Error) Class() Class {
	if c, ok := classes[e.Code]; ok {
		return c
	}
	return ClassValidation
}

// With attaches a detail key/value and returns the same error for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = fmt.Sprint(value)
	return e
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around an underlying cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// HasCode reports whether err, or any error it wraps, is a fault with code.
func HasCode(err error, code Code) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost fault in err's chain, or "".
func CodeOf(err error) Code {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// ClassOf returns the recovery class of err, or "" if err is not a fault.
func ClassOf(err error) Class {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Class()
	}
	return ""
}
