// Package gamerr defines the closed error taxonomy shared by every
// transaction handler. A handler classifies each validation failure as
// one of these codes and surfaces it as a {success:false, error}
// response; no error crosses the room boundary as a panic.
package gamerr

import (
	"errors"
	"fmt"
)

// Code classifies a game error.
type Code string

const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeConflict           Code = "CONFLICT"
	CodeInsufficientFunds  Code = "INSUFFICIENT_FUNDS"
	CodeInsufficientPoints Code = "INSUFFICIENT_POINTS"
	CodeInvalidArgument    Code = "INVALID_ARGUMENT"
)

// Error is a classified game error.
type Error struct {
	Code Code
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

// NotFound reports an unknown room/listing/player id.
func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Conflict reports a request that is valid in form but impossible in
// the current state (room full, game in progress, listing closed).
func Conflict(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Msg: fmt.Sprintf(format, args...)}
}

// InsufficientFunds reports a failed balance or escrow check.
func InsufficientFunds(format string, args ...any) *Error {
	return &Error{Code: CodeInsufficientFunds, Msg: fmt.Sprintf(format, args...)}
}

// InsufficientPoints reports a failed voting-point check.
func InsufficientPoints(format string, args ...any) *Error {
	return &Error{Code: CodeInsufficientPoints, Msg: fmt.Sprintf(format, args...)}
}

// InvalidArgument reports malformed input: non-positive price or
// quantity, out-of-range rate, unknown transaction tag.
func InvalidArgument(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidArgument, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the code from err, or empty if err is not a game
// error.
func CodeOf(err error) Code {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}
