package domain

import (
	"errors"
	"fmt"
)

// Code is the error taxonomy shared by both signaling protocols.
type Code string

const (
	CodeRoomNotFound    Code = "RoomNotFound"
	CodePeerUnavailable Code = "PeerUnavailable"
	CodeInvalidState    Code = "InvalidState"
	CodeValidation      Code = "ValidationError"
	CodeInternal        Code = "InternalError"
)

// Error is returned by the managers and surfaced to the sender as an error event.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error carrying the same code, so errors.Is(err, ErrRoomNotFound) works
// regardless of the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrRoomNotFound    = &Error{Code: CodeRoomNotFound, Message: "room not found"}
	ErrPeerUnavailable = &Error{Code: CodePeerUnavailable, Message: "peer unavailable"}
	ErrInvalidState    = &Error{Code: CodeInvalidState, Message: "invalid state"}
	ErrValidation      = &Error{Code: CodeValidation, Message: "validation error"}
)

func RoomNotFound(id RoomID) *Error {
	return &Error{Code: CodeRoomNotFound, Message: fmt.Sprintf("room %s not found", id)}
}

func PeerUnavailable(msg string) *Error {
	return &Error{Code: CodePeerUnavailable, Message: msg}
}

func InvalidState(msg string) *Error {
	return &Error{Code: CodeInvalidState, Message: msg}
}

func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// CodeOf extracts the taxonomy code; anything that is not an *Error is internal.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// AsError converts any error into an *Error suitable for the wire.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Code: CodeInternal, Message: "internal error"}
}
