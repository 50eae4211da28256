package game

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a rejected action.
type ErrorKind string

const (
	KindValidation   ErrorKind = "VALIDATION"
	KindPrecondition ErrorKind = "PRECONDITION"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindPersistence  ErrorKind = "PERSISTENCE"
)

// Error is a structured rejection. Rejected actions never mutate state; the
// error is reported back to the originating caller only.
type Error struct {
	Kind    ErrorKind         `json:"kind"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Context map[string]string `json:"context,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s/%s: %s", e.Kind, e.Code, e.Message)
}

// NewValidation builds a malformed/out-of-range input rejection.
func NewValidation(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

// NewPrecondition builds a wrong-phase/turn/caller rejection.
func NewPrecondition(code, msg string) *Error {
	return &Error{Kind: KindPrecondition, Code: code, Message: msg}
}

// NewNotFound builds an unknown-id rejection.
func NewNotFound(code, msg string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: msg}
}

// With attaches a context field and returns the error for chaining.
func (e *Error) With(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// Kind returns the classification of err when it is a game error, or
// Persistence for anything else that crossed the boundary.
func Kind(err error) ErrorKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return KindPersistence
}

// ErrGameNotFound is returned when a game id is unknown to the store.
var ErrGameNotFound = errors.New("game not found")

// ErrRoomNotFound is returned when a room id is unknown to the store.
var ErrRoomNotFound = errors.New("room not found")

// ErrPlayerNotFound is returned when a player id is unknown to the store.
var ErrPlayerNotFound = errors.New("player not found")
