package edits

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error so the API boundary can map it to a
// response class without string matching.
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindInvalidData  Kind = "invalid_data"
	KindNotAllowed   Kind = "not_allowed"
	KindPrecondition Kind = "precondition_failed"
)

// Error is the domain error type. It carries enough context (entity, id,
// current status, attempted action) to be surfaced directly to an API
// caller.
type Error struct {
	Kind     Kind
	Entity   string
	EntityID string
	Status   Status
	Op       string
	Msg      string
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s %s", e.Kind, e.Entity, e.EntityID)
}

// IsKind reports whether err is a domain Error of the given kind.
func IsKind(err error, k Kind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == k
}

func notFound(entity, id string) *Error {
	return &Error{
		Kind:     KindNotFound,
		Entity:   entity,
		EntityID: id,
		Msg:      fmt.Sprintf("%s with id %s was not found", entity, id),
	}
}

func invalidData(op, msg string) *Error {
	return &Error{Kind: KindInvalidData, Op: op, Msg: msg}
}

func notAllowed(op string, editID string, status Status) *Error {
	return &Error{
		Kind:     KindNotAllowed,
		Entity:   "order edit",
		EntityID: editID,
		Status:   status,
		Op:       op,
		Msg:      fmt.Sprintf("cannot %s an order edit with status %s", op, status),
	}
}
