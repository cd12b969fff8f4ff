// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package coreerr defines the typed error taxonomy the core engine surfaces
// to its callers. The core never logs-and-swallows: every failure path
// returns one of these kinds, wrapped with context via fmt.Errorf's %w.
package coreerr

import (
	"errors"
	"fmt"
)

// Kind classifies a core error for callers that need to branch on recoverability
// without parsing error strings.
type Kind string

const (
	// InvalidInput marks a caller-supplied value that is malformed: an empty
	// required string, a non-positive limit, mismatched list lengths, a
	// malformed point id.
	InvalidInput Kind = "invalid_input"
	// NoSuchCollection marks an operation against a collection the backend
	// does not know about and is not permitted to create.
	NoSuchCollection Kind = "no_such_collection"
	// ModelMismatch marks an existing collection whose persisted vector
	// geometry disagrees with the model resolved for its name.
	ModelMismatch Kind = "model_mismatch"
	// EmbedderUnavailable marks a model runtime that refused to construct
	// even after falling back to its CPU execution provider.
	EmbedderUnavailable Kind = "embedder_unavailable"
	// BackendUnavailable marks a transient backend failure: network,
	// timeout, or a 5xx-class response. Callers may retry.
	BackendUnavailable Kind = "backend_unavailable"
	// PointNotFound marks a get/update against an unknown point id.
	PointNotFound Kind = "point_not_found"
	// Cancelled marks a caller-initiated cancellation of an in-flight operation.
	Cancelled Kind = "cancelled"
	// Internal marks an invariant violation the core cannot attribute to a
	// caller or to the backend.
	Internal Kind = "internal"
)

// Error is the core's typed error. Field is set for InvalidInput errors that
// can name the offending argument.
type Error struct {
	Kind  Kind
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %q)", e.Kind, e.Msg, e.Field)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error with the same Kind, so callers can
// write errors.Is(err, coreerr.New(coreerr.PointNotFound, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// New builds an *Error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap builds an *Error of the given kind that wraps err.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// InvalidField builds an InvalidInput error naming the offending field.
func InvalidField(field, msg string) *Error {
	return &Error{Kind: InvalidInput, Field: field, Msg: msg}
}

// OfKind reports whether err (or something it wraps) is a *Error of kind k.
func OfKind(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// KindOf extracts err's Kind for callers that need to label or branch on it
// without an a priori candidate kind, such as metrics instrumentation.
// Returns "" for a nil error and Internal for any other non-coreerr error.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
