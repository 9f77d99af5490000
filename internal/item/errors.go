// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package item

import (
	"errors"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Error codes returned by the engine.
const (
	CodeNotFound        = "NOT_FOUND"
	CodeForbidden       = "FORBIDDEN"
	CodeTimeout         = "TIMEOUT"
	CodeConflict        = "CONFLICT"
	CodeWorldError      = "WORLD_ERROR"
	CodeBinderInvariant = "BINDER_INVARIANT"
)

// Reasons attached to FORBIDDEN errors under the "reason" context key.
const (
	ReasonNotPurchasable    = "not_purchasable"
	ReasonInsufficientFunds = "insufficient_funds"
)

// Sentinel errors. Every coded engine error wraps one of these so callers
// can use errors.Is as well as the oops code.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrTimeout   = errors.New("lookup timed out")
	ErrConflict  = errors.New("instance id already placed")

	// ErrNilBinder is returned by NewEngine when no Binder is configured.
	ErrNilBinder = errors.New("engine requires a binder")
	// ErrNilRegistry is returned by NewEngine when no Registry is configured.
	ErrNilRegistry = errors.New("engine requires a registry")
)

// errTemplateNotFound creates an error for an unknown template id.
func errTemplateNotFound(templateID string) error {
	return oops.Code(CodeNotFound).
		With("template_id", templateID).
		Wrap(ErrNotFound)
}

// errItemNotFound creates an error for an instance id with no resolvable handle.
func errItemNotFound(instanceID ulid.ULID, cause error) error {
	b := oops.Code(CodeNotFound).With("instance_id", instanceID.String())
	if cause != nil {
		return b.Wrap(errors.Join(ErrNotFound, cause))
	}
	return b.Wrap(ErrNotFound)
}

// errNotPurchasable creates an error for a template without a BUY price.
func errNotPurchasable(templateID string) error {
	return oops.Code(CodeForbidden).
		With("template_id", templateID).
		With("reason", ReasonNotPurchasable).
		Wrap(ErrForbidden)
}

// errInsufficientFunds creates an error for a purchase the user cannot afford.
func errInsufficientFunds(templateID string, cause error) error {
	return oops.Code(CodeForbidden).
		With("template_id", templateID).
		With("reason", ReasonInsufficientFunds).
		Wrap(errors.Join(ErrForbidden, cause))
}

// errTimeout creates an error for a lookup that exceeded its wait bound.
func errTimeout(instanceID ulid.ULID, cause error) error {
	return oops.Code(CodeTimeout).
		With("instance_id", instanceID.String()).
		Wrap(errors.Join(ErrTimeout, cause))
}

// errConflict creates an error for an instance id that is already placed.
func errConflict(instanceID ulid.ULID, cause error) error {
	b := oops.Code(CodeConflict).With("instance_id", instanceID.String())
	if cause != nil {
		return b.Wrap(errors.Join(ErrConflict, cause))
	}
	return b.Wrap(ErrConflict)
}

// worldError wraps a Binder failure.
func worldError(step string, cause error) error {
	return oops.Code(CodeWorldError).
		With("step", step).
		Wrap(cause)
}

// IsNotFound reports whether err is a NOT_FOUND engine error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsForbidden reports whether err is a FORBIDDEN engine error.
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }

// IsTimeout reports whether err is a TIMEOUT engine error.
func IsTimeout(err error) bool { return errors.Is(err, ErrTimeout) }

// IsConflict reports whether err is a CONFLICT engine error.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// Reason returns the reason attached to a FORBIDDEN error, or "".
func Reason(err error) string {
	reason, _ := forbiddenReason(err)
	return reason
}

func forbiddenReason(err error) (string, bool) {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return "", false
	}
	reason, ok := oopsErr.Context()["reason"].(string)
	return reason, ok
}
