// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested device does not exist.
var ErrNotFound = errors.New("device not found")

// ErrGroupNotFound indicates the device is not a member of the named group.
var ErrGroupNotFound = errors.New("group not found")

// ErrTenantNotFound indicates the tenant namespace has not been provisioned.
var ErrTenantNotFound = errors.New("tenant not found")

// ErrInvalidArgument indicates a malformed, empty, or oversized input.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrPreconditionFailed indicates a stale If-Match revision (optimistic locking).
var ErrPreconditionFailed = errors.New("precondition failed: device was modified by another request")
