package homegraph

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the requested device does not exist.
var ErrNotFound = errors.New("device not found")

// ErrDuplicateID is returned by Add when a device with the same ID already exists.
var ErrDuplicateID = errors.New("device with that ID already exists")

// Store manages device definitions for the assistant.
//
// All implementations must be safe for concurrent use.
type Store interface {
	// Add creates a new device. Returns the device with a generated ID if
	// the provided device's ID is empty.
	// Returns [ErrDuplicateID] if a device with the same non-empty ID exists.
	Add(ctx context.Context, device Device) (Device, error)

	// Get retrieves a device by ID.
	// Returns [ErrNotFound] when no device with that ID exists.
	Get(ctx context.Context, id string) (Device, error)

	// List returns all devices, optionally filtered by kind and/or room.
	// An empty [ListOptions] returns all devices. Results order is not
	// guaranteed.
	List(ctx context.Context, opts ListOptions) ([]Device, error)

	// Remove deletes a device by ID.
	// Returns [ErrNotFound] when no device with that ID exists.
	Remove(ctx context.Context, id string) error

	// BulkImport adds multiple devices. Devices without an ID get one
	// auto-generated. Returns the number of devices successfully imported
	// and any error that caused the import to abort early.
	BulkImport(ctx context.Context, devices []Device) (int, error)
}

// ListOptions narrows the result set of [Store.List].
// All non-zero fields are applied as AND conditions.
type ListOptions struct {
	// Kind restricts results to devices of this kind.
	// An empty value matches all kinds.
	Kind DeviceKind

	// Room restricts results to devices in this room (exact match).
	Room string
}
