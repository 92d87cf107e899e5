// Package store defines the port interface for tenant-scoped device storage.
package store

import (
	"context"

	"github.com/deviceline/inventory/internal/domain/device"
)

// FilterOp selects how a filter value is matched against attribute values.
type FilterOp int

const (
	// Eq matches string equality, or numeric equality when the value
	// parses as a number.
	Eq FilterOp = iota
	// Regex matches a POSIX regular expression against the attribute's
	// string value or any element of an array value.
	Regex
)

// Filter is a single attribute predicate. A device matches a filter set iff
// every filter matches; a device lacking the attribute never matches.
type Filter struct {
	Scope    string
	Name     string
	Op       FilterOp
	Value    string
	ValueNum *float64
}

// Sort orders results by the named attribute's value. Devices missing the
// attribute sort last regardless of direction.
type Sort struct {
	Scope     string
	Name      string
	Ascending bool
}

// ListQuery carries search, sort, and pagination parameters for device
// listings. Skip/Limit are row offsets computed from page/per_page.
type ListQuery struct {
	Skip      int
	Limit     int
	Filters   []Filter
	Sort      *Sort
	HasGroup  *bool
	GroupName string
}

// AttributeUsage reports how many devices carry a given attribute.
type AttributeUsage struct {
	Scope string `json:"scope"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DataStore is the tenant-scoped storage port. Every method resolves the
// tenant namespace from ctx; operations on an unprovisioned tenant return
// domain.ErrTenantNotFound.
type DataStore interface {
	// GetDevices returns one page of devices matching q plus the total
	// match count.
	GetDevices(ctx context.Context, q ListQuery) ([]device.Device, int, error)

	// GetDevice returns the device or domain.ErrNotFound.
	GetDevice(ctx context.Context, id string) (*device.Device, error)

	// AddDevice inserts a new device record, or merges its attributes into
	// an existing record with the same id.
	AddDevice(ctx context.Context, dev *device.Device) error

	// DeleteDevice removes the device and all its attributes.
	// Missing devices return domain.ErrNotFound.
	DeleteDevice(ctx context.Context, id string) error

	// UpsertAttributes differentially updates the device's attributes keyed
	// by (scope, name), creating the device record if absent.
	UpsertAttributes(ctx context.Context, id string, attrs []device.Attribute) error

	// UpsertTags writes tag-scope attributes guarded by the device revision.
	// When ifMatch is non-empty and stale, domain.ErrPreconditionFailed is
	// returned and nothing changes. replace drops tags absent from attrs.
	// The new revision is returned on success.
	UpsertTags(ctx context.Context, id string, attrs []device.Attribute, ifMatch string, replace bool) (string, error)

	// UnsetDeviceGroup clears the device's group, but only when the device
	// currently belongs to groupName; otherwise domain.ErrGroupNotFound.
	UnsetDeviceGroup(ctx context.Context, id string, groupName string) error

	// UpdateDeviceGroup atomically moves the device into group.
	UpdateDeviceGroup(ctx context.Context, id string, group string) error

	// ListGroups returns the names of groups with at least one member.
	ListGroups(ctx context.Context) ([]string, error)

	// GetDevicesByGroup returns one page of member device ids plus the
	// total member count. An existing-but-empty group is not an error.
	GetDevicesByGroup(ctx context.Context, group string, skip, limit int) ([]string, int, error)

	// GetDeviceGroup returns the device's group name, "" when ungrouped.
	GetDeviceGroup(ctx context.Context, id string) (string, error)

	// GetFilterAttributes aggregates attribute usage across the tenant.
	GetFilterAttributes(ctx context.Context) ([]AttributeUsage, error)
}

// TenantStore is the tenant-provisioning port.
type TenantStore interface {
	// ProvisionTenant idempotently registers the tenant and creates its
	// namespace at the current schema version.
	ProvisionTenant(ctx context.Context, id string) error

	// ListTenantIDs returns every registered tenant id.
	ListTenantIDs(ctx context.Context) ([]string, error)

	// MigrateTenant applies pending schema migrations to the tenant's
	// namespace ("" means the default namespace) and records the applied
	// versions. Re-running with nothing pending is a no-op.
	MigrateTenant(ctx context.Context, id string) error
}
