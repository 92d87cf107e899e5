// Package eventbus defines the port for publishing device change events.
// Downstream consumers (search reindexers, audit trails) subscribe to these
// subjects; publishing is fire-and-forget from the caller's perspective.
package eventbus

import "context"

// Event kinds published on device changes.
const (
	KindCreated      = "created"
	KindAttributes   = "attributes"
	KindTags         = "tags"
	KindGroupChanged = "group"
	KindDeleted      = "deleted"
)

// DeviceEvent describes a single device change within a tenant namespace.
type DeviceEvent struct {
	TenantID  string `json:"tenant_id,omitempty"`
	DeviceID  string `json:"device_id"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
}

// Publisher is the port interface for emitting device change events.
type Publisher interface {
	PublishDeviceEvent(ctx context.Context, ev DeviceEvent) error
}
