// Package service contains the application services sitting between the HTTP
// adapters and the store/eventbus ports.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/deviceline/inventory/internal/adapter/otel"
	"github.com/deviceline/inventory/internal/domain"
	"github.com/deviceline/inventory/internal/domain/device"
	"github.com/deviceline/inventory/internal/middleware"
	"github.com/deviceline/inventory/internal/port/eventbus"
	"github.com/deviceline/inventory/internal/port/store"
)

// InventoryService implements the device inventory use cases on top of a
// DataStore, publishing change events and recording metrics as a side effect.
type InventoryService struct {
	store   store.DataStore
	bus     eventbus.Publisher
	metrics *otel.Metrics
	logger  *slog.Logger
}

// NewInventoryService creates an InventoryService. bus and metrics may be nil;
// the service then skips event publishing / metric recording.
func NewInventoryService(ds store.DataStore, bus eventbus.Publisher, metrics *otel.Metrics, logger *slog.Logger) *InventoryService {
	return &InventoryService{
		store:   ds,
		bus:     bus,
		metrics: metrics,
		logger:  logger,
	}
}

// ListDevices returns a page of devices matching the query plus the total
// match count.
func (s *InventoryService) ListDevices(ctx context.Context, q store.ListQuery) ([]device.Device, int, error) {
	start := time.Now()
	devs, total, err := s.store.GetDevices(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("list devices: %w", err)
	}
	if s.metrics != nil {
		s.metrics.SearchDuration.Record(ctx, time.Since(start).Seconds())
	}
	return devs, total, nil
}

// GetDevice returns a single device with all its attributes.
func (s *InventoryService) GetDevice(ctx context.Context, id string) (*device.Device, error) {
	return s.store.GetDevice(ctx, id)
}

// AddDevice creates (or re-creates) a device with an initial attribute set.
func (s *InventoryService) AddDevice(ctx context.Context, dev *device.Device) error {
	if dev == nil {
		return fmt.Errorf("%w: device is nil", domain.ErrInvalidArgument)
	}
	if err := dev.Validate(); err != nil {
		return err
	}
	if err := s.store.AddDevice(ctx, dev); err != nil {
		return fmt.Errorf("add device: %w", err)
	}
	if s.metrics != nil {
		s.metrics.DeviceUpserts.Add(ctx, 1)
	}
	s.publish(ctx, dev.ID, eventbus.KindCreated)
	return nil
}

// DeleteDevice removes a device and all its attributes. Deleting a device
// that does not exist is not an error for callers; the store's ErrNotFound is
// passed through so transports can decide how to render it.
func (s *InventoryService) DeleteDevice(ctx context.Context, id string) error {
	if err := s.store.DeleteDevice(ctx, id); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.DeviceDeletes.Add(ctx, 1)
	}
	s.publish(ctx, id, eventbus.KindDeleted)
	return nil
}

// UpsertAttributes merges the given attributes into the device, creating the
// device if needed. Used by the device-facing PATCH endpoints.
func (s *InventoryService) UpsertAttributes(ctx context.Context, id string, attrs []device.Attribute) error {
	if id == "" {
		return fmt.Errorf("%w: device id is empty", domain.ErrInvalidArgument)
	}
	for i := range attrs {
		if err := attrs[i].Validate(); err != nil {
			return err
		}
	}
	if err := s.store.UpsertAttributes(ctx, id, attrs); err != nil {
		return fmt.Errorf("upsert attributes: %w", err)
	}
	if s.metrics != nil {
		s.metrics.DeviceUpserts.Add(ctx, 1)
	}
	s.publish(ctx, id, eventbus.KindAttributes)
	return nil
}

// UpsertTags assigns (replace=false) or replaces (replace=true) the device's
// tags. ifMatch, when non-empty, must equal the device's current revision or
// the operation fails with ErrPreconditionFailed. The new revision is
// returned for the ETag response header.
func (s *InventoryService) UpsertTags(ctx context.Context, id string, attrs []device.Attribute, ifMatch string, replace bool) (string, error) {
	if id == "" {
		return "", fmt.Errorf("%w: device id is empty", domain.ErrInvalidArgument)
	}
	attrs = device.CapTags(attrs)
	for i := range attrs {
		if err := attrs[i].Validate(); err != nil {
			return "", err
		}
	}
	rev, err := s.store.UpsertTags(ctx, id, attrs, ifMatch, replace)
	if err != nil {
		return "", err
	}
	if s.metrics != nil {
		s.metrics.TagMutations.Add(ctx, 1)
	}
	s.publish(ctx, id, eventbus.KindTags)
	return rev, nil
}

// UpdateDeviceGroup moves the device into the named group, replacing any
// previous membership.
func (s *InventoryService) UpdateDeviceGroup(ctx context.Context, id, group string) error {
	if err := device.ValidateGroupName(group); err != nil {
		return err
	}
	if err := s.store.UpdateDeviceGroup(ctx, id, group); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.GroupChanges.Add(ctx, 1)
	}
	s.publish(ctx, id, eventbus.KindGroupChanged)
	return nil
}

// UnsetDeviceGroup removes the device from the named group. The device must
// currently be a member of exactly that group.
func (s *InventoryService) UnsetDeviceGroup(ctx context.Context, id, group string) error {
	if err := device.ValidateGroupName(group); err != nil {
		return err
	}
	if err := s.store.UnsetDeviceGroup(ctx, id, group); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.GroupChanges.Add(ctx, 1)
	}
	s.publish(ctx, id, eventbus.KindGroupChanged)
	return nil
}

// GetDeviceGroup returns the device's group, or "" when ungrouped.
func (s *InventoryService) GetDeviceGroup(ctx context.Context, id string) (string, error) {
	return s.store.GetDeviceGroup(ctx, id)
}

// ListGroups returns the distinct group names in use.
func (s *InventoryService) ListGroups(ctx context.Context) ([]string, error) {
	return s.store.ListGroups(ctx)
}

// GetDevicesByGroup returns a page of device IDs in the group plus the total.
// An unknown group yields an empty page, not an error.
func (s *InventoryService) GetDevicesByGroup(ctx context.Context, group string, skip, limit int) ([]string, int, error) {
	return s.store.GetDevicesByGroup(ctx, group, skip, limit)
}

// GetFilterAttributes returns the attributes observed in the tenant's
// inventory together with per-attribute device counts.
func (s *InventoryService) GetFilterAttributes(ctx context.Context) ([]store.AttributeUsage, error) {
	return s.store.GetFilterAttributes(ctx)
}

// publish emits a device-change event. Publishing is fire-and-forget: a
// broken bus must not fail the write that already committed.
func (s *InventoryService) publish(ctx context.Context, deviceID string, kind string) {
	if s.bus == nil {
		return
	}
	ev := eventbus.DeviceEvent{
		TenantID:  middleware.TenantFromContext(ctx),
		DeviceID:  deviceID,
		Kind:      kind,
		RequestID: chimw.GetReqID(ctx),
	}
	if err := s.bus.PublishDeviceEvent(ctx, ev); err != nil {
		s.logger.Warn("failed to publish device event",
			"device_id", deviceID,
			"kind", kind,
			"error", err)
	}
}
