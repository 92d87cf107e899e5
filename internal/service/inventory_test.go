package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/deviceline/inventory/internal/domain"
	"github.com/deviceline/inventory/internal/domain/device"
	"github.com/deviceline/inventory/internal/port/eventbus"
	"github.com/deviceline/inventory/internal/port/store"
)

type mockStore struct {
	store.DataStore

	devices    []device.Device
	total      int
	added      *device.Device
	deletedID  string
	upsertedID string
	upserted   []device.Attribute
	tagsAttrs  []device.Attribute
	tagsMatch  string
	tagsRepl   bool
	groupID    string
	groupName  string
	err        error
}

func (m *mockStore) GetDevices(_ context.Context, _ store.ListQuery) ([]device.Device, int, error) {
	return m.devices, m.total, m.err
}

func (m *mockStore) AddDevice(_ context.Context, dev *device.Device) error {
	m.added = dev
	return m.err
}

func (m *mockStore) DeleteDevice(_ context.Context, id string) error {
	m.deletedID = id
	return m.err
}

func (m *mockStore) UpsertAttributes(_ context.Context, id string, attrs []device.Attribute) error {
	m.upsertedID = id
	m.upserted = attrs
	return m.err
}

func (m *mockStore) UpsertTags(_ context.Context, id string, attrs []device.Attribute, ifMatch string, replace bool) (string, error) {
	m.upsertedID = id
	m.tagsAttrs = attrs
	m.tagsMatch = ifMatch
	m.tagsRepl = replace
	return "rev-2", m.err
}

func (m *mockStore) UpdateDeviceGroup(_ context.Context, id, group string) error {
	m.groupID = id
	m.groupName = group
	return m.err
}

func (m *mockStore) UnsetDeviceGroup(_ context.Context, id, group string) error {
	m.groupID = id
	m.groupName = group
	return m.err
}

type mockPublisher struct {
	events []eventbus.DeviceEvent
	err    error
}

func (m *mockPublisher) PublishDeviceEvent(_ context.Context, ev eventbus.DeviceEvent) error {
	m.events = append(m.events, ev)
	return m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestAddDevicePublishesCreated(t *testing.T) {
	ms := &mockStore{}
	bus := &mockPublisher{}
	svc := NewInventoryService(ms, bus, nil, discardLogger())

	dev := &device.Device{ID: "dev-1"}
	if err := svc.AddDevice(context.Background(), dev); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ms.added == nil || ms.added.ID != "dev-1" {
		t.Fatalf("expected device stored, got %+v", ms.added)
	}
	if len(bus.events) != 1 || bus.events[0].Kind != eventbus.KindCreated {
		t.Fatalf("expected one created event, got %+v", bus.events)
	}
}

func TestAddDeviceRejectsInvalid(t *testing.T) {
	svc := NewInventoryService(&mockStore{}, nil, nil, discardLogger())

	err := svc.AddDevice(context.Background(), &device.Device{ID: ""})
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestUpsertTagsCapsAtLimit(t *testing.T) {
	ms := &mockStore{}
	svc := NewInventoryService(ms, nil, nil, discardLogger())

	attrs := make([]device.Attribute, device.MaxTags+5)
	for i := range attrs {
		attrs[i] = device.Attribute{
			Name:  string(rune('a' + i%26)) + "-tag",
			Value: "v",
			Scope: device.ScopeTags,
		}
	}
	// make names unique
	for i := range attrs {
		attrs[i].Name = attrs[i].Name + "-" + string(rune('0'+i/10)) + string(rune('0'+i%10))
	}

	rev, err := svc.UpsertTags(context.Background(), "dev-1", attrs, "", true)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if rev != "rev-2" {
		t.Fatalf("expected new revision, got %q", rev)
	}
	if len(ms.tagsAttrs) != device.MaxTags {
		t.Fatalf("expected %d tags after cap, got %d", device.MaxTags, len(ms.tagsAttrs))
	}
	if !ms.tagsRepl {
		t.Fatal("expected replace passed through")
	}
}

func TestUpsertTagsPropagatesPreconditionFailure(t *testing.T) {
	ms := &mockStore{err: domain.ErrPreconditionFailed}
	svc := NewInventoryService(ms, nil, nil, discardLogger())

	_, err := svc.UpsertTags(context.Background(), "dev-1",
		[]device.Attribute{{Name: "env", Value: "prod", Scope: device.ScopeTags}}, "stale-rev", false)
	if !errors.Is(err, domain.ErrPreconditionFailed) {
		t.Fatalf("expected ErrPreconditionFailed, got %v", err)
	}
}

func TestDeleteDevicePublishesDeleted(t *testing.T) {
	ms := &mockStore{}
	bus := &mockPublisher{}
	svc := NewInventoryService(ms, bus, nil, discardLogger())

	if err := svc.DeleteDevice(context.Background(), "dev-9"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ms.deletedID != "dev-9" {
		t.Fatalf("expected delete of dev-9, got %q", ms.deletedID)
	}
	if len(bus.events) != 1 || bus.events[0].Kind != eventbus.KindDeleted {
		t.Fatalf("expected deleted event, got %+v", bus.events)
	}
}

func TestDeleteDevicePassesThroughNotFound(t *testing.T) {
	ms := &mockStore{err: domain.ErrNotFound}
	svc := NewInventoryService(ms, &mockPublisher{}, nil, discardLogger())

	err := svc.DeleteDevice(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateDeviceGroupValidatesName(t *testing.T) {
	svc := NewInventoryService(&mockStore{}, nil, nil, discardLogger())

	err := svc.UpdateDeviceGroup(context.Background(), "dev-1", "bad group name!")
	if !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	ms := &mockStore{}
	bus := &mockPublisher{err: errors.New("nats down")}
	svc := NewInventoryService(ms, bus, nil, discardLogger())

	if err := svc.UpsertAttributes(context.Background(), "dev-1",
		[]device.Attribute{{Name: "mac", Value: "aa:bb", Scope: device.ScopeIdentity}}); err != nil {
		t.Fatalf("expected write to succeed despite bus failure, got %v", err)
	}
	if ms.upsertedID != "dev-1" {
		t.Fatalf("expected attributes stored, got %q", ms.upsertedID)
	}
}
