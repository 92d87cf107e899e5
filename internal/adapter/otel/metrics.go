package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "inventory"

// Metrics holds all inventory metric instruments.
type Metrics struct {
	DeviceUpserts  metric.Int64Counter
	DeviceDeletes  metric.Int64Counter
	TagMutations   metric.Int64Counter
	GroupChanges   metric.Int64Counter
	SearchDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.DeviceUpserts, err = meter.Int64Counter("inventory.devices.upserts",
		metric.WithDescription("Number of device attribute upserts"))
	if err != nil {
		return nil, err
	}

	m.DeviceDeletes, err = meter.Int64Counter("inventory.devices.deletes",
		metric.WithDescription("Number of device deletions"))
	if err != nil {
		return nil, err
	}

	m.TagMutations, err = meter.Int64Counter("inventory.tags.mutations",
		metric.WithDescription("Number of tag assign/replace operations"))
	if err != nil {
		return nil, err
	}

	m.GroupChanges, err = meter.Int64Counter("inventory.groups.changes",
		metric.WithDescription("Number of device group assignments and removals"))
	if err != nil {
		return nil, err
	}

	m.SearchDuration, err = meter.Float64Histogram("inventory.search.duration_seconds",
		metric.WithDescription("Device search duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
