// Package nats implements the device event bus port using NATS JetStream.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/deviceline/inventory/internal/port/eventbus"
)

const streamName = "INVENTORY"

const subjectPrefix = "inventory.device."

// Publisher implements eventbus.Publisher using NATS JetStream.
type Publisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and ensures the JetStream stream
// for device change events exists.
func Connect(ctx context.Context, url string) (*Publisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"inventory.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Publisher{nc: nc, js: js}, nil
}

// PublishDeviceEvent emits one device change event. Event kind becomes the
// subject suffix so consumers can subscribe per change type.
func (p *Publisher) PublishDeviceEvent(ctx context.Context, ev eventbus.DeviceEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal device event: %w", err)
	}
	if _, err := p.js.Publish(ctx, subjectPrefix+ev.Kind, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subjectPrefix+ev.Kind, err)
	}
	return nil
}

// Close shuts down the NATS connection.
func (p *Publisher) Close() error {
	p.nc.Close()
	return nil
}

// IsConnected reports whether the underlying connection is alive.
func (p *Publisher) IsConnected() bool {
	return p.nc.IsConnected()
}
