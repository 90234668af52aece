package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kiranshivaraju/rpohub/pkg/models"
	"github.com/nats-io/nats.go"
)

const natsConnectTimeout = 10 * time.Second

// NATSPublisher publishes each event on "<prefix>.<event type>".
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

func NewNATSPublisher(natsURL, prefix string) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("rpohub"),
		nats.Timeout(natsConnectTimeout),
		nats.RetryOnFailedConnect(true),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
	}

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	return &NATSPublisher{nc: nc, prefix: prefix}, nil
}

// Subject returns the subject an event of the given type is published on.
func Subject(prefix, eventType string) string {
	if prefix == "" {
		return eventType
	}
	return prefix + "." + eventType
}

func (p *NATSPublisher) Dispatch(ctx context.Context, event models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	if err := p.nc.Publish(Subject(p.prefix, event.Type), data); err != nil {
		return fmt.Errorf("publishing event: %w", err)
	}

	// Flush so a publish error surfaces here rather than being lost in the buffer.
	if _, ok := ctx.Deadline(); !ok {
		err = p.nc.FlushTimeout(natsConnectTimeout)
	} else {
		err = p.nc.FlushWithContext(ctx)
	}
	if err != nil {
		return fmt.Errorf("flushing event: %w", err)
	}
	return nil
}

func (p *NATSPublisher) Close() error {
	if p.nc != nil {
		return p.nc.Drain()
	}
	return nil
}

var _ Dispatcher = (*NATSPublisher)(nil)
