// Package events delivers lifecycle events to the outside world once the
// transaction that produced them has committed.
package events

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/rpohub/internal/config"
	"github.com/kiranshivaraju/rpohub/pkg/models"
)

// Dispatcher is implemented by every event sink.
type Dispatcher interface {
	Dispatch(ctx context.Context, event models.Event) error
	Close() error
}

// NewDispatcher returns the sink selected by cfg.Sink.
func NewDispatcher(cfg config.EventsConfig) (Dispatcher, error) {
	switch cfg.Sink {
	case "webhook":
		return NewWebhookSink(cfg.Webhook.URL, cfg.Webhook.Secret, cfg.Webhook.Timeout), nil
	case "nats":
		return NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix)
	case "none", "":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown events sink: %q", cfg.Sink)
	}
}

// Noop discards every event.
type Noop struct{}

func (Noop) Dispatch(context.Context, models.Event) error { return nil }
func (Noop) Close() error                                 { return nil }

var _ Dispatcher = Noop{}
