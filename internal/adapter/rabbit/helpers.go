package rabbit

import (
	"context"
	"time"

	"github.com/Temutjin2k/tracking-relay/internal/domain/models"
	"github.com/Temutjin2k/tracking-relay/internal/domain/types"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeKindTopic = "topic"

	// TelemetryBindingKey routes real driver telemetry published to the
	// tracking exchange into the telemetry queue.
	TelemetryBindingKey = "telemetry.location.*"

	retryDelay = 2 * time.Second
)

// Client is the part of pkg/rabbit the adapters need.
type Client interface {
	DeclareExchange(ctx context.Context, name, kind string) error
	Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error
	Consume(ctx context.Context, queue, exchange, bindingKey string) (<-chan amqp.Delivery, error)
}

// routingKey is booking.{bookingId}.{event}
func routingKey(bookingID models.ID, event types.EventName) string {
	return "booking." + bookingID.String() + "." + event.String()
}

// sleep waits d or until ctx ends, reporting whether ctx is still alive.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
