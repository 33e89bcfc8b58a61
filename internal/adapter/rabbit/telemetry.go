package rabbit

import (
	"context"
	"errors"
	"fmt"

	"github.com/Temutjin2k/tracking-relay/internal/domain/models"
	"github.com/Temutjin2k/tracking-relay/internal/domain/types"
	"github.com/Temutjin2k/tracking-relay/pkg/logger"
	wrap "github.com/Temutjin2k/tracking-relay/pkg/logger/wrapper"
	"github.com/Temutjin2k/tracking-relay/pkg/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Injector accepts location updates that did not come from a socket.
type Injector interface {
	Inject(ctx context.Context, ev models.LocationUpdate) error
}

// TelemetryConsumer feeds real driver positions from a queue into the relay.
// Message bodies have the location-update data shape.
type TelemetryConsumer struct {
	client   Client
	queue    string
	exchange string
	injector Injector
	l        logger.Logger
}

func NewTelemetryConsumer(client Client, queue, exchange string, injector Injector, l logger.Logger) *TelemetryConsumer {
	return &TelemetryConsumer{
		client:   client,
		queue:    queue,
		exchange: exchange,
		injector: injector,
		l:        l,
	}
}

// Run consumes until ctx ends, resubscribing whenever the delivery channel
// closes.
func (c *TelemetryConsumer) Run(ctx context.Context) error {
	const op = "TelemetryConsumer.Run"
	ctx = wrap.WithAction(ctx, types.ActionTelemetryConsume)

	for {
		if ctx.Err() != nil {
			c.l.Debug(ctx, "telemetry consumer stopped by context")
			return nil
		}

		if c.exchange != "" {
			if err := c.client.DeclareExchange(ctx, c.exchange, ExchangeKindTopic); err != nil {
				c.l.Error(ctx, "declare exchange failed", err, "op", op)
				if !sleep(ctx, retryDelay) {
					return nil
				}
				continue
			}
		}

		msgs, err := c.client.Consume(ctx, c.queue, c.exchange, TelemetryBindingKey)
		if err != nil {
			c.l.Error(ctx, "consume failed", err, "op", op)
			if !sleep(ctx, retryDelay) {
				return nil
			}
			continue
		}

		c.l.Info(ctx, "start consuming driver telemetry", "queue", c.queue)

		if !c.consume(ctx, msgs) {
			c.l.Info(ctx, "telemetry consumer shutting down")
			return nil
		}

		c.l.Warn(ctx, "telemetry channel closed, resubscribing...", "op", op)
		if !sleep(ctx, retryDelay) {
			return nil
		}
	}
}

// consume handles deliveries in order. It returns false when ctx ended and
// true when the channel closed.
func (c *TelemetryConsumer) consume(ctx context.Context, msgs <-chan amqp.Delivery) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case d, ok := <-msgs:
			if !ok {
				return true
			}
			c.handleDelivery(ctx, d)
		}
	}
}

func (c *TelemetryConsumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	err := c.Handle(ctx, d.Body)
	metrics.RecordRabbitMQConsume(c.queue, err)

	if err != nil {
		// bad and stray updates are not requeued
		c.l.Warn(ctx, "telemetry message rejected", "reason", err.Error())
		if rejErr := d.Reject(false); rejErr != nil {
			c.l.Warn(ctx, "reject failed", "reason", rejErr.Error())
		}
		return
	}

	if err := d.Ack(false); err != nil {
		c.l.Warn(ctx, "ack failed", "reason", err.Error())
	}
}

// Handle decodes one telemetry body and injects it. Errors wrap
// types.ErrMalformedEvent, types.ErrMissingField or types.ErrUnknownParticipant.
func (c *TelemetryConsumer) Handle(ctx context.Context, body []byte) error {
	ev, err := models.DecodeEvent(types.EventLocationUpdate.String(), body)
	if err != nil {
		return fmt.Errorf("decode telemetry: %w", err)
	}

	update, ok := ev.(models.LocationUpdate)
	if !ok {
		return errors.New("decode telemetry: not a location update")
	}

	ctx = wrap.WithBookingID(wrap.WithUserID(ctx, update.UserID.String()), update.BookingID.String())
	if err := c.injector.Inject(ctx, update); err != nil {
		return wrap.Error(ctx, err)
	}
	return nil
}
