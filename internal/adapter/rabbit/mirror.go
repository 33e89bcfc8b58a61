package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Temutjin2k/tracking-relay/internal/domain/models"
	"github.com/Temutjin2k/tracking-relay/internal/domain/types"
	"github.com/Temutjin2k/tracking-relay/pkg/logger"
	wrap "github.com/Temutjin2k/tracking-relay/pkg/logger/wrapper"
	"github.com/Temutjin2k/tracking-relay/pkg/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultMirrorBuffer = 256

type mirrorMessage struct {
	event     types.EventName
	bookingID models.ID
	payload   any
	at        time.Time
}

// EventMirror copies relay broadcasts to a topic exchange. Publish never
// blocks: messages go through a bounded queue and are dropped when it is full.
type EventMirror struct {
	client   Client
	exchange string
	queue    chan mirrorMessage
	log      logger.Logger

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewEventMirror(client Client, exchange string, buffer int, log logger.Logger) *EventMirror {
	if buffer <= 0 {
		buffer = defaultMirrorBuffer
	}
	return &EventMirror{
		client:   client,
		exchange: exchange,
		queue:    make(chan mirrorMessage, buffer),
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start declares the exchange and launches the publishing goroutine.
func (m *EventMirror) Start(ctx context.Context) error {
	ctx = wrap.WithAction(ctx, types.ActionMirrorPublish)

	if err := m.client.DeclareExchange(ctx, m.exchange, ExchangeKindTopic); err != nil {
		return wrap.Error(ctx, fmt.Errorf("event mirror: %w", err))
	}

	m.started.Store(true)
	go m.run(ctx)
	m.log.Info(ctx, "event mirror started", "exchange", m.exchange)
	return nil
}

// Publish queues a copy of one broadcast.
func (m *EventMirror) Publish(ctx context.Context, event types.EventName, bookingID models.ID, payload any) {
	select {
	case <-m.stop:
		return
	default:
	}

	select {
	case m.queue <- mirrorMessage{event: event, bookingID: bookingID, payload: payload, at: time.Now()}:
	default:
		metrics.RecordRabbitMQPublish(m.exchange, errMirrorQueueFull)
		m.log.Debug(wrap.WithAction(ctx, types.ActionMirrorPublish), "mirror queue full, event dropped", "event", event.String())
	}
}

var errMirrorQueueFull = errors.New("mirror queue full")

func (m *EventMirror) run(ctx context.Context) {
	defer close(m.done)

	for {
		select {
		case <-m.stop:
			m.drain(ctx)
			return
		case <-ctx.Done():
			return
		case msg := <-m.queue:
			m.publish(ctx, msg)
		}
	}
}

// drain flushes what is already queued at shutdown.
func (m *EventMirror) drain(ctx context.Context) {
	for {
		select {
		case msg := <-m.queue:
			m.publish(ctx, msg)
		default:
			return
		}
	}
}

func (m *EventMirror) publish(ctx context.Context, msg mirrorMessage) {
	ctx = wrap.WithBookingID(ctx, msg.bookingID.String())

	body, err := json.Marshal(struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}{Event: msg.event.String(), Data: msg.payload})
	if err != nil {
		metrics.RecordRabbitMQPublish(m.exchange, err)
		m.log.Error(ctx, "failed to encode mirrored event", err)
		return
	}

	err = m.client.Publish(ctx, m.exchange, routingKey(msg.bookingID, msg.event), amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   msg.at,
		Type:        msg.event.String(),
	})
	metrics.RecordRabbitMQPublish(m.exchange, err)
	if err != nil {
		m.log.Warn(ctx, "failed to mirror event", "event", msg.event.String(), "reason", err.Error())
	}
}

// Close stops accepting events, flushes the queue and waits for the publisher.
func (m *EventMirror) Close() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
	if m.started.Load() {
		<-m.done
	}
}
