package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Temutjin2k/tracking-relay/internal/domain/models"
	"github.com/Temutjin2k/tracking-relay/internal/domain/types"
	"github.com/Temutjin2k/tracking-relay/pkg/logger"
	wrap "github.com/Temutjin2k/tracking-relay/pkg/logger/wrapper"
	"github.com/Temutjin2k/tracking-relay/pkg/metrics"
)

// Tracker owns the presence registry and the topic router and dispatches
// events against them. One mutex covers both, so an event's registry
// mutation and its broadcast are never interleaved with another event.
type Tracker struct {
	mu       sync.Mutex
	registry *Registry
	router   *Router

	now    func() time.Time
	mirror Mirror
	log    logger.Logger
}

type Option func(*Tracker)

// WithClock replaces time.Now for outbound timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithMirror publishes a copy of every broadcast to m.
func WithMirror(m Mirror) Option {
	return func(t *Tracker) { t.mirror = m }
}

func New(log logger.Logger, opts ...Option) *Tracker {
	registry := NewRegistry()
	t := &Tracker{
		registry: registry,
		router:   NewRouter(registry),
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Connect registers a freshly accepted connection.
func (t *Tracker) Connect(connID string, s Sender) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.registry.Attach(connID, s)
}

// HandleFrame decodes a wire event and dispatches it for connID. A frame that
// cannot be decoded is dropped; the returned error is informational only.
func (t *Tracker) HandleFrame(ctx context.Context, connID, event string, data json.RawMessage) error {
	ctx = wrap.WithConnID(ctx, connID)

	ev, err := models.DecodeEvent(event, data)
	if err != nil {
		metrics.RecordInboundEvent(eventLabel(event), "dropped")
		t.log.Warn(wrap.WithAction(ctx, types.ActionEventDropped), "dropping inbound event",
			"event", event,
			"reason", err.Error(),
		)
		return err
	}

	if err := t.Dispatch(ctx, connID, ev); err != nil {
		metrics.RecordInboundEvent(eventLabel(event), "dropped")
		return err
	}
	metrics.RecordInboundEvent(eventLabel(event), "dispatched")
	return nil
}

// Dispatch applies ev on behalf of connID.
func (t *Tracker) Dispatch(ctx context.Context, connID string, ev models.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.dispatch(ctx, connID, ev)
}

// Inject feeds a location update that did not arrive over a connection,
// e.g. from an external telemetry feed.
func (t *Tracker) Inject(ctx context.Context, ev models.LocationUpdate) error {
	return t.Dispatch(ctx, "", ev)
}

// Disconnect runs the close path for connID exactly once: the dispatcher drops
// the connection's sessions, the router drops its memberships and the handle
// is discarded. It reports whether this call performed the cleanup.
func (t *Tracker) Disconnect(ctx context.Context, connID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.registry.State(connID) == StateClosed {
		return false
	}

	ctx = wrap.WithAction(wrap.WithConnID(ctx, connID), types.ActionConnectionClosed)

	_ = t.dispatch(ctx, connID, models.Disconnect{})
	left := t.router.LeaveAll(connID)
	t.registry.Detach(connID)

	t.log.Debug(ctx, "connection cleaned up", "topics_left", left)
	return true
}

// Move replaces the location of every driver with a known location by
// step(position) and broadcasts it through the regular location-update path.
// The whole pass holds the lock, so no disconnect interleaves with it.
func (t *Tracker) Move(ctx context.Context, step func(models.DriverPosition) models.LocationUpdate) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	moved := 0
	for pos := range t.registry.AllDriversWithLocation() {
		if err := t.dispatch(ctx, "", step(pos)); err == nil {
			moved++
		}
	}
	return moved
}

func (t *Tracker) dispatch(ctx context.Context, connID string, ev models.Event) error {
	ctx = wrap.WithAction(ctx, types.ActionDispatch)

	// "" marks events that did not arrive over a connection
	if connID != "" && t.registry.State(connID) == StateClosed {
		return fmt.Errorf("%T on %q: %w", ev, connID, types.ErrConnClosed)
	}

	switch e := ev.(type) {
	case models.DriverJoin:
		return t.join(ctx, connID, types.RoleDriver, e.UserID, e.BookingID)

	case models.CustomerJoin:
		return t.join(ctx, connID, types.RoleCustomer, e.UserID, e.BookingID)

	case models.LocationUpdate:
		if !t.registry.UpdateDriverLocation(e.UserID, e.Location) {
			t.log.Debug(wrap.WithUserID(ctx, e.UserID.String()), "location update for unknown driver ignored")
			return fmt.Errorf("driver %s: %w", e.UserID, types.ErrUnknownParticipant)
		}
		t.broadcast(ctx, e.BookingID, types.EventLocationUpdate, models.LocationBroadcast{
			BookingID: e.BookingID,
			DriverID:  e.UserID,
			Location:  e.Location,
			Speed:     e.Speed,
			Heading:   e.Heading,
			Timestamp: t.timestamp(),
		})

	case models.StatusUpdate:
		t.broadcast(ctx, e.BookingID, types.EventStatusUpdate, models.StatusBroadcast{
			BookingID: e.BookingID,
			Status:    e.Status,
			Message:   e.Message,
			Timestamp: t.timestamp(),
		})

	case models.ChatMessage:
		t.broadcast(ctx, e.BookingID, types.EventChatMessage, models.ChatBroadcast{
			BookingID:  e.BookingID,
			SenderID:   e.SenderID,
			SenderRole: e.SenderRole,
			Message:    e.Message,
			Timestamp:  t.timestamp(),
		})

	case models.EtaUpdate:
		t.broadcast(ctx, e.BookingID, types.EventEtaUpdate, models.EtaBroadcast{
			BookingID: e.BookingID,
			Eta:       e.Eta,
			Distance:  e.Distance,
			Timestamp: t.timestamp(),
		})

	case models.Disconnect:
		for _, id := range t.registry.RemoveByConnection(connID) {
			t.log.Info(wrap.WithUserID(ctx, id.UserID.String()), "participant disconnected",
				"role", id.Role.String(),
				"booking_id", id.BookingID.String(),
			)
		}
		t.syncGauges()

	default:
		return fmt.Errorf("%w: %T", types.ErrUnknownEvent, ev)
	}

	return nil
}

func (t *Tracker) join(ctx context.Context, connID string, role types.Role, userID, bookingID models.ID) error {
	switch role {
	case types.RoleDriver:
		t.registry.RegisterDriver(userID, bookingID, connID)
	default:
		t.registry.RegisterCustomer(userID, bookingID, connID)
	}
	t.router.Join(connID, types.PersonalTopic(role, userID.String()))
	t.router.Join(connID, types.BookingTopic(bookingID.String()))
	t.syncGauges()

	ctx = wrap.WithBookingID(wrap.WithUserID(ctx, userID.String()), bookingID.String())
	t.log.Info(ctx, "participant joined", "role", role.String())

	return nil
}

func (t *Tracker) broadcast(ctx context.Context, bookingID models.ID, event types.EventName, payload any) {
	topic := types.BookingTopic(bookingID.String())

	d, err := t.router.Broadcast(topic, event.String(), payload)
	if err != nil {
		t.log.Error(ctx, "broadcast failed", err, "topic", topic)
		return
	}
	metrics.RecordBroadcast(event.String(), d.Delivered, d.Dropped)

	if d.Dropped > 0 {
		t.log.Debug(wrap.WithBookingID(ctx, bookingID.String()), "broadcast dropped for some members",
			"event", event.String(),
			"delivered", d.Delivered,
			"dropped", d.Dropped,
		)
	}

	if t.mirror != nil {
		t.mirror.Publish(ctx, event, bookingID, payload)
	}
}

func (t *Tracker) timestamp() string {
	return models.FormatTimestamp(t.now())
}

func (t *Tracker) syncGauges() {
	_, drivers, customers := t.registry.Counts()
	metrics.SetActiveSessions(drivers, customers)
}

// Stats is a point-in-time view used by the health endpoint.
type Stats struct {
	Connections int `json:"connections"`
	Drivers     int `json:"drivers"`
	Customers   int `json:"customers"`
	Topics      int `json:"topics"`
}

func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	conns, drivers, customers := t.registry.Counts()
	return Stats{
		Connections: conns,
		Drivers:     drivers,
		Customers:   customers,
		Topics:      t.router.Len(),
	}
}

// DriverSession returns a copy of the driver's session, if any.
func (t *Tracker) DriverSession(driverID models.ID) (models.DriverSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.registry.Driver(driverID)
}

// ConnState reports the lifecycle state of connID.
func (t *Tracker) ConnState(connID string) ConnState {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.registry.State(connID)
}

// Members returns the connections currently joined to topic.
func (t *Tracker) Members(topic string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.router.Members(topic)
}

// eventLabel keeps metric cardinality bounded for garbage event names.
func eventLabel(event string) string {
	switch types.EventName(event) {
	case types.EventDriverJoin, types.EventCustomerJoin, types.EventLocationUpdate,
		types.EventStatusUpdate, types.EventChatMessage, types.EventEtaUpdate:
		return event
	default:
		return "unknown"
	}
}
