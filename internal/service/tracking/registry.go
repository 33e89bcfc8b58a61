package tracking

import (
	"iter"

	"github.com/Temutjin2k/tracking-relay/internal/domain/models"
	"github.com/Temutjin2k/tracking-relay/internal/domain/types"
)

// ConnState is the lifecycle state of a connection as seen by presence.
type ConnState int

const (
	StateClosed ConnState = iota
	StateUnjoined
	StateJoined
)

func (s ConnState) String() string {
	switch s {
	case StateUnjoined:
		return "unjoined"
	case StateJoined:
		return "joined"
	default:
		return "closed"
	}
}

type connEntry struct {
	sender Sender
	state  ConnState
}

// Registry is the presence registry: live connections plus the driver and
// customer sessions derived from them. It is not safe for concurrent use;
// Tracker serializes access.
type Registry struct {
	conns     map[string]*connEntry
	drivers   map[models.ID]*models.DriverSession
	customers map[models.ID]*models.CustomerSession
}

func NewRegistry() *Registry {
	return &Registry{
		conns:     make(map[string]*connEntry),
		drivers:   make(map[models.ID]*models.DriverSession),
		customers: make(map[models.ID]*models.CustomerSession),
	}
}

// Attach records a new live connection in the Unjoined state.
func (r *Registry) Attach(connID string, s Sender) {
	r.conns[connID] = &connEntry{sender: s, state: StateUnjoined}
}

// Detach forgets the connection handle.
func (r *Registry) Detach(connID string) {
	delete(r.conns, connID)
}

func (r *Registry) Conn(connID string) (Sender, bool) {
	e, ok := r.conns[connID]
	if !ok {
		return nil, false
	}
	return e.sender, true
}

func (r *Registry) State(connID string) ConnState {
	if e, ok := r.conns[connID]; ok {
		return e.state
	}
	return StateClosed
}

func (r *Registry) markJoined(connID string) {
	if e, ok := r.conns[connID]; ok {
		e.state = StateJoined
	}
}

// RegisterDriver inserts or replaces the session for driverID.
func (r *Registry) RegisterDriver(driverID, bookingID models.ID, connID string) {
	r.drivers[driverID] = &models.DriverSession{
		DriverID:  driverID,
		ConnID:    connID,
		BookingID: bookingID,
	}
	r.markJoined(connID)
}

// RegisterCustomer inserts or replaces the session for customerID.
func (r *Registry) RegisterCustomer(customerID, bookingID models.ID, connID string) {
	r.customers[customerID] = &models.CustomerSession{
		CustomerID: customerID,
		ConnID:     connID,
		BookingID:  bookingID,
	}
	r.markJoined(connID)
}

// UpdateDriverLocation reports false for an unknown driver and changes nothing.
func (r *Registry) UpdateDriverLocation(driverID models.ID, loc models.Location) bool {
	s, ok := r.drivers[driverID]
	if !ok {
		return false
	}
	s.LastLocation = &loc
	return true
}

func (r *Registry) Driver(driverID models.ID) (models.DriverSession, bool) {
	s, ok := r.drivers[driverID]
	if !ok {
		return models.DriverSession{}, false
	}
	return *s, true
}

func (r *Registry) Customer(customerID models.ID) (models.CustomerSession, bool) {
	s, ok := r.customers[customerID]
	if !ok {
		return models.CustomerSession{}, false
	}
	return *s, true
}

// RemoveByConnection drops every session bound to connID and returns them.
func (r *Registry) RemoveByConnection(connID string) []models.Identity {
	var removed []models.Identity

	for id, s := range r.drivers {
		if s.ConnID == connID {
			delete(r.drivers, id)
			removed = append(removed, models.Identity{Role: types.RoleDriver, UserID: id, BookingID: s.BookingID})
		}
	}
	for id, s := range r.customers {
		if s.ConnID == connID {
			delete(r.customers, id)
			removed = append(removed, models.Identity{Role: types.RoleCustomer, UserID: id, BookingID: s.BookingID})
		}
	}

	return removed
}

// AllDriversWithLocation yields a snapshot of every driver with a known
// location. Each call starts a fresh pass over the sessions.
func (r *Registry) AllDriversWithLocation() iter.Seq[models.DriverPosition] {
	return func(yield func(models.DriverPosition) bool) {
		for id, s := range r.drivers {
			if s.LastLocation == nil {
				continue
			}
			if !yield(models.DriverPosition{DriverID: id, BookingID: s.BookingID, Location: *s.LastLocation}) {
				return
			}
		}
	}
}

// Counts returns live connections, driver sessions and customer sessions.
func (r *Registry) Counts() (conns, drivers, customers int) {
	return len(r.conns), len(r.drivers), len(r.customers)
}
