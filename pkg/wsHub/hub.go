package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/Temutjin2k/tracking-relay/pkg/logger"
	wrap "github.com/Temutjin2k/tracking-relay/pkg/logger/wrapper"
)

var (
	ErrEmptyConn      = errors.New("connection is empty")
	ErrConnIsNotFound = errors.New("connection not found")
	ErrDuplicateConn  = errors.New("connection id already registered")
	ErrHubClosed      = errors.New("hub closed")
)

// ConnectionHub owns every live connection of the process.
type ConnectionHub struct {
	clients map[string]*Conn
	closed  bool
	l       logger.Logger
	mu      sync.Mutex
	wg      sync.WaitGroup
}

func NewConnHub(l logger.Logger) *ConnectionHub {
	return &ConnectionHub{
		clients: make(map[string]*Conn),
		l:       l,
	}
}

// Add registers a connection. Every successful Add must be paired with Delete.
func (h *ConnectionHub) Add(newConn *Conn) error {
	if newConn == nil {
		return ErrEmptyConn
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	if _, ok := h.clients[newConn.id]; ok {
		return ErrDuplicateConn
	}

	h.clients[newConn.id] = newConn
	h.wg.Add(1)

	return nil
}

// Delete closes the connection and forgets it
func (h *ConnectionHub) Delete(id string) error {
	h.mu.Lock()
	conn, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	h.mu.Unlock()

	if !ok {
		return ErrConnIsNotFound
	}

	if err := conn.Close(); err != nil {
		h.l.Debug(wrap.WithAction(context.Background(), "ws_connection_delete"),
			"close returned error",
			"conn_id", id,
			"err", err.Error(),
		)
	}
	h.wg.Done()

	return nil
}

// Close closes every connection and waits until their owners have called Delete.
func (h *ConnectionHub) Close() {
	ctx := wrap.WithAction(context.Background(), "hub_close")

	h.mu.Lock()
	h.closed = true
	clients := make([]*Conn, 0, len(h.clients))
	for _, conn := range h.clients {
		clients = append(clients, conn)
	}
	h.mu.Unlock()

	// closing unblocks each owner's read loop, which then runs its cleanup
	for _, conn := range clients {
		_ = conn.Close()
	}

	h.wg.Wait()

	h.l.Info(ctx, "all websocket connections closed gracefully", "count", len(clients))
}

// Len returns the number of live connections
func (h *ConnectionHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// GetConn returns the connection by id
func (h *ConnectionHub) GetConn(id string) (*Conn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.clients[id]
	if !ok {
		return nil, ErrConnIsNotFound
	}
	return conn, nil
}
