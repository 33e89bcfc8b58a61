package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrConnClosed = errors.New("connection closed")
	ErrQueueFull  = errors.New("send queue full")
)

const (
	defaultSendBuffer   = 64
	defaultPingInterval = 30 * time.Second
	defaultPongWait     = 60 * time.Second
	defaultWriteWait    = 5 * time.Second
	maxFrameSize        = 64 << 10
)

// Message is an outbound frame.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Frame is an inbound frame; Data is decoded later by the event owner.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type Options struct {
	SendBuffer   int
	PingInterval time.Duration
	PongWait     time.Duration
	WriteWait    time.Duration
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = defaultSendBuffer
	}
	if o.PingInterval <= 0 {
		o.PingInterval = defaultPingInterval
	}
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	if o.PingInterval >= o.PongWait {
		o.PingInterval = o.PongWait * 9 / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = defaultWriteWait
	}
	return o
}

// Conn wraps one websocket. Writes go through a bounded queue drained by a
// single writer goroutine, so Send never blocks the caller.
type Conn struct {
	id   string
	conn *websocket.Conn
	opts Options

	send    chan []byte
	doneCtx context.Context
	cancel  context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

func NewConn(ctx context.Context, id string, conn *websocket.Conn, opts Options) *Conn {
	ctx, cancel := context.WithCancel(ctx)
	opts = opts.withDefaults()

	return &Conn{
		id:      id,
		conn:    conn,
		opts:    opts,
		send:    make(chan []byte, opts.SendBuffer),
		doneCtx: ctx,
		cancel:  cancel,
	}
}

func (c *Conn) ID() string {
	return c.id
}

// Done is closed once the connection is closed.
func (c *Conn) Done() <-chan struct{} {
	return c.doneCtx.Done()
}

// Send queues an event for delivery. It fails fast when the connection is
// closed or its queue is full; the message is dropped in both cases.
func (c *Conn) Send(event string, data any) error {
	select {
	case <-c.doneCtx.Done():
		return ErrConnClosed
	default:
	}

	msg, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event, err)
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.doneCtx.Done():
		return ErrConnClosed
	default:
		return ErrQueueFull
	}
}

// Listen starts the writer and reads frames until the connection fails or is
// closed. Undecodable frames are reported to handler with a non-nil error and
// do not stop the loop.
func (c *Conn) Listen(handler func(frame Frame, decodeErr error)) error {
	go c.writeLoop()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.doneCtx.Done():
				return ErrConnClosed
			default:
			}
			return fmt.Errorf("read failed: %w", err)
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			handler(Frame{}, err)
			continue
		}
		handler(frame, nil)
	}
}

func (c *Conn) writeLoop() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.doneCtx.Done():
			return
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(
				websocket.PingMessage,
				nil,
				time.Now().Add(c.opts.WriteWait),
			); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}

// Close is safe to call any number of times from any goroutine.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(c.opts.WriteWait),
		)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
