package wshandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/Temutjin2k/tracking-relay/internal/domain/types"
	"github.com/Temutjin2k/tracking-relay/internal/service/tracking"
	"github.com/Temutjin2k/tracking-relay/pkg/logger"
	wrap "github.com/Temutjin2k/tracking-relay/pkg/logger/wrapper"
	"github.com/Temutjin2k/tracking-relay/pkg/metrics"
	ws "github.com/Temutjin2k/tracking-relay/pkg/wsHub"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Tracker is the part of the tracking service a socket talks to.
type Tracker interface {
	Connect(connID string, s tracking.Sender)
	HandleFrame(ctx context.Context, connID, event string, data json.RawMessage) error
	Disconnect(ctx context.Context, connID string) bool
}

// TrackingWS upgrades clients on /ws and runs the lifecycle of each
// connection: register, read loop, and a single cleanup however it ends.
type TrackingWS struct {
	hub      *ws.ConnectionHub
	tracker  Tracker
	upgrader websocket.Upgrader
	opts     ws.Options
	log      logger.Logger
}

func NewTrackingWS(hub *ws.ConnectionHub, tracker Tracker, allowedOrigins []string, opts ws.Options, log logger.Logger) *TrackingWS {
	return &TrackingWS{
		hub:     hub,
		tracker: tracker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		opts: opts,
		log:  log,
	}
}

// HandleWS serves GET /ws. Frames in both directions are {"event": ..., "data": ...}.
func (h *TrackingWS) HandleWS(w http.ResponseWriter, r *http.Request) {
	connID := uuid.NewString()
	ctx := wrap.WithConnID(wrap.WithAction(r.Context(), types.ActionConnectionOpened), connID)

	if !h.upgrader.CheckOrigin(r) {
		h.log.Warn(ctx, "websocket origin rejected", "origin", r.Header.Get("Origin"))
		http.Error(w, types.ErrOriginForbidden.Error(), http.StatusForbidden)
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied with an HTTP error
		h.log.Warn(ctx, "websocket upgrade failed", "reason", err.Error())
		return
	}

	conn := ws.NewConn(context.WithoutCancel(ctx), connID, raw, h.opts)
	if err := h.hub.Add(conn); err != nil {
		h.log.Warn(ctx, "connection refused", "reason", err.Error())
		_ = conn.Close()
		return
	}

	h.tracker.Connect(connID, conn)
	metrics.WebSocketConnectionsGauge.Inc()
	metrics.WebSocketConnectionsTotal.Inc()
	h.log.Info(ctx, "websocket connected", "remote_addr", r.RemoteAddr)

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			closeCtx := wrap.WithAction(ctx, types.ActionConnectionClosed)
			h.tracker.Disconnect(closeCtx, connID)
			if err := h.hub.Delete(connID); err != nil {
				h.log.Debug(closeCtx, "hub delete", "reason", err.Error())
			}
			metrics.WebSocketConnectionsGauge.Dec()
		})
	}
	defer cleanup()

	// a failed write closes the socket from the writer side
	go func() {
		<-conn.Done()
		cleanup()
	}()

	err = conn.Listen(func(f ws.Frame, decodeErr error) {
		if decodeErr != nil {
			metrics.RecordInboundEvent("unknown", "dropped")
			h.log.Debug(wrap.WithAction(ctx, types.ActionEventDropped), "undecodable frame dropped", "reason", decodeErr.Error())
			return
		}
		// failures are logged and counted by the tracker; the socket stays open
		_ = h.tracker.HandleFrame(ctx, connID, f.Event, f.Data)
	})

	closeCtx := wrap.WithAction(ctx, types.ActionConnectionClosed)
	switch {
	case errors.Is(err, ws.ErrConnClosed), isNormalClose(err):
		h.log.Info(closeCtx, "websocket disconnected")
	default:
		h.log.Info(closeCtx, "websocket disconnected unexpectedly", "reason", err.Error())
	}
}
