package wshandler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Temutjin2k/tracking-relay/internal/service/tracking"
	"github.com/Temutjin2k/tracking-relay/pkg/logger"
	ws "github.com/Temutjin2k/tracking-relay/pkg/wsHub"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type relay struct {
	server  *httptest.Server
	tracker *tracking.Tracker
	hub     *ws.ConnectionHub
}

func newRelay(t *testing.T, origins ...string) *relay {
	t.Helper()
	log := logger.New(io.Discard, "ws-test", logger.LevelDebug)

	tr := tracking.New(log)
	hub := ws.NewConnHub(log)
	h := NewTrackingWS(hub, tr, origins, ws.Options{SendBuffer: 16}, log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", h.HandleWS)
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return &relay{server: srv, tracker: tr, hub: hub}
}

func (r *relay) dial(t *testing.T, origin string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	url := "ws" + strings.TrimPrefix(r.server.URL, "http") + "/ws"
	c, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func send(t *testing.T, c *websocket.Conn, event, data string) {
	t.Helper()
	require.NoError(t, c.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"`+event+`","data":`+data+`}`)))
}

func TestTrackingWS_BookingRoundTrip(t *testing.T) {
	r := newRelay(t, "http://localhost:3000")
	driver := r.dial(t, "http://localhost:3000")
	customer := r.dial(t, "http://localhost:3000")

	send(t, driver, "driver-join", `{"userId":"D","bookingId":"B1"}`)
	send(t, customer, "customer-join", `{"userId":"C","bookingId":42}`)
	require.Eventually(t, func() bool {
		return r.tracker.Stats().Drivers == 1 && r.tracker.Stats().Customers == 1
	}, 2*time.Second, 10*time.Millisecond)

	// joins to different bookings do not leak
	send(t, driver, "location-update", `{"userId":"D","bookingId":"B1","location":{"lat":1,"lng":2},"speed":3,"heading":4}`)
	send(t, customer, "chat-message", `{"bookingId":42,"senderId":"C","senderRole":"customer","message":"hello"}`)

	require.NoError(t, customer.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	require.NoError(t, customer.ReadJSON(&msg))
	assert.Equal(t, "chat-message", msg.Event)
	assert.Equal(t, "42", msg.Data["bookingId"])
	assert.Equal(t, "hello", msg.Data["message"])
	assert.NotEmpty(t, msg.Data["timestamp"])

	require.NoError(t, driver.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, driver.ReadJSON(&msg))
	assert.Equal(t, "location-update", msg.Event)
	assert.Equal(t, "D", msg.Data["driverId"])
}

func TestTrackingWS_BadFramesKeepSocketOpen(t *testing.T) {
	r := newRelay(t, "*")
	c := r.dial(t, "https://anything.example")

	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte("not json")))
	send(t, c, "teleport", `{}`)
	send(t, c, "status-update", `{"bookingId":"B1"}`)
	send(t, c, "customer-join", `{"userId":"C","bookingId":"B1"}`)
	send(t, c, "status-update", `{"bookingId":"B1","status":"ARRIVED","message":"here"}`)

	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := c.ReadMessage()
	require.NoError(t, err)

	var msg ws.Frame
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "status-update", msg.Event, "nothing is echoed for dropped frames")
}

func TestTrackingWS_CloseCleansUp(t *testing.T) {
	r := newRelay(t, "*")
	c := r.dial(t, "")
	send(t, c, "driver-join", `{"userId":"D","bookingId":"B1"}`)

	require.Eventually(t, func() bool {
		return r.tracker.Stats().Drivers == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = c.Close()

	require.Eventually(t, func() bool {
		return r.tracker.Stats() == tracking.Stats{} && r.hub.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTrackingWS_ForbiddenOrigin(t *testing.T) {
	r := newRelay(t, "http://localhost:3000")

	url := "ws" + strings.TrimPrefix(r.server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, r.hub.Len())
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:3000/", " https://app.example "})

	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	assert.True(t, check(req("http://localhost:3000")))
	assert.True(t, check(req("https://app.example")))
	assert.True(t, check(req("")))
	assert.False(t, check(req("http://localhost:3001")))
	assert.True(t, originChecker([]string{"*"})(req("http://whatever")))
}
