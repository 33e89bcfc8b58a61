package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Temutjin2k/tracking-relay/config"
	"github.com/Temutjin2k/tracking-relay/internal/adapter/http/handler"
	wshandler "github.com/Temutjin2k/tracking-relay/internal/adapter/http/ws"
	"github.com/Temutjin2k/tracking-relay/internal/service/tracking"
	"github.com/Temutjin2k/tracking-relay/pkg/logger"
	ws "github.com/Temutjin2k/tracking-relay/pkg/wsHub"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) (*httptest.Server, *tracking.Tracker) {
	t.Helper()
	log := logger.New(io.Discard, "server-test", logger.LevelDebug)

	cfg := config.Config{Port: "0", AllowedOrigins: []string{"http://localhost:3000"}}
	tr := tracking.New(log)
	hub := ws.NewConnHub(log)

	api, err := New(cfg, "tracking-relay",
		handler.NewHealth("tracking-relay", tr, log),
		wshandler.NewTrackingWS(hub, tr, cfg.AllowedOrigins, ws.Options{}, log),
		log,
	)
	require.NoError(t, err)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return srv, tr
}

func TestAPI_Routes(t *testing.T) {
	srv, _ := newTestAPI(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status": "available"`)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/health", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestAPI_WebSocketThroughMiddleware(t *testing.T) {
	srv, tr := newTestAPI(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://localhost:3000"}})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"customer-join","data":{"userId":"C","bookingId":"B1"}}`)))

	require.Eventually(t, func() bool {
		return tr.Stats().Customers == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"http://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
