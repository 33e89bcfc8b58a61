package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Temutjin2k/tracking-relay/config"
	"github.com/Temutjin2k/tracking-relay/internal/adapter/http/handler"
	"github.com/Temutjin2k/tracking-relay/internal/adapter/http/middleware"
	wshandler "github.com/Temutjin2k/tracking-relay/internal/adapter/http/ws"
	"github.com/Temutjin2k/tracking-relay/pkg/logger"
	wrap "github.com/Temutjin2k/tracking-relay/pkg/logger/wrapper"
)

const (
	serverIPAddress = "%s:%s"
	shutdownTimeout = 5 * time.Second
)

type API struct {
	mux    *http.ServeMux
	server *http.Server
	routes *handlers // routes/handlers
	m      *middleware.Middleware

	serviceName string
	addr        string
	log         logger.Logger
}

type handlers struct {
	health *handler.Health
	ws     *wshandler.TrackingWS
}

func New(
	cfg config.Config,
	serviceName string,
	health *handler.Health,
	ws *wshandler.TrackingWS,
	logger logger.Logger,
) (*API, error) {
	if health == nil || ws == nil {
		return nil, errors.New("health and websocket handlers are required")
	}

	api := &API{
		mux: http.NewServeMux(),
		routes: &handlers{
			health: health,
			ws:     ws,
		},
		m:           middleware.NewMiddleware(cfg.AllowedOrigins, logger),
		serviceName: serviceName,
		addr:        fmt.Sprintf(serverIPAddress, "0.0.0.0", cfg.Port),
		log:         logger,
	}

	api.setupRoutes()

	api.server = &http.Server{
		Addr:              api.addr,
		Handler:           api.withMiddleware(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return api, nil
}

// Handler returns the fully wrapped handler, for tests.
func (a *API) Handler() http.Handler {
	return a.server.Handler
}

func (a *API) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	ctx = wrap.WithAction(ctx, "http_server_stop")

	a.log.Debug(ctx, "shutting down HTTP server...", "address", a.addr)
	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}
	a.log.Debug(ctx, "shutting down HTTP server completed")

	return nil
}

// Run binds the listener synchronously and serves in the background.
// Serve errors other than a clean shutdown are sent to errCh.
func (a *API) Run(ctx context.Context, errCh chan<- error) error {
	ctx = wrap.WithAction(ctx, "http_server_start")

	ln, err := net.Listen("tcp", a.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.addr, err)
	}

	go func() {
		a.log.Info(ctx, "started http server", "address", ln.Addr().String())
		if err := a.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}()

	return nil
}

// withMiddleware applies middlewares to the mux
func (a *API) withMiddleware() http.Handler {
	metrics := a.m.Metrics(a.serviceName, pathWS, pathHealth)
	return a.m.Recover(metrics(a.m.Logging(a.m.CORS(a.mux))))
}
