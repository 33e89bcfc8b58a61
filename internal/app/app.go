package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Temutjin2k/tracking-relay/config"
	"github.com/Temutjin2k/tracking-relay/internal/adapter/http/handler"
	"github.com/Temutjin2k/tracking-relay/internal/adapter/http/server"
	wshandler "github.com/Temutjin2k/tracking-relay/internal/adapter/http/ws"
	rabbitadapter "github.com/Temutjin2k/tracking-relay/internal/adapter/rabbit"
	"github.com/Temutjin2k/tracking-relay/internal/service/tracking"
	"github.com/Temutjin2k/tracking-relay/pkg/logger"
	wrap "github.com/Temutjin2k/tracking-relay/pkg/logger/wrapper"
	"github.com/Temutjin2k/tracking-relay/pkg/rabbit"
	ws "github.com/Temutjin2k/tracking-relay/pkg/wsHub"
)

const ServiceName = "tracking-relay"

var ErrServiceNotInitialized = errors.New("service not initialized")

// App wires the relay: tracker, simulator, websocket hub, HTTP server and
// the optional RabbitMQ mirror and telemetry consumer.
type App struct {
	tracker    *tracking.Tracker
	simulator  *tracking.Simulator
	hub        *ws.ConnectionHub
	httpServer *server.API

	rabbit    *rabbit.RabbitMQ
	mirror    *rabbitadapter.EventMirror
	telemetry *rabbitadapter.TelemetryConsumer

	cfg config.Config
	log logger.Logger
}

// NewApplication
func NewApplication(ctx context.Context, cfg config.Config, log logger.Logger) (*App, error) {
	a := &App{
		cfg: cfg,
		log: log,
	}

	var opts []tracking.Option
	if cfg.RabbitMQ.Enabled {
		client, err := rabbit.New(ctx, cfg.RabbitMQ.GetDSN(), log)
		if err != nil {
			log.Error(ctx, "Failed to connect to RabbitMQ", err)
			return nil, err
		}
		a.rabbit = client
		a.mirror = rabbitadapter.NewEventMirror(client, cfg.RabbitMQ.Exchange, 0, log)
		opts = append(opts, tracking.WithMirror(a.mirror))
	}

	a.tracker = tracking.New(log, opts...)
	a.simulator = tracking.NewSimulator(a.tracker, tracking.SimulatorConfig{
		Enabled:  cfg.Simulator.Enabled,
		Interval: cfg.Simulator.Interval,
		Jitter:   cfg.Simulator.Jitter,
	}, log)

	if a.rabbit != nil {
		a.telemetry = rabbitadapter.NewTelemetryConsumer(a.rabbit, cfg.RabbitMQ.TelemetryQueue, cfg.RabbitMQ.Exchange, a.tracker, log)
	}

	a.hub = ws.NewConnHub(log)
	wsHandler := wshandler.NewTrackingWS(a.hub, a.tracker, cfg.AllowedOrigins, ws.Options{
		SendBuffer:   cfg.WebSocket.SendBuffer,
		PingInterval: cfg.WebSocket.PingInterval,
		PongWait:     cfg.WebSocket.PongWait,
	}, log)

	httpServer, err := server.New(cfg, ServiceName, handler.NewHealth(ServiceName, a.tracker, log), wsHandler, log)
	if err != nil {
		log.Error(ctx, "Failed to setup http server", err)
		a.close(ctx)
		return nil, err
	}
	a.httpServer = httpServer

	return a, nil
}

// Run serves until SIGINT/SIGTERM or a fatal server error, then shuts down.
func (a *App) Run(ctx context.Context) error {
	if a.httpServer == nil || a.tracker == nil {
		return ErrServiceNotInitialized
	}

	ctx, cancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)

	defer func() {
		cancel()
		a.close(context.WithoutCancel(ctx))
		a.log.Info(ctx, "tracking relay closed")
	}()

	if a.mirror != nil {
		if err := a.mirror.Start(ctx); err != nil {
			a.log.Error(ctx, "failed to start event mirror", err)
			return err
		}
	}
	if a.telemetry != nil {
		go func() {
			if err := a.telemetry.Run(ctx); err != nil {
				a.log.Error(ctx, "telemetry consumer stopped", err)
			}
		}()
	}

	if err := a.httpServer.Run(ctx, errCh); err != nil {
		return err
	}

	a.simulator.Start(ctx)

	// Waiting signal
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	a.log.Info(ctx, "tracking relay started", "port", a.cfg.Port)

	select {
	case errRun := <-errCh:
		return errRun
	case sig := <-shutdownCh:
		a.log.Info(ctx, "shuting down application", "signal", sig.String())
		return nil
	case <-ctx.Done():
		return nil
	}
}

// close stops producers before the sockets they write to, and the mirror
// after the last broadcast.
func (a *App) close(ctx context.Context) {
	ctx = wrap.WithAction(ctx, "app_close")

	if a.simulator != nil {
		a.simulator.Stop()
	}

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Warn(ctx, "Failed to gracefully close http server", "error", err.Error())
		}
	}

	// every live socket goes through its own disconnect path
	if a.hub != nil {
		a.hub.Close()
	}

	if a.mirror != nil {
		a.mirror.Close()
	}

	if a.rabbit != nil {
		closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.rabbit.Close(closeCtx); err != nil {
			a.log.Warn(ctx, "Failed to close RabbitMQ", "error", err.Error())
		}
	}
}
