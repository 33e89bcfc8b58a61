package config

import (
	"fmt"
	"strings"
)

const HelpMessage = `tracking-relay: real-time booking tracking and messaging relay

Usage:
  tracking [--config-path config.yaml] [--log-level DEBUG|INFO|WARN|ERROR]

Every setting can come from the yaml file or the environment (environment wins):
  PORT                      listening port (3001)
  ALLOWED_ORIGINS           comma-separated websocket origins, "*" for any
  LOG_LEVEL                 DEBUG, INFO, WARN or ERROR
  SIMULATOR_ENABLED         synthetic driver motion (true)
  SIMULATOR_INTERVAL        tick period (5s)
  SIMULATOR_JITTER          max step in degrees (0.0005)
  WEBSOCKET_SEND_BUFFER     per-connection outbound queue (64)
  WEBSOCKET_PING_INTERVAL   keepalive ping period (30s)
  WEBSOCKET_PONG_WAIT       read deadline (60s)
  RABBITMQ_ENABLED          event mirror and telemetry consumer (false)
  RABBITMQ_HOST, RABBITMQ_PORT, RABBITMQ_USER, RABBITMQ_PASSWORD
  RABBITMQ_EXCHANGE         mirror exchange (tracking_topic)
  RABBITMQ_TELEMETRY_QUEUE  driver telemetry queue (driver_telemetry)
`

// PrintConfig prints the effective configuration with secrets masked.
func PrintConfig(cfg *Config) {
	var b strings.Builder

	fmt.Fprintln(&b, "configuration:")
	fmt.Fprintf(&b, "  port:             %s\n", cfg.Port)
	fmt.Fprintf(&b, "  allowed origins:  %s\n", strings.Join(cfg.AllowedOrigins, ", "))
	fmt.Fprintf(&b, "  log level:        %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "  simulator:        enabled=%t interval=%s jitter=%g\n",
		cfg.Simulator.Enabled, cfg.Simulator.Interval, cfg.Simulator.Jitter)
	fmt.Fprintf(&b, "  websocket:        buffer=%d ping=%s pong=%s\n",
		cfg.WebSocket.SendBuffer, cfg.WebSocket.PingInterval, cfg.WebSocket.PongWait)
	fmt.Fprintf(&b, "  rabbitmq:         enabled=%t %s@%s:%s exchange=%s queue=%s\n",
		cfg.RabbitMQ.Enabled, cfg.RabbitMQ.User, cfg.RabbitMQ.Host, cfg.RabbitMQ.Port,
		cfg.RabbitMQ.Exchange, cfg.RabbitMQ.TelemetryQueue)

	fmt.Print(b.String())
}
