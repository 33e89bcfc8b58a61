package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Temutjin2k/tracking-relay/pkg/configparser"
	"github.com/Temutjin2k/tracking-relay/pkg/logger"
)

// Errors
var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config contains all configuration variables of the application
type (
	Config struct {
		Port           string   `env:"PORT" default:"3001"`
		AllowedOrigins []string `env:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
		LogLevel       string   `env:"LOG_LEVEL" default:"INFO"`

		Simulator SimulatorConfig
		WebSocket WebSocketConfig
		RabbitMQ  RabbitMQConfig
	}

	SimulatorConfig struct {
		Enabled  bool          `env:"SIMULATOR_ENABLED" default:"true"`
		Interval time.Duration `env:"SIMULATOR_INTERVAL" default:"5s"`
		Jitter   float64       `env:"SIMULATOR_JITTER" default:"0.0005"` // degrees
	}

	WebSocketConfig struct {
		SendBuffer   int           `env:"WEBSOCKET_SEND_BUFFER" default:"64"`
		PingInterval time.Duration `env:"WEBSOCKET_PING_INTERVAL" default:"30s"`
		PongWait     time.Duration `env:"WEBSOCKET_PONG_WAIT" default:"60s"`
	}

	RabbitMQConfig struct {
		Enabled  bool   `env:"RABBITMQ_ENABLED" default:"false"`
		Host     string `env:"RABBITMQ_HOST" default:"localhost"`
		Port     string `env:"RABBITMQ_PORT" default:"5672"`
		User     string `env:"RABBITMQ_USER" default:"guest"`
		Password string `env:"RABBITMQ_PASSWORD" default:"guest"`

		Exchange       string `env:"RABBITMQ_EXCHANGE" default:"tracking_topic"`
		TelemetryQueue string `env:"RABBITMQ_TELEMETRY_QUEUE" default:"driver_telemetry"`
	}
)

func (c RabbitMQConfig) GetDSN() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.User,
		c.Password,
		c.Host,
		c.Port,
	)
}

// NewConfig loads the optional yaml file into the environment and parses
// the environment into Config. A non-empty logLevel overrides LOG_LEVEL.
func NewConfig(filepath, logLevel string) (*Config, error) {
	cfg := &Config{}

	// Loading enviromental variables and parsing to config struct.
	if err := configparser.LoadAndParseYaml(filepath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load and parse config: %w", err)
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("%w: PORT", ErrInvalidConfig)
	}
	if !logger.ValidateLogLevel(c.LogLevel) {
		return fmt.Errorf("%w: LOG_LEVEL %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.Simulator.Jitter < 0 {
		return fmt.Errorf("%w: SIMULATOR_JITTER must not be negative", ErrInvalidConfig)
	}
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("%w: WEBSOCKET_SEND_BUFFER must be positive", ErrInvalidConfig)
	}
	return nil
}
