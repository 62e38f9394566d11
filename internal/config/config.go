// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const HTTPDisabled = "off"

var ErrInvalidPort = errors.New("invalid port")

type Config struct {
	Game      GameConfig
	HTTP      HTTPConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Telemetry TelemetryConfig
	LogLevel  slog.Level
}

type GameConfig struct {
	// Ports to listen on; the first one hosts the local room.
	Ports        []int
	TurnTimeout  time.Duration
	MaxLineBytes int
}

type HTTPConfig struct {
	Addr string
}

// Enabled reports whether the HTTP surface should be started.
func (c HTTPConfig) Enabled() bool {
	return c.Addr != "" && c.Addr != HTTPDisabled
}

type RedisConfig struct {
	Addr          string
	EventsChannel string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type TelemetryConfig struct {
	CollectorAddr string
}

// LoadConfig reads an optional .env file, then the environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	ports, err := ParsePorts(strings.Split(getEnv("GAME_PORTS", "8000,8001"), ","))
	if err != nil {
		return nil, err
	}
	turnTimeout, err := time.ParseDuration(getEnv("TURN_TIMEOUT", "30s"))
	if err != nil || turnTimeout <= 0 {
		return nil, fmt.Errorf("invalid TURN_TIMEOUT %q", os.Getenv("TURN_TIMEOUT"))
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return &Config{
		Game: GameConfig{
			Ports:        ports,
			TurnTimeout:  turnTimeout,
			MaxLineBytes: getEnvInt("MAX_LINE_BYTES", 1024),
		},
		HTTP: HTTPConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		Redis: RedisConfig{
			Addr:          getEnv("REDIS_ADDR", ""),
			EventsChannel: getEnv("REDIS_EVENTS_CHANNEL", "channel:events"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "nogo-events"),
		},
		Telemetry: TelemetryConfig{
			CollectorAddr: getEnv("OTEL_COLLECTOR_ADDR", ""),
		},
		LogLevel: level,
	}, nil
}

// ApplyArgs replaces the configured ports with positional command line
// arguments, if there are any.
func (c *Config) ApplyArgs(args []string) error {
	if len(args) == 0 {
		return nil
	}
	ports, err := ParsePorts(args)
	if err != nil {
		return err
	}
	c.Game.Ports = ports
	return nil
}

// ParsePorts parses a non-empty list of distinct TCP ports.
func ParsePorts(values []string) ([]int, error) {
	seen := make(map[int]bool)
	var ports []int
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		port, err := strconv.Atoi(v)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPort, v)
		}
		if seen[port] {
			return nil, fmt.Errorf("%w: %d listed twice", ErrInvalidPort, port)
		}
		seen[port] = true
		ports = append(ports, port)
	}
	if len(ports) == 0 {
		return nil, fmt.Errorf("%w: no ports given", ErrInvalidPort)
	}
	return ports, nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
