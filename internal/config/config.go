package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	HTTP        HTTPConfig
	Database    DatabaseConfig
	RabbitMQ    RabbitMQConfig
	Ingest      IngestConfig
	Registry    RegistryConfig
}

// HTTPConfig holds the listener settings. Addr serves the read API;
// OpsAddr serves the worker's health and metrics endpoints, which need
// their own listener because the worker runs without the read API.
type HTTPConfig struct {
	Addr    string
	OpsAddr string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// RabbitMQConfig holds RabbitMQ connection and queue settings.
//
// Sensors publish over MQTT; the broker mirrors those topics onto the
// amq.topic exchange with slashes rewritten to dots, which is where the
// state queue binds and where command messages are published.
type RabbitMQConfig struct {
	URL           string
	StateExchange string
	StateQueue    string
	StateBindKey  string
	CmdExchange   string
	DLQQueue      string
	PrefetchCount int
}

// IngestConfig holds ingestion pipeline settings
type IngestConfig struct {
	// AutoCommit selects the connection mode for one ingest operation.
	// When false the device registration and the reading insert run in a
	// single transaction committed after the insert.
	AutoCommit bool
}

// RegistryConfig holds the defaults applied when a device is first
// observed through its own telemetry
type RegistryConfig struct {
	DefaultSensorType string
	DefaultStreetID   string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "traffic-light-monitor"),
		HTTP: HTTPConfig{
			Addr:    getEnv("HTTP_ADDR", ":8080"),
			OpsAddr: getEnv("WORKER_HTTP_ADDR", ":9090"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:           getEnv("RABBITMQ_URL", ""),
			StateExchange: getEnv("RABBITMQ_STATE_EXCHANGE", "amq.topic"),
			StateQueue:    getEnv("RABBITMQ_STATE_QUEUE", "traffic-light.state.queue"),
			StateBindKey:  getEnv("RABBITMQ_STATE_BIND_KEY", "sensors.*.traffic_light.*.state"),
			CmdExchange:   getEnv("RABBITMQ_CMD_EXCHANGE", "amq.topic"),
			DLQQueue:      getEnv("RABBITMQ_DLQ_QUEUE", "traffic-light.state.dlq"),
			PrefetchCount: getEnvAsInt("RABBITMQ_PREFETCH", 1),
		},
		Ingest: IngestConfig{
			AutoCommit: getEnvAsBool("INGEST_AUTOCOMMIT", true),
		},
		Registry: RegistryConfig{
			DefaultSensorType: getEnv("REGISTRY_DEFAULT_SENSOR_TYPE", "traffic_light"),
			DefaultStreetID:   getEnv("REGISTRY_DEFAULT_STREET_ID", "ST_2245"),
		},
	}

	// Validate required fields
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set in environment variables")
	}
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
