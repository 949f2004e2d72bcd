package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// HTTP holds HTTP server configuration.
type HTTP struct {
	Host string
	Port int
}

// GRPC holds gRPC server configuration.
type GRPC struct {
	Host string
	Port int
}

// Cache configures caching behavior and backend selection.
type Cache struct {
	Enabled    bool
	Driver     string
	DefaultTTL time.Duration
	Redis      Redis
}

// Redis contains redis-specific connection settings.
type Redis struct {
	Addr     string
	Password string
	DB       int
}

// Messaging configures the message bus used by the application.
type Messaging struct {
	Driver        string
	Enabled       bool
	Kafka         Kafka
	ConsumerGroup string
	Workers       Worker
}

// Kafka holds Kafka connection details.
type Kafka struct {
	Brokers        []string
	ClientID       string
	Topic          string
	CommitInterval time.Duration
	MinBytes       int
	MaxBytes       int
	ConnectTimeout time.Duration
}

// Worker configures background worker concurrency and polling.
type Worker struct {
	Enabled      bool
	PollInterval time.Duration
	Concurrency  int
}

// Database holds connection settings. The memory driver keeps orders in
// process and needs no DSN.
type Database struct {
	Driver          string
	WriterDSN       string
	ReaderDSN       string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
}

// InMemory reports whether the process-local order store is selected.
func (d Database) InMemory() bool {
	return d.Driver == "memory"
}

// Escrow configures the settlement provider used during order acceptance.
type Escrow struct {
	Driver     string
	HorizonURL string
	Timeout    time.Duration
}

// Observability contains logging, tracing, and metrics configuration.
type Observability struct {
	ServiceName     string
	Environment     string
	LogLevel        string
	LogEncoding     string
	EnableTracing   bool
	TraceExporter   string
	TraceEndpoint   string
	TraceInsecure   bool
	EnableMetrics   bool
	MetricsExporter string
	PrometheusPath  string
}

// Config wraps all application configuration knobs.
type Config struct {
	HTTP          HTTP
	GRPC          GRPC
	Cache         Cache
	Messaging     Messaging
	Database      Database
	Escrow        Escrow
	Observability Observability
}

// Module wires the configuration loader into the Fx graph.
var Module = fx.Provide(New)

var loadEnvOnce sync.Once

// New builds a Config from environment variables or defaults.
func New() (Config, error) {
	loadEnvOnce.Do(func() {
		_ = godotenv.Load()
	})

	cfg := Config{
		HTTP: HTTP{
			Host: envString("HTTP_HOST", "0.0.0.0"),
			Port: envInt("HTTP_PORT", 8080),
		},
		GRPC: GRPC{
			Host: envString("GRPC_HOST", "0.0.0.0"),
			Port: envInt("GRPC_PORT", 9090),
		},
		Cache: Cache{
			Enabled:    envBool("CACHE_ENABLED", true),
			Driver:     envString("CACHE_DRIVER", "redis"),
			DefaultTTL: envDuration("CACHE_DEFAULT_TTL", time.Minute*5),
			Redis: Redis{
				Addr:     envString("REDIS_ADDR", "127.0.0.1:6379"),
				Password: envString("REDIS_PASSWORD", ""),
				DB:       envInt("REDIS_DB", 0),
			},
		},
		Messaging: Messaging{
			Driver:  envString("MESSAGING_DRIVER", "kafka"),
			Enabled: envBool("MESSAGING_ENABLED", true),
			Kafka: Kafka{
				Brokers:        envStringList("KAFKA_BROKERS", []string{"127.0.0.1:9092"}),
				ClientID:       envString("KAFKA_CLIENT_ID", "harvest-service"),
				Topic:          envString("KAFKA_TOPIC", "orders.lifecycle"),
				CommitInterval: envDuration("KAFKA_COMMIT_INTERVAL", time.Second),
				MinBytes:       envInt("KAFKA_MIN_BYTES", 10e3),
				MaxBytes:       envInt("KAFKA_MAX_BYTES", 10e6),
				ConnectTimeout: envDuration("KAFKA_CONNECT_TIMEOUT", 5*time.Second),
			},
			ConsumerGroup: envString("KAFKA_CONSUMER_GROUP", "harvest-worker"),
			Workers: Worker{
				Enabled:      envBool("WORKER_ENABLED", true),
				PollInterval: envDuration("WORKER_POLL_INTERVAL", time.Second),
				Concurrency:  envInt("WORKER_CONCURRENCY", 4),
			},
		},
		Database: Database{
			Driver:          envString("DB_DRIVER", "memory"),
			WriterDSN:       envString("DB_WRITER_DSN", ""),
			ReaderDSN:       envString("DB_READER_DSN", ""),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 25),
			MaxConnLifetime: envDuration("DB_MAX_CONN_LIFETIME", time.Minute*5),
		},
		Escrow: Escrow{
			Driver:     envString("ESCROW_DRIVER", "simulated"),
			HorizonURL: envString("STELLAR_HORIZON_URL", ""),
			Timeout:    envDuration("ESCROW_TIMEOUT", 10*time.Second),
		},
		Observability: Observability{
			ServiceName:     envString("OBS_SERVICE_NAME", "harvest"),
			Environment:     envString("OBS_ENVIRONMENT", "local"),
			LogLevel:        envString("OBS_LOG_LEVEL", "info"),
			LogEncoding:     envString("OBS_LOG_ENCODING", "json"),
			EnableTracing:   envBool("OBS_ENABLE_TRACING", true),
			TraceExporter:   envString("OBS_TRACE_EXPORTER", "stdout"),
			TraceEndpoint:   envString("OBS_OTLP_ENDPOINT", "localhost:4317"),
			TraceInsecure:   envBool("OBS_OTLP_INSECURE", true),
			EnableMetrics:   envBool("OBS_ENABLE_METRICS", true),
			MetricsExporter: envString("OBS_METRICS_EXPORTER", "prometheus"),
			PrometheusPath:  envString("OBS_PROMETHEUS_PATH", "/metrics"),
		},
	}

	if cfg.HTTP.Port <= 0 {
		return Config{}, fmt.Errorf("invalid HTTP port: %d", cfg.HTTP.Port)
	}

	if cfg.GRPC.Port <= 0 {
		return Config{}, fmt.Errorf("invalid gRPC port: %d", cfg.GRPC.Port)
	}

	if !cfg.Cache.Enabled {
		cfg.Cache.Driver = "noop"
	}

	switch cfg.Cache.Driver {
	case "redis", "noop":
		// supported
	default:
		return Config{}, fmt.Errorf("unsupported cache driver: %s", cfg.Cache.Driver)
	}

	if cfg.Cache.Driver == "redis" && cfg.Cache.Redis.Addr == "" {
		return Config{}, fmt.Errorf("missing REDIS_ADDR for redis cache")
	}

	if cfg.Cache.DefaultTTL < 0 {
		cfg.Cache.DefaultTTL = time.Minute * 5
	}

	cfg.Observability.LogLevel = strings.ToLower(strings.TrimSpace(cfg.Observability.LogLevel))
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
	cfg.Observability.LogEncoding = strings.ToLower(strings.TrimSpace(cfg.Observability.LogEncoding))
	if cfg.Observability.LogEncoding == "" {
		cfg.Observability.LogEncoding = "json"
	}
	cfg.Observability.TraceExporter = strings.ToLower(strings.TrimSpace(cfg.Observability.TraceExporter))
	if cfg.Observability.TraceExporter == "" {
		cfg.Observability.TraceExporter = "stdout"
	}
	cfg.Observability.MetricsExporter = strings.ToLower(strings.TrimSpace(cfg.Observability.MetricsExporter))
	if cfg.Observability.MetricsExporter == "" {
		cfg.Observability.MetricsExporter = "prometheus"
	}

	if cfg.Observability.PrometheusPath == "" {
		cfg.Observability.PrometheusPath = "/metrics"
	} else if !strings.HasPrefix(cfg.Observability.PrometheusPath, "/") {
		cfg.Observability.PrometheusPath = "/" + cfg.Observability.PrometheusPath
	}

	if !cfg.Messaging.Enabled {
		cfg.Messaging.Driver = "noop"
	}

	switch cfg.Messaging.Driver {
	case "kafka", "noop":
		// supported
	default:
		return Config{}, fmt.Errorf("unsupported messaging driver: %s", cfg.Messaging.Driver)
	}

	if cfg.Messaging.Driver == "kafka" {
		if len(cfg.Messaging.Kafka.Brokers) == 0 {
			return Config{}, fmt.Errorf("KAFKA_BROKERS must be provided")
		}
		if cfg.Messaging.Kafka.Topic == "" {
			return Config{}, fmt.Errorf("KAFKA_TOPIC must be provided")
		}
		if cfg.Messaging.ConsumerGroup == "" {
			return Config{}, fmt.Errorf("KAFKA_CONSUMER_GROUP must be provided")
		}
	}

	if cfg.Messaging.Workers.Concurrency <= 0 {
		cfg.Messaging.Workers.Concurrency = 1
	}
	if cfg.Messaging.Workers.PollInterval <= 0 {
		cfg.Messaging.Workers.PollInterval = time.Second
	}

	switch cfg.Database.Driver {
	case "memory", "postgres", "mysql", "sqlite":
		// supported
	default:
		return Config{}, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	if !cfg.Database.InMemory() {
		if cfg.Database.WriterDSN == "" {
			return Config{}, fmt.Errorf("missing DB_WRITER_DSN")
		}
		if cfg.Database.ReaderDSN == "" {
			cfg.Database.ReaderDSN = cfg.Database.WriterDSN
		}
	}

	switch cfg.Escrow.Driver {
	case "simulated", "horizon":
		// supported
	default:
		return Config{}, fmt.Errorf("unsupported escrow driver: %s", cfg.Escrow.Driver)
	}

	if cfg.Escrow.Driver == "horizon" && cfg.Escrow.HorizonURL == "" {
		return Config{}, fmt.Errorf("missing STELLAR_HORIZON_URL for horizon escrow")
	}

	if cfg.Escrow.Timeout <= 0 {
		cfg.Escrow.Timeout = 10 * time.Second
	}

	return cfg, nil
}
