package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env       string          `mapstructure:"env"`
	Server    ServerConfig    `mapstructure:"server"`
	Grpc      GrpcConfig      `mapstructure:"grpc"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Events    EventsConfig    `mapstructure:"events"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	ReadTimeout    int      `mapstructure:"read_timeout_seconds"`
	WriteTimeout   int      `mapstructure:"write_timeout_seconds"`
	IdleTimeout    int      `mapstructure:"idle_timeout_seconds"`
	RequestTimeout int      `mapstructure:"request_timeout_seconds"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
}

type GrpcConfig struct {
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            string `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time_seconds"`
}

// EventsConfig selects where domain events go: "none", "nats" or "kafka".
type EventsConfig struct {
	Driver string      `mapstructure:"driver"`
	NATS   NATSConfig  `mapstructure:"nats"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type TelemetryConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

func (s ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout_seconds", 10)
	v.SetDefault("server.write_timeout_seconds", 10)
	v.SetDefault("server.idle_timeout_seconds", 60)
	v.SetDefault("server.request_timeout_seconds", 5)
	v.SetDefault("grpc.port", "9090")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "student_manager")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("events.driver", "none")
	v.SetDefault("events.nats.subject", "student-manager.events")
	v.SetDefault("events.kafka.topic", "student-manager.events")
	v.SetDefault("telemetry.interval_seconds", 10)
}

// Load reads config.<ENV>.yaml (ENV defaults to "local") and applies
// environment overrides, which take precedence over the file.
func Load() (*Config, error) {
	env := os.Getenv("ENV")
	if env == "" {
		env = "local"
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	v.SetConfigType("yaml")
	v.AddConfigPath("/configs")   // Kubernetes mount
	v.AddConfigPath("./configs")  // repository root
	v.AddConfigPath("../configs") // cmd/
	v.AddConfigPath("../../configs")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// file is optional, environment alone is enough
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("database.host", "DB_HOST")
	_ = v.BindEnv("database.port", "DB_PORT")
	_ = v.BindEnv("database.user", "DB_USER")
	_ = v.BindEnv("database.password", "DB_PASSWORD")
	_ = v.BindEnv("database.name", "DB_NAME")
	_ = v.BindEnv("events.nats.url", "NATS_URL")
	_ = v.BindEnv("sentry.dsn", "SENTRY_DSN")
	_ = v.BindEnv("telemetry.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Env = env

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Events.Driver {
	case "", "none":
	case "nats":
		if c.Events.NATS.URL == "" {
			return fmt.Errorf("events.nats.url is required when events.driver is nats")
		}
	case "kafka":
		if len(c.Events.Kafka.Brokers) == 0 {
			return fmt.Errorf("events.kafka.brokers is required when events.driver is kafka")
		}
	default:
		return fmt.Errorf("unknown events.driver %q", c.Events.Driver)
	}
	return nil
}
