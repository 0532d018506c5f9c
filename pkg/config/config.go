package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverRedis    = "redis"
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Correlation CorrelationConfig `mapstructure:"correlation"`
	Ledger      LedgerConfig      `mapstructure:"ledger"`
	Dispatch    DispatchConfig    `mapstructure:"dispatch"`
	Processor   ProcessorConfig   `mapstructure:"processor"`
	Generator   GeneratorConfig   `mapstructure:"generator"`
}

type AppConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"` // e.g., "local", "prod"
}

type LoggerConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	GroupID       string   `mapstructure:"group_id"`
	DispatchTopic string   `mapstructure:"dispatch_topic"` // empty disables the dispatch journal
}

type CorrelationConfig struct {
	Driver    string `mapstructure:"driver"`
	TTLMs     int    `mapstructure:"ttl_ms"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

func (c CorrelationConfig) TTL() time.Duration { return time.Duration(c.TTLMs) * time.Millisecond }

type LedgerConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

type DispatchConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	TimeoutMs  int    `mapstructure:"timeout_ms"`
}

func (d DispatchConfig) Timeout() time.Duration { return time.Duration(d.TimeoutMs) * time.Millisecond }

type ProcessorConfig struct {
	NumWorkers int `mapstructure:"num_workers"`
}

type GeneratorConfig struct {
	Underlyings []string `mapstructure:"underlyings"`
	Strikes     []int    `mapstructure:"strikes"`
	IntervalMs  int      `mapstructure:"interval_ms"`
	PairRatio   float64  `mapstructure:"pair_ratio"`
}

// LoadConfig reads configuration from .env file, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// .env values become real env vars so viper's env lookup sees them
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	v.SetDefault("app.port", ":3000")
	v.SetDefault("app.env", "local")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.development", false)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "trade_signals")
	v.SetDefault("kafka.group_id", "signal-processor-group")
	v.SetDefault("kafka.dispatch_topic", "")

	v.SetDefault("correlation.driver", DriverRedis)
	v.SetDefault("correlation.ttl_ms", 5000)
	v.SetDefault("correlation.key_prefix", "trade:")

	v.SetDefault("ledger.driver", DriverPostgres)
	v.SetDefault("ledger.dsn", "")
	v.SetDefault("ledger.host", "localhost")
	v.SetDefault("ledger.port", 5432)
	v.SetDefault("ledger.user", "postgres")
	v.SetDefault("ledger.password", "")
	v.SetDefault("ledger.database", "signals")
	v.SetDefault("ledger.sslmode", "disable")

	v.SetDefault("dispatch.webhook_url", "http://localhost:8090/signals")
	v.SetDefault("dispatch.timeout_ms", 5000)

	v.SetDefault("processor.num_workers", 4)

	v.SetDefault("generator.underlyings", []string{"NIFTY250930", "BANKNIFTY250930"})
	v.SetDefault("generator.strikes", []int{25000, 25100, 25200})
	v.SetDefault("generator.interval_ms", 250)
	v.SetDefault("generator.pair_ratio", 0.6)

	// "app.port" -> "APP_PORT"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// flat env vars only reach nested structs when bound explicitly
	bindEnv(v, "app.port", "app.env")
	bindEnv(v, "logger.level", "logger.development")
	bindEnv(v, "redis.addr", "redis.password", "redis.db")
	bindEnv(v, "kafka.brokers", "kafka.topic", "kafka.group_id", "kafka.dispatch_topic")
	bindEnv(v, "correlation.driver", "correlation.ttl_ms", "correlation.key_prefix")
	bindEnv(v, "ledger.driver", "ledger.dsn", "ledger.host", "ledger.port", "ledger.user", "ledger.password", "ledger.database", "ledger.sslmode")
	bindEnv(v, "dispatch.webhook_url", "dispatch.timeout_ms")
	bindEnv(v, "processor.num_workers")
	bindEnv(v, "generator.underlyings", "generator.strikes", "generator.interval_ms", "generator.pair_ratio")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers cannot be empty")
	}
	if c.Correlation.TTLMs <= 0 {
		return fmt.Errorf("correlation ttl_ms must be positive, got %d", c.Correlation.TTLMs)
	}
	if c.Correlation.Driver != DriverRedis && c.Correlation.Driver != DriverMemory {
		return fmt.Errorf("unknown correlation driver %q", c.Correlation.Driver)
	}
	if c.Ledger.Driver != DriverPostgres && c.Ledger.Driver != DriverMemory {
		return fmt.Errorf("unknown ledger driver %q", c.Ledger.Driver)
	}
	if c.Dispatch.WebhookURL == "" {
		return fmt.Errorf("dispatch webhook_url cannot be empty")
	}
	if c.Processor.NumWorkers <= 0 {
		return fmt.Errorf("processor num_workers must be positive, got %d", c.Processor.NumWorkers)
	}
	return nil
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}
