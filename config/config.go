package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Log       LogConfig       `mapstructure:"log"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Store     StoreConfig     `mapstructure:"store"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	HTTP      HTTPConfig      `mapstructure:"http"`
}

type AppConfig struct {
	Env  string `mapstructure:"env"` // "dev" or "prod"
	Name string `mapstructure:"name"`
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

type GeneratorConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	Symbols     []string      `mapstructure:"symbols"`
	MinPrice    float64       `mapstructure:"min_price"`
	MaxPrice    float64       `mapstructure:"max_price"`
	Channel     string        `mapstructure:"channel"`
	Concurrency int           `mapstructure:"concurrency"`
	OpTimeout   time.Duration `mapstructure:"op_timeout"`
	RunOnStart  bool          `mapstructure:"run_on_start"`
	RejectStale bool          `mapstructure:"reject_stale"` // refuse observations older than the stored one
}

type StoreConfig struct {
	Backend string `mapstructure:"backend"` // "postgres", "redis" or "memory"
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type PublisherConfig struct {
	Backend         string `mapstructure:"backend"`          // "kafka" or "log"
	WebsocketMirror bool   `mapstructure:"websocket_mirror"` // also fan out to /ws clients
}

type KafkaConfig struct {
	Brokers           []string      `mapstructure:"brokers"`
	CreateTopic       bool          `mapstructure:"create_topic"`
	Partitions        int           `mapstructure:"partitions"`
	ReplicationFactor int           `mapstructure:"replication_factor"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	BatchTimeout      time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.name", "stockgen")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output_file", "")
	v.SetDefault("log.environment", "dev")

	v.SetDefault("generator.interval", 5*time.Second)
	v.SetDefault("generator.symbols", []string{"AAPL", "GOOG", "MSFT", "AMZN", "TSLA"})
	v.SetDefault("generator.min_price", 100.0)
	v.SetDefault("generator.max_price", 300.0)
	v.SetDefault("generator.channel", "stock-price-topic")
	v.SetDefault("generator.concurrency", 1)
	v.SetDefault("generator.op_timeout", 2*time.Second)
	v.SetDefault("generator.run_on_start", false)
	v.SetDefault("generator.reject_stale", false)

	v.SetDefault("store.backend", "postgres")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "")
	v.SetDefault("postgres.dbname", "stockgen")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timezone", "UTC")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", time.Hour)
	v.SetDefault("postgres.create_database", false)
	v.SetDefault("postgres.ssm.host", "/stockgen/db/host")
	v.SetDefault("postgres.ssm.user", "/stockgen/db/user")
	v.SetDefault("postgres.ssm.password", "/stockgen/db/password")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("publisher.backend", "kafka")
	v.SetDefault("publisher.websocket_mirror", true)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.create_topic", true)
	v.SetDefault("kafka.partitions", 3)
	v.SetDefault("kafka.replication_factor", 1)
	v.SetDefault("kafka.max_attempts", 3)
	v.SetDefault("kafka.batch_timeout", time.Millisecond)
	v.SetDefault("kafka.write_timeout", 10*time.Second)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
}

// Load loads application configuration using Viper.
// It reads config.yaml when one is found and overrides with environment
// variables (e.g. GENERATOR_INTERVAL, KAFKA_BROKERS). A .env file in the
// working directory is loaded into the environment first. An explicit path
// that can't be read is an error; a missing config.yaml on the search path is not.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // config.yaml
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		if ex, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values Load can't fix with a default.
func (c *Config) Validate() error {
	var errs []error

	if c.Generator.Interval <= 0 {
		errs = append(errs, errors.New("generator.interval must be positive"))
	}
	if len(c.Generator.Symbols) == 0 {
		errs = append(errs, errors.New("generator.symbols must not be empty"))
	}
	if c.Generator.MinPrice <= 0 || c.Generator.MaxPrice <= c.Generator.MinPrice {
		errs = append(errs, fmt.Errorf("generator price range [%v, %v) is invalid", c.Generator.MinPrice, c.Generator.MaxPrice))
	}
	if c.Generator.Channel == "" {
		errs = append(errs, errors.New("generator.channel is required"))
	}
	if c.Generator.Concurrency < 1 {
		errs = append(errs, errors.New("generator.concurrency must be at least 1"))
	}

	switch c.Store.Backend {
	case "postgres", "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown store.backend %q", c.Store.Backend))
	}

	switch c.Publisher.Backend {
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka.brokers is required for the kafka publisher"))
		}
	case "log":
	default:
		errs = append(errs, fmt.Errorf("unknown publisher.backend %q", c.Publisher.Backend))
	}

	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
