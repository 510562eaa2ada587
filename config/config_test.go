package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// go test -v --run ^TestLoadDefaults$
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: stockgen\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Generator.Interval != 5*time.Second {
		t.Errorf("interval = %v", cfg.Generator.Interval)
	}
	if got := strings.Join(cfg.Generator.Symbols, ","); got != "AAPL,GOOG,MSFT,AMZN,TSLA" {
		t.Errorf("symbols = %s", got)
	}
	if cfg.Generator.MinPrice != 100 || cfg.Generator.MaxPrice != 300 {
		t.Errorf("price range = [%v, %v)", cfg.Generator.MinPrice, cfg.Generator.MaxPrice)
	}
	if cfg.Generator.Channel != "stock-price-topic" {
		t.Errorf("channel = %s", cfg.Generator.Channel)
	}
	if cfg.Kafka.Partitions != 3 || cfg.Kafka.ReplicationFactor != 1 || cfg.Kafka.MaxAttempts != 3 {
		t.Errorf("kafka = %+v", cfg.Kafka)
	}
	if cfg.Store.Backend != "postgres" || cfg.Publisher.Backend != "kafka" {
		t.Errorf("backends = %s/%s", cfg.Store.Backend, cfg.Publisher.Backend)
	}
}

// go test -v --run ^TestLoadFileAndEnv$
func TestLoadFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
generator:
  interval: 250ms
  symbols: [IBM, ORCL]
store:
  backend: memory
publisher:
  backend: log
`)
	t.Setenv("GENERATOR_CONCURRENCY", "4")
	t.Setenv("HTTP_ADDR", ":9999")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Generator.Interval != 250*time.Millisecond {
		t.Errorf("interval = %v", cfg.Generator.Interval)
	}
	if len(cfg.Generator.Symbols) != 2 || cfg.Generator.Symbols[0] != "IBM" {
		t.Errorf("symbols = %v", cfg.Generator.Symbols)
	}
	if cfg.Generator.Concurrency != 4 {
		t.Errorf("concurrency = %d", cfg.Generator.Concurrency)
	}
	if cfg.HTTP.Addr != ":9999" {
		t.Errorf("http.addr = %s", cfg.HTTP.Addr)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("store.backend = %s", cfg.Store.Backend)
	}
}

// go test -v --run ^TestLoadMissingExplicitFile$
func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for a missing explicit config file")
	}
}

// go test -v --run ^TestValidate$
func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Generator: GeneratorConfig{
				Interval:    time.Second,
				Symbols:     []string{"AAPL"},
				MinPrice:    100,
				MaxPrice:    300,
				Channel:     "prices",
				Concurrency: 1,
			},
			Store:     StoreConfig{Backend: "memory"},
			Publisher: PublisherConfig{Backend: "kafka"},
			Kafka:     KafkaConfig{Brokers: []string{"localhost:9092"}},
			HTTP:      HTTPConfig{Addr: ":8080"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero interval", func(c *Config) { c.Generator.Interval = 0 }, "generator.interval"},
		{"no symbols", func(c *Config) { c.Generator.Symbols = nil }, "generator.symbols"},
		{"inverted range", func(c *Config) { c.Generator.MinPrice = 400 }, "price range"},
		{"zero min", func(c *Config) { c.Generator.MinPrice = 0 }, "price range"},
		{"unknown store", func(c *Config) { c.Store.Backend = "mongo" }, "store.backend"},
		{"unknown publisher", func(c *Config) { c.Publisher.Backend = "nats" }, "publisher.backend"},
		{"kafka without brokers", func(c *Config) { c.Kafka.Brokers = nil }, "kafka.brokers"},
		{"zero concurrency", func(c *Config) { c.Generator.Concurrency = 0 }, "concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

// go test -v --run ^TestPostgresDSN$
func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "secret",
		DBName:   "stockgen",
		SSLMode:  "disable",
		TimeZone: "UTC",
		SSM:      SSMParams{Host: "/h", User: "/u", Password: "/p"},
	}

	want := "host=localhost port=5432 user=postgres password=secret dbname=stockgen sslmode=disable TimeZone=UTC"
	if got := cfg.DSN("dev"); got != want {
		t.Errorf("dev DSN = %q, want %q", got, want)
	}

	orig := parameterLookup
	t.Cleanup(func() { parameterLookup = orig })
	parameterLookup = func(name string, _ bool) string {
		return map[string]string{"/h": "db.internal", "/u": "svc", "/p": "pw"}[name]
	}

	want = "host=db.internal port=5432 user=svc password=pw dbname=stockgen sslmode=disable TimeZone=UTC"
	if got := cfg.DSN("prod"); got != want {
		t.Errorf("prod DSN = %q, want %q", got, want)
	}
}
