package postgres_test

import (
	"os"
	"testing"

	"stockgen/config"
	"stockgen/pkg/storage/postgres"
)

// go test -v --run TestCreateDatabase
func TestCreateDatabase(t *testing.T) {
	if os.Getenv(dsnEnv) == "" {
		t.Skipf("%s not set", dsnEnv)
	}

	cfg := config.PostgresConfig{
		Host:     envOr("STOCKGEN_TEST_POSTGRES_HOST", "localhost"),
		Port:     5432,
		User:     envOr("STOCKGEN_TEST_POSTGRES_USER", "postgres"),
		Password: os.Getenv("STOCKGEN_TEST_POSTGRES_PASSWORD"),
		DBName:   "stockgen_create_test",
		SSLMode:  "disable",
	}

	// second call finds the database and is a no-op
	for i := 0; i < 2; i++ {
		if err := postgres.CreateDatabase(cfg, "dev"); err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
