package config

import (
	"os"
	"strconv"
)

// DefaultKFactor applies when ELO_K_FACTOR is unset. The updater itself
// never reads configuration; the value flows in per call.
const DefaultKFactor = 32

type Config struct {
	Addr        string
	DatabaseURL string
	NATSUrl     string
	EloKFactor  int
}

// Load reads configuration from the environment. main loads .env first
// via godotenv, so local overrides work the same as deployed ones.
func Load() Config {
	cfg := Config{
		Addr:        getenv("ADDR", ":8080"),
		DatabaseURL: getenv("DATABASE_URL", "tourney.db?_journal_mode=WAL"),
		NATSUrl:     os.Getenv("NATS_URL"),
		EloKFactor:  DefaultKFactor,
	}

	if v := os.Getenv("ELO_K_FACTOR"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			cfg.EloKFactor = k
		}
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
