// Package config reads the auction ledger settings from flags, environment and an optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"auction-ledger/internal/models"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Store kinds
const (
	StoreMemory = "memory"
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// Config holds the service settings. Environment values override flags.
type Config struct {
	RunAddress   string `env:"RUN_ADDRESS"`
	Port         string `env:"PORT"`
	Store        string `env:"STORE"`
	DataFile     string `env:"DATA_FILE"`
	DatabasePath string `env:"DATABASE_PATH"`
	MinIncrement string `env:"MIN_INCREMENT"`
	LogLevel     string `env:"LOG_LEVEL"`
	SeedDemo     bool   `env:"SEED_DEMO"`
}

// Parse loads .env (when present), then reads flags and environment variables
func Parse() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	fromEnv := *cfg

	flag.StringVar(&cfg.RunAddress, "a", ":8080", "address and port for HTTP server")
	flag.StringVar(&cfg.Store, "s", StoreJSON, "snapshot store: memory, json or sqlite")
	flag.StringVar(&cfg.DataFile, "f", "auctions_data.json", "JSON data file for the json store")
	flag.StringVar(&cfg.DatabasePath, "d", "auction.db", "database file for the sqlite store")
	flag.StringVar(&cfg.MinIncrement, "i", "0", "minimum bid increment over the current price")
	flag.StringVar(&cfg.LogLevel, "l", "info", "log level")
	flag.BoolVar(&cfg.SeedDemo, "seed", false, "create demo users and auctions on an empty ledger")

	flag.Parse()

	if fromEnv.RunAddress != "" {
		cfg.RunAddress = fromEnv.RunAddress
	} else if fromEnv.Port != "" {
		cfg.RunAddress = ":" + fromEnv.Port
	}
	if fromEnv.Store != "" {
		cfg.Store = fromEnv.Store
	}
	if fromEnv.DataFile != "" {
		cfg.DataFile = fromEnv.DataFile
	}
	if fromEnv.DatabasePath != "" {
		cfg.DatabasePath = fromEnv.DatabasePath
	}
	if fromEnv.MinIncrement != "" {
		cfg.MinIncrement = fromEnv.MinIncrement
	}
	if fromEnv.LogLevel != "" {
		cfg.LogLevel = fromEnv.LogLevel
	}
	if _, ok := os.LookupEnv("SEED_DEMO"); ok {
		cfg.SeedDemo = fromEnv.SeedDemo
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that flags and env cannot type-check
func (c *Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreJSON, StoreSQLite:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if _, err := c.MinIncrementDecimal(); err != nil {
		return err
	}
	return nil
}

// MinIncrementDecimal parses MinIncrement; empty means zero
func (c *Config) MinIncrementDecimal() (decimal.Decimal, error) {
	if c.MinIncrement == "" {
		return decimal.Zero, nil
	}
	inc, err := decimal.NewFromString(c.MinIncrement)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse min increment %q: %w", c.MinIncrement, err)
	}
	if inc.IsNegative() {
		return decimal.Zero, fmt.Errorf("min increment %q must not be negative", c.MinIncrement)
	}
	if !models.WholeCents(inc) {
		return decimal.Zero, fmt.Errorf("min increment %q must be a whole number of cents", c.MinIncrement)
	}
	return inc, nil
}
