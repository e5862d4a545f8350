// Package config loads pokemart's YAML configuration.
//
// Files are decoded strictly: an unknown key is an error rather than
// being silently ignored, so a typo such as "probabilty:" fails fast.
// Fields missing from the file keep the values from Default.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/roach88/pokemart/internal/cart"
	"github.com/roach88/pokemart/internal/catalog/pokeapi"
	"github.com/roach88/pokemart/internal/checkout"
	"github.com/roach88/pokemart/internal/filter"
	"github.com/roach88/pokemart/internal/stock"
	"github.com/roach88/pokemart/internal/storefront"
)

// Catalog sources.
const (
	SourcePokeAPI = "pokeapi"
	SourceDemo    = "demo"
	SourceFixture = "fixture"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
	DriverMemory = "memory"
	DriverS3     = "s3"
)

// Config is the root of the configuration file.
type Config struct {
	Catalog    Catalog    `yaml:"catalog"`
	Store      Store      `yaml:"store"`
	Oscillator Oscillator `yaml:"oscillator"`
	Checkout   Checkout   `yaml:"checkout"`
	Server     Server     `yaml:"server"`
	Filter     Filter     `yaml:"filter"`
}

// Catalog selects where the item list comes from.
type Catalog struct {
	// Source is one of pokeapi, demo or fixture.
	Source      string        `yaml:"source"`
	BaseURL     string        `yaml:"base_url"`
	Limit       int           `yaml:"limit"`
	Fixture     string        `yaml:"fixture"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Store selects the cart persistence backend.
type Store struct {
	Driver string `yaml:"driver"`
	// Path is the database file (sqlite) or directory (badger).
	Path string  `yaml:"path"`
	Key  string  `yaml:"key"`
	S3   S3Store `yaml:"s3"`
}

// S3Store configures the object-store backend.
type S3Store struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"path_style"`
}

// Oscillator tunes the stock simulation.
type Oscillator struct {
	Interval    time.Duration `yaml:"interval"`
	Probability float64       `yaml:"probability"`
	MaxStep     int           `yaml:"max_step"`
}

// Checkout tunes the payment simulation.
type Checkout struct {
	Delay       time.Duration `yaml:"delay"`
	SuccessRate float64       `yaml:"success_rate"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `yaml:"addr"`
}

// Filter holds the default price window offered to clients.
type Filter struct {
	PriceMin decimal.Decimal `yaml:"price_min"`
	PriceMax decimal.Decimal `yaml:"price_max"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Catalog: Catalog{
			Source:      SourcePokeAPI,
			BaseURL:     pokeapi.DefaultBaseURL,
			Limit:       storefront.DefaultLimit,
			Concurrency: pokeapi.DefaultConcurrency,
			Timeout:     30 * time.Second,
		},
		Store: Store{
			Driver: DriverSQLite,
			Path:   "pokemart.db",
			Key:    cart.DefaultKey,
		},
		Oscillator: Oscillator{
			Interval:    stock.DefaultInterval,
			Probability: stock.DefaultProbability,
			MaxStep:     stock.DefaultMaxStep,
		},
		Checkout: Checkout{
			Delay:       checkout.DefaultDelay,
			SuccessRate: checkout.DefaultSuccessRate,
		},
		Server: Server{Addr: ":8080"},
		Filter: Filter{
			PriceMin: decimal.Zero,
			PriceMax: filter.DefaultPriceMax,
		},
	}
}

// Load reads and validates the file at path. An empty path returns Default.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data over Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Catalog.Source {
	case SourcePokeAPI:
		if c.Catalog.BaseURL == "" {
			return fmt.Errorf("catalog.base_url is required for source %q", SourcePokeAPI)
		}
	case SourceDemo:
	case SourceFixture:
		if c.Catalog.Fixture == "" {
			return fmt.Errorf("catalog.fixture is required for source %q", SourceFixture)
		}
	default:
		return fmt.Errorf("catalog.source %q is not one of pokeapi, demo, fixture", c.Catalog.Source)
	}
	if c.Catalog.Limit < 1 {
		return fmt.Errorf("catalog.limit must be positive, got %d", c.Catalog.Limit)
	}
	if c.Catalog.Concurrency < 1 {
		return fmt.Errorf("catalog.concurrency must be positive, got %d", c.Catalog.Concurrency)
	}
	if c.Catalog.Timeout < 0 {
		return fmt.Errorf("catalog.timeout must not be negative")
	}

	switch c.Store.Driver {
	case DriverSQLite, DriverBadger:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for driver %q", c.Store.Driver)
		}
	case DriverMemory:
	case DriverS3:
		if c.Store.S3.Bucket == "" {
			return fmt.Errorf("store.s3.bucket is required for driver %q", DriverS3)
		}
	default:
		return fmt.Errorf("store.driver %q is not one of sqlite, badger, memory, s3", c.Store.Driver)
	}
	if c.Store.Key == "" {
		return fmt.Errorf("store.key is required")
	}

	if c.Oscillator.Interval <= 0 {
		return fmt.Errorf("oscillator.interval must be positive")
	}
	if err := c.StockConfig().Validate(); err != nil {
		return fmt.Errorf("oscillator: %w", err)
	}

	if c.Checkout.Delay < 0 {
		return fmt.Errorf("checkout.delay must not be negative")
	}
	if c.Checkout.SuccessRate < 0 || c.Checkout.SuccessRate > 1 {
		return fmt.Errorf("checkout.success_rate must be within [0, 1], got %v", c.Checkout.SuccessRate)
	}

	if c.Filter.PriceMin.IsNegative() {
		return fmt.Errorf("filter.price_min must not be negative")
	}
	if c.Filter.PriceMax.LessThan(c.Filter.PriceMin) {
		return fmt.Errorf("filter.price_max %s is below price_min %s", c.Filter.PriceMax, c.Filter.PriceMin)
	}
	return nil
}

// StockConfig converts the oscillator section for the stock package.
func (c Config) StockConfig() stock.Config {
	return stock.Config{
		Probability: c.Oscillator.Probability,
		MaxStep:     c.Oscillator.MaxStep,
	}
}

// Processor builds a checkout processor from the checkout section.
func (c Config) Processor() *checkout.Processor {
	p := checkout.NewProcessor()
	p.Delay = c.Checkout.Delay
	p.SuccessRate = c.Checkout.SuccessRate
	return p
}

// PriceRange is the configured default filter window.
func (c Config) PriceRange() filter.PriceRange {
	return filter.Between(c.Filter.PriceMin, c.Filter.PriceMax)
}
