package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DriverMemory   = "memory"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Inventory  InventoryConfig  `yaml:"inventory"`
	Discount   DiscountConfig   `yaml:"discount"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Log        LogConfig        `yaml:"log"`
}

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig with an empty Addr keeps the stock mirror and idempotency keys in process.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	PoolSize int    `yaml:"pool_size"`
}

// KafkaConfig with no brokers disables order events.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type InventoryConfig struct {
	LockTimeout  time.Duration `yaml:"lock_timeout"`
	LockRetries  int           `yaml:"lock_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

type SpinTier struct {
	Rate   float64 `yaml:"rate"`
	Weight int     `yaml:"weight"`
}

type DiscountConfig struct {
	SpinTiers []SpinTier `yaml:"spin_tiers"`
	// Seed fixes the spin sequence; zero seeds from the clock
	Seed uint64 `yaml:"seed"`
}

type DispatcherConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:          DriverMemory,
			MaxOpenConns:    50,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{PoolSize: 100},
		Kafka: KafkaConfig{Topic: "orders.placed"},
		Inventory: InventoryConfig{
			LockTimeout:  30 * time.Second,
			LockRetries:  1,
			RetryBackoff: 50 * time.Millisecond,
		},
		Discount: DiscountConfig{
			SpinTiers: []SpinTier{
				{Rate: 0, Weight: 50},
				{Rate: 0.05, Weight: 30},
				{Rate: 0.10, Weight: 15},
				{Rate: 0.20, Weight: 5},
			},
		},
		Dispatcher: DispatcherConfig{Workers: 4, QueueSize: 1000},
		Log:        LogConfig{Level: "info", Format: "json"},
	}
}

func (c Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverMemory:
	case DriverMySQL, DriverPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not one of memory, mysql, postgres", c.Database.Driver))
	}

	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}

	if c.Inventory.LockTimeout <= 0 {
		errs = append(errs, errors.New("inventory.lock_timeout must be positive"))
	}
	if c.Inventory.LockRetries < 0 {
		errs = append(errs, errors.New("inventory.lock_retries must not be negative"))
	}
	if c.Inventory.LockRetries > 0 && c.Inventory.RetryBackoff <= 0 {
		errs = append(errs, errors.New("inventory.retry_backoff must be positive when retrying"))
	}

	if len(c.Discount.SpinTiers) == 0 {
		errs = append(errs, errors.New("discount.spin_tiers must not be empty"))
	}
	for i, t := range c.Discount.SpinTiers {
		if t.Rate < 0 || t.Rate >= 1 {
			errs = append(errs, fmt.Errorf("discount.spin_tiers[%d].rate %v outside [0, 1)", i, t.Rate))
		}
		if t.Weight <= 0 {
			errs = append(errs, fmt.Errorf("discount.spin_tiers[%d].weight must be positive", i))
		}
	}

	if c.Dispatcher.Workers < 1 {
		errs = append(errs, errors.New("dispatcher.workers must be at least 1"))
	}
	if c.Dispatcher.QueueSize < 1 {
		errs = append(errs, errors.New("dispatcher.queue_size must be at least 1"))
	}

	return errors.Join(errs...)
}

// SpinRates converts the configured tiers to exact decimal rates.
func (d DiscountConfig) SpinRates() []decimal.Decimal {
	rates := make([]decimal.Decimal, len(d.SpinTiers))
	for i, t := range d.SpinTiers {
		rates[i] = decimal.NewFromFloat(t.Rate)
	}
	return rates
}
