// Package config loads matchengine's YAML configuration, applying
// environment-variable overrides for anything broker- or
// secret-flavored, then validates the result before the Engine starts.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the whole of matchengine's runtime configuration.
type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		LifecycleTopic string `yaml:"lifecycle_topic"`
		OutboxTopic  string   `yaml:"outbox_topic"`
	} `yaml:"kafka"`

	Outbox struct {
		Dir              string `yaml:"dir"`
		DrainIntervalMS  int    `yaml:"drain_interval_ms"`
	} `yaml:"outbox"`

	Book struct {
		TickSize                 decimal.Decimal `yaml:"tick_size"`
		ExpirationTickIntervalMS int             `yaml:"expiration_tick_interval_ms"`
		EpochReclaimIntervalMS   int             `yaml:"epoch_reclaim_interval_ms"`
		InvertModifySuppression  bool            `yaml:"invert_modify_suppression"`
	} `yaml:"book"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// Load reads path, applies environment overrides, and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the invariants the Engine depends on at startup.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("at least one kafka broker is required")
	}
	if c.Kafka.LifecycleTopic == "" || c.Kafka.OutboxTopic == "" {
		return fmt.Errorf("kafka.lifecycle_topic and kafka.outbox_topic are both required")
	}
	if c.Outbox.Dir == "" {
		return fmt.Errorf("outbox.dir is required")
	}
	if c.Outbox.DrainIntervalMS <= 0 {
		return fmt.Errorf("outbox.drain_interval_ms must be positive")
	}
	if !c.Book.TickSize.IsPositive() {
		return fmt.Errorf("book.tick_size must be positive")
	}
	if c.Book.ExpirationTickIntervalMS <= 0 {
		return fmt.Errorf("book.expiration_tick_interval_ms must be positive")
	}
	if c.Book.EpochReclaimIntervalMS <= 0 {
		return fmt.Errorf("book.epoch_reclaim_interval_ms must be positive")
	}
	return nil
}

func overrideWithEnv(cfg *Config) {
	if addr := os.Getenv("MATCHENGINE_SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if brokers := os.Getenv("MATCHENGINE_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	if dir := os.Getenv("MATCHENGINE_OUTBOX_DIR"); dir != "" {
		cfg.Outbox.Dir = dir
	}
	if tick := os.Getenv("MATCHENGINE_TICK_SIZE"); tick != "" {
		if d, err := decimal.NewFromString(tick); err == nil {
			cfg.Book.TickSize = d
		}
	}
	if invert := os.Getenv("MATCHENGINE_INVERT_MODIFY_SUPPRESSION"); invert != "" {
		if v, err := strconv.ParseBool(invert); err == nil {
			cfg.Book.InvertModifySuppression = v
		}
	}
}
