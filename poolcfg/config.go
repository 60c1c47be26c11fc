// Package poolcfg loads and validates per-pool configuration the way
// Angelos-Zaimis-go-loadbalancer's config package does: viper defaults plus
// an optional YAML/env overlay, then an ozzo-validation pass before the
// caller ever sees a usable Config.
package poolcfg

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	connpool "github.com/gofinch/connpool"
)

// Infinity is the sentinel pool_max_idle_time value meaning the pool never
// self-stops (spec.md §4.D's Permanent restart policy).
const Infinity = "infinity"

// Config is the per-pool configuration spec.md §6 names: pool_size,
// conn_opts (here flattened into the dial-tuning fields httpconn.Config
// exposes), pool_max_idle_time, start_pool_metrics?, pool_idx.
type Config struct {
	Name   string `mapstructure:"name"`
	Origin string `mapstructure:"origin"` // scheme://host:port, see connpool.ParseOrigin

	PoolSize int `mapstructure:"pool_size"`
	PoolIdx  int `mapstructure:"pool_idx"`

	ConnMaxIdleTime  string `mapstructure:"conn_max_idle_time"`  // e.g. "30s"
	PoolMaxIdleTime  string `mapstructure:"pool_max_idle_time"`  // e.g. "5m", or "infinity"
	StartPoolMetrics bool   `mapstructure:"start_pool_metrics"`

	KeepaliveCount    int `mapstructure:"keepalive_count"`
	KeepaliveInterval int `mapstructure:"keepalive_interval_seconds"`
}

// Load reads pool configuration the way config.Load in the donor loadbalancer
// repo does: defaults, then an optional config file, then environment
// overrides (GOFINCH_POOL_SIZE etc.), then validation.
func Load() (*Config, error) {
	viper.SetDefault("pool_size", 10)
	viper.SetDefault("pool_idx", 0)
	viper.SetDefault("conn_max_idle_time", "60s")
	viper.SetDefault("pool_max_idle_time", Infinity)
	viper.SetDefault("start_pool_metrics", true)
	viper.SetDefault("keepalive_count", 0)
	viper.SetDefault("keepalive_interval_seconds", 30)

	viper.SetConfigName("pool")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("gofinch")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Error().Err(err).Msg("failed to read pool config file")
			return nil, err
		}
		log.Warn().Msg("pool config file not found, using defaults and environment variables")
	} else {
		log.Info().Str("file", viper.ConfigFileUsed()).Msg("loaded pool config file")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Error().Err(err).Msg("failed to unmarshal pool config")
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("invalid pool configuration")
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants the data model requires before the
// Config is allowed to build a Pool: PoolSize >= 1, Origin parses, and
// both idle-time fields parse as a duration or, for PoolMaxIdleTime, the
// literal "infinity".
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Origin, validation.Required, validation.By(validateOrigin)),
		validation.Field(&c.PoolSize, validation.Required, validation.Min(1)),
		validation.Field(&c.PoolIdx, validation.Min(0)),
		validation.Field(&c.ConnMaxIdleTime, validation.Required, validation.By(validateDuration)),
		validation.Field(&c.PoolMaxIdleTime, validation.Required, validation.By(validateIdleOrInfinity)),
		validation.Field(&c.KeepaliveCount, validation.Min(0)),
		validation.Field(&c.KeepaliveInterval, validation.Min(0)),
	)
}

// ParsedOrigin parses the Origin field, failing only if Validate was
// skipped — Load always validates first.
func (c *Config) ParsedOrigin() (connpool.Origin, error) {
	return connpool.ParseOrigin(c.Origin)
}

// ParsedConnMaxIdleTime parses ConnMaxIdleTime as a duration.
func (c *Config) ParsedConnMaxIdleTime() time.Duration {
	d, _ := time.ParseDuration(c.ConnMaxIdleTime)
	return d
}

// ParsedPoolMaxIdleTime parses PoolMaxIdleTime, returning 0 (meaning
// Permanent — the pool never self-stops) for the "infinity" sentinel.
func (c *Config) ParsedPoolMaxIdleTime() time.Duration {
	if strings.EqualFold(c.PoolMaxIdleTime, Infinity) {
		return 0
	}
	d, _ := time.ParseDuration(c.PoolMaxIdleTime)
	return d
}

func validateOrigin(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if _, err := connpool.ParseOrigin(s); err != nil {
		return validation.NewError("validation_invalid_origin", err.Error())
	}
	return nil
}

func validateDuration(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if _, err := time.ParseDuration(s); err != nil {
		return validation.NewError("validation_invalid_duration", fmt.Sprintf("must be a valid duration: %v", err))
	}
	return nil
}

func validateIdleOrInfinity(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}
	if strings.EqualFold(s, Infinity) {
		return nil
	}
	return validateDuration(value)
}
