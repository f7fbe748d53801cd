package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	// Logging
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Database
	DatabaseURL          string        `mapstructure:"DATABASE_URL"`
	HistoryRetention     time.Duration `mapstructure:"HISTORY_RETENTION"`
	HistoryPruneSchedule string        `mapstructure:"HISTORY_PRUNE_SCHEDULE"`

	// Redis
	RedisURL string        `mapstructure:"REDIS_URL"`
	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`

	// Solver
	SolverBackend   string        `mapstructure:"SOLVER_BACKEND"`
	SolverTimeLimit time.Duration `mapstructure:"SOLVER_TIME_LIMIT"`
	SolverNodeLimit int           `mapstructure:"SOLVER_NODE_LIMIT"`
	MaxPoolSize     int           `mapstructure:"MAX_POOL_SIZE"`

	// Websocket
	ProgressInterval time.Duration `mapstructure:"PROGRESS_INTERVAL"`
}

// keys lists every key Config understands. Env values are only picked up by
// Unmarshal for keys viper already knows about.
var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "LOG_FORMAT",
	"DATABASE_URL", "HISTORY_RETENTION", "HISTORY_PRUNE_SCHEDULE", "REDIS_URL", "CACHE_TTL",
	"SOLVER_BACKEND", "SOLVER_TIME_LIMIT", "SOLVER_NODE_LIMIT", "MAX_POOL_SIZE",
	"PROGRESS_INTERVAL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8082")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "")
	v.SetDefault("LOG_FORMAT", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("HISTORY_RETENTION", "720h")
	v.SetDefault("HISTORY_PRUNE_SCHEDULE", "@hourly")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CACHE_TTL", "15m")
	v.SetDefault("SOLVER_BACKEND", "branch-and-bound")
	v.SetDefault("SOLVER_TIME_LIMIT", "30s")
	v.SetDefault("SOLVER_NODE_LIMIT", 0)
	v.SetDefault("MAX_POOL_SIZE", 600)
	v.SetDefault("PROGRESS_INTERVAL", "250ms")
}

// New returns a viper instance with defaults, environment lookup and an
// optional .env file in the working directory or its parent.
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	setDefaults(v)
	v.AutomaticEnv()
	return v
}

// LoadConfig reads configuration from the environment, an optional .env file
// and, when flags is non-nil, command-line flags. Flags are bound by name, so
// a flag "solver-time-limit" overrides SOLVER_TIME_LIMIT.
func LoadConfig(flags *pflag.FlagSet) (*Config, error) {
	return Load(New(), flags)
}

// Load decodes a Config from v.
func Load(v *viper.Viper, flags *pflag.FlagSet) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if flags != nil {
		if err := BindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// BindFlags binds every flag whose upper-snake name is a config key.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	known := make(map[string]bool, len(keys))
	for _, k := range keys {
		known[k] = true
	}
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		key := FlagKey(f.Name)
		if bindErr != nil || !known[key] {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			bindErr = fmt.Errorf("binding flag %s: %w", f.Name, err)
		}
	})
	return bindErr
}

// FlagKey converts a flag name (solver-time-limit) to its config key.
func FlagKey(name string) string {
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '-':
			c = '_'
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

func (c *Config) Validate() error {
	if c.SolverTimeLimit < 0 {
		return fmt.Errorf("SOLVER_TIME_LIMIT must not be negative, got %s", c.SolverTimeLimit)
	}
	if c.SolverNodeLimit < 0 {
		return fmt.Errorf("SOLVER_NODE_LIMIT must not be negative, got %d", c.SolverNodeLimit)
	}
	if c.HistoryRetention < 0 {
		return fmt.Errorf("HISTORY_RETENTION must not be negative, got %s", c.HistoryRetention)
	}
	if c.ProgressInterval < 0 {
		return fmt.Errorf("PROGRESS_INTERVAL must not be negative, got %s", c.ProgressInterval)
	}
	if c.MaxPoolSize <= 0 {
		return fmt.Errorf("MAX_POOL_SIZE must be positive, got %d", c.MaxPoolSize)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
