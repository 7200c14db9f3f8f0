// Package config loads search, arena and observability settings from
// defaults, an optional YAML or JSON file and MCTS_* environment variables.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Search  SearchConfig  `json:"search" yaml:"search"`
	Arena   ArenaConfig   `json:"arena" yaml:"arena"`
	Log     LogConfig     `json:"log" yaml:"log"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
	Tracing TracingConfig `json:"tracing" yaml:"tracing"`
}

type SearchConfig struct {
	ExplorationConstant float64       `json:"exploration_constant" yaml:"exploration_constant" validate:"gte=0"`
	TimeBudget          time.Duration `json:"time_budget" yaml:"time_budget" validate:"gt=0"`
	MaxIterations       int           `json:"max_iterations" yaml:"max_iterations" validate:"gte=0"` // 0 = budget only
	Seed                uint64        `json:"seed" yaml:"seed"`                                      // 0 = seeded from the clock
	// Temperature of self-play agents, 0 plays the most visited action
	Temperature float64 `json:"temperature" yaml:"temperature" validate:"gte=0"`
}

type ArenaConfig struct {
	Games     int    `json:"games" yaml:"games" validate:"gte=1"`
	MaxMoves  int    `json:"max_moves" yaml:"max_moves" validate:"gte=1"`
	OutputDir string `json:"output_dir" yaml:"output_dir" validate:"required"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level" validate:"oneof=trace debug info warn error disabled"`
	Pretty bool   `json:"pretty" yaml:"pretty"`
}

type MetricsConfig struct {
	// Addr serves Prometheus metrics when set, e.g. "localhost:9090"
	Addr string `json:"addr" yaml:"addr" validate:"omitempty,hostname_port"`
}

type TracingConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

var configValidate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the configuration used when nothing else is given.
func Default() Config {
	return Config{
		Search: SearchConfig{
			ExplorationConstant: 1.41,
			TimeBudget:          200 * time.Millisecond,
			Temperature:         1,
		},
		Arena: ArenaConfig{
			Games:     30,
			MaxMoves:  300,
			OutputDir: "experiments",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration with priority: env > file > defaults.
//
// A missing file is not an error, an unreadable or invalid one is.
func Load(path string) (Config, error) {
	config := Default()

	if path != "" {
		if err := loadFile(path, &config); err != nil {
			return config, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := loadEnv(&config); err != nil {
		return config, fmt.Errorf("load config env: %w", err)
	}

	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func (c Config) Validate() error {
	return configValidate.Struct(c)
}

func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	// Try YAML first, then JSON. Either decodes into a copy so that a failed
	// attempt leaves no partial values behind.
	next := *config
	if err := yaml.Unmarshal(data, &next); err != nil {
		next = *config
		if jsonErr := decodeJSON(data, &next); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	*config = next
	return nil
}

// decodeJSON reads a JSON document through the YAML decoder, so durations
// are written the same way in both formats, e.g. "200ms".
func decodeJSON(data []byte, config *Config) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	normalized, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(normalized, config)
}

func loadEnv(config *Config) error {
	var errs []error
	parse := func(key string, set func(string) error) {
		if v := os.Getenv(key); v != "" {
			if err := set(v); err != nil {
				errs = append(errs, fmt.Errorf("%s=%q: %w", key, v, err))
			}
		}
	}

	// Search
	parse("MCTS_EXPLORATION_CONSTANT", func(v string) (err error) {
		config.Search.ExplorationConstant, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse("MCTS_TIME_BUDGET", func(v string) (err error) {
		config.Search.TimeBudget, err = time.ParseDuration(v)
		return err
	})
	parse("MCTS_MAX_ITERATIONS", func(v string) (err error) {
		config.Search.MaxIterations, err = strconv.Atoi(v)
		return err
	})
	parse("MCTS_SEED", func(v string) (err error) {
		config.Search.Seed, err = strconv.ParseUint(v, 10, 64)
		return err
	})
	parse("MCTS_TEMPERATURE", func(v string) (err error) {
		config.Search.Temperature, err = strconv.ParseFloat(v, 64)
		return err
	})

	// Arena
	parse("MCTS_ARENA_GAMES", func(v string) (err error) {
		config.Arena.Games, err = strconv.Atoi(v)
		return err
	})
	parse("MCTS_OUTPUT_DIR", func(v string) error {
		config.Arena.OutputDir = v
		return nil
	})

	// Observability
	parse("MCTS_LOG_LEVEL", func(v string) error {
		config.Log.Level = v
		return nil
	})
	parse("MCTS_LOG_PRETTY", func(v string) (err error) {
		config.Log.Pretty, err = strconv.ParseBool(v)
		return err
	})
	parse("MCTS_METRICS_ADDR", func(v string) error {
		config.Metrics.Addr = v
		return nil
	})
	parse("MCTS_TRACING_ENABLED", func(v string) (err error) {
		config.Tracing.Enabled, err = strconv.ParseBool(v)
		return err
	})

	return errors.Join(errs...)
}
