// Package config provides Viper-based configuration loading for the mapper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings for shared map storage.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json", "console", or "auto".
	// "auto" selects a coloured console encoder when stdout is a terminal.
	Format string `mapstructure:"format"`
}

// PathMachineConfig holds the tuning parameters of the room matcher.
type PathMachineConfig struct {
	AcceptBestRelative         float64 `mapstructure:"accept_best_relative"`
	AcceptBestAbsolute         float64 `mapstructure:"accept_best_absolute"`
	NewRoomPenalty             float64 `mapstructure:"new_room_penalty"`
	CorrectPositionBonus       float64 `mapstructure:"correct_position_bonus"`
	MultipleConnectionsPenalty float64 `mapstructure:"multiple_connections_penalty"`
	// MaxPaths caps the number of simultaneously tracked candidate paths.
	MaxPaths int `mapstructure:"max_paths"`
	// MatchingTolerance is the per-string mismatch budget, in percent of the stored length.
	MatchingTolerance int `mapstructure:"matching_tolerance"`
	// MaxSkipped is the number of missing event fields tolerated while resyncing.
	MaxSkipped int `mapstructure:"max_skipped"`
}

// ClockConfig holds the in-game clock settings.
type ClockConfig struct {
	// StartEpoch is the real Unix second at which in-game time was zero.
	StartEpoch int64 `mapstructure:"start_epoch"`
	// ToleranceLimit is the skew, in in-game minutes, absorbed by hourly ticks.
	ToleranceLimit int `mapstructure:"tolerance_limit"`
}

// MapperConfig holds the mapper session settings.
type MapperConfig struct {
	// Mode is one of "play", "map", or "offline".
	Mode string `mapstructure:"mode"`
	// Storage is a map file path (.yaml, bolt) or a postgres:// URI.
	Storage string `mapstructure:"storage"`
	// MapName identifies the map inside shared storage.
	MapName string `mapstructure:"map_name"`
	// AutosaveInterval is the period between background saves; zero disables autosave.
	AutosaveInterval time.Duration `mapstructure:"autosave_interval"`
}

// Config is the top-level application configuration.
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	PathMachine PathMachineConfig `mapstructure:"pathmachine"`
	Clock       ClockConfig       `mapstructure:"clock"`
	Mapper      MapperConfig      `mapstructure:"mapper"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateDatabase(c.Database); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validatePathMachine(c.PathMachine); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateClock(c.Clock); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateMapper(c.Mapper); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true, "auto": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console, auto], got %q", l.Format)
	}
	return nil
}

func validatePathMachine(p PathMachineConfig) error {
	var errs []string
	if p.AcceptBestRelative <= 1 {
		errs = append(errs, fmt.Sprintf("pathmachine.accept_best_relative must be > 1, got %g", p.AcceptBestRelative))
	}
	if p.AcceptBestAbsolute < 0 {
		errs = append(errs, fmt.Sprintf("pathmachine.accept_best_absolute must be >= 0, got %g", p.AcceptBestAbsolute))
	}
	if p.NewRoomPenalty < 1 {
		errs = append(errs, fmt.Sprintf("pathmachine.new_room_penalty must be >= 1, got %g", p.NewRoomPenalty))
	}
	if p.CorrectPositionBonus < 1 {
		errs = append(errs, fmt.Sprintf("pathmachine.correct_position_bonus must be >= 1, got %g", p.CorrectPositionBonus))
	}
	if p.MultipleConnectionsPenalty < 1 {
		errs = append(errs, fmt.Sprintf("pathmachine.multiple_connections_penalty must be >= 1, got %g", p.MultipleConnectionsPenalty))
	}
	if p.MaxPaths < 1 {
		errs = append(errs, fmt.Sprintf("pathmachine.max_paths must be >= 1, got %d", p.MaxPaths))
	}
	if p.MatchingTolerance < 0 || p.MatchingTolerance > 100 {
		errs = append(errs, fmt.Sprintf("pathmachine.matching_tolerance must be 0-100, got %d", p.MatchingTolerance))
	}
	if p.MaxSkipped < 0 || p.MaxSkipped > 3 {
		errs = append(errs, fmt.Sprintf("pathmachine.max_skipped must be 0-3, got %d", p.MaxSkipped))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateClock(c ClockConfig) error {
	var errs []string
	if c.StartEpoch < 0 {
		errs = append(errs, fmt.Sprintf("clock.start_epoch must be >= 0, got %d", c.StartEpoch))
	}
	if c.ToleranceLimit < 0 || c.ToleranceLimit >= 30 {
		errs = append(errs, fmt.Sprintf("clock.tolerance_limit must be 0-29, got %d", c.ToleranceLimit))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateMapper(m MapperConfig) error {
	var errs []string
	validModes := map[string]bool{"play": true, "map": true, "offline": true}
	if !validModes[m.Mode] {
		errs = append(errs, fmt.Sprintf("mapper.mode must be one of [play, map, offline], got %q", m.Mode))
	}
	if m.Storage == "" {
		errs = append(errs, "mapper.storage must not be empty")
	}
	if m.MapName == "" {
		errs = append(errs, "mapper.map_name must not be empty")
	}
	if m.AutosaveInterval < 0 {
		errs = append(errs, "mapper.autosave_interval must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Environment variable overrides with MMAPPER_ prefix
	v.SetEnvPrefix("MMAPPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance carrying only the built-in defaults.
//
// Postcondition: LoadFromViper(Defaults()) yields a valid Config.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "mmapper")
	v.SetDefault("database.password", "mmapper")
	v.SetDefault("database.name", "mmapper")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "auto")

	v.SetDefault("pathmachine.accept_best_relative", 25.0)
	v.SetDefault("pathmachine.accept_best_absolute", 6.0)
	v.SetDefault("pathmachine.new_room_penalty", 5.0)
	v.SetDefault("pathmachine.correct_position_bonus", 5.0)
	v.SetDefault("pathmachine.multiple_connections_penalty", 2.0)
	v.SetDefault("pathmachine.max_paths", 1000)
	v.SetDefault("pathmachine.matching_tolerance", 8)
	v.SetDefault("pathmachine.max_skipped", 1)

	v.SetDefault("clock.start_epoch", 1517443173)
	v.SetDefault("clock.tolerance_limit", 10)

	v.SetDefault("mapper.mode", "play")
	v.SetDefault("mapper.storage", "map.yaml")
	v.SetDefault("mapper.map_name", "arda")
	v.SetDefault("mapper.autosave_interval", "5m")
}
