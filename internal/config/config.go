// Package config collects every tunable of the server in one place.
//
// Each section has a Default* constructor and a *FromEnv variant that applies
// environment overrides. Load assembles the sections, overlays the optional
// YAML tuning file and validates the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"mazewars/internal/maze"
)

// =============================================================================
// MAZE CONFIGURATION
// =============================================================================

// MazeConfig controls the generated arena.
type MazeConfig struct {
	Width      int // odd, >= 3
	Height     int // odd, >= 3
	Difficulty maze.Difficulty
}

// DefaultMaze returns the 41x31 arena at medium difficulty.
func DefaultMaze() MazeConfig {
	return MazeConfig{
		Width:      41,
		Height:     31,
		Difficulty: maze.Medium,
	}
}

// MazeFromEnv applies MAZE_WIDTH, MAZE_HEIGHT and MAZE_DIFFICULTY. An
// unrecognized difficulty keeps medium and is reported as a warning.
func MazeFromEnv() (MazeConfig, []string) {
	cfg := DefaultMaze()
	var warnings []string

	if w := getEnvInt("MAZE_WIDTH", 0); w > 0 {
		cfg.Width = w
	}
	if h := getEnvInt("MAZE_HEIGHT", 0); h > 0 {
		cfg.Height = h
	}
	if v, ok := os.LookupEnv("MAZE_DIFFICULTY"); ok {
		d, err := maze.ParseDifficulty(v)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("MAZE_DIFFICULTY=%q not recognized, using %s", v, d))
		}
		cfg.Difficulty = d
	}

	return cfg, warnings
}

// =============================================================================
// ROUND CONFIGURATION
// =============================================================================

// RoundConfig holds phase lengths in whole seconds.
type RoundConfig struct {
	LobbySeconds        int
	RoundSeconds        int
	IntermissionSeconds int
}

// DefaultRound returns 5s lobby, 30s round, 5s intermission.
func DefaultRound() RoundConfig {
	return RoundConfig{
		LobbySeconds:        5,
		RoundSeconds:        30,
		IntermissionSeconds: 5,
	}
}

// RoundFromEnv applies LOBBY_SECONDS, ROUND_SECONDS and INTERMISSION_SECONDS.
func RoundFromEnv() RoundConfig {
	cfg := DefaultRound()

	if v := getEnvInt("LOBBY_SECONDS", 0); v > 0 {
		cfg.LobbySeconds = v
	}
	if v := getEnvInt("ROUND_SECONDS", 0); v > 0 {
		cfg.RoundSeconds = v
	}
	if v := getEnvInt("INTERMISSION_SECONDS", 0); v > 0 {
		cfg.IntermissionSeconds = v
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP and websocket settings.
type ServerConfig struct {
	Port       int
	MaxClients int
	TickRate   int // simulation ticks per second

	MaxConnsPerIP  int
	InboundPerSec  float64 // per-client message budget
	InboundBurst   int
	HTTPPerSec     float64 // per-IP budget for the read-only API
	HTTPBurst      int
	AllowedOrigins []string // empty allows any origin
	StatsInterval  time.Duration
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:          5000,
		MaxClients:    32,
		TickRate:      20,
		MaxConnsPerIP: 8,
		InboundPerSec: 30,
		InboundBurst:  60,
		HTTPPerSec:    20,
		HTTPBurst:     40,
		StatsInterval: time.Second,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if mc := getEnvInt("MAX_CLIENTS", 0); mc > 0 {
		cfg.MaxClients = mc
	}
	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if n := getEnvInt("MAX_CONNS_PER_IP", 0); n > 0 {
		cfg.MaxConnsPerIP = n
	}
	if r := getEnvFloat("INBOUND_RATE", 0); r > 0 {
		cfg.InboundPerSec = r
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}

	return cfg
}

// Addr is the listen address for the configured port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// =============================================================================
// LOGGING
// =============================================================================

// LogConfig controls the zap logger and its rolling file.
type LogConfig struct {
	File       string // empty logs to the console only
	Level      string // debug, info, warn, error
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DefaultLog returns the default logging configuration.
func DefaultLog() LogConfig {
	return LogConfig{
		File:       "mazewars.log",
		Level:      "info",
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 7,
	}
}

// LogFromEnv applies LOG_FILE and LOG_LEVEL. LOG_FILE set to an empty value
// disables the file sink.
func LogFromEnv() LogConfig {
	cfg := DefaultLog()

	if v, ok := os.LookupEnv("LOG_FILE"); ok {
		cfg.File = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Level = strings.ToLower(v)
	}

	return cfg
}

// =============================================================================
// EVENT LOG
// =============================================================================

// EventLogConfig controls the compressed gameplay event log.
type EventLogConfig struct {
	Dir string // empty disables writing
}

// EventLogFromEnv applies EVENT_LOG_DIR.
func EventLogFromEnv() EventLogConfig {
	cfg := EventLogConfig{Dir: "events"}
	if v, ok := os.LookupEnv("EVENT_LOG_DIR"); ok {
		cfg.Dir = v
	}
	return cfg
}

// =============================================================================
// OBSERVABILITY
// =============================================================================

// ObservabilityConfig controls the localhost debug server.
type ObservabilityConfig struct {
	DebugAddr string
	Disabled  bool
}

// ObservabilityFromEnv applies DEBUG_ADDR and DISABLE_DEBUG_SERVER.
func ObservabilityFromEnv() ObservabilityConfig {
	cfg := ObservabilityConfig{DebugAddr: "127.0.0.1:6060"}
	if v := os.Getenv("DEBUG_ADDR"); v != "" {
		cfg.DebugAddr = v
	}
	if os.Getenv("DISABLE_DEBUG_SERVER") == "true" {
		cfg.Disabled = true
	}
	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Maze          MazeConfig
	Round         RoundConfig
	Server        ServerConfig
	Log           LogConfig
	EventLog      EventLogConfig
	Observability ObservabilityConfig

	// TuningFile is the YAML overlay that was applied, if any.
	TuningFile string
	// Warnings are non-fatal problems found while loading. The caller logs them.
	Warnings []string
}

// Load returns the complete configuration with environment overrides and the
// MAZE_TUNING overlay applied.
func Load() (AppConfig, error) {
	mazeCfg, warnings := MazeFromEnv()
	cfg := AppConfig{
		Maze:          mazeCfg,
		Round:         RoundFromEnv(),
		Server:        ServerFromEnv(),
		Log:           LogFromEnv(),
		EventLog:      EventLogFromEnv(),
		Observability: ObservabilityFromEnv(),
		Warnings:      warnings,
	}

	if path := os.Getenv("MAZE_TUNING"); path != "" {
		t, err := LoadTuning(path)
		if err != nil {
			return cfg, err
		}
		t.Apply(&cfg)
		cfg.TuningFile = path
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c AppConfig) Validate() error {
	var errs []error

	if err := maze.ValidateDimensions(c.Maze.Width, c.Maze.Height); err != nil {
		errs = append(errs, err)
	}
	if c.Round.LobbySeconds <= 0 || c.Round.RoundSeconds <= 0 || c.Round.IntermissionSeconds <= 0 {
		errs = append(errs, fmt.Errorf("round durations must be positive: %+v", c.Round))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Server.Port))
	}
	if c.Server.MaxClients <= 0 {
		errs = append(errs, fmt.Errorf("max clients must be positive, got %d", c.Server.MaxClients))
	}
	if c.Server.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("tick rate must be positive, got %d", c.Server.TickRate))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// ParseLevel checks a log level name.
func ParseLevel(level string) (string, error) {
	switch level {
	case "debug", "info", "warn", "error":
		return level, nil
	default:
		return "", fmt.Errorf("unknown log level %q", level)
	}
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
