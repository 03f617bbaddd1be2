package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	// DefaultPort is the fixed loopback port the control API listens on.
	DefaultPort = 27182

	// DefaultTickInterval is the owner loop cadence (roughly 60 frames/s).
	DefaultTickInterval = 16 * time.Millisecond

	loopbackHost = "127.0.0.1"
)

// Config holds process configuration.
type Config struct {
	// Addr is the listen address. It is always bound to the loopback
	// interface.
	Addr string
	// SettingsPath is where the configuration snapshot is persisted. The file
	// extension selects the backend (.json, .yaml/.yml, .db/.sqlite).
	SettingsPath string
	// ModelsDir is the catalog root scanned for model bundles.
	ModelsDir string
	// TickInterval is the owner loop cadence.
	TickInterval time.Duration
	// LogLevel is the textual log threshold (debug|info|warn|error).
	LogLevel string
	Debug    bool
	// AllowedOrigins lists CORS origins for browser-based control UIs.
	AllowedOrigins []string
}

// Overrides optionally overrides values from environment variables.
//
// A nil pointer means "use the environment/default value".
type Overrides struct {
	Port         *int
	SettingsPath *string
	ModelsDir    *string
	TickInterval *time.Duration
	LogLevel     *string
	Debug        *bool
}

// Load loads configuration from environment variables and applies any
// explicit overrides.
func Load(overrides Overrides) (*Config, error) {
	port := DefaultPort
	if portStr := os.Getenv("AVATAR_PORT"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid AVATAR_PORT %q: %w", portStr, err)
		}
		port = p
	}
	if overrides.Port != nil {
		port = *overrides.Port
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("port %d out of range", port)
	}

	dataDir, err := defaultDataDir()
	if err != nil {
		return nil, err
	}

	settingsPath := os.Getenv("AVATAR_SETTINGS_PATH")
	if settingsPath == "" {
		settingsPath = filepath.Join(dataDir, "config.json")
	}
	if overrides.SettingsPath != nil {
		settingsPath = *overrides.SettingsPath
	}

	modelsDir := os.Getenv("AVATAR_MODELS_DIR")
	if modelsDir == "" {
		modelsDir = filepath.Join(dataDir, "Live2D")
	}
	if overrides.ModelsDir != nil {
		modelsDir = *overrides.ModelsDir
	}

	tick := DefaultTickInterval
	if tickStr := os.Getenv("AVATAR_TICK_INTERVAL"); tickStr != "" {
		d, err := time.ParseDuration(tickStr)
		if err != nil {
			return nil, fmt.Errorf("invalid AVATAR_TICK_INTERVAL %q: %w", tickStr, err)
		}
		tick = d
	}
	if overrides.TickInterval != nil {
		tick = *overrides.TickInterval
	}
	if tick <= 0 {
		return nil, fmt.Errorf("tick interval must be positive, got %s", tick)
	}

	debug := false
	if debugStr := os.Getenv("DEBUG"); debugStr == "true" || debugStr == "1" {
		debug = true
	}
	if overrides.Debug != nil {
		debug = *overrides.Debug
	}

	logLevel := os.Getenv("AVATAR_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
		if debug {
			logLevel = "debug"
		}
	}
	if overrides.LogLevel != nil {
		logLevel = *overrides.LogLevel
	}

	return &Config{
		Addr:           fmt.Sprintf("%s:%d", loopbackHost, port),
		SettingsPath:   settingsPath,
		ModelsDir:      modelsDir,
		TickInterval:   tick,
		LogLevel:       logLevel,
		Debug:          debug,
		AllowedOrigins: []string{"*"}, // loopback only; any local UI may call in
	}, nil
}

func defaultDataDir() (string, error) {
	if dir := os.Getenv("AVATAR_HOME_DIR"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".avatarctl"), nil
}
