// Package config provides shell configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Engine modes.
const (
	EngineMemory  = "memory"
	EngineWebview = "webview"
)

// Config holds desktop-shell configuration.
type Config struct {
	// Window and embedded surface
	DataDir    string `envconfig:"SHELL_DATA_DIR"`
	InitialURL string `envconfig:"SHELL_INITIAL_URL" default:"about:blank"`
	Width      int    `envconfig:"SHELL_WIDTH" default:"800"`
	Height     int    `envconfig:"SHELL_HEIGHT" default:"600"`
	Title      string `envconfig:"SHELL_TITLE" default:"Desktop Shell"`
	Engine     string `envconfig:"SHELL_ENGINE" default:"memory"`
	BridgeMode string `envconfig:"SHELL_BRIDGE_MODE" default:"inline"`
	Debug      bool   `envconfig:"SHELL_DEBUG" default:"false"`

	// Timeouts
	RequestTimeout time.Duration `envconfig:"SHELL_REQUEST_TIMEOUT" default:"25s"`

	// Catalog
	CatalogFile string `envconfig:"CATALOG_FILE"`

	// Database (empty = in-memory catalog)
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	RunMigrations bool   `envconfig:"RUN_MIGRATIONS" default:"false"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"migrations"`

	// COMMS (empty = events and content relay disabled)
	COMMSURL  string `envconfig:"COMMS_URL"`
	COMMSName string `envconfig:"SERVICE_NAME" default:"desktop-shell"`

	// HTTP health endpoint (SHELL_HTTP_ADDR preferred; HTTP_PORT 0 disables)
	HTTPAddr           string        `envconfig:"SHELL_HTTP_ADDR"`
	HTTPPort           int           `envconfig:"HTTP_PORT" default:"0"`
	HealthCheckTimeout time.Duration `envconfig:"HEALTH_CHECK_TIMEOUT" default:"5s"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ValidateForRun checks required config when running the shell.
func (c *Config) ValidateForRun() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%s - SHELL_WIDTH and SHELL_HEIGHT must be positive", logPrefix)
	}
	if strings.TrimSpace(c.InitialURL) == "" {
		return fmt.Errorf("%s - SHELL_INITIAL_URL is required", logPrefix)
	}
	switch c.Engine {
	case EngineMemory, EngineWebview:
	default:
		return fmt.Errorf("%s - SHELL_ENGINE must be %q or %q, got %q", logPrefix, EngineMemory, EngineWebview, c.Engine)
	}
	switch strings.ToLower(c.BridgeMode) {
	case "inline", "serialized":
	default:
		return fmt.Errorf("%s - SHELL_BRIDGE_MODE must be inline or serialized, got %q", logPrefix, c.BridgeMode)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%s - SHELL_REQUEST_TIMEOUT must be positive", logPrefix)
	}
	if c.HealthCheckTimeout <= 0 {
		return fmt.Errorf("%s - HEALTH_CHECK_TIMEOUT must be positive", logPrefix)
	}
	return nil
}

// ValidateForDB checks required config when running DB-dependent commands (migrate, clear, seed).
func (c *Config) ValidateForDB() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s - DATABASE_URL is required", logPrefix)
	}
	return nil
}

// ResolveDataDir returns the engine data directory, defaulting to
// <user config dir>/desktop-shell/webview_data.
func (c *Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%s - cannot determine data directory: %w", logPrefix, err)
	}
	return filepath.Join(base, "desktop-shell", "webview_data"), nil
}

// HealthAddr returns the health listen address, or "" when disabled.
func (c *Config) HealthAddr() string {
	if c.HTTPAddr != "" {
		return c.HTTPAddr
	}
	if c.HTTPPort <= 0 {
		return ""
	}
	return fmt.Sprintf(":%d", c.HTTPPort)
}
