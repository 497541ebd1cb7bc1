package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var allEnvVars = []string{
	"SHELL_DATA_DIR", "SHELL_INITIAL_URL", "SHELL_WIDTH", "SHELL_HEIGHT",
	"SHELL_TITLE", "SHELL_ENGINE", "SHELL_BRIDGE_MODE", "SHELL_DEBUG",
	"SHELL_REQUEST_TIMEOUT", "CATALOG_FILE",
	"DATABASE_URL", "RUN_MIGRATIONS", "MIGRATION_PATH",
	"COMMS_URL", "SERVICE_NAME",
	"SHELL_HTTP_ADDR", "HTTP_PORT", "HEALTH_CHECK_TIMEOUT", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range allEnvVars {
		if v, ok := os.LookupEnv(env); ok {
			os.Unsetenv(env)
			t.Cleanup(func() { os.Setenv(env, v) })
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("config:config_test - unexpected error: %v", err)
	}

	if cfg.InitialURL != "about:blank" {
		t.Errorf("config:config_test - InitialURL = %q, want about:blank", cfg.InitialURL)
	}
	if cfg.Width != 800 || cfg.Height != 600 {
		t.Errorf("config:config_test - size = %dx%d, want 800x600", cfg.Width, cfg.Height)
	}
	if cfg.Title != "Desktop Shell" {
		t.Errorf("config:config_test - Title = %q", cfg.Title)
	}
	if cfg.Engine != EngineMemory {
		t.Errorf("config:config_test - Engine = %q, want memory", cfg.Engine)
	}
	if cfg.BridgeMode != "inline" {
		t.Errorf("config:config_test - BridgeMode = %q, want inline", cfg.BridgeMode)
	}
	if cfg.RequestTimeout != 25*time.Second {
		t.Errorf("config:config_test - RequestTimeout = %v, want 25s", cfg.RequestTimeout)
	}
	if cfg.DatabaseURL != "" || cfg.COMMSURL != "" {
		t.Errorf("config:config_test - expected optional backends disabled, got db=%q comms=%q", cfg.DatabaseURL, cfg.COMMSURL)
	}
	if cfg.COMMSName != "desktop-shell" {
		t.Errorf("config:config_test - COMMSName = %q", cfg.COMMSName)
	}
	if cfg.MigrationPath != "migrations" {
		t.Errorf("config:config_test - MigrationPath = %q", cfg.MigrationPath)
	}
	if cfg.HealthAddr() != "" {
		t.Errorf("config:config_test - health endpoint should be disabled by default, got %q", cfg.HealthAddr())
	}
	if cfg.HealthCheckTimeout != 5*time.Second {
		t.Errorf("config:config_test - HealthCheckTimeout = %v", cfg.HealthCheckTimeout)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("config:config_test - LogLevel = %q", cfg.LogLevel)
	}
	if err := cfg.ValidateForRun(); err != nil {
		t.Errorf("config:config_test - defaults should validate: %v", err)
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	overrides := map[string]string{
		"SHELL_DATA_DIR":        "/tmp/sess",
		"SHELL_INITIAL_URL":     "http://localhost:3000",
		"SHELL_WIDTH":           "1024",
		"SHELL_HEIGHT":          "768",
		"SHELL_ENGINE":          "webview",
		"SHELL_BRIDGE_MODE":     "serialized",
		"SHELL_REQUEST_TIMEOUT": "10s",
		"DATABASE_URL":          "postgres://test@localhost/test",
		"COMMS_URL":             "nats://custom:4222",
		"HTTP_PORT":             "9090",
		"LOG_LEVEL":             "debug",
	}
	for k, v := range overrides {
		t.Setenv(k, v)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("config:config_test - unexpected error: %v", err)
	}

	if cfg.DataDir != "/tmp/sess" || cfg.InitialURL != "http://localhost:3000" {
		t.Errorf("config:config_test - unexpected surface config %+v", cfg)
	}
	if cfg.Width != 1024 || cfg.Height != 768 {
		t.Errorf("config:config_test - size = %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Engine != EngineWebview || cfg.BridgeMode != "serialized" {
		t.Errorf("config:config_test - engine=%q bridge=%q", cfg.Engine, cfg.BridgeMode)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("config:config_test - RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.HealthAddr() != ":9090" {
		t.Errorf("config:config_test - HealthAddr = %q", cfg.HealthAddr())
	}
	if dir, err := cfg.ResolveDataDir(); err != nil || dir != "/tmp/sess" {
		t.Errorf("config:config_test - ResolveDataDir = %q, %v", dir, err)
	}
}

func TestLoadConfig_InvalidValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("SHELL_WIDTH", "wide")

	if _, err := LoadConfig(); err == nil {
		t.Error("config:config_test - expected error for non-numeric SHELL_WIDTH")
	}
}

func TestValidateForRun(t *testing.T) {
	valid := func() *Config {
		return &Config{
			InitialURL:         "about:blank",
			Width:              800,
			Height:             600,
			Engine:             EngineMemory,
			BridgeMode:         "inline",
			RequestTimeout:     time.Second,
			HealthCheckTimeout: time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"zero width", func(c *Config) { c.Width = 0 }, "SHELL_WIDTH"},
		{"empty url", func(c *Config) { c.InitialURL = " " }, "SHELL_INITIAL_URL"},
		{"unknown engine", func(c *Config) { c.Engine = "gecko" }, "SHELL_ENGINE"},
		{"unknown bridge mode", func(c *Config) { c.BridgeMode = "parallel" }, "SHELL_BRIDGE_MODE"},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, "SHELL_REQUEST_TIMEOUT"},
		{"zero health timeout", func(c *Config) { c.HealthCheckTimeout = 0 }, "HEALTH_CHECK_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.ValidateForRun()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("config:config_test - unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("config:config_test - err = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestValidateForDB(t *testing.T) {
	if err := (&Config{}).ValidateForDB(); err == nil {
		t.Error("config:config_test - expected error without DATABASE_URL")
	}
	if err := (&Config{DatabaseURL: "postgres://x"}).ValidateForDB(); err != nil {
		t.Errorf("config:config_test - unexpected error: %v", err)
	}
}

func TestResolveDataDir_Default(t *testing.T) {
	dir, err := (&Config{}).ResolveDataDir()
	if err != nil {
		t.Skipf("config:config_test - no user config dir on this host: %v", err)
	}
	if filepath.Base(dir) != "webview_data" || !strings.Contains(dir, "desktop-shell") {
		t.Errorf("config:config_test - unexpected default data dir %q", dir)
	}
}
