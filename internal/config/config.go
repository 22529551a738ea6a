// Package config provides configuration loading for safepush.
//
// Settings are layered, lowest precedence first: built-in defaults, the
// user file (~/.config/safepush/config.yaml), the repository file
// (<repo>/.safepush.yaml), SAFEPUSH_* environment variables. Command-line
// flags are applied on top by the caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the complete safepush configuration.
type Config struct {
	Build     BuildConfig     `koanf:"build"`
	Shadow    ShadowConfig    `koanf:"shadow"`
	Push      PushConfig      `koanf:"push"`
	Secrets   SecretsConfig   `koanf:"secrets"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// BuildConfig controls how the validation command is chosen.
type BuildConfig struct {
	// Command overrides build detection. Run through sh -c.
	Command string `koanf:"command"`
	// ProjectDirs are searched, after the root, for build descriptors.
	ProjectDirs []string `koanf:"project_dirs"`
	// IdleGuard keeps the machine awake during builds where supported.
	IdleGuard bool `koanf:"idle_guard"`
}

// ShadowConfig controls the shadow workspace.
type ShadowConfig struct {
	// Caches are directories linked from the original checkout.
	Caches []string `koanf:"caches"`
	// Clean removes untracked and ignored files before each commit.
	Clean bool `koanf:"clean"`
}

// PushConfig controls the pre-flight protocol.
type PushConfig struct {
	Fetch bool `koanf:"fetch"`
}

// SecretsConfig controls the secret gate.
type SecretsConfig struct {
	Scan      bool   `koanf:"scan"`
	Allowlist string `koanf:"allowlist"`
}

// LoggingConfig selects diagnostic log level and format.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled         bool     `koanf:"enabled"`
	Endpoint        string   `koanf:"endpoint"`
	Protocol        string   `koanf:"protocol"`
	Insecure        bool     `koanf:"insecure"`
	SampleRate      float64  `koanf:"sample_rate"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// MetricsConfig controls Prometheus textfile export.
type MetricsConfig struct {
	// Textfile is written after each run when set.
	Textfile string `koanf:"textfile"`
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	for _, dir := range c.Build.ProjectDirs {
		if err := validateRelative("build.project_dirs", dir); err != nil {
			return err
		}
	}
	for _, cache := range c.Shadow.Caches {
		if err := validateRelative("shadow.caches", cache); err != nil {
			return err
		}
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
		}
		if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http/protobuf" {
			return fmt.Errorf("telemetry.protocol must be 'grpc' or 'http/protobuf', got %q", c.Telemetry.Protocol)
		}
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry.sample_rate must be between 0 and 1, got %f", c.Telemetry.SampleRate)
	}

	return nil
}

// validateRelative rejects paths that would escape the repository.
func validateRelative(key, p string) error {
	if p == "" {
		return fmt.Errorf("%s: empty path", key)
	}
	if filepath.IsAbs(p) {
		return fmt.Errorf("%s: %q must be relative to the repository root", key, p)
	}
	clean := filepath.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s: %q escapes the repository root", key, p)
	}
	return nil
}

// ExpandHome replaces a leading ~/ with the user's home directory.
func ExpandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
