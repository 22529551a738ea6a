package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// RepoFileName is the per-repository config file at the repository root.
	RepoFileName = ".safepush.yaml"

	envPrefix = "SAFEPUSH_"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// LoadOptions selects the files Load reads.
type LoadOptions struct {
	// UserFile defaults to ~/.config/safepush/config.yaml.
	UserFile string
	// RepoRoot enables <RepoRoot>/.safepush.yaml when set.
	RepoRoot string
}

// Load builds the configuration from defaults, files and environment.
// Missing files are skipped.
//
// Environment variables map onto sections by their first underscore:
//
//	SAFEPUSH_BUILD_COMMAND      -> build.command
//	SAFEPUSH_SHADOW_CACHES      -> shadow.caches (comma separated)
//	SAFEPUSH_TELEMETRY_ENDPOINT -> telemetry.endpoint
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaultsYAML), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	userFile := opts.UserFile
	if userFile == "" {
		path, err := DefaultUserFile()
		if err != nil {
			return nil, err
		}
		userFile = path
	}

	files := []string{userFile}
	if opts.RepoRoot != "" {
		files = append(files, filepath.Join(opts.RepoRoot, RepoFileName))
	}

	for _, path := range files {
		content, err := readConfigFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// DefaultUserFile returns ~/.config/safepush/config.yaml.
func DefaultUserFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "safepush", "config.yaml"), nil
}

// envKey maps SAFEPUSH_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

// listKeys are decoded from comma separated environment values.
var listKeys = map[string]bool{
	"build.project_dirs": true,
	"shadow.caches":      true,
}

// envValue maps an environment variable onto its key, splitting list
// values on commas. Empty items are dropped.
func envValue(name, value string) (string, interface{}) {
	key := envKey(name)
	if !listKeys[key] {
		return key, value
	}
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

// readConfigFile reads path after checking its size and permissions on the
// open descriptor.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(path, info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// validateConfigFileProperties rejects oversized and world-writable files.
// A config file can name the build command, so anyone able to write it can
// run code as the user.
func validateConfigFileProperties(path string, info os.FileInfo) error {
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if info.Mode().Perm()&0o002 != 0 {
		return fmt.Errorf("insecure config file permissions on %s: %v (world-writable)", path, info.Mode().Perm())
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}
