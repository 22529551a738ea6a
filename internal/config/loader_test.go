package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

// writeFile writes content to dir/name with mode perm and returns the path.
func writeFile(t *testing.T, dir, name, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	// WriteFile is subject to umask.
	if err := os.Chmod(path, perm); err != nil {
		t.Fatalf("Failed to chmod %s: %v", path, err)
	}
	return path
}

// TestLoad_Defaults tests loading with no files and no environment.
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(LoadOptions{UserFile: filepath.Join(t.TempDir(), "missing.yaml")})
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Build.Command != "" {
		t.Errorf("Build.Command = %q, want empty", cfg.Build.Command)
	}
	if !reflect.DeepEqual(cfg.Build.ProjectDirs, []string{"java"}) {
		t.Errorf("Build.ProjectDirs = %v, want [java]", cfg.Build.ProjectDirs)
	}
	if !cfg.Build.IdleGuard {
		t.Error("Build.IdleGuard = false, want true")
	}
	wantCaches := []string{"node_modules", ".gradle", ".venv", "bower_components"}
	if !reflect.DeepEqual(cfg.Shadow.Caches, wantCaches) {
		t.Errorf("Shadow.Caches = %v, want %v", cfg.Shadow.Caches, wantCaches)
	}
	if !cfg.Shadow.Clean {
		t.Error("Shadow.Clean = false, want true")
	}
	if !cfg.Push.Fetch {
		t.Error("Push.Fetch = false, want true")
	}
	if cfg.Secrets.Scan {
		t.Error("Secrets.Scan = true, want false")
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Telemetry.Enabled {
		t.Error("Telemetry.Enabled = true, want false")
	}
	if cfg.Telemetry.ShutdownTimeout.Duration() != 5*time.Second {
		t.Errorf("Telemetry.ShutdownTimeout = %v, want 5s", cfg.Telemetry.ShutdownTimeout.Duration())
	}
}

// TestLoad_Precedence tests defaults < user file < repo file < environment.
func TestLoad_Precedence(t *testing.T) {
	userFile := writeFile(t, t.TempDir(), "config.yaml", `
build:
  command: make check
  project_dirs: [backend]
shadow:
  clean: false
logging:
  level: info
`, 0600)

	repo := t.TempDir()
	writeFile(t, repo, RepoFileName, `
build:
  command: ./gradlew check
`, 0644)

	t.Setenv("SAFEPUSH_LOGGING_LEVEL", "debug")
	t.Setenv("SAFEPUSH_SHADOW_CACHES", "node_modules,.m2")

	cfg, err := Load(LoadOptions{UserFile: userFile, RepoRoot: repo})
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.Build.Command != "./gradlew check" {
		t.Errorf("Build.Command = %q, want repo file value", cfg.Build.Command)
	}
	if !reflect.DeepEqual(cfg.Build.ProjectDirs, []string{"backend"}) {
		t.Errorf("Build.ProjectDirs = %v, want [backend]", cfg.Build.ProjectDirs)
	}
	if cfg.Shadow.Clean {
		t.Error("Shadow.Clean = true, want user file value false")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want env value debug", cfg.Logging.Level)
	}
	if !reflect.DeepEqual(cfg.Shadow.Caches, []string{"node_modules", ".m2"}) {
		t.Errorf("Shadow.Caches = %v, want env value", cfg.Shadow.Caches)
	}
	if !cfg.Push.Fetch {
		t.Error("Push.Fetch = false, want default true")
	}
}

// TestLoad_BoolFromEnv tests that env strings decode into booleans.
func TestLoad_BoolFromEnv(t *testing.T) {
	t.Setenv("SAFEPUSH_PUSH_FETCH", "false")
	t.Setenv("SAFEPUSH_SECRETS_SCAN", "true")

	cfg, err := Load(LoadOptions{UserFile: filepath.Join(t.TempDir(), "missing.yaml")})
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if cfg.Push.Fetch {
		t.Error("Push.Fetch = true, want false")
	}
	if !cfg.Secrets.Scan {
		t.Error("Secrets.Scan = false, want true")
	}
}

// TestLoad_RejectsWorldWritable tests the permission check.
func TestLoad_RejectsWorldWritable(t *testing.T) {
	userFile := writeFile(t, t.TempDir(), "config.yaml", "build:\n  command: rm -rf /\n", 0666)

	_, err := Load(LoadOptions{UserFile: userFile})
	if err == nil {
		t.Fatal("Load() error = nil, want permission error")
	}
	if !strings.Contains(err.Error(), "world-writable") {
		t.Errorf("Load() error = %v, want world-writable", err)
	}
}

// TestLoad_RejectsLargeFile tests the size limit.
func TestLoad_RejectsLargeFile(t *testing.T) {
	big := "# " + strings.Repeat("x", maxConfigFileSize) + "\n"
	userFile := writeFile(t, t.TempDir(), "config.yaml", big, 0600)

	_, err := Load(LoadOptions{UserFile: userFile})
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("Load() error = %v, want too large", err)
	}
}

// TestLoad_InvalidYAML tests parse failures name the file.
func TestLoad_InvalidYAML(t *testing.T) {
	userFile := writeFile(t, t.TempDir(), "config.yaml", "build: [unclosed\n", 0600)

	_, err := Load(LoadOptions{UserFile: userFile})
	if err == nil || !strings.Contains(err.Error(), userFile) {
		t.Fatalf("Load() error = %v, want error naming %s", err, userFile)
	}
}

// TestLoad_ValidationFailure tests that invalid values are rejected.
func TestLoad_ValidationFailure(t *testing.T) {
	t.Setenv("SAFEPUSH_SHADOW_CACHES", "../outside")

	_, err := Load(LoadOptions{UserFile: filepath.Join(t.TempDir(), "missing.yaml")})
	if err == nil || !strings.Contains(err.Error(), "escapes the repository root") {
		t.Fatalf("Load() error = %v, want validation failure", err)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"SAFEPUSH_BUILD_COMMAND":              "build.command",
		"SAFEPUSH_BUILD_PROJECT_DIRS":         "build.project_dirs",
		"SAFEPUSH_TELEMETRY_SAMPLE_RATE":      "telemetry.sample_rate",
		"SAFEPUSH_METRICS_TEXTFILE":           "metrics.textfile",
		"SAFEPUSH_VERBOSE":                    "verbose",
		"SAFEPUSH_TELEMETRY_SHUTDOWN_TIMEOUT": "telemetry.shutdown_timeout",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEnvValue(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantKey string
		want    interface{}
	}{
		{"SAFEPUSH_SHADOW_CACHES", "node_modules, .m2,,", "shadow.caches", []string{"node_modules", ".m2"}},
		{"SAFEPUSH_BUILD_PROJECT_DIRS", "java", "build.project_dirs", []string{"java"}},
		{"SAFEPUSH_SHADOW_CACHES", "", "shadow.caches", []string{}},
		{"SAFEPUSH_BUILD_COMMAND", "make a,b", "build.command", "make a,b"},
	}
	for _, tt := range tests {
		key, got := envValue(tt.name, tt.value)
		if key != tt.wantKey {
			t.Errorf("envValue(%q) key = %q, want %q", tt.name, key, tt.wantKey)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("envValue(%q, %q) = %#v, want %#v", tt.name, tt.value, got, tt.want)
		}
	}
}

// TestLoad_ListsFromEnv tests that list settings split on commas.
func TestLoad_ListsFromEnv(t *testing.T) {
	t.Setenv("SAFEPUSH_SHADOW_CACHES", "node_modules,.m2")
	t.Setenv("SAFEPUSH_BUILD_PROJECT_DIRS", "backend,services/api")

	cfg, err := Load(LoadOptions{UserFile: filepath.Join(t.TempDir(), "missing.yaml")})
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if !reflect.DeepEqual(cfg.Shadow.Caches, []string{"node_modules", ".m2"}) {
		t.Errorf("Shadow.Caches = %v, want [node_modules .m2]", cfg.Shadow.Caches)
	}
	if !reflect.DeepEqual(cfg.Build.ProjectDirs, []string{"backend", "services/api"}) {
		t.Errorf("Build.ProjectDirs = %v, want [backend services/api]", cfg.Build.ProjectDirs)
	}
}
