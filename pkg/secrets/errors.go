// Package secrets scans commit patches for credentials using the Gitleaks SDK.
package secrets

import "errors"

var (
	// ErrInvalidRegex indicates a regex pattern failed to compile.
	ErrInvalidRegex = errors.New("invalid regex pattern")

	// ErrInvalidTOML indicates a TOML file could not be parsed.
	ErrInvalidTOML = errors.New("invalid TOML format")

	// ErrSecretsFound indicates a patch introduces at least one secret.
	ErrSecretsFound = errors.New("secrets found")
)
