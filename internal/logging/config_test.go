package logging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, zapcore.WarnLevel, cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.True(t, cfg.Redaction.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "bad format",
			modify:  func(c *Config) { c.Format = "text" },
			wantErr: "format must be",
		},
		{
			name: "negative caller skip",
			modify: func(c *Config) {
				c.Caller.Enabled = true
				c.Caller.Skip = -1
			},
			wantErr: "caller skip",
		},
		{
			name:    "invalid pattern",
			modify:  func(c *Config) { c.Redaction.Patterns = []string{"("} },
			wantErr: "invalid redaction pattern",
		},
		{
			name:    "pattern too long",
			modify:  func(c *Config) { c.Redaction.Patterns = []string{strings.Repeat("a", 201)} },
			wantErr: "too long",
		},
		{
			name:    "empty field value",
			modify:  func(c *Config) { c.Fields = map[string]string{"app": ""} },
			wantErr: "empty value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
