package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Model.APIKey = "test-token"
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, "https://models.github.ai/inference", cfg.Model.BaseURL)
	assert.Equal(t, 20, cfg.Agent.MaxHistory)
	assert.Equal(t, "0 8 * * *", cfg.Digest.Schedule)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.True(t, cfg.Memory.Enabled)
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidate_MissingAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GITHUB_TOKEN")
}

func TestValidate_InvalidProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Model.Provider = "gemini"
	assert.Error(t, cfg.Validate())
}

func TestValidate_Temperature(t *testing.T) {
	cfg := validConfig()
	cfg.Model.Temperature = 1.5
	assert.Error(t, cfg.Validate())
}

func TestValidate_DigestScheduleRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Digest.Enabled = true
	cfg.Digest.Schedule = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_WebPort(t *testing.T) {
	cfg := validConfig()
	cfg.Web.Port = 0
	assert.Error(t, cfg.Validate())
}

func TestModelDisplayName(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model.Name = "openai/gpt-4.1-mini"
	assert.Equal(t, "gpt-4.1-mini", cfg.ModelDisplayName())

	cfg.Model.Name = "claude-sonnet-4"
	assert.Equal(t, "claude-sonnet-4", cfg.ModelDisplayName())
}

func TestSMTPConfigured(t *testing.T) {
	var s SMTPConfig
	assert.False(t, s.Configured())

	s.Sender = "me@example.com"
	s.Password = "app-password"
	assert.True(t, s.Configured())
}
