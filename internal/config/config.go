package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main Life Admin configuration
type Config struct {
	// Model
	Model ModelConfig `json:"model" mapstructure:"model"`

	// Agent
	Agent AgentConfig `json:"agent" mapstructure:"agent"`

	// Database path for the relational store
	DatabasePath string `json:"database_path" mapstructure:"database_path"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// Memory
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`

	// SMTP / notifications
	SMTP SMTPConfig `json:"smtp" mapstructure:"smtp"`

	// Digest scheduling
	Digest DigestConfig `json:"digest" mapstructure:"digest"`

	// Web server
	Web WebConfig `json:"web" mapstructure:"web"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// ModelConfig holds LLM provider configuration
type ModelConfig struct {
	Provider    string  `json:"provider" mapstructure:"provider"` // openai, anthropic
	Name        string  `json:"name" mapstructure:"name"`
	BaseURL     string  `json:"base_url" mapstructure:"base_url"` // OpenAI-compatible endpoint (GitHub Models)
	APIKey      string  `json:"api_key" mapstructure:"api_key"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" mapstructure:"max_tokens"`
	MaxRetries  int     `json:"max_retries" mapstructure:"max_retries"`
}

// AgentConfig holds assistant behavior settings
type AgentConfig struct {
	Name             string `json:"name" mapstructure:"name"`
	SystemPromptPath string `json:"system_prompt_path" mapstructure:"system_prompt_path"`
	MaxHistory       int    `json:"max_history" mapstructure:"max_history"` // messages kept in context
}

// MemoryConfig holds long-term memory settings
type MemoryConfig struct {
	Enabled        bool   `json:"enabled" mapstructure:"enabled"`
	DBPath         string `json:"db_path" mapstructure:"db_path"`
	EmbeddingModel string `json:"embedding_model" mapstructure:"embedding_model"`
	UserID         string `json:"user_id" mapstructure:"user_id"`
}

// SMTPConfig holds email notification settings
type SMTPConfig struct {
	Host      string `json:"host" mapstructure:"host"`
	Port      int    `json:"port" mapstructure:"port"`
	Sender    string `json:"sender" mapstructure:"sender"`
	Password  string `json:"password" mapstructure:"password"`
	Recipient string `json:"recipient" mapstructure:"recipient"`
}

// Configured reports whether email sending is usable
func (s SMTPConfig) Configured() bool {
	return s.Sender != "" && s.Password != ""
}

// DigestConfig holds the scheduled reminder settings
type DigestConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	Schedule  string `json:"schedule" mapstructure:"schedule"` // cron expression
	DaysAhead int    `json:"days_ahead" mapstructure:"days_ahead"`
}

// WebConfig holds web chat server configuration
type WebConfig struct {
	Host string `json:"host" mapstructure:"host"`
	Port int    `json:"port" mapstructure:"port"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:    "openai",
			Name:        "openai/gpt-4.1-mini",
			BaseURL:     "https://models.github.ai/inference",
			Temperature: 0.7,
			MaxTokens:   4096,
			MaxRetries:  3,
		},
		Agent: AgentConfig{
			Name:       "Life Admin Assistant",
			MaxHistory: 20,
		},
		Memory: MemoryConfig{
			Enabled:        true,
			EmbeddingModel: "text-embedding-3-small",
			UserID:         "default",
		},
		SMTP: SMTPConfig{
			Host: "smtp.gmail.com",
			Port: 587,
		},
		Digest: DigestConfig{
			Enabled:   false,
			Schedule:  "0 8 * * *",
			DaysAhead: 30,
		},
		Web: WebConfig{
			Host: "127.0.0.1",
			Port: 8501,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   50,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
	}
}

// ModelDisplayName returns the friendly model name for UI output.
func (c *Config) ModelDisplayName() string {
	name := c.Model.Name
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' {
			return name[i+1:]
		}
	}
	return name
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Model.APIKey == "" {
		return fmt.Errorf("no API token configured: set GITHUB_TOKEN (or model.api_key) to use the assistant")
	}

	switch c.Model.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("invalid model provider %q (must be: openai, anthropic)", c.Model.Provider)
	}

	if c.Model.Name == "" {
		return fmt.Errorf("model name is required")
	}

	if c.Model.Temperature < 0 || c.Model.Temperature > 1 {
		return fmt.Errorf("model temperature must be between 0 and 1")
	}

	if c.Agent.MaxHistory <= 0 {
		return fmt.Errorf("agent max_history must be positive")
	}

	if c.Digest.Enabled && c.Digest.Schedule == "" {
		return fmt.Errorf("digest schedule is required when digest is enabled")
	}

	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		return fmt.Errorf("invalid web port: %d", c.Web.Port)
	}

	return nil
}
