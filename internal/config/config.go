package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models roofdesk.yml.
type Config struct {
	Company struct {
		Name string `yaml:"name"`
	} `yaml:"company"`
	Agent struct {
		Model        string `yaml:"model"`
		DefaultLimit int    `yaml:"default_limit"`
		MaxLimit     int    `yaml:"max_limit"`
	} `yaml:"agent"`
	Auth struct {
		JWTSecretEnv  string `yaml:"jwt_secret_env"`
		AllowDevLogin bool   `yaml:"allow_dev_login"`
	} `yaml:"auth"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`
}

// WebhookConfig points event notifications at an external URL.
type WebhookConfig struct {
	URL     string   `yaml:"url"`
	Enabled *bool    `yaml:"enabled,omitempty"`
	Types   []string `yaml:"types,omitempty"`
}

// Load reads and validates config from the workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with rd init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	data, err := os.ReadFile(Path(workspace))
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Company.Name == "" {
		return fmt.Errorf("config.company.name is required")
	}
	if c.Agent.Model == "" {
		return fmt.Errorf("config.agent.model is required")
	}
	if c.Agent.DefaultLimit <= 0 {
		return fmt.Errorf("config.agent.default_limit must be positive")
	}
	if c.Agent.MaxLimit < c.Agent.DefaultLimit {
		return fmt.Errorf("config.agent.max_limit must be >= default_limit")
	}
	return nil
}

// JWTSecret reads the signing secret from the configured environment variable.
func (c *Config) JWTSecret() string {
	env := c.Auth.JWTSecretEnv
	if env == "" {
		env = "ROOFDESK_JWT_SECRET"
	}
	return os.Getenv(env)
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "roofdesk.yml")
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `company:
  name: West Peak Roofing

agent:
  model: gpt-4o-mini
  default_limit: 25
  max_limit: 100

auth:
  jwt_secret_env: ROOFDESK_JWT_SECRET
  allow_dev_login: true
`
