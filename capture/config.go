package capture

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level daemon configuration.
type Config struct {
	Pages         []PageConfig        `yaml:"pages"`
	Browser       BrowserConfig       `yaml:"browser"`
	Ingest        IngestConfig        `yaml:"ingest"`
	Admin         AdminConfig         `yaml:"admin"`
	Observability ObservabilityConfig `yaml:"observability"`
	Relay         RelayConfig         `yaml:"relay"`
	// StartEnabled starts the pipeline in the active state. Default:
	// false — capture begins idle and waits for an enable message.
	StartEnabled bool `yaml:"start_enabled"`
}

// PageConfig defines one assistant page to watch.
type PageConfig struct {
	ID  string `yaml:"id"`
	URL string `yaml:"url"`
}

// BrowserConfig controls the Chrome lifecycle.
type BrowserConfig struct {
	// Remote is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome.
	Remote string `yaml:"remote"`
	// Stealth: headless | headful. Assistant sites are bot-hostile;
	// headful survives more of their checks.
	Stealth string `yaml:"stealth"`
}

// IngestConfig locates the ingestion service.
type IngestConfig struct {
	BaseURL string `yaml:"base_url"`
}

// AdminConfig binds the control surface.
type AdminConfig struct {
	Addr string `yaml:"addr"`
}

// ObservabilityConfig locates the event database.
type ObservabilityConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// RelayConfig tunes the relay channel.
type RelayConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// LoadConfigFile reads a YAML configuration file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("capture: read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("capture: parse config: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headless"
	}
	if c.Ingest.BaseURL == "" {
		c.Ingest.BaseURL = "http://localhost:5000"
	}
	if c.Admin.Addr == "" {
		c.Admin.Addr = "127.0.0.1:7717"
	}
	if c.Observability.Path == "" {
		c.Observability.Path = "capd.db"
	}
	if c.Observability.RetentionDays <= 0 {
		c.Observability.RetentionDays = 30
	}
	if c.Relay.QueueSize <= 0 {
		c.Relay.QueueSize = 64
	}
	for i := range c.Pages {
		if c.Pages[i].ID == "" {
			c.Pages[i].ID = fmt.Sprintf("page-%d", i+1)
		}
	}
}
