package registry

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/fieldreg/embedding"
	"github.com/hazyhaar/fieldreg/genai"
	"github.com/hazyhaar/fieldreg/registry/internal/dedupe"
	"github.com/hazyhaar/fieldreg/registry/internal/fetch"
	"github.com/hazyhaar/fieldreg/registry/internal/scheduler"
)

// Config configures the registry service.
type Config struct {
	// Fetch settings (timeout, max body, user agent).
	Fetch fetch.Config `yaml:"fetch"`

	// Embedding client settings. Empty endpoint runs the pipeline with
	// zero-vector embeddings (everything resolves to create).
	Embedding embedding.Config `yaml:"embedding"`

	// GenAI is the chat-completions client for model-driven extraction.
	// Empty endpoint degrades model extraction to zero entities.
	GenAI genai.Config `yaml:"genai"`

	// Dedupe tunes the similarity resolver.
	Dedupe dedupe.Config `yaml:"dedupe"`

	// Scheduler settings for the periodic due-source poller.
	Scheduler scheduler.Config `yaml:"scheduler"`

	// BatchDelay is the pause between sources in batch mode. Default: 2s.
	BatchDelay time.Duration `yaml:"batch_delay"`

	// DataDir is the root directory for the SQLite database.
	DataDir string `yaml:"data_dir"`

	// BlobDir is the root directory for archived raw content. Empty
	// disables archival.
	BlobDir string `yaml:"blob_dir"`

	// HTTPAddr is the status/health listen address. Default: ":8080".
	HTTPAddr string `yaml:"http_addr"`
}

func (c *Config) defaults() {
	if c.BatchDelay <= 0 {
		c.BatchDelay = 2 * time.Second
	}
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.defaults()
	return cfg
}

// LoadConfig reads a YAML config file. A missing path returns defaults so
// the binary runs with zero configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("registry: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("registry: parse config %s: %w", path, err)
	}
	cfg.defaults()
	return cfg, nil
}
