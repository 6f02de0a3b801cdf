package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models atelier.yml.
type Config struct {
	Studio struct {
		Name string `yaml:"name"`
	} `yaml:"studio"`
	Catalog   []CatalogItem `yaml:"catalog"`
	Generator struct {
		Provider  string `yaml:"provider"` // openai | none
		Model     string `yaml:"model"`
		BaseURL   string `yaml:"base_url"`
		APIKeyEnv string `yaml:"api_key_env"`
	} `yaml:"generator"`
	Server struct {
		Addr      string `yaml:"addr"`
		BasePath  string `yaml:"base_path"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"server"`
}

// CatalogItem is one sellable production item considered during scope selection.
type CatalogItem struct {
	Key           string  `yaml:"key" json:"key"`
	Title         string  `yaml:"title" json:"title"`
	Cost          float64 `yaml:"cost" json:"cost"`
	Phase         string  `yaml:"phase" json:"phase"`
	TimeEst       string  `yaml:"time_est" json:"time_est"`
	Justification string  `yaml:"justification" json:"justification"`
}

// Load reads and validates config from the workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
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
	if len(c.Catalog) == 0 {
		return fmt.Errorf("config.catalog is required")
	}
	seen := map[string]bool{}
	for i, item := range c.Catalog {
		if item.Key == "" {
			return fmt.Errorf("catalog item %d has empty key", i)
		}
		if item.Title == "" {
			return fmt.Errorf("catalog item %s has empty title", item.Key)
		}
		if item.Cost < 0 {
			return fmt.Errorf("catalog item %s has negative cost", item.Key)
		}
		if seen[item.Key] {
			return fmt.Errorf("catalog item %s duplicated", item.Key)
		}
		seen[item.Key] = true
	}
	switch c.Generator.Provider {
	case "", "none", "openai":
	default:
		return fmt.Errorf("generator.provider must be 'openai' or 'none', got %q", c.Generator.Provider)
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "atelier.yml")
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
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

const defaultTemplate = `studio:
  name: Templo Atelier

catalog:
  - key: brand_strategy
    title: Brand Strategy Document
    cost: 800
    phase: Foundation
    time_est: 1 week
    justification: Defines core DNA and market positioning.
  - key: visual_brief
    title: Visual Identity Brief
    cost: 600
    phase: Foundation
    time_est: 3 days
    justification: Translates strategy into visual direction for designers.
  - key: competitor_audit
    title: Competitor Audit Report
    cost: 500
    phase: Foundation
    time_est: 4 days
    justification: Identifies whitespace opportunities in the market.
  - key: logo_system
    title: Logo & Identity System
    cost: 1500
    phase: Design
    time_est: 2 weeks
    justification: Core asset for brand recognition across all touchpoints.
  - key: brand_guidelines
    title: Brand Guidelines
    cost: 1000
    phase: Design
    time_est: 1 week
    justification: Ensures consistency in future brand application.
  - key: visual_templates
    title: Key Visual Templates
    cost: 700
    phase: Design
    time_est: 1 week
    justification: Ready-to-use assets for social and presentations.
  - key: website
    title: Website Design & Development
    cost: 2500
    phase: Production
    time_est: 3 weeks
    justification: Primary digital storefront and conversion engine.
  - key: social_kit
    title: Social Media Kit
    cost: 800
    phase: Production
    time_est: 1 week
    justification: Launch content to build initial traction.
  - key: launch_collateral
    title: Launch Collateral
    cost: 600
    phase: Production
    time_est: 1 week
    justification: Physical/digital assets for launch event/campaign.

generator:
  provider: none
  model: gpt-4o-mini
  api_key_env: OPENAI_API_KEY

server:
  addr: :8080
  base_path: /v1
  jwt_secret: ""
`
