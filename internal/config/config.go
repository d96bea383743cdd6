// Package config loads the docgate gateway configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"docgate/internal/chunker"
	"docgate/internal/retrieval"
)

// Config represents the gateway configuration.
type Config struct {
	Port     int            `json:"port"`
	DataDir  string         `json:"data_dir,omitempty"`
	Database DatabaseConfig `json:"database"`
	Vector   VectorConfig   `json:"vector"`
	AI       AIConfig       `json:"ai"`
	Backup   BackupConfig   `json:"backup,omitempty"`
}

// DatabaseConfig contains metadata database settings.
type DatabaseConfig struct {
	Path string `json:"path,omitempty"` // derived from data_dir if empty
}

// VectorConfig holds configuration for the vector index and retrieval.
type VectorConfig struct {
	Path            string  `json:"path,omitempty"`             // vector DB file (derived from data_dir if empty)
	EmbedProvider   string  `json:"embed_provider,omitempty"`   // "hashing" (default), "openai"
	EmbedDims       int     `json:"embed_dims,omitempty"`       // 512 for hashing, 1536 for openai
	EmbedModel      string  `json:"embed_model,omitempty"`      // openai embedding model
	EmbedAPIKey     string  `json:"embed_api_key,omitempty"`    // supports ${ENV_VAR} expansion
	ChunkSize       int     `json:"chunk_size,omitempty"`       // target chunk size in characters
	ChunkOverlap    int     `json:"chunk_overlap,omitempty"`    // overlap carried between chunks
	TopK            int     `json:"top_k,omitempty"`            // chunks retrieved per question
	OverfetchFactor int     `json:"overfetch_factor,omitempty"` // candidates fetched per result
	OverfetchFloor  int     `json:"overfetch_floor,omitempty"`  // minimum candidate width
	ScoreThreshold  float32 `json:"score_threshold,omitempty"`  // cosine similarity gate for using context
	PolicyFile      string  `json:"policy_file,omitempty"`      // answer-policy YAML; its fields override score_threshold
}

// AIConfig contains generation provider settings.
type AIConfig struct {
	DefaultProvider string           `json:"default_provider"`
	Providers       []ProviderConfig `json:"providers"`
}

// ProviderConfig describes one generation provider.
type ProviderConfig struct {
	Name   string `json:"name"`              // "anthropic", "openai"
	APIKey string `json:"api_key,omitempty"` // supports ${ENV_VAR} expansion
	Model  string `json:"model,omitempty"`
}

// BackupConfig controls scheduled snapshots of the on-disk state.
type BackupConfig struct {
	Enabled  bool   `json:"enabled"`
	Dir      string `json:"dir,omitempty"`      // derived from data_dir if empty
	Schedule string `json:"schedule,omitempty"` // cron expression, default daily
	Keep     int    `json:"keep,omitempty"`     // snapshots retained, default 7
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Port:    8080,
		DataDir: "./data",
		Vector: VectorConfig{
			EmbedProvider:   "hashing",
			EmbedDims:       512,
			ChunkSize:       chunker.DefaultTargetSize,
			ChunkOverlap:    chunker.DefaultOverlap,
			TopK:            retrieval.DefaultConfig().TopK,
			OverfetchFactor: retrieval.DefaultConfig().OverfetchFactor,
			OverfetchFloor:  retrieval.DefaultConfig().OverfetchFloor,
			ScoreThreshold:  0.35,
		},
		AI: AIConfig{
			DefaultProvider: "anthropic",
			Providers: []ProviderConfig{
				{Name: "anthropic", APIKey: "${ANTHROPIC_API_KEY}"},
			},
		},
		Backup: BackupConfig{
			Schedule: "0 3 * * *",
			Keep:     7,
		},
	}
}

// Load loads configuration from a file, creating the default on first run.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("save default config: %w", err)
		}
		fmt.Printf("Created default configuration at %s\n", path)
		cfg.applyDerived()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg.expandEnvVars()
	cfg.applyDerived()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to a file.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// expandEnvVars expands ${ENV_VAR} placeholders in secret-bearing fields.
func (c *Config) expandEnvVars() {
	c.DataDir = os.ExpandEnv(c.DataDir)
	c.Vector.EmbedAPIKey = os.ExpandEnv(c.Vector.EmbedAPIKey)
	for i := range c.AI.Providers {
		c.AI.Providers[i].APIKey = os.ExpandEnv(c.AI.Providers[i].APIKey)
	}
}

// applyDerived fills in paths derived from data_dir.
func (c *Config) applyDerived() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Database.Path == "" {
		c.Database.Path = filepath.Join(c.DataDir, "docgate.db")
	}
	if c.Vector.Path == "" {
		c.Vector.Path = filepath.Join(c.DataDir, "docgate.vector.db")
	}
	if c.Backup.Dir == "" {
		c.Backup.Dir = filepath.Join(c.DataDir, "backups")
	}
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Vector.ChunkOverlap >= c.Vector.ChunkSize && c.Vector.ChunkSize > 0 {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)",
			c.Vector.ChunkOverlap, c.Vector.ChunkSize)
	}
	switch c.Vector.EmbedProvider {
	case "", "hashing", "openai":
	default:
		return fmt.Errorf("unknown embed_provider %q", c.Vector.EmbedProvider)
	}
	if c.AI.DefaultProvider != "" {
		found := false
		for _, p := range c.AI.Providers {
			if p.Name == c.AI.DefaultProvider {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("default_provider %q has no providers entry", c.AI.DefaultProvider)
		}
	}
	return nil
}

// Provider returns the configured default provider entry.
func (c *Config) Provider() (ProviderConfig, error) {
	for _, p := range c.AI.Providers {
		if p.Name == c.AI.DefaultProvider {
			return p, nil
		}
	}
	return ProviderConfig{}, fmt.Errorf("no provider configured for %q", c.AI.DefaultProvider)
}
