// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads and saves the application configuration.
//
// Configuration comes from a YAML file plus environment variables. A
// .env file in the working directory is loaded first so API tokens never
// need to live in the YAML.
package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AIConfig holds the OpenAI-compatible service settings.
type AIConfig struct {
	Host            string `yaml:"host"`
	APIKeyEnv       string `yaml:"api_key_env"`
	EmbeddingModel  string `yaml:"embedding_model"`
	ExtractionModel string `yaml:"extraction_model"`
	SynthesisModel  string `yaml:"synthesis_model"`
	BatchSize       int    `yaml:"batch_size"`
	TimeoutSecs     int    `yaml:"timeout_secs"`
}

// StorageConfig holds the database location.
type StorageConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// PipelineConfig holds batch processing settings.
type PipelineConfig struct {
	PoolSize      int `yaml:"pool_size"`
	RetryAttempts int `yaml:"retry_attempts"`
	RetryDelayMs  int `yaml:"retry_delay_ms"`
	RetrievalTopK int `yaml:"retrieval_top_k"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	AI       AIConfig       `yaml:"ai"`
	Storage  StorageConfig  `yaml:"storage"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// Token resolves the API token from the configured environment variable.
// Returns "none" when unset, which local OpenAI-compatible services accept.
func (c *AppConfig) Token() string {
	if c.AI.APIKeyEnv == "" {
		return "none"
	}
	if token := os.Getenv(c.AI.APIKeyEnv); token != "" {
		return token
	}
	return "none"
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults. A .env file in the working directory is loaded first.
func Load(path string) (*AppConfig, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./utilidoc.yaml first, then ~/.config/utilidoc/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	_ = godotenv.Load()

	cwdPath := "utilidoc.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "utilidoc", "config.yaml"), nil
}

func defaultDataPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "utilidoc.db"
	}
	return filepath.Join(home, ".local", "share", "utilidoc", "utilidoc.db")
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.AI.Host == "" {
		cfg.AI.Host = "https://api.openai.com/v1"
	}
	if cfg.AI.APIKeyEnv == "" {
		cfg.AI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.AI.ExtractionModel == "" {
		cfg.AI.ExtractionModel = "gpt-4o"
	}
	if cfg.AI.SynthesisModel == "" {
		cfg.AI.SynthesisModel = "gpt-4o"
	}
	if cfg.AI.BatchSize == 0 {
		cfg.AI.BatchSize = 100
	}
	if cfg.AI.TimeoutSecs == 0 {
		cfg.AI.TimeoutSecs = 60
	}
	if cfg.Storage.Path == "" && !cfg.Storage.InMemory {
		cfg.Storage.Path = defaultDataPath()
	}
	if cfg.Pipeline.PoolSize == 0 {
		cfg.Pipeline.PoolSize = 4
	}
	if cfg.Pipeline.RetryAttempts == 0 {
		cfg.Pipeline.RetryAttempts = 3
	}
	if cfg.Pipeline.RetryDelayMs == 0 {
		cfg.Pipeline.RetryDelayMs = 500
	}
	if cfg.Pipeline.RetrievalTopK == 0 {
		cfg.Pipeline.RetrievalTopK = 15
	}
}
