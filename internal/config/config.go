// Package config manages SPECTRE operator-level configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const (
	ConfigDirName   = ".spectre"
	ConfigFileName  = "config.json"
	DefaultLogLevel = "info"

	// APIKeyEnv names the environment variable holding the generative
	// service key. The key itself is never written to the config file.
	APIKeyEnv = "SPECTRE_INTEL_API_KEY"
)

// IntelConfig selects the models behind the generative-intel adapter.
type IntelConfig struct {
	TextModel      string `json:"text_model"`
	ReasoningModel string `json:"reasoning_model"`
	ImageModel     string `json:"image_model"`
}

// GlobalConfig holds user-level configuration for the SPECTRE console.
type GlobalConfig struct {
	LogLevel  string      `json:"log_level"`
	Operator  string      `json:"operator"` // label stamped on console logs
	StatePath string      `json:"state_path"` // empty = in-memory state only
	RelayAddr string      `json:"relay_addr"` // host:port for the mTLS relay
	Intel     IntelConfig `json:"intel"`
}

// DefaultGlobalConfig returns sensible defaults.
func DefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		LogLevel:  DefaultLogLevel,
		Operator:  "local",
		StatePath: "", // state lives in memory for the life of the process
		RelayAddr: "127.0.0.1:7315",
		Intel: IntelConfig{
			TextModel:      "gemini-3-flash-preview",
			ReasoningModel: "gemini-3-pro-preview",
			ImageModel:     "gemini-2.5-flash-image",
		},
	}
}

// ConfigDir returns the global SPECTRE config directory path.
func ConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ConfigDirName)
}

// LoadGlobalConfig loads the global config from ~/.spectre/config.json.
func LoadGlobalConfig() (GlobalConfig, error) {
	path := filepath.Join(ConfigDir(), ConfigFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultGlobalConfig(), nil
		}
		return GlobalConfig{}, err
	}

	cfg := DefaultGlobalConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return GlobalConfig{}, err
	}
	return cfg, nil
}

// SaveGlobalConfig persists the global config to ~/.spectre/config.json.
func SaveGlobalConfig(cfg GlobalConfig) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, ConfigFileName), data, 0600)
}

// APIKey reads the generative service key from the environment.
func APIKey() string {
	return os.Getenv(APIKeyEnv)
}
