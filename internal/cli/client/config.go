package client

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	envAPIKey = "DOCRAG_API_KEY"
	envAPIURL = "DOCRAG_API_URL"

	defaultAPIURL = "http://localhost:8080"
)

// GlobalConfig holds the credentials saved by "docrag auth login"
type GlobalConfig struct {
	APIKey string `yaml:"api_key"`
	APIURL string `yaml:"api_url"`
}

var getConfigDirFunc = defaultGetConfigDir

func defaultGetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "docrag"), nil
}

// GetConfigPath returns the path of the saved credentials file
func GetConfigPath() (string, error) {
	dir, err := getConfigDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadGlobalConfig reads the saved credentials. A missing file yields nil and no error.
func LoadGlobalConfig() (*GlobalConfig, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveGlobalConfig writes the credentials readable by the current user only
func SaveGlobalConfig(cfg *GlobalConfig) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DeleteGlobalConfig removes the saved credentials. Removing a missing file is not an error.
func DeleteGlobalConfig() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

// CredentialSource names where a credential was found
type CredentialSource string

const (
	SourceFlag         CredentialSource = "flag"
	SourceEnv          CredentialSource = "env"
	SourceGlobalConfig CredentialSource = "global_config"
	SourceDefault      CredentialSource = "default"
	SourceNone         CredentialSource = "none"
)

// Credentials are the resolved API key and URL with their origins
type Credentials struct {
	APIKey    string
	APIURL    string
	KeySource CredentialSource
	URLSource CredentialSource
}

// ResolveCredentials resolves each value independently: flag, then environment, then the
// saved config. The URL falls back to the local default; the key may stay empty when the
// server runs without authentication.
func ResolveCredentials(flagAPIKey, flagAPIURL string) (Credentials, error) {
	creds := Credentials{KeySource: SourceNone, URLSource: SourceDefault, APIURL: defaultAPIURL}

	global, err := LoadGlobalConfig()
	if err != nil {
		return creds, err
	}
	if global == nil {
		global = &GlobalConfig{}
	}

	switch {
	case flagAPIKey != "":
		creds.APIKey, creds.KeySource = flagAPIKey, SourceFlag
	case os.Getenv(envAPIKey) != "":
		creds.APIKey, creds.KeySource = os.Getenv(envAPIKey), SourceEnv
	case global.APIKey != "":
		creds.APIKey, creds.KeySource = global.APIKey, SourceGlobalConfig
	}

	switch {
	case flagAPIURL != "":
		creds.APIURL, creds.URLSource = flagAPIURL, SourceFlag
	case os.Getenv(envAPIURL) != "":
		creds.APIURL, creds.URLSource = os.Getenv(envAPIURL), SourceEnv
	case global.APIURL != "":
		creds.APIURL, creds.URLSource = global.APIURL, SourceGlobalConfig
	}

	return creds, nil
}
