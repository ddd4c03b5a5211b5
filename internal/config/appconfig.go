// Package config provides configuration management for swselect.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// AppConfig is the configuration stored in ~/.config/swselect/
type AppConfig struct {
	// Catalog is the path to the repository catalog
	Catalog string `yaml:"catalog"`
	// StateDB is the SQLite history of applied selections
	StateDB string `yaml:"state_db,omitempty"`
	// SourceName labels the installation source in the history
	SourceName string `yaml:"source_name,omitempty"`
}

const (
	appConfigDir  = ".config/swselect"
	appConfigFile = "config.yaml"
	stateDBFile   = "history.db"
)

// LoadAppConfig loads the app configuration from ~/.config/swselect/config.yaml
func LoadAppConfig() (*AppConfig, error) {
	configPath := AppConfigPath()
	if configPath == "" {
		return nil, fmt.Errorf("getting home directory: %w", os.ErrNotExist)
	}

	data, err := os.ReadFile(configPath) //nolint:gosec // path is from user home dir, intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s - run 'swselect init' or create it manually", ErrAppConfigNotFound, configPath)
		}

		return nil, fmt.Errorf("reading app config: %w", err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing app config: %w", err)
	}

	if cfg.Catalog == "" {
		return nil, NewFieldError(configPath, "catalog", "", ErrInvalidConfig)
	}

	cfg.Catalog = ExpandPath(cfg.Catalog)
	cfg.StateDB = ExpandPath(cfg.StateDB)

	if _, err := os.Stat(cfg.Catalog); os.IsNotExist(err) {
		return nil, fmt.Errorf("catalog does not exist: %s", cfg.Catalog)
	}

	return &cfg, nil
}

// SaveAppConfig saves the app configuration to ~/.config/swselect/config.yaml
func SaveAppConfig(cfg *AppConfig) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("getting home directory: %w", err)
	}

	configDir := filepath.Join(home, appConfigDir)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(configDir, appConfigFile)

	data, err := marshalYAML(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	content := fmt.Sprintf("# swselect app configuration\n# Points at the repository catalog offered for software selection\n\n%s", string(data))

	// Use 0600 permissions to restrict access to owner only
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// StateDBPath returns the configured history database, or the default one
// next to the app config.
func (a *AppConfig) StateDBPath() string {
	if a.StateDB != "" {
		return a.StateDB
	}

	return DefaultStateDB()
}

// AppConfigPath returns the path where the app config is stored.
// Returns an empty string if the home directory cannot be determined.
func AppConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, appConfigDir, appConfigFile)
}

// DefaultStateDB returns the default history database path.
func DefaultStateDB() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return stateDBFile
	}

	return filepath.Join(home, appConfigDir, stateDBFile)
}
