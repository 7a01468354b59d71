package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - FACETS_CONFIG_PATH: config file location (default: ~/.config/facets.toml)
//   - FACETS_HOME: base directory for facets data (default: ~/.local/share/facets)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking FACETS_CONFIG_PATH first,
// then falling back to the default ~/.config/facets.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("FACETS_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "facets.toml"), nil
}

// getBaseDir returns the base directory for facets data, checking FACETS_HOME first,
// then falling back to the XDG default ~/.local/share/facets.
func getBaseDir() (string, error) {
	if path := os.Getenv("FACETS_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "facets"), nil
}
