package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/devup"
	projectConfigDir = ".devup"
	configFileName   = "config.yaml"
)

// LoadConfig loads the devup configuration by layering default, user, and project settings.
func LoadConfig() (DevupConfig, error) {
	// 1. Start with the default configuration
	config := GetDefaultConfig()

	// 2. Determine user-specific configuration path
	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// Log this error but don't fail; user config is optional
		fmt.Fprintf(os.Stderr, "Warning: Could not determine user config path: %v\n", err)
	} else {
		if _, err := os.Stat(userConfigPath); !os.IsNotExist(err) {
			userConfig, err := loadConfigFromFile(userConfigPath)
			if err != nil {
				return DevupConfig{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
			}
			config = mergeConfigs(config, userConfig)
		}
	}

	// 3. Determine project-specific configuration path
	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		// Log this error but don't fail; project config is optional
		fmt.Fprintf(os.Stderr, "Warning: Could not determine project config path: %v\n", err)
	} else {
		if _, err := os.Stat(projectConfigPath); !os.IsNotExist(err) {
			projectConfig, err := loadConfigFromFile(projectConfigPath)
			if err != nil {
				return DevupConfig{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
			}
			config = mergeConfigs(config, projectConfig)
		}
	}

	return config, nil
}

var getUserConfigPath = func() (string, error) {
	configDir, err := GetUserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd() // Use mockable variable
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// loadConfigFromFile loads a DevupConfig from a YAML file.
func loadConfigFromFile(filePath string) (DevupConfig, error) {
	var config DevupConfig
	data, err := os.ReadFile(filePath)
	if err != nil {
		return DevupConfig{}, err
	}
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return DevupConfig{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config.
func mergeConfigs(base, overlay DevupConfig) DevupConfig {
	mergedConfig := base

	// Merge runtime settings (overlay overrides base)
	if overlay.Runtime.Interpreter != "" {
		mergedConfig.Runtime.Interpreter = overlay.Runtime.Interpreter
	}
	if len(overlay.Runtime.Fallbacks) > 0 {
		mergedConfig.Runtime.Fallbacks = overlay.Runtime.Fallbacks
	}

	// An overlay dependency list replaces the base list wholesale. The order
	// is meaningful (install order), so a map-based merge would scramble it.
	if len(overlay.Dependencies) > 0 {
		mergedConfig.Dependencies = overlay.Dependencies
	}

	// Merge services by name, preserving base declaration order. Spawn order
	// is declaration order, so overlays replace in place and new services
	// append at the end.
	if len(overlay.Services) > 0 {
		byName := make(map[string]int, len(mergedConfig.Services))
		for i, svc := range mergedConfig.Services {
			byName[svc.Name] = i
		}
		for _, svc := range overlay.Services {
			if i, exists := byName[svc.Name]; exists {
				mergedConfig.Services[i] = svc
			} else {
				mergedConfig.Services = append(mergedConfig.Services, svc)
			}
		}
	}

	return mergedConfig
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
