// Copyright 2026 Blink Labs Software
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

package config

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/blinklabs-io/civet/database/plugin"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "civet.config"

const DefaultShutdownTimeout = "30s"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
)

// RunMode represents the operational mode of the civet node
type RunMode string

const (
	RunModeServe RunMode = "serve" // Ledger node with REST API (default)
	RunModeDev   RunMode = "dev"   // Development mode (seeds a default admin)
)

// Valid returns true if the RunMode is a known valid mode
func (m RunMode) Valid() bool {
	switch m {
	case RunModeServe, RunModeDev, "":
		return true
	default:
		return false
	}
}

// IsDevMode returns true if the mode enables development behaviors
func (m RunMode) IsDevMode() bool {
	return m == RunModeDev
}

type tempConfig struct {
	Config   *Config                   `yaml:"config,omitempty"`
	Database *databaseConfig           `yaml:"database,omitempty"`
	Blob     map[string]map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]map[string]any `yaml:"metadata,omitempty"`
}

type databaseConfig struct {
	Blob     map[string]any `yaml:"blob,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

type Config struct {
	MetadataPlugin   string   `yaml:"metadataPlugin"   envconfig:"CIVET_DATABASE_METADATA_PLUGIN"`
	TlsKeyFilePath   string   `yaml:"tlsKeyFilePath"   envconfig:"TLS_KEY_FILE_PATH"`
	DatabasePath     string   `yaml:"databasePath"                                                split_words:"true"`
	TlsCertFilePath  string   `yaml:"tlsCertFilePath"  envconfig:"TLS_CERT_FILE_PATH"`
	BindAddr         string   `yaml:"bindAddr"                                                    split_words:"true"`
	BlobPlugin       string   `yaml:"blobPlugin"       envconfig:"CIVET_DATABASE_BLOB_PLUGIN"`
	ShutdownTimeout  string   `yaml:"shutdownTimeout"                                             split_words:"true"`
	InitialAdmins    []string `yaml:"initialAdmins"                                               split_words:"true"`
	ApiPort          uint     `yaml:"apiPort"          envconfig:"port"`
	MetricsPort      uint     `yaml:"metricsPort"                                                 split_words:"true"`
	DatabaseMaxConns int      `yaml:"databaseMaxConns" envconfig:"CIVET_DATABASE_MAX_CONNS"`
	Tracing          bool     `yaml:"tracing"`
	TracingStdout    bool     `yaml:"tracingStdout"                                               split_words:"true"`
	RunMode          RunMode  `yaml:"runMode"          envconfig:"CIVET_RUN_MODE"`
}

var globalConfig = &Config{
	BindAddr:         "0.0.0.0",
	DatabasePath:     ".civet",
	ApiPort:          3000,
	MetricsPort:      12798,
	TlsCertFilePath:  "",
	TlsKeyFilePath:   "",
	BlobPlugin:       DefaultBlobPlugin,
	MetadataPlugin:   DefaultMetadataPlugin,
	RunMode:          RunModeServe,
	ShutdownTimeout:  DefaultShutdownTimeout,
	DatabaseMaxConns: 0,
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for a config file next to the working directory first
		localPath := "civet.yaml"
		if _, err := os.Stat(localPath); err == nil {
			configFile = localPath
		}

		// Check for config file in this path: ~/.civet/civet.yaml
		if configFile == "" {
			if homeDir, err := os.UserHomeDir(); err == nil {
				userPath := filepath.Join(homeDir, ".civet", "civet.yaml")
				if _, err := os.Stat(userPath); err == nil {
					configFile = userPath
				}
			}
		}

		// Try to check for /etc/civet/civet.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/civet/civet.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		// First unmarshal into temp config to handle plugin sections
		var tempCfg tempConfig
		err = yaml.Unmarshal(buf, &tempCfg)
		if err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}

		// If config section exists, use it for main config
		if tempCfg.Config != nil {
			// Overlay config values onto existing defaults
			configBytes, err := yaml.Marshal(tempCfg.Config)
			if err != nil {
				return nil, fmt.Errorf("error re-marshalling config: %w", err)
			}
			err = yaml.Unmarshal(configBytes, globalConfig)
			if err != nil {
				return nil, fmt.Errorf("error parsing config section: %w", err)
			}
		} else {
			// Otherwise unmarshal the whole file as main config
			err = yaml.Unmarshal(buf, globalConfig)
			if err != nil {
				return nil, fmt.Errorf("error parsing config file: %w", err)
			}
		}

		// Process plugin configurations
		pluginConfig := make(map[string]map[string]map[string]any)
		if tempCfg.Blob != nil {
			pluginConfig["blob"] = tempCfg.Blob
		}
		if tempCfg.Metadata != nil {
			pluginConfig["metadata"] = tempCfg.Metadata
		}
		// Handle database section if present
		if tempCfg.Database != nil {
			if tempCfg.Database.Blob != nil {
				blobConfig, pluginName := splitPluginSection(
					"blob",
					tempCfg.Database.Blob,
				)
				if pluginName != "" {
					globalConfig.BlobPlugin = pluginName
				}
				// Merge with existing blob config instead of overwriting
				if pluginConfig["blob"] == nil {
					pluginConfig["blob"] = blobConfig
				} else {
					maps.Copy(pluginConfig["blob"], blobConfig)
				}
			}
			if tempCfg.Database.Metadata != nil {
				metadataConfig, pluginName := splitPluginSection(
					"metadata",
					tempCfg.Database.Metadata,
				)
				if pluginName != "" {
					globalConfig.MetadataPlugin = pluginName
				}
				// Merge with existing metadata config instead of overwriting
				if pluginConfig["metadata"] == nil {
					pluginConfig["metadata"] = metadataConfig
				} else {
					maps.Copy(pluginConfig["metadata"], metadataConfig)
				}
			}
		}
		if len(pluginConfig) > 0 {
			err = plugin.ProcessConfig(pluginConfig)
			if err != nil {
				return nil, fmt.Errorf(
					"error processing plugin config: %w",
					err,
				)
			}
		}
	}
	// Process environment variables
	err := envconfig.Process("civet", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}

	// Process plugin environment variables
	err = plugin.ProcessEnvVars()
	if err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}

	// Validate and default RunMode
	if !globalConfig.RunMode.Valid() {
		return nil, fmt.Errorf(
			"invalid runMode: %q (must be 'serve' or 'dev')",
			globalConfig.RunMode,
		)
	}
	if globalConfig.RunMode == "" {
		globalConfig.RunMode = RunModeServe
	}

	return globalConfig, nil
}

// splitPluginSection extracts the optional plugin name from a database
// config section and normalizes the per-plugin option maps
func splitPluginSection(
	section string,
	raw map[string]any,
) (map[string]map[string]any, string) {
	pluginName := ""
	if pluginVal, exists := raw["plugin"]; exists {
		if name, ok := pluginVal.(string); ok {
			pluginName = name
			// Remove plugin from config map
			delete(raw, "plugin")
		}
	}
	sectionConfig := make(map[string]map[string]any)
	for k, v := range raw {
		if val, ok := v.(map[string]any); ok {
			sectionConfig[k] = val
		} else if val, ok := v.(map[any]any); ok {
			// Convert map[any]any to map[string]any
			stringAnyMap := make(map[string]any)
			for vk, vv := range val {
				if keyStr, ok := vk.(string); ok {
					stringAnyMap[keyStr] = vv
				}
			}
			sectionConfig[k] = stringAnyMap
		} else {
			// Log skipped non-map config entries
			fmt.Fprintf(
				os.Stderr,
				"warning: skipping %s config entry %q: expected map, got %T\n",
				section,
				k,
				v,
			)
		}
	}
	return sectionConfig, pluginName
}

func GetConfig() *Config {
	return globalConfig
}
