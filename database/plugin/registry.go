// Copyright 2025 Blink Labs Software
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

package plugin

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
)

// PluginType is the type of plugin
type PluginType int

const (
	PluginTypeBlob PluginType = iota
	PluginTypeMetadata
)

// PluginTypeName returns the name for a plugin type
func PluginTypeName(pluginType PluginType) string {
	switch pluginType {
	case PluginTypeBlob:
		return "blob"
	case PluginTypeMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

// PluginOptionType is the data type of a plugin option
type PluginOptionType int

const (
	PluginOptionTypeString PluginOptionType = iota
	PluginOptionTypeBool
	PluginOptionTypeInt
	PluginOptionTypeUint
)

// envVarPrefix is prepended to generated plugin environment variable names
const envVarPrefix = "CIVET"

// PluginOption describes a single configurable option for a plugin. Dest
// must be a pointer to a variable of the type matching Type, which will be
// written when the option is set via command line, environment, or config
// file. CustomEnvVar names an additional environment variable checked as a
// fallback to the generated one.
type PluginOption struct {
	DefaultValue any
	Dest         any
	Name         string
	Description  string
	CustomEnvVar string
	Type         PluginOptionType
}

// flagName generates the command line flag name for an option
func (o *PluginOption) flagName(
	pluginType PluginType,
	pluginName string,
) string {
	return fmt.Sprintf(
		"%s-%s-%s",
		PluginTypeName(pluginType),
		pluginName,
		o.Name,
	)
}

// envVarName generates the environment variable name for an option
func (o *PluginOption) envVarName(
	pluginType PluginType,
	pluginName string,
) string {
	tmpName := fmt.Sprintf(
		"%s_%s_%s_%s",
		envVarPrefix,
		PluginTypeName(pluginType),
		pluginName,
		o.Name,
	)
	tmpName = strings.ReplaceAll(tmpName, "-", "_")
	return strings.ToUpper(tmpName)
}

// StringOption builds a string plugin option bound to dest
func StringOption(
	name string,
	description string,
	defaultValue string,
	dest *string,
) PluginOption {
	return PluginOption{
		Name:         name,
		Type:         PluginOptionTypeString,
		Description:  description,
		DefaultValue: defaultValue,
		Dest:         dest,
	}
}

// BoolOption builds a boolean plugin option bound to dest
func BoolOption(
	name string,
	description string,
	defaultValue bool,
	dest *bool,
) PluginOption {
	return PluginOption{
		Name:         name,
		Type:         PluginOptionTypeBool,
		Description:  description,
		DefaultValue: defaultValue,
		Dest:         dest,
	}
}

// IntOption builds an integer plugin option bound to dest
func IntOption(
	name string,
	description string,
	defaultValue int,
	dest *int,
) PluginOption {
	return PluginOption{
		Name:         name,
		Type:         PluginOptionTypeInt,
		Description:  description,
		DefaultValue: defaultValue,
		Dest:         dest,
	}
}

// UintOption builds an unsigned integer plugin option bound to dest
func UintOption(
	name string,
	description string,
	defaultValue uint64,
	dest *uint64,
) PluginOption {
	return PluginOption{
		Name:         name,
		Type:         PluginOptionTypeUint,
		Description:  description,
		DefaultValue: defaultValue,
		Dest:         dest,
	}
}

// WithEnv returns a copy of the option that also reads the named
// environment variable as a fallback to the generated one
func (o PluginOption) WithEnv(envVar string) PluginOption {
	o.CustomEnvVar = envVar
	return o
}

// PluginEntry describes a registered plugin
type PluginEntry struct {
	NewFromOptionsFunc func(*slog.Logger, prometheus.Registerer) Plugin
	Name               string
	Description        string
	Options            []PluginOption
	Type               PluginType
}

var pluginEntries []PluginEntry

// Register adds a plugin to the registry. It's normally called from an
// init() function in the plugin package.
func Register(entry PluginEntry) {
	pluginEntries = append(pluginEntries, entry)
}

// GetPlugin creates an instance of the named plugin of the given type. It
// returns nil if no matching plugin is registered.
func GetPlugin(
	pluginType PluginType,
	name string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) Plugin {
	for _, entry := range pluginEntries {
		if entry.Type != pluginType {
			continue
		}
		if entry.Name != name {
			continue
		}
		return entry.NewFromOptionsFunc(loggerOrDiscard(logger), promRegistry)
	}
	return nil
}

// GetPlugins returns the registry entries for the given plugin type
func GetPlugins(pluginType PluginType) []PluginEntry {
	ret := []PluginEntry{}
	for _, entry := range pluginEntries {
		if entry.Type != pluginType {
			continue
		}
		ret = append(ret, entry)
	}
	return ret
}

// PopulateCmdlineOptions adds a command line flag for every registered
// plugin option
func PopulateCmdlineOptions(flags *pflag.FlagSet) error {
	for _, entry := range pluginEntries {
		for _, opt := range entry.Options {
			flagName := opt.flagName(entry.Type, entry.Name)
			switch opt.Type {
			case PluginOptionTypeString:
				dest, ok := opt.Dest.(*string)
				if !ok {
					return fmt.Errorf(
						"invalid destination type for option %s: expected *string",
						opt.Name,
					)
				}
				defaultValue, ok := opt.DefaultValue.(string)
				if !ok {
					return fmt.Errorf(
						"invalid default value type for option %s: expected string",
						opt.Name,
					)
				}
				flags.StringVar(dest, flagName, defaultValue, opt.Description)
			case PluginOptionTypeBool:
				dest, ok := opt.Dest.(*bool)
				if !ok {
					return fmt.Errorf(
						"invalid destination type for option %s: expected *bool",
						opt.Name,
					)
				}
				defaultValue, ok := opt.DefaultValue.(bool)
				if !ok {
					return fmt.Errorf(
						"invalid default value type for option %s: expected bool",
						opt.Name,
					)
				}
				flags.BoolVar(dest, flagName, defaultValue, opt.Description)
			case PluginOptionTypeInt:
				dest, ok := opt.Dest.(*int)
				if !ok {
					return fmt.Errorf(
						"invalid destination type for option %s: expected *int",
						opt.Name,
					)
				}
				defaultValue, ok := opt.DefaultValue.(int)
				if !ok {
					return fmt.Errorf(
						"invalid default value type for option %s: expected int",
						opt.Name,
					)
				}
				flags.IntVar(dest, flagName, defaultValue, opt.Description)
			case PluginOptionTypeUint:
				dest, ok := opt.Dest.(*uint64)
				if !ok {
					return fmt.Errorf(
						"invalid destination type for option %s: expected *uint64",
						opt.Name,
					)
				}
				defaultValue, ok := opt.DefaultValue.(uint64)
				if !ok {
					return fmt.Errorf(
						"invalid default value type for option %s: expected uint64",
						opt.Name,
					)
				}
				flags.Uint64Var(dest, flagName, defaultValue, opt.Description)
			default:
				return fmt.Errorf(
					"unknown plugin option type %d for option %s",
					opt.Type,
					opt.Name,
				)
			}
		}
	}
	return nil
}

// ProcessEnvVars sets plugin options from matching environment variables
func ProcessEnvVars() error {
	for _, entry := range pluginEntries {
		for _, opt := range entry.Options {
			envVal, ok := os.LookupEnv(opt.envVarName(entry.Type, entry.Name))
			if !ok && opt.CustomEnvVar != "" {
				envVal, ok = os.LookupEnv(opt.CustomEnvVar)
			}
			if !ok {
				continue
			}
			switch opt.Type {
			case PluginOptionTypeString:
				if err := SetPluginOption(entry.Type, entry.Name, opt.Name, envVal); err != nil {
					return err
				}
			case PluginOptionTypeBool:
				boolVal, err := strconv.ParseBool(envVal)
				if err != nil {
					return fmt.Errorf(
						"invalid boolean value for option %s: %w",
						opt.Name,
						err,
					)
				}
				if err := SetPluginOption(entry.Type, entry.Name, opt.Name, boolVal); err != nil {
					return err
				}
			case PluginOptionTypeInt:
				intVal, err := strconv.Atoi(envVal)
				if err != nil {
					return fmt.Errorf(
						"invalid integer value for option %s: %w",
						opt.Name,
						err,
					)
				}
				if err := SetPluginOption(entry.Type, entry.Name, opt.Name, intVal); err != nil {
					return err
				}
			case PluginOptionTypeUint:
				uintVal, err := strconv.ParseUint(envVal, 10, 64)
				if err != nil {
					return fmt.Errorf(
						"invalid unsigned integer value for option %s: %w",
						opt.Name,
						err,
					)
				}
				if err := SetPluginOption(entry.Type, entry.Name, opt.Name, uintVal); err != nil {
					return err
				}
			default:
				return fmt.Errorf(
					"unknown plugin option type %d for option %s",
					opt.Type,
					opt.Name,
				)
			}
		}
	}
	return nil
}

// ProcessConfig sets plugin options from a parsed config file. The outer
// map is keyed on plugin type name, the middle map on plugin name, and the
// inner map on option name.
func ProcessConfig(
	pluginConfig map[string]map[string]map[string]any,
) error {
	for typeName, plugins := range pluginConfig {
		var pluginType PluginType
		switch typeName {
		case "blob":
			pluginType = PluginTypeBlob
		case "metadata":
			pluginType = PluginTypeMetadata
		default:
			return fmt.Errorf("unknown plugin type: %s", typeName)
		}
		for pluginName, options := range plugins {
			for optName, optVal := range options {
				// YAML integer values need conversion for uint options,
				// which SetPluginOption handles
				if err := SetPluginOption(pluginType, pluginName, optName, optVal); err != nil {
					return fmt.Errorf(
						"failed setting option %s for %s plugin '%s': %w",
						optName,
						typeName,
						pluginName,
						err,
					)
				}
			}
		}
	}
	return nil
}
