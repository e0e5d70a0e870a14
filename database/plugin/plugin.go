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

	"github.com/prometheus/client_golang/prometheus"
)

type Plugin interface {
	Start() error
	Stop() error
}

// ErrorPlugin holds a construction error and surfaces it from Start().
// Plugin constructors return one when they cannot build a real plugin,
// so the failure reaches the caller that starts the plugin
type ErrorPlugin struct {
	Err error
}

func (e *ErrorPlugin) Start() error {
	return e.Err
}

func (e *ErrorPlugin) Stop() error {
	return nil
}

// NewErrorPlugin wraps err in an ErrorPlugin
func NewErrorPlugin(err error) Plugin {
	return &ErrorPlugin{Err: err}
}

// StartPlugin instantiates the named plugin from the registry and
// starts it
func StartPlugin(
	pluginType PluginType,
	pluginName string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (Plugin, error) {
	p := GetPlugin(pluginType, pluginName, logger, promRegistry)
	if p == nil {
		return nil, fmt.Errorf(
			"%s plugin '%s' not found",
			PluginTypeName(pluginType),
			pluginName,
		)
	}

	if err := p.Start(); err != nil {
		return nil, fmt.Errorf(
			"failed to start %s plugin '%s': %w",
			PluginTypeName(pluginType),
			pluginName,
			err,
		)
	}

	return p, nil
}

// setOptionValue writes value through the option's Dest pointer after
// checking that the destination really is a *T
func setOptionValue[T any](opt PluginOption, optionName string, value T) error {
	if opt.Dest == nil {
		return fmt.Errorf(
			"nil destination for option %s",
			optionName,
		)
	}
	dest, ok := opt.Dest.(*T)
	if !ok {
		return fmt.Errorf(
			"invalid destination type for option %s: expected %T",
			optionName,
			(*T)(nil),
		)
	}
	if dest == nil {
		return fmt.Errorf(
			"nil destination pointer for option %s",
			optionName,
		)
	}
	*dest = value
	return nil
}

// SetPluginOption overrides the default value of a named plugin option,
// such as setting data-dir before starting a plugin. Unknown options are
// ignored so callers can set options that only some implementations have.
// There is no locking against the plugin's own cmdlineOptions access, so
// this must be called before any plugin is instantiated
func SetPluginOption(
	pluginType PluginType,
	pluginName string,
	optionName string,
	value any,
) error {
	for i := range pluginEntries {
		p := &pluginEntries[i]
		if p.Type != pluginType || p.Name != pluginName {
			continue
		}
		for _, opt := range p.Options {
			if opt.Name != optionName {
				continue
			}
			switch opt.Type {
			case PluginOptionTypeString:
				v, ok := value.(string)
				if !ok {
					return fmt.Errorf(
						"invalid type for option %s: expected string",
						optionName,
					)
				}
				return setOptionValue(opt, optionName, v)
			case PluginOptionTypeBool:
				v, ok := value.(bool)
				if !ok {
					return fmt.Errorf(
						"invalid type for option %s: expected bool",
						optionName,
					)
				}
				return setOptionValue(opt, optionName, v)
			case PluginOptionTypeInt:
				v, ok := value.(int)
				if !ok {
					return fmt.Errorf(
						"invalid type for option %s: expected int",
						optionName,
					)
				}
				return setOptionValue(opt, optionName, v)
			case PluginOptionTypeUint:
				switch tv := value.(type) {
				case uint64:
					return setOptionValue(opt, optionName, tv)
				case int:
					if tv < 0 {
						return fmt.Errorf(
							"invalid value for option %s: negative int",
							optionName,
						)
					}
					return setOptionValue(opt, optionName, uint64(tv))
				default:
					return fmt.Errorf(
						"invalid type for option %s: expected uint64 or int",
						optionName,
					)
				}
			default:
				return fmt.Errorf(
					"unknown plugin option type %d for option %s",
					opt.Type,
					optionName,
				)
			}
		}
		// Unknown option for this plugin, not an error
		return nil
	}
	return fmt.Errorf(
		"plugin %s of type %s not found",
		pluginName,
		PluginTypeName(pluginType),
	)
}
