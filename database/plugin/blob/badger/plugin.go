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

package badger

import (
	"log/slog"
	"sync"

	"github.com/blinklabs-io/civet/database/plugin"
	"github.com/prometheus/client_golang/prometheus"
)

// Default tuning values for BadgerDB (in bytes)
const (
	DefaultBlockCacheSize   = 805306368  // 768MB
	DefaultIndexCacheSize   = 268435456  // 256MB
	DefaultValueLogFileSize = 1073741824 // 1GB
	DefaultMemTableSize     = 67108864   // 64MB
	DefaultValueThreshold   = 1048576    // 1MB
)

// cmdlineOptionValues holds the option values populated from flags,
// environment variables, and the config file
type cmdlineOptionValues struct {
	dataDir        string
	blockCacheSize uint64
	indexCacheSize uint64
	gcEnabled      bool
}

var (
	cmdlineOptions      cmdlineOptionValues
	cmdlineOptionsMutex sync.RWMutex
)

// initCmdlineOptions seeds cmdlineOptions with defaults
func initCmdlineOptions() {
	cmdlineOptionsMutex.Lock()
	defer cmdlineOptionsMutex.Unlock()
	cmdlineOptions = cmdlineOptionValues{
		dataDir:        ".civet",
		blockCacheSize: DefaultBlockCacheSize,
		indexCacheSize: DefaultIndexCacheSize,
		gcEnabled:      true,
	}
}

// Register with the plugin registry
func init() {
	initCmdlineOptions()
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "badger",
			Description:        "BadgerDB local key-value store",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				plugin.StringOption(
					"data-dir",
					"Data directory for badger storage",
					".civet",
					&cmdlineOptions.dataDir,
				),
				plugin.UintOption(
					"block-cache-size",
					"Badger block cache size",
					DefaultBlockCacheSize,
					&cmdlineOptions.blockCacheSize,
				),
				plugin.UintOption(
					"index-cache-size",
					"Badger index cache size",
					DefaultIndexCacheSize,
					&cmdlineOptions.indexCacheSize,
				),
				plugin.BoolOption(
					"gc",
					"Enable garbage collection",
					true,
					&cmdlineOptions.gcEnabled,
				),
			},
		},
	)
}

func NewFromCmdlineOptions(
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	opts := cmdlineOptions
	cmdlineOptionsMutex.RUnlock()

	p, err := New(
		WithDataDir(opts.dataDir),
		WithBlockCacheSize(opts.blockCacheSize),
		WithIndexCacheSize(opts.indexCacheSize),
		WithGc(opts.gcEnabled),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
	if err != nil {
		// Defer the error to Start()
		return plugin.NewErrorPlugin(err)
	}
	return p
}
