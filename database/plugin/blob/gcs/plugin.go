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

package gcs

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/blinklabs-io/civet/database/plugin"
	"github.com/prometheus/client_golang/prometheus"
)

// cmdlineOptionValues holds the option values populated from flags,
// environment variables, and the config file. All values default to empty,
// bucket and credentials have no sensible defaults.
type cmdlineOptionValues struct {
	dataDir         string
	bucket          string
	credentialsFile string
}

var (
	cmdlineOptions      cmdlineOptionValues
	cmdlineOptionsMutex sync.RWMutex
)

// Register with the plugin registry
func init() {
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "gcs",
			Description:        "Google Cloud Storage blob store",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				plugin.StringOption(
					"data-dir",
					"GCS path (gcs://<bucket>) used when no bucket is set",
					"",
					&cmdlineOptions.dataDir,
				),
				plugin.StringOption(
					"bucket",
					"GCS bucket name",
					"",
					&cmdlineOptions.bucket,
				),
				plugin.StringOption(
					"credentials-file",
					"Service account credentials file",
					"",
					&cmdlineOptions.credentialsFile,
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

	// The bucket option takes precedence, but a gcs:// data dir works too
	if opts.bucket == "" {
		if after, ok := strings.CutPrefix(opts.dataDir, "gcs://"); ok {
			opts.bucket = after
		}
	}

	p, err := NewWithOptions(
		WithBucket(opts.bucket),
		WithCredentialsFile(opts.credentialsFile),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
	if err != nil {
		// Defer the error to Start()
		return plugin.NewErrorPlugin(err)
	}
	return p
}
