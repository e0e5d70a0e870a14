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

package aws

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/blinklabs-io/civet/database/plugin"
	"github.com/prometheus/client_golang/prometheus"
)

// cmdlineOptionValues holds the option values populated from flags,
// environment variables, and the config file
type cmdlineOptionValues struct {
	dataDir  string
	endpoint string
	bucket   string
	region   string
	prefix   string
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
			Name:               "s3",
			Description:        "AWS S3 blob store",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				plugin.StringOption(
					"data-dir",
					"S3 path (s3://<bucket>[/prefix]) used when no bucket is set",
					"",
					&cmdlineOptions.dataDir,
				),
				plugin.StringOption(
					"endpoint",
					"S3 endpoint",
					"",
					&cmdlineOptions.endpoint,
				),
				plugin.StringOption(
					"bucket",
					"S3 bucket name",
					"",
					&cmdlineOptions.bucket,
				),
				plugin.StringOption(
					"region",
					"AWS region",
					"",
					&cmdlineOptions.region,
				),
				plugin.StringOption(
					"prefix",
					"S3 object key prefix",
					"",
					&cmdlineOptions.prefix,
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

	// The bucket option takes precedence, but an s3:// data dir works too
	if opts.bucket == "" && strings.HasPrefix(opts.dataDir, "s3://") {
		parsedBucket, parsedPrefix, err := parseS3Path(opts.dataDir)
		if err != nil {
			return plugin.NewErrorPlugin(err)
		}
		opts.bucket = parsedBucket
		opts.prefix = parsedPrefix
	}

	p, err := NewWithOptions(
		WithEndpoint(opts.endpoint),
		WithBucket(opts.bucket),
		WithRegion(opts.region),
		WithPrefix(opts.prefix),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
	if err != nil {
		// Defer the error to Start()
		return plugin.NewErrorPlugin(err)
	}
	return p
}
