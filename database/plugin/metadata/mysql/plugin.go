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

package mysql

import (
	"log/slog"
	"sync"

	"github.com/blinklabs-io/civet/database/plugin"
	"github.com/prometheus/client_golang/prometheus"
)

// cmdlineOptionValues holds the option values populated from flags,
// environment variables, and the config file
type cmdlineOptionValues struct {
	dataDir  string
	maxConns int
	host     string
	port     uint64
	user     string
	password string
	database string
	sslMode  string
	timeZone string
	dsn      string
}

var (
	cmdlineOptions      cmdlineOptionValues
	cmdlineOptionsMutex sync.RWMutex
)

// initCmdlineOptions seeds cmdlineOptions with defaults.
// Note: password is intentionally empty - users must provide their own credentials.
func initCmdlineOptions() {
	cmdlineOptionsMutex.Lock()
	defer cmdlineOptionsMutex.Unlock()
	cmdlineOptions = cmdlineOptionValues{
		host:     "localhost",
		port:     3306,
		user:     "root",
		database: "civet",
		timeZone: "UTC",
	}
}

// Register with the plugin registry
func init() {
	initCmdlineOptions()
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "mysql",
			Description:        "MySQL relational database",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				plugin.StringOption(
					"data-dir",
					"Metadata data directory (unused for mysql)",
					"",
					&cmdlineOptions.dataDir,
				),
				plugin.IntOption(
					"max-connections",
					"Maximum number of open connections",
					0,
					&cmdlineOptions.maxConns,
				),
				plugin.UintOption(
					"port",
					"MySQL port",
					3306,
					&cmdlineOptions.port,
				).WithEnv("MYSQL_PORT"),
				plugin.StringOption(
					"host",
					"MySQL host",
					"localhost",
					&cmdlineOptions.host,
				).WithEnv("MYSQL_HOST"),
				plugin.StringOption(
					"user",
					"MySQL user",
					"root",
					&cmdlineOptions.user,
				).WithEnv("MYSQL_USER"),
				plugin.StringOption(
					"password",
					"MySQL password (required)",
					"",
					&cmdlineOptions.password,
				).WithEnv("MYSQL_PASSWORD"),
				plugin.StringOption(
					"database",
					"MySQL database name",
					"civet",
					&cmdlineOptions.database,
				).WithEnv("MYSQL_DATABASE"),
				plugin.StringOption(
					"ssl-mode",
					"MySQL TLS mode (mapped to tls= in DSN)",
					"",
					&cmdlineOptions.sslMode,
				).WithEnv("MYSQL_SSLMODE"),
				plugin.StringOption(
					"timezone",
					"MySQL time zone location",
					"UTC",
					&cmdlineOptions.timeZone,
				).WithEnv("MYSQL_TIMEZONE"),
				plugin.StringOption(
					"dsn",
					"Full MySQL DSN (overrides other options when set)",
					"",
					&cmdlineOptions.dsn,
				).WithEnv("MYSQL_DSN"),
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

	p, err := NewWithOptions(
		WithMaxConns(opts.maxConns),
		WithHost(opts.host),
		WithPort(uint(opts.port)),
		WithUser(opts.user),
		WithPassword(opts.password),
		WithDatabase(opts.database),
		WithSSLMode(opts.sslMode),
		WithTimeZone(opts.timeZone),
		WithDSN(opts.dsn),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
	if err != nil {
		// Defer the error to Start()
		return plugin.NewErrorPlugin(err)
	}
	return p
}
