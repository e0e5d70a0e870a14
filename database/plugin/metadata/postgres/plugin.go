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

package postgres

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
	maxConns uint64
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
		maxConns: 100,
		host:     "localhost",
		port:     5432,
		user:     "postgres",
		database: "postgres",
		sslMode:  "disable",
		timeZone: "UTC",
	}
}

// Register with the plugin registry
func init() {
	initCmdlineOptions()
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "postgres",
			Description:        "Postgres relational database",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				plugin.StringOption(
					"data-dir",
					"data directory (unused for postgres)",
					"",
					&cmdlineOptions.dataDir,
				),
				plugin.UintOption(
					"max-connections",
					"Maximum number of open connections",
					100,
					&cmdlineOptions.maxConns,
				),
				plugin.StringOption(
					"host",
					"Postgres host",
					"localhost",
					&cmdlineOptions.host,
				),
				plugin.UintOption(
					"port",
					"Postgres port",
					5432,
					&cmdlineOptions.port,
				),
				plugin.StringOption(
					"user",
					"Postgres user",
					"postgres",
					&cmdlineOptions.user,
				),
				plugin.StringOption(
					"password",
					"Postgres password (required)",
					"",
					&cmdlineOptions.password,
				),
				plugin.StringOption(
					"database",
					"Postgres database name",
					"postgres",
					&cmdlineOptions.database,
				),
				plugin.StringOption(
					"ssl-mode",
					"Postgres sslmode",
					"disable",
					&cmdlineOptions.sslMode,
				),
				plugin.StringOption(
					"timezone",
					"Postgres TimeZone",
					"UTC",
					&cmdlineOptions.timeZone,
				),
				plugin.StringOption(
					"dsn",
					"Full Postgres DSN (overrides other options when set)",
					"",
					&cmdlineOptions.dsn,
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

	p, err := NewWithOptions(
		WithMaxConns(int(opts.maxConns)), // #nosec G115
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
