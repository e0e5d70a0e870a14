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

	"github.com/prometheus/client_golang/prometheus"
)

// OptionFunc configures a Store before it connects
type OptionFunc func(*Store)

// WithLogger sets the logger used for messages from the store
func WithLogger(logger *slog.Logger) OptionFunc {
	return func(m *Store) {
		m.logger = logger
	}
}

// WithPromRegistry sets the prometheus registry that store metrics are
// registered on
func WithPromRegistry(
	registry prometheus.Registerer,
) OptionFunc {
	return func(m *Store) {
		m.promRegistry = registry
	}
}

// WithMaxConns caps the number of open connections in the pool
func WithMaxConns(maxConns int) OptionFunc {
	return func(m *Store) {
		m.maxConns = maxConns
	}
}

// WithHost sets the MySQL host
func WithHost(host string) OptionFunc {
	return func(m *Store) {
		m.host = host
	}
}

// WithPort sets the MySQL port
func WithPort(port uint) OptionFunc {
	return func(m *Store) {
		m.port = port
	}
}

// WithUser sets the MySQL user
func WithUser(user string) OptionFunc {
	return func(m *Store) {
		m.user = user
	}
}

// WithPassword sets the MySQL password
func WithPassword(password string) OptionFunc {
	return func(m *Store) {
		m.password = password
	}
}

// WithDatabase sets the MySQL database name
func WithDatabase(database string) OptionFunc {
	return func(m *Store) {
		m.database = database
	}
}

// WithSSLMode sets the MySQL TLS option, mapped to tls= in the DSN
func WithSSLMode(sslMode string) OptionFunc {
	return func(m *Store) {
		m.sslMode = sslMode
	}
}

// WithTimeZone sets the MySQL time zone location
func WithTimeZone(timeZone string) OptionFunc {
	return func(m *Store) {
		m.timeZone = timeZone
	}
}

// WithDSN sets a full MySQL DSN, which takes precedence over the
// individual connection options
func WithDSN(dsn string) OptionFunc {
	return func(m *Store) {
		m.dsn = dsn
	}
}
