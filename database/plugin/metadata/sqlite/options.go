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

package sqlite

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// OptionFunc configures a Store before it opens the
// underlying database
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

// WithDataDir sets the directory for on-disk storage. An empty value
// opens an in-memory store
func WithDataDir(dataDir string) OptionFunc {
	return func(m *Store) {
		m.dataDir = dataDir
	}
}
