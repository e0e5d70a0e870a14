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
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OptionFunc configures a Store before it opens
// the underlying database
type OptionFunc func(*Store)

// WithLogger sets the logger used for messages from badger and the store
func WithLogger(logger *slog.Logger) OptionFunc {
	return func(b *Store) {
		b.logger = logger
	}
}

// WithPromRegistry sets the prometheus registry that store metrics are
// registered on
func WithPromRegistry(
	registry prometheus.Registerer,
) OptionFunc {
	return func(b *Store) {
		b.promRegistry = registry
	}
}

// WithDataDir sets the directory for on-disk storage. An empty value
// opens an in-memory store
func WithDataDir(dataDir string) OptionFunc {
	return func(b *Store) {
		b.dataDir = dataDir
	}
}

// WithGc enables or disables periodic value log garbage collection
func WithGc(enabled bool) OptionFunc {
	return func(b *Store) {
		b.gcEnabled = enabled
	}
}

// WithGcInterval sets how often value log garbage collection runs when
// it is enabled
func WithGcInterval(interval time.Duration) OptionFunc {
	return func(b *Store) {
		b.gcInterval = interval
	}
}

// The remaining options map directly onto the corresponding badger
// tuning knobs and only apply to disk-backed stores.

// WithBlockCacheSize sets the badger block cache size in bytes
func WithBlockCacheSize(size uint64) OptionFunc {
	return func(b *Store) {
		b.blockCacheSize = size
	}
}

// WithIndexCacheSize sets the badger index cache size in bytes
func WithIndexCacheSize(size uint64) OptionFunc {
	return func(b *Store) {
		b.indexCacheSize = size
	}
}

// WithValueLogFileSize sets the maximum size of a single value log file
func WithValueLogFileSize(size int64) OptionFunc {
	return func(b *Store) {
		b.valueLogFileSize = size
	}
}

// WithMemTableSize sets the memtable size in bytes
func WithMemTableSize(size int64) OptionFunc {
	return func(b *Store) {
		b.memTableSize = size
	}
}

// WithValueThreshold sets the size above which values are kept in the
// value log instead of the LSM tree
func WithValueThreshold(threshold int64) OptionFunc {
	return func(b *Store) {
		b.valueThreshold = threshold
	}
}
