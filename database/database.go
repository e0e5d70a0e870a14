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

package database

import (
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/civet/database/plugin"
	"github.com/blinklabs-io/civet/database/plugin/blob"
	"github.com/blinklabs-io/civet/database/plugin/metadata"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultBlobPlugin     = "badger"
	DefaultMetadataPlugin = "sqlite"
)

// Config holds the database configuration. An empty DataDir selects
// in-memory storage for plugins that support it.
type Config struct {
	DataDir        string
	Logger         *slog.Logger
	BlobPlugin     string
	MetadataPlugin string
	PromRegistry   prometheus.Registerer
	MaxConnections int
}

// Database combines a metadata store for relational ledger state with a
// blob store for the append-only event log. Writes that touch both go
// through a Txn so the two stores stay consistent.
type Database struct {
	logger       *slog.Logger
	blob         blob.BlobStore
	metadata     metadata.MetadataStore
	dataDir      string
	eventSeqLock sync.Mutex
	nextEventSeq uint64
}

// Blob returns the underlying blob store instance
func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// BlobTransaction starts a new blob-only transaction. This is used for
// event log reads that never touch the metadata store.
func (d *Database) BlobTransaction(readWrite bool) *Txn {
	return NewBlobOnlyTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	// Close metadata
	metadataErr := d.Metadata().Close()
	err = errors.Join(err, metadataErr)
	// Close blob
	blobErr := d.Blob().Close()
	err = errors.Join(err, blobErr)
	return err
}

func (d *Database) init() error {
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	// Check commit timestamp
	if err := d.checkCommitTimestamp(); err != nil {
		return err
	}
	// Determine the next event log sequence number
	if err := d.recoverEventSeq(); err != nil {
		return err
	}
	return nil
}

// New creates a new database instance with optional persistence using the
// provided data directory
func New(config *Config) (*Database, error) {
	if config == nil {
		config = &Config{}
	}
	metadataPluginName := config.MetadataPlugin
	if metadataPluginName == "" {
		metadataPluginName = DefaultMetadataPlugin
	}
	blobPluginName := config.BlobPlugin
	if blobPluginName == "" {
		blobPluginName = DefaultBlobPlugin
	}
	// Pass the connection limit through to plugins that pool connections.
	// Plugins without the option ignore it.
	if config.MaxConnections > 0 {
		if err := plugin.SetPluginOption(
			plugin.PluginTypeMetadata,
			metadataPluginName,
			"max-connections",
			config.MaxConnections,
		); err != nil {
			return nil, err
		}
	}
	metadataDb, err := metadata.New(
		metadataPluginName,
		config.DataDir,
		config.Logger,
		config.PromRegistry,
	)
	if err != nil {
		return nil, err
	}
	blobDb, err := blob.New(
		blobPluginName,
		config.DataDir,
		config.Logger,
		config.PromRegistry,
	)
	if err != nil {
		// Don't leak the already-opened metadata store
		metadataDb.Close() //nolint:errcheck
		return nil, err
	}
	db := &Database{
		logger:   config.Logger,
		blob:     blobDb,
		metadata: metadataDb,
		dataDir:  config.DataDir,
	}
	if err := db.init(); err != nil {
		// Database is available for recovery, so return it with error
		return db, err
	}
	return db, nil
}
