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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blinklabs-io/civet/database/models"
	"github.com/blinklabs-io/civet/database/types"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// vacuumInterval is how often unused space is given back to the
// filesystem
const vacuumInterval = 24 * time.Hour

// Store is a SQLite-based implementation of the metadata store.
// It provides persistent storage for relational ledger state including role
// grants, batches, balances, certificates, and custody history.
type Store struct {
	promRegistry prometheus.Registerer
	db           *gorm.DB
	logger       *slog.Logger
	timerVacuum  *time.Timer
	timerMutex   sync.Mutex
	dataDir      string
	closed       bool
	vacuumWG     sync.WaitGroup
}

// New creates a SQLite metadata store. Uses in-memory database if dataDir is empty.
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*Store, error) {
	return NewWithOptions(
		WithDataDir(dataDir),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
}

// NewWithOptions creates a SQLite metadata store with options. Unlike the
// MySQL and Postgres stores the database is opened here rather than in
// Start. When the schema migration fails the store is returned along with
// the error so the caller can attempt recovery
func NewWithOptions(opts ...OptionFunc) (*Store, error) {
	db := &Store{}
	for _, opt := range opts {
		opt(db)
	}
	if db.logger == nil {
		// Default to a logger that throws away everything rather than
		// guarding every log call
		db.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	dsn, err := db.dsn()
	if err != nil {
		return nil, err
	}
	metadataDb, err := gorm.Open(
		sqlite.Open(dsn),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
		},
	)
	if err != nil {
		return nil, err
	}
	db.db = metadataDb

	// Configure tracing for GORM
	if err := db.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return db, err
	}
	db.scheduleDailyVacuum()

	return db, db.migrateSchema()
}

// dsn returns the sqlite connection string, creating the data directory
// for disk-backed stores when it does not exist yet
func (d *Store) dsn() (string, error) {
	if d.dataDir == "" {
		// In-memory database, useful for testing. cache=shared lets
		// every connection see the same database
		return "file::memory:?cache=shared", nil
	}
	if _, err := os.Stat(d.dataDir); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to read data dir: %w", err)
		}
		if err := os.MkdirAll(d.dataDir, fs.ModePerm); err != nil {
			return "", fmt.Errorf("failed to create data dir: %w", err)
		}
	}
	dbPath := filepath.Join(d.dataDir, "metadata.sqlite")
	// WAL journal mode, disable sync on write, increase cache size to 50MB (from 2MB)
	connOpts := "_pragma=journal_mode(WAL)&_pragma=sync(OFF)&_pragma=cache_size(-50000)"
	return fmt.Sprintf("file:%s?%s", dbPath, connOpts), nil
}

// migrateSchema creates or updates the table for every known model
func (d *Store) migrateSchema() error {
	tables := make([]any, 0, len(models.MigrateModels)+1)
	tables = append(tables, &CommitTimestamp{})
	tables = append(tables, models.MigrateModels...)
	for _, model := range tables {
		d.logger.Debug(fmt.Sprintf("creating table: %#v", model))
		if err := d.db.AutoMigrate(model); err != nil {
			return err
		}
	}
	return nil
}

func (d *Store) runVacuum() error {
	d.timerMutex.Lock()
	if d.dataDir == "" || d.closed {
		d.timerMutex.Unlock()
		return nil
	}
	// Track this vacuum operation while we know the store is open
	d.vacuumWG.Add(1)
	d.timerMutex.Unlock()
	defer d.vacuumWG.Done()

	if result := d.DB().Raw("VACUUM"); result.Error != nil {
		return result.Error
	}
	return nil
}

// scheduleDailyVacuum schedules a daily vacuum operation
func (d *Store) scheduleDailyVacuum() {
	d.timerMutex.Lock()
	defer d.timerMutex.Unlock()
	if d.closed {
		return
	}

	if d.timerVacuum != nil {
		d.timerVacuum.Stop()
	}
	d.timerVacuum = time.AfterFunc(vacuumInterval, func() {
		d.logger.Debug(
			"running vacuum on sqlite metadata database",
		)
		// schedule next run
		defer d.scheduleDailyVacuum()
		if err := d.runVacuum(); err != nil {
			d.logger.Error(
				"failed to free unused space in metadata store",
				"error", err,
				"component", "database",
			)
		}
	})
}

// Start implements the plugin.Plugin interface. The database is opened when
// the store is created, so there is nothing more to do here.
func (d *Store) Start() error {
	return nil
}

// Stop implements the plugin.Plugin interface
func (d *Store) Stop() error {
	return d.Close()
}

// Close shuts down the database connection and stops background processes.
func (d *Store) Close() error {
	d.timerMutex.Lock()
	d.closed = true
	if d.timerVacuum != nil {
		d.timerVacuum.Stop()
		d.timerVacuum = nil
	}
	d.timerMutex.Unlock()

	// Wait for any in-flight vacuum operations to complete
	d.vacuumWG.Wait()

	db, err := d.DB().DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return db.Close()
}

// DB returns the underlying GORM database handle.
func (d *Store) DB() *gorm.DB {
	return d.db
}

// Transaction creates a new database transaction
func (d *Store) Transaction() types.Txn {
	db := d.DB().Begin()
	if db.Error != nil {
		d.logger.Error(
			"failed to begin transaction",
			"error", db.Error,
		)
		return newFailedSqliteTxn(db.Error)
	}
	return newSqliteTxn(db)
}
