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
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/blinklabs-io/civet/database/models"
	"github.com/blinklabs-io/civet/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// Store stores metadata in Postgres
type Store struct {
	promRegistry prometheus.Registerer
	db           *gorm.DB
	logger       *slog.Logger

	host     string
	port     uint
	user     string
	password string
	database string
	sslMode  string
	timeZone string
	dsn      string // Data source name (postgres connection string)
	maxConns int
}

// New creates a Postgres-backed metadata store from individual
// connection settings
func New(
	host string,
	port uint,
	user string,
	password string,
	database string,
	sslMode string,
	timeZone string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*Store, error) {
	return NewWithOptions(
		WithHost(host),
		WithPort(port),
		WithUser(user),
		WithPassword(password),
		WithDatabase(database),
		WithSSLMode(sslMode),
		WithTimeZone(timeZone),
		WithLogger(logger),
		WithPromRegistry(promRegistry),
	)
}

// NewWithOptions creates a Postgres-backed metadata store using options.
// The connection is not opened until Start
func NewWithOptions(
	opts ...OptionFunc,
) (*Store, error) {
	db := &Store{}
	for _, opt := range opts {
		opt(db)
	}

	// Fill in defaults for anything the options left unset. The default
	// database is "postgres" since that one always exists
	if db.host == "" {
		db.host = "localhost"
	}
	if db.port == 0 {
		db.port = 5432
	}
	if db.user == "" {
		db.user = "postgres"
	}
	if db.database == "" {
		db.database = "postgres"
	}
	if db.sslMode == "" {
		db.sslMode = "disable"
	}
	if db.timeZone == "" {
		db.timeZone = "UTC"
	}
	if db.maxConns <= 0 {
		db.maxConns = 100
	}
	if db.logger == nil {
		db.logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	return db, nil
}

// gormConfig returns the gorm settings shared by every connection this
// store opens
func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	}
}

// buildDSN assembles a keyword/value DSN from the individual connection
// settings
func (d *Store) buildDSN() string {
	parts := []string{
		"host=" + d.host,
		"port=" + strconv.FormatUint(uint64(d.port), 10),
		"user=" + d.user,
		"password=" + d.password,
		"dbname=" + d.database,
		"sslmode=" + d.sslMode,
	}
	if d.timeZone != "" {
		parts = append(parts, "TimeZone="+d.timeZone)
	}
	return strings.Join(parts, " ")
}

// Start implements the plugin.Plugin interface. It connects to Postgres
// and migrates the schema. Unlike the MySQL store there is no attempt to
// create a missing database, since that needs an existing database to
// connect through anyway
func (d *Store) Start() error {
	dsn := strings.TrimSpace(d.dsn)
	if dsn == "" {
		dsn = d.buildDSN()
	}

	metadataDb, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return err
	}
	d.logger.Info(
		"connected to postgres metadata store",
		"host", d.host,
		"port", d.port,
		"database", d.database,
	)
	d.db = metadataDb

	// Configure the connection pool
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(d.maxConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Configure tracing for GORM
	if err := d.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return err
	}

	return d.migrateSchema()
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

// Stop implements the plugin.Plugin interface
func (d *Store) Stop() error {
	return d.Close()
}

// Close closes the underlying database connection. It is safe to call
// when Start failed or was never called
func (d *Store) Close() error {
	if d.db == nil {
		return nil
	}
	db, err := d.DB().DB()
	if err != nil {
		return err
	}
	return db.Close()
}

// DB returns the database handle
func (d *Store) DB() *gorm.DB {
	return d.db
}

// Transaction begins a gorm transaction
func (d *Store) Transaction() types.Txn {
	db := d.DB().Begin()
	if db.Error != nil {
		d.logger.Error(
			"failed to begin transaction",
			"error", db.Error,
		)
		return newFailedPostgresTxn(db.Error)
	}
	return newPostgresTxn(db)
}
