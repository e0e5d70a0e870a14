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
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/blinklabs-io/civet/database/models"
	"github.com/blinklabs-io/civet/database/types"
	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// Store stores metadata in MySQL
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
	dsn      string // Data source name (MySQL connection string)
	maxConns int
}

// New creates a MySQL-backed metadata store from individual connection
// settings
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

// NewWithOptions creates a MySQL-backed metadata store using options.
// The connection is not opened until Start
func NewWithOptions(opts ...OptionFunc) (*Store, error) {
	db := &Store{}
	for _, opt := range opts {
		opt(db)
	}

	// Fill in defaults for anything the options left unset
	if db.host == "" {
		db.host = "localhost"
	}
	if db.port == 0 {
		db.port = 3306
	}
	if db.user == "" {
		db.user = "root"
	}
	if db.database == "" {
		db.database = "civet"
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

// buildDSN assembles a DSN from the individual connection settings
func (d *Store) buildDSN() string {
	params := map[string]string{}
	loc := time.UTC
	if d.timeZone != "" {
		if tzLoc, err := time.LoadLocation(d.timeZone); err == nil {
			loc = tzLoc
		}
		params["loc"] = d.timeZone
	}
	if d.sslMode != "" {
		params["tls"] = d.sslMode
	}
	cfg := mysql.Config{
		User:   d.user,
		Passwd: d.password,
		Net:    "tcp",
		Addr: net.JoinHostPort(
			d.host,
			strconv.FormatUint(uint64(d.port), 10),
		),
		DBName:               d.database,
		Loc:                  loc,
		Params:               params,
		ParseTime:            true,
		AllowNativePasswords: true,
	}
	return cfg.FormatDSN()
}

// Start implements the plugin.Plugin interface. It connects to MySQL,
// creating the database on first use when missing, and migrates the
// schema
func (d *Store) Start() error {
	dsn := strings.TrimSpace(d.dsn)
	logDatabase := d.database
	if dsn == "" {
		dsn = d.buildDSN()
	} else if parsedDB, ok := parseMysqlDatabaseFromDSN(dsn); ok {
		logDatabase = parsedDB
	}

	metadataDb, err := gorm.Open(gormmysql.Open(dsn), gormConfig())
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if !errors.As(err, &mysqlErr) || mysqlErr.Number != 1049 {
			return err
		}
		// Error 1049 is "unknown database"; create it and retry once
		created, createErr := d.ensureDatabaseExists(dsn, logDatabase)
		if createErr != nil || !created {
			return err
		}
		metadataDb, err = gorm.Open(gormmysql.Open(dsn), gormConfig())
		if err != nil {
			return err
		}
	}
	d.logger.Info(
		"connected to mysql metadata store",
		"host", d.host,
		"port", d.port,
		"database", logDatabase,
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

// ensureDatabaseExists connects without a database name and issues a
// CREATE DATABASE IF NOT EXISTS for dbName. It reports whether the
// database can now be expected to exist
func (d *Store) ensureDatabaseExists(
	dsn string,
	dbName string,
) (bool, error) {
	if dbName == "" {
		return false, nil
	}
	adminDsn, ok := stripDatabaseFromDSN(dsn)
	if !ok {
		return false, nil
	}
	adminDb, err := gorm.Open(gormmysql.Open(adminDsn), gormConfig())
	if err != nil {
		return false, err
	}
	sqlAdminDb, err := adminDb.DB()
	if err != nil {
		return false, err
	}
	defer sqlAdminDb.Close()
	d.logger.Info("creating missing database", "database", dbName)
	result := adminDb.Exec(
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", dbName),
	)
	if result.Error != nil {
		return false, result.Error
	}
	return true, nil
}

// parseMysqlDatabaseFromDSN extracts the database name from a DSN
func parseMysqlDatabaseFromDSN(dsn string) (string, bool) {
	base, _, _ := strings.Cut(dsn, "?")
	slash := strings.LastIndex(base, "/")
	if slash < 0 || slash == len(base)-1 {
		return "", false
	}
	return base[slash+1:], true
}

// stripDatabaseFromDSN removes the database name from a DSN while
// keeping any query parameters
func stripDatabaseFromDSN(dsn string) (string, bool) {
	base, params, hasParams := strings.Cut(dsn, "?")
	slash := strings.LastIndex(base, "/")
	if slash < 0 {
		return "", false
	}
	base = base[:slash+1]
	if hasParams {
		base += "?" + params
	}
	return base, true
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
		return newFailedMysqlTxn(db.Error)
	}
	return newMysqlTxn(db)
}
