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

package metadata

import (
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/civet/database/models"
	"github.com/blinklabs-io/civet/database/plugin"
	_ "github.com/blinklabs-io/civet/database/plugin/metadata/mysql"
	_ "github.com/blinklabs-io/civet/database/plugin/metadata/postgres"
	_ "github.com/blinklabs-io/civet/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/civet/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// MetadataStore is the interface for all metadata storage implementations.
// Write methods accept an optional transaction. When the transaction is nil,
// the operation runs directly against the underlying database. Lookup methods
// for a single row return a nil pointer (and no error) when no row matches.
type MetadataStore interface {
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
	Transaction() types.Txn

	// Role grants
	AddRoleGrant(models.RoleGrant, types.Txn) error
	DeleteRoleGrant(string, string, types.Txn) error
	GetRoleGrants(types.Txn) ([]models.RoleGrant, error)

	// Batches and balances
	AddBatch(models.Batch, types.Txn) error
	GetBatch(uint64, types.Txn) (*models.Batch, error)
	SetBatchTotalSupply(uint64, types.Uint64, types.Txn) error
	GetBalance(uint64, string, types.Txn) (*models.Balance, error)
	SetBalance(uint64, string, types.Uint64, types.Txn) error
	GetBalancesByBatch(uint64, types.Txn) ([]models.Balance, error)

	// Certificates
	AddCertificate(*models.Certificate, types.Txn) error
	GetCertificate(uint64, types.Txn) (*models.Certificate, error)
	SetCertificateRevoked(uint64, string, types.Txn) error
	GetCertificatesByBatch(uint64, types.Txn) ([]models.Certificate, error)
	GetLatestCertificate(uint64, types.Txn) (*models.Certificate, error)

	// Custody records
	AddCustodyRecord(models.CustodyRecord, types.Txn) error
	GetCustodyRecordsByBatch(uint64, types.Txn) ([]models.CustodyRecord, error)

	// Sale and recall records
	AddSaleRecord(models.SaleRecord, types.Txn) error
	GetSaleRecordsByBatch(uint64, types.Txn) ([]models.SaleRecord, error)
	GetBatchRecalled(uint64, types.Txn) (bool, error)

	// Governance policy
	GetPolicy(types.Txn) (*models.Policy, error)
	SetPolicy(models.Policy, types.Txn) error
}

// New returns the started metadata plugin selected by name
func New(
	pluginName, dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (MetadataStore, error) {
	// An empty data directory is meaningful to some plugins (in-memory
	// sqlite), so it gets passed through unconditionally
	if err := plugin.SetPluginOption(
		plugin.PluginTypeMetadata,
		pluginName,
		"data-dir",
		dataDir,
	); err != nil {
		return nil, err
	}
	// Get and start the plugin
	p, err := plugin.StartPlugin(
		plugin.PluginTypeMetadata,
		pluginName,
		logger,
		promRegistry,
	)
	if err != nil {
		return nil, err
	}

	// Type assert to MetadataStore interface
	metadataStore, ok := p.(MetadataStore)
	if !ok {
		return nil, fmt.Errorf(
			"plugin '%s' does not implement MetadataStore interface",
			pluginName,
		)
	}

	return metadataStore, nil
}
