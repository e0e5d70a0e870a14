// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND,
// either express or implied. See the License for the specific language
// governing permissions and limitations under the License.

package sqlite

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/civet/database/models"
	"github.com/blinklabs-io/civet/database/types"
	"gorm.io/gorm"
)

// AddCertificate records a newly issued certificate. The certificate ID is
// assigned by the database and written back to the passed record.
func (d *Store) AddCertificate(
	cert *models.Certificate,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(cert); result.Error != nil {
		return fmt.Errorf(
			"create certificate for batch %d: %w",
			cert.BatchID,
			result.Error,
		)
	}
	return nil
}

// GetCertificate returns the certificate with the given ID, or nil when no
// certificate with that ID has been issued
func (d *Store) GetCertificate(
	certId uint64,
	txn types.Txn,
) (*models.Certificate, error) {
	ret := &models.Certificate{}
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	result := db.First(ret, "id = ?", certId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// SetCertificateRevoked marks a certificate as revoked with the given reason.
// Revocation is one-way, so the revoked flag is never cleared.
func (d *Store) SetCertificateRevoked(
	certId uint64,
	reason string,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Model(&models.Certificate{}).
		Where("id = ?", certId).
		Updates(map[string]any{
			"revoked":       true,
			"revoke_reason": reason,
		})
	if result.Error != nil {
		return fmt.Errorf(
			"revoke certificate %d: %w",
			certId,
			result.Error,
		)
	}
	return nil
}

// GetCertificatesByBatch returns all certificates issued against a batch in
// issuance order
func (d *Store) GetCertificatesByBatch(
	batchId uint64,
	txn types.Txn,
) ([]models.Certificate, error) {
	var ret []models.Certificate
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	result := db.Where("batch_id = ?", batchId).
		Order("id ASC").
		Find(&ret)
	if result.Error != nil {
		return nil, fmt.Errorf(
			"get certificates for batch %d: %w",
			batchId,
			result.Error,
		)
	}
	return ret, nil
}

// GetLatestCertificate returns the most recently issued certificate for a
// batch, or nil when none has been issued. Revoked certificates are included.
func (d *Store) GetLatestCertificate(
	batchId uint64,
	txn types.Txn,
) (*models.Certificate, error) {
	var certs []models.Certificate
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	result := db.Where("batch_id = ?", batchId).
		Order("id DESC").
		Limit(1).
		Find(&certs)
	if result.Error != nil {
		return nil, fmt.Errorf(
			"get latest certificate for batch %d: %w",
			batchId,
			result.Error,
		)
	}
	if len(certs) == 0 {
		return nil, nil
	}
	return &certs[0], nil
}
