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
	"github.com/blinklabs-io/civet/database/models"
)

// AddCertificate records a newly issued certificate. The certificate ID is
// assigned by the metadata store and written back to the passed record.
func (d *Database) AddCertificate(cert *models.Certificate, txn *Txn) error {
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer txn.Rollback() //nolint:errcheck
	}
	if err := d.metadata.AddCertificate(cert, txn.Metadata()); err != nil {
		return err
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// GetCertificate returns the certificate with the given ID, or nil when no
// certificate with that ID has been issued
func (d *Database) GetCertificate(
	certId uint64,
	txn *Txn,
) (*models.Certificate, error) {
	if txn == nil {
		return d.metadata.GetCertificate(certId, nil)
	}
	return d.metadata.GetCertificate(certId, txn.Metadata())
}

// SetCertificateRevoked marks a certificate as revoked with the given
// reason. Revocation is one-way, so the revoked flag is never cleared.
func (d *Database) SetCertificateRevoked(
	certId uint64,
	reason string,
	txn *Txn,
) error {
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer txn.Rollback() //nolint:errcheck
	}
	if err := d.metadata.SetCertificateRevoked(certId, reason, txn.Metadata()); err != nil {
		return err
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// GetCertificatesByBatch returns all certificates issued against a batch in
// issuance order
func (d *Database) GetCertificatesByBatch(
	batchId uint64,
	txn *Txn,
) ([]models.Certificate, error) {
	if txn == nil {
		return d.metadata.GetCertificatesByBatch(batchId, nil)
	}
	return d.metadata.GetCertificatesByBatch(batchId, txn.Metadata())
}

// GetLatestCertificate returns the most recently issued certificate for a
// batch, or nil when none has been issued
func (d *Database) GetLatestCertificate(
	batchId uint64,
	txn *Txn,
) (*models.Certificate, error) {
	if txn == nil {
		return d.metadata.GetLatestCertificate(batchId, nil)
	}
	return d.metadata.GetLatestCertificate(batchId, txn.Metadata())
}
