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

// AddRoleGrant records a role held by a principal
func (d *Database) AddRoleGrant(grant models.RoleGrant, txn *Txn) error {
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer txn.Rollback() //nolint:errcheck
	}
	if err := d.metadata.AddRoleGrant(grant, txn.Metadata()); err != nil {
		return err
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// DeleteRoleGrant removes a role held by a principal
func (d *Database) DeleteRoleGrant(principal, role string, txn *Txn) error {
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer txn.Rollback() //nolint:errcheck
	}
	if err := d.metadata.DeleteRoleGrant(principal, role, txn.Metadata()); err != nil {
		return err
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// GetRoleGrants returns all currently held role grants
func (d *Database) GetRoleGrants(txn *Txn) ([]models.RoleGrant, error) {
	if txn == nil {
		return d.metadata.GetRoleGrants(nil)
	}
	return d.metadata.GetRoleGrants(txn.Metadata())
}
