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

// GetPolicy returns the current governance policy, or nil when none has
// been set
func (d *Database) GetPolicy(txn *Txn) (*models.Policy, error) {
	if txn == nil {
		return d.metadata.GetPolicy(nil)
	}
	return d.metadata.GetPolicy(txn.Metadata())
}

// SetPolicy overwrites the current governance policy
func (d *Database) SetPolicy(policy models.Policy, txn *Txn) error {
	owned := false
	if txn == nil {
		txn = d.Transaction(true)
		owned = true
		defer txn.Rollback() //nolint:errcheck
	}
	if err := d.metadata.SetPolicy(policy, txn.Metadata()); err != nil {
		return err
	}
	if owned {
		if err := txn.Commit(); err != nil {
			return err
		}
	}
	return nil
}
