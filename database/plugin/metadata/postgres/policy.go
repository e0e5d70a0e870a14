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

package postgres

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/civet/database/models"
	"github.com/blinklabs-io/civet/database/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetPolicy returns the current governance policy, or nil when no policy has
// been set
func (d *Store) GetPolicy(
	txn types.Txn,
) (*models.Policy, error) {
	ret := &models.Policy{}
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	result := db.First(ret, "id = ?", models.PolicyRowID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// SetPolicy overwrites the governance policy. Only the latest policy is kept,
// since the event log carries the history of updates.
func (d *Store) SetPolicy(
	policy models.Policy,
	txn types.Txn,
) error {
	policy.ID = models.PolicyRowID
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(
			[]string{"policy_hash", "updated_at"},
		),
	}).Create(&policy)
	if result.Error != nil {
		return fmt.Errorf("set policy: %w", result.Error)
	}
	return nil
}
