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

package sqlite_test

import (
	"testing"

	"github.com/blinklabs-io/civet/database/models"
	"github.com/blinklabs-io/civet/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/civet/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates an in-memory store that is torn down with the test
func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New("", nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

// bogusTxn implements types.Txn but is not a sqlite transaction
type bogusTxn struct{}

func (bogusTxn) Commit() error   { return nil }
func (bogusTxn) Rollback() error { return nil }

func TestRoleGrantRoundTrip(t *testing.T) {
	store := newTestStore(t)

	grant := models.RoleGrant{
		Principal: "0xmanufacturer",
		Role:      "MANUFACTURER",
	}
	require.NoError(t, store.AddRoleGrant(grant, nil))
	// Granting the same role again is a no-op
	require.NoError(t, store.AddRoleGrant(grant, nil))
	require.NoError(
		t,
		store.AddRoleGrant(
			models.RoleGrant{Principal: "0xlab", Role: "LAB"},
			nil,
		),
	)

	grants, err := store.GetRoleGrants(nil)
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.Equal(t, "0xmanufacturer", grants[0].Principal)
	assert.Equal(t, "MANUFACTURER", grants[0].Role)

	require.NoError(t, store.DeleteRoleGrant("0xmanufacturer", "MANUFACTURER", nil))
	// Deleting a grant that does not exist is a no-op
	require.NoError(t, store.DeleteRoleGrant("0xmanufacturer", "MANUFACTURER", nil))

	grants, err = store.GetRoleGrants(nil)
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, "0xlab", grants[0].Principal)
}

func TestBatchAndBalances(t *testing.T) {
	store := newTestStore(t)

	// Missing batch returns nil without error
	missing, err := store.GetBatch(5001, nil)
	require.NoError(t, err)
	assert.Nil(t, missing)

	batch := models.Batch{
		BatchID:      5001,
		ContentHash:  []byte{0xde, 0xad, 0xbe, 0xef},
		MetadataRef:  "ipfs://batch-5001",
		Manufacturer: "0xmanufacturer",
		TotalSupply:  types.Uint64(1000),
		RegisteredAt: 1700000000,
	}
	require.NoError(t, store.AddBatch(batch, nil))

	got, err := store.GetBatch(5001, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, batch.ContentHash, got.ContentHash)
	assert.Equal(t, types.Uint64(1000), got.TotalSupply)

	require.NoError(
		t,
		store.SetBatchTotalSupply(5001, types.Uint64(1500), nil),
	)
	got, err = store.GetBatch(5001, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, types.Uint64(1500), got.TotalSupply)

	// Missing balance returns nil without error
	balance, err := store.GetBalance(5001, "0xdistributor", nil)
	require.NoError(t, err)
	assert.Nil(t, balance)

	require.NoError(
		t,
		store.SetBalance(5001, "0xmanufacturer", types.Uint64(1000), nil),
	)
	require.NoError(
		t,
		store.SetBalance(5001, "0xdistributor", types.Uint64(500), nil),
	)
	// Overwrite an existing balance
	require.NoError(
		t,
		store.SetBalance(5001, "0xmanufacturer", types.Uint64(500), nil),
	)

	balance, err = store.GetBalance(5001, "0xmanufacturer", nil)
	require.NoError(t, err)
	require.NotNil(t, balance)
	assert.Equal(t, types.Uint64(500), balance.Amount)

	balances, err := store.GetBalancesByBatch(5001, nil)
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, "0xdistributor", balances[0].Holder)
	assert.Equal(t, "0xmanufacturer", balances[1].Holder)
}

func TestCertificateSequence(t *testing.T) {
	store := newTestStore(t)

	// Certificate IDs are assigned by the database starting at 1
	certA := &models.Certificate{
		BatchID:   5001,
		Lab:       "0xlab",
		ReportRef: []byte{0x01},
		IssueDate: 1700000100,
	}
	require.NoError(t, store.AddCertificate(certA, nil))
	assert.Equal(t, uint64(1), certA.ID)

	certB := &models.Certificate{
		BatchID:   5001,
		Lab:       "0xlab",
		ReportRef: []byte{0x02},
		IssueDate: 1700000200,
	}
	require.NoError(t, store.AddCertificate(certB, nil))
	assert.Equal(t, certA.ID+1, certB.ID)

	certC := &models.Certificate{
		BatchID:   7002,
		Lab:       "0xlab",
		ReportRef: []byte{0x03},
		IssueDate: 1700000300,
	}
	require.NoError(t, store.AddCertificate(certC, nil))
	assert.Equal(t, certB.ID+1, certC.ID)

	// Latest certificate tracks issuance order per batch
	latest, err := store.GetLatestCertificate(5001, nil)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, certB.ID, latest.ID)

	// No certificates for an unknown batch
	latest, err = store.GetLatestCertificate(9999, nil)
	require.NoError(t, err)
	assert.Nil(t, latest)

	certs, err := store.GetCertificatesByBatch(5001, nil)
	require.NoError(t, err)
	require.Len(t, certs, 2)
	assert.Equal(t, certA.ID, certs[0].ID)
	assert.Equal(t, certB.ID, certs[1].ID)

	// Revocation is recorded with its reason
	require.NoError(
		t,
		store.SetCertificateRevoked(certB.ID, "contamination", nil),
	)
	got, err := store.GetCertificate(certB.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Revoked)
	assert.Equal(t, "contamination", got.RevokeReason)

	// Revoked certificates still count as the latest issuance
	latest, err = store.GetLatestCertificate(5001, nil)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, certB.ID, latest.ID)

	// Missing certificate returns nil without error
	got, err = store.GetCertificate(9999, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCustodyRecords(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.AddCustodyRecord(models.CustodyRecord{
		BatchID:       5001,
		FromPrincipal: "0xmanufacturer",
		ToPrincipal:   "0xdistributor",
		Location:      "Warehouse A",
		Timestamp:     1700000400,
	}, nil))
	require.NoError(t, store.AddCustodyRecord(models.CustodyRecord{
		BatchID:     5001,
		ToPrincipal: "0xdistributor",
		Location:    "Approved",
		Timestamp:   1700000500,
	}, nil))

	records, err := store.GetCustodyRecordsByBatch(5001, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Warehouse A", records[0].Location)
	assert.Empty(t, records[1].FromPrincipal)
	assert.Equal(t, "Approved", records[1].Location)

	records, err = store.GetCustodyRecordsByBatch(9999, nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSaleAndRecallRecords(t *testing.T) {
	store := newTestStore(t)

	recalled, err := store.GetBatchRecalled(5001, nil)
	require.NoError(t, err)
	assert.False(t, recalled)

	require.NoError(t, store.AddSaleRecord(models.SaleRecord{
		BatchID:   5001,
		Kind:      models.SaleRecordKindSale,
		Principal: "0xretailer",
		SaleMeta:  "receipt-001",
		Timestamp: 1700000600,
	}, nil))

	recalled, err = store.GetBatchRecalled(5001, nil)
	require.NoError(t, err)
	assert.False(t, recalled)

	require.NoError(t, store.AddSaleRecord(models.SaleRecord{
		BatchID:   5001,
		Kind:      models.SaleRecordKindRecall,
		Principal: "0xregulator",
		Reason:    "contamination",
		Timestamp: 1700000700,
	}, nil))

	recalled, err = store.GetBatchRecalled(5001, nil)
	require.NoError(t, err)
	assert.True(t, recalled)

	records, err := store.GetSaleRecordsByBatch(5001, nil)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, models.SaleRecordKindSale, records[0].Kind)
	assert.True(t, records[1].IsRecall())
	assert.Equal(t, "contamination", records[1].Reason)
}

func TestPolicyOverwrite(t *testing.T) {
	store := newTestStore(t)

	policy, err := store.GetPolicy(nil)
	require.NoError(t, err)
	assert.Nil(t, policy)

	require.NoError(t, store.SetPolicy(models.Policy{
		PolicyHash: []byte{0x01, 0x02},
		UpdatedAt:  1700000800,
	}, nil))
	require.NoError(t, store.SetPolicy(models.Policy{
		PolicyHash: []byte{0x03, 0x04},
		UpdatedAt:  1700000900,
	}, nil))

	// Only the latest policy is kept
	policy, err = store.GetPolicy(nil)
	require.NoError(t, err)
	require.NotNil(t, policy)
	assert.Equal(t, []byte{0x03, 0x04}, policy.PolicyHash)
	assert.Equal(t, int64(1700000900), policy.UpdatedAt)
}

func TestCommitTimestamp(t *testing.T) {
	store := newTestStore(t)

	// Unset commit timestamp reads as zero
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(0), ts)

	require.NoError(t, store.SetCommitTimestamp(1700001000, nil))
	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1700001000), ts)

	// Setting again overwrites the single row
	require.NoError(t, store.SetCommitTimestamp(1700002000, nil))
	ts, err = store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(1700002000), ts)
}

func TestTransactionCommitAndRollback(t *testing.T) {
	store := newTestStore(t)

	batch := models.Batch{
		BatchID:      5001,
		ContentHash:  []byte{0x01},
		Manufacturer: "0xmanufacturer",
		TotalSupply:  types.Uint64(100),
		RegisteredAt: 1700000000,
	}

	// A rolled back transaction leaves no trace
	txn := store.Transaction()
	require.NoError(t, store.AddBatch(batch, txn))
	require.NoError(t, txn.Rollback())
	got, err := store.GetBatch(5001, nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	// A committed transaction persists
	txn = store.Transaction()
	require.NoError(t, store.AddBatch(batch, txn))
	require.NoError(t, txn.Commit())
	got, err = store.GetBatch(5001, nil)
	require.NoError(t, err)
	require.NotNil(t, got)

	// Commit after commit is a no-op
	require.NoError(t, txn.Commit())
}

func TestResolveWrongTxnType(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetBatch(5001, bogusTxn{})
	require.ErrorIs(t, err, types.ErrTxnWrongType)

	err = store.SetBalance(5001, "0xholder", types.Uint64(1), bogusTxn{})
	require.ErrorIs(t, err, types.ErrTxnWrongType)
}
