//go:build devnet

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
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scenarios

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/civet/api"
	"github.com/blinklabs-io/civet/internal/devnet"
	"github.com/stretchr/testify/require"
)

// TestBatchLifecycle drives a batch through its full lifecycle over the
// REST API and verifies that the event log records every step.
//
// This test:
//  1. Starts a node and seeds the role roster from roster.yaml
//  2. Registers a batch and mints additional units to a distributor
//  3. Issues a lab certificate and verifies it
//  4. Records a custody hand-off and the receipt approval
//  5. Records a retail sale, then flags a recall
//  6. Updates the governance policy pointer
//  7. Verifies the event log is gap-free and has the expected length
func TestBatchLifecycle(t *testing.T) {
	roster, err := devnet.LoadRoster()
	require.NoError(t, err, "failed to load devnet roster from roster.yaml")
	require.NotEmpty(t, roster.Manufacturers, "roster names no manufacturers")
	require.NotEmpty(t, roster.Labs, "roster names no labs")
	require.NotEmpty(t, roster.Regulators, "roster names no regulators")
	require.NotEmpty(t, roster.Distributors, "roster names no distributors")
	require.NotEmpty(t, roster.Retailers, "roster names no retailers")
	t.Logf(
		"devnet roster: admin=%s grants=%d",
		roster.Admin, len(roster.Grants()),
	)

	h := devnet.NewTestHarness(t, devnet.WithAdmin(roster.Admin))

	// Step 1: Seed the role roster
	t.Log("seeding role roster...")
	h.SeedRoster(roster)

	manufacturer := roster.Manufacturers[0]
	lab := roster.Labs[0]
	regulator := roster.Regulators[0]
	distributor := roster.Distributors[0]
	retailer := roster.Retailers[0]

	// Step 2: Register a batch and mint additional units
	const batchId = uint64(5001)
	batchPath := fmt.Sprintf("/v0/batches/%d", batchId)
	contentHash := strings.Repeat("ab", 32)
	var batch api.BatchResponse
	status := h.Do(
		http.MethodPost,
		"/v0/batches",
		manufacturer,
		api.RegisterBatchRequest{
			BatchID:       batchId,
			ContentHash:   contentHash,
			MetadataRef:   "ipfs://devnet-batch-5001",
			InitialAmount: 1000,
		},
		&batch,
	)
	require.Equal(t, http.StatusCreated, status, "failed to register batch")
	require.Equal(t, contentHash, batch.ContentHash)
	require.Equal(t, manufacturer, batch.Manufacturer)
	require.Equal(t, uint64(1000), batch.TotalSupply)
	t.Logf("registered batch %d with supply %d", batchId, batch.TotalSupply)

	status = h.Do(
		http.MethodPost,
		batchPath+"/mint",
		manufacturer,
		api.MintRequest{To: distributor, Amount: 250},
		nil,
	)
	require.Equal(t, http.StatusNoContent, status, "failed to mint units")

	status = h.Get(batchPath, &batch)
	require.Equal(t, http.StatusOK, status, "failed to fetch batch")
	require.Equal(t, uint64(1250), batch.TotalSupply,
		"total supply should include minted units",
	)

	var balances []api.BalanceResponse
	status = h.Get(batchPath+"/balances", &balances)
	require.Equal(t, http.StatusOK, status, "failed to fetch balances")
	var balanceSum uint64
	for _, balance := range balances {
		balanceSum += balance.Amount
	}
	require.Equal(t, batch.TotalSupply, balanceSum,
		"holder balances should sum to the total supply",
	)

	// Step 3: Issue and verify a lab certificate
	var issued api.IssueCertificateResponse
	status = h.Do(
		http.MethodPost,
		"/v0/certificates",
		lab,
		api.IssueCertificateRequest{
			BatchID:   batchId,
			ReportRef: strings.Repeat("cd", 32),
		},
		&issued,
	)
	require.Equal(t, http.StatusCreated, status, "failed to issue certificate")
	require.Equal(t, uint64(1), issued.CertID)
	t.Logf("issued certificate %d for batch %d", issued.CertID, batchId)

	var verified api.VerifyCertificateResponse
	status = h.Get(
		fmt.Sprintf("/v0/certificates/%d", issued.CertID),
		&verified,
	)
	require.Equal(t, http.StatusOK, status, "failed to verify certificate")
	require.True(t, verified.Valid, "fresh certificate should be valid")

	// Step 4: Record a custody hand-off and the receipt approval
	status = h.Do(
		http.MethodPost,
		batchPath+"/custody/transfers",
		distributor,
		api.TransferRequest{To: retailer, Location: "warehouse 9"},
		nil,
	)
	require.Equal(t, http.StatusNoContent, status, "failed to record transfer")

	status = h.Do(
		http.MethodPost,
		batchPath+"/custody/approvals",
		retailer,
		nil,
		nil,
	)
	require.Equal(t, http.StatusNoContent, status, "failed to approve transfer")

	var custodyRecords []api.CustodyRecordResponse
	status = h.Get(batchPath+"/custody", &custodyRecords)
	require.Equal(t, http.StatusOK, status, "failed to fetch custody trail")
	require.Len(t, custodyRecords, 2)
	require.Equal(t, distributor, custodyRecords[0].From)
	require.Equal(t, retailer, custodyRecords[0].To)
	require.Equal(t, "warehouse 9", custodyRecords[0].Location)
	require.Empty(t, custodyRecords[1].From,
		"approval records carry no sender",
	)
	require.Equal(t, retailer, custodyRecords[1].To)

	// Step 5: Record a retail sale, then flag a recall
	status = h.Do(
		http.MethodPost,
		batchPath+"/sales",
		retailer,
		api.SaleRequest{SaleMeta: "receipt#123"},
		nil,
	)
	require.Equal(t, http.StatusNoContent, status, "failed to record sale")

	status = h.Do(
		http.MethodPost,
		batchPath+"/recall",
		regulator,
		api.RecallRequest{Reason: "contamination"},
		nil,
	)
	require.Equal(t, http.StatusNoContent, status, "failed to flag recall")

	var recallStatus api.RecallStatusResponse
	status = h.Get(batchPath+"/recall", &recallStatus)
	require.Equal(t, http.StatusOK, status, "failed to fetch recall status")
	require.True(t, recallStatus.Recalled, "batch should be recalled")

	var saleRecords []api.SaleRecordResponse
	status = h.Get(batchPath+"/sales", &saleRecords)
	require.Equal(t, http.StatusOK, status, "failed to fetch sale records")
	require.Len(t, saleRecords, 2)
	require.False(t, saleRecords[0].Recall)
	require.Equal(t, "receipt#123", saleRecords[0].SaleMeta)
	require.True(t, saleRecords[1].Recall)
	require.Equal(t, "contamination", saleRecords[1].Reason)

	// Step 6: Update the governance policy pointer
	policyHash := strings.Repeat("ef", 32)
	status = h.Do(
		http.MethodPut,
		"/v0/governance/policy",
		roster.Admin,
		api.PolicyRequest{PolicyHash: policyHash},
		nil,
	)
	require.Equal(t, http.StatusNoContent, status, "failed to set policy")

	var policy api.PolicyResponse
	status = h.Get("/v0/governance/policy", &policy)
	require.Equal(t, http.StatusOK, status, "failed to fetch policy")
	require.Equal(t, policyHash, policy.PolicyHash)

	// Step 7: Verify the event log is gap-free and complete. Startup
	// seeds one admin grant, SeedRoster adds one event per grant, and
	// the lifecycle above adds eight more.
	expectedSeq := uint64(1 + len(roster.Grants()) + 8)
	t.Log("verifying event log continuity...")
	h.WaitForEventSeq(expectedSeq, 10*time.Second)
	lastSeq := h.VerifyEventLogContinuity()
	require.Equal(t, expectedSeq, lastSeq, "unexpected event log length")
	t.Logf("event log complete at seq %d", lastSeq)
}

// TestUnauthorizedCallersRejected verifies that the API rejects callers
// without the required role and leaves no trace in the event log.
func TestUnauthorizedCallersRejected(t *testing.T) {
	roster, err := devnet.LoadRoster()
	require.NoError(t, err, "failed to load devnet roster from roster.yaml")
	require.NotEmpty(t, roster.Manufacturers, "roster names no manufacturers")

	h := devnet.NewTestHarness(t, devnet.WithAdmin(roster.Admin))
	h.SeedRoster(roster)

	seqBefore, err := h.LatestEventSeq()
	require.NoError(t, err, "failed to read event log tip")

	// A principal with no roles cannot register a batch
	status := h.Do(
		http.MethodPost,
		"/v0/batches",
		"stranger",
		api.RegisterBatchRequest{
			BatchID:       7001,
			ContentHash:   strings.Repeat("ab", 32),
			MetadataRef:   "ipfs://devnet-batch-7001",
			InitialAmount: 10,
		},
		nil,
	)
	require.Equal(t, http.StatusForbidden, status,
		"unauthorized registration should be rejected",
	)

	// A request without a caller header is rejected outright
	status = h.Do(
		http.MethodPost,
		"/v0/batches",
		"",
		api.RegisterBatchRequest{
			BatchID:       7002,
			ContentHash:   strings.Repeat("ab", 32),
			MetadataRef:   "ipfs://devnet-batch-7002",
			InitialAmount: 10,
		},
		nil,
	)
	require.Equal(t, http.StatusUnauthorized, status,
		"anonymous registration should be rejected",
	)

	// Rejected requests leave no trace in the event log
	seqAfter, err := h.LatestEventSeq()
	require.NoError(t, err, "failed to read event log tip")
	require.Equal(t, seqBefore, seqAfter,
		"rejected requests should not append events",
	)

	// The same registration from a manufacturer succeeds
	status = h.Do(
		http.MethodPost,
		"/v0/batches",
		roster.Manufacturers[0],
		api.RegisterBatchRequest{
			BatchID:       7001,
			ContentHash:   strings.Repeat("ab", 32),
			MetadataRef:   "ipfs://devnet-batch-7001",
			InitialAmount: 10,
		},
		nil,
	)
	require.Equal(t, http.StatusCreated, status,
		"manufacturer registration should succeed",
	)
}
