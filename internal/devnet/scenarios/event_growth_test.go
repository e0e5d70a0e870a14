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

	"github.com/blinklabs-io/civet/api"
	"github.com/blinklabs-io/civet/internal/devnet"
	"github.com/blinklabs-io/civet/registry"
	"github.com/stretchr/testify/require"
)

// TestEventLogGrowth verifies that a burst of write operations grows
// the event log by exactly one record per operation, with no gaps and
// no reordering between a registration and the mint that follows it.
//
// This test registers 25 batches and mints additional units for each,
// so the log should grow by 50 records over the burst.
func TestEventLogGrowth(t *testing.T) {
	roster, err := devnet.LoadRoster()
	require.NoError(t, err, "failed to load devnet roster from roster.yaml")
	require.NotEmpty(t, roster.Manufacturers, "roster names no manufacturers")
	require.NotEmpty(t, roster.Distributors, "roster names no distributors")

	h := devnet.NewTestHarness(t, devnet.WithAdmin(roster.Admin))
	h.SeedRoster(roster)

	manufacturer := roster.Manufacturers[0]
	distributor := roster.Distributors[0]

	// Record the starting point
	startSeq, err := h.LatestEventSeq()
	require.NoError(t, err, "failed to get start seq")
	t.Logf("start seq: %d", startSeq)

	// Burst of registrations and mints
	const batchCount = 25
	for i := range batchCount {
		batchId := uint64(1000 + i)
		status := h.Do(
			http.MethodPost,
			"/v0/batches",
			manufacturer,
			api.RegisterBatchRequest{
				BatchID:       batchId,
				ContentHash:   strings.Repeat("ab", 32),
				MetadataRef:   fmt.Sprintf("ipfs://devnet-batch-%d", batchId),
				InitialAmount: 100,
			},
			nil,
		)
		require.Equal(t, http.StatusCreated, status,
			"failed to register batch %d", batchId,
		)
		status = h.Do(
			http.MethodPost,
			fmt.Sprintf("/v0/batches/%d/mint", batchId),
			manufacturer,
			api.MintRequest{To: distributor, Amount: 50},
			nil,
		)
		require.Equal(t, http.StatusNoContent, status,
			"failed to mint for batch %d", batchId,
		)
	}

	// Record the ending point
	endSeq, err := h.LatestEventSeq()
	require.NoError(t, err, "failed to get end seq")
	t.Logf("end seq: %d", endSeq)

	eventsProduced := endSeq - startSeq
	t.Logf(
		"event log growth: %d records for %d operations",
		eventsProduced, 2*batchCount,
	)
	require.Equal(t, uint64(2*batchCount), eventsProduced,
		"each operation should append exactly one event",
	)

	// The burst window should alternate registration and mint records
	window := h.FetchEvents(startSeq+1, 2*batchCount)
	require.Len(t, window, 2*batchCount)
	for i, evt := range window {
		expectedType := registry.ProductRegisteredEventType
		if i%2 == 1 {
			expectedType = registry.ProductTransferredEventType
		}
		require.Equal(t, string(expectedType), evt.Type,
			"unexpected event type at seq %d", evt.Seq,
		)
	}

	// The full log should remain gap-free
	lastSeq := h.VerifyEventLogContinuity()
	require.Equal(t, endSeq, lastSeq)
}
