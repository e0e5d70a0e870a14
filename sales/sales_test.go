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

package sales

import (
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/blinklabs-io/civet/database"
	"github.com/blinklabs-io/civet/event"
	"github.com/blinklabs-io/civet/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRetailer  = ledger.Principal("shop-1")
	testRegulator = ledger.Principal("fda")
	testOutsider  = ledger.Principal("outsider")
)

// staticAuthorizer is a fixed role table for testing
type staticAuthorizer map[ledger.Principal][]ledger.Role

func (a staticAuthorizer) Authorize(
	role ledger.Role,
	principal ledger.Principal,
) bool {
	return slices.Contains(a[principal], role)
}

var testRoles = staticAuthorizer{
	testRetailer:  {ledger.RoleRetailer},
	testRegulator: {ledger.RoleRegulator},
}

// newTestLog creates a sale log backed by an in-memory database
func newTestLog(t *testing.T) (*SaleLog, *database.Database) {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	l, err := NewSaleLog(SaleLogConfig{
		Logger:       slog.New(slog.NewJSONHandler(io.Discard, nil)),
		EventBus:     event.NewEventBus(nil, nil),
		PromRegistry: prometheus.NewRegistry(),
		DB:           db,
		Authorizer:   testRoles,
	})
	require.NoError(t, err)
	return l, db
}

func TestRecordSale(t *testing.T) {
	l, db := newTestLog(t)
	require.NoError(t, l.RecordSale(testRetailer, 5001, "receipt 81"))

	records, err := l.Records(5001)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].Recall)
	assert.Equal(t, testRetailer, records[0].Principal)
	assert.Equal(t, "receipt 81", records[0].SaleMeta)
	assert.NotZero(t, records[0].Timestamp)

	// The sale event is durable
	record, err := db.GetEvent(1, nil)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, string(SaleRecordedEventType), record.Type)
	var evt SaleRecordedEvent
	require.NoError(t, record.DecodePayload(&evt))
	assert.Equal(t, uint64(5001), evt.BatchID)
	assert.Equal(t, testRetailer, evt.Retailer)
	assert.Equal(t, "receipt 81", evt.SaleMeta)
}

func TestRecordSaleRequiresRetailer(t *testing.T) {
	l, db := newTestLog(t)
	seqBefore := db.NextEventSeq()

	err := l.RecordSale(testRegulator, 5001, "receipt 82")
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
	err = l.RecordSale(testOutsider, 5001, "receipt 83")
	require.ErrorIs(t, err, ledger.ErrUnauthorized)

	records, err := l.Records(5001)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, seqBefore, db.NextEventSeq())
}

func TestFlagRecall(t *testing.T) {
	l, db := newTestLog(t)
	recalled, err := l.IsRecalled(5001)
	require.NoError(t, err)
	assert.False(t, recalled)

	require.NoError(t, l.FlagRecall(testRegulator, 5001, "contamination"))
	recalled, err = l.IsRecalled(5001)
	require.NoError(t, err)
	assert.True(t, recalled)

	records, err := l.Records(5001)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Recall)
	assert.Equal(t, testRegulator, records[0].Principal)
	assert.Equal(t, "contamination", records[0].Reason)

	// The recall event is durable
	record, err := db.GetEvent(1, nil)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, string(ProductRecalledEventType), record.Type)
	var evt ProductRecalledEvent
	require.NoError(t, record.DecodePayload(&evt))
	assert.Equal(t, uint64(5001), evt.BatchID)
	assert.Equal(t, "contamination", evt.Reason)
}

func TestFlagRecallRequiresRegulator(t *testing.T) {
	l, _ := newTestLog(t)
	err := l.FlagRecall(testRetailer, 5001, "nope")
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
	recalled, err := l.IsRecalled(5001)
	require.NoError(t, err)
	assert.False(t, recalled)
}

// Recalls may be flagged for batch IDs with no sale history, registered or
// otherwise
func TestFlagRecallNoLinkage(t *testing.T) {
	l, _ := newTestLog(t)
	require.NoError(t, l.FlagRecall(testRegulator, 424242, "late report"))
	recalled, err := l.IsRecalled(424242)
	require.NoError(t, err)
	assert.True(t, recalled)
}

func TestRecallsAccumulate(t *testing.T) {
	l, _ := newTestLog(t)
	require.NoError(t, l.RecordSale(testRetailer, 5001, "receipt 84"))
	require.NoError(t, l.FlagRecall(testRegulator, 5001, "first notice"))
	require.NoError(t, l.FlagRecall(testRegulator, 5001, "second notice"))

	records, err := l.Records(5001)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.False(t, records[0].Recall)
	assert.True(t, records[1].Recall)
	assert.Equal(t, "first notice", records[1].Reason)
	assert.True(t, records[2].Recall)
	assert.Equal(t, "second notice", records[2].Reason)

	recalled, err := l.IsRecalled(5001)
	require.NoError(t, err)
	assert.True(t, recalled)
}
