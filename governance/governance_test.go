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

package governance

import (
	"io"
	"log/slog"
	"testing"

	"github.com/blinklabs-io/civet/database"
	"github.com/blinklabs-io/civet/event"
	"github.com/blinklabs-io/civet/ledger"
	"github.com/blinklabs-io/civet/roles"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAdmin    = ledger.Principal("root")
	testLab      = ledger.Principal("lab-1")
	testOutsider = ledger.Principal("outsider")
)

// newTestFacade creates a governance facade wired to a real role store on an
// in-memory database
func newTestFacade(
	t *testing.T,
) (*GovernanceFacade, *roles.RoleStore, *database.Database) {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	testLogger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	eventBus := event.NewEventBus(nil, nil)
	roleStore, err := roles.NewRoleStore(roles.RoleStoreConfig{
		Logger:        testLogger,
		EventBus:      eventBus,
		PromRegistry:  prometheus.NewRegistry(),
		DB:            db,
		InitialAdmins: []ledger.Principal{testAdmin},
	})
	require.NoError(t, err)
	g, err := NewGovernanceFacade(GovernanceFacadeConfig{
		Logger:       testLogger,
		EventBus:     eventBus,
		PromRegistry: prometheus.NewRegistry(),
		DB:           db,
		Authorizer:   roleStore,
		Membership:   roleStore,
	})
	require.NoError(t, err)
	return g, roleStore, db
}

// testPolicyHash returns a non-zero policy hash for testing
func testPolicyHash(t *testing.T, fill byte) ledger.Hash {
	t.Helper()
	data := make([]byte, ledger.HashSize)
	for i := range data {
		data[i] = fill
	}
	h, err := ledger.NewHash(data)
	require.NoError(t, err)
	return h
}

func TestAddMember(t *testing.T) {
	g, roleStore, _ := newTestFacade(t)
	require.False(t, roleStore.Authorize(ledger.RoleLab, testLab))
	require.NoError(t, g.AddMember(testAdmin, testLab, ledger.RoleLab))
	assert.True(t, roleStore.Authorize(ledger.RoleLab, testLab))
}

func TestAddMemberRequiresAdmin(t *testing.T) {
	g, roleStore, _ := newTestFacade(t)
	err := g.AddMember(testOutsider, testLab, ledger.RoleLab)
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
	assert.False(t, roleStore.Authorize(ledger.RoleLab, testLab))
}

func TestRemoveMember(t *testing.T) {
	g, roleStore, _ := newTestFacade(t)
	require.NoError(t, g.AddMember(testAdmin, testLab, ledger.RoleLab))
	require.NoError(t, g.RemoveMember(testAdmin, testLab, ledger.RoleLab))
	assert.False(t, roleStore.Authorize(ledger.RoleLab, testLab))

	err := g.RemoveMember(testOutsider, testAdmin, ledger.RoleAdmin)
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
	assert.True(t, roleStore.Authorize(ledger.RoleAdmin, testAdmin))
}

func TestSetPolicy(t *testing.T) {
	g, _, db := newTestFacade(t)
	first := testPolicyHash(t, 0x11)
	seqBefore := db.NextEventSeq()
	require.NoError(t, g.SetPolicy(testAdmin, first))

	policy, err := g.GetPolicy()
	require.NoError(t, err)
	require.NotNil(t, policy)
	assert.Equal(t, first, policy.PolicyHash)
	assert.NotZero(t, policy.UpdatedAt)

	// Updates overwrite in place; the old hash survives only as an event
	second := testPolicyHash(t, 0x22)
	require.NoError(t, g.SetPolicy(testAdmin, second))
	policy, err = g.GetPolicy()
	require.NoError(t, err)
	require.NotNil(t, policy)
	assert.Equal(t, second, policy.PolicyHash)

	record, err := db.GetEvent(seqBefore, nil)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, string(PolicyUpdatedEventType), record.Type)
	var evt PolicyUpdatedEvent
	require.NoError(t, record.DecodePayload(&evt))
	assert.Equal(t, first, evt.PolicyHash)
}

func TestSetPolicyRequiresAdmin(t *testing.T) {
	g, _, db := newTestFacade(t)
	seqBefore := db.NextEventSeq()
	err := g.SetPolicy(testOutsider, testPolicyHash(t, 0x33))
	require.ErrorIs(t, err, ledger.ErrUnauthorized)

	policy, err := g.GetPolicy()
	require.NoError(t, err)
	assert.Nil(t, policy)
	assert.Equal(t, seqBefore, db.NextEventSeq())
}

// The policy pointer accepts any hash value, including all zeroes
func TestSetPolicyZeroHash(t *testing.T) {
	g, _, _ := newTestFacade(t)
	var zeroHash ledger.Hash
	require.NoError(t, g.SetPolicy(testAdmin, zeroHash))
	policy, err := g.GetPolicy()
	require.NoError(t, err)
	require.NotNil(t, policy)
	assert.True(t, policy.PolicyHash.IsZero())
}

func TestGetPolicyUnset(t *testing.T) {
	g, _, _ := newTestFacade(t)
	policy, err := g.GetPolicy()
	require.NoError(t, err)
	assert.Nil(t, policy)
}
