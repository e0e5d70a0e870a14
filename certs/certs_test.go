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

package certs

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
	testLab       = ledger.Principal("lab-1")
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
	testLab:       {ledger.RoleLab},
	testRegulator: {ledger.RoleRegulator},
}

// newTestLedger creates a certificate ledger backed by an in-memory database
func newTestLedger(t *testing.T) (*CertificateLedger, *database.Database) {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	c, err := NewCertificateLedger(CertificateLedgerConfig{
		Logger:       slog.New(slog.NewJSONHandler(io.Discard, nil)),
		EventBus:     event.NewEventBus(nil, nil),
		PromRegistry: prometheus.NewRegistry(),
		DB:           db,
		Authorizer:   testRoles,
	})
	require.NoError(t, err)
	return c, db
}

// testReportRef returns a non-zero report reference hash for testing
func testReportRef(t *testing.T, fill byte) ledger.Hash {
	t.Helper()
	data := make([]byte, ledger.HashSize)
	for i := range data {
		data[i] = fill
	}
	h, err := ledger.NewHash(data)
	require.NoError(t, err)
	return h
}

func TestIssueCertificate(t *testing.T) {
	c, db := newTestLedger(t)
	reportRef := testReportRef(t, 0xcd)
	certId, err := c.IssueCertificate(testLab, 5001, reportRef)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, certId, uint64(1))

	valid, err := c.VerifyCertificate(certId)
	require.NoError(t, err)
	assert.True(t, valid)

	// The issuance event is durable
	record, err := db.GetEvent(1, nil)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, string(CertificateIssuedEventType), record.Type)
	var evt CertificateIssuedEvent
	require.NoError(t, record.DecodePayload(&evt))
	assert.Equal(t, certId, evt.CertID)
	assert.Equal(t, uint64(5001), evt.BatchID)
	assert.Equal(t, testLab, evt.Lab)
	assert.Equal(t, reportRef, evt.ReportRef)
	assert.NotZero(t, evt.IssueDate)
}

func TestIssueCertificateValidation(t *testing.T) {
	c, db := newTestLedger(t)
	seqBefore := db.NextEventSeq()

	var zeroRef ledger.Hash
	_, err := c.IssueCertificate(testLab, 5001, zeroRef)
	require.ErrorIs(t, err, ledger.ErrInvalidArgument)

	_, err = c.IssueCertificate(testOutsider, 5001, testReportRef(t, 0x01))
	require.ErrorIs(t, err, ledger.ErrUnauthorized)
	_, err = c.IssueCertificate(testRegulator, 5001, testReportRef(t, 0x01))
	require.ErrorIs(t, err, ledger.ErrUnauthorized)

	// Failed issuances leave no trace in the event log
	assert.Equal(t, seqBefore, db.NextEventSeq())
}

func TestCertificateIdAssignment(t *testing.T) {
	c, _ := newTestLedger(t)
	first, err := c.IssueCertificate(testLab, 5001, testReportRef(t, 0x02))
	require.NoError(t, err)

	// A failed issuance does not consume an ID
	_, err = c.IssueCertificate(testOutsider, 5001, testReportRef(t, 0x03))
	require.ErrorIs(t, err, ledger.ErrUnauthorized)

	// IDs are assigned from one sequence shared across batches
	second, err := c.IssueCertificate(testLab, 9999, testReportRef(t, 0x04))
	require.NoError(t, err)
	assert.Equal(t, first+1, second)
}

func TestRevokeCertificate(t *testing.T) {
	c, db := newTestLedger(t)
	certId, err := c.IssueCertificate(testLab, 5001, testReportRef(t, 0x05))
	require.NoError(t, err)

	require.NoError(t, c.RevokeCertificate(testRegulator, certId, "contaminated"))
	valid, err := c.VerifyCertificate(certId)
	require.NoError(t, err)
	assert.False(t, valid)

	// Revocation is terminal
	err = c.RevokeCertificate(testRegulator, certId, "again")
	require.ErrorIs(t, err, ledger.ErrAlreadyRevoked)

	// The revocation event is durable
	record, err := db.GetEvent(2, nil)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, string(CertificateRevokedEventType), record.Type)
	var evt CertificateRevokedEvent
	require.NoError(t, record.DecodePayload(&evt))
	assert.Equal(t, certId, evt.CertID)
	assert.Equal(t, "contaminated", evt.Reason)
}

func TestRevokeCertificateErrors(t *testing.T) {
	c, db := newTestLedger(t)
	certId, err := c.IssueCertificate(testLab, 5001, testReportRef(t, 0x06))
	require.NoError(t, err)
	seqBefore := db.NextEventSeq()

	err = c.RevokeCertificate(testRegulator, certId+100, "whoops")
	require.ErrorIs(t, err, ledger.ErrNotFound)
	var notFoundErr *ledger.CertificateNotFoundError
	require.ErrorAs(t, err, &notFoundErr)
	assert.Equal(t, certId+100, notFoundErr.CertId())

	err = c.RevokeCertificate(testLab, certId, "not my call")
	require.ErrorIs(t, err, ledger.ErrUnauthorized)

	// The certificate is still valid and no events were appended
	valid, err := c.VerifyCertificate(certId)
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, seqBefore, db.NextEventSeq())
}

func TestVerifyCertificateUnknown(t *testing.T) {
	c, _ := newTestLedger(t)
	_, err := c.VerifyCertificate(404)
	require.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestGetLatestCertificate(t *testing.T) {
	c, _ := newTestLedger(t)
	_, err := c.GetLatestCertificate(5001)
	require.ErrorIs(t, err, ledger.ErrNoCertificates)

	first, err := c.IssueCertificate(testLab, 5001, testReportRef(t, 0x07))
	require.NoError(t, err)
	second, err := c.IssueCertificate(testLab, 5001, testReportRef(t, 0x08))
	require.NoError(t, err)
	// A certificate for another batch does not affect this batch's latest
	_, err = c.IssueCertificate(testLab, 9999, testReportRef(t, 0x09))
	require.NoError(t, err)

	latest, err := c.GetLatestCertificate(5001)
	require.NoError(t, err)
	assert.Equal(t, second, latest)
	assert.NotEqual(t, first, latest)
}

func TestCertificatesList(t *testing.T) {
	c, _ := newTestLedger(t)
	first, err := c.IssueCertificate(testLab, 5001, testReportRef(t, 0x0a))
	require.NoError(t, err)
	second, err := c.IssueCertificate(testLab, 5001, testReportRef(t, 0x0b))
	require.NoError(t, err)
	require.NoError(t, c.RevokeCertificate(testRegulator, first, "superseded"))

	certList, err := c.Certificates(5001)
	require.NoError(t, err)
	require.Len(t, certList, 2)
	assert.Equal(t, first, certList[0].CertID)
	assert.True(t, certList[0].Revoked)
	assert.Equal(t, "superseded", certList[0].RevokeReason)
	assert.Equal(t, second, certList[1].CertID)
	assert.False(t, certList[1].Revoked)
	assert.Equal(t, testReportRef(t, 0x0b), certList[1].ReportRef)
}
