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

package integration_test

import (
	"errors"
	"testing"

	"github.com/blinklabs-io/civet/certs"
	"github.com/blinklabs-io/civet/custody"
	"github.com/blinklabs-io/civet/database"
	"github.com/blinklabs-io/civet/event"
	"github.com/blinklabs-io/civet/governance"
	"github.com/blinklabs-io/civet/ledger"
	"github.com/blinklabs-io/civet/registry"
	"github.com/blinklabs-io/civet/roles"
	"github.com/blinklabs-io/civet/sales"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	admin        = ledger.Principal("root")
	manufacturer = ledger.Principal("acme")
	lab          = ledger.Principal("lab-1")
	regulator    = ledger.Principal("reg-1")
	distributor  = ledger.Principal("dist-1")
	retailer     = ledger.Principal("shop-1")
	outsider     = ledger.Principal("outsider")
)

// ledgerStack wires every component against a single database and event
// bus, the way the node assembles them
type ledgerStack struct {
	db         *database.Database
	roles      *roles.RoleStore
	registry   *registry.BatchRegistry
	certs      *certs.CertificateLedger
	custody    *custody.CustodyLog
	sales      *sales.SaleLog
	governance *governance.GovernanceFacade
}

func newLedgerStack(t *testing.T, dataDir string) *ledgerStack {
	t.Helper()
	db, err := database.New(&database.Config{DataDir: dataDir})
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() {
		db.Close() //nolint:errcheck
	})
	eventBus := event.NewEventBus(nil, nil)
	t.Cleanup(eventBus.Stop)
	promRegistry := prometheus.NewRegistry()
	roleStore, err := roles.NewRoleStore(roles.RoleStoreConfig{
		PromRegistry:  promRegistry,
		EventBus:      eventBus,
		DB:            db,
		InitialAdmins: []ledger.Principal{admin},
	})
	if err != nil {
		t.Fatalf("failed to create role store: %v", err)
	}
	batchRegistry, err := registry.NewBatchRegistry(registry.BatchRegistryConfig{
		PromRegistry: promRegistry,
		EventBus:     eventBus,
		DB:           db,
		Authorizer:   roleStore,
	})
	if err != nil {
		t.Fatalf("failed to create batch registry: %v", err)
	}
	certLedger, err := certs.NewCertificateLedger(certs.CertificateLedgerConfig{
		PromRegistry: promRegistry,
		EventBus:     eventBus,
		DB:           db,
		Authorizer:   roleStore,
	})
	if err != nil {
		t.Fatalf("failed to create certificate ledger: %v", err)
	}
	custodyLog, err := custody.NewCustodyLog(custody.CustodyLogConfig{
		PromRegistry: promRegistry,
		EventBus:     eventBus,
		DB:           db,
		Authorizer:   roleStore,
	})
	if err != nil {
		t.Fatalf("failed to create custody log: %v", err)
	}
	saleLog, err := sales.NewSaleLog(sales.SaleLogConfig{
		PromRegistry: promRegistry,
		EventBus:     eventBus,
		DB:           db,
		Authorizer:   roleStore,
	})
	if err != nil {
		t.Fatalf("failed to create sale log: %v", err)
	}
	governanceFacade, err := governance.NewGovernanceFacade(
		governance.GovernanceFacadeConfig{
			PromRegistry: promRegistry,
			EventBus:     eventBus,
			DB:           db,
			Authorizer:   roleStore,
			Membership:   roleStore,
		},
	)
	if err != nil {
		t.Fatalf("failed to create governance facade: %v", err)
	}
	return &ledgerStack{
		db:         db,
		roles:      roleStore,
		registry:   batchRegistry,
		certs:      certLedger,
		custody:    custodyLog,
		sales:      saleLog,
		governance: governanceFacade,
	}
}

// grantRoles assigns the standard supply chain roles used by the tests
func grantRoles(t *testing.T, s *ledgerStack) {
	t.Helper()
	grants := []struct {
		principal ledger.Principal
		role      ledger.Role
	}{
		{manufacturer, ledger.RoleManufacturer},
		{lab, ledger.RoleLab},
		{regulator, ledger.RoleRegulator},
		{distributor, ledger.RoleDistributor},
		{retailer, ledger.RoleRetailer},
	}
	for _, grant := range grants {
		if err := s.governance.AddMember(
			admin,
			grant.principal,
			grant.role,
		); err != nil {
			t.Fatalf(
				"failed to grant %s to %s: %v",
				grant.role,
				grant.principal,
				err,
			)
		}
	}
}

func testHash(t *testing.T, fill byte) ledger.Hash {
	t.Helper()
	data := make([]byte, ledger.HashSize)
	for i := range data {
		data[i] = fill
	}
	h, err := ledger.NewHash(data)
	if err != nil {
		t.Fatalf("failed to create hash: %v", err)
	}
	return h
}

func TestLedgerLifecycleEndToEnd(t *testing.T) {
	s := newLedgerStack(t, "")
	grantRoles(t, s)

	batchId := uint64(5001)
	contentHash := testHash(t, 0xab)
	reportHash := testHash(t, 0xcd)
	policyHash := testHash(t, 0xef)

	// Register a batch and mint additional units to the distributor
	if err := s.registry.RegisterBatch(
		manufacturer, batchId, contentHash, "ipfs://batch-5001", 1000,
	); err != nil {
		t.Fatalf("failed to register batch: %v", err)
	}
	if err := s.registry.MintTo(
		manufacturer, batchId, distributor, 250,
	); err != nil {
		t.Fatalf("failed to mint: %v", err)
	}
	if err := s.registry.Burn(manufacturer, batchId, 100); err != nil {
		t.Fatalf("failed to burn: %v", err)
	}

	// Total supply must equal the sum of all balances
	batch, err := s.registry.GetBatch(batchId)
	if err != nil {
		t.Fatalf("failed to get batch: %v", err)
	}
	if batch.TotalSupply != 1150 {
		t.Errorf("expected total supply 1150, got %d", batch.TotalSupply)
	}
	balances, err := s.registry.Balances(batchId)
	if err != nil {
		t.Fatalf("failed to get balances: %v", err)
	}
	var balanceSum uint64
	for _, balance := range balances {
		balanceSum += balance.Amount
	}
	if balanceSum != batch.TotalSupply {
		t.Errorf(
			"balance sum %d does not match total supply %d",
			balanceSum,
			batch.TotalSupply,
		)
	}

	// Issue, revoke, and reissue a certificate. IDs are never reused.
	certId, err := s.certs.IssueCertificate(lab, batchId, reportHash)
	if err != nil {
		t.Fatalf("failed to issue certificate: %v", err)
	}
	if certId != 1 {
		t.Errorf("expected first certificate ID 1, got %d", certId)
	}
	valid, err := s.certs.VerifyCertificate(certId)
	if err != nil {
		t.Fatalf("failed to verify certificate: %v", err)
	}
	if !valid {
		t.Error("expected freshly issued certificate to be valid")
	}
	if err := s.certs.RevokeCertificate(
		regulator, certId, "failed retest",
	); err != nil {
		t.Fatalf("failed to revoke certificate: %v", err)
	}
	valid, err = s.certs.VerifyCertificate(certId)
	if err != nil {
		t.Fatalf("failed to verify revoked certificate: %v", err)
	}
	if valid {
		t.Error("expected revoked certificate to be invalid")
	}
	// Revocation is terminal
	err = s.certs.RevokeCertificate(regulator, certId, "again")
	if !errors.Is(err, ledger.ErrAlreadyRevoked) {
		t.Errorf("expected ErrAlreadyRevoked, got: %v", err)
	}
	secondCertId, err := s.certs.IssueCertificate(lab, batchId, reportHash)
	if err != nil {
		t.Fatalf("failed to issue second certificate: %v", err)
	}
	if secondCertId != certId+1 {
		t.Errorf(
			"expected second certificate ID %d, got %d",
			certId+1,
			secondCertId,
		)
	}

	// Custody hand-off with acknowledgement
	if err := s.custody.RecordTransfer(
		distributor, batchId, retailer, "warehouse 9",
	); err != nil {
		t.Fatalf("failed to record transfer: %v", err)
	}
	if err := s.custody.ApproveTransfer(retailer, batchId); err != nil {
		t.Fatalf("failed to approve transfer: %v", err)
	}
	custodyRecords, err := s.custody.Records(batchId)
	if err != nil {
		t.Fatalf("failed to get custody records: %v", err)
	}
	if len(custodyRecords) != 2 {
		t.Fatalf("expected 2 custody records, got %d", len(custodyRecords))
	}
	if custodyRecords[0].From != distributor ||
		custodyRecords[0].To != retailer {
		t.Errorf("unexpected transfer record: %+v", custodyRecords[0])
	}
	if !custodyRecords[1].From.IsNone() ||
		custodyRecords[1].To != retailer {
		t.Errorf("unexpected approval record: %+v", custodyRecords[1])
	}

	// Point of sale and recall
	if err := s.sales.RecordSale(
		retailer, batchId, "receipt#123",
	); err != nil {
		t.Fatalf("failed to record sale: %v", err)
	}
	if err := s.sales.FlagRecall(
		regulator, batchId, "contamination",
	); err != nil {
		t.Fatalf("failed to flag recall: %v", err)
	}
	recalled, err := s.sales.IsRecalled(batchId)
	if err != nil {
		t.Fatalf("failed to check recall status: %v", err)
	}
	if !recalled {
		t.Error("expected batch to be recalled")
	}

	// Policy pointer update
	if err := s.governance.SetPolicy(admin, policyHash); err != nil {
		t.Fatalf("failed to set policy: %v", err)
	}
	policy, err := s.governance.GetPolicy()
	if err != nil {
		t.Fatalf("failed to get policy: %v", err)
	}
	if policy == nil {
		t.Fatal("expected policy to be set")
	}
	if policy.PolicyHash != policyHash {
		t.Errorf(
			"policy hash mismatch: got %s, want %s",
			policy.PolicyHash,
			policyHash,
		)
	}

	// Every mutation above appended exactly one event record, in call order
	expectedTypes := []string{
		string(roles.MemberAddedEventType), // seeded admin
		string(roles.MemberAddedEventType), // manufacturer
		string(roles.MemberAddedEventType), // lab
		string(roles.MemberAddedEventType), // regulator
		string(roles.MemberAddedEventType), // distributor
		string(roles.MemberAddedEventType), // retailer
		string(registry.ProductRegisteredEventType),
		string(registry.ProductTransferredEventType),
		string(registry.ProductBurnedEventType),
		string(certs.CertificateIssuedEventType),
		string(certs.CertificateRevokedEventType),
		string(certs.CertificateIssuedEventType),
		string(custody.TransferRecordedEventType),
		string(custody.TransferRecordedEventType),
		string(sales.SaleRecordedEventType),
		string(sales.ProductRecalledEventType),
		string(governance.PolicyUpdatedEventType),
	}
	iter := s.db.EventsFrom(1)
	defer iter.Close()
	var gotTypes []string
	var lastSeq uint64
	for {
		record, err := iter.Next()
		if err != nil {
			t.Fatalf("failed to iterate event log: %v", err)
		}
		if record == nil {
			break
		}
		if record.Seq <= lastSeq {
			t.Errorf(
				"event sequence not strictly increasing: %d after %d",
				record.Seq,
				lastSeq,
			)
		}
		lastSeq = record.Seq
		gotTypes = append(gotTypes, record.Type)
	}
	if len(gotTypes) != len(expectedTypes) {
		t.Fatalf(
			"expected %d event records, got %d: %v",
			len(expectedTypes),
			len(gotTypes),
			gotTypes,
		)
	}
	for i, expected := range expectedTypes {
		if gotTypes[i] != expected {
			t.Errorf(
				"event %d type mismatch: got %s, want %s",
				i+1,
				gotTypes[i],
				expected,
			)
		}
	}
}

func TestUnauthorizedOperationsLeaveNoTrace(t *testing.T) {
	s := newLedgerStack(t, "")
	grantRoles(t, s)

	contentHash := testHash(t, 0x11)
	reportHash := testHash(t, 0x22)
	if err := s.registry.RegisterBatch(
		manufacturer, 7001, contentHash, "ipfs://batch-7001", 500,
	); err != nil {
		t.Fatalf("failed to register batch: %v", err)
	}
	seqBefore := s.db.NextEventSeq()

	// Unauthorized callers are rejected before any state is touched
	if err := s.registry.RegisterBatch(
		outsider, 7002, contentHash, "ipfs://batch-7002", 100,
	); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for register, got: %v", err)
	}
	if _, err := s.certs.IssueCertificate(
		outsider, 7001, reportHash,
	); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for issue, got: %v", err)
	}
	if err := s.sales.FlagRecall(
		retailer, 7001, "not my call",
	); !errors.Is(err, ledger.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for recall, got: %v", err)
	}

	// No event was appended and no certificate ID was consumed
	if seqAfter := s.db.NextEventSeq(); seqAfter != seqBefore {
		t.Errorf(
			"event sequence moved from %d to %d on failed operations",
			seqBefore,
			seqAfter,
		)
	}
	certId, err := s.certs.IssueCertificate(lab, 7001, reportHash)
	if err != nil {
		t.Fatalf("failed to issue certificate: %v", err)
	}
	if certId != 1 {
		t.Errorf(
			"expected certificate ID 1 after failed attempts, got %d",
			certId,
		)
	}
}

func TestStatePersistsAcrossReopen(t *testing.T) {
	dataDir := t.TempDir()

	// First run: register state and shut down cleanly
	func() {
		s := newLedgerStack(t, dataDir)
		grantRoles(t, s)
		contentHash := testHash(t, 0x33)
		if err := s.registry.RegisterBatch(
			manufacturer, 9001, contentHash, "ipfs://batch-9001", 300,
		); err != nil {
			t.Fatalf("failed to register batch: %v", err)
		}
		if _, err := s.certs.IssueCertificate(
			lab, 9001, testHash(t, 0x44),
		); err != nil {
			t.Fatalf("failed to issue certificate: %v", err)
		}
		if err := s.db.Close(); err != nil {
			t.Fatalf("failed to close database: %v", err)
		}
	}()

	// Second run: the role grants, batch, and event log must all survive
	s := newLedgerStack(t, dataDir)
	if !s.roles.Authorize(ledger.RoleManufacturer, manufacturer) {
		t.Error("expected manufacturer grant to survive reopen")
	}
	batch, err := s.registry.GetBatch(9001)
	if err != nil {
		t.Fatalf("failed to get batch after reopen: %v", err)
	}
	if batch.TotalSupply != 300 {
		t.Errorf("expected total supply 300, got %d", batch.TotalSupply)
	}
	valid, err := s.certs.VerifyCertificate(1)
	if err != nil {
		t.Fatalf("failed to verify certificate after reopen: %v", err)
	}
	if !valid {
		t.Error("expected certificate to remain valid after reopen")
	}

	// Sequence allocation resumes after the last durable record: admin seed,
	// five grants, registration, issuance
	if next := s.db.NextEventSeq(); next != 9 {
		t.Errorf("expected next event sequence 9, got %d", next)
	}

	// New writes continue the log without reusing sequence numbers
	certId, err := s.certs.IssueCertificate(lab, 9001, testHash(t, 0x55))
	if err != nil {
		t.Fatalf("failed to issue certificate after reopen: %v", err)
	}
	if certId != 2 {
		t.Errorf("expected certificate ID 2 after reopen, got %d", certId)
	}
	record, err := s.db.GetEvent(9, nil)
	if err != nil {
		t.Fatalf("failed to read event 9: %v", err)
	}
	if record == nil {
		t.Fatal("expected event 9 to exist")
	}
	if record.Type != string(certs.CertificateIssuedEventType) {
		t.Errorf("unexpected event 9 type: %s", record.Type)
	}
}
