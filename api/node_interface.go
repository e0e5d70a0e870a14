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

package api

// ApiNode is the interface the API server uses to reach the ledger
// components. It decouples the HTTP handlers from the concrete node
// wiring and enables testing with mock implementations. Principals are
// plain strings and hashes are hex strings; the adapter converts.
type ApiNode interface {
	// RegisterBatch creates a batch and credits the initial amount to
	// the caller
	RegisterBatch(
		caller string,
		batchId uint64,
		contentHash string,
		metadataRef string,
		initialAmount uint64,
	) error

	// Batch returns a batch's identity and supply
	Batch(batchId uint64) (BatchInfo, error)

	// MintTo credits newly minted units to a recipient
	MintTo(caller string, batchId uint64, to string, amount uint64) error

	// Burn removes units from the caller's balance
	Burn(caller string, batchId uint64, amount uint64) error

	// Balances returns all holder balances for a batch
	Balances(batchId uint64) ([]BalanceInfo, error)

	// IssueCertificate records a certificate and returns its ID
	IssueCertificate(
		caller string,
		batchId uint64,
		reportRef string,
	) (uint64, error)

	// RevokeCertificate permanently revokes a certificate
	RevokeCertificate(caller string, certId uint64, reason string) error

	// VerifyCertificate reports whether a certificate is valid
	VerifyCertificate(certId uint64) (bool, error)

	// LatestCertificate returns the newest certificate ID for a batch
	LatestCertificate(batchId uint64) (uint64, error)

	// Certificates returns all certificates for a batch
	Certificates(batchId uint64) ([]CertificateInfo, error)

	// RecordTransfer appends a custody hand-off record
	RecordTransfer(
		caller string,
		batchId uint64,
		to string,
		location string,
	) error

	// ApproveTransfer appends a receipt approval record
	ApproveTransfer(caller string, batchId uint64) error

	// CustodyRecords returns the custody trail for a batch
	CustodyRecords(batchId uint64) ([]CustodyRecordInfo, error)

	// RecordSale appends a point-of-sale record
	RecordSale(caller string, batchId uint64, saleMeta string) error

	// FlagRecall appends a recall flag
	FlagRecall(caller string, batchId uint64, reason string) error

	// SaleRecords returns the sale and recall history for a batch
	SaleRecords(batchId uint64) ([]SaleRecordInfo, error)

	// BatchRecalled reports whether a recall has been flagged
	BatchRecalled(batchId uint64) (bool, error)

	// AddMember grants a role to a principal
	AddMember(caller string, principal string, role string) error

	// RemoveMember revokes a role from a principal
	RemoveMember(caller string, principal string, role string) error

	// SetPolicy overwrites the governance policy pointer
	SetPolicy(caller string, policyHash string) error

	// Policy returns the current policy pointer, or nil when unset
	Policy() (*PolicyInfo, error)

	// Events returns up to count event records starting at fromSeq
	Events(fromSeq uint64, count int) ([]EventInfo, error)
}

// BatchInfo holds batch data needed by the API.
type BatchInfo struct {
	BatchID      uint64
	ContentHash  string
	MetadataRef  string
	Manufacturer string
	TotalSupply  uint64
	RegisteredAt int64
}

// BalanceInfo holds balance data needed by the API.
type BalanceInfo struct {
	Holder string
	Amount uint64
}

// CertificateInfo holds certificate data needed by the API.
type CertificateInfo struct {
	CertID       uint64
	BatchID      uint64
	Lab          string
	ReportRef    string
	IssueDate    int64
	Revoked      bool
	RevokeReason string
}

// CustodyRecordInfo holds custody trail data needed by the API.
type CustodyRecordInfo struct {
	BatchID   uint64
	From      string
	To        string
	Location  string
	Timestamp int64
}

// SaleRecordInfo holds sale and recall data needed by the API.
type SaleRecordInfo struct {
	BatchID   uint64
	Recall    bool
	Principal string
	SaleMeta  string
	Reason    string
	Timestamp int64
}

// PolicyInfo holds policy pointer data needed by the API.
type PolicyInfo struct {
	PolicyHash string
	UpdatedAt  int64
}

// EventInfo holds event log data needed by the API.
type EventInfo struct {
	Seq       uint64
	Type      string
	Timestamp int64
	Payload   any
}
