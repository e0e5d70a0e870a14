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

// RootResponse is returned by GET /.
type RootResponse struct {
	URL     string `json:"url"`
	Version string `json:"version"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	StatusCode int    `json:"status_code"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

// RegisterBatchRequest is the body for POST /v0/batches.
type RegisterBatchRequest struct {
	BatchID       uint64 `json:"batch_id"`
	ContentHash   string `json:"content_hash"`
	MetadataRef   string `json:"metadata_ref"`
	InitialAmount uint64 `json:"initial_amount"`
}

// BatchResponse represents a registered batch.
type BatchResponse struct {
	BatchID      uint64 `json:"batch_id"`
	ContentHash  string `json:"content_hash"`
	MetadataRef  string `json:"metadata_ref"`
	Manufacturer string `json:"manufacturer"`
	TotalSupply  uint64 `json:"total_supply"`
	RegisteredAt int64  `json:"registered_at"`
}

// MintRequest is the body for POST /v0/batches/{batchId}/mint.
type MintRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

// BurnRequest is the body for POST /v0/batches/{batchId}/burn.
type BurnRequest struct {
	Amount uint64 `json:"amount"`
}

// BalanceResponse represents a holder's balance for a batch.
type BalanceResponse struct {
	Holder string `json:"holder"`
	Amount uint64 `json:"amount"`
}

// IssueCertificateRequest is the body for POST /v0/certificates.
type IssueCertificateRequest struct {
	BatchID   uint64 `json:"batch_id"`
	ReportRef string `json:"report_ref"`
}

// IssueCertificateResponse is returned by POST /v0/certificates.
type IssueCertificateResponse struct {
	CertID uint64 `json:"cert_id"`
}

// RevokeCertificateRequest is the body for
// POST /v0/certificates/{certId}/revoke.
type RevokeCertificateRequest struct {
	Reason string `json:"reason"`
}

// CertificateResponse represents an issued certificate.
type CertificateResponse struct {
	CertID       uint64 `json:"cert_id"`
	BatchID      uint64 `json:"batch_id"`
	Lab          string `json:"lab"`
	ReportRef    string `json:"report_ref"`
	IssueDate    int64  `json:"issue_date"`
	Revoked      bool   `json:"revoked"`
	RevokeReason string `json:"revoke_reason,omitempty"`
}

// VerifyCertificateResponse is returned by GET /v0/certificates/{certId}.
type VerifyCertificateResponse struct {
	CertID uint64 `json:"cert_id"`
	Valid  bool   `json:"valid"`
}

// LatestCertificateResponse is returned by
// GET /v0/batches/{batchId}/certificates/latest.
type LatestCertificateResponse struct {
	CertID uint64 `json:"cert_id"`
}

// TransferRequest is the body for
// POST /v0/batches/{batchId}/custody/transfers.
type TransferRequest struct {
	To       string `json:"to"`
	Location string `json:"location"`
}

// CustodyRecordResponse represents a custody trail entry.
type CustodyRecordResponse struct {
	BatchID   uint64 `json:"batch_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Location  string `json:"location"`
	Timestamp int64  `json:"timestamp"`
}

// SaleRequest is the body for POST /v0/batches/{batchId}/sales.
type SaleRequest struct {
	SaleMeta string `json:"sale_meta"`
}

// RecallRequest is the body for POST /v0/batches/{batchId}/recall.
type RecallRequest struct {
	Reason string `json:"reason"`
}

// RecallStatusResponse is returned by GET /v0/batches/{batchId}/recall.
type RecallStatusResponse struct {
	BatchID  uint64 `json:"batch_id"`
	Recalled bool   `json:"recalled"`
}

// SaleRecordResponse represents a sale or recall entry.
type SaleRecordResponse struct {
	BatchID   uint64 `json:"batch_id"`
	Recall    bool   `json:"recall"`
	Principal string `json:"principal"`
	SaleMeta  string `json:"sale_meta,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// MemberRequest is the body for POST /v0/governance/members.
type MemberRequest struct {
	Principal string `json:"principal"`
	Role      string `json:"role"`
}

// PolicyRequest is the body for PUT /v0/governance/policy.
type PolicyRequest struct {
	PolicyHash string `json:"policy_hash"`
}

// PolicyResponse represents the current policy pointer.
type PolicyResponse struct {
	PolicyHash string `json:"policy_hash"`
	UpdatedAt  int64  `json:"updated_at"`
}

// EventResponse represents an event log record.
type EventResponse struct {
	Seq       uint64 `json:"seq"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
	Payload   any    `json:"payload"`
}
