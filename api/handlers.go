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

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/blinklabs-io/civet/ledger"
)

const apiVersion = "0.1.0"

// PrincipalHeader carries the caller identity for mutating requests. The
// value passes through unauthenticated; the host in front of the API is
// expected to establish it.
const PrincipalHeader = "X-Principal"

const (
	DefaultEventCount = 100
	MaxEventCount     = 1000
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response.
func writeError(
	w http.ResponseWriter,
	status int,
	errStr string,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		StatusCode: status,
		Error:      errStr,
		Message:    message,
	})
}

// writeLedgerError maps a ledger error onto an HTTP error response.
func (a *Api) writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidArgument):
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			err.Error(),
		)
	case errors.Is(err, ledger.ErrUnauthorized):
		writeError(
			w,
			http.StatusForbidden,
			"Forbidden",
			err.Error(),
		)
	case errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, ledger.ErrNoCertificates):
		writeError(
			w,
			http.StatusNotFound,
			"Not Found",
			err.Error(),
		)
	case errors.Is(err, ledger.ErrAlreadyExists),
		errors.Is(err, ledger.ErrAlreadyRevoked),
		errors.Is(err, ledger.ErrInsufficientBalance):
		writeError(
			w,
			http.StatusConflict,
			"Conflict",
			err.Error(),
		)
	case errors.Is(err, ledger.ErrReentrantCall):
		writeError(
			w,
			http.StatusServiceUnavailable,
			"Service Unavailable",
			err.Error(),
		)
	default:
		a.logger.Error(
			"internal error",
			"error", err,
		)
		writeError(
			w,
			http.StatusInternalServerError,
			"Internal Server Error",
			"unexpected error",
		)
	}
}

// requireCaller extracts the caller principal header, writing a 401
// response when it is missing.
func requireCaller(
	w http.ResponseWriter,
	r *http.Request,
) (string, bool) {
	caller := r.Header.Get(PrincipalHeader)
	if caller == "" {
		writeError(
			w,
			http.StatusUnauthorized,
			"Unauthorized",
			"missing "+PrincipalHeader+" header",
		)
		return "", false
	}
	return caller, true
}

// pathId parses a numeric path value, writing a 400 response on failure.
func pathId(
	w http.ResponseWriter,
	r *http.Request,
	name string,
) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			"invalid "+name,
		)
		return 0, false
	}
	return id, true
}

// decodeRequest decodes a JSON request body, writing a 400 response on
// failure.
func decodeRequest(
	w http.ResponseWriter,
	r *http.Request,
	dst any,
) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(
			w,
			http.StatusBadRequest,
			"Bad Request",
			"invalid request body",
		)
		return false
	}
	return true
}

// handleRoot handles GET / and returns API metadata.
func (a *Api) handleRoot(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, RootResponse{
		URL:     "https://github.com/blinklabs-io/civet",
		Version: apiVersion,
	})
}

// handleRegisterBatch handles POST /v0/batches and registers a new batch.
func (a *Api) handleRegisterBatch(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req RegisterBatchRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := a.node.RegisterBatch(
		caller,
		req.BatchID,
		req.ContentHash,
		req.MetadataRef,
		req.InitialAmount,
	); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	batch, err := a.node.Batch(req.BatchID)
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, batchResponse(batch))
}

// handleGetBatch handles GET /v0/batches/{batchId} and returns the batch
// identity and supply.
func (a *Api) handleGetBatch(
	w http.ResponseWriter,
	r *http.Request,
) {
	batchId, ok := pathId(w, r, "batchId")
	if !ok {
		return
	}
	batch, err := a.node.Batch(batchId)
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse(batch))
}

func batchResponse(batch BatchInfo) BatchResponse {
	return BatchResponse{
		BatchID:      batch.BatchID,
		ContentHash:  batch.ContentHash,
		MetadataRef:  batch.MetadataRef,
		Manufacturer: batch.Manufacturer,
		TotalSupply:  batch.TotalSupply,
		RegisteredAt: batch.RegisteredAt,
	}
}

// handleMint handles POST /v0/batches/{batchId}/mint and credits new
// units to a recipient.
func (a *Api) handleMint(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	batchId, ok := pathId(w, r, "batchId")
	if !ok {
		return
	}
	var req MintRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := a.node.MintTo(
		caller,
		batchId,
		req.To,
		req.Amount,
	); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBurn handles POST /v0/batches/{batchId}/burn and removes units
// from the caller's balance.
func (a *Api) handleBurn(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	batchId, ok := pathId(w, r, "batchId")
	if !ok {
		return
	}
	var req BurnRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := a.node.Burn(caller, batchId, req.Amount); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleBalances handles GET /v0/batches/{batchId}/balances and returns
// all holder balances.
func (a *Api) handleBalances(
	w http.ResponseWriter,
	r *http.Request,
) {
	batchId, ok := pathId(w, r, "batchId")
	if !ok {
		return
	}
	balances, err := a.node.Balances(batchId)
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	resp := make([]BalanceResponse, 0, len(balances))
	for _, balance := range balances {
		resp = append(resp, BalanceResponse{
			Holder: balance.Holder,
			Amount: balance.Amount,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleIssueCertificate handles POST /v0/certificates and issues a new
// certificate.
func (a *Api) handleIssueCertificate(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req IssueCertificateRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	certId, err := a.node.IssueCertificate(
		caller,
		req.BatchID,
		req.ReportRef,
	)
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, IssueCertificateResponse{
		CertID: certId,
	})
}

// handleRevokeCertificate handles POST /v0/certificates/{certId}/revoke
// and permanently revokes a certificate.
func (a *Api) handleRevokeCertificate(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	certId, ok := pathId(w, r, "certId")
	if !ok {
		return
	}
	var req RevokeCertificateRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := a.node.RevokeCertificate(
		caller,
		certId,
		req.Reason,
	); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleVerifyCertificate handles GET /v0/certificates/{certId} and
// reports certificate validity.
func (a *Api) handleVerifyCertificate(
	w http.ResponseWriter,
	r *http.Request,
) {
	certId, ok := pathId(w, r, "certId")
	if !ok {
		return
	}
	valid, err := a.node.VerifyCertificate(certId)
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, VerifyCertificateResponse{
		CertID: certId,
		Valid:  valid,
	})
}

// handleBatchCertificates handles GET /v0/batches/{batchId}/certificates
// and returns all certificates for a batch.
func (a *Api) handleBatchCertificates(
	w http.ResponseWriter,
	r *http.Request,
) {
	batchId, ok := pathId(w, r, "batchId")
	if !ok {
		return
	}
	certList, err := a.node.Certificates(batchId)
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	resp := make([]CertificateResponse, 0, len(certList))
	for _, cert := range certList {
		resp = append(resp, CertificateResponse{
			CertID:       cert.CertID,
			BatchID:      cert.BatchID,
			Lab:          cert.Lab,
			ReportRef:    cert.ReportRef,
			IssueDate:    cert.IssueDate,
			Revoked:      cert.Revoked,
			RevokeReason: cert.RevokeReason,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLatestCertificate handles
// GET /v0/batches/{batchId}/certificates/latest and returns the newest
// certificate ID for a batch.
func (a *Api) handleLatestCertificate(
	w http.ResponseWriter,
	r *http.Request,
) {
	batchId, ok := pathId(w, r, "batchId")
	if !ok {
		return
	}
	certId, err := a.node.LatestCertificate(batchId)
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LatestCertificateResponse{
		CertID: certId,
	})
}

// handleRecordTransfer handles
// POST /v0/batches/{batchId}/custody/transfers and appends a custody
// hand-off record.
func (a *Api) handleRecordTransfer(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	batchId, ok := pathId(w, r, "batchId")
	if !ok {
		return
	}
	var req TransferRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := a.node.RecordTransfer(
		caller,
		batchId,
		req.To,
		req.Location,
	); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleApproveTransfer handles
// POST /v0/batches/{batchId}/custody/approvals and appends a receipt
// approval record.
func (a *Api) handleApproveTransfer(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	batchId, ok := pathId(w, r, "batchId")
	if !ok {
		return
	}
	if err := a.node.ApproveTransfer(caller, batchId); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCustodyRecords handles GET /v0/batches/{batchId}/custody and
// returns the custody trail.
func (a *Api) handleCustodyRecords(
	w http.ResponseWriter,
	r *http.Request,
) {
	batchId, ok := pathId(w, r, "batchId")
	if !ok {
		return
	}
	records, err := a.node.CustodyRecords(batchId)
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	resp := make([]CustodyRecordResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, CustodyRecordResponse{
			BatchID:   record.BatchID,
			From:      record.From,
			To:        record.To,
			Location:  record.Location,
			Timestamp: record.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRecordSale handles POST /v0/batches/{batchId}/sales and appends
// a point-of-sale record.
func (a *Api) handleRecordSale(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	batchId, ok := pathId(w, r, "batchId")
	if !ok {
		return
	}
	var req SaleRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := a.node.RecordSale(
		caller,
		batchId,
		req.SaleMeta,
	); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSaleRecords handles GET /v0/batches/{batchId}/sales and returns
// the sale and recall history.
func (a *Api) handleSaleRecords(
	w http.ResponseWriter,
	r *http.Request,
) {
	batchId, ok := pathId(w, r, "batchId")
	if !ok {
		return
	}
	records, err := a.node.SaleRecords(batchId)
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	resp := make([]SaleRecordResponse, 0, len(records))
	for _, record := range records {
		resp = append(resp, SaleRecordResponse{
			BatchID:   record.BatchID,
			Recall:    record.Recall,
			Principal: record.Principal,
			SaleMeta:  record.SaleMeta,
			Reason:    record.Reason,
			Timestamp: record.Timestamp,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleFlagRecall handles POST /v0/batches/{batchId}/recall and appends
// a recall flag.
func (a *Api) handleFlagRecall(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	batchId, ok := pathId(w, r, "batchId")
	if !ok {
		return
	}
	var req RecallRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := a.node.FlagRecall(
		caller,
		batchId,
		req.Reason,
	); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRecallStatus handles GET /v0/batches/{batchId}/recall and
// reports whether the batch has been recalled.
func (a *Api) handleRecallStatus(
	w http.ResponseWriter,
	r *http.Request,
) {
	batchId, ok := pathId(w, r, "batchId")
	if !ok {
		return
	}
	recalled, err := a.node.BatchRecalled(batchId)
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecallStatusResponse{
		BatchID:  batchId,
		Recalled: recalled,
	})
}

// handleAddMember handles POST /v0/governance/members and grants a role
// to a principal.
func (a *Api) handleAddMember(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req MemberRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := a.node.AddMember(
		caller,
		req.Principal,
		req.Role,
	); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRemoveMember handles
// DELETE /v0/governance/members/{principal}/roles/{role} and revokes a
// role from a principal.
func (a *Api) handleRemoveMember(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	principal := r.PathValue("principal")
	role := r.PathValue("role")
	if err := a.node.RemoveMember(caller, principal, role); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetPolicy handles GET /v0/governance/policy and returns the
// current policy pointer.
func (a *Api) handleGetPolicy(
	w http.ResponseWriter,
	_ *http.Request,
) {
	policy, err := a.node.Policy()
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	if policy == nil {
		writeError(
			w,
			http.StatusNotFound,
			"Not Found",
			"no policy set",
		)
		return
	}
	writeJSON(w, http.StatusOK, PolicyResponse{
		PolicyHash: policy.PolicyHash,
		UpdatedAt:  policy.UpdatedAt,
	})
}

// handleSetPolicy handles PUT /v0/governance/policy and overwrites the
// policy pointer.
func (a *Api) handleSetPolicy(
	w http.ResponseWriter,
	r *http.Request,
) {
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	var req PolicyRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if err := a.node.SetPolicy(caller, req.PolicyHash); err != nil {
		a.writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleEvents handles GET /v0/events?from=seq&count=n and returns event
// log records for polling consumers.
func (a *Api) handleEvents(
	w http.ResponseWriter,
	r *http.Request,
) {
	fromSeq := uint64(1)
	count := DefaultEventCount
	query := r.URL.Query()
	if fromParam := query.Get("from"); fromParam != "" {
		from, err := strconv.ParseUint(fromParam, 10, 64)
		if err != nil {
			writeError(
				w,
				http.StatusBadRequest,
				"Bad Request",
				"invalid from parameter",
			)
			return
		}
		fromSeq = from
	}
	if countParam := query.Get("count"); countParam != "" {
		parsed, err := strconv.Atoi(countParam)
		if err != nil {
			writeError(
				w,
				http.StatusBadRequest,
				"Bad Request",
				"invalid count parameter",
			)
			return
		}
		count = parsed
	}
	// Bounds clamping
	if count < 1 {
		count = 1
	}
	if count > MaxEventCount {
		count = MaxEventCount
	}
	events, err := a.node.Events(fromSeq, count)
	if err != nil {
		a.writeLedgerError(w, err)
		return
	}
	resp := make([]EventResponse, 0, len(events))
	for _, evt := range events {
		resp = append(resp, EventResponse{
			Seq:       evt.Seq,
			Type:      evt.Type,
			Timestamp: evt.Timestamp,
			Payload:   evt.Payload,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
