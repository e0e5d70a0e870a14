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
	"github.com/blinklabs-io/civet/certs"
	"github.com/blinklabs-io/civet/custody"
	"github.com/blinklabs-io/civet/database"
	"github.com/blinklabs-io/civet/governance"
	"github.com/blinklabs-io/civet/ledger"
	"github.com/blinklabs-io/civet/registry"
	"github.com/blinklabs-io/civet/sales"
)

// NodeAdapter wraps the ledger components to implement the ApiNode
// interface
type NodeAdapter struct {
	registry   *registry.BatchRegistry
	certs      *certs.CertificateLedger
	custody    *custody.CustodyLog
	sales      *sales.SaleLog
	governance *governance.GovernanceFacade
	db         *database.Database
}

// NewNodeAdapter creates a NodeAdapter over the given components. Panics
// if any component is nil.
func NewNodeAdapter(
	batchRegistry *registry.BatchRegistry,
	certLedger *certs.CertificateLedger,
	custodyLog *custody.CustodyLog,
	saleLog *sales.SaleLog,
	governanceFacade *governance.GovernanceFacade,
	db *database.Database,
) *NodeAdapter {
	if batchRegistry == nil || certLedger == nil || custodyLog == nil ||
		saleLog == nil || governanceFacade == nil || db == nil {
		panic("NewNodeAdapter: all components must not be nil")
	}
	return &NodeAdapter{
		registry:   batchRegistry,
		certs:      certLedger,
		custody:    custodyLog,
		sales:      saleLog,
		governance: governanceFacade,
		db:         db,
	}
}

func (a *NodeAdapter) RegisterBatch(
	caller string,
	batchId uint64,
	contentHash string,
	metadataRef string,
	initialAmount uint64,
) error {
	hash, err := ledger.NewHashFromHex(contentHash)
	if err != nil {
		return err
	}
	return a.registry.RegisterBatch(
		ledger.Principal(caller),
		batchId,
		hash,
		metadataRef,
		initialAmount,
	)
}

func (a *NodeAdapter) Batch(batchId uint64) (BatchInfo, error) {
	batch, err := a.registry.GetBatch(batchId)
	if err != nil {
		return BatchInfo{}, err
	}
	return BatchInfo{
		BatchID:      batch.BatchID,
		ContentHash:  batch.ContentHash.String(),
		MetadataRef:  batch.MetadataRef,
		Manufacturer: batch.Manufacturer.String(),
		TotalSupply:  batch.TotalSupply,
		RegisteredAt: batch.RegisteredAt,
	}, nil
}

func (a *NodeAdapter) MintTo(
	caller string,
	batchId uint64,
	to string,
	amount uint64,
) error {
	return a.registry.MintTo(
		ledger.Principal(caller),
		batchId,
		ledger.Principal(to),
		amount,
	)
}

func (a *NodeAdapter) Burn(
	caller string,
	batchId uint64,
	amount uint64,
) error {
	return a.registry.Burn(ledger.Principal(caller), batchId, amount)
}

func (a *NodeAdapter) Balances(batchId uint64) ([]BalanceInfo, error) {
	balances, err := a.registry.Balances(batchId)
	if err != nil {
		return nil, err
	}
	ret := make([]BalanceInfo, 0, len(balances))
	for _, balance := range balances {
		ret = append(ret, BalanceInfo{
			Holder: balance.Holder.String(),
			Amount: balance.Amount,
		})
	}
	return ret, nil
}

func (a *NodeAdapter) IssueCertificate(
	caller string,
	batchId uint64,
	reportRef string,
) (uint64, error) {
	hash, err := ledger.NewHashFromHex(reportRef)
	if err != nil {
		return 0, err
	}
	return a.certs.IssueCertificate(ledger.Principal(caller), batchId, hash)
}

func (a *NodeAdapter) RevokeCertificate(
	caller string,
	certId uint64,
	reason string,
) error {
	return a.certs.RevokeCertificate(ledger.Principal(caller), certId, reason)
}

func (a *NodeAdapter) VerifyCertificate(certId uint64) (bool, error) {
	return a.certs.VerifyCertificate(certId)
}

func (a *NodeAdapter) LatestCertificate(batchId uint64) (uint64, error) {
	return a.certs.GetLatestCertificate(batchId)
}

func (a *NodeAdapter) Certificates(
	batchId uint64,
) ([]CertificateInfo, error) {
	certList, err := a.certs.Certificates(batchId)
	if err != nil {
		return nil, err
	}
	ret := make([]CertificateInfo, 0, len(certList))
	for _, cert := range certList {
		ret = append(ret, CertificateInfo{
			CertID:       cert.CertID,
			BatchID:      cert.BatchID,
			Lab:          cert.Lab.String(),
			ReportRef:    cert.ReportRef.String(),
			IssueDate:    cert.IssueDate,
			Revoked:      cert.Revoked,
			RevokeReason: cert.RevokeReason,
		})
	}
	return ret, nil
}

func (a *NodeAdapter) RecordTransfer(
	caller string,
	batchId uint64,
	to string,
	location string,
) error {
	return a.custody.RecordTransfer(
		ledger.Principal(caller),
		batchId,
		ledger.Principal(to),
		location,
	)
}

func (a *NodeAdapter) ApproveTransfer(caller string, batchId uint64) error {
	return a.custody.ApproveTransfer(ledger.Principal(caller), batchId)
}

func (a *NodeAdapter) CustodyRecords(
	batchId uint64,
) ([]CustodyRecordInfo, error) {
	records, err := a.custody.Records(batchId)
	if err != nil {
		return nil, err
	}
	ret := make([]CustodyRecordInfo, 0, len(records))
	for _, record := range records {
		ret = append(ret, CustodyRecordInfo{
			BatchID:   record.BatchID,
			From:      record.From.String(),
			To:        record.To.String(),
			Location:  record.Location,
			Timestamp: record.Timestamp,
		})
	}
	return ret, nil
}

func (a *NodeAdapter) RecordSale(
	caller string,
	batchId uint64,
	saleMeta string,
) error {
	return a.sales.RecordSale(ledger.Principal(caller), batchId, saleMeta)
}

func (a *NodeAdapter) FlagRecall(
	caller string,
	batchId uint64,
	reason string,
) error {
	return a.sales.FlagRecall(ledger.Principal(caller), batchId, reason)
}

func (a *NodeAdapter) SaleRecords(
	batchId uint64,
) ([]SaleRecordInfo, error) {
	records, err := a.sales.Records(batchId)
	if err != nil {
		return nil, err
	}
	ret := make([]SaleRecordInfo, 0, len(records))
	for _, record := range records {
		ret = append(ret, SaleRecordInfo{
			BatchID:   record.BatchID,
			Recall:    record.Recall,
			Principal: record.Principal.String(),
			SaleMeta:  record.SaleMeta,
			Reason:    record.Reason,
			Timestamp: record.Timestamp,
		})
	}
	return ret, nil
}

func (a *NodeAdapter) BatchRecalled(batchId uint64) (bool, error) {
	return a.sales.IsRecalled(batchId)
}

func (a *NodeAdapter) AddMember(
	caller string,
	principal string,
	role string,
) error {
	return a.governance.AddMember(
		ledger.Principal(caller),
		ledger.Principal(principal),
		ledger.Role(role),
	)
}

func (a *NodeAdapter) RemoveMember(
	caller string,
	principal string,
	role string,
) error {
	return a.governance.RemoveMember(
		ledger.Principal(caller),
		ledger.Principal(principal),
		ledger.Role(role),
	)
}

func (a *NodeAdapter) SetPolicy(caller string, policyHash string) error {
	hash, err := ledger.NewHashFromHex(policyHash)
	if err != nil {
		return err
	}
	return a.governance.SetPolicy(ledger.Principal(caller), hash)
}

func (a *NodeAdapter) Policy() (*PolicyInfo, error) {
	policy, err := a.governance.GetPolicy()
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return nil, nil
	}
	return &PolicyInfo{
		PolicyHash: policy.PolicyHash.String(),
		UpdatedAt:  policy.UpdatedAt,
	}, nil
}

func (a *NodeAdapter) Events(
	fromSeq uint64,
	count int,
) ([]EventInfo, error) {
	iter := a.db.EventsFrom(fromSeq)
	defer iter.Close()
	ret := make([]EventInfo, 0, count)
	for len(ret) < count {
		record, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if record == nil {
			break
		}
		payload, err := record.DecodePayloadGeneric()
		if err != nil {
			return nil, err
		}
		ret = append(ret, EventInfo{
			Seq:       record.Seq,
			Type:      record.Type,
			Timestamp: record.Timestamp,
			Payload:   payload,
		})
	}
	return ret, nil
}
