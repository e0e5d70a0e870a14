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
	"github.com/blinklabs-io/civet/event"
	"github.com/blinklabs-io/civet/ledger"
)

const (
	CertificateIssuedEventType  event.EventType = "certs.certificate_issued"
	CertificateRevokedEventType event.EventType = "certs.certificate_revoked"
)

// CertificateIssuedEvent represents a newly issued lab certificate
type CertificateIssuedEvent struct {
	CertID    uint64
	BatchID   uint64
	Lab       ledger.Principal
	ReportRef ledger.Hash
	IssueDate int64
}

// CertificateRevokedEvent represents a certificate being permanently revoked
type CertificateRevokedEvent struct {
	CertID uint64
	Reason string
}
