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

package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the caller does not hold the role
	// required for an operation
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is returned when a referenced entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned when creating an entity whose
	// identifier is already in use
	ErrAlreadyExists = errors.New("already exists")

	// ErrAlreadyRevoked is returned when revoking a certificate that has
	// already been revoked
	ErrAlreadyRevoked = errors.New("already revoked")

	// ErrInsufficientBalance is returned when a burn exceeds the
	// operator's balance for a batch
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidArgument is returned when an operation argument fails
	// validation
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoCertificates is returned when querying the latest certificate
	// for a batch that has none
	ErrNoCertificates = errors.New("no certificates")

	// ErrReentrantCall is returned when a guarded operation is entered
	// again while a previous call on the same store is still in flight
	ErrReentrantCall = errors.New("reentrant call")
)

// UnauthorizedError indicates the caller lacks the role required for an
// operation
type UnauthorizedError struct {
	principal Principal
	role      Role
	operation string
}

func NewUnauthorizedError(
	principal Principal,
	role Role,
	operation string,
) *UnauthorizedError {
	return &UnauthorizedError{
		principal: principal,
		role:      role,
		operation: operation,
	}
}

// Principal returns the principal that attempted the operation
func (e *UnauthorizedError) Principal() Principal {
	return e.principal
}

// Role returns the role required for the operation
func (e *UnauthorizedError) Role() Role {
	return e.role
}

// Operation returns the name of the attempted operation
func (e *UnauthorizedError) Operation() string {
	return e.operation
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf(
		"unauthorized: principal %s requires role %s for %s",
		e.principal,
		e.role,
		e.operation,
	)
}

func (e *UnauthorizedError) Unwrap() error {
	return ErrUnauthorized
}

// BatchNotFoundError indicates the referenced batch does not exist
type BatchNotFoundError struct {
	batchId uint64
}

func NewBatchNotFoundError(batchId uint64) *BatchNotFoundError {
	return &BatchNotFoundError{batchId: batchId}
}

// BatchId returns the missing batch identifier
func (e *BatchNotFoundError) BatchId() uint64 {
	return e.batchId
}

func (e *BatchNotFoundError) Error() string {
	return fmt.Sprintf("batch %d not found", e.batchId)
}

func (e *BatchNotFoundError) Unwrap() error {
	return ErrNotFound
}

// CertificateNotFoundError indicates the referenced certificate does
// not exist
type CertificateNotFoundError struct {
	certId uint64
}

func NewCertificateNotFoundError(certId uint64) *CertificateNotFoundError {
	return &CertificateNotFoundError{certId: certId}
}

// CertId returns the missing certificate identifier
func (e *CertificateNotFoundError) CertId() uint64 {
	return e.certId
}

func (e *CertificateNotFoundError) Error() string {
	return fmt.Sprintf("certificate %d not found", e.certId)
}

func (e *CertificateNotFoundError) Unwrap() error {
	return ErrNotFound
}

// InsufficientBalanceError indicates a burn amount exceeds the
// operator's balance for a batch
type InsufficientBalanceError struct {
	batchId uint64
	holder  Principal
	balance uint64
	amount  uint64
}

func NewInsufficientBalanceError(
	batchId uint64,
	holder Principal,
	balance uint64,
	amount uint64,
) *InsufficientBalanceError {
	return &InsufficientBalanceError{
		batchId: batchId,
		holder:  holder,
		balance: balance,
		amount:  amount,
	}
}

// BatchId returns the batch identifier
func (e *InsufficientBalanceError) BatchId() uint64 {
	return e.batchId
}

// Holder returns the principal whose balance was insufficient
func (e *InsufficientBalanceError) Holder() Principal {
	return e.holder
}

// Balance returns the holder's balance at the time of the operation
func (e *InsufficientBalanceError) Balance() uint64 {
	return e.balance
}

// Amount returns the requested amount
func (e *InsufficientBalanceError) Amount() uint64 {
	return e.amount
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf(
		"insufficient balance: batch %d holder %s has %d, requested %d",
		e.batchId,
		e.holder,
		e.balance,
		e.amount,
	)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}
