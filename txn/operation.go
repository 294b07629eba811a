// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package txn

import (
	"github.com/nilsander/ledgerscp/ledger"
)

// Threshold names which of a source account's low/medium/high signer
// thresholds authorizes an operation.
type Threshold int

const (
	ThresholdLow Threshold = iota
	ThresholdMedium
	ThresholdHigh
)

// ThresholdWeight resolves a Threshold against an account's configured
// weights.
func ThresholdWeight(account ledger.AccountEntry, t Threshold) uint8 {
	switch t {
	case ThresholdLow:
		return account.LowThreshold
	case ThresholdMedium:
		return account.MedThreshold
	case ThresholdHigh:
		return account.HighThreshold
	default:
		return account.HighThreshold
	}
}

// OpCode is an operation's typed result code, e.g. ACCOUNT_MERGE_SUCCESS,
// HAS_CREDIT, MALFORMED. It is a first-class output, never an exception:
// the transaction continues (possibly marking itself failed) but the
// operation's own result always carries one of these.
type OpCode string

// OpNotAttempted is the code TransactionFrame.Apply assigns to every
// operation after the first failure in the same transaction — spec.md
// §4.3's "all subsequent operations are skipped."
const OpNotAttempted OpCode = "OP_NOT_ATTEMPTED"

// OperationResult is the common surface every concrete operation result
// type implements.
type OperationResult interface {
	Code() OpCode
}

type baseResult struct{ code OpCode }

func (r baseResult) Code() OpCode { return r.code }

// mergeResult additionally carries the balance moved from source into
// destination, ACCOUNT_MERGE_SUCCESS's sourceAccountBalance member.
type mergeResult struct {
	baseResult
	SourceAccountBalance int64
}

type notAttemptedResult struct{ baseResult }

func newNotAttemptedResult() OperationResult {
	return notAttemptedResult{baseResult{OpNotAttempted}}
}

// OperationFrame is the common interface every concrete operation
// (AccountMerge, Payment, CreateAccount, ...) implements. Dispatch is by
// tagged variant (see Operation in envelope.go), not virtual inheritance —
// spec.md §9's "Polymorphism in OperationFrame" design note.
type OperationFrame interface {
	// SourceAccount is the account whose threshold governs this
	// operation: the transaction's source unless the operation
	// overrides it.
	SourceAccount() string
	// NeededThreshold names which signer threshold of SourceAccount
	// authorizes this operation.
	NeededThreshold() Threshold
	// CheckValid runs static validation independent of ledger state.
	CheckValid() (bool, OperationResult)
	// Apply performs the mutation in delta, via store for reads.
	Apply(delta *ledger.LedgerDelta, store ledger.EntryStore, sink ledger.MetricsSink) (bool, OperationResult)
}

// newOperationFrame dispatches an Operation to its concrete OperationFrame
// implementation by Kind.
func newOperationFrame(txSource string, op Operation) OperationFrame {
	source := op.SourceAccount
	if source == "" {
		source = txSource
	}
	switch op.Kind {
	case OpCreateAccount:
		return &createAccountOpFrame{source: source, body: *op.CreateAccount}
	case OpPayment:
		return &paymentOpFrame{source: source, body: *op.Payment}
	case OpAccountMerge:
		return &accountMergeOpFrame{source: source, body: *op.AccountMerge}
	case OpManageOffer:
		return &manageOfferOpFrame{source: source, body: *op.ManageOffer}
	case OpChangeTrust:
		return &changeTrustOpFrame{source: source, body: *op.ChangeTrust}
	case OpSetOptions:
		return &setOptionsOpFrame{source: source, body: *op.SetOptions}
	case OpAllowTrust:
		return &allowTrustOpFrame{source: source, body: *op.AllowTrust}
	case OpInflation:
		return &inflationOpFrame{source: source}
	default:
		return &unknownOpFrame{source: source}
	}
}

type unknownOpFrame struct{ source string }

func (f *unknownOpFrame) SourceAccount() string      { return f.source }
func (f *unknownOpFrame) NeededThreshold() Threshold { return ThresholdLow }
func (f *unknownOpFrame) CheckValid() (bool, OperationResult) {
	return false, baseResult{"MALFORMED"}
}
func (f *unknownOpFrame) Apply(*ledger.LedgerDelta, ledger.EntryStore, ledger.MetricsSink) (bool, OperationResult) {
	return false, baseResult{"MALFORMED"}
}
