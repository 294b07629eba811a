// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package txn

// TxCode is a transaction's outer result code, distinct from any
// individual operation's OpCode.
type TxCode string

const (
	TxSuccess          TxCode = "TX_SUCCESS"
	TxFailed           TxCode = "TX_FAILED"
	TxBadAuthExtra     TxCode = "TX_BAD_AUTH_EXTRA"
	TxInsufficientFee  TxCode = "TX_INSUFFICIENT_FEE"
	TxBadSeq           TxCode = "TX_BAD_SEQ"
	TxNoAccount        TxCode = "TX_NO_ACCOUNT"
	TxMissingOperation TxCode = "TX_MISSING_OPERATION"
)

// TransactionResult is the outcome of running a TransactionFrame through
// CheckValid/ProcessFeeSeq/Apply: an outer code plus one OperationResult
// per operation in the envelope, in order. OpResults holds a
// notAttemptedResult for every operation past the first failure, per
// spec.md §4.3.
type TransactionResult struct {
	Code      TxCode
	OpResults []OperationResult
}

func failedResult(code TxCode) TransactionResult {
	return TransactionResult{Code: code}
}
