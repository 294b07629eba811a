// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package txn

import (
	"fmt"

	"github.com/nilsander/ledgerscp/ledger"
)

// DigestFuncSet and PubkeyFuncSet follow the function-valued
// collaborator shape of the pbft package's own DigestFuncSet/PubkeyFuncSet:
// a frame is handed plain funcs rather than an interface, so a caller can
// wire in cryptosign.Hash and cryptosign.Verify directly without an
// adapter type.
type DigestFuncSet struct {
	Hash func(data any) []byte
}

type PubkeyFuncSet struct {
	Verify func(sig []byte, digest []byte, pubkey []byte) bool
}

// AccountLookup resolves an account by ID, the txn package's analogue of
// ledger.EntryStore scoped to AccountEntry reads outside of a delta.
type AccountLookup func(accountID string) (ledger.AccountEntry, bool, error)

// SignerLookup resolves the public key bytes behind a signer key string,
// so checkSignature can hand Verify raw key bytes.
type SignerLookup func(signerKey string) ([]byte, bool)

// TransactionFrame wraps an envelope with the collaborators needed to
// validate and apply it: a digest/signature backend and the account
// lookups it needs independently of any one delta.
type TransactionFrame struct {
	DigestFuncSet
	PubkeyFuncSet

	// NetworkID is folded into both content_hash and full_hash so a
	// signature taken on one network (e.g. a test network) never
	// verifies against another's transactions.
	NetworkID string

	Envelope TransactionEnvelope
	Accounts AccountLookup
	Signers  SignerLookup
}

// contentHashPayload and fullHashPayload are the gob-encoded shapes
// content_hash/full_hash digest: network_id||body and
// network_id||body||signatures respectively.
type contentHashPayload struct {
	NetworkID string
	Body      TransactionBody
}

type fullHashPayload struct {
	NetworkID  string
	Body       TransactionBody
	Signatures []Signature
}

// ContentHash is the digest signatures are taken over: the network id
// and envelope body, independent of the signatures themselves.
func (f *TransactionFrame) ContentHash() []byte {
	return f.Hash(contentHashPayload{NetworkID: f.NetworkID, Body: f.Envelope.Body})
}

// FullHash additionally covers the envelope's signatures, identifying
// one fully-signed transaction instance rather than the body it signs.
func (f *TransactionFrame) FullHash() []byte {
	return f.Hash(fullHashPayload{NetworkID: f.NetworkID, Body: f.Envelope.Body, Signatures: f.Envelope.Signatures})
}

// CheckValid runs the static, ledger-state-independent checks: the
// envelope must carry at least one operation, and every operation must
// pass its own CheckValid.
func (f *TransactionFrame) CheckValid() (bool, TransactionResult) {
	if len(f.Envelope.Body.Operations) == 0 {
		return false, failedResult(TxMissingOperation)
	}
	for _, op := range f.Envelope.Body.Operations {
		frame := newOperationFrame(f.Envelope.Body.SourceAccount, op)
		if ok, res := frame.CheckValid(); !ok {
			return false, TransactionResult{Code: TxFailed, OpResults: []OperationResult{res}}
		}
	}
	return true, TransactionResult{Code: TxSuccess}
}

// ProcessFeeSeq validates and debits the transaction fee and bumps the
// source account's sequence number, mutating delta directly rather than a
// nested delta of its own. This is deliberate: spec.md §4.3 notes fee
// processing survives even when every operation in the transaction is
// rolled back, because stellar-core's TransactionFrame::processFeeSeqNum
// writes into the caller's delta, not into apply()'s own nested one.
func (f *TransactionFrame) ProcessFeeSeq(delta *ledger.LedgerDelta, baseFee int64) TxCode {
	body := f.Envelope.Body
	source, ok, err := f.Accounts(body.SourceAccount)
	if err != nil || !ok {
		return TxNoAccount
	}
	if body.Fee < baseFee*int64(len(body.Operations)) {
		return TxInsufficientFee
	}
	if body.SeqNum != source.SeqNum+1 {
		return TxBadSeq
	}
	if source.Balance < body.Fee {
		return TxInsufficientFee
	}

	source.Balance -= body.Fee
	source.SeqNum = body.SeqNum
	if err := delta.ModEntry(ledger.NewAccountLedgerEntry(source)); err != nil {
		return TxFailed
	}
	return TxSuccess
}

// checkSignature tallies the weight every provided signature contributes
// toward need for a single operation's source account, and records in
// used which signatures contributed to ANY operation — mirroring
// TransactionFrame::checkSignature / checkAllSignaturesUsed's split: a
// signature's weight counts fresh against every operation it is checked
// against, but the transaction as a whole fails if any signature never
// contributed to any operation.
func (f *TransactionFrame) checkSignature(account ledger.AccountEntry, need uint8, used []bool) bool {
	var total int
	for i, sig := range f.Envelope.Signatures {
		weight := account.SignerWeight(sig.SignerKey)
		if weight == 0 {
			continue
		}
		pk, ok := f.Signers(sig.SignerKey)
		if !ok {
			continue
		}
		digest := f.ContentHash()
		if !f.Verify(sig.Sig, digest, pk) {
			continue
		}
		total += int(weight)
		used[i] = true
	}
	return total >= int(need)
}

// Apply runs ProcessFeeSeq against delta, then opens a nested delta
// scoped to the operations alone. Every operation must pass signature
// and threshold checks and its own Apply; the first failure marks every
// remaining operation OpNotAttempted and rolls back the nested delta,
// leaving ProcessFeeSeq's mutation of delta intact. The caller owns
// delta's own commit/rollback — Apply never commits or rolls back delta
// itself, only the nested scope around the operations.
func (f *TransactionFrame) Apply(delta *ledger.LedgerDelta, store ledger.EntryStore, sink ledger.MetricsSink, baseFee int64) TransactionResult {
	feeCode := f.ProcessFeeSeq(delta, baseFee)
	if feeCode != TxSuccess {
		return failedResult(feeCode)
	}

	source, ok, err := f.Accounts(f.Envelope.Body.SourceAccount)
	if err != nil || !ok {
		return failedResult(TxNoAccount)
	}

	used := make([]bool, len(f.Envelope.Signatures))
	results := make([]OperationResult, len(f.Envelope.Body.Operations))
	for i := range results {
		results[i] = newNotAttemptedResult()
	}

	txDelta := ledger.Open(delta)
	ok = func() bool {
		for i, op := range f.Envelope.Body.Operations {
			frame := newOperationFrame(f.Envelope.Body.SourceAccount, op)

			account := source
			if frame.SourceAccount() != f.Envelope.Body.SourceAccount {
				a, exists, lerr := f.Accounts(frame.SourceAccount())
				if lerr != nil || !exists {
					results[i] = baseResult{"NO_ACCOUNT"}
					return false
				}
				account = a
			}
			need := ThresholdWeight(account, frame.NeededThreshold())
			if !f.checkSignature(account, need, used) {
				results[i] = baseResult{"BAD_AUTH"}
				return false
			}

			valid, res := frame.CheckValid()
			if !valid {
				results[i] = res
				return false
			}

			applied, res := frame.Apply(txDelta, store, sink)
			results[i] = res
			if !applied {
				return false
			}
		}
		return true
	}()

	if !ok {
		_ = txDelta.Rollback()
		return TransactionResult{Code: TxFailed, OpResults: results}
	}

	for _, u := range used {
		if !u {
			_ = txDelta.Rollback()
			return TransactionResult{Code: TxBadAuthExtra, OpResults: results}
		}
	}

	if err := txDelta.Commit(); err != nil {
		return TransactionResult{Code: TxFailed, OpResults: results}
	}
	return TransactionResult{Code: TxSuccess, OpResults: results}
}

func (f *TransactionFrame) String() string {
	return fmt.Sprintf("tx(source=%s, seq=%d, ops=%d)",
		f.Envelope.Body.SourceAccount, f.Envelope.Body.SeqNum, len(f.Envelope.Body.Operations))
}
