// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package txn

import (
	"fmt"
	"testing"

	"github.com/nilsander/ledgerscp/ledger"
)

// fakeHash and fakeVerify stand in for cryptosign.Driver in these tests:
// the signature's Sig byte is either 1 (valid) or 0 (invalid), so tests
// can construct bad signatures without real key material.
func fakeHash(data any) []byte { return []byte(fmt.Sprintf("%v", data)) }

func fakeVerify(sig []byte, digest []byte, pubkey []byte) bool {
	return len(sig) == 1 && sig[0] == 1
}

func goodSig(signer string) Signature { return Signature{SignerKey: signer, Sig: []byte{1}} }
func badSig(signer string) Signature  { return Signature{SignerKey: signer, Sig: []byte{0}} }

func newTestFrame(store *ledger.MemStore, body TransactionBody, sigs []Signature) *TransactionFrame {
	return &TransactionFrame{
		DigestFuncSet: DigestFuncSet{Hash: fakeHash},
		PubkeyFuncSet: PubkeyFuncSet{Verify: fakeVerify},
		Envelope:      TransactionEnvelope{Body: body, Signatures: sigs},
		Accounts: func(id string) (ledger.AccountEntry, bool, error) {
			e, ok, err := store.Load(ledger.AccountKey(id))
			if err != nil || !ok {
				return ledger.AccountEntry{}, ok, err
			}
			return *e.Account, true, nil
		},
		Signers: func(key string) ([]byte, bool) { return []byte(key), true },
	}
}

func acctEntry(id string, balance int64, seq int64) ledger.LedgerEntry {
	return ledger.NewAccountLedgerEntry(ledger.AccountEntry{
		AccountID: id, Balance: balance, SeqNum: seq,
		MasterWeight: 1, LowThreshold: 1, MedThreshold: 1, HighThreshold: 1,
	})
}

// S3: merging an account that still holds a positive-balance trustline
// fails with ACCOUNT_MERGE_HAS_CREDIT before any balance moves.
func TestAccountMergeHasCredit(t *testing.T) {
	store := ledger.NewMemStore()
	_ = store.StorePut(acctEntry("A", 100, 0))
	_ = store.StorePut(acctEntry("B", 50, 0))
	asset := ledger.CreditAsset("USD", "issuer")
	_ = store.StorePut(ledger.NewTrustLineLedgerEntry(ledger.TrustLineEntry{
		AccountID: "A", Asset: asset, Balance: 10, Limit: 1000, Authorized: true,
	}))

	header := &ledger.LedgerHeader{LedgerSeq: 1}
	delta := ledger.OpenRoot(header, store)

	frame := newOperationFrame("A", Operation{Kind: OpAccountMerge, AccountMerge: &AccountMergeBody{Destination: "B"}})
	ok, res := frame.Apply(delta, store, ledger.NopMetrics{})
	if ok || res.Code() != "ACCOUNT_MERGE_HAS_CREDIT" {
		t.Fatalf("expected ACCOUNT_MERGE_HAS_CREDIT, got ok=%v code=%v", ok, res.Code())
	}
}

// merging an account that has issued credit still held elsewhere fails
// with ACCOUNT_MERGE_CREDIT_HELD, distinct from HAS_CREDIT.
func TestAccountMergeCreditHeld(t *testing.T) {
	store := ledger.NewMemStore()
	_ = store.StorePut(acctEntry("A", 100, 0))
	_ = store.StorePut(acctEntry("B", 50, 0))
	_ = store.StorePut(acctEntry("C", 0, 0))
	asset := ledger.CreditAsset("USD", "A")
	_ = store.StorePut(ledger.NewTrustLineLedgerEntry(ledger.TrustLineEntry{
		AccountID: "C", Asset: asset, Balance: 10, Limit: 1000, Authorized: true,
	}))

	header := &ledger.LedgerHeader{LedgerSeq: 1}
	delta := ledger.OpenRoot(header, store)

	frame := newOperationFrame("A", Operation{Kind: OpAccountMerge, AccountMerge: &AccountMergeBody{Destination: "B"}})
	ok, res := frame.Apply(delta, store, ledger.NopMetrics{})
	if ok || res.Code() != "ACCOUNT_MERGE_CREDIT_HELD" {
		t.Fatalf("expected ACCOUNT_MERGE_CREDIT_HELD, got ok=%v code=%v", ok, res.Code())
	}
}

// S4: a clean merge deletes the source account and credits its balance
// to the destination.
func TestAccountMergeSuccess(t *testing.T) {
	store := ledger.NewMemStore()
	_ = store.StorePut(acctEntry("A", 100, 0))
	_ = store.StorePut(acctEntry("B", 50, 0))

	header := &ledger.LedgerHeader{LedgerSeq: 1}
	delta := ledger.OpenRoot(header, store)

	frame := newOperationFrame("A", Operation{Kind: OpAccountMerge, AccountMerge: &AccountMergeBody{Destination: "B"}})
	ok, res := frame.Apply(delta, store, ledger.NopMetrics{})
	if !ok || res.Code() != "ACCOUNT_MERGE_SUCCESS" {
		t.Fatalf("expected success, got ok=%v code=%v", ok, res.Code())
	}
	if merged, isMerge := res.(mergeResult); !isMerge || merged.SourceAccountBalance != 100 {
		t.Fatalf("expected sourceAccountBalance=100, got %+v", res)
	}
	if err := delta.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	changes := delta.GetChanges()
	var destBalance int64 = -1
	sawDeleted := false
	for _, c := range changes {
		if c.Key == ledger.AccountKey("A") && c.Kind == ledger.ChangeRemoved {
			sawDeleted = true
		}
		if c.Key == ledger.AccountKey("B") {
			destBalance = c.Entry.Account.Balance
		}
	}
	if !sawDeleted {
		t.Fatalf("expected source account removed")
	}
	if destBalance != 150 {
		t.Fatalf("expected destination balance 150, got %d", destBalance)
	}
}

// S5: ProcessFeeSeq mutates delta directly, outside the nested delta
// Apply opens for operations. When the sole operation fails, the nested
// delta rolls back but the fee debit on delta survives.
func TestFeeSurvivesOperationRollback(t *testing.T) {
	store := ledger.NewMemStore()
	_ = store.StorePut(acctEntry("A", 1000, 0))
	_ = store.StorePut(acctEntry("B", 0, 0))

	header := &ledger.LedgerHeader{LedgerSeq: 1}
	delta := ledger.OpenRoot(header, store)

	body := TransactionBody{
		SourceAccount: "A",
		Fee:           10,
		SeqNum:        1,
		Operations: []Operation{
			{Kind: OpPayment, Payment: &PaymentBody{Destination: "B", Asset: ledger.NativeAsset(), Amount: 5000}},
		},
	}
	frame := newTestFrame(store, body, []Signature{goodSig("A")})

	res := frame.Apply(delta, store, ledger.NopMetrics{}, 1)
	if res.Code != TxFailed {
		t.Fatalf("expected TxFailed from underfunded payment, got %v", res.Code)
	}
	if err := delta.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	changes := delta.GetChanges()
	if len(changes) != 1 {
		t.Fatalf("expected exactly the fee debit to survive, got %+v", changes)
	}
	if changes[0].Key != ledger.AccountKey("A") || changes[0].Entry.Account.Balance != 990 {
		t.Fatalf("expected A's balance reduced by the fee alone, got %+v", changes[0])
	}
}

// S12: a signature that never contributed to any operation's threshold
// check leaves the transaction BadAuthExtra even though every operation
// individually succeeded.
func TestSignatureExhaustionBadAuthExtra(t *testing.T) {
	store := ledger.NewMemStore()
	_ = store.StorePut(acctEntry("A", 1000, 0))
	_ = store.StorePut(acctEntry("B", 0, 0))

	header := &ledger.LedgerHeader{LedgerSeq: 1}
	delta := ledger.OpenRoot(header, store)

	body := TransactionBody{
		SourceAccount: "A",
		Fee:           10,
		SeqNum:        1,
		Operations: []Operation{
			{Kind: OpPayment, Payment: &PaymentBody{Destination: "B", Asset: ledger.NativeAsset(), Amount: 100}},
		},
	}
	// A second, unrelated signature is never consulted by the single
	// operation above, so it's never marked used.
	frame := newTestFrame(store, body, []Signature{goodSig("A"), goodSig("extra-signer")})

	res := frame.Apply(delta, store, ledger.NopMetrics{}, 1)
	if res.Code != TxBadAuthExtra {
		t.Fatalf("expected TxBadAuthExtra, got %v", res.Code)
	}
}

func TestBadSignatureFailsAuth(t *testing.T) {
	store := ledger.NewMemStore()
	_ = store.StorePut(acctEntry("A", 1000, 0))
	_ = store.StorePut(acctEntry("B", 0, 0))

	header := &ledger.LedgerHeader{LedgerSeq: 1}
	delta := ledger.OpenRoot(header, store)

	body := TransactionBody{
		SourceAccount: "A",
		Fee:           10,
		SeqNum:        1,
		Operations: []Operation{
			{Kind: OpPayment, Payment: &PaymentBody{Destination: "B", Asset: ledger.NativeAsset(), Amount: 100}},
		},
	}
	frame := newTestFrame(store, body, []Signature{badSig("A")})

	res := frame.Apply(delta, store, ledger.NopMetrics{}, 1)
	if res.Code != TxFailed || len(res.OpResults) == 0 || res.OpResults[0].Code() != "BAD_AUTH" {
		t.Fatalf("expected BAD_AUTH op result, got %+v", res)
	}
}
