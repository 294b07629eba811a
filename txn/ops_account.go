// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package txn

import "github.com/nilsander/ledgerscp/ledger"

const minBalanceReserveMultiple = 2

type createAccountOpFrame struct {
	source string
	body   CreateAccountBody
}

func (f *createAccountOpFrame) SourceAccount() string      { return f.source }
func (f *createAccountOpFrame) NeededThreshold() Threshold { return ThresholdMedium }

func (f *createAccountOpFrame) CheckValid() (bool, OperationResult) {
	if f.body.Destination == "" || f.body.Destination == f.source {
		return false, baseResult{"CREATE_ACCOUNT_MALFORMED"}
	}
	if f.body.StartingBalance <= 0 {
		return false, baseResult{"CREATE_ACCOUNT_MALFORMED"}
	}
	return true, baseResult{"CREATE_ACCOUNT_SUCCESS"}
}

func (f *createAccountOpFrame) Apply(delta *ledger.LedgerDelta, store ledger.EntryStore, sink ledger.MetricsSink) (bool, OperationResult) {
	key := ledger.AccountKey(f.source)
	srcEntry, ok, err := store.Load(key)
	if err != nil || !ok {
		sink.IncCounter("op", "create_account", "failure", "CREATE_ACCOUNT_UNDERFUNDED")
		return false, baseResult{"CREATE_ACCOUNT_UNDERFUNDED"}
	}
	src := *srcEntry.Account
	if src.Balance-f.body.StartingBalance < minBalanceReserveMultiple {
		sink.IncCounter("op", "create_account", "failure", "CREATE_ACCOUNT_UNDERFUNDED")
		return false, baseResult{"CREATE_ACCOUNT_UNDERFUNDED"}
	}

	if exists, _ := store.Exists(ledger.AccountKey(f.body.Destination)); exists {
		sink.IncCounter("op", "create_account", "failure", "CREATE_ACCOUNT_ALREADY_EXIST")
		return false, baseResult{"CREATE_ACCOUNT_ALREADY_EXIST"}
	}

	src.Balance -= f.body.StartingBalance
	if err := delta.ModEntry(ledger.NewAccountLedgerEntry(src)); err != nil {
		sink.IncCounter("op", "create_account", "failure", "CREATE_ACCOUNT_MALFORMED")
		return false, baseResult{"CREATE_ACCOUNT_MALFORMED"}
	}
	dst := ledger.AccountEntry{
		AccountID:     f.body.Destination,
		Balance:       f.body.StartingBalance,
		MasterWeight:  1,
		HighThreshold: 1,
		MedThreshold:  1,
		LowThreshold:  1,
	}
	if err := delta.AddEntry(ledger.NewAccountLedgerEntry(dst)); err != nil {
		sink.IncCounter("op", "create_account", "failure", "CREATE_ACCOUNT_ALREADY_EXIST")
		return false, baseResult{"CREATE_ACCOUNT_ALREADY_EXIST"}
	}
	sink.IncCounter("op", "create_account", "success")
	return true, baseResult{"CREATE_ACCOUNT_SUCCESS"}
}

type accountMergeOpFrame struct {
	source string
	body   AccountMergeBody
}

func (f *accountMergeOpFrame) SourceAccount() string      { return f.source }
func (f *accountMergeOpFrame) NeededThreshold() Threshold { return ThresholdHigh }

func (f *accountMergeOpFrame) CheckValid() (bool, OperationResult) {
	if f.body.Destination == "" || f.body.Destination == f.source {
		return false, baseResult{"ACCOUNT_MERGE_MALFORMED"}
	}
	return true, baseResult{"ACCOUNT_MERGE_SUCCESS"}
}

// Apply merges source into destination, per MergeOpFrame::doApply: make
// sure source hasn't issued any outstanding credit, make sure source
// isn't itself holding any credit, delete every offer and trustline
// source owns, then move the balance and delete source.
func (f *accountMergeOpFrame) Apply(delta *ledger.LedgerDelta, store ledger.EntryStore, sink ledger.MetricsSink) (bool, OperationResult) {
	srcEntry, ok, err := store.Load(ledger.AccountKey(f.source))
	if err != nil || !ok {
		sink.IncCounter("op", "account_merge", "failure", "ACCOUNT_MERGE_NO_ACCOUNT")
		return false, baseResult{"ACCOUNT_MERGE_NO_ACCOUNT"}
	}
	src := *srcEntry.Account

	dstEntry, ok, err := store.Load(ledger.AccountKey(f.body.Destination))
	if err != nil || !ok {
		sink.IncCounter("op", "account_merge", "failure", "ACCOUNT_MERGE_NO_ACCOUNT")
		return false, baseResult{"ACCOUNT_MERGE_NO_ACCOUNT"}
	}
	dst := *dstEntry.Account

	issued, err := store.IssuedCreditOutstanding(f.source)
	if err != nil {
		sink.IncCounter("op", "account_merge", "failure", "ACCOUNT_MERGE_MALFORMED")
		return false, baseResult{"ACCOUNT_MERGE_MALFORMED"}
	}
	if issued {
		sink.IncCounter("op", "account_merge", "failure", "ACCOUNT_MERGE_CREDIT_HELD")
		return false, baseResult{"ACCOUNT_MERGE_CREDIT_HELD"}
	}

	lines, err := store.TrustLinesByAccount(f.source)
	if err != nil {
		sink.IncCounter("op", "account_merge", "failure", "ACCOUNT_MERGE_MALFORMED")
		return false, baseResult{"ACCOUNT_MERGE_MALFORMED"}
	}
	for _, l := range lines {
		if l.TrustLine.Balance > 0 {
			sink.IncCounter("op", "account_merge", "failure", "ACCOUNT_MERGE_HAS_CREDIT")
			return false, baseResult{"ACCOUNT_MERGE_HAS_CREDIT"}
		}
	}

	offers, err := store.OffersByAccount(f.source)
	if err != nil {
		sink.IncCounter("op", "account_merge", "failure", "ACCOUNT_MERGE_MALFORMED")
		return false, baseResult{"ACCOUNT_MERGE_MALFORMED"}
	}
	for _, o := range offers {
		if err := delta.DeleteEntry(o.Key); err != nil {
			sink.IncCounter("op", "account_merge", "failure", "ACCOUNT_MERGE_MALFORMED")
			return false, baseResult{"ACCOUNT_MERGE_MALFORMED"}
		}
	}
	for _, l := range lines {
		if err := delta.DeleteEntry(l.Key); err != nil {
			sink.IncCounter("op", "account_merge", "failure", "ACCOUNT_MERGE_MALFORMED")
			return false, baseResult{"ACCOUNT_MERGE_MALFORMED"}
		}
	}

	sourceBalance := src.Balance
	if err := delta.DeleteEntry(srcEntry.Key); err != nil {
		sink.IncCounter("op", "account_merge", "failure", "ACCOUNT_MERGE_MALFORMED")
		return false, baseResult{"ACCOUNT_MERGE_MALFORMED"}
	}
	dst.Balance += sourceBalance
	if err := delta.ModEntry(ledger.NewAccountLedgerEntry(dst)); err != nil {
		sink.IncCounter("op", "account_merge", "failure", "ACCOUNT_MERGE_MALFORMED")
		return false, baseResult{"ACCOUNT_MERGE_MALFORMED"}
	}
	sink.IncCounter("op", "account_merge", "success")
	return true, mergeResult{baseResult{"ACCOUNT_MERGE_SUCCESS"}, sourceBalance}
}

type setOptionsOpFrame struct {
	source string
	body   SetOptionsBody
}

func (f *setOptionsOpFrame) SourceAccount() string      { return f.source }
func (f *setOptionsOpFrame) NeededThreshold() Threshold { return ThresholdHigh }

func (f *setOptionsOpFrame) CheckValid() (bool, OperationResult) {
	if f.body.AddSigner != nil && f.body.RemoveSigner != nil && f.body.AddSigner.Key == *f.body.RemoveSigner {
		return false, baseResult{"SET_OPTIONS_MALFORMED"}
	}
	return true, baseResult{"SET_OPTIONS_SUCCESS"}
}

func (f *setOptionsOpFrame) Apply(delta *ledger.LedgerDelta, store ledger.EntryStore, sink ledger.MetricsSink) (bool, OperationResult) {
	entry, ok, err := store.Load(ledger.AccountKey(f.source))
	if err != nil || !ok {
		sink.IncCounter("op", "set_options", "failure", "SET_OPTIONS_MALFORMED")
		return false, baseResult{"SET_OPTIONS_MALFORMED"}
	}
	acc := *entry.Account

	if f.body.LowThreshold != nil {
		acc.LowThreshold = *f.body.LowThreshold
	}
	if f.body.MedThreshold != nil {
		acc.MedThreshold = *f.body.MedThreshold
	}
	if f.body.HighThreshold != nil {
		acc.HighThreshold = *f.body.HighThreshold
	}
	if f.body.MasterWeight != nil {
		acc.MasterWeight = *f.body.MasterWeight
	}
	if f.body.RemoveSigner != nil {
		kept := acc.Signers[:0]
		for _, s := range acc.Signers {
			if s.Key != *f.body.RemoveSigner {
				kept = append(kept, s)
			}
		}
		acc.Signers = kept
	}
	if f.body.AddSigner != nil {
		replaced := false
		for i, s := range acc.Signers {
			if s.Key == f.body.AddSigner.Key {
				acc.Signers[i] = *f.body.AddSigner
				replaced = true
				break
			}
		}
		if !replaced {
			acc.Signers = append(acc.Signers, *f.body.AddSigner)
		}
	}

	if err := delta.ModEntry(ledger.NewAccountLedgerEntry(acc)); err != nil {
		sink.IncCounter("op", "set_options", "failure", "SET_OPTIONS_MALFORMED")
		return false, baseResult{"SET_OPTIONS_MALFORMED"}
	}
	sink.IncCounter("op", "set_options", "success")
	return true, baseResult{"SET_OPTIONS_SUCCESS"}
}

type allowTrustOpFrame struct {
	source string
	body   AllowTrustBody
}

func (f *allowTrustOpFrame) SourceAccount() string      { return f.source }
func (f *allowTrustOpFrame) NeededThreshold() Threshold { return ThresholdLow }

func (f *allowTrustOpFrame) CheckValid() (bool, OperationResult) {
	if f.body.Trustor == "" || f.body.Trustor == f.source {
		return false, baseResult{"ALLOW_TRUST_MALFORMED"}
	}
	return true, baseResult{"ALLOW_TRUST_SUCCESS"}
}

func (f *allowTrustOpFrame) Apply(delta *ledger.LedgerDelta, store ledger.EntryStore, sink ledger.MetricsSink) (bool, OperationResult) {
	key := ledger.TrustLineKey(f.body.Trustor, f.body.Asset)
	entry, ok, err := store.Load(key)
	if err != nil || !ok {
		sink.IncCounter("op", "allow_trust", "failure", "ALLOW_TRUST_NO_TRUST_LINE")
		return false, baseResult{"ALLOW_TRUST_NO_TRUST_LINE"}
	}
	tl := *entry.TrustLine
	tl.Authorized = f.body.Authorize
	if err := delta.ModEntry(ledger.NewTrustLineLedgerEntry(tl)); err != nil {
		sink.IncCounter("op", "allow_trust", "failure", "ALLOW_TRUST_MALFORMED")
		return false, baseResult{"ALLOW_TRUST_MALFORMED"}
	}
	sink.IncCounter("op", "allow_trust", "success")
	return true, baseResult{"ALLOW_TRUST_SUCCESS"}
}
