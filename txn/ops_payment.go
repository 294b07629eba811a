// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package txn

import "github.com/nilsander/ledgerscp/ledger"

type paymentOpFrame struct {
	source string
	body   PaymentBody
}

func (f *paymentOpFrame) SourceAccount() string      { return f.source }
func (f *paymentOpFrame) NeededThreshold() Threshold { return ThresholdMedium }

func (f *paymentOpFrame) CheckValid() (bool, OperationResult) {
	if f.body.Destination == "" {
		return false, baseResult{"PAYMENT_MALFORMED"}
	}
	if f.body.Amount <= 0 {
		return false, baseResult{"PAYMENT_MALFORMED"}
	}
	return true, baseResult{"PAYMENT_SUCCESS"}
}

func (f *paymentOpFrame) Apply(delta *ledger.LedgerDelta, store ledger.EntryStore, sink ledger.MetricsSink) (bool, OperationResult) {
	if f.body.Asset.Type == ledger.AssetNative {
		return f.applyNative(delta, store, sink)
	}
	return f.applyCredit(delta, store, sink)
}

func (f *paymentOpFrame) applyNative(delta *ledger.LedgerDelta, store ledger.EntryStore, sink ledger.MetricsSink) (bool, OperationResult) {
	srcEntry, ok, err := store.Load(ledger.AccountKey(f.source))
	if err != nil || !ok {
		sink.IncCounter("op", "payment", "failure", "PAYMENT_NO_DESTINATION")
		return false, baseResult{"PAYMENT_NO_DESTINATION"}
	}
	dstEntry, ok, err := store.Load(ledger.AccountKey(f.body.Destination))
	if err != nil || !ok {
		sink.IncCounter("op", "payment", "failure", "PAYMENT_NO_DESTINATION")
		return false, baseResult{"PAYMENT_NO_DESTINATION"}
	}

	src := *srcEntry.Account
	if src.Balance < f.body.Amount {
		sink.IncCounter("op", "payment", "failure", "PAYMENT_UNDERFUNDED")
		return false, baseResult{"PAYMENT_UNDERFUNDED"}
	}
	dst := *dstEntry.Account

	src.Balance -= f.body.Amount
	dst.Balance += f.body.Amount

	if err := delta.ModEntry(ledger.NewAccountLedgerEntry(src)); err != nil {
		sink.IncCounter("op", "payment", "failure", "PAYMENT_MALFORMED")
		return false, baseResult{"PAYMENT_MALFORMED"}
	}
	if err := delta.ModEntry(ledger.NewAccountLedgerEntry(dst)); err != nil {
		sink.IncCounter("op", "payment", "failure", "PAYMENT_MALFORMED")
		return false, baseResult{"PAYMENT_MALFORMED"}
	}
	sink.IncCounter("op", "payment", "success")
	return true, baseResult{"PAYMENT_SUCCESS"}
}

func (f *paymentOpFrame) applyCredit(delta *ledger.LedgerDelta, store ledger.EntryStore, sink ledger.MetricsSink) (bool, OperationResult) {
	srcKey := ledger.TrustLineKey(f.source, f.body.Asset)
	dstKey := ledger.TrustLineKey(f.body.Destination, f.body.Asset)

	srcEntry, ok, err := store.Load(srcKey)
	if err != nil || !ok || !srcEntry.TrustLine.Authorized {
		sink.IncCounter("op", "payment", "failure", "PAYMENT_SRC_NOT_AUTHORIZED")
		return false, baseResult{"PAYMENT_SRC_NOT_AUTHORIZED"}
	}
	dstEntry, ok, err := store.Load(dstKey)
	if err != nil || !ok || !dstEntry.TrustLine.Authorized {
		sink.IncCounter("op", "payment", "failure", "PAYMENT_NOT_AUTHORIZED")
		return false, baseResult{"PAYMENT_NOT_AUTHORIZED"}
	}

	src := *srcEntry.TrustLine
	if src.Balance < f.body.Amount {
		sink.IncCounter("op", "payment", "failure", "PAYMENT_UNDERFUNDED")
		return false, baseResult{"PAYMENT_UNDERFUNDED"}
	}
	dst := *dstEntry.TrustLine
	if dst.Limit-dst.Balance < f.body.Amount {
		sink.IncCounter("op", "payment", "failure", "PAYMENT_LINE_FULL")
		return false, baseResult{"PAYMENT_LINE_FULL"}
	}

	src.Balance -= f.body.Amount
	dst.Balance += f.body.Amount

	if err := delta.ModEntry(ledger.NewTrustLineLedgerEntry(src)); err != nil {
		sink.IncCounter("op", "payment", "failure", "PAYMENT_MALFORMED")
		return false, baseResult{"PAYMENT_MALFORMED"}
	}
	if err := delta.ModEntry(ledger.NewTrustLineLedgerEntry(dst)); err != nil {
		sink.IncCounter("op", "payment", "failure", "PAYMENT_MALFORMED")
		return false, baseResult{"PAYMENT_MALFORMED"}
	}
	sink.IncCounter("op", "payment", "success")
	return true, baseResult{"PAYMENT_SUCCESS"}
}
