// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package txn

import "github.com/nilsander/ledgerscp/ledger"

type changeTrustOpFrame struct {
	source string
	body   ChangeTrustBody
}

func (f *changeTrustOpFrame) SourceAccount() string      { return f.source }
func (f *changeTrustOpFrame) NeededThreshold() Threshold { return ThresholdMedium }

func (f *changeTrustOpFrame) CheckValid() (bool, OperationResult) {
	if f.body.Asset.Type == ledger.AssetNative {
		return false, baseResult{"CHANGE_TRUST_MALFORMED"}
	}
	if f.body.Limit < 0 {
		return false, baseResult{"CHANGE_TRUST_MALFORMED"}
	}
	return true, baseResult{"CHANGE_TRUST_SUCCESS"}
}

func (f *changeTrustOpFrame) Apply(delta *ledger.LedgerDelta, store ledger.EntryStore, sink ledger.MetricsSink) (bool, OperationResult) {
	key := ledger.TrustLineKey(f.source, f.body.Asset)
	entry, exists, err := store.Load(key)
	if err != nil {
		sink.IncCounter("op", "change_trust", "failure", "CHANGE_TRUST_MALFORMED")
		return false, baseResult{"CHANGE_TRUST_MALFORMED"}
	}

	if f.body.Limit == 0 {
		if !exists {
			sink.IncCounter("op", "change_trust", "failure", "CHANGE_TRUST_NO_TRUST_LINE")
			return false, baseResult{"CHANGE_TRUST_NO_TRUST_LINE"}
		}
		if entry.TrustLine.Balance != 0 {
			sink.IncCounter("op", "change_trust", "failure", "CHANGE_TRUST_INVALID_LIMIT")
			return false, baseResult{"CHANGE_TRUST_INVALID_LIMIT"}
		}
		if err := delta.DeleteEntry(key); err != nil {
			sink.IncCounter("op", "change_trust", "failure", "CHANGE_TRUST_MALFORMED")
			return false, baseResult{"CHANGE_TRUST_MALFORMED"}
		}
		sink.IncCounter("op", "change_trust", "removed")
		return true, baseResult{"CHANGE_TRUST_SUCCESS"}
	}

	if exists {
		tl := *entry.TrustLine
		if f.body.Limit < tl.Balance {
			sink.IncCounter("op", "change_trust", "failure", "CHANGE_TRUST_INVALID_LIMIT")
			return false, baseResult{"CHANGE_TRUST_INVALID_LIMIT"}
		}
		tl.Limit = f.body.Limit
		if err := delta.ModEntry(ledger.NewTrustLineLedgerEntry(tl)); err != nil {
			sink.IncCounter("op", "change_trust", "failure", "CHANGE_TRUST_MALFORMED")
			return false, baseResult{"CHANGE_TRUST_MALFORMED"}
		}
	} else {
		tl := ledger.TrustLineEntry{AccountID: f.source, Asset: f.body.Asset, Limit: f.body.Limit}
		if err := delta.AddEntry(ledger.NewTrustLineLedgerEntry(tl)); err != nil {
			sink.IncCounter("op", "change_trust", "failure", "CHANGE_TRUST_MALFORMED")
			return false, baseResult{"CHANGE_TRUST_MALFORMED"}
		}
	}
	sink.IncCounter("op", "change_trust", "success")
	return true, baseResult{"CHANGE_TRUST_SUCCESS"}
}
