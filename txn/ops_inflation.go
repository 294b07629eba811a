// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package txn

import "github.com/nilsander/ledgerscp/ledger"

// inflationOpFrame is a deterministic placeholder: vote tallying and pool
// distribution are out of scope, so it always validates and never
// mutates the ledger, returning INFLATION_NOT_TIME so a batch containing
// it still gets a well-defined result.
type inflationOpFrame struct {
	source string
}

func (f *inflationOpFrame) SourceAccount() string      { return f.source }
func (f *inflationOpFrame) NeededThreshold() Threshold { return ThresholdLow }

func (f *inflationOpFrame) CheckValid() (bool, OperationResult) {
	return true, baseResult{"INFLATION_NOT_TIME"}
}

func (f *inflationOpFrame) Apply(*ledger.LedgerDelta, ledger.EntryStore, ledger.MetricsSink) (bool, OperationResult) {
	return true, baseResult{"INFLATION_NOT_TIME"}
}
