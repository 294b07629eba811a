// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package txn

import "github.com/nilsander/ledgerscp/ledger"

type manageOfferOpFrame struct {
	source string
	body   ManageOfferBody
}

func (f *manageOfferOpFrame) SourceAccount() string      { return f.source }
func (f *manageOfferOpFrame) NeededThreshold() Threshold { return ThresholdMedium }

func (f *manageOfferOpFrame) CheckValid() (bool, OperationResult) {
	if (f.body.Price.D == 0 || f.body.Price.N <= 0) && f.body.Amount != 0 {
		return false, baseResult{"MANAGE_OFFER_MALFORMED"}
	}
	if f.body.Selling == f.body.Buying && f.body.Amount != 0 {
		return false, baseResult{"MANAGE_OFFER_MALFORMED"}
	}
	return true, baseResult{"MANAGE_OFFER_SUCCESS"}
}

// Apply does not cross against the order book: matching engines and
// price-time priority are out of scope, so ManageOffer here only
// creates, updates, or deletes the caller's own OfferEntry — the ledger
// mutation half of what a full exchange would do.
func (f *manageOfferOpFrame) Apply(delta *ledger.LedgerDelta, store ledger.EntryStore, sink ledger.MetricsSink) (bool, OperationResult) {
	if f.body.OfferID == 0 {
		return f.create(delta, store, sink)
	}

	key := ledger.OfferKey(f.source, f.body.OfferID)
	_, ok, err := store.Load(key)
	if err != nil || !ok {
		sink.IncCounter("op", "manage_offer", "failure", "MANAGE_OFFER_NOT_FOUND")
		return false, baseResult{"MANAGE_OFFER_NOT_FOUND"}
	}

	if f.body.Amount == 0 {
		if err := delta.DeleteEntry(key); err != nil {
			sink.IncCounter("op", "manage_offer", "failure", "MANAGE_OFFER_MALFORMED")
			return false, baseResult{"MANAGE_OFFER_MALFORMED"}
		}
		sink.IncCounter("op", "manage_offer", "removed")
		return true, baseResult{"MANAGE_OFFER_SUCCESS"}
	}

	offer := ledger.OfferEntry{
		AccountID: f.source,
		OfferID:   f.body.OfferID,
		Selling:   f.body.Selling,
		Buying:    f.body.Buying,
		Amount:    f.body.Amount,
		Price:     f.body.Price,
	}
	if err := delta.ModEntry(ledger.NewOfferLedgerEntry(offer)); err != nil {
		sink.IncCounter("op", "manage_offer", "failure", "MANAGE_OFFER_MALFORMED")
		return false, baseResult{"MANAGE_OFFER_MALFORMED"}
	}
	sink.IncCounter("op", "manage_offer", "updated")
	return true, baseResult{"MANAGE_OFFER_SUCCESS"}
}

func (f *manageOfferOpFrame) create(delta *ledger.LedgerDelta, store ledger.EntryStore, sink ledger.MetricsSink) (bool, OperationResult) {
	if f.body.Amount <= 0 {
		sink.IncCounter("op", "manage_offer", "failure", "MANAGE_OFFER_MALFORMED")
		return false, baseResult{"MANAGE_OFFER_MALFORMED"}
	}
	entry, ok, err := store.Load(ledger.AccountKey(f.source))
	if err != nil || !ok {
		sink.IncCounter("op", "manage_offer", "failure", "MANAGE_OFFER_SELL_NO_TRUST")
		return false, baseResult{"MANAGE_OFFER_SELL_NO_TRUST"}
	}
	offerID := uint64(entry.Account.NumSubEntries) + 1
	offer := ledger.OfferEntry{
		AccountID: f.source,
		OfferID:   offerID,
		Selling:   f.body.Selling,
		Buying:    f.body.Buying,
		Amount:    f.body.Amount,
		Price:     f.body.Price,
	}
	if err := delta.AddEntry(ledger.NewOfferLedgerEntry(offer)); err != nil {
		sink.IncCounter("op", "manage_offer", "failure", "MANAGE_OFFER_MALFORMED")
		return false, baseResult{"MANAGE_OFFER_MALFORMED"}
	}
	acc := *entry.Account
	acc.NumSubEntries++
	if err := delta.ModEntry(ledger.NewAccountLedgerEntry(acc)); err != nil {
		sink.IncCounter("op", "manage_offer", "failure", "MANAGE_OFFER_MALFORMED")
		return false, baseResult{"MANAGE_OFFER_MALFORMED"}
	}
	sink.IncCounter("op", "manage_offer", "created")
	return true, baseResult{"MANAGE_OFFER_SUCCESS"}
}
