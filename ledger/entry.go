// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package ledger

// Signer is a (key, weight) pair contributing to an account's threshold
// checks.
type Signer struct {
	Key    string
	Weight uint8
}

// AccountEntry is the balance/threshold/signer state behind an
// EntryAccount key.
type AccountEntry struct {
	AccountID     string
	Balance       int64
	SeqNum        int64
	NumSubEntries uint32
	MasterWeight  uint8
	LowThreshold  uint8
	MedThreshold  uint8
	HighThreshold uint8
	Signers       []Signer
}

func (a AccountEntry) clone() AccountEntry {
	c := a
	c.Signers = append([]Signer(nil), a.Signers...)
	return c
}

// SignerWeight returns the weight a given signer key contributes, 0 if the
// key is neither a signer nor the master key.
func (a AccountEntry) SignerWeight(key string) uint8 {
	if key == a.AccountID {
		return a.MasterWeight
	}
	for _, s := range a.Signers {
		if s.Key == key {
			return s.Weight
		}
	}
	return 0
}

// Price is a rational numerator/denominator pair, e.g. an offer's exchange
// rate.
type Price struct {
	N int32
	D int32
}

// TrustLineEntry is the balance/limit state behind an EntryTrustLine key.
type TrustLineEntry struct {
	AccountID  string
	Asset      Asset
	Balance    int64
	Limit      int64
	Authorized bool
}

func (t TrustLineEntry) clone() TrustLineEntry { return t }

// OfferEntry is the price/amount state behind an EntryOffer key.
type OfferEntry struct {
	AccountID string
	OfferID   uint64
	Selling   Asset
	Buying    Asset
	Amount    int64
	Price     Price
}

func (o OfferEntry) clone() OfferEntry { return o }

// LedgerEntry is the concrete state behind a LedgerKey. Exactly one of
// Account, TrustLine, or Offer is set, matching Key.Type. Version is
// incremented on every mutation, per the data model's invariant that
// entries carry a version counter.
type LedgerEntry struct {
	Key       LedgerKey
	Version   uint32
	LastLedger uint32

	Account   *AccountEntry
	TrustLine *TrustLineEntry
	Offer     *OfferEntry
}

func NewAccountLedgerEntry(a AccountEntry) LedgerEntry {
	return LedgerEntry{Key: AccountKey(a.AccountID), Account: &a}
}

func NewTrustLineLedgerEntry(t TrustLineEntry) LedgerEntry {
	return LedgerEntry{Key: TrustLineKey(t.AccountID, t.Asset), TrustLine: &t}
}

func NewOfferLedgerEntry(o OfferEntry) LedgerEntry {
	return LedgerEntry{Key: OfferKey(o.AccountID, o.OfferID), Offer: &o}
}

// Clone returns a deep copy so that a caller's subsequent mutation of the
// entry it handed to a delta cannot retroactively change what the delta
// buffered — the Go analogue of the original's EntryFrame::copy(). The
// copy's Version is one higher than e's; this is how every delta
// mutation bumps the version counter.
func (e LedgerEntry) Clone() LedgerEntry {
	c := e
	c.Version++
	if e.Account != nil {
		acc := e.Account.clone()
		c.Account = &acc
	}
	if e.TrustLine != nil {
		tl := e.TrustLine.clone()
		c.TrustLine = &tl
	}
	if e.Offer != nil {
		of := e.Offer.clone()
		c.Offer = &of
	}
	return c
}

// Equal reports whether two entries carry the same key and payload,
// disregarding Version/LastLedger bookkeeping fields. Used by
// CheckAgainstStore.
func (e LedgerEntry) Equal(o LedgerEntry) bool {
	if e.Key != o.Key {
		return false
	}
	switch e.Key.Type {
	case EntryAccount:
		return e.Account != nil && o.Account != nil && accountsEqual(*e.Account, *o.Account)
	case EntryTrustLine:
		return e.TrustLine != nil && o.TrustLine != nil && *e.TrustLine == *o.TrustLine
	case EntryOffer:
		return e.Offer != nil && o.Offer != nil && *e.Offer == *o.Offer
	default:
		return false
	}
}

func accountsEqual(a, b AccountEntry) bool {
	if a.AccountID != b.AccountID || a.Balance != b.Balance || a.SeqNum != b.SeqNum ||
		a.NumSubEntries != b.NumSubEntries || a.MasterWeight != b.MasterWeight ||
		a.LowThreshold != b.LowThreshold || a.MedThreshold != b.MedThreshold ||
		a.HighThreshold != b.HighThreshold || len(a.Signers) != len(b.Signers) {
		return false
	}
	for i := range a.Signers {
		if a.Signers[i] != b.Signers[i] {
			return false
		}
	}
	return true
}

// LedgerHeader is per-ledger metadata, mutated only through a delta's
// header view. All fields are comparable so the root/nested header-race
// check in LedgerDelta.Commit can use plain ==, mirroring the original's
// xdr::operator==(LedgerHeader, LedgerHeader).
type LedgerHeader struct {
	LedgerSeq           uint32
	PreviousLedgerHash  [32]byte
	TxSetHash           [32]byte
	CloseTime           int64
	BaseFee             int64
	BaseReserve         int64
}
