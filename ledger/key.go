// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package ledger

import "fmt"

// EntryType tags which concrete entry a LedgerKey/LedgerEntry describes.
type EntryType int

const (
	EntryAccount EntryType = iota
	EntryTrustLine
	EntryOffer
)

func (t EntryType) String() string {
	switch t {
	case EntryAccount:
		return "account"
	case EntryTrustLine:
		return "trustline"
	case EntryOffer:
		return "offer"
	default:
		return "unknown"
	}
}

// AssetType distinguishes the native ledger asset from issued credit.
type AssetType int

const (
	AssetNative AssetType = iota
	AssetCredit
)

// Asset identifies either the native balance or an issuer/code credit pair.
// It is a plain comparable struct so it can be embedded directly in a
// LedgerKey and used as a Go map key without any hashing boilerplate.
type Asset struct {
	Type   AssetType
	Code   string
	Issuer string
}

func NativeAsset() Asset { return Asset{Type: AssetNative} }

func CreditAsset(code, issuer string) Asset {
	return Asset{Type: AssetCredit, Code: code, Issuer: issuer}
}

// LedgerKey is the tagged union identifying a ledger entry: Account(id),
// Trustline(accountId, asset), or Offer(accountId, offerId). Every field is
// comparable, so Go's native struct equality gives the structural equality
// and hashing the data model demands for free — no custom Hash/Equals pair
// is needed the way a class-based language would require.
type LedgerKey struct {
	Type      EntryType
	AccountID string
	Asset     Asset
	OfferID   uint64
}

func AccountKey(accountID string) LedgerKey {
	return LedgerKey{Type: EntryAccount, AccountID: accountID}
}

func TrustLineKey(accountID string, asset Asset) LedgerKey {
	return LedgerKey{Type: EntryTrustLine, AccountID: accountID, Asset: asset}
}

func OfferKey(accountID string, offerID uint64) LedgerKey {
	return LedgerKey{Type: EntryOffer, AccountID: accountID, OfferID: offerID}
}

// String renders a canonical, deterministic representation of the key.
// It derives the stable sort order for change logs, and storage/sqlstore
// uses it as the row key of each stored entry.
func (k LedgerKey) String() string {
	switch k.Type {
	case EntryAccount:
		return fmt.Sprintf("account/%s", k.AccountID)
	case EntryTrustLine:
		return fmt.Sprintf("trustline/%s/%d/%s/%s", k.AccountID, k.Asset.Type, k.Asset.Code, k.Asset.Issuer)
	case EntryOffer:
		return fmt.Sprintf("offer/%s/%020d", k.AccountID, k.OfferID)
	default:
		return fmt.Sprintf("unknown/%d", k.Type)
	}
}
