// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package txn

import "github.com/nilsander/ledgerscp/ledger"

// OpKind tags which concrete operation an Operation carries. Represented
// as a tagged variant, mirroring LedgerEntry's Account/TrustLine/Offer
// union in the ledger package.
type OpKind int

const (
	OpCreateAccount OpKind = iota
	OpPayment
	OpAccountMerge
	OpManageOffer
	OpChangeTrust
	OpSetOptions
	OpAllowTrust
	OpInflation
)

type CreateAccountBody struct {
	Destination     string
	StartingBalance int64
}

type PaymentBody struct {
	Destination string
	Asset       ledger.Asset
	Amount      int64
}

type AccountMergeBody struct {
	Destination string
}

// ManageOfferBody with OfferID == 0 creates a new offer; Amount == 0
// deletes an existing one; otherwise it updates it.
type ManageOfferBody struct {
	OfferID uint64
	Selling ledger.Asset
	Buying  ledger.Asset
	Amount  int64
	Price   ledger.Price
}

// ChangeTrustBody with Limit == 0 removes the trustline.
type ChangeTrustBody struct {
	Asset ledger.Asset
	Limit int64
}

type SetOptionsBody struct {
	LowThreshold  *uint8
	MedThreshold  *uint8
	HighThreshold *uint8
	MasterWeight  *uint8
	AddSigner     *ledger.Signer
	RemoveSigner  *string
}

type AllowTrustBody struct {
	Trustor    string
	Asset      ledger.Asset
	Authorize  bool
}

type InflationBody struct{}

// Operation is one entry in a transaction's ordered operation list.
// SourceAccount, when set, overrides the transaction source for this
// operation's threshold checks.
type Operation struct {
	SourceAccount string
	Kind          OpKind

	CreateAccount *CreateAccountBody
	Payment       *PaymentBody
	AccountMerge  *AccountMergeBody
	ManageOffer   *ManageOfferBody
	ChangeTrust   *ChangeTrustBody
	SetOptions    *SetOptionsBody
	AllowTrust    *AllowTrustBody
	Inflation     *InflationBody
}

// TransactionBody is the signed payload of a TransactionEnvelope.
type TransactionBody struct {
	SourceAccount string
	Fee           int64
	SeqNum        int64
	Operations    []Operation
}

// Signature pairs a signer's public key with its signature over the
// envelope's content hash.
type Signature struct {
	SignerKey string
	Sig       []byte
}

// TransactionEnvelope is the signed body plus a set of signatures, per
// spec.md §3.
type TransactionEnvelope struct {
	Body       TransactionBody
	Signatures []Signature
}
