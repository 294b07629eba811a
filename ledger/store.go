// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package ledger

// EntryStore is the durable keyed storage a LedgerDelta buffers mutations
// against. No transaction semantics are assumed of it; atomicity is
// provided entirely by the delta protocol above it. Concrete
// implementations (e.g. storage/sqlstore.Store) are collaborators, never
// part of the core's decision logic.
type EntryStore interface {
	// Load returns the entry at key, or ok=false if it does not exist.
	Load(key LedgerKey) (entry LedgerEntry, ok bool, err error)
	// Exists reports whether key is present without loading the entry.
	Exists(key LedgerKey) (bool, error)
	// StorePut durably writes entry, creating or overwriting it.
	StorePut(entry LedgerEntry) error
	// StoreDelete durably removes key.
	StoreDelete(key LedgerKey) error
	// FlushCached drops any cached copy of key so the next Load/Exists
	// call observes the durable value. Called by Rollback on every key a
	// rolled-back delta touched.
	FlushCached(key LedgerKey) error
	// Check compares entry against the durable value for the same key and
	// returns a non-nil error if they disagree (or the key is absent).
	Check(entry LedgerEntry) error
	// TrustLinesByAccount returns every trustline entry accountID holds,
	// the Go analogue of TrustFrame::loadLines.
	TrustLinesByAccount(accountID string) ([]LedgerEntry, error)
	// OffersByAccount returns every offer entry accountID owns, the Go
	// analogue of OfferFrame::loadOffers.
	OffersByAccount(accountID string) ([]LedgerEntry, error)
	// IssuedCreditOutstanding reports whether any trustline, anywhere,
	// holds a positive balance of an asset issued by accountID — the Go
	// analogue of TrustFrame::hasIssued.
	IssuedCreditOutstanding(accountID string) (bool, error)
}

// MetricsSink is the injected metrics capability LedgerDelta and the
// OperationFrame family report into. There is no process-wide singleton:
// every apply call receives one explicitly. See metrics.PromSink for the
// Prometheus-backed implementation.
type MetricsSink interface {
	IncCounter(parts ...string)
}

// NopMetrics discards every counter increment. Useful for tests and for
// callers that don't care about metrics.
type NopMetrics struct{}

func (NopMetrics) IncCounter(parts ...string) {}
