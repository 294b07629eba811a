// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package ledger

// MemStore is a minimal in-memory EntryStore, the ledger package's
// analogue of the teacher's memMapNodeStorage test double. It has no
// caching layer of its own, so FlushCached is a no-op; it exists for
// tests and for the CLI's quick-start mode, not as a production store
// (see storage/sqlstore for that).
type MemStore struct {
	entries map[LedgerKey]LedgerEntry
}

func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[LedgerKey]LedgerEntry)}
}

func (s *MemStore) Load(key LedgerKey) (LedgerEntry, bool, error) {
	e, ok := s.entries[key]
	return e, ok, nil
}

func (s *MemStore) Exists(key LedgerKey) (bool, error) {
	_, ok := s.entries[key]
	return ok, nil
}

func (s *MemStore) StorePut(entry LedgerEntry) error {
	s.entries[entry.Key] = entry
	return nil
}

func (s *MemStore) StoreDelete(key LedgerKey) error {
	delete(s.entries, key)
	return nil
}

func (s *MemStore) FlushCached(key LedgerKey) error { return nil }

func (s *MemStore) Check(entry LedgerEntry) error {
	stored, ok := s.entries[entry.Key]
	if !ok {
		return ErrInconsistent
	}
	if !stored.Equal(entry) {
		return ErrInconsistent
	}
	return nil
}

func (s *MemStore) TrustLinesByAccount(accountID string) ([]LedgerEntry, error) {
	var out []LedgerEntry
	for _, e := range s.entries {
		if e.Key.Type == EntryTrustLine && e.Key.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemStore) OffersByAccount(accountID string) ([]LedgerEntry, error) {
	var out []LedgerEntry
	for _, e := range s.entries {
		if e.Key.Type == EntryOffer && e.Key.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemStore) IssuedCreditOutstanding(accountID string) (bool, error) {
	for _, e := range s.entries {
		if e.Key.Type != EntryTrustLine || e.TrustLine == nil {
			continue
		}
		if e.TrustLine.Asset.Type == AssetCredit && e.TrustLine.Asset.Issuer == accountID && e.TrustLine.Balance > 0 {
			return true, nil
		}
	}
	return false, nil
}

// Apply materializes a committed root delta's change log into the store:
// Created/Updated entries are written, Removed keys are deleted. This is
// the "materialized into the EntryStore" step spec.md §2's data-flow
// paragraph describes happening at the outermost commit.
func (s *MemStore) Apply(changes []Change) error {
	for _, c := range changes {
		switch c.Kind {
		case ChangeCreated, ChangeUpdated:
			if err := s.StorePut(c.Entry); err != nil {
				return err
			}
		case ChangeRemoved:
			if err := s.StoreDelete(c.Key); err != nil {
				return err
			}
		}
	}
	return nil
}
