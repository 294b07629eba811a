// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

// Package sqlstore is a modernc.org/sqlite-backed ledger.EntryStore,
// grounded on the hosts package's Store: a mutex-guarded *sql.DB opened
// against a single schema-migrated file, columns holding a JSON-encoded
// payload per row.
package sqlstore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/nilsander/ledgerscp/ledger"
)

const busyTimeoutMs = 5000

// Store is a sqlite-backed EntryStore. It has no caching layer, so
// FlushCached is a no-op — every Load reads through to the database.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	file string
}

func Open(filePath string) (*Store, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("resolve db path: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.Clean(absPath)))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeoutMs)); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &Store{db: db, file: absPath}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS ledger_entries (
		key TEXT PRIMARY KEY,
		payload TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create ledger_entries table: %w", err)
	}
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}
	return nil
}

func (s *Store) Load(key ledger.LedgerKey) (ledger.LedgerEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRow(`SELECT payload FROM ledger_entries WHERE key = ?`, key.String()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.LedgerEntry{}, false, nil
	}
	if err != nil {
		return ledger.LedgerEntry{}, false, fmt.Errorf("load %s: %w", key, err)
	}
	var entry ledger.LedgerEntry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		return ledger.LedgerEntry{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return entry, true, nil
}

func (s *Store) Exists(key ledger.LedgerKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	err := s.db.QueryRow(`SELECT 1 FROM ledger_entries WHERE key = ?`, key.String()).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) StorePut(entry ledger.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode %s: %w", entry.Key, err)
	}
	_, err = s.db.Exec(`INSERT INTO ledger_entries (key, payload) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload`, entry.Key.String(), string(payload))
	if err != nil {
		return fmt.Errorf("store_put %s: %w", entry.Key, err)
	}
	return nil
}

func (s *Store) StoreDelete(key ledger.LedgerKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM ledger_entries WHERE key = ?`, key.String()); err != nil {
		return fmt.Errorf("store_delete %s: %w", key, err)
	}
	return nil
}

// FlushCached is a no-op: this store has no cache of its own, only the
// durable table every Load reads through to.
func (s *Store) FlushCached(ledger.LedgerKey) error { return nil }

// All loads every entry currently in the store, for the verify command's
// whole-file integrity pass. There is no paging: this is a CLI
// diagnostic, not a hot path.
func (s *Store) All() ([]ledger.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT payload FROM ledger_entries`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.LedgerEntry
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		var entry ledger.LedgerEntry
		if err := json.Unmarshal([]byte(payload), &entry); err != nil {
			return nil, fmt.Errorf("decode entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// TrustLinesByAccount, OffersByAccount and IssuedCreditOutstanding all
// scan the whole table via All: this store has no by-account or
// by-issuer column to query against, so account-merge's credit checks
// pay a full scan.

func (s *Store) TrustLinesByAccount(accountID string) ([]ledger.LedgerEntry, error) {
	entries, err := s.All()
	if err != nil {
		return nil, err
	}
	var out []ledger.LedgerEntry
	for _, e := range entries {
		if e.Key.Type == ledger.EntryTrustLine && e.Key.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) OffersByAccount(accountID string) ([]ledger.LedgerEntry, error) {
	entries, err := s.All()
	if err != nil {
		return nil, err
	}
	var out []ledger.LedgerEntry
	for _, e := range entries {
		if e.Key.Type == ledger.EntryOffer && e.Key.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) IssuedCreditOutstanding(accountID string) (bool, error) {
	entries, err := s.All()
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.Key.Type != ledger.EntryTrustLine || e.TrustLine == nil {
			continue
		}
		if e.TrustLine.Asset.Type == ledger.AssetCredit && e.TrustLine.Asset.Issuer == accountID && e.TrustLine.Balance > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) Check(entry ledger.LedgerEntry) error {
	stored, ok, err := s.Load(entry.Key)
	if err != nil {
		return err
	}
	if !ok {
		return ledger.ErrInconsistent
	}
	if !stored.Equal(entry) {
		return ledger.ErrInconsistent
	}
	return nil
}
