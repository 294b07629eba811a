// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package sqlstore

import (
	"path/filepath"
	"testing"

	"github.com/nilsander/ledgerscp/ledger"
)

func TestStorePutLoadDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	entry := ledger.NewAccountLedgerEntry(ledger.AccountEntry{AccountID: "A", Balance: 100})
	if err := s.StorePut(entry); err != nil {
		t.Fatalf("store_put: %v", err)
	}

	got, ok, err := s.Load(entry.Key)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if got.Account.Balance != 100 {
		t.Fatalf("expected balance 100, got %d", got.Account.Balance)
	}

	if err := s.Check(entry); err != nil {
		t.Fatalf("check: %v", err)
	}

	if err := s.StoreDelete(entry.Key); err != nil {
		t.Fatalf("store_delete: %v", err)
	}
	if exists, _ := s.Exists(entry.Key); exists {
		t.Fatalf("expected key removed")
	}
}
