// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nilsander/ledgerscp/config"
	"github.com/nilsander/ledgerscp/ledger"
	"github.com/nilsander/ledgerscp/storage/sqlstore"
)

var verifyDBPath string

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run check_against_store against a sqlstore file",
	RunE:  runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyDBPath, "db", "", "sqlstore database file (defaults to storage.database_path in config)")
}

// runVerify is the paranoid-mode diagnostic (LedgerDelta.CheckAgainstStore)
// exposed as a standalone CLI check: it loads every entry a store holds,
// buffers them into a delta as already-live, and asks the delta to
// confirm they agree with the store they came from. Run after a crash or
// an out-of-band copy of a database file, to catch truncation or partial
// writes before a node trusts it as a starting EntryStore.
func runVerify(cmd *cobra.Command, args []string) error {
	name := cfgName
	if cfgFile != "" {
		name = cfgFile
	}
	cfg, err := config.Load(name, ".")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dbPath := verifyDBPath
	if dbPath == "" {
		dbPath = cfg.DatabasePath
	}

	store, err := sqlstore.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", dbPath, err)
	}
	defer store.Close()

	entries, err := store.All()
	if err != nil {
		return fmt.Errorf("list entries in %s: %w", dbPath, err)
	}

	header := &ledger.LedgerHeader{BaseFee: cfg.BaseFee, BaseReserve: cfg.BaseReserve}
	delta := ledger.OpenRoot(header, store)
	for _, e := range entries {
		if err := delta.AddEntry(e); err != nil {
			return fmt.Errorf("buffer %s: %w", e.Key, err)
		}
	}

	if err := delta.CheckAgainstStore(store); err != nil {
		return fmt.Errorf("%s is inconsistent: %w", dbPath, err)
	}
	_ = delta.Rollback()

	logger.Info("store verified clean", zap.String("db", dbPath), zap.Int("entries", len(entries)))
	return nil
}
