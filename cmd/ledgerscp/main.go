// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile    string
	cfgName    = "ledgerscp"
	logger     *zap.Logger
	paranoid   bool
)

func main() {
	var err error
	logger, err = zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := rootCmd.Execute(); err != nil {
		logger.Fatal("ledgerscp exited with error", zap.Error(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "ledgerscp",
	Short: "A decentralized payment ledger consensus and state-mutation core",
	Long: `ledgerscp drives federated-agreement consensus over transaction sets and
applies the resulting ledger mutations through a nested transactional
delta, as described in the accompanying design.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file name (without extension)")
	rootCmd.PersistentFlags().BoolVar(&paranoid, "paranoid", false, "re-validate every committed delta against the entry store")

	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(verifyCmd)
}
