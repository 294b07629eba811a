// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

// Package config loads node configuration via Viper, the same
// SetDefault/ReadInConfig convention the registry's main.go uses.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// NodeTopology describes one peer in the local quorum set, resolved
// from "quorum.peers" in the loaded config.
type NodeTopology struct {
	ID        string `mapstructure:"id"`
	PublicKey string `mapstructure:"public_key"`
	Weight    int    `mapstructure:"weight"`
}

// Config is the node's resolved, typed configuration.
type Config struct {
	ParanoidMode bool

	NetworkID   string
	BaseFee     int64
	BaseReserve int64

	QuorumThreshold int
	Topology        []NodeTopology

	DatabasePath string
	ListenAddr   string
}

// Load reads config via Viper from the given name/paths, applying
// defaults first so a missing config file (or missing keys within one)
// still yields a usable Config.
func Load(configName string, paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("paranoid_mode", false)
	v.SetDefault("network.id", "ledgerscp testnet")
	v.SetDefault("ledger.base_fee", 100)
	v.SetDefault("ledger.base_reserve", 5000000)
	v.SetDefault("quorum.threshold", 1)
	v.SetDefault("quorum.peers", []map[string]any{})
	v.SetDefault("storage.database_path", "ledgerscp.db")
	v.SetDefault("server.listen_addr", ":8900")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var topology []NodeTopology
	if err := v.UnmarshalKey("quorum.peers", &topology); err != nil {
		return nil, fmt.Errorf("parse quorum.peers: %w", err)
	}

	return &Config{
		ParanoidMode:    v.GetBool("paranoid_mode"),
		NetworkID:       v.GetString("network.id"),
		BaseFee:         v.GetInt64("ledger.base_fee"),
		BaseReserve:     v.GetInt64("ledger.base_reserve"),
		QuorumThreshold: v.GetInt("quorum.threshold"),
		Topology:        topology,
		DatabasePath:    v.GetString("storage.database_path"),
		ListenAddr:      v.GetString("server.listen_addr"),
	}, nil
}
