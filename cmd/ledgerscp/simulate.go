// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nilsander/ledgerscp/config"
	"github.com/nilsander/ledgerscp/cryptosign"
	"github.com/nilsander/ledgerscp/ledger"
	"github.com/nilsander/ledgerscp/metrics"
	"github.com/nilsander/ledgerscp/scp"
	"github.com/nilsander/ledgerscp/txn"
)

var (
	simNodeCount int
	simSlotIndex uint64
	simTimeout   time.Duration
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run an in-process N-node quorum to externalize one slot and apply its transaction set",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().IntVar(&simNodeCount, "nodes", 4, "number of simulated nodes")
	simulateCmd.Flags().Uint64Var(&simSlotIndex, "slot", 1, "slot index to externalize")
	simulateCmd.Flags().DurationVar(&simTimeout, "timeout", 5*time.Second, "time to wait for externalization")
}

// simNode is one simulated quorum participant: its own signing key,
// SCP slot, and inbox channel. The fan-out across simNode.inbox
// channels is the same chanNodeCommunicator shape node_test.go's
// TestNodeCluster uses to drive a goroutine-per-node cluster over
// buffered channels, generalized here from PBFT's three-phase
// broadcast to SCP's nominate/prepare/confirm envelopes.
type simNode struct {
	id      scp.NodeID
	driver  *cryptosign.Driver
	adapter *cryptosign.SCPAdapter
	slot    *scp.Slot
	store   *ledger.MemStore
	inbox   chan scp.SCPEnvelope
}

func runSimulate(cmd *cobra.Command, args []string) error {
	name := cfgName
	if cfgFile != "" {
		name = cfgFile
	}
	cfg, err := config.Load(name, ".")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.ParanoidMode = cfg.ParanoidMode || paranoid

	n := simNodeCount
	if n < 1 {
		return fmt.Errorf("simulate: --nodes must be at least 1")
	}

	// runID correlates every log line from this run, the same
	// uuid-per-record convention NexusAgentProtocol's registry uses to
	// tag agents and sessions — here it tags one simulated quorum run
	// rather than a stored record.
	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	ids := make([]scp.NodeID, n)
	pubKeys := make(map[string]ed25519.PublicKey, n)
	privKeys := make([]ed25519.PrivateKey, n)
	for i := 0; i < n; i++ {
		ids[i] = scp.NodeID(fmt.Sprintf("node%d", i))
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return fmt.Errorf("generate node key: %w", err)
		}
		pubKeys[string(ids[i])] = pub
		privKeys[i] = priv
	}

	threshold := n/2 + 1
	qset := scp.QuorumSet{Threshold: threshold, Validators: ids}

	sink := metrics.PromSink{}
	nodes := make(map[scp.NodeID]*simNode, n)
	for i := 0; i < n; i++ {
		id := ids[i]
		inbox := make(chan scp.SCPEnvelope, 256*n)
		driver := cryptosign.NewDriver(string(id), privKeys[i], pubKeys)
		store := ledger.NewMemStore()
		seedSimLedger(store)

		nd := &simNode{id: id, driver: driver, store: store, inbox: inbox}
		nd.adapter = &cryptosign.SCPAdapter{
			Driver: driver,
			Combine: func(candidates []scp.Value) scp.Value {
				// Deterministic: lowest value wins, same tie-break
				// CombineCandidates leaves open for a driver to pick.
				best := candidates[0]
				for _, c := range candidates[1:] {
					if c < best {
						best = c
					}
				}
				return best
			},
			Validate: func(uint64, scp.Value) scp.ValidationStatus { return scp.Valid },
			Emit: func(env scp.SCPEnvelope) {
				for _, peer := range nodes {
					peer.inbox <- env
				}
			},
			Timer: func(uint64, string, time.Duration, func()) {},
		}
		nd.slot = scp.NewSlot(simSlotIndex, id, qset, nd.adapter)
		nodes[id] = nd
	}

	txSet := buildSampleTxSet(cfg.BaseFee, cfg.NetworkID)
	value, err := encodeTxSetValue(txSet)
	if err != nil {
		return fmt.Errorf("encode transaction set: %w", err)
	}

	externalized := make(chan scp.Value, n)
	stop := make(chan struct{})
	for _, nd := range nodes {
		go func(nd *simNode) {
			for {
				select {
				case env := <-nd.inbox:
					wasExternalized := nd.slot.Ballot.State == scp.BallotExternalize
					nd.slot.ProcessEnvelope(env)
					if v, ok := nd.slot.Ballot.Externalized(); ok {
						if !wasExternalized {
							metrics.RecordExternalize(string(nd.id))
						}
						select {
						case externalized <- v:
						default:
						}
					}
				case <-stop:
					return
				}
			}
		}(nd)
	}
	defer close(stop)

	leader := nodes[ids[0]]
	leader.slot.Nomination.Nominate(value, "", false, map[scp.NodeID]scp.SCPStatement{})

	select {
	case v := <-externalized:
		logger.Info("slot externalized", zap.Uint64("slot", simSlotIndex), zap.Int("nodes", n))
		return applyExternalizedValue(v, nodes, cfg, sink)
	case <-time.After(simTimeout):
		return fmt.Errorf("simulate: slot %d did not externalize within %s", simSlotIndex, simTimeout)
	}
}

// seedSimLedger preloads a root account with enough balance to fund the
// demo transaction set, the same bootstrap role stellar-core's genesis
// ledger entry plays for an otherwise empty chain.
func seedSimLedger(store *ledger.MemStore) {
	root := ledger.AccountEntry{
		AccountID:     "root",
		Balance:       1_000_000_000,
		SeqNum:        0,
		MasterWeight:  1,
		LowThreshold:  0,
		MedThreshold:  0,
		HighThreshold: 0,
	}
	_ = store.StorePut(ledger.NewAccountLedgerEntry(root))
}

// buildSampleTxSet produces a single transaction creating one new
// account from "root", the smallest externalizable set that exercises
// both fee processing and an operation apply.
func buildSampleTxSet(baseFee int64, networkID string) []txn.TransactionEnvelope {
	body := txn.TransactionBody{
		SourceAccount: "root",
		Fee:           baseFee,
		SeqNum:        1,
		Operations: []txn.Operation{
			{
				SourceAccount: "root",
				Kind:          txn.OpCreateAccount,
				CreateAccount: &txn.CreateAccountBody{Destination: "alice", StartingBalance: 10_000_000},
			},
		},
	}
	digest := (&txn.TransactionFrame{
		DigestFuncSet: txn.DigestFuncSet{Hash: cryptosign.Hash},
		NetworkID:     networkID,
		Envelope:      txn.TransactionEnvelope{Body: body},
	}).ContentHash()
	return []txn.TransactionEnvelope{{
		Body:       body,
		Signatures: []txn.Signature{{SignerKey: "root", Sig: rootSignaturePlaceholder(digest)}},
	}}
}

// rootSignaturePlaceholder signs with a fixed demo key so every
// simulated node's SignerLookup resolves the same public key for
// "root" regardless of which node applies the set; see
// applyExternalizedValue's AccountLookup/SignerLookup wiring below.
func rootSignaturePlaceholder(digest []byte) []byte {
	return ed25519.Sign(simRootKey, digest)
}

var simRootPub, simRootKey, _ = ed25519.GenerateKey(rand.Reader)

func encodeTxSetValue(txSet []txn.TransactionEnvelope) (scp.Value, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(txSet); err != nil {
		return "", err
	}
	return scp.Value(hex.EncodeToString(buf.Bytes())), nil
}

func decodeTxSetValue(v scp.Value) ([]txn.TransactionEnvelope, error) {
	raw, err := hex.DecodeString(string(v))
	if err != nil {
		return nil, err
	}
	var txSet []txn.TransactionEnvelope
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&txSet); err != nil {
		return nil, err
	}
	return txSet, nil
}

// applyExternalizedValue replays the agreed transaction set against
// every node's own store independently, the state-machine-replication
// step that follows externalization: agreement on the value is SCP's
// job, applying it deterministically everywhere is the ledger package's.
func applyExternalizedValue(v scp.Value, nodes map[scp.NodeID]*simNode, cfg *config.Config, sink metrics.PromSink) error {
	txSet, err := decodeTxSetValue(v)
	if err != nil {
		return fmt.Errorf("decode externalized value: %w", err)
	}

	for id, nd := range nodes {
		header := &ledger.LedgerHeader{LedgerSeq: uint32(simSlotIndex), BaseFee: cfg.BaseFee, BaseReserve: cfg.BaseReserve}
		store := nd.store
		delta := ledger.OpenRoot(header, store)

		applyErr := func() error {
			for _, env := range txSet {
				frame := &txn.TransactionFrame{
					DigestFuncSet: txn.DigestFuncSet{Hash: cryptosign.Hash},
					PubkeyFuncSet: txn.PubkeyFuncSet{Verify: cryptosign.Verify},
					NetworkID:     cfg.NetworkID,
					Envelope:      env,
					Accounts: func(accountID string) (ledger.AccountEntry, bool, error) {
						e, ok, err := store.Load(ledger.AccountKey(accountID))
						if err != nil || !ok || e.Account == nil {
							return ledger.AccountEntry{}, false, err
						}
						return *e.Account, true, nil
					},
					Signers: func(signerKey string) ([]byte, bool) {
						if signerKey == "root" {
							return []byte(simRootPub), true
						}
						return nil, false
					},
				}
				res := frame.Apply(delta, store, sink, cfg.BaseFee)
				if res.Code != txn.TxSuccess {
					return fmt.Errorf("apply tx on %s: %s", id, res.Code)
				}
				logger.Debug("applied transaction",
					zap.String("node", string(id)),
					zap.String("full_hash", hex.EncodeToString(frame.FullHash())))
			}
			return nil
		}()
		if applyErr != nil {
			_ = delta.Rollback()
			return applyErr
		}

		// Materialize into the durable store before CommitRoot's paranoid
		// check, which re-reads every touched key from store.
		if err := store.Apply(delta.GetChanges()); err != nil {
			return fmt.Errorf("materialize changes on %s: %w", id, err)
		}
		if err := delta.CommitRoot(sink, store, cfg.ParanoidMode); err != nil {
			return fmt.Errorf("commit root on %s: %w", id, err)
		}
		logger.Info("node applied externalized transaction set", zap.String("node", string(id)))
	}
	return nil
}
