// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package cryptosign

import (
	"time"

	"github.com/nilsander/ledgerscp/scp"
)

// SCPAdapter implements scp.SCPDriver on top of Driver's Ed25519/SHA3
// primitives, plus the policy hooks (value validation, candidate
// combination, priority hashing, timers, envelope emission) a consensus
// driver must supply. Timer scheduling and envelope emission are
// delegated to injected funcs rather than hard dependencies, so tests
// and the CLI's simulated transport can each supply their own.
type SCPAdapter struct {
	*Driver

	Combine  func([]scp.Value) scp.Value
	Validate func(slotIndex uint64, v scp.Value) scp.ValidationStatus
	Emit     func(scp.SCPEnvelope)
	Timer    func(slotIndex uint64, timerID string, delay time.Duration, cb func())
}

func (a *SCPAdapter) Sign(stmt scp.SCPStatement) scp.SCPEnvelope {
	digest := Hash(stmt)
	return scp.SCPEnvelope{Statement: stmt, Signature: a.Driver.Sign(digest)}
}

func (a *SCPAdapter) Verify(env scp.SCPEnvelope) bool {
	return a.Driver.VerifyBySignerKey(env.Signature, Hash(env.Statement), string(env.Statement.NodeID))
}

func (a *SCPAdapter) CombineCandidates(candidates []scp.Value) scp.Value {
	return a.Combine(candidates)
}

func (a *SCPAdapter) ValidateValue(slotIndex uint64, v scp.Value) scp.ValidationStatus {
	return a.Validate(slotIndex, v)
}

// ComputeHashNode derives a deterministic priority/neighbor hash from
// the digest of the tuple, the same role hash() plays for message
// integrity elsewhere in this package, repurposed as stellar-core's
// "neighbor" / "priority" hash function for federated voting order.
func (a *SCPAdapter) ComputeHashNode(slotIndex uint64, isPriority bool, round int, node scp.NodeID) uint64 {
	digest := Hash(struct {
		SlotIndex  uint64
		IsPriority bool
		Round      int
		Node       scp.NodeID
	}{slotIndex, isPriority, round, node})
	var h uint64
	for i := 0; i < 8 && i < len(digest); i++ {
		h = h<<8 | uint64(digest[i])
	}
	return h
}

func (a *SCPAdapter) StartTimer(slotIndex uint64, timerID string, delay time.Duration, cb func()) {
	a.Timer(slotIndex, timerID, delay, cb)
}

func (a *SCPAdapter) EmitEnvelope(env scp.SCPEnvelope) {
	a.Emit(env)
}
