// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package scp

import (
	"testing"
	"time"
)

type fakeDriver struct {
	emitted []SCPEnvelope
}

func (d *fakeDriver) Sign(stmt SCPStatement) SCPEnvelope        { return SCPEnvelope{Statement: stmt} }
func (d *fakeDriver) Verify(env SCPEnvelope) bool                { return true }
func (d *fakeDriver) CombineCandidates(candidates []Value) Value { return candidates[0] }
func (d *fakeDriver) ValidateValue(slotIndex uint64, v Value) ValidationStatus { return Valid }
func (d *fakeDriver) ComputeHashNode(slotIndex uint64, isPriority bool, round int, node NodeID) uint64 {
	return 0
}
func (d *fakeDriver) StartTimer(slotIndex uint64, timerID string, delay time.Duration, cb func()) {}
func (d *fakeDriver) EmitEnvelope(env SCPEnvelope)                                                { d.emitted = append(d.emitted, env) }

// Property 8: counters are monotone per slot — AbandonBallot never
// decreases the counter, even across repeated calls.
func TestBallotCounterMonotone(t *testing.T) {
	d := &fakeDriver{}
	qset := QuorumSet{Threshold: 1, Validators: []NodeID{"local"}}
	b := NewBallotProtocol(1, "local", qset, d)
	b.BumpState("v", false)

	last := b.current.Counter
	for i := 0; i < 5; i++ {
		b.AbandonBallot()
		if b.current.Counter <= last {
			t.Fatalf("counter did not increase: %d -> %d", last, b.current.Counter)
		}
		last = b.current.Counter
	}
}

// Property 9: once externalized, the value cannot change on further
// envelope processing — safety.
func TestExternalizedValueImmutable(t *testing.T) {
	d := &fakeDriver{}
	qset := QuorumSet{Threshold: 1, Validators: []NodeID{"local"}}
	b := NewBallotProtocol(1, "local", qset, d)
	b.BumpState("v1", false)

	target := b.current
	statements := map[NodeID]SCPStatement{
		"local": {NodeID: "local", Phase: PhasePrepare, Ballot: target, NCommit: target.Counter, NHigh: target.Counter},
	}
	b.AdvanceCommit(statements)
	v, ok := b.Externalized()
	if !ok || v != "v1" {
		t.Fatalf("expected externalized v1, got %v ok=%v", v, ok)
	}

	// Further processing must not change the externalized value.
	b.AdvanceCommit(statements)
	v2, ok2 := b.Externalized()
	if !ok2 || v2 != v {
		t.Fatalf("externalized value changed: %v -> %v", v, v2)
	}
	if b.BumpState("v2", true) {
		t.Fatalf("BumpState must be rejected after externalization")
	}
}

// Property 10: every emission is appended to History, and History is
// never truncated or rewritten by later calls.
func TestHistoryAppendOnly(t *testing.T) {
	d := &fakeDriver{}
	qset := QuorumSet{Threshold: 1, Validators: []NodeID{"local"}}
	b := NewBallotProtocol(1, "local", qset, d)
	b.BumpState("v", false)
	b.AbandonBallot()
	b.AbandonBallot()

	if len(b.History) != 3 {
		t.Fatalf("expected 3 history entries, got %d", len(b.History))
	}
	snapshot := make([]Ballot, len(b.History))
	for i, st := range b.History {
		snapshot[i] = st.Ballot
	}
	b.AbandonBallot()
	for i, want := range snapshot {
		if b.History[i].Ballot != want {
			t.Fatalf("history entry %d was mutated", i)
		}
	}
}
