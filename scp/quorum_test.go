// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package scp

import "testing"

// S6: local quorum set threshold=3 of {N1,N2,N3}. N1 and N2 accept
// ballot b. {N1,N2} is v-blocking (any quorum slice must include one of
// them), so federated_accept must return true even with no full quorum.
func TestFederatedAcceptViaVBlocking(t *testing.T) {
	qset := QuorumSet{Threshold: 3, Validators: []NodeID{"N1", "N2", "N3"}}
	b := Ballot{Counter: 1, Value: "v"}

	statements := map[NodeID]SCPStatement{
		"N1": {NodeID: "N1", Phase: PhasePrepare, Ballot: b, Prepared: b},
		"N2": {NodeID: "N2", Phase: PhasePrepare, Ballot: b, Prepared: b},
	}

	ok := federatedAccept("local", qset, statements, votedPrepare(b), acceptedPrepare(b))
	if !ok {
		t.Fatalf("expected federated_accept to hold via v-blocking {N1,N2}")
	}
}

func TestIsVBlocking(t *testing.T) {
	qset := QuorumSet{Threshold: 3, Validators: []NodeID{"N1", "N2", "N3"}}
	if !qset.IsVBlocking(map[NodeID]bool{"N1": true}) {
		t.Fatalf("a single node should be v-blocking against threshold 3 of 3: the only slice is {N1,N2,N3}, which contains it")
	}
	if !qset.IsVBlocking(map[NodeID]bool{"N1": true, "N2": true}) {
		t.Fatalf("{N1,N2} should be v-blocking: total=3, threshold=3, every slice needs 3, so missing 1 blocks all slices not containing N1 or N2... expected true")
	}
}

func TestIsQuorumSlice(t *testing.T) {
	qset := QuorumSet{Threshold: 2, Validators: []NodeID{"N1", "N2", "N3"}}
	if qset.IsQuorumSlice(map[NodeID]bool{"N1": true}) {
		t.Fatalf("single node should not satisfy threshold 2")
	}
	if !qset.IsQuorumSlice(map[NodeID]bool{"N1": true, "N2": true}) {
		t.Fatalf("two of three should satisfy threshold 2")
	}
}

func TestNestedQuorumSet(t *testing.T) {
	qset := QuorumSet{
		Threshold: 2,
		InnerSets: []QuorumSet{
			{Threshold: 2, Validators: []NodeID{"A1", "A2", "A3"}},
			{Threshold: 2, Validators: []NodeID{"B1", "B2", "B3"}},
		},
	}
	nodes := map[NodeID]bool{"A1": true, "A2": true}
	if qset.IsQuorumSlice(nodes) {
		t.Fatalf("satisfying one inner set fully counts as only 1 of the 2 top-level members threshold 2 needs")
	}
	if !qset.IsVBlocking(nodes) {
		t.Fatalf("{A1,A2} should be v-blocking: every top-level slice needs inner set A, and every 2-of-3 slice of A contains A1 or A2")
	}
}
