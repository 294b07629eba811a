// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package scp

import "testing"

func TestNominateRatifiesToComposite(t *testing.T) {
	d := &fakeDriver{}
	qset := QuorumSet{Threshold: 1, Validators: []NodeID{"local"}}
	n := NewNominationProtocol(1, "local", qset, d)

	statements := map[NodeID]SCPStatement{
		"local": {NodeID: "local", Phase: PhaseNominate, Accepted: []Value{"v1"}},
	}
	changed := n.Nominate("v1", "", false, statements)
	if !changed {
		t.Fatalf("expected nominate to change local state")
	}
	if !n.accepted["v1"] {
		t.Fatalf("expected v1 accepted via v-blocking/quorum of size-1 local quorum set")
	}
	composite, ok := n.LatestComposite()
	if !ok || composite != "v1" {
		t.Fatalf("expected composite v1, got %v ok=%v", composite, ok)
	}
	if len(d.emitted) == 0 {
		t.Fatalf("expected an emitted envelope on state change")
	}
}

func TestNominateTimeoutExpandsVotes(t *testing.T) {
	d := &fakeDriver{}
	qset := QuorumSet{Threshold: 2, Validators: []NodeID{"local", "peer"}}
	n := NewNominationProtocol(1, "local", qset, d)

	statements := map[NodeID]SCPStatement{
		"peer": {NodeID: "peer", Phase: PhaseNominate, Accepted: []Value{"peerVal"}},
	}
	n.Nominate("v1", "", true, statements)
	if !n.votes["peerVal"] {
		t.Fatalf("expected timeout to expand votes with peer's accepted value")
	}
}
