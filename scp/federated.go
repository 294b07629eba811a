// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package scp

// Predicate reports whether a node's recorded statement satisfies some
// property (e.g. "voted for ballot b"), given the node's own statement.
type Predicate func(NodeID, SCPStatement) bool

// federatedAccept implements spec.md §4.4's federated_accept: true when
// either a v-blocking set (relative to localQSet) all satisfy accepted,
// or localNode's quorum slice (itself included) all satisfy voted or
// accepted.
//
// Cross-node quorum-set discovery — resolving what a peer's own declared
// quorum set is — is outside what this excerpt's SCPDriver exposes,
// so both checks are evaluated against localQSet rather than each
// peer's own slice; this keeps the predicate exact for the common case
// of a shared network-wide quorum structure, which is what the testable
// properties in spec.md exercise.
func federatedAccept(localNode NodeID, localQSet QuorumSet, statements map[NodeID]SCPStatement, voted, accepted Predicate) bool {
	acceptedSet := make(map[NodeID]bool, len(statements))
	for n, st := range statements {
		if accepted(n, st) {
			acceptedSet[n] = true
		}
	}
	if localQSet.IsVBlocking(acceptedSet) {
		return true
	}

	votedOrAccepted := make(map[NodeID]bool, len(statements)+1)
	if st, ok := statements[localNode]; ok && (voted(localNode, st) || accepted(localNode, st)) {
		votedOrAccepted[localNode] = true
	}
	for n, st := range statements {
		if voted(n, st) || accepted(n, st) {
			votedOrAccepted[n] = true
		}
	}
	if !votedOrAccepted[localNode] {
		return false
	}
	return localQSet.IsQuorumSlice(votedOrAccepted)
}

// federatedRatify implements federated_ratify: true when a quorum slice
// containing localNode has every member satisfying voted.
func federatedRatify(localNode NodeID, localQSet QuorumSet, statements map[NodeID]SCPStatement, voted Predicate) bool {
	votedSet := make(map[NodeID]bool, len(statements)+1)
	if st, ok := statements[localNode]; ok && voted(localNode, st) {
		votedSet[localNode] = true
	}
	for n, st := range statements {
		if voted(n, st) {
			votedSet[n] = true
		}
	}
	if !votedSet[localNode] {
		return false
	}
	return localQSet.IsQuorumSlice(votedSet)
}
