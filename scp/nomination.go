// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package scp

// NominationProtocol is the per-slot value-nomination state machine
// described in spec.md §4.4. It owns no timer, and neither does Slot:
// nothing in this package schedules TimerNomination. The timedOut
// expansion of votes happens only when a caller passes timedOut=true.
type NominationProtocol struct {
	slotIndex uint64
	localNode NodeID
	localQSet QuorumSet
	driver    SCPDriver

	votes      map[Value]bool
	accepted   map[Value]bool
	candidates map[Value]bool

	latestComposite Value
}

func NewNominationProtocol(slotIndex uint64, localNode NodeID, localQSet QuorumSet, driver SCPDriver) *NominationProtocol {
	return &NominationProtocol{
		slotIndex: slotIndex,
		localNode: localNode,
		localQSet: localQSet,
		driver:    driver,
		votes:     map[Value]bool{},
		accepted:  map[Value]bool{},
		candidates: map[Value]bool{},
	}
}

func (n *NominationProtocol) LatestComposite() (Value, bool) {
	return n.latestComposite, n.latestComposite != ""
}

func votedForNomination(v Value) Predicate {
	return func(_ NodeID, st SCPStatement) bool {
		if st.Phase != PhaseNominate {
			return false
		}
		for _, x := range st.Votes {
			if x == v {
				return true
			}
		}
		return false
	}
}

func acceptedForNomination(v Value) Predicate {
	return func(_ NodeID, st SCPStatement) bool {
		if st.Phase != PhaseNominate {
			return false
		}
		for _, x := range st.Accepted {
			if x == v {
				return true
			}
		}
		return false
	}
}

// Nominate processes a local vote for value, folding in peer statements
// to advance votes toward accepted and accepted toward candidates, then
// emits an updated Nominate statement if local state changed. previousValue
// is accepted for forward-compatibility with priority-based nomination
// policy; this core always votes for value directly.
func (n *NominationProtocol) Nominate(value Value, previousValue Value, timedOut bool, statements map[NodeID]SCPStatement) bool {
	changed := false

	if value != "" && !n.votes[value] && !n.accepted[value] {
		if n.driver.ValidateValue(n.slotIndex, value) != Invalid {
			n.votes[value] = true
			changed = true
		}
	}

	for v := range n.votes {
		if n.accepted[v] {
			continue
		}
		if federatedAccept(n.localNode, n.localQSet, statements, votedForNomination(v), acceptedForNomination(v)) {
			delete(n.votes, v)
			n.accepted[v] = true
			changed = true
		}
	}

	for v := range n.accepted {
		if n.candidates[v] {
			continue
		}
		if federatedRatify(n.localNode, n.localQSet, statements, acceptedForNomination(v)) {
			n.candidates[v] = true
			changed = true
		}
	}

	if changed && len(n.candidates) > 0 {
		composite := make([]Value, 0, len(n.candidates))
		for v := range n.candidates {
			composite = append(composite, v)
		}
		n.latestComposite = n.driver.CombineCandidates(composite)
	}

	if timedOut && len(n.candidates) == 0 {
		for _, st := range statements {
			for _, v := range st.Accepted {
				if !n.votes[v] {
					n.votes[v] = true
					changed = true
				}
			}
		}
	}

	if changed {
		n.emit()
	}
	return changed
}

func (n *NominationProtocol) emit() {
	st := SCPStatement{
		NodeID:    n.localNode,
		SlotIndex: n.slotIndex,
		Phase:     PhaseNominate,
		Votes:     setToSlice(n.votes),
		Accepted:  setToSlice(n.accepted),
	}
	n.driver.EmitEnvelope(n.driver.Sign(st))
}

func setToSlice(m map[Value]bool) []Value {
	s := make([]Value, 0, len(m))
	for v := range m {
		s = append(s, v)
	}
	return s
}
