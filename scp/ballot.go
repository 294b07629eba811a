// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package scp

// BallotState is one of Prepare, Confirm, Externalize per spec.md §4.4.
type BallotState int

const (
	BallotPrepare BallotState = iota
	BallotConfirm
	BallotExternalize
)

func (s BallotState) String() string {
	switch s {
	case BallotPrepare:
		return "Prepare"
	case BallotConfirm:
		return "Confirm"
	case BallotExternalize:
		return "Externalize"
	default:
		return "Unknown"
	}
}

// BallotProtocol is the per-slot ballot state machine. Once State
// reaches BallotExternalize, the externalized value is immutable and
// every further call is a no-op: nothing changes and nothing is emitted.
type BallotProtocol struct {
	slotIndex uint64
	localNode NodeID
	localQSet QuorumSet
	driver    SCPDriver

	State   BallotState
	current Ballot

	// prepared ("p") and preparedPrime ("p'", disjoint second-highest)
	prepared      Ballot
	preparedPrime Ballot
	// confirmed marks confirm-prepare: once federated_ratify(accepted_prepare(b))
	// holds, the Prepare phase is done and State advances to BallotConfirm
	// independent of any commit progress.
	confirmed bool

	// commit range accepted for current.Value: [commitN, highN]
	commitN uint32
	highN   uint32
	hasC    bool

	externalized Value

	// History is the append-only statement log the invariant in
	// spec.md §4.4 requires: a statement is only emitted when state
	// changes, but every emission is recorded here regardless.
	History []SCPStatement
}

func NewBallotProtocol(slotIndex uint64, localNode NodeID, localQSet QuorumSet, driver SCPDriver) *BallotProtocol {
	return &BallotProtocol{slotIndex: slotIndex, localNode: localNode, localQSet: localQSet, driver: driver}
}

// BumpState adopts value as the working ballot if none is prepared yet,
// or unconditionally when force is set, then re-emits. Returns false if
// the protocol has already externalized, or a value is already being
// prepared and force is unset.
func (b *BallotProtocol) BumpState(value Value, force bool) bool {
	if b.State == BallotExternalize {
		return false
	}
	if !b.current.IsZero() && !force {
		return false
	}
	counter := b.current.Counter
	if counter == 0 {
		counter = 1
	}
	b.current = Ballot{Counter: counter, Value: value}
	b.emitPrepare()
	return true
}

// AbandonBallot bumps the counter unconditionally — monotone, never
// decreases — and re-emits, the effect of BALLOT_PROTOCOL_TIMER expiry.
func (b *BallotProtocol) AbandonBallot() {
	if b.State == BallotExternalize {
		return
	}
	b.current.Counter++
	b.emitPrepare()
}

func votedPrepare(target Ballot) Predicate {
	return func(_ NodeID, st SCPStatement) bool {
		return st.Phase != PhaseNominate && st.Ballot.Equal(target)
	}
}

func acceptedPrepare(target Ballot) Predicate {
	return func(_ NodeID, st SCPStatement) bool {
		return st.Phase != PhaseNominate && (st.Prepared.Equal(target) || st.PreparedPrime.Equal(target))
	}
}

// AdvancePrepare runs accept-prepare / confirm-prepare against the given
// peer statement set for the local node's current ballot. It emits only
// when prepared, preparedPrime, or State actually changed — spec.md
// §4.4's "a statement is only emitted when internal state changes."
func (b *BallotProtocol) AdvancePrepare(statements map[NodeID]SCPStatement) {
	if b.State != BallotPrepare || b.current.IsZero() {
		return
	}
	target := b.current
	prevPrepared, prevPreparedPrime, prevState := b.prepared, b.preparedPrime, b.State

	if federatedAccept(b.localNode, b.localQSet, statements, votedPrepare(target), acceptedPrepare(target)) {
		if b.prepared.IsZero() || b.prepared.Less(target) {
			if !b.prepared.IsZero() && b.prepared.Value != target.Value {
				b.preparedPrime = b.prepared
			}
			b.prepared = target
		}
	}

	if !b.confirmed && !b.prepared.IsZero() && federatedRatify(b.localNode, b.localQSet, statements, acceptedPrepare(b.prepared)) {
		b.confirmed = true
		b.State = BallotConfirm
	}

	if !b.prepared.Equal(prevPrepared) || !b.preparedPrime.Equal(prevPreparedPrime) || b.State != prevState {
		b.emitPrepare()
	}
}

func votedCommit(target Ballot) Predicate {
	return func(_ NodeID, st SCPStatement) bool {
		return st.Phase != PhaseNominate && st.Ballot.Value == target.Value && st.Ballot.Counter >= target.Counter && st.NHigh > 0
	}
}

func acceptedCommit(target Ballot) Predicate {
	return func(_ NodeID, st SCPStatement) bool {
		return st.Phase != PhaseNominate && st.Ballot.Value == target.Value &&
			st.NCommit > 0 && st.NCommit <= target.Counter && target.Counter <= st.NHigh
	}
}

// AdvanceCommit runs accept-commit / confirm-commit for the local
// node's current ballot, externalizing on ratification. It emits only
// when commitN, highN, or State actually changed — spec.md §4.4's
// "a statement is only emitted when internal state changes."
func (b *BallotProtocol) AdvanceCommit(statements map[NodeID]SCPStatement) {
	if b.State == BallotExternalize || b.current.IsZero() {
		return
	}
	target := b.current
	prevCommitN, prevHighN, prevState := b.commitN, b.highN, b.State

	if federatedAccept(b.localNode, b.localQSet, statements, votedCommit(target), acceptedCommit(target)) {
		if !b.hasC || target.Counter < b.commitN {
			b.commitN = target.Counter
		}
		if target.Counter > b.highN {
			b.highN = target.Counter
		}
		b.hasC = true
		b.State = BallotConfirm
	}

	if b.hasC && federatedRatify(b.localNode, b.localQSet, statements, acceptedCommit(target)) {
		b.State = BallotExternalize
		b.externalized = target.Value
	}

	if b.commitN != prevCommitN || b.highN != prevHighN || b.State != prevState {
		b.emitPrepare()
	}
}

func (b *BallotProtocol) Externalized() (Value, bool) {
	return b.externalized, b.State == BallotExternalize
}

func (b *BallotProtocol) emitPrepare() {
	phase := PhasePrepare
	switch b.State {
	case BallotConfirm:
		phase = PhaseConfirm
	case BallotExternalize:
		phase = PhaseExternalize
	}
	st := SCPStatement{
		NodeID:        b.localNode,
		SlotIndex:     b.slotIndex,
		Phase:         phase,
		Ballot:        b.current,
		Prepared:      b.prepared,
		PreparedPrime: b.preparedPrime,
		NCommit:       b.commitN,
		NHigh:         b.highN,
	}
	b.History = append(b.History, st)
	b.driver.EmitEnvelope(b.driver.Sign(st))
}
