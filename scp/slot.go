// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package scp

import "fmt"

// EnvelopeState is a Slot's verdict on a processed envelope.
type EnvelopeState int

const (
	StatementInvalid EnvelopeState = iota
	StatementValid
)

// Slot owns agreement on a single ledger index: its NominationProtocol,
// its BallotProtocol, and the append-only statement history spec.md
// §4.4 requires. Once its BallotProtocol externalizes, Slot only
// re-emits; no further transition occurs.
type Slot struct {
	Index     uint64
	localNode NodeID
	localQSet QuorumSet
	driver    SCPDriver

	Nomination *NominationProtocol
	Ballot     *BallotProtocol

	statements map[NodeID]SCPStatement
	History    []SCPStatement

	// commitQuorumHash is the companion quorum-set hash for this slot's
	// own outgoing Externalize statement: the first non-empty
	// QuorumSetHash carried by a Confirm or Externalize envelope processed
	// once the ballot protocol has externalized. Once set it is not changed.
	commitQuorumHash string
}

func NewSlot(index uint64, localNode NodeID, localQSet QuorumSet, driver SCPDriver) *Slot {
	return &Slot{
		Index:      index,
		localNode:  localNode,
		localQSet:  localQSet,
		driver:     driver,
		Nomination: NewNominationProtocol(index, localNode, localQSet, driver),
		Ballot:     NewBallotProtocol(index, localNode, localQSet, driver),
		statements: map[NodeID]SCPStatement{},
	}
}

// ProcessEnvelope verifies the envelope's slot index and signature,
// records the statement, and dispatches to the relevant protocol.
func (s *Slot) ProcessEnvelope(env SCPEnvelope) EnvelopeState {
	if env.Statement.SlotIndex != s.Index {
		return StatementInvalid
	}
	if !s.driver.Verify(env) {
		return StatementInvalid
	}
	s.recordStatement(env.Statement)

	switch env.Statement.Phase {
	case PhaseNominate:
		// Vote for every value the peer itself voted for or already
		// accepted — a node that never calls Nominate with the real
		// value directly still needs those values to reach its own
		// votes/accepted sets, or the composite can never form locally.
		for _, v := range env.Statement.Votes {
			s.Nomination.Nominate(v, "", false, s.statements)
		}
		for _, v := range env.Statement.Accepted {
			s.Nomination.Nominate(v, "", false, s.statements)
		}
		if v, ok := s.Nomination.LatestComposite(); ok {
			s.Ballot.BumpState(v, false)
		}
	case PhasePrepare:
		s.Ballot.AdvancePrepare(s.statements)
		s.Ballot.AdvanceCommit(s.statements)
	case PhaseConfirm, PhaseExternalize:
		s.Ballot.AdvanceCommit(s.statements)
		if _, ok := s.Ballot.Externalized(); ok && s.commitQuorumHash == "" {
			s.commitQuorumHash = env.Statement.QuorumSetHash
		}
	}
	return StatementValid
}

// recordStatement keeps only the newest statement per peer — supersession
// by strictly newer phase/ballot, per spec.md §5's ordering guarantee —
// and appends each statement it keeps to the append-only History. A
// statement that is not strictly newer than the peer's recorded one is
// dropped and not appended.
func (s *Slot) recordStatement(st SCPStatement) {
	if prev, ok := s.statements[st.NodeID]; ok && !isNewer(st, prev) {
		return
	}
	s.statements[st.NodeID] = st
	s.History = append(s.History, st)
}

func isNewer(st, prev SCPStatement) bool {
	if st.Phase != prev.Phase {
		return st.Phase > prev.Phase
	}
	return prev.Ballot.Less(st.Ballot)
}

// CreateEnvelope signs st via the injected SCPDriver and stamps the
// companion quorum-set hash rule: the declared quorum set's hash for
// non-Externalize statements, or the frozen commit quorum set hash for
// Externalize.
func (s *Slot) CreateEnvelope(st SCPStatement, declaredQuorumHash string) SCPEnvelope {
	if st.Phase == PhaseExternalize && s.commitQuorumHash != "" {
		st.QuorumSetHash = s.commitQuorumHash
	} else {
		st.QuorumSetHash = declaredQuorumHash
	}
	return s.driver.Sign(st)
}

func (s *Slot) String() string {
	return fmt.Sprintf("slot(%d, node=%s, ballotState=%s)", s.Index, s.localNode, s.Ballot.State)
}
