// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"errors"
	"fmt"
)

type deltaState int

const (
	deltaOpen deltaState = iota
	deltaCommitted
	deltaRolledBack
)

// LedgerDelta is the transactional write-set buffer described by the data
// model: New/Mod/Dead sets keyed by LedgerKey, nestable under an outer
// delta or bound to the canonical header at the root.
//
// The core is specified as single-threaded cooperative (no mutation here
// may suspend, and nothing here is called from more than one goroutine at
// a time), so unlike the teacher's Handler this type carries no mutex.
type LedgerDelta struct {
	state deltaState

	outer  *LedgerDelta
	header *LedgerHeader // points into outer.currentHeader, or the root's canonical header
	store  EntryStore

	currentHeader       LedgerHeader
	previousHeaderValue LedgerHeader

	newEntries  map[LedgerKey]LedgerEntry
	modEntries  map[LedgerKey]LedgerEntry
	deadEntries map[LedgerKey]struct{}
}

// Open creates a nested delta whose header view is initialized from the
// parent's current header, capturing a snapshot for the commit-time
// header-race check.
func Open(parent *LedgerDelta) *LedgerDelta {
	return &LedgerDelta{
		state:               deltaOpen,
		outer:               parent,
		header:              &parent.currentHeader,
		store:               parent.store,
		currentHeader:       parent.currentHeader,
		previousHeaderValue: parent.currentHeader,
		newEntries:          make(map[LedgerKey]LedgerEntry),
		modEntries:          make(map[LedgerKey]LedgerEntry),
		deadEntries:         make(map[LedgerKey]struct{}),
	}
}

// OpenRoot creates a root delta bound to the canonical header and an
// EntryStore. header is mutated in place by Commit.
func OpenRoot(header *LedgerHeader, store EntryStore) *LedgerDelta {
	return &LedgerDelta{
		state:               deltaOpen,
		outer:               nil,
		header:              header,
		store:               store,
		currentHeader:       *header,
		previousHeaderValue: *header,
		newEntries:          make(map[LedgerKey]LedgerEntry),
		modEntries:          make(map[LedgerKey]LedgerEntry),
		deadEntries:         make(map[LedgerKey]struct{}),
	}
}

// IsRoot reports whether this delta is bound directly to the canonical
// header, rather than nested inside another delta.
func (d *LedgerDelta) IsRoot() bool { return d.outer == nil }

// Header returns the delta's working header view. Mutate it through this
// pointer; the mutation is only visible outside the delta once Commit
// succeeds.
func (d *LedgerDelta) Header() *LedgerHeader { return &d.currentHeader }

func (d *LedgerDelta) checkOpen(op string) error {
	if d.state != deltaOpen {
		return fmt.Errorf("%w: %s on a delta that is not Open", ErrInvalidOp, op)
	}
	return nil
}

// AddEntry promotes entry e. A prior delete of the same key collapses
// into an update (delete-then-add ≡ mod); otherwise e must be wholly new
// to this delta.
func (d *LedgerDelta) AddEntry(e LedgerEntry) error {
	if err := d.checkOpen("add_entry"); err != nil {
		return err
	}
	k := e.Key
	if _, ok := d.deadEntries[k]; ok {
		delete(d.deadEntries, k)
		d.modEntries[k] = e.Clone()
		return nil
	}
	if _, ok := d.newEntries[k]; ok {
		return fmt.Errorf("%w: add_entry: %s already New", ErrInvalidOp, k)
	}
	if _, ok := d.modEntries[k]; ok {
		return fmt.Errorf("%w: add_entry: %s already Mod", ErrInvalidOp, k)
	}
	d.newEntries[k] = e.Clone()
	return nil
}

// DeleteEntry removes k. If k was created by this delta, the create and
// delete cancel and k leaves the delta untouched; otherwise k moves (or
// is added) to Dead.
func (d *LedgerDelta) DeleteEntry(k LedgerKey) error {
	if err := d.checkOpen("delete_entry"); err != nil {
		return err
	}
	if _, ok := d.newEntries[k]; ok {
		delete(d.newEntries, k)
		return nil
	}
	if _, ok := d.deadEntries[k]; ok {
		return fmt.Errorf("%w: delete_entry: %s already Dead", ErrInvalidOp, k)
	}
	delete(d.modEntries, k)
	d.deadEntries[k] = struct{}{}
	return nil
}

// ModEntry overwrites the stored value for e's key if it is already Mod
// or New; otherwise it must not be Dead, and it becomes Mod.
func (d *LedgerDelta) ModEntry(e LedgerEntry) error {
	if err := d.checkOpen("mod_entry"); err != nil {
		return err
	}
	k := e.Key
	if _, ok := d.modEntries[k]; ok {
		d.modEntries[k] = e.Clone()
		return nil
	}
	if _, ok := d.newEntries[k]; ok {
		d.newEntries[k] = e.Clone()
		return nil
	}
	if _, ok := d.deadEntries[k]; ok {
		return fmt.Errorf("%w: mod_entry: %s is Dead", ErrInvalidOp, k)
	}
	d.modEntries[k] = e.Clone()
	return nil
}

// Merge folds other's Dead, then New, then Mod into d, in that order —
// the ordering is a contract: deletes first preserves the collapse rules
// the single-entry operations implement above.
func (d *LedgerDelta) Merge(other *LedgerDelta) error {
	if err := d.checkOpen("merge"); err != nil {
		return err
	}
	for _, k := range sortedDeadKeys(other.deadEntries) {
		if err := d.DeleteEntry(k); err != nil {
			return err
		}
	}
	for _, k := range sortedKeys(other.newEntries) {
		if err := d.AddEntry(other.newEntries[k]); err != nil {
			return err
		}
	}
	for _, k := range sortedKeys(other.modEntries) {
		if err := d.ModEntry(other.modEntries[k]); err != nil {
			return err
		}
	}
	return nil
}

// Commit requires the delta to be Open and the parent header to be
// unchanged since Open (otherwise ErrHeaderRace). On success, if nested
// it merges into the outer delta and detaches; if root it publishes the
// new header into the canonical slot. Either way it transitions to
// Committed.
//
// On ErrHeaderRace the delta is left Open — per spec.md §9, the check
// is structural and must remain even when it looks redundant; callers
// must explicitly Rollback rather than retry Commit.
func (d *LedgerDelta) Commit() error {
	if err := d.checkOpen("commit"); err != nil {
		return err
	}
	if d.previousHeaderValue != *d.header {
		return ErrHeaderRace
	}
	if d.outer != nil {
		if err := d.outer.Merge(d); err != nil {
			return err
		}
		d.outer = nil
	}
	*d.header = d.currentHeader
	d.state = deltaCommitted
	return nil
}

// Rollback invalidates any cached entry in the EntryStore for every key
// this delta touched (New ∪ Mod ∪ Dead), so subsequent reads hit the
// durable store, discards the buffered New/Mod/Dead sets so the delta
// reports no changes, and transitions to RolledBack. It is safe to call on
// an already-terminal delta — a no-op, matching the Close()-is-idempotent
// idiom a scoped resource needs so deferred cleanup never panics.
func (d *LedgerDelta) Rollback() error {
	if d.state != deltaOpen {
		return nil
	}
	d.state = deltaRolledBack

	var errs []error
	touched := make(map[LedgerKey]struct{}, len(d.newEntries)+len(d.modEntries)+len(d.deadEntries))
	for k := range d.newEntries {
		touched[k] = struct{}{}
	}
	for k := range d.modEntries {
		touched[k] = struct{}{}
	}
	for k := range d.deadEntries {
		touched[k] = struct{}{}
	}
	if d.store != nil {
		for _, k := range sortedDeadKeys(touched) {
			if err := d.store.FlushCached(k); err != nil {
				errs = append(errs, err)
			}
		}
	}
	d.newEntries = make(map[LedgerKey]LedgerEntry)
	d.modEntries = make(map[LedgerKey]LedgerEntry)
	d.deadEntries = make(map[LedgerKey]struct{})
	return errors.Join(errs...)
}

// CheckAgainstStore is the paranoid-mode diagnostic: each live entry must
// exist and equal the stored version; each dead key must not exist.
func (d *LedgerDelta) CheckAgainstStore(store EntryStore) error {
	for _, e := range d.GetLiveEntries() {
		if err := store.Check(e); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInconsistent, e.Key, err)
		}
	}
	for _, k := range d.GetDeadEntries() {
		exists, err := store.Exists(k)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s should not exist in store", ErrInconsistent, k)
		}
	}
	return nil
}

// markMeters increments a {"ledger", <kind>, "add"|"modify"|"delete"}
// counter for every key touched, the Go shape of the original
// LedgerDelta::markMeters(Application&).
func (d *LedgerDelta) markMeters(sink MetricsSink) {
	if sink == nil {
		return
	}
	for k := range d.newEntries {
		sink.IncCounter("ledger", k.Type.String(), "add")
	}
	for k := range d.modEntries {
		sink.IncCounter("ledger", k.Type.String(), "modify")
	}
	for k := range d.deadEntries {
		sink.IncCounter("ledger", k.Type.String(), "delete")
	}
}

// CommitRoot commits a root delta and then performs the two pieces of
// bookkeeping only the outermost commit is responsible for: metering the
// change set, and — when paranoid is set, per the "paranoid_mode"
// configuration flag — re-validating every touched key against store.
func (d *LedgerDelta) CommitRoot(sink MetricsSink, store EntryStore, paranoid bool) error {
	if !d.IsRoot() {
		return fmt.Errorf("%w: CommitRoot called on a nested delta", ErrInvalidOp)
	}
	if err := d.Commit(); err != nil {
		return err
	}
	d.markMeters(sink)
	if paranoid && store != nil {
		if err := d.CheckAgainstStore(store); err != nil {
			return err
		}
	}
	return nil
}
