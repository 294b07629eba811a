// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package ledger

import "sort"

// ChangeKind tags a single record in a change log.
type ChangeKind int

const (
	ChangeCreated ChangeKind = iota
	ChangeUpdated
	ChangeRemoved
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeCreated:
		return "created"
	case ChangeUpdated:
		return "updated"
	case ChangeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Change is one record in the change log GetChanges emits: a full entry
// for Created/Updated, or just the key for Removed. The log is suitable
// for replay and for history archival (the archival format itself is out
// of scope — archives are a Non-goal — but the record shape here is what
// a history-writing collaborator would consume).
type Change struct {
	Kind  ChangeKind
	Key   LedgerKey
	Entry LedgerEntry
}

// GetChanges emits an ordered change list: Created entries for New,
// Updated entries for Mod, Removed keys for Dead. Within each bucket,
// entries are stable-sorted by key so the log is deterministic across
// runs and reproducible for replay.
func (d *LedgerDelta) GetChanges() []Change {
	changes := make([]Change, 0, len(d.newEntries)+len(d.modEntries)+len(d.deadEntries))

	for _, k := range sortedKeys(d.newEntries) {
		changes = append(changes, Change{Kind: ChangeCreated, Key: k, Entry: d.newEntries[k]})
	}
	for _, k := range sortedKeys(d.modEntries) {
		changes = append(changes, Change{Kind: ChangeUpdated, Key: k, Entry: d.modEntries[k]})
	}
	for _, k := range sortedDeadKeys(d.deadEntries) {
		changes = append(changes, Change{Kind: ChangeRemoved, Key: k})
	}
	return changes
}

func sortedKeys(m map[LedgerKey]LedgerEntry) []LedgerKey {
	keys := make([]LedgerKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

func sortedDeadKeys(m map[LedgerKey]struct{}) []LedgerKey {
	keys := make([]LedgerKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// GetLiveEntries returns New ∪ Mod by value.
func (d *LedgerDelta) GetLiveEntries() []LedgerEntry {
	live := make([]LedgerEntry, 0, len(d.newEntries)+len(d.modEntries))
	for _, k := range sortedKeys(d.newEntries) {
		live = append(live, d.newEntries[k])
	}
	for _, k := range sortedKeys(d.modEntries) {
		live = append(live, d.modEntries[k])
	}
	return live
}

// GetDeadEntries returns Dead by key.
func (d *LedgerDelta) GetDeadEntries() []LedgerKey {
	return sortedDeadKeys(d.deadEntries)
}
