// Copyright (C) 2022 myl7
// SPDX-License-Identifier: Apache-2.0

package ledger

import "errors"

// ErrInvalidOp is returned for a delta operation attempted on a non-Open
// delta, or one that violates the New/Mod/Dead disjointness invariant.
// It is a programmer error: callers should abort the containing
// transaction rather than retry.
var ErrInvalidOp = errors.New("ledger: invalid delta operation")

// ErrHeaderRace is returned by Commit when the parent header was mutated
// outside the delta protocol between Open and Commit.
var ErrHeaderRace = errors.New("ledger: header mutated outside delta protocol")

// ErrInconsistent is returned by CheckAgainstStore (the paranoid-mode
// diagnostic) when a live entry disagrees with the store, or a dead key
// still exists in it. It is fatal: the caller should halt ledger apply.
var ErrInconsistent = errors.New("ledger: delta inconsistent with entry store")
