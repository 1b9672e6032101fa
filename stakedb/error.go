// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stakedb

import "github.com/pkg/errors"

// ErrorKind identifies a specific class of stakes-DB failure, so callers
// can branch on Kind without string matching.
type ErrorKind string

const (
	// ErrViewOnly is returned by every cache mutator when called on a
	// view-only cache.
	ErrViewOnly = ErrorKind("cache is view-only")

	// ErrWriterBusy is returned by NewEditableCache when another editable
	// cache already holds the base DB's writer lock.
	ErrWriterBusy = ErrorKind("another editable cache is already open")

	// ErrNotActive is returned by DeactivateStake when the target stake is
	// missing or not currently active.
	ErrNotActive = ErrorKind("stake is not active")

	// ErrAlreadyActive is returned by reactivateStake when the target
	// stake is already active.
	ErrAlreadyActive = ErrorKind("stake is already active")

	// ErrAlreadyExists is returned by addNewStakeEntry when the stake id
	// is already present.
	ErrAlreadyExists = ErrorKind("stake entry already exists")

	// ErrNotFound is returned by RemoveStakeEntry and by the free-tx undo
	// path when the target record does not exist, and reused to wrap the
	// underlying store's not-found signal. The getters report a missing
	// record with a zero value or nil instead.
	ErrNotFound = ErrorKind("not found")

	// ErrQuotaExceeded is returned by registerFreeTransaction when a
	// charge would overflow the script's confirmed or unconfirmed quota,
	// or when its window has already closed.
	ErrQuotaExceeded = ErrorKind("free-tx quota exceeded or window closed")

	// ErrFlushOngoing is the fatal startup error:
	// flush_ongoing was observed true in a nonempty store, meaning a
	// previous flush did not complete and the store needs operator
	// intervention (reindex) rather than automatic replay.
	ErrFlushOngoing = ErrorKind("previous flush did not complete; refusing to start")

	// ErrCorruptAggregate is the fatal startup error for a persisted
	// aggregate that fails Verify.
	ErrCorruptAggregate = ErrorKind("persisted aggregate is corrupt or inconsistent")
)

// Error wraps an ErrorKind with additional context, following the same
// shape as the auxpow package's error type.
type Error struct {
	Kind        ErrorKind
	Description string
}

func (e Error) Error() string {
	if e.Description != "" {
		return string(e.Kind) + ": " + e.Description
	}
	return string(e.Kind)
}

// Is implements errors.Is support so callers can test for a specific Kind
// via errors.Is(err, stakedb.Error{Kind: stakedb.ErrViewOnly}).
func (e Error) Is(target error) bool {
	te, ok := target.(Error)
	if !ok {
		return false
	}
	return e.Kind == te.Kind
}

func dbError(kind ErrorKind, desc string) error {
	return Error{Kind: kind, Description: desc}
}

func errCorruptAggregate(which string) error {
	return errors.Wrapf(Error{Kind: ErrCorruptAggregate}, "field %q", which)
}
