// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package staking

import (
	"bytes"
	"testing"

	"stakecore/chainhash"
)

func TestStakeEntryRoundTrip(t *testing.T) {
	var id chainhash.Hash
	id[0] = 0x01
	id[31] = 0xff

	entry, err := NewStakeEntry(id, 5_000_00000000, 2, 1000, 1, []byte{0x76, 0xa9, 0x14, 0x01})
	if err != nil {
		t.Fatalf("NewStakeEntry: %v", err)
	}
	entry.Reward = 12345
	entry.Complete = true
	entry.Active = false

	var buf bytes.Buffer
	if err := entry.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	var got StakeEntry
	if err := got.Deserialize(&buf); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if !entriesEqual(&got, &entry) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, entry)
	}
}

func entriesEqual(a, b *StakeEntry) bool {
	return a.StakeID == b.StakeID &&
		a.Amount == b.Amount &&
		a.Reward == b.Reward &&
		a.PeriodIdx == b.PeriodIdx &&
		a.CompleteBlock == b.CompleteBlock &&
		a.OutputIndex == b.OutputIndex &&
		bytes.Equal(a.Script, b.Script) &&
		a.Complete == b.Complete &&
		a.Active == b.Active &&
		a.Valid == b.Valid
}

func TestNewStakeEntryRejectsBelowMinimum(t *testing.T) {
	var id chainhash.Hash
	if _, err := NewStakeEntry(id, 1, 0, 0, 1, nil); err == nil {
		t.Fatal("expected error for sub-minimum amount")
	}
}

func TestNewStakeEntryRejectsBadPeriod(t *testing.T) {
	var id chainhash.Hash
	if _, err := NewStakeEntry(id, 5_000_00000000, 200, 0, 1, nil); err == nil {
		t.Fatal("expected error for out-of-range periodIdx")
	}
}

func TestStakeEntryDepositBlock(t *testing.T) {
	var id chainhash.Hash
	entry, err := NewStakeEntry(id, 5_000_00000000, 0, 1000, 1, nil)
	if err != nil {
		t.Fatalf("NewStakeEntry: %v", err)
	}
	if got := entry.DepositBlock(); got != 1000 {
		t.Fatalf("DepositBlock() = %d, want 1000", got)
	}
}
