// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package staking

import (
	"bytes"
	"testing"

	"stakecore/chainhash"
)

func TestFreeTxInfoUnconfirmedThenConfirmed(t *testing.T) {
	info := NewFreeTxInfo(1000, 0, nil)

	var txid chainhash.Hash
	txid[0] = 1

	if err := info.RegisterUnconfirmed(txid, 400); err != nil {
		t.Fatalf("RegisterUnconfirmed: %v", err)
	}
	if info.UsedUnconfirmed != 400 {
		t.Fatalf("UsedUnconfirmed = %d, want 400", info.UsedUnconfirmed)
	}

	if err := info.RegisterConfirmed(txid, 400); err != nil {
		t.Fatalf("RegisterConfirmed: %v", err)
	}
	if info.UsedUnconfirmed != 0 {
		t.Fatalf("UsedUnconfirmed after confirm = %d, want 0", info.UsedUnconfirmed)
	}
	if info.UsedConfirmed != 400 {
		t.Fatalf("UsedConfirmed = %d, want 400", info.UsedConfirmed)
	}
}

func TestFreeTxInfoQuotaExceeded(t *testing.T) {
	info := NewFreeTxInfo(100, 0, nil)
	var txid chainhash.Hash
	if err := info.RegisterUnconfirmed(txid, 200); err == nil {
		t.Fatal("expected quota exceeded error")
	}
}

func TestFreeTxInfoUndoConfirmedIsInverseOfRegister(t *testing.T) {
	info := NewFreeTxInfo(1000, 0, nil)
	var txid chainhash.Hash
	if err := info.RegisterConfirmed(txid, 250); err != nil {
		t.Fatalf("RegisterConfirmed: %v", err)
	}
	info.UndoConfirmed(250)
	if info.UsedConfirmed != 0 {
		t.Fatalf("UsedConfirmed after undo = %d, want 0", info.UsedConfirmed)
	}
}

func TestFreeTxInfoRemoveUnconfirmedTxID(t *testing.T) {
	info := NewFreeTxInfo(1000, 0, nil)
	var txid chainhash.Hash
	txid[0] = 2

	if err := info.RegisterUnconfirmed(txid, 300); err != nil {
		t.Fatalf("RegisterUnconfirmed: %v", err)
	}
	if err := info.RemoveUnconfirmedTxID(txid); err != nil {
		t.Fatalf("RemoveUnconfirmedTxID: %v", err)
	}
	if info.UsedUnconfirmed != 0 {
		t.Fatalf("UsedUnconfirmed after removal = %d, want 0", info.UsedUnconfirmed)
	}
	if _, ok := info.Unconfirmed[txid]; ok {
		t.Fatal("txid still tracked as unconfirmed after removal")
	}
}

func TestFreeTxInfoWindowClosed(t *testing.T) {
	info := NewFreeTxInfo(1000, 100, nil)
	if info.WindowClosed(150, 576) {
		t.Fatal("window should not be closed yet")
	}
	if !info.WindowClosed(676, 576) {
		t.Fatal("window should be closed at 100+576")
	}
}

func TestFreeTxInfoSerializeRoundTrip(t *testing.T) {
	var active chainhash.Hash
	active[0] = 9
	info := NewFreeTxInfo(2048, 500, []chainhash.Hash{active})
	var txidA, txidB chainhash.Hash
	txidA[0] = 1
	txidB[0] = 2
	if err := info.RegisterUnconfirmed(txidA, 100); err != nil {
		t.Fatalf("RegisterUnconfirmed: %v", err)
	}
	if err := info.RegisterUnconfirmed(txidB, 200); err != nil {
		t.Fatalf("RegisterUnconfirmed: %v", err)
	}

	var buf bytes.Buffer
	if err := info.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	var got FreeTxInfo
	if err := got.Deserialize(&buf); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if got.UsedConfirmed != info.UsedConfirmed || got.UsedUnconfirmed != info.UsedUnconfirmed ||
		got.Limit != info.Limit || got.WindowStartHeight != info.WindowStartHeight {
		t.Fatalf("scalar fields mismatch: got %+v, want %+v", got, info)
	}
	if len(got.ActiveStakeIDs) != 1 || got.ActiveStakeIDs[0] != active {
		t.Fatalf("ActiveStakeIDs mismatch: %v", got.ActiveStakeIDs)
	}
	if len(got.Unconfirmed) != 2 || got.Unconfirmed[txidA] != 100 || got.Unconfirmed[txidB] != 200 {
		t.Fatalf("Unconfirmed mismatch: %v", got.Unconfirmed)
	}
}
