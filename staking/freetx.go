// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package staking

import (
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"stakecore/chainhash"
	"stakecore/wire"
)

// FreeTxInfo is the per-script rolling-window state tracking fee-exempt
// transaction byte usage. usedConfirmed and usedUnconfirmed are tracked
// separately: confirming a transaction releases its unconfirmed
// reservation and charges the confirmed counter instead.
type FreeTxInfo struct {
	UsedConfirmed   uint32
	UsedUnconfirmed uint32
	Limit           uint32
	WindowStartHeight uint32
	ActiveStakeIDs  []chainhash.Hash
	Unconfirmed     map[chainhash.Hash]uint32
}

// NewFreeTxInfo opens a fresh window for a script, snapshotting the stake
// set active at window-open time.
func NewFreeTxInfo(limit, windowStartHeight uint32, activeStakeIDs []chainhash.Hash) *FreeTxInfo {
	return &FreeTxInfo{
		Limit:             limit,
		WindowStartHeight: windowStartHeight,
		ActiveStakeIDs:    activeStakeIDs,
		Unconfirmed:       make(map[chainhash.Hash]uint32),
	}
}

// Clone returns a deep copy of f sharing no mutable state with it, so one
// holder's charges never leak into another's view.
func (f *FreeTxInfo) Clone() *FreeTxInfo {
	out := *f
	out.ActiveStakeIDs = append([]chainhash.Hash(nil), f.ActiveStakeIDs...)
	out.Unconfirmed = make(map[chainhash.Hash]uint32, len(f.Unconfirmed))
	for txid, size := range f.Unconfirmed {
		out.Unconfirmed[txid] = size
	}
	return &out
}

// WindowClosed reports whether height falls past this info's window,
// meaning it must be migrated out of the live per-script map before any
// further charge is accepted.
func (f *FreeTxInfo) WindowClosed(height uint32, windowLength uint32) bool {
	return height != 0 && height >= f.WindowStartHeight+windowLength
}

// RegisterUnconfirmed charges size bytes against the unconfirmed quota for
// a mempool (height==0) transaction, remembering txid so a later
// confirmation or eviction can find it again.
func (f *FreeTxInfo) RegisterUnconfirmed(txid chainhash.Hash, size uint32) error {
	if f.UsedUnconfirmed+size > f.Limit {
		return fmt.Errorf("staking: free-tx unconfirmed quota exceeded (%d+%d > %d)", f.UsedUnconfirmed, size, f.Limit)
	}
	f.UsedUnconfirmed += size
	f.Unconfirmed[txid] = size
	return nil
}

// RegisterConfirmed charges size bytes against the confirmed quota for a
// transaction included in a block. If txid was previously tracked as
// unconfirmed, its reservation is released first.
func (f *FreeTxInfo) RegisterConfirmed(txid chainhash.Hash, size uint32) error {
	if f.UsedConfirmed+size > f.Limit {
		return fmt.Errorf("staking: free-tx confirmed quota exceeded (%d+%d > %d)", f.UsedConfirmed, size, f.Limit)
	}
	if prior, ok := f.Unconfirmed[txid]; ok {
		f.removeUnconfirmedTxIDLocked(txid, prior)
	}
	f.UsedConfirmed += size
	return nil
}

// RemoveUnconfirmedTxID evicts a mempool transaction (e.g. it expired or
// was replaced), crediting its bytes back to usedUnconfirmed, the counter
// RegisterUnconfirmed charged.
func (f *FreeTxInfo) RemoveUnconfirmedTxID(txid chainhash.Hash) error {
	size, ok := f.Unconfirmed[txid]
	if !ok {
		return fmt.Errorf("staking: txid not tracked as unconfirmed")
	}
	f.removeUnconfirmedTxIDLocked(txid, size)
	return nil
}

func (f *FreeTxInfo) removeUnconfirmedTxIDLocked(txid chainhash.Hash, size uint32) {
	delete(f.Unconfirmed, txid)
	if size > f.UsedUnconfirmed {
		f.UsedUnconfirmed = 0
		return
	}
	f.UsedUnconfirmed -= size
}

// UndoConfirmed decrements usedConfirmed by size, clamped at zero. It
// implements undoFreeTransaction.
func (f *FreeTxInfo) UndoConfirmed(size uint32) {
	if size > f.UsedConfirmed {
		f.UsedConfirmed = 0
		return
	}
	f.UsedConfirmed -= size
}

// Serialize writes f in the wire format used for the stakes DB's
// wholesale free_tx_info blob. Unconfirmed entries are
// written in sorted-by-txid order so the blob is deterministic across
// runs despite Go's randomized map iteration.
func (f *FreeTxInfo) Serialize(w io.Writer) error {
	var fixed [16]byte
	binary.LittleEndian.PutUint32(fixed[0:4], f.UsedConfirmed)
	binary.LittleEndian.PutUint32(fixed[4:8], f.UsedUnconfirmed)
	binary.LittleEndian.PutUint32(fixed[8:12], f.Limit)
	binary.LittleEndian.PutUint32(fixed[12:16], f.WindowStartHeight)
	if _, err := w.Write(fixed[:]); err != nil {
		return err
	}

	if err := wire.WriteCompactSize(w, uint64(len(f.ActiveStakeIDs))); err != nil {
		return err
	}
	for _, id := range f.ActiveStakeIDs {
		if _, err := w.Write(id[:]); err != nil {
			return err
		}
	}

	txids := make([]chainhash.Hash, 0, len(f.Unconfirmed))
	for txid := range f.Unconfirmed {
		txids = append(txids, txid)
	}
	sort.Slice(txids, func(i, j int) bool {
		return bytesLess(txids[i][:], txids[j][:])
	})

	if err := wire.WriteCompactSize(w, uint64(len(txids))); err != nil {
		return err
	}
	for _, txid := range txids {
		if _, err := w.Write(txid[:]); err != nil {
			return err
		}
		var sz [4]byte
		binary.LittleEndian.PutUint32(sz[:], f.Unconfirmed[txid])
		if _, err := w.Write(sz[:]); err != nil {
			return err
		}
	}

	return nil
}

// Deserialize reads a FreeTxInfo written by Serialize.
func (f *FreeTxInfo) Deserialize(r io.Reader) error {
	var fixed [16]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return err
	}
	f.UsedConfirmed = binary.LittleEndian.Uint32(fixed[0:4])
	f.UsedUnconfirmed = binary.LittleEndian.Uint32(fixed[4:8])
	f.Limit = binary.LittleEndian.Uint32(fixed[8:12])
	f.WindowStartHeight = binary.LittleEndian.Uint32(fixed[12:16])

	activeCount, err := wire.ReadCompactSize(r)
	if err != nil {
		return err
	}
	f.ActiveStakeIDs = make([]chainhash.Hash, activeCount)
	for i := range f.ActiveStakeIDs {
		if _, err := io.ReadFull(r, f.ActiveStakeIDs[i][:]); err != nil {
			return err
		}
	}

	unconfirmedCount, err := wire.ReadCompactSize(r)
	if err != nil {
		return err
	}
	f.Unconfirmed = make(map[chainhash.Hash]uint32, unconfirmedCount)
	for i := uint64(0); i < unconfirmedCount; i++ {
		var txid chainhash.Hash
		if _, err := io.ReadFull(r, txid[:]); err != nil {
			return err
		}
		var sz [4]byte
		if _, err := io.ReadFull(r, sz[:]); err != nil {
			return err
		}
		f.Unconfirmed[txid] = binary.LittleEndian.Uint32(sz[:])
	}

	return nil
}

func bytesLess(a, b []byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
