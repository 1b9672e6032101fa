// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package staking

import (
	"encoding/binary"
	"fmt"
	"io"

	"stakecore/chainhash"
	"stakecore/stakingparams"
	"stakecore/wire"
)

// StakeEntry is the canonical record of one deposit. Callers are
// expected to treat it as immutable by contract: every field change flows
// through the stakes DB cache, never through direct mutation of a
// stored entry.
type StakeEntry struct {
	StakeID       chainhash.Hash
	Amount        int64
	Reward        int64
	PeriodIdx     uint8
	CompleteBlock uint32
	OutputIndex   uint32
	Script        []byte
	Complete      bool
	Active        bool
	Valid         bool
}

// NewStakeEntry builds a stake entry for a deposit confirmed at
// depositBlock, rejecting sub-minimum amounts and out-of-range periods.
func NewStakeEntry(stakeID chainhash.Hash, amount int64, periodIdx uint8, depositBlock uint32, outputIndex uint32, script []byte) (StakeEntry, error) {
	if amount < stakingparams.MIN_STAKING_AMOUNT {
		return StakeEntry{}, fmt.Errorf("staking: amount %d below MIN_STAKING_AMOUNT", amount)
	}
	if int(periodIdx) >= stakingparams.NUM_PERIODS {
		return StakeEntry{}, fmt.Errorf("staking: periodIdx %d out of range", periodIdx)
	}

	completeBlock := depositBlock + uint32(stakingparams.STAKING_PERIOD[periodIdx]) - 1

	return StakeEntry{
		StakeID:       stakeID,
		Amount:        amount,
		PeriodIdx:     periodIdx,
		CompleteBlock: completeBlock,
		OutputIndex:   outputIndex,
		Script:        script,
		Active:        true,
		Valid:         true,
	}, nil
}

// DepositBlock recovers the height at which this stake was created:
// completeBlock - STAKING_PERIOD[periodIdx] + 1.
func (e *StakeEntry) DepositBlock() uint32 {
	return e.CompleteBlock - uint32(stakingparams.STAKING_PERIOD[e.PeriodIdx]) + 1
}

// Serialize writes e in the wire format used for the stakes DB's
// `stakeId → StakeEntry` mapping.
func (e *StakeEntry) Serialize(w io.Writer) error {
	if _, err := w.Write(e.StakeID[:]); err != nil {
		return err
	}

	var fixed [8 + 8 + 1 + 4 + 4 + 1]byte
	binary.LittleEndian.PutUint64(fixed[0:8], uint64(e.Amount))
	binary.LittleEndian.PutUint64(fixed[8:16], uint64(e.Reward))
	fixed[16] = e.PeriodIdx
	binary.LittleEndian.PutUint32(fixed[17:21], e.CompleteBlock)
	binary.LittleEndian.PutUint32(fixed[21:25], e.OutputIndex)
	fixed[25] = boolToByte(e.Complete)<<2 | boolToByte(e.Active)<<1 | boolToByte(e.Valid)
	if _, err := w.Write(fixed[:]); err != nil {
		return err
	}

	return wire.WriteVarBytes(w, e.Script)
}

// Deserialize reads a StakeEntry written by Serialize. It is the inverse
// of Serialize: StakeEntry -> Serialize -> Deserialize -> StakeEntry is an
// identity.
func (e *StakeEntry) Deserialize(r io.Reader) error {
	if _, err := io.ReadFull(r, e.StakeID[:]); err != nil {
		return err
	}

	var fixed [8 + 8 + 1 + 4 + 4 + 1]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return err
	}
	e.Amount = int64(binary.LittleEndian.Uint64(fixed[0:8]))
	e.Reward = int64(binary.LittleEndian.Uint64(fixed[8:16]))
	e.PeriodIdx = fixed[16]
	e.CompleteBlock = binary.LittleEndian.Uint32(fixed[17:21])
	e.OutputIndex = binary.LittleEndian.Uint32(fixed[21:25])
	flags := fixed[25]
	e.Complete = flags&0x4 != 0
	e.Active = flags&0x2 != 0
	e.Valid = flags&0x1 != 0

	script, err := wire.ReadVarBytes(r, wire.MaxScriptSize, "StakeEntry.Script")
	if err != nil {
		return err
	}
	e.Script = script

	return nil
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
