// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package staking implements the staking-transaction parser, the stake
// entry record, the staking pool balance, per-script free-transaction
// bookkeeping, and the pure reward/penalty/free-tx/governance-power
// calculators.
package staking

import (
	"bytes"
	"encoding/binary"

	"stakecore/stakingparams"
	"stakecore/wire"
)

// Kind classifies the staking intent expressed by a transaction's first
// output.
type Kind uint8

const (
	// None means the first output does not encode a recognized staking
	// commitment.
	None Kind = iota

	// Deposit locks an output's value for a chosen period.
	Deposit

	// Burn destroys value and records an amount for accounting purposes.
	Burn
)

func (k Kind) String() string {
	switch k {
	case Deposit:
		return "deposit"
	case Burn:
		return "burn"
	default:
		return "none"
	}
}

const (
	opReturn        = 0x6a
	stakingMarker   = 0x53 // 'S'
	subHeaderDeposit = 0x44 // 'D'
	subHeaderBurn    = 0x42 // 'B'

	// maxMoney bounds the monetary range a Burn amount must fall within.
	maxMoney = 21_000_000 * 1e8
)

// ParsedOutput is the result of classifying a transaction's first output.
type ParsedOutput struct {
	Kind Kind

	// OutputIndex and PeriodIdx are populated when Kind == Deposit.
	OutputIndex uint32
	PeriodIdx   uint8

	// BurnAmount is populated when Kind == Burn.
	BurnAmount int64
}

// parseMarker reads the OP_RETURN push, marker byte, and subheader byte
// from script, returning the remaining payload and the subheader. ok is
// false on any structural mismatch.
func parseMarker(script []byte) (payload []byte, subHeader byte, ok bool) {
	if len(script) < 4 || script[0] != opReturn {
		return nil, 0, false
	}
	pushLen := int(script[1])
	if pushLen >= 0x4c {
		// Only direct single-byte-length pushes are recognized; staking
		// commitments are always small enough to need no OP_PUSHDATAn.
		return nil, 0, false
	}
	if len(script) != 2+pushLen {
		return nil, 0, false
	}
	push := script[2:]
	if len(push) < 2 || push[0] != stakingMarker {
		return nil, 0, false
	}
	return push[2:], push[1], true
}

// ClassifyTransaction classifies tx's first output and, for a Deposit,
// validates it against tx's other outputs and consensus bounds.
// Any structural or range failure yields Kind == None with a nil
// error; error is reserved for truly unexpected conditions (none exist in
// the current implementation, but the signature leaves room for future
// I/O-backed parsers).
func ClassifyTransaction(tx *wire.MsgTx) (ParsedOutput, error) {
	if len(tx.TxOut) == 0 {
		return ParsedOutput{}, nil
	}

	payload, subHeader, ok := parseMarker(tx.TxOut[0].PkScript)
	if !ok {
		return ParsedOutput{}, nil
	}

	switch subHeader {
	case subHeaderDeposit:
		return parseDeposit(tx, payload)
	case subHeaderBurn:
		return parseBurn(payload)
	default:
		return ParsedOutput{}, nil
	}
}

func parseDeposit(tx *wire.MsgTx, payload []byte) (ParsedOutput, error) {
	r := bytes.NewReader(payload)
	outputIndex, err := wire.ReadCompactSize(r)
	if err != nil {
		return ParsedOutput{}, nil
	}
	var periodIdx [1]byte
	if _, err := r.Read(periodIdx[:]); err != nil {
		return ParsedOutput{}, nil
	}

	if outputIndex < 1 || outputIndex >= uint64(len(tx.TxOut)) {
		return ParsedOutput{}, nil
	}
	out := tx.TxOut[outputIndex]
	if out.Value < stakingparams.MIN_STAKING_AMOUNT {
		return ParsedOutput{}, nil
	}
	if periodIdx[0] >= stakingparams.NUM_PERIODS {
		return ParsedOutput{}, nil
	}

	log.Tracef("recognized staking deposit: output %d, period %d", outputIndex, periodIdx[0])
	return ParsedOutput{
		Kind:        Deposit,
		OutputIndex: uint32(outputIndex),
		PeriodIdx:   periodIdx[0],
	}, nil
}

func parseBurn(payload []byte) (ParsedOutput, error) {
	if len(payload) != 8 {
		return ParsedOutput{}, nil
	}
	amount := int64(binary.LittleEndian.Uint64(payload))
	if amount < 0 || amount > maxMoney {
		return ParsedOutput{}, nil
	}
	log.Tracef("recognized staking burn: amount %d", amount)
	return ParsedOutput{Kind: Burn, BurnAmount: amount}, nil
}
