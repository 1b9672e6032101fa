// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package standalone provides proof-of-work primitives that do not require
// the full stakes DB or chain index: compact-target conversion and the
// basic PoW accept/reject check.
package standalone

import (
	"math/big"

	"stakecore/chainhash"
)

var bigOne = big.NewInt(1)

// CompactToBig converts a compact representation of a whole number N, held
// in an unsigned 32-bit number, to a big integer. The representation is similar to IEEE754 floating
// point numbers: the high 8 bits are an exponent, the low 24 bits are a
// signed mantissa.
//
//	-------------------------------------------------
//	|   Exponent     |    Sign    |    Mantissa      |
//	|    8 bits      |   1 bit    |     23 bits      |
//	-------------------------------------------------
//
// This compact form is only used in Bitcoin-family headers to encode
// unsigned 256-bit numbers that trade precision for a much shorter
// representation.
func CompactToBig(compact uint32) *big.Int {
	mantissa := compact & 0x007fffff
	isNegative := compact&0x00800000 != 0
	exponent := uint(compact >> 24)

	var bn *big.Int
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		bn = big.NewInt(int64(mantissa))
	} else {
		bn = big.NewInt(int64(mantissa))
		bn.Lsh(bn, 8*(exponent-3))
	}

	if isNegative {
		bn = bn.Neg(bn)
	}
	return bn
}

// BigToCompact converts a whole number N to a compact representation using
// an unsigned 32-bit number. See CompactToBig for details on the encoding.
func BigToCompact(n *big.Int) uint32 {
	if n.Sign() == 0 {
		return 0
	}

	var mantissa uint32
	exponent := uint(len(n.Bytes()))

	if exponent <= 3 {
		mantissa = uint32(n.Bits()[0])
		mantissa <<= 8 * (3 - exponent)
	} else {
		tn := new(big.Int).Set(n)
		mantissa = uint32(tn.Rsh(tn, 8*(exponent-3)).Bits()[0])
	}

	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := uint32(exponent<<24) | mantissa
	if n.Sign() < 0 {
		compact |= 0x00800000
	}
	return compact
}

// CheckProofOfWork ensures the block hash satisfies the proof of work
// target encoded by bits, and that bits itself is a well-formed target no
// easier than powLimit.
func CheckProofOfWork(hash *chainhash.Hash, bits uint32, powLimit *big.Int) error {
	target := CompactToBig(bits)

	if target.Sign() <= 0 {
		return errNegativeOrZeroTarget
	}
	if target.Cmp(powLimit) > 0 {
		return errTargetTooHigh
	}

	hashNum := HashToBig(hash)
	if hashNum.Cmp(target) > 0 {
		return errHashDoesNotSatisfyTarget
	}
	return nil
}

// HashToBig converts a chainhash.Hash into a big.Int treating the hash as a
// little-endian 256-bit unsigned integer, which is the ordering block
// hashes are compared against targets with.
func HashToBig(hash *chainhash.Hash) *big.Int {
	buf := *hash
	blen := len(buf)
	for i := 0; i < blen/2; i++ {
		buf[i], buf[blen-1-i] = buf[blen-1-i], buf[i]
	}
	return new(big.Int).SetBytes(buf[:])
}
