// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package auxpow

import (
	"encoding/binary"

	"stakecore/chainhash"
	"stakecore/wire"
)

// op2 is the OP_2 opcode used by the minimal coinbase scripts built here;
// the real coinbase scripts produced by merge-mining software carry
// whatever extra pushes the miner wants, OP_2 is simply a harmless
// placeholder in that position.
const op2 = 0x52

// Build constructs a minimal, well-formed AuxPoW attachment committing to
// hashAuxBlock for the chain identified by chainID, reproducing the
// merged-mining coinbase layout real mining software emits. It exists for
// tests: real attachments arrive over the wire already built by
// merge-mining software. The parent header carries its own chain identity
// (parentChainID), which must differ from chainID on strict-chain-id
// networks; the chain-index slot, however, is always derived from chainID,
// the chain being merge-mined.
func Build(hashAuxBlock chainhash.Hash, chainID uint32, branchHeight int, nonce uint32, parentBaseVersion uint8, parentChainID uint16, parentBits, parentTimestamp uint32) *wire.AuxBlockHeader {
	branch := make([]chainhash.Hash, branchHeight)
	for i := range branch {
		branch[i] = intToHashBE(i)
	}

	chainIndex := ExpectedIndex(nonce, chainID, branchHeight)
	rootHash := checkMerkleBranch(hashAuxBlock, branch, chainIndex)
	rootHashLE := reversed(rootHash)

	size := uint32(1) << uint(branchHeight)
	payload := make([]byte, 0, len(mergedMiningHeader)+chainhash.HashSize+8)
	payload = append(payload, mergedMiningHeader...)
	payload = append(payload, rootHashLE[:]...)
	payload = appendUint32LE(payload, size)
	payload = appendUint32LE(payload, nonce)

	script := pushScriptNum(2809)
	script = append(script, pushScriptNum(2013)...)
	script = append(script, op2)
	script = append(script, pushData(payload)...)

	coinbaseTx := &wire.MsgTx{
		Version: 1,
		TxIn: []*wire.TxIn{{
			PreviousOutPoint: wire.OutPoint{Index: 0xffffffff},
			SignatureScript:  script,
			Sequence:         0xffffffff,
		}},
		TxOut: []*wire.TxOut{{Value: 0, PkScript: []byte{}}},
	}

	var parentBlock wire.BlockHeader
	parentBlock.SetBaseVersion(parentBaseVersion)
	parentBlock.SetChainID(parentChainID)
	parentBlock.Bits = parentBits
	parentBlock.Timestamp = parentTimestamp
	parentBlock.MerkleRoot = coinbaseTx.TxHash()

	return &wire.AuxBlockHeader{
		CoinbaseTx:         coinbaseTx,
		ParentMerkleBranch: nil,
		ChainMerkleBranch:  branch,
		ChainIndex:         int32(chainIndex),
		ParentBlock:        parentBlock,
	}
}

func intToHashBE(i int) chainhash.Hash {
	var h chainhash.Hash
	binary.BigEndian.PutUint32(h[chainhash.HashSize-4:], uint32(i))
	return h
}

func appendUint32LE(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

// pushData encodes data as a script push, using the single-byte
// length-prefix form valid for any payload under 0x4c bytes (sufficient for
// every push this package builds).
func pushData(data []byte) []byte {
	if len(data) >= 0x4c {
		panic("auxpow: pushData payload too large for direct push encoding")
	}
	out := make([]byte, 0, len(data)+1)
	out = append(out, byte(len(data)))
	return append(out, data...)
}

// pushScriptNum encodes n using minimal CScriptNum byte encoding and wraps
// it in a script push, matching how reference miners embed auxiliary
// height/timestamp values in the coinbase scriptSig.
func pushScriptNum(n int64) []byte {
	if n == 0 {
		return pushData(nil)
	}

	neg := n < 0
	absVal := n
	if neg {
		absVal = -n
	}

	var result []byte
	for absVal > 0 {
		result = append(result, byte(absVal&0xff))
		absVal >>= 8
	}

	if result[len(result)-1]&0x80 != 0 {
		if neg {
			result = append(result, 0x80)
		} else {
			result = append(result, 0x00)
		}
	} else if neg {
		result[len(result)-1] |= 0x80
	}

	return pushData(result)
}
