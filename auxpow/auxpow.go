// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package auxpow validates and (for testing) constructs merged-mining
// proof-of-work attachments: a parent-chain block header whose coinbase
// commits to this chain's block hash.
package auxpow

import (
	"bytes"
	"encoding/binary"
	"math/big"

	"stakecore/chainhash"
	"stakecore/standalone"
	"stakecore/wire"
)

// mergedMiningHeader is the 4-byte marker searched for in a parent
// coinbase scriptSig, introducing the merged-mining commitment.
var mergedMiningHeader = []byte{0xfa, 0xbe, 'm', 'm'}

// Params bundles the merge-mining consensus parameters consumed here.
type Params struct {
	ChainID       uint32
	StrictChainID bool
}

// Check validates that header carries a well-formed AuxPoW attachment
// committing to hashAuxBlock under the given parameters. It is side-effect
// free. Whether the parent block's hash actually satisfies this chain's
// difficulty is a separate question answered by CheckHeaderProofOfWork;
// Check only establishes the commitment chain from hashAuxBlock up into
// the parent coinbase.
func Check(header *wire.AuxBlockHeader, hashAuxBlock chainhash.Hash, params *Params) error {
	parentChainID := uint32(header.ParentBlock.ChainID())
	if params.StrictChainID && parentChainID == params.ChainID {
		return ruleError(ErrAuxPowOwnChainID, "")
	}

	if len(header.ChainMerkleBranch) > wire.MaxChainMerkleBranchLength {
		return ruleError(ErrAuxPowChainMerkleTooLong, "")
	}

	rootHash := checkMerkleBranch(hashAuxBlock, header.ChainMerkleBranch, uint32(header.ChainIndex))
	rootHashLE := reversed(rootHash)

	coinbaseHash := header.CoinbaseTx.TxHash()
	computedParentRoot := checkMerkleBranch(coinbaseHash, header.ParentMerkleBranch, 0)
	if computedParentRoot != header.ParentBlock.MerkleRoot {
		return ruleError(ErrAuxPowCoinbaseMerkle, "")
	}

	if len(header.CoinbaseTx.TxIn) == 0 {
		return ruleError(ErrAuxPowNoCoinbaseInputs, "")
	}
	script := header.CoinbaseTx.TxIn[0].SignatureScript

	pc, err := findUniqueIndex(script, rootHashLE[:])
	if err != nil {
		return ruleError(ErrAuxPowMissingRoot, "")
	}

	headPositions := findAllIndices(script, mergedMiningHeader)
	switch len(headPositions) {
	case 0:
		return ruleError(ErrAuxPowMissingHeader, "")
	case 1:
		if pc-headPositions[0] != len(mergedMiningHeader) {
			return ruleError(ErrAuxPowHeaderMisplaced, "")
		}
	default:
		return ruleError(ErrAuxPowMultipleHeaders, "")
	}

	if len(script)-pc < chainhash.HashSize+8 {
		return ruleError(ErrAuxPowTruncated, "")
	}

	sizeOffset := pc + chainhash.HashSize
	size := binary.LittleEndian.Uint32(script[sizeOffset : sizeOffset+4])
	nonce := binary.LittleEndian.Uint32(script[sizeOffset+4 : sizeOffset+8])

	expectedSize := uint32(1) << uint(len(header.ChainMerkleBranch))
	if size != expectedSize {
		return ruleError(ErrAuxPowWrongSize, "")
	}

	wantIndex := ExpectedIndex(nonce, params.ChainID, len(header.ChainMerkleBranch))
	if uint32(header.ChainIndex) != wantIndex {
		return ruleError(ErrAuxPowWrongIndex, "")
	}

	return nil
}

// checkMerkleBranch replays a merkle inclusion proof for a leaf hash and
// branch, starting from the given index.
func checkMerkleBranch(hash chainhash.Hash, branch []chainhash.Hash, index uint32) chainhash.Hash {
	for _, sibling := range branch {
		var buf [2 * chainhash.HashSize]byte
		if index&1 != 0 {
			copy(buf[:chainhash.HashSize], sibling[:])
			copy(buf[chainhash.HashSize:], hash[:])
		} else {
			copy(buf[:chainhash.HashSize], hash[:])
			copy(buf[chainhash.HashSize:], sibling[:])
		}
		hash = chainhash.HashFuncH(buf[:])
		index >>= 1
	}
	return hash
}

// ExpectedIndex derives the merkle-tree slot a chain occupies from the
// commitment's nonce and the chain id, via two rounds of a linear
// congruential step. Arithmetic wraps mod 2^32, deliberately.
func ExpectedIndex(nonce, chainID uint32, h int) uint32 {
	r := nonce
	r = r*1103515245 + 12345
	r += chainID
	r = r*1103515245 + 12345
	return r % (uint32(1) << uint(h))
}

func reversed(h chainhash.Hash) chainhash.Hash {
	for i := 0; i < chainhash.HashSize/2; i++ {
		h[i], h[chainhash.HashSize-1-i] = h[chainhash.HashSize-1-i], h[i]
	}
	return h
}

func findUniqueIndex(haystack, needle []byte) (int, error) {
	idx := bytes.Index(haystack, needle)
	if idx == -1 {
		return 0, Error{Kind: ErrAuxPowMissingRoot}
	}
	if bytes.Index(haystack[idx+1:], needle) != -1 {
		return 0, Error{Kind: ErrAuxPowMissingRoot, Description: "multiple candidate roots"}
	}
	return idx, nil
}

func findAllIndices(haystack, needle []byte) []int {
	var out []int
	offset := 0
	for {
		idx := bytes.Index(haystack[offset:], needle)
		if idx == -1 {
			return out
		}
		out = append(out, offset+idx)
		offset += idx + 1
	}
}

// CheckHeaderProofOfWork validates the proof of work on header, consulting
// the parent block's hash instead of the header's own hash when an AuxPoW
// attachment is present.
func CheckHeaderProofOfWork(header *wire.BlockHeader, powLimit *big.Int) error {
	if header.AuxFlag() {
		if header.AuxPow == nil {
			return ruleError(ErrAuxPowMissingHeader, "aux flag set without attachment")
		}
		parentHash := header.AuxPow.ParentBlock.BlockHash()
		if err := standalone.CheckProofOfWork(&parentHash, header.Bits, powLimit); err != nil {
			return ruleError(ErrAuxPowBadProofOfWork, err.Error())
		}
		return nil
	}
	hash := header.BlockHash()
	return standalone.CheckProofOfWork(&hash, header.Bits, powLimit)
}
