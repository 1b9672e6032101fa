// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"io"

	"stakecore/chainhash"
)

// MaxBlockHeaderPayload is the number of bytes in the pure (non-AuxPoW)
// block header: version (4) + prev block (32) + merkle root (32) +
// time (4) + bits (4) + nonce (4).
const MaxBlockHeaderPayload = 4 + chainhash.HashSize + chainhash.HashSize + 4 + 4 + 4

// MaxChainMerkleBranchLength bounds the merged-mining chain merkle
// branch: at most 30 levels keeps `1 << len` inside a 32-bit word.
const MaxChainMerkleBranchLength = 30

// auxVersionBit marks a header as carrying an AuxPoW attachment: bit 8 of
// the version field.
const auxVersionBit = 0x100

// BlockHeader defines information about a block and is used in both the
// pure (native PoW) and merge-mined (AuxPoW) cases.
//
// Version encodes three orthogonal pieces of information:
// the low 8 bits are the base block version, bit 8 is the AuxPoW flag, and
// the high 16 bits are the merge-mining chain ID. The block hash is always
// computed over the 80-byte pure encoding; an attached AuxPow never enters
// the hash.
type BlockHeader struct {
	Version    int32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32

	// AuxPow is non-nil iff AuxFlag() is set. It is not part of the
	// serialization that BlockHash hashes.
	AuxPow *AuxBlockHeader
}

// BaseVersion returns the low 8 bits of the version field.
func (h *BlockHeader) BaseVersion() uint8 {
	return uint8(uint32(h.Version) & 0xff)
}

// SetBaseVersion sets the low 8 bits of the version field, leaving the
// AuxPoW flag and chain ID untouched.
func (h *BlockHeader) SetBaseVersion(v uint8) {
	h.Version = int32((uint32(h.Version) &^ 0xff) | uint32(v))
}

// AuxFlag reports whether the header claims an AuxPoW attachment.
func (h *BlockHeader) AuxFlag() bool {
	return uint32(h.Version)&auxVersionBit != 0
}

// SetAuxFlag sets or clears the AuxPoW flag bit, leaving the base version
// and chain ID untouched.
func (h *BlockHeader) SetAuxFlag(set bool) {
	if set {
		h.Version = int32(uint32(h.Version) | auxVersionBit)
	} else {
		h.Version = int32(uint32(h.Version) &^ auxVersionBit)
	}
}

// ChainID returns the merge-mining chain ID encoded in the high 16 bits of
// the version field.
func (h *BlockHeader) ChainID() uint16 {
	return uint16(uint32(h.Version) >> 16)
}

// SetChainID sets the high 16 bits of the version field, leaving the base
// version and AuxPoW flag untouched.
func (h *BlockHeader) SetChainID(id uint16) {
	h.Version = int32((uint32(h.Version) & 0x0000ffff) | (uint32(id) << 16))
}

// serializePure writes the 80-byte pure header encoding, excluding any
// AuxPow attachment. This is the encoding BlockHash hashes.
func (h *BlockHeader) serializePure(w io.Writer) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(h.Version))
	if _, err := w.Write(b[:]); err != nil {
		return err
	}
	if _, err := w.Write(h.PrevBlock[:]); err != nil {
		return err
	}
	if _, err := w.Write(h.MerkleRoot[:]); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b[:], h.Timestamp)
	if _, err := w.Write(b[:]); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b[:], h.Bits)
	if _, err := w.Write(b[:]); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b[:], h.Nonce)
	_, err := w.Write(b[:])
	return err
}

func (h *BlockHeader) deserializePure(r io.Reader) error {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	h.Version = int32(binary.LittleEndian.Uint32(b[:]))
	if _, err := io.ReadFull(r, h.PrevBlock[:]); err != nil {
		return err
	}
	if _, err := io.ReadFull(r, h.MerkleRoot[:]); err != nil {
		return err
	}
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	h.Timestamp = binary.LittleEndian.Uint32(b[:])
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	h.Bits = binary.LittleEndian.Uint32(b[:])
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	h.Nonce = binary.LittleEndian.Uint32(b[:])
	return nil
}

// BlockHash computes the SHA-256d hash of the pure (non-AuxPoW) 80-byte
// header encoding.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	var buf writerBuf
	_ = h.serializePure(&buf)
	return chainhash.HashFuncH(buf.b)
}

// Serialize writes the header to w, including an AuxPow attachment when
// AuxFlag is set.
func (h *BlockHeader) Serialize(w io.Writer) error {
	if err := h.serializePure(w); err != nil {
		return err
	}
	if h.AuxFlag() {
		if h.AuxPow == nil {
			return messageError("BlockHeader.Serialize",
				"aux flag set without an AuxPow attachment")
		}
		return h.AuxPow.Serialize(w)
	}
	return nil
}

// Deserialize reads a header from r, including an AuxPow attachment when
// the decoded version claims one.
func (h *BlockHeader) Deserialize(r io.Reader) error {
	if err := h.deserializePure(r); err != nil {
		return err
	}
	if h.AuxFlag() {
		h.AuxPow = new(AuxBlockHeader)
		return h.AuxPow.Deserialize(r)
	}
	return nil
}

// AuxBlockHeader is the merged-mining attachment: a
// parent-chain coinbase transaction and the two merkle branches proving,
// respectively, that the coinbase is included in the parent block and that
// this chain's slot is included in the merge-mining merkle tree the parent
// coinbase commits to.
type AuxBlockHeader struct {
	CoinbaseTx        *MsgTx
	ParentMerkleBranch []chainhash.Hash
	ChainMerkleBranch  []chainhash.Hash
	ChainIndex         int32
	ParentBlock        BlockHeader
}

// Serialize writes the AuxPow attachment to w.
func (a *AuxBlockHeader) Serialize(w io.Writer) error {
	if err := a.CoinbaseTx.Serialize(w); err != nil {
		return err
	}

	// hashBlock: always written as zero.
	var zero chainhash.Hash
	if _, err := w.Write(zero[:]); err != nil {
		return err
	}

	if err := writeHashVector(w, a.ParentMerkleBranch); err != nil {
		return err
	}

	// nIndex: always zero.
	var b [4]byte
	if _, err := w.Write(b[:]); err != nil {
		return err
	}

	if err := writeHashVector(w, a.ChainMerkleBranch); err != nil {
		return err
	}

	binary.LittleEndian.PutUint32(b[:], uint32(a.ChainIndex))
	if _, err := w.Write(b[:]); err != nil {
		return err
	}

	return a.ParentBlock.serializePure(w)
}

// Deserialize reads an AuxPow attachment from r.
func (a *AuxBlockHeader) Deserialize(r io.Reader) error {
	a.CoinbaseTx = new(MsgTx)
	if err := a.CoinbaseTx.Deserialize(r); err != nil {
		return err
	}

	var discardHash chainhash.Hash
	if _, err := io.ReadFull(r, discardHash[:]); err != nil {
		return err
	}

	branch, err := readHashVector(r)
	if err != nil {
		return err
	}
	a.ParentMerkleBranch = branch

	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}

	chainBranch, err := readHashVector(r)
	if err != nil {
		return err
	}
	if len(chainBranch) > MaxChainMerkleBranchLength {
		return messageError("AuxBlockHeader.Deserialize",
			"chain merkle branch too long")
	}
	a.ChainMerkleBranch = chainBranch

	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	a.ChainIndex = int32(binary.LittleEndian.Uint32(b[:]))

	return a.ParentBlock.deserializePure(r)
}

func writeHashVector(w io.Writer, hashes []chainhash.Hash) error {
	if err := WriteCompactSize(w, uint64(len(hashes))); err != nil {
		return err
	}
	for _, h := range hashes {
		if _, err := w.Write(h[:]); err != nil {
			return err
		}
	}
	return nil
}

func readHashVector(r io.Reader) ([]chainhash.Hash, error) {
	count, err := ReadCompactSize(r)
	if err != nil {
		return nil, err
	}
	if count > MaxChainMerkleBranchLength*8 {
		return nil, messageError("readHashVector", "hash vector too long")
	}
	hashes := make([]chainhash.Hash, count)
	for i := range hashes {
		if _, err := io.ReadFull(r, hashes[i][:]); err != nil {
			return nil, err
		}
	}
	return hashes, nil
}
