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

// MaxTxOutPerMessage is a sanity bound on the number of outputs a decoded
// transaction may carry, guarding against a pathological allocation from
// corrupt or hostile input.
const MaxTxOutPerMessage = 1 << 20

// MaxScriptSize bounds a single locking/unlocking script, matching the
// standard Bitcoin-family consensus limit of 10,000 bytes.
const MaxScriptSize = 10000

// OutPoint defines a transaction output to be used as an input.
type OutPoint struct {
	Hash  chainhash.Hash
	Index uint32
}

// TxIn defines a transaction input.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Sequence         uint32
}

// TxOut defines a transaction output.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// MsgTx is the minimal transaction representation the staking core needs:
// enough to read a coinbase's SignatureScript (for AuxPoW merged-mining
// commitments) and a staking transaction's first two outputs (for deposit
// and burn classification). Full transaction handling (input signing,
// witness data, fee calculation) belongs to the surrounding node, not this
// core.
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32
}

// TxHash returns the transaction hash, computed as SHA-256d of the
// serialized transaction.
func (msg *MsgTx) TxHash() chainhash.Hash {
	return chainhash.HashFuncH(msg.serializeNoErr())
}

func (msg *MsgTx) serializeNoErr() []byte {
	var buf writerBuf
	_ = msg.Serialize(&buf)
	return buf.b
}

// writerBuf is a trivial growable byte sink implementing io.Writer without
// pulling in bytes.Buffer semantics this package doesn't otherwise need.
type writerBuf struct{ b []byte }

func (w *writerBuf) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}

// Serialize encodes the transaction to w.
func (msg *MsgTx) Serialize(w io.Writer) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(msg.Version))
	if _, err := w.Write(b[:]); err != nil {
		return err
	}

	if err := WriteCompactSize(w, uint64(len(msg.TxIn))); err != nil {
		return err
	}
	for _, ti := range msg.TxIn {
		if _, err := w.Write(ti.PreviousOutPoint.Hash[:]); err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(b[:], ti.PreviousOutPoint.Index)
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
		if err := WriteVarBytes(w, ti.SignatureScript); err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(b[:], ti.Sequence)
		if _, err := w.Write(b[:]); err != nil {
			return err
		}
	}

	if err := WriteCompactSize(w, uint64(len(msg.TxOut))); err != nil {
		return err
	}
	for _, to := range msg.TxOut {
		var v [8]byte
		binary.LittleEndian.PutUint64(v[:], uint64(to.Value))
		if _, err := w.Write(v[:]); err != nil {
			return err
		}
		if err := WriteVarBytes(w, to.PkScript); err != nil {
			return err
		}
	}

	binary.LittleEndian.PutUint32(b[:], msg.LockTime)
	_, err := w.Write(b[:])
	return err
}

// Deserialize decodes a transaction from r into msg.
func (msg *MsgTx) Deserialize(r io.Reader) error {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	msg.Version = int32(binary.LittleEndian.Uint32(b[:]))

	inCount, err := ReadCompactSize(r)
	if err != nil {
		return err
	}
	msg.TxIn = make([]*TxIn, inCount)
	for i := range msg.TxIn {
		ti := new(TxIn)
		if _, err := io.ReadFull(r, ti.PreviousOutPoint.Hash[:]); err != nil {
			return err
		}
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		ti.PreviousOutPoint.Index = binary.LittleEndian.Uint32(b[:])
		ti.SignatureScript, err = ReadVarBytes(r, MaxScriptSize, "signature script")
		if err != nil {
			return err
		}
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		ti.Sequence = binary.LittleEndian.Uint32(b[:])
		msg.TxIn[i] = ti
	}

	outCount, err := ReadCompactSize(r)
	if err != nil {
		return err
	}
	if outCount > MaxTxOutPerMessage {
		return messageError("MsgTx.Deserialize", "too many outputs")
	}
	msg.TxOut = make([]*TxOut, outCount)
	for i := range msg.TxOut {
		to := new(TxOut)
		var v [8]byte
		if _, err := io.ReadFull(r, v[:]); err != nil {
			return err
		}
		to.Value = int64(binary.LittleEndian.Uint64(v[:]))
		to.PkScript, err = ReadVarBytes(r, MaxScriptSize, "pk script")
		if err != nil {
			return err
		}
		msg.TxOut[i] = to
	}

	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	msg.LockTime = binary.LittleEndian.Uint32(b[:])
	return nil
}
