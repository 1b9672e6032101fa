// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"reflect"
	"testing"
)

func TestMsgTxSerializeRoundTrip(t *testing.T) {
	tx := &MsgTx{
		Version: 2,
		TxIn: []*TxIn{{
			PreviousOutPoint: OutPoint{Index: 1},
			SignatureScript:  []byte{0x51},
			Sequence:         0xfffffffe,
		}},
		TxOut: []*TxOut{
			{Value: 5000000000, PkScript: []byte{0x6a, 0x04, 0x53, 0x44, 0x01, 0x00}},
			{Value: 1000000000, PkScript: []byte{0x76, 0xa9}},
		},
		LockTime: 500000,
	}
	tx.TxIn[0].PreviousOutPoint.Hash[0] = 0x42

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	var decoded MsgTx
	if err := decoded.Deserialize(&buf); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if !reflect.DeepEqual(&decoded, tx) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", &decoded, tx)
	}
}

func TestMsgTxHashStableAcrossRoundTrip(t *testing.T) {
	tx := &MsgTx{
		Version: 1,
		TxIn: []*TxIn{{
			PreviousOutPoint: OutPoint{Index: 0xffffffff},
			SignatureScript:  []byte{0x04, 0xff, 0xff, 0x00, 0x1d},
			Sequence:         0xffffffff,
		}},
		TxOut: []*TxOut{{Value: 5000000000, PkScript: []byte{0x41}}},
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	var decoded MsgTx
	if err := decoded.Deserialize(&buf); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	if tx.TxHash() != decoded.TxHash() {
		t.Fatal("TxHash changed across a serialize/deserialize round trip")
	}
}

func TestMsgTxDeserializeRejectsHugeOutputCount(t *testing.T) {
	var buf bytes.Buffer
	tx := &MsgTx{Version: 1}
	if err := tx.Serialize(&buf); err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	// Rewrite the output count (after version + empty input vector) to a
	// pathological value.
	raw := buf.Bytes()
	var patched bytes.Buffer
	patched.Write(raw[:5])
	if err := WriteCompactSize(&patched, MaxTxOutPerMessage+1); err != nil {
		t.Fatalf("WriteCompactSize: %v", err)
	}
	patched.Write(raw[6:])

	var decoded MsgTx
	if err := decoded.Deserialize(&patched); err == nil {
		t.Fatal("Deserialize accepted an output count past the sanity bound")
	}
}
