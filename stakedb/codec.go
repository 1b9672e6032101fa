// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stakedb

import (
	"bytes"
	"encoding/binary"
	"io"
	"sort"

	"stakecore/chainhash"
	"stakecore/staking"
	"stakecore/stakingparams"
	"stakecore/wire"
)

// The codec functions in this file serialize each auxiliary index
// wholesale: one binary blob under its reserved key. Map/set iteration is
// sorted before encoding so the blob is byte-for-byte reproducible across
// runs. None of this needs to be cross-node consensus-deterministic (it
// never enters a block hash); determinism here just keeps Verify and the
// tests predictable.

func sortedHashes(set map[chainhash.Hash]struct{}) []chainhash.Hash {
	out := make([]chainhash.Hash, 0, len(set))
	for h := range set {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return bytesLess(out[i][:], out[j][:]) })
	return out
}

func bytesLess(a, b []byte) bool {
	return bytes.Compare(a, b) < 0
}

func encodeHashSet(w *bytes.Buffer, set map[chainhash.Hash]struct{}) error {
	hashes := sortedHashes(set)
	if err := wire.WriteCompactSize(w, uint64(len(hashes))); err != nil {
		return err
	}
	for _, h := range hashes {
		if _, err := w.Write(h[:]); err != nil {
			return err
		}
	}
	return nil
}

func decodeHashSet(r *bytes.Reader) (map[chainhash.Hash]struct{}, error) {
	count, err := wire.ReadCompactSize(r)
	if err != nil {
		return nil, err
	}
	set := make(map[chainhash.Hash]struct{}, count)
	for i := uint64(0); i < count; i++ {
		var h chainhash.Hash
		if _, err := io.ReadFull(r, h[:]); err != nil {
			return nil, err
		}
		set[h] = struct{}{}
	}
	return set, nil
}

// encodeActiveStakes serializes the activeStakes set.
func encodeActiveStakes(set map[chainhash.Hash]struct{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := encodeHashSet(&buf, set); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeActiveStakes(blob []byte) (map[chainhash.Hash]struct{}, error) {
	return decodeHashSet(bytes.NewReader(blob))
}

// encodeStakesCompletedAtHeight serializes the stakesCompletedAtHeight
// map: height -> set<stakeId>.
func encodeStakesCompletedAtHeight(m map[uint32]map[chainhash.Hash]struct{}) ([]byte, error) {
	var buf bytes.Buffer

	heights := make([]uint32, 0, len(m))
	for h := range m {
		heights = append(heights, h)
	}
	sort.Slice(heights, func(i, j int) bool { return heights[i] < heights[j] })

	if err := wire.WriteCompactSize(&buf, uint64(len(heights))); err != nil {
		return nil, err
	}
	for _, h := range heights {
		var hb [4]byte
		binary.LittleEndian.PutUint32(hb[:], h)
		if _, err := buf.Write(hb[:]); err != nil {
			return nil, err
		}
		if err := encodeHashSet(&buf, m[h]); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeStakesCompletedAtHeight(blob []byte) (map[uint32]map[chainhash.Hash]struct{}, error) {
	r := bytes.NewReader(blob)
	count, err := wire.ReadCompactSize(r)
	if err != nil {
		return nil, err
	}
	out := make(map[uint32]map[chainhash.Hash]struct{}, count)
	for i := uint64(0); i < count; i++ {
		var hb [4]byte
		if _, err := io.ReadFull(r, hb[:]); err != nil {
			return nil, err
		}
		h := binary.LittleEndian.Uint32(hb[:])
		set, err := decodeHashSet(r)
		if err != nil {
			return nil, err
		}
		out[h] = set
	}
	return out, nil
}

// encodeAmountsByPeriods serializes amountByPeriod.
func encodeAmountsByPeriods(amounts [stakingparams.NUM_PERIODS]int64) []byte {
	var buf [stakingparams.NUM_PERIODS * 8]byte
	for i, a := range amounts {
		binary.LittleEndian.PutUint64(buf[i*8:(i+1)*8], uint64(a))
	}
	return buf[:]
}

func decodeAmountsByPeriods(blob []byte) (out [stakingparams.NUM_PERIODS]int64, err error) {
	if len(blob) != stakingparams.NUM_PERIODS*8 {
		return out, errCorruptAggregate("amounts_by_periods")
	}
	for i := range out {
		out[i] = int64(binary.LittleEndian.Uint64(blob[i*8 : (i+1)*8]))
	}
	return out, nil
}

// encodeScriptToStakes serializes scriptToActiveStakes:
// script-bytes -> set<stakeId>.
func encodeScriptToStakes(idx *scriptIndex[map[chainhash.Hash]struct{}]) ([]byte, error) {
	type pair struct {
		script []byte
		set    map[chainhash.Hash]struct{}
	}
	var pairs []pair
	idx.forEach(func(script []byte, set map[chainhash.Hash]struct{}) {
		pairs = append(pairs, pair{script: script, set: set})
	})
	sort.Slice(pairs, func(i, j int) bool { return bytesLess(pairs[i].script, pairs[j].script) })

	var buf bytes.Buffer
	if err := wire.WriteCompactSize(&buf, uint64(len(pairs))); err != nil {
		return nil, err
	}
	for _, p := range pairs {
		if err := wire.WriteVarBytes(&buf, p.script); err != nil {
			return nil, err
		}
		if err := encodeHashSet(&buf, p.set); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeScriptToStakes(blob []byte) (*scriptIndex[map[chainhash.Hash]struct{}], error) {
	r := bytes.NewReader(blob)
	count, err := wire.ReadCompactSize(r)
	if err != nil {
		return nil, err
	}
	idx := newScriptIndex[map[chainhash.Hash]struct{}]()
	for i := uint64(0); i < count; i++ {
		script, err := wire.ReadVarBytes(r, wire.MaxScriptSize, "script")
		if err != nil {
			return nil, err
		}
		set, err := decodeHashSet(r)
		if err != nil {
			return nil, err
		}
		idx.set(script, set)
	}
	return idx, nil
}

// encodeFreeTxInfoByScript serializes freeTxInfoByScript:
// script-bytes -> FreeTxInfo.
func encodeFreeTxInfoByScript(idx *scriptIndex[*staking.FreeTxInfo]) ([]byte, error) {
	type pair struct {
		script []byte
		info   *staking.FreeTxInfo
	}
	var pairs []pair
	idx.forEach(func(script []byte, info *staking.FreeTxInfo) {
		pairs = append(pairs, pair{script: script, info: info})
	})
	sort.Slice(pairs, func(i, j int) bool { return bytesLess(pairs[i].script, pairs[j].script) })

	var buf bytes.Buffer
	if err := wire.WriteCompactSize(&buf, uint64(len(pairs))); err != nil {
		return nil, err
	}
	for _, p := range pairs {
		if err := wire.WriteVarBytes(&buf, p.script); err != nil {
			return nil, err
		}
		if err := p.info.Serialize(&buf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func decodeFreeTxInfoByScript(blob []byte) (*scriptIndex[*staking.FreeTxInfo], error) {
	r := bytes.NewReader(blob)
	count, err := wire.ReadCompactSize(r)
	if err != nil {
		return nil, err
	}
	idx := newScriptIndex[*staking.FreeTxInfo]()
	for i := uint64(0); i < count; i++ {
		script, err := wire.ReadVarBytes(r, wire.MaxScriptSize, "script")
		if err != nil {
			return nil, err
		}
		info := new(staking.FreeTxInfo)
		if err := info.Deserialize(r); err != nil {
			return nil, err
		}
		idx.set(script, info)
	}
	return idx, nil
}

// freeTxWindowClose is one entry of the per-height closed-window record: a
// script and the usedConfirmed count its window closed with.
type freeTxWindowClose struct {
	Script        []byte
	UsedConfirmed uint32
}

func encodeFreeTxWindowCloses(entries []freeTxWindowClose) []byte {
	var buf bytes.Buffer
	_ = wire.WriteCompactSize(&buf, uint64(len(entries)))
	for _, e := range entries {
		_ = wire.WriteVarBytes(&buf, e.Script)
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], e.UsedConfirmed)
		buf.Write(b[:])
	}
	return buf.Bytes()
}

func decodeFreeTxWindowCloses(blob []byte) ([]freeTxWindowClose, error) {
	r := bytes.NewReader(blob)
	count, err := wire.ReadCompactSize(r)
	if err != nil {
		return nil, err
	}
	out := make([]freeTxWindowClose, 0, count)
	for i := uint64(0); i < count; i++ {
		script, err := wire.ReadVarBytes(r, wire.MaxScriptSize, "script")
		if err != nil {
			return nil, err
		}
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return nil, err
		}
		out = append(out, freeTxWindowClose{
			Script:        script,
			UsedConfirmed: binary.LittleEndian.Uint32(b[:]),
		})
	}
	return out, nil
}

func encodeUint32(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}

func decodeUint32(blob []byte) (uint32, error) {
	if len(blob) != 4 {
		return 0, errCorruptAggregate("uint32 field")
	}
	return binary.LittleEndian.Uint32(blob), nil
}

func encodeUint64(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

func decodeUint64(blob []byte) (uint64, error) {
	if len(blob) != 8 {
		return 0, errCorruptAggregate("uint64 field")
	}
	return binary.LittleEndian.Uint64(blob), nil
}

func encodeInt64(v int64) []byte {
	return encodeUint64(uint64(v))
}

func decodeInt64(blob []byte) (int64, error) {
	v, err := decodeUint64(blob)
	return int64(v), err
}

func encodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

func decodeBool(blob []byte) (bool, error) {
	if len(blob) != 1 {
		return false, errCorruptAggregate("bool field")
	}
	return blob[0] != 0, nil
}
