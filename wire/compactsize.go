// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// CompactSize encoding prefixes, mirroring Bitcoin-style var-int encoding:
// values below 0xfd encode as a single byte; 0xfd/0xfe/0xff introduce a
// following 2/4/8-byte little-endian value.
const (
	cs16 = 0xfd
	cs32 = 0xfe
	cs64 = 0xff
)

// ReadCompactSize reads a CompactSize-encoded unsigned integer from r.
// Staking deposit outputs use this encoding for the funding output index.
func ReadCompactSize(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:1]); err != nil {
		return 0, err
	}

	switch b[0] {
	case cs16:
		if _, err := io.ReadFull(r, b[:2]); err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint16(b[:2])), nil
	case cs32:
		if _, err := io.ReadFull(r, b[:4]); err != nil {
			return 0, err
		}
		return uint64(binary.LittleEndian.Uint32(b[:4])), nil
	case cs64:
		if _, err := io.ReadFull(r, b[:8]); err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint64(b[:8]), nil
	default:
		return uint64(b[0]), nil
	}
}

// CompactSizeLen returns the number of bytes the CompactSize encoding of val
// would occupy.
func CompactSizeLen(val uint64) int {
	switch {
	case val < cs16:
		return 1
	case val <= 0xffff:
		return 3
	case val <= 0xffffffff:
		return 5
	default:
		return 9
	}
}

// WriteCompactSize writes val to w using the CompactSize encoding.
func WriteCompactSize(w io.Writer, val uint64) error {
	switch {
	case val < cs16:
		_, err := w.Write([]byte{byte(val)})
		return err
	case val <= 0xffff:
		var b [3]byte
		b[0] = cs16
		binary.LittleEndian.PutUint16(b[1:], uint16(val))
		_, err := w.Write(b[:])
		return err
	case val <= 0xffffffff:
		var b [5]byte
		b[0] = cs32
		binary.LittleEndian.PutUint32(b[1:], uint32(val))
		_, err := w.Write(b[:])
		return err
	default:
		var b [9]byte
		b[0] = cs64
		binary.LittleEndian.PutUint64(b[1:], val)
		_, err := w.Write(b[:])
		return err
	}
}

// ReadVarBytes reads a CompactSize length followed by that many bytes,
// rejecting lengths over maxAllowed to bound allocation from untrusted
// input.
func ReadVarBytes(r io.Reader, maxAllowed uint64, fieldName string) ([]byte, error) {
	count, err := ReadCompactSize(r)
	if err != nil {
		return nil, err
	}
	if count > maxAllowed {
		str := fmt.Sprintf("%s is larger than the max allowed size [count %d, max %d]",
			fieldName, count, maxAllowed)
		return nil, messageError("ReadVarBytes", str)
	}

	b := make([]byte, count)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// WriteVarBytes writes a CompactSize length followed by the bytes of b.
func WriteVarBytes(w io.Writer, b []byte) error {
	if err := WriteCompactSize(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}
