// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stakedb

import (
	"bytes"

	"github.com/dchest/siphash"
)

// scriptBucketCount is the number of buckets a scriptIndex shards its
// entries across. Scripts are variable-length byte strings, so rather than
// keying a Go map directly on a converted string we run the script through
// siphash and bucket on the low bits of the result, then resolve
// collisions within a bucket by direct comparison.
const scriptBucketCount = 256

// scriptIndexKey0/scriptIndexKey1 seed the siphash bucket function. They
// need not be secret: the hash only selects a bucket, it never leaves the
// process or gates anything security-sensitive.
const (
	scriptIndexKey0 = 0x5343524950545f30
	scriptIndexKey1 = 0x53435249505f4b31
)

func scriptBucket(script []byte) int {
	return int(siphash.Hash(scriptIndexKey0, scriptIndexKey1, script) % scriptBucketCount)
}

// scriptEntry is one (script, value) pair living in a scriptIndex bucket.
type scriptEntry[V any] struct {
	script []byte
	value  V
}

// scriptIndex is a script-bytes-keyed map, sharded into siphash-selected
// buckets. It backs scriptToActiveStakes and freeTxInfoByScript in both the
// base DB's in-memory view and the cache overlay, and the cache's per-script
// governance-power deltas.
type scriptIndex[V any] struct {
	buckets [scriptBucketCount][]scriptEntry[V]
}

func newScriptIndex[V any]() *scriptIndex[V] {
	return &scriptIndex[V]{}
}

// clone returns a deep copy of m. copyValue duplicates each entry's value;
// for reference-typed V it must copy the referenced state too, so that
// mutating the clone's values never touches m's.
func (m *scriptIndex[V]) clone(copyValue func(V) V) *scriptIndex[V] {
	out := newScriptIndex[V]()
	for i, bucket := range m.buckets {
		if len(bucket) == 0 {
			continue
		}
		cloned := make([]scriptEntry[V], len(bucket))
		for j, e := range bucket {
			cloned[j] = scriptEntry[V]{script: e.script, value: copyValue(e.value)}
		}
		out.buckets[i] = cloned
	}
	return out
}

func (m *scriptIndex[V]) get(script []byte) (V, bool) {
	bucket := m.buckets[scriptBucket(script)]
	for i := range bucket {
		if bytes.Equal(bucket[i].script, script) {
			return bucket[i].value, true
		}
	}
	var zero V
	return zero, false
}

func (m *scriptIndex[V]) set(script []byte, v V) {
	idx := scriptBucket(script)
	bucket := m.buckets[idx]
	for i := range bucket {
		if bytes.Equal(bucket[i].script, script) {
			bucket[i].value = v
			return
		}
	}
	m.buckets[idx] = append(bucket, scriptEntry[V]{
		script: append([]byte(nil), script...),
		value:  v,
	})
}

func (m *scriptIndex[V]) delete(script []byte) {
	idx := scriptBucket(script)
	bucket := m.buckets[idx]
	for i := range bucket {
		if bytes.Equal(bucket[i].script, script) {
			m.buckets[idx] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

// forEach visits every (script, value) pair. Iteration order is
// bucket-major and not meaningful; callers that need a stable order (e.g.
// serialization) must sort what they collect.
func (m *scriptIndex[V]) forEach(fn func(script []byte, v V)) {
	for _, bucket := range m.buckets {
		for _, e := range bucket {
			fn(e.script, e.value)
		}
	}
}

func (m *scriptIndex[V]) len() int {
	n := 0
	for _, bucket := range m.buckets {
		n += len(bucket)
	}
	return n
}
