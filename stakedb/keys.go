// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stakedb

import (
	"encoding/hex"
	"fmt"
)

// Reserved top-level keys for the persisted aggregates. Every
// auxiliary index the base DB owns lives under one of these, dumped
// wholesale on each Flush.
var (
	keyActiveStakes             = []byte("active_stakes")
	keyAddressToStakesMap       = []byte("address_to_stakes_map")
	keyStakesCompletedAtHeight  = []byte("stakes_completed_at_block_height")
	keyAmountsByPeriods         = []byte("amounts_by_periods")
	keyBestBlockHash            = []byte("best_block_hash")
	keyStakingPool              = []byte("staking_pool")
	keyFreeTxInfo               = []byte("free_tx_info")
	keyNumCompleteStakes        = []byte("num_complete_stakes")
	keyNumEarlyWithdrawnStakes  = []byte("num_early_withdrawn_stakes")
	keyFlushOngoing             = []byte("flush_ongoing")
)

// Per-entity key prefixes: one leveldb key per block hash, per
// closing height, and per script, rather than one wholesale blob.
const (
	prefixBlockFreeTxSize = "blk_free_tx_size_"
	prefixFreeTxWindowEnd = "ftx_window_end_"
	prefixGovernancePower = "gp_"
)

func blockFreeTxSizeKey(blockHash [32]byte) []byte {
	return []byte(prefixBlockFreeTxSize + hex.EncodeToString(blockHash[:]))
}

func freeTxWindowEndKey(height uint32) []byte {
	return []byte(fmt.Sprintf("%s%d", prefixFreeTxWindowEnd, height))
}

func governancePowerKey(script []byte) []byte {
	return append([]byte(prefixGovernancePower), script...)
}

// stakeEntryKey is the literal 32-byte stake id: stake entries are stored
// directly at key = stake id, not under a prefix.
func stakeEntryKey(id [32]byte) []byte {
	return id[:]
}
