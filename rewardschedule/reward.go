// Copyright (c) 2013-2015 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package rewardschedule computes the per-block coinbase subsidy and the
// slice of it routed into the staking pool. Both functions are
// pure: the entire schedule is a fixed table indexed by height.
//
// REWARD_AMOUNTS is not a geometric decay; the table is authored literally
// tier by tier.
package rewardschedule

// numReductions is the number of entries in REWARD_AMOUNTS.
const numReductions = 39

// BOOTSTRAP_PERIOD is the number of blocks the first reward tier covers
// before the first reduction applies.
const BOOTSTRAP_PERIOD = 4200

// REWARD_REDUCTION_PERIOD is the number of blocks between successive
// reward reductions after the bootstrap period.
const REWARD_REDUCTION_PERIOD = 52500

// REWARD_AMOUNTS is the fixed, monotonically non-increasing table of
// per-block subsidies indexed by reduction tier, denominated in satoshis.
var REWARD_AMOUNTS = [numReductions]int64{
	50000000000, 7500000000, 7000000000, 6500000000, 5500000000, 4000000000,
	2500000000, 1500000000, 750000000, 375000000, 187500000, 93750000,
	46875000, 23437500, 11718750, 5859375, 2929688, 1464844, 732422,
	366210, 183104, 91552, 45776, 22888, 11444, 5722, 2861, 1430, 715,
	358, 179, 90, 45, 23, 12, 6, 3, 2, 1,
}

// fractionStakingRewardNum/fractionStakingRewardDen is
// FRACTION_OF_STAKING_REWARD (1/10), the fixed rational fraction of each
// block's subsidy routed into the staking pool.
const (
	fractionStakingRewardNum = 1
	fractionStakingRewardDen = 10
)

// GetBlockRewardForHeight returns the coinbase subsidy for a block at
// height h, per the fixed reduction schedule. Heights at or
// beyond the 39th reduction's activation pay nothing, forever.
func GetBlockRewardForHeight(h int64) int64 {
	for i := 0; i < numReductions; i++ {
		if h < BOOTSTRAP_PERIOD+int64(i)*REWARD_REDUCTION_PERIOD {
			return REWARD_AMOUNTS[i]
		}
	}
	return 0
}

// GetStakingRewardForHeight returns the slice of a block's subsidy routed
// into the staking pool at height h: floor(FRACTION_OF_STAKING_REWARD *
// GetBlockRewardForHeight(h)).
func GetStakingRewardForHeight(h int64) int64 {
	reward := GetBlockRewardForHeight(h)
	return reward * fractionStakingRewardNum / fractionStakingRewardDen
}
