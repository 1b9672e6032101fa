// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package stakingparams holds the named constants that size the staking
// subsystem: lock-in period lengths, reward percentages, and the block-rate
// assumptions the reward and free-tx calculators are defined in terms of.
package stakingparams

// NUM_PERIODS is the number of distinct staking lock-in durations a Deposit
// transaction may select via periodIdx.
const NUM_PERIODS = 4

// BLOCKS_PER_DAY and BLOCKS_PER_YEAR fix the block-rate assumption the
// reward, penalty, and free-tx-window calculators are defined against:
// 144 blocks/day (one every ten minutes), 360 days/year.
const (
	BLOCKS_PER_DAY  = 144
	BLOCKS_PER_YEAR = 360 * BLOCKS_PER_DAY
)

// STAKING_PERIOD holds the lock-in duration, in blocks, for each periodIdx:
// 30, 90, 180, and 360 days.
var STAKING_PERIOD = [NUM_PERIODS]int64{4320, 12960, 25920, 51840}

// PercentageScale is the fixed-point denominator STAKING_REWARD_PERCENTAGE
// values are expressed against, so that the fractional 7.25% tier has an
// exact integer representation (725 / PercentageScale).
const PercentageScale = 10000

// STAKING_REWARD_PERCENTAGE holds the annualized percentage of the staked
// amount each periodIdx earns from the staking pool, in basis points scaled
// by PercentageScale (500 == 5.00%, 725 == 7.25%); longer lock-ins pay a
// higher rate.
var STAKING_REWARD_PERCENTAGE = [NUM_PERIODS]uint32{500, 600, 725, 1000}

// MIN_STAKING_AMOUNT is the minimum number of satoshis a Deposit output
// must carry to create a stake entry: 5 coins.
const MIN_STAKING_AMOUNT = 5 * 1_00000000

// STAKING_EARLY_WITHDRAWAL_PENALTY_PERCENTAGE is the percentage of a
// stake's amount forfeited when it is withdrawn before completeBlock.
const STAKING_EARLY_WITHDRAWAL_PENALTY_PERCENTAGE = 3

// STAKING_POOL_EXPIRY_BLOCKS bounds the staking pool's maximum-possible-draw
// computation: the pool is sized as though it must fund every
// currently active stake for no more than this many blocks (180 days).
const STAKING_POOL_EXPIRY_BLOCKS = 180 * BLOCKS_PER_DAY

// GP_TO_STAKING_COEFFICIENT converts a stake's per-block reward into the
// governance power it grants its owning script.
const GP_TO_STAKING_COEFFICIENT = 100

// FREE_TX_LIMIT_COEFFICIENT holds, per periodIdx, the multiplier used to
// convert "multiples of MIN_STAKING_AMOUNT staked" into free-tx bytes per
// window.
var FREE_TX_LIMIT_COEFFICIENT = [NUM_PERIODS]uint32{2048, 4096, 8192, 16384}

// FREE_TX_BASE_LIMIT is the free-tx byte allowance each stake adds on top
// of its amount-scaled share; it is counted once per stake, so a script
// with no stakes earns none of it.
const FREE_TX_BASE_LIMIT = 0

// DEFAULT_BATCH_SIZE bounds, in bytes, how much pending leveldb write-batch
// data the stakes DB accumulates before flushing it to the underlying store
// during Flush.
const DEFAULT_BATCH_SIZE = 1 << 20
