// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package staking

import (
	"math/big"

	"stakecore/rewardschedule"
	"stakecore/stakingparams"
)

// StakeReward returns a stake's per-block reward given the global reward
// coefficient g (as a rational gNum/gDen, both non-negative, g <= 1) and
// the percentage table pct. The inner floor is absorbed by
// integer truncation before dividing by BLOCKS_PER_YEAR; this division
// ordering is consensus-critical and must not be reassociated. The
// numerator gNum*pct*amount spans far past 64 bits when the coefficient
// carries satoshi-scale terms, so the product is taken in big.Int.
func StakeReward(gNum, gDen int64, pct [stakingparams.NUM_PERIODS]uint32, e *StakeEntry) int64 {
	if gDen == 0 || gNum <= 0 {
		return 0
	}
	num := big.NewInt(gNum)
	num.Mul(num, big.NewInt(int64(pct[e.PeriodIdx])))
	num.Mul(num, big.NewInt(e.Amount))

	den := big.NewInt(gDen)
	den.Mul(den, big.NewInt(stakingparams.PercentageScale))

	num.Div(num, den)
	return num.Div(num, big.NewInt(stakingparams.BLOCKS_PER_YEAR)).Int64()
}

// EarlyWithdrawalPenalty returns the penalty forfeited when a stake is
// withdrawn before its completeBlock.
func EarlyWithdrawalPenalty(amount int64) int64 {
	return stakingparams.STAKING_EARLY_WITHDRAWAL_PENALTY_PERCENTAGE * amount / 100
}

// MaxPotential returns floor(Σ_i (pct[i]/PercentageScale) · T[i] / BLOCKS_PER_YEAR),
// the reward ceiling implied by the currently staked totals.
// Each term is accumulated without truncating it individually; only the
// final sum is floored, by the single integer division at the end. Since
// pct is an exact fixed-point (basis-point) representation of the
// fractional percentage tiers, flooring once at the end loses nothing.
func MaxPotential(pct [stakingparams.NUM_PERIODS]uint32, amountByPeriod [stakingparams.NUM_PERIODS]int64) int64 {
	var sum int64
	for i := 0; i < stakingparams.NUM_PERIODS; i++ {
		sum += int64(pct[i]) * amountByPeriod[i]
	}
	return sum / (stakingparams.PercentageScale * stakingparams.BLOCKS_PER_YEAR)
}

// MaxPossibleForward returns the forward-direction pool draw ceiling at
// height h given the current pool balance: the expiry-amortized
// slice of the pool plus this block's staking-reward credit.
func MaxPossibleForward(poolBalance int64, h int64) int64 {
	return poolBalance/stakingparams.STAKING_POOL_EXPIRY_BLOCKS + rewardschedule.GetStakingRewardForHeight(h)
}

// MaxPossibleReverse reconstructs the pre-debit pool draw ceiling during
// reorg, undoing MaxPossibleForward's effect exactly. Reassociating this
// algebra drifts the coefficient by one block and must not be attempted.
func MaxPossibleReverse(poolBalance int64, h int64) int64 {
	stakingReward := rewardschedule.GetStakingRewardForHeight(h)
	return (poolBalance + stakingparams.STAKING_POOL_EXPIRY_BLOCKS*stakingReward) /
		(stakingparams.STAKING_POOL_EXPIRY_BLOCKS - 1)
}

// GlobalRewardCoefficient returns g = min(1, maxPossible/maxPotential) as a
// rational gNum/gDen, so callers can feed it straight into StakeReward
// without losing precision to an intermediate float.
func GlobalRewardCoefficient(maxPossible, maxPotential int64) (gNum, gDen int64) {
	if maxPotential <= 0 {
		return 0, 1
	}
	if maxPossible >= maxPotential {
		return 1, 1
	}
	return maxPossible, maxPotential
}

// FreeTxLimitForStakes returns the free-tx byte allowance a script earns
// from the set of stakes it owns.
func FreeTxLimitForStakes(coefficients [stakingparams.NUM_PERIODS]uint32, baseLimit uint32, stakes []*StakeEntry) uint32 {
	var limit int64
	for _, s := range stakes {
		multiples := s.Amount/stakingparams.MIN_STAKING_AMOUNT - 1
		limit += multiples*int64(coefficients[s.PeriodIdx]) + int64(baseLimit)
	}
	if limit < 0 {
		return 0
	}
	return uint32(limit)
}

// GovernancePowerCredit returns the per-block governance-power credit a
// stake accrues for its owning script.
func GovernancePowerCredit(pct [stakingparams.NUM_PERIODS]uint32, e *StakeEntry) int64 {
	perBlock := int64(pct[e.PeriodIdx]) * e.Amount / stakingparams.PercentageScale / stakingparams.BLOCKS_PER_YEAR
	return stakingparams.GP_TO_STAKING_COEFFICIENT * perBlock
}
