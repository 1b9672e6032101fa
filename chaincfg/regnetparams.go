// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaincfg

import (
	"math/big"

	"stakecore/stakingparams"
	"stakecore/standalone"
)

// RegNetParams returns the network parameters for the regression test
// network. Retargeting is disabled: every block must meet PowLimitBits.
func RegNetParams() *Params {
	regNetPowLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)

	return &Params{
		Name: "regnet",

		PowLimit:            regNetPowLimit,
		PowLimitBits:         standalone.BigToCompact(regNetPowLimit),
		PowTargetSpacing:     150,
		LwmaAveragingWindow:  90,

		AllowMinDifficultyBlocks: true,
		NoRetargeting:            true,

		AuxpowChainID:     242,
		AuxpowStartHeight: 0,
		StrictChainID:     false,

		FreeTxMaxSizeInBlock:        250_000,
		FreeTxDifficultyCoefficient: 4,

		StakingRewardPercentage: stakingparams.STAKING_REWARD_PERCENTAGE,
		FreeTxLimitCoefficient:  stakingparams.FREE_TX_LIMIT_COEFFICIENT,
		FreeTxBaseLimit:         stakingparams.FREE_TX_BASE_LIMIT,
	}
}
