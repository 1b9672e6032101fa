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

// MainNetParams returns the network parameters for the main network.
func MainNetParams() *Params {
	// mainPowLimit is the highest proof of work value a block on the main
	// network can have. It is the value 2^224 - 1.
	mainPowLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne)

	return &Params{
		Name: "mainnet",

		PowLimit:            mainPowLimit,
		PowLimitBits:         standalone.BigToCompact(mainPowLimit),
		PowTargetSpacing:     150,
		LwmaAveragingWindow:  90,

		AllowMinDifficultyBlocks: false,
		NoRetargeting:            false,

		AuxpowChainID:     42,
		AuxpowStartHeight: 0,
		StrictChainID:     true,

		FreeTxMaxSizeInBlock:        250_000,
		FreeTxDifficultyCoefficient: 4,

		StakingRewardPercentage: stakingparams.STAKING_REWARD_PERCENTAGE,
		FreeTxLimitCoefficient:  stakingparams.FREE_TX_LIMIT_COEFFICIENT,
		FreeTxBaseLimit:         stakingparams.FREE_TX_BASE_LIMIT,
	}
}
