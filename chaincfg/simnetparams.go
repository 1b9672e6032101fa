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

// SimNetParams returns the network parameters for the simulation test
// network, used by in-process integration tests that need fast, abundant
// block production.
func SimNetParams() *Params {
	simNetPowLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne)

	return &Params{
		Name: "simnet",

		PowLimit:            simNetPowLimit,
		PowLimitBits:         standalone.BigToCompact(simNetPowLimit),
		PowTargetSpacing:     1,
		LwmaAveragingWindow:  45,

		AllowMinDifficultyBlocks: true,
		NoRetargeting:            false,

		AuxpowChainID:     342,
		AuxpowStartHeight: 0,
		StrictChainID:     false,

		FreeTxMaxSizeInBlock:        250_000,
		FreeTxDifficultyCoefficient: 4,

		StakingRewardPercentage: stakingparams.STAKING_REWARD_PERCENTAGE,
		FreeTxLimitCoefficient:  stakingparams.FREE_TX_LIMIT_COEFFICIENT,
		FreeTxBaseLimit:         stakingparams.FREE_TX_BASE_LIMIT,
	}
}
