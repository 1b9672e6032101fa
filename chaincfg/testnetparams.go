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

// TestNetParams returns the network parameters for the test network.
func TestNetParams() *Params {
	testPowLimit := new(big.Int).Sub(new(big.Int).Lsh(bigOne, 232), bigOne)

	return &Params{
		Name: "testnet",

		PowLimit:            testPowLimit,
		PowLimitBits:         standalone.BigToCompact(testPowLimit),
		PowTargetSpacing:     150,
		LwmaAveragingWindow:  90,

		AllowMinDifficultyBlocks: true,
		NoRetargeting:            false,

		AuxpowChainID:     142,
		AuxpowStartHeight: 0,
		StrictChainID:     true,

		FreeTxMaxSizeInBlock:        250_000,
		FreeTxDifficultyCoefficient: 4,

		StakingRewardPercentage: stakingparams.STAKING_REWARD_PERCENTAGE,
		FreeTxLimitCoefficient:  stakingparams.FREE_TX_LIMIT_COEFFICIENT,
		FreeTxBaseLimit:         stakingparams.FREE_TX_BASE_LIMIT,
	}
}
