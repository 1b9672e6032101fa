// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chaincfg defines the consensus-critical configuration parameters
// consumed by the retarget, AuxPoW, and staking calculators: pow
// limits and retarget knobs, merge-mining chain identity, and the per-period
// staking/free-tx coefficients. It does not carry network/address/DNS-seed
// configuration since this module has no peer-to-peer or wallet surface.
package chaincfg

import (
	"math/big"

	"stakecore/stakingparams"
)

// Params groups the network-specific consensus parameters a staking/PoW
// core needs.
type Params struct {
	// Name identifies the network these parameters describe.
	Name string

	// PowLimit is the highest proof-of-work target permitted on this
	// network, and PowLimitBits is its compact encoding.
	PowLimit     *big.Int
	PowLimitBits uint32

	// PowTargetSpacing is the desired number of seconds between blocks.
	PowTargetSpacing int64

	// LwmaAveragingWindow is the number of blocks the LWMA-1 retarget
	// averages over.
	LwmaAveragingWindow int64

	// AllowMinDifficultyBlocks enables the testnet-style minimum
	// difficulty special case in GetNextWorkRequired.
	AllowMinDifficultyBlocks bool

	// NoRetargeting disables the retarget entirely; every block must meet
	// PowLimitBits exactly. Intended for regression-test networks.
	NoRetargeting bool

	// AuxpowChainID is this chain's merge-mining chain identifier, carried
	// in the high 16 bits of a block header's version and checked against
	// AuxPoW attachments.
	AuxpowChainID uint32

	// AuxpowStartHeight is the first height at which AuxPoW-flagged
	// headers are accepted.
	AuxpowStartHeight int64

	// StrictChainID rejects AuxPoW attachments whose parent block claims
	// this chain's own chain ID.
	StrictChainID bool

	// FreeTxMaxSizeInBlock and FreeTxDifficultyCoefficient parameterize
	// how strongly free-tx byte volume eases the PoW target.
	FreeTxMaxSizeInBlock        uint32
	FreeTxDifficultyCoefficient uint32

	// StakingRewardPercentage, FreeTxLimitCoefficient, and FreeTxBaseLimit
	// default to stakingparams' values but are exposed per-network so a
	// test network can override them.
	StakingRewardPercentage [stakingparams.NUM_PERIODS]uint32
	FreeTxLimitCoefficient  [stakingparams.NUM_PERIODS]uint32
	FreeTxBaseLimit         uint32
}

var bigOne = big.NewInt(1)
