// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package standalone

import (
	"math/big"

	"stakecore/chainhash"
)

// HeaderNode is the minimal ancestor-by-height view of the chain index the
// retarget needs. Height, Timestamp, and Bits describe the node itself;
// Parent walks one block towards the genesis, returning nil at the genesis
// block.
type HeaderNode interface {
	Height() int64
	Timestamp() int64
	Bits() uint32
	Hash() chainhash.Hash
	Parent() HeaderNode
}

// FreeTxSizeLookup returns the number of free (fee-exempt) transaction
// bytes that were included in the block with the given hash. This is the
// stakes DB's blockFreeTxSize aggregate surfaced to the PoW
// package without introducing an import cycle between standalone and
// stakedb.
type FreeTxSizeLookup func(blockHash chainhash.Hash) uint32

// Params bundles the retarget-relevant consensus parameters consumed here.
type Params struct {
	PowLimit     *big.Int
	PowLimitBits uint32

	// TargetSpacing is T, the desired seconds between blocks.
	TargetSpacing int64

	// AveragingWindow is N, the number of blocks the LWMA-1 average spans.
	AveragingWindow int64

	// AllowMinDifficultyBlocks enables the testnet minimum-difficulty
	// special case: a block mined more than 2*TargetSpacing after its
	// parent may claim powLimit.
	AllowMinDifficultyBlocks bool

	// NoRetargeting disables the retarget entirely (regtest): every block
	// must satisfy exactly PowLimitBits.
	NoRetargeting bool

	// FreeTxMaxSizeInBlock is fx_max, the nominal free-tx byte budget per
	// block the difficulty scaling is normalized against.
	FreeTxMaxSizeInBlock uint32

	// FreeTxDifficultyCoefficient is k, the coefficient controlling how
	// strongly free-tx volume eases the target.
	FreeTxDifficultyCoefficient uint32
}

// GetNextWorkRequired computes the required compact target for the block
// that extends prevNode, folding in the free-tx byte volume of the new
// block itself.
func GetNextWorkRequired(
	params *Params,
	prevNode HeaderNode,
	newBlockTime int64,
	newBlockFreeTxBytes uint32,
	freeTxBytes FreeTxSizeLookup,
) uint32 {
	if params.NoRetargeting {
		return params.PowLimitBits
	}

	if prevNode == nil {
		return params.PowLimitBits
	}

	if params.AllowMinDifficultyBlocks &&
		newBlockTime > prevNode.Timestamp()+2*params.TargetSpacing {
		log.Debugf("allowing minimum-difficulty block at time %d (parent time %d)",
			newBlockTime, prevNode.Timestamp())
		return params.PowLimitBits
	}

	base := lwmaCalculateNextBaseTarget(params, prevNode, freeTxBytes)

	// Scale the base target by how much free-tx volume this block itself
	// carries: more free bytes eases the target proportionally, spreading
	// the fee-exempt cost across the retarget window.
	denom := new(big.Int).Mul(
		big.NewInt(int64(params.FreeTxMaxSizeInBlock)),
		big.NewInt(int64(params.FreeTxDifficultyCoefficient)))
	if denom.Sign() <= 0 {
		return BigToCompact(clampToPowLimit(base, params.PowLimit))
	}

	numerator := new(big.Int).Add(denom, big.NewInt(int64(newBlockFreeTxBytes)))
	target := new(big.Int).Mul(base, numerator)
	target.Div(target, denom)

	return BigToCompact(clampToPowLimit(target, params.PowLimit))
}

// lwmaCalculateNextBaseTarget computes the LWMA-1 average, before the new
// block's own free-tx scaling is applied. The division order
// `base_target / N / k` and `avgTarget * weightedSolvetime` is
// consensus-critical: pre-dividing each term keeps the 256-bit
// accumulation from overflowing, and reassociating it changes results.
func lwmaCalculateNextBaseTarget(params *Params, prevNode HeaderNode, freeTxBytes FreeTxSizeLookup) *big.Int {
	n := params.AveragingWindow
	h := prevNode.Height()
	if h < n {
		return new(big.Int).Set(params.PowLimit)
	}

	// nodes[n] is prevNode (height h); nodes[0] is the anchor n blocks
	// further back (height h-n), used only to seed the first solvetime.
	nodes := make([]HeaderNode, n+1)
	cur := prevNode
	for i := n; i >= 0; i-- {
		nodes[i] = cur
		if parent := cur.Parent(); parent != nil {
			cur = parent
		}
	}

	k := new(big.Int).Mul(big.NewInt(n), big.NewInt(n+1))
	k.Mul(k, big.NewInt(params.TargetSpacing))
	k.Div(k, big.NewInt(2))

	fxDenom := new(big.Int).Mul(
		big.NewInt(int64(params.FreeTxMaxSizeInBlock)),
		big.NewInt(int64(params.FreeTxDifficultyCoefficient)))

	weightedSolvetime := big.NewInt(0)
	avgTarget := big.NewInt(0)
	prevTime := nodes[0].Timestamp()

	for j := int64(1); j <= n; j++ {
		node := nodes[j]

		thisTime := node.Timestamp()
		if thisTime < prevTime+1 {
			thisTime = prevTime + 1
		}
		solvetime := thisTime - prevTime
		prevTime = thisTime

		weightedSolvetime.Add(weightedSolvetime, big.NewInt(j*solvetime))

		blockTarget := CompactToBig(node.Bits())
		if fxDenom.Sign() > 0 {
			bytesInBlock := big.NewInt(int64(freeTxBytes(node.Hash())))
			scaledDenom := new(big.Int).Add(fxDenom, bytesInBlock)
			if scaledDenom.Sign() > 0 {
				blockTarget.Mul(blockTarget, fxDenom)
				blockTarget.Div(blockTarget, scaledDenom)
			}
		}

		term := new(big.Int).Div(blockTarget, big.NewInt(n))
		term.Div(term, k)
		avgTarget.Add(avgTarget, term)
	}

	nextTarget := new(big.Int).Mul(avgTarget, weightedSolvetime)
	return clampToPowLimit(nextTarget, params.PowLimit)
}

func clampToPowLimit(target, powLimit *big.Int) *big.Int {
	if target.Sign() <= 0 {
		return big.NewInt(1)
	}
	if target.Cmp(powLimit) > 0 {
		return new(big.Int).Set(powLimit)
	}
	return target
}
