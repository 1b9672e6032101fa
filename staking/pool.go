// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package staking

import "fmt"

// StakingPool is the chain-wide pot funded by the staking portion of each
// block's subsidy and drained by per-stake rewards. It is always an owned
// field of whoever holds it (the stakes DB base, or a cache's in-progress
// copy); there is no process-wide singleton.
type StakingPool struct {
	Balance int64
}

// Credit adds amount to the pool, e.g. the staking slice of a block's
// subsidy.
func (p *StakingPool) Credit(amount int64) {
	p.Balance += amount
}

// Debit removes amount from the pool, e.g. a stake's per-block reward.
// An amount exceeding the balance is an error: callers computing rewards
// via the coefficient g never overdraw a consistent pool.
func (p *StakingPool) Debit(amount int64) error {
	if amount > p.Balance {
		return fmt.Errorf("staking: pool debit %d exceeds balance %d", amount, p.Balance)
	}
	p.Balance -= amount
	return nil
}
