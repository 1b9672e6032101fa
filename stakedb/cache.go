// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stakedb

import (
	"stakecore/chainhash"
	"stakecore/staking"
	"stakecore/stakingparams"
)

// Cache is the in-memory overlay over a StakesDB. An editable
// cache snapshot-copies the base's active-stakes set, completion map,
// script-map, free-tx map, per-period amounts, best block, and
// staking-pool balance at construction, and accumulates every mutation
// in-place until flushDB (or drop) ends the session. The copies are deep:
// until FlushDB, nothing the cache does is visible to the base, so a Drop
// without a flush truly discards the session. A view-only cache holds no
// state of its own at all; it delegates every read to the base and every
// mutator fails with ErrViewOnly.
//
// Individual stake entries are not snapshot-copied wholesale:
// the cache keeps a sparse overlay of just the entries it has touched this
// session, falling through to the base DB for everything else.
type Cache struct {
	db       *StakesDB
	viewOnly bool
	flushed  bool

	// Sparse stake-entry overlay.
	stakesMap      map[chainhash.Hash]staking.StakeEntry
	stakesToRemove map[chainhash.Hash]struct{}

	// Full snapshot-copied aggregates.
	activeStakes            map[chainhash.Hash]struct{}
	scriptToActiveStakes    *scriptIndex[map[chainhash.Hash]struct{}]
	stakesCompletedAtHeight map[uint32]map[chainhash.Hash]struct{}
	amountByPeriod          [stakingparams.NUM_PERIODS]int64
	freeTxInfoByScript      *scriptIndex[*staking.FreeTxInfo]
	numCompleteStakes       uint64
	numEarlyWithdrawnStakes uint64
	stakingPool             staking.StakingPool
	bestBlockHash           chainhash.Hash

	// Sparse per-entity overlays. These live as individual keys on the
	// base, not a wholesale blob, so the cache only tracks deltas.
	govDelta           *scriptIndex[int64]
	blockFreeTxSizes   map[chainhash.Hash]uint32
	freeTxWindowCloses map[uint32][]freeTxWindowClose

	// Heights whose persisted closed-window record was consumed by a
	// reorg this session; flush erases the stale keys.
	freeTxWindowEndsToRemove map[uint32]struct{}
}

func newCache(db *StakesDB, viewOnly bool) *Cache {
	if viewOnly {
		return &Cache{db: db, viewOnly: true}
	}

	db.aggMu.RLock()
	defer db.aggMu.RUnlock()

	c := &Cache{
		db:                       db,
		stakesMap:                make(map[chainhash.Hash]staking.StakeEntry),
		stakesToRemove:           make(map[chainhash.Hash]struct{}),
		activeStakes:             cloneHashSet(db.agg.activeStakes),
		scriptToActiveStakes:     db.agg.scriptToActiveStakes.clone(cloneHashSet),
		stakesCompletedAtHeight:  make(map[uint32]map[chainhash.Hash]struct{}, len(db.agg.stakesCompletedAtHeight)),
		amountByPeriod:           db.agg.amountByPeriod,
		freeTxInfoByScript:       db.agg.freeTxInfoByScript.clone((*staking.FreeTxInfo).Clone),
		numCompleteStakes:        db.agg.numCompleteStakes,
		numEarlyWithdrawnStakes:  db.agg.numEarlyWithdrawnStakes,
		stakingPool:              db.agg.stakingPool,
		bestBlockHash:            db.agg.bestBlockHash,
		govDelta:                 newScriptIndex[int64](),
		blockFreeTxSizes:         make(map[chainhash.Hash]uint32),
		freeTxWindowCloses:       make(map[uint32][]freeTxWindowClose),
		freeTxWindowEndsToRemove: make(map[uint32]struct{}),
	}
	for h, set := range db.agg.stakesCompletedAtHeight {
		c.stakesCompletedAtHeight[h] = cloneHashSet(set)
	}
	return c
}

func cloneHashSet(set map[chainhash.Hash]struct{}) map[chainhash.Hash]struct{} {
	out := make(map[chainhash.Hash]struct{}, len(set))
	for id := range set {
		out[id] = struct{}{}
	}
	return out
}

func (c *Cache) requireEditable() error {
	if c.viewOnly {
		return dbError(ErrViewOnly, "")
	}
	return nil
}

// --- Stake entry lifecycle ---

// GetStakeEntry returns id's current entry, checking the sparse overlay
// before falling through to the base DB.
func (c *Cache) GetStakeEntry(id chainhash.Hash) (staking.StakeEntry, error) {
	if c.viewOnly {
		return c.db.rawStakeEntry(id)
	}
	if _, removed := c.stakesToRemove[id]; removed {
		return staking.StakeEntry{}, nil
	}
	if entry, ok := c.stakesMap[id]; ok {
		return entry, nil
	}
	return c.db.rawStakeEntry(id)
}

// AddNewStakeEntry inserts a brand-new stake, activating it and indexing it
// by script.
func (c *Cache) AddNewStakeEntry(entry staking.StakeEntry) error {
	if err := c.requireEditable(); err != nil {
		return err
	}
	existing, err := c.GetStakeEntry(entry.StakeID)
	if err != nil {
		return err
	}
	if existing.Valid {
		return dbError(ErrAlreadyExists, entry.StakeID.String())
	}

	entry.Valid = true
	entry.Active = true
	c.stakesMap[entry.StakeID] = entry
	delete(c.stakesToRemove, entry.StakeID)

	c.activeStakes[entry.StakeID] = struct{}{}
	c.indexByScript(entry.Script, entry.StakeID)
	c.addCompletion(entry.CompleteBlock, entry.StakeID)
	c.amountByPeriod[entry.PeriodIdx] += entry.Amount

	return nil
}

// UpdateStakeEntry overwrites id's stored entry, e.g. to record a reward
// accrual, leaving its activation state and indices untouched.
func (c *Cache) UpdateStakeEntry(entry staking.StakeEntry) error {
	if err := c.requireEditable(); err != nil {
		return err
	}
	c.stakesMap[entry.StakeID] = entry
	delete(c.stakesToRemove, entry.StakeID)
	return nil
}

// RemoveStakeEntry deletes a stake entirely (used by reorg undo of a
// deposit, never by normal completion/withdrawal, which use
// DeactivateStake).
func (c *Cache) RemoveStakeEntry(id chainhash.Hash) error {
	if err := c.requireEditable(); err != nil {
		return err
	}
	entry, err := c.GetStakeEntry(id)
	if err != nil {
		return err
	}
	if !entry.Valid {
		return dbError(ErrNotFound, id.String())
	}
	if entry.Active {
		c.unindexActive(entry)
		c.amountByPeriod[entry.PeriodIdx] -= entry.Amount
	}
	if set := c.stakesCompletedAtHeight[entry.CompleteBlock]; set != nil {
		delete(set, id)
		if len(set) == 0 {
			delete(c.stakesCompletedAtHeight, entry.CompleteBlock)
		}
	}
	delete(c.stakesMap, id)
	c.stakesToRemove[id] = struct{}{}
	return nil
}

// DeactivateStake marks an active stake inactive, e.g. natural completion
// or early withdrawal, removing it from the active-stake indices and
// per-period totals but keeping its entry for history/undo.
func (c *Cache) DeactivateStake(id chainhash.Hash, early bool) error {
	if err := c.requireEditable(); err != nil {
		return err
	}
	entry, err := c.GetStakeEntry(id)
	if err != nil {
		return err
	}
	if !entry.Valid || !entry.Active {
		return dbError(ErrNotActive, id.String())
	}

	c.unindexActive(entry)
	c.amountByPeriod[entry.PeriodIdx] -= entry.Amount

	entry.Active = false
	if !early {
		entry.Complete = true
		c.numCompleteStakes++
	} else {
		c.numEarlyWithdrawnStakes++
	}
	c.stakesMap[id] = entry
	return nil
}

// ReactivateStake reverses DeactivateStake, e.g. undoing a reorg past the
// block that completed or withdrew a stake. height is the height of the
// block whose deactivating effect is being undone; Complete and the
// counter to roll back are both derived from comparing it against the
// stake's CompleteBlock, not supplied by the caller.
func (c *Cache) ReactivateStake(id chainhash.Hash, height uint32) error {
	if err := c.requireEditable(); err != nil {
		return err
	}
	entry, err := c.GetStakeEntry(id)
	if err != nil {
		return err
	}
	if !entry.Valid || entry.Active {
		return dbError(ErrAlreadyActive, id.String())
	}

	entry.Active = true
	entry.Complete = height > entry.CompleteBlock
	if height == entry.CompleteBlock {
		c.numCompleteStakes--
	} else {
		c.numEarlyWithdrawnStakes--
	}
	c.stakesMap[id] = entry

	c.activeStakes[id] = struct{}{}
	c.indexByScript(entry.Script, id)
	c.amountByPeriod[entry.PeriodIdx] += entry.Amount
	return nil
}

// unindexActive drops entry from the activation-derived indices. The
// completion-height index is deliberately left alone: it tracks every
// stake by its completeBlock whether active or not, so disconnecting a
// block can still find the stakes it completed.
func (c *Cache) unindexActive(entry staking.StakeEntry) {
	delete(c.activeStakes, entry.StakeID)
	c.unindexByScript(entry.Script, entry.StakeID)
}

func (c *Cache) indexByScript(script []byte, id chainhash.Hash) {
	set, ok := c.scriptToActiveStakes.get(script)
	if !ok {
		set = make(map[chainhash.Hash]struct{})
	}
	set[id] = struct{}{}
	c.scriptToActiveStakes.set(script, set)
}

func (c *Cache) unindexByScript(script []byte, id chainhash.Hash) {
	set, ok := c.scriptToActiveStakes.get(script)
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		c.scriptToActiveStakes.delete(script)
		return
	}
	c.scriptToActiveStakes.set(script, set)
}

func (c *Cache) addCompletion(height uint32, id chainhash.Hash) {
	set := c.stakesCompletedAtHeight[height]
	if set == nil {
		set = make(map[chainhash.Hash]struct{})
		c.stakesCompletedAtHeight[height] = set
	}
	set[id] = struct{}{}
}

// --- Aggregate reads ---

func (c *Cache) GetAllActiveStakes() map[chainhash.Hash]struct{} {
	if c.viewOnly {
		return c.db.GetAllActiveStakes()
	}
	return cloneHashSet(c.activeStakes)
}

func (c *Cache) GetActiveStakeIDsForScript(script []byte) map[chainhash.Hash]struct{} {
	if c.viewOnly {
		return c.db.GetActiveStakeIDsForScript(script)
	}
	set, ok := c.scriptToActiveStakes.get(script)
	if !ok {
		return nil
	}
	return cloneHashSet(set)
}

func (c *Cache) GetStakesCompletedAtHeight(h uint32) map[chainhash.Hash]struct{} {
	if c.viewOnly {
		return c.db.GetStakesCompletedAtHeight(h)
	}
	set := c.stakesCompletedAtHeight[h]
	if set == nil {
		return nil
	}
	return cloneHashSet(set)
}

func (c *Cache) GetAmountsByPeriods() [stakingparams.NUM_PERIODS]int64 {
	if c.viewOnly {
		return c.db.GetAmountsByPeriods()
	}
	return c.amountByPeriod
}

func (c *Cache) GetBestBlock() chainhash.Hash {
	if c.viewOnly {
		return c.db.GetBestBlock()
	}
	return c.bestBlockHash
}

// SetBestBlock records the tip the cache's aggregates now match.
func (c *Cache) SetBestBlock(hash chainhash.Hash) error {
	if err := c.requireEditable(); err != nil {
		return err
	}
	c.bestBlockHash = hash
	return nil
}

func (c *Cache) GetNumCompleteStakes() uint64 {
	if c.viewOnly {
		return c.db.GetNumCompleteStakes()
	}
	return c.numCompleteStakes
}

func (c *Cache) GetNumEarlyWithdrawnStakes() uint64 {
	if c.viewOnly {
		return c.db.GetNumEarlyWithdrawnStakes()
	}
	return c.numEarlyWithdrawnStakes
}

func (c *Cache) GetStakingPoolBalance() int64 {
	if c.viewOnly {
		return c.db.GetStakingPoolBalance()
	}
	return c.stakingPool.Balance
}

// CreditStakingPool adds amount to the pool, e.g. the staking slice of a
// block's subsidy.
func (c *Cache) CreditStakingPool(amount int64) error {
	if err := c.requireEditable(); err != nil {
		return err
	}
	c.stakingPool.Credit(amount)
	return nil
}

// DebitStakingPool removes amount from the pool, e.g. a stake's per-block
// reward.
func (c *Cache) DebitStakingPool(amount int64) error {
	if err := c.requireEditable(); err != nil {
		return err
	}
	return c.stakingPool.Debit(amount)
}

// --- Free-tx bookkeeping ---

// GetFreeTxInfoForScript returns script's current FreeTxInfo, or nil if it
// has none.
func (c *Cache) GetFreeTxInfoForScript(script []byte) *staking.FreeTxInfo {
	if c.viewOnly {
		return c.db.GetFreeTxInfoForScript(script)
	}
	if info, ok := c.freeTxInfoByScript.get(script); ok {
		return info
	}
	return nil
}

// RegisterFreeTransaction charges a transaction's byte size against
// script's rolling-window quota. A script with no window yet gets a fresh
// one; a window that has already closed refuses the charge (it must be
// migrated by RemoveInvalidFreeTxInfos before the script earns a new one).
// A window first opened from the mempool (height 0) is pinned to the chain
// at its first confirmed charge, and the byte limit follows the script's
// active-stake set whenever that set has changed since the snapshot.
func (c *Cache) RegisterFreeTransaction(script []byte, txid chainhash.Hash, size uint32, height uint32, windowLength uint32, limit uint32) error {
	if err := c.requireEditable(); err != nil {
		return err
	}

	info, ok := c.freeTxInfoByScript.get(script)
	if !ok {
		info = staking.NewFreeTxInfo(limit, height, sortedHashes(c.scriptActiveSet(script)))
		c.freeTxInfoByScript.set(script, info)
	}
	if height > 0 && info.WindowStartHeight == 0 {
		info.WindowStartHeight = height
	}
	if info.WindowClosed(height, windowLength) {
		return dbError(ErrQuotaExceeded, "free-tx window closed")
	}

	activeIDs := sortedHashes(c.scriptActiveSet(script))
	if !hashSlicesEqual(activeIDs, info.ActiveStakeIDs) {
		info.ActiveStakeIDs = activeIDs
		info.Limit = limit
	}

	var err error
	if height == 0 {
		err = info.RegisterUnconfirmed(txid, size)
	} else {
		err = info.RegisterConfirmed(txid, size)
	}
	if err != nil {
		return dbError(ErrQuotaExceeded, err.Error())
	}
	return nil
}

func hashSlicesEqual(a, b []chainhash.Hash) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (c *Cache) scriptActiveSet(script []byte) map[chainhash.Hash]struct{} {
	set, _ := c.scriptToActiveStakes.get(script)
	return set
}

// UndoFreeTransaction reverses a confirmed RegisterFreeTransaction charge,
// e.g. when a block containing it is disconnected.
func (c *Cache) UndoFreeTransaction(script []byte, size uint32) error {
	if err := c.requireEditable(); err != nil {
		return err
	}
	info, ok := c.freeTxInfoByScript.get(script)
	if !ok {
		return dbError(ErrNotFound, "no free-tx window for script")
	}
	info.UndoConfirmed(size)
	return nil
}

// RemoveInvalidFreeTxInfos drops stale per-script windows. Forward
// (reorg == false): every window that has closed as of height is migrated
// out of freeTxInfoByScript, its final usedConfirmed recorded under the
// closing height so ReactivateFreeTxInfos can reverse the migration.
// Reorg (reorg == true): height is the rewind target, and windows opened
// after it never happened on the surviving chain, so they are dropped
// without being recorded.
func (c *Cache) RemoveInvalidFreeTxInfos(height uint32, windowLength uint32, reorg bool) error {
	if err := c.requireEditable(); err != nil {
		return err
	}
	var stale []struct {
		script []byte
		info   *staking.FreeTxInfo
	}
	c.freeTxInfoByScript.forEach(func(script []byte, info *staking.FreeTxInfo) {
		closed := !reorg && info.WindowClosed(height, windowLength)
		orphaned := reorg && info.WindowStartHeight > height
		if closed || orphaned {
			stale = append(stale, struct {
				script []byte
				info   *staking.FreeTxInfo
			}{script, info})
		}
	})

	for _, e := range stale {
		c.freeTxInfoByScript.delete(e.script)
		if reorg {
			continue
		}
		entries := append(c.freeTxWindowCloses[height], freeTxWindowClose{
			Script:        append([]byte(nil), e.script...),
			UsedConfirmed: e.info.UsedConfirmed,
		})
		c.freeTxWindowCloses[height] = entries
	}
	return nil
}

// ReactivateFreeTxInfos reverses RemoveInvalidFreeTxInfos for the windows
// that closed at height, consulting the cache's own delta first and
// falling through to the base DB for windows closed in a prior session.
func (c *Cache) ReactivateFreeTxInfos(height uint32, windowStartHeight uint32, limit uint32) error {
	if err := c.requireEditable(); err != nil {
		return err
	}

	closes, ok := c.freeTxWindowCloses[height]
	if ok {
		delete(c.freeTxWindowCloses, height)
	} else {
		persisted, err := c.db.GetFreeTxWindowsCompletedAtHeight(height)
		if err != nil {
			return err
		}
		closes = persisted
	}
	c.freeTxWindowEndsToRemove[height] = struct{}{}

	for _, cl := range closes {
		activeIDs := sortedHashes(c.scriptActiveSet(cl.Script))
		info := staking.NewFreeTxInfo(limit, windowStartHeight, activeIDs)
		info.UsedConfirmed = cl.UsedConfirmed
		c.freeTxInfoByScript.set(cl.Script, info)
	}
	return nil
}

// --- Governance power ---

// GetGpForScript returns the governance power credited to script, checking
// this session's delta before the base DB.
func (c *Cache) GetGpForScript(script []byte) (int64, error) {
	if c.viewOnly {
		return c.db.GetGpForScript(script)
	}
	if v, ok := c.govDelta.get(script); ok {
		return v, nil
	}
	return c.db.GetGpForScript(script)
}

// CreditGovernancePower adds amount to script's governance power, e.g. the
// per-block credit computed from its active stake.
func (c *Cache) CreditGovernancePower(script []byte, amount int64) error {
	if err := c.requireEditable(); err != nil {
		return err
	}
	current, err := c.GetGpForScript(script)
	if err != nil {
		return err
	}
	c.govDelta.set(script, current+amount)
	return nil
}

// --- Free-tx block accounting ---

// SetFreeTxSizeForBlock records the total free-tx bytes a block consumed,
// consulted by the LWMA-1 retarget's free-tx volume term.
func (c *Cache) SetFreeTxSizeForBlock(blockHash chainhash.Hash, size uint32) error {
	if err := c.requireEditable(); err != nil {
		return err
	}
	c.blockFreeTxSizes[blockHash] = size
	return nil
}

// GetFreeTxSizeForBlock returns the free-tx bytes recorded for blockHash,
// checking this session's delta before the base DB.
func (c *Cache) GetFreeTxSizeForBlock(blockHash chainhash.Hash) (uint32, error) {
	if c.viewOnly {
		return c.db.GetFreeTxSizeForBlock(blockHash)
	}
	if size, ok := c.blockFreeTxSizes[blockHash]; ok {
		return size, nil
	}
	return c.db.GetFreeTxSizeForBlock(blockHash)
}

// --- Flush / drop ---

// FlushDB persists every change this cache holds to the base DB. It is
// idempotent: a second call is a no-op returning nil.
func (c *Cache) FlushDB() error {
	if err := c.requireEditable(); err != nil {
		return err
	}
	if c.flushed {
		return nil
	}
	if err := c.db.flush(c); err != nil {
		log.Errorf("stakes db flush failed: %v", err)
		return err
	}
	c.flushed = true
	return nil
}

// Drop ends this cache's session, releasing the base DB's writer lock if it
// was editable. It does not flush: an editable cache that is dropped
// without a prior FlushDB call discards its accumulated changes.
func (c *Cache) Drop() {
	if !c.viewOnly {
		c.db.writerMu.Unlock()
	}
}
