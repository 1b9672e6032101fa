// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package stakedb implements the persistent staking-state database and its
// in-memory editable/view-only overlay: the authoritative
// record of every stake, the indices and per-period/per-height aggregates
// derived from it, the staking pool balance, per-script free-tx bookkeeping,
// and governance power, kept consistent with the chain tip across flushes
// and reorganizations.
//
// The base DB wraps an ordered key-value store (goleveldb) with batched
// writes; everything above the store is plain in-process state guarded by
// the locks described on StakesDB.
package stakedb

import (
	"bytes"
	"errors"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"stakecore/chainhash"
	"stakecore/staking"
	"stakecore/stakingparams"
)

// aggregates holds the auxiliary indices that are persisted wholesale
// and kept mirrored in memory so getters do not re-decode a
// multi-megabyte blob on every call. Flush is the only path that updates
// both the mirror and the on-disk blob, so the two never disagree between
// flushes.
type aggregates struct {
	activeStakes            map[chainhash.Hash]struct{}
	scriptToActiveStakes    *scriptIndex[map[chainhash.Hash]struct{}]
	stakesCompletedAtHeight map[uint32]map[chainhash.Hash]struct{}
	amountByPeriod          [stakingparams.NUM_PERIODS]int64
	freeTxInfoByScript      *scriptIndex[*staking.FreeTxInfo]
	numCompleteStakes       uint64
	numEarlyWithdrawnStakes uint64
	stakingPool             staking.StakingPool
	bestBlockHash           chainhash.Hash
}

func emptyAggregates() aggregates {
	return aggregates{
		activeStakes:            make(map[chainhash.Hash]struct{}),
		scriptToActiveStakes:    newScriptIndex[map[chainhash.Hash]struct{}](),
		stakesCompletedAtHeight: make(map[uint32]map[chainhash.Hash]struct{}),
		freeTxInfoByScript:      newScriptIndex[*staking.FreeTxInfo](),
	}
}

// StakesDB is the base persistent staking database.
type StakesDB struct {
	ldb *leveldb.DB

	// writerMu enforces single-writer discipline: an editable cache
	// acquires it at construction and releases it in Drop, guaranteeing
	// at most one editable cache exists at a time.
	writerMu sync.Mutex

	// aggMu guards agg, which readers and Flush both touch.
	aggMu sync.RWMutex
	agg   aggregates
}

// NewStakesDB opens (creating if necessary) a stakes DB backed by a
// goleveldb store at path, and runs startup verification.
func NewStakesDB(path string) (*StakesDB, error) {
	ldb, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stakedb: open")
	}
	return newStakesDB(ldb)
}

// newStakesDBWithStorage opens a stakes DB over an arbitrary goleveldb
// storage.Storage, letting tests use storage.NewMemStorage() instead of a
// real file-backed store.
func newStakesDBWithStorage(stor storage.Storage) (*StakesDB, error) {
	ldb, err := leveldb.Open(stor, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "stakedb: open")
	}
	return newStakesDB(ldb)
}

func newStakesDB(ldb *leveldb.DB) (*StakesDB, error) {
	db := &StakesDB{ldb: ldb, agg: emptyAggregates()}
	if err := db.Verify(); err != nil {
		db.ldb.Close()
		return nil, err
	}
	if err := db.loadAggregates(); err != nil {
		db.ldb.Close()
		return nil, err
	}
	return db, nil
}

// Close releases the underlying store.
func (db *StakesDB) Close() error {
	return db.ldb.Close()
}

// get reads a single key, translating goleveldb's not-found signal into
// this package's ErrNotFound kind.
func (db *StakesDB) get(key []byte) ([]byte, error) {
	v, err := db.ldb.Get(key, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, dbError(ErrNotFound, string(key))
		}
		return nil, pkgerrors.Wrapf(err, "stakedb: get %q", key)
	}
	return v, nil
}

func kindOf(err error) ErrorKind {
	var e Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func isNotFound(err error) bool {
	return kindOf(err) == ErrNotFound
}

func (db *StakesDB) isEmpty() (bool, error) {
	iter := db.ldb.NewIterator(nil, nil)
	defer iter.Release()
	has := iter.First()
	if err := iter.Error(); err != nil {
		return false, pkgerrors.Wrap(err, "stakedb: scan for emptiness")
	}
	return !has, nil
}

// Verify runs the base DB's startup checks: the flush-ongoing
// marker must be consistent, and the persisted per-period totals must match
// what the active-stakes set recomputes to.
func (db *StakesDB) Verify() error {
	if err := db.verifyFlushState(); err != nil {
		return err
	}
	return db.verifyTotalAmounts()
}

func (db *StakesDB) verifyFlushState() error {
	blob, err := db.get(keyFlushOngoing)
	if err != nil {
		if isNotFound(err) {
			empty, emptyErr := db.isEmpty()
			if emptyErr != nil {
				return emptyErr
			}
			if !empty {
				return dbError(ErrCorruptAggregate, "flush_ongoing marker missing in nonempty store")
			}
			return nil
		}
		return err
	}
	ongoing, err := decodeBool(blob)
	if err != nil {
		return err
	}
	if ongoing {
		return dbError(ErrFlushOngoing, "operator intervention required (reindex)")
	}
	return nil
}

func (db *StakesDB) verifyTotalAmounts() error {
	activeBlob, err := db.get(keyActiveStakes)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return err
	}
	active, err := decodeActiveStakes(activeBlob)
	if err != nil {
		return err
	}

	var recomputed [stakingparams.NUM_PERIODS]int64
	for id := range active {
		entry, err := db.rawStakeEntry(id)
		if err != nil {
			return err
		}
		if !entry.Valid {
			return dbError(ErrCorruptAggregate, "active stake id has no entry")
		}
		recomputed[entry.PeriodIdx] += entry.Amount
	}

	persistedBlob, err := db.get(keyAmountsByPeriods)
	var persisted [stakingparams.NUM_PERIODS]int64
	if err != nil {
		if !isNotFound(err) {
			return err
		}
	} else {
		persisted, err = decodeAmountsByPeriods(persistedBlob)
		if err != nil {
			return err
		}
	}

	if recomputed != persisted {
		return dbError(ErrCorruptAggregate, "amounts_by_periods disagrees with active stakes")
	}
	return nil
}

// loadAggregates populates the in-memory mirror from whatever is currently
// persisted (a no-op set of defaults on a fresh store).
func (db *StakesDB) loadAggregates() error {
	agg := emptyAggregates()

	if blob, err := db.get(keyActiveStakes); err == nil {
		if agg.activeStakes, err = decodeActiveStakes(blob); err != nil {
			return err
		}
	} else if !isNotFound(err) {
		return err
	}

	if blob, err := db.get(keyAddressToStakesMap); err == nil {
		if agg.scriptToActiveStakes, err = decodeScriptToStakes(blob); err != nil {
			return err
		}
	} else if !isNotFound(err) {
		return err
	}

	if blob, err := db.get(keyStakesCompletedAtHeight); err == nil {
		if agg.stakesCompletedAtHeight, err = decodeStakesCompletedAtHeight(blob); err != nil {
			return err
		}
	} else if !isNotFound(err) {
		return err
	}

	if blob, err := db.get(keyAmountsByPeriods); err == nil {
		if agg.amountByPeriod, err = decodeAmountsByPeriods(blob); err != nil {
			return err
		}
	} else if !isNotFound(err) {
		return err
	}

	if blob, err := db.get(keyFreeTxInfo); err == nil {
		if agg.freeTxInfoByScript, err = decodeFreeTxInfoByScript(blob); err != nil {
			return err
		}
	} else if !isNotFound(err) {
		return err
	}

	if blob, err := db.get(keyNumCompleteStakes); err == nil {
		if agg.numCompleteStakes, err = decodeUint64(blob); err != nil {
			return err
		}
	} else if !isNotFound(err) {
		return err
	}

	if blob, err := db.get(keyNumEarlyWithdrawnStakes); err == nil {
		if agg.numEarlyWithdrawnStakes, err = decodeUint64(blob); err != nil {
			return err
		}
	} else if !isNotFound(err) {
		return err
	}

	if blob, err := db.get(keyStakingPool); err == nil {
		balance, derr := decodeInt64(blob)
		if derr != nil {
			return derr
		}
		agg.stakingPool.Balance = balance
	} else if !isNotFound(err) {
		return err
	}

	if blob, err := db.get(keyBestBlockHash); err == nil {
		copy(agg.bestBlockHash[:], blob)
	} else if !isNotFound(err) {
		return err
	}

	db.aggMu.Lock()
	db.agg = agg
	db.aggMu.Unlock()
	return nil
}

// rawStakeEntry reads a stake entry straight from the store, bypassing any
// cache overlay. Returns a zero-value (Valid == false) entry, not an error,
// when the id is absent: callers distinguish missing entries by the Valid
// flag, not by error.
func (db *StakesDB) rawStakeEntry(id chainhash.Hash) (staking.StakeEntry, error) {
	blob, err := db.get(stakeEntryKey(id))
	if err != nil {
		if isNotFound(err) {
			return staking.StakeEntry{}, nil
		}
		return staking.StakeEntry{}, err
	}
	var entry staking.StakeEntry
	if err := entry.Deserialize(bytes.NewReader(blob)); err != nil {
		return staking.StakeEntry{}, pkgerrors.Wrap(err, "stakedb: decode stake entry")
	}
	return entry, nil
}

// --- Getters ---

// GetStakeDBEntry returns the stake entry for id, or a zero-value entry if
// absent.
func (db *StakesDB) GetStakeDBEntry(id chainhash.Hash) (staking.StakeEntry, error) {
	return db.rawStakeEntry(id)
}

// GetAllActiveStakes returns the current activeStakes set.
func (db *StakesDB) GetAllActiveStakes() map[chainhash.Hash]struct{} {
	db.aggMu.RLock()
	defer db.aggMu.RUnlock()
	out := make(map[chainhash.Hash]struct{}, len(db.agg.activeStakes))
	for id := range db.agg.activeStakes {
		out[id] = struct{}{}
	}
	return out
}

// GetActiveStakeIDsForScript returns the active stake ids owned by script.
func (db *StakesDB) GetActiveStakeIDsForScript(script []byte) map[chainhash.Hash]struct{} {
	db.aggMu.RLock()
	defer db.aggMu.RUnlock()
	set, ok := db.agg.scriptToActiveStakes.get(script)
	if !ok {
		return nil
	}
	out := make(map[chainhash.Hash]struct{}, len(set))
	for id := range set {
		out[id] = struct{}{}
	}
	return out
}

// GetStakesCompletedAtHeight returns the stake ids whose completeBlock
// equals h.
func (db *StakesDB) GetStakesCompletedAtHeight(h uint32) map[chainhash.Hash]struct{} {
	db.aggMu.RLock()
	defer db.aggMu.RUnlock()
	set := db.agg.stakesCompletedAtHeight[h]
	if set == nil {
		return nil
	}
	out := make(map[chainhash.Hash]struct{}, len(set))
	for id := range set {
		out[id] = struct{}{}
	}
	return out
}

// GetAmountsByPeriods returns the current per-period active-stake totals.
func (db *StakesDB) GetAmountsByPeriods() [stakingparams.NUM_PERIODS]int64 {
	db.aggMu.RLock()
	defer db.aggMu.RUnlock()
	return db.agg.amountByPeriod
}

// GetBestBlock returns the block hash the persisted aggregates match.
func (db *StakesDB) GetBestBlock() chainhash.Hash {
	db.aggMu.RLock()
	defer db.aggMu.RUnlock()
	return db.agg.bestBlockHash
}

// GetFreeTxInfoForScript returns a copy of script's FreeTxInfo, or nil if
// it has none.
func (db *StakesDB) GetFreeTxInfoForScript(script []byte) *staking.FreeTxInfo {
	db.aggMu.RLock()
	defer db.aggMu.RUnlock()
	info, ok := db.agg.freeTxInfoByScript.get(script)
	if !ok {
		return nil
	}
	return info.Clone()
}

// GetFreeTxSizeForBlock returns the free-tx bytes recorded for blockHash,
// per-entity key blk_free_tx_size_<hash-hex>.
func (db *StakesDB) GetFreeTxSizeForBlock(blockHash chainhash.Hash) (uint32, error) {
	blob, err := db.get(blockFreeTxSizeKey(blockHash))
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return decodeUint32(blob)
}

// GetNumCompleteStakes returns the lifetime count of naturally-completed
// stakes.
func (db *StakesDB) GetNumCompleteStakes() uint64 {
	db.aggMu.RLock()
	defer db.aggMu.RUnlock()
	return db.agg.numCompleteStakes
}

// GetNumEarlyWithdrawnStakes returns the lifetime count of early-withdrawn
// stakes.
func (db *StakesDB) GetNumEarlyWithdrawnStakes() uint64 {
	db.aggMu.RLock()
	defer db.aggMu.RUnlock()
	return db.agg.numEarlyWithdrawnStakes
}

// GetStakingPoolBalance returns the current staking pool balance.
func (db *StakesDB) GetStakingPoolBalance() int64 {
	db.aggMu.RLock()
	defer db.aggMu.RUnlock()
	return db.agg.stakingPool.Balance
}

// GetGpForScript returns the governance power credited to script, per-entity
// key gp_<script-bytes>.
func (db *StakesDB) GetGpForScript(script []byte) (int64, error) {
	blob, err := db.get(governancePowerKey(script))
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return decodeInt64(blob)
}

// GetFreeTxWindowsCompletedAtHeight returns the (script, usedConfirmed)
// pairs recorded for windows that closed at height h, per-entity key
// ftx_window_end_<height>.
func (db *StakesDB) GetFreeTxWindowsCompletedAtHeight(h uint32) ([]freeTxWindowClose, error) {
	blob, err := db.get(freeTxWindowEndKey(h))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return decodeFreeTxWindowCloses(blob)
}

// flush persists every change cache holds: mark flushOngoing before
// touching anything, so a crash mid-flush is detectable on the next Verify
// rather than silently corrupting the aggregates; write the bulk of the
// data; clear the marker last.
func (db *StakesDB) flush(cache *Cache) error {
	log.Debugf("flushing stakes db: %d updated entries, %d removals, best block %v",
		len(cache.stakesMap), len(cache.stakesToRemove), cache.bestBlockHash)

	if err := db.putRaw(keyFlushOngoing, encodeBool(true)); err != nil {
		return err
	}

	if err := db.flushStakeEntries(cache); err != nil {
		return err
	}
	if err := db.flushPerEntityDeltas(cache); err != nil {
		return err
	}
	if err := db.flushAggregates(cache); err != nil {
		return err
	}

	if err := db.putRaw(keyFlushOngoing, encodeBool(false)); err != nil {
		return err
	}

	// Adopt deep copies of the cache's aggregates so the base never shares
	// mutable state with a cache, before or after its flush.
	completed := make(map[uint32]map[chainhash.Hash]struct{}, len(cache.stakesCompletedAtHeight))
	for h, set := range cache.stakesCompletedAtHeight {
		completed[h] = cloneHashSet(set)
	}
	db.aggMu.Lock()
	db.agg = aggregates{
		activeStakes:            cloneHashSet(cache.activeStakes),
		scriptToActiveStakes:    cache.scriptToActiveStakes.clone(cloneHashSet),
		stakesCompletedAtHeight: completed,
		amountByPeriod:          cache.amountByPeriod,
		freeTxInfoByScript:      cache.freeTxInfoByScript.clone((*staking.FreeTxInfo).Clone),
		numCompleteStakes:       cache.numCompleteStakes,
		numEarlyWithdrawnStakes: cache.numEarlyWithdrawnStakes,
		stakingPool:             cache.stakingPool,
		bestBlockHash:           cache.bestBlockHash,
	}
	db.aggMu.Unlock()
	return nil
}

func (db *StakesDB) putRaw(key, value []byte) error {
	if err := db.ldb.Put(key, value, nil); err != nil {
		return pkgerrors.Wrapf(err, "stakedb: put %q", key)
	}
	return nil
}

// flushStakeEntries writes the cache's sparse stake-entry overlay: upserts
// from stakesMap, deletions from stakesToRemove. Writes are batched and
// bounded by DEFAULT_BATCH_SIZE so a large reorg's worth of changes does
// not build one unbounded in-memory batch.
func (db *StakesDB) flushStakeEntries(cache *Cache) error {
	batch := new(leveldb.Batch)
	batchBytes := 0

	flushBatch := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := db.ldb.Write(batch, nil); err != nil {
			return pkgerrors.Wrap(err, "stakedb: write stake-entry batch")
		}
		batch.Reset()
		batchBytes = 0
		return nil
	}

	for id, entry := range cache.stakesMap {
		var buf bytes.Buffer
		if err := entry.Serialize(&buf); err != nil {
			return pkgerrors.Wrap(err, "stakedb: serialize stake entry")
		}
		batch.Put(stakeEntryKey(id), buf.Bytes())
		batchBytes += buf.Len()
		if batchBytes >= stakingparams.DEFAULT_BATCH_SIZE {
			if err := flushBatch(); err != nil {
				return err
			}
		}
	}
	for id := range cache.stakesToRemove {
		batch.Delete(stakeEntryKey(id))
		batchBytes += 32
		if batchBytes >= stakingparams.DEFAULT_BATCH_SIZE {
			if err := flushBatch(); err != nil {
				return err
			}
		}
	}
	return flushBatch()
}

// flushPerEntityDeltas writes the individually-keyed records the cache
// tracked sparsely: governance-power credits, per-block free-tx sizes, and
// newly-closed free-tx windows.
func (db *StakesDB) flushPerEntityDeltas(cache *Cache) error {
	var writeErr error
	cache.govDelta.forEach(func(script []byte, amount int64) {
		if writeErr != nil {
			return
		}
		writeErr = db.putRaw(governancePowerKey(script), encodeInt64(amount))
	})
	if writeErr != nil {
		return writeErr
	}

	for hash, size := range cache.blockFreeTxSizes {
		if err := db.putRaw(blockFreeTxSizeKey(hash), encodeUint32(size)); err != nil {
			return err
		}
	}

	for height, closes := range cache.freeTxWindowCloses {
		if err := db.putRaw(freeTxWindowEndKey(height), encodeFreeTxWindowCloses(closes)); err != nil {
			return err
		}
	}

	for height := range cache.freeTxWindowEndsToRemove {
		if _, rerecorded := cache.freeTxWindowCloses[height]; rerecorded {
			continue
		}
		if err := db.ldb.Delete(freeTxWindowEndKey(height), nil); err != nil {
			return pkgerrors.Wrapf(err, "stakedb: delete window record at height %d", height)
		}
	}

	return nil
}

// flushAggregates writes every wholesale-blob aggregate.
func (db *StakesDB) flushAggregates(cache *Cache) error {
	activeBlob, err := encodeActiveStakes(cache.activeStakes)
	if err != nil {
		return err
	}
	if err := db.putRaw(keyActiveStakes, activeBlob); err != nil {
		return err
	}

	scriptBlob, err := encodeScriptToStakes(cache.scriptToActiveStakes)
	if err != nil {
		return err
	}
	if err := db.putRaw(keyAddressToStakesMap, scriptBlob); err != nil {
		return err
	}

	completedBlob, err := encodeStakesCompletedAtHeight(cache.stakesCompletedAtHeight)
	if err != nil {
		return err
	}
	if err := db.putRaw(keyStakesCompletedAtHeight, completedBlob); err != nil {
		return err
	}

	if err := db.putRaw(keyAmountsByPeriods, encodeAmountsByPeriods(cache.amountByPeriod)); err != nil {
		return err
	}

	freeTxBlob, err := encodeFreeTxInfoByScript(cache.freeTxInfoByScript)
	if err != nil {
		return err
	}
	if err := db.putRaw(keyFreeTxInfo, freeTxBlob); err != nil {
		return err
	}

	if err := db.putRaw(keyNumCompleteStakes, encodeUint64(cache.numCompleteStakes)); err != nil {
		return err
	}
	if err := db.putRaw(keyNumEarlyWithdrawnStakes, encodeUint64(cache.numEarlyWithdrawnStakes)); err != nil {
		return err
	}
	if err := db.putRaw(keyStakingPool, encodeInt64(cache.stakingPool.Balance)); err != nil {
		return err
	}
	if err := db.putRaw(keyBestBlockHash, cache.bestBlockHash[:]); err != nil {
		return err
	}

	return nil
}

// NewEditableCache creates an editable overlay over db, acquiring the
// single-writer lock. It fails with ErrWriterBusy if another
// editable cache is already open.
func (db *StakesDB) NewEditableCache() (*Cache, error) {
	if !db.writerMu.TryLock() {
		return nil, dbError(ErrWriterBusy, "")
	}
	return newCache(db, false), nil
}

// NewViewOnlyCache creates a read-only overlay over db. It does not take
// the writer lock, so any number of view-only caches may coexist alongside
// at most one editable cache.
func (db *StakesDB) NewViewOnlyCache() *Cache {
	return newCache(db, true)
}
