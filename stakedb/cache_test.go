// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package stakedb

import (
	"testing"

	"stakecore/chainhash"
	"stakecore/staking"
	"stakecore/stakingparams"
)

func mustStakeEntry(t *testing.T, id chainhash.Hash, amount int64, periodIdx uint8, depositBlock uint32, script []byte) staking.StakeEntry {
	t.Helper()
	entry, err := staking.NewStakeEntry(id, amount, periodIdx, depositBlock, 0, script)
	if err != nil {
		t.Fatalf("NewStakeEntry: %v", err)
	}
	return entry
}

func TestAddNewStakeEntryRejectsDuplicate(t *testing.T) {
	db := newTestDB(t)
	cache, err := db.NewEditableCache()
	if err != nil {
		t.Fatalf("NewEditableCache: %v", err)
	}
	defer cache.Drop()

	entry := mustStakeEntry(t, hashFromByte(1), stakingparams.MIN_STAKING_AMOUNT, 0, 1, []byte("s"))
	if err := cache.AddNewStakeEntry(entry); err != nil {
		t.Fatalf("first AddNewStakeEntry: %v", err)
	}
	if err := cache.AddNewStakeEntry(entry); kindOf(err) != ErrAlreadyExists {
		t.Fatalf("duplicate AddNewStakeEntry kind = %v, want ErrAlreadyExists", kindOf(err))
	}
}

func TestDeactivateReactivateRoundTripIsIdentity(t *testing.T) {
	db := newTestDB(t)
	cache, err := db.NewEditableCache()
	if err != nil {
		t.Fatalf("NewEditableCache: %v", err)
	}
	defer cache.Drop()

	script := []byte("owner-script")
	entry := mustStakeEntry(t, hashFromByte(2), stakingparams.MIN_STAKING_AMOUNT*2, 2, 500, script)
	if err := cache.AddNewStakeEntry(entry); err != nil {
		t.Fatalf("AddNewStakeEntry: %v", err)
	}

	before := snapshotCache(cache)

	if err := cache.DeactivateStake(entry.StakeID, false); err != nil {
		t.Fatalf("DeactivateStake: %v", err)
	}

	got, err := cache.GetStakeEntry(entry.StakeID)
	if err != nil {
		t.Fatalf("GetStakeEntry after deactivate: %v", err)
	}
	if got.Active {
		t.Fatalf("entry still active after DeactivateStake")
	}
	if !got.Complete {
		t.Fatalf("entry not marked complete after natural DeactivateStake")
	}
	if _, ok := cache.GetAllActiveStakes()[entry.StakeID]; ok {
		t.Fatalf("deactivated stake still in active set")
	}
	if cache.GetNumCompleteStakes() != before.numComplete+1 {
		t.Fatalf("numCompleteStakes = %d, want %d", cache.GetNumCompleteStakes(), before.numComplete+1)
	}

	if err := cache.ReactivateStake(entry.StakeID, entry.CompleteBlock); err != nil {
		t.Fatalf("ReactivateStake: %v", err)
	}

	after := snapshotCache(cache)
	if after != before {
		t.Fatalf("state after deactivate+reactivate = %+v, want %+v", after, before)
	}

	reGot, err := cache.GetStakeEntry(entry.StakeID)
	if err != nil {
		t.Fatalf("GetStakeEntry after reactivate: %v", err)
	}
	if !reGot.Active || reGot.Complete {
		t.Fatalf("entry after reactivate = %+v, want active and not complete", reGot)
	}
}

// TestReactivateStakePastCompleteBlockMarksComplete covers the case
// ReactivateStake's height-based contract allows but a bool flag never
// could: undoing a deactivation at a height strictly past the stake's
// completeBlock must leave the reactivated entry both active and complete.
func TestReactivateStakePastCompleteBlockMarksComplete(t *testing.T) {
	db := newTestDB(t)
	cache, err := db.NewEditableCache()
	if err != nil {
		t.Fatalf("NewEditableCache: %v", err)
	}
	defer cache.Drop()

	entry := mustStakeEntry(t, hashFromByte(5), stakingparams.MIN_STAKING_AMOUNT, 0, 100, []byte("s"))
	if err := cache.AddNewStakeEntry(entry); err != nil {
		t.Fatalf("AddNewStakeEntry: %v", err)
	}
	if err := cache.DeactivateStake(entry.StakeID, true); err != nil {
		t.Fatalf("DeactivateStake(early): %v", err)
	}
	if cache.GetNumEarlyWithdrawnStakes() != 1 {
		t.Fatalf("numEarlyWithdrawnStakes = %d, want 1", cache.GetNumEarlyWithdrawnStakes())
	}

	reactivateHeight := entry.CompleteBlock + 1
	if err := cache.ReactivateStake(entry.StakeID, reactivateHeight); err != nil {
		t.Fatalf("ReactivateStake: %v", err)
	}
	if cache.GetNumEarlyWithdrawnStakes() != 0 {
		t.Fatalf("numEarlyWithdrawnStakes after reactivate = %d, want 0", cache.GetNumEarlyWithdrawnStakes())
	}

	got, err := cache.GetStakeEntry(entry.StakeID)
	if err != nil {
		t.Fatalf("GetStakeEntry after reactivate: %v", err)
	}
	if !got.Active || !got.Complete {
		t.Fatalf("entry after reactivate past completeBlock = %+v, want active and complete", got)
	}
}

type cacheSnapshot struct {
	numActive     int
	numComplete   uint64
	numEarly      uint64
	amountByPeriod [stakingparams.NUM_PERIODS]int64
}

func snapshotCache(c *Cache) cacheSnapshot {
	return cacheSnapshot{
		numActive:      len(c.GetAllActiveStakes()),
		numComplete:    c.GetNumCompleteStakes(),
		numEarly:       c.GetNumEarlyWithdrawnStakes(),
		amountByPeriod: c.GetAmountsByPeriods(),
	}
}

func TestEarlyWithdrawalCountsSeparatelyFromCompletion(t *testing.T) {
	db := newTestDB(t)
	cache, err := db.NewEditableCache()
	if err != nil {
		t.Fatalf("NewEditableCache: %v", err)
	}
	defer cache.Drop()

	entry := mustStakeEntry(t, hashFromByte(3), stakingparams.MIN_STAKING_AMOUNT, 3, 10, []byte("s"))
	if err := cache.AddNewStakeEntry(entry); err != nil {
		t.Fatalf("AddNewStakeEntry: %v", err)
	}
	if err := cache.DeactivateStake(entry.StakeID, true); err != nil {
		t.Fatalf("DeactivateStake(early): %v", err)
	}
	if cache.GetNumEarlyWithdrawnStakes() != 1 {
		t.Fatalf("numEarlyWithdrawnStakes = %d, want 1", cache.GetNumEarlyWithdrawnStakes())
	}
	if cache.GetNumCompleteStakes() != 0 {
		t.Fatalf("numCompleteStakes = %d, want 0", cache.GetNumCompleteStakes())
	}

	got, err := cache.GetStakeEntry(entry.StakeID)
	if err != nil {
		t.Fatalf("GetStakeEntry: %v", err)
	}
	if got.Complete {
		t.Fatalf("early-withdrawn stake marked Complete")
	}
}

// TestCompletionIndexSurvivesDeactivation checks the completion-height
// index tracks stakes by completeBlock regardless of activation state:
// deactivating must leave the entry in place (block disconnect relies on
// it), while removing the stake outright must drop it.
func TestCompletionIndexSurvivesDeactivation(t *testing.T) {
	db := newTestDB(t)
	cache, err := db.NewEditableCache()
	if err != nil {
		t.Fatalf("NewEditableCache: %v", err)
	}
	defer cache.Drop()

	entry := mustStakeEntry(t, hashFromByte(8), stakingparams.MIN_STAKING_AMOUNT, 1, 50, []byte("s"))
	if err := cache.AddNewStakeEntry(entry); err != nil {
		t.Fatalf("AddNewStakeEntry: %v", err)
	}
	if _, ok := cache.GetStakesCompletedAtHeight(entry.CompleteBlock)[entry.StakeID]; !ok {
		t.Fatal("new stake missing from completion index")
	}

	if err := cache.DeactivateStake(entry.StakeID, false); err != nil {
		t.Fatalf("DeactivateStake: %v", err)
	}
	if _, ok := cache.GetStakesCompletedAtHeight(entry.CompleteBlock)[entry.StakeID]; !ok {
		t.Fatal("deactivated stake dropped from completion index")
	}

	if err := cache.ReactivateStake(entry.StakeID, entry.CompleteBlock); err != nil {
		t.Fatalf("ReactivateStake: %v", err)
	}
	if err := cache.RemoveStakeEntry(entry.StakeID); err != nil {
		t.Fatalf("RemoveStakeEntry: %v", err)
	}
	if set := cache.GetStakesCompletedAtHeight(entry.CompleteBlock); len(set) != 0 {
		t.Fatalf("removed stake still in completion index: %v", set)
	}
}

func TestRemoveStakeEntryUndoesDeposit(t *testing.T) {
	db := newTestDB(t)
	cache, err := db.NewEditableCache()
	if err != nil {
		t.Fatalf("NewEditableCache: %v", err)
	}
	defer cache.Drop()

	script := []byte("reorg-script")
	entry := mustStakeEntry(t, hashFromByte(4), stakingparams.MIN_STAKING_AMOUNT, 0, 20, script)
	if err := cache.AddNewStakeEntry(entry); err != nil {
		t.Fatalf("AddNewStakeEntry: %v", err)
	}
	if err := cache.RemoveStakeEntry(entry.StakeID); err != nil {
		t.Fatalf("RemoveStakeEntry: %v", err)
	}

	got, err := cache.GetStakeEntry(entry.StakeID)
	if err != nil {
		t.Fatalf("GetStakeEntry: %v", err)
	}
	if got.Valid {
		t.Fatalf("removed stake entry still Valid")
	}
	if len(cache.GetActiveStakeIDsForScript(script)) != 0 {
		t.Fatalf("removed stake still indexed by script")
	}
	amounts := cache.GetAmountsByPeriods()
	if amounts[0] != 0 {
		t.Fatalf("amounts[0] = %d after removing sole deposit, want 0", amounts[0])
	}
}

func TestRegisterAndUndoFreeTransaction(t *testing.T) {
	db := newTestDB(t)
	cache, err := db.NewEditableCache()
	if err != nil {
		t.Fatalf("NewEditableCache: %v", err)
	}
	defer cache.Drop()

	script := []byte("free-tx-script")
	if err := cache.RegisterFreeTransaction(script, hashFromByte(10), 200, 100, 576, 1000); err != nil {
		t.Fatalf("RegisterFreeTransaction: %v", err)
	}

	info := cache.GetFreeTxInfoForScript(script)
	if info == nil || info.UsedConfirmed != 200 {
		t.Fatalf("GetFreeTxInfoForScript = %+v, want UsedConfirmed 200", info)
	}

	if err := cache.UndoFreeTransaction(script, 200); err != nil {
		t.Fatalf("UndoFreeTransaction: %v", err)
	}
	info = cache.GetFreeTxInfoForScript(script)
	if info.UsedConfirmed != 0 {
		t.Fatalf("UsedConfirmed after undo = %d, want 0", info.UsedConfirmed)
	}
}

func TestRegisterFreeTransactionRejectsOverQuota(t *testing.T) {
	db := newTestDB(t)
	cache, err := db.NewEditableCache()
	if err != nil {
		t.Fatalf("NewEditableCache: %v", err)
	}
	defer cache.Drop()

	script := []byte("quota-script")
	if err := cache.RegisterFreeTransaction(script, hashFromByte(11), 900, 100, 576, 1000); err != nil {
		t.Fatalf("first RegisterFreeTransaction: %v", err)
	}
	err = cache.RegisterFreeTransaction(script, hashFromByte(12), 200, 100, 576, 1000)
	if err == nil {
		t.Fatalf("second RegisterFreeTransaction over quota succeeded, want error")
	}
}

func TestRemoveAndReactivateFreeTxInfosRoundTrip(t *testing.T) {
	db := newTestDB(t)
	cache, err := db.NewEditableCache()
	if err != nil {
		t.Fatalf("NewEditableCache: %v", err)
	}
	defer cache.Drop()

	script := []byte("window-script")
	if err := cache.RegisterFreeTransaction(script, hashFromByte(20), 300, 100, 576, 1000); err != nil {
		t.Fatalf("RegisterFreeTransaction: %v", err)
	}

	closeHeight := uint32(100 + 576)
	if err := cache.RemoveInvalidFreeTxInfos(closeHeight, 576, false); err != nil {
		t.Fatalf("RemoveInvalidFreeTxInfos: %v", err)
	}
	if info := cache.GetFreeTxInfoForScript(script); info != nil {
		t.Fatalf("window still present after RemoveInvalidFreeTxInfos: %+v", info)
	}

	if err := cache.ReactivateFreeTxInfos(closeHeight, 100, 1000); err != nil {
		t.Fatalf("ReactivateFreeTxInfos: %v", err)
	}
	info := cache.GetFreeTxInfoForScript(script)
	if info == nil || info.UsedConfirmed != 300 {
		t.Fatalf("GetFreeTxInfoForScript after reactivate = %+v, want UsedConfirmed 300", info)
	}
}

// TestRegisterFreeTransactionRefusesClosedWindow checks a window past its
// length refuses further charges instead of silently reopening; only the
// RemoveInvalidFreeTxInfos migration may retire it.
func TestRegisterFreeTransactionRefusesClosedWindow(t *testing.T) {
	db := newTestDB(t)
	cache, err := db.NewEditableCache()
	if err != nil {
		t.Fatalf("NewEditableCache: %v", err)
	}
	defer cache.Drop()

	script := []byte("closed-window-script")
	if err := cache.RegisterFreeTransaction(script, hashFromByte(40), 100, 100, 576, 1000); err != nil {
		t.Fatalf("RegisterFreeTransaction: %v", err)
	}

	err = cache.RegisterFreeTransaction(script, hashFromByte(41), 100, 100+576, 576, 1000)
	if kindOf(err) != ErrQuotaExceeded {
		t.Fatalf("charge into closed window kind = %v, want ErrQuotaExceeded", kindOf(err))
	}
}

// TestRegisterFreeTransactionPinsMempoolWindow checks a window first
// opened by a mempool charge (height 0) is anchored to the chain at its
// first confirmed charge.
func TestRegisterFreeTransactionPinsMempoolWindow(t *testing.T) {
	db := newTestDB(t)
	cache, err := db.NewEditableCache()
	if err != nil {
		t.Fatalf("NewEditableCache: %v", err)
	}
	defer cache.Drop()

	script := []byte("mempool-first-script")
	txid := hashFromByte(42)
	if err := cache.RegisterFreeTransaction(script, txid, 150, 0, 576, 1000); err != nil {
		t.Fatalf("RegisterFreeTransaction(mempool): %v", err)
	}
	if info := cache.GetFreeTxInfoForScript(script); info.WindowStartHeight != 0 {
		t.Fatalf("mempool window start = %d, want 0", info.WindowStartHeight)
	}

	if err := cache.RegisterFreeTransaction(script, txid, 150, 250, 576, 1000); err != nil {
		t.Fatalf("RegisterFreeTransaction(confirmed): %v", err)
	}
	info := cache.GetFreeTxInfoForScript(script)
	if info.WindowStartHeight != 250 {
		t.Fatalf("window start after confirmation = %d, want 250", info.WindowStartHeight)
	}
	if info.UsedConfirmed != 150 || info.UsedUnconfirmed != 0 {
		t.Fatalf("counters after confirmation = %d/%d, want 150 confirmed, 0 unconfirmed",
			info.UsedConfirmed, info.UsedUnconfirmed)
	}
}

// TestRemoveInvalidFreeTxInfosReorgDropsOrphanedWindows checks the reorg
// branch: windows opened past the rewind target vanish without leaving a
// closed-window record, while windows opened at or before it survive.
func TestRemoveInvalidFreeTxInfosReorgDropsOrphanedWindows(t *testing.T) {
	db := newTestDB(t)
	cache, err := db.NewEditableCache()
	if err != nil {
		t.Fatalf("NewEditableCache: %v", err)
	}
	defer cache.Drop()

	oldScript := []byte("opened-before-target")
	newScript := []byte("opened-after-target")
	if err := cache.RegisterFreeTransaction(oldScript, hashFromByte(30), 100, 200, 576, 1000); err != nil {
		t.Fatalf("RegisterFreeTransaction(old): %v", err)
	}
	if err := cache.RegisterFreeTransaction(newScript, hashFromByte(31), 100, 400, 576, 1000); err != nil {
		t.Fatalf("RegisterFreeTransaction(new): %v", err)
	}

	if err := cache.RemoveInvalidFreeTxInfos(300, 576, true); err != nil {
		t.Fatalf("RemoveInvalidFreeTxInfos(reorg): %v", err)
	}

	if cache.GetFreeTxInfoForScript(oldScript) == nil {
		t.Fatal("window opened before the reorg target was dropped")
	}
	if cache.GetFreeTxInfoForScript(newScript) != nil {
		t.Fatal("window opened after the reorg target survived")
	}
	if len(cache.freeTxWindowCloses) != 0 {
		t.Fatal("reorg drop recorded a closed-window entry")
	}
}

func TestFlushDBIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	cache, err := db.NewEditableCache()
	if err != nil {
		t.Fatalf("NewEditableCache: %v", err)
	}
	defer cache.Drop()

	entry := mustStakeEntry(t, hashFromByte(5), stakingparams.MIN_STAKING_AMOUNT, 0, 1, []byte("s"))
	if err := cache.AddNewStakeEntry(entry); err != nil {
		t.Fatalf("AddNewStakeEntry: %v", err)
	}
	if err := cache.FlushDB(); err != nil {
		t.Fatalf("first FlushDB: %v", err)
	}
	if err := cache.FlushDB(); err != nil {
		t.Fatalf("second FlushDB: %v", err)
	}
}

func TestCreditAndDebitStakingPool(t *testing.T) {
	db := newTestDB(t)
	cache, err := db.NewEditableCache()
	if err != nil {
		t.Fatalf("NewEditableCache: %v", err)
	}
	defer cache.Drop()

	if err := cache.CreditStakingPool(1000); err != nil {
		t.Fatalf("CreditStakingPool: %v", err)
	}
	if err := cache.DebitStakingPool(400); err != nil {
		t.Fatalf("DebitStakingPool: %v", err)
	}
	if bal := cache.GetStakingPoolBalance(); bal != 600 {
		t.Fatalf("GetStakingPoolBalance = %d, want 600", bal)
	}
	if err := cache.DebitStakingPool(10000); err == nil {
		t.Fatalf("DebitStakingPool over balance succeeded, want error")
	}
}
