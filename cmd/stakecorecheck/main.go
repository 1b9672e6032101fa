// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// stakecorecheck opens a stakes database under the selected network's data
// directory, runs its startup verification, and reports the current
// aggregate state.
package main

import (
	"fmt"
	"os"

	"github.com/decred/slog"

	"stakecore/config"
	"stakecore/stakedb"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "stakecorecheck:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	backend := slog.NewBackend(os.Stdout)
	log := backend.Logger("CHCK")
	log.SetLevel(slog.LevelInfo)
	stakedb.UseLogger(log)

	log.Infof("opening stakes database for %s at %s", cfg.Params().Name, cfg.DataDir)

	db, err := stakedb.NewStakesDB(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	report(log, db)
	return nil
}

func report(log slog.Logger, db *stakedb.StakesDB) {
	active := db.GetAllActiveStakes()
	amounts := db.GetAmountsByPeriods()

	log.Infof("best block: %s", db.GetBestBlock())
	log.Infof("active stakes: %d", len(active))
	for i, amount := range amounts {
		log.Infof("period %d total staked: %d", i, amount)
	}
	log.Infof("staking pool balance: %d", db.GetStakingPoolBalance())
	log.Infof("complete stakes: %d", db.GetNumCompleteStakes())
	log.Infof("early-withdrawn stakes: %d", db.GetNumEarlyWithdrawnStakes())
}
