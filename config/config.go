// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package config parses the runtime configuration this core owns
// directly: which network parameter set to run against, and where its
// stakes database lives on disk. It is intentionally thin. This core has
// no network, RPC, or wallet surface, so it carries none of the dozens of
// flags a full node's config would.
package config

import (
	"fmt"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"

	"stakecore/chaincfg"
)

const defaultDataDirname = "stakedb"

// Config holds the flags this core's CLI accepts. Params is resolved by
// Load from the network flags below and is not itself a flag: go-flags
// only reflects over exported fields it finds a recognized tag on, and
// unexported fields like params are invisible to it entirely.
type Config struct {
	DataDir string `short:"b" long:"datadir" description:"Directory to store the stakes database"`
	TestNet bool   `long:"testnet" description:"Use the test network"`
	RegNet  bool   `long:"regnet" description:"Use the regression test network"`
	SimNet  bool   `long:"simnet" description:"Use the simulation test network"`

	params *chaincfg.Params
}

// Params returns the network parameter set Load resolved.
func (c *Config) Params() *chaincfg.Params {
	return c.params
}

// Load parses args (typically os.Args[1:]) into a Config, applying
// defaults and resolving the selected network's parameter set. At most one
// of TestNet/RegNet/SimNet may be set; none selected means mainnet.
func Load(args []string) (*Config, error) {
	cfg := &Config{DataDir: defaultDataDirname}

	parser := flags.NewParser(cfg, flags.PrintErrors|flags.HelpFlag)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	numNets := 0
	for _, set := range []bool{cfg.TestNet, cfg.RegNet, cfg.SimNet} {
		if set {
			numNets++
		}
	}
	if numNets > 1 {
		return nil, fmt.Errorf("config: testnet, regnet, and simnet are mutually exclusive")
	}

	switch {
	case cfg.TestNet:
		cfg.params = chaincfg.TestNetParams()
	case cfg.RegNet:
		cfg.params = chaincfg.RegNetParams()
	case cfg.SimNet:
		cfg.params = chaincfg.SimNetParams()
	default:
		cfg.params = chaincfg.MainNetParams()
	}

	cfg.DataDir = filepath.Join(cfg.DataDir, cfg.params.Name)

	return cfg, nil
}
