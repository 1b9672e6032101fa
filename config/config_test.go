// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import "testing"

func TestLoadDefaultsToMainNet(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Params().Name != "mainnet" {
		t.Fatalf("Params().Name = %q, want mainnet", cfg.Params().Name)
	}
}

func TestLoadSelectsTestNet(t *testing.T) {
	cfg, err := Load([]string{"--testnet"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Params().Name != "testnet" {
		t.Fatalf("Params().Name = %q, want testnet", cfg.Params().Name)
	}
}

func TestLoadRejectsMultipleNetworks(t *testing.T) {
	_, err := Load([]string{"--testnet", "--regnet"})
	if err == nil {
		t.Fatalf("Load with both --testnet and --regnet succeeded, want error")
	}
}

func TestLoadJoinsDataDirWithNetworkName(t *testing.T) {
	cfg, err := Load([]string{"--simnet", "--datadir", "/tmp/example"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := "/tmp/example/simnet"
	if cfg.DataDir != want {
		t.Fatalf("DataDir = %q, want %q", cfg.DataDir, want)
	}
}
