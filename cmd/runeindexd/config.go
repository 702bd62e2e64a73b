// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultDataDir    = "runeindexd-data"
	defaultLogFile    = "runeindexd.log"
	defaultPollPeriod = 10
)

// config holds runeindexd's flag/ini-parsed configuration, in the same
// struct-tag style pktd/btcd-family daemons use with go-flags.
type config struct {
	RPCHost     string `long:"rpchost" description:"bitcoind JSON-RPC host:port" required:"true"`
	RPCUser     string `long:"rpcuser" description:"bitcoind JSON-RPC username" required:"true"`
	RPCPass     string `long:"rpcpass" description:"bitcoind JSON-RPC password" required:"true"`
	RPCNoTLS    bool   `long:"rpcnotls" description:"disable TLS for the RPC connection"`
	DataDir     string `long:"datadir" description:"directory holding the leveldb ledger database"`
	LogFile     string `long:"logfile" description:"path to the rotated log file"`
	StartHeight uint64 `long:"startheight" description:"height to begin indexing at on a fresh database"`
	PollSeconds int    `long:"pollseconds" description:"seconds to sleep between Update passes once caught up to the tip"`
	Debug       bool   `long:"debug" description:"enable debug-level logging"`
}

// loadConfig parses command-line flags and fills in defaults, mirroring
// the load/validate split of btcd-family daemon configs.
func loadConfig() (*config, error) {
	cfg := config{
		DataDir:     defaultDataDir,
		LogFile:     defaultLogFile,
		PollSeconds: defaultPollPeriod,
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate rejects a configuration that cannot start an indexer, and
// resolves the data directory and log file to absolute paths.
func (cfg *config) validate() error {
	if cfg.RPCHost == "" {
		return fmt.Errorf("config: rpchost is required")
	}
	if cfg.PollSeconds <= 0 {
		return fmt.Errorf("config: pollseconds must be positive")
	}

	dataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("config: resolve datadir: %w", err)
	}
	cfg.DataDir = dataDir

	logFile, err := filepath.Abs(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("config: resolve logfile: %w", err)
	}
	cfg.LogFile = logFile

	return nil
}
