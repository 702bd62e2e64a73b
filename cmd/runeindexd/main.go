// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Command runeindexd walks confirmed Bitcoin blocks from a bitcoind RPC
// connection, decoding and applying each transaction's runestone to a
// goleveldb-backed ledger, looping until signaled to stop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/max-tonny8/RuneStone-lib-Bitcoin/bitcoin/index"
	"github.com/max-tonny8/RuneStone-lib-Bitcoin/bitcoin/rpc"
	"github.com/max-tonny8/RuneStone-lib-Bitcoin/bitcoin/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "runeindexd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logs, err := initLogging(cfg.LogFile, cfg.Debug)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logRotator.Close()

	store, err := storage.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	client, err := rpc.New(rpc.Config{
		Host:       cfg.RPCHost,
		User:       cfg.RPCUser,
		Pass:       cfg.RPCPass,
		DisableTLS: cfg.RPCNoTLS,
	}, logs.rpcLog)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Shutdown()

	indexer := index.New(store, client, logs.indexLog, index.Options{
		StartHeight: cfg.StartHeight,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logs.mainLog.Infof("runeindexd starting, datadir=%s", cfg.DataDir)

	return indexLoop(ctx, indexer, logs, time.Duration(cfg.PollSeconds)*time.Second)
}

// indexLoop repeatedly calls Update until ctx is canceled, sleeping between
// passes once a call advances zero blocks (caught up to the tip).
func indexLoop(ctx context.Context, indexer *index.RunestoneIndexer, logs *loggers, pollInterval time.Duration) error {
	for {
		advanced, err := indexer.Update(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logs.mainLog.Infof("shutting down")
				return nil
			}
			logs.mainLog.Errorf("update failed: %v", err)
		} else if advanced > 0 {
			logs.mainLog.Infof("advanced %d blocks", advanced)
			continue
		}

		select {
		case <-ctx.Done():
			logs.mainLog.Infof("shutting down")
			return nil
		case <-time.After(pollInterval):
		}
	}
}
