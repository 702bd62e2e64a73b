// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package rpc wraps a Bitcoin Core JSON-RPC connection, exposing exactly
// the calls the indexer needs to walk the chain: read the tip height,
// resolve a height to a block hash, fetch a block, and fetch a single
// transaction.
package rpc

import (
	"fmt"

	"github.com/btcsuite/btclog"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
)

// Config holds the connection parameters for a bitcoind JSON-RPC endpoint.
type Config struct {
	Host       string
	User       string
	Pass       string
	DisableTLS bool
}

// Client is a thin wrapper over rpcclient.Client. It does not retry failed
// calls itself: retry policy belongs to whoever drives the indexer's update
// loop, not to this layer.
type Client struct {
	rpc *rpcclient.Client
	log btclog.Logger
}

// New dials the configured bitcoind node over HTTP POST (no websocket
// notifications are used, so no disconnect handler is registered).
func New(cfg Config, log btclog.Logger) (*Client, error) {
	conn := &rpcclient.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		HTTPPostMode: true,
		DisableTLS:   cfg.DisableTLS,
	}

	client, err := rpcclient.New(conn, nil)
	if err != nil {
		return nil, fmt.Errorf("rpc: dial %s: %w", cfg.Host, err)
	}

	if log == nil {
		log = btclog.Disabled
	}

	return &Client{rpc: client, log: log}, nil
}

// Shutdown closes the underlying RPC connection.
func (c *Client) Shutdown() {
	c.rpc.Shutdown()
}

// GetBlockCount returns the height of the most-work fully-validated chain
// the connected node knows about, used by the indexer to find its target
// tip for a run of Update.
func (c *Client) GetBlockCount() (int64, error) {
	height, err := c.rpc.GetBlockCount()
	if err != nil {
		c.log.Errorf("GetBlockCount: %v", err)
		return 0, fmt.Errorf("rpc: get block count: %w", err)
	}

	return height, nil
}

// GetBlockHash resolves the hash of the block at the given height.
func (c *Client) GetBlockHash(height int64) (*chainhash.Hash, error) {
	hash, err := c.rpc.GetBlockHash(height)
	if err != nil {
		c.log.Errorf("GetBlockHash(%d): %v", height, err)
		return nil, fmt.Errorf("rpc: get block hash at %d: %w", height, err)
	}

	return hash, nil
}

// GetBlock fetches the full block identified by hash, including every
// transaction.
func (c *Client) GetBlock(hash *chainhash.Hash) (*wire.MsgBlock, error) {
	block, err := c.rpc.GetBlock(hash)
	if err != nil {
		c.log.Errorf("GetBlock(%s): %v", hash, err)
		return nil, fmt.Errorf("rpc: get block %s: %w", hash, err)
	}

	return block, nil
}

// GetRawTransaction fetches a single transaction by id.
func (c *Client) GetRawTransaction(txid *chainhash.Hash) (*wire.MsgTx, error) {
	tx, err := c.rpc.GetRawTransaction(txid)
	if err != nil {
		c.log.Errorf("GetRawTransaction(%s): %v", txid, err)
		return nil, fmt.Errorf("rpc: get raw transaction %s: %w", txid, err)
	}

	return tx.MsgTx(), nil
}
