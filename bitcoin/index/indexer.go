// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package index drives the per-block, per-transaction application of
// decoded runestones against the ledger's storage backend: it is the glue
// between the RPC client's block stream, the protocol engine's decoder,
// and the ledger state machine.
package index

import (
	"context"
	"fmt"
	"math/big"

	"github.com/btcsuite/btclog"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/max-tonny8/RuneStone-lib-Bitcoin/bitcoin/ledger"
	"github.com/max-tonny8/RuneStone-lib-Bitcoin/bitcoin/runes"
)

// Storage is the persistence contract the indexer drives: snapshot-
// consistent getters, buffered setters, and a per-block commit/abort unit.
// bitcoin/storage.Store satisfies this.
type Storage interface {
	GetBlockHash(height uint64) (*chainhash.Hash, bool, error)
	SetBlockHash(height uint64, hash *chainhash.Hash)
	GetCurrentHeight() (uint64, bool, error)
	SetCurrentHeight(height uint64)
	GetRuneEntry(id runes.RuneID) (*ledger.RuneEntry, bool, error)
	GetRuneEntryByName(name string) (*ledger.RuneEntry, bool, error)
	SetRuneEntry(id runes.RuneID, entry *ledger.RuneEntry)
	GetUtxoBalances(txid [32]byte, vout uint32) (ledger.UtxoBalance, error)
	SetUtxoBalances(txid [32]byte, vout uint32, balances ledger.UtxoBalance)
	DeleteUtxoBalances(txid [32]byte, vout uint32)
	IncrementMints(id runes.RuneID) error
	AddBurned(id runes.RuneID, amount *big.Int) error
	GetTxHeight(txid [32]byte) (uint64, bool, error)
	SetTxHeight(txid [32]byte, height uint64)
	CommitBlock() error
	AbortBlock()
}

// RPC is the chain data source the indexer walks. bitcoin/rpc.Client
// satisfies this.
type RPC interface {
	GetBlockCount() (int64, error)
	GetBlockHash(height int64) (*chainhash.Hash, error)
	GetBlock(hash *chainhash.Hash) (*wire.MsgBlock, error)
	GetRawTransaction(txid *chainhash.Hash) (*wire.MsgTx, error)
}

// Options configures a RunestoneIndexer.
type Options struct {
	// StartHeight is where to begin if the storage backend has never
	// recorded a height before (a fresh database). Ignored once indexing
	// has advanced past it.
	StartHeight uint64
}

// RunestoneIndexer walks confirmed blocks from the last committed height
// to the chain tip, decoding and applying each transaction's runestone.
type RunestoneIndexer struct {
	storage Storage
	rpc     RPC
	log     btclog.Logger
	options Options
}

// New constructs a RunestoneIndexer over the given storage backend and RPC
// client. A nil logger disables logging.
func New(storage Storage, rpc RPC, log btclog.Logger, options Options) *RunestoneIndexer {
	if log == nil {
		log = btclog.Disabled
	}

	return &RunestoneIndexer{storage: storage, rpc: rpc, log: log, options: options}
}

// Update advances the ledger from the last committed height to the RPC
// node's current tip, one block at a time, and reports how many blocks
// were applied. A collaborator failure partway through a block aborts
// that block's buffered writes and returns without advancing the stored
// height past the last fully committed block, per the core's error
// handling contract: no partial block is ever left committed.
func (idx *RunestoneIndexer) Update(ctx context.Context) (advanced int, err error) {
	start, err := idx.nextHeight()
	if err != nil {
		return 0, err
	}

	tip, err := idx.rpc.GetBlockCount()
	if err != nil {
		return 0, fmt.Errorf("index: get chain tip: %w", err)
	}

	for height := start; int64(height) <= tip; height++ {
		select {
		case <-ctx.Done():
			return advanced, ctx.Err()
		default:
		}

		if err := idx.applyBlock(height); err != nil {
			idx.storage.AbortBlock()
			return advanced, fmt.Errorf("index: apply block %d: %w", height, err)
		}

		advanced++
		idx.log.Infof("indexed block %d", height)
	}

	return advanced, nil
}

// nextHeight resolves the first height Update should process: one past
// whatever the storage backend has already committed, or the configured
// start height on a fresh database.
func (idx *RunestoneIndexer) nextHeight() (uint64, error) {
	current, ok, err := idx.storage.GetCurrentHeight()
	if err != nil {
		return 0, fmt.Errorf("index: get current height: %w", err)
	}
	if !ok {
		return idx.options.StartHeight, nil
	}

	return current + 1, nil
}

// applyBlock fetches, decodes, and folds every transaction in the block at
// height into the ledger, then commits the batch as a unit.
func (idx *RunestoneIndexer) applyBlock(height uint64) error {
	hash, err := idx.rpc.GetBlockHash(int64(height))
	if err != nil {
		return err
	}

	block, err := idx.rpc.GetBlock(hash)
	if err != nil {
		return err
	}

	for txIndex, tx := range block.Transactions {
		if err := idx.applyTx(height, uint32(txIndex), tx); err != nil {
			return fmt.Errorf("tx %s: %w", tx.TxHash(), err)
		}
	}

	idx.storage.SetBlockHash(height, hash)
	idx.storage.SetCurrentHeight(height)

	return idx.storage.CommitBlock()
}

// applyTx decodes one transaction's runestone output and folds the result
// into the ledger's balances, entries, mint counts, and burned totals.
func (idx *RunestoneIndexer) applyTx(height uint64, txIndex uint32, tx *wire.MsgTx) error {
	inputs, err := idx.collectInputs(tx)
	if err != nil {
		return err
	}

	scripts := make([][]byte, len(tx.TxOut))
	opReturn := make([]bool, len(tx.TxOut))
	for i, out := range tx.TxOut {
		scripts[i] = out.PkScript
		opReturn[i] = isOpReturn(out.PkScript)
	}

	artifact := runes.Decode(scripts, len(tx.TxOut))

	lookup := func(id runes.RuneID) (*ledger.RuneEntry, bool) {
		entry, ok, err := idx.storage.GetRuneEntry(id)
		if err != nil {
			idx.log.Warnf("lookup rune entry %s: %v", id, err)
			return nil, false
		}
		return entry, ok
	}

	committed := func(rn *runes.Rune) bool {
		return runes.VerifyCommitment(tx, rn, height, idx.inputHeight(tx))
	}

	result := ledger.Apply(artifact, height, txIndex, inputs, len(tx.TxOut), opReturn, lookup, committed)

	return idx.persist(height, tx, result)
}

// collectInputs sums the rune balances carried by every output this
// transaction spends and deletes those balance records, since the outputs
// they described no longer exist once spent. A coinbase transaction has
// no prior outputs to collect.
func (idx *RunestoneIndexer) collectInputs(tx *wire.MsgTx) ([]ledger.UtxoBalance, error) {
	if isCoinbase(tx) {
		return nil, nil
	}

	inputs := make([]ledger.UtxoBalance, 0, len(tx.TxIn))
	for _, in := range tx.TxIn {
		txid := in.PreviousOutPoint.Hash
		balance, err := idx.storage.GetUtxoBalances(txid, in.PreviousOutPoint.Index)
		if err != nil {
			return nil, fmt.Errorf("get utxo balances %s:%d: %w", txid, in.PreviousOutPoint.Index, err)
		}

		inputs = append(inputs, balance)
		idx.storage.DeleteUtxoBalances(txid, in.PreviousOutPoint.Index)
	}

	return inputs, nil
}

// inputHeight resolves the confirmation height of the output spent by
// tx.TxIn[inputIndex], using the indexer's own txid-height index. An
// output the indexer has never seen confirmed (e.g. one spent before
// indexing began) cannot satisfy the commitment maturity rule and is
// reported as not found.
func (idx *RunestoneIndexer) inputHeight(tx *wire.MsgTx) runes.HeightLookup {
	return func(inputIndex int) (uint64, bool) {
		if inputIndex < 0 || inputIndex >= len(tx.TxIn) {
			return 0, false
		}

		height, ok, err := idx.storage.GetTxHeight(tx.TxIn[inputIndex].PreviousOutPoint.Hash)
		if err != nil || !ok {
			return 0, false
		}

		return height, true
	}
}

// persist writes a transaction's ledger.Result into the storage backend's
// buffered batch: new per-output balances, a freshly etched entry, an
// incremented mint count, and burned totals.
func (idx *RunestoneIndexer) persist(height uint64, tx *wire.MsgTx, result ledger.Result) error {
	txid := tx.TxHash()

	for i, balance := range result.Outputs {
		if len(balance) == 0 {
			continue
		}
		idx.storage.SetUtxoBalances(txid, uint32(i), balance)
	}

	if result.NewEntry != nil {
		idx.storage.SetRuneEntry(result.NewEntry.RuneID, result.NewEntry)
	}

	if result.Minted {
		if err := idx.storage.IncrementMints(result.MintedID); err != nil {
			return fmt.Errorf("increment mints %s: %w", result.MintedID, err)
		}
	}

	if result.CenotaphMinted {
		if err := idx.storage.IncrementMints(result.CenotaphMintedID); err != nil {
			return fmt.Errorf("increment mints (cenotaph) %s: %w", result.CenotaphMintedID, err)
		}
	}

	for id, amount := range result.Burned {
		if err := idx.storage.AddBurned(id, amount); err != nil {
			return fmt.Errorf("add burned %s: %w", id, err)
		}
	}

	idx.storage.SetTxHeight(txid, height)

	return nil
}

// isOpReturn reports whether script is a provably-unspendable OP_RETURN
// output, which the protocol excludes from pro-rata edicts, the default
// pointer, and the no-runestone pass-through.
func isOpReturn(script []byte) bool {
	return len(script) > 0 && script[0] == txscript.OP_RETURN
}

// isCoinbase reports whether tx is a block's coinbase transaction: a
// single input referencing the null outpoint.
func isCoinbase(tx *wire.MsgTx) bool {
	if len(tx.TxIn) != 1 {
		return false
	}

	prevOut := tx.TxIn[0].PreviousOutPoint
	return prevOut.Index == wire.MaxPrevOutIndex && prevOut.Hash == chainhash.Hash{}
}
