// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package storage implements the ledger's persistent key/value backend on
// goleveldb: block hashes, rune entries (with a secondary name index),
// per-output balances, and the current indexed height, with writes
// buffered per block and flushed or discarded as a unit.
package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/max-tonny8/RuneStone-lib-Bitcoin/bitcoin/ledger"
	"github.com/max-tonny8/RuneStone-lib-Bitcoin/bitcoin/runes"
)

// Store is a goleveldb-backed implementation of the ledger's storage
// contract. Setters are buffered in memory until CommitBlock flushes them
// to the database as a single leveldb.Batch; reads within the same block
// observe the buffered writes, giving callers read-your-own-writes
// consistency without touching the database for every lookup.
type Store struct {
	db      *leveldb.DB
	pending map[string][]byte
	deleted map[string]bool
}

// Open creates or reopens a Store backed by the leveldb database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}

	return &Store{
		db:      db,
		pending: make(map[string][]byte),
		deleted: make(map[string]bool),
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(key []byte) ([]byte, bool, error) {
	k := string(key)

	if s.deleted[k] {
		return nil, false, nil
	}
	if v, ok := s.pending[k]; ok {
		return v, true, nil
	}

	v, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage: get: %w", err)
	}

	return v, true, nil
}

func (s *Store) put(key, value []byte) {
	k := string(key)
	delete(s.deleted, k)
	s.pending[k] = value
}

func (s *Store) delete(key []byte) {
	k := string(key)
	delete(s.pending, k)
	s.deleted[k] = true
}

// CommitBlock flushes every buffered write made since the last commit or
// abort to the database as one atomic batch.
func (s *Store) CommitBlock() error {
	batch := new(leveldb.Batch)
	for k, v := range s.pending {
		batch.Put([]byte(k), v)
	}
	for k := range s.deleted {
		batch.Delete([]byte(k))
	}

	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("storage: commit block: %w", err)
	}

	s.pending = make(map[string][]byte)
	s.deleted = make(map[string]bool)

	return nil
}

// AbortBlock discards every buffered write made since the last commit or
// abort, rolling back a partially applied block.
func (s *Store) AbortBlock() {
	s.pending = make(map[string][]byte)
	s.deleted = make(map[string]bool)
}

// GetBlockHash returns the hash recorded for height, if any.
func (s *Store) GetBlockHash(height uint64) (*chainhash.Hash, bool, error) {
	v, ok, err := s.get(blockHashKey(height))
	if err != nil || !ok {
		return nil, ok, err
	}

	hash, err := chainhash.NewHash(v)
	if err != nil {
		return nil, false, fmt.Errorf("storage: decode block hash at %d: %w", height, err)
	}

	return hash, true, nil
}

// SetBlockHash records the hash of the block at height.
func (s *Store) SetBlockHash(height uint64, hash *chainhash.Hash) {
	s.put(blockHashKey(height), hash[:])
}

// GetCurrentHeight returns the highest height the indexer has fully
// committed, if any block has been indexed yet.
func (s *Store) GetCurrentHeight() (uint64, bool, error) {
	v, ok, err := s.get(heightKey())
	if err != nil || !ok {
		return 0, ok, err
	}

	return binary.BigEndian.Uint64(v), true, nil
}

// SetCurrentHeight records the highest height about to be committed.
func (s *Store) SetCurrentHeight(height uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], height)
	s.put(heightKey(), b[:])
}

// GetTxHeight returns the height at which txid was confirmed, if the
// indexer has recorded it. This is the indexer's own auxiliary index (not
// part of the storage contract the core depends on), used only to resolve
// the maturity of a commitment input's previously-spent output.
func (s *Store) GetTxHeight(txid [32]byte) (uint64, bool, error) {
	v, ok, err := s.get(txHeightKey(txid))
	if err != nil || !ok {
		return 0, ok, err
	}

	return binary.BigEndian.Uint64(v), true, nil
}

// SetTxHeight records the height at which txid was confirmed.
func (s *Store) SetTxHeight(txid [32]byte, height uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], height)
	s.put(txHeightKey(txid), b[:])
}

// GetRuneEntry returns the rune entry for id, if it has been etched.
func (s *Store) GetRuneEntry(id runes.RuneID) (*ledger.RuneEntry, bool, error) {
	v, ok, err := s.get(runeEntryKey(id))
	if err != nil || !ok {
		return nil, ok, err
	}

	entry, err := DecodeRuneEntry(v)
	if err != nil {
		return nil, false, fmt.Errorf("storage: decode rune entry %s: %w", id, err)
	}

	return entry, true, nil
}

// GetRuneEntryByName resolves a rune entry via its spaced-free name, using
// the secondary n/<name> index.
func (s *Store) GetRuneEntryByName(name string) (*ledger.RuneEntry, bool, error) {
	v, ok, err := s.get(runeNameKey(name))
	if err != nil || !ok {
		return nil, ok, err
	}

	id := runes.RuneID{
		Block: binary.BigEndian.Uint64(v[0:8]),
		TxID:  binary.BigEndian.Uint32(v[8:]),
	}

	return s.GetRuneEntry(id)
}

// SetRuneEntry records entry under both the primary r/<runeid> key and the
// secondary n/<name> index.
func (s *Store) SetRuneEntry(id runes.RuneID, entry *ledger.RuneEntry) {
	s.put(runeEntryKey(id), EncodeRuneEntry(entry))

	var idBytes [12]byte
	binary.BigEndian.PutUint64(idBytes[0:8], id.Block)
	binary.BigEndian.PutUint32(idBytes[8:], id.TxID)
	s.put(runeNameKey(entry.Rune.String()), idBytes[:])
}

// IncrementMints bumps the mint counter on the stored rune entry for id by
// one, matching a single successful invocation of its open mint terms.
func (s *Store) IncrementMints(id runes.RuneID) error {
	entry, ok, err := s.GetRuneEntry(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("storage: increment mints: no such rune entry %s", id)
	}

	entry.Mints = new(big.Int).Add(entry.Mints, big.NewInt(1))
	s.SetRuneEntry(id, entry)

	return nil
}

// AddBurned adds amount to the cumulative burned total recorded against
// the rune entry for id.
func (s *Store) AddBurned(id runes.RuneID, amount *big.Int) error {
	entry, ok, err := s.GetRuneEntry(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("storage: add burned: no such rune entry %s", id)
	}

	entry.Burned = new(big.Int).Add(entry.Burned, amount)
	s.SetRuneEntry(id, entry)

	return nil
}

// GetUtxoBalances returns the rune balances recorded against the output
// identified by (txid, vout), or an empty balance if none are recorded.
func (s *Store) GetUtxoBalances(txid [32]byte, vout uint32) (ledger.UtxoBalance, error) {
	v, ok, err := s.get(utxoBalanceKey(txid, vout))
	if err != nil {
		return nil, err
	}
	if !ok {
		return make(ledger.UtxoBalance), nil
	}

	balances, err := DecodeBalances(v)
	if err != nil {
		return nil, fmt.Errorf("storage: decode utxo balances: %w", err)
	}

	return balances, nil
}

// SetUtxoBalances records the rune balances carried by the output
// identified by (txid, vout).
func (s *Store) SetUtxoBalances(txid [32]byte, vout uint32, balances ledger.UtxoBalance) {
	s.put(utxoBalanceKey(txid, vout), EncodeBalances(balances))
}

// DeleteUtxoBalances removes any recorded balance for the output
// identified by (txid, vout), called once that output has been spent.
func (s *Store) DeleteUtxoBalances(txid [32]byte, vout uint32) {
	s.delete(utxoBalanceKey(txid, vout))
}
