// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package storage

import (
	"encoding/binary"

	"github.com/max-tonny8/RuneStone-lib-Bitcoin/bitcoin/runes"
)

// Key prefixes for the namespaced leveldb keyspace. A single byte prefix
// keeps every record family trivially distinguishable during iteration
// without a separate column family.
const (
	prefixBlockHash   = 'h'
	prefixRuneEntry   = 'r'
	prefixRuneName    = 'n'
	prefixUtxoBalance = 'u'
	prefixHeight      = 't'
	prefixTxHeight    = 'x'
)

func blockHashKey(height uint64) []byte {
	key := make([]byte, 9)
	key[0] = prefixBlockHash
	binary.BigEndian.PutUint64(key[1:], height)
	return key
}

func runeEntryKey(id runes.RuneID) []byte {
	key := make([]byte, 13)
	key[0] = prefixRuneEntry
	binary.BigEndian.PutUint64(key[1:9], id.Block)
	binary.BigEndian.PutUint32(key[9:], id.TxID)
	return key
}

func runeNameKey(name string) []byte {
	key := make([]byte, 1+len(name))
	key[0] = prefixRuneName
	copy(key[1:], name)
	return key
}

func utxoBalanceKey(txid [32]byte, vout uint32) []byte {
	key := make([]byte, 37)
	key[0] = prefixUtxoBalance
	copy(key[1:33], txid[:])
	binary.BigEndian.PutUint32(key[33:], vout)
	return key
}

func heightKey() []byte {
	return []byte{prefixHeight}
}

func txHeightKey(txid [32]byte) []byte {
	key := make([]byte, 33)
	key[0] = prefixTxHeight
	copy(key[1:], txid[:])
	return key
}
