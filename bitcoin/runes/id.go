// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// RuneID defined the id of the rune.
type RuneID struct {
	Block uint64
	TxID  uint32
}

// NewRuneID returns a RuneID.
func NewRuneID(block uint64, txID uint32) RuneID {
	return RuneID{Block: block, TxID: txID}
}

// NewRuneIDFromString returns RuneID parsed from string.
func NewRuneIDFromString(s string) (RuneID, error) {
	data := strings.Split(s, ":")
	if len(data) != 2 {
		return RuneID{}, fmt.Errorf("invalid rune id format: %s", s)
	}

	block, err := strconv.ParseUint(data[0], 10, 64)
	if err != nil {
		return RuneID{}, err
	}

	txID, err := strconv.ParseUint(data[1], 10, 32)
	if err != nil {
		return RuneID{}, err
	}

	return RuneID{Block: block, TxID: uint32(txID)}, nil
}

// IsValid returns false if the id carries a zero block with a nonzero tx
// index, which cannot identify any real etching transaction.
func (id RuneID) IsValid() bool {
	return !(id.Block == 0 && id.TxID != 0)
}

// Next produces the next RuneID from delta encoding, matching the encoder's
// canonical ordering: block delta is relative to id, and tx delta is
// relative to the previous edict's tx index only when block is unchanged.
// ok is false if either component overflows its underlying integer width.
func (id RuneID) Next(delta RuneID) (next RuneID, ok bool) {
	if delta.Block == 0 {
		tx := uint64(id.TxID) + uint64(delta.TxID)
		if tx > math.MaxUint32 {
			return RuneID{}, false
		}

		return RuneID{Block: id.Block, TxID: uint32(tx)}, true
	}

	block := new(big.Int).Add(new(big.Int).SetUint64(id.Block), new(big.Int).SetUint64(delta.Block))
	if !block.IsUint64() {
		return RuneID{}, false
	}

	return RuneID{Block: block.Uint64(), TxID: delta.TxID}, true
}

// Set is a copying setter, sets runeID values to id.
func (id *RuneID) Set(runeID RuneID) {
	id.Block = runeID.Block
	id.TxID = runeID.TxID
}

// String returns RuneID as string.
func (id RuneID) String() string {
	return fmt.Sprintf("%d:%d", id.Block, id.TxID)
}

// ToIntSeq returns RuneID as integer sequence.
func (id RuneID) ToIntSeq() []*big.Int {
	return []*big.Int{new(big.Int).SetUint64(id.Block), new(big.Int).SetUint64(uint64(id.TxID))}
}

// Compare orders ids first by block, then by tx index.
func (id RuneID) Compare(other RuneID) int {
	if id.Block != other.Block {
		if id.Block < other.Block {
			return -1
		}
		return 1
	}
	if id.TxID != other.TxID {
		if id.TxID < other.TxID {
			return -1
		}
		return 1
	}
	return 0
}
