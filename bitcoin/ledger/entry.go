// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

// Package ledger applies decoded runestones to UTXO balances, maintaining
// the protocol's per-rune supply and per-output balance state one
// transaction at a time.
package ledger

import (
	"math/big"

	"github.com/max-tonny8/RuneStone-lib-Bitcoin/bitcoin/runes"
	"github.com/max-tonny8/RuneStone-lib-Bitcoin/internal/option"
)

// RuneEntry is the persistent record of a rune's etching and its mint
// progress to date.
type RuneEntry struct {
	RuneID       runes.RuneID
	Rune         *runes.Rune
	Spacers      uint32
	Divisibility byte
	Premine      *big.Int
	Symbol       rune
	Terms        *runes.Terms
	Turbo        bool

	// Mints is the number of times this rune's open terms have been used.
	Mints *big.Int
	// Burned is the cumulative amount of this rune swept to a cenotaph or
	// an out-of-range edict/pointer.
	Burned *big.Int

	EtchingHeight  uint64
	EtchingTxIndex uint32
}

// SpacedName returns the rune's name with its etched spacers applied.
func (e *RuneEntry) SpacedName() string {
	return e.Rune.StringWithSeparator(e.Spacers, option.None[rune]())
}

// RemainingMints returns how many more times the open mint terms can be
// invoked, or nil if the terms carry no cap.
func (e *RuneEntry) RemainingMints() *big.Int {
	if e.Terms == nil {
		return big.NewInt(0)
	}

	cap_, ok := e.Terms.Cap.Get()
	if !ok {
		return nil
	}

	return new(big.Int).Sub(cap_, e.Mints)
}

// IsMintOpen returns true if height falls within the terms' absolute height
// window and offset window (measured from the etching height), and the cap
// has not yet been reached.
func (e *RuneEntry) IsMintOpen(height uint64) bool {
	if e.Terms == nil {
		return false
	}

	if remaining := e.RemainingMints(); remaining != nil && remaining.Sign() <= 0 {
		return false
	}

	if start, ok := e.Terms.HeightStart.Get(); ok && height < start {
		return false
	}
	if end, ok := e.Terms.HeightEnd.Get(); ok && height >= end {
		return false
	}
	if start, ok := e.Terms.OffsetStart.Get(); ok && height < e.EtchingHeight+start {
		return false
	}
	if end, ok := e.Terms.OffsetEnd.Get(); ok && height >= e.EtchingHeight+end {
		return false
	}

	return true
}
