// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes

import (
	"math/big"
)

// Flag bit positions within the Flags tag value.
const (
	FlagEtchingBit  uint = 0
	FlagTermsBit    uint = 1
	FlagTurboBit    uint = 2
	FlagCenotaphBit uint = 7
)

var (
	// FlagEtching marks the runestone as etching a new rune.
	FlagEtching = flagMask(FlagEtchingBit)
	// FlagTerms marks the etching as carrying open mint terms.
	FlagTerms = flagMask(FlagTermsBit)
	// FlagTurbo opts the etched rune into future protocol upgrades.
	FlagTurbo = flagMask(FlagTurboBit)
	// FlagCenotaph explicitly marks the message as a cenotaph.
	FlagCenotaph = flagMask(FlagCenotaphBit)

	// knownFlagMask is the union of every bit the protocol assigns meaning to.
	knownFlagMask = new(big.Int).Or(new(big.Int).Or(FlagEtching, FlagTerms), new(big.Int).Or(FlagTurbo, FlagCenotaph))
)

// flagMask returns the single-bit mask for a flag bit position.
func flagMask(bit uint) *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), bit)
}

// HasFlag returns true if value carries every bit set in flag.
func HasFlag(value, flag *big.Int) bool {
	return new(big.Int).And(value, flag).Cmp(flag) == 0
}

// AddFlag returns a copy of value with flag's bits set.
func AddFlag(value, flag *big.Int) *big.Int {
	return new(big.Int).Or(value, flag)
}

// UnrecognizedFlags returns the bits of value outside the known flag set, or
// nil if none are set.
func UnrecognizedFlags(value *big.Int) *big.Int {
	leftover := new(big.Int).AndNot(value, knownFlagMask)
	if leftover.Sign() == 0 {
		return nil
	}

	return leftover
}
