// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/max-tonny8/RuneStone-lib-Bitcoin/internal/numbers"
	"github.com/max-tonny8/RuneStone-lib-Bitcoin/internal/option"
)

// ErrDivisibilityTooLarge is returned by Validate when Divisibility exceeds
// MaxDivisibility.
var ErrDivisibilityTooLarge = errors.New("divisibility exceeds 38")

// ErrSpacersTooLarge is returned by Validate when Spacers carries a bit
// beyond MaxSpacers, the 27-bit mask of separator positions.
var ErrSpacersTooLarge = errors.New("spacers exceed the maximum mask")

// MaxDivisibility defines maximum divisibility for runes.
const MaxDivisibility byte = 38

// MaxSpacers defines max value for spacers.
const MaxSpacers uint32 = 0b00000111_11111111_11111111_11111111

// Etching defines values to create new rune.
type Etching struct {
	Divisibility option.Option[byte]
	Premine      option.Option[*big.Int]
	Rune         option.Option[*Rune]
	Spacers      option.Option[uint32]
	Symbol       option.Option[rune]
	Terms        option.Option[Terms]
	Turbo        bool
}

// Terms defines additional Etching parameters.
type Terms struct {
	Amount      option.Option[*big.Int]
	Cap         option.Option[*big.Int]
	HeightStart option.Option[uint64]
	HeightEnd   option.Option[uint64]
	OffsetStart option.Option[uint64]
	OffsetEnd   option.Option[uint64]
}

// Supply returns the etching's maximum total supply, premine plus
// amount*cap of its terms, or an error if premine and the capped mint
// schedule together would overflow uint128.
func (e *Etching) Supply() (*big.Int, error) {
	premine := numbers.ZeroBigInt
	if v, ok := e.Premine.Get(); ok {
		premine = v
	}

	terms, ok := e.Terms.Get()
	if !ok {
		return premine, nil
	}

	amount, hasAmount := terms.Amount.Get()
	cap_, hasCap := terms.Cap.Get()
	if !hasAmount || !hasCap {
		return premine, nil
	}

	minted, err := numbers.CheckedMulU128(amount, cap_)
	if err != nil {
		return nil, err
	}

	return numbers.CheckedAddU128(premine, minted)
}

// Commitment returns the etching commitment bytes that a taproot reveal
// witness must push to authorize this etching's rune name. An etching with
// no user-specified name (Rune unset) has no commitment to reveal: the rune
// is auto-assigned at application time instead, per §9's open question.
func (e *Etching) Commitment() ([]byte, bool) {
	rn, ok := e.Rune.Get()
	if !ok {
		return nil, false
	}

	return rn.Commitment(), true
}

// Validate reports the encoding-error taxonomy of §7: a caller constructing
// an Etching by hand, rather than receiving one from Decode, must pass this
// check before the etching is serialized. Supply overflow, an
// out-of-range divisibility, and an oversized spacer mask are all the
// caller's fault and refused outright rather than silently truncated.
func (e *Etching) Validate() error {
	if v, ok := e.Divisibility.Get(); ok && v > MaxDivisibility {
		return fmt.Errorf("%w: got %d", ErrDivisibilityTooLarge, v)
	}
	if v, ok := e.Spacers.Get(); ok && v > MaxSpacers {
		return fmt.Errorf("%w: got %#x", ErrSpacersTooLarge, v)
	}
	if _, err := e.Supply(); err != nil {
		return fmt.Errorf("etching supply: %w", err)
	}

	return nil
}
