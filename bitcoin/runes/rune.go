// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/max-tonny8/RuneStone-lib-Bitcoin/internal/numbers"
	"github.com/max-tonny8/RuneStone-lib-Bitcoin/internal/option"
	"github.com/max-tonny8/RuneStone-lib-Bitcoin/internal/reverse"
)

// ErrInvalidRuneSymbol is returned by NewRuneFromString when the name
// contains a character outside A-Z.
var ErrInvalidRuneSymbol = errors.New("invalid symbol in the rune")

// ErrRuneOverflow is returned when a rune's numeric value does not fit
// uint128.
var ErrRuneOverflow = errors.New("value overflows uint128")

// ErrReservedRuneName is returned when a rune's numeric value falls at or
// beyond the first reserved (auto-assigned) name.
var ErrReservedRuneName = errors.New("reserved name")

// DefaultSpacer defines default spacer for Rune name.
const DefaultSpacer = '•'

const (
	// ProtocolBlockStart defines the block when protocol was launched.
	ProtocolBlockStart uint64 = 840_000
	// UnlockNamePeriod defines interval in blocks to unlock shorter name.
	UnlockNamePeriod uint64 = 17_500

	// StartNameLength defines minimum name length on the ProtocolBlockStart.
	StartNameLength = 13
)

// base26 defines 26 as *big.Int.
var base26 = big.NewInt(26)

// FirstReservedRuneNameInt defines FirstReservedRuneName as number.
var FirstReservedRuneNameInt, _ = new(big.Int).SetString("6402364363415443603228541259936211926", 10)

// FirstReservedRuneName defines first reserved rune name AAAAAAAAAAAAAAAAAAAAAAAAAAA.
var FirstReservedRuneName = RuneReserve(RuneID{Block: 0, TxID: 0})

// intToChar defines conversion rules from integers to chars.
var intToChar = map[int64]byte{
	0: 'A', 1: 'B', 2: 'C', 3: 'D', 4: 'E', 5: 'F', 6: 'G', 7: 'H', 8: 'I', 9: 'J',
	10: 'K', 11: 'L', 12: 'M', 13: 'N', 14: 'O', 15: 'P', 16: 'Q', 17: 'R', 18: 'S', 19: 'T',
	20: 'U', 21: 'V', 22: 'W', 23: 'X', 24: 'Y', 25: 'Z',
}

// Rune defines rune names and encodes as modified base-26 integers.
type Rune struct {
	value *big.Int
}

// NewRuneFromString creates new Rune from string name.
// NOTE: Valid symbols are A-Z only.
func NewRuneFromString(runeStr string) (*Rune, error) {
	var value = big.NewInt(0)
	for i, c := range runeStr {
		if i > 0 {
			value.Add(value, numbers.OneBigInt)
		}
		value = value.Mul(value, base26)
		if c < 'A' || c > 'Z' {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRuneSymbol, c)
		}
		value = value.Add(value, big.NewInt(int64(c)-'A'))
	}

	if numbers.IsGreater(value, numbers.MaxUInt128Value) {
		return nil, ErrRuneOverflow
	}
	if !numbers.IsLess(value, FirstReservedRuneNameInt) {
		return nil, ErrReservedRuneName
	}

	return &Rune{value: value}, nil
}

// NewRuneFromStringWithSpacer creates new Rune from string name with spacers
// scanned. spacer defaults to DefaultSpacer when absent.
func NewRuneFromStringWithSpacer(runeStr string, spacer option.Option[rune]) (*Rune, uint32, error) {
	s := spacer.UnwrapOr(DefaultSpacer)

	var (
		spacers uint32
		idx     uint
	)
	for _, char := range runeStr {
		if char == s {
			spacers |= 1 << (idx - 1)
		} else {
			idx++
		}
	}

	runeStr = strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r
		}

		return -1
	}, runeStr)
	rune_, err := NewRuneFromString(runeStr)
	if err != nil {
		return nil, 0, err
	}

	return rune_, spacers, nil
}

// NewRuneFromNumber creates new Rune from number.
func NewRuneFromNumber(number *big.Int) (*Rune, error) {
	if numbers.IsGreater(number, numbers.MaxUInt128Value) || number.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s", ErrRuneOverflow, number)
	}
	if !numbers.IsLess(number, FirstReservedRuneNameInt) {
		return nil, ErrReservedRuneName
	}

	return &Rune{value: number}, nil
}

// Value returns Rune name as number.
func (r *Rune) Value() *big.Int {
	return r.value
}

// String returns Rune name as string.
func (r *Rune) String() string {
	var value = new(big.Int).Set(r.value)
	if numbers.IsEqual(value, numbers.MaxUInt128Value) {
		return "BCGDENLQRQWDSLRUGSNLBTMFIJAV"
	}

	value = value.Add(value, numbers.OneBigInt)
	var symbol string
	for value.Sign() > 0 {
		valueSubOne := new(big.Int).Sub(value, numbers.OneBigInt)
		idx := new(big.Int).Mod(valueSubOne, base26)

		symbol = string(intToChar[idx.Int64()]) + symbol

		value = valueSubOne.Div(valueSubOne, base26)
	}

	return symbol
}

// StringWithSeparator returns Rune name as string with the given spacer
// bitmask applied. spacer defaults to DefaultSpacer when absent.
func (r *Rune) StringWithSeparator(spacers uint32, spacer option.Option[rune]) string {
	rune_ := r.String()

	s := string(spacer.UnwrapOr(DefaultSpacer))

	symbol := ""
	for idx, char := range rune_ {
		symbol += string(char)

		if idx < len(rune_)-1 && spacers&(1<<idx) != 0 {
			symbol += s
		}
	}

	return symbol
}

// Commitment returns the rune's value serialized little-endian with
// trailing (most-significant) zero bytes trimmed, per §4.G: this is the
// exact byte string an etching transaction's taproot reveal witness must
// push to authorize etching this name. Rune zero's commitment is the empty
// byte string.
func (r *Rune) Commitment() []byte {
	return reverse.Bytes(r.value.Bytes())
}

// RuneReserve returns allocated rune name in case it was omitted in etching.
func RuneReserve(runeID RuneID) *Rune {
	reservedName := new(big.Int).Add(FirstReservedRuneNameInt, new(big.Int).Or(
		new(big.Int).Lsh(new(big.Int).SetUint64(runeID.Block), 32),
		new(big.Int).SetUint64(uint64(runeID.TxID))))

	return &Rune{value: reservedName}
}

// MinNameLength returns unlocked rune name length depending on block.
func MinNameLength(currentBlock uint64) int {
	if currentBlock < ProtocolBlockStart {
		return StartNameLength
	}

	for i := uint64(1); i < StartNameLength; i++ {
		if ProtocolBlockStart+UnlockNamePeriod*(i-1) <= currentBlock && currentBlock < ProtocolBlockStart+UnlockNamePeriod*i {
			return StartNameLength - int(i) + 1
		}
	}

	return 0
}
