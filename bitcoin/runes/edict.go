// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes

import (
	"math"
	"math/big"
	"slices"

	"github.com/max-tonny8/RuneStone-lib-Bitcoin/internal/sequencereader"
)

// saturatingUint32 converts v to a uint32, clamping to math.MaxUint32
// instead of wrapping when v does not fit. A wire value too large for the
// field it decodes into (edict output, pointer, mint tx index) must never
// silently alias a small in-range value — every real transaction has far
// fewer than 2^32 outputs, so clamping guarantees any subsequent
// output-count bound check still rejects it.
func saturatingUint32(v *big.Int) uint32 {
	if !v.IsUint64() || v.Uint64() > math.MaxUint32 {
		return math.MaxUint32
	}

	return uint32(v.Uint64())
}

// Edict defines transfer values of the rune protocol.
type Edict struct {
	RuneID RuneID
	Amount *big.Int
	Output uint32
}

// parseEdictsFromIntSeq parses edicts from the body integer sequence.
// A length not divisible by four is FlawTrailingIntegers. A delta that
// decodes to an invalid or overflowed RuneID is FlawEdictRuneID on that one
// edict only; parsing continues for the rest.
func parseEdictsFromIntSeq(sr *sequencereader.SequenceReader[*big.Int]) ([]Edict, []Flaw) {
	if sr.Len()%4 != 0 {
		return nil, []Flaw{FlawTrailingIntegers}
	}

	var flaws []Flaw
	var prevRuneID RuneID
	edicts := make([]Edict, 0, sr.Len()/4)
	for sr.HasNext() {
		// skip errors: length already verified to be a multiple of four.
		block, _ := sr.Next()
		tx, _ := sr.Next()
		amount, _ := sr.Next()
		output, _ := sr.Next()

		if !block.IsUint64() || !tx.IsUint64() || tx.Uint64() > uint64(^uint32(0)) {
			flaws = append(flaws, FlawEdictRuneID)
			continue
		}

		next, ok := prevRuneID.Next(RuneID{Block: block.Uint64(), TxID: uint32(tx.Uint64())})
		if !ok || !next.IsValid() {
			flaws = append(flaws, FlawEdictRuneID)
			continue
		}

		edicts = append(edicts, Edict{
			RuneID: next,
			Amount: amount,
			Output: saturatingUint32(output),
		})
		prevRuneID.Set(next)
	}

	return edicts, flaws
}

// ToIntSeq returns Edict as sequence on integers.
func (edict *Edict) ToIntSeq() []*big.Int {
	return append(edict.RuneID.ToIntSeq(), new(big.Int).Set(edict.Amount), new(big.Int).SetUint64(uint64(edict.Output)))
}

// SortEdicts sorts edicts by block number and transaction id.
func SortEdicts(edicts []Edict) {
	slices.SortFunc(edicts, func(a, b Edict) int {
		return a.RuneID.Compare(b.RuneID)
	})
}

// UseDelta converts a sorted list of Edicts into delta encoding, relative to
// the previous edict's id.
func UseDelta(sortedEdicts []Edict) []Edict {
	var (
		deltaEdicts   = make([]Edict, len(sortedEdicts))
		previousBlock uint64
		previousTx    uint32
		blockDelta    uint64
		txDelta       uint32
	)

	for idx, edict := range sortedEdicts {
		blockDelta = edict.RuneID.Block - previousBlock
		if blockDelta == 0 {
			txDelta = edict.RuneID.TxID - previousTx
		} else {
			txDelta = edict.RuneID.TxID
		}

		deltaEdicts[idx] = Edict{
			RuneID: RuneID{Block: blockDelta, TxID: txDelta},
			Amount: edict.Amount,
			Output: edict.Output,
		}

		previousBlock = edict.RuneID.Block
		previousTx = edict.RuneID.TxID
	}

	return deltaEdicts
}

// EdictsToIntSeq converts a list of Edicts, in canonical ascending order,
// into its delta-encoded integer sequence.
func EdictsToIntSeq(edicts []Edict) []*big.Int {
	sequence := make([]*big.Int, 0, len(edicts)*4)
	SortEdicts(edicts)
	for _, edict := range UseDelta(edicts) {
		sequence = append(sequence, edict.ToIntSeq()...)
	}

	return sequence
}
