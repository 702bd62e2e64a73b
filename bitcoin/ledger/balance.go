// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package ledger

import (
	"math/big"

	"github.com/max-tonny8/RuneStone-lib-Bitcoin/bitcoin/runes"
)

// UtxoBalance is the set of rune balances carried by a single unspent
// transaction output.
type UtxoBalance map[runes.RuneID]*big.Int

// Add credits amount of runeID to the balance, creating the entry if absent.
func (b UtxoBalance) Add(runeID runes.RuneID, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}

	if existing, ok := b[runeID]; ok {
		existing.Add(existing, amount)
		return
	}

	b[runeID] = new(big.Int).Set(amount)
}

// Take debits up to amount of runeID from the balance, returning how much
// was actually available. The entry is deleted if it drops to zero.
func (b UtxoBalance) Take(runeID runes.RuneID, amount *big.Int) *big.Int {
	existing, ok := b[runeID]
	if !ok {
		return big.NewInt(0)
	}

	taken := new(big.Int).Set(amount)
	if existing.Cmp(amount) < 0 {
		taken.Set(existing)
	}

	existing.Sub(existing, taken)
	if existing.Sign() == 0 {
		delete(b, runeID)
	}

	return taken
}

// Clone returns a deep copy of the balance set.
func (b UtxoBalance) Clone() UtxoBalance {
	out := make(UtxoBalance, len(b))
	for id, amount := range b {
		out[id] = new(big.Int).Set(amount)
	}

	return out
}

// Merge folds other's balances into b.
func (b UtxoBalance) Merge(other UtxoBalance) {
	for id, amount := range other {
		b.Add(id, amount)
	}
}
