// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes

// Cenotaph is the result of decoding a malformed runestone message: every
// edict and every etching/terms field is discarded, but the would-be etched
// rune name and/or mint target are preserved for downstream reporting, since
// those are independently recoverable and useful in diagnostics.
type Cenotaph struct {
	Flaws   []Flaw
	Etching *Rune
	Mint    *RuneID
}

// HasFlaw returns true if the cenotaph carries the given flaw.
func (c *Cenotaph) HasFlaw(flaw Flaw) bool {
	for _, f := range c.Flaws {
		if f == flaw {
			return true
		}
	}

	return false
}

// Artifact is the three-way result of decoding a transaction's runestone
// output: exactly one of Runestone or Cenotaph is set, or neither if the
// transaction carries no runestone at all.
type Artifact struct {
	Runestone *Runestone
	Cenotaph  *Cenotaph
}

// IsNone returns true if the transaction carried no runestone.
func (a *Artifact) IsNone() bool {
	return a.Runestone == nil && a.Cenotaph == nil
}
