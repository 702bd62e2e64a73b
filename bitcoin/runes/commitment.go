// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes

import (
	"bytes"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// CommitmentMaturity is the number of blocks a commitment input must have
// aged before the etching it authorizes can take effect. This keeps an
// attacker from etching, observing the mempool for a competing name, and
// resubmitting within the same block.
const CommitmentMaturity = 6

// controlBlockBaseLen is a taproot control block's fixed-size prefix: one
// leaf version/parity byte followed by the 32-byte internal key.
const controlBlockBaseLen = 33

// HeightLookup resolves the confirmation height of the output an input
// spends, given that input's index within the transaction.
type HeightLookup func(inputIndex int) (height uint64, ok bool)

// VerifyCommitment reports whether tx commits to rn: at least one input
// must reveal, via a taproot script-path spend, a witness script containing
// rn's name value as a data push, and the spent output must have matured
// for at least CommitmentMaturity blocks by currentHeight.
func VerifyCommitment(tx *wire.MsgTx, rn *Rune, currentHeight uint64, lookup HeightLookup) bool {
	name := rn.Commitment()

	for i, in := range tx.TxIn {
		script, ok := revealedScript(in.Witness)
		if !ok || !scriptContainsPush(script, name) {
			continue
		}

		height, ok := lookup(i)
		if !ok || currentHeight < height+CommitmentMaturity {
			continue
		}

		return true
	}

	return false
}

// revealedScript extracts the leaf script from a taproot script-path spend
// witness stack: [...stack elements..., script, control block]. The control
// block's internal key is parsed to reject malformed witnesses outright.
func revealedScript(witness wire.TxWitness) ([]byte, bool) {
	if len(witness) < 2 {
		return nil, false
	}

	control := witness[len(witness)-1]
	if len(control) < controlBlockBaseLen {
		return nil, false
	}
	if _, err := schnorr.ParsePubKey(control[1:controlBlockBaseLen]); err != nil {
		return nil, false
	}

	return witness[len(witness)-2], true
}

// scriptContainsPush returns true if script contains a data push whose
// bytes equal needle.
func scriptContainsPush(script, needle []byte) bool {
	tokenizer := txscript.MakeScriptTokenizer(0, script)
	for tokenizer.Next() {
		if bytes.Equal(tokenizer.Data(), needle) {
			return true
		}
	}

	return false
}
