// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package ledger_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/max-tonny8/RuneStone-lib-Bitcoin/bitcoin/ledger"
	"github.com/max-tonny8/RuneStone-lib-Bitcoin/bitcoin/runes"
	"github.com/max-tonny8/RuneStone-lib-Bitcoin/internal/option"
)

func sumBalances(id runes.RuneID, outputs []ledger.UtxoBalance, burned ledger.UtxoBalance) *big.Int {
	total := big.NewInt(0)
	for _, out := range outputs {
		if v, ok := out[id]; ok {
			total.Add(total, v)
		}
	}
	if v, ok := burned[id]; ok {
		total.Add(total, v)
	}
	return total
}

func noLookup(runes.RuneID) (*ledger.RuneEntry, bool) { return nil, false }

func TestApplyNoArtifactPassesThrough(t *testing.T) {
	id := runes.NewRuneID(840100, 1)
	in := ledger.UtxoBalance{id: big.NewInt(10)}

	result := ledger.Apply(&runes.Artifact{}, 840200, 0, []ledger.UtxoBalance{in}, 2, nil, noLookup, nil)

	require.Equal(t, big.NewInt(10), result.Outputs[0][id])
	require.Empty(t, result.Outputs[1])
	require.Empty(t, result.Burned)
}

func TestApplyCenotaphBurnsEverything(t *testing.T) {
	id := runes.NewRuneID(840100, 1)
	in := ledger.UtxoBalance{id: big.NewInt(10)}

	artifact := &runes.Artifact{Cenotaph: &runes.Cenotaph{Flaws: []runes.Flaw{runes.FlawUnrecognizedFlag}}}
	result := ledger.Apply(artifact, 840200, 0, []ledger.UtxoBalance{in}, 2, nil, noLookup, nil)

	require.Equal(t, big.NewInt(10), result.Burned[id])
	require.Equal(t, sumBalances(id, result.Outputs, result.Burned), big.NewInt(10))
}

func TestApplyEdictSplitAcrossOutputsProRata(t *testing.T) {
	id := runes.NewRuneID(840100, 1)
	in := ledger.UtxoBalance{id: big.NewInt(10)}

	outputCount := 3
	rs := &runes.Runestone{
		Edicts: []runes.Edict{{RuneID: id, Amount: big.NewInt(10), Output: uint32(outputCount)}},
	}
	artifact := &runes.Artifact{Runestone: rs}

	result := ledger.Apply(artifact, 840200, 0, []ledger.UtxoBalance{in}, outputCount, nil, noLookup, nil)

	require.Equal(t, big.NewInt(4), result.Outputs[0][id])
	require.Equal(t, big.NewInt(3), result.Outputs[1][id])
	require.Equal(t, big.NewInt(3), result.Outputs[2][id])
	require.Equal(t, big.NewInt(10), sumBalances(id, result.Outputs, result.Burned))
}

func TestApplyEdictDirectOutputAndSweep(t *testing.T) {
	id := runes.NewRuneID(840100, 1)
	in := ledger.UtxoBalance{id: big.NewInt(10)}

	rs := &runes.Runestone{
		Edicts: []runes.Edict{{RuneID: id, Amount: big.NewInt(4), Output: 1}},
	}
	artifact := &runes.Artifact{Runestone: rs}

	result := ledger.Apply(artifact, 840200, 0, []ledger.UtxoBalance{in}, 2, nil, noLookup, nil)

	require.Equal(t, big.NewInt(4), result.Outputs[1][id])
	require.Equal(t, big.NewInt(6), result.Outputs[0][id])
	require.Equal(t, big.NewInt(10), sumBalances(id, result.Outputs, result.Burned))
}

func TestApplyEdictSweepToPointer(t *testing.T) {
	id := runes.NewRuneID(840100, 1)
	in := ledger.UtxoBalance{id: big.NewInt(10)}

	rs := &runes.Runestone{
		Edicts:  []runes.Edict{{RuneID: id, Amount: big.NewInt(4), Output: 0}},
		Pointer: option.Some(uint32(1)),
	}
	artifact := &runes.Artifact{Runestone: rs}

	result := ledger.Apply(artifact, 840200, 0, []ledger.UtxoBalance{in}, 2, nil, noLookup, nil)

	require.Equal(t, big.NewInt(4), result.Outputs[0][id])
	require.Equal(t, big.NewInt(6), result.Outputs[1][id])
}

func TestApplyEdictProRataSkipsOpReturnOutputs(t *testing.T) {
	id := runes.NewRuneID(840100, 1)
	in := ledger.UtxoBalance{id: big.NewInt(9)}

	outputCount := 3
	rs := &runes.Runestone{
		Edicts: []runes.Edict{{RuneID: id, Amount: big.NewInt(0), Output: uint32(outputCount)}},
	}
	artifact := &runes.Artifact{Runestone: rs}
	opReturn := []bool{true, false, false}

	result := ledger.Apply(artifact, 840200, 0, []ledger.UtxoBalance{in}, outputCount, opReturn, noLookup, nil)

	require.Empty(t, result.Outputs[0])
	require.Equal(t, big.NewInt(5), result.Outputs[1][id])
	require.Equal(t, big.NewInt(4), result.Outputs[2][id])
	require.Equal(t, big.NewInt(9), sumBalances(id, result.Outputs, result.Burned))
}

func TestApplyNoArtifactSkipsOpReturnOutput(t *testing.T) {
	id := runes.NewRuneID(840100, 1)
	in := ledger.UtxoBalance{id: big.NewInt(10)}
	opReturn := []bool{true, false}

	result := ledger.Apply(&runes.Artifact{}, 840200, 0, []ledger.UtxoBalance{in}, 2, opReturn, noLookup, nil)

	require.Empty(t, result.Outputs[0])
	require.Equal(t, big.NewInt(10), result.Outputs[1][id])
}

func TestApplyMintIncrementsAndRespectsCap(t *testing.T) {
	mintedID := runes.NewRuneID(840050, 2)
	entry := &ledger.RuneEntry{
		RuneID: mintedID,
		Mints:  big.NewInt(0),
		Terms: &runes.Terms{
			Amount: option.Some(big.NewInt(100)),
			Cap:    option.Some(big.NewInt(1)),
		},
	}

	lookup := func(id runes.RuneID) (*ledger.RuneEntry, bool) {
		if id == mintedID {
			return entry, true
		}
		return nil, false
	}

	rs := &runes.Runestone{Mint: option.Some(mintedID)}
	artifact := &runes.Artifact{Runestone: rs}

	result := ledger.Apply(artifact, 840200, 0, nil, 1, nil, lookup, nil)

	require.True(t, result.Minted)
	require.Equal(t, big.NewInt(100), result.MintAmount)
	require.Equal(t, big.NewInt(1), entry.Mints)
	require.Equal(t, big.NewInt(100), result.Outputs[0][mintedID])

	// Cap is now exhausted; a second mint in a later transaction must be refused.
	rs2 := &runes.Runestone{Mint: option.Some(mintedID)}
	artifact2 := &runes.Artifact{Runestone: rs2}
	result2 := ledger.Apply(artifact2, 840201, 0, nil, 1, nil, lookup, nil)

	require.False(t, result2.Minted)
	require.Equal(t, big.NewInt(1), entry.Mints)
}

func TestApplyCenotaphMintStillConsumesCap(t *testing.T) {
	mintedID := runes.NewRuneID(840050, 2)
	entry := &ledger.RuneEntry{
		RuneID: mintedID,
		Mints:  big.NewInt(0),
		Terms: &runes.Terms{
			Amount: option.Some(big.NewInt(100)),
			Cap:    option.Some(big.NewInt(1)),
		},
	}

	lookup := func(id runes.RuneID) (*ledger.RuneEntry, bool) {
		if id == mintedID {
			return entry, true
		}
		return nil, false
	}

	in := ledger.UtxoBalance{mintedID: big.NewInt(5)}
	artifact := &runes.Artifact{Cenotaph: &runes.Cenotaph{
		Flaws: []runes.Flaw{runes.FlawOpcode},
		Mint:  &mintedID,
	}}

	result := ledger.Apply(artifact, 840200, 0, []ledger.UtxoBalance{in}, 1, nil, lookup, nil)

	require.True(t, result.CenotaphMinted)
	require.Equal(t, mintedID, result.CenotaphMintedID)
	require.Equal(t, big.NewInt(1), entry.Mints)
	// No payout: the cenotaph burns the inputs, the mint slot is merely consumed.
	require.Equal(t, big.NewInt(5), result.Burned[mintedID])
	require.Empty(t, result.Outputs[0])
}

func TestApplyEtchingWithExplicitNameRequiresCommitment(t *testing.T) {
	rn, err := runes.NewRuneFromString("AAAAAAAAAAAAA")
	require.NoError(t, err)

	etching := runes.Etching{
		Rune:    option.Some(rn),
		Premine: option.Some(big.NewInt(1000)),
	}
	rs := &runes.Runestone{Etching: option.Some(etching)}
	artifact := &runes.Artifact{Runestone: rs}

	notCommitted := func(*runes.Rune) bool { return false }
	result := ledger.Apply(artifact, runes.ProtocolBlockStart, 0, nil, 1, nil, noLookup, notCommitted)
	require.Nil(t, result.NewEntry)

	committed := func(*runes.Rune) bool { return true }
	result = ledger.Apply(artifact, runes.ProtocolBlockStart, 0, nil, 1, nil, noLookup, committed)
	require.NotNil(t, result.NewEntry)
	require.Equal(t, big.NewInt(1000), result.Outputs[0][result.NewEntry.RuneID])
}

func TestApplyEdictZeroRuneIDTargetsSameTxEtching(t *testing.T) {
	etching := runes.Etching{Premine: option.Some(big.NewInt(1000))}
	rs := &runes.Runestone{
		Etching: option.Some(etching),
		Edicts:  []runes.Edict{{RuneID: runes.RuneID{}, Amount: big.NewInt(400), Output: 1}},
	}
	artifact := &runes.Artifact{Runestone: rs}

	result := ledger.Apply(artifact, runes.ProtocolBlockStart, 7, nil, 2, nil, noLookup, nil)

	require.NotNil(t, result.NewEntry)
	etchedID := result.NewEntry.RuneID
	require.NotEqual(t, runes.RuneID{}, etchedID)
	require.Equal(t, big.NewInt(400), result.Outputs[1][etchedID])
	require.Equal(t, big.NewInt(600), result.Outputs[0][etchedID])
	require.Empty(t, result.Outputs[0][runes.RuneID{}])
	require.Empty(t, result.Outputs[1][runes.RuneID{}])
}

func TestApplyEtchingWithoutNameUsesReservedName(t *testing.T) {
	etching := runes.Etching{Premine: option.Some(big.NewInt(1))}
	rs := &runes.Runestone{Etching: option.Some(etching)}
	artifact := &runes.Artifact{Runestone: rs}

	result := ledger.Apply(artifact, runes.ProtocolBlockStart, 7, nil, 1, nil, noLookup, nil)

	require.NotNil(t, result.NewEntry)
	require.Equal(t, runes.RuneReserve(runes.NewRuneID(runes.ProtocolBlockStart, 7)).String(), result.NewEntry.Rune.String())
}
