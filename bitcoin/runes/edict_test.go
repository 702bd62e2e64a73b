// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/max-tonny8/RuneStone-lib-Bitcoin/bitcoin/runes"
)

func TestEdictDeltaEncoding(t *testing.T) {
	edicts := []runes.Edict{
		{RuneID: runes.NewRuneID(10, 2), Amount: big.NewInt(5), Output: 0},
		{RuneID: runes.NewRuneID(10, 1), Amount: big.NewInt(7), Output: 1},
		{RuneID: runes.NewRuneID(20, 0), Amount: big.NewInt(3), Output: 2},
	}

	seq := runes.EdictsToIntSeq(append([]runes.Edict{}, edicts...))
	require.Len(t, seq, 12)

	// sorted ascending by RuneID puts (10,1) before (10,2) before (20,0).
	require.EqualValues(t, 10, seq[0].Uint64())
	require.EqualValues(t, 1, seq[1].Uint64())
	require.EqualValues(t, 7, seq[2].Uint64())
	require.EqualValues(t, 1, seq[3].Uint64())

	// delta from (10,1) to (10,2): block delta 0, tx delta 1.
	require.EqualValues(t, 0, seq[4].Uint64())
	require.EqualValues(t, 1, seq[5].Uint64())
	require.EqualValues(t, 5, seq[6].Uint64())
	require.EqualValues(t, 0, seq[7].Uint64())

	// delta from (10,2) to (20,0): block delta 10, tx is absolute (0).
	require.EqualValues(t, 10, seq[8].Uint64())
	require.EqualValues(t, 0, seq[9].Uint64())
	require.EqualValues(t, 3, seq[10].Uint64())
	require.EqualValues(t, 2, seq[11].Uint64())
}

func TestRuneIDNext(t *testing.T) {
	base := runes.NewRuneID(100, 5)

	t.Run("same block, tx delta", func(t *testing.T) {
		next, ok := base.Next(runes.RuneID{Block: 0, TxID: 3})
		require.True(t, ok)
		require.Equal(t, runes.NewRuneID(100, 8), next)
	})

	t.Run("new block, absolute tx", func(t *testing.T) {
		next, ok := base.Next(runes.RuneID{Block: 5, TxID: 2})
		require.True(t, ok)
		require.Equal(t, runes.NewRuneID(105, 2), next)
	})
}

func TestRuneIDValidity(t *testing.T) {
	require.True(t, runes.NewRuneID(0, 0).IsValid())
	require.True(t, runes.NewRuneID(5, 0).IsValid())
	require.False(t, runes.NewRuneID(0, 1).IsValid())
}
