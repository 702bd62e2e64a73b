// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/max-tonny8/RuneStone-lib-Bitcoin/bitcoin/runes"
)

func TestFlags(t *testing.T) {
	etchingAndTerms := new(big.Int).Or(runes.FlagEtching, runes.FlagTerms)
	etchingAndTurbo := new(big.Int).Or(runes.FlagEtching, runes.FlagTurbo)
	termsAndTurbo := new(big.Int).Or(runes.FlagTerms, runes.FlagTurbo)
	all := new(big.Int).Or(etchingAndTerms, etchingAndTurbo)
	none := big.NewInt(0)

	t.Run("Has", func(t *testing.T) {
		require.True(t, runes.HasFlag(etchingAndTerms, runes.FlagEtching))
		require.True(t, runes.HasFlag(etchingAndTerms, runes.FlagTerms))
		require.False(t, runes.HasFlag(etchingAndTerms, runes.FlagTurbo))

		require.True(t, runes.HasFlag(all, runes.FlagEtching))
		require.True(t, runes.HasFlag(all, runes.FlagTerms))
		require.True(t, runes.HasFlag(all, runes.FlagTurbo))

		require.False(t, runes.HasFlag(none, runes.FlagEtching))
	})

	t.Run("Add", func(t *testing.T) {
		fl := runes.AddFlag(new(big.Int).Set(none), none)
		require.False(t, runes.HasFlag(fl, runes.FlagEtching))

		fl = runes.AddFlag(fl, runes.FlagEtching)
		require.True(t, runes.HasFlag(fl, runes.FlagEtching))
		require.False(t, runes.HasFlag(fl, runes.FlagTurbo))

		fl = runes.AddFlag(fl, etchingAndTurbo)
		require.True(t, runes.HasFlag(fl, runes.FlagEtching))
		require.True(t, runes.HasFlag(fl, runes.FlagTurbo))
		require.False(t, runes.HasFlag(fl, runes.FlagTerms))
	})

	t.Run("UnrecognizedFlags", func(t *testing.T) {
		require.Nil(t, runes.UnrecognizedFlags(all))
		require.Nil(t, runes.UnrecognizedFlags(termsAndTurbo))

		withUnknownBit := runes.AddFlag(new(big.Int).Set(all), new(big.Int).Lsh(big.NewInt(1), 3))
		require.NotNil(t, runes.UnrecognizedFlags(withUnknownBit))
	})

	t.Run("Cenotaph bit position matches protocol", func(t *testing.T) {
		require.EqualValues(t, 7, runes.FlagCenotaphBit)
	})
}
