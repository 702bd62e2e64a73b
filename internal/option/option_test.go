// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package option_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/max-tonny8/RuneStone-lib-Bitcoin/internal/option"
)

func TestOption(t *testing.T) {
	t.Run("Some/None", func(t *testing.T) {
		some := option.Some(5)
		require.True(t, some.IsSome())
		require.False(t, some.IsNone())
		require.Equal(t, 5, some.Unwrap())

		none := option.None[int]()
		require.False(t, none.IsSome())
		require.True(t, none.IsNone())
		require.Equal(t, 7, none.UnwrapOr(7))
	})

	t.Run("Get", func(t *testing.T) {
		value, ok := option.Some("x").Get()
		require.True(t, ok)
		require.Equal(t, "x", value)

		value, ok = option.None[string]().Get()
		require.False(t, ok)
		require.Equal(t, "", value)
	})

	t.Run("Unwrap panics on None", func(t *testing.T) {
		require.Panics(t, func() {
			option.None[int]().Unwrap()
		})
	})

	t.Run("Map", func(t *testing.T) {
		doubled := option.Map(option.Some(3), func(v int) int { return v * 2 })
		require.Equal(t, 6, doubled.Unwrap())

		mappedNone := option.Map(option.None[int](), func(v int) int { return v * 2 })
		require.True(t, mappedNone.IsNone())
	})
}
