// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/max-tonny8/RuneStone-lib-Bitcoin/internal/numbers"
)

func TestVarintRoundTrip(t *testing.T) {
	values := []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(127),
		big.NewInt(128),
		big.NewInt(300),
		new(big.Int).Set(numbers.MaxUInt128Value),
	}

	payload, err := intSequenceIntoPayload(values)
	require.NoError(t, err)

	decoded, flaws := payloadIntoIntSequence(payload)
	require.Empty(t, flaws)
	require.Len(t, decoded, len(values))
	for i, v := range values {
		require.Equal(t, v, decoded[i])
	}
}

func TestVarintTruncatedIsFlaw(t *testing.T) {
	payload, err := intSequenceIntoPayload([]*big.Int{big.NewInt(300)})
	require.NoError(t, err)

	// chop off the final byte, leaving a group with no terminator.
	truncated := payload[:len(payload)-1]

	_, flaws := payloadIntoIntSequence(truncated)
	require.Equal(t, []Flaw{FlawVarint}, flaws)
}
