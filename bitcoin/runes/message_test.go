// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/max-tonny8/RuneStone-lib-Bitcoin/internal/sequencereader"
)

func TestParseMessageFields(t *testing.T) {
	seq := []*big.Int{
		TagDivisibility.BigInt(), big.NewInt(2),
		TagPremine.BigInt(), big.NewInt(1000),
	}

	message, flaws := parseMessage(sequencereader.New(seq))
	require.Empty(t, flaws)
	require.Len(t, message.Fields, 2)
	require.Equal(t, []*big.Int{big.NewInt(2)}, message.Fields[TagDivisibility])
}

func TestParseMessageTruncatedField(t *testing.T) {
	seq := []*big.Int{TagDivisibility.BigInt()}

	_, flaws := parseMessage(sequencereader.New(seq))
	require.Equal(t, []Flaw{FlawTruncatedField}, flaws)
}

func TestParseMessageUnrecognizedEvenTag(t *testing.T) {
	seq := []*big.Int{big.NewInt(200), big.NewInt(1)}

	_, flaws := parseMessage(sequencereader.New(seq))
	require.Equal(t, []Flaw{FlawUnrecognizedEvenTag}, flaws)
}

func TestParseMessageUnrecognizedOddTagIgnored(t *testing.T) {
	seq := []*big.Int{big.NewInt(201), big.NewInt(1)}

	_, flaws := parseMessage(sequencereader.New(seq))
	require.Empty(t, flaws)
}

func TestParseMessageLargeTagDoesNotAliasKnownTag(t *testing.T) {
	// 256 mod 256 == 0 (TagBody) and 260 mod 256 == 4 (TagRune): a decoder
	// that truncated the tag to a byte before comparing would either stop
	// parsing early or misfile this value under TagRune. Neither tag is
	// recognized at its true (unbounded) value, so both should surface as
	// unrecognized even tags and their value must never land in Fields.
	seq := []*big.Int{
		big.NewInt(256), big.NewInt(111),
		big.NewInt(260), big.NewInt(222),
		TagBody.BigInt(),
	}

	message, flaws := parseMessage(sequencereader.New(seq))
	require.Equal(t, []Flaw{FlawUnrecognizedEvenTag, FlawUnrecognizedEvenTag}, flaws)
	require.Empty(t, message.Fields[TagRune])
	require.Empty(t, message.Edicts)
}

func TestParseMessageLargeOddTagIgnored(t *testing.T) {
	// 261 mod 256 == 5 (TagSymbol): must not alias either.
	seq := []*big.Int{big.NewInt(261), big.NewInt(1), TagBody.BigInt()}

	message, flaws := parseMessage(sequencereader.New(seq))
	require.Empty(t, flaws)
	require.Empty(t, message.Fields[TagSymbol])
}

func TestParseMessageTrailingIntegers(t *testing.T) {
	seq := []*big.Int{
		TagBody.BigInt(),
		big.NewInt(0), big.NewInt(0), big.NewInt(5),
	}

	_, flaws := parseMessage(sequencereader.New(seq))
	require.Equal(t, []Flaw{FlawTrailingIntegers}, flaws)
}
