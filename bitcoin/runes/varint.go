// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes

import (
	"bytes"
	"math/big"

	"github.com/aviate-labs/leb128"

	"github.com/max-tonny8/RuneStone-lib-Bitcoin/internal/numbers"
)

// maxVarintBytes bounds a single LEB128 group at 19 bytes: ceil(128/7).
const maxVarintBytes = 19

// payloadIntoIntSequence decodes a payload of concatenated LEB128 varints.
// Any premature end of the payload, or a decoded value too wide for the
// protocol's 128-bit integers, is reported as FlawVarint and stops decoding
// at that point; integers decoded so far are still returned.
func payloadIntoIntSequence(payload []byte) ([]*big.Int, []Flaw) {
	sequence := make([]*big.Int, 0)
	data := bytes.NewReader(payload)
	for data.Len() > 0 {
		start := data.Len()
		num, err := leb128.DecodeUnsigned(data)
		if err != nil {
			return sequence, []Flaw{FlawVarint}
		}

		if start-data.Len() > maxVarintBytes {
			return sequence, []Flaw{FlawVarint}
		}
		if numbers.IsGreater(num, numbers.MaxUInt128Value) {
			return sequence, []Flaw{FlawVarint}
		}

		sequence = append(sequence, num)
	}

	return sequence, nil
}

// intSequenceIntoPayload encodes an integer sequence into LEB128 payload bytes.
func intSequenceIntoPayload(sequence []*big.Int) ([]byte, error) {
	payload := make([]byte, 0)
	for _, num := range sequence {
		encoded, err := leb128.EncodeUnsigned(num)
		if err != nil {
			return nil, err
		}

		payload = append(payload, encoded...)
	}

	return payload, nil
}
