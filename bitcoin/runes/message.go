// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes

import (
	"math/big"
	"slices"

	"github.com/max-tonny8/RuneStone-lib-Bitcoin/internal/sequencereader"
)

// fieldType defines helping struct for ordering map.
type fieldType struct {
	Tag  Tag
	Nums []*big.Int
}

// Message defines helping struct for serialising and deserializing Runestone.
type Message struct {
	Edicts []Edict
	Fields map[Tag][]*big.Int
}

// parseMessage parses a Message off an integer sequence. It never fails
// outright: malformed input is folded into the returned flaw list so the
// caller can still recover whatever partial structure survived.
func parseMessage(sr *sequencereader.SequenceReader[*big.Int]) (*Message, []Flaw) {
	message := &Message{
		Fields: make(map[Tag][]*big.Int),
	}

	var flaws []Flaw
	for sr.HasNext() {
		tagBigInt, _ := sr.Next() // skip error, loop condition already checked.

		if tagBigInt.Sign() == 0 {
			edicts, edictFlaws := parseEdictsFromIntSeq(sr)
			message.Edicts = edicts
			flaws = append(flaws, edictFlaws...)
			break
		}

		// Every tag number the protocol assigns meaning to fits in a byte
		// (the recognized set tops out at 127); a larger tag value can
		// never match one, but must still be classified even/odd on its
		// actual (unbounded) value, not on a truncated one — aliasing,
		// say, 256 onto tag 0 or 260 onto tag 4 would silently corrupt
		// unrelated fields.
		var tag Tag
		recognized := false
		if tagBigInt.IsUint64() && tagBigInt.Uint64() <= 255 {
			tag = Tag(tagBigInt.Uint64())
			recognized = tag.IsRecognized()
		}

		if !recognized && tagBigInt.Bit(0) == 0 {
			flaws = append(flaws, FlawUnrecognizedEvenTag)
		}

		value, err := sr.Next()
		if err != nil {
			flaws = append(flaws, FlawTruncatedField)
			break
		}

		if recognized {
			message.Fields[tag] = append(message.Fields[tag], value)
		}
	}

	if len(message.Fields) == 0 {
		message.Fields = nil
	}

	return message, flaws
}

// ToIntSeq returns Message as sequence on integers.
func (message *Message) ToIntSeq() []*big.Int {
	ordered := make([]fieldType, 0, len(message.Fields))
	for tag, ints := range message.Fields {
		ordered = append(ordered, fieldType{tag, ints})
	}

	// sort ordered for immutability.
	slices.SortFunc(ordered, func(a, b fieldType) int {
		return int(a.Tag) - int(b.Tag)
	})

	// capacity hint: 2 ints per field key/value + 4 ints per edict; the
	// slice grows for list-valued fields (e.g. mint) and the body tag.
	sequence := make([]*big.Int, 0, len(message.Fields)*2+len(message.Edicts)*4)
	for _, field := range ordered {
		for _, val := range field.Nums {
			sequence = append(sequence, field.Tag.BigInt(), val)
		}
	}

	if message.Edicts != nil {
		sequence = append(sequence, TagBody.BigInt())
		sequence = append(sequence, EdictsToIntSeq(message.Edicts)...)
	}

	return sequence
}
