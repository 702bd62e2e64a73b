// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes

import (
	"math"
	"math/big"
	"unicode/utf8"

	"github.com/max-tonny8/RuneStone-lib-Bitcoin/internal/option"
	"github.com/max-tonny8/RuneStone-lib-Bitcoin/internal/sequencereader"
)

// Runestone abstractly defines runestone fields.
type Runestone struct {
	Edicts  []Edict
	Etching option.Option[Etching]
	Mint    option.Option[RuneID]
	Pointer option.Option[uint32]
}

// Decode is the entry point of the protocol's message parser: given a
// transaction's output scripts and output count, it returns exactly one of
// a Runestone, a Cenotaph, or neither (Artifact.IsNone()).
//
// Decoding never fails outright. Every malformed-input case the protocol
// recognizes is folded into the cenotaph's flaw list instead of an error
// return, matching the rule that a transaction with a broken runestone is
// still a transaction the ledger must account for.
func Decode(scripts [][]byte, outputCount int) *Artifact {
	payload, found, payloadFlaws := findPayload(scripts)
	if !found {
		return &Artifact{}
	}
	if len(payloadFlaws) > 0 {
		return &Artifact{Cenotaph: &Cenotaph{Flaws: payloadFlaws}}
	}

	sequence, varintFlaws := payloadIntoIntSequence(payload)
	message, msgFlaws := parseMessage(sequencereader.New(sequence))

	flaws := append(append([]Flaw{}, varintFlaws...), msgFlaws...)

	runestone := &Runestone{}

	flagState, unrecognizedFlagFlaw := consumeFlags(message.Fields)
	if unrecognizedFlagFlaw {
		flaws = append(flaws, FlawUnrecognizedFlag)
	}

	etching, hasEtching := buildEtching(message.Fields, flagState.etching, flagState.terms)
	if hasEtching {
		etching.Turbo = flagState.turbo
		runestone.Etching = option.Some(etching)

		if _, err := etching.Supply(); err != nil {
			flaws = append(flaws, FlawSupplyOverflow)
		}
	}

	if ints, ok := message.Fields[TagMint]; ok && len(ints) == 2 && ints[0].IsUint64() && ints[1].IsUint64() && ints[1].Uint64() <= math.MaxUint32 {
		mint := RuneID{Block: ints[0].Uint64(), TxID: uint32(ints[1].Uint64())}
		if !mint.IsValid() {
			flaws = append(flaws, FlawEdictRuneID)
		} else {
			runestone.Mint = option.Some(mint)
		}
	}

	if ints, ok := message.Fields[TagPointer]; ok && len(ints) >= 1 && ints[0].IsUint64() {
		pointer := saturatingUint32(ints[0])
		if int(pointer) >= outputCount {
			flaws = append(flaws, FlawEdictOutput)
		} else {
			runestone.Pointer = option.Some(pointer)
		}
	}

	for _, edict := range message.Edicts {
		if int(edict.Output) > outputCount {
			flaws = append(flaws, FlawEdictOutput)
			continue
		}

		runestone.Edicts = append(runestone.Edicts, edict)
	}

	if flagState.cenotaph || len(flaws) > 0 {
		return &Artifact{Cenotaph: buildCenotaph(flaws, runestone)}
	}

	return &Artifact{Runestone: runestone}
}

// consumedFlags reports which flag bits were present on the message.
type consumedFlags struct {
	etching  bool
	terms    bool
	turbo    bool
	cenotaph bool
}

// consumeFlags reads and removes the Flags field, reporting whether it held
// a bit the protocol doesn't recognize.
func consumeFlags(fields map[Tag][]*big.Int) (flags consumedFlags, unrecognized bool) {
	vals, ok := fields[TagFlags]
	if !ok || len(vals) == 0 {
		return consumedFlags{}, false
	}

	value := vals[0]
	flags.etching = HasFlag(value, FlagEtching)
	flags.terms = HasFlag(value, FlagTerms)
	flags.turbo = HasFlag(value, FlagTurbo)
	flags.cenotaph = HasFlag(value, FlagCenotaph)
	unrecognized = UnrecognizedFlags(value) != nil

	delete(fields, TagFlags)

	return flags, unrecognized
}

// buildEtching assembles an Etching from the message's remaining fields.
// Fields are only attached to the result when the corresponding flag was
// set; values present without their flag are parsed (so they can still
// surface in diagnostics) but otherwise discarded.
func buildEtching(fields map[Tag][]*big.Int, etchingFlag, termsFlag bool) (Etching, bool) {
	if !etchingFlag {
		return Etching{}, false
	}

	var etching Etching

	if v, ok := singleValue(fields, TagDivisibility); ok && v.IsUint64() && v.Uint64() <= uint64(MaxDivisibility) {
		etching.Divisibility = option.Some(byte(v.Uint64()))
	}
	if v, ok := singleValue(fields, TagPremine); ok {
		etching.Premine = option.Some(v)
	}
	if v, ok := singleValue(fields, TagRune); ok {
		if rn, err := NewRuneFromNumber(v); err == nil {
			etching.Rune = option.Some(rn)
		}
	}
	if v, ok := singleValue(fields, TagSpacers); ok && v.IsUint64() && v.Uint64() <= uint64(MaxSpacers) {
		etching.Spacers = option.Some(uint32(v.Uint64()))
	}
	if v, ok := singleValue(fields, TagSymbol); ok && v.IsUint64() && v.Uint64() <= math.MaxUint32 {
		// big.Int.Int64 is documented undefined outside its range, and a
		// symbol tag is wire-unbounded — every code path into a rune must
		// go through a checked u32 first. Not every u32 is a valid Unicode
		// scalar value (surrogates, values past U+10FFFF); those are
		// dropped the same way other malformed optional fields are.
		if r := rune(v.Uint64()); utf8.ValidRune(r) {
			etching.Symbol = option.Some(r)
		}
	}

	if termsFlag {
		var terms Terms
		if v, ok := singleValue(fields, TagAmount); ok {
			terms.Amount = option.Some(v)
		}
		if v, ok := singleValue(fields, TagCap); ok {
			terms.Cap = option.Some(v)
		}
		if v, ok := singleValue(fields, TagHeightStart); ok && v.IsUint64() {
			terms.HeightStart = option.Some(v.Uint64())
		}
		if v, ok := singleValue(fields, TagHeightEnd); ok && v.IsUint64() {
			terms.HeightEnd = option.Some(v.Uint64())
		}
		if v, ok := singleValue(fields, TagOffsetStart); ok && v.IsUint64() {
			terms.OffsetStart = option.Some(v.Uint64())
		}
		if v, ok := singleValue(fields, TagOffsetEnd); ok && v.IsUint64() {
			terms.OffsetEnd = option.Some(v.Uint64())
		}

		etching.Terms = option.Some(terms)
	}

	return etching, true
}

// singleValue returns the first stored value for tag, if exactly one or
// more were provided; duplicate occurrences beyond the first are ignored.
func singleValue(fields map[Tag][]*big.Int, tag Tag) (*big.Int, bool) {
	vals, ok := fields[tag]
	if !ok || len(vals) == 0 {
		return nil, false
	}

	return vals[0], true
}

// buildCenotaph assembles a Cenotaph, preserving whatever of the rune name
// and mint target survived parsing.
func buildCenotaph(flaws []Flaw, runestone *Runestone) *Cenotaph {
	cenotaph := &Cenotaph{Flaws: flaws}

	if etching, ok := runestone.Etching.Get(); ok {
		if rn, ok := etching.Rune.Get(); ok {
			cenotaph.Etching = rn
		}
	}
	if mint, ok := runestone.Mint.Get(); ok {
		mintID := mint
		cenotaph.Mint = &mintID
	}

	return cenotaph
}

// Serialize returns Runestone as bytes array in canonical field order.
func (runestone *Runestone) Serialize() ([]byte, error) {
	message := Message{
		Edicts: runestone.Edicts,
		Fields: map[Tag][]*big.Int{},
	}

	flags := big.NewInt(0)
	if etching, ok := runestone.Etching.Get(); ok {
		if err := etching.Validate(); err != nil {
			return nil, err
		}

		flags = AddFlag(flags, FlagEtching)

		if v, ok := etching.Divisibility.Get(); ok {
			message.Fields[TagDivisibility] = []*big.Int{new(big.Int).SetUint64(uint64(v))}
		}
		if v, ok := etching.Premine.Get(); ok {
			message.Fields[TagPremine] = []*big.Int{v}
		}
		if v, ok := etching.Rune.Get(); ok {
			message.Fields[TagRune] = []*big.Int{v.Value()}
		}
		if v, ok := etching.Spacers.Get(); ok {
			message.Fields[TagSpacers] = []*big.Int{new(big.Int).SetUint64(uint64(v))}
		}
		if v, ok := etching.Symbol.Get(); ok {
			message.Fields[TagSymbol] = []*big.Int{big.NewInt(int64(v))}
		}

		if terms, ok := etching.Terms.Get(); ok {
			flags = AddFlag(flags, FlagTerms)

			if v, ok := terms.Cap.Get(); ok {
				message.Fields[TagCap] = []*big.Int{v}
			}
			if v, ok := terms.Amount.Get(); ok {
				message.Fields[TagAmount] = []*big.Int{v}
			}
			if v, ok := terms.HeightStart.Get(); ok {
				message.Fields[TagHeightStart] = []*big.Int{new(big.Int).SetUint64(v)}
			}
			if v, ok := terms.HeightEnd.Get(); ok {
				message.Fields[TagHeightEnd] = []*big.Int{new(big.Int).SetUint64(v)}
			}
			if v, ok := terms.OffsetStart.Get(); ok {
				message.Fields[TagOffsetStart] = []*big.Int{new(big.Int).SetUint64(v)}
			}
			if v, ok := terms.OffsetEnd.Get(); ok {
				message.Fields[TagOffsetEnd] = []*big.Int{new(big.Int).SetUint64(v)}
			}
		}

		if etching.Turbo {
			flags = AddFlag(flags, FlagTurbo)
		}

		message.Fields[TagFlags] = []*big.Int{flags}
	}

	if mint, ok := runestone.Mint.Get(); ok {
		message.Fields[TagMint] = mint.ToIntSeq()
	}

	if pointer, ok := runestone.Pointer.Get(); ok {
		message.Fields[TagPointer] = []*big.Int{new(big.Int).SetUint64(uint64(pointer))}
	}

	return intSequenceIntoPayload(message.ToIntSeq())
}

// IntoScript returns Runestone as an output script.
func (runestone *Runestone) IntoScript() ([]byte, error) {
	payload, err := runestone.Serialize()
	if err != nil {
		return nil, err
	}

	return intoScript(payload)
}

// Encode is the library's top-level encoder: it serializes runestone to its
// output script bytes and, if the runestone etches a user-named rune,
// returns the commitment bytes that must be revealed in the etching
// transaction's taproot witness. It refuses to encode anything but a valid
// Runestone — cenotaphs are a decode-only outcome (§9) and never round-trip
// back through an encoder.
func Encode(runestone *Runestone) (script []byte, commitment []byte, err error) {
	script, err = runestone.IntoScript()
	if err != nil {
		return nil, nil, err
	}

	if etching, ok := runestone.Etching.Get(); ok {
		if c, ok := etching.Commitment(); ok {
			commitment = c
		}
	}

	return script, commitment, nil
}
