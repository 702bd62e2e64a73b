// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math/big"

	"github.com/max-tonny8/RuneStone-lib-Bitcoin/bitcoin/ledger"
	"github.com/max-tonny8/RuneStone-lib-Bitcoin/bitcoin/runes"
	"github.com/max-tonny8/RuneStone-lib-Bitcoin/internal/option"
)

// writeBigInt writes v as a length-prefixed big-endian byte string.
func writeBigInt(buf *bytes.Buffer, v *big.Int) {
	b := v.Bytes()
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(b)))
	buf.Write(length[:])
	buf.Write(b)
}

func readBigInt(r *bytes.Reader) (*big.Int, error) {
	var length [4]byte
	if _, err := io.ReadFull(r, length[:]); err != nil {
		return nil, fmt.Errorf("storage: read bigint length: %w", err)
	}

	n := binary.BigEndian.Uint32(length[:])
	b := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, fmt.Errorf("storage: read bigint value: %w", err)
		}
	}

	return new(big.Int).SetBytes(b), nil
}

func writeUint64Option(buf *bytes.Buffer, v option.Option[uint64]) {
	value, ok := v.Get()
	if !ok {
		buf.WriteByte(0)
		return
	}

	buf.WriteByte(1)
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], value)
	buf.Write(b[:])
}

func readUint64Option(r *bytes.Reader) (option.Option[uint64], error) {
	present, err := r.ReadByte()
	if err != nil {
		return option.None[uint64](), fmt.Errorf("storage: read uint64 option flag: %w", err)
	}
	if present == 0 {
		return option.None[uint64](), nil
	}

	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return option.None[uint64](), fmt.Errorf("storage: read uint64 option value: %w", err)
	}

	return option.Some(binary.BigEndian.Uint64(b[:])), nil
}

func writeBigIntOption(buf *bytes.Buffer, v option.Option[*big.Int]) {
	value, ok := v.Get()
	if !ok {
		buf.WriteByte(0)
		return
	}

	buf.WriteByte(1)
	writeBigInt(buf, value)
}

func readBigIntOption(r *bytes.Reader) (option.Option[*big.Int], error) {
	present, err := r.ReadByte()
	if err != nil {
		return option.None[*big.Int](), fmt.Errorf("storage: read bigint option flag: %w", err)
	}
	if present == 0 {
		return option.None[*big.Int](), nil
	}

	value, err := readBigInt(r)
	if err != nil {
		return option.None[*big.Int](), err
	}

	return option.Some(value), nil
}

// EncodeRuneEntry serializes a RuneEntry for storage under r/<runeid>.
func EncodeRuneEntry(entry *ledger.RuneEntry) []byte {
	var buf bytes.Buffer

	var idBytes [12]byte
	binary.BigEndian.PutUint64(idBytes[0:8], entry.RuneID.Block)
	binary.BigEndian.PutUint32(idBytes[8:], entry.RuneID.TxID)
	buf.Write(idBytes[:])

	writeBigInt(&buf, entry.Rune.Value())

	var fixed [5]byte
	binary.BigEndian.PutUint32(fixed[0:4], entry.Spacers)
	fixed[4] = entry.Divisibility
	buf.Write(fixed[:])

	writeBigInt(&buf, entry.Premine)

	var symbol [4]byte
	binary.BigEndian.PutUint32(symbol[:], uint32(entry.Symbol))
	buf.Write(symbol[:])

	if entry.Turbo {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	writeBigInt(&buf, entry.Mints)
	writeBigInt(&buf, entry.Burned)

	var heights [12]byte
	binary.BigEndian.PutUint64(heights[0:8], entry.EtchingHeight)
	binary.BigEndian.PutUint32(heights[8:], entry.EtchingTxIndex)
	buf.Write(heights[:])

	if entry.Terms == nil {
		buf.WriteByte(0)
	} else {
		buf.WriteByte(1)
		writeBigIntOption(&buf, entry.Terms.Amount)
		writeBigIntOption(&buf, entry.Terms.Cap)
		writeUint64Option(&buf, entry.Terms.HeightStart)
		writeUint64Option(&buf, entry.Terms.HeightEnd)
		writeUint64Option(&buf, entry.Terms.OffsetStart)
		writeUint64Option(&buf, entry.Terms.OffsetEnd)
	}

	return buf.Bytes()
}

// DecodeRuneEntry deserializes a RuneEntry previously written by
// EncodeRuneEntry.
func DecodeRuneEntry(data []byte) (*ledger.RuneEntry, error) {
	r := bytes.NewReader(data)

	var idBytes [12]byte
	if _, err := io.ReadFull(r, idBytes[:]); err != nil {
		return nil, fmt.Errorf("storage: decode rune id: %w", err)
	}
	id := runes.RuneID{
		Block: binary.BigEndian.Uint64(idBytes[0:8]),
		TxID:  binary.BigEndian.Uint32(idBytes[8:]),
	}

	value, err := readBigInt(r)
	if err != nil {
		return nil, fmt.Errorf("storage: decode rune name: %w", err)
	}
	var rn *runes.Rune
	if value.Cmp(runes.FirstReservedRuneNameInt) >= 0 {
		// Names at or above the first reserved name are the ones RuneReserve
		// assigns to unnamed etchings; NewRuneFromNumber rejects them, so they
		// are rebuilt from their offset (block<<32 | tx).
		offset := new(big.Int).Sub(value, runes.FirstReservedRuneNameInt)
		if offset.BitLen() > 96 {
			return nil, fmt.Errorf("storage: decode rune name: %w", runes.ErrReservedRuneName)
		}
		rn = runes.RuneReserve(runes.RuneID{
			Block: new(big.Int).Rsh(offset, 32).Uint64(),
			TxID:  uint32(new(big.Int).And(offset, big.NewInt(0xffffffff)).Uint64()),
		})
	} else if rn, err = runes.NewRuneFromNumber(value); err != nil {
		return nil, fmt.Errorf("storage: decode rune name: %w", err)
	}

	var fixed [5]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, fmt.Errorf("storage: decode fixed fields: %w", err)
	}

	premine, err := readBigInt(r)
	if err != nil {
		return nil, fmt.Errorf("storage: decode premine: %w", err)
	}

	var symbol [4]byte
	if _, err := io.ReadFull(r, symbol[:]); err != nil {
		return nil, fmt.Errorf("storage: decode symbol: %w", err)
	}

	turbo, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("storage: decode turbo: %w", err)
	}

	mints, err := readBigInt(r)
	if err != nil {
		return nil, fmt.Errorf("storage: decode mints: %w", err)
	}

	burned, err := readBigInt(r)
	if err != nil {
		return nil, fmt.Errorf("storage: decode burned: %w", err)
	}

	var heights [12]byte
	if _, err := io.ReadFull(r, heights[:]); err != nil {
		return nil, fmt.Errorf("storage: decode etching height: %w", err)
	}

	entry := &ledger.RuneEntry{
		RuneID:         id,
		Rune:           rn,
		Spacers:        binary.BigEndian.Uint32(fixed[0:4]),
		Divisibility:   fixed[4],
		Premine:        premine,
		Symbol:         rune(binary.BigEndian.Uint32(symbol[:])),
		Turbo:          turbo == 1,
		Mints:          mints,
		Burned:         burned,
		EtchingHeight:  binary.BigEndian.Uint64(heights[0:8]),
		EtchingTxIndex: binary.BigEndian.Uint32(heights[8:]),
	}

	hasTerms, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("storage: decode terms flag: %w", err)
	}
	if hasTerms == 1 {
		var terms runes.Terms

		if terms.Amount, err = readBigIntOption(r); err != nil {
			return nil, err
		}
		if terms.Cap, err = readBigIntOption(r); err != nil {
			return nil, err
		}
		if terms.HeightStart, err = readUint64Option(r); err != nil {
			return nil, err
		}
		if terms.HeightEnd, err = readUint64Option(r); err != nil {
			return nil, err
		}
		if terms.OffsetStart, err = readUint64Option(r); err != nil {
			return nil, err
		}
		if terms.OffsetEnd, err = readUint64Option(r); err != nil {
			return nil, err
		}

		entry.Terms = &terms
	}

	return entry, nil
}

// EncodeBalances serializes a balance map for storage under u/<txid><vout>.
func EncodeBalances(balances ledger.UtxoBalance) []byte {
	var buf bytes.Buffer

	var count [4]byte
	binary.BigEndian.PutUint32(count[:], uint32(len(balances)))
	buf.Write(count[:])

	for id, amount := range balances {
		var idBytes [12]byte
		binary.BigEndian.PutUint64(idBytes[0:8], id.Block)
		binary.BigEndian.PutUint32(idBytes[8:], id.TxID)
		buf.Write(idBytes[:])

		writeBigInt(&buf, amount)
	}

	return buf.Bytes()
}

// DecodeBalances deserializes a balance map previously written by
// EncodeBalances.
func DecodeBalances(data []byte) (ledger.UtxoBalance, error) {
	r := bytes.NewReader(data)

	var count [4]byte
	if _, err := io.ReadFull(r, count[:]); err != nil {
		return nil, fmt.Errorf("storage: decode balance count: %w", err)
	}
	n := binary.BigEndian.Uint32(count[:])

	balances := make(ledger.UtxoBalance, n)
	for i := uint32(0); i < n; i++ {
		var idBytes [12]byte
		if _, err := io.ReadFull(r, idBytes[:]); err != nil {
			return nil, fmt.Errorf("storage: decode balance rune id: %w", err)
		}
		id := runes.RuneID{
			Block: binary.BigEndian.Uint64(idBytes[0:8]),
			TxID:  binary.BigEndian.Uint32(idBytes[8:]),
		}

		amount, err := readBigInt(r)
		if err != nil {
			return nil, fmt.Errorf("storage: decode balance amount: %w", err)
		}

		balances[id] = amount
	}

	return balances, nil
}
