// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package runes

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/txscript"
)

// findPayload scans the transaction's output scripts for the first one
// shaped like OP_RETURN OP_13 <pushes...>. Outputs that don't match this
// prefix are skipped entirely, not flawed; once a matching output is found,
// it is the candidate runestone output even if what follows in it fails to
// parse.
func findPayload(scripts [][]byte) (payload []byte, found bool, flaws []Flaw) {
	for _, script := range scripts {
		if len(script) < 2 || script[0] != txscript.OP_RETURN || script[1] != txscript.OP_13 {
			continue
		}

		payload, flaw, ok := extractPushes(script[2:])
		if !ok {
			return nil, true, []Flaw{flaw}
		}

		return payload, true, nil
	}

	return nil, false, nil
}

// extractPushes walks a script body, concatenating the data of every push
// opcode. A non push-data opcode is FlawOpcode; a push whose length prefix
// runs past the end of the script is FlawInvalidScript.
func extractPushes(script []byte) (payload []byte, flaw Flaw, ok bool) {
	i := 0
	for i < len(script) {
		op := script[i]
		i++

		switch {
		case op == txscript.OP_0:
			// empty push, no data bytes follow.
		case op >= txscript.OP_DATA_1 && op <= txscript.OP_DATA_75:
			n := int(op)
			if i+n > len(script) {
				return nil, FlawInvalidScript, false
			}
			payload = append(payload, script[i:i+n]...)
			i += n
		case op == txscript.OP_PUSHDATA1:
			if i+1 > len(script) {
				return nil, FlawInvalidScript, false
			}
			n := int(script[i])
			i++
			if i+n > len(script) {
				return nil, FlawInvalidScript, false
			}
			payload = append(payload, script[i:i+n]...)
			i += n
		case op == txscript.OP_PUSHDATA2:
			if i+2 > len(script) {
				return nil, FlawInvalidScript, false
			}
			n := int(binary.LittleEndian.Uint16(script[i : i+2]))
			i += 2
			if i+n > len(script) {
				return nil, FlawInvalidScript, false
			}
			payload = append(payload, script[i:i+n]...)
			i += n
		case op == txscript.OP_PUSHDATA4:
			if i+4 > len(script) {
				return nil, FlawInvalidScript, false
			}
			n := int(binary.LittleEndian.Uint32(script[i : i+4]))
			i += 4
			if i+n > len(script) {
				return nil, FlawInvalidScript, false
			}
			payload = append(payload, script[i:i+n]...)
			i += n
		default:
			return nil, FlawOpcode, false
		}
	}

	return payload, 0, true
}

// IsPossibleRunestone returns true if the script starts with the rune
// protocol's prefix bytes.
func IsPossibleRunestone(script []byte) bool {
	return len(script) >= 2 && script[0] == txscript.OP_RETURN && script[1] == txscript.OP_13
}

// intoScript encodes a payload as a standalone OP_RETURN output script.
// A payload of up to 75 bytes becomes a single data push; a longer one is
// split across consecutive data pushes of at most 75 bytes each.
func intoScript(payload []byte) ([]byte, error) {
	if len(payload) > txscript.OP_DATA_75 {
		builder := txscript.NewScriptBuilder()
		builder.AddOp(txscript.OP_RETURN).AddOp(txscript.OP_13)
		for offset := 0; offset < len(payload); offset += txscript.OP_DATA_75 {
			end := offset + txscript.OP_DATA_75
			if end > len(payload) {
				end = len(payload)
			}
			builder.AddData(payload[offset:end])
		}

		return builder.Script()
	}

	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_RETURN).
		AddOp(txscript.OP_13).
		AddData(payload).
		Script()
}
