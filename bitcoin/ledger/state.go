// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package ledger

import (
	"math/big"

	"github.com/max-tonny8/RuneStone-lib-Bitcoin/bitcoin/runes"
	"github.com/max-tonny8/RuneStone-lib-Bitcoin/internal/numbers"
)

// EntryLookup resolves a previously etched rune's ledger entry by id.
type EntryLookup func(runes.RuneID) (*RuneEntry, bool)

// CommitmentCheck reports whether the given rune name is committed to by
// the transaction under evaluation, per the taproot witness rule in
// runes.VerifyCommitment.
type CommitmentCheck func(name *runes.Rune) bool

// Result is the outcome of applying one transaction's runestone to its
// inputs: per-output balances to credit to new UTXOs, a freshly etched
// entry (if any), an updated mint count (if a mint occurred), and amounts
// burned outright.
type Result struct {
	Outputs    []UtxoBalance
	NewEntry   *RuneEntry
	MintedID   runes.RuneID
	Minted     bool
	MintAmount *big.Int
	Burned     UtxoBalance

	// CenotaphMinted and CenotaphMintedID report a mint slot consumed by a
	// cenotaph's Mint field: the count must still advance to prevent reuse,
	// even though no amount is credited to any output.
	CenotaphMinted   bool
	CenotaphMintedID runes.RuneID
}

// Apply runs the seven-step ledger transition for one transaction:
// accumulate input balances, handle a mint, handle an etching, apply
// edicts, sweep any remainder, and burn everything if the artifact is a
// cenotaph. It never returns an error: a malformed instruction downgrades
// its own effect (skipped mint, skipped etching, swept edict) rather than
// aborting the whole transaction, mirroring the decoder's own posture.
// opReturn, if non-nil, marks which outputs are OP_RETURN scripts: the
// protocol excludes those outputs from pro-rata edicts, from the default
// pointer, and from the no-runestone pass-through. A nil slice treats every
// output as eligible, for callers (and tests) that have no OP_RETURN output
// to exclude.
func Apply(
	artifact *runes.Artifact,
	height uint64,
	txIndex uint32,
	inputs []UtxoBalance,
	outputCount int,
	opReturn []bool,
	lookup EntryLookup,
	committed CommitmentCheck,
) Result {
	unallocated := make(UtxoBalance)
	for _, in := range inputs {
		unallocated.Merge(in)
	}

	result := Result{
		Outputs: make([]UtxoBalance, outputCount),
		Burned:  make(UtxoBalance),
	}
	for i := range result.Outputs {
		result.Outputs[i] = make(UtxoBalance)
	}

	if artifact.IsNone() {
		passThrough(unallocated, result.Outputs, result.Burned, opReturn)
		return result
	}

	if artifact.Cenotaph != nil {
		result.Burned.Merge(unallocated)

		// A mint referenced by a cenotaph still consumes one slot of the
		// rune's cap, even though the cenotaph yields no payout: otherwise
		// a malformed message could be resubmitted, corrected, and mint
		// again for the same slot.
		if artifact.Cenotaph.Mint != nil {
			if entry, found := lookup(*artifact.Cenotaph.Mint); found {
				entry.Mints.Add(entry.Mints, numbers.OneBigInt)
				result.CenotaphMinted = true
				result.CenotaphMintedID = *artifact.Cenotaph.Mint
			}
		}

		return result
	}

	rs := artifact.Runestone

	if mint, ok := rs.Mint.Get(); ok {
		if entry, found := lookup(mint); found && entry.IsMintOpen(height) {
			amount := mintAmount(entry)
			unallocated.Add(mint, amount)
			entry.Mints.Add(entry.Mints, numbers.OneBigInt)

			result.Minted = true
			result.MintedID = mint
			result.MintAmount = amount
		}
	}

	if etching, ok := rs.Etching.Get(); ok {
		if entry, ok := etch(etching, runes.NewRuneID(height, txIndex), height, committed); ok {
			result.NewEntry = entry
			unallocated.Add(entry.RuneID, entry.Premine)
		}
	}

	pointer := defaultPointer(rs, outputCount, opReturn)

	for _, edict := range rs.Edicts {
		edict.RuneID = resolveEdictRuneID(edict.RuneID, result.NewEntry)
		applyEdict(edict, unallocated, result.Outputs, outputCount, opReturn, pointer)
	}

	sweep(unallocated, result.Outputs, result.Burned, pointer)

	return result
}

// passThrough moves every input balance straight to the transaction's
// first non-OP_RETURN output (or burns it if there is none), matching the
// protocol's rule for a transaction with no runestone at all.
func passThrough(unallocated UtxoBalance, outputs []UtxoBalance, burned UtxoBalance, opReturn []bool) {
	target := firstNonOpReturn(opReturn, len(outputs))
	if target < 0 {
		burned.Merge(unallocated)
		return
	}

	outputs[target].Merge(unallocated)
	for id := range unallocated {
		delete(unallocated, id)
	}
}

// firstNonOpReturn returns the index of the first output that is not an
// OP_RETURN script, or -1 if every output is (or there are none).
func firstNonOpReturn(opReturn []bool, outputCount int) int {
	for i := 0; i < outputCount; i++ {
		if opReturn == nil || !opReturn[i] {
			return i
		}
	}

	return -1
}

// mintAmount returns the fixed amount produced by one invocation of the
// rune's open mint terms.
func mintAmount(entry *RuneEntry) *big.Int {
	if entry.Terms == nil {
		return big.NewInt(0)
	}

	amount, ok := entry.Terms.Amount.Get()
	if !ok {
		return big.NewInt(0)
	}

	return new(big.Int).Set(amount)
}

// etch validates and materializes a new RuneEntry for the transaction's
// etching, applying the commitment gate to a user-specified name and
// falling back to the reserved name when none was given.
func etch(etching runes.Etching, id runes.RuneID, height uint64, committed CommitmentCheck) (*RuneEntry, bool) {
	rn, hasName := etching.Rune.Get()
	if hasName {
		if len(rn.String()) < runes.MinNameLength(height) {
			return nil, false
		}
		if committed != nil && !committed(rn) {
			return nil, false
		}
	} else {
		rn = runes.RuneReserve(id)
	}

	if _, err := etching.Supply(); err != nil {
		return nil, false
	}

	premine := numbers.ZeroBigInt
	if v, ok := etching.Premine.Get(); ok {
		premine = v
	}

	entry := &RuneEntry{
		RuneID:         id,
		Rune:           rn,
		Premine:        new(big.Int).Set(premine),
		Turbo:          etching.Turbo,
		Mints:          big.NewInt(0),
		Burned:         big.NewInt(0),
		EtchingHeight:  height,
		EtchingTxIndex: txIndexOf(id),
	}
	if v, ok := etching.Divisibility.Get(); ok {
		entry.Divisibility = v
	}
	if v, ok := etching.Spacers.Get(); ok {
		entry.Spacers = v
	}
	if v, ok := etching.Symbol.Get(); ok {
		entry.Symbol = v
	}
	if terms, ok := etching.Terms.Get(); ok {
		termsCopy := terms
		entry.Terms = &termsCopy
	}

	return entry, true
}

func txIndexOf(id runes.RuneID) uint32 {
	return id.TxID
}

// defaultPointer resolves the output that receives any unallocated
// remainder: the explicit Pointer field, or the first non-OP_RETURN output,
// or none (burn) if every output is an OP_RETURN.
//
// NOTE: the caller is expected to have already screened edict/pointer
// output bounds during decoding; defaultPointer only picks among outputs
// that exist.
func defaultPointer(rs *runes.Runestone, outputCount int, opReturn []bool) int {
	if p, ok := rs.Pointer.Get(); ok && int(p) < outputCount && (opReturn == nil || !opReturn[p]) {
		return int(p)
	}

	return firstNonOpReturn(opReturn, outputCount)
}

// resolveEdictRuneID substitutes the sentinel RuneId{0,0} with the rune
// etched earlier in the same transaction, per §4.I step 4 ("resolve id
// (0,0) as 'the rune being etched in this tx'"). An edict that already
// names a real id, or a transaction with no etching, passes through
// unchanged.
func resolveEdictRuneID(id runes.RuneID, newEntry *RuneEntry) runes.RuneID {
	if newEntry != nil && id.Block == 0 && id.TxID == 0 {
		return newEntry.RuneID
	}

	return id
}

// applyEdict distributes amount of a rune from the unallocated pool to one
// or all outputs. An Output value equal to outputCount means "split the
// edict's amount pro-rata across every non-OP_RETURN output", per the
// protocol's canonical ascending-index remainder policy; any other in-range
// value credits that output directly, OP_RETURN or not.
func applyEdict(edict runes.Edict, unallocated UtxoBalance, outputs []UtxoBalance, outputCount int, opReturn []bool, pointer int) {
	available, ok := unallocated[edict.RuneID]
	if !ok {
		return
	}

	amount := edict.Amount
	if amount.Sign() == 0 || amount.Cmp(available) > 0 {
		amount = new(big.Int).Set(available)
	}

	if int(edict.Output) == outputCount {
		splitAcrossOutputs(edict.RuneID, amount, unallocated, outputs, opReturn)
		return
	}

	taken := unallocated.Take(edict.RuneID, amount)
	outputs[edict.Output].Add(edict.RuneID, taken)
}

// splitAcrossOutputs divides amount of runeID across every non-OP_RETURN
// output in ascending index order: each gets floor(amount/n), and the first
// (amount mod n) outputs get one extra unit, so the split is deterministic
// and conserves the total exactly. OP_RETURN outputs are skipped entirely.
func splitAcrossOutputs(runeID runes.RuneID, amount *big.Int, unallocated UtxoBalance, outputs []UtxoBalance, opReturn []bool) {
	indices := make([]int, 0, len(outputs))
	for i := range outputs {
		if opReturn == nil || !opReturn[i] {
			indices = append(indices, i)
		}
	}

	n := big.NewInt(int64(len(indices)))
	if n.Sign() == 0 {
		return
	}

	share := new(big.Int).Div(amount, n)
	remainder := new(big.Int).Mod(amount, n)

	for pos, i := range indices {
		portion := new(big.Int).Set(share)
		if big.NewInt(int64(pos)).Cmp(remainder) < 0 {
			portion.Add(portion, numbers.OneBigInt)
		}

		taken := unallocated.Take(runeID, portion)
		outputs[i].Add(runeID, taken)
	}
}

// sweep credits whatever balance remains unallocated after every edict has
// run to the pointer output, or burns it if there is no usable pointer.
func sweep(unallocated UtxoBalance, outputs []UtxoBalance, burned UtxoBalance, pointer int) {
	if pointer < 0 {
		burned.Merge(unallocated)
		return
	}

	outputs[pointer].Merge(unallocated)
}
