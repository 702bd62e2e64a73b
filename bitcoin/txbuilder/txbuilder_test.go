// Copyright (C) 2024 Creditor Corp. Group.
// See LICENSE for copying information.

package txbuilder_test

import (
	"bytes"
	"errors"
	"math/big"
	"math/rand"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/max-tonny8/RuneStone-lib-Bitcoin/bitcoin"
	"github.com/max-tonny8/RuneStone-lib-Bitcoin/bitcoin/runes"
	"github.com/max-tonny8/RuneStone-lib-Bitcoin/bitcoin/txbuilder"
	"github.com/max-tonny8/RuneStone-lib-Bitcoin/internal/numbers"
)

const (
	senderTaprootAddress    = "tb1peymd09grxec8qg7tn5vqsmf7j7fhuvw9w8lua3msmzzqhr3qtfjqlj50zg"
	recipientTaprootAddress = "tb1p9m40h0uj4uk37hsgvm97h4shhx2kyhehvfax8rysfhwjdp2ycvgqtxqsu0"
)

func TestTxBuilder(t *testing.T) {
	txBuilder := txbuilder.NewTxBuilder(&chaincfg.TestNet3Params)

	t.Run("SelectUTXO", func(t *testing.T) {
		utxos := []bitcoin.UTXO{ // sorted by btc utxos.
			{Amount: big.NewInt(150000)},
			{Amount: big.NewInt(75000)},
			{Amount: big.NewInt(25000)},
			{Amount: big.NewInt(10000)},
			{Amount: big.NewInt(5000)},
			{Amount: big.NewInt(546)},
		}

		tests := []struct {
			minAmount     *big.Int
			totalAmount   *big.Int
			requiredUTXOs int
			utxos         []*bitcoin.UTXO
			err           error
		}{
			{big.NewInt(150000), big.NewInt(150000), 1, []*bitcoin.UTXO{&utxos[0]}, nil},
			{big.NewInt(149000), big.NewInt(150000), 1, []*bitcoin.UTXO{&utxos[0]}, nil},
			{big.NewInt(75000), big.NewInt(75000), 1, []*bitcoin.UTXO{&utxos[1]}, nil},
			{big.NewInt(74000), big.NewInt(75000), 1, []*bitcoin.UTXO{&utxos[1]}, nil},
			{big.NewInt(150000), big.NewInt(150546), 2, []*bitcoin.UTXO{&utxos[0], &utxos[5]}, nil},
			{big.NewInt(10020), big.NewInt(25546), 2, []*bitcoin.UTXO{&utxos[2], &utxos[5]}, nil},
			{big.NewInt(11000), big.NewInt(30546), 3, []*bitcoin.UTXO{&utxos[2], &utxos[5], &utxos[4]}, nil},
			{big.NewInt(255000), nil, 2, nil, bitcoin.ErrInsufficientNativeBalance},
			{big.NewInt(255000), big.NewInt(260000), 4, []*bitcoin.UTXO{&utxos[0], &utxos[1], &utxos[2], &utxos[3]}, nil},
			{big.NewInt(255000), big.NewInt(260546), 5, []*bitcoin.UTXO{&utxos[0], &utxos[1], &utxos[2], &utxos[3], &utxos[5]}, nil},
			{big.NewInt(200000), nil, 1, nil, bitcoin.ErrInsufficientNativeBalance},
			{big.NewInt(200000), nil, 8, nil, bitcoin.ErrInvalidUTXOAmount},
		}

		// by utxo test.
		utxoFn := func(utxo *bitcoin.UTXO) *big.Int { return utxo.Amount }
		for _, test := range tests {
			usedUTXOs, totalAmount, err := txbuilder.SelectUTXO(utxos, utxoFn, test.minAmount, test.requiredUTXOs, bitcoin.ErrInsufficientNativeBalance)
			require.Equal(t, test.err, err, test.minAmount.String())
			require.Equal(t, test.utxos, usedUTXOs, test.minAmount.String())
			require.EqualValues(t, test.totalAmount, totalAmount, test.minAmount.String())
		}

		testRuneID := runes.RuneID{Block: 20, TxID: 15}
		for idx := 0; idx < len(utxos); idx++ {
			k := rand.Uint32()
			if k%2 == 0 { // add random extra rune.
				utxos[idx].Runes = append(utxos[idx].Runes, bitcoin.RuneUTXO{
					RuneID: runes.RuneID{Block: uint64(k), TxID: k},
					Amount: big.NewInt(int64(k)),
				})
			}
			utxos[idx].Runes = append(utxos[idx].Runes, bitcoin.RuneUTXO{RuneID: testRuneID, Amount: utxos[idx].Amount})
		}

		// by rune test: same table, but the insufficient-balance sentinel is
		// the rune one since amountFn now sums rune balances.
		runeFn := func(utxo *bitcoin.UTXO) *big.Int {
			for _, rune_ := range utxo.Runes {
				if rune_.RuneID == testRuneID {
					return rune_.Amount
				}
			}

			return big.NewInt(0)
		}
		for _, test := range tests {
			wantErr := test.err
			if errors.Is(wantErr, bitcoin.ErrInsufficientNativeBalance) {
				wantErr = bitcoin.ErrInsufficientRuneBalance
			}

			usedUTXOs, totalAmount, err := txbuilder.SelectUTXO(utxos, runeFn, test.minAmount, test.requiredUTXOs, bitcoin.ErrInsufficientRuneBalance)
			require.Equal(t, wantErr, err, test.minAmount.String())
			require.Equal(t, test.utxos, usedUTXOs, test.minAmount.String())
			require.EqualValues(t, test.totalAmount, totalAmount, test.minAmount.String())
		}
	})

	t.Run("BuildRunesTransferTx", func(t *testing.T) {
		runeID := runes.RuneID{Block: 1122, TxID: 77}
		runeUTXO := bitcoin.UTXO{
			TxHash:  "d78a52d61c43ec43d56e270e8f87ebe952f3bb5fe0a042494ed6ebf753285746",
			Index:   4,
			Amount:  big.NewInt(546),
			Script:  []byte("_bitcoin_transaction_rune_script_"),
			Address: senderTaprootAddress,
			Runes:   []bitcoin.RuneUTXO{{RuneID: runeID, Amount: big.NewInt(7726)}},
		}
		baseUTXO := bitcoin.UTXO{
			TxHash:  "d78a52d61c43ec43d56e270e8f87ebe952f3bb5fe0a042494ed6ebf753285746",
			Index:   2,
			Amount:  big.NewInt(850000), // 0.0085 BTC.
			Script:  []byte("_bitcoin_transaction_script_"),
			Address: senderTaprootAddress,
		}

		params := txbuilder.BaseRunesTransferParams{
			RuneID:                  runeID,
			RuneUTXOs:               []bitcoin.UTXO{runeUTXO},
			BaseUTXOs:               []bitcoin.UTXO{baseUTXO},
			TransferRuneAmount:      big.NewInt(3357), // leaves a rune change output.
			SatoshiPerKVByte:        big.NewInt(5000), // 5 sat/vB.
			RecipientTaprootAddress: recipientTaprootAddress,
			SenderTaprootAddress:    senderTaprootAddress,
			SenderPaymentAddress:    senderTaprootAddress,
		}

		rawTx, usedRuneUTXOs, usedBaseUTXOs, fee, err := txBuilder.BuildRunesTransferTx(params)
		require.NoError(t, err)
		require.True(t, numbers.IsPositive(fee))
		require.Len(t, usedRuneUTXOs, 1)
		require.Len(t, usedBaseUTXOs, 1)

		tx := wire.NewMsgTx(0)
		require.NoError(t, tx.DeserializeNoWitness(bytes.NewReader(rawTx)))

		// BuildRunesTransferTx prepends one helper output per used input
		// (carrying its script/amount for signing), before the real outputs.
		helperCount := len(usedRuneUTXOs) + len(usedBaseUTXOs)
		require.Equal(t, helperCount, 2)
		require.True(t, len(tx.TxOut) > helperCount)

		realOuts := tx.TxOut[helperCount:]
		scripts := make([][]byte, len(realOuts))
		for i, out := range realOuts {
			scripts[i] = out.PkScript
		}

		artifact := runes.Decode(scripts, len(scripts))
		require.Nil(t, artifact.Cenotaph)
		require.NotNil(t, artifact.Runestone)
		require.Len(t, artifact.Runestone.Edicts, 1)
		require.Equal(t, runeID, artifact.Runestone.Edicts[0].RuneID)
		require.Equal(t, params.TransferRuneAmount, artifact.Runestone.Edicts[0].Amount)
		require.EqualValues(t, 1, artifact.Runestone.Edicts[0].Output)

		// Rune change was left over (7726 available, 3357 transferred), so
		// the runestone must point the sweep at the designated change output.
		pointer, ok := artifact.Runestone.Pointer.Get()
		require.True(t, ok)
		require.EqualValues(t, 2, pointer)
	})

	t.Run("BuildRunesTransferTx insufficient rune balance", func(t *testing.T) {
		runeID := runes.RuneID{Block: 1122, TxID: 77}
		params := txbuilder.BaseRunesTransferParams{
			RuneID: runeID,
			RuneUTXOs: []bitcoin.UTXO{{
				TxHash: "d78a52d61c43ec43d56e270e8f87ebe952f3bb5fe0a042494ed6ebf753285746",
				Index:  4,
				Amount: big.NewInt(546),
				Runes:  []bitcoin.RuneUTXO{{RuneID: runeID, Amount: big.NewInt(10)}},
			}},
			BaseUTXOs:               []bitcoin.UTXO{{TxHash: "d78a52d61c43ec43d56e270e8f87ebe952f3bb5fe0a042494ed6ebf753285746", Index: 2, Amount: big.NewInt(850000)}},
			TransferRuneAmount:      big.NewInt(3357), // more than the single UTXO carries.
			SatoshiPerKVByte:        big.NewInt(5000),
			RecipientTaprootAddress: recipientTaprootAddress,
			SenderTaprootAddress:    senderTaprootAddress,
			SenderPaymentAddress:    senderTaprootAddress,
		}

		_, _, _, _, err := txBuilder.BuildRunesTransferTx(params)
		require.ErrorIs(t, err, bitcoin.ErrInsufficientRuneBalance)
	})
}
