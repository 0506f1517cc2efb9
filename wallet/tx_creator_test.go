// Copyright (c) 2026 The picosuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
	"github.com/stretchr/testify/require"
)

// expectedSpendFee mirrors the builder's fee calculation for a key-path
// spend with the given input count, one payment output and a P2TR change
// output.
func expectedSpendFee(w *Wallet, numInputs int,
	payment *wire.TxOut) int64 {

	vsize := txsizes.EstimateVirtualSize(
		0, numInputs, 0, 0, []*wire.TxOut{payment},
		txsizes.P2TRPkScriptSize,
	)

	return int64(txrules.FeeForSerializeSize(w.feeRate, vsize))
}

// TestCreateSpendTxBasic funds a wallet with a single 20_000_000 sat output
// and builds a 5_000_000 sat payment, asserting the transaction shape and
// that every sat is accounted for.
func TestCreateSpendTxBasic(t *testing.T) {
	t.Parallel()

	w, _ := newTestWallet(t, nil)
	op := insertUtxo(t, w, 1, 20_000_000)

	dest := otherScript(t)

	unspent, err := w.UnspentOutputs()
	require.NoError(t, err)

	stx, err := w.createSpendTx(unspent, dest, 5_000_000)
	require.NoError(t, err)

	require.Len(t, stx.tx.TxIn, 1)
	require.Equal(t, op, stx.tx.TxIn[0].PreviousOutPoint)
	require.EqualValues(t, rbfSequence, stx.tx.TxIn[0].Sequence)

	require.Len(t, stx.tx.TxOut, 2)
	require.EqualValues(t, 5_000_000, stx.tx.TxOut[0].Value)
	require.Equal(t, dest, stx.tx.TxOut[0].PkScript)

	fee := expectedSpendFee(w, 1, stx.tx.TxOut[0])
	require.EqualValues(t, fee, stx.fee)

	require.Equal(t, 1, stx.changeIndex)
	require.EqualValues(t, 20_000_000-5_000_000-fee, stx.tx.TxOut[1].Value)
	require.Equal(t, w.PkScript(), stx.tx.TxOut[1].PkScript)
	require.EqualValues(t, stx.tx.TxOut[1].Value, stx.change)
}

// TestCreateSpendTxSweepsAllInputs asserts the default selection policy
// spends every unspent output, not just enough to cover the payment.
func TestCreateSpendTxSweepsAllInputs(t *testing.T) {
	t.Parallel()

	w, _ := newTestWallet(t, nil)
	insertUtxo(t, w, 1, 10_000_000)
	insertUtxo(t, w, 2, 7_000_000)
	insertUtxo(t, w, 3, 3_000_000)

	unspent, err := w.UnspentOutputs()
	require.NoError(t, err)

	stx, err := w.createSpendTx(unspent, otherScript(t), 1_000_000)
	require.NoError(t, err)

	require.Len(t, stx.tx.TxIn, 3)
	require.Len(t, stx.inputs, 3)

	fee := expectedSpendFee(w, 3, stx.tx.TxOut[0])
	require.EqualValues(t, 20_000_000-1_000_000-fee,
		stx.tx.TxOut[1].Value)
}

// TestCreateSpendTxInvalidAmount asserts zero and negative amounts are
// rejected before any selection happens.
func TestCreateSpendTxInvalidAmount(t *testing.T) {
	t.Parallel()

	w, _ := newTestWallet(t, nil)
	insertUtxo(t, w, 1, 1_000_000)

	unspent, err := w.UnspentOutputs()
	require.NoError(t, err)

	_, err = w.createSpendTx(unspent, otherScript(t), 0)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = w.createSpendTx(unspent, otherScript(t), -5)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

// TestCreateSpendTxInsufficientFunds covers the three underfunded cases: no
// outputs at all, total below the amount, and total covering the amount but
// not the fee.
func TestCreateSpendTxInsufficientFunds(t *testing.T) {
	t.Parallel()

	w, _ := newTestWallet(t, nil)
	dest := otherScript(t)

	_, err := w.createSpendTx(nil, dest, 1_000)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	insertUtxo(t, w, 1, 5_000)

	unspent, err := w.UnspentOutputs()
	require.NoError(t, err)

	_, err = w.createSpendTx(unspent, dest, 10_000)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	// The total matches the amount exactly, leaving nothing for the fee.
	_, err = w.createSpendTx(unspent, dest, 5_000)
	require.ErrorIs(t, err, ErrInsufficientFunds)
}

// TestCreateSpendTxDustChange asserts dust-level change is folded into the
// fee when suppression is enabled, and kept as a real output otherwise.
func TestCreateSpendTxDustChange(t *testing.T) {
	t.Parallel()

	// Fund the wallet so that the change comes out to 100 sats, well
	// below the P2TR dust threshold at the relay floor rate.
	setup := func(t *testing.T, suppress bool) (*Wallet, *spendTx) {
		w, _ := newTestWallet(t, func(cfg *Config) {
			cfg.NoDustChange = suppress
		})

		dest := otherScript(t)
		payment := wire.NewTxOut(5_000_000, dest)
		fee := expectedSpendFee(w, 1, payment)

		insertUtxo(t, w, 1, btcutil.Amount(5_000_000+fee+100))

		unspent, err := w.UnspentOutputs()
		require.NoError(t, err)

		stx, err := w.createSpendTx(unspent, dest, 5_000_000)
		require.NoError(t, err)

		return w, stx
	}

	t.Run("suppressed", func(t *testing.T) {
		t.Parallel()

		w, stx := setup(t, true)

		require.Len(t, stx.tx.TxOut, 1)
		require.Equal(t, -1, stx.changeIndex)
		require.Zero(t, stx.change)

		// The 100 sats that would have been change now pay for the
		// transaction instead.
		baseFee := expectedSpendFee(w, 1, stx.tx.TxOut[0])
		require.EqualValues(t, baseFee+100, stx.fee)
	})

	t.Run("kept", func(t *testing.T) {
		t.Parallel()

		w, stx := setup(t, false)

		require.Len(t, stx.tx.TxOut, 2)
		require.Equal(t, 1, stx.changeIndex)
		require.EqualValues(t, 100, stx.change)
		require.Equal(t, w.PkScript(), stx.tx.TxOut[1].PkScript)
	})
}

// TestSignSpendTx asserts every input receives a valid key-path witness: a
// single 64-byte schnorr signature verifying against the taproot output key
// over the default sighash.
func TestSignSpendTx(t *testing.T) {
	t.Parallel()

	w, _ := newTestWallet(t, nil)
	insertUtxo(t, w, 1, 8_000_000)
	insertUtxo(t, w, 2, 4_000_000)

	unspent, err := w.UnspentOutputs()
	require.NoError(t, err)

	stx, err := w.createSpendTx(unspent, otherScript(t), 3_000_000)
	require.NoError(t, err)

	require.NoError(t, w.signSpendTx(stx))

	outputKey := TaprootOutputKey(w.cfg.PrivKey.PubKey())
	sigHashes := txscript.NewTxSigHashes(stx.tx, stx.prevFetcher)

	for i, txIn := range stx.tx.TxIn {
		require.Len(t, txIn.Witness, 1)
		require.Len(t, txIn.Witness[0], schnorr.SignatureSize)

		sig, err := schnorr.ParseSignature(txIn.Witness[0])
		require.NoError(t, err)

		sigHash, err := txscript.CalcTaprootSignatureHash(
			sigHashes, txscript.SigHashDefault, stx.tx, i,
			stx.prevFetcher,
		)
		require.NoError(t, err)

		require.True(t, sig.Verify(sigHash, outputKey),
			"input %d signature invalid", i)
	}
}
