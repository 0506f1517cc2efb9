// Copyright (c) 2026 The picosuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/btcsuite/btcwallet/wallet/txsizes"

	"github.com/picosuite/picowallet/utxomgr"
)

var (
	// ErrInvalidAmount is returned when a send is requested for a zero
	// or negative amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds is returned when the unspent outputs cannot
	// cover the requested amount plus the estimated fee.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// rbfSequence is the input sequence number signalling opt-in
// replace-by-fee per BIP125.
const rbfSequence = wire.MaxTxInSequenceNum - 2

// InputSelector picks which unspent outputs fund a transaction. It exists
// so a smarter subset-selecting policy can replace the default without
// touching the builder.
type InputSelector interface {
	// SelectInputs returns the outputs to consume for a payment of the
	// given target amount. Fee headroom is the builder's concern, not
	// the selector's.
	SelectInputs(unspent []utxomgr.Utxo,
		target btcutil.Amount) ([]utxomgr.Utxo, error)
}

// SpendAllSelector consumes every unspent output unconditionally. Sweeping
// the whole wallet into each transaction keeps the ledger trivially small
// at the cost of larger transactions.
type SpendAllSelector struct{}

// A compile-time check to ensure that SpendAllSelector satisfies the
// InputSelector interface.
var _ InputSelector = (*SpendAllSelector)(nil)

// SelectInputs returns every unspent output.
func (SpendAllSelector) SelectInputs(unspent []utxomgr.Utxo,
	_ btcutil.Amount) ([]utxomgr.Utxo, error) {

	if len(unspent) == 0 {
		return nil, fmt.Errorf("%w: no unspent outputs",
			ErrInsufficientFunds)
	}

	return unspent, nil
}

// spendTx bundles an unsigned transaction with everything needed to sign
// it and to reconcile the ledger after broadcast.
type spendTx struct {
	tx *wire.MsgTx

	// prevFetcher resolves every input's previous output. Taproot
	// sighashes commit to the complete set of spent outputs, so the
	// fetcher must know them all.
	prevFetcher *txscript.MultiPrevOutFetcher

	// inputs are the ledger records consumed by the transaction, in
	// input order.
	inputs []utxomgr.Utxo

	fee    btcutil.Amount
	change btcutil.Amount

	// changeIndex is the output index of the change output, or -1 when
	// dust suppression dropped it.
	changeIndex int
}

// createSpendTx builds an unsigned transaction paying amount to destScript,
// funded by the selected unspent outputs, with change back to the wallet
// script. The fee is the estimated virtual size priced at the configured
// floor rate.
func (w *Wallet) createSpendTx(unspent []utxomgr.Utxo, destScript []byte,
	amount btcutil.Amount) (*spendTx, error) {

	if amount <= 0 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidAmount, amount)
	}

	inputs, err := w.selector.SelectInputs(unspent, amount)
	if err != nil {
		return nil, err
	}

	var total btcutil.Amount
	for _, input := range inputs {
		total += input.Amount
	}
	if total < amount {
		return nil, fmt.Errorf("%w: have %v, need %v",
			ErrInsufficientFunds, total, amount)
	}

	tx := wire.NewMsgTx(2)
	prevFetcher := txscript.NewMultiPrevOutFetcher(nil)

	for _, input := range inputs {
		tx.AddTxIn(&wire.TxIn{
			PreviousOutPoint: input.OutPoint,
			Sequence:         rbfSequence,
		})

		// Every consumed output is locked to the wallet script by
		// construction; only its value varies.
		prevFetcher.AddPrevOut(input.OutPoint, &wire.TxOut{
			Value:    int64(input.Amount),
			PkScript: w.pkScript,
		})
	}

	payment := &wire.TxOut{
		Value:    int64(amount),
		PkScript: destScript,
	}

	// Estimate the signed size assuming one key-path witness per input
	// and a P2TR change output alongside the payment.
	vsize := txsizes.EstimateVirtualSize(
		0, len(inputs), 0, 0, []*wire.TxOut{payment},
		txsizes.P2TRPkScriptSize,
	)
	fee := txrules.FeeForSerializeSize(w.feeRate, vsize)

	if total-amount < fee {
		return nil, fmt.Errorf("%w: have %v, need %v plus %v fee",
			ErrInsufficientFunds, total, amount, fee)
	}
	change := total - amount - fee

	tx.AddTxOut(payment)

	changeOutput := wire.NewTxOut(int64(change), w.pkScript)

	changeIndex := -1
	if w.cfg.NoDustChange && txrules.IsDustOutput(changeOutput, w.feeRate) {
		log.Debugf("Folding dust change of %v into the fee", change)

		fee += change
		change = 0
	} else {
		tx.AddTxOut(changeOutput)
		changeIndex = 1
	}

	return &spendTx{
		tx:          tx,
		prevFetcher: prevFetcher,
		inputs:      inputs,
		fee:         fee,
		change:      change,
		changeIndex: changeIndex,
	}, nil
}
