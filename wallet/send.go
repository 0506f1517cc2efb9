// Copyright (c) 2026 The picosuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/walletdb"
)

// Send builds, signs and broadcasts a transaction paying amount to
// destScript. The ledger is only mutated after the node has accepted the
// transaction: a failed build or rejected broadcast leaves it byte-for-byte
// unchanged, so the same outputs remain selectable on retry.
//
// A crash between the broadcast succeeding and the spent markers being
// written leaves outputs that are gone on-chain but still unspent locally;
// the txid is logged before broadcasting so the case can be reconciled by
// hand.
func (w *Wallet) Send(ctx context.Context, destScript []byte,
	amount btcutil.Amount) (*chainhash.Hash, error) {

	chainClient, err := w.requireChain()
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unspent, err := w.UnspentOutputs()
	if err != nil {
		return nil, err
	}

	stx, err := w.createSpendTx(unspent, destScript, amount)
	if err != nil {
		return nil, err
	}

	if err := w.signSpendTx(stx); err != nil {
		return nil, err
	}

	txid := stx.tx.TxHash()
	log.Infof("Broadcasting %v: %d inputs, amount %v, change %v, fee %v",
		txid, len(stx.inputs), amount, stx.change, stx.fee)

	if _, err := chainClient.Broadcast(stx.tx); err != nil {
		return nil, fmt.Errorf("failed to broadcast %v: %w", txid, err)
	}

	// The node accepted the transaction, so the consumed outputs are
	// spent for good and the change output is ours the moment it
	// confirms. Record both in one database transaction.
	err = walletdb.Update(w.cfg.DB, func(tx walletdb.ReadWriteTx) error {
		ns := tx.ReadWriteBucket(utxomgrNamespaceKey)

		for _, input := range stx.inputs {
			err := w.store.SetSpent(ns, input.OutPoint)
			if err != nil {
				return err
			}
		}

		if stx.changeIndex < 0 {
			return nil
		}

		changeOut := wire.OutPoint{
			Hash:  txid,
			Index: uint32(stx.changeIndex),
		}

		// The scanner will see the same outpoint once the
		// transaction is mined; the upsert keyed by outpoint makes
		// that a no-op.
		return w.store.Upsert(ns, changeOut, stx.change)
	})
	if err != nil {
		return &txid, fmt.Errorf("broadcast of %v succeeded but "+
			"updating the ledger failed, a re-scan cannot repair "+
			"this: %w", txid, err)
	}

	return &txid, nil
}
