// Copyright (c) 2026 The picosuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"fmt"

	"github.com/btcsuite/btcd/txscript"
)

// signSpendTx signs every input of the transaction with a taproot key-path
// signature. Each input's sighash uses the default sighash type, which
// commits to all inputs' previous outputs and all outputs; the resulting
// witness is the bare 64-byte schnorr signature, with no script or control
// block.
func (w *Wallet) signSpendTx(s *spendTx) error {
	sigHashes := txscript.NewTxSigHashes(s.tx, s.prevFetcher)

	for i, txIn := range s.tx.TxIn {
		prevOut := s.prevFetcher.FetchPrevOutput(
			txIn.PreviousOutPoint,
		)
		if prevOut == nil {
			return fmt.Errorf("missing previous output for "+
				"input %d (%v)", i, txIn.PreviousOutPoint)
		}

		// The signing key is tweaked with the empty script tree
		// commitment internally, matching the key the outputs were
		// locked to.
		witness, err := txscript.TaprootWitnessSignature(
			s.tx, sigHashes, i, prevOut.Value, prevOut.PkScript,
			txscript.SigHashDefault, w.cfg.PrivKey,
		)
		if err != nil {
			return fmt.Errorf("failed to sign input %d: %w", i,
				err)
		}

		txIn.Witness = witness
	}

	return nil
}
