// Copyright (c) 2026 The picosuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/walletdb"
	_ "github.com/btcsuite/btcwallet/walletdb/bdb"
	"github.com/stretchr/testify/require"

	"github.com/picosuite/picowallet/chain"
)

var (
	// chainParams are the chain parameters used throughout the wallet
	// tests.
	chainParams = chaincfg.RegressionNetParams
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) walletdb.DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "wallet-test.db")

	db, err := walletdb.Create("bdb", dbPath, true, time.Second*10, false)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
		_ = os.Remove(dbPath)
	})

	return db
}

// newTestWallet creates a wallet over a temporary database and a mock
// chain. The mod callback, if non-nil, may adjust the config before Open.
func newTestWallet(t *testing.T,
	mod func(*Config)) (*Wallet, *chain.MockChain) {

	t.Helper()

	privKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	mockChain := chain.NewMockChain()

	cfg := Config{
		DB:          setupTestDB(t),
		Chain:       mockChain,
		ChainParams: &chainParams,
		PrivKey:     privKey,
	}
	if mod != nil {
		mod(&cfg)
	}

	w, err := Open(cfg)
	require.NoError(t, err)

	return w, mockChain
}

// paymentTx builds a transaction with one output per (script, amount) pair.
// The prevTag byte makes the txid unique across calls.
func paymentTx(prevTag byte, outputs ...*wire.TxOut) *wire.MsgTx {
	tx := wire.NewMsgTx(2)

	var prevHash chainhash.Hash
	prevHash[0] = prevTag

	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Hash: prevHash},
	})

	for _, txOut := range outputs {
		tx.AddTxOut(txOut)
	}

	return tx
}

// otherScript returns a taproot script the wallet does not control, for use
// as a payment destination or decoy output.
func otherScript(t *testing.T) []byte {
	t.Helper()

	privKey, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	script, err := TaprootScript(privKey.PubKey())
	require.NoError(t, err)

	return script
}

// insertUtxo records an unspent output of the given amount directly in the
// wallet's ledger and returns its outpoint.
func insertUtxo(t *testing.T, w *Wallet, tag byte,
	amount btcutil.Amount) wire.OutPoint {

	t.Helper()

	var hash chainhash.Hash
	hash[0] = tag
	op := wire.OutPoint{Hash: hash}

	err := walletdb.Update(w.cfg.DB, func(tx walletdb.ReadWriteTx) error {
		ns := tx.ReadWriteBucket(utxomgrNamespaceKey)

		return w.store.Upsert(ns, op, amount)
	})
	require.NoError(t, err)

	return op
}

// walletBalance is a test shorthand asserting Balance succeeds.
func walletBalance(t *testing.T, w *Wallet) btcutil.Amount {
	t.Helper()

	balance, err := w.Balance()
	require.NoError(t, err)

	return balance
}
