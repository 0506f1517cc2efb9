// Copyright (c) 2026 The picosuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wallet implements a single-key taproot wallet: one keypair, one
// receiving address, a block scanner that discovers outputs paying that
// address, and a builder/signer that spends them with taproot key-path
// signatures.
package wallet

import (
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/btcsuite/btcwallet/walletdb"

	"github.com/picosuite/picowallet/chain"
	"github.com/picosuite/picowallet/utxomgr"
)

var (
	// utxomgrNamespaceKey is the top-level walletdb bucket holding the
	// wallet's ledger: owned outputs plus the scan watermark.
	utxomgrNamespaceKey = []byte("utxomgr")
)

// Config holds the collaborators and knobs required to open a Wallet.
type Config struct {
	// DB is the embedded database backing the ledger. The caller owns
	// its lifetime and must hold it exclusively for the duration of a
	// command.
	DB walletdb.DB

	// Chain is the node client. It may be nil for commands that never
	// touch the chain (address, balance).
	Chain chain.Interface

	// ChainParams defines the Bitcoin network in use.
	ChainParams *chaincfg.Params

	// PrivKey is the wallet's single private key.
	PrivKey *btcec.PrivateKey

	// BirthdayHeight, if non-zero, is the height scanning starts above.
	// Blocks at or below it are never requested.
	BirthdayHeight int32

	// FeeRatePerKb is the fee rate applied to the estimated transaction
	// size. Zero selects the minimum relay fee rate.
	FeeRatePerKb btcutil.Amount

	// NoDustChange suppresses a change output that would be dust under
	// the configured fee rate, folding its value into the fee. Off by
	// default: the change output is always emitted.
	NoDustChange bool
}

// validate checks the required config options are set.
func (cfg *Config) validate() error {
	if cfg.DB == nil {
		return errors.New("missing wallet database")
	}

	if cfg.ChainParams == nil {
		return errors.New("missing chain params config")
	}

	if cfg.PrivKey == nil {
		return errors.New("missing private key")
	}

	return nil
}

// Wallet ties the key material, the ledger and the node client together. It
// is a synchronous, single-owner type: one command, one Wallet, no
// background tasks.
type Wallet struct {
	cfg Config

	// pkScript is the wallet's one receiving script, derived once from
	// the public key.
	pkScript []byte

	store    *utxomgr.Store
	selector InputSelector
	feeRate  btcutil.Amount
}

// Open validates the config, derives the wallet's receiving script and
// ensures the ledger buckets exist.
func Open(cfg Config) (*Wallet, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	pkScript, err := TaprootScript(cfg.PrivKey.PubKey())
	if err != nil {
		return nil, err
	}

	var store *utxomgr.Store
	err = walletdb.Update(cfg.DB, func(tx walletdb.ReadWriteTx) error {
		ns, err := tx.CreateTopLevelBucket(utxomgrNamespaceKey)
		if err != nil {
			return err
		}

		if err := utxomgr.Create(ns); err != nil {
			return err
		}

		store, err = utxomgr.Open(ns, cfg.BirthdayHeight)
		return err
	})
	if err != nil {
		return nil, err
	}

	feeRate := cfg.FeeRatePerKb
	if feeRate == 0 {
		feeRate = txrules.DefaultRelayFeePerKb
	}

	return &Wallet{
		cfg:      cfg,
		pkScript: pkScript,
		store:    store,
		selector: SpendAllSelector{},
		feeRate:  feeRate,
	}, nil
}

// Address returns the wallet's one receiving address.
func (w *Wallet) Address() (btcutil.Address, error) {
	return TaprootAddress(w.cfg.PrivKey.PubKey(), w.cfg.ChainParams)
}

// PkScript returns the wallet's receiving output script.
func (w *Wallet) PkScript() []byte {
	return w.pkScript
}

// Balance returns the sum of all unspent output values in the ledger.
func (w *Wallet) Balance() (btcutil.Amount, error) {
	var balance btcutil.Amount

	err := walletdb.View(w.cfg.DB, func(tx walletdb.ReadTx) error {
		ns := tx.ReadBucket(utxomgrNamespaceKey)

		var err error
		balance, err = w.store.Balance(ns)
		return err
	})
	if err != nil {
		return 0, err
	}

	return balance, nil
}

// UnspentOutputs returns the wallet's spendable outputs.
func (w *Wallet) UnspentOutputs() ([]utxomgr.Utxo, error) {
	var unspent []utxomgr.Utxo

	err := walletdb.View(w.cfg.DB, func(tx walletdb.ReadTx) error {
		ns := tx.ReadBucket(utxomgrNamespaceKey)

		var err error
		unspent, err = w.store.UnspentOutputs(ns)
		return err
	})
	if err != nil {
		return nil, err
	}

	return unspent, nil
}

// requireChain returns the node client, or an error when the wallet was
// opened without one.
func (w *Wallet) requireChain() (chain.Interface, error) {
	if w.cfg.Chain == nil {
		return nil, errors.New("wallet opened without a chain client")
	}

	return w.cfg.Chain, nil
}
