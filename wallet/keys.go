// Copyright (c) 2026 The picosuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wallet

import (
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
)

// keyFilePerm keeps the WIF-encoded private key readable only by its owner.
const keyFilePerm = 0o600

// KeyFile manages the wallet's single private key, stored WIF-encoded in a
// plain text file. The key is generated once on first use and loaded
// unchanged afterwards; it is never rotated.
type KeyFile struct {
	path   string
	params *chaincfg.Params
}

// NewKeyFile returns a key file handle for the given path and network. No
// I/O happens until LoadOrCreate is called.
func NewKeyFile(path string, params *chaincfg.Params) *KeyFile {
	return &KeyFile{
		path:   path,
		params: params,
	}
}

// Path returns the location of the key file.
func (k *KeyFile) Path() string {
	return k.path
}

// LoadOrCreate loads the private key from the file, generating and
// persisting a fresh key when the file does not exist yet.
func (k *KeyFile) LoadOrCreate() (*btcec.PrivateKey, error) {
	b, err := os.ReadFile(k.path)
	switch {
	case err == nil:
		wif, err := btcutil.DecodeWIF(strings.TrimSpace(string(b)))
		if err != nil {
			return nil, fmt.Errorf("failed to parse private "+
				"key: %w", err)
		}

		if !wif.IsForNet(k.params) {
			return nil, fmt.Errorf("private key in %s is for a "+
				"different network than %s", k.path,
				k.params.Name)
		}

		return wif.PrivKey, nil

	case os.IsNotExist(err):
		return k.create()

	default:
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
}

// create generates a fresh key and writes it to the key file before
// returning it, so a generated key is never observable without also being
// durable.
func (k *KeyFile) create() (*btcec.PrivateKey, error) {
	privKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w",
			err)
	}

	wif, err := btcutil.NewWIF(privKey, k.params, true)
	if err != nil {
		return nil, fmt.Errorf("failed to encode private key: %w", err)
	}

	err = os.WriteFile(k.path, []byte(wif.String()), keyFilePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to save private key: %w", err)
	}

	log.Infof("Generated new wallet key, stored in %s", k.path)

	return privKey, nil
}

// TaprootOutputKey returns the taproot output key for the given internal
// key: the internal key tweaked with an empty script tree commitment, i.e. a
// key-path-only output per BIP86.
func TaprootOutputKey(pubKey *btcec.PublicKey) *btcec.PublicKey {
	return txscript.ComputeTaprootKeyNoScript(pubKey)
}

// TaprootScript derives the wallet's locking script from the internal public
// key. The derivation is a pure function: the same key always yields the
// same script.
func TaprootScript(pubKey *btcec.PublicKey) ([]byte, error) {
	script, err := txscript.PayToTaprootScript(TaprootOutputKey(pubKey))
	if err != nil {
		return nil, fmt.Errorf("failed to derive taproot script: %w",
			err)
	}

	return script, nil
}

// TaprootAddress returns the bech32m address encoding of the wallet's
// taproot output key.
func TaprootAddress(pubKey *btcec.PublicKey,
	params *chaincfg.Params) (*btcutil.AddressTaproot, error) {

	addr, err := btcutil.NewAddressTaproot(
		schnorr.SerializePubKey(TaprootOutputKey(pubKey)), params,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to derive taproot address: %w",
			err)
	}

	return addr, nil
}
