// Copyright (c) 2026 The picosuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/btcsuite/btclog"

	"github.com/picosuite/picowallet/chain"
	"github.com/picosuite/picowallet/utxomgr"
	"github.com/picosuite/picowallet/wallet"
)

// logBackend writes all subsystem logs to stderr, keeping stdout free for
// command output.
var (
	logBackend = btclog.NewBackend(os.Stderr)

	log       = logBackend.Logger("PICO")
	chainLog  = logBackend.Logger("CHIN")
	utxoLog   = logBackend.Logger("UTXO")
	walletLog = logBackend.Logger("WLLT")
)

func init() {
	chain.UseLogger(chainLog)
	utxomgr.UseLogger(utxoLog)
	wallet.UseLogger(walletLog)
}

// setLogLevels sets the log level of every subsystem logger to the given
// level string.
func setLogLevels(debugLevel string) error {
	level, ok := btclog.LevelFromString(debugLevel)
	if !ok {
		return fmt.Errorf("invalid debug level %q", debugLevel)
	}

	log.SetLevel(level)
	chainLog.SetLevel(level)
	utxoLog.SetLevel(level)
	walletLog.SetLevel(level)

	return nil
}
