// Copyright (c) 2026 The picosuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcwallet/walletdb"
	_ "github.com/btcsuite/btcwallet/walletdb/bdb"
	flags "github.com/jessevdk/go-flags"

	"github.com/picosuite/picowallet/chain"
	"github.com/picosuite/picowallet/wallet"
)

// dbTimeout is how long to wait for the exclusive database file lock
// before giving up. Another picowallet process holding the wallet open is
// the usual cause.
const dbTimeout = 10 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		// The flags package already prints help requests and parse
		// errors itself.
		var flagErr *flags.Error
		if errors.As(err, &flagErr) {
			if flagErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
			os.Exit(1)
		}

		fmt.Fprintf(os.Stderr, "picowallet: %v\n", err)
		os.Exit(1)
	}
}

// run dispatches the command named by the first positional argument.
func run(args []string) error {
	cfg, remaining, err := loadConfig(args)
	if err != nil {
		return err
	}

	if err := setLogLevels(cfg.DebugLevel); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt,
	)
	defer cancel()

	if len(remaining) == 0 {
		fmt.Println("Command missing")
		fmt.Println()
		printHelp(cfg)
		return nil
	}

	switch command := remaining[0]; command {
	case "address":
		return cmdAddress(cfg)

	case "balance":
		return cmdBalance(cfg)

	case "scan":
		return cmdScan(ctx, cfg)

	case "send":
		return cmdSend(ctx, cfg, remaining[1:])

	case "help":
		printHelp(cfg)
		return nil

	default:
		printHelp(cfg)
		return fmt.Errorf("unknown command %q", command)
	}
}

// loadPrivKey loads the wallet key, generating it on first use.
func loadPrivKey(cfg *config) (*btcec.PrivateKey, error) {
	return wallet.NewKeyFile(cfg.keyPath(), cfg.params).LoadOrCreate()
}

// openDB opens the wallet database, creating it on first use. The returned
// database holds an exclusive file lock until closed.
func openDB(cfg *config) (walletdb.DB, error) {
	db, err := walletdb.Open(
		"bdb", cfg.dbPath(), true, dbTimeout, false,
	)
	if errors.Is(err, walletdb.ErrDbDoesNotExist) {
		db, err = walletdb.Create(
			"bdb", cfg.dbPath(), true, dbTimeout, false,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet database "+
			"%s: %w", cfg.dbPath(), err)
	}

	return db, nil
}

// openWallet loads the key, opens the database and assembles the wallet.
// The chain client may be nil for commands that never touch the node. The
// caller must invoke the returned cleanup function when done.
func openWallet(cfg *config,
	chainClient chain.Interface) (*wallet.Wallet, func(), error) {

	privKey, err := loadPrivKey(cfg)
	if err != nil {
		return nil, nil, err
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, nil, err
	}

	w, err := wallet.Open(wallet.Config{
		DB:          db,
		Chain:       chainClient,
		ChainParams: cfg.params,
		PrivKey:     privKey,
	})
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Errorf("Failed to close wallet database: %v", err)
		}
	}

	return w, cleanup, nil
}

// newChainClient connects to the configured bitcoind node.
func newChainClient(cfg *config) (*chain.RPCClient, error) {
	if err := validateRPC(cfg); err != nil {
		return nil, err
	}

	return chain.NewRPCClient(&chain.RPCClientConfig{
		Host:   cfg.RPCConnect,
		User:   cfg.RPCUser,
		Pass:   cfg.RPCPass,
		Params: cfg.params,
	})
}

// cmdAddress prints the wallet's receiving address, generating the key on
// first use. Only the key file is touched.
func cmdAddress(cfg *config) error {
	privKey, err := loadPrivKey(cfg)
	if err != nil {
		return err
	}

	addr, err := wallet.TaprootAddress(privKey.PubKey(), cfg.params)
	if err != nil {
		return err
	}

	fmt.Println(addr.String())

	return nil
}

// cmdBalance prints the sum of the unspent outputs recorded in the ledger.
// Run scan first to bring the ledger up to date.
func cmdBalance(cfg *config) error {
	w, cleanup, err := openWallet(cfg, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	balance, err := w.Balance()
	if err != nil {
		return err
	}

	fmt.Printf("Balance: %v\n", balance)

	return nil
}

// cmdScan walks the blocks above the scan watermark and records outputs
// paying the wallet address.
func cmdScan(ctx context.Context, cfg *config) error {
	chainClient, err := newChainClient(cfg)
	if err != nil {
		return err
	}
	defer chainClient.Shutdown()

	w, cleanup, err := openWallet(cfg, chainClient)
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := w.Scan(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Scanned %d blocks and %d transactions, found %d txos "+
		"totalling %d sats.\n", summary.Blocks, summary.Txs,
		summary.Outputs, int64(summary.Total))

	return nil
}

// cmdSend builds, signs and broadcasts a payment of the given amount in
// satoshis to the given address.
func cmdSend(ctx context.Context, cfg *config, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: send ADDRESS AMOUNT_SATS")
	}

	addr, err := btcutil.DecodeAddress(args[0], cfg.params)
	if err != nil {
		return fmt.Errorf("failed to parse address %q: %w", args[0],
			err)
	}
	if !addr.IsForNet(cfg.params) {
		return fmt.Errorf("address %v is for a different network "+
			"than %s", addr, cfg.params.Name)
	}

	destScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return err
	}

	sats, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("failed to parse amount %q: %w", args[1],
			err)
	}
	amount := btcutil.Amount(sats)

	chainClient, err := newChainClient(cfg)
	if err != nil {
		return err
	}
	defer chainClient.Shutdown()

	w, cleanup, err := openWallet(cfg, chainClient)
	if err != nil {
		return err
	}
	defer cleanup()

	txid, err := w.Send(ctx, destScript, amount)
	if err != nil {
		return err
	}

	fmt.Printf("Sent %v to %v in transaction %v\n", amount, addr, txid)

	return nil
}

// printHelp prints the command menu and the resolved paths.
func printHelp(cfg *config) {
	fmt.Println("Usage: picowallet [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println()
	fmt.Println(" address\t: Get the wallet address.")
	fmt.Println(" balance\t: Get the current balance.")
	fmt.Println(" scan\t\t: Scan all blocks looking for relevant transactions.")
	fmt.Println(" send\t\t: Send a given amount to the address provided.")
	fmt.Println(" help\t\t: Print this help menu.")
	fmt.Println()
	fmt.Println("Some paths you might need:")
	fmt.Println()
	fmt.Printf("data directory: %s\n", cfg.DataDir)
	fmt.Printf("configuration file: %s\n", cfg.ConfigFile)
	fmt.Printf("key file: %s\n", cfg.keyPath())
	fmt.Println()
}
