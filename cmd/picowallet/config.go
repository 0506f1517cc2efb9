// Copyright (c) 2026 The picosuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "picowallet.conf"
	defaultDBFilename     = "wallet.db"
	defaultKeyFilename    = "key.wif"
	defaultNetwork        = "regtest"
	defaultDebugLevel     = "info"
	defaultRPCConnect     = "localhost:18443"
)

var (
	defaultDataDir    = btcutil.AppDataDir("picowallet", false)
	defaultConfigFile = filepath.Join(defaultDataDir, defaultConfigFilename)
)

// config defines the configuration options for picowallet.
//
// See loadConfig for further details regarding the configuration loading
// process.
type config struct {
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir    string `short:"b" long:"datadir" description:"Directory holding the wallet database and the key file"`
	DebugLevel string `long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	Network    string `long:"network" description:"Bitcoin network to operate on" choice:"mainnet" choice:"testnet" choice:"regtest" choice:"simnet" choice:"signet"`

	RPCConnect string `long:"rpcconnect" description:"Host/port of the bitcoind RPC server to connect to"`
	RPCUser    string `short:"u" long:"rpcuser" description:"Username for bitcoind RPC connections"`
	RPCPass    string `short:"P" long:"rpcpass" default-mask:"-" description:"Password for bitcoind RPC connections"`

	// params is the chain parameters resolved from Network.
	params *chaincfg.Params
}

// defaultConfig returns the config filled with all its default values.
func defaultConfig() config {
	return config{
		ConfigFile: defaultConfigFile,
		DataDir:    defaultDataDir,
		DebugLevel: defaultDebugLevel,
		Network:    defaultNetwork,
		RPCConnect: defaultRPCConnect,
	}
}

// dbPath returns the location of the wallet database.
func (c *config) dbPath() string {
	return filepath.Join(c.DataDir, defaultDBFilename)
}

// keyPath returns the location of the private key file.
func (c *config) keyPath() string {
	return filepath.Join(c.DataDir, defaultKeyFilename)
}

// netParams resolves a network name to its chain parameters.
func netParams(network string) (*chaincfg.Params, error) {
	switch network {
	case "mainnet":
		return &chaincfg.MainNetParams, nil
	case "testnet":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "simnet":
		return &chaincfg.SimNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("unknown network %q", network)
	}
}

// loadConfig initializes and parses the config using a config file and
// command line options, returning the cleaned config and the leftover
// positional arguments.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
func loadConfig(args []string) (*config, []string, error) {
	preCfg := defaultConfig()

	preParser := flags.NewParser(&preCfg, flags.Default)
	if _, err := preParser.ParseArgs(args); err != nil {
		return nil, nil, err
	}

	// If the user moved the data directory but not the config file, look
	// for the config file inside the new data directory.
	configFilePath := cleanAndExpandPath(preCfg.ConfigFile)
	if preCfg.DataDir != defaultDataDir &&
		preCfg.ConfigFile == defaultConfigFile {

		configFilePath = filepath.Join(
			cleanAndExpandPath(preCfg.DataDir),
			defaultConfigFilename,
		)
	}

	// Next, load any additional configuration options from the file. A
	// missing file is fine, a malformed one is not.
	var configFileError error
	cfg := preCfg
	parser := flags.NewParser(&cfg, flags.Default)
	if err := flags.NewIniParser(parser).ParseFile(configFilePath); err != nil {
		if _, ok := err.(*flags.IniError); ok {
			return nil, nil, err
		}

		configFileError = err
	}

	// Finally, parse the remaining command line options again to ensure
	// they take precedence.
	remaining, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, nil, err
	}

	// Warn about a missing config file only after parsing succeeded, so
	// the warning never precedes a usage message.
	if configFileError != nil {
		log.Debugf("%v", configFileError)
	}

	return &cfg, remaining, nil
}

// validateConfig checks the parsed config for illegal values, normalizes
// its paths and makes sure the data directory exists.
func validateConfig(cfg *config) error {
	params, err := netParams(cfg.Network)
	if err != nil {
		return err
	}
	cfg.params = params

	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.ConfigFile = cleanAndExpandPath(cfg.ConfigFile)

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	return nil
}

// validateRPC checks the settings required to reach a bitcoind node. Only
// the commands that touch the chain call this, so a node-less setup can
// still inspect its balance.
func validateRPC(cfg *config) error {
	if cfg.RPCConnect == "" {
		return fmt.Errorf("rpcconnect is required for this command")
	}

	if cfg.RPCUser == "" || cfg.RPCPass == "" {
		return fmt.Errorf("rpcuser and rpcpass are required for " +
			"this command")
	}

	return nil
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
