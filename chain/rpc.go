package chain

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"
)

// RPCClientConfig defines the config options used when initializing the RPC
// client.
type RPCClientConfig struct {
	// Host is the host/port of the bitcoind RPC server.
	Host string

	// User is the RPC username.
	User string

	// Pass is the RPC password.
	Pass string

	// Params defines the Bitcoin network the remote node is expected to
	// be running on.
	Params *chaincfg.Params
}

// validate checks the required config options are set.
func (c *RPCClientConfig) validate() error {
	if c == nil {
		return errors.New("missing rpc config")
	}

	if c.Host == "" {
		return errors.New("missing rpc host")
	}

	if c.Params == nil {
		return errors.New("missing chain params config")
	}

	return nil
}

// RPCClient implements Interface against a bitcoind node using HTTP POST
// mode JSON-RPC.
type RPCClient struct {
	client *rpcclient.Client
	params *chaincfg.Params
}

// A compile-time check to ensure that RPCClient satisfies the Interface
// interface.
var _ Interface = (*RPCClient)(nil)

// NewRPCClient creates a client connection to the bitcoind server described
// by the config. bitcoind only supports HTTP POST mode, so notifications are
// unavailable and every call is a plain request/response round trip.
func NewRPCClient(cfg *RPCClientConfig) (*RPCClient, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client, err := rpcclient.New(&rpcclient.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		HTTPPostMode: true,
		DisableTLS:   true,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create rpc client: %v",
			ErrNodeUnavailable, err)
	}

	c := &RPCClient{
		client: client,
		params: cfg.Params,
	}

	// Refuse to hand out a client that talks to a node on the wrong
	// network. A mainnet wallet scanning a regtest node would silently
	// find nothing.
	if err := c.checkNetwork(); err != nil {
		client.Shutdown()
		return nil, err
	}

	return c, nil
}

// checkNetwork verifies the node serves the configured network by fetching
// its genesis block hash.
func (c *RPCClient) checkNetwork() error {
	hash, err := c.client.GetBlockHash(0)
	if err != nil {
		return fmt.Errorf("%w: failed to get genesis hash: %v",
			ErrNodeUnavailable, err)
	}

	return c.verifyGenesis(hash)
}

// verifyGenesis compares the node's genesis hash against the configured
// chain params. The genesis hash identifies a network unambiguously, unlike
// network names, which differ between implementations.
func (c *RPCClient) verifyGenesis(hash *chainhash.Hash) error {
	if !hash.IsEqual(c.params.GenesisHash) {
		return fmt.Errorf("node reports genesis %v, expected %v "+
			"for %s", hash, c.params.GenesisHash, c.params.Name)
	}

	return nil
}

// GetBestHeight returns the height of the node's best block.
func (c *RPCClient) GetBestHeight() (int32, error) {
	count, err := c.client.GetBlockCount()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to get block count: %v",
			ErrNodeUnavailable, err)
	}

	return int32(count), nil
}

// GetBlock returns the full block at the given height. The height is first
// resolved to a hash, matching the two-step interface bitcoind exposes.
func (c *RPCClient) GetBlock(height int32) (*wire.MsgBlock, error) {
	hash, err := c.client.GetBlockHash(int64(height))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get block hash at "+
			"height %d: %v", ErrNodeUnavailable, height, err)
	}

	block, err := c.client.GetBlock(hash)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get block %v: %v",
			ErrNodeUnavailable, hash, err)
	}

	return block, nil
}

// Broadcast submits a transaction to the node's mempool. A server-side
// rejection (the node answered, but refused the transaction) is reported as
// ErrBroadcastRejected so callers can tell it apart from transport failures.
func (c *RPCClient) Broadcast(tx *wire.MsgTx) (*chainhash.Hash, error) {
	txid, err := c.client.SendRawTransaction(tx, false)
	if err != nil {
		var rpcErr *btcjson.RPCError
		if errors.As(err, &rpcErr) {
			return nil, fmt.Errorf("%w: %v", ErrBroadcastRejected,
				rpcErr)
		}

		return nil, fmt.Errorf("%w: failed to send transaction: %v",
			ErrNodeUnavailable, err)
	}

	log.Debugf("Node accepted transaction %v", txid)

	return txid, nil
}

// Shutdown tears down the underlying RPC connection.
func (c *RPCClient) Shutdown() {
	c.client.Shutdown()
}
