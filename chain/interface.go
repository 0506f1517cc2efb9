// Package chain defines the capability interface the wallet uses to talk to
// a full node, along with a bitcoind-backed implementation and an in-memory
// mock for deterministic testing.
package chain

import (
	"errors"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

var (
	// ErrNodeUnavailable is returned when the backing node cannot be
	// reached or an RPC call fails for transport reasons.
	ErrNodeUnavailable = errors.New("node unavailable")

	// ErrBroadcastRejected is returned when the node refuses to accept a
	// transaction into its mempool.
	ErrBroadcastRejected = errors.New("broadcast rejected")
)

// Interface is the minimal view of a full node required by the wallet. All
// calls are synchronous and carry no retry logic; a failed call is simply
// surfaced to the caller.
type Interface interface {
	// GetBestHeight returns the height of the node's best block.
	GetBestHeight() (int32, error)

	// GetBlock returns the full block at the given height on the node's
	// best chain.
	GetBlock(height int32) (*wire.MsgBlock, error)

	// Broadcast submits a transaction to the node's mempool and returns
	// its txid. A node-side rejection is reported as an error wrapping
	// ErrBroadcastRejected.
	Broadcast(tx *wire.MsgTx) (*chainhash.Hash, error)
}
