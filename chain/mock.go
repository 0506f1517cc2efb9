package chain

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// MockChain is an in-memory Interface implementation used to test the wallet
// without a real node. Blocks are keyed by height and failures can be
// scripted per call.
type MockChain struct {
	mu sync.Mutex

	// Best is the height reported by GetBestHeight.
	Best int32

	// BestErr, when set, is returned by GetBestHeight.
	BestErr error

	// Blocks holds the chain, keyed by height.
	Blocks map[int32]*wire.MsgBlock

	// BlockErrs scripts per-height failures for GetBlock.
	BlockErrs map[int32]error

	// BroadcastErr, when set, is returned by Broadcast.
	BroadcastErr error

	// Broadcasted records every transaction accepted by Broadcast.
	Broadcasted []*wire.MsgTx
}

// A compile-time check to ensure that MockChain satisfies the Interface
// interface.
var _ Interface = (*MockChain)(nil)

// NewMockChain creates an empty mock chain.
func NewMockChain() *MockChain {
	return &MockChain{
		Blocks:    make(map[int32]*wire.MsgBlock),
		BlockErrs: make(map[int32]error),
	}
}

// AddBlock appends a block of the given transactions at the next height and
// returns that height.
func (m *MockChain) AddBlock(txns ...*wire.MsgTx) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Best++
	m.Blocks[m.Best] = &wire.MsgBlock{Transactions: txns}

	return m.Best
}

// GetBestHeight returns the scripted best height.
func (m *MockChain) GetBestHeight() (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.BestErr != nil {
		return 0, m.BestErr
	}

	return m.Best, nil
}

// GetBlock returns the block stored at the given height.
func (m *MockChain) GetBlock(height int32) (*wire.MsgBlock, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.BlockErrs[height]; err != nil {
		return nil, err
	}

	block, ok := m.Blocks[height]
	if !ok {
		return nil, fmt.Errorf("%w: no block at height %d",
			ErrNodeUnavailable, height)
	}

	return block, nil
}

// Broadcast records the transaction, or fails with the scripted error.
func (m *MockChain) Broadcast(tx *wire.MsgTx) (*chainhash.Hash, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.BroadcastErr != nil {
		return nil, m.BroadcastErr
	}

	m.Broadcasted = append(m.Broadcasted, tx)
	txid := tx.TxHash()

	return &txid, nil
}
