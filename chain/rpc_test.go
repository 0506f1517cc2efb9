package chain

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
)

// TestRPCClientConfigValidate checks the required config options are
// enforced before a connection is attempted.
func TestRPCClientConfigValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		cfg    *RPCClientConfig
		errStr string
	}{
		{
			name:   "nil config",
			cfg:    nil,
			errStr: "missing rpc config",
		},
		{
			name: "missing host",
			cfg: &RPCClientConfig{
				Params: &chaincfg.RegressionNetParams,
			},
			errStr: "missing rpc host",
		},
		{
			name: "missing chain params",
			cfg: &RPCClientConfig{
				Host: "localhost:18443",
			},
			errStr: "missing chain params config",
		},
		{
			name: "valid",
			cfg: &RPCClientConfig{
				Host:   "localhost:18443",
				User:   "user",
				Pass:   "pass",
				Params: &chaincfg.RegressionNetParams,
			},
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.cfg.validate()
			if tc.errStr == "" {
				require.NoError(t, err)
				return
			}

			require.ErrorContains(t, err, tc.errStr)
		})
	}
}

// TestRPCClientVerifyGenesis checks that a node reporting a foreign genesis
// hash is rejected while the configured network's genesis is accepted.
func TestRPCClientVerifyGenesis(t *testing.T) {
	t.Parallel()

	c := &RPCClient{params: &chaincfg.RegressionNetParams}

	require.NoError(
		t, c.verifyGenesis(chaincfg.RegressionNetParams.GenesisHash),
	)

	err := c.verifyGenesis(chaincfg.MainNetParams.GenesisHash)
	require.ErrorContains(t, err, "expected")
	require.ErrorContains(
		t, err, chaincfg.RegressionNetParams.GenesisHash.String(),
	)
}
