package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tos-network/gaudit/audit"
	"github.com/tos-network/gaudit/consensus/bft"
	"github.com/tos-network/gaudit/core/types"
)

func newSimService(t *testing.T) *audit.Service {
	t.Helper()
	cfg := audit.Defaults
	cfg.Store = audit.StoreMemory
	cfg.KeySeed = t.Name()
	s, err := audit.New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSimulate(t *testing.T) {
	s := newSimService(t)
	steps, err := simulate(s, simOptions{Blocks: 3, Stage: "Harvest"})
	require.NoError(t, err)

	// q = 4 of 5: three waiting steps and one acceptance per block.
	require.Len(t, steps, 12)
	for i, step := range steps {
		if i%4 == 3 {
			require.Equal(t, bft.StatusAccepted, step.Result.Status)
		} else {
			require.Equal(t, bft.StatusWaiting, step.Result.Status)
		}
	}
	chain := s.Chain()
	require.Len(t, chain, 4)
	require.True(t, s.IsValid())
	require.Equal(t, "alice", chain[1].Transactions[0].Sender)

	var buf bytes.Buffer
	renderBlocks(&buf, chain)
	require.Contains(t, buf.String(), "Genesis")
	require.Contains(t, buf.String(), "4/4")
}

func TestSimulateRejectLast(t *testing.T) {
	s := newSimService(t)
	steps, err := simulate(s, simOptions{Blocks: 2, Stage: "Transport", RejectLast: true})
	require.NoError(t, err)
	require.Len(t, steps, 5)
	require.Equal(t, bft.StatusRejected, steps[4].Result.Status)

	chain := s.Chain()
	require.Len(t, chain, 3)
	require.Equal(t, types.StatusRejected, chain[2].Status())
	require.Equal(t, "simulated rejection", chain[2].Certificate.Reason)

	var buf bytes.Buffer
	renderSteps(&buf, steps)
	require.Contains(t, buf.String(), "waiting for more signatures")
}
