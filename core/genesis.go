package core

import (
	"time"

	"github.com/tos-network/gaudit/common"
	"github.com/tos-network/gaudit/core/types"
)

// SystemID is the leader and responsible party of the genesis block.
const SystemID = "SYSTEM"

// GenesisStage is the stage label of the genesis block.
const GenesisStage = "Genesis"

// NewGenesisBlock builds the index-0 block: no transactions, an all-zero
// previous hash and a GENESIS certificate.
func NewGenesisBlock(now time.Time) *types.Block {
	b := types.NewBlock(0, common.Hash{}, SystemID, GenesisStage, SystemID, nil, now)
	b.Certificate = &types.Certificate{Status: types.StatusGenesis, Consensus: true}
	return b
}
