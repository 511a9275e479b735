package main

import (
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/pkg/errors"

	"github.com/harmony-one/snapshot/core"
	"github.com/harmony-one/snapshot/core/rawdb"
	"github.com/harmony-one/snapshot/internal/chaindb"
)

func dbFactory(config snapshotConfig) *chaindb.LDBFactory {
	return &chaindb.LDBFactory{RootDir: config.General.DataDir}
}

func loadGenesis(config snapshotConfig) (*core.Genesis, error) {
	if config.General.Genesis == "" {
		return core.DefaultGenesis(), nil
	}
	return core.LoadGenesis(config.General.Genesis)
}

// genesisBlock returns the configured genesis block without writing its
// state anywhere.
func genesisBlock(config snapshotConfig) (*types.Block, error) {
	genesis, err := loadGenesis(config)
	if err != nil {
		return nil, err
	}
	return genesis.ToBlock(rawdb.NewMemoryDatabase())
}

// openChain opens the existing chain database of config.
func openChain(config snapshotConfig, readOnly bool) (ethdb.Database, *core.BlockChain, error) {
	factory := dbFactory(config)
	fresh, err := factory.IsFresh()
	if err != nil {
		return nil, nil, err
	}
	if fresh {
		return nil, nil, errors.Errorf("no chain database in %s", config.General.DataDir)
	}
	factory.ReadOnly = readOnly
	db, err := factory.NewChainDB()
	if err != nil {
		return nil, nil, err
	}
	bc, err := core.LoadBlockChain(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, bc, nil
}
