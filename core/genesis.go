// Copyright 2018 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package core

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/pkg/errors"

	"github.com/harmony-one/snapshot/core/state"
)

const (
	// GenesisGasLimit is the gas limit of the default genesis block.
	GenesisGasLimit uint64 = 8000000
)

var (
	// GenesisDifficulty is the difficulty of the default genesis block.
	GenesisDifficulty = big.NewInt(16)
)

// Genesis specifies the header fields and state of a genesis block.
type Genesis struct {
	Timestamp  uint64         `json:"timestamp"`
	ExtraData  []byte         `json:"extraData"`
	GasLimit   uint64         `json:"gasLimit"`
	Difficulty *big.Int       `json:"difficulty"`
	Coinbase   common.Address `json:"coinbase"`
	Alloc      GenesisAlloc   `json:"alloc"`
}

// GenesisAlloc specifies the initial state that is part of the genesis block.
type GenesisAlloc map[common.Address]GenesisAccount

// UnmarshalJSON accepts addresses with or without 0x prefix.
func (ga *GenesisAlloc) UnmarshalJSON(data []byte) error {
	m := make(map[common.UnprefixedAddress]GenesisAccount)
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*ga = make(GenesisAlloc)
	for addr, a := range m {
		(*ga)[common.Address(addr)] = a
	}
	return nil
}

// GenesisAccount is an account in the state of the genesis block.
type GenesisAccount struct {
	Code    []byte                      `json:"code,omitempty"`
	Storage map[common.Hash]common.Hash `json:"storage,omitempty"`
	Balance *big.Int                    `json:"balance"`
	Nonce   uint64                      `json:"nonce,omitempty"`
}

// GenesisMismatchError is returned when a database already holds a different
// genesis block.
type GenesisMismatchError struct {
	Stored, New common.Hash
}

func (e *GenesisMismatchError) Error() string {
	return fmt.Sprintf("database already contains an incompatible genesis block (have %x, new %x)", e.Stored[:8], e.New[:8])
}

// DefaultGenesis returns the genesis used when none is configured.
func DefaultGenesis() *Genesis {
	return &Genesis{
		Timestamp:  1561734000,
		ExtraData:  []byte("snapshot genesis"),
		GasLimit:   GenesisGasLimit,
		Difficulty: new(big.Int).Set(GenesisDifficulty),
		Alloc: GenesisAlloc{
			common.HexToAddress("0xE25ABC3f7C3d5fB7FB81EAFd421FF1621A61107c"): {
				Balance: new(big.Int).Exp(big.NewInt(10), big.NewInt(27), nil),
			},
		},
	}
}

// LoadGenesis reads a JSON genesis specification from a file.
func LoadGenesis(file string) (*Genesis, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read genesis file %s", file)
	}
	genesis := new(Genesis)
	if err := json.Unmarshal(data, genesis); err != nil {
		return nil, errors.Wrapf(err, "invalid genesis file %s", file)
	}
	return genesis, nil
}

// ToBlock writes the genesis state into db and returns the genesis block.
func (g *Genesis) ToBlock(db ethdb.Database) (*types.Block, error) {
	statedb := state.NewDatabase(db)
	writer, err := state.NewWriter(statedb, types.EmptyRootHash)
	if err != nil {
		return nil, err
	}
	for addr, account := range g.Alloc {
		balance := account.Balance
		if balance == nil {
			balance = new(big.Int)
		}
		if err := writer.SetAccount(addr, account.Nonce, balance, account.Code, account.Storage); err != nil {
			return nil, errors.Wrapf(err, "cannot allocate genesis account %s", addr.Hex())
		}
	}
	root, err := writer.Commit()
	if err != nil {
		return nil, err
	}
	difficulty := g.Difficulty
	if difficulty == nil {
		difficulty = GenesisDifficulty
	}
	gasLimit := g.GasLimit
	if gasLimit == 0 {
		gasLimit = GenesisGasLimit
	}
	head := &types.Header{
		Number:     new(big.Int),
		Time:       g.Timestamp,
		Extra:      g.ExtraData,
		GasLimit:   gasLimit,
		Difficulty: new(big.Int).Set(difficulty),
		Coinbase:   g.Coinbase,
		Root:       root,
	}
	return types.NewBlock(head, nil, nil, nil, trie.NewStackTrie(nil)), nil
}
