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
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/trie"

	"github.com/harmony-one/snapshot/consensus/engine"
)

// BlockGen creates blocks for testing.
// See GenerateChain for a detailed explanation.
type BlockGen struct {
	i        int
	parent   *types.Block
	chain    []*types.Block
	header   *types.Header
	txs      []*types.Transaction
	receipts []*types.Receipt
	uncles   []*types.Header
}

// SetCoinbase sets the coinbase of the generated block.
func (b *BlockGen) SetCoinbase(addr common.Address) {
	b.header.Coinbase = addr
}

// SetExtra sets the extra data field of the generated block.
func (b *BlockGen) SetExtra(data []byte) {
	b.header.Extra = common.CopyBytes(data)
}

// SetDifficulty sets the difficulty field of the generated block.
func (b *BlockGen) SetDifficulty(diff *big.Int) {
	b.header.Difficulty = new(big.Int).Set(diff)
}

// AddTx adds a transaction to the generated block together with a
// successful receipt consuming the transaction's whole gas allowance.
// Transactions are not executed.
func (b *BlockGen) AddTx(tx *types.Transaction) {
	b.header.GasUsed += tx.Gas()
	receipt := &types.Receipt{
		Type:              tx.Type(),
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: b.header.GasUsed,
		Logs:              []*types.Log{},
		TxHash:            tx.Hash(),
		GasUsed:           tx.Gas(),
		BlockNumber:       new(big.Int).Set(b.header.Number),
		TransactionIndex:  uint(len(b.txs)),
	}
	receipt.Bloom = types.CreateBloom(types.Receipts{receipt})
	b.txs = append(b.txs, tx)
	b.receipts = append(b.receipts, receipt)
}

// AddUncle adds an uncle header to the generated block.
func (b *BlockGen) AddUncle(h *types.Header) {
	b.uncles = append(b.uncles, h)
}

// PrevBlock returns a previously generated block by number. It panics if
// num is greater or equal to the number of the block being generated.
// For index -1, PrevBlock returns the parent block given to GenerateChain.
func (b *BlockGen) PrevBlock(index int) *types.Block {
	if index >= b.i {
		panic("block index out of range")
	}
	if index == -1 {
		return b.parent
	}
	return b.chain[index]
}

// GenerateChain creates a chain of n blocks. The first block's
// parent will be the provided parent.
//
// The generator function is called with a new block generator for
// every block. Any transactions and uncles added to the generator
// become part of the block. If gen is nil, the blocks will be empty
// and their coinbase will be the parent's coinbase.
//
// Every block is sealed by sealer, so blocks generated with a faker
// carry empty seals and only pass verification by a faker.
func GenerateChain(
	parent *types.Block, sealer engine.Sealer, n int, gen func(int, *BlockGen),
) ([]*types.Block, []types.Receipts) {
	blocks, receipts := make([]*types.Block, n), make([]types.Receipts, n)
	genblock := func(i int, parent *types.Block) (*types.Block, types.Receipts) {
		b := &BlockGen{
			i:      i,
			chain:  blocks,
			parent: parent,
			header: makeHeader(parent),
		}

		// Execute any user modifications to the block
		if gen != nil {
			gen(i, b)
		}

		block := types.NewBlock(b.header, b.txs, b.uncles, b.receipts, trie.NewStackTrie(nil))
		header := block.Header()
		if err := sealer.Seal(header); err != nil {
			panic(err)
		}
		return block.WithSeal(header), b.receipts
	}
	for i := 0; i < n; i++ {
		block, receipt := genblock(i, parent)
		blocks[i] = block
		receipts[i] = receipt
		parent = block
	}
	return blocks, receipts
}

func makeHeader(parent *types.Block) *types.Header {
	return &types.Header{
		ParentHash: parent.Hash(),
		Coinbase:   parent.Coinbase(),
		Root:       parent.Root(),
		Difficulty: new(big.Int).Set(parent.Difficulty()),
		Number:     new(big.Int).Add(parent.Number(), common.Big1),
		GasLimit:   parent.GasLimit(),
		Time:       parent.Time() + 10, // block time is fixed at 10 seconds
	}
}
