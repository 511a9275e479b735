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

// Package core implements block storage for the chain being snapshotted or
// restored.
package core

import (
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/harmony-one/snapshot/core/rawdb"
	"github.com/harmony-one/snapshot/internal/utils"
	"github.com/harmony-one/snapshot/internal/utils/lrucache"
)

const (
	headerCacheLimit   = 512
	bodyCacheLimit     = 256
	receiptsCacheLimit = 32
	numberCacheLimit   = 2048
	detailsCacheLimit  = 2048
)

var (
	// ErrNoGenesis is the error when there is no genesis.
	ErrNoGenesis = errors.New("genesis not found in chain")
	// ErrUnknownAncestor is returned when the parent of an ordered insert is unknown.
	ErrUnknownAncestor = errors.New("unknown ancestor")
	// ErrUnknownParentTD is returned when an unordered insert has neither a
	// known parent nor an explicit parent total difficulty.
	ErrUnknownParentTD = errors.New("unknown parent total difficulty")
)

// BlockChain stores blocks with their receipts, total difficulties and the
// parent/children linkage. Blocks can be imported in order, extending a known
// parent, or unordered, as done while restoring a snapshot.
type BlockChain struct {
	db           ethdb.Database
	genesisBlock *types.Block

	chainmu      sync.RWMutex // blockchain insertion lock
	currentBlock atomic.Value // Current head of the block chain

	headerCache   *lrucache.Cache[common.Hash, *types.Header]
	bodyCache     *lrucache.Cache[common.Hash, *types.Body]
	receiptsCache *lrucache.Cache[common.Hash, types.Receipts]
	numberCache   *lrucache.Cache[common.Hash, uint64]
	detailsCache  *lrucache.Cache[common.Hash, *rawdb.BlockDetails]

	logger zerolog.Logger
}

// NewBlockChain returns a fully initialised block chain using information
// available in the database. An empty database gets the genesis block written.
func NewBlockChain(db ethdb.Database, genesis *types.Block) (*BlockChain, error) {
	if genesis == nil {
		return nil, ErrNoGenesis
	}
	bc := &BlockChain{
		db:            db,
		genesisBlock:  genesis,
		headerCache:   lrucache.NewCache[common.Hash, *types.Header](headerCacheLimit),
		bodyCache:     lrucache.NewCache[common.Hash, *types.Body](bodyCacheLimit),
		receiptsCache: lrucache.NewCache[common.Hash, types.Receipts](receiptsCacheLimit),
		numberCache:   lrucache.NewCache[common.Hash, uint64](numberCacheLimit),
		detailsCache:  lrucache.NewCache[common.Hash, *rawdb.BlockDetails](detailsCacheLimit),
		logger:        utils.Logger().With().Str("module", "blockchain").Logger(),
	}
	stored := rawdb.ReadCanonicalHash(db, 0)
	switch {
	case stored == (common.Hash{}):
		if err := bc.writeGenesis(genesis); err != nil {
			return nil, err
		}
	case stored != genesis.Hash():
		return nil, &GenesisMismatchError{Stored: stored, New: genesis.Hash()}
	}
	if err := bc.loadLastState(); err != nil {
		return nil, err
	}
	return bc, nil
}

// LoadBlockChain opens the chain stored in db, using the genesis block it
// already holds.
func LoadBlockChain(db ethdb.Database) (*BlockChain, error) {
	hash := rawdb.ReadCanonicalHash(db, 0)
	if hash == (common.Hash{}) {
		return nil, ErrNoGenesis
	}
	genesis := rawdb.ReadBlock(db, hash, 0)
	if genesis == nil {
		return nil, errors.Wrapf(ErrNoGenesis, "genesis block %x missing", hash)
	}
	return NewBlockChain(db, genesis)
}

func (bc *BlockChain) writeGenesis(genesis *types.Block) error {
	batch := bc.db.NewBatch()
	hash := genesis.Hash()
	td := genesis.Difficulty()
	if err := rawdb.WriteBlock(batch, genesis); err != nil {
		return err
	}
	if err := rawdb.WriteReceipts(batch, hash, 0, nil); err != nil {
		return err
	}
	if err := rawdb.WriteTd(batch, hash, 0, td); err != nil {
		return err
	}
	details := &rawdb.BlockDetails{Number: 0, TD: td, Parent: genesis.ParentHash()}
	if err := rawdb.WriteBlockDetails(batch, hash, details); err != nil {
		return err
	}
	if err := rawdb.WriteCanonicalHash(batch, hash, 0); err != nil {
		return err
	}
	if err := rawdb.WriteHeadBlockHash(batch, hash); err != nil {
		return err
	}
	if err := rawdb.WriteHeadHeaderHash(batch, hash); err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "cannot write genesis block")
	}
	bc.logger.Info().Str("hash", hash.Hex()).Msg("Wrote genesis block")
	return nil
}

// loadLastState loads the last known chain state from the database.
func (bc *BlockChain) loadLastState() error {
	head := rawdb.ReadHeadBlockHash(bc.db)
	if head == (common.Hash{}) {
		bc.logger.Warn().Msg("Empty database, resetting chain")
		bc.currentBlock.Store(bc.genesisBlock)
		return nil
	}
	current := bc.GetBlockByHash(head)
	if current == nil {
		bc.logger.Warn().Str("hash", head.Hex()).Msg("Head block missing, resetting chain")
		current = bc.genesisBlock
	}
	bc.currentBlock.Store(current)
	bc.logger.Info().
		Uint64("number", current.NumberU64()).
		Str("hash", current.Hash().Hex()).
		Msg("Loaded most recent local block")
	return nil
}

// Database returns the underlying key-value store.
func (bc *BlockChain) Database() ethdb.Database {
	return bc.db
}

// Genesis retrieves the chain's genesis block.
func (bc *BlockChain) Genesis() *types.Block {
	return bc.genesisBlock
}

// GenesisHash returns the hash of the genesis block.
func (bc *BlockChain) GenesisHash() common.Hash {
	return bc.genesisBlock.Hash()
}

// CurrentBlock retrieves the current head block of the canonical chain.
func (bc *BlockChain) CurrentBlock() *types.Block {
	return bc.currentBlock.Load().(*types.Block)
}

// BestBlockHash returns the hash of the current head block.
func (bc *BlockChain) BestBlockHash() common.Hash {
	return bc.CurrentBlock().Hash()
}

// GetBlockNumber retrieves the number of the block with the given hash.
func (bc *BlockChain) GetBlockNumber(hash common.Hash) *uint64 {
	number, ok := bc.numberCache.GetOrLoad(hash, func(hash common.Hash) (uint64, bool) {
		if number := rawdb.ReadHeaderNumber(bc.db, hash); number != nil {
			return *number, true
		}
		return 0, false
	})
	if !ok {
		return nil
	}
	return &number
}

// GetCanonicalHash returns the canonical hash of the given number, or the
// zero hash.
func (bc *BlockChain) GetCanonicalHash(number uint64) common.Hash {
	return rawdb.ReadCanonicalHash(bc.db, number)
}

// GetHeaderByHash retrieves a block header by hash.
func (bc *BlockChain) GetHeaderByHash(hash common.Hash) *types.Header {
	header, _ := bc.headerCache.GetOrLoad(hash, func(hash common.Hash) (*types.Header, bool) {
		number := bc.GetBlockNumber(hash)
		if number == nil {
			return nil, false
		}
		header := rawdb.ReadHeader(bc.db, hash, *number)
		return header, header != nil
	})
	return header
}

// GetBody retrieves a block body by hash.
func (bc *BlockChain) GetBody(hash common.Hash) *types.Body {
	body, _ := bc.bodyCache.GetOrLoad(hash, func(hash common.Hash) (*types.Body, bool) {
		number := bc.GetBlockNumber(hash)
		if number == nil {
			return nil, false
		}
		body := rawdb.ReadBody(bc.db, hash, *number)
		return body, body != nil
	})
	return body
}

// HasBlock checks if a block is fully present in the database or not.
func (bc *BlockChain) HasBlock(hash common.Hash) bool {
	number := bc.GetBlockNumber(hash)
	if number == nil {
		return false
	}
	return rawdb.HasBody(bc.db, hash, *number)
}

// GetBlockByHash retrieves a block from the database by hash.
func (bc *BlockChain) GetBlockByHash(hash common.Hash) *types.Block {
	header := bc.GetHeaderByHash(hash)
	if header == nil {
		return nil
	}
	body := bc.GetBody(hash)
	if body == nil {
		return nil
	}
	return types.NewBlockWithHeader(header).WithBody(body.Transactions, body.Uncles)
}

// GetBlockByNumber retrieves the canonical block with the given number.
func (bc *BlockChain) GetBlockByNumber(number uint64) *types.Block {
	hash := bc.GetCanonicalHash(number)
	if hash == (common.Hash{}) {
		return nil
	}
	return bc.GetBlockByHash(hash)
}

// GetReceiptsByHash retrieves the receipts for all transactions in a given block.
func (bc *BlockChain) GetReceiptsByHash(hash common.Hash) types.Receipts {
	receipts, _ := bc.receiptsCache.GetOrLoad(hash, func(hash common.Hash) (types.Receipts, bool) {
		number := bc.GetBlockNumber(hash)
		if number == nil {
			return nil, false
		}
		receipts := rawdb.ReadReceipts(bc.db, hash, *number)
		return receipts, receipts != nil
	})
	return receipts
}

// GetBlockDetails retrieves the linkage details of a block.
func (bc *BlockChain) GetBlockDetails(hash common.Hash) *rawdb.BlockDetails {
	details, _ := bc.detailsCache.GetOrLoad(hash, func(hash common.Hash) (*rawdb.BlockDetails, bool) {
		details := rawdb.ReadBlockDetails(bc.db, hash)
		return details, details != nil
	})
	return details
}

// GetTd retrieves a block's total difficulty by hash.
func (bc *BlockChain) GetTd(hash common.Hash) *big.Int {
	details := bc.GetBlockDetails(hash)
	if details == nil {
		return nil
	}
	return details.TD
}

// InsertBlock imports a block whose parent is already stored. The block
// becomes the head if it carries more total difficulty than the current head.
func (bc *BlockChain) InsertBlock(block *types.Block, receipts types.Receipts) error {
	bc.chainmu.Lock()
	defer bc.chainmu.Unlock()

	hash := block.Hash()
	if bc.HasBlock(hash) {
		return nil
	}
	parent := bc.GetBlockDetails(block.ParentHash())
	if parent == nil {
		return errors.Wrapf(ErrUnknownAncestor, "block %d parent %x", block.NumberU64(), block.ParentHash())
	}
	td := new(big.Int).Add(parent.TD, block.Difficulty())

	batch := bc.db.NewBatch()
	details, err := bc.writeBlockWithDetails(batch, block, receipts, td)
	if err != nil {
		return err
	}
	parentDetails, err := bc.linkChild(batch, block.ParentHash(), parent, hash)
	if err != nil {
		return err
	}
	reorg := td.Cmp(bc.GetTd(bc.BestBlockHash())) > 0
	if reorg {
		if err := bc.writeCanonicalChain(batch, block); err != nil {
			return err
		}
	}
	if err := batch.Write(); err != nil {
		return errors.Wrapf(err, "cannot write block %d", block.NumberU64())
	}
	bc.detailsCache.Set(hash, details)
	bc.detailsCache.Set(block.ParentHash(), parentDetails)
	if reorg {
		bc.currentBlock.Store(block)
	}
	return nil
}

// InsertUnorderedBlock imports a block whose parent may not be stored yet.
// parentTD must be given when the parent is unknown. The block is recorded
// as canonical for its number and becomes the head if isBest is set.
// It returns whether the parent was missing.
func (bc *BlockChain) InsertUnorderedBlock(
	block *types.Block, receipts types.Receipts, parentTD *big.Int, isBest bool,
) (bool, error) {
	bc.chainmu.Lock()
	defer bc.chainmu.Unlock()

	hash := block.Hash()
	if bc.HasBlock(hash) {
		return false, nil
	}
	parent := bc.GetBlockDetails(block.ParentHash())
	parentMissing := parent == nil

	var td *big.Int
	switch {
	case parentTD != nil:
		td = new(big.Int).Add(parentTD, block.Difficulty())
	case parent != nil:
		td = new(big.Int).Add(parent.TD, block.Difficulty())
	default:
		return false, errors.Wrapf(ErrUnknownParentTD, "block %d", block.NumberU64())
	}

	batch := bc.db.NewBatch()
	details, err := bc.writeBlockWithDetails(batch, block, receipts, td)
	if err != nil {
		return false, err
	}
	var parentDetails *rawdb.BlockDetails
	if !parentMissing {
		if parentDetails, err = bc.linkChild(batch, block.ParentHash(), parent, hash); err != nil {
			return false, err
		}
	}
	if err := rawdb.WriteCanonicalHash(batch, hash, block.NumberU64()); err != nil {
		return false, err
	}
	if isBest {
		if err := rawdb.WriteHeadBlockHash(batch, hash); err != nil {
			return false, err
		}
		if err := rawdb.WriteHeadHeaderHash(batch, hash); err != nil {
			return false, err
		}
	}
	if err := batch.Write(); err != nil {
		return false, errors.Wrapf(err, "cannot write block %d", block.NumberU64())
	}
	bc.detailsCache.Set(hash, details)
	if parentDetails != nil {
		bc.detailsCache.Set(block.ParentHash(), parentDetails)
	}
	if isBest {
		bc.currentBlock.Store(block)
	}
	return parentMissing, nil
}

// AddChild records child as a child of parent.
func (bc *BlockChain) AddChild(parent, child common.Hash) error {
	bc.chainmu.Lock()
	defer bc.chainmu.Unlock()

	details := bc.GetBlockDetails(parent)
	if details == nil {
		return errors.Wrapf(ErrUnknownAncestor, "parent %x", parent)
	}
	batch := bc.db.NewBatch()
	updated, err := bc.linkChild(batch, parent, details, child)
	if err != nil {
		return err
	}
	if err := batch.Write(); err != nil {
		return errors.Wrapf(err, "cannot link child %x", child)
	}
	bc.detailsCache.Set(parent, updated)
	return nil
}

func (bc *BlockChain) writeBlockWithDetails(
	batch ethdb.KeyValueWriter, block *types.Block, receipts types.Receipts, td *big.Int,
) (*rawdb.BlockDetails, error) {
	hash, number := block.Hash(), block.NumberU64()
	if err := rawdb.WriteBlock(batch, block); err != nil {
		return nil, err
	}
	if err := rawdb.WriteReceipts(batch, hash, number, receipts); err != nil {
		return nil, err
	}
	if err := rawdb.WriteTd(batch, hash, number, td); err != nil {
		return nil, err
	}
	details := &rawdb.BlockDetails{Number: number, TD: td, Parent: block.ParentHash()}
	if err := rawdb.WriteBlockDetails(batch, hash, details); err != nil {
		return nil, err
	}
	return details, nil
}

// linkChild writes a copy of the parent details with child appended. The
// cached details are never mutated in place.
func (bc *BlockChain) linkChild(
	batch ethdb.KeyValueWriter, parent common.Hash, details *rawdb.BlockDetails, child common.Hash,
) (*rawdb.BlockDetails, error) {
	if details.HasChild(child) {
		return details, nil
	}
	updated := &rawdb.BlockDetails{
		Number:   details.Number,
		TD:       details.TD,
		Parent:   details.Parent,
		Children: append(append([]common.Hash{}, details.Children...), child),
	}
	if err := rawdb.WriteBlockDetails(batch, parent, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// writeCanonicalChain makes block the head and rewrites the number to hash
// mapping back to the first ancestor already canonical.
func (bc *BlockChain) writeCanonicalChain(batch ethdb.KeyValueWriter, block *types.Block) error {
	current := bc.CurrentBlock().NumberU64()
	for n := block.NumberU64() + 1; n <= current; n++ {
		rawdb.DeleteCanonicalHash(batch, n)
	}
	number := block.NumberU64()
	if err := rawdb.WriteCanonicalHash(batch, block.Hash(), number); err != nil {
		return err
	}
	parent := block.ParentHash()
	for number > 0 {
		number--
		if rawdb.ReadCanonicalHash(bc.db, number) == parent {
			break
		}
		if err := rawdb.WriteCanonicalHash(batch, parent, number); err != nil {
			return err
		}
		header := bc.GetHeaderByHash(parent)
		if header == nil {
			return errors.Wrapf(ErrUnknownAncestor, "block %d hash %x", number, parent)
		}
		parent = header.ParentHash
	}
	if err := rawdb.WriteHeadBlockHash(batch, block.Hash()); err != nil {
		return err
	}
	return rawdb.WriteHeadHeaderHash(batch, block.Hash())
}
