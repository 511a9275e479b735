package core

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/harmony-one/snapshot/core/rawdb"
	"github.com/harmony-one/snapshot/internal/chain"
)

func newTestBlockChain(t *testing.T) (ethdb.Database, *BlockChain) {
	db := rawdb.NewMemoryDatabase()
	genesis, err := DefaultGenesis().ToBlock(db)
	require.NoError(t, err)
	bc, err := NewBlockChain(db, genesis)
	require.NoError(t, err)
	return db, bc
}

func TestNewBlockChainWritesGenesis(t *testing.T) {
	db, bc := newTestBlockChain(t)

	genesis := bc.Genesis()
	require.Equal(t, genesis.Hash(), bc.BestBlockHash())
	require.Equal(t, genesis.Hash(), rawdb.ReadCanonicalHash(db, 0))
	require.Equal(t, genesis.Difficulty(), bc.GetTd(genesis.Hash()))
	require.NotNil(t, bc.GetBlockByNumber(0))

	// reopening keeps the stored chain
	reopened, err := NewBlockChain(db, genesis)
	require.NoError(t, err)
	require.Equal(t, genesis.Hash(), reopened.BestBlockHash())
}

func TestNewBlockChainGenesisMismatch(t *testing.T) {
	db, _ := newTestBlockChain(t)

	other := DefaultGenesis()
	other.ExtraData = []byte("other genesis")
	block, err := other.ToBlock(rawdb.NewMemoryDatabase())
	require.NoError(t, err)

	_, err = NewBlockChain(db, block)
	var mismatch *GenesisMismatchError
	require.True(t, errors.As(err, &mismatch))
	require.Equal(t, block.Hash(), mismatch.New)
}

func TestInsertBlock(t *testing.T) {
	_, bc := newTestBlockChain(t)
	key, _ := crypto.GenerateKey()
	signer := types.HomesteadSigner{}

	blocks, receipts := GenerateChain(bc.Genesis(), chain.NewFaker(), 10, func(i int, b *BlockGen) {
		if i%3 == 0 {
			tx, err := types.SignTx(
				types.NewTransaction(uint64(i), common.Address{0x01}, big.NewInt(1), 21000, big.NewInt(1), nil),
				signer, key,
			)
			require.NoError(t, err)
			b.AddTx(tx)
		}
	})
	for i, block := range blocks {
		require.NoError(t, bc.InsertBlock(block, receipts[i]))
	}

	head := blocks[len(blocks)-1]
	require.Equal(t, head.Hash(), bc.BestBlockHash())
	for _, block := range blocks {
		require.Equal(t, block.Hash(), bc.GetCanonicalHash(block.NumberU64()))
		require.Equal(t, block.Hash(), bc.GetBlockByNumber(block.NumberU64()).Hash())
	}
	require.Len(t, bc.GetReceiptsByHash(blocks[0].Hash()), 1)
	require.Equal(t, []common.Hash{blocks[1].Hash()}, bc.GetBlockDetails(blocks[0].Hash()).Children)

	want := new(big.Int).Mul(bc.Genesis().Difficulty(), big.NewInt(int64(len(blocks)+1)))
	require.Equal(t, want, bc.GetTd(head.Hash()))
}

func TestInsertBlockUnknownParent(t *testing.T) {
	_, bc := newTestBlockChain(t)
	blocks, receipts := GenerateChain(bc.Genesis(), chain.NewFaker(), 2, nil)

	err := bc.InsertBlock(blocks[1], receipts[1])
	require.Equal(t, ErrUnknownAncestor, errors.Cause(err))
}

func TestInsertBlockHeavierFork(t *testing.T) {
	_, bc := newTestBlockChain(t)
	light, lightReceipts := GenerateChain(bc.Genesis(), chain.NewFaker(), 5, nil)
	for i, block := range light {
		require.NoError(t, bc.InsertBlock(block, lightReceipts[i]))
	}

	heavy, heavyReceipts := GenerateChain(light[1], chain.NewFaker(), 2, func(i int, b *BlockGen) {
		b.SetDifficulty(big.NewInt(1000))
	})
	for i, block := range heavy {
		require.NoError(t, bc.InsertBlock(block, heavyReceipts[i]))
	}

	require.Equal(t, heavy[1].Hash(), bc.BestBlockHash())
	require.Equal(t, light[1].Hash(), bc.GetCanonicalHash(2))
	require.Equal(t, heavy[0].Hash(), bc.GetCanonicalHash(3))
	require.Equal(t, heavy[1].Hash(), bc.GetCanonicalHash(4))
	require.Equal(t, common.Hash{}, bc.GetCanonicalHash(5))
	require.Len(t, bc.GetBlockDetails(light[1].Hash()).Children, 2)
}

func TestInsertUnorderedBlock(t *testing.T) {
	db, bc := newTestBlockChain(t)
	blocks, receipts := GenerateChain(bc.Genesis(), chain.NewFaker(), 6, nil)

	// second half first, anchored by an explicit parent total difficulty
	parentTD := new(big.Int).Mul(bc.Genesis().Difficulty(), big.NewInt(4))
	missing, err := bc.InsertUnorderedBlock(blocks[3], receipts[3], parentTD, false)
	require.NoError(t, err)
	require.True(t, missing)
	for i := 4; i < 6; i++ {
		missing, err := bc.InsertUnorderedBlock(blocks[i], receipts[i], nil, i == 5)
		require.NoError(t, err)
		require.False(t, missing)
	}
	require.Equal(t, blocks[5].Hash(), bc.BestBlockHash())

	missing, err = bc.InsertUnorderedBlock(blocks[0], receipts[0], bc.GetTd(bc.GenesisHash()), false)
	require.NoError(t, err)
	require.False(t, missing)
	for i := 1; i < 3; i++ {
		_, err := bc.InsertUnorderedBlock(blocks[i], receipts[i], nil, false)
		require.NoError(t, err)
	}
	require.False(t, bc.GetBlockDetails(blocks[2].Hash()).HasChild(blocks[3].Hash()))

	require.NoError(t, bc.AddChild(blocks[2].Hash(), blocks[3].Hash()))
	require.True(t, bc.GetBlockDetails(blocks[2].Hash()).HasChild(blocks[3].Hash()))
	require.Equal(t, bc.GetTd(blocks[5].Hash()), rawdb.ReadBlockDetails(db, blocks[5].Hash()).TD)

	// reinserting a known block is a no-op
	missing, err = bc.InsertUnorderedBlock(blocks[3], receipts[3], nil, false)
	require.NoError(t, err)
	require.False(t, missing)

	reopened, err := NewBlockChain(db, bc.Genesis())
	require.NoError(t, err)
	require.Equal(t, blocks[5].Hash(), reopened.BestBlockHash())
	for _, block := range blocks {
		require.Equal(t, block.Hash(), reopened.GetCanonicalHash(block.NumberU64()))
	}
}

func TestInsertUnorderedBlockWithoutTD(t *testing.T) {
	_, bc := newTestBlockChain(t)
	blocks, receipts := GenerateChain(bc.Genesis(), chain.NewFaker(), 2, nil)

	_, err := bc.InsertUnorderedBlock(blocks[1], receipts[1], nil, false)
	require.Equal(t, ErrUnknownParentTD, errors.Cause(err))
}

func TestGenerateChainSealed(t *testing.T) {
	_, bc := newTestBlockChain(t)
	e := chain.NewEngine(chain.DefaultConfig)
	blocks, _ := GenerateChain(bc.Genesis(), e, 4, func(i int, b *BlockGen) {
		b.SetExtra([]byte{byte(i)})
	})
	parent := bc.Genesis()
	for _, block := range blocks {
		require.Equal(t, parent.Hash(), block.ParentHash())
		require.NoError(t, e.VerifyBlockBasic(block))
		require.NoError(t, e.VerifySeal(block.Header()))
		parent = block
	}
}

func TestLoadBlockChain(t *testing.T) {
	_, err := LoadBlockChain(rawdb.NewMemoryDatabase())
	require.True(t, errors.Is(err, ErrNoGenesis))

	db, bc := newTestBlockChain(t)
	blocks, receipts := GenerateChain(bc.Genesis(), chain.NewFaker(), 3, nil)
	for i, block := range blocks {
		require.NoError(t, bc.InsertBlock(block, receipts[i]))
	}
	loaded, err := LoadBlockChain(db)
	require.NoError(t, err)
	require.Equal(t, bc.GenesisHash(), loaded.GenesisHash())
	require.Equal(t, blocks[2].Hash(), loaded.BestBlockHash())
}
