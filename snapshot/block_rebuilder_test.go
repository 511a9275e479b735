package snapshot

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/mock/gomock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/harmony-one/snapshot/consensus/engine"
	"github.com/harmony-one/snapshot/consensus/engine/mock"
	"github.com/harmony-one/snapshot/core"
	"github.com/harmony-one/snapshot/core/rawdb"
	"github.com/harmony-one/snapshot/internal/chain"
)

// encodeBlockChunk packs blocks, which must follow parent, into one raw
// block chunk.
func encodeBlockChunk(
	t testing.TB, parent *types.Block, parentTD *big.Int, blocks []*types.Block, receipts []types.Receipts,
) []byte {
	chunk := blockChunk{
		ParentNumber: parent.NumberU64(),
		ParentHash:   parent.Hash(),
		ParentTD:     parentTD,
	}
	for i, block := range blocks {
		pair, err := encodeBlockPair(block, receipts[i])
		require.NoError(t, err)
		chunk.Pairs = append(chunk.Pairs, pair)
	}
	enc, err := rlp.EncodeToBytes(&chunk)
	require.NoError(t, err)
	return enc
}

func generateBlocks(t testing.TB, n int) (*types.Block, []*types.Block, []types.Receipts) {
	genesis, err := core.DefaultGenesis().ToBlock(rawdb.NewMemoryDatabase())
	require.NoError(t, err)
	blocks, receipts := core.GenerateChain(genesis, chain.NewFaker(), n, nil)
	return genesis, blocks, receipts
}

func TestBlockRebuilderSealVerifyRate(t *testing.T) {
	const n, perChunk = 10000, 1000
	genesis, blocks, receipts := generateBlocks(t, n)
	_, bc := newRestoreTarget(t, genesis)

	ctrl := gomock.NewController(t)
	eng := mock.NewMockEngine(ctrl)
	eng.EXPECT().VerifyBlockBasic(gomock.Any()).Return(nil).Times(n)
	seals := 0
	eng.EXPECT().VerifySeal(gomock.Any()).DoAndReturn(func(*types.Header) error {
		seals++
		return nil
	}).AnyTimes()

	r := NewBlockRebuilder(bc, uint64(n), SealVerifyRate)
	r.rng = rand.New(rand.NewSource(1))

	parent, td := genesis, new(big.Int).Set(genesis.Difficulty())
	for start := 0; start < n; start += perChunk {
		end := start + perChunk
		fed, err := r.Feed(encodeBlockChunk(t, parent, td, blocks[start:end], receipts[start:end]), eng)
		require.NoError(t, err)
		require.Equal(t, uint64(perChunk), fed)
		for _, block := range blocks[start:end] {
			td.Add(td, block.Difficulty())
		}
		parent = blocks[end-1]
	}
	require.NoError(t, r.GlueChunks())

	require.GreaterOrEqual(t, seals, 150)
	require.LessOrEqual(t, seals, 250)
	require.Equal(t, blocks[n-1].Hash(), bc.BestBlockHash())
	require.Equal(t, td, bc.GetTd(bc.BestBlockHash()))
}

func TestBlockRebuilderRejectsInvalidBlock(t *testing.T) {
	genesis, blocks, receipts := generateBlocks(t, 5)
	header := blocks[2].Header()
	header.GasUsed = header.GasLimit + 1
	blocks[2] = types.NewBlockWithHeader(header).WithBody(blocks[2].Transactions(), blocks[2].Uncles())

	_, bc := newRestoreTarget(t, genesis)
	r := NewBlockRebuilder(bc, 5, 0)
	_, err := r.Feed(encodeBlockChunk(t, genesis, genesis.Difficulty(), blocks, receipts), chain.NewFaker())
	require.Error(t, err)
	require.True(t, errors.Is(err, engine.ErrGasUsed))
	require.False(t, bc.HasBlock(blocks[2].Hash()))
}

func TestBlockRebuilderRejectsInvalidSeal(t *testing.T) {
	genesis, blocks, receipts := generateBlocks(t, 3)
	_, bc := newRestoreTarget(t, genesis)

	ctrl := gomock.NewController(t)
	eng := mock.NewMockEngine(ctrl)
	eng.EXPECT().VerifyBlockBasic(gomock.Any()).Return(nil)
	eng.EXPECT().VerifySeal(gomock.Any()).Return(engine.ErrInvalidPoW)

	r := NewBlockRebuilder(bc, 3, 1)
	_, err := r.Feed(encodeBlockChunk(t, genesis, genesis.Difficulty(), blocks, receipts), eng)
	require.True(t, errors.Is(err, engine.ErrInvalidPoW))
}

func TestBlockRebuilderGlueChunks(t *testing.T) {
	genesis, blocks, receipts := generateBlocks(t, 30)
	_, bc := newRestoreTarget(t, genesis)
	r := NewBlockRebuilder(bc, 30, 0)
	eng := chain.NewFaker()

	td := func(upto int) *big.Int {
		total := new(big.Int).Set(genesis.Difficulty())
		for _, block := range blocks[:upto] {
			total.Add(total, block.Difficulty())
		}
		return total
	}
	// newest chunk first
	_, err := r.Feed(encodeBlockChunk(t, blocks[19], td(20), blocks[20:], receipts[20:]), eng)
	require.NoError(t, err)
	_, err = r.Feed(encodeBlockChunk(t, blocks[9], td(10), blocks[10:20], receipts[10:20]), eng)
	require.NoError(t, err)
	_, err = r.Feed(encodeBlockChunk(t, genesis, td(0), blocks[:10], receipts[:10]), eng)
	require.NoError(t, err)
	require.Len(t, r.disconnected, 2)

	require.Empty(t, bc.GetBlockDetails(blocks[19].Hash()).Children)
	require.NoError(t, r.GlueChunks())
	require.Empty(t, r.disconnected)

	for i := 1; i < len(blocks); i++ {
		require.Equal(t, []common.Hash{blocks[i].Hash()}, bc.GetBlockDetails(blocks[i-1].Hash()).Children, "block %d", i)
	}
	require.Equal(t, blocks[29].Hash(), bc.BestBlockHash())
	require.Equal(t, td(30), bc.GetTd(blocks[29].Hash()))
}

func TestBlockRebuilderMalformedChunk(t *testing.T) {
	genesis, _, _ := generateBlocks(t, 1)
	_, bc := newRestoreTarget(t, genesis)
	r := NewBlockRebuilder(bc, 1, 0)

	_, err := r.Feed([]byte{0x01, 0x02}, chain.NewFaker())
	require.Error(t, err)

	enc, err := rlp.EncodeToBytes(&blockChunk{
		ParentNumber: 0,
		ParentHash:   genesis.Hash(),
		ParentTD:     big.NewInt(1),
		Pairs:        []rlp.RawValue{{0x80}},
	})
	require.NoError(t, err)
	_, err = r.Feed(enc, chain.NewFaker())
	require.Error(t, err)
}

func TestBlockRebuilderRejectsForgedReceipts(t *testing.T) {
	genesis, blocks, receipts := generateBlocks(t, 5)
	receipts[2] = types.Receipts{{
		Status:            types.ReceiptStatusSuccessful,
		CumulativeGasUsed: 999999,
	}}

	_, bc := newRestoreTarget(t, genesis)
	r := NewBlockRebuilder(bc, 5, 1)
	_, err := r.Feed(encodeBlockChunk(t, genesis, genesis.Difficulty(), blocks, receipts), chain.NewFaker())
	require.True(t, errors.Is(err, engine.ErrReceiptsRoot))
	require.False(t, bc.HasBlock(blocks[2].Hash()))
	require.True(t, bc.HasBlock(blocks[1].Hash()))
}
