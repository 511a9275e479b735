package snapshot

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/harmony-one/snapshot/consensus/engine"
	"github.com/harmony-one/snapshot/core"
	"github.com/harmony-one/snapshot/core/rawdb"
	"github.com/harmony-one/snapshot/core/state"
	"github.com/harmony-one/snapshot/internal/chain"
)

// memSnapshot keeps a snapshot in memory.
type memSnapshot struct {
	lock        sync.Mutex
	stateChunks map[common.Hash][]byte
	blockChunks map[common.Hash][]byte
	manifest    *ManifestData
}

func newMemSnapshot() *memSnapshot {
	return &memSnapshot{
		stateChunks: make(map[common.Hash][]byte),
		blockChunks: make(map[common.Hash][]byte),
	}
}

func (s *memSnapshot) WriteStateChunk(hash common.Hash, chunk []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.stateChunks[hash] = common.CopyBytes(chunk)
	return nil
}

func (s *memSnapshot) WriteBlockChunk(hash common.Hash, chunk []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.blockChunks[hash] = common.CopyBytes(chunk)
	return nil
}

func (s *memSnapshot) Finish(manifest *ManifestData) error {
	s.manifest = manifest
	return nil
}

func (s *memSnapshot) Manifest() *ManifestData {
	return s.manifest
}

func (s *memSnapshot) Chunk(hash common.Hash) ([]byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if chunk, ok := s.stateChunks[hash]; ok {
		return chunk, nil
	}
	if chunk, ok := s.blockChunks[hash]; ok {
		return chunk, nil
	}
	return nil, errors.Errorf("no chunk %x", hash)
}

var testCodes = [][]byte{
	{0x60, 0x01, 0x60, 0x02, 0x01},
	{0x60, 0x80, 0x60, 0x40, 0x52, 0x00},
	common.FromHex("0x6080604052348015600f57600080fd5b50603580601d6000396000f3fe"),
}

// testAlloc returns n accounts. Code is shared between accounts and some
// accounts have storage.
func testAlloc(n int) core.GenesisAlloc {
	alloc := make(core.GenesisAlloc, n)
	for i := 0; i < n; i++ {
		addr := common.BigToAddress(big.NewInt(int64(i + 1)))
		account := core.GenesisAccount{
			Balance: big.NewInt(int64(i+1) * 1000),
			Nonce:   uint64(i % 4),
		}
		if i%3 == 0 {
			account.Code = testCodes[i%len(testCodes)]
		}
		if i%5 == 0 {
			account.Storage = make(map[common.Hash]common.Hash)
			for j := 0; j < 1+i%20; j++ {
				account.Storage[common.BigToHash(big.NewInt(int64(j)))] = common.BigToHash(big.NewInt(int64(i*j + 1)))
			}
		}
		alloc[addr] = account
	}
	return alloc
}

func testGenesis(accounts int) *core.Genesis {
	genesis := core.DefaultGenesis()
	if accounts > 0 {
		genesis.Alloc = testAlloc(accounts)
	}
	return genesis
}

// newTestChain stores a chain of n blocks on top of genesis. Every tenth
// block carries a transaction.
func newTestChain(t testing.TB, genesis *core.Genesis, n int) (ethdb.Database, *core.BlockChain) {
	db := rawdb.NewMemoryDatabase()
	block, err := genesis.ToBlock(db)
	require.NoError(t, err)
	bc, err := core.NewBlockChain(db, block)
	require.NoError(t, err)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := types.HomesteadSigner{}
	blocks, receipts := core.GenerateChain(block, chain.NewFaker(), n, func(i int, b *core.BlockGen) {
		if i%10 == 9 {
			tx, err := types.SignTx(
				types.NewTransaction(uint64(i/10), common.Address{0xaa}, big.NewInt(int64(i)), 21000, big.NewInt(1), nil),
				signer, key,
			)
			require.NoError(t, err)
			b.AddTx(tx)
		}
	})
	for i, block := range blocks {
		require.NoError(t, bc.InsertBlock(block, receipts[i]))
	}
	return db, bc
}

func testConfig(chunkSize datasize.ByteSize) Config {
	config := DefaultConfig()
	config.ChunkSize = chunkSize
	config.Workers = 4
	return config
}

func takeTestSnapshot(t testing.TB, db ethdb.Database, bc *core.BlockChain, config Config) (*memSnapshot, *Progress) {
	snap := newMemSnapshot()
	progress := NewProgress()
	_, err := TakeSnapshot(context.Background(), bc, bc.BestBlockHash(), db, snap, progress, config)
	require.NoError(t, err)
	require.True(t, progress.Done())
	return snap, progress
}

// newRestoreTarget returns an empty store holding only the genesis block,
// without its state.
func newRestoreTarget(t testing.TB, genesis *types.Block) (ethdb.Database, *core.BlockChain) {
	db := rawdb.NewMemoryDatabase()
	bc, err := core.NewBlockChain(db, genesis)
	require.NoError(t, err)
	return db, bc
}

func restoreTestSnapshot(
	t testing.TB, genesis *types.Block, snap *memSnapshot, eng engine.Engine, config Config,
) (ethdb.Database, *core.BlockChain) {
	db, bc := newRestoreTarget(t, genesis)
	restoration, err := NewRestoration(snap.Manifest(), db, bc, eng, config)
	require.NoError(t, err)
	require.NoError(t, RestoreFrom(context.Background(), snap, restoration))
	require.True(t, restoration.IsDone())
	return db, bc
}

func requireSameState(t testing.TB, want, have ethdb.Database, root common.Hash) {
	wantDump, err := state.RawDump(state.NewDatabase(want), root)
	require.NoError(t, err)
	haveDump, err := state.RawDump(state.NewDatabase(have), root)
	require.NoError(t, err)
	require.Equal(t, wantDump, haveDump)
}
