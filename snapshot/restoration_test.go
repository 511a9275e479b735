package snapshot

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmony-one/snapshot/core/rawdb"
	"github.com/harmony-one/snapshot/internal/chain"
)

func newTestRestoration(t *testing.T) (*memSnapshot, *Restoration) {
	genesis := testGenesis(60)
	db, bc := newTestChain(t, genesis, 80)
	config := testConfig(2 * datasize.KB)
	snap, _ := takeTestSnapshot(t, db, bc, config)

	_, target := newRestoreTarget(t, bc.Genesis())
	restoration, err := NewRestoration(snap.Manifest(), target.Database(), target, chain.NewFaker(), config)
	require.NoError(t, err)
	return snap, restoration
}

func TestRestorationRecordsManifest(t *testing.T) {
	snap, restoration := newTestRestoration(t)
	enc := rawdb.ReadSnapshotManifest(restoration.states.db)
	require.NotNil(t, enc)
	manifest, err := DecodeManifest(enc)
	require.NoError(t, err)
	require.Equal(t, snap.Manifest(), manifest)
}

func TestRestorationRejectsUnknownChunk(t *testing.T) {
	snap, restoration := newTestRestoration(t)
	manifest := snap.Manifest()

	chunk := []byte("not listed")
	err := restoration.FeedStateChunk(ChunkHash(chunk), chunk)
	require.True(t, errors.Is(err, ErrUnknownChunk))

	// a block chunk is not a state chunk
	blockHash := manifest.BlockHashes[0]
	err = restoration.FeedStateChunk(blockHash, snap.blockChunks[blockHash])
	require.True(t, errors.Is(err, ErrUnknownChunk))

	status := restoration.Status()
	require.Equal(t, Ongoing, status.State)
	require.Zero(t, status.StateChunksDone)
	require.Zero(t, status.BlockChunksDone)
}

func TestRestorationRejectsHashMismatch(t *testing.T) {
	snap, restoration := newTestRestoration(t)
	manifest := snap.Manifest()

	err := restoration.FeedStateChunk(manifest.StateHashes[0], snap.stateChunks[manifest.StateHashes[1]])
	require.True(t, errors.Is(err, ErrChunkHashMismatch))
	require.Equal(t, Ongoing, restoration.Status().State)

	hash := manifest.StateHashes[0]
	require.NoError(t, restoration.FeedStateChunk(hash, snap.stateChunks[hash]))
	// fed chunks are no longer pending
	err = restoration.FeedStateChunk(hash, snap.stateChunks[hash])
	require.True(t, errors.Is(err, ErrUnknownChunk))
	require.Equal(t, 1, restoration.Status().StateChunksDone)
}

func TestRestorationFailsOnCorruptChunk(t *testing.T) {
	snap, restoration := newTestRestoration(t)
	manifest := snap.Manifest()

	// a corrupt chunk listed in the manifest passes the hash check
	corrupt := []byte{0xff, 0xff, 0xff, 0xff}
	hash := ChunkHash(corrupt)
	manifest.StateHashes = append(manifest.StateHashes, hash)
	restoration.stateChunks.Add(hash)

	require.Error(t, restoration.FeedStateChunk(hash, corrupt))
	require.Equal(t, Failed, restoration.Status().State)

	good := manifest.StateHashes[0]
	err := restoration.FeedStateChunk(good, snap.stateChunks[good])
	require.True(t, errors.Is(err, ErrRestorationFailed))
	require.False(t, restoration.IsDone())
}

func TestRestorationStatus(t *testing.T) {
	snap, restoration := newTestRestoration(t)
	manifest := snap.Manifest()

	status := restoration.Status()
	assert.Equal(t, Ongoing, status.State)
	assert.Equal(t, len(manifest.StateHashes), status.StateChunks)
	assert.Equal(t, len(manifest.BlockHashes), status.BlockChunks)

	// block chunks may come first
	for i, hash := range manifest.BlockHashes {
		require.NoError(t, restoration.FeedBlockChunk(hash, snap.blockChunks[hash]))
		require.Equal(t, i+1, restoration.Status().BlockChunksDone)
	}
	for i, hash := range manifest.StateHashes {
		require.False(t, restoration.IsDone())
		require.NoError(t, restoration.FeedStateChunk(hash, snap.stateChunks[hash]))
		require.Equal(t, i+1, restoration.Status().StateChunksDone)
	}
	require.True(t, restoration.IsDone())
	require.Equal(t, "done", restoration.Status().State.String())

	hash := manifest.StateHashes[0]
	err := restoration.FeedStateChunk(hash, snap.stateChunks[hash])
	require.True(t, errors.Is(err, ErrRestorationDone))
}

func TestRestorationStateRootMismatch(t *testing.T) {
	genesis := testGenesis(20)
	db, bc := newTestChain(t, genesis, 5)
	config := testConfig(PreferredChunkSize)
	snap, _ := takeTestSnapshot(t, db, bc, config)
	manifest := *snap.Manifest()
	manifest.StateRoot = common.Hash{0x01}

	_, target := newRestoreTarget(t, bc.Genesis())
	restoration, err := NewRestoration(&manifest, target.Database(), target, chain.NewFaker(), config)
	require.NoError(t, err)
	for _, hash := range manifest.BlockHashes {
		require.NoError(t, restoration.FeedBlockChunk(hash, snap.blockChunks[hash]))
	}
	last := len(manifest.StateHashes) - 1
	for _, hash := range manifest.StateHashes[:last] {
		require.NoError(t, restoration.FeedStateChunk(hash, snap.stateChunks[hash]))
	}
	hash := manifest.StateHashes[last]
	err = restoration.FeedStateChunk(hash, snap.stateChunks[hash])
	require.True(t, errors.Is(err, ErrStateRootMismatch))
	require.Equal(t, Failed, restoration.Status().State)
}

func TestEmptyManifestRestoresImmediately(t *testing.T) {
	genesis := types.NewBlockWithHeader(&types.Header{Number: big.NewInt(0), Difficulty: big.NewInt(1)})
	_, target := newRestoreTarget(t, genesis)
	manifest := &ManifestData{StateRoot: types.EmptyRootHash, BlockHash: genesis.Hash()}
	restoration, err := NewRestoration(manifest, target.Database(), target, chain.NewFaker(), testConfig(PreferredChunkSize))
	require.NoError(t, err)
	require.True(t, restoration.IsDone())
}

func TestRestoreFromIncompleteSnapshot(t *testing.T) {
	snap, restoration := newTestRestoration(t)
	delete(snap.stateChunks, snap.Manifest().StateHashes[0])
	err := RestoreFrom(context.Background(), snap, restoration)
	require.Error(t, err)
	require.False(t, restoration.IsDone())
}

func TestRestoreFromCancelled(t *testing.T) {
	snap, restoration := newTestRestoration(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RestoreFrom(ctx, snap, restoration)
	require.True(t, errors.Is(err, context.Canceled))
	require.Zero(t, restoration.Status().StateChunksDone)
}

func TestReportRestorationStops(t *testing.T) {
	_, restoration := newTestRestoration(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ReportRestoration(ctx, restoration, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("informant did not stop")
	}
}
