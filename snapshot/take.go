// Package snapshot takes and restores chunked snapshots of the chain: the
// recent blocks with their receipts and the full account state at the
// snapshot block. Chunks are compressed and addressed by the hash of their
// compressed bytes.
package snapshot

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/harmony-one/snapshot/core/state"
	"github.com/harmony-one/snapshot/internal/utils"
)

// Writer receives the chunks of a snapshot being taken.
type Writer interface {
	WriteStateChunk(hash common.Hash, chunk []byte) error
	WriteBlockChunk(hash common.Hash, chunk []byte) error
	Finish(manifest *ManifestData) error
}

// Reader serves the chunks of a snapshot.
type Reader interface {
	Manifest() *ManifestData
	Chunk(hash common.Hash) ([]byte, error)
}

// syncWriter serializes the chunkers' writes. Only the write call itself
// holds the lock.
type syncWriter struct {
	mu sync.Mutex
	w  Writer
}

func (s *syncWriter) WriteStateChunk(hash common.Hash, chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.WriteStateChunk(hash, chunk)
}

func (s *syncWriter) WriteBlockChunk(hash common.Hash, chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.WriteBlockChunk(hash, chunk)
}

// TakeSnapshot writes the snapshot of the block with the given hash: its
// state and the blocks back to the retention boundary. Blocks and state are
// chunked concurrently and the first failure cancels the other pass. The
// manifest is passed to writer.Finish and returned.
func TakeSnapshot(
	ctx context.Context, chain BlockReader, blockHash common.Hash, db ethdb.Database,
	writer Writer, progress *Progress, config Config,
) (*ManifestData, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	header := chain.GetHeaderByHash(blockHash)
	if header == nil {
		return nil, errors.Wrapf(ErrInvalidStartingBlock, "hash %x", blockHash)
	}
	number := header.Number.Uint64()
	logger := utils.GetLogger("snapshot")
	logger.Info().
		Uint64("number", number).
		Str("hash", blockHash.Hex()).
		Str("root", header.Root.Hex()).
		Msg("Taking snapshot")

	sink := &syncWriter{w: writer}
	g, gctx := errgroup.WithContext(ctx)
	var blockHashes, stateHashes []common.Hash
	g.Go(func() (err error) {
		blockHashes, err = chunkBlocks(gctx, chain, number, blockHash, sink, progress, config, logger)
		return errors.Wrap(err, "cannot chunk blocks")
	})
	g.Go(func() (err error) {
		stateHashes, err = chunkState(gctx, state.NewDatabase(db), header.Root, sink, progress, config, logger)
		return errors.Wrap(err, "cannot chunk state")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger.Info().
		Int("stateChunks", len(stateHashes)).
		Int("blockChunks", len(blockHashes)).
		Msg("Produced snapshot chunks")

	manifest := &ManifestData{
		StateHashes: stateHashes,
		BlockHashes: blockHashes,
		StateRoot:   header.Root,
		BlockNumber: number,
		BlockHash:   blockHash,
	}
	if err := writer.Finish(manifest); err != nil {
		return nil, errors.Wrap(err, "cannot finish snapshot")
	}
	progress.markDone()
	return manifest, nil
}
