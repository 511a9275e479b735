package snapshot

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/harmony-one/snapshot/core/rawdb"
)

// blockChunkOverhead bounds the encoded size of the chunk list header plus
// the parent number, hash and total difficulty.
const blockChunkOverhead = 9 + 9 + 33 + 34

// BlockReader is the block storage a snapshot is taken from.
type BlockReader interface {
	GenesisHash() common.Hash
	GetCanonicalHash(number uint64) common.Hash
	GetHeaderByHash(hash common.Hash) *types.Header
	GetBlockByHash(hash common.Hash) *types.Block
	GetReceiptsByHash(hash common.Hash) types.Receipts
	GetBlockDetails(hash common.Hash) *rawdb.BlockDetails
}

type blockChunker struct {
	chain    BlockReader
	writer   *syncWriter
	codec    Codec
	progress *Progress
	target   uint64

	// pairs are buffered newest first
	pairs   []rlp.RawValue
	loaded  uint64
	current common.Hash
	hashes  []common.Hash
	logger  zerolog.Logger
}

// chunkBlocks writes the blocks from the given one back to the retention
// boundary and returns the chunk hashes, the newest blocks first.
func chunkBlocks(
	ctx context.Context, chain BlockReader, number uint64, hash common.Hash,
	writer *syncWriter, progress *Progress, config Config, logger zerolog.Logger,
) ([]common.Hash, error) {
	var first common.Hash
	if number < config.RetentionBlocks {
		first = chain.GenesisHash()
	} else {
		first = chain.GetCanonicalHash(number - config.RetentionBlocks)
		if first == (common.Hash{}) {
			return nil, errors.Wrapf(ErrIncompleteChain, "no block %d", number-config.RetentionBlocks)
		}
	}
	codec, err := NewCodec(config.Codec, config.MaxChunkSize)
	if err != nil {
		return nil, err
	}
	chunker := &blockChunker{
		chain:    chain,
		writer:   writer,
		codec:    codec,
		progress: progress,
		target:   config.ChunkSize.Bytes(),
		current:  hash,
		logger:   logger,
	}
	if err := chunker.chunkAll(ctx, first); err != nil {
		return nil, err
	}
	return chunker.hashes, nil
}

// chunkAll walks back from the current block until first, which is not
// included.
func (c *blockChunker) chunkAll(ctx context.Context, first common.Hash) error {
	for c.current != first {
		if err := ctx.Err(); err != nil {
			return err
		}
		block := c.chain.GetBlockByHash(c.current)
		if block == nil {
			return errors.Wrapf(ErrBlockNotFound, "hash %x", c.current)
		}
		pair, err := encodeBlockPair(block, c.chain.GetReceiptsByHash(c.current))
		if err != nil {
			return err
		}
		// the block being inspected is the parent of the buffered ones
		if len(c.pairs) > 0 && c.loaded+uint64(len(pair))+blockChunkOverhead > c.target {
			if err := c.writeChunk(); err != nil {
				return err
			}
		}
		c.loaded += uint64(len(pair))
		c.pairs = append(c.pairs, pair)
		c.current = block.ParentHash()
	}
	if len(c.pairs) > 0 {
		return c.writeChunk()
	}
	return nil
}

// writeChunk flushes the buffered pairs. The current block is the parent of
// the oldest buffered block.
func (c *blockChunker) writeChunk() error {
	parent := c.current
	details := c.chain.GetBlockDetails(parent)
	if details == nil {
		return errors.Wrapf(ErrBlockNotFound, "parent %x", parent)
	}
	chunk := blockChunk{
		ParentNumber: details.Number,
		ParentHash:   parent,
		ParentTD:     new(big.Int).Set(details.TD),
		Pairs:        make([]rlp.RawValue, 0, len(c.pairs)),
	}
	for i := len(c.pairs) - 1; i >= 0; i-- {
		chunk.Pairs = append(chunk.Pairs, c.pairs[i])
	}
	raw, err := rlp.EncodeToBytes(&chunk)
	if err != nil {
		return errors.Wrap(err, "cannot encode block chunk")
	}
	hash, compressed := packChunk(c.codec, raw)
	if err := c.writer.WriteBlockChunk(hash, compressed); err != nil {
		return errors.Wrapf(err, "cannot write block chunk %x", hash)
	}
	c.logger.Debug().
		Str("hash", hash.Hex()).
		Int("blocks", len(c.pairs)).
		Uint64("first", details.Number+1).
		Int("size", len(compressed)).
		Int("raw", len(raw)).
		Msg("Wrote block chunk")

	c.progress.addBlocks(len(c.pairs))
	c.progress.addSize(len(compressed))
	chunksWritten.WithLabelValues(chunkKindBlock).Inc()

	c.hashes = append(c.hashes, hash)
	c.pairs = c.pairs[:0]
	c.loaded = 0
	return nil
}
