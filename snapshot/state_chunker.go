package snapshot

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/harmony-one/snapshot/core/state"
)

// stateChunkOverhead bounds the encoded size of the chunk list header.
const stateChunkOverhead = 9

// statePair is one entry of a state chunk: the address hash and the
// compressed fat account.
type statePair struct {
	AccountHash common.Hash
	Fat         []byte
}

type stateChunker struct {
	writer   *syncWriter
	codec    Codec
	progress *Progress
	target   uint64

	pairs  []rlp.RawValue
	size   uint64
	hashes []common.Hash
	logger zerolog.Logger
}

// chunkState writes every account of the state with the given root and
// returns the chunk hashes in account order.
func chunkState(
	ctx context.Context, db *state.Database, root common.Hash,
	writer *syncWriter, progress *Progress, config Config, logger zerolog.Logger,
) ([]common.Hash, error) {
	codec, err := NewCodec(config.Codec, config.MaxChunkSize)
	if err != nil {
		return nil, err
	}
	accounts, err := db.OpenTrie(root)
	if err != nil {
		return nil, err
	}
	nodeIt, err := accounts.NodeIterator(nil)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot iterate state %x", root)
	}
	chunker := &stateChunker{
		writer:   writer,
		codec:    codec,
		progress: progress,
		target:   config.ChunkSize.Bytes(),
		logger:   logger,
	}
	// code already embedded by an earlier account of this snapshot
	emitted := mapset.NewThreadUnsafeSet[common.Hash]()

	it := trie.NewIterator(nodeIt)
	for it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		addrHash := common.BytesToHash(it.Key)
		var thin types.StateAccount
		if err := rlp.DecodeBytes(it.Value, &thin); err != nil {
			return nil, errors.Wrapf(err, "cannot decode account %x", addrHash)
		}
		fat, err := toFat(&thin, db.AccountDB(addrHash), emitted)
		if err != nil {
			return nil, err
		}
		if err := chunker.push(addrHash, fat); err != nil {
			return nil, err
		}
	}
	if it.Err != nil {
		return nil, errors.Wrapf(it.Err, "cannot iterate state %x", root)
	}
	if len(chunker.pairs) > 0 {
		if err := chunker.writeChunk(); err != nil {
			return nil, err
		}
	}
	return chunker.hashes, nil
}

func (c *stateChunker) push(addrHash common.Hash, fat []byte) error {
	pair, err := rlp.EncodeToBytes(&statePair{AccountHash: addrHash, Fat: fat})
	if err != nil {
		return errors.Wrapf(err, "cannot encode account %x", addrHash)
	}
	if len(c.pairs) > 0 && c.size+uint64(len(pair))+stateChunkOverhead > c.target {
		if err := c.writeChunk(); err != nil {
			return err
		}
	}
	c.size += uint64(len(pair))
	c.pairs = append(c.pairs, pair)
	return nil
}

func (c *stateChunker) writeChunk() error {
	raw, err := rlp.EncodeToBytes(c.pairs)
	if err != nil {
		return errors.Wrap(err, "cannot encode state chunk")
	}
	hash, compressed := packChunk(c.codec, raw)
	if err := c.writer.WriteStateChunk(hash, compressed); err != nil {
		return errors.Wrapf(err, "cannot write state chunk %x", hash)
	}
	c.logger.Debug().
		Str("hash", hash.Hex()).
		Int("accounts", len(c.pairs)).
		Int("size", len(compressed)).
		Int("raw", len(raw)).
		Msg("Wrote state chunk")

	c.progress.addAccounts(len(c.pairs))
	c.progress.addSize(len(compressed))
	chunksWritten.WithLabelValues(chunkKindState).Inc()

	c.hashes = append(c.hashes, hash)
	c.pairs = c.pairs[:0]
	c.size = 0
	return nil
}
