package snapshot

import (
	"math/big"
	"math/rand"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/harmony-one/snapshot/consensus/engine"
	"github.com/harmony-one/snapshot/internal/utils"
)

// BlockWriter is the block storage a snapshot is restored into.
type BlockWriter interface {
	GetCanonicalHash(number uint64) common.Hash
	GetHeaderByHash(hash common.Hash) *types.Header
	InsertUnorderedBlock(block *types.Block, receipts types.Receipts, parentTD *big.Int, isBest bool) (bool, error)
	AddChild(parent, child common.Hash) error
}

type disconnectedHead struct {
	number uint64
	hash   common.Hash
}

// BlockRebuilder restores blocks from block chunks fed in any order. Every
// block gets the basic checks, a random share of them the seal check. The
// first block of a chunk whose parent is not restored yet is remembered and
// attached by GlueChunks.
type BlockRebuilder struct {
	chain          BlockWriter
	bestNumber     uint64
	sealVerifyRate float64
	rng            *rand.Rand
	disconnected   []disconnectedHead
	logger         zerolog.Logger
}

// NewBlockRebuilder returns a rebuilder inserting into chain. The block
// numbered bestNumber becomes the head.
func NewBlockRebuilder(chain BlockWriter, bestNumber uint64, sealVerifyRate float64) *BlockRebuilder {
	return &BlockRebuilder{
		chain:          chain,
		bestNumber:     bestNumber,
		sealVerifyRate: sealVerifyRate,
		rng:            rand.New(rand.NewSource(time.Now().UnixNano())),
		logger:         utils.GetLogger("snapshot"),
	}
}

// Feed restores the blocks of an uncompressed block chunk and returns how
// many there were.
func (r *BlockRebuilder) Feed(chunk []byte, eng engine.Engine) (uint64, error) {
	var decoded blockChunk
	if err := rlp.DecodeBytes(chunk, &decoded); err != nil {
		return 0, errors.Wrap(err, "cannot decode block chunk")
	}
	if decoded.ParentTD == nil {
		return 0, errors.New("block chunk without parent total difficulty")
	}
	number := decoded.ParentNumber + 1
	parentHash := decoded.ParentHash

	for i, pair := range decoded.Pairs {
		abridged, receipts, err := decodeBlockPair(pair)
		if err != nil {
			return 0, errors.Wrapf(err, "block %d", number)
		}
		block := abridged.ToBlock(parentHash, number)
		if err := eng.VerifyBlockBasic(block); err != nil {
			return 0, errors.Wrapf(err, "invalid block %d", number)
		}
		if r.rng.Float64() < r.sealVerifyRate {
			sealsVerified.Inc()
			if err := eng.VerifySeal(block.Header()); err != nil {
				return 0, errors.Wrapf(err, "invalid seal of block %d", number)
			}
		}
		if hash := types.DeriveSha(receipts, trie.NewStackTrie(nil)); hash != block.ReceiptHash() {
			return 0, errors.Wrapf(engine.ErrReceiptsRoot, "block %d: have %x, want %x", number, hash, block.ReceiptHash())
		}

		isBest := number == r.bestNumber
		if i == 0 {
			missing, err := r.chain.InsertUnorderedBlock(block, receipts, decoded.ParentTD, isBest)
			if err != nil {
				return 0, err
			}
			if missing {
				r.disconnected = append(r.disconnected, disconnectedHead{number: number, hash: block.Hash()})
			}
		} else if _, err := r.chain.InsertUnorderedBlock(block, receipts, nil, isBest); err != nil {
			return 0, err
		}

		parentHash = block.Hash()
		number++
	}

	blocksRestored.Add(float64(len(decoded.Pairs)))
	r.logger.Debug().
		Uint64("first", decoded.ParentNumber+1).
		Int("blocks", len(decoded.Pairs)).
		Msg("Restored block chunk")
	return uint64(len(decoded.Pairs)), nil
}

// GlueChunks attaches every disconnected chunk head to its parent when the
// parent was restored. A head whose parent lies before the snapshot's
// history stays unattached.
func (r *BlockRebuilder) GlueChunks() error {
	for _, head := range r.disconnected {
		if head.number == 0 {
			continue
		}
		parent := r.chain.GetCanonicalHash(head.number - 1)
		if parent == (common.Hash{}) {
			continue
		}
		header := r.chain.GetHeaderByHash(head.hash)
		if header == nil || header.ParentHash != parent {
			r.logger.Warn().
				Uint64("number", head.number).
				Str("hash", head.hash.Hex()).
				Msg("Chunk head does not follow the canonical parent")
			continue
		}
		if err := r.chain.AddChild(parent, head.hash); err != nil {
			return errors.Wrapf(err, "cannot glue block %d", head.number)
		}
	}
	r.disconnected = nil
	return nil
}
