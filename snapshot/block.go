package snapshot

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/pkg/errors"
)

// AbridgedBlock is a block without the header fields that are recovered
// on restoration: the parent hash and number come from the chunk position,
// the transaction root and uncle hash from the body.
type AbridgedBlock struct {
	Coinbase     common.Address
	Root         common.Hash
	ReceiptHash  common.Hash
	Bloom        types.Bloom
	Difficulty   *big.Int
	GasLimit     uint64
	GasUsed      uint64
	Time         uint64
	Extra        []byte
	MixDigest    common.Hash
	Nonce        types.BlockNonce
	Transactions []*types.Transaction
	Uncles       []*types.Header
	BaseFee      *big.Int `rlp:"optional"`
}

// NewAbridgedBlock abridges a full block.
func NewAbridgedBlock(block *types.Block) *AbridgedBlock {
	header := block.Header()
	return &AbridgedBlock{
		Coinbase:     header.Coinbase,
		Root:         header.Root,
		ReceiptHash:  header.ReceiptHash,
		Bloom:        header.Bloom,
		Difficulty:   header.Difficulty,
		GasLimit:     header.GasLimit,
		GasUsed:      header.GasUsed,
		Time:         header.Time,
		Extra:        header.Extra,
		MixDigest:    header.MixDigest,
		Nonce:        header.Nonce,
		Transactions: block.Transactions(),
		Uncles:       block.Uncles(),
		BaseFee:      header.BaseFee,
	}
}

// ToBlock expands the abridged block into the full block at the given
// position.
func (b *AbridgedBlock) ToBlock(parentHash common.Hash, number uint64) *types.Block {
	header := &types.Header{
		ParentHash:  parentHash,
		UncleHash:   types.CalcUncleHash(b.Uncles),
		Coinbase:    b.Coinbase,
		Root:        b.Root,
		TxHash:      types.DeriveSha(types.Transactions(b.Transactions), trie.NewStackTrie(nil)),
		ReceiptHash: b.ReceiptHash,
		Bloom:       b.Bloom,
		Difficulty:  b.Difficulty,
		Number:      new(big.Int).SetUint64(number),
		GasLimit:    b.GasLimit,
		GasUsed:     b.GasUsed,
		Time:        b.Time,
		Extra:       b.Extra,
		MixDigest:   b.MixDigest,
		Nonce:       b.Nonce,
		BaseFee:     b.BaseFee,
	}
	return types.NewBlockWithHeader(header).WithBody(b.Transactions, b.Uncles)
}

// blockPair is one entry of a block chunk.
type blockPair struct {
	Block    *AbridgedBlock
	Receipts []*types.ReceiptForStorage
}

// blockChunk is the payload of a block chunk. The parent fields describe
// the block preceding the first pair.
type blockChunk struct {
	ParentNumber uint64
	ParentHash   common.Hash
	ParentTD     *big.Int
	Pairs        []rlp.RawValue `rlp:"tail"`
}

func encodeBlockPair(block *types.Block, receipts types.Receipts) ([]byte, error) {
	stored := make([]*types.ReceiptForStorage, len(receipts))
	for i, receipt := range receipts {
		stored[i] = (*types.ReceiptForStorage)(receipt)
	}
	enc, err := rlp.EncodeToBytes(&blockPair{Block: NewAbridgedBlock(block), Receipts: stored})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot encode block %d", block.NumberU64())
	}
	return enc, nil
}

func decodeBlockPair(data []byte) (*AbridgedBlock, types.Receipts, error) {
	var pair blockPair
	if err := rlp.DecodeBytes(data, &pair); err != nil {
		return nil, nil, errors.Wrap(err, "cannot decode block pair")
	}
	receipts := make(types.Receipts, len(pair.Receipts))
	for i, receipt := range pair.Receipts {
		receipts[i] = (*types.Receipt)(receipt)
	}
	return pair.Block, receipts, nil
}
