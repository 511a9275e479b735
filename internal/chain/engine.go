package chain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"

	"github.com/harmony-one/snapshot/consensus/engine"
	"github.com/harmony-one/snapshot/internal/utils/lrucache"
	"github.com/harmony-one/snapshot/pow"
)

const (
	verifiedSealCache = 4096
	maxUncles         = 2
)

// Config holds the consensus parameters checked by the engine.
type Config struct {
	MinGasLimit      uint64
	MaxGasLimit      uint64
	MaxExtraDataSize uint64
	// AllowedFutureBlockTime bounds how far ahead of the local clock a block
	// timestamp may be. Zero disables the check.
	AllowedFutureBlockTime time.Duration
}

// DefaultConfig is the configuration used by the node.
var DefaultConfig = Config{
	MinGasLimit:            5000,
	MaxGasLimit:            0x7fffffffffffffff,
	MaxExtraDataSize:       32,
	AllowedFutureBlockTime: 15 * time.Second,
}

type engineImpl struct {
	config Config
	// sealHash -> struct{}
	verifiedSealCache *lrucache.Cache[common.Hash, struct{}]
	// clock is replaceable for tests
	now func() time.Time
}

// NewEngine creates the proof-of-work engine with some cache
func NewEngine(config Config) *engineImpl {
	return &engineImpl{
		config:            config,
		verifiedSealCache: lrucache.NewCache[common.Hash, struct{}](verifiedSealCache),
		now:               time.Now,
	}
}

// VerifyBlockBasic checks the header bounds and that the header commits to the
// transactions and uncles of the body.
func (e *engineImpl) VerifyBlockBasic(block *types.Block) error {
	return verifyBlockBasic(e.config, e.now, block)
}

// VerifySeal checks that the mix digest is keccak(sealHash || nonce) and that
// it meets the target of the header difficulty.
func (e *engineImpl) VerifySeal(header *types.Header) error {
	if header.Difficulty == nil || header.Difficulty.Sign() <= 0 {
		return engine.ErrInvalidDifficulty
	}
	// keyed by the full header hash, which covers the nonce and mix digest
	hash := header.Hash()
	if e.verifiedSealCache.Contains(hash) {
		return nil
	}
	sealHash := SealHash(header)
	nonce := header.Nonce.Uint64()
	if pow.Mix(sealHash, nonce) != header.MixDigest {
		return errors.Wrapf(engine.ErrInvalidMixDigest, "block %d", header.Number.Uint64())
	}
	if !pow.Check(sealHash, nonce, header.MixDigest, header.Difficulty) {
		return errors.Wrapf(engine.ErrInvalidPoW, "block %d", header.Number.Uint64())
	}
	e.verifiedSealCache.Set(hash, struct{}{})
	return nil
}

// Seal solves the proof-of-work puzzle of the header.
func (e *engineImpl) Seal(header *types.Header) error {
	if header.Difficulty == nil || header.Difficulty.Sign() <= 0 {
		return engine.ErrInvalidDifficulty
	}
	nonce, mix := pow.Solve(SealHash(header), header.Difficulty, 0)
	header.Nonce = types.EncodeNonce(nonce)
	header.MixDigest = mix
	return nil
}

// SealHash returns the hash of a block prior to it being sealed.
func SealHash(header *types.Header) (hash common.Hash) {
	hasher := sha3.NewLegacyKeccak256()

	enc := []interface{}{
		header.ParentHash,
		header.UncleHash,
		header.Coinbase,
		header.Root,
		header.TxHash,
		header.ReceiptHash,
		header.Bloom,
		header.Difficulty,
		header.Number,
		header.GasLimit,
		header.GasUsed,
		header.Time,
		header.Extra,
	}
	if header.BaseFee != nil {
		enc = append(enc, header.BaseFee)
	}
	rlp.Encode(hasher, enc)
	hasher.Sum(hash[:0])
	return hash
}

func verifyBlockBasic(config Config, now func() time.Time, block *types.Block) error {
	header := block.Header()
	if header.Number == nil || header.Number.Sign() <= 0 {
		return engine.ErrInvalidNumber
	}
	if header.Difficulty == nil || header.Difficulty.Sign() <= 0 {
		return errors.Wrapf(engine.ErrInvalidDifficulty, "block %d", header.Number.Uint64())
	}
	if uint64(len(header.Extra)) > config.MaxExtraDataSize {
		return errors.Wrapf(engine.ErrExtraDataTooLong, "block %d: %d > %d",
			header.Number.Uint64(), len(header.Extra), config.MaxExtraDataSize)
	}
	if header.GasLimit < config.MinGasLimit || header.GasLimit > config.MaxGasLimit {
		return errors.Wrapf(engine.ErrGasLimit, "block %d: %d", header.Number.Uint64(), header.GasLimit)
	}
	if header.GasUsed > header.GasLimit {
		return errors.Wrapf(engine.ErrGasUsed, "block %d: %d > %d",
			header.Number.Uint64(), header.GasUsed, header.GasLimit)
	}
	if config.AllowedFutureBlockTime > 0 {
		limit := now().Add(config.AllowedFutureBlockTime)
		if header.Time > uint64(limit.Unix()) {
			return errors.Wrapf(engine.ErrFutureBlock, "block %d", header.Number.Uint64())
		}
	}
	if len(block.Uncles()) > maxUncles {
		return errors.Wrapf(engine.ErrTooManyUncles, "block %d: %d", header.Number.Uint64(), len(block.Uncles()))
	}
	if hash := types.CalcUncleHash(block.Uncles()); hash != header.UncleHash {
		return errors.Wrapf(engine.ErrUncleHash, "block %d: have %x, want %x", header.Number.Uint64(), hash, header.UncleHash)
	}
	if hash := types.DeriveSha(block.Transactions(), trie.NewStackTrie(nil)); hash != header.TxHash {
		return errors.Wrapf(engine.ErrTxRoot, "block %d: have %x, want %x", header.Number.Uint64(), hash, header.TxHash)
	}
	return nil
}
