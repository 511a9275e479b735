package chain

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/harmony-one/snapshot/consensus/engine"
)

var (
	_ engine.Sealer = (*engineImpl)(nil)
	_ engine.Sealer = (*fakeEngine)(nil)
)

func makeTestBlock(modify func(h *types.Header)) *types.Block {
	header := &types.Header{
		ParentHash: common.HexToHash("0x01"),
		Number:     big.NewInt(1),
		Difficulty: big.NewInt(64),
		GasLimit:   8000000,
		GasUsed:    21000,
		Time:       1000,
		Extra:      []byte("test"),
	}
	if modify != nil {
		modify(header)
	}
	return types.NewBlock(header, nil, nil, nil, trie.NewStackTrie(nil))
}

func TestVerifyBlockBasic(t *testing.T) {
	e := NewEngine(DefaultConfig)
	e.now = func() time.Time { return time.Unix(1000, 0) }

	tests := []struct {
		name   string
		modify func(h *types.Header)
		err    error
	}{
		{"valid", nil, nil},
		{"genesis number", func(h *types.Header) { h.Number = big.NewInt(0) }, engine.ErrInvalidNumber},
		{"zero difficulty", func(h *types.Header) { h.Difficulty = big.NewInt(0) }, engine.ErrInvalidDifficulty},
		{"extra too long", func(h *types.Header) { h.Extra = make([]byte, 33) }, engine.ErrExtraDataTooLong},
		{"gas limit too low", func(h *types.Header) { h.GasLimit, h.GasUsed = 100, 0 }, engine.ErrGasLimit},
		{"gas used over limit", func(h *types.Header) { h.GasUsed = h.GasLimit + 1 }, engine.ErrGasUsed},
		{"future block", func(h *types.Header) { h.Time = 2000 }, engine.ErrFutureBlock},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := e.VerifyBlockBasic(makeTestBlock(test.modify))
			if test.err == nil {
				require.NoError(t, err)
			} else {
				require.Equal(t, test.err, errors.Cause(err))
			}
		})
	}
}

func TestVerifyBlockBasicBody(t *testing.T) {
	e := NewEngine(DefaultConfig)
	e.now = func() time.Time { return time.Unix(1000, 0) }

	block := makeTestBlock(nil)
	uncle := &types.Header{Number: big.NewInt(0), Difficulty: big.NewInt(1)}

	tampered := types.NewBlockWithHeader(block.Header()).WithBody(nil, []*types.Header{uncle})
	require.Equal(t, engine.ErrUncleHash, errors.Cause(e.VerifyBlockBasic(tampered)))

	header := block.Header()
	header.TxHash = common.HexToHash("0xdead")
	tampered = types.NewBlockWithHeader(header).WithBody(nil, nil)
	require.Equal(t, engine.ErrTxRoot, errors.Cause(e.VerifyBlockBasic(tampered)))
}

func TestSealAndVerify(t *testing.T) {
	e := NewEngine(DefaultConfig)
	header := makeTestBlock(nil).Header()

	require.NoError(t, e.Seal(header))
	require.NoError(t, e.VerifySeal(header))
	// cached
	require.NoError(t, e.VerifySeal(header))

	wrongMix := types.CopyHeader(header)
	wrongMix.MixDigest = common.HexToHash("0xbeef")
	require.Equal(t, engine.ErrInvalidMixDigest, errors.Cause(e.VerifySeal(wrongMix)))

	wrongNonce := types.CopyHeader(header)
	wrongNonce.Nonce = types.EncodeNonce(header.Nonce.Uint64() + 1)
	require.Equal(t, engine.ErrInvalidMixDigest, errors.Cause(e.VerifySeal(wrongNonce)))

	other := types.CopyHeader(header)
	other.GasUsed++
	require.Error(t, NewEngine(DefaultConfig).VerifySeal(other))
}

func TestFakerAcceptsAnySeal(t *testing.T) {
	e := NewFaker()
	header := makeTestBlock(nil).Header()
	header.MixDigest = common.HexToHash("0xbeef")
	require.NoError(t, e.VerifySeal(header))
	require.NoError(t, e.Seal(header))
	require.Equal(t, common.HexToHash("0xbeef"), header.MixDigest)

	bad := makeTestBlock(func(h *types.Header) { h.GasUsed = h.GasLimit + 1 })
	require.Equal(t, engine.ErrGasUsed, errors.Cause(e.VerifyBlockBasic(bad)))
}
