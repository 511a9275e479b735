package snapshot

import (
	"bytes"
	"testing"

	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestCodecs(t *testing.T) {
	payload := bytes.Repeat([]byte("harmony snapshot chunk "), 512)
	for _, name := range []string{CodecSnappy, CodecZstd} {
		t.Run(name, func(t *testing.T) {
			codec, err := NewCodec(name, DefaultMaxChunkSize)
			require.NoError(t, err)
			require.Equal(t, name, codec.Name())

			compressed := codec.Compress(payload)
			require.Less(t, len(compressed), len(payload))
			// deterministic, so chunk hashes are stable
			require.Equal(t, compressed, codec.Compress(payload))

			raw, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Equal(t, payload, raw)

			_, err = codec.Decompress([]byte{0xff, 0xfe, 0xfd})
			require.Error(t, err)
		})
	}
}

func TestCodecRejectsLargeChunk(t *testing.T) {
	payload := make([]byte, 8*datasize.KB)
	for _, name := range []string{CodecSnappy, CodecZstd} {
		t.Run(name, func(t *testing.T) {
			big, err := NewCodec(name, DefaultMaxChunkSize)
			require.NoError(t, err)
			small, err := NewCodec(name, 4*datasize.KB)
			require.NoError(t, err)

			_, err = small.Decompress(big.Compress(payload))
			require.True(t, errors.Is(err, ErrChunkTooLarge), "%v", err)
		})
	}
}

func TestUnknownCodec(t *testing.T) {
	_, err := NewCodec("lz4", DefaultMaxChunkSize)
	require.True(t, errors.Is(err, ErrUnknownCodec))

	codec, err := NewCodec("", DefaultMaxChunkSize)
	require.NoError(t, err)
	require.Equal(t, CodecSnappy, codec.Name())
}

func TestCompressRecord(t *testing.T) {
	raw := []byte("account record")
	out, err := decompressRecord(compressRecord(raw))
	require.NoError(t, err)
	require.Equal(t, raw, out)

	_, err = decompressRecord([]byte{0xff})
	require.Error(t, err)
}
