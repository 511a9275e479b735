package snapshot

import (
	"github.com/c2h5oh/datasize"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

const (
	// CodecSnappy compresses chunks with snappy block compression.
	CodecSnappy = "snappy"
	// CodecZstd compresses chunks with zstd frames.
	CodecZstd = "zstd"
)

// Codec compresses whole chunks. Compression must be deterministic: the
// same payload always yields the same bytes, and so the same chunk hash.
type Codec interface {
	Name() string
	Compress(src []byte) []byte
	Decompress(src []byte) ([]byte, error)
}

// NewCodec returns the codec with the given name. Decompression fails with
// ErrChunkTooLarge beyond maxSize bytes.
func NewCodec(name string, maxSize datasize.ByteSize) (Codec, error) {
	switch name {
	case CodecSnappy, "":
		return &snappyCodec{maxSize: maxSize.Bytes()}, nil
	case CodecZstd:
		enc, err := zstd.NewWriter(nil,
			zstd.WithEncoderConcurrency(1),
			zstd.WithEncoderLevel(zstd.SpeedDefault),
		)
		if err != nil {
			return nil, errors.Wrap(err, "cannot create zstd encoder")
		}
		dec, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(maxSize.Bytes()),
		)
		if err != nil {
			return nil, errors.Wrap(err, "cannot create zstd decoder")
		}
		return &zstdCodec{enc: enc, dec: dec, maxSize: maxSize.Bytes()}, nil
	}
	return nil, errors.Wrapf(ErrUnknownCodec, "%q", name)
}

type snappyCodec struct {
	maxSize uint64
}

func (c *snappyCodec) Name() string { return CodecSnappy }

func (c *snappyCodec) Compress(src []byte) []byte {
	return snappy.Encode(nil, src)
}

func (c *snappyCodec) Decompress(src []byte) ([]byte, error) {
	n, err := snappy.DecodedLen(src)
	if err != nil {
		return nil, errors.Wrap(err, "corrupt snappy chunk")
	}
	if uint64(n) > c.maxSize {
		return nil, errors.Wrapf(ErrChunkTooLarge, "%d bytes", n)
	}
	return snappy.Decode(nil, src)
}

type zstdCodec struct {
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	maxSize uint64
}

func (c *zstdCodec) Name() string { return CodecZstd }

func (c *zstdCodec) Compress(src []byte) []byte {
	return c.enc.EncodeAll(src, nil)
}

func (c *zstdCodec) Decompress(src []byte) ([]byte, error) {
	out, err := c.dec.DecodeAll(src, nil)
	if err != nil {
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
			return nil, errors.Wrap(ErrChunkTooLarge, err.Error())
		}
		return nil, errors.Wrap(err, "corrupt zstd chunk")
	}
	if uint64(len(out)) > c.maxSize {
		return nil, errors.Wrapf(ErrChunkTooLarge, "%d bytes", len(out))
	}
	return out, nil
}

// ChunkHash returns the content address of a compressed chunk.
func ChunkHash(compressed []byte) common.Hash {
	return crypto.Keccak256Hash(compressed)
}

// packChunk compresses a raw chunk payload and returns its address.
func packChunk(codec Codec, raw []byte) (common.Hash, []byte) {
	compressed := codec.Compress(raw)
	return ChunkHash(compressed), compressed
}

// compressRecord compresses a fat account record. Records use snappy
// regardless of the chunk codec, so state chunk payloads do not depend on
// the archive's compression.
func compressRecord(raw []byte) []byte {
	return snappy.Encode(nil, raw)
}

func decompressRecord(compressed []byte) ([]byte, error) {
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, errors.Wrap(err, "corrupt account record")
	}
	return raw, nil
}
