package snapshot

import (
	"runtime"

	"github.com/c2h5oh/datasize"
	"github.com/pkg/errors"
)

const (
	// PreferredChunkSize is the default target size of an uncompressed chunk.
	PreferredChunkSize = 4 * datasize.MB
	// SnapshotBlocks is the default number of blocks kept in a snapshot.
	SnapshotBlocks = 30000
	// SealVerifyRate is the default share of restored blocks whose seal is verified.
	SealVerifyRate = 0.02
	// DefaultMaxChunkSize bounds the decompressed size of a single chunk.
	DefaultMaxChunkSize = 64 * datasize.MB
)

// Config holds the parameters of snapshot creation and restoration.
type Config struct {
	// ChunkSize is the target size of the uncompressed chunk payload.
	ChunkSize datasize.ByteSize
	// RetentionBlocks is how many blocks back from the snapshot block are kept.
	RetentionBlocks uint64
	// SealVerifyRate is the probability of verifying the seal of a restored block.
	SealVerifyRate float64
	// Workers is the number of goroutines rebuilding a state chunk.
	Workers int
	// Codec names the chunk compression, "snappy" or "zstd".
	Codec string
	// MaxChunkSize bounds the decompressed size of a fed chunk.
	MaxChunkSize datasize.ByteSize
}

// DefaultConfig returns the default snapshot configuration.
func DefaultConfig() Config {
	return Config{
		ChunkSize:       PreferredChunkSize,
		RetentionBlocks: SnapshotBlocks,
		SealVerifyRate:  SealVerifyRate,
		Workers:         runtime.NumCPU(),
		Codec:           CodecSnappy,
		MaxChunkSize:    DefaultMaxChunkSize,
	}
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	if c.ChunkSize == 0 {
		return errors.New("chunk size must be positive")
	}
	if c.MaxChunkSize < c.ChunkSize {
		return errors.Errorf("max chunk size %s below chunk size %s", c.MaxChunkSize.HR(), c.ChunkSize.HR())
	}
	if c.RetentionBlocks == 0 {
		return errors.New("retention blocks must be positive")
	}
	if c.SealVerifyRate < 0 || c.SealVerifyRate > 1 {
		return errors.Errorf("seal verify rate %v out of [0, 1]", c.SealVerifyRate)
	}
	if c.Workers <= 0 {
		return errors.Errorf("invalid worker count %d", c.Workers)
	}
	if _, err := NewCodec(c.Codec, c.MaxChunkSize); err != nil {
		return err
	}
	return nil
}
