// Package archive stores snapshots on disk. A packed archive is a single
// file of concatenated chunks followed by a trailer; a loose archive is a
// directory holding one file per chunk and a manifest file.
package archive

import (
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/harmony-one/snapshot/snapshot"
)

// Version is the archive format version.
const Version = 1

var (
	// ErrUnsupportedVersion is returned for archives of another format version.
	ErrUnsupportedVersion = errors.New("unsupported archive version")
	// ErrCorruptArchive is returned when the archive layout is inconsistent.
	ErrCorruptArchive = errors.New("corrupt archive")
	// ErrChunkNotFound is returned for a chunk the archive does not hold.
	ErrChunkNotFound = errors.New("chunk not found")
	// ErrArchiveExists is returned when creating over an existing archive.
	ErrArchiveExists = errors.New("archive already exists")
	// ErrFinished is returned when writing to a finished or aborted archive.
	ErrFinished = errors.New("archive already finished")
)

// Writer is a snapshot sink backed by disk. Abort discards everything
// written so far.
type Writer interface {
	snapshot.Writer
	Abort() error
}

// Reader is a snapshot source backed by disk. Chunks are checked against
// their hash before they are returned.
type Reader interface {
	snapshot.Reader
	// Codec returns the name of the codec the chunks were compressed with.
	Codec() string
	Close() error
}

// Create starts a new archive at path. It fails if path exists.
func Create(path, codec string, loose bool) (Writer, error) {
	if loose {
		return NewLooseWriter(path, codec)
	}
	return NewPackedWriter(path, codec)
}

// Open opens the archive at path, loose if path is a directory and packed
// otherwise.
func Open(path string) (Reader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open archive")
	}
	if info.IsDir() {
		return OpenLoose(path)
	}
	return OpenPacked(path)
}

func checkChunk(hash common.Hash, chunk []byte) error {
	if have := snapshot.ChunkHash(chunk); have != hash {
		return errors.Wrapf(snapshot.ErrChunkHashMismatch, "chunk %x hashes to %x", hash, have)
	}
	return nil
}
