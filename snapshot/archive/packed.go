package archive

import (
	"encoding/binary"
	"io"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/harmony-one/snapshot/internal/utils"
	"github.com/harmony-one/snapshot/snapshot"
)

// trailerOffsetSize is the size of the little endian trailer offset ending
// a packed archive.
const trailerOffsetSize = 8

type chunkInfo struct {
	Hash   common.Hash
	Length uint64
	Offset uint64
}

type packedTrailer struct {
	Version     uint64
	Codec       string
	StateChunks []chunkInfo
	BlockChunks []chunkInfo
	StateRoot   common.Hash
	BlockNumber uint64
	BlockHash   common.Hash
}

// PackedWriter appends chunks to a single file and ends it with the trailer
// on Finish.
type PackedWriter struct {
	lock   sync.Mutex
	path   string
	codec  string
	file   *os.File
	offset uint64
	chunks map[common.Hash]chunkInfo
	closed bool
	logger zerolog.Logger
}

// NewPackedWriter creates the packed archive file at path.
func NewPackedWriter(path, codec string) (*PackedWriter, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, errors.Wrap(ErrArchiveExists, path)
		}
		return nil, errors.Wrap(err, "cannot create packed archive")
	}
	return &PackedWriter{
		path:   path,
		codec:  codec,
		file:   file,
		chunks: make(map[common.Hash]chunkInfo),
		logger: utils.GetLogger("archive").With().Str("path", path).Logger(),
	}, nil
}

// WriteStateChunk appends a state chunk.
func (w *PackedWriter) WriteStateChunk(hash common.Hash, chunk []byte) error {
	return w.write(hash, chunk)
}

// WriteBlockChunk appends a block chunk.
func (w *PackedWriter) WriteBlockChunk(hash common.Hash, chunk []byte) error {
	return w.write(hash, chunk)
}

func (w *PackedWriter) write(hash common.Hash, chunk []byte) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.closed {
		return ErrFinished
	}
	if _, ok := w.chunks[hash]; ok {
		return nil
	}
	if _, err := w.file.Write(chunk); err != nil {
		return errors.Wrapf(err, "cannot write chunk %x", hash)
	}
	w.chunks[hash] = chunkInfo{Hash: hash, Length: uint64(len(chunk)), Offset: w.offset}
	w.offset += uint64(len(chunk))
	return nil
}

// Finish writes the trailer describing manifest and closes the file. Every
// chunk the manifest lists must have been written.
func (w *PackedWriter) Finish(manifest *snapshot.ManifestData) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.closed {
		return ErrFinished
	}
	trailer := packedTrailer{
		Version:     Version,
		Codec:       w.codec,
		StateRoot:   manifest.StateRoot,
		BlockNumber: manifest.BlockNumber,
		BlockHash:   manifest.BlockHash,
	}
	var err error
	if trailer.StateChunks, err = w.infos(manifest.StateHashes); err != nil {
		return err
	}
	if trailer.BlockChunks, err = w.infos(manifest.BlockHashes); err != nil {
		return err
	}
	enc, err := rlp.EncodeToBytes(&trailer)
	if err != nil {
		return errors.Wrap(err, "cannot encode trailer")
	}
	enc = binary.LittleEndian.AppendUint64(enc, w.offset)
	if _, err := w.file.Write(enc); err != nil {
		return errors.Wrap(err, "cannot write trailer")
	}
	if err := w.file.Sync(); err != nil {
		return errors.Wrap(err, "cannot sync packed archive")
	}
	w.closed = true
	if err := w.file.Close(); err != nil {
		return errors.Wrap(err, "cannot close packed archive")
	}
	w.logger.Info().
		Int("stateChunks", len(trailer.StateChunks)).
		Int("blockChunks", len(trailer.BlockChunks)).
		Uint64("bytes", w.offset).
		Msg("Packed archive written")
	return nil
}

func (w *PackedWriter) infos(hashes []common.Hash) ([]chunkInfo, error) {
	infos := make([]chunkInfo, 0, len(hashes))
	for _, hash := range hashes {
		info, ok := w.chunks[hash]
		if !ok {
			return nil, errors.Wrapf(ErrChunkNotFound, "manifest chunk %x was never written", hash)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Abort closes and removes the archive file.
func (w *PackedWriter) Abort() error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if !w.closed {
		w.closed = true
		w.file.Close()
	}
	if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "cannot remove packed archive")
	}
	w.logger.Warn().Msg("Packed archive removed")
	return nil
}

// PackedReader serves chunks from a packed archive.
type PackedReader struct {
	file     *os.File
	codec    string
	manifest *snapshot.ManifestData
	chunks   map[common.Hash]chunkInfo
}

// OpenPacked opens a packed archive and reads its trailer.
func OpenPacked(path string) (*PackedReader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open packed archive")
	}
	r, err := readPacked(file)
	if err != nil {
		file.Close()
		return nil, errors.Wrapf(err, "packed archive %s", path)
	}
	return r, nil
}

func readPacked(file *os.File) (*PackedReader, error) {
	info, err := file.Stat()
	if err != nil {
		return nil, err
	}
	size := uint64(info.Size())
	if size < trailerOffsetSize {
		return nil, errors.Wrap(ErrCorruptArchive, "file too short")
	}
	var buf [trailerOffsetSize]byte
	if _, err := file.ReadAt(buf[:], int64(size-trailerOffsetSize)); err != nil {
		return nil, errors.Wrap(err, "cannot read trailer offset")
	}
	offset := binary.LittleEndian.Uint64(buf[:])
	if offset > size-trailerOffsetSize {
		return nil, errors.Wrapf(ErrCorruptArchive, "trailer offset %d beyond file size %d", offset, size)
	}
	enc := make([]byte, size-trailerOffsetSize-offset)
	if _, err := file.ReadAt(enc, int64(offset)); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "cannot read trailer")
	}
	var trailer packedTrailer
	if err := rlp.DecodeBytes(enc, &trailer); err != nil {
		return nil, errors.Wrap(ErrCorruptArchive, err.Error())
	}
	if trailer.Version != Version {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d", trailer.Version)
	}

	r := &PackedReader{
		file:  file,
		codec: trailer.Codec,
		manifest: &snapshot.ManifestData{
			StateRoot:   trailer.StateRoot,
			BlockNumber: trailer.BlockNumber,
			BlockHash:   trailer.BlockHash,
		},
		chunks: make(map[common.Hash]chunkInfo, len(trailer.StateChunks)+len(trailer.BlockChunks)),
	}
	for _, infos := range [][]chunkInfo{trailer.StateChunks, trailer.BlockChunks} {
		for _, info := range infos {
			if info.Offset+info.Length > offset || info.Offset+info.Length < info.Offset {
				return nil, errors.Wrapf(ErrCorruptArchive, "chunk %x overlaps the trailer", info.Hash)
			}
			r.chunks[info.Hash] = info
		}
	}
	for _, info := range trailer.StateChunks {
		r.manifest.StateHashes = append(r.manifest.StateHashes, info.Hash)
	}
	for _, info := range trailer.BlockChunks {
		r.manifest.BlockHashes = append(r.manifest.BlockHashes, info.Hash)
	}
	return r, nil
}

// Manifest returns the manifest stored in the trailer.
func (r *PackedReader) Manifest() *snapshot.ManifestData {
	return r.manifest
}

// Codec returns the chunk codec name.
func (r *PackedReader) Codec() string {
	return r.codec
}

// Chunk reads the chunk with the given hash.
func (r *PackedReader) Chunk(hash common.Hash) ([]byte, error) {
	info, ok := r.chunks[hash]
	if !ok {
		return nil, errors.Wrapf(ErrChunkNotFound, "%x", hash)
	}
	chunk := make([]byte, info.Length)
	if _, err := r.file.ReadAt(chunk, int64(info.Offset)); err != nil {
		return nil, errors.Wrapf(err, "cannot read chunk %x", hash)
	}
	if err := checkChunk(hash, chunk); err != nil {
		return nil, err
	}
	return chunk, nil
}

// Close closes the archive file.
func (r *PackedReader) Close() error {
	return r.file.Close()
}
