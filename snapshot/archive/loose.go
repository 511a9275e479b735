package archive

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/harmony-one/snapshot/internal/utils"
	"github.com/harmony-one/snapshot/snapshot"
)

// ManifestFile is the name of the manifest in a loose archive.
const ManifestFile = "MANIFEST"

type looseManifest struct {
	Version  uint64
	Codec    string
	Manifest snapshot.ManifestData
}

func chunkFile(dir string, hash common.Hash) string {
	return filepath.Join(dir, common.Bytes2Hex(hash[:]))
}

// writeFileSync writes data to name and fsyncs it before closing.
func writeFileSync(name string, data []byte) error {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err = f.Write(data); err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return err
}

// LooseWriter writes one file per chunk into a fresh directory.
type LooseWriter struct {
	lock   sync.Mutex
	dir    string
	codec  string
	closed bool
	logger zerolog.Logger
}

// NewLooseWriter creates the archive directory. The directory must not
// exist yet.
func NewLooseWriter(dir, codec string) (*LooseWriter, error) {
	if _, err := os.Stat(dir); err == nil {
		return nil, errors.Wrap(ErrArchiveExists, dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "cannot create loose archive")
	}
	return &LooseWriter{
		dir:    dir,
		codec:  codec,
		logger: utils.GetLogger("archive").With().Str("path", dir).Logger(),
	}, nil
}

// WriteStateChunk writes a state chunk file.
func (w *LooseWriter) WriteStateChunk(hash common.Hash, chunk []byte) error {
	return w.write(hash, chunk)
}

// WriteBlockChunk writes a block chunk file.
func (w *LooseWriter) WriteBlockChunk(hash common.Hash, chunk []byte) error {
	return w.write(hash, chunk)
}

func (w *LooseWriter) write(hash common.Hash, chunk []byte) error {
	w.lock.Lock()
	closed := w.closed
	w.lock.Unlock()
	if closed {
		return ErrFinished
	}
	if err := writeFileSync(chunkFile(w.dir, hash), chunk); err != nil {
		return errors.Wrapf(err, "cannot write chunk %x", hash)
	}
	return nil
}

// Finish writes the manifest file.
func (w *LooseWriter) Finish(manifest *snapshot.ManifestData) error {
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.closed {
		return ErrFinished
	}
	enc, err := rlp.EncodeToBytes(&looseManifest{Version: Version, Codec: w.codec, Manifest: *manifest})
	if err != nil {
		return errors.Wrap(err, "cannot encode manifest")
	}
	if err := writeFileSync(filepath.Join(w.dir, ManifestFile), enc); err != nil {
		return errors.Wrap(err, "cannot write manifest")
	}
	w.closed = true
	w.logger.Info().
		Int("stateChunks", len(manifest.StateHashes)).
		Int("blockChunks", len(manifest.BlockHashes)).
		Msg("Loose archive written")
	return nil
}

// Abort removes the archive directory.
func (w *LooseWriter) Abort() error {
	w.lock.Lock()
	defer w.lock.Unlock()
	w.closed = true
	if err := os.RemoveAll(w.dir); err != nil {
		return errors.Wrap(err, "cannot remove loose archive")
	}
	w.logger.Warn().Msg("Loose archive removed")
	return nil
}

// LooseReader serves chunks from a loose archive.
type LooseReader struct {
	dir      string
	codec    string
	manifest *snapshot.ManifestData
}

// OpenLoose reads the manifest of the loose archive in dir.
func OpenLoose(dir string) (*LooseReader, error) {
	enc, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, errors.Wrap(err, "cannot read manifest")
	}
	var m looseManifest
	if err := rlp.DecodeBytes(enc, &m); err != nil {
		return nil, errors.Wrap(ErrCorruptArchive, err.Error())
	}
	if m.Version != Version {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %d", m.Version)
	}
	return &LooseReader{dir: dir, codec: m.Codec, manifest: &m.Manifest}, nil
}

// Manifest returns the archive manifest.
func (r *LooseReader) Manifest() *snapshot.ManifestData {
	return r.manifest
}

// Codec returns the chunk codec name.
func (r *LooseReader) Codec() string {
	return r.codec
}

// Chunk reads the chunk file of hash.
func (r *LooseReader) Chunk(hash common.Hash) ([]byte, error) {
	if !r.manifest.IsStateChunk(hash) && !r.manifest.IsBlockChunk(hash) {
		return nil, errors.Wrapf(ErrChunkNotFound, "%x", hash)
	}
	chunk, err := os.ReadFile(chunkFile(r.dir, hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrChunkNotFound, "%x", hash)
		}
		return nil, errors.Wrapf(err, "cannot read chunk %x", hash)
	}
	if err := checkChunk(hash, chunk); err != nil {
		return nil, err
	}
	return chunk, nil
}

// Close is a no-op.
func (r *LooseReader) Close() error {
	return nil
}
