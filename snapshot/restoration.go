package snapshot

import (
	"context"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/harmony-one/snapshot/consensus/engine"
	"github.com/harmony-one/snapshot/core/rawdb"
	"github.com/harmony-one/snapshot/internal/utils"
)

// RestorationState is the state of a restoration.
type RestorationState int

// Restoration states.
const (
	Inactive RestorationState = iota
	Ongoing
	Failed
	Done
)

func (s RestorationState) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Ongoing:
		return "ongoing"
	case Failed:
		return "failed"
	case Done:
		return "done"
	}
	return "unknown"
}

// RestorationStatus summarizes a restoration.
type RestorationStatus struct {
	State           RestorationState
	StateChunksDone int
	BlockChunksDone int
	StateChunks     int
	BlockChunks     int
}

// Restoration restores one snapshot. It checks every fed chunk against the
// manifest and finalizes once the last chunk was fed. It is safe for
// concurrent use.
type Restoration struct {
	lock sync.Mutex

	manifest    *ManifestData
	codec       Codec
	engine      engine.Engine
	stateChunks mapset.Set[common.Hash]
	blockChunks mapset.Set[common.Hash]
	stateDone   int
	blockDone   int
	state       RestorationState

	states *StateRebuilder
	blocks *BlockRebuilder

	logger zerolog.Logger
}

// NewRestoration prepares the restoration of the snapshot described by
// manifest into db and chain. The manifest is recorded in db.
func NewRestoration(
	manifest *ManifestData, db ethdb.Database, chain BlockWriter, eng engine.Engine, config Config,
) (*Restoration, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	codec, err := NewCodec(config.Codec, config.MaxChunkSize)
	if err != nil {
		return nil, err
	}
	enc, err := EncodeManifest(manifest)
	if err != nil {
		return nil, err
	}
	if err := rawdb.WriteSnapshotManifest(db, enc); err != nil {
		return nil, errors.Wrap(err, "cannot record snapshot manifest")
	}
	r := &Restoration{
		manifest:    manifest,
		codec:       codec,
		engine:      eng,
		stateChunks: mapset.NewThreadUnsafeSet[common.Hash](manifest.StateHashes...),
		blockChunks: mapset.NewThreadUnsafeSet[common.Hash](manifest.BlockHashes...),
		state:       Ongoing,
		states:      NewStateRebuilder(db, config.Workers),
		blocks:      NewBlockRebuilder(chain, manifest.BlockNumber, config.SealVerifyRate),
		logger: utils.GetLogger("snapshot").With().
			Uint64("number", manifest.BlockNumber).
			Str("hash", manifest.BlockHash.Hex()).
			Logger(),
	}
	if r.stateChunks.Cardinality() == 0 && r.blockChunks.Cardinality() == 0 {
		if err := r.finalize(); err != nil {
			r.state = Failed
			return nil, err
		}
	}
	return r, nil
}

// Manifest returns the manifest being restored.
func (r *Restoration) Manifest() *ManifestData {
	return r.manifest
}

// Status returns the current state and chunk counts.
func (r *Restoration) Status() RestorationStatus {
	r.lock.Lock()
	defer r.lock.Unlock()
	return RestorationStatus{
		State:           r.state,
		StateChunksDone: r.stateDone,
		BlockChunksDone: r.blockDone,
		StateChunks:     len(r.manifest.StateHashes),
		BlockChunks:     len(r.manifest.BlockHashes),
	}
}

// IsDone reports whether every chunk was fed and the restoration finalized.
func (r *Restoration) IsDone() bool {
	return r.Status().State == Done
}

// FeedStateChunk feeds a compressed state chunk. A chunk that is not pending
// or does not hash to its key is rejected without failing the restoration;
// any other error fails it.
func (r *Restoration) FeedStateChunk(hash common.Hash, compressed []byte) error {
	return r.feed(hash, compressed, chunkKindState)
}

// FeedBlockChunk feeds a compressed block chunk, like FeedStateChunk.
func (r *Restoration) FeedBlockChunk(hash common.Hash, compressed []byte) error {
	return r.feed(hash, compressed, chunkKindBlock)
}

func (r *Restoration) feed(hash common.Hash, compressed []byte, kind string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	switch r.state {
	case Failed:
		return ErrRestorationFailed
	case Done:
		return ErrRestorationDone
	}
	pending := r.stateChunks
	if kind == chunkKindBlock {
		pending = r.blockChunks
	}
	if !pending.Contains(hash) {
		return errors.Wrapf(ErrUnknownChunk, "%s chunk %x", kind, hash)
	}
	if ChunkHash(compressed) != hash {
		return errors.Wrapf(ErrChunkHashMismatch, "%s chunk %x", kind, hash)
	}

	if err := r.feedVerified(compressed, kind); err != nil {
		r.state = Failed
		r.logger.Error().Err(err).Str("kind", kind).Str("chunk", hash.Hex()).Msg("Restoration failed")
		return errors.Wrapf(err, "%s chunk %x", kind, hash)
	}
	pending.Remove(hash)
	chunksFed.WithLabelValues(kind).Inc()
	if kind == chunkKindBlock {
		r.blockDone++
	} else {
		r.stateDone++
	}

	if r.stateChunks.Cardinality() == 0 && r.blockChunks.Cardinality() == 0 {
		if err := r.finalize(); err != nil {
			r.state = Failed
			r.logger.Error().Err(err).Msg("Restoration failed")
			return err
		}
	}
	return nil
}

func (r *Restoration) feedVerified(compressed []byte, kind string) error {
	raw, err := r.codec.Decompress(compressed)
	if err != nil {
		return err
	}
	if kind == chunkKindBlock {
		_, err = r.blocks.Feed(raw, r.engine)
		return err
	}
	return r.states.Feed(raw)
}

func (r *Restoration) finalize() error {
	if err := r.states.CheckMissing(); err != nil {
		return err
	}
	if root := r.states.StateRoot(); root != r.manifest.StateRoot {
		return errors.Wrapf(ErrStateRootMismatch, "have %x, want %x", root, r.manifest.StateRoot)
	}
	if err := r.blocks.GlueChunks(); err != nil {
		return err
	}
	r.state = Done
	r.logger.Info().Str("root", r.manifest.StateRoot.Hex()).Msg("Restoration complete")
	return nil
}

// RestoreFrom feeds every chunk of reader to restoration, state chunks
// first.
func RestoreFrom(ctx context.Context, reader Reader, restoration *Restoration) error {
	manifest := restoration.Manifest()
	for _, hash := range manifest.StateHashes {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, err := reader.Chunk(hash)
		if err != nil {
			return errors.Wrapf(err, "cannot read state chunk %x", hash)
		}
		if err := restoration.FeedStateChunk(hash, chunk); err != nil {
			return err
		}
	}
	for _, hash := range manifest.BlockHashes {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, err := reader.Chunk(hash)
		if err != nil {
			return errors.Wrapf(err, "cannot read block chunk %x", hash)
		}
		if err := restoration.FeedBlockChunk(hash, chunk); err != nil {
			return err
		}
	}
	if !restoration.IsDone() {
		return errors.Wrap(ErrRestorationFailed, "snapshot incomplete")
	}
	return nil
}
