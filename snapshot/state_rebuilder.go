package snapshot

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/harmony-one/snapshot/core/rawdb"
	"github.com/harmony-one/snapshot/core/state"
	"github.com/harmony-one/snapshot/internal/utils"
)

// StateRebuilder rebuilds the account state from state chunks fed in any
// order. Accounts referring to code that no fed chunk embedded yet wait in
// missingCode until the code shows up.
type StateRebuilder struct {
	db        ethdb.Database
	statedb   *state.Database
	stateRoot common.Hash
	workers   int

	// code hash -> code, for every code restored so far
	codeMap map[common.Hash][]byte
	// code hash -> address hashes of the accounts waiting for it
	missingCode map[common.Hash][]common.Hash

	logger zerolog.Logger
}

// NewStateRebuilder returns a rebuilder writing into db.
func NewStateRebuilder(db ethdb.Database, workers int) *StateRebuilder {
	if workers <= 0 {
		workers = 1
	}
	return &StateRebuilder{
		db:          db,
		statedb:     state.NewDatabase(db),
		stateRoot:   types.EmptyRootHash,
		workers:     workers,
		codeMap:     make(map[common.Hash][]byte),
		missingCode: make(map[common.Hash][]common.Hash),
		logger:      utils.GetLogger("snapshot"),
	}
}

type thinPair struct {
	addrHash common.Hash
	thin     []byte
}

type missingPair struct {
	addrHash common.Hash
	codeHash common.Hash
}

// rebuiltShard is what one worker produced: storage tries and code in a
// private overlay, plus the thin accounts to insert.
type rebuiltShard struct {
	overlay ethdb.Database
	pairs   []thinPair
	newCode map[common.Hash][]byte
	missing []missingPair
}

// Feed restores the accounts of an uncompressed state chunk.
func (r *StateRebuilder) Feed(chunk []byte) error {
	var pairs []statePair
	if err := rlp.DecodeBytes(chunk, &pairs); err != nil {
		return errors.Wrap(err, "cannot decode state chunk")
	}

	// storage tries are rebuilt in parallel, each worker on its own overlay
	shardSize := len(pairs)/r.workers + 1
	shards := make([]*rebuiltShard, 0, r.workers)
	for start := 0; start < len(pairs); start += shardSize {
		shards = append(shards, nil)
	}
	var g errgroup.Group
	for i := range shards {
		i := i
		start := i * shardSize
		end := start + shardSize
		if end > len(pairs) {
			end = len(pairs)
		}
		g.Go(func() (err error) {
			shards[i], err = rebuildAccounts(pairs[start:end], r.knownCode)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	batch := r.db.NewBatch()
	chunkCode := make(map[common.Hash][]byte)
	for _, shard := range shards {
		if err := consolidate(batch, shard.overlay); err != nil {
			return err
		}
		for hash, code := range shard.newCode {
			chunkCode[hash] = code
		}
		for _, missing := range shard.missing {
			r.missingCode[missing.codeHash] = append(r.missingCode[missing.codeHash], missing.addrHash)
		}
	}

	// patch the accounts waiting for code that became available
	for codeHash, code := range chunkCode {
		for _, addrHash := range r.missingCode[codeHash] {
			if err := rawdb.WriteAccountCode(batch, addrHash, codeHash, code); err != nil {
				return err
			}
		}
		delete(r.missingCode, codeHash)
		r.codeMap[codeHash] = code
	}
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "cannot write restored storage")
	}

	accounts, err := r.statedb.OpenTrie(r.stateRoot)
	if err != nil {
		return err
	}
	for _, shard := range shards {
		for _, pair := range shard.pairs {
			if err := accounts.Update(pair.addrHash.Bytes(), pair.thin); err != nil {
				return errors.Wrapf(err, "cannot insert account %x", pair.addrHash)
			}
		}
	}
	root, err := r.statedb.CommitTrie(accounts, r.stateRoot)
	if err != nil {
		return err
	}
	r.stateRoot = root

	accountsRestored.Add(float64(len(pairs)))
	r.logger.Debug().
		Int("accounts", len(pairs)).
		Int("shards", len(shards)).
		Str("root", root.Hex()).
		Msg("Restored state chunk")
	return nil
}

// knownCode is read by the workers while no write to codeMap happens.
func (r *StateRebuilder) knownCode(hash common.Hash) ([]byte, bool) {
	code, ok := r.codeMap[hash]
	return code, ok
}

// StateRoot returns the root of the accounts restored so far.
func (r *StateRebuilder) StateRoot() common.Hash {
	return r.stateRoot
}

// CheckMissing fails with a MissingCodeError if any restored account still
// waits for its code.
func (r *StateRebuilder) CheckMissing() error {
	if len(r.missingCode) == 0 {
		return nil
	}
	hashes := make([]common.Hash, 0, len(r.missingCode))
	for hash := range r.missingCode {
		hashes = append(hashes, hash)
	}
	sort.Slice(hashes, func(i, j int) bool {
		return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
	})
	return &MissingCodeError{Hashes: hashes}
}

func rebuildAccounts(
	pairs []statePair, knownCode func(common.Hash) ([]byte, bool),
) (*rebuiltShard, error) {
	shard := &rebuiltShard{
		overlay: rawdb.NewMemoryDatabase(),
		pairs:   make([]thinPair, 0, len(pairs)),
		newCode: make(map[common.Hash][]byte),
	}
	for _, pair := range pairs {
		accountDB := state.NewAccountDB(shard.overlay, pair.AccountHash)
		result, err := fromFat(pair.Fat, accountDB, knownCode)
		if err != nil {
			return nil, errors.Wrapf(err, "account %x", pair.AccountHash)
		}
		codeHash := common.BytesToHash(result.thin.CodeHash)
		if result.newCode != nil {
			shard.newCode[codeHash] = result.newCode
		}
		if result.missingCode != nil {
			shard.missing = append(shard.missing, missingPair{
				addrHash: pair.AccountHash,
				codeHash: *result.missingCode,
			})
		}
		thin, err := rlp.EncodeToBytes(result.thin)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot encode account %x", pair.AccountHash)
		}
		shard.pairs = append(shard.pairs, thinPair{addrHash: pair.AccountHash, thin: thin})
	}
	return shard, nil
}

// consolidate copies an overlay into the batch, flushing it whenever it
// grows past the ideal size.
func consolidate(batch ethdb.Batch, overlay ethdb.Database) error {
	it := overlay.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		if err := batch.Put(common.CopyBytes(it.Key()), common.CopyBytes(it.Value())); err != nil {
			return err
		}
		if batch.ValueSize() >= ethdb.IdealBatchSize {
			if err := batch.Write(); err != nil {
				return errors.Wrap(err, "cannot write restored storage")
			}
			batch.Reset()
		}
	}
	return it.Error()
}
