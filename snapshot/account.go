package snapshot

import (
	"math/big"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/pkg/errors"

	"github.com/harmony-one/snapshot/core/state"
)

// codeState tells how a fat account carries its code.
type codeState uint8

const (
	codeStateEmpty  codeState = iota // no code
	codeStateInline                  // code bytes embedded
	codeStateHash                    // only the hash, the code is embedded by another account
)

// storageEntry is one leaf of a storage trie, keyed by the hashed slot.
type storageEntry struct {
	Key   common.Hash
	Value []byte
}

// fatAccount is the self-contained form of an account in a state chunk.
type fatAccount struct {
	Nonce     uint64
	Balance   *big.Int
	CodeState codeState
	Code      []byte
	Storage   []storageEntry
}

// toFat expands a thin account into its compressed fat record. Code is
// inlined only the first time its hash is met in emitted.
func toFat(
	thin *types.StateAccount, accountDB *state.AccountDB, emitted mapset.Set[common.Hash],
) ([]byte, error) {
	fat := fatAccount{
		Nonce:   thin.Nonce,
		Balance: thin.Balance,
	}
	if thin.Root != types.EmptyRootHash {
		storage, err := accountDB.OpenStorageTrie(thin.Root)
		if err != nil {
			return nil, err
		}
		nodeIt, err := storage.NodeIterator(nil)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot iterate storage of %x", accountDB.AddrHash())
		}
		it := trie.NewIterator(nodeIt)
		for it.Next() {
			fat.Storage = append(fat.Storage, storageEntry{
				Key:   common.BytesToHash(it.Key),
				Value: common.CopyBytes(it.Value),
			})
		}
		if it.Err != nil {
			return nil, errors.Wrapf(it.Err, "cannot iterate storage of %x", accountDB.AddrHash())
		}
	}
	hash := common.BytesToHash(thin.CodeHash)
	switch {
	case hash == types.EmptyCodeHash:
		fat.CodeState = codeStateEmpty
	case emitted.Contains(hash):
		fat.CodeState = codeStateHash
		fat.Code = hash.Bytes()
	default:
		code := accountDB.Code(hash)
		if code == nil {
			return nil, errors.Wrapf(ErrMissingCode, "account %x code %x", accountDB.AddrHash(), hash)
		}
		emitted.Add(hash)
		fat.CodeState = codeStateInline
		fat.Code = code
	}
	enc, err := rlp.EncodeToBytes(&fat)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot encode account %x", accountDB.AddrHash())
	}
	return compressRecord(enc), nil
}

// fromFatResult is what restoring one fat record produced.
type fromFatResult struct {
	thin *types.StateAccount
	// newCode is set when the record embedded its code.
	newCode []byte
	// missingCode is set when the code is neither embedded nor known yet.
	missingCode *common.Hash
}

// fromFat rebuilds the storage trie of a fat account into accountDB and
// returns its thin form. knownCode looks up code restored by earlier chunks.
func fromFat(
	compressed []byte, accountDB *state.AccountDB, knownCode func(common.Hash) ([]byte, bool),
) (*fromFatResult, error) {
	raw, err := decompressRecord(compressed)
	if err != nil {
		return nil, err
	}
	var fat fatAccount
	if err := rlp.DecodeBytes(raw, &fat); err != nil {
		return nil, errors.Wrap(err, "cannot decode fat account")
	}
	thin := &types.StateAccount{
		Nonce:    fat.Nonce,
		Balance:  fat.Balance,
		Root:     types.EmptyRootHash,
		CodeHash: types.EmptyCodeHash.Bytes(),
	}
	if len(fat.Storage) > 0 {
		storage, err := accountDB.OpenStorageTrie(types.EmptyRootHash)
		if err != nil {
			return nil, err
		}
		for _, entry := range fat.Storage {
			if err := storage.Update(entry.Key.Bytes(), entry.Value); err != nil {
				return nil, errors.Wrapf(err, "cannot restore storage slot %x", entry.Key)
			}
		}
		if thin.Root, err = accountDB.CommitStorageTrie(storage); err != nil {
			return nil, err
		}
	}

	result := &fromFatResult{thin: thin}
	switch fat.CodeState {
	case codeStateEmpty:
	case codeStateInline:
		hash := crypto.Keccak256Hash(fat.Code)
		if err := accountDB.SetCode(hash, fat.Code); err != nil {
			return nil, err
		}
		thin.CodeHash = hash.Bytes()
		result.newCode = fat.Code
	case codeStateHash:
		if len(fat.Code) != common.HashLength {
			return nil, errors.Errorf("invalid code hash length %d", len(fat.Code))
		}
		hash := common.BytesToHash(fat.Code)
		thin.CodeHash = hash.Bytes()
		if code, ok := knownCode(hash); ok {
			if err := accountDB.SetCode(hash, code); err != nil {
				return nil, err
			}
		} else {
			result.missingCode = &hash
		}
	default:
		return nil, errors.Errorf("invalid code state %d", fat.CodeState)
	}
	return result, nil
}
