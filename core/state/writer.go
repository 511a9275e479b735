package state

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/pkg/errors"
)

// Writer builds an account trie directly, without executing transactions.
// It backs genesis allocations and synthetic states.
type Writer struct {
	db   *Database
	root common.Hash
	trie *trie.Trie
}

// NewWriter opens a writer on top of the state with the given root.
func NewWriter(db *Database, root common.Hash) (*Writer, error) {
	tr, err := db.OpenTrie(root)
	if err != nil {
		return nil, err
	}
	return &Writer{db: db, root: root, trie: tr}, nil
}

// SetAccount writes an account keyed by the hash of its address. Storage keys
// are hashed and values RLP encoded the way the EVM state does.
func (w *Writer) SetAccount(
	addr common.Address, nonce uint64, balance *big.Int, code []byte, storage map[common.Hash]common.Hash,
) error {
	addrHash := crypto.Keccak256Hash(addr.Bytes())
	account := types.StateAccount{
		Nonce:    nonce,
		Balance:  new(big.Int).Set(balance),
		Root:     types.EmptyRootHash,
		CodeHash: types.EmptyCodeHash.Bytes(),
	}
	accountDB := w.db.AccountDB(addrHash)
	if len(code) > 0 {
		codeHash := crypto.Keccak256Hash(code)
		if err := accountDB.SetCode(codeHash, code); err != nil {
			return err
		}
		account.CodeHash = codeHash.Bytes()
	}
	if len(storage) > 0 {
		st, err := accountDB.OpenStorageTrie(types.EmptyRootHash)
		if err != nil {
			return err
		}
		for key, value := range storage {
			enc, err := rlp.EncodeToBytes(common.TrimLeftZeroes(value[:]))
			if err != nil {
				return err
			}
			if err := st.Update(crypto.Keccak256(key[:]), enc); err != nil {
				return errors.Wrapf(err, "cannot write storage of %s", addr.Hex())
			}
		}
		if account.Root, err = accountDB.CommitStorageTrie(st); err != nil {
			return err
		}
	}
	return w.SetRawAccount(addrHash, &account)
}

// SetRawAccount writes a thin account under an already hashed key.
func (w *Writer) SetRawAccount(addrHash common.Hash, account *types.StateAccount) error {
	enc, err := rlp.EncodeToBytes(account)
	if err != nil {
		return errors.Wrap(err, "cannot encode account")
	}
	if err := w.trie.Update(addrHash.Bytes(), enc); err != nil {
		return errors.Wrapf(err, "cannot write account %x", addrHash)
	}
	return nil
}

// Commit flushes all pending accounts and returns the new state root.
func (w *Writer) Commit() (common.Hash, error) {
	root, err := w.db.CommitTrie(w.trie, w.root)
	if err != nil {
		return common.Hash{}, err
	}
	tr, err := w.db.OpenTrie(root)
	if err != nil {
		return common.Hash{}, err
	}
	w.root, w.trie = root, tr
	return root, nil
}
