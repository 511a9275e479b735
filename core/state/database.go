// Package state provides access to the account trie and to the per-account
// key spaces holding storage tries and contract code.
package state

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/ethereum/go-ethereum/trie/trienode"
	"github.com/pkg/errors"

	"github.com/harmony-one/snapshot/core/rawdb"
)

// Database wraps access to the account trie of a key-value store.
type Database struct {
	disk   ethdb.Database
	triedb *trie.Database
}

// NewDatabase creates a state database over the given store.
func NewDatabase(db ethdb.Database) *Database {
	return &Database{
		disk:   db,
		triedb: trie.NewDatabase(db),
	}
}

// OpenTrie opens the account trie at the given root.
func (db *Database) OpenTrie(root common.Hash) (*trie.Trie, error) {
	tr, err := trie.New(trie.StateTrieID(root), db.triedb)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open account trie %x", root)
	}
	return tr, nil
}

// CommitTrie commits the account trie and flushes its nodes to disk. The
// trie must be reopened at the returned root before further use.
func (db *Database) CommitTrie(tr *trie.Trie, parent common.Hash) (common.Hash, error) {
	return commitTrie(db.triedb, tr, parent)
}

// AccountDB returns the key space owned by the account with the given
// address hash.
func (db *Database) AccountDB(addrHash common.Hash) *AccountDB {
	return NewAccountDB(db.disk, addrHash)
}

func commitTrie(triedb *trie.Database, tr *trie.Trie, parent common.Hash) (common.Hash, error) {
	root, nodes, err := tr.Commit(false)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "cannot commit trie")
	}
	if nodes == nil {
		return root, nil
	}
	if err := triedb.Update(root, parent, 0, trienode.NewWithNodeSet(nodes), nil); err != nil {
		return common.Hash{}, errors.Wrapf(err, "cannot update trie database with root %x", root)
	}
	if err := triedb.Commit(root, false); err != nil {
		return common.Hash{}, errors.Wrapf(err, "cannot flush trie %x", root)
	}
	return root, nil
}

// AccountDB is the key space of a single account. Storage trie nodes and code
// are kept under a prefix derived from the account's address hash, so two
// accounts never share a node.
type AccountDB struct {
	addrHash common.Hash
	db       ethdb.Database
	triedb   *trie.Database
}

// NewAccountDB creates the view of db owned by the given account.
func NewAccountDB(db ethdb.Database, addrHash common.Hash) *AccountDB {
	table := rawdb.NewTable(db, rawdb.AccountPrefix(addrHash))
	return &AccountDB{
		addrHash: addrHash,
		db:       table,
		triedb:   trie.NewDatabase(table),
	}
}

// AddrHash returns the hash of the address owning this key space.
func (a *AccountDB) AddrHash() common.Hash {
	return a.addrHash
}

// Code returns the code stored for the given code hash, or nil.
func (a *AccountDB) Code(codeHash common.Hash) []byte {
	if codeHash == types.EmptyCodeHash {
		return nil
	}
	return rawdb.ReadCode(a.db, codeHash)
}

// HasCode reports whether code for the given hash is stored.
func (a *AccountDB) HasCode(codeHash common.Hash) bool {
	return codeHash == types.EmptyCodeHash || rawdb.HasCode(a.db, codeHash)
}

// SetCode stores the account's code.
func (a *AccountDB) SetCode(codeHash common.Hash, code []byte) error {
	return rawdb.WriteCode(a.db, codeHash, code)
}

// OpenStorageTrie opens the account's storage trie. The key space holds only
// this trie, so its own root doubles as the state root the node reader is
// bound to.
func (a *AccountDB) OpenStorageTrie(root common.Hash) (*trie.Trie, error) {
	tr, err := trie.New(trie.StorageTrieID(root, a.addrHash, root), a.triedb)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open storage trie %x of account %x", root, a.addrHash)
	}
	return tr, nil
}

// CommitStorageTrie commits a storage trie opened from this key space.
func (a *AccountDB) CommitStorageTrie(tr *trie.Trie) (common.Hash, error) {
	return commitTrie(a.triedb, tr, types.EmptyRootHash)
}
