// Package chaindb opens the chain databases used by the snapshot tools.
package chaindb

import (
	"os"
	"path"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/pkg/errors"

	"github.com/harmony-one/snapshot/core/rawdb"
)

const (
	// LDBDirPrefix is the directory of the chain database under the root dir.
	LDBDirPrefix = "harmony_db"

	defaultCache   = 256
	defaultHandles = 1024
)

// DBFactory is a blockchain database factory.
type DBFactory interface {
	// NewChainDB returns the database holding the blockchain.
	NewChainDB() (ethdb.Database, error)
	// IsFresh reports whether the database holds nothing yet.
	IsFresh() (bool, error)
}

// LDBFactory is a LDB-backed blockchain database factory.
type LDBFactory struct {
	RootDir  string // directory in which to put the chain database.
	Cache    int    // MB of cache, defaults to 256
	Handles  int    // open file handles, defaults to 1024
	ReadOnly bool
}

func (f *LDBFactory) dir() string {
	return path.Join(f.RootDir, LDBDirPrefix)
}

// NewChainDB returns the LDB of the blockchain.
func (f *LDBFactory) NewChainDB() (ethdb.Database, error) {
	cache, handles := f.Cache, f.Handles
	if cache <= 0 {
		cache = defaultCache
	}
	if handles <= 0 {
		handles = defaultHandles
	}
	return rawdb.NewLevelDBDatabase(f.dir(), cache, handles, f.ReadOnly)
}

// IsFresh reports whether the database directory is missing or empty.
func (f *LDBFactory) IsFresh() (bool, error) {
	entries, err := os.ReadDir(f.dir())
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "cannot read %s", f.dir())
	}
	return len(entries) == 0, nil
}

// MemDBFactory is a memory-backed blockchain database factory. Every call
// to NewChainDB returns the same database.
type MemDBFactory struct {
	db ethdb.Database
}

// NewChainDB returns the memDB of the blockchain.
func (f *MemDBFactory) NewChainDB() (ethdb.Database, error) {
	if f.db == nil {
		f.db = rawdb.NewMemoryDatabase()
	}
	return f.db, nil
}

// IsFresh reports whether the database was not opened yet or holds no keys.
func (f *MemDBFactory) IsFresh() (bool, error) {
	if f.db == nil {
		return true, nil
	}
	it := f.db.NewIterator(nil, nil)
	defer it.Release()
	return !it.Next(), nil
}
