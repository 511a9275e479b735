package rawdb

import (
	ethRawDB "github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/pkg/errors"
)

// DatabaseVersion is written into every database created by this package.
const DatabaseVersion uint64 = 1

// NewMemoryDatabase creates an ephemeral in-memory key-value database.
func NewMemoryDatabase() ethdb.Database {
	return ethRawDB.NewMemoryDatabase()
}

// NewLevelDBDatabase opens a persistent LevelDB backed database.
func NewLevelDBDatabase(dir string, cache, handles int, readonly bool) (ethdb.Database, error) {
	db, err := ethRawDB.NewLevelDBDatabase(dir, cache, handles, "", readonly)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open leveldb at %s", dir)
	}
	if readonly {
		return db, nil
	}
	if ReadDatabaseVersion(db) == nil {
		if err := WriteDatabaseVersion(db, DatabaseVersion); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// NewTable returns a view of db where every key is transparently prefixed.
func NewTable(db ethdb.Database, prefix string) ethdb.Database {
	return ethRawDB.NewTable(db, prefix)
}
