// Copyright 2018 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package rawdb

import (
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/harmony-one/snapshot/internal/utils"
)

// ReadDatabaseVersion retrieves the version number of the database.
func ReadDatabaseVersion(db ethdb.KeyValueReader) *uint64 {
	var version uint64

	enc, _ := db.Get(databaseVersionKey)
	if len(enc) == 0 {
		return nil
	}
	if err := rlp.DecodeBytes(enc, &version); err != nil {
		return nil
	}
	return &version
}

// WriteDatabaseVersion stores the version number of the database
func WriteDatabaseVersion(db ethdb.KeyValueWriter, version uint64) error {
	enc, err := rlp.EncodeToBytes(version)
	if err != nil {
		return err
	}
	if err := db.Put(databaseVersionKey, enc); err != nil {
		utils.Logger().Error().Err(err).Msg("Failed to store the database version")
		return err
	}
	return nil
}

// ReadSnapshotManifest retrieves the raw manifest of the snapshot a database
// was restored from.
func ReadSnapshotManifest(db ethdb.KeyValueReader) []byte {
	data, _ := db.Get(snapshotManifestKey)
	return data
}

// WriteSnapshotManifest stores the raw manifest of the snapshot being restored.
func WriteSnapshotManifest(db ethdb.KeyValueWriter, manifest []byte) error {
	if err := db.Put(snapshotManifestKey, manifest); err != nil {
		utils.Logger().Error().Err(err).Msg("Failed to store the snapshot manifest")
		return err
	}
	return nil
}
