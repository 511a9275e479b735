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
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"

	"github.com/harmony-one/snapshot/internal/utils"
)

// ReadCode retrieves the contract code of the provided code hash.
func ReadCode(db ethdb.KeyValueReader, hash common.Hash) []byte {
	data, _ := db.Get(codeKey(hash))
	return data
}

// HasCode checks if the contract code corresponding to the
// provided code hash is present in the db.
func HasCode(db ethdb.KeyValueReader, hash common.Hash) bool {
	ok, _ := db.Has(codeKey(hash))
	return ok
}

// WriteCode writes the provided contract code database.
func WriteCode(db ethdb.KeyValueWriter, hash common.Hash, code []byte) error {
	if err := db.Put(codeKey(hash), code); err != nil {
		utils.Logger().Error().Err(err).Msg("Failed to store contract code")
		return err
	}
	return nil
}

// WriteAccountCode writes code into the namespace of the account with the
// given address hash. It is equivalent to WriteCode on the account's table
// but can target a batch.
func WriteAccountCode(db ethdb.KeyValueWriter, addrHash, hash common.Hash, code []byte) error {
	key := append([]byte(AccountPrefix(addrHash)), codeKey(hash)...)
	if err := db.Put(key, code); err != nil {
		utils.Logger().Error().Err(err).Str("account", addrHash.Hex()).Msg("Failed to store account code")
		return err
	}
	return nil
}
