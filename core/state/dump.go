// Copyright 2014 The go-ethereum Authors
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

package state

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/pkg/errors"
)

// DumpAccount ...
type DumpAccount struct {
	Balance  string            `json:"balance"`
	Nonce    uint64            `json:"nonce"`
	Root     string            `json:"root"`
	CodeHash string            `json:"codeHash"`
	Code     string            `json:"code,omitempty"`
	Storage  map[string]string `json:"storage,omitempty"`
}

// Dump is the structure of root hash and associated accounts. Accounts are
// keyed by the hash of their address since no preimages are kept.
type Dump struct {
	Root     string                 `json:"root"`
	Accounts map[string]DumpAccount `json:"accounts"`
}

// RawDump returns the full content of the state with the given root.
func RawDump(db *Database, root common.Hash) (Dump, error) {
	dump := Dump{
		Root:     common.Bytes2Hex(root[:]),
		Accounts: make(map[string]DumpAccount),
	}
	tr, err := db.OpenTrie(root)
	if err != nil {
		return dump, err
	}
	nodeIt, err := tr.NodeIterator(nil)
	if err != nil {
		return dump, err
	}
	it := trie.NewIterator(nodeIt)
	for it.Next() {
		var data types.StateAccount
		if err := rlp.DecodeBytes(it.Value, &data); err != nil {
			return dump, errors.Wrapf(err, "invalid account %x", it.Key)
		}
		addrHash := common.BytesToHash(it.Key)
		accountDB := db.AccountDB(addrHash)
		account := DumpAccount{
			Balance:  data.Balance.String(),
			Nonce:    data.Nonce,
			Root:     common.Bytes2Hex(data.Root[:]),
			CodeHash: common.Bytes2Hex(data.CodeHash),
			Code:     common.Bytes2Hex(accountDB.Code(common.BytesToHash(data.CodeHash))),
			Storage:  make(map[string]string),
		}
		storage, err := accountDB.OpenStorageTrie(data.Root)
		if err != nil {
			return dump, err
		}
		storageNodeIt, err := storage.NodeIterator(nil)
		if err != nil {
			return dump, err
		}
		storageIt := trie.NewIterator(storageNodeIt)
		for storageIt.Next() {
			account.Storage[common.Bytes2Hex(storageIt.Key)] = common.Bytes2Hex(storageIt.Value)
		}
		if storageIt.Err != nil {
			return dump, errors.Wrapf(storageIt.Err, "cannot iterate storage of %x", addrHash)
		}
		dump.Accounts[common.Bytes2Hex(it.Key)] = account
	}
	if it.Err != nil {
		return dump, errors.Wrap(it.Err, "cannot iterate accounts")
	}
	return dump, nil
}

// DumpJSON dumps the state with the given root as indented JSON.
func DumpJSON(db *Database, root common.Hash) ([]byte, error) {
	dump, err := RawDump(db, root)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(dump, "", "    ")
}
