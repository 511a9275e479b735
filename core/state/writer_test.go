package state

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/harmony-one/snapshot/core/rawdb"
)

func generateTestStorage(size, mod int64) map[common.Hash]common.Hash {
	data := make(map[common.Hash]common.Hash)
	for i := int64(0); i < size; i++ {
		key := common.BigToHash(big.NewInt(i))
		val := common.BigToHash(big.NewInt(i%mod + 1))
		data[key] = val
	}
	return data
}

func TestWriterRoundTrip(t *testing.T) {
	db := NewDatabase(rawdb.NewMemoryDatabase())
	w, err := NewWriter(db, types.EmptyRootHash)
	require.NoError(t, err)

	var (
		alice = common.HexToAddress("0x01")
		bob   = common.HexToAddress("0x02")
		code  = []byte{0x60, 0x01, 0x60, 0x02}
	)
	require.NoError(t, w.SetAccount(alice, 1, big.NewInt(100), nil, nil))
	require.NoError(t, w.SetAccount(bob, 2, big.NewInt(200), code, generateTestStorage(100, 7)))

	root, err := w.Commit()
	require.NoError(t, err)
	require.NotEqual(t, types.EmptyRootHash, root)

	dump, err := RawDump(db, root)
	require.NoError(t, err)
	require.Len(t, dump.Accounts, 2)

	bobKey := common.Bytes2Hex(crypto.Keccak256(bob.Bytes()))
	require.Contains(t, dump.Accounts, bobKey)
	require.Equal(t, "200", dump.Accounts[bobKey].Balance)
	require.Equal(t, common.Bytes2Hex(code), dump.Accounts[bobKey].Code)
	require.Len(t, dump.Accounts[bobKey].Storage, 100)

	aliceKey := common.Bytes2Hex(crypto.Keccak256(alice.Bytes()))
	require.Empty(t, dump.Accounts[aliceKey].Storage)
	require.Empty(t, dump.Accounts[aliceKey].Code)
}

func TestWriterDeterministicRoot(t *testing.T) {
	build := func() common.Hash {
		db := NewDatabase(rawdb.NewMemoryDatabase())
		w, err := NewWriter(db, types.EmptyRootHash)
		require.NoError(t, err)
		for i := byte(1); i <= 20; i++ {
			addr := common.BytesToAddress([]byte{i})
			require.NoError(t, w.SetAccount(addr, uint64(i), big.NewInt(int64(i)*10), nil, generateTestStorage(int64(i), 3)))
		}
		root, err := w.Commit()
		require.NoError(t, err)
		return root
	}
	require.Equal(t, build(), build())
}

func TestAccountDBIsolation(t *testing.T) {
	disk := rawdb.NewMemoryDatabase()
	db := NewDatabase(disk)

	code := []byte{0xde, 0xad}
	codeHash := crypto.Keccak256Hash(code)
	a := db.AccountDB(common.Hash{0x01})
	b := db.AccountDB(common.Hash{0x02})

	require.NoError(t, a.SetCode(codeHash, code))
	require.True(t, a.HasCode(codeHash))
	require.Equal(t, code, a.Code(codeHash))
	require.False(t, b.HasCode(codeHash))
	require.Nil(t, b.Code(codeHash))

	require.True(t, b.HasCode(types.EmptyCodeHash))
	require.Nil(t, b.Code(types.EmptyCodeHash))
}

func TestDumpJSON(t *testing.T) {
	db := NewDatabase(rawdb.NewMemoryDatabase())
	w, err := NewWriter(db, types.EmptyRootHash)
	require.NoError(t, err)
	require.NoError(t, w.SetAccount(common.HexToAddress("0xaa"), 0, big.NewInt(5), nil, nil))
	root, err := w.Commit()
	require.NoError(t, err)

	out, err := DumpJSON(db, root)
	require.NoError(t, err)
	require.Contains(t, string(out), `"balance": "5"`)
}

func TestStorageTrieReopen(t *testing.T) {
	db := NewDatabase(rawdb.NewMemoryDatabase())
	accountDB := db.AccountDB(common.Hash{0x07})

	st, err := accountDB.OpenStorageTrie(types.EmptyRootHash)
	require.NoError(t, err)
	for key, value := range generateTestStorage(50, 5) {
		require.NoError(t, st.Update(key.Bytes(), value.Bytes()))
	}
	root, err := accountDB.CommitStorageTrie(st)
	require.NoError(t, err)
	require.NotEqual(t, types.EmptyRootHash, root)

	reopened, err := accountDB.OpenStorageTrie(root)
	require.NoError(t, err)
	value, err := reopened.Get(common.BigToHash(big.NewInt(12)).Bytes())
	require.NoError(t, err)
	require.Equal(t, common.BigToHash(big.NewInt(3)).Bytes(), value)
}
