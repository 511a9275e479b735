// Package pow implements the keccak based proof-of-work puzzle used to seal
// block headers.
package pow

import (
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// two256 is a big integer representing 2^256
var two256 = new(big.Int).Exp(big.NewInt(2), big.NewInt(256), big.NewInt(0))

// Target returns the highest mix digest accepted for the given difficulty.
func Target(difficulty *big.Int) *big.Int {
	if difficulty.Sign() <= 0 {
		return new(big.Int)
	}
	return new(big.Int).Div(two256, difficulty)
}

// Mix computes keccak256(sealHash || nonce), nonce big endian.
func Mix(sealHash common.Hash, nonce uint64) common.Hash {
	var enc [8]byte
	binary.BigEndian.PutUint64(enc[:], nonce)
	return crypto.Keccak256Hash(sealHash.Bytes(), enc[:])
}

// Check reports whether mix is the digest of (sealHash, nonce) and meets the
// target of the difficulty.
func Check(sealHash common.Hash, nonce uint64, mix common.Hash, difficulty *big.Int) bool {
	if Mix(sealHash, nonce) != mix {
		return false
	}
	return new(big.Int).SetBytes(mix.Bytes()).Cmp(Target(difficulty)) <= 0
}

// Solve searches nonces upwards from start until one meets the target.
func Solve(sealHash common.Hash, difficulty *big.Int, start uint64) (uint64, common.Hash) {
	target := Target(difficulty)
	value := new(big.Int)
	for nonce := start; ; nonce++ {
		mix := Mix(sealHash, nonce)
		if value.SetBytes(mix.Bytes()).Cmp(target) <= 0 {
			return nonce, mix
		}
	}
}
