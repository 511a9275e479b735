package rawdb

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/harmony-one/snapshot/internal/utils"
)

// BlockDetails is the chain linkage kept for every stored block. Blocks
// imported out of order get their children attached once the parent shows up.
type BlockDetails struct {
	Number   uint64
	TD       *big.Int
	Parent   common.Hash
	Children []common.Hash
}

// HasChild reports whether hash is a recorded child.
func (d *BlockDetails) HasChild(hash common.Hash) bool {
	for _, child := range d.Children {
		if child == hash {
			return true
		}
	}
	return false
}

// ReadBlockDetails retrieves the linkage details of the block with the given hash.
func ReadBlockDetails(db ethdb.KeyValueReader, hash common.Hash) *BlockDetails {
	data, _ := db.Get(blockDetailsKey(hash))
	if len(data) == 0 {
		return nil
	}
	details := new(BlockDetails)
	if err := rlp.DecodeBytes(data, details); err != nil {
		utils.Logger().Error().Err(err).Str("hash", hash.Hex()).Msg("Invalid block details RLP")
		return nil
	}
	return details
}

// WriteBlockDetails stores the linkage details of a block.
func WriteBlockDetails(db ethdb.KeyValueWriter, hash common.Hash, details *BlockDetails) error {
	data, err := rlp.EncodeToBytes(details)
	if err != nil {
		return errors.Wrap(err, "cannot encode block details")
	}
	if err := db.Put(blockDetailsKey(hash), data); err != nil {
		utils.Logger().Error().Err(err).Str("hash", hash.Hex()).Msg("Failed to store block details")
		return err
	}
	return nil
}

// DeleteBlockDetails removes the linkage details of a block.
func DeleteBlockDetails(db ethdb.KeyValueWriter, hash common.Hash) {
	if err := db.Delete(blockDetailsKey(hash)); err != nil {
		utils.Logger().Error().Err(err).Msg("Failed to delete block details")
	}
}
