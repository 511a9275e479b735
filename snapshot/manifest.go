package snapshot

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
)

// ManifestData describes the chunks of a snapshot and the block it was
// taken at. Block hashes are in creation order, so the chunk holding the
// snapshot block comes first.
type ManifestData struct {
	StateHashes []common.Hash
	BlockHashes []common.Hash
	StateRoot   common.Hash
	BlockNumber uint64
	BlockHash   common.Hash
}

// EncodeManifest returns the RLP encoding of the manifest.
func EncodeManifest(m *ManifestData) ([]byte, error) {
	enc, err := rlp.EncodeToBytes(m)
	if err != nil {
		return nil, errors.Wrap(err, "cannot encode manifest")
	}
	return enc, nil
}

// DecodeManifest parses an RLP encoded manifest.
func DecodeManifest(data []byte) (*ManifestData, error) {
	m := new(ManifestData)
	if err := rlp.DecodeBytes(data, m); err != nil {
		return nil, errors.Wrap(err, "cannot decode manifest")
	}
	return m, nil
}

// IsStateChunk reports whether hash names a state chunk of the manifest.
func (m *ManifestData) IsStateChunk(hash common.Hash) bool {
	for _, h := range m.StateHashes {
		if h == hash {
			return true
		}
	}
	return false
}

// IsBlockChunk reports whether hash names a block chunk of the manifest.
func (m *ManifestData) IsBlockChunk(hash common.Hash) bool {
	for _, h := range m.BlockHashes {
		if h == hash {
			return true
		}
	}
	return false
}
