package engine

import (
	"github.com/ethereum/go-ethereum/core/types"
)

//go:generate mockgen -source consensus_engine.go -destination=mock/mock_engine.go -package=mock

// Engine is the part of a consensus engine needed to accept blocks that are
// imported out of order, without access to their ancestors.
type Engine interface {
	// VerifyBlockBasic checks the structure of a block: header field bounds
	// and the consistency of the header with the body. It does not need the
	// parent and is cheap enough to run on every block.
	VerifyBlockBasic(block *types.Block) error

	// VerifySeal checks whether the seal of the header satisfies the
	// consensus rules. This is the expensive check.
	VerifySeal(header *types.Header) error
}

// Sealer produces seals accepted by the matching Engine.
type Sealer interface {
	Engine

	// Seal fills the seal fields of the header in place.
	Seal(header *types.Header) error
}
