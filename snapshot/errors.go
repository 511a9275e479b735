package snapshot

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

var (
	// ErrInvalidStartingBlock is returned when the block to snapshot cannot be resolved.
	ErrInvalidStartingBlock = errors.New("invalid starting block")
	// ErrBlockNotFound is returned when the walk back from the snapshot block
	// meets a block that is not stored.
	ErrBlockNotFound = errors.New("block not found")
	// ErrIncompleteChain is returned when the chain does not hold the history
	// the retention window asks for.
	ErrIncompleteChain = errors.New("incomplete chain")
	// ErrMissingCode is returned when restoration ends while accounts still
	// wait for their code.
	ErrMissingCode = errors.New("missing code")
	// ErrChunkHashMismatch is returned when a chunk does not hash to its key.
	ErrChunkHashMismatch = errors.New("chunk hash mismatch")
	// ErrUnknownChunk is returned for a chunk the manifest does not list or
	// which was already fed.
	ErrUnknownChunk = errors.New("unknown chunk")
	// ErrChunkTooLarge is returned when a chunk decompresses beyond the
	// configured maximum.
	ErrChunkTooLarge = errors.New("chunk too large")
	// ErrStateRootMismatch is returned when the restored state root differs
	// from the manifest.
	ErrStateRootMismatch = errors.New("state root mismatch")
	// ErrRestorationFailed is returned when feeding a restoration that has
	// already failed.
	ErrRestorationFailed = errors.New("restoration failed")
	// ErrRestorationDone is returned when feeding a finished restoration.
	ErrRestorationDone = errors.New("restoration already done")
	// ErrUnknownCodec is returned for an unsupported chunk compression.
	ErrUnknownCodec = errors.New("unknown codec")
)

// MissingCodeError lists the code hashes still awaited by restored accounts.
type MissingCodeError struct {
	Hashes []common.Hash
}

func (e *MissingCodeError) Error() string {
	hashes := make([]string, len(e.Hashes))
	for i, h := range e.Hashes {
		hashes[i] = h.Hex()
	}
	return fmt.Sprintf("%v: %s", ErrMissingCode, strings.Join(hashes, ", "))
}

// Unwrap returns ErrMissingCode.
func (e *MissingCodeError) Unwrap() error {
	return ErrMissingCode
}

// Cause returns ErrMissingCode, for errors.Cause.
func (e *MissingCodeError) Cause() error {
	return ErrMissingCode
}
