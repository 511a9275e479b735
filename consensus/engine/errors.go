package engine

import "github.com/pkg/errors"

var (
	// ErrInvalidNumber is returned for headers claiming to be the genesis block.
	ErrInvalidNumber = errors.New("invalid block number")

	// ErrInvalidDifficulty is returned if the difficulty is not positive.
	ErrInvalidDifficulty = errors.New("non-positive difficulty")

	// ErrExtraDataTooLong is returned if the extra data exceeds the allowed size.
	ErrExtraDataTooLong = errors.New("extra-data too long")

	// ErrGasLimit is returned if the gas limit is out of bounds.
	ErrGasLimit = errors.New("invalid gas limit")

	// ErrGasUsed is returned if a header uses more gas than its limit.
	ErrGasUsed = errors.New("gas used exceeds gas limit")

	// ErrFutureBlock is returned when a block's timestamp is in the future.
	ErrFutureBlock = errors.New("block in the future")

	// ErrTxRoot is returned if the transaction root does not match the body.
	ErrTxRoot = errors.New("transaction root mismatch")

	// ErrReceiptsRoot is returned if the receipts do not match the receipt
	// root of the header they are stored under.
	ErrReceiptsRoot = errors.New("receipts root mismatch")

	// ErrUncleHash is returned if the uncle hash does not match the body.
	ErrUncleHash = errors.New("uncle hash mismatch")

	// ErrTooManyUncles is returned if a block contains too many uncles.
	ErrTooManyUncles = errors.New("too many uncles")

	// ErrInvalidMixDigest is returned if a header's mix digest is not the
	// digest of its seal hash and nonce.
	ErrInvalidMixDigest = errors.New("invalid mix digest")

	// ErrInvalidPoW is returned if the mix digest misses the difficulty target.
	ErrInvalidPoW = errors.New("invalid proof-of-work")
)
