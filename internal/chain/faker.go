package chain

import (
	"time"

	"github.com/ethereum/go-ethereum/core/types"
)

type fakeEngine struct {
	config Config
}

// NewFaker creates an engine that runs the basic block checks but accepts
// every seal. Seal leaves headers untouched.
func NewFaker() *fakeEngine {
	return &fakeEngine{config: DefaultConfig}
}

func (e *fakeEngine) VerifyBlockBasic(block *types.Block) error {
	return verifyBlockBasic(e.config, time.Now, block)
}

func (e *fakeEngine) VerifySeal(header *types.Header) error {
	return nil
}

func (e *fakeEngine) Seal(header *types.Header) error {
	return nil
}
