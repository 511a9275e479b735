package snapshot

import (
	"sync/atomic"

	"github.com/harmony-one/abool"
)

// Progress counts what a snapshot has processed so far. Producers add to it
// while any goroutine may read it.
type Progress struct {
	accounts atomic.Uint64
	blocks   atomic.Uint64
	size     atomic.Uint64
	done     *abool.AtomicBool
}

// NewProgress returns zeroed progress.
func NewProgress() *Progress {
	return &Progress{done: abool.New()}
}

// Reset zeroes the counters for reuse.
func (p *Progress) Reset() {
	p.accounts.Store(0)
	p.blocks.Store(0)
	p.size.Store(0)
	p.done.UnSet()
}

// Accounts returns the number of accounts chunked.
func (p *Progress) Accounts() uint64 { return p.accounts.Load() }

// Blocks returns the number of blocks chunked.
func (p *Progress) Blocks() uint64 { return p.blocks.Load() }

// Size returns the number of compressed bytes written.
func (p *Progress) Size() uint64 { return p.size.Load() }

// Done reports whether the snapshot finished.
func (p *Progress) Done() bool { return p.done.IsSet() }

func (p *Progress) addAccounts(n int) { p.accounts.Add(uint64(n)) }
func (p *Progress) addBlocks(n int)   { p.blocks.Add(uint64(n)) }
func (p *Progress) addSize(n int)     { p.size.Add(uint64(n)) }
func (p *Progress) markDone()         { p.done.Set() }
