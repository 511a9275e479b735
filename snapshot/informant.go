package snapshot

import (
	"context"
	"time"

	"github.com/c2h5oh/datasize"

	"github.com/harmony-one/snapshot/internal/utils"
)

// DefaultReportInterval is how often progress is logged.
const DefaultReportInterval = 5 * time.Second

// ReportProgress logs the progress of a snapshot being taken every interval
// until it is done or ctx is canceled.
func ReportProgress(ctx context.Context, progress *Progress, interval time.Duration) {
	logger := utils.GetLogger("snapshot")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastAccounts, lastBlocks uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if progress.Done() {
			return
		}
		accounts, blocks := progress.Accounts(), progress.Blocks()
		if accounts == lastAccounts && blocks == lastBlocks {
			logger.Info().Msg("No snapshot progress since last update")
			continue
		}
		lastAccounts, lastBlocks = accounts, blocks
		logger.Info().
			Uint64("accounts", accounts).
			Uint64("blocks", blocks).
			Str("size", datasize.ByteSize(progress.Size()).HR()).
			Msg("Snapshot progress")
	}
}

// ReportRestoration logs the status of a restoration every interval until
// it stops being ongoing or ctx is canceled.
func ReportRestoration(ctx context.Context, restoration *Restoration, interval time.Duration) {
	logger := utils.GetLogger("snapshot")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		status := restoration.Status()
		if status.State != Ongoing {
			return
		}
		logger.Info().
			Int("stateChunks", status.StateChunksDone).
			Int("stateTotal", status.StateChunks).
			Int("blockChunks", status.BlockChunksDone).
			Int("blockTotal", status.BlockChunks).
			Msg("Restoration progress")
	}
}
