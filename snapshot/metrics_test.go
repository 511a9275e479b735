package snapshot

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestProgressCollector(t *testing.T) {
	progress := NewProgress()
	progress.addAccounts(12)
	progress.addBlocks(3)
	progress.addSize(2048)

	collector := NewProgressCollector(progress)
	require.Equal(t, 4, testutil.CollectAndCount(collector))

	expected := `
# HELP snapshot_progress_accounts number of accounts chunked
# TYPE snapshot_progress_accounts gauge
snapshot_progress_accounts 12
# HELP snapshot_progress_done whether the snapshot is complete
# TYPE snapshot_progress_done gauge
snapshot_progress_done 0
`
	require.NoError(t, testutil.CollectAndCompare(collector, strings.NewReader(expected),
		"snapshot_progress_accounts", "snapshot_progress_done"))

	progress.markDone()
	progress.Reset()
	require.Zero(t, progress.Accounts())
	require.False(t, progress.Done())
}

func TestChunkCounters(t *testing.T) {
	before := testutil.ToFloat64(chunksWritten.WithLabelValues(chunkKindBlock))
	genesis := testGenesis(10)
	db, bc := newTestChain(t, genesis, 20)
	snap, _ := takeTestSnapshot(t, db, bc, testConfig(PreferredChunkSize))
	after := testutil.ToFloat64(chunksWritten.WithLabelValues(chunkKindBlock))
	require.Equal(t, float64(len(snap.Manifest().BlockHashes)), after-before)
}
