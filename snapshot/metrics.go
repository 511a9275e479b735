package snapshot

import (
	"github.com/prometheus/client_golang/prometheus"

	prom "github.com/harmony-one/snapshot/api/service/prometheus"
)

const (
	chunkKindState = "state"
	chunkKindBlock = "block"
)

func init() {
	prom.PromRegistry().MustRegister(
		chunksWritten,
		chunksFed,
		accountsRestored,
		blocksRestored,
		sealsVerified,
	)
}

var (
	chunksWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snapshot",
			Subsystem: "take",
			Name:      "chunks",
			Help:      "number of chunks written",
		},
		[]string{"kind"},
	)

	chunksFed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snapshot",
			Subsystem: "restore",
			Name:      "chunks",
			Help:      "number of chunks fed to restoration",
		},
		[]string{"kind"},
	)

	accountsRestored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "snapshot",
			Subsystem: "restore",
			Name:      "accounts",
			Help:      "number of accounts restored",
		},
	)

	blocksRestored = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "snapshot",
			Subsystem: "restore",
			Name:      "blocks",
			Help:      "number of blocks restored",
		},
	)

	sealsVerified = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "snapshot",
			Subsystem: "restore",
			Name:      "seals_verified",
			Help:      "number of restored blocks whose seal was verified",
		},
	)
)

// progressCollector exports a Progress as gauges.
type progressCollector struct {
	progress *Progress

	accounts *prometheus.Desc
	blocks   *prometheus.Desc
	size     *prometheus.Desc
	done     *prometheus.Desc
}

// NewProgressCollector returns a collector reading the given progress on
// every scrape.
func NewProgressCollector(progress *Progress) prometheus.Collector {
	return &progressCollector{
		progress: progress,
		accounts: prometheus.NewDesc("snapshot_progress_accounts", "number of accounts chunked", nil, nil),
		blocks:   prometheus.NewDesc("snapshot_progress_blocks", "number of blocks chunked", nil, nil),
		size:     prometheus.NewDesc("snapshot_progress_bytes", "compressed bytes written", nil, nil),
		done:     prometheus.NewDesc("snapshot_progress_done", "whether the snapshot is complete", nil, nil),
	}
}

func (c *progressCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.accounts
	ch <- c.blocks
	ch <- c.size
	ch <- c.done
}

func (c *progressCollector) Collect(ch chan<- prometheus.Metric) {
	done := 0.0
	if c.progress.Done() {
		done = 1
	}
	ch <- prometheus.MustNewConstMetric(c.accounts, prometheus.GaugeValue, float64(c.progress.Accounts()))
	ch <- prometheus.MustNewConstMetric(c.blocks, prometheus.GaugeValue, float64(c.progress.Blocks()))
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(c.progress.Size()))
	ch <- prometheus.MustNewConstMetric(c.done, prometheus.GaugeValue, done)
}
