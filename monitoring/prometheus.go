package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/mtlnet/mtl/logx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type nodePromMetrics struct {
	nodeUpUnixSeconds   prometheus.Gauge
	blockHeight         prometheus.Gauge
	committedBlockCount prometheus.Counter
	rejectedBlockCount  *prometheus.CounterVec
	appliedTxCount      prometheus.Counter
	txInBlock           prometheus.Histogram
	blockApplySeconds   prometheus.Histogram
	panicCount          prometheus.Counter
}

func newNodePromMetrics() *nodePromMetrics {
	return &nodePromMetrics{
		nodeUpUnixSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mtl_node_up_timestamp_unix_seconds",
				Help: "Unix timestamp of the node",
			},
		),
		blockHeight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mtl_node_block_height",
				Help: "The current chain tip block number",
			},
		),
		committedBlockCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mtl_node_committed_block_count",
				Help: "The total number of blocks committed since start",
			},
		),
		rejectedBlockCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mtl_node_rejected_block_count",
				Help: "The total number of rejected blocks",
			},
			[]string{"reason"},
		),
		appliedTxCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mtl_node_applied_tx_count",
				Help: "The total number of transactions applied in committed blocks",
			},
		),
		txInBlock: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "mtl_node_tx_in_block",
				Help: "Number of tx in block",
			},
		),
		blockApplySeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "mtl_node_block_apply_seconds",
				Help: "Duration in seconds from proposal to commit of a block",
			},
		),
		panicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mtl_node_panic_count",
				Help: "The total number of recovered panics",
			},
		),
	}
}

var (
	nodeMetrics *nodePromMetrics
	initOnce    sync.Once
)

// InitMetrics initializes node metrics but does not expose them yet.
// Metric recording is a no-op until this is called.
func InitMetrics() {
	initOnce.Do(func() {
		nodeMetrics = newNodePromMetrics()
		nodeMetrics.nodeUpUnixSeconds.SetToCurrentTime()
	})
}

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func SetBlockHeight(blockHeight uint32) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.blockHeight.Set(float64(blockHeight))
}

func IncreaseCommittedBlockCount() {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.committedBlockCount.Inc()
}

func RecordRejectedBlock(reason string) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.rejectedBlockCount.With(prometheus.Labels{
		"reason": reason,
	}).Inc()
}

func IncreaseAppliedTxCount(count int) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.appliedTxCount.Add(float64(count))
}

func RecordTxInBlock(txCount int) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.txInBlock.Observe(float64(txCount))
}

func RecordBlockApplyDuration(duration time.Duration) {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.blockApplySeconds.Observe(duration.Seconds())
}

func IncreasePanicCount() {
	if nodeMetrics == nil {
		return
	}
	nodeMetrics.panicCount.Inc()
}
