package monitoring

import (
	"net/http"
	"time"

	"nanochain/logx"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type BlockRejectedReason string

var (
	BlockBadLinkage    BlockRejectedReason = "bad_linkage"
	BlockPowNotMet     BlockRejectedReason = "pow_not_met"
	BlockHashMismatch  BlockRejectedReason = "hash_mismatch"
	BlockMalformedHash BlockRejectedReason = "malformed_hash"
	BlockNoGenesis     BlockRejectedReason = "no_genesis"
	BlockRejectedOther BlockRejectedReason = "other"
)

type nodePromMetrics struct {
	nodeUpUnixSeconds  prometheus.Gauge
	chainHeight        prometheus.Gauge
	minedBlockCount    prometheus.Counter
	receivedBlockCount prometheus.Counter
	rejectedBlockCount *prometheus.CounterVec
	chainSwapCount     prometheus.Counter
	miningDuration     prometheus.Histogram
	peerCount          prometheus.Gauge
	panicCount         prometheus.Counter
}

func newNodePromMetrics() *nodePromMetrics {
	return &nodePromMetrics{
		nodeUpUnixSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "nanochain_node_up_timestamp_unix_seconds",
				Help: "Unix timestamp of the node start",
			},
		),
		chainHeight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "nanochain_node_chain_height",
				Help: "The number of blocks in the locally held chain",
			},
		),
		minedBlockCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nanochain_node_mined_block_count",
				Help: "The total number of blocks mined by this node",
			},
		),
		receivedBlockCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nanochain_node_received_block_count",
				Help: "The total number of blocks received from the gossip mesh",
			},
		),
		rejectedBlockCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nanochain_node_rejected_block_count",
				Help: "The total number of rejected blocks",
			},
			[]string{"reason"},
		),
		chainSwapCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nanochain_node_chain_swap_count",
				Help: "The total number of times the local chain was replaced by a remote one",
			},
		),
		miningDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "nanochain_node_mining_duration_seconds",
				Help:    "Duration in seconds of a single nonce search",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
		peerCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "nanochain_node_peer_count",
				Help: "The number of peers currently known to this node",
			},
		),
		panicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "nanochain_node_panic_count",
				Help: "The total number of recovered panics",
			},
		),
	}
}

var metrics = newNodePromMetrics()

func MarkNodeUp() {
	metrics.nodeUpUnixSeconds.Set(float64(time.Now().Unix()))
}

func SetChainHeight(height int) {
	metrics.chainHeight.Set(float64(height))
}

func IncreaseMinedBlockCount() {
	metrics.minedBlockCount.Inc()
}

func IncreaseReceivedBlockCount() {
	metrics.receivedBlockCount.Inc()
}

func IncreaseRejectedBlockCount(reason BlockRejectedReason) {
	metrics.rejectedBlockCount.WithLabelValues(string(reason)).Inc()
}

func IncreaseChainSwapCount() {
	metrics.chainSwapCount.Inc()
}

func ObserveMiningDuration(d time.Duration) {
	metrics.miningDuration.Observe(d.Seconds())
}

func SetPeerCount(count int) {
	metrics.peerCount.Set(float64(count))
}

func IncreasePanicCount() {
	metrics.panicCount.Inc()
}

// RunMetricsServer serves the prometheus registry on addr. Blocks until the
// listener fails, so callers run it on its own goroutine.
func RunMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logx.Info("MONITORING", "Serving prometheus metrics on ", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logx.Error("MONITORING", "Metrics server stopped: ", err)
	}
}
