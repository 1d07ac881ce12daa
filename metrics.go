package dlttoolkit

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RecordsScanned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dltoolkit_records_scanned",
		Help: "The total number of DLT records successfully decoded",
	})

	DecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dltoolkit_decode_failures",
		Help: "The total number of byte ranges that failed to decode as a DLT entry",
	})

	PartitionsBuilt = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dltoolkit_partitions_built",
		Help: "The number of record-aligned partitions the last parallel run split into",
	})

	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "dltoolkit_pipeline_duration_seconds",
		Help: "Wall-clock duration of a single analysis pipeline run",
	})
)

// StartMetrics starts the Prometheus exporter on the given port if it is
// non-zero, mirroring the shoveler tooling's opt-in metrics.enable pattern
// but keyed off an explicit port instead of a separate toggle.
func StartMetrics(metricsPort int) {
	if metricsPort == 0 {
		return
	}

	go func() {
		listenAddress := ":" + strconv.Itoa(metricsPort)
		log.Debugln("Starting metrics at " + listenAddress + "/metrics")
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(listenAddress, mux); err != nil {
			log.Errorln("Failed to listen and serve metrics:", err)
		}
	}()
}
