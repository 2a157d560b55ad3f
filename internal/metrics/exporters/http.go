// Package exporters publishes mixer metrics over Prometheus and SSE.
package exporters

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smazurov/switchboard/internal/version"
)

var (
	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "switchboard",
		Name:      "build_info",
		Help:      "Build metadata of the running server; always 1",
	}, []string{"version", "commit", "engine"})
	buildInfoOnce sync.Once
)

// HTTPHandler serves every registered collector in the Prometheus text or
// OpenMetrics format. A failing collector is reported in the scrape rather
// than failing it.
func HTTPHandler() http.Handler {
	buildInfoOnce.Do(func() {
		info := version.Get()
		buildInfo.WithLabelValues(info.Version, info.GitCommit, version.Engine).Set(1)
		prometheus.MustRegister(buildInfo)
	})
	return promhttp.InstrumentMetricHandler(prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
		}))
}
