package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusFailure = "failure"
	statusAborted = "aborted"
)

type metrics struct {
	queries  *prometheus.CounterVec
	batches  prometheus.Counter
	rows     prometheus.Counter
	duration prometheus.Histogram
}

func newMetrics(r prometheus.Registerer) *metrics {
	return &metrics{
		queries: promauto.With(r).NewCounterVec(prometheus.CounterOpts{
			Name: "rq_engine_queries_total",
			Help: "Total number of executed queries by final status",
		}, []string{"status"}),
		batches: promauto.With(r).NewCounter(prometheus.CounterOpts{
			Name: "rq_engine_batches_total",
			Help: "Total number of record batches returned by queries",
		}),
		rows: promauto.With(r).NewCounter(prometheus.CounterOpts{
			Name: "rq_engine_rows_total",
			Help: "Total number of rows returned by queries",
		}),
		duration: promauto.With(r).NewHistogram(prometheus.HistogramOpts{
			Name: "rq_engine_query_duration_seconds",
			Help: "Time from the start of a query until its pipeline was exhausted, failed or closed",

			Buckets:                         prometheus.DefBuckets,
			NativeHistogramBucketFactor:     1.1,
			NativeHistogramMaxBucketNumber:  100,
			NativeHistogramMinResetDuration: time.Hour,
		}),
	}
}
