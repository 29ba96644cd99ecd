// Package metrics 定义 Prometheus 指标。
//
// 约束：
// - 指标注册到调用方传入的 Registry（测试可各自隔离，不依赖全局注册表）
// - 所有 Observe* 方法对 nil *Metrics 安全，组件无需判空
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cardfinder"

// Metrics 汇总抽取、搜索、快照与 HTTP 指标。
//
// Metrics:
//   - cardfinder_extractions_total{trigger}
//   - cardfinder_extraction_duration_seconds
//   - cardfinder_cards_indexed
//   - cardfinder_cards_skipped / cardfinder_cards_dropped（最近一轮）
//   - cardfinder_searches_total{outcome}
//   - cardfinder_snapshots_total{source}
//   - cardfinder_http_requests_total{method,route,status}
type Metrics struct {
	ExtractionsTotal   *prometheus.CounterVec
	ExtractionDuration prometheus.Histogram
	CardsIndexed       prometheus.Gauge
	CardsSkipped       prometheus.Gauge
	CardsDropped       prometheus.Gauge

	SearchesTotal  *prometheus.CounterVec
	SnapshotsTotal *prometheus.CounterVec

	HTTPRequestsTotal *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ExtractionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extractions_total",
				Help:      "Total number of card extraction passes",
			},
			[]string{"trigger"}, // mutation, ready, retry, load, search, debug
		),
		ExtractionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Duration of a card extraction pass in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		CardsIndexed: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cards_indexed",
			Help:      "Number of cards in the index after the last pass",
		}),
		CardsSkipped: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cards_skipped",
			Help:      "Candidates filtered by visibility, size or style in the last pass",
		}),
		CardsDropped: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cards_dropped",
			Help:      "Candidates without matter id and name in the last pass",
		}),
		SearchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_total",
				Help:      "Total number of SEARCH_MATTER requests by outcome",
			},
			[]string{"outcome"}, // match, no_match, empty_query, no_cards
		),
		SnapshotsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshots_total",
				Help:      "Total number of page snapshots applied by source",
			},
			[]string{"source"}, // file, http
		),
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "status"},
		),
	}
}

func (m *Metrics) ObserveExtraction(trigger string, indexed, skipped, dropped int, d time.Duration) {
	if m == nil {
		return
	}
	m.ExtractionsTotal.WithLabelValues(trigger).Inc()
	m.ExtractionDuration.Observe(d.Seconds())
	m.CardsIndexed.Set(float64(indexed))
	m.CardsSkipped.Set(float64(skipped))
	m.CardsDropped.Set(float64(dropped))
}

func (m *Metrics) ObserveSearch(outcome string) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveSnapshot(source string) {
	if m == nil {
		return
	}
	m.SnapshotsTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
