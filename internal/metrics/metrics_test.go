package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sample 从 Registry 中取出 name 指标在给定 label 下的值（counter 或 gauge）。
func sample(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range labels {
				if got[k] != v {
					continue next
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	t.Fatalf("指标 %s%v 不存在", name, labels)
	return 0
}

func TestMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveExtraction("search", 2, 4, 1, 3*time.Millisecond)
	m.ObserveExtraction("mutation", 3, 0, 0, time.Millisecond)
	m.ObserveSearch("match")
	m.ObserveSnapshot("file")
	m.ObserveHTTP("GET", "/health", 200)

	assert.Equal(t, float64(1), sample(t, reg, "cardfinder_extractions_total", map[string]string{"trigger": "search"}))
	assert.Equal(t, float64(3), sample(t, reg, "cardfinder_cards_indexed", nil))
	assert.Equal(t, float64(0), sample(t, reg, "cardfinder_cards_skipped", nil))
	assert.Equal(t, float64(2), sample(t, reg, "cardfinder_extraction_duration_seconds", nil))
	assert.Equal(t, float64(1), sample(t, reg, "cardfinder_searches_total", map[string]string{"outcome": "match"}))
	assert.Equal(t, float64(1), sample(t, reg, "cardfinder_snapshots_total", map[string]string{"source": "file"}))
	assert.Equal(t, float64(1), sample(t, reg, "cardfinder_http_requests_total",
		map[string]string{"method": "GET", "route": "/health", "status": "200"}))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveExtraction("load", 1, 0, 0, time.Millisecond)
	m.ObserveSearch("no_cards")
	m.ObserveSnapshot("http")
	m.ObserveHTTP("PUT", "/board", 204)
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	// 各自的 Registry 不会触发重复注册 panic。
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}
