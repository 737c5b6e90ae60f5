// Package metrics exposes Prometheus counters for nutrition resolution and
// recipe aggregation.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config 指標標籤設定
type Config struct {
	ServiceName string
	Environment string
}

// Metrics 應用指標
type Metrics struct {
	registry          *prometheus.Registry
	sourceLookups     *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	resolutions       *prometheus.CounterVec
	aggregationIssues *prometheus.CounterVec
	aggregations      prometheus.Counter
}

// New 建立獨立 registry 的指標集合
func New(cfg Config) *Metrics {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "food-budget"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sourceLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "nutrition_source_lookups_total",
			Help:        "Outbound nutrition source lookups by source and outcome.",
			ConstLabels: constLabels,
		}, []string{"source", "outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "nutrition_cache_lookups_total",
			Help:        "Nutrition cache lookups by result (hit, negative, miss).",
			ConstLabels: constLabels,
		}, []string{"result"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "nutrition_resolutions_total",
			Help:        "Completed nutrition resolutions by result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		aggregationIssues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "recipe_aggregation_issues_total",
			Help:        "Recipe lines excluded or flagged during aggregation by kind.",
			ConstLabels: constLabels,
		}, []string{"kind"}),
		aggregations: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "recipe_aggregations_total",
			Help:        "Recipe summaries computed.",
			ConstLabels: constLabels,
		}),
	}

	m.registry.MustRegister(
		m.sourceLookups,
		m.cacheLookups,
		m.resolutions,
		m.aggregationIssues,
		m.aggregations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry 底層 registry
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler /metrics 處理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSourceLookup 記錄來源查詢
func (m *Metrics) ObserveSourceLookup(source, outcome string) {
	if m == nil {
		return
	}
	m.sourceLookups.WithLabelValues(source, outcome).Inc()
}

// ObserveCacheLookup 記錄快取查詢
func (m *Metrics) ObserveCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveResolution 記錄解析結果
func (m *Metrics) ObserveResolution(result string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(result).Inc()
}

// ObserveAggregation 記錄一次食譜彙總與其問題列
func (m *Metrics) ObserveAggregation(issueKinds []string) {
	if m == nil {
		return
	}
	m.aggregations.Inc()
	for _, kind := range issueKinds {
		m.aggregationIssues.WithLabelValues(kind).Inc()
	}
}
