// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// カタログ更新ジョブやサービス層から利用する。
type MetricsCollector interface {
	RecordRefreshSuccess()
	RecordRefreshFailure()
	RecordRefreshLatency(duration time.Duration)
	SetCatalogSize(count int)
	RecordTokenRefresh()
	RecordUpstreamStatus(statusCode int)
	RecordQuoteCreated()
	RecordQuoteApproved()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	refreshSuccess prometheus.Counter
	refreshFail    prometheus.Counter
	refreshLatency prometheus.Histogram
	catalogSize    prometheus.Gauge
	tokenRefresh   prometheus.Counter
	upstreamStatus *prometheus.CounterVec
	quotesCreated  prometheus.Counter
	quotesApproved prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		refreshSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vcron_catalog_refresh_success_total",
			Help: "カタログ更新成功の合計数",
		}),
		refreshFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vcron_catalog_refresh_fail_total",
			Help: "カタログ更新失敗の合計数",
		}),
		refreshLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vcron_catalog_refresh_latency_seconds",
			Help:    "カタログ更新のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		catalogSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vcron_catalog_products",
			Help: "現在のカタログスナップショットの商品数",
		}),
		tokenRefresh: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vcron_upstream_token_refresh_total",
			Help: "ディストリビューターAPIのトークン取得の合計数",
		}),
		upstreamStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vcron_upstream_status_total",
			Help: "ディストリビューターAPIのHTTPステータスコード別レスポンス数",
		}, []string{"status_code"}),
		quotesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vcron_quotes_created_total",
			Help: "作成された見積の合計数",
		}),
		quotesApproved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vcron_quotes_approved_total",
			Help: "承認された見積の合計数",
		}),
	}

	reg.MustRegister(
		c.refreshSuccess,
		c.refreshFail,
		c.refreshLatency,
		c.catalogSize,
		c.tokenRefresh,
		c.upstreamStatus,
		c.quotesCreated,
		c.quotesApproved,
	)

	return c
}

// RecordRefreshSuccess はカタログ更新成功を記録する。
func (c *Collector) RecordRefreshSuccess() {
	c.refreshSuccess.Inc()
}

// RecordRefreshFailure はカタログ更新失敗を記録する。
func (c *Collector) RecordRefreshFailure() {
	c.refreshFail.Inc()
}

// RecordRefreshLatency はカタログ更新のレイテンシを記録する。
func (c *Collector) RecordRefreshLatency(duration time.Duration) {
	c.refreshLatency.Observe(duration.Seconds())
}

// SetCatalogSize は現在のカタログスナップショットの商品数を記録する。
func (c *Collector) SetCatalogSize(count int) {
	c.catalogSize.Set(float64(count))
}

// RecordTokenRefresh はトークン取得を記録する。
func (c *Collector) RecordTokenRefresh() {
	c.tokenRefresh.Inc()
}

// RecordUpstreamStatus はディストリビューターAPIのHTTPステータスコードを記録する。
func (c *Collector) RecordUpstreamStatus(statusCode int) {
	c.upstreamStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordQuoteCreated は見積作成を記録する。
func (c *Collector) RecordQuoteCreated() {
	c.quotesCreated.Inc()
}

// RecordQuoteApproved は見積承認を記録する。
func (c *Collector) RecordQuoteApproved() {
	c.quotesApproved.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
