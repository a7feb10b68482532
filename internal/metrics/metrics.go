// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder はメトリクス記録のインターフェース。
// サービス層、ミドルウェア、ワーカーから利用する。
type Recorder interface {
	RecordListing(popular bool, returned int)
	RecordRating(created bool)
	RecordRecipeCreated()
	RecordRecipeDeleted()
	RecordAuthEvent(event string, success bool)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordSessionsCleaned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	listings        *prometheus.CounterVec
	listingReturned prometheus.Histogram
	ratings         *prometheus.CounterVec
	recipesCreated  prometheus.Counter
	recipesDeleted  prometheus.Counter
	authEvents      *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
	sessionsCleaned prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		listings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flavorshare_listing_requests_total",
			Help: "レシピ一覧取得の合計数（ソート種別ごと）",
		}, []string{"sort"}),
		listingReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flavorshare_listing_returned_recipes",
			Help:    "一覧1ページで返したレシピ数",
			Buckets: []float64{0, 1, 6, 12, 24, 50, 100},
		}),
		ratings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flavorshare_ratings_total",
			Help: "評価登録の合計数（新規/上書き）",
		}, []string{"result"}),
		recipesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flavorshare_recipes_created_total",
			Help: "投稿されたレシピの合計数",
		}),
		recipesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flavorshare_recipes_deleted_total",
			Help: "削除されたレシピの合計数",
		}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flavorshare_auth_events_total",
			Help: "認証イベントの合計数",
		}, []string{"event", "outcome"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flavorshare_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flavorshare_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flavorshare_sessions_cleaned_total",
			Help: "削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.listings,
		c.listingReturned,
		c.ratings,
		c.recipesCreated,
		c.recipesDeleted,
		c.authEvents,
		c.httpStatus,
		c.requestLatency,
		c.sessionsCleaned,
	)

	return c
}

// RecordListing は一覧取得を記録する。
func (c *Collector) RecordListing(popular bool, returned int) {
	sort := "newest"
	if popular {
		sort = "popular"
	}
	c.listings.WithLabelValues(sort).Inc()
	c.listingReturned.Observe(float64(returned))
}

// RecordRating は評価登録を記録する。
func (c *Collector) RecordRating(created bool) {
	result := "updated"
	if created {
		result = "created"
	}
	c.ratings.WithLabelValues(result).Inc()
}

// RecordRecipeCreated はレシピ投稿を記録する。
func (c *Collector) RecordRecipeCreated() {
	c.recipesCreated.Inc()
}

// RecordRecipeDeleted はレシピ削除を記録する。
func (c *Collector) RecordRecipeDeleted() {
	c.recipesDeleted.Inc()
}

// RecordAuthEvent は登録・ログイン・ログアウトの結果を記録する。
func (c *Collector) RecordAuthEvent(event string, success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	c.authEvents.WithLabelValues(event, outcome).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordSessionsCleaned は削除した期限切れセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	c.sessionsCleaned.Add(float64(count))
}

// Nop は何も記録しないRecorder。メトリクス未設定時とテストで使う。
type Nop struct{}

func (Nop) RecordListing(bool, int) {}
func (Nop) RecordRating(bool) {}
func (Nop) RecordRecipeCreated() {}
func (Nop) RecordRecipeDeleted() {}
func (Nop) RecordAuthEvent(string, bool) {}
func (Nop) RecordHTTPStatus(int) {}
func (Nop) RecordRequestLatency(time.Duration) {}
func (Nop) RecordSessionsCleaned(int64) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
