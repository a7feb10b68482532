package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// findMetric は指定名・ラベルのメトリクスを返す。見つからない場合はnil。
func findMetric(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) *dto.Metric {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m
			}
		}
	}
	return nil
}

func labelsMatch(m *dto.Metric, want map[string]string) bool {
	got := map[string]string{}
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	if c := NewCollector(reg); c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

func TestRecordListing_CountsBySort(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordListing(true, 12)
	c.RecordListing(false, 3)
	c.RecordListing(false, 0)

	if m := findMetric(t, reg, "flavorshare_listing_requests_total", map[string]string{"sort": "newest"}); m == nil || m.GetCounter().GetValue() != 2 {
		t.Errorf("newest listings = %v, want 2", m)
	}
	if m := findMetric(t, reg, "flavorshare_listing_requests_total", map[string]string{"sort": "popular"}); m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("popular listings = %v, want 1", m)
	}
	if m := findMetric(t, reg, "flavorshare_listing_returned_recipes", nil); m == nil || m.GetHistogram().GetSampleCount() != 3 {
		t.Errorf("returned histogram = %v, want 3 samples", m)
	}
}

func TestRecordRating_SeparatesCreatedAndUpdated(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRating(true)
	c.RecordRating(false)
	c.RecordRating(false)

	if m := findMetric(t, reg, "flavorshare_ratings_total", map[string]string{"result": "created"}); m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("created ratings = %v, want 1", m)
	}
	if m := findMetric(t, reg, "flavorshare_ratings_total", map[string]string{"result": "updated"}); m == nil || m.GetCounter().GetValue() != 2 {
		t.Errorf("updated ratings = %v, want 2", m)
	}
}

func TestRecordAuthEvent_LabelsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAuthEvent("login", false)
	c.RecordAuthEvent("login", true)
	c.RecordAuthEvent("login", true)

	if m := findMetric(t, reg, "flavorshare_auth_events_total", map[string]string{"event": "login", "outcome": "success"}); m == nil || m.GetCounter().GetValue() != 2 {
		t.Errorf("login success = %v, want 2", m)
	}
	if m := findMetric(t, reg, "flavorshare_auth_events_total", map[string]string{"event": "login", "outcome": "failure"}); m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("login failure = %v, want 1", m)
	}
}

func TestRecordHTTPStatus_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(200)
	c.RecordHTTPStatus(404)

	if m := findMetric(t, reg, "flavorshare_http_status_total", map[string]string{"status_code": "200"}); m == nil || m.GetCounter().GetValue() != 2 {
		t.Errorf("status 200 = %v, want 2", m)
	}
	if m := findMetric(t, reg, "flavorshare_http_status_total", map[string]string{"status_code": "404"}); m == nil || m.GetCounter().GetValue() != 1 {
		t.Errorf("status 404 = %v, want 1", m)
	}
}

func TestRecordCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRecipeCreated()
	c.RecordRecipeDeleted()
	c.RecordSessionsCleaned(5)
	c.RecordRequestLatency(150 * time.Millisecond)

	tests := []struct {
		name string
		want float64
	}{
		{"flavorshare_recipes_created_total", 1},
		{"flavorshare_recipes_deleted_total", 1},
		{"flavorshare_sessions_cleaned_total", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := findMetric(t, reg, tt.name, nil)
			if m == nil || m.GetCounter().GetValue() != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, m, tt.want)
			}
		})
	}

	m := findMetric(t, reg, "flavorshare_http_request_duration_seconds", nil)
	if m == nil || m.GetHistogram().GetSampleCount() != 1 {
		t.Errorf("latency histogram = %v, want 1 sample", m)
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat はHandlerがテキスト形式を返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordRating(true)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `flavorshare_ratings_total{result="created"} 1`) {
		t.Errorf("response should contain ratings counter, got:\n%s", body)
	}
}

// TestMultipleCollectors_IndependentRegistries は別レジストリ間で値が独立していることを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	NewCollector(reg2)

	c1.RecordRecipeCreated()

	if m := findMetric(t, reg2, "flavorshare_recipes_created_total", nil); m == nil || m.GetCounter().GetValue() != 0 {
		t.Errorf("reg2 recipes_created = %v, want 0", m)
	}
}

func TestNop_SatisfiesRecorder(t *testing.T) {
	var r Recorder = Nop{}
	r.RecordListing(false, 1)
	r.RecordSessionsCleaned(1)
}
