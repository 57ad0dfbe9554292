package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestNewCollector_Independent verifies that two collectors can coexist,
// which the default global registry would reject as duplicate registration.
func TestNewCollector_Independent(t *testing.T) {
	a := NewCollector("aqi_test")
	b := NewCollector("aqi_test")

	a.RecordPipelineRows("read", 5)
	b.RecordPipelineRows("read", 2)

	if got := testutil.ToFloat64(a.PipelineRowsTotal.WithLabelValues("read")); got != 5 {
		t.Errorf("collector a read rows = %v, want 5", got)
	}
	if got := testutil.ToFloat64(b.PipelineRowsTotal.WithLabelValues("read")); got != 2 {
		t.Errorf("collector b read rows = %v, want 2", got)
	}
}

func TestCollector_HandlerServesMetrics(t *testing.T) {
	c := NewCollector("aqi_test")
	c.RecordPrediction("instant", "Good")
	c.RecordModelEvaluation("forecast", 12.5, 0.91)

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"aqi_test_predictions_total", "aqi_test_model_test_rmse"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestTimer_ObserveDuration(t *testing.T) {
	c := NewCollector("aqi_test")
	timer := c.NewTimer(c.PipelineDuration)
	if d := timer.ObserveDuration(); d < 0 {
		t.Errorf("duration = %v, want >= 0", d)
	}
	if got := testutil.CollectAndCount(c.PipelineDuration); got != 1 {
		t.Errorf("histogram series = %d, want 1", got)
	}
}
