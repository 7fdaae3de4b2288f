package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestClientMetricsCountsByEndpointAndStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewClientMetrics(reg)
	metrics.ObserveRequest("orders.create", 201, 40*time.Millisecond)
	metrics.ObserveRequest("orders.create", 201, 10*time.Millisecond)
	metrics.ObserveRequest("orders.create", 0, time.Millisecond)
	metrics.SetBreakerOpen("storefront-api", true)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	counts := map[string]float64{}
	for _, mf := range mfs {
		switch mf.GetName() {
		case "api_client_requests_total":
			for _, m := range mf.GetMetric() {
				counts[labelValue(m, "status")] = m.GetCounter().GetValue()
			}
		case "api_client_breaker_open":
			if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 1 {
				t.Fatalf("expected breaker gauge 1, got %f", got)
			}
		}
	}
	if counts["201"] != 2 || counts["error"] != 1 {
		t.Fatalf("unexpected request counts %v", counts)
	}
}

func TestClientMetricsNilSafe(t *testing.T) {
	var none *ClientMetrics
	none.ObserveRequest("x", 200, time.Second)
	none.SetBreakerOpen("x", true)
	NewClientMetrics(nil).ObserveRequest("x", 500, time.Second)
}

func labelValue(metric *dto.Metric, name string) string {
	for _, label := range metric.GetLabel() {
		if label.GetName() == name {
			return label.GetValue()
		}
	}
	return ""
}
