package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func newTestManager(t *testing.T) *MetricsManager {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewMetricsManagerWithRegisterer(MetricsConfig{Namespace: "shopwatch_test"}, reg)
}

func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	var m dto.Metric
	if err := vec.WithLabelValues(labels...).Write(&m); err != nil {
		t.Fatalf("writing metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRecordTickIncrementsCounterAndHistogram(t *testing.T) {
	mm := newTestManager(t)
	mm.RecordTick("bstn", 250*time.Millisecond)
	if got := counterValue(t, mm.ticksTotal, "bstn"); got != 1 {
		t.Errorf("ticksTotal = %v, want 1", got)
	}

	var h dto.Metric
	if err := mm.tickDuration.WithLabelValues("bstn").(prometheus.Metric).Write(&h); err != nil {
		t.Fatalf("writing histogram: %v", err)
	}
	if got := h.GetHistogram().GetSampleCount(); got != 1 {
		t.Errorf("tickDuration sample count = %v, want 1", got)
	}
}

func TestRecordFetchLabelsByTargetAndOutcome(t *testing.T) {
	mm := newTestManager(t)
	mm.RecordFetch("product", "success")
	mm.RecordFetch("product", "success")
	mm.RecordFetch("shop", "error")

	if got := counterValue(t, mm.fetchesTotal, "product", "success"); got != 2 {
		t.Errorf("product/success = %v, want 2", got)
	}
	if got := counterValue(t, mm.fetchesTotal, "shop", "error"); got != 1 {
		t.Errorf("shop/error = %v, want 1", got)
	}
}

func TestRecordNotificationSentAndFailedAreIndependent(t *testing.T) {
	mm := newTestManager(t)
	mm.RecordNotificationSent("product")
	mm.RecordNotificationFailed("product")
	mm.RecordNotificationFailed("product")

	if got := counterValue(t, mm.notificationsSent, "product"); got != 1 {
		t.Errorf("notificationsSent = %v, want 1", got)
	}
	if got := counterValue(t, mm.notificationsFailed, "product"); got != 2 {
		t.Errorf("notificationsFailed = %v, want 2", got)
	}
}

func TestSetActiveDriversAndRefreshSystemMetricsDoNotPanic(t *testing.T) {
	mm := newTestManager(t)
	mm.SetActiveDrivers(5)
	mm.RefreshSystemMetrics()
}
