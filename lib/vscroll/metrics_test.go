package vscroll

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(&MetricsConfig{
		Namespace: "test",
		Subsystem: "feed",
		Buckets:   []float64{0.01, 0.1, 1},
		Registry:  reg,
	})
	if err != nil {
		t.Fatal(err)
	}
	return m, reg
}

func TestDefaultMetricsConfig(t *testing.T) {
	config := DefaultMetricsConfig()
	if config.Namespace != "hxcore" || config.Subsystem != "vscroll" {
		t.Errorf("config = %+v", config)
	}
	if config.Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be prometheus.DefaultRegisterer by default")
	}
}

func TestMetricsRecordPage(t *testing.T) {
	m, reg := newTestMetrics(t)

	m.RecordPage("/feed", Applied, 2, 10*time.Millisecond)
	m.RecordPage("/feed", Applied, 1, 20*time.Millisecond)
	m.RecordPage("/feed", Failed, 0, time.Millisecond)

	if got := testutil.ToFloat64(m.pages.WithLabelValues("/feed", "applied")); got != 2 {
		t.Errorf("applied pages = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.pages.WithLabelValues("/feed", "failed")); got != 1 {
		t.Errorf("failed pages = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.items.WithLabelValues("/feed")); got != 3 {
		t.Errorf("items = %v, want 3", got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() == "test_feed_page_duration_seconds" {
			found = true
		}
	}
	if !found {
		t.Error("page_duration_seconds metric not found")
	}
}

func TestMetricsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	config := &MetricsConfig{Namespace: "dup", Registry: reg}
	if _, err := NewMetrics(config); err != nil {
		t.Fatal(err)
	}
	_, err := NewMetrics(config)
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		t.Errorf("second NewMetrics error = %v, want AlreadyRegisteredError", err)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.RecordPage("/feed", Applied, 1, time.Millisecond)
}

func TestFeedRecordsMetrics(t *testing.T) {
	m, _ := newTestMetrics(t)
	p := &pagedProvider{pages: [][]any{{"a", "b"}}}
	feed := newTestFeed(t, p)
	feed.Metrics = m

	get(t, feed, "/feed")
	if got := testutil.ToFloat64(m.pages.WithLabelValues("/feed", "applied")); got != 1 {
		t.Errorf("applied pages = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.items.WithLabelValues("/feed")); got != 2 {
		t.Errorf("items = %v, want 2", got)
	}
}
