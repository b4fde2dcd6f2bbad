package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveScrape(t *testing.T) {
	m := New()

	m.ObserveScrape("success", 30*time.Second, 6, 12)
	m.ObserveScrape("TIMEOUT", 5*time.Minute, 60, 0)

	if got := testutil.ToFloat64(m.ScrapesTotal.WithLabelValues("success")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(m.ProfilesScraped); got != 12 {
		t.Fatalf("expected 12 profiles, got %v", got)
	}
}

func TestObserveProvider(t *testing.T) {
	m := New()

	m.ObserveProvider("launch", nil)
	m.ObserveProvider("launch", errors.New("boom"))

	if got := testutil.ToFloat64(m.ProviderRequests.WithLabelValues("launch", "error")); got != 1 {
		t.Fatalf("expected 1 failed launch, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveScrape("success", time.Second, 1, 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "post_reactors_scrapes_total") {
		t.Fatalf("metrics output missing scrape counter")
	}
}

func TestScrapeStartedTracksInFlight(t *testing.T) {
	m := New()

	first := m.ScrapeStarted()
	second := m.ScrapeStarted()
	if got := testutil.ToFloat64(m.InFlight); got != 2 {
		t.Fatalf("expected 2 in flight, got %v", got)
	}

	first()
	second()
	if got := testutil.ToFloat64(m.InFlight); got != 0 {
		t.Fatalf("expected 0 in flight, got %v", got)
	}
}
