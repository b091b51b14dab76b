package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRouterServesHealthAndMetrics(t *testing.T) {
	Init()
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200"))

	ts := httptest.NewServer(Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	body, err := io.ReadAll(resp.Body)
	if errInner := resp.Body.Close(); errInner != nil {
		t.Log(errInner)
	}
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected healthz response: %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	if errInner := resp.Body.Close(); errInner != nil {
		t.Log(errInner)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected metrics endpoint to return 200, got %d", resp.StatusCode)
	}

	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "200")) - before; val != 2 {
		t.Errorf("Expected two successful GETs recorded, got %f", val)
	}
	if val := testutil.CollectAndCount(httpRequestDurationSecs); val <= 0 {
		t.Errorf("Expected request durations to be observed, got %d", val)
	}
}

func TestMiddlewareRecordsNotFound(t *testing.T) {
	Init()
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "404"))

	ts := httptest.NewServer(Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/missing")
	if err != nil {
		t.Fatal(err)
	}
	if errInner := resp.Body.Close(); errInner != nil {
		t.Log(errInner)
	}

	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "404")) - before; val != 1 {
		t.Errorf("Expected one 404 recorded, got %f", val)
	}
}
