package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if observationsTotal == nil || fetchAttemptsTotal == nil ||
		eventsTotal == nil || notificationsTotal == nil || passDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveHelpers(t *testing.T) {
	Init()

	before := testutil.ToFloat64(observationsTotal.WithLabelValues("xkom", "true"))
	ObserveObservation("xkom", true)
	if val := testutil.ToFloat64(observationsTotal.WithLabelValues("xkom", "true")) - before; val != 1 {
		t.Errorf("Expected one observation, got %f", val)
	}

	beforeErr := testutil.ToFloat64(fetchAttemptsTotal.WithLabelValues("static", "error"))
	ObserveFetchAttempt("static", errors.New("boom"))
	ObserveFetchAttempt("static", nil)
	if val := testutil.ToFloat64(fetchAttemptsTotal.WithLabelValues("static", "error")) - beforeErr; val != 1 {
		t.Errorf("Expected one failed attempt, got %f", val)
	}

	beforeEvt := testutil.ToFloat64(eventsTotal.WithLabelValues("price_dropped"))
	ObserveEvent("price_dropped")
	if val := testutil.ToFloat64(eventsTotal.WithLabelValues("price_dropped")) - beforeEvt; val != 1 {
		t.Errorf("Expected one event, got %f", val)
	}

	beforeNote := testutil.ToFloat64(notificationsTotal.WithLabelValues("discord", "failed"))
	ObserveNotification("discord", "failed")
	if val := testutil.ToFloat64(notificationsTotal.WithLabelValues("discord", "failed")) - beforeNote; val != 1 {
		t.Errorf("Expected one failed notification, got %f", val)
	}

	beforeFail := testutil.ToFloat64(productFailuresTotal)
	ObserveProductFailure()
	if val := testutil.ToFloat64(productFailuresTotal) - beforeFail; val != 1 {
		t.Errorf("Expected one product failure, got %f", val)
	}

	ObservePass(3 * time.Second)
	if val := testutil.CollectAndCount(passDurationSeconds); val != 1 {
		t.Errorf("Expected pass histogram to be collected, got %d", val)
	}

	IncActiveWorkers()
	DecActiveWorkers()
	if val := testutil.ToFloat64(activeWorkers); val != 0 {
		t.Errorf("Expected active workers to return to 0, got %f", val)
	}
}
