package clock

import (
	"testing"
	"time"
)

func TestStampUsesTimestampLayout(t *testing.T) {
	t.Parallel()

	c := NewFixed(time.Date(2025, 2, 1, 9, 5, 7, 0, time.UTC))
	if got := Stamp(c); got != "2025-02-01 09:05:07" {
		t.Fatalf("unexpected stamp %q", got)
	}
	c.Advance(time.Minute)
	if got := Stamp(c); got != "2025-02-01 09:06:07" {
		t.Fatalf("unexpected stamp after advance %q", got)
	}
}

func TestSystemClockLocation(t *testing.T) {
	t.Parallel()

	utc := NewSystem(time.UTC)
	before := time.Now().Add(-time.Second)
	got := utc.Now()
	after := time.Now().Add(time.Second)
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC location, got %v", got.Location())
	}
	if got.Before(before) || got.After(after) {
		t.Fatalf("expected %v to be between %v and %v", got, before, after)
	}

	if local := NewSystem(nil).Now(); local.Location() != time.Local {
		t.Fatalf("expected local location, got %v", local.Location())
	}
}

func TestSystemClockNonDecreasing(t *testing.T) {
	t.Parallel()

	clk := NewSystem(nil)
	first := clk.Now()
	second := clk.Now()
	if second.Before(first) {
		t.Fatalf("expected second call %v to be >= first %v", second, first)
	}
}
