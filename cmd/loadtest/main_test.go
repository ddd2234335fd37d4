package main

import (
	"math"
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	if got := percentile(sorted, 50); math.Abs(got-5.5) > 0.001 {
		t.Fatalf("p50: expected 5.5, got %f", got)
	}
	if got := percentile(sorted, 99); got < 9.9 || got > 10 {
		t.Fatalf("p99: expected near max, got %f", got)
	}
	if got := percentile([]float64{42}, 95); got != 42 {
		t.Fatalf("single element: expected 42, got %f", got)
	}
	if got := percentile(nil, 95); got != 0 {
		t.Fatalf("empty slice: expected 0, got %f", got)
	}
}

func TestSummarize(t *testing.T) {
	summary := summarize([]float64{10, 20, 30})

	if summary.Min != 10 || summary.Max != 30 {
		t.Fatalf("unexpected min/max: %+v", summary)
	}
	if math.Abs(summary.Avg-20) > 0.001 {
		t.Fatalf("unexpected avg: %f", summary.Avg)
	}

	empty := summarize(nil)
	if empty.Min != 0 || empty.Max != 0 || empty.Avg != 0 {
		t.Fatalf("expected zero summary for empty input: %+v", empty)
	}
}

func TestCollectorRecordAndBuild(t *testing.T) {
	stats := newCollector()

	stats.record("order_create", 10*time.Millisecond, 201, true)
	stats.record("order_create", 20*time.Millisecond, 201, true)
	stats.record("order_create", 30*time.Millisecond, 409, false)
	stats.record("order_cancel", 5*time.Millisecond, 204, true)

	result := stats.build()
	create, ok := result["order_create"]
	if !ok {
		t.Fatal("missing order_create endpoint report")
	}
	if create.Calls != 3 || create.Success != 2 || create.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", create)
	}
	if math.Abs(create.ErrorRate-1.0/3.0) > 0.001 {
		t.Fatalf("unexpected error rate: %f", create.ErrorRate)
	}
	if create.Statuses["201"] != 2 || create.Statuses["409"] != 1 {
		t.Fatalf("unexpected statuses: %+v", create.Statuses)
	}

	cancel := result["order_cancel"]
	if cancel.Calls != 1 || cancel.Failed != 0 {
		t.Fatalf("unexpected cancel report: %+v", cancel)
	}
}

func TestReadConfigValidation(t *testing.T) {
	if _, err := validateMode("create"); err != nil {
		t.Fatalf("create mode must be valid: %v", err)
	}
	if _, err := validateMode("create-cancel"); err != nil {
		t.Fatalf("create-cancel mode must be valid: %v", err)
	}
	if _, err := validateMode("destroy"); err == nil {
		t.Fatal("unknown mode must be rejected")
	}
}
