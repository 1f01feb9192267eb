package stats

import (
	"testing"
)

func TestHistogramQuantiles(t *testing.T) {
	h := NewHistogram()
	for i := 1; i <= 100; i++ {
		h.Observe(float64(i))
	}

	if n := h.Count(); n != 100 {
		t.Fatalf("expected 100 observations, got %d", n)
	}
	if v := h.Quantile(0.0); v != 1 {
		t.Fatalf("unexpected min: %f", v)
	}
	if v := h.Quantile(1.0); v != 100 {
		t.Fatalf("unexpected max: %f", v)
	}
	if v := h.Quantile(0.5); v < 40 || v > 60 {
		t.Fatalf("unexpected median: %f", v)
	}
}

func TestHistogramBoundsReservoir(t *testing.T) {
	h := NewHistogram()
	for i := 0; i < 10000; i++ {
		h.Observe(float64(i % 500))
	}

	if n := h.Count(); n != 10000 {
		t.Fatalf("expected 10000 observations, got %d", n)
	}
	h.mu.Lock()
	samples := len(h.samples)
	h.mu.Unlock()
	if samples > maxSamples {
		t.Fatalf("expected at most %d samples, got %d", maxSamples, samples)
	}
	if v := h.Quantile(1.0); v != 499 {
		t.Fatalf("unexpected max: %f", v)
	}
	if v := h.Quantile(0.99); v < 400 {
		t.Fatalf("unexpected p99: %f", v)
	}
}

func TestHistogramReset(t *testing.T) {
	h := NewHistogram()
	h.Observe(5)
	h.Reset()
	if n := h.Count(); n != 0 {
		t.Fatalf("expected empty histogram, got %d", n)
	}
	if v := h.Quantile(0.5); v != 0 {
		t.Fatalf("expected zero quantile, got %f", v)
	}
}

func TestPrettySize(t *testing.T) {
	checks := []struct {
		in  float64
		out string
	}{
		{512, "512B"},
		{2048, "2.00KB"},
		{3 << 20, "3.00MB"},
	}
	for _, check := range checks {
		if got := PrettySize(check.in); got != check.out {
			t.Fatalf("expected %q, got %q", check.out, got)
		}
	}
}
