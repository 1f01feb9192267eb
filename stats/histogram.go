package stats

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
)

// maxSamples bounds the memory a histogram holds regardless of how many
// values it observes.
const maxSamples = 512

// Histogram estimates quantiles from a bounded reservoir sample of the
// observed values. Once the reservoir is full, each new value replaces a
// random slot with probability maxSamples/total, so the sample stays
// uniform over everything seen. Min and max are tracked exactly.
type Histogram struct {
	mu      sync.Mutex
	samples []float64
	total   uint64
	min     float64
	max     float64
}

func NewHistogram() *Histogram {
	return &Histogram{}
}

func (h *Histogram) String() string {
	return fmt.Sprintf("min: %s p50: %s p90: %s p99: %s max: %s (%d observed)",
		PrettySize(h.Quantile(0.0)),
		PrettySize(h.Quantile(0.5)),
		PrettySize(h.Quantile(0.90)),
		PrettySize(h.Quantile(0.99)),
		PrettySize(h.Quantile(1.0)),
		h.Count())
}

func (h *Histogram) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = nil
	h.total = 0
	h.min = 0
	h.max = 0
}

func (h *Histogram) Count() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}

func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.total == 0 || v < h.min {
		h.min = v
	}
	if h.total == 0 || v > h.max {
		h.max = v
	}
	h.total++

	if len(h.samples) < maxSamples {
		h.samples = append(h.samples, v)
		return
	}
	if i := rand.Int63n(int64(h.total)); i < maxSamples {
		h.samples[i] = v
	}
}

func (h *Histogram) Quantile(q float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.total == 0 {
		return 0
	}
	if q <= 0 {
		return h.min
	}
	if q >= 1 {
		return h.max
	}

	sorted := make([]float64, len(h.samples))
	copy(sorted, h.samples)
	sort.Float64s(sorted)
	return sorted[int(q*float64(len(sorted)-1))]
}
