package stats

import (
	"expvar"
	"fmt"
	"net/http"
	"time"

	"github.com/zserge/metric"
)

var (
	TotalConnections  *expvar.Map
	ActiveConnections *expvar.Map
	TotalFrames       *expvar.Map
	TotalBytes        *expvar.Map
)

func init() {
	TotalConnections = expvar.NewMap("conns.total")
	ActiveConnections = expvar.NewMap("conns.active")

	TotalFrames = expvar.NewMap("frames.total")
	TotalBytes = expvar.NewMap("frames.bytes")

	expvar.Publish("handler.latency", metric.NewHistogram("5m1s", "15m30s", "1h1m"))
}

// Timing updates a published histogram with millisecond timing
func Timing(name string, start time.Time) {
	expvar.Get(name).(metric.Metric).Add(float64(time.Since(start).Nanoseconds()) / float64(time.Millisecond))
}

// DebugHandler serves the expvar counters and published metrics over http.
func DebugHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	mux.Handle("/debug/expvar", expvar.Handler())
	return mux
}

// PrettySize formats a byte count for human consumption.
func PrettySize(n float64) string {
	if n > 1<<20 {
		return fmt.Sprintf("%.2fMB", n/(1<<20))
	}
	if n > 1<<10 {
		return fmt.Sprintf("%.2fKB", n/(1<<10))
	}
	return fmt.Sprintf("%.0fB", n)
}
