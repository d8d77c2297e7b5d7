package middleware

import (
	"math"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const latencySamples = 200

// routeLatency keeps the last latencySamples durations per route key.
type routeLatency struct {
	mu     sync.Mutex
	size   int
	routes map[string]*ring
}

type ring struct {
	values []int64
	next   int
}

func newRouteLatency(size int) *routeLatency {
	return &routeLatency{size: size, routes: make(map[string]*ring)}
}

// observe records value under key and returns the route's p50 and p95.
func (l *routeLatency) observe(key string, value int64) (int64, int64) {
	l.mu.Lock()
	r, ok := l.routes[key]
	if !ok {
		r = &ring{values: make([]int64, 0, l.size)}
		l.routes[key] = r
	}
	if len(r.values) < l.size {
		r.values = append(r.values, value)
	} else {
		r.values[r.next] = value
		r.next = (r.next + 1) % l.size
	}
	sorted := append([]int64(nil), r.values...)
	l.mu.Unlock()

	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return percentile(sorted, 0.5), percentile(sorted, 0.95)
}

// percentile expects values sorted ascending.
func percentile(values []int64, p float64) int64 {
	if len(values) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(values)))) - 1
	idx = max(0, min(idx, len(values)-1))
	return values[idx]
}

// Telemetry logs one line per request with rolling p50/p95 latency for the
// matched route. Server errors and requests slower than slow log at Warn.
func Telemetry(logger *zap.Logger, slow time.Duration) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	latency := newRouteLatency(latencySamples)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)

			pattern := ""
			if rc := chi.RouteContext(r.Context()); rc != nil {
				pattern = rc.RoutePattern()
			}
			key := r.Method + " " + pattern
			if pattern == "" {
				key = r.Method + " " + r.URL.Path
			}
			p50, p95 := latency.observe(key, duration.Milliseconds())
			isSlow := slow > 0 && duration >= slow

			log := logger.Info
			if status >= 500 || isSlow {
				log = logger.Warn
			}
			log("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("routePattern", pattern),
				zap.String("requestId", readRequestIDHeader(r)),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Int64("duration_ms", duration.Milliseconds()),
				zap.Int64("p50_ms", p50),
				zap.Int64("p95_ms", p95),
				zap.Bool("slow", isSlow),
				zap.Bool("error", status >= 500),
				zap.Bool("clientError", status >= 400 && status < 500),
			)
		})
	}
}
