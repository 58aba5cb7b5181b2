// Package metrics is a small Prometheus-compatible collector. It renders
// text/plain in the exposition format directly, without pulling in
// prometheus/client_golang.
package metrics

import (
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Label is one name/value pair attached to a sample.
type Label struct {
	Name  string
	Value string
}

// Collector aggregates counters, gauges, and histograms. All methods are
// safe on a nil receiver, so callers that run without metrics skip the nil
// checks.
type Collector struct {
	counters   sync.Map // series key -> *counter
	gauges     sync.Map // series key -> *gauge
	histograms sync.Map // series key -> *histogram
	help       sync.Map // metric name -> help text
	startTime  time.Time
}

func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// Describe attaches HELP text to a metric name.
func (c *Collector) Describe(name, help string) {
	if c == nil {
		return
	}
	c.help.Store(name, help)
}

// Uptime returns how long the collector has been running.
func (c *Collector) Uptime() time.Duration {
	if c == nil {
		return 0
	}
	return time.Since(c.startTime)
}

type counter struct {
	name   string
	labels string
	value  atomic.Int64
}

type gauge struct {
	name   string
	labels string
	value  atomic.Int64
}

type histogram struct {
	name   string
	labels string
	mu     sync.Mutex
	count  int64
	sum    float64
	bucket []histBucket
}

type histBucket struct {
	le    float64
	count int64
}

// DefaultBuckets covers request latencies from fast local calls to slow
// upstream engine turns.
var DefaultBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, math.Inf(1)}

// Inc increments a labeled counter by 1.
func (c *Collector) Inc(name string, labels ...Label) {
	c.Add(name, 1, labels...)
}

// Add increments a labeled counter by n.
func (c *Collector) Add(name string, n int64, labels ...Label) {
	if c == nil {
		return
	}
	rendered := renderLabels(labels)
	key := name + "{" + rendered + "}"
	v, ok := c.counters.Load(key)
	if !ok {
		v, _ = c.counters.LoadOrStore(key, &counter{name: name, labels: rendered})
	}
	v.(*counter).value.Add(n)
}

// SetGauge sets a labeled gauge to v.
func (c *Collector) SetGauge(name string, val int64, labels ...Label) {
	if c == nil {
		return
	}
	rendered := renderLabels(labels)
	key := name + "{" + rendered + "}"
	v, ok := c.gauges.Load(key)
	if !ok {
		v, _ = c.gauges.LoadOrStore(key, &gauge{name: name, labels: rendered})
	}
	v.(*gauge).value.Store(val)
}

// Observe records one sample in a labeled histogram using DefaultBuckets.
func (c *Collector) Observe(name string, val float64, labels ...Label) {
	if c == nil {
		return
	}
	rendered := renderLabels(labels)
	key := name + "{" + rendered + "}"
	v, ok := c.histograms.Load(key)
	if !ok {
		hb := make([]histBucket, len(DefaultBuckets))
		for i, le := range DefaultBuckets {
			hb[i] = histBucket{le: le}
		}
		v, _ = c.histograms.LoadOrStore(key, &histogram{name: name, labels: rendered, bucket: hb})
	}
	h := v.(*histogram)
	h.mu.Lock()
	h.count++
	h.sum += val
	for i := range h.bucket {
		if val <= h.bucket[i].le {
			h.bucket[i].count++
		}
	}
	h.mu.Unlock()
}

func renderLabels(labels []Label) string {
	if len(labels) == 0 {
		return ""
	}
	sorted := make([]Label, len(labels))
	copy(sorted, labels)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	parts := make([]string, len(sorted))
	for i, l := range sorted {
		parts[i] = fmt.Sprintf("%s=%q", l.Name, l.Value)
	}
	return strings.Join(parts, ",")
}

// Handler renders the current state in Prometheus text format.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		if c == nil {
			return
		}

		var sb strings.Builder

		fmt.Fprintf(&sb, "# HELP todobot_uptime_seconds Time since start in seconds\n")
		fmt.Fprintf(&sb, "# TYPE todobot_uptime_seconds gauge\n")
		fmt.Fprintf(&sb, "todobot_uptime_seconds %d\n\n", int64(c.Uptime().Seconds()))

		headerWritten := make(map[string]bool)
		header := func(name, typ string) {
			if headerWritten[name] {
				return
			}
			if help, ok := c.help.Load(name); ok {
				fmt.Fprintf(&sb, "# HELP %s %s\n", name, help)
			}
			fmt.Fprintf(&sb, "# TYPE %s %s\n", name, typ)
			headerWritten[name] = true
		}
		series := func(name, labels string) string {
			if labels == "" {
				return name
			}
			return name + "{" + labels + "}"
		}

		c.counters.Range(func(_, value any) bool {
			ctr := value.(*counter)
			header(ctr.name, "counter")
			fmt.Fprintf(&sb, "%s %d\n", series(ctr.name, ctr.labels), ctr.value.Load())
			return true
		})
		c.gauges.Range(func(_, value any) bool {
			g := value.(*gauge)
			header(g.name, "gauge")
			fmt.Fprintf(&sb, "%s %d\n", series(g.name, g.labels), g.value.Load())
			return true
		})
		c.histograms.Range(func(_, value any) bool {
			h := value.(*histogram)
			h.mu.Lock()
			defer h.mu.Unlock()

			header(h.name, "histogram")
			for _, b := range h.bucket {
				le := fmt.Sprintf("%g", b.le)
				if math.IsInf(b.le, 1) {
					le = "+Inf"
				}
				bucketLabels := h.labels
				if bucketLabels != "" {
					bucketLabels += ","
				}
				bucketLabels += fmt.Sprintf("le=%q", le)
				fmt.Fprintf(&sb, "%s %d\n", series(h.name+"_bucket", bucketLabels), b.count)
			}
			fmt.Fprintf(&sb, "%s %d\n", series(h.name+"_count", h.labels), h.count)
			fmt.Fprintf(&sb, "%s %f\n", series(h.name+"_sum", h.labels), h.sum)
			return true
		})

		fmt.Fprint(w, sb.String())
	}
}
