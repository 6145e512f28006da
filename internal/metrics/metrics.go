// Package metrics provides a small Prometheus-compatible metrics registry for
// smq, rendered in the text exposition format without client_golang.
//
// # Label keys
//
// Counters are keyed by a tab-separated label string so that one sync.Map can
// hold every label combination:
//
//	Pushed / Popped           →  key = "channel"
//	HTTPReqs                  →  key = "method\tpath\tstatus"
//	HTTPDurMs / HTTPDurCnt    →  key = "method\tpath"
//
// Empty pops are a single unlabelled counter: a miss never creates a channel,
// so it must not create a label series either.
//
// Channel depth is a gauge read at scrape time through the Depths callback.
// Label values are escaped for the exposition format (only \\, \" and \n) and
// forced to valid UTF-8, since channel names are arbitrary client bytes.
package metrics

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
)

// ─── labelCounter ─────────────────────────────────────────────────────────────

// labelCounter is a lock-free, label-keyed counter map backed by sync.Map and
// atomic.Int64 values.
type labelCounter struct {
	vals sync.Map // key string → *atomic.Int64
}

func (lc *labelCounter) get(key string) *atomic.Int64 {
	if v, ok := lc.vals.Load(key); ok {
		return v.(*atomic.Int64)
	}
	v, _ := lc.vals.LoadOrStore(key, new(atomic.Int64))
	return v.(*atomic.Int64)
}

// Inc increments the counter for key by 1.
func (lc *labelCounter) Inc(key string) { lc.get(key).Add(1) }

// Add increments the counter for key by n.
func (lc *labelCounter) Add(key string, n int64) { lc.get(key).Add(n) }

// Each calls fn for every key/value pair. The order is non-deterministic.
func (lc *labelCounter) Each(fn func(key string, val int64)) {
	lc.vals.Range(func(k, v any) bool {
		fn(k.(string), v.(*atomic.Int64).Load())
		return true
	})
}

// ─── Registry ─────────────────────────────────────────────────────────────────

// Registry holds all smq application metrics. The zero value is ready to use.
type Registry struct {
	// Message-level counters. key = channel name
	Pushed labelCounter
	Popped labelCounter

	// Empty counts pops answered with "no message", across all channels.
	Empty atomic.Int64

	// HTTP-level counters. key = "method\tpath\tstatus" (Reqs) or "method\tpath" (Dur*)
	HTTPReqs   labelCounter
	HTTPDurMs  labelCounter
	HTTPDurCnt labelCounter

	// Depths, when set, reports the current depth of every channel.
	// Must be assigned before the Handler is served.
	Depths func(fn func(channel string, depth int))
}

// Handler returns an http.Handler that renders all metrics in the Prometheus
// plain-text exposition format (text/plain; version=0.0.4).
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		w.WriteHeader(http.StatusOK)

		var b strings.Builder

		channelFamily(&b, "smq_messages_pushed_total",
			"Total messages pushed to a channel", &r.Pushed)
		channelFamily(&b, "smq_messages_popped_total",
			"Total messages popped from a channel", &r.Popped)
		fmt.Fprintf(&b, "# HELP smq_pop_empty_total Total pops that found no message\n")
		fmt.Fprintf(&b, "# TYPE smq_pop_empty_total counter\n")
		fmt.Fprintf(&b, "smq_pop_empty_total %d\n", r.Empty.Load())

		if r.Depths != nil {
			writeFamily(&b, "smq_channel_depth",
				"Messages currently waiting in a channel", "gauge",
				func(fn func(labels, val string)) {
					r.Depths(func(channel string, depth int) {
						fn(label("channel", channel), fmt.Sprintf("%d", depth))
					})
				})
		}

		writeFamily(&b, "smq_http_requests_total",
			"Total HTTP requests by method, path, and status code", "counter",
			func(fn func(labels, val string)) {
				r.HTTPReqs.Each(func(key string, val int64) {
					method, path, status := splitThree(key)
					fn(label("method", method)+","+label("path", path)+","+label("status", status),
						fmt.Sprintf("%d", val))
				})
			})

		writeFamily(&b, "smq_http_request_duration_milliseconds_sum",
			"Sum of HTTP request durations in milliseconds", "counter",
			func(fn func(labels, val string)) {
				r.HTTPDurMs.Each(func(key string, val int64) {
					method, path := splitTwo(key)
					fn(label("method", method)+","+label("path", path),
						fmt.Sprintf("%d", val))
				})
			})

		writeFamily(&b, "smq_http_request_duration_milliseconds_count",
			"Count of observed HTTP request durations", "counter",
			func(fn func(labels, val string)) {
				r.HTTPDurCnt.Each(func(key string, val int64) {
					method, path := splitTwo(key)
					fn(label("method", method)+","+label("path", path),
						fmt.Sprintf("%d", val))
				})
			})

		fmt.Fprint(w, b.String())
	})
}

// ObserveHTTP records one finished request.
func (r *Registry) ObserveHTTP(method, path string, status int, durMs int64) {
	r.HTTPReqs.Inc(HTTPKey(method, path, fmt.Sprintf("%d", status)))
	dk := HTTPDurKey(method, path)
	r.HTTPDurMs.Add(dk, durMs)
	r.HTTPDurCnt.Inc(dk)
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func channelFamily(b *strings.Builder, name, help string, lc *labelCounter) {
	writeFamily(b, name, help, "counter", func(fn func(labels, val string)) {
		lc.Each(func(key string, val int64) {
			fn(label("channel", key), fmt.Sprintf("%d", val))
		})
	})
}

var labelEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`, `"`, `\"`)

// label renders name="value" with value escaped for the text format.
func label(name, value string) string {
	return name + `="` + labelEscaper.Replace(strings.ToValidUTF8(value, "\uFFFD")) + `"`
}

// writeFamily writes a single metric family to b, or nothing if it has no
// samples.
func writeFamily(
	b *strings.Builder,
	name, help, typ string,
	fill func(fn func(labels, val string)),
) {
	var lines []string
	fill(func(labels, val string) {
		lines = append(lines, fmt.Sprintf("%s{%s} %s\n", name, labels, val))
	})
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s %s\n", name, typ)
	for _, l := range lines {
		b.WriteString(l)
	}
}

// splitTwo splits a tab-delimited key of the form "a\tb" into (a, b).
func splitTwo(key string) (string, string) {
	i := strings.IndexByte(key, '\t')
	if i < 0 {
		return key, ""
	}
	return key[:i], key[i+1:]
}

func splitThree(key string) (string, string, string) {
	a, rest := splitTwo(key)
	b, c := splitTwo(rest)
	return a, b, c
}

// HTTPKey builds the label key used by HTTPReqs.
func HTTPKey(method, path, status string) string {
	return method + "\t" + path + "\t" + status
}

// HTTPDurKey builds the label key used by HTTPDurMs / HTTPDurCnt.
func HTTPDurKey(method, path string) string {
	return method + "\t" + path
}
