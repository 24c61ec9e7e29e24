// Package router implements the HTTP front door: it decides which
// protocol adapter handles an inbound request, per spec.md §4.1's
// priority-ordered decision inputs, and logs every request to the storage
// engine's request_log table.
package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/NVIDIA/cloudemu/cmn"
	"github.com/NVIDIA/cloudemu/stats"
	"github.com/NVIDIA/cloudemu/store"
)

// Handler adapts one decoded request to a typed engine call and writes a
// provider-shaped response. Each protocol package exposes one of these per
// service (or one that itself multiplexes on Action/operation).
type Handler func(w http.ResponseWriter, r *http.Request)

// Router holds every registered handler and applies spec.md §4.1's
// decision order to pick one per request.
type Router struct {
	engine *store.Engine

	// byTargetPrefix maps an X-Amz-Target service prefix
	// ("DynamoDB_20120810", ...) to its handler.
	byTargetPrefix map[string]Handler

	// byPathPrefix maps a literal URI path prefix to its handler, checked
	// in the order given by pathPrefixOrder (map iteration order is
	// undefined, so longest/most-specific-first matters here).
	byPathPrefix  map[string]Handler
	pathPrefixOrder []string

	// byContentType maps a Content-Type token to its handler (AWS Query
	// protocol, form-encoded).
	byContentType map[string]Handler

	// s3 handles virtual-hosted and path-style S3 REST requests, and is
	// also the catch-all for requests whose Host header carries an
	// "s3." component or whose Content-Type is XML.
	s3 Handler

	notImplemented Handler

	collector *stats.Collector
}

func New(engine *store.Engine) *Router {
	return &Router{
		engine:         engine,
		byTargetPrefix: make(map[string]Handler),
		byPathPrefix:   make(map[string]Handler),
		byContentType:  make(map[string]Handler),
		notImplemented: defaultNotImplemented,
	}
}

// SetCollector wires a stats.Collector so every dispatched request is
// recorded against its Prometheus counters and latency histogram.
func (rt *Router) SetCollector(c *stats.Collector) { rt.collector = c }

// RegisterJSONTarget wires a handler for one AWS JSON-1.1 service prefix
// (spec.md §4.1 priority 1).
func (rt *Router) RegisterJSONTarget(servicePrefix string, h Handler) {
	rt.byTargetPrefix[servicePrefix] = h
}

// RegisterPathPrefix wires a handler for requests whose URI starts with
// prefix (spec.md §4.1 priority 3). Prefixes are tried longest-first so a
// more specific registration shadows a shorter one.
func (rt *Router) RegisterPathPrefix(prefix string, h Handler) {
	rt.byPathPrefix[prefix] = h
	rt.pathPrefixOrder = append(rt.pathPrefixOrder, prefix)
	sortLongestFirst(rt.pathPrefixOrder)
}

// RegisterContentType wires a handler keyed on an exact Content-Type
// (spec.md §4.1 priority 4, e.g. AWS Query's form-encoded body).
func (rt *Router) RegisterContentType(contentType string, h Handler) {
	rt.byContentType[contentType] = h
}

// RegisterS3 wires the S3 REST handler, consulted for virtual-hosted Host
// headers (priority 2) and as the method+URI fallback (priority 5) and XML
// Content-Type (priority 4).
func (rt *Router) RegisterS3(h Handler) { rt.s3 = h }

func sortLongestFirst(prefixes []string) {
	for i := 1; i < len(prefixes); i++ {
		for j := i; j > 0 && len(prefixes[j]) > len(prefixes[j-1]); j-- {
			prefixes[j], prefixes[j-1] = prefixes[j-1], prefixes[j]
		}
	}
}

// ServeHTTP applies spec.md §4.1's priority order and logs the outcome.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	reqID := cmn.GenUUID()
	w.Header().Set("X-Amzn-RequestId", reqID)
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	h, service := rt.resolve(r)
	h(rec, r)

	elapsed := time.Since(start)
	if rt.collector != nil {
		rt.collector.Observe(service, rec.status, elapsed.Seconds())
	}
	rt.logRequest(r, service, reqID, rec.status, start)
}

func (rt *Router) resolve(r *http.Request) (Handler, string) {
	if target := r.Header.Get("X-Amz-Target"); target != "" {
		if prefix, _, ok := strings.Cut(target, "."); ok {
			if h, ok := rt.byTargetPrefix[prefix]; ok {
				return h, prefix
			}
		}
	}

	if host := r.Host; strings.Contains(host, ".s3.") || strings.HasPrefix(host, "s3.") {
		if rt.s3 != nil {
			return rt.s3, "s3"
		}
	}

	for _, prefix := range rt.pathPrefixOrder {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return rt.byPathPrefix[prefix], prefix
		}
	}

	ct := r.Header.Get("Content-Type")
	if base, _, ok := strings.Cut(ct, ";"); ok {
		ct = base
	}
	if h, ok := rt.byContentType[ct]; ok {
		return h, ct
	}
	if strings.Contains(ct, "xml") && rt.s3 != nil {
		return rt.s3, "s3"
	}

	if rt.s3 != nil {
		return rt.s3, "s3"
	}
	return rt.notImplemented, "unknown"
}

func (rt *Router) logRequest(r *http.Request, service, reqID string, status int, start time.Time) {
	ctx := context.Background()
	_ = rt.engine.LogRequest(ctx, store.RequestLogEntry{
		Service:     service,
		Operation:   r.Method + " " + r.URL.Path,
		StatusCode:  status,
		RequestID:   reqID,
		UserAgent:   r.Header.Get("User-Agent"),
		SourceIP:    sourceIP(r),
	})
	glog.V(3).Infof("%s %s service=%s status=%d dur=%s", r.Method, r.URL.Path, service, status, time.Since(start))
}

func sourceIP(r *http.Request) string {
	if idx := strings.LastIndex(r.RemoteAddr, ":"); idx >= 0 {
		return r.RemoteAddr[:idx]
	}
	return r.RemoteAddr
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func defaultNotImplemented(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotImplemented)
	_, _ = w.Write([]byte(`{"__type":"NotImplementedException","message":"no adapter matched this request"}`))
}
