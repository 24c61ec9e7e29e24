// Package lb implements the zero-provider load-balancer data plane:
// binding a listener port and reverse-proxying to registered targets with
// weighted-random selection, per spec.md §4.5.
package lb

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/golang/glog"
	"github.com/valyala/fasthttp"

	"github.com/NVIDIA/cloudemu/store"
)

// maxProxyBodyBytes bounds request/response bodies the proxy will buffer,
// matching SPEC_FULL.md §4.5's ambient resource-limit note for the data
// plane (an unbounded proxy body is a local DoS vector even in a
// single-tenant emulator).
const maxProxyBodyBytes = 10 * 1024 * 1024

// TargetLister is the subset of store.Engine the data plane needs to pick
// a backend per request.
type TargetLister interface {
	HealthyTargets(ctx context.Context, groupARN string) ([]store.Target, error)
}

// DataPlane owns every bound listener port, keyed by port so a repeat
// CreateListener for an already-bound port is a no-op and DeleteListener
// can cancel the right one.
type DataPlane struct {
	mu        sync.Mutex
	listeners map[uint16]*boundListener
	targets   TargetLister
	client    *fasthttp.Client
}

type boundListener struct {
	server   *fasthttp.Server
	groupARN string
	cancel   context.CancelFunc
}

func NewDataPlane(targets TargetLister) *DataPlane {
	return &DataPlane{
		listeners: make(map[uint16]*boundListener),
		targets:   targets,
		client:    &fasthttp.Client{MaxResponseBodySize: maxProxyBodyBytes},
	}
}

// Bind starts proxying port to targetGroupARN's healthy targets. A second
// Bind call on an already-bound port is a no-op, matching the original
// implementation's "listener tasks are tracked by port" idempotency.
func (d *DataPlane) Bind(port uint16, targetGroupARN string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.listeners[port]; exists {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	bl := &boundListener{groupARN: targetGroupARN, cancel: cancel}
	bl.server = &fasthttp.Server{
		Handler: d.proxyHandler(ctx, targetGroupARN),
	}
	d.listeners[port] = bl

	addr := fmt.Sprintf(":%d", port)
	go func() {
		glog.Infof("lb: listening on %s -> %s", addr, targetGroupARN)
		if err := bl.server.ListenAndServe(addr); err != nil {
			glog.Errorf("lb: listener on %s stopped: %v", addr, err)
		}
	}()
	return nil
}

// Unbind stops the proxy for port, releasing the listener. Satisfies
// SPEC_FULL.md §5's "per-task cancellation tokens" requirement via
// context cancellation plus an explicit Shutdown.
func (d *DataPlane) Unbind(port uint16) error {
	d.mu.Lock()
	bl, ok := d.listeners[port]
	if ok {
		delete(d.listeners, port)
	}
	d.mu.Unlock()
	if !ok {
		return nil
	}
	bl.cancel()
	return bl.server.Shutdown()
}

func (d *DataPlane) proxyHandler(ctx context.Context, groupARN string) fasthttp.RequestHandler {
	return func(rc *fasthttp.RequestCtx) {
		select {
		case <-ctx.Done():
			rc.SetStatusCode(fasthttp.StatusServiceUnavailable)
			return
		default:
		}

		targets, err := d.targets.HealthyTargets(ctx, groupARN)
		if err != nil || len(targets) == 0 {
			rc.SetStatusCode(fasthttp.StatusServiceUnavailable)
			return
		}
		target := pickWeighted(targets)

		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		rc.Request.CopyTo(req)
		req.SetHost(fmt.Sprintf("%s:%d", target.Host, target.Port))
		req.URI().SetScheme("http")

		if err := d.client.Do(req, resp); err != nil {
			glog.Warningf("lb: forward to %s:%d failed: %v", target.Host, target.Port, err)
			rc.SetStatusCode(fasthttp.StatusBadGateway)
			return
		}
		resp.CopyTo(&rc.Response)
	}
}

// ListenerSource is the subset of store.Engine Sync needs to discover
// persisted listeners.
type ListenerSource interface {
	ListListeners(ctx context.Context) ([]store.Listener, error)
}

// Sync rebinds every persisted listener, restoring the data plane's state
// after a process restart (spec.md §4.5 "sync_data_plane restores them on
// startup").
func (d *DataPlane) Sync(ctx context.Context, src ListenerSource) error {
	listeners, err := src.ListListeners(ctx)
	if err != nil {
		return err
	}
	for _, l := range listeners {
		if err := d.Bind(uint16(l.Port), l.TargetGroupARN); err != nil {
			glog.Errorf("lb: failed to restore listener on port %d: %v", l.Port, err)
		}
	}
	return nil
}

// pickWeighted selects one target at random, weighted by Target.Weight
// (spec.md §4.5 "pick one (weighted random acceptable)").
func pickWeighted(targets []store.Target) store.Target {
	total := 0
	for _, t := range targets {
		w := t.Weight
		if w <= 0 {
			w = 1
		}
		total += w
	}
	if total <= 0 {
		return targets[0]
	}
	r := rand.Intn(total)
	for _, t := range targets {
		w := t.Weight
		if w <= 0 {
			w = 1
		}
		if r < w {
			return t
		}
		r -= w
	}
	return targets[len(targets)-1]
}
