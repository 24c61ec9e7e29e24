package zerolb_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/NVIDIA/cloudemu/cmn"
	"github.com/NVIDIA/cloudemu/protocol/zerolb"
	"github.com/NVIDIA/cloudemu/store"
)

type fakeBinder struct {
	mu     sync.Mutex
	bound  map[uint16]string
	failOn uint16
}

func newFakeBinder() *fakeBinder { return &fakeBinder{bound: make(map[uint16]string)} }

func (f *fakeBinder) Bind(port uint16, targetGroupARN string) error {
	if port == f.failOn {
		return errBindFailed
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bound[port] = targetGroupARN
	return nil
}

func (f *fakeBinder) Unbind(port uint16) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.bound, port)
	return nil
}

type bindErr string

func (e bindErr) Error() string { return string(e) }

const errBindFailed = bindErr("bind failed")

func newAdapter(t *testing.T) (*zerolb.Adapter, *fakeBinder) {
	t.Helper()
	cmn.InitIDGen(1)
	engine, err := store.OpenInMemory(t.TempDir(), "us-east-1")
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	binder := newFakeBinder()
	return &zerolb.Adapter{Engine: engine, Plane: binder}, binder
}

func post(t *testing.T, a *zerolb.Adapter, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(data)))
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	return rec
}

func TestLoadBalancerLifecycle(t *testing.T) {
	a, binder := newAdapter(t)

	rec := post(t, a, "/v1/lb/load-balancers", map[string]string{"Name": "web", "Type": "application"})
	if rec.Code != http.StatusOK {
		t.Fatalf("create LB status = %d, body=%s", rec.Code, rec.Body.String())
	}

	rec = post(t, a, "/v1/lb/target-groups", map[string]interface{}{"Name": "web-tg", "Port": 8080, "Protocol": "http"})
	if rec.Code != http.StatusOK {
		t.Fatalf("create target group status = %d, body=%s", rec.Code, rec.Body.String())
	}
	var tg struct{ ARN string }
	if err := json.Unmarshal(rec.Body.Bytes(), &tg); err != nil {
		t.Fatalf("decode target group: %v", err)
	}
	if tg.ARN == "" {
		t.Fatal("target group response has no ARN")
	}

	rec = post(t, a, "/v1/lb/target-groups/"+tg.ARN+"/targets", map[string]interface{}{
		"target_id": "t1", "Host": "127.0.0.1", "Port": 9000, "Weight": 1,
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("register target status = %d, body=%s", rec.Code, rec.Body.String())
	}

	rec = post(t, a, "/v1/lb/listeners", map[string]interface{}{
		"lb_name": "web", "Port": 8080, "Protocol": "http", "target_group_arn": tg.ARN,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("create listener status = %d, body=%s", rec.Code, rec.Body.String())
	}
	var listener struct {
		ID   string
		Port int
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listener); err != nil {
		t.Fatalf("decode listener: %v", err)
	}

	binder.mu.Lock()
	bound, ok := binder.bound[8080]
	binder.mu.Unlock()
	if !ok || bound != tg.ARN {
		t.Fatalf("listener creation did not bind the data plane: bound=%v", binder.bound)
	}

	req := httptest.NewRequest(http.MethodDelete, "/v1/lb/listeners/"+listener.ID, nil)
	rec = httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete listener status = %d, body=%s", rec.Code, rec.Body.String())
	}

	binder.mu.Lock()
	_, stillBound := binder.bound[8080]
	binder.mu.Unlock()
	if stillBound {
		t.Fatal("delete listener did not unbind the data plane")
	}
}

func TestCreateListenerSurfacesBindFailureAsInternalError(t *testing.T) {
	a, binder := newAdapter(t)
	binder.failOn = 9999

	post(t, a, "/v1/lb/load-balancers", map[string]string{"Name": "web", "Type": "application"})
	rec := post(t, a, "/v1/lb/target-groups", map[string]interface{}{"Name": "tg", "Port": 80, "Protocol": "http"})
	var tg struct{ ARN string }
	json.Unmarshal(rec.Body.Bytes(), &tg)

	rec = post(t, a, "/v1/lb/listeners", map[string]interface{}{
		"lb_name": "web", "Port": 9999, "Protocol": "http", "target_group_arn": tg.ARN,
	})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestSyncRestoresPersistedListenerBindings(t *testing.T) {
	a, _ := newAdapter(t)

	post(t, a, "/v1/lb/load-balancers", map[string]string{"Name": "web", "Type": "application"})
	rec := post(t, a, "/v1/lb/target-groups", map[string]interface{}{"Name": "tg", "Port": 80, "Protocol": "http"})
	var tg struct{ ARN string }
	json.Unmarshal(rec.Body.Bytes(), &tg)
	post(t, a, "/v1/lb/listeners", map[string]interface{}{
		"lb_name": "web", "Port": 8081, "Protocol": "http", "target_group_arn": tg.ARN,
	})

	// Simulate a restart: a fresh Binder with nothing bound, then Sync.
	fresh := newFakeBinder()
	a.Plane = fresh
	if err := a.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	fresh.mu.Lock()
	bound, ok := fresh.bound[8081]
	fresh.mu.Unlock()
	if !ok || bound != tg.ARN {
		t.Fatalf("Sync did not restore the listener binding: bound=%v", fresh.bound)
	}
}

func TestUnknownRouteIsNotImplemented(t *testing.T) {
	a, _ := newAdapter(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/lb/nope", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", rec.Code)
	}
}
