package s3rest_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/NVIDIA/cloudemu/cmn"
	"github.com/NVIDIA/cloudemu/protocol/s3rest"
	"github.com/NVIDIA/cloudemu/store"
)

func newAdapter(t *testing.T) *s3rest.Adapter {
	t.Helper()
	cmn.InitIDGen(1)
	engine, err := store.OpenInMemory(t.TempDir(), "us-east-1")
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return &s3rest.Adapter{Engine: engine, Endpoint: "http://localhost:4566"}
}

func TestCreateHeadAndDeleteBucket(t *testing.T) {
	a := newAdapter(t)

	req := httptest.NewRequest(http.MethodPut, "/my-bucket", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT bucket status = %d, body=%s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodHead, "/my-bucket", nil)
	rec = httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("HEAD bucket status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/my-bucket", nil)
	rec = httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE bucket status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodHead, "/my-bucket", nil)
	rec = httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("HEAD bucket after delete status = %d, want 404", rec.Code)
	}
}

func TestPutAndGetObjectRoundTrip(t *testing.T) {
	a := newAdapter(t)

	req := httptest.NewRequest(http.MethodPut, "/b", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("create bucket: %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPut, "/b/key.txt", strings.NewReader("hello world"))
	rec = httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("put object status = %d, body=%s", rec.Code, rec.Body.String())
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("put object did not set an ETag header")
	}

	req = httptest.NewRequest(http.MethodGet, "/b/key.txt", nil)
	rec = httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get object status = %d", rec.Code)
	}
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "hello world" {
		t.Fatalf("body = %q, want %q", body, "hello world")
	}
	if rec.Header().Get("ETag") != etag {
		t.Fatalf("GET ETag = %q, want %q", rec.Header().Get("ETag"), etag)
	}
}

func TestGetMissingObjectReturnsNoSuchKey(t *testing.T) {
	a := newAdapter(t)

	req := httptest.NewRequest(http.MethodPut, "/b", nil)
	a.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/b/missing.txt", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "NoSuchKey") {
		t.Fatalf("body = %s, want it to mention NoSuchKey", rec.Body.String())
	}
}

func TestVirtualHostedBucketAddressing(t *testing.T) {
	a := newAdapter(t)

	req := httptest.NewRequest(http.MethodPut, "/", nil)
	req.Host = "vhost-bucket.s3.amazonaws.com"
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("create bucket via virtual host: %d, body=%s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPut, "/obj", strings.NewReader("x"))
	req.Host = "vhost-bucket.s3.amazonaws.com"
	rec = httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("put object via virtual host: %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/obj", nil)
	req.Host = "vhost-bucket.s3.amazonaws.com"
	rec = httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get object via virtual host: %d", rec.Code)
	}
}

func TestListBucketsXML(t *testing.T) {
	a := newAdapter(t)

	for _, name := range []string{"zeta", "alpha"} {
		req := httptest.NewRequest(http.MethodPut, "/"+name, nil)
		a.ServeHTTP(httptest.NewRecorder(), req)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list buckets status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<Name>zeta</Name>") || !strings.Contains(body, "<Name>alpha</Name>") {
		t.Fatalf("body missing expected bucket names: %s", body)
	}
}
