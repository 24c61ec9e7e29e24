package stats_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/NVIDIA/cloudemu/stats"
)

func TestCollectorObserveAndScrape(t *testing.T) {
	c := stats.NewCollector()
	c.Observe("s3", 200, 0.01)
	c.Observe("s3", 500, 0.02)
	c.SetStorageCount("bucket", 3)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	out := string(body)

	if !strings.Contains(out, `cloudemu_requests_total{service="s3",status="2xx"} 1`) {
		t.Fatalf("missing 2xx counter in output:\n%s", out)
	}
	if !strings.Contains(out, `cloudemu_requests_total{service="s3",status="5xx"} 1`) {
		t.Fatalf("missing 5xx counter in output:\n%s", out)
	}
	if !strings.Contains(out, `cloudemu_storage_entities{kind="bucket"} 3`) {
		t.Fatalf("missing storage gauge in output:\n%s", out)
	}
}

func TestMultipleCollectorsDoNotCollide(t *testing.T) {
	a := stats.NewCollector()
	b := stats.NewCollector()
	a.Observe("s3", 200, 0.01)
	b.Observe("dynamodb", 404, 0.01)
}
