package router_test

import (
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/NVIDIA/cloudemu/router"
	"github.com/NVIDIA/cloudemu/stats"
	"github.com/NVIDIA/cloudemu/store"
)

func handlerFor(label string) router.Handler {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Handler", label)
		w.WriteHeader(http.StatusOK)
	}
}

var _ = Describe("Router", func() {
	var (
		engine *store.Engine
		rt     *router.Router
	)

	BeforeEach(func() {
		var err error
		engine, err = store.OpenInMemory(GinkgoT().TempDir(), "us-east-1")
		Expect(err).NotTo(HaveOccurred())
		rt = router.New(engine)
	})

	AfterEach(func() {
		Expect(engine.Close()).To(Succeed())
	})

	It("dispatches on X-Amz-Target before anything else", func() {
		rt.RegisterJSONTarget("DynamoDB_20120810", handlerFor("dynamodb"))
		rt.RegisterS3(handlerFor("s3"))

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-Amz-Target", "DynamoDB_20120810.CreateTable")
		rec := httptest.NewRecorder()
		rt.ServeHTTP(rec, req)

		Expect(rec.Header().Get("X-Handler")).To(Equal("dynamodb"))
		Expect(rec.Header().Get("X-Amzn-RequestId")).NotTo(BeEmpty())
	})

	It("dispatches S3 for a virtual-hosted bucket host", func() {
		rt.RegisterS3(handlerFor("s3"))

		req := httptest.NewRequest(http.MethodGet, "/key", nil)
		req.Host = "mybucket.s3.amazonaws.com"
		rec := httptest.NewRecorder()
		rt.ServeHTTP(rec, req)

		Expect(rec.Header().Get("X-Handler")).To(Equal("s3"))
	})

	It("prefers the longer of two overlapping path prefixes", func() {
		rt.RegisterPathPrefix("/v1/", handlerFor("short"))
		rt.RegisterPathPrefix("/v1/lb/", handlerFor("long"))

		req := httptest.NewRequest(http.MethodGet, "/v1/lb/load-balancers", nil)
		rec := httptest.NewRecorder()
		rt.ServeHTTP(rec, req)

		Expect(rec.Header().Get("X-Handler")).To(Equal("long"))
	})

	It("dispatches by content type for form-encoded Query protocol bodies", func() {
		rt.RegisterContentType("application/x-www-form-urlencoded", handlerFor("query"))

		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
		rec := httptest.NewRecorder()
		rt.ServeHTTP(rec, req)

		Expect(rec.Header().Get("X-Handler")).To(Equal("query"))
	})

	It("falls back to S3 when nothing else matches", func() {
		rt.RegisterS3(handlerFor("s3"))

		req := httptest.NewRequest(http.MethodGet, "/some/key", nil)
		rec := httptest.NewRecorder()
		rt.ServeHTTP(rec, req)

		Expect(rec.Header().Get("X-Handler")).To(Equal("s3"))
	})

	It("returns NotImplemented when there is no S3 fallback and nothing matched", func() {
		req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
		rec := httptest.NewRecorder()
		rt.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusNotImplemented))
	})

	It("records an observation per request when a collector is set", func() {
		collector := stats.NewCollector()
		rt.SetCollector(collector)
		rt.RegisterS3(handlerFor("s3"))

		req := httptest.NewRequest(http.MethodGet, "/some/key", nil)
		rec := httptest.NewRecorder()
		Expect(func() { rt.ServeHTTP(rec, req) }).NotTo(Panic())
	})
})
