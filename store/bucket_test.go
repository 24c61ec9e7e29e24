package store_test

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/NVIDIA/cloudemu/cmn"
	"github.com/NVIDIA/cloudemu/store"
)

func newEngine() *store.Engine {
	e, err := store.OpenInMemory(GinkgoT().TempDir(), cmn.DefaultRegion)
	Expect(err).NotTo(HaveOccurred())
	return e
}

var _ = Describe("Bucket operations", func() {
	var (
		ctx context.Context
		e   *store.Engine
	)

	BeforeEach(func() {
		ctx = context.Background()
		e = newEngine()
	})

	AfterEach(func() {
		Expect(e.Close()).To(Succeed())
	})

	It("creates and retrieves a bucket", func() {
		Expect(e.CreateBucket(ctx, "my-bucket", "us-east-1")).To(Succeed())

		b, err := e.GetBucket(ctx, "my-bucket")
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Name).To(Equal("my-bucket"))
		Expect(b.Versioning).To(Equal(store.VersioningDisabled))
	})

	It("rejects a duplicate bucket name", func() {
		Expect(e.CreateBucket(ctx, "dup", "us-east-1")).To(Succeed())
		err := e.CreateBucket(ctx, "dup", "us-east-1")
		Expect(err).To(HaveOccurred())
		cerr := err.(*cmn.Error)
		Expect(cerr.Kind).To(Equal(cmn.KindBucketAlreadyExists))
	})

	It("fails GetBucket for an unknown name", func() {
		_, err := e.GetBucket(ctx, "nope")
		Expect(err).To(HaveOccurred())
		cerr := err.(*cmn.Error)
		Expect(cerr.Kind).To(Equal(cmn.KindNoSuchBucket))
	})

	It("reports existence via BucketExists", func() {
		ok, err := e.BucketExists(ctx, "absent")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		Expect(e.CreateBucket(ctx, "present", "us-east-1")).To(Succeed())
		ok, err = e.BucketExists(ctx, "present")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
	})

	It("lists buckets in name order", func() {
		Expect(e.CreateBucket(ctx, "zeta", "us-east-1")).To(Succeed())
		Expect(e.CreateBucket(ctx, "alpha", "us-east-1")).To(Succeed())

		bs, err := e.ListBuckets(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(bs).To(HaveLen(2))
		Expect(bs[0].Name).To(Equal("alpha"))
		Expect(bs[1].Name).To(Equal("zeta"))
	})

	It("refuses to delete a non-empty bucket", func() {
		Expect(e.CreateBucket(ctx, "has-objects", "us-east-1")).To(Succeed())
		_, err := e.PutObject(ctx, store.PutObjectInput{Bucket: "has-objects", Key: "k", Body: []byte("v")})
		Expect(err).NotTo(HaveOccurred())

		err = e.DeleteBucket(ctx, "has-objects")
		Expect(err).To(HaveOccurred())
		cerr := err.(*cmn.Error)
		Expect(cerr.Kind).To(Equal(cmn.KindBucketNotEmpty))
	})

	It("deletes an empty bucket", func() {
		Expect(e.CreateBucket(ctx, "empty", "us-east-1")).To(Succeed())
		Expect(e.DeleteBucket(ctx, "empty")).To(Succeed())

		_, err := e.GetBucket(ctx, "empty")
		Expect(err).To(HaveOccurred())
	})

	It("updates versioning status, rejecting invalid values", func() {
		Expect(e.CreateBucket(ctx, "v", "us-east-1")).To(Succeed())
		Expect(e.PutBucketVersioning(ctx, "v", store.VersioningEnabled)).To(Succeed())

		b, err := e.GetBucket(ctx, "v")
		Expect(err).NotTo(HaveOccurred())
		Expect(b.Versioning).To(Equal(store.VersioningEnabled))

		err = e.PutBucketVersioning(ctx, "v", "Bogus")
		Expect(err).To(HaveOccurred())
	})

	It("round-trips a bucket sub-resource", func() {
		Expect(e.CreateBucket(ctx, "sr", "us-east-1")).To(Succeed())

		_, err := e.GetBucketSubResource(ctx, "sr", store.SubPolicy)
		Expect(err).To(HaveOccurred())

		Expect(e.PutBucketSubResource(ctx, "sr", store.SubPolicy, `{"Version":"2012-10-17"}`)).To(Succeed())
		body, err := e.GetBucketSubResource(ctx, "sr", store.SubPolicy)
		Expect(err).NotTo(HaveOccurred())
		Expect(body).To(Equal(`{"Version":"2012-10-17"}`))
	})
})
