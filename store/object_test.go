package store_test

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/NVIDIA/cloudemu/cmn"
	"github.com/NVIDIA/cloudemu/store"
)

var _ = Describe("Object operations", func() {
	var (
		ctx context.Context
		e   *store.Engine
	)

	BeforeEach(func() {
		ctx = context.Background()
		e = newEngine()
		Expect(e.CreateBucket(ctx, "b", "us-east-1")).To(Succeed())
	})

	AfterEach(func() {
		Expect(e.Close()).To(Succeed())
	})

	It("puts and gets an object's body back unchanged", func() {
		obj, err := e.PutObject(ctx, store.PutObjectInput{Bucket: "b", Key: "k", Body: []byte("hello")})
		Expect(err).NotTo(HaveOccurred())
		Expect(obj.VersionID).To(Equal("null"))
		Expect(obj.ContentLength).To(Equal(int64(5)))

		got, body, err := e.GetObject(ctx, "b", "k", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(Equal("hello"))
		Expect(got.ETag).To(Equal(obj.ETag))
	})

	It("fails GetObject for an unknown key", func() {
		_, _, err := e.GetObject(ctx, "b", "nope", "")
		Expect(err).To(HaveOccurred())
		cerr := err.(*cmn.Error)
		Expect(cerr.Kind).To(Equal(cmn.KindNoSuchKey))
	})

	It("supersedes the previous row when unversioned", func() {
		_, err := e.PutObject(ctx, store.PutObjectInput{Bucket: "b", Key: "k", Body: []byte("v1")})
		Expect(err).NotTo(HaveOccurred())
		_, err = e.PutObject(ctx, store.PutObjectInput{Bucket: "b", Key: "k", Body: []byte("v2")})
		Expect(err).NotTo(HaveOccurred())

		_, body, err := e.GetObject(ctx, "b", "k", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(Equal("v2"))

		versions, err := e.ListObjectVersions(ctx, "b", "", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(versions).To(HaveLen(1))
	})

	It("keeps history across versions once versioning is enabled", func() {
		Expect(e.PutBucketVersioning(ctx, "b", store.VersioningEnabled)).To(Succeed())

		v1, err := e.PutObject(ctx, store.PutObjectInput{Bucket: "b", Key: "k", Body: []byte("v1")})
		Expect(err).NotTo(HaveOccurred())
		Expect(v1.VersionID).NotTo(Equal("null"))

		v2, err := e.PutObject(ctx, store.PutObjectInput{Bucket: "b", Key: "k", Body: []byte("v2")})
		Expect(err).NotTo(HaveOccurred())
		Expect(v2.VersionID).NotTo(Equal(v1.VersionID))

		_, body, err := e.GetObject(ctx, "b", "k", v1.VersionID)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(Equal("v1"))

		versions, err := e.ListObjectVersions(ctx, "b", "", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(versions).To(HaveLen(2))
	})

	It("appends a delete marker instead of erasing history when versioned", func() {
		Expect(e.PutBucketVersioning(ctx, "b", store.VersioningEnabled)).To(Succeed())
		_, err := e.PutObject(ctx, store.PutObjectInput{Bucket: "b", Key: "k", Body: []byte("v1")})
		Expect(err).NotTo(HaveOccurred())

		marker, deleted, err := e.DeleteObject(ctx, "b", "k", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(deleted).To(BeTrue())
		Expect(marker).NotTo(BeEmpty())

		_, _, err = e.GetObject(ctx, "b", "k", "")
		Expect(err).To(HaveOccurred())

		versions, err := e.ListObjectVersions(ctx, "b", "", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(versions).To(HaveLen(2))
	})

	It("groups keys under a delimiter into common prefixes", func() {
		for _, k := range []string{"a/1", "a/2", "b"} {
			_, err := e.PutObject(ctx, store.PutObjectInput{Bucket: "b", Key: k, Body: []byte("x")})
			Expect(err).NotTo(HaveOccurred())
		}
		page, err := e.ListObjects(ctx, "b", "", "/", "", 100)
		Expect(err).NotTo(HaveOccurred())
		Expect(page.CommonPrefixes).To(ConsistOf("a/"))
		Expect(page.Objects).To(HaveLen(1))
		Expect(page.Objects[0].Key).To(Equal("b"))
	})
})
