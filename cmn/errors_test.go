package cmn_test

import (
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/NVIDIA/cloudemu/cmn"
)

var _ = Describe("Error", func() {
	It("maps each constructor to the right HTTP status and AWS code", func() {
		cases := []struct {
			err    *cmn.Error
			status int
			code   string
		}{
			{cmn.ErrNoSuchBucket("b"), http.StatusNotFound, "NoSuchBucket"},
			{cmn.ErrBucketAlreadyExists("b"), http.StatusConflict, "BucketAlreadyExists"},
			{cmn.ErrBucketNotEmpty("b"), http.StatusConflict, "BucketNotEmpty"},
			{cmn.ErrNoSuchKey("b", "k"), http.StatusNotFound, "NoSuchKey"},
			{cmn.ErrNotFound("table", "id"), http.StatusNotFound, "ResourceNotFoundException"},
			{cmn.ErrAlreadyExists("table", "id"), http.StatusBadRequest, "ResourceInUseException"},
			{cmn.ErrInvalidArgument("bad"), http.StatusBadRequest, "ValidationException"},
			{cmn.ErrNotImplemented("Frobnicate"), http.StatusNotImplemented, "NotImplementedException"},
			{cmn.ErrInternal("boom"), http.StatusInternalServerError, "InternalFailure"},
		}
		for _, c := range cases {
			Expect(c.err.HTTPStatus()).To(Equal(c.status))
			Expect(c.err.AWSCode()).To(Equal(c.code))
		}
	})

	It("formats Resrc/Message pairs and bare messages", func() {
		Expect(cmn.ErrNoSuchKey("bkt", "obj").Error()).To(Equal("bkt/obj: the specified key does not exist"))
		Expect(cmn.ErrInvalidArgument("nope").Error()).To(Equal("nope"))
	})

	It("wraps the underlying cause for database errors", func() {
		cause := errors.New("disk full")
		e := cmn.ErrDatabase(cause)
		Expect(e.Unwrap()).To(Equal(cause))
		Expect(e.HTTPStatus()).To(Equal(http.StatusInternalServerError))
	})

	Describe("AsError", func() {
		It("passes a *cmn.Error through unchanged", func() {
			orig := cmn.ErrNoSuchBucket("b")
			Expect(cmn.AsError(orig)).To(BeIdenticalTo(orig))
		})

		It("wraps a foreign error as KindInternal", func() {
			foreign := errors.New("context deadline exceeded")
			wrapped := cmn.AsError(foreign)
			Expect(wrapped.HTTPStatus()).To(Equal(http.StatusInternalServerError))
			Expect(wrapped.AWSCode()).To(Equal("InternalFailure"))
			Expect(wrapped.Unwrap()).To(Equal(foreign))
		})

		It("returns nil for a nil error", func() {
			Expect(cmn.AsError(nil)).To(BeNil())
		})
	})
})
