package cmn_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/NVIDIA/cloudemu/cmn"
)

var _ = Describe("ARN helpers", func() {
	It("builds a type/id resource ARN parseable by aws-sdk-go's arn.Parse", func() {
		a := cmn.BuildARN("dynamodb", "us-east-1", "table", "Orders")
		parsed, err := cmn.ParseARN(a)
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed.Service).To(Equal("dynamodb"))
		Expect(parsed.Region).To(Equal("us-east-1"))
		Expect(parsed.Resource).To(Equal("table/Orders"))
	})

	It("builds a bare-resource ARN with no slash", func() {
		a := cmn.BuildARNResource("sns", "us-east-1", "my-topic")
		parsed, err := cmn.ParseARN(a)
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed.Resource).To(Equal("my-topic"))
	})

	It("rejects a malformed ARN", func() {
		_, err := cmn.ParseARN("not-an-arn")
		Expect(err).To(HaveOccurred())
		cerr, ok := err.(*cmn.Error)
		Expect(ok).To(BeTrue())
		Expect(cerr.Kind).To(Equal(cmn.KindInvalidArgument))
	})

	It("synthesizes the SQS queue URL form", func() {
		url := cmn.QueueURL("http://localhost:4566", "my-queue")
		Expect(url).To(HavePrefix("http://localhost:4566/"))
		Expect(url).To(HaveSuffix("/my-queue"))
	})
})
