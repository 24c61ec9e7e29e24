package store_test

import (
	"context"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/NVIDIA/cloudemu/cmn"
	"github.com/NVIDIA/cloudemu/store"
)

var _ = Describe("Queue operations", func() {
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

	It("creates a queue with spec defaults when attrs are unset", func() {
		q, err := e.CreateQueue(ctx, "q1", "http://localhost:4566", 0, 0, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(q.VisibilityTimeout).To(Equal(cmn.DefaultVisibilityTimeout))
		Expect(q.MessageRetentionPeriod).To(Equal(cmn.DefaultMessageRetentionSecs))
		Expect(q.URL).To(HaveSuffix("/q1"))
	})

	It("rejects a duplicate queue name", func() {
		_, err := e.CreateQueue(ctx, "dup", "http://localhost:4566", 0, 0, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		_, err = e.CreateQueue(ctx, "dup", "http://localhost:4566", 0, 0, 0, 0)
		Expect(err).To(HaveOccurred())
		cerr := err.(*cmn.Error)
		Expect(cerr.Kind).To(Equal(cmn.KindAlreadyExists))
	})

	It("sends and receives a message, minting a receipt handle", func() {
		_, err := e.CreateQueue(ctx, "q2", "http://localhost:4566", 0, 0, 0, 0)
		Expect(err).NotTo(HaveOccurred())

		_, err = e.SendMessage(ctx, "q2", "hello", "", -1)
		Expect(err).NotTo(HaveOccurred())

		msgs, err := e.ReceiveMessages(ctx, "q2", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(msgs).To(HaveLen(1))
		Expect(msgs[0].Body).To(Equal("hello"))
		Expect(msgs[0].ReceiptHandle).NotTo(BeNil())
	})

	It("hides a message from redelivery until its visibility timeout elapses", func() {
		_, err := e.CreateQueue(ctx, "q3", "http://localhost:4566", 30, 0, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		_, err = e.SendMessage(ctx, "q3", "hello", "", -1)
		Expect(err).NotTo(HaveOccurred())

		first, err := e.ReceiveMessages(ctx, "q3", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(HaveLen(1))

		second, err := e.ReceiveMessages(ctx, "q3", 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(BeEmpty())
	})

	It("deletes a message by receipt handle", func() {
		_, err := e.CreateQueue(ctx, "q4", "http://localhost:4566", 0, 0, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		_, err = e.SendMessage(ctx, "q4", "hello", "", -1)
		Expect(err).NotTo(HaveOccurred())

		msgs, err := e.ReceiveMessages(ctx, "q4", 10)
		Expect(err).NotTo(HaveOccurred())

		Expect(e.DeleteMessage(ctx, "q4", *msgs[0].ReceiptHandle)).To(Succeed())

		err = e.DeleteMessage(ctx, "q4", *msgs[0].ReceiptHandle)
		Expect(err).To(HaveOccurred())
		cerr := err.(*cmn.Error)
		Expect(cerr.Kind).To(Equal(cmn.KindNotFound))
	})

	It("lists queues in name order", func() {
		_, err := e.CreateQueue(ctx, "zeta", "http://localhost:4566", 0, 0, 0, 0)
		Expect(err).NotTo(HaveOccurred())
		_, err = e.CreateQueue(ctx, "alpha", "http://localhost:4566", 0, 0, 0, 0)
		Expect(err).NotTo(HaveOccurred())

		qs, err := e.ListQueues(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(qs).To(HaveLen(2))
		Expect(qs[0].Name).To(Equal("alpha"))
	})
})
