package events_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/NVIDIA/cloudemu/cmn"
	"github.com/NVIDIA/cloudemu/events"
)

func mustValue(raw string) cmn.Value {
	v, err := cmn.ParseValue([]byte(raw))
	Expect(err).NotTo(HaveOccurred())
	return v
}

var _ = Describe("Match", func() {
	It("matches on source, any-of", func() {
		p := events.Pattern{"source": []interface{}{"my.app", "other.app"}}
		ev := events.Event{Source: "my.app"}
		Expect(events.Match(p, ev)).To(BeTrue())

		ev.Source = "unrelated.app"
		Expect(events.Match(p, ev)).To(BeFalse())
	})

	It("matches on detail-type, any-of", func() {
		p := events.Pattern{"detail-type": []interface{}{"OrderPlaced"}}
		Expect(events.Match(p, events.Event{DetailType: "OrderPlaced"})).To(BeTrue())
		Expect(events.Match(p, events.Event{DetailType: "OrderCancelled"})).To(BeFalse())
	})

	It("matches every event when the pattern is empty", func() {
		Expect(events.Match(events.Pattern{}, events.Event{Source: "anything"})).To(BeTrue())
	})

	It("requires both source and detail-type when both are present", func() {
		p := events.Pattern{
			"source":      []interface{}{"my.app"},
			"detail-type": []interface{}{"OrderPlaced"},
		}
		Expect(events.Match(p, events.Event{Source: "my.app", DetailType: "OrderPlaced"})).To(BeTrue())
		Expect(events.Match(p, events.Event{Source: "my.app", DetailType: "OrderCancelled"})).To(BeFalse())
	})

	It("matches nested detail fields against the event's Detail object", func() {
		p := events.Pattern{"status": []interface{}{"FAILED", "TIMED_OUT"}}
		ev := events.Event{Detail: mustValue(`{"status":"FAILED","id":"1"}`)}
		Expect(events.Match(p, ev)).To(BeTrue())

		ev.Detail = mustValue(`{"status":"SUCCEEDED","id":"1"}`)
		Expect(events.Match(p, ev)).To(BeFalse())
	})

	It("fails a detail match when Detail isn't an object", func() {
		p := events.Pattern{"status": []interface{}{"FAILED"}}
		ev := events.Event{Detail: mustValue(`"not-an-object"`)}
		Expect(events.Match(p, ev)).To(BeFalse())
	})

	It("fails a detail match when the field is absent", func() {
		p := events.Pattern{"missingField": []interface{}{"x"}}
		ev := events.Event{Detail: mustValue(`{"status":"FAILED"}`)}
		Expect(events.Match(p, ev)).To(BeFalse())
	})
})

var _ = Describe("PatternCache", func() {
	It("decodes a pattern and returns an equivalent result on repeat calls", func() {
		c := events.NewPatternCache()
		raw := `{"source":["my.app"]}`

		p1, err := c.Decode(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(p1["source"]).To(ConsistOf("my.app"))

		p2, err := c.Decode(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(p2).To(Equal(p1))
	})

	It("returns nil for empty raw text", func() {
		c := events.NewPatternCache()
		p, err := c.Decode("")
		Expect(err).NotTo(HaveOccurred())
		Expect(p).To(BeNil())
	})

	It("propagates a decode error for malformed JSON", func() {
		c := events.NewPatternCache()
		_, err := c.Decode("{not json")
		Expect(err).To(HaveOccurred())
	})

	It("re-decodes correctly even across many distinct patterns", func() {
		c := events.NewPatternCache()
		for _, raw := range []string{
			`{"source":["a"]}`,
			`{"source":["b"]}`,
			`{"detail-type":["c"]}`,
		} {
			_, err := c.Decode(raw)
			Expect(err).NotTo(HaveOccurred())
		}
	})
})
