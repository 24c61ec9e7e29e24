package cmn_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/NVIDIA/cloudemu/cmn"
)

var _ = Describe("Value", func() {
	It("parses a heterogeneous JSON document into navigable Values", func() {
		v, err := cmn.ParseValue([]byte(`{"name":"widget","count":3,"active":true,"tags":["a","b"],"meta":null}`))
		Expect(err).NotTo(HaveOccurred())

		m, ok := v.Map()
		Expect(ok).To(BeTrue())

		name, ok := m["name"].String()
		Expect(ok).To(BeTrue())
		Expect(name).To(Equal("widget"))

		count, ok := m["count"].Number()
		Expect(ok).To(BeTrue())
		Expect(count).To(Equal(float64(3)))

		active, ok := m["active"].Bool()
		Expect(ok).To(BeTrue())
		Expect(active).To(BeTrue())

		tags, ok := m["tags"].Array()
		Expect(ok).To(BeTrue())
		Expect(tags).To(HaveLen(2))
		s0, _ := tags[0].String()
		Expect(s0).To(Equal("a"))

		Expect(m["meta"].IsNull()).To(BeTrue())
	})

	It("supports Get for nested map lookups", func() {
		v, err := cmn.ParseValue([]byte(`{"outer":{"inner":42}}`))
		Expect(err).NotTo(HaveOccurred())

		outer, ok := v.Get("outer")
		Expect(ok).To(BeTrue())
		inner, ok := outer.Get("inner")
		Expect(ok).To(BeTrue())
		n, _ := inner.Number()
		Expect(n).To(Equal(float64(42)))

		_, ok = v.Get("missing")
		Expect(ok).To(BeFalse())
	})

	It("rejects malformed JSON with cmn.ErrInvalidArgument", func() {
		_, err := cmn.ParseValue([]byte(`{not json`))
		Expect(err).To(HaveOccurred())
		cerr, ok := err.(*cmn.Error)
		Expect(ok).To(BeTrue())
		Expect(cerr.Kind).To(Equal(cmn.KindInvalidArgument))
	})

	It("treats empty input as a null Value with no error", func() {
		v, err := cmn.ParseValue(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(v.IsNull()).To(BeTrue())
	})

	It("round-trips through MarshalJSON/UnmarshalJSON", func() {
		v, err := cmn.ParseValue([]byte(`{"x":1}`))
		Expect(err).NotTo(HaveOccurred())
		data, err := v.MarshalJSON()
		Expect(err).NotTo(HaveOccurred())

		var rt cmn.Value
		Expect(rt.UnmarshalJSON(data)).To(Succeed())
		m, ok := rt.Map()
		Expect(ok).To(BeTrue())
		n, _ := m["x"].Number()
		Expect(n).To(Equal(float64(1)))
	})
})
