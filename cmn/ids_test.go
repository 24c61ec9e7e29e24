package cmn_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/NVIDIA/cloudemu/cmn"
)

var _ = Describe("id generation", func() {
	BeforeEach(func() {
		cmn.InitIDGen(1)
	})

	It("generates short ids starting and ending with a letter", func() {
		id := cmn.GenShortID()
		Expect(id).NotTo(BeEmpty())
		first, last := id[0], id[len(id)-1]
		Expect((first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z')).To(BeTrue())
		Expect(last).NotTo(Equal(byte('-')))
		Expect(last).NotTo(Equal(byte('_')))
	})

	It("generates distinct short ids across calls", func() {
		a := cmn.GenShortID()
		b := cmn.GenShortID()
		Expect(a).NotTo(Equal(b))
	})

	It("generates canonical v4 UUIDs", func() {
		u := cmn.GenUUID()
		Expect(u).To(HaveLen(36))
		Expect(u[14]).To(Equal(byte('4')))
	})
})
