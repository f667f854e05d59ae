package crypto

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ReplayWindow", func() {
	var w ReplayWindow

	BeforeEach(func() {
		w = ReplayWindow{}
	})

	It("accepts the first counter it ever sees", func() {
		Expect(w.Accept(100)).To(BeTrue())
	})

	It("rejects an exact duplicate", func() {
		Expect(w.Accept(5)).To(BeTrue())
		Expect(w.Accept(5)).To(BeFalse())
	})

	It("accepts out-of-order counters within the window", func() {
		Expect(w.Accept(10)).To(BeTrue())
		Expect(w.Accept(8)).To(BeTrue())
		Expect(w.Accept(9)).To(BeTrue())
		Expect(w.Accept(8)).To(BeFalse())
	})

	It("rejects a counter too old to judge after the window slides past it", func() {
		Expect(w.Accept(2000)).To(BeTrue())
		Expect(w.Accept(2000 - 1024)).To(BeFalse())
	})

	It("keeps accepting a monotonically increasing stream", func() {
		for i := uint64(0); i < 5000; i++ {
			Expect(w.Accept(i)).To(BeTrue())
		}
	})

	It("handles a counter far enough ahead to clear the whole bitmap", func() {
		Expect(w.Accept(0)).To(BeTrue())
		Expect(w.Accept(100000)).To(BeTrue())
		Expect(w.Accept(100000 - 1)).To(BeTrue())
	})
})
