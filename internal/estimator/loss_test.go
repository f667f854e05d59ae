package estimator

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Loss", func() {
	It("floors at min_loss before any data has been observed", func() {
		l := NewLoss(4, 0.01)
		Expect(l.Estimate()).To(Equal(0.01))
	})

	It("reflects the observed loss ratio over the window", func() {
		l := NewLoss(4, 0.0)
		l.AddGroup(10, 10)
		l.AddGroup(5, 10)
		Expect(l.Estimate()).To(BeNumerically("~", 0.25, 1e-9))
	})

	It("never reports below min_loss even with perfect delivery", func() {
		l := NewLoss(4, 0.05)
		l.AddGroup(10, 10)
		Expect(l.Estimate()).To(Equal(0.05))
	})

	It("evicts the oldest group once the window is full", func() {
		l := NewLoss(2, 0.0)
		l.AddGroup(0, 10) // 100% loss, about to be evicted
		l.AddGroup(10, 10)
		l.AddGroup(10, 10)
		Expect(l.Estimate()).To(Equal(0.0))
	})
})
