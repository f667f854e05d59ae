package group_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/catid/shorthair-go/internal/fec/group"
	"github.com/catid/shorthair-go/internal/fec/group/schemes"
	"github.com/catid/shorthair-go/internal/protocol"
)

var _ = Describe("SenderGroup/ReceiverGroup round trip", func() {
	var scheme group.Scheme

	BeforeEach(func() {
		scheme = schemes.New()
	})

	It("decodes missing originals from recovery symbols", func() {
		sg := group.NewSenderGroup(7)
		payloads := [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma"), []byte("delta")}
		for _, p := range payloads {
			_, err := sg.AddOriginal(p)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(sg.Close(scheme, 2)).To(Succeed())

		rg := group.Open(7)
		// Originals 0, 1 and 3 arrive and one (index 2) is dropped;
		// originals are delivered to the receiver before l is known.
		rg.SetOriginal(0, payloads[0])
		rg.SetOriginal(1, payloads[1])
		rg.SetOriginal(3, payloads[3])
		Expect(rg.MissingOriginals()).To(BeFalse()) // not learned yet

		data0, id0, ok := sg.NextRecoverySymbol()
		Expect(ok).To(BeTrue())
		Expect(rg.LearnParams(sg.PaddedLen(), sg.OriginalCount(), sg.RecoveryCount())).To(Succeed())
		rg.SetRecovery(protocol.SymbolID(int(id0)-sg.OriginalCount()), &group.Symbol{Data: data0})

		Expect(rg.MissingOriginals()).To(BeTrue())
		Expect(rg.CanDecode(scheme)).To(BeTrue())

		recovered, err := rg.Decode(scheme)
		Expect(err).NotTo(HaveOccurred())
		Expect(recovered).To(HaveLen(1))
		Expect(recovered[0]).To(Equal(payloads[2]))
		Expect(rg.Complete()).To(BeTrue())
	})

	It("never requires learning params for originals received before any recovery symbol", func() {
		sg := group.NewSenderGroup(1)
		_, _ = sg.AddOriginal([]byte("only one"))
		rg := group.Open(1)
		Expect(rg.SetOriginal(0, []byte("only one"))).To(BeTrue())
		Expect(rg.MissingOriginals()).To(BeFalse())
		Expect(rg.Complete()).To(BeFalse()) // totalOriginals unknown until learned
	})

	It("drops pending recovery symbols on swap without sending them", func() {
		sg := group.NewSenderGroup(3)
		_, _ = sg.AddOriginal([]byte("x"))
		_, _ = sg.AddOriginal([]byte("y"))
		Expect(sg.Close(scheme, 4)).To(Succeed())
		Expect(sg.PendingRecovery()).To(Equal(4))
		_, _, _ = sg.NextRecoverySymbol()
		sg.DropPendingRecovery()
		Expect(sg.PendingRecovery()).To(Equal(0))
	})
})

var _ = Describe("PadOriginal/Depad", func() {
	It("round trips an arbitrary payload through a padded symbol", func() {
		sym, err := group.PadOriginal([]byte("hello world"), 64)
		Expect(err).NotTo(HaveOccurred())
		Expect(sym.Data).To(HaveLen(64))
		out, err := group.Depad(sym)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal([]byte("hello world")))
	})

	It("rejects a payload that doesn't fit the padded length", func() {
		_, err := group.PadOriginal(make([]byte, 100), 10)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Ring", func() {
	It("supersedes a group once the cursor sweeps back around to its slot", func() {
		// Three forward hops of 100 (100 -> 200 -> 44, wrapping past 256)
		// sweep the cursor across slot 0 a second time, which is when g0
		// actually gets closed: a single big forward jump from 0 would
		// instead be read as a short hop backward by the signed-distance check.
		r := group.NewRing()
		g0, _, ok := r.Classify(0)
		Expect(ok).To(BeTrue())
		_, _, ok = r.Classify(100)
		Expect(ok).To(BeTrue())
		_, _, ok = r.Classify(200)
		Expect(ok).To(BeTrue())
		_, superseded, ok := r.Classify(44)
		Expect(ok).To(BeTrue())
		found := false
		for _, s := range superseded {
			if s == g0 {
				found = true
			}
		}
		Expect(found).To(BeTrue())
	})

	It("drops the one id that is ambiguously exactly half the ring away", func() {
		// With an 8-bit id, cursor+128 is indistinguishable from
		// cursor-128: the signed-distance trick loses sign information
		// at exactly that offset, so it's conservatively dropped.
		r := group.NewRing()
		_, _, _ = r.Classify(250)
		_, _, ok := r.Classify(122)
		Expect(ok).To(BeFalse())
	})

	It("reuses the same group object for repeated classification of one id", func() {
		r := group.NewRing()
		g1, _, _ := r.Classify(5)
		g2, _, _ := r.Classify(5)
		Expect(g1).To(BeIdenticalTo(g2))
	})

	It("frees and replaces a slot on the real sequential +1 wrap, including id 0", func() {
		// Plain +1 group ids are the common case, not the jump-by-100
		// case above: id 0 is the very first id ever seen and is also
		// the 257th id seen, a full 256-wide lap later.
		r := group.NewRing()
		g0, _, ok := r.Classify(0)
		Expect(ok).To(BeTrue())
		var superseded []*group.ReceiverGroup
		for i := 1; i < 256; i++ {
			_, s, ok := r.Classify(protocol.GroupID(i))
			Expect(ok).To(BeTrue())
			superseded = append(superseded, s...)
		}
		gWrapped, s, ok := r.Classify(0)
		Expect(ok).To(BeTrue())
		superseded = append(superseded, s...)

		Expect(gWrapped).NotTo(BeIdenticalTo(g0))
		Expect(g0.Done).To(BeTrue())
		found := false
		for _, g := range superseded {
			if g == g0 {
				found = true
			}
		}
		Expect(found).To(BeTrue())
	})
})
