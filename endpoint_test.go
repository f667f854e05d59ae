package shorthair

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/catid/shorthair-go/internal/protocol"
)

func validSettings() Settings {
	return Settings{
		TargetLoss:  1e-3,
		MinLoss:     1e-4,
		MinDelay:    time.Millisecond,
		MaxDelay:    time.Second,
		MaxDataSize: 1400,
		Iface: Interface{
			OnPacket: func([]byte) {},
			OnOOB:    func([]byte) {},
			SendData: func([]byte) {},
		},
	}
}

var _ = Describe("Endpoint lifecycle", func() {
	var secret []byte

	BeforeEach(func() {
		secret = make([]byte, protocol.SKEY_BYTES)
	})

	It("refuses a secret of the wrong length", func() {
		e := &Endpoint{}
		err := e.Initialize(make([]byte, 10), validSettings())
		Expect(err).To(HaveOccurred())
	})

	It("refuses to Initialize twice without an intervening Finalize", func() {
		e := &Endpoint{}
		Expect(e.Initialize(secret, validSettings())).To(Succeed())
		err := e.Initialize(secret, validSettings())
		Expect(err).To(MatchError(ErrAlreadyInitialized))
	})

	It("rejects every operation before Initialize", func() {
		e := &Endpoint{}
		Expect(e.Send(nil)).To(MatchError(ErrNotInitialized))
		Expect(e.SendOOB(0x10, nil)).To(MatchError(ErrNotInitialized))
		Expect(e.Recv(nil)).To(MatchError(ErrNotInitialized))
		Expect(e.Tick()).To(MatchError(ErrNotInitialized))
		Expect(e.Finalize()).To(MatchError(ErrNotInitialized))
	})

	It("aggregates every independent configuration violation", func() {
		s := validSettings()
		s.MinLoss = -1
		s.MinDelay = time.Second
		s.MaxDelay = time.Millisecond
		s.Iface.SendData = nil
		e := &Endpoint{}
		err := e.Initialize(secret, s)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("min_loss"))
		Expect(err.Error()).To(ContainSubstring("min_delay"))
		Expect(err.Error()).To(ContainSubstring("SendData"))
	})

	It("rejects a max_data_size too small to hold headers and cipher overhead", func() {
		s := validSettings()
		s.MaxDataSize = 8
		e := &Endpoint{}
		err := e.Initialize(secret, s)
		Expect(err).To(HaveOccurred())
	})

	It("allows a fresh Initialize after Finalize", func() {
		e := &Endpoint{}
		Expect(e.Initialize(secret, validSettings())).To(Succeed())
		Expect(e.Finalize()).To(Succeed())
		Expect(e.Initialize(secret, validSettings())).To(Succeed())
	})
})

var _ = Describe("Endpoint.Send boundary behavior", func() {
	It("accepts a payload up to max_data_size minus overheads", func() {
		a, _, _, _ := newEndpointPair(nil)
		overhead := a.dir.Overhead() + symbolHeaderSlack
		payload := make([]byte, a.settings.MaxDataSize-overhead)
		Expect(a.Send(payload)).To(Succeed())
	})

	It("rejects a payload one byte past the limit", func() {
		a, _, _, _ := newEndpointPair(nil)
		overhead := a.dir.Overhead() + symbolHeaderSlack
		payload := make([]byte, a.settings.MaxDataSize-overhead+1)
		Expect(a.Send(payload)).To(MatchError(ErrPayloadTooLarge))
	})
})

var _ = Describe("Endpoint SendOOB", func() {
	It("rejects a core-reserved type code", func() {
		a, _, _, _ := newEndpointPair(nil)
		Expect(a.SendOOB(0x00, []byte("x"))).To(MatchError(ErrOOBReserved))
	})

	It("delivers an application-range OOB payload to the peer", func() {
		a, _, _, bOnOOB := newOOBCapturePair()
		Expect(a.SendOOB(0x20, []byte("hello"))).To(Succeed())
		Expect(bOnOOB.payloads).To(HaveLen(1))
		Expect(bOnOOB.payloads[0]).To(Equal([]byte{0x20, 'h', 'e', 'l', 'l', 'o'}))
	})
})

var _ = Describe("Initiator role mismatch", func() {
	It("fails every decryption when both peers pick the same role", func() {
		secret := make([]byte, protocol.SKEY_BYTES)
		copy(secret, "a shared pre-distributed secret")
		var delivered int
		settings := func(captured *int) Settings {
			s := validSettings()
			s.Initiator = true // both endpoints pick the SAME role, which is invalid
			s.Iface.OnPacket = func([]byte) { *captured++ }
			return s
		}
		a := &Endpoint{}
		b := &Endpoint{}
		Expect(a.Initialize(secret, settings(&delivered))).To(Succeed())
		Expect(b.Initialize(secret, settings(&delivered))).To(Succeed())

		packet := make([]byte, 0)
		a.settings.Iface.SendData = func(p []byte) { packet = append([]byte(nil), p...) }
		Expect(a.Send([]byte("hello"))).To(Succeed())
		Expect(b.Recv(packet)).To(Succeed()) // Recv never surfaces EnvelopeInvalid as an error
		Expect(delivered).To(Equal(0))
	})
})

// newOOBCapturePair is a thin variant of newEndpointPair that also exposes
// the application OOB callback on each side.
func newOOBCapturePair() (a, b *Endpoint, aOOB, bOOB *capturedPackets) {
	secret := make([]byte, protocol.SKEY_BYTES)
	copy(secret, "a shared pre-distributed secret")
	aOOB, bOOB = &capturedPackets{}, &capturedPackets{}
	a, b = &Endpoint{}, &Endpoint{}

	mk := func(initiator bool, oob *capturedPackets, dest **Endpoint) Settings {
		s := validSettings()
		s.Initiator = initiator
		s.Iface.OnOOB = func(p []byte) { oob.add(p) }
		s.Iface.SendData = func(p []byte) {
			cp := append([]byte(nil), p...)
			_ = (*dest).Recv(cp)
		}
		return s
	}
	if err := a.Initialize(secret, mk(true, aOOB, &b)); err != nil {
		panic(err)
	}
	if err := b.Initialize(secret, mk(false, bOOB, &a)); err != nil {
		panic(err)
	}
	return a, b, aOOB, bOOB
}
