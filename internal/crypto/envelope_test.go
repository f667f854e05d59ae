package crypto

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Envelope", func() {
	key := bytes32("0123456789abcdef0123456789abcdef")[:32]
	iv := make([]byte, chachaNonceSize)

	It("decrypts what it encrypts", func() {
		e, err := NewEnvelope(key, iv)
		Expect(err).NotTo(HaveOccurred())
		ct := e.Seal(nil, []byte("secret message"), 1, []byte("aad"))
		pt, err := e.Open(nil, ct, 1, []byte("aad"))
		Expect(err).NotTo(HaveOccurred())
		Expect(pt).To(Equal([]byte("secret message")))
	})

	It("fails authentication under the wrong nonce counter", func() {
		e, err := NewEnvelope(key, iv)
		Expect(err).NotTo(HaveOccurred())
		ct := e.Seal(nil, []byte("secret message"), 1, nil)
		_, err = e.Open(nil, ct, 2, nil)
		Expect(err).To(HaveOccurred())
	})

	It("fails authentication under mismatched associated data", func() {
		e, err := NewEnvelope(key, iv)
		Expect(err).NotTo(HaveOccurred())
		ct := e.Seal(nil, []byte("secret message"), 1, []byte("aad-a"))
		_, err = e.Open(nil, ct, 1, []byte("aad-b"))
		Expect(err).To(HaveOccurred())
	})

	It("rejects an IV of the wrong length", func() {
		_, err := NewEnvelope(key, []byte{0x00, 0x01})
		Expect(err).To(HaveOccurred())
	})

	It("reports the fixed per-packet tag overhead", func() {
		e, err := NewEnvelope(key, iv)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Overhead()).To(Equal(16))
	})
})
