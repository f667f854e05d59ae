package crypto

import (
	"crypto/cipher"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

const chachaNonceSize = chacha20poly1305.NonceSize

// Envelope is the concrete AEAD sealing every outbound packet with
// ChaCha20-Poly1305 from golang.org/x/crypto (not nonce-misuse-resistant:
// each counter value must be used once per key), keyed straight off the pre-shared secret since
// there is no handshake or key exchange here.
type Envelope struct {
	aead cipher.AEAD
	iv   []byte
}

var _ AEAD = &Envelope{}

// NewEnvelope builds the AEAD for one direction from its derived key and
// IV (see DeriveDirectionKeys).
func NewEnvelope(key, iv []byte) (*Envelope, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: rejected key: %w", err)
	}
	if len(iv) != chachaNonceSize {
		return nil, fmt.Errorf("crypto: iv must be %d bytes, got %d", chachaNonceSize, len(iv))
	}
	return &Envelope{aead: aead, iv: iv}, nil
}

func (e *Envelope) nonce(counter uint64) []byte {
	nonce := make([]byte, chachaNonceSize)
	copy(nonce, e.iv)
	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], counter)
	for i := 0; i < 8; i++ {
		nonce[chachaNonceSize-8+i] ^= ctr[i]
	}
	return nonce
}

// Seal encrypts src and appends the ciphertext and tag to dst, using nonceCounter (monotonic for
// the instance lifetime) XORed into the fixed per-direction IV.
func (e *Envelope) Seal(dst, src []byte, nonceCounter uint64, associatedData []byte) []byte {
	return e.aead.Seal(dst, e.nonce(nonceCounter), src, associatedData)
}

// Open authenticates and decrypts src. A failure here means the caller
// drops the packet silently.
func (e *Envelope) Open(dst, src []byte, nonceCounter uint64, associatedData []byte) ([]byte, error) {
	return e.aead.Open(dst, e.nonce(nonceCounter), src, associatedData)
}

func (e *Envelope) Overhead() int {
	return e.aead.Overhead()
}
