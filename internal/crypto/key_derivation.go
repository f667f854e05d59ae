package crypto

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Direction labels for the two HKDF-expanded sub-keys, expanded
// directly off the shared secret (golang.org/x/crypto/hkdf) rather than
// a TLS exporter: the engine performs no handshake, the key arrives
// pre-shared.
const (
	initiatorLabel   = "shorthair initiator"
	responderLabel   = "shorthair responder"
	directionKeySize = 32
	directionIVSize  = chachaNonceSize
)

// DeriveDirectionKeys expands the shared secret into the two independent
// (key, iv) pairs the two endpoints use to seal outbound packets. Each
// endpoint picks the opposite role, so the two halves of the key
// schedule never collide.
func DeriveDirectionKeys(secret []byte, initiator bool) (ourKey, ourIV, theirKey, theirIV []byte, err error) {
	ourLabel, theirLabel := responderLabel, initiatorLabel
	if initiator {
		ourLabel, theirLabel = initiatorLabel, responderLabel
	}
	if ourKey, ourIV, err = expandDirection(secret, ourLabel); err != nil {
		return nil, nil, nil, nil, err
	}
	if theirKey, theirIV, err = expandDirection(secret, theirLabel); err != nil {
		return nil, nil, nil, nil, err
	}
	return ourKey, ourIV, theirKey, theirIV, nil
}

func expandDirection(secret []byte, label string) (key, iv []byte, err error) {
	r := hkdf.New(sha256.New, secret, nil, []byte(label))
	key = make([]byte, directionKeySize)
	if _, err = io.ReadFull(r, key); err != nil {
		return nil, nil, err
	}
	iv = make([]byte, directionIVSize)
	if _, err = io.ReadFull(r, iv); err != nil {
		return nil, nil, err
	}
	return key, iv, nil
}
