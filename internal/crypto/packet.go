package crypto

import (
	"encoding/binary"
	"fmt"
)

// counterPrefixLen is the width of the plaintext nonce-counter header
// every sealed packet carries, so the peer can reconstruct the nonce
// without any shared sequence state beyond the AEAD keys themselves.
const counterPrefixLen = 8

// Direction bundles the two independent AEADs Initialize derives, one
// for each direction, plus the send-side monotonic counter and the
// receive-side replay window: SealPacket for outbound, OpenPacket for
// inbound.
type Direction struct {
	send    *Envelope
	recv    *Envelope
	sendCtr uint64
	replay  ReplayWindow
}

// NewDirection derives both AEADs for one endpoint from the shared secret
// and role, per DeriveDirectionKeys.
func NewDirection(secret []byte, initiator bool) (*Direction, error) {
	ourKey, ourIV, theirKey, theirIV, err := DeriveDirectionKeys(secret, initiator)
	if err != nil {
		return nil, err
	}
	send, err := NewEnvelope(ourKey, ourIV)
	if err != nil {
		return nil, err
	}
	recv, err := NewEnvelope(theirKey, theirIV)
	if err != nil {
		return nil, err
	}
	return &Direction{send: send, recv: recv}, nil
}

// Overhead is the total per-packet expansion: the plaintext counter
// prefix plus the AEAD tag.
func (d *Direction) Overhead() int {
	return counterPrefixLen + d.send.Overhead()
}

// SealPacket wraps plaintext into a full wire envelope:
// [counter:8][ciphertext+tag], appended onto dst[:0] so a caller can hand
// in a buffer from its reuse pool instead of forcing a fresh allocation
// per packet.
func (d *Direction) SealPacket(dst, plaintext []byte) []byte {
	counter := d.sendCtr
	d.sendCtr++
	dst = dst[:0]
	var hdr [counterPrefixLen]byte
	binary.BigEndian.PutUint64(hdr[:], counter)
	dst = append(dst, hdr[:]...)
	return d.send.Seal(dst, plaintext, counter, nil)
}

// OpenPacket authenticates and decrypts a received envelope into dst[:0],
// enforcing the replay window. Any failure here means the caller is
// expected to drop the packet silently.
func (d *Direction) OpenPacket(dst, packet []byte) ([]byte, error) {
	if len(packet) < counterPrefixLen+d.recv.Overhead() {
		return nil, fmt.Errorf("crypto: envelope too short: %d bytes", len(packet))
	}
	counter := binary.BigEndian.Uint64(packet[:counterPrefixLen])
	if !d.replay.Accept(counter) {
		return nil, fmt.Errorf("crypto: replayed or stale counter %d", counter)
	}
	return d.recv.Open(dst[:0], packet[counterPrefixLen:], counter, nil)
}
