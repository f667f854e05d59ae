// Package group implements the sender- and receiver-side code-group
// model: every original symbol carries exactly one application
// datagram, so the per-symbol framing collapses to a single varint
// length prefix used only to strip the padding a systematic code forces
// onto every symbol in a group.
package group

import (
	"fmt"
)

// Symbol is one source or recovery payload inside a group, always
// exactly PaddedLen(group) bytes once it leaves the encoder: every
// symbol within a group shares one padded plaintext length.
type Symbol struct {
	Data []byte
}

// PadOriginal produces an L-byte symbol from a shorter application
// payload: a varint length prefix followed by the payload followed by
// zero padding, so the decoder can recover the exact original length
// even after a systematic round trip through the erasure code.
func PadOriginal(payload []byte, l int) (*Symbol, error) {
	prefix := varintLen(uint64(len(payload)))
	if prefix+len(payload) > l {
		return nil, fmt.Errorf("group: payload of %d bytes (prefix %d) does not fit in symbol length %d", len(payload), prefix, l)
	}
	data := make([]byte, l)
	n := putVarint(data, uint64(len(payload)))
	copy(data[n:], payload)
	return &Symbol{Data: data}, nil
}

// Depad strips the length prefix and any trailing padding, returning the
// original application payload.
func Depad(s *Symbol) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("group: cannot depad a nil symbol")
	}
	n, length, err := readVarint(s.Data)
	if err != nil {
		return nil, err
	}
	if n+int(length) > len(s.Data) {
		return nil, fmt.Errorf("group: encoded length %d overruns symbol of %d bytes", length, len(s.Data))
	}
	return s.Data[n : n+int(length)], nil
}

// minimal unsigned-varint helpers, local to this package: the padding
// prefix only ever needs to encode lengths up to max_data_size, so a
// 1-5 byte LEB128 form (as opposed to internal/utils' QUIC varint) keeps
// the prefix as small as possible for small payloads.
func varintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

func putVarint(buf []byte, v uint64) int {
	i := 0
	for v >= 0x80 {
		buf[i] = byte(v) | 0x80
		v >>= 7
		i++
	}
	buf[i] = byte(v)
	return i + 1
}

func readVarint(buf []byte) (n int, v uint64, err error) {
	var shift uint
	for i, b := range buf {
		if i > 9 {
			return 0, 0, fmt.Errorf("group: varint prefix too long")
		}
		v |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return i + 1, v, nil
		}
		shift += 7
	}
	return 0, 0, fmt.Errorf("group: truncated varint prefix")
}
