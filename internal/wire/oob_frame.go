package wire

import (
	"bytes"
	"fmt"

	"github.com/catid/shorthair-go/internal/protocol"
)

// OOBFrame is the generic out-of-band envelope: [TypeOOB][subtype][payload...].
// Pong (subtype OOBPong) is handled by the core; anything in the
// application range is forwarded to Interface.OnOOB unchanged.
type OOBFrame struct {
	SubType byte
	Payload []byte
}

// Write appends [TypeOOB][subtype][payload].
func (f *OOBFrame) Write(b *bytes.Buffer) {
	b.WriteByte(protocol.TypeOOB)
	b.WriteByte(f.SubType)
	b.Write(f.Payload)
}

// ParseOOBFrame decodes an OOBFrame from plaintext already identified as
// TypeOOB by its first byte.
func ParseOOBFrame(plaintext []byte) (*OOBFrame, error) {
	if len(plaintext) < 2 {
		return nil, fmt.Errorf("wire: OOB frame too short: %d bytes", len(plaintext))
	}
	if plaintext[0] != protocol.TypeOOB {
		return nil, fmt.Errorf("wire: not an OOB frame: type %#x", plaintext[0])
	}
	return &OOBFrame{SubType: plaintext[1], Payload: plaintext[2:]}, nil
}

// IsReserved reports whether subtype is in the core-reserved range:
// 0x00-0x0F reserved, 0x10-0xFF forwarded to the application.
func IsReserved(subType byte) bool {
	return subType <= protocol.OOBReservedMax
}
