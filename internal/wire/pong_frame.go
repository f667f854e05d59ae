package wire

import (
	"bytes"
	"fmt"

	"github.com/catid/shorthair-go/internal/protocol"
	"github.com/catid/shorthair-go/internal/utils"
)

// PongFrame carries the OOB telemetry exchange:
// [type:1][group:1][seen:varint][count:varint][rtt_ms:varint], wrapped
// one more layer inside the generic OOB type byte. It reports (group
// id, seen count, expected count, measured RTT) back to the sender of
// that group.
type PongFrame struct {
	Group  protocol.GroupID
	Seen   uint64
	Count  uint64
	RTTMs  uint64
}

// Write appends [TypeOOB][OOBPong][group][seen][count][rtt_ms].
func (f *PongFrame) Write(b *bytes.Buffer) {
	b.WriteByte(protocol.TypeOOB)
	b.WriteByte(protocol.OOBPong)
	b.WriteByte(byte(f.Group))
	utils.WriteVarInt(b, f.Seen)
	utils.WriteVarInt(b, f.Count)
	utils.WriteVarInt(b, f.RTTMs)
}

// ParsePongFrame decodes the bytes following [TypeOOB][OOBPong].
func ParsePongFrame(body []byte) (*PongFrame, error) {
	r := bytes.NewReader(body)
	group, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("wire: truncated pong frame: %w", err)
	}
	seen, err := utils.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	count, err := utils.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	rtt, err := utils.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	return &PongFrame{Group: protocol.GroupID(group), Seen: seen, Count: count, RTTMs: rtt}, nil
}
