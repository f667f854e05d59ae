// Package wire implements the plaintext framing carried inside the
// cipher envelope: a flat set of three frame kinds (symbol, pong, OOB)
// rather than a general frame stream.
package wire

import (
	"bytes"
	"fmt"

	"github.com/catid/shorthair-go/internal/protocol"
	"github.com/catid/shorthair-go/internal/utils"
)

// SymbolFrame is an original or recovery data symbol:
// [type:1][code_group:1][symbol_id:varint][original_count:varint][recovery_count:varint][symbol_len:varint][payload...]
//
// OriginalCount, RecoveryCount and SymbolLen are only meaningful on a
// recovery symbol: the sender only finalizes a group's shape at Close,
// after its original symbols have already gone out, so an original
// frame always carries them as zero and the receiver learns the real
// group shape from the first recovery symbol it sees for that group.
type SymbolFrame struct {
	Recovery      bool
	Group         protocol.GroupID
	SymbolID      protocol.SymbolID
	OriginalCount uint64
	RecoveryCount uint64
	SymbolLen     uint64
	Payload       []byte
}

// Write appends the encoded frame to b.
func (f *SymbolFrame) Write(b *bytes.Buffer) {
	if f.Recovery {
		b.WriteByte(protocol.TypeRecovery)
	} else {
		b.WriteByte(protocol.TypeOriginal)
	}
	b.WriteByte(byte(f.Group))
	utils.WriteVarInt(b, uint64(f.SymbolID))
	utils.WriteVarInt(b, f.OriginalCount)
	utils.WriteVarInt(b, f.RecoveryCount)
	utils.WriteVarInt(b, f.SymbolLen)
	b.Write(f.Payload)
}

// ParseSymbolFrame decodes a SymbolFrame from plaintext that has already
// been identified (by its first byte) as TypeOriginal or TypeRecovery.
func ParseSymbolFrame(plaintext []byte) (*SymbolFrame, error) {
	if len(plaintext) < 2 {
		return nil, fmt.Errorf("wire: symbol frame too short: %d bytes", len(plaintext))
	}
	typ := plaintext[0]
	if typ != protocol.TypeOriginal && typ != protocol.TypeRecovery {
		return nil, fmt.Errorf("wire: not a symbol frame: type %#x", typ)
	}
	r := bytes.NewReader(plaintext[1:])
	group, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	symbolID, err := utils.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	originalCount, err := utils.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	recoveryCount, err := utils.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	symbolLen, err := utils.ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, r.Len())
	if _, err := r.Read(payload); err != nil && r.Len() > 0 {
		return nil, err
	}
	return &SymbolFrame{
		Recovery:      typ == protocol.TypeRecovery,
		Group:         protocol.GroupID(group),
		SymbolID:      protocol.SymbolID(symbolID),
		OriginalCount: originalCount,
		RecoveryCount: recoveryCount,
		SymbolLen:     symbolLen,
		Payload:       payload,
	}, nil
}
