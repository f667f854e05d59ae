package group

import (
	"fmt"
	"time"

	"github.com/catid/shorthair-go/internal/protocol"
)

// SenderGroup is the sender-side code group: originals accumulate in
// send order, then Close() pads them to one shared length and asks the
// Scheme for the planned recovery symbols.
type SenderGroup struct {
	ID protocol.GroupID

	originals [][]byte // raw, unpadded application payloads, in send order
	l         int       // running max payload length seen so far

	StartedAt time.Time // wall-clock group-open time; the encoder times swaps from its own lastSwap, not from this

	closed          bool
	recoverySymbols [][]byte
	recoverySent    int
}

// NewSenderGroup starts an empty group with the given id.
func NewSenderGroup(id protocol.GroupID) *SenderGroup {
	return &SenderGroup{ID: id, StartedAt: time.Now()}
}

// AddOriginal appends a new original to the group and returns its
// symbol id; original symbol ids within a group are dense
// [0, original_count).
func (g *SenderGroup) AddOriginal(payload []byte) (protocol.SymbolID, error) {
	if g.closed {
		return 0, fmt.Errorf("group: cannot add an original to closed group %d", g.ID)
	}
	id := protocol.SymbolID(len(g.originals))
	g.originals = append(g.originals, payload)
	if len(payload) > g.l {
		g.l = len(payload)
	}
	return id, nil
}

// OriginalCount is the number of originals accumulated so far.
func (g *SenderGroup) OriginalCount() int { return len(g.originals) }

// PaddedLen is the L every symbol in this group will share once closed.
func (g *SenderGroup) PaddedLen() int {
	// +varint-prefix headroom: the largest length-prefix for l needs at
	// most 5 bytes (LEB128 of a uint32), so pad generously up front.
	return g.l + 5
}

// Close pads every original to PaddedLen, asks scheme for numberOfRepair
// recovery symbols, and marks the group immutable to further Sends.
// This is the swap: the 8-bit code_group id advances, and the group's
// recovery symbols are emitted during the next group's window.
func (g *SenderGroup) Close(scheme Scheme, numberOfRepair int) error {
	if g.closed {
		return fmt.Errorf("group: group %d already closed", g.ID)
	}
	g.closed = true
	if len(g.originals) == 0 {
		return nil
	}
	l := g.PaddedLen()
	padded := make([][]byte, len(g.originals))
	for i, orig := range g.originals {
		sym, err := PadOriginal(orig, l)
		if err != nil {
			return err
		}
		padded[i] = sym.Data
	}
	if numberOfRepair <= 0 {
		return nil
	}
	recovery, err := scheme.Encode(padded, numberOfRepair)
	if err != nil {
		return fmt.Errorf("group: encoding recovery for group %d: %w", g.ID, err)
	}
	g.recoverySymbols = recovery
	return nil
}

// RecoveryCount is the total number of recovery symbols generated for
// this group at Close, regardless of how many have been sent so far.
// After DropPendingRecovery it counts only the symbols handed out before
// the drop.
func (g *SenderGroup) RecoveryCount() int { return len(g.recoverySymbols) }

// PendingRecovery is how many generated recovery symbols have not yet
// been handed to NextRecoverySymbol.
func (g *SenderGroup) PendingRecovery() int {
	return len(g.recoverySymbols) - g.recoverySent
}

// NextRecoverySymbol returns the next unsent recovery symbol's data and
// its symbol id (>= original_count), or ok=false if none remain.
func (g *SenderGroup) NextRecoverySymbol() (data []byte, id protocol.SymbolID, ok bool) {
	if g.recoverySent >= len(g.recoverySymbols) {
		return nil, 0, false
	}
	data = g.recoverySymbols[g.recoverySent]
	id = protocol.SymbolID(len(g.originals) + g.recoverySent)
	g.recoverySent++
	return data, id, true
}

// DropPendingRecovery abandons whatever recovery symbols haven't been
// sent yet: the older group's undelivered recovery is dropped,
// protecting latency at the expense of residual loss.
func (g *SenderGroup) DropPendingRecovery() {
	g.recoverySymbols = g.recoverySymbols[:g.recoverySent]
}
