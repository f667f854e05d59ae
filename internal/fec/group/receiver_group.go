package group

import (
	"fmt"

	"github.com/catid/shorthair-go/internal/protocol"
)

// ReceiverGroup is the receiver-side code group. It is opened lazily on
// first observation and carries everything needed to attempt a decode
// plus the statistics owed to the loss estimator once it closes.
//
// Original symbols are delivered to the application the instant they
// arrive, before the group's shared symbol length l is known: originals
// are never held back waiting for a group to close. l only becomes
// known once a recovery symbol arrives, since the sender only finalizes
// it at Close(). Any original seen before that is buffered raw in
// pendingOriginals and padded into the group's symbol table
// retroactively once LearnParams runs.
type ReceiverGroup struct {
	ID protocol.GroupID

	learned        bool
	l              int
	totalOriginals int
	totalRecovery  int

	pendingOriginals map[protocol.SymbolID][]byte

	originals []*Symbol
	recovery  []*Symbol

	receivedOriginals int
	receivedRecovery  int

	Done bool

	// StatsPending is true once the group has something to contribute to
	// the loss estimator that hasn't yet been forwarded via a pong.
	StatsPending bool
}

// Open creates a fresh, empty group for id.
func Open(id protocol.GroupID) *ReceiverGroup {
	return &ReceiverGroup{ID: id}
}

// LearnParams records the group's shape as announced by a recovery
// symbol's header, the first time it's seen, and pads in any originals
// that arrived before this group's l was known.
func (g *ReceiverGroup) LearnParams(l, totalOriginals, totalRecovery int) error {
	if !g.learned {
		g.learned = true
		g.l, g.totalOriginals, g.totalRecovery = l, totalOriginals, totalRecovery
		g.originals = make([]*Symbol, totalOriginals)
		g.recovery = make([]*Symbol, totalRecovery)
		for id, payload := range g.pendingOriginals {
			g.padIntoSlot(id, payload)
		}
		g.pendingOriginals = nil
		return nil
	}
	if g.totalOriginals != totalOriginals || g.totalRecovery != totalRecovery || g.l != l {
		return errInconsistentParams(g.ID)
	}
	return nil
}

// TotalOriginals is the group's original_count, 0 until learned.
func (g *ReceiverGroup) TotalOriginals() int { return g.totalOriginals }

// ReceivedOriginals is how many distinct originals have arrived so far.
func (g *ReceiverGroup) ReceivedOriginals() int { return g.receivedOriginals }

// padIntoSlot pads a raw original payload to g.l and stores it, once l
// is known. Silently drops a payload that no longer fits (should not
// happen: PaddedLen is derived from the largest payload in the group).
func (g *ReceiverGroup) padIntoSlot(id protocol.SymbolID, payload []byte) {
	if int(id) >= len(g.originals) || g.originals[id] != nil {
		return
	}
	sym, err := PadOriginal(payload, g.l)
	if err != nil {
		return
	}
	g.originals[id] = sym
}

// SetOriginal records a received original's raw application payload at
// its symbol id. Returns false if this id was already recorded
// (duplicate/retransmit-of-loss, should not happen on a datagram
// channel but kept idempotent).
func (g *ReceiverGroup) SetOriginal(id protocol.SymbolID, payload []byte) bool {
	if g.learned {
		if int(id) >= len(g.originals) || g.originals[id] != nil {
			return false
		}
		g.padIntoSlot(id, payload)
	} else {
		if g.pendingOriginals == nil {
			g.pendingOriginals = make(map[protocol.SymbolID][]byte)
		}
		if _, dup := g.pendingOriginals[id]; dup {
			return false
		}
		g.pendingOriginals[id] = payload
	}
	g.receivedOriginals++
	g.StatsPending = true
	return true
}

// SetRecovery records a received recovery symbol at its offset (id -
// total_original_count).
func (g *ReceiverGroup) SetRecovery(offset protocol.SymbolID, sym *Symbol) bool {
	if int(offset) >= len(g.recovery) || g.recovery[offset] != nil {
		return false
	}
	g.recovery[offset] = sym
	g.receivedRecovery++
	return true
}

// MissingOriginals reports whether any original symbol is still absent.
func (g *ReceiverGroup) MissingOriginals() bool {
	return g.learned && g.receivedOriginals < g.totalOriginals
}

// CanDecode asks scheme whether enough symbols are present right now.
func (g *ReceiverGroup) CanDecode(scheme Scheme) bool {
	if !g.learned {
		return false
	}
	return scheme.CanDecode(g.receivedOriginals, g.receivedRecovery, g.totalOriginals)
}

// Decode attempts recovery via scheme, depads every newly-recovered
// original and returns them in ascending symbol-id order. Recovered
// originals are never re-delivered to the application: the caller
// already received the ones present directly and must only forward what
// Decode hands back.
func (g *ReceiverGroup) Decode(scheme Scheme) ([][]byte, error) {
	recovered, err := scheme.Decode(g.originals, g.recovery, g.totalOriginals)
	if err != nil {
		return nil, err
	}
	payloads := make([][]byte, 0, len(recovered))
	for _, sym := range recovered {
		payload, err := Depad(sym)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, payload)
	}
	g.receivedOriginals = g.totalOriginals
	return payloads, nil
}

// Complete reports whether every original has arrived or been decoded.
func (g *ReceiverGroup) Complete() bool {
	return g.learned && g.receivedOriginals >= g.totalOriginals
}

func errInconsistentParams(id protocol.GroupID) error {
	return fmt.Errorf("group: inconsistent group parameters claimed for group %d", id)
}
