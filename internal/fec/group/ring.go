package group

import (
	"github.com/catid/shorthair-go/internal/protocol"
)

// Ring is the receiver's fixed 256-slot group table: group ids form a
// ring, and the ring is the lifetime primitive. It's a literal array
// indexed by the id itself, since ids are only ever 8 bits wide.
type Ring struct {
	slots   [protocol.GroupRingSize]*ReceiverGroup
	cursor  protocol.GroupID
	hasSeen bool
}

// NewRing builds an empty ring.
func NewRing() *Ring {
	return &Ring{}
}

// distance returns the signed 8-bit distance from the cursor to id:
// positive means id is ahead of the cursor, negative means behind.
// Never compare group ids with plain integer inequality; they wrap.
func distance(cursor, id protocol.GroupID) int8 {
	return int8(id - cursor)
}

// Classify locates (creating if necessary) the group for id, advancing
// the cursor and closing any superseded groups along the way. ok is
// false only for the one id exactly 128 away from the cursor in either
// direction: an 8-bit signed distance can't tell "128 ahead" from "128
// behind" apart at that single ambiguous offset, so it's conservatively
// dropped rather than guessed.
func (r *Ring) Classify(id protocol.GroupID) (g *ReceiverGroup, superseded []*ReceiverGroup, ok bool) {
	if !r.hasSeen {
		r.hasSeen = true
		r.cursor = id
		g = Open(id)
		r.slots[id] = g
		return g, nil, true
	}
	d := distance(r.cursor, id)
	if d < 0 && d <= -128 {
		return nil, nil, false
	}
	if d > 0 {
		// id is ahead of the cursor: advance it, closing every slot we
		// pass, including id's own slot. id's slot may hold a prior
		// incarnation from 256-or-more ids ago (the ring has wrapped all
		// the way back around to it); that occupant is just as
		// superseded as any other slot the sweep passes over; it just
		// also happens to be the one the cursor is landing on.
		for off := protocol.GroupID(1); off <= protocol.GroupID(d); off++ {
			passed := r.cursor + off
			if prev := r.slots[passed]; prev != nil {
				if !prev.Done {
					prev.Done = true
					superseded = append(superseded, prev)
				}
				if passed == id {
					r.slots[passed] = nil
				}
			}
		}
		r.cursor = id
	}
	g = r.slots[id]
	if g == nil {
		g = Open(id)
		r.slots[id] = g
	}
	return g, superseded, true
}

// Reused reports whether slot id currently holds a different group than
// expect (done or not): a receiver group is freed when its ring slot is
// reused 256 ids later.
func (r *Ring) Reused(id protocol.GroupID, expect *ReceiverGroup) bool {
	return r.slots[id] != expect
}

// Close explicitly marks a group done, e.g. after a decode failure or a
// completed decode.
func (r *Ring) Close(g *ReceiverGroup) {
	g.Done = true
}
