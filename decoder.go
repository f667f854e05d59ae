package shorthair

import (
	"fmt"

	"github.com/catid/shorthair-go/internal/estimator"
	"github.com/catid/shorthair-go/internal/fec/group"
	"github.com/catid/shorthair-go/internal/protocol"
	"github.com/catid/shorthair-go/internal/utils"
	"github.com/catid/shorthair-go/internal/wire"
)

// pendingStat is one closed group's (seen, count) contribution, queued
// for the next outgoing pong.
type pendingStat struct {
	group protocol.GroupID
	seen  uint64
	count uint64
}

// decoder classifies incoming symbols into the receiver's group ring,
// delivers originals immediately, attempts FEC decode once enough
// symbols have arrived, and queues loss statistics for the pong
// scheduler.
type decoder struct {
	ring     *group.Ring
	scheme   group.Scheme
	onPacket func([]byte)
	loss     *estimator.Loss

	pending []pendingStat
}

func newDecoder(scheme group.Scheme, onPacket func([]byte), loss *estimator.Loss) *decoder {
	return &decoder{ring: group.NewRing(), scheme: scheme, onPacket: onPacket, loss: loss}
}

// handleSymbol processes one decrypted SymbolFrame.
func (d *decoder) handleSymbol(f *wire.SymbolFrame) error {
	g, superseded, ok := d.ring.Classify(f.Group)
	for _, s := range superseded {
		d.closeGroup(s)
	}
	if !ok {
		utils.Debugf("decoder: dropping symbol for stale group %d", f.Group)
		return nil
	}
	if g.Done {
		// Already closed, either by a completed decode or by the ring
		// superseding it. Its contribution was already queued for the
		// pong scheduler in closeGroup; a late arrival doesn't get
		// re-delivered or re-decoded.
		utils.Debugf("decoder: dropping late symbol for closed group %d", f.Group)
		return nil
	}

	if f.Recovery {
		if err := g.LearnParams(int(f.SymbolLen), int(f.OriginalCount), int(f.RecoveryCount)); err != nil {
			return err
		}
		offset := int(f.SymbolID) - g.TotalOriginals()
		if offset < 0 {
			return fmt.Errorf("decoder: recovery symbol id %d below original_count %d in group %d", f.SymbolID, g.TotalOriginals(), f.Group)
		}
		g.SetRecovery(protocol.SymbolID(offset), &group.Symbol{Data: f.Payload})
	} else if g.SetOriginal(f.SymbolID, f.Payload) {
		d.onPacket(f.Payload)
	}

	if g.MissingOriginals() && g.CanDecode(d.scheme) {
		recovered, err := g.Decode(d.scheme)
		if err != nil {
			// Originals already delivered stay delivered; the missing
			// ones are lost for good.
			d.closeGroup(g)
			return fmt.Errorf("decoder: decode failed for group %d: %w", f.Group, err)
		}
		for _, payload := range recovered {
			d.onPacket(payload)
		}
	}

	if g.Complete() && !d.ring.Reused(f.Group, g) {
		d.closeGroup(g)
	}
	return nil
}

// closeGroup marks g done in the ring and, if it ever learned a shape
// and has an unreported statistics contribution, queues it for the next
// pong.
func (d *decoder) closeGroup(g *group.ReceiverGroup) {
	if g.StatsPending && g.TotalOriginals() > 0 {
		seen, count := uint64(g.ReceivedOriginals()), uint64(g.TotalOriginals())
		d.loss.AddGroup(seen, count)
		d.pending = append(d.pending, pendingStat{group: g.ID, seen: seen, count: count})
		g.StatsPending = false
	}
	d.ring.Close(g)
}

// drainStats removes and returns every statistics contribution queued
// since the last call, for the pong scheduler to flush.
func (d *decoder) drainStats() []pendingStat {
	if len(d.pending) == 0 {
		return nil
	}
	out := d.pending
	d.pending = nil
	return out
}
