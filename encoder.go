package shorthair

import (
	"bytes"
	"time"

	"golang.org/x/time/rate"

	"github.com/catid/shorthair-go/internal/estimator"
	"github.com/catid/shorthair-go/internal/fec/group"
	"github.com/catid/shorthair-go/internal/planner"
	"github.com/catid/shorthair-go/internal/protocol"
	"github.com/catid/shorthair-go/internal/utils"
	"github.com/catid/shorthair-go/internal/wire"
)

// encoder cuts the outbound stream into groups, generates recovery via a
// group.Scheme, and paces recovery emission across the following
// group's window.
type encoder struct {
	scheme  group.Scheme
	planner *planner.Planner

	current *group.SenderGroup
	trailer *group.SenderGroup // the just-closed group, still draining recovery
	limiter *rate.Limiter      // paces trailer's recovery emission across swapInterval

	nextGroupID protocol.GroupID

	swapInterval time.Duration
	lastSwap     time.Time

	groupStamps [protocol.GroupRingSize]time.Time // close time per group id, for RTT measurement on pong

	maxGroupSymbols int
	maxRecovery     int
}

func newEncoder(scheme group.Scheme, p *planner.Planner) *encoder {
	e := &encoder{
		scheme:          scheme,
		planner:         p,
		current:         group.NewSenderGroup(0),
		lastSwap:        time.Now(),
		swapInterval:    500 * time.Millisecond,
		maxGroupSymbols: protocol.MaxGroupSymbols,
		maxRecovery:     protocol.MaxRecoverySymbols,
	}
	e.nextGroupID = 1
	return e
}

// calculateInterval derives swap_interval from the smoothed delay
// estimate. intervalFactor is the tuning decision recorded in
// DESIGN.md: 0.8, within the documented [0.5, 1.5] range.
const intervalFactor = 0.8

func (e *encoder) calculateInterval(d *estimator.Delay) {
	e.swapInterval = time.Duration(float64(d.Estimate()) * intervalFactor)
	if e.swapInterval <= 0 {
		e.swapInterval = time.Millisecond
	}
}

// ensureCapacity closes the current group early if it has already
// reached maxGroupSymbols. Tick only swaps on its own schedule, so a
// burst of Send calls between ticks would otherwise grow k past the
// systematic encoder's limit; this is the backstop on the Send path.
func (e *encoder) ensureCapacity(now time.Time, remoteLoss, targetLoss float64) error {
	if e.current.OriginalCount() >= e.maxGroupSymbols {
		return e.swap(now, remoteLoss, targetLoss)
	}
	return nil
}

// addOriginal appends payload to the current group and returns the
// plaintext symbol frame ready for the cipher envelope: the payload is
// emitted immediately as an original symbol.
func (e *encoder) addOriginal(payload []byte) ([]byte, error) {
	id, err := e.current.AddOriginal(payload)
	if err != nil {
		return nil, err
	}
	f := &wire.SymbolFrame{
		Group:    e.current.ID,
		SymbolID: id,
		Payload:  payload,
	}
	b := &bytes.Buffer{}
	f.Write(b)
	return b.Bytes(), nil
}

// shouldSwap reports whether the current group should close: the swap
// timer has elapsed, or the group has reached maxGroupSymbols.
func (e *encoder) shouldSwap(now time.Time) bool {
	if e.current.OriginalCount() >= e.maxGroupSymbols {
		return true
	}
	return now.Sub(e.lastSwap) >= e.swapInterval && e.current.OriginalCount() > 0
}

// swap closes the current group, plans its redundancy from the caller-
// supplied remote loss estimate, and rotates in a fresh one. Any
// recovery symbols still pending from the previous trailer are dropped:
// if a group closes while the previous one's recovery is still
// draining, its undelivered recovery symbols are abandoned.
func (e *encoder) swap(now time.Time, remoteLoss, targetLoss float64) error {
	if e.trailer != nil {
		e.trailer.DropPendingRecovery()
	}
	k := e.current.OriginalCount()
	r := e.planner.Plan(k, remoteLoss, targetLoss)
	if r > e.maxRecovery {
		r = e.maxRecovery
	}
	// reedsolomon.New rejects k+r > 256 regardless of maxRecovery.
	if maxR := 256 - k; r > maxR {
		r = maxR
	}
	if r < 0 {
		r = 0
	}
	if err := e.current.Close(e.scheme, r); err != nil {
		return err
	}
	e.groupStamps[e.current.ID] = now
	e.trailer = e.current
	e.current = group.NewSenderGroup(e.nextGroupID)
	e.nextGroupID++
	e.lastSwap = now
	burst := r
	if burst < 1 {
		burst = 1
	}
	e.limiter = rate.NewLimiter(recoveryRate(r, e.swapInterval), burst)
	// Leave one token so the first symbol can go out at once; the rest
	// accrue one per window/r, so a Tick that runs late still emits every
	// symbol that has come due since the previous one.
	e.limiter.AllowN(now, burst-1)
	utils.Debugf("closed group %d: k=%d r=%d loss=%.4f interval=%s", e.trailer.ID, k, r, remoteLoss, e.swapInterval)
	return nil
}

// recoveryRate returns the token-bucket rate that paces r recovery
// symbols evenly across window, one roughly every window/r.
func recoveryRate(r int, window time.Duration) rate.Limit {
	if r <= 0 || window <= 0 {
		return rate.Inf
	}
	return rate.Every(window / time.Duration(r))
}

// dueRecoverySymbols returns the plaintext symbol frames for whatever
// recovery symbols from the trailer group are due to be sent right now;
// called from Tick.
func (e *encoder) dueRecoverySymbols(now time.Time) [][]byte {
	if e.trailer == nil || e.trailer.PendingRecovery() == 0 {
		return nil
	}
	var frames [][]byte
	for e.trailer.PendingRecovery() > 0 && e.limiter.AllowN(now, 1) {
		data, id, ok := e.trailer.NextRecoverySymbol()
		if !ok {
			break
		}
		f := &wire.SymbolFrame{
			Recovery:      true,
			Group:         e.trailer.ID,
			SymbolID:      id,
			OriginalCount: uint64(e.trailer.OriginalCount()),
			RecoveryCount: uint64(e.trailer.RecoveryCount()),
			SymbolLen:     uint64(e.trailer.PaddedLen()),
			Payload:       data,
		}
		b := &bytes.Buffer{}
		f.Write(b)
		frames = append(frames, b.Bytes())
	}
	if e.trailer.PendingRecovery() == 0 {
		e.trailer = nil
	}
	return frames
}

// flush closes the current group immediately, without waiting for the
// swap timer, if it holds any originals; an empty group is left open.
// Used by Finalize so originals sent right before shutdown still get
// their recovery symbols.
func (e *encoder) flush(now time.Time, remoteLoss, targetLoss float64) error {
	if e.current.OriginalCount() == 0 {
		return nil
	}
	return e.swap(now, remoteLoss, targetLoss)
}
