package shorthair

import (
	"bytes"
	"time"

	"github.com/catid/shorthair-go/internal/estimator"
	"github.com/catid/shorthair-go/internal/protocol"
	"github.com/catid/shorthair-go/internal/wire"
)

// oobScheduler turns the decoder's queued statistics into outgoing pong
// frames, and turns incoming pongs into the remote's view of my
// outbound loss plus an RTT sample for the delay estimator.
//
// Two loss estimators exist side by side in the endpoint for exactly
// this reason: the decoder's Loss describes what I failed to receive,
// which I report to the peer; pongs I receive back describe what the
// peer failed to receive of *my* traffic, which is what my own
// redundancy planner needs to react to.
type oobScheduler struct {
	remoteLoss *estimator.Loss
	delay      *estimator.Delay

	groupStamps *[protocol.GroupRingSize]time.Time

	interval  time.Duration
	lastFlush time.Time
	onApp     func(payload []byte)
}

func newOOBScheduler(remoteLoss *estimator.Loss, delay *estimator.Delay, stamps *[protocol.GroupRingSize]time.Time, onApp func([]byte)) *oobScheduler {
	return &oobScheduler{
		remoteLoss:  remoteLoss,
		delay:       delay,
		groupStamps: stamps,
		interval:    100 * time.Millisecond,
		onApp:       onApp,
	}
}

// buildPongs encodes one wire.PongFrame per queued statistic, ready for
// the cipher envelope: a pong is sent for every group closed on the
// receive side. localDelay is this endpoint's own smoothed delay
// estimate, carried in rtt_ms as an informational value only; the
// peer's own delay estimator computes the authoritative RTT itself from
// group_stamps, not from this field.
func buildPongs(stats []pendingStat, localDelay time.Duration) [][]byte {
	frames := make([][]byte, 0, len(stats))
	for _, s := range stats {
		f := &wire.PongFrame{Group: s.group, Seen: s.seen, Count: s.count, RTTMs: uint64(localDelay.Milliseconds())}
		b := &bytes.Buffer{}
		f.Write(b)
		frames = append(frames, b.Bytes())
	}
	return frames
}

// handlePong folds an incoming pong into the remote-loss estimator and,
// if this group's send timestamp is still in groupStamps, into the
// delay estimator via the measured round trip: RTT is measured by
// matching the pong's group id against group_stamps.
func (o *oobScheduler) handlePong(f *wire.PongFrame, now time.Time) {
	o.remoteLoss.AddGroup(f.Seen, f.Count)
	sent := o.groupStamps[f.Group]
	if sent.IsZero() {
		return
	}
	rtt := now.Sub(sent)
	if rtt < 0 {
		return
	}
	o.delay.AddSample(rtt)
	o.groupStamps[f.Group] = time.Time{}
}

// handleApplicationOOB forwards anything outside the core-reserved range
// to the application unchanged.
func (o *oobScheduler) handleApplicationOOB(f *wire.OOBFrame) {
	if wire.IsReserved(f.SubType) {
		return
	}
	payload := make([]byte, 1+len(f.Payload))
	payload[0] = f.SubType
	copy(payload[1:], f.Payload)
	o.onApp(payload)
}

// shouldFlush reports whether interval has elapsed since the last pong
// batch was sent, called from Tick.
func (o *oobScheduler) shouldFlush(now time.Time) bool {
	if now.Sub(o.lastFlush) < o.interval {
		return false
	}
	o.lastFlush = now
	return true
}
