package shorthair

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/catid/shorthair-go/internal/crypto"
	"github.com/catid/shorthair-go/internal/estimator"
	"github.com/catid/shorthair-go/internal/fec/group/schemes"
	"github.com/catid/shorthair-go/internal/planner"
	"github.com/catid/shorthair-go/internal/pool"
	"github.com/catid/shorthair-go/internal/protocol"
	"github.com/catid/shorthair-go/internal/utils"
	"github.com/catid/shorthair-go/internal/wire"
)

// lossWindowSize is the number of closed groups the loss estimator
// smooths over, a tuning decision recorded in DESIGN.md.
const lossWindowSize = 48

// delayEMAWeight is the smoothing weight for the one-way delay
// estimator, a tuning decision recorded in DESIGN.md.
const delayEMAWeight = 0.125

// Endpoint is the facade a caller drives through Initialize, Send,
// SendOOB, Recv, Tick and Finalize. One Endpoint handles one peer
// relationship over one already-connected unreliable channel; the
// channel itself is the caller's responsibility — Iface.SendData just
// transmits an already-encrypted datagram.
type Endpoint struct {
	mu          sync.Mutex
	initialized bool
	settings    Settings

	dir *crypto.Direction

	// remoteLoss is what the peer reports failing to receive of my
	// traffic, read by Tick/Finalize to drive the redundancy planner.
	// The mirror estimator — what I fail to receive, reported to the
	// peer via pong — lives inside dec, since only the decoder ever
	// touches it.
	remoteLoss *estimator.Loss
	delay      *estimator.Delay

	enc *encoder
	dec *decoder
	oob *oobScheduler

	encPool *pool.EncodePool
	decPool *pool.DecodePool
}

// Initialize configures the endpoint from settings and the pre-shared
// secret. secret must be protocol.SKEY_BYTES long and identical on both
// peers; Initiator must differ between them.
func (e *Endpoint) Initialize(secret []byte, settings Settings) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.initialized {
		return ErrAlreadyInitialized
	}
	if len(secret) != protocol.SKEY_BYTES {
		return fmt.Errorf("shorthair: secret must be %d bytes, got %d", protocol.SKEY_BYTES, len(secret))
	}
	if err := settings.validate(); err != nil {
		return err
	}

	dir, err := crypto.NewDirection(secret, settings.Initiator)
	if err != nil {
		return fmt.Errorf("shorthair: deriving cipher contexts: %w", err)
	}

	scheme := schemes.New()
	p := planner.New(protocol.MaxRecoverySymbols)
	localLoss := estimator.NewLoss(lossWindowSize, settings.MinLoss)
	remoteLoss := estimator.NewLoss(lossWindowSize, settings.MinLoss)
	delay := estimator.NewDelay(settings.MinDelay, settings.MaxDelay, delayEMAWeight)

	enc := newEncoder(scheme, p)
	dec := newDecoder(scheme, settings.Iface.OnPacket, localLoss)
	oob := newOOBScheduler(remoteLoss, delay, &enc.groupStamps, settings.Iface.OnOOB)

	e.settings = settings
	e.dir = dir
	e.remoteLoss = remoteLoss
	e.delay = delay
	e.enc = enc
	e.dec = dec
	e.oob = oob
	e.encPool = pool.NewEncodePool(settings.MaxDataSize)
	e.decPool = pool.NewDecodePool(settings.MaxDataSize)
	e.initialized = true
	return nil
}

// Finalize flushes any partial group together with all of its recovery
// symbols and marks the endpoint uninitialized; every other call then
// fails until Initialize is called again.
func (e *Endpoint) Finalize() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	now := time.Now()
	if err := e.enc.flush(now, e.remoteLoss.Estimate(), e.settings.TargetLoss); err != nil {
		utils.Warnf("shorthair: flush on finalize failed: %v", err)
	}
	// No later Tick will emit the trailer's recovery, so release all of
	// it now instead of at the paced rate.
	e.enc.limiter = rate.NewLimiter(rate.Inf, 1)
	e.flushRecoveryLocked(now)
	e.initialized = false
	return nil
}

// Send encrypts and transmits one application payload as an original
// symbol of the current code group.
func (e *Endpoint) Send(payload []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	if len(payload)+e.dir.Overhead()+symbolHeaderSlack > e.settings.MaxDataSize {
		return ErrPayloadTooLarge
	}
	if err := e.enc.ensureCapacity(time.Now(), e.remoteLoss.Estimate(), e.settings.TargetLoss); err != nil {
		return fmt.Errorf("shorthair: %w", err)
	}
	plaintext, err := e.enc.addOriginal(payload)
	if err != nil {
		return fmt.Errorf("shorthair: %w", err)
	}
	e.transmit(plaintext)
	return nil
}

// SendOOB transmits an application out-of-band payload. typ must be in
// the application-owned range; values the core reserves for
// pong/control are rejected.
func (e *Endpoint) SendOOB(typ byte, payload []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	if wire.IsReserved(typ) {
		return ErrOOBReserved
	}
	f := &wire.OOBFrame{SubType: typ, Payload: payload}
	plaintext := marshalOOB(f)
	e.transmit(plaintext)
	return nil
}

// Recv processes one received datagram: it opens the cipher envelope,
// routes the plaintext to the symbol decoder or the OOB handler, and
// drops silently on any authentication or parse failure.
func (e *Endpoint) Recv(packet []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	scratch := e.decPool.Get()
	plaintext, err := e.dir.OpenPacket([]byte(scratch), packet)
	if err != nil {
		utils.Debugf("shorthair: dropping undecryptable packet: %v", err)
		return nil
	}
	// plaintext lives in the pooled scratch buffer unless Open had to
	// reallocate, and goes back to the pool when Recv returns. Nothing
	// handed to OnPacket or OnOOB aliases it: ParseSymbolFrame copies the
	// symbol payload out, and handleApplicationOOB copies before calling
	// OnOOB.
	if cap(plaintext) == len(scratch) {
		defer e.decPool.Put(pool.DecodeBuffer(plaintext[:len(scratch)]))
	}

	if len(plaintext) == 0 {
		return nil
	}
	switch plaintext[0] {
	case protocol.TypeOriginal, protocol.TypeRecovery:
		f, err := wire.ParseSymbolFrame(plaintext)
		if err != nil {
			utils.Debugf("shorthair: dropping malformed symbol frame: %v", err)
			return nil
		}
		if err := e.dec.handleSymbol(f); err != nil {
			utils.Warnf("shorthair: %v", err)
		}
	case protocol.TypeOOB:
		of, err := wire.ParseOOBFrame(plaintext)
		if err != nil {
			utils.Debugf("shorthair: dropping malformed OOB frame: %v", err)
			return nil
		}
		if of.SubType == protocol.OOBPong {
			pf, err := wire.ParsePongFrame(of.Payload)
			if err != nil {
				utils.Debugf("shorthair: dropping malformed pong: %v", err)
				return nil
			}
			e.oob.handlePong(pf, time.Now())
			return nil
		}
		e.oob.handleApplicationOOB(of)
	default:
		utils.Debugf("shorthair: dropping packet with unknown type %#x", plaintext[0])
	}
	return nil
}

// Tick drives all of the endpoint's time-based behavior: group swaps,
// paced recovery emission and periodic pong flushes. The caller is
// expected to call this on a steady, short interval (e.g. every
// 10-20ms).
func (e *Endpoint) Tick() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.initialized {
		return ErrNotInitialized
	}
	now := time.Now()
	e.enc.calculateInterval(e.delay)
	if e.enc.shouldSwap(now) {
		if err := e.enc.swap(now, e.remoteLoss.Estimate(), e.settings.TargetLoss); err != nil {
			return fmt.Errorf("shorthair: %w", err)
		}
	}
	e.flushRecoveryLocked(now)

	if e.oob.shouldFlush(now) {
		for _, plaintext := range buildPongs(e.dec.drainStats(), e.delay.Estimate()) {
			e.transmit(plaintext)
		}
	}
	return nil
}

// flushRecoveryLocked emits whatever recovery symbols are due right now.
// Caller must hold e.mu.
func (e *Endpoint) flushRecoveryLocked(now time.Time) {
	for _, plaintext := range e.enc.dueRecoverySymbols(now) {
		e.transmit(plaintext)
	}
}

// transmit seals plaintext and hands the ciphertext to the caller's
// transport. SendData is assumed not to retain packet past the call
// (the same synchronous-write convention as net.Conn.Write), since the
// backing buffer comes straight from the reuse pool. Caller must hold
// e.mu.
func (e *Endpoint) transmit(plaintext []byte) {
	scratch := e.encPool.Get()
	packet := e.dir.SealPacket([]byte(scratch), plaintext)
	e.settings.Iface.SendData(packet)
	if cap(packet) == len(scratch) {
		e.encPool.Put(pool.EncodeBuffer(packet[:len(scratch)]))
	}
}

func marshalOOB(f *wire.OOBFrame) []byte {
	b := &bytes.Buffer{}
	f.Write(b)
	return b.Bytes()
}

// symbolHeaderSlack is a conservative worst-case for a SymbolFrame's
// non-payload bytes, used by Send's size check; mirrored from the
// headerOverhead sanity constant in settings.go.
const symbolHeaderSlack = headerOverhead
