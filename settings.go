package shorthair

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/catid/shorthair-go/internal/protocol"
)

// Interface is the capability set the caller implements, expressed as a
// struct of function values rather than an inheritance-based callback
// object.
type Interface struct {
	// OnPacket delivers a data payload, originally received or
	// recovered via FEC decode.
	OnPacket func(payload []byte)
	// OnOOB delivers an application OOB payload; the first byte of
	// payload is the caller-chosen type code.
	OnOOB func(payload []byte)
	// SendData transmits an already-encrypted datagram.
	SendData func(packet []byte)
}

// Settings configures an Endpoint.
type Settings struct {
	// Initiator selects which half of the key schedule this endpoint
	// uses; peers MUST disagree.
	Initiator bool

	// TargetLoss is the residual per-packet loss after FEC (e.g. 1e-4).
	TargetLoss float64

	// MinLoss floors the measured loss before the redundancy planner
	// consults it.
	MinLoss float64

	// MinDelay and MaxDelay clamp the smoothed delay estimate.
	MinDelay, MaxDelay time.Duration

	// MaxDataSize ceilings outbound datagram size after encryption.
	MaxDataSize int

	// Iface is the callback trio.
	Iface Interface
}

// validate checks Settings for configuration errors, aggregating every
// independent violation instead of stopping at the first.
func (s *Settings) validate() error {
	var errs *multierror.Error
	if s.MinLoss < 0 || s.MinLoss > 1 {
		errs = multierror.Append(errs, fmt.Errorf("shorthair: min_loss %v out of [0,1]", s.MinLoss))
	}
	if s.MinDelay > s.MaxDelay {
		errs = multierror.Append(errs, fmt.Errorf("shorthair: min_delay %v exceeds max_delay %v", s.MinDelay, s.MaxDelay))
	}
	minHeader := headerOverhead + counterAndTagOverhead
	if s.MaxDataSize < protocol.MinMaxDataSize || s.MaxDataSize < minHeader+1 {
		errs = multierror.Append(errs, fmt.Errorf("shorthair: max_data_size %d too small to hold headers+cipher overhead", s.MaxDataSize))
	}
	if s.Iface.SendData == nil {
		errs = multierror.Append(errs, fmt.Errorf("shorthair: interface.SendData must be set"))
	}
	if s.Iface.OnPacket == nil {
		errs = multierror.Append(errs, fmt.Errorf("shorthair: interface.OnPacket must be set"))
	}
	if s.Iface.OnOOB == nil {
		errs = multierror.Append(errs, fmt.Errorf("shorthair: interface.OnOOB must be set"))
	}
	if errs != nil {
		return errs.ErrorOrNil()
	}
	return nil
}

// headerOverhead is a conservative worst-case for a SymbolFrame header
// (type + group + 24 bytes for its four varints: symbol id and both
// counts stay below 256 and take at most 2 bytes each, the symbol length
// at most 8), used for the ConfigInvalid sanity check at Initialize and
// Send's size check; actual per-packet overhead is usually much smaller.
const headerOverhead = 1 + 1 + 8 + 8 + 8

// counterAndTagOverhead approximates crypto.Direction.Overhead() before
// an Envelope has been constructed (chacha20poly1305: 8-byte counter
// prefix + 16-byte tag).
const counterAndTagOverhead = 8 + 16
