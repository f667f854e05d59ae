package shorthair

import "errors"

var (
	ErrNotInitialized     = errors.New("shorthair: endpoint not initialized")
	ErrAlreadyInitialized = errors.New("shorthair: endpoint already initialized")
	ErrPayloadTooLarge    = errors.New("shorthair: payload exceeds max permitted size")

	// ErrOOBReserved: type codes below OOBApplicationBase belong to the
	// core (pong/control traffic).
	ErrOOBReserved = errors.New("shorthair: OOB type code is reserved for the core")
)
