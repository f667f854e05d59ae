package protocol

type ByteCount uint32

// GroupID is the 8-bit, wrapping code-group identifier.
type GroupID uint8

type SymbolID uint16

const SKEY_BYTES = 32

// Packet type tags, plaintext, first byte inside the AEAD envelope.
const (
	TypeOriginal byte = 0x00
	TypeRecovery byte = 0x01
	TypeOOB      byte = 0x02
)

const (
	OOBPong            byte = 0x00
	OOBReservedMax     byte = 0x0F
	OOBApplicationBase byte = 0x10
)

const GroupRingSize = 256

// MaxGroupSymbols and MaxRecoverySymbols together must never exceed
// reedsolomon's 256-total-shard ceiling; swap still clamps r to
// 256-k for whatever k it's actually holding.
const MaxGroupSymbols = 192

const MaxRecoverySymbols = 64

const MinMaxDataSize = 64

const ReplayWindowBits = 1024
